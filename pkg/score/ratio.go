package score

// Ratio band used by RatioSuspicious.
const (
	suspiciousRatioLow  = 0.5
	suspiciousRatioHigh = 10
)

// FollowerRatio returns followers divided by following.
// Negative counts are treated as zero and a following count of zero is
// treated as one, so an account that follows nobody is judged by its raw
// follower count instead of dividing by zero.
func FollowerRatio(followers, following int) float64 {
	return float64(max(followers, 0)) / float64(max(following, 1))
}

// RatioSuspicious reports whether the follower ratio is outside [0.5, 10].
// It uses the same zero-following policy as FollowerRatio.
func RatioSuspicious(followers, following int) bool {
	r := FollowerRatio(followers, following)
	return r < suspiciousRatioLow || r > suspiciousRatioHigh
}

// Level is a coarse credibility bucket for display.
type Level string

// Credibility levels.
const (
	LevelHigh   Level = "High"
	LevelMedium Level = "Medium"
	LevelLow    Level = "Low"
)

// LevelOf buckets a clamped score.
func LevelOf(score int) Level {
	switch {
	case score >= 8:
		return LevelHigh
	case score >= 5:
		return LevelMedium
	default:
		return LevelLow
	}
}
