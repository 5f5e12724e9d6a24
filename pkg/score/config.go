package score

import (
	"errors"
	"fmt"
)

// Score bounds.
const (
	MinScore = 0
	MaxScore = 10
)

// Config holds the thresholds and point values used by the rules.
// The keyword lists and cutoffs are heuristics, so every one of them is tunable.
//
//nolint:govet // fieldalignment: grouped by rule for readability
type Config struct {
	// Picture rule.
	PictureRiskThreshold int `yaml:"picture_risk_threshold"` // risk above this deducts
	PictureMaxDeduction  int `yaml:"picture_max_deduction"`
	PicturePoints        int `yaml:"picture_points"`

	// Bio rules.
	MissingBioPenalty int `yaml:"missing_bio_penalty"`
	BioPoints         int `yaml:"bio_points"`
	DetailedBioLength int `yaml:"detailed_bio_length"` // characters; longer earns DetailedBioPoints
	DetailedBioPoints int `yaml:"detailed_bio_points"`

	// Follower ratio rule.
	ZeroFollowersPenalty int     `yaml:"zero_followers_penalty"`
	HealthyRatioMin      float64 `yaml:"healthy_ratio_min"`
	HealthyRatioMax      float64 `yaml:"healthy_ratio_max"`
	HealthyRatioPoints   int     `yaml:"healthy_ratio_points"`
	LowRatio             float64 `yaml:"low_ratio"`
	LowRatioPenalty      int     `yaml:"low_ratio_penalty"`
	HighRatio            float64 `yaml:"high_ratio"`
	HighRatioPenalty     int     `yaml:"high_ratio_penalty"`

	// Bio keyword rule.
	KeywordPenalty      int `yaml:"keyword_penalty"` // per keyword
	KeywordMaxDeduction int `yaml:"keyword_max_deduction"`
}

// DefaultConfig returns the standard rule set.
func DefaultConfig() Config {
	return Config{
		PictureRiskThreshold: 3,
		PictureMaxDeduction:  3,
		PicturePoints:        2,

		MissingBioPenalty: 2,
		BioPoints:         1,
		DetailedBioLength: 20,
		DetailedBioPoints: 1,

		ZeroFollowersPenalty: 2,
		HealthyRatioMin:      0.5,
		HealthyRatioMax:      2,
		HealthyRatioPoints:   3,
		LowRatio:             0.1,
		LowRatioPenalty:      3,
		HighRatio:            10,
		HighRatioPenalty:     1,

		KeywordPenalty:      1,
		KeywordMaxDeduction: 3,
	}
}

// Validate checks that the ratio bands are ordered and penalties are not negative.
func (c Config) Validate() error {
	var errs []error
	if c.HealthyRatioMin > c.HealthyRatioMax {
		errs = append(errs, fmt.Errorf("healthy ratio band inverted: %v > %v", c.HealthyRatioMin, c.HealthyRatioMax))
	}
	if c.LowRatio < 0 || c.HighRatio < 0 {
		errs = append(errs, errors.New("ratio thresholds must not be negative"))
	}
	for name, v := range map[string]int{
		"picture_max_deduction":  c.PictureMaxDeduction,
		"missing_bio_penalty":    c.MissingBioPenalty,
		"zero_followers_penalty": c.ZeroFollowersPenalty,
		"low_ratio_penalty":      c.LowRatioPenalty,
		"high_ratio_penalty":     c.HighRatioPenalty,
		"keyword_penalty":        c.KeywordPenalty,
		"keyword_max_deduction":  c.KeywordMaxDeduction,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative: %d", name, v))
		}
	}
	return errors.Join(errs...)
}
