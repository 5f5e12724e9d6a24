// Package score computes a bounded credibility score for an enriched profile record.
//
// Scoring is a fixed sequence of rules. Each rule adds or deducts points and
// leaves one explanation behind, so the same record always produces the same
// score and the same audit trail.
package score

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/codeGROOVE-dev/credcheck/pkg/profile"
)

// Rule names, in evaluation order.
const (
	RulePicture     = "picture"
	RuleBioPresence = "bio_presence"
	RuleBioLength   = "bio_length"
	RuleRatio       = "follower_ratio"
	RuleKeywords    = "bio_keywords"
)

// Explanation marker words. Presentation layers classify explanations by these prefixes.
const (
	MarkerAdded    = "Added"
	MarkerDeducted = "Deducted"
)

// Adjustment is a single point change made by a rule.
type Adjustment struct {
	Rule   string `json:"rule"`
	Reason string `json:"reason"`
	Points int    `json:"points"` // signed
}

// String renders the adjustment as "Added 2 points: reason" or "Deducted 1 point: reason".
func (a Adjustment) String() string {
	marker := MarkerAdded
	n := a.Points
	if n < 0 {
		marker = MarkerDeducted
		n = -n
	}
	unit := "points"
	if n == 1 {
		unit = "point"
	}
	return fmt.Sprintf("%s %d %s: %s", marker, n, unit, a.Reason)
}

// IsDeduction reports whether the explanation string describes a deduction.
func IsDeduction(explanation string) bool {
	return strings.HasPrefix(explanation, MarkerDeducted)
}

// Result is the output of scoring a record.
type Result struct {
	Explanations []string     `json:"explanations"`
	Adjustments  []Adjustment `json:"adjustments"`
	Score        int          `json:"score"`
	Raw          int          `json:"raw"` // sum before clamping
}

// Scorer applies the credibility rules with a fixed configuration.
// A Scorer has no mutable state and is safe for concurrent use.
type Scorer struct {
	cfg Config
}

// New creates a Scorer. Callers should start from DefaultConfig and override fields.
func New(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

var defaultScorer = New(DefaultConfig())

// Score scores rec with the default configuration.
func Score(rec profile.Record) Result {
	return defaultScorer.Score(rec)
}

// Config returns the effective configuration.
func (s *Scorer) Config() Config { return s.cfg }

// Score applies every rule to rec in order and clamps the total.
func (s *Scorer) Score(rec profile.Record) Result {
	rec = rec.Normalize()
	c := s.cfg

	var adj []Adjustment
	add := func(rule string, points int, reason string) {
		adj = append(adj, Adjustment{Rule: rule, Points: points, Reason: reason})
	}

	// 1. Profile picture. Unanalyzed pictures contribute nothing.
	if pa := rec.PictureAnalysis; pa.Analyzed() {
		if pa.CredibilityRisk > c.PictureRiskThreshold {
			reasons := "suspicious characteristics"
			if len(pa.RedFlags) > 0 {
				reasons = strings.Join(pa.RedFlags, ", ")
			}
			add(RulePicture, -min(c.PictureMaxDeduction, pa.CredibilityRisk), "Profile picture - "+reasons)
		} else {
			add(RulePicture, c.PicturePoints, "Verified authentic profile picture")
		}
	}

	// 2. Profile completeness.
	if rec.Bio == "" {
		add(RuleBioPresence, -c.MissingBioPenalty, "Missing profile bio")
	} else {
		add(RuleBioPresence, c.BioPoints, "Profile bio exists")
		if utf8.RuneCountInString(rec.Bio) > c.DetailedBioLength {
			add(RuleBioLength, c.DetailedBioPoints, fmt.Sprintf("Detailed bio (%d+ chars)", c.DetailedBioLength))
		}
	}

	// 3. Follower ratio. Gaps between the bands are a deliberate dead zone.
	ratio := FollowerRatio(rec.Followers, rec.Following)
	switch {
	case ratio == 0:
		add(RuleRatio, -c.ZeroFollowersPenalty, "Zero followers")
	case ratio >= c.HealthyRatioMin && ratio <= c.HealthyRatioMax:
		add(RuleRatio, c.HealthyRatioPoints,
			fmt.Sprintf("Healthy follower ratio (%s-%s)", formatRatio(c.HealthyRatioMin), formatRatio(c.HealthyRatioMax)))
	case ratio < c.LowRatio:
		add(RuleRatio, -c.LowRatioPenalty, fmt.Sprintf("Extremely low follower ratio (<%s)", formatRatio(c.LowRatio)))
	case ratio > c.HighRatio:
		add(RuleRatio, -c.HighRatioPenalty, fmt.Sprintf("Very high follower ratio (>%s)", formatRatio(c.HighRatio)))
	}

	// 4. Bio keywords. An unavailable analysis carries no keywords.
	if n := len(rec.BioAnalysis.Keywords); n > 0 {
		add(RuleKeywords, -min(c.KeywordMaxDeduction, n*c.KeywordPenalty),
			"Suspicious bio keywords - "+strings.Join(rec.BioAnalysis.Keywords, ", "))
	}

	// A rule configured to zero points leaves no explanation.
	res := Result{Adjustments: make([]Adjustment, 0, len(adj)), Explanations: make([]string, 0, len(adj))}
	for _, a := range adj {
		if a.Points == 0 {
			continue
		}
		res.Raw += a.Points
		res.Adjustments = append(res.Adjustments, a)
		res.Explanations = append(res.Explanations, a.String())
	}
	res.Score = max(MinScore, min(MaxScore, res.Raw))
	return res
}

// formatRatio prints 0.5 as "0.5" and 2 as "2.0".
func formatRatio(f float64) string {
	if f == float64(int(f)) && f < 10 {
		return fmt.Sprintf("%.1f", f)
	}
	return fmt.Sprintf("%g", f)
}
