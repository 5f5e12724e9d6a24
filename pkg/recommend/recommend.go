// Package recommend suggests profile improvements from a record and its score.
package recommend

import (
	"fmt"
	"unicode/utf8"

	"github.com/codeGROOVE-dev/credcheck/pkg/profile"
)

// Config holds the thresholds for suggestions.
type Config struct {
	ShortBioLength int `yaml:"short_bio_length"` // bios shorter than this get an "expand" suggestion
	MinFollowers   int `yaml:"min_followers"`
	VerifyBelow    int `yaml:"verify_below"` // scores below this get a "verify" suggestion
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{ShortBioLength: 20, MinFollowers: 100, VerifyBelow: 7}
}

// platformNames maps platform identifiers to display names.
var platformNames = map[string]string{
	"twitter":  "Twitter",
	"bluesky":  "BlueSky",
	"mastodon": "your Mastodon instance",
}

// Engine produces ordered improvement suggestions.
type Engine struct {
	cfg Config
}

// New creates an Engine.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

var defaultEngine = New(DefaultConfig())

// Recommend returns suggestions using the default thresholds.
func Recommend(rec profile.Record, score int) []string {
	return defaultEngine.Recommend(rec, score)
}

// Recommend returns suggestions in a fixed order: bio, followers, verification.
func (e *Engine) Recommend(rec profile.Record, score int) []string {
	var recs []string

	switch {
	case rec.Bio == "":
		recs = append(recs, "Add a profile bio to gain 2-3 points")
	case utf8.RuneCountInString(rec.Bio) < e.cfg.ShortBioLength:
		recs = append(recs, fmt.Sprintf("Expand your bio to %d+ characters for +1 point", e.cfg.ShortBioLength))
	}

	if rec.Followers < e.cfg.MinFollowers {
		recs = append(recs, "Engage with similar accounts to grow followers")
	}

	if score < e.cfg.VerifyBelow {
		name, ok := platformNames[rec.Platform]
		if !ok {
			name = "the platform"
		}
		recs = append(recs, fmt.Sprintf("Verify email/phone with %s for trust boost", name))
	}

	return recs
}
