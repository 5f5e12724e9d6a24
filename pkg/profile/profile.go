// Package profile defines the typed records that flow between fetchers, analyzers, and the scorer.
package profile

import (
	"errors"
	"time"
)

// Common errors returned by fetchers and analyzers.
var (
	ErrAuthRequired        = errors.New("authentication required")
	ErrNoCookies           = errors.New("no cookies available")
	ErrProfileNotFound     = errors.New("profile not found")
	ErrRateLimited         = errors.New("rate limited")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrInvalidUsername     = errors.New("invalid username")
)

// Verdict is the outcome of a single analysis signal.
// The zero value is VerdictUnavailable so an unset field never reads as "clean".
type Verdict int

// Verdict values.
const (
	VerdictUnavailable Verdict = iota // analysis failed or was not run
	VerdictNegative                   // analyzed, signal absent
	VerdictPositive                   // analyzed, signal present
)

func (v Verdict) String() string {
	switch v {
	case VerdictNegative:
		return "negative"
	case VerdictPositive:
		return "positive"
	default:
		return "unavailable"
	}
}

// MarshalText renders the verdict by name in JSON and YAML output.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText parses a verdict name. Unknown names read as unavailable.
func (v *Verdict) UnmarshalText(text []byte) error {
	switch string(text) {
	case "negative":
		*v = VerdictNegative
	case "positive":
		*v = VerdictPositive
	default:
		*v = VerdictUnavailable
	}
	return nil
}

// Available reports whether the signal was actually analyzed.
func (v Verdict) Available() bool { return v != VerdictUnavailable }

// BioAnalysis is the result of scanning bio text for suspicious patterns.
type BioAnalysis struct {
	Status     Verdict  `json:"status"`
	Categories []string `json:"categories"` // matched category names, in configured order
	Keywords   []string `json:"keywords"`   // distinct matched keywords, in order of appearance
	EmojiCount int      `json:"emoji_count"`
}

// Flagged returns true if any suspicious category matched.
func (b BioAnalysis) Flagged() bool { return len(b.Categories) > 0 }

// FaceResult describes face detection on a profile picture.
type FaceResult struct {
	Verdict     Verdict `json:"verdict"` // positive means a face was found
	Count       int     `json:"count"`
	LikelyPhoto bool    `json:"likely_photo"` // exactly one face
}

// AIResult describes the generated-image heuristic.
type AIResult struct {
	Verdict Verdict `json:"verdict"`
	Reason  string  `json:"reason,omitempty"`
}

// StockResult describes the reverse image lookup.
type StockResult struct {
	Verdict Verdict `json:"verdict"`
	Source  string  `json:"source,omitempty"` // stock domain that matched
}

// PictureAnalysis is the combined result of profile picture analysis.
// Status is unavailable when nothing could be analyzed, negative when the
// picture carries no risk, and positive when CredibilityRisk is above zero.
//
//nolint:govet // fieldalignment: intentional layout for readability
type PictureAnalysis struct {
	Status          Verdict     `json:"status"`
	URL             string      `json:"url,omitempty"`
	Face            FaceResult  `json:"face"`
	AI              AIResult    `json:"ai"`
	Stock           StockResult `json:"stock"`
	Hash            uint64      `json:"hash,omitempty"`
	CredibilityRisk int         `json:"credibility_risk"` // 0-10
	RedFlags        []string    `json:"red_flags,omitempty"`
	Error           string      `json:"error,omitempty"`
}

// IsAI returns true if the picture was analyzed and looks generated.
func (p *PictureAnalysis) IsAI() bool {
	return p != nil && p.AI.Verdict == VerdictPositive
}

// Analyzed returns true if the analysis carries a usable result. A risk or red
// flag counts as a result even when the producer left Status unset.
func (p *PictureAnalysis) Analyzed() bool {
	if p == nil {
		return false
	}
	return p.Status.Available() || p.CredibilityRisk > 0 || len(p.RedFlags) > 0
}

// Record is a fetched, enriched social media profile.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Record struct {
	// Metadata
	Platform      string `json:"platform,omitempty"`
	URL           string `json:"url,omitempty"`
	Authenticated bool   `json:"authenticated,omitempty"`

	// Core profile data
	Username   string    `json:"username"`
	Name       string    `json:"name,omitempty"`
	Bio        string    `json:"bio"`
	Followers  int       `json:"followers"`
	Following  int       `json:"following"`
	PictureURL string    `json:"picture_url,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitzero"`

	// Enrichment
	BioAnalysis     BioAnalysis      `json:"bio_analysis"`
	PictureAnalysis *PictureAnalysis `json:"picture_analysis,omitempty"` // nil means not analyzed
}

// Normalize clamps negative counts to zero.
func (r Record) Normalize() Record {
	r.Followers = max(r.Followers, 0)
	r.Following = max(r.Following, 0)
	return r
}
