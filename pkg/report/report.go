// Package report renders credibility analysis results as colored text or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"

	"github.com/codeGROOVE-dev/credcheck/pkg/profile"
	"github.com/codeGROOVE-dev/credcheck/pkg/score"
)

// ANSI colors.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[91m"
	colorGreen  = "\033[92m"
	colorYellow = "\033[93m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

const (
	ruleWidth     = 50
	bioPreviewLen = 100
)

// Report is the outcome of analyzing one profile.
//
//nolint:govet // fieldalignment: mirrors the JSON layout
type Report struct {
	Target          string          `json:"target"`
	Record          *profile.Record `json:"profile,omitempty"`
	Score           int             `json:"score"`
	Level           score.Level     `json:"level,omitempty"`
	Explanations    []string        `json:"explanations"`
	Recommendations []string        `json:"recommendations"`
	Error           string          `json:"error,omitempty"`
}

// Failed returns true if the profile could not be analyzed.
func (r *Report) Failed() bool { return r.Error != "" }

// Presenter writes reports to an output stream.
type Presenter interface {
	Present(w io.Writer, reports ...*Report) error
}

// Text renders the human-readable report.
type Text struct {
	NoColor bool
}

// JSON renders reports as indented JSON. A single report is written as an object,
// several as an array.
type JSON struct{}

// New returns the presenter for the requested format.
func New(jsonOutput, noColor bool) Presenter {
	if jsonOutput {
		return JSON{}
	}
	return Text{NoColor: noColor}
}

// Present implements Presenter.
func (JSON) Present(w io.Writer, reports ...*Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	var v any = reports
	if len(reports) == 1 {
		v = reports[0]
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// Present implements Presenter.
func (t Text) Present(w io.Writer, reports ...*Report) error {
	p := &printer{w: w, color: !t.NoColor && isTerminal(w)}
	for i, r := range reports {
		if i > 0 {
			p.line("")
		}
		p.report(r)
	}
	return p.err
}

// isTerminal reports whether w is a terminal that understands ANSI colors.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) && os.Getenv("NO_COLOR") == "" //nolint:gosec // fd fits in int
}

type printer struct {
	w     io.Writer
	err   error
	color bool
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) paint(color, s string) string {
	if !p.color {
		return s
	}
	return color + s + colorReset
}

func (p *printer) report(r *Report) {
	rule := strings.Repeat("=", ruleWidth)
	p.line(rule)

	if r.Record == nil || r.Failed() {
		p.line("%s", p.paint(colorBold, "CREDIBILITY ANALYSIS: "+r.Target))
		p.line(rule)
		p.line("%s", p.paint(colorRed, "Error: "+r.Error))
		p.line(rule)
		return
	}

	rec := r.Record
	p.line("%s", p.paint(colorBold, fmt.Sprintf("%s CREDIBILITY ANALYSIS: @%s", strings.ToUpper(rec.Platform), rec.Username)))
	p.line(rule)

	p.line("")
	p.line("PROFILE OVERVIEW")
	if rec.Name != "" {
		p.line("Name: %s", rec.Name)
	}
	p.line("Bio: %s", bioPreview(rec.Bio))
	p.line("Followers: %s", thousands(rec.Followers))
	p.line("Following: %s", thousands(rec.Following))
	if rec.BioAnalysis.Flagged() {
		p.line("%s", p.paint(colorYellow, "Bio flags: "+strings.Join(rec.BioAnalysis.Categories, ", ")))
	}

	if pa := rec.PictureAnalysis; pa != nil {
		p.line("")
		p.line("PROFILE PICTURE ANALYSIS")
		p.picture(pa)
	}

	p.line("")
	p.line("CREDIBILITY SCORE: %s", p.paint(levelColor(r.Level), fmt.Sprintf("%d/10 (%s)", r.Score, r.Level)))

	p.line("")
	p.line("SCORE BREAKDOWN:")
	for _, e := range r.Explanations {
		if score.IsDeduction(e) {
			p.line("  %s", p.paint(colorRed, "- "+e))
		} else {
			p.line("  %s", p.paint(colorGreen, "+ "+e))
		}
	}

	if len(r.Recommendations) > 0 {
		p.line("")
		p.line("RECOMMENDATIONS TO IMPROVE:")
		for _, s := range r.Recommendations {
			p.line("  * %s", s)
		}
	}
	p.line(rule)
}

func (p *printer) picture(pa *profile.PictureAnalysis) {
	switch {
	case !pa.Analyzed():
		msg := "Picture could not be analyzed"
		if pa.Error != "" {
			msg += ": " + pa.Error
		}
		p.line("%s", p.paint(colorGray, msg))
		return
	case pa.IsAI():
		p.line("%s", p.paint(colorYellow, "WARNING: AI-generated characteristics detected"))
	case pa.Face.Verdict == profile.VerdictPositive:
		p.line("%s", p.paint(colorGreen, "Authentic human face verified"))
	}
	p.line("Picture risk: %d/10", pa.CredibilityRisk)
	if len(pa.RedFlags) > 0 {
		p.line("%s", p.paint(colorRed, "Flags: "+strings.Join(pa.RedFlags, ", ")))
	}
}

func levelColor(l score.Level) string {
	switch l {
	case score.LevelHigh:
		return colorGreen
	case score.LevelMedium:
		return colorYellow
	default:
		return colorRed
	}
}

func bioPreview(bio string) string {
	if bio == "" {
		return "[No bio available]"
	}
	if utf8.RuneCountInString(bio) <= bioPreviewLen {
		return bio
	}
	return string([]rune(bio)[:bioPreviewLen]) + "..."
}

// thousands formats n with comma separators.
func thousands(n int) string {
	s := fmt.Sprint(n)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
