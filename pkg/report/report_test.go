package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/codeGROOVE-dev/credcheck/pkg/profile"
	"github.com/codeGROOVE-dev/credcheck/pkg/score"
)

func sampleReport() *Report {
	return &Report{
		Target: "@alice",
		Record: &profile.Record{
			Platform:  "twitter",
			Username:  "alice",
			Name:      "Alice",
			Bio:       "Go developer",
			Followers: 12345,
			Following: 120,
			PictureAnalysis: &profile.PictureAnalysis{
				Status:          profile.VerdictPositive,
				Face:            profile.FaceResult{Verdict: profile.VerdictNegative},
				AI:              profile.AIResult{Verdict: profile.VerdictNegative},
				CredibilityRisk: 6,
				RedFlags:        []string{"no human face detected", "stock photo characteristics"},
			},
		},
		Score: 3,
		Level: score.LevelLow,
		Explanations: []string{
			"Deducted 3 points: profile picture risk",
			"Added 2 points: has bio",
		},
		Recommendations: []string{"Expand your bio to 20+ characters for +1 point"},
	}
}

func TestTextPresent(t *testing.T) {
	var buf bytes.Buffer
	if err := (Text{}).Present(&buf, sampleReport()); err != nil {
		t.Fatalf("Present: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"TWITTER CREDIBILITY ANALYSIS: @alice",
		"Bio: Go developer",
		"Followers: 12,345",
		"Following: 120",
		"Picture risk: 6/10",
		"Flags: no human face detected, stock photo characteristics",
		"CREDIBILITY SCORE: 3/10 (Low)",
		"  - Deducted 3 points: profile picture risk",
		"  + Added 2 points: has bio",
		"  * Expand your bio",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("non-terminal output should not contain ANSI escapes")
	}
}

func TestTextPresentError(t *testing.T) {
	var buf bytes.Buffer
	r := &Report{Target: "@ghost", Error: "twitter: profile not found"}
	if err := (Text{}).Present(&buf, r); err != nil {
		t.Fatalf("Present: %v", err)
	}
	if !strings.Contains(buf.String(), "Error: twitter: profile not found") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestTextPresentUnanalyzedPicture(t *testing.T) {
	r := sampleReport()
	r.Record.PictureAnalysis = &profile.PictureAnalysis{Error: "download failed"}
	var buf bytes.Buffer
	if err := (Text{}).Present(&buf, r); err != nil {
		t.Fatalf("Present: %v", err)
	}
	if !strings.Contains(buf.String(), "Picture could not be analyzed: download failed") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestPaint(t *testing.T) {
	p := &printer{color: true}
	if got, want := p.paint(colorRed, "x"), "\033[91mx\033[0m"; got != want {
		t.Errorf("paint = %q, want %q", got, want)
	}
	p.color = false
	if got := p.paint(colorRed, "x"); got != "x" {
		t.Errorf("paint without color = %q", got)
	}
}

func TestJSONPresent(t *testing.T) {
	var buf bytes.Buffer
	if err := (JSON{}).Present(&buf, sampleReport()); err != nil {
		t.Fatalf("Present: %v", err)
	}
	var got Report
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not a single JSON object: %v", err)
	}
	if diff := cmp.Diff(sampleReport(), &got); diff != "" {
		t.Errorf("JSON mismatch (-want +got):\n%s", diff)
	}

	buf.Reset()
	if err := (JSON{}).Present(&buf, sampleReport(), &Report{Target: "x", Error: "boom"}); err != nil {
		t.Fatalf("Present: %v", err)
	}
	var many []Report
	if err := json.Unmarshal(buf.Bytes(), &many); err != nil {
		t.Fatalf("output is not a JSON array: %v", err)
	}
	if len(many) != 2 || many[1].Error != "boom" {
		t.Errorf("batch = %+v", many)
	}
}

func TestThousands(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-4500, "-4,500"},
	}
	for _, tt := range tests {
		if got := thousands(tt.in); got != tt.want {
			t.Errorf("thousands(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBioPreview(t *testing.T) {
	if got := bioPreview(""); got != "[No bio available]" {
		t.Errorf("empty bio = %q", got)
	}
	long := strings.Repeat("é", 150)
	got := bioPreview(long)
	if want := strings.Repeat("é", 100) + "..."; got != want {
		t.Errorf("long bio preview has %d runes", len([]rune(got)))
	}
}

func TestNew(t *testing.T) {
	if _, ok := New(true, false).(JSON); !ok {
		t.Error("New(json) should return the JSON presenter")
	}
	if p, ok := New(false, true).(Text); !ok || !p.NoColor {
		t.Errorf("New(text, noColor) = %#v", p)
	}
}
