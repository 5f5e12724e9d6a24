package htmlutil

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const samplePage = `<!DOCTYPE html><html><head>
<meta charset="utf-8">
<meta name="description" content="Plain description">
<meta property="og:description" content="Builder of things &amp; stuff">
<meta content="https://pbs.twimg.com/profile_images/1/a_400x400.jpg" property="og:image">
<meta name="twitter:image" content="https://example.com/other.jpg">
<meta property="og:description" content="duplicate ignored">
</head><body><meta name="late" content="ignored"></body></html>`

func TestMeta(t *testing.T) {
	got := Meta(samplePage)
	want := map[string]string{
		"description":    "Plain description",
		"og:description": "Builder of things & stuff",
		"og:image":       "https://pbs.twimg.com/profile_images/1/a_400x400.jpg",
		"twitter:image":  "https://example.com/other.jpg",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Meta mismatch (-want +got):\n%s", diff)
	}
}

func TestDescriptionAndImage(t *testing.T) {
	if got, want := Description(samplePage), "Builder of things & stuff"; got != want {
		t.Errorf("Description = %q, want %q", got, want)
	}
	if got, want := Image(samplePage), "https://pbs.twimg.com/profile_images/1/a_400x400.jpg"; got != want {
		t.Errorf("Image = %q, want %q", got, want)
	}
	if got := Description("<html><head></head></html>"); got != "" {
		t.Errorf("Description of empty page = %q", got)
	}
}

func TestStripTags(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"<p>Hello <a href=\"#\">world</a></p>", "Hello world"},
		{"<p>line one<br>line two</p><p>para &amp; more</p>", "line one\nline two\npara & more"},
	}
	for _, tt := range tests {
		if got := StripTags(tt.in); got != tt.want {
			t.Errorf("StripTags(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"<title>Page Not Found</title>", true},
		{"Account suspended. X suspends accounts which violate the rules", true},
		{"Hmm...this account doesn't exist", true},
		{"Software engineer", false},
	}
	for _, tt := range tests {
		if got := IsNotFound(tt.text); got != tt.want {
			t.Errorf("IsNotFound(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"1,024", 1024, false},
		{"1.2K", 1200, false},
		{"15k", 15000, false},
		{"3M", 3000000, false},
		{"2.5 M", 2500000, false},
		{"1B", 1000000000, false},
		{"", 0, true},
		{"K", 0, true},
		{"lots", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCount(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCount(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseCount(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
