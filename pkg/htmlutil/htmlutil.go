// Package htmlutil extracts profile metadata from HTML pages.
package htmlutil

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Meta returns the content attributes of <meta> tags keyed by their name or property,
// lowercased. The first occurrence of each key wins.
func Meta(htmlContent string) map[string]string {
	out := make(map[string]string)
	z := xhtml.NewTokenizer(strings.NewReader(htmlContent))
	for {
		switch z.Next() {
		case xhtml.ErrorToken:
			return out
		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			tok := z.Token()
			if tok.DataAtom == atom.Body {
				return out
			}
			if tok.DataAtom != atom.Meta {
				continue
			}
			var key, content string
			for _, a := range tok.Attr {
				switch strings.ToLower(a.Key) {
				case "name", "property", "itemprop":
					if key == "" {
						key = strings.ToLower(strings.TrimSpace(a.Val))
					}
				case "content":
					content = strings.TrimSpace(a.Val)
				}
			}
			if key == "" || content == "" {
				continue
			}
			if _, seen := out[key]; !seen {
				out[key] = content
			}
		default:
		}
	}
}

// Description extracts the page description, preferring og:description.
func Description(htmlContent string) string {
	m := Meta(htmlContent)
	return first(m, "og:description", "description", "twitter:description")
}

// Image extracts the preview image URL, preferring og:image.
func Image(htmlContent string) string {
	m := Meta(htmlContent)
	return first(m, "og:image", "twitter:image", "twitter:image:src")
}

func first(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := m[k]; v != "" {
			return v
		}
	}
	return ""
}

var (
	breakPattern      = regexp.MustCompile(`(?i)<br\s*/?>|</p>`)
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	multiSpacePattern = regexp.MustCompile(`[ \t]+`)
)

// StripTags converts an HTML fragment such as a Mastodon note into plain text.
// Paragraph and line breaks become newlines.
func StripTags(fragment string) string {
	if fragment == "" {
		return ""
	}
	s := breakPattern.ReplaceAllString(fragment, "\n")
	s = tagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = multiSpacePattern.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

var notFoundPatterns = []string{
	"404 not found",
	"page not found",
	"this account doesn't exist",
	"this account doesn’t exist",
	"account suspended",
	"this account has been suspended",
	"user not found",
	"profile not found",
	"account not found",
}

// IsNotFound detects "missing" or "suspended" account pages.
func IsNotFound(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range notFoundPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// ParseCount parses display counts such as "1,024", "1.2K", or "3M".
func ParseCount(s string) (int, error) {
	s = strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(s, ",", "")))
	if s == "" {
		return 0, errors.New("empty count")
	}
	mult := 1.0
	switch s[len(s)-1] {
	case 'K':
		mult = 1e3
	case 'M':
		mult = 1e6
	case 'B':
		mult = 1e9
	default:
	}
	if mult != 1 {
		s = strings.TrimSpace(s[:len(s)-1])
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	return int(f*mult + 0.5), nil
}
