// Package bio scans profile bios for keywords common in spam and scam accounts.
package bio

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/codeGROOVE-dev/credcheck/pkg/profile"
)

// Category is a named group of suspicious keywords expressed as a regular expression.
type Category struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
}

// DefaultCategories returns the built-in keyword groups.
func DefaultCategories() []Category {
	return []Category{
		{Name: "financial", Pattern: `crypto|bitcoin|ether(eum)?|usdt|trading|invest|forex|pump|dump|wallet`},
		{Name: "scammy", Pattern: `giveaway|free|reward|claim|airdrop|limited|offer|bonus`},
		{Name: "fake_engagement", Pattern: `follow|like|retweet|comment|tag|share|dm|direct message`},
		{Name: "urgency", Pattern: `quick|fast|now|today|immediately|hurry|limited time`},
	}
}

type matcher struct {
	re   *regexp.Regexp
	name string
}

// Analyzer matches bios against a fixed set of categories.
// It is safe for concurrent use.
type Analyzer struct {
	matchers []matcher
}

// New compiles the categories. Patterns match case-insensitively and must start at a word boundary.
func New(categories []Category) (*Analyzer, error) {
	a := &Analyzer{}
	for _, c := range categories {
		if c.Name == "" {
			return nil, fmt.Errorf("category with pattern %q has no name", c.Pattern)
		}
		re, err := regexp.Compile(`(?i)\b(?:` + c.Pattern + `)`)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", c.Name, err)
		}
		a.matchers = append(a.matchers, matcher{name: c.Name, re: re})
	}
	return a, nil
}

// Default returns an Analyzer using DefaultCategories.
func Default() *Analyzer {
	a, err := New(DefaultCategories())
	if err != nil {
		panic("bio: default categories: " + err.Error())
	}
	return a
}

// Analyze returns the matched categories and keywords for text.
// An empty bio is a negative result, not an unavailable one.
func (a *Analyzer) Analyze(text string) profile.BioAnalysis {
	res := profile.BioAnalysis{
		Status:     profile.VerdictNegative,
		Categories: []string{},
		Keywords:   []string{},
	}
	if strings.TrimSpace(text) == "" {
		return res
	}

	lower := strings.ToLower(text)
	res.EmojiCount = countSymbols(text)

	type hit struct {
		keyword string
		pos     int
	}
	var hits []hit
	for _, m := range a.matchers {
		locs := m.re.FindAllStringIndex(lower, -1)
		if len(locs) == 0 {
			continue
		}
		res.Categories = append(res.Categories, m.name)
		for _, loc := range locs {
			hits = append(hits, hit{keyword: lower[loc[0]:loc[1]], pos: loc[0]})
		}
	}

	slices.SortStableFunc(hits, func(x, y hit) int { return x.pos - y.pos })
	for _, h := range hits {
		if !slices.Contains(res.Keywords, h.keyword) {
			res.Keywords = append(res.Keywords, h.keyword)
		}
	}

	if len(res.Categories) > 0 {
		res.Status = profile.VerdictPositive
	}
	return res
}

// countSymbols counts characters that are not word characters, whitespace, commas, or periods.
// Emoji, punctuation runs, and decorative symbols all land here.
func countSymbols(s string) int {
	var n int
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
		case r == '_', r == ',', r == '.':
		case unicode.Is(unicode.Mn, r), r == '\u200d', r == '\ufe0f':
			// combining marks and emoji joiners belong to the previous character
		default:
			n++
		}
	}
	return n
}
