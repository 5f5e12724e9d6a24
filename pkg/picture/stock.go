package picture

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/codeGROOVE-dev/credcheck/pkg/httpcache"
	"github.com/codeGROOVE-dev/credcheck/pkg/profile"
)

// DefaultSearchURL is the reverse image search endpoint. %s receives the escaped image URL.
const DefaultSearchURL = "https://www.google.com/searchbyimage?image_url=%s"

// DefaultStockDomains are stock photo sites whose presence in search results marks a stock image.
var DefaultStockDomains = []string{
	"shutterstock",
	"gettyimages",
	"istockphoto",
	"adobestock",
	"stock.adobe.com",
	"depositphotos",
	"dreamstime",
	"123rf",
	"alamy",
}

// StockChecker looks a picture up through a reverse image search page.
type StockChecker struct {
	client    *httpcache.Client
	logger    *slog.Logger
	searchURL string
	domains   []string
}

// NewStockChecker creates a StockChecker. An empty searchURL or domain list uses the defaults.
func NewStockChecker(client *httpcache.Client, searchURL string, domains []string, logger *slog.Logger) *StockChecker {
	if searchURL == "" {
		searchURL = DefaultSearchURL
	}
	if len(domains) == 0 {
		domains = DefaultStockDomains
	}
	if logger == nil {
		logger = slog.Default()
	}
	lower := make([]string, len(domains))
	for i, d := range domains {
		lower[i] = strings.ToLower(d)
	}
	return &StockChecker{client: client, logger: logger, searchURL: searchURL, domains: lower}
}

// Check fetches the search results for imageURL and reports the first stock domain found.
func (s *StockChecker) Check(ctx context.Context, imageURL string) profile.StockResult {
	searchURL := strings.Replace(s.searchURL, "%s", url.QueryEscape(imageURL), 1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, http.NoBody)
	if err != nil {
		return profile.StockResult{}
	}
	req.Header.Set("User-Agent", httpcache.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	body, err := s.client.Fetch(ctx, req)
	if err != nil {
		s.logger.DebugContext(ctx, "reverse image search failed", "url", imageURL, "error", err)
		return profile.StockResult{}
	}

	page := bytes.ToLower(body)
	for _, d := range s.domains {
		if bytes.Contains(page, []byte(d)) {
			return profile.StockResult{Verdict: profile.VerdictPositive, Source: d}
		}
	}
	return profile.StockResult{Verdict: profile.VerdictNegative}
}
