package auth

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all" // Import all browser cookie stores
	"github.com/browserutils/kooky/browser/firefox"
)

// platformDomains maps platform names to their cookie domains.
var platformDomains = map[string]string{
	"twitter": "x.com",
}

// platformEssentialCookies maps platform names to the cookies a session needs.
var platformEssentialCookies = map[string][]string{
	"twitter": {"auth_token", "ct0", "kdt", "twid", "att"},
}

// firefoxProfileGlobs lists Firefox-family profile directories kooky does not auto-detect.
var firefoxProfileGlobs = []string{
	filepath.Join("Library", "Application Support", "zen", "Profiles", "*", "cookies.sqlite"),
	filepath.Join("Library", "Application Support", "Firefox", "Profiles", "*", "cookies.sqlite"),
	filepath.Join(".zen", "*", "cookies.sqlite"),
	filepath.Join(".mozilla", "firefox", "*", "cookies.sqlite"),
}

// BrowserSource reads cookies from local browser cookie stores.
type BrowserSource struct {
	logger *slog.Logger
	home   string
}

// NewBrowserSource creates a new browser cookie source.
func NewBrowserSource(logger *slog.Logger) *BrowserSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &BrowserSource{logger: logger, home: os.Getenv("HOME")}
}

// Cookies returns cookies for the given platform from browser stores.
// Unreadable stores are logged and skipped; they never fail the lookup.
func (s *BrowserSource) Cookies(ctx context.Context, platform string) (map[string]string, error) {
	domain, ok := platformDomains[platform]
	if !ok {
		return nil, nil //nolint:nilnil // no cookies for unknown platform is not an error
	}

	s.logger.DebugContext(ctx, "reading browser cookies", "platform", platform, "domain", domain)

	if cookies := s.tryFirefoxProfiles(ctx, domain, platform); len(cookies) > 0 {
		return cookies, nil
	}

	kookies, err := kooky.ReadCookies(ctx, kooky.Valid, kooky.DomainHasSuffix(domain))
	if err != nil {
		s.logger.Debug("failed to read browser cookies", "platform", platform, "error", err)
		return nil, nil //nolint:nilnil // failed browser read is not a fatal error
	}
	if len(kookies) == 0 {
		return nil, nil //nolint:nilnil // no browser cookies is not an error
	}

	return s.filterEssentialCookies(kookies, platform), nil
}

func (s *BrowserSource) tryFirefoxProfiles(ctx context.Context, domain, platform string) map[string]string {
	if s.home == "" {
		return nil
	}

	for _, g := range firefoxProfileGlobs {
		matches, err := filepath.Glob(filepath.Join(s.home, g))
		if err != nil {
			continue
		}
		for _, f := range matches {
			kookies, err := firefox.ReadCookies(ctx, f, kooky.Valid, kooky.DomainHasSuffix(domain))
			if err != nil {
				s.logger.Debug("failed to read firefox cookies", "profile", filepath.Base(filepath.Dir(f)), "error", err)
				continue
			}
			if len(kookies) > 0 {
				s.logger.Debug("found firefox cookies",
					"profile", filepath.Base(filepath.Dir(f)),
					"platform", platform,
					"count", len(kookies))
				return s.filterEssentialCookies(kookies, platform)
			}
		}
	}
	return nil
}

// filterEssentialCookies keeps only the cookies a platform session needs.
func (s *BrowserSource) filterEssentialCookies(kookies []*kooky.Cookie, platform string) map[string]string {
	cookies := make(map[string]string)
	essential, ok := platformEssentialCookies[platform]
	if !ok {
		for _, c := range kookies {
			cookies[c.Name] = c.Value
		}
		return cookies
	}

	want := make(map[string]bool, len(essential))
	for _, name := range essential {
		want[name] = true
	}
	for _, c := range kookies {
		if want[c.Name] {
			cookies[c.Name] = c.Value
		}
	}

	var missing []string
	for _, name := range essential {
		if _, ok := cookies[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		s.logger.Info("browser cookies missing", "platform", platform, "keys", missing)
	}

	return cookies
}
