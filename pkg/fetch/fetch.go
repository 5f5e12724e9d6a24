// Package fetch defines the profile fetcher contract and routes targets to platforms.
package fetch

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/codeGROOVE-dev/credcheck/pkg/profile"
)

// Fetcher retrieves a profile from one platform.
type Fetcher interface {
	// Name is the platform name, such as "twitter".
	Name() string
	// Match reports whether a URL belongs to this platform.
	Match(url string) bool
	// Fetch retrieves the profile for a URL, @handle, or bare username.
	Fetch(ctx context.Context, target string) (*profile.Record, error)
}

// Registry routes targets to fetchers. Build one per run; it is not safe to
// Register concurrently with lookups.
type Registry struct {
	byName   map[string]Fetcher
	fetchers []Fetcher
}

// NewRegistry creates a Registry holding the given fetchers.
func NewRegistry(fetchers ...Fetcher) *Registry {
	r := &Registry{byName: make(map[string]Fetcher)}
	for _, f := range fetchers {
		r.Register(f)
	}
	return r
}

// Register adds a fetcher, replacing any previous one with the same name.
func (r *Registry) Register(f Fetcher) {
	name := strings.ToLower(f.Name())
	if _, ok := r.byName[name]; ok {
		r.fetchers = slices.DeleteFunc(r.fetchers, func(old Fetcher) bool {
			return strings.EqualFold(old.Name(), name)
		})
	}
	r.byName[name] = f
	r.fetchers = append(r.fetchers, f)
}

// Lookup returns the fetcher registered under name.
func (r *Registry) Lookup(name string) (Fetcher, bool) {
	f, ok := r.byName[strings.ToLower(name)]
	return f, ok
}

// Names returns the registered platform names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// IsURL reports whether target looks like a URL rather than a handle.
func IsURL(target string) bool {
	if strings.Contains(target, "://") {
		return true
	}
	// Scheme-less URLs such as "x.com/jack"; handles never contain a slash.
	host, _, found := strings.Cut(target, "/")
	return found && strings.Contains(host, ".")
}

// fediversePlatform receives "@user@instance" handles regardless of the default platform.
const fediversePlatform = "mastodon"

// isFediverseHandle reports whether target is "@user@instance" or "user@instance".
func isFediverseHandle(target string) bool {
	user, host, found := strings.Cut(strings.TrimPrefix(target, "@"), "@")
	return found && user != "" && strings.Contains(host, ".") &&
		!strings.ContainsAny(user, "/ ") && !strings.ContainsAny(host, "@/ ")
}

// Resolve picks the fetcher for target. URLs go to the first fetcher that matches them;
// "@user@instance" handles go to Mastodon; other handles and bare usernames go to
// defaultPlatform. The returned target is trimmed.
func (r *Registry) Resolve(target, defaultPlatform string) (Fetcher, string, error) {
	target = strings.TrimSpace(target)
	if target == "" || target == "@" {
		return nil, "", fmt.Errorf("%w: empty target", profile.ErrInvalidUsername)
	}

	if IsURL(target) {
		if !strings.Contains(target, "://") {
			target = "https://" + target
		}
		for _, f := range r.fetchers {
			if f.Match(target) {
				return f, target, nil
			}
		}
		return nil, "", fmt.Errorf("%w: %s", profile.ErrUnsupportedPlatform, target)
	}

	if isFediverseHandle(target) {
		if f, ok := r.Lookup(fediversePlatform); ok {
			return f, target, nil
		}
	}

	f, ok := r.Lookup(defaultPlatform)
	if !ok {
		return nil, "", fmt.Errorf("%w: %q (known: %s)",
			profile.ErrUnsupportedPlatform, defaultPlatform, strings.Join(r.Names(), ", "))
	}
	return f, target, nil
}

// Fetch resolves target and fetches it. The record's platform is filled in when the
// fetcher left it empty, and negative counts are clamped.
func (r *Registry) Fetch(ctx context.Context, target, defaultPlatform string) (*profile.Record, error) {
	f, resolved, err := r.Resolve(target, defaultPlatform)
	if err != nil {
		return nil, err
	}
	rec, err := f.Fetch(ctx, resolved)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name(), err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%s: %w: %s", f.Name(), profile.ErrProfileNotFound, resolved)
	}
	if rec.Platform == "" {
		rec.Platform = f.Name()
	}
	norm := rec.Normalize()
	return &norm, nil
}
