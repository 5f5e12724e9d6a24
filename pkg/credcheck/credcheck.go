// Package credcheck runs the full credibility pipeline: fetch, enrich, score, recommend.
//
// Basic usage:
//
//	checker, err := credcheck.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rep, err := checker.Analyze(ctx, "https://bsky.app/profile/jay.bsky.team")
//
// A record fetched elsewhere can be scored without network access:
//
//	rep := checker.Evaluate(profile.Record{Username: "alice", Bio: "...", Followers: 120})
package credcheck

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/codeGROOVE-dev/credcheck/pkg/bio"
	"github.com/codeGROOVE-dev/credcheck/pkg/bluesky"
	"github.com/codeGROOVE-dev/credcheck/pkg/config"
	"github.com/codeGROOVE-dev/credcheck/pkg/fetch"
	"github.com/codeGROOVE-dev/credcheck/pkg/httpcache"
	"github.com/codeGROOVE-dev/credcheck/pkg/mastodon"
	"github.com/codeGROOVE-dev/credcheck/pkg/picture"
	"github.com/codeGROOVE-dev/credcheck/pkg/profile"
	"github.com/codeGROOVE-dev/credcheck/pkg/recommend"
	"github.com/codeGROOVE-dev/credcheck/pkg/report"
	"github.com/codeGROOVE-dev/credcheck/pkg/score"
	"github.com/codeGROOVE-dev/credcheck/pkg/twitter"
)

// PictureAnalyzer analyzes a profile picture by URL. Implementations report failures
// inside the returned analysis rather than as errors.
type PictureAnalyzer interface {
	Analyze(ctx context.Context, imageURL string) *profile.PictureAnalysis
}

// Option configures a Checker.
type Option func(*options)

//nolint:govet // fieldalignment: intentional layout for readability
type options struct {
	cache          httpcache.Cacher
	cookies        map[string]string
	logger         *slog.Logger
	cfg            *config.Config
	fetchers       []fetch.Fetcher
	pictures       PictureAnalyzer
	faces          picture.FaceDetector
	bio            *bio.Analyzer
	limiter        *httpcache.RateLimiter
	browserCookies bool
}

// WithCookies sets explicit Twitter cookie values.
func WithCookies(cookies map[string]string) Option {
	return func(o *options) { o.cookies = cookies }
}

// WithBrowserCookies enables reading Twitter cookies from browser stores.
func WithBrowserCookies() Option {
	return func(o *options) { o.browserCookies = true }
}

// WithHTTPCache sets the cache shared by fetchers and picture analysis.
func WithHTTPCache(cache httpcache.Cacher) Option {
	return func(o *options) { o.cache = cache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithConfig replaces the default configuration.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithFetcher registers an extra fetcher, replacing a built-in one of the same name.
func WithFetcher(f fetch.Fetcher) Option {
	return func(o *options) { o.fetchers = append(o.fetchers, f) }
}

// WithPictureAnalyzer replaces the built-in picture analyzer.
func WithPictureAnalyzer(p PictureAnalyzer) Option {
	return func(o *options) { o.pictures = p }
}

// WithFaceDetector sets the face detector used by the built-in picture analyzer.
// It takes precedence over the configured cascade file.
func WithFaceDetector(d picture.FaceDetector) Option {
	return func(o *options) { o.faces = d }
}

// WithBioAnalyzer replaces the analyzer built from the configured bio categories.
func WithBioAnalyzer(a *bio.Analyzer) Option {
	return func(o *options) { o.bio = a }
}

// WithRateLimiter sets the limiter shared by every outbound request.
func WithRateLimiter(l *httpcache.RateLimiter) Option {
	return func(o *options) { o.limiter = l }
}

// Checker analyzes profiles. It is safe for concurrent use.
type Checker struct {
	registry    *fetch.Registry
	bio         *bio.Analyzer
	pictures    PictureAnalyzer // nil when picture analysis is disabled
	scorer      *score.Scorer
	recommender *recommend.Engine
	logger      *slog.Logger
	platform    string
	parallelism int
}

// New creates a Checker with the built-in Twitter, BlueSky, and Mastodon fetchers.
func New(ctx context.Context, opts ...Option) (*Checker, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.cfg == nil {
		o.cfg = config.Default()
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if o.limiter == nil {
		o.limiter = httpcache.NewRateLimiter(httpcache.DefaultDelay)
	}

	registry, err := buildRegistry(ctx, o)
	if err != nil {
		return nil, err
	}

	bioAnalyzer := o.bio
	if bioAnalyzer == nil {
		if bioAnalyzer, err = bio.New(o.cfg.BioCategories); err != nil {
			return nil, fmt.Errorf("bio analyzer: %w", err)
		}
	}

	pictures := o.pictures
	if pictures == nil && o.cfg.Picture.Enabled {
		if pictures, err = buildPictureAnalyzer(o); err != nil {
			return nil, err
		}
	}

	return &Checker{
		registry:    registry,
		bio:         bioAnalyzer,
		pictures:    pictures,
		scorer:      score.New(o.cfg.Score),
		recommender: recommend.New(o.cfg.Recommend),
		logger:      o.logger,
		platform:    o.cfg.Platform,
		parallelism: o.cfg.Parallelism,
	}, nil
}

func buildRegistry(ctx context.Context, o *options) (*fetch.Registry, error) {
	twOpts := []twitter.Option{
		twitter.WithHTTPCache(o.cache),
		twitter.WithRateLimiter(o.limiter),
		twitter.WithLogger(o.logger),
	}
	if len(o.cookies) > 0 {
		twOpts = append(twOpts, twitter.WithCookies(o.cookies))
	}
	if o.browserCookies {
		twOpts = append(twOpts, twitter.WithBrowserCookies())
	}
	tw, err := twitter.New(ctx, twOpts...)
	if err != nil {
		return nil, fmt.Errorf("twitter client: %w", err)
	}

	bs, err := bluesky.New(ctx,
		bluesky.WithHTTPCache(o.cache),
		bluesky.WithRateLimiter(o.limiter),
		bluesky.WithLogger(o.logger))
	if err != nil {
		return nil, fmt.Errorf("bluesky client: %w", err)
	}

	md, err := mastodon.New(ctx,
		mastodon.WithHTTPCache(o.cache),
		mastodon.WithRateLimiter(o.limiter),
		mastodon.WithLogger(o.logger),
		mastodon.WithDefaultInstance(o.cfg.Mastodon.DefaultInstance))
	if err != nil {
		return nil, fmt.Errorf("mastodon client: %w", err)
	}

	registry := fetch.NewRegistry(tw, bs, md)
	for _, f := range o.fetchers {
		registry.Register(f)
	}
	return registry, nil
}

func buildPictureAnalyzer(o *options) (*picture.Analyzer, error) {
	pc := o.cfg.Picture
	hashes, err := pc.Hashes()
	if err != nil {
		return nil, fmt.Errorf("picture config: %w", err)
	}

	faces := o.faces
	if faces == nil && pc.FaceCascade != "" {
		cascade, err := os.ReadFile(pc.FaceCascade)
		if err != nil {
			return nil, fmt.Errorf("read face cascade: %w", err)
		}
		if faces, err = picture.NewPigoDetector(cascade); err != nil {
			return nil, err
		}
	}

	client := httpcache.NewClient(o.cache,
		httpcache.WithRateLimiter(o.limiter),
		httpcache.WithLogger(o.logger))

	popts := []picture.Option{
		picture.WithLogger(o.logger),
		picture.WithWindow(pc.Window),
		picture.WithKnownAIHashes(hashes),
	}
	if faces != nil {
		popts = append(popts, picture.WithFaceDetector(faces))
	}
	if pc.ReverseSearch {
		popts = append(popts, picture.WithStockChecker(
			picture.NewStockChecker(client, pc.SearchURL, pc.StockDomains, o.logger)))
	}
	return picture.New(client, popts...), nil
}

// Platforms returns the names of the registered fetchers.
func (c *Checker) Platforms() []string { return c.registry.Names() }

// Analyze fetches target and runs every analysis stage on it. Only fetch failures are
// returned as errors; analysis failures degrade to unavailable results.
func (c *Checker) Analyze(ctx context.Context, target string) (*report.Report, error) {
	rec, err := c.registry.Fetch(ctx, target, c.platform)
	if err != nil {
		return nil, err
	}
	c.logger.DebugContext(ctx, "profile fetched",
		"platform", rec.Platform, "username", rec.Username,
		"followers", rec.Followers, "following", rec.Following)

	if c.pictures != nil && rec.PictureURL != "" {
		rec.PictureAnalysis = c.pictures.Analyze(ctx, rec.PictureURL)
	}

	rep := c.Evaluate(*rec)
	rep.Target = target
	c.logger.InfoContext(ctx, "profile scored", "target", target, "score", rep.Score, "level", rep.Level)
	return rep, nil
}

// Evaluate scores an already fetched record. Bio analysis runs unless the record
// already carries an available result. No network access is made.
func (c *Checker) Evaluate(rec profile.Record) *report.Report {
	rec = rec.Normalize()
	if !rec.BioAnalysis.Status.Available() {
		rec.BioAnalysis = c.bio.Analyze(rec.Bio)
	}

	res := c.scorer.Score(rec)
	target := rec.URL
	if target == "" {
		target = rec.Username
	}
	return &report.Report{
		Target:          target,
		Record:          &rec,
		Score:           res.Score,
		Level:           score.LevelOf(res.Score),
		Explanations:    res.Explanations,
		Recommendations: c.recommender.Recommend(rec, res.Score),
	}
}

// AnalyzeAll analyzes targets concurrently, bounded by the configured parallelism.
// Reports come back in input order. A failed target yields a report with Error set
// and never stops the batch.
func (c *Checker) AnalyzeAll(ctx context.Context, targets []string) []*report.Report {
	reports := make([]*report.Report, len(targets))

	var g errgroup.Group
	g.SetLimit(c.parallelism)
	for i, target := range targets {
		g.Go(func() error {
			rep, err := c.Analyze(ctx, target)
			if err != nil {
				c.logger.WarnContext(ctx, "analysis failed", "target", target, "error", err)
				rep = &report.Report{Target: target, Error: err.Error()}
			}
			reports[i] = rep
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers record failures in their reports

	return reports
}
