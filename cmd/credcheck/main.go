// Command credcheck scores the credibility of social media profiles.
//
// Usage:
//
//	credcheck jack                                   # Twitter/X username
//	credcheck --platform bluesky jay.bsky.team
//	credcheck https://mastodon.social/@Gargron https://bsky.app/profile/jay.bsky.team
//	credcheck --json @jack > report.json
//	credcheck config > ~/.config/credcheck/config.yaml
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/codeGROOVE-dev/credcheck/pkg/auth"
	"github.com/codeGROOVE-dev/credcheck/pkg/config"
	"github.com/codeGROOVE-dev/credcheck/pkg/credcheck"
	"github.com/codeGROOVE-dev/credcheck/pkg/httpcache"
	"github.com/codeGROOVE-dev/credcheck/pkg/report"
)

var errAnalysisFailed = errors.New("one or more profiles could not be analyzed")

//nolint:govet // fieldalignment: mirrors the flag list
type flags struct {
	platform        string
	configPath      string
	faceCascade     string
	cacheTTL        time.Duration
	jsonOutput      bool
	noColor         bool
	noCache         bool
	noBrowser       bool
	noReverseSearch bool
	noPicture       bool
	verbose         bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:   "credcheck [username or profile URL...]",
		Short: "Score the credibility of Twitter/X, BlueSky, and Mastodon profiles",
		Long: `credcheck fetches public profile data, analyzes the bio and profile picture,
and prints a 0-10 credibility score with an explanation of every point and
suggestions for improving it.

Targets may be profile URLs, @handles, or bare usernames. Handles and usernames
are looked up on --platform (default: twitter). With no arguments, credcheck
prompts for a username.

Twitter/X cookies are read from TWITTER_AUTH_TOKEN / TWITTER_CT0 or from your
browser. Without them only the public profile page is used.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, args)
		},
	}

	fl := root.Flags()
	fl.StringVarP(&f.platform, "platform", "p", "", "platform for bare usernames: twitter, bluesky, mastodon (default from config)")
	fl.StringVarP(&f.configPath, "config", "c", "", "config file (default: user config dir/credcheck/config.yaml)")
	fl.StringVar(&f.faceCascade, "face-cascade", "", "pigo facefinder cascade file enabling face detection")
	fl.DurationVar(&f.cacheTTL, "cache-ttl", 0, "cache time-to-live (default from config: 24h)")
	fl.BoolVar(&f.jsonOutput, "json", false, "print results as JSON")
	fl.BoolVar(&f.noColor, "no-color", false, "disable colored output")
	fl.BoolVar(&f.noCache, "no-cache", false, "disable the HTTP and analysis cache")
	fl.BoolVar(&f.noBrowser, "no-browser", false, "do not read cookies from browser stores")
	fl.BoolVar(&f.noReverseSearch, "no-reverse-search", false, "skip the reverse image search for stock photos")
	fl.BoolVar(&f.noPicture, "no-picture", false, "skip profile picture analysis")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "verbose logging")

	root.AddCommand(newConfigCmd(), newCookiesCmd())
	return root
}

func newConfigCmd() *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the default configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if write {
				path, err := config.DefaultPath()
				if err != nil {
					return err
				}
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists", path)
				}
				if err := config.Save(path, config.Default()); err != nil {
					return err
				}
				cmd.PrintErrf("wrote %s\n", path)
				return nil
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(config.Default()); err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			return enc.Close()
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the defaults to the user config file instead of printing")
	return cmd
}

type namedSource struct {
	name string
	src  auth.Source
}

func newCookiesCmd() *cobra.Command {
	var noBrowser bool
	cmd := &cobra.Command{
		Use:   "cookies",
		Short: "Show which Twitter/X session cookies are available (names only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sources := []namedSource{{"environment", auth.EnvSource{}}}
			if !noBrowser {
				sources = append(sources, namedSource{"browser", auth.NewBrowserSource(nil)})
			}
			for _, s := range sources {
				cookies, err := s.src.Cookies(cmd.Context(), "twitter")
				if err != nil {
					return fmt.Errorf("%s: %w", s.name, err)
				}
				cmd.Printf("%s: %s\n", s.name, cookieSummary(cookies))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "do not read cookies from browser stores")
	return cmd
}

// cookieSummary lists cookie names without their values.
func cookieSummary(cookies map[string]string) string {
	if len(cookies) == 0 {
		return "none"
	}
	names := make([]string, 0, len(cookies))
	for n := range cookies {
		names = append(names, n)
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}

func run(cmd *cobra.Command, f *flags, args []string) error {
	ctx := cmd.Context()

	level := slog.LevelWarn
	if f.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, f, cfg)

	targets := args
	if len(targets) == 0 {
		t, err := prompt(cmd.InOrStdin(), cmd.ErrOrStderr(), cfg.Platform)
		if err != nil {
			return err
		}
		targets = []string{t}
	}

	opts := []credcheck.Option{credcheck.WithLogger(logger), credcheck.WithConfig(cfg)}
	if !f.noBrowser {
		opts = append(opts, credcheck.WithBrowserCookies())
	}

	if cfg.Cache.Enabled {
		cache, err := openCache(cfg.Cache)
		if err != nil {
			logger.Warn("failed to initialize cache, continuing without cache", "error", err)
		} else {
			defer func() {
				if err := cache.Close(); err != nil {
					logger.Warn("failed to close cache", "error", err)
				}
			}()
			opts = append(opts, credcheck.WithHTTPCache(cache))
			logger.Debug("cache initialized", "ttl", cfg.Cache.TTL.String())
		}
	}

	checker, err := credcheck.New(ctx, opts...)
	if err != nil {
		return err
	}

	reports := checker.AnalyzeAll(ctx, targets)
	if err := report.New(f.jsonOutput, f.noColor).Present(cmd.OutOrStdout(), reports...); err != nil {
		return err
	}
	for _, r := range reports {
		if r.Failed() {
			return errAnalysisFailed
		}
	}
	return nil
}

// applyFlags overrides config values with flags the user set explicitly.
func applyFlags(cmd *cobra.Command, f *flags, cfg *config.Config) {
	fl := cmd.Flags()
	if fl.Changed("platform") {
		cfg.Platform = strings.ToLower(f.platform)
	}
	if fl.Changed("cache-ttl") {
		cfg.Cache.TTL = f.cacheTTL
	}
	if fl.Changed("face-cascade") {
		cfg.Picture.FaceCascade = f.faceCascade
	}
	if f.noCache {
		cfg.Cache.Enabled = false
	}
	if f.noReverseSearch {
		cfg.Picture.ReverseSearch = false
	}
	if f.noPicture {
		cfg.Picture.Enabled = false
	}
}

func openCache(c config.Cache) (*httpcache.Cache, error) {
	if c.Dir != "" {
		return httpcache.NewWithPath(c.TTL, c.Dir)
	}
	return httpcache.New(c.TTL)
}

// prompt asks for a single username on an interactive run.
func prompt(in io.Reader, out io.Writer, platform string) (string, error) {
	fmt.Fprintf(out, "Enter %s username to analyze: ", platform) //nolint:errcheck // best-effort prompt
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read username: %w", err)
	}
	target := strings.TrimSpace(line)
	if target == "" {
		return "", errors.New("no username given")
	}
	return target, nil
}
