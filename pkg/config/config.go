// Package config loads credcheck settings from a YAML file layered over defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/codeGROOVE-dev/credcheck/pkg/bio"
	"github.com/codeGROOVE-dev/credcheck/pkg/picture"
	"github.com/codeGROOVE-dev/credcheck/pkg/recommend"
	"github.com/codeGROOVE-dev/credcheck/pkg/score"
)

const (
	fileName = "config.yaml"
	dirMode  = 0o700
	fileMode = 0o600
)

// Config holds every tunable of a credcheck run.
//
//nolint:govet // fieldalignment: grouped to mirror the YAML layout
type Config struct {
	Platform    string `yaml:"platform"`    // platform for bare usernames
	Parallelism int    `yaml:"parallelism"` // profiles analyzed at once in batch mode

	Score         score.Config     `yaml:"score"`
	Recommend     recommend.Config `yaml:"recommend"`
	BioCategories []bio.Category   `yaml:"bio_categories"`
	Picture       Picture          `yaml:"picture"`
	Cache         Cache            `yaml:"cache"`
	Mastodon      Mastodon         `yaml:"mastodon"`
}

// Picture configures profile picture analysis.
type Picture struct {
	Enabled       bool           `yaml:"enabled"`
	FaceCascade   string         `yaml:"face_cascade,omitempty"` // path to a pigo facefinder cascade
	ReverseSearch bool           `yaml:"reverse_search"`
	SearchURL     string         `yaml:"search_url"`
	StockDomains  []string       `yaml:"stock_domains"`
	AIHashes      []string       `yaml:"ai_hashes,omitempty"` // hex dHash values of known generated portraits
	Window        picture.Window `yaml:"window"`
}

// Cache configures the HTTP and analysis cache.
type Cache struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
	Dir     string        `yaml:"dir,omitempty"` // empty means the user cache directory
}

// Mastodon configures the Mastodon fetcher.
type Mastodon struct {
	DefaultInstance string `yaml:"default_instance"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Platform:      "twitter",
		Parallelism:   4,
		Score:         score.DefaultConfig(),
		Recommend:     recommend.DefaultConfig(),
		BioCategories: bio.DefaultCategories(),
		Picture: Picture{
			Enabled:       true,
			ReverseSearch: true,
			SearchURL:     picture.DefaultSearchURL,
			StockDomains:  slices.Clone(picture.DefaultStockDomains),
			Window:        picture.DefaultWindow(),
		},
		Cache: Cache{
			Enabled: true,
			TTL:     24 * time.Hour,
		},
		Mastodon: Mastodon{DefaultInstance: "mastodon.social"},
	}
}

// DefaultPath returns the config file location under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "credcheck", fileName), nil
}

// Load reads the YAML file at path over the defaults. An empty path tries DefaultPath
// and silently falls back to defaults when no file exists there.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil //nolint:nilerr // no config dir means no config file
		}
		path = p
	}

	f, err := os.Open(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	return Parse(f)
}

// Parse decodes YAML from r over the defaults and validates the result.
// Unknown keys are rejected so typos do not silently fall back to defaults.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML to path, creating the parent directory.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config required")
	}
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Platform == "" {
		errs = append(errs, errors.New("platform must not be empty"))
	}
	if c.Parallelism < 1 {
		errs = append(errs, fmt.Errorf("parallelism must be at least 1, got %d", c.Parallelism))
	}
	if err := c.Score.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("score: %w", err))
	}
	if c.Recommend.ShortBioLength < 0 || c.Recommend.MinFollowers < 0 {
		errs = append(errs, errors.New("recommend: thresholds must not be negative"))
	}
	if _, err := bio.New(c.BioCategories); err != nil {
		errs = append(errs, fmt.Errorf("bio_categories: %w", err))
	}
	if _, err := c.Picture.Hashes(); err != nil {
		errs = append(errs, fmt.Errorf("picture: %w", err))
	}
	if c.Picture.SearchURL != "" && !strings.Contains(c.Picture.SearchURL, "%s") {
		errs = append(errs, errors.New("picture: search_url needs a %s placeholder"))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache: ttl must not be negative"))
	}
	return errors.Join(errs...)
}

// Hashes parses AIHashes. Values may carry a "0x" prefix.
func (p Picture) Hashes() ([]uint64, error) {
	out := make([]uint64, 0, len(p.AIHashes))
	for _, h := range p.AIHashes {
		v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(h), "0x"), 16, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ai hash %q: %w", h, err)
		}
		out = append(out, v)
	}
	return out, nil
}
