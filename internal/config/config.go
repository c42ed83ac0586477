// Package config turns viper settings into a validated Config.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/franz/media-ranker/internal/catalog"
	"github.com/franz/media-ranker/internal/util"
	"github.com/spf13/viper"
)

// Default values
const (
	DefaultMaxDepth         = 4
	DefaultCompareThreshold = 5.0
	DefaultMaskThreshold    = 10.0
	DefaultK0               = 2.0
	DefaultEventsDir        = "artifacts"
	DefaultDebounce         = 2 * time.Second
)

// DefaultSkipDirs are folder names never descended into
var DefaultSkipDirs = []string{"delete", "keep"}

// Config is the resolved configuration of one invocation
type Config struct {
	Root             string
	MaxDepth         int
	SkipDirs         []string
	Extensions       []string
	CompareThreshold float64 // minimum quantile for comparison eligibility
	MaskThreshold    float64 // listings hide items below this quantile
	K0               float64
	EventsDir        string
	Debounce         time.Duration
	Verbose          bool
	Quiet            bool
}

// SetDefaults registers the defaults on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("max_depth", DefaultMaxDepth)
	v.SetDefault("skip_dirs", DefaultSkipDirs)
	v.SetDefault("extensions", catalog.DefaultExtensions())
	v.SetDefault("compare_threshold", DefaultCompareThreshold)
	v.SetDefault("mask_threshold", DefaultMaskThreshold)
	v.SetDefault("k0", DefaultK0)
	v.SetDefault("events_dir", DefaultEventsDir)
	v.SetDefault("debounce", DefaultDebounce.String())
}

// Load builds a Config from v. Invalid values wrap util.ErrInvalidConfig.
func Load(v *viper.Viper) (*Config, error) {
	debounce, err := time.ParseDuration(v.GetString("debounce"))
	if err != nil {
		return nil, fmt.Errorf("%w: debounce %q: %v", util.ErrInvalidConfig, v.GetString("debounce"), err)
	}

	cfg := &Config{
		Root:             v.GetString("root"),
		MaxDepth:         v.GetInt("max_depth"),
		SkipDirs:         v.GetStringSlice("skip_dirs"),
		Extensions:       normalizeExtensions(v.GetStringSlice("extensions")),
		CompareThreshold: v.GetFloat64("compare_threshold"),
		MaskThreshold:    v.GetFloat64("mask_threshold"),
		K0:               v.GetFloat64("k0"),
		EventsDir:        v.GetString("events_dir"),
		Debounce:         debounce,
		Verbose:          v.GetBool("verbose"),
		Quiet:            v.GetBool("quiet"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges; it does not touch the disk
func (c *Config) Validate() error {
	switch {
	case c.MaxDepth < 0:
		return fmt.Errorf("%w: max_depth must be >= 0, got %d", util.ErrInvalidConfig, c.MaxDepth)
	case len(c.Extensions) == 0:
		return fmt.Errorf("%w: extensions must not be empty", util.ErrInvalidConfig)
	case c.CompareThreshold < 0 || c.CompareThreshold >= 100:
		return fmt.Errorf("%w: compare_threshold must be in [0, 100), got %g", util.ErrInvalidConfig, c.CompareThreshold)
	case c.MaskThreshold < 0 || c.MaskThreshold >= 100:
		return fmt.Errorf("%w: mask_threshold must be in [0, 100), got %g", util.ErrInvalidConfig, c.MaskThreshold)
	case c.K0 <= 0:
		return fmt.Errorf("%w: k0 must be positive, got %g", util.ErrInvalidConfig, c.K0)
	case c.Debounce <= 0:
		return fmt.Errorf("%w: debounce must be positive, got %v", util.ErrInvalidConfig, c.Debounce)
	}
	return nil
}

// RequireRoot checks that a root was configured and is a directory
func (c *Config) RequireRoot() error {
	if c.Root == "" {
		return fmt.Errorf("%w: root directory is required (use --root/-r, MRANK_ROOT or set it in config)", util.ErrInvalidConfig)
	}
	info, err := os.Stat(c.Root)
	if err != nil {
		return fmt.Errorf("root directory %s: %w", c.Root, util.ErrNotFound)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: root %s is not a directory", util.ErrInvalidConfig, c.Root)
	}
	return nil
}

// ScanOptions returns the catalog options for this configuration
func (c *Config) ScanOptions() catalog.Options {
	return catalog.Options{
		MaxDepth:   c.MaxDepth,
		SkipDirs:   c.SkipDirs,
		Extensions: c.Extensions,
	}
}

// normalizeExtensions lower-cases entries and adds a missing leading dot
func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}
