package engine

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scoring strategy selectors for Config.Scoring.
const (
	ScoringLexical  = "lexical"
	ScoringSemantic = "semantic"
)

// Config holds everything a pipeline needs, threaded explicitly into New.
// There is no ambient package-level configuration state.
type Config struct {
	// Selection knobs.
	TargetCount  int           `yaml:"target_count"`
	WindowWidth  time.Duration `yaml:"window_width"`
	WindowStride time.Duration `yaml:"window_stride"`
	MinGap       time.Duration `yaml:"min_gap"`
	MinScore     float64       `yaml:"min_score"`
	Workers      int           `yaml:"workers"`

	// Scoring. Keywords accept an optional "term=weight" suffix.
	Scoring          string   `yaml:"scoring"`
	Keywords         []string `yaml:"keywords"`
	FallbackKeywords []string `yaml:"fallback_keywords"`

	// Acquisition.
	StrategyTimeout time.Duration `yaml:"strategy_timeout"`
	Languages       []string      `yaml:"languages"`

	// Injected collaborators.
	Store      Store                                                  `yaml:"-"`
	Strategies []Strategy                                             `yaml:"-"`
	SemanticFn func(text string) float64                              `yaml:"-"`
	Summarizer func(ctx context.Context, text string) (string, error) `yaml:"-"`
	HTTPClient *http.Client                                           `yaml:"-"`
}

// DefaultConfig returns a Config with working selection defaults. The
// fallback keyword set is the deterministic common-word last resort used
// when the configured keywords match nowhere in a transcript.
func DefaultConfig() Config {
	return Config{
		TargetCount:      4,
		WindowWidth:      45 * time.Second,
		WindowStride:     15 * time.Second,
		MinGap:           30 * time.Second,
		Workers:          4,
		Scoring:          ScoringLexical,
		FallbackKeywords: []string{"the", "and", "you", "to", "a", "is", "it", "in", "for", "on"},
		StrategyTimeout:  30 * time.Second,
		Languages:        []string{"en", "en-US", "en-GB"},
	}
}

// LoadConfig reads YAML overrides from path on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// UnmarshalYAML decodes the file representation, accepting "45s" style
// duration strings. Absent keys keep whatever the receiver already holds,
// so unmarshalling over DefaultConfig yields an overlay.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		TargetCount      *int     `yaml:"target_count"`
		WindowWidth      *string  `yaml:"window_width"`
		WindowStride     *string  `yaml:"window_stride"`
		MinGap           *string  `yaml:"min_gap"`
		MinScore         *float64 `yaml:"min_score"`
		Workers          *int     `yaml:"workers"`
		Scoring          *string  `yaml:"scoring"`
		Keywords         []string `yaml:"keywords"`
		FallbackKeywords []string `yaml:"fallback_keywords"`
		StrategyTimeout  *string  `yaml:"strategy_timeout"`
		Languages        []string `yaml:"languages"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	setDur := func(dst *time.Duration, src *string, field string) error {
		if src == nil {
			return nil
		}
		d, err := time.ParseDuration(*src)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		*dst = d
		return nil
	}

	if raw.TargetCount != nil {
		c.TargetCount = *raw.TargetCount
	}
	if err := setDur(&c.WindowWidth, raw.WindowWidth, "window_width"); err != nil {
		return err
	}
	if err := setDur(&c.WindowStride, raw.WindowStride, "window_stride"); err != nil {
		return err
	}
	if err := setDur(&c.MinGap, raw.MinGap, "min_gap"); err != nil {
		return err
	}
	if raw.MinScore != nil {
		c.MinScore = *raw.MinScore
	}
	if raw.Workers != nil {
		c.Workers = *raw.Workers
	}
	if raw.Scoring != nil {
		c.Scoring = *raw.Scoring
	}
	if raw.Keywords != nil {
		c.Keywords = raw.Keywords
	}
	if raw.FallbackKeywords != nil {
		c.FallbackKeywords = raw.FallbackKeywords
	}
	if err := setDur(&c.StrategyTimeout, raw.StrategyTimeout, "strategy_timeout"); err != nil {
		return err
	}
	if raw.Languages != nil {
		c.Languages = raw.Languages
	}
	return nil
}

// Validate checks the invariants the selector and chain rely on.
func (c *Config) Validate() error {
	if c.TargetCount < 1 {
		return fmt.Errorf("target_count must be >= 1, got %d", c.TargetCount)
	}
	if c.WindowWidth <= 0 {
		return fmt.Errorf("window_width must be positive, got %s", c.WindowWidth)
	}
	if c.WindowStride <= 0 || c.WindowStride > c.WindowWidth {
		return fmt.Errorf("window_stride must be in (0, window_width], got %s", c.WindowStride)
	}
	if c.MinGap < 0 {
		return fmt.Errorf("min_gap must be non-negative, got %s", c.MinGap)
	}
	if c.MinScore < 0 {
		return fmt.Errorf("min_score must be non-negative, got %g", c.MinScore)
	}
	switch c.Scoring {
	case ScoringLexical:
	case ScoringSemantic:
		if c.SemanticFn == nil {
			return fmt.Errorf("scoring %q requires a semantic function", c.Scoring)
		}
	default:
		return fmt.Errorf("unknown scoring strategy %q", c.Scoring)
	}
	if c.StrategyTimeout <= 0 {
		return fmt.Errorf("strategy_timeout must be positive, got %s", c.StrategyTimeout)
	}
	return nil
}

// SelectOptions derives the selector parameters from the config.
func (c *Config) SelectOptions() SelectOptions {
	return SelectOptions{
		TargetCount: c.TargetCount,
		WindowWidth: c.WindowWidth,
		Stride:      c.WindowStride,
		MinGap:      c.MinGap,
		MinScore:    c.MinScore,
		Workers:     c.Workers,
	}
}
