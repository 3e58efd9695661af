package calcforge

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration surface. Every field is optional;
// zero values fall back to the engine defaults.
type Config struct {
	// CommentMarker is the reserved prefix for comment lines.
	CommentMarker string `yaml:"commentMarker"`

	// ReferenceFPS is the frame rate for timecode-aware min/max/mean.
	ReferenceFPS float64 `yaml:"referenceFps"`

	// DebounceMillis is the edit-collapse interval in milliseconds.
	DebounceMillis int `yaml:"debounceMillis"`

	Currency CurrencyConfig `yaml:"currency"`
}

// CurrencyConfig configures the currency-conversion path.
type CurrencyConfig struct {
	// Endpoint is the live-rate URL (printf format, %s = base code).
	Endpoint string `yaml:"endpoint"`

	// TimeoutSeconds bounds each live-rate request.
	TimeoutSeconds int `yaml:"timeoutSeconds"`

	// Rates overrides the static fallback table (units per USD).
	Rates map[string]float64 `yaml:"rates"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// Options converts the config into calculator options, skipping unset
// fields.
func (c *Config) Options() []Option {
	var opts []Option
	if c.CommentMarker != "" {
		opts = append(opts, WithCommentMarker(c.CommentMarker))
	}
	if c.ReferenceFPS > 0 {
		opts = append(opts, WithReferenceFPS(c.ReferenceFPS))
	}
	if c.DebounceMillis > 0 {
		opts = append(opts, WithDebounce(time.Duration(c.DebounceMillis)*time.Millisecond))
	}
	if c.Currency.Endpoint != "" {
		opts = append(opts, WithCurrencyEndpoint(c.Currency.Endpoint))
	}
	if c.Currency.TimeoutSeconds > 0 {
		opts = append(opts, WithCurrencyTimeout(time.Duration(c.Currency.TimeoutSeconds)*time.Second))
	}
	if len(c.Currency.Rates) > 0 {
		opts = append(opts, WithStaticRates(c.Currency.Rates))
	}
	return opts
}
