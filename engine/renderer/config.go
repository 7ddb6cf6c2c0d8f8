package renderer

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-gpu/engine/renderer/hal"
	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that reads and writes TOML strings such as "5ms".
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Config holds the renderer settings. It is fixed once the renderer is created, except for VSync which can be
// toggled through SetVSync.
type Config struct {
	// Width and Height are the initial surface size used by Open.
	Width  int `toml:"width"`
	Height int `toml:"height"`

	// SampleCount is the MSAA sample count of the on-screen target.
	SampleCount MSAASampleCount `toml:"sample_count"`

	// VSync selects the Fifo present mode when true and Immediate when false.
	VSync bool `toml:"vsync"`

	// GPUTiming enables timestamp queries around render passes.
	GPUTiming bool `toml:"gpu_timing"`

	// Backend is the requested native graphics API.
	Backend hal.BackendType `toml:"backend"`

	PowerPreference      hal.PowerPreference `toml:"power_preference"`
	ForceFallbackAdapter bool                `toml:"force_fallback_adapter"`

	// ReadyRetries bounds the number of event pumps WaitReady performs before giving up.
	ReadyRetries int `toml:"ready_retries"`

	// ReadyPollInterval is the pause between two pumps in WaitReady.
	ReadyPollInterval Duration `toml:"ready_poll_interval"`

	// ImplicitPresent skips the explicit Present call for targets that present on their own, such as browsers.
	ImplicitPresent bool `toml:"implicit_present"`
}

// DefaultConfig returns the configuration used when no options are given.
//
// Returns:
//   - Config: 800x600, 4x MSAA, vsync on, GPU timing off, default backend, and a ready wait of at most 2 seconds
func DefaultConfig() Config {
	return Config{
		Width:             800,
		Height:            600,
		SampleCount:       MSAA4x,
		VSync:             true,
		GPUTiming:         false,
		Backend:           hal.BackendTypeDefault,
		PowerPreference:   hal.PowerPreferenceUndefined,
		ReadyRetries:      400,
		ReadyPollInterval: Duration(5 * time.Millisecond),
	}
}

// Validate checks the configuration for values the renderer cannot work with.
//
// Returns:
//   - error: a joined error describing every invalid field, or nil
func (c Config) Validate() error {
	var errs []error
	if c.Width < 0 || c.Height < 0 {
		errs = append(errs, fmt.Errorf("negative size %dx%d", c.Width, c.Height))
	}
	if !c.SampleCount.Valid() {
		errs = append(errs, fmt.Errorf("unsupported sample count %d", c.SampleCount))
	}
	if c.ReadyRetries < 1 {
		errs = append(errs, fmt.Errorf("ready_retries must be at least 1, got %d", c.ReadyRetries))
	}
	if c.ReadyPollInterval < 0 {
		errs = append(errs, fmt.Errorf("negative ready_poll_interval %s", time.Duration(c.ReadyPollInterval)))
	}
	return errors.Join(errs...)
}

// LoadConfig reads a TOML configuration file on top of DefaultConfig and validates the result.
// Unknown keys are rejected.
//
// Parameters:
//   - path: the path of the TOML file
//
// Returns:
//   - Config: the loaded configuration
//   - error: an error if the file cannot be read, parsed or validated
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read renderer config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes TOML data on top of DefaultConfig and validates the result.
//
// Parameters:
//   - data: the TOML document
//
// Returns:
//   - Config: the decoded configuration
//   - error: an error if the data cannot be parsed or validated
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse renderer config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid renderer config: %w", err)
	}
	return cfg, nil
}

// Marshal encodes the configuration as TOML.
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}
