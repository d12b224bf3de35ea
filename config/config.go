package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// CaptureMode selects which capture operation runs.
type CaptureMode string

const (
	ModeFull   CaptureMode = "full"
	ModeClient CaptureMode = "client"
)

// ParseCaptureMode accepts "full" or "client", case-insensitively.
func ParseCaptureMode(s string) (CaptureMode, error) {
	switch m := CaptureMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeFull, ModeClient:
		return m, nil
	default:
		return "", fmt.Errorf("capture mode %q: want full or client", s)
	}
}

// Config holds runtime configuration for window lookup and capture.
// Fields may be loaded from a JSON or YAML file and overridden by environment
// variables and command-line flags.
type Config struct {
	Debug bool `json:"debug" yaml:"debug" mapstructure:"debug"`

	// Lookup
	IncludeHidden       bool `json:"include_hidden" yaml:"include_hidden" mapstructure:"include_hidden"`
	CaseSensitiveTitles bool `json:"case_sensitive_titles" yaml:"case_sensitive_titles" mapstructure:"case_sensitive_titles"`

	// Capture
	CaptureMode          CaptureMode `json:"capture_mode" yaml:"capture_mode" mapstructure:"capture_mode"`
	RestoreOriginalState bool        `json:"restore_original_state" yaml:"restore_original_state" mapstructure:"restore_original_state"`
	RestoreSettleMS      int         `json:"restore_settle_ms" yaml:"restore_settle_ms" mapstructure:"restore_settle_ms"`
	CloakWhileRestored   bool        `json:"cloak_while_restored" yaml:"cloak_while_restored" mapstructure:"cloak_while_restored"`
	RestoreForeground    bool        `json:"restore_foreground" yaml:"restore_foreground" mapstructure:"restore_foreground"`
}

const (
	defaultSettleMS = 100
	maxSettleMS     = 5000
)

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:                false,
		IncludeHidden:        false,
		CaseSensitiveTitles:  true,
		CaptureMode:          ModeClient,
		RestoreOriginalState: true,
		RestoreSettleMS:      defaultSettleMS,
		CloakWhileRestored:   false,
		RestoreForeground:    true,
	}
}

// Validate normalizes values to safe ranges. It only fails on a capture mode
// that cannot be interpreted.
func (c *Config) Validate() error {
	if c.RestoreSettleMS < 0 {
		c.RestoreSettleMS = 0
	}
	if c.RestoreSettleMS > maxSettleMS {
		c.RestoreSettleMS = maxSettleMS
	}
	if c.CaptureMode == "" {
		c.CaptureMode = ModeClient
	}
	m, err := ParseCaptureMode(string(c.CaptureMode))
	if err != nil {
		return err
	}
	c.CaptureMode = m
	return nil
}

// SettleDelay is RestoreSettleMS as a duration.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.RestoreSettleMS) * time.Millisecond
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load attempts to read configuration from path. YAML is used for .yaml/.yml
// files, JSON otherwise. If the file does not exist it returns DefaultConfig().
// On decode error it returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()
	if isYAML(path) {
		err = yaml.NewDecoder(f).Decode(cfg)
	} else {
		err = json.NewDecoder(f).Decode(cfg)
	}
	if err != nil {
		return DefaultConfig(), fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path, as YAML or JSON by extension.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if isYAML(path) {
		enc := yaml.NewEncoder(f)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
