// Package config holds the YAML configuration of the calendar server and CLI.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warp/calendar-engine/calendar"
	"github.com/warp/calendar-engine/factory"
)

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address of the API server.
	Listen string `yaml:"listen"`

	// Database is the SQLite path for history and profiles.
	Database string `yaml:"database"`

	// Timezone is the zone requests fall back to when they name none.
	// IANA names ("Asia/Seoul"), "UTC" and fixed offsets ("+09:00") work.
	Timezone string `yaml:"timezone"`

	// WeekStart is the default first day of the week ("monday", "sunday", ...).
	WeekStart string `yaml:"week_start"`

	// Strict rejects out-of-range field values instead of rolling them over.
	Strict bool `yaml:"strict"`

	// Rounding is the policy used when a difference request names none.
	Rounding string `yaml:"rounding"`

	// RetentionDays drops history older than this many days. 0 keeps everything.
	RetentionDays int `yaml:"retention_days"`

	// RetentionInterval is how often the pruner runs (Go duration, "1h").
	RetentionInterval string `yaml:"retention_interval"`

	// HistoryLimit caps GET /api/history when the client sends no limit.
	HistoryLimit int `yaml:"history_limit"`

	// CORSOrigins lists allowed browser origins.
	CORSOrigins []string `yaml:"cors_origins"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:            "127.0.0.1:8080",
		Database:          "./data/calendar.db",
		Timezone:          "UTC",
		WeekStart:         "monday",
		Rounding:          "half_up",
		RetentionDays:     30,
		RetentionInterval: "1h",
		HistoryLimit:      100,
		CORSOrigins:       []string{"http://localhost:*"},
	}
}

// Normalize fills in missing values so partially-filled files still work.
// Invalid zone and rounding names are left for Validate to report.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Database == "" {
		c.Database = def.Database
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if _, err := factory.ParseWeekday(c.WeekStart); err != nil {
		c.WeekStart = def.WeekStart
	}
	if c.Rounding == "" {
		c.Rounding = def.Rounding
	}
	if c.RetentionDays < 0 {
		c.RetentionDays = 0
	}
	if c.RetentionInterval == "" {
		c.RetentionInterval = def.RetentionInterval
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = def.HistoryLimit
	}
	if c.CORSOrigins == nil {
		c.CORSOrigins = def.CORSOrigins
	}
}

// Validate reports values that cannot be defaulted away.
func (c *Config) Validate() error {
	if _, err := c.Calendar(); err != nil {
		return err
	}
	if _, err := c.DefaultRounding(); err != nil {
		return err
	}
	if _, err := c.Interval(); err != nil {
		return err
	}
	return nil
}

// Calendar builds the default engine settings.
func (c *Config) Calendar() (calendar.Config, error) {
	loc, err := factory.ParseZone(c.Timezone)
	if err != nil {
		return calendar.Config{}, fmt.Errorf("timezone: %w", err)
	}
	wd, err := factory.ParseWeekday(c.WeekStart)
	if err != nil {
		return calendar.Config{}, fmt.Errorf("week_start: %w", err)
	}
	return calendar.Config{Location: loc, FirstDayOfWeek: wd, Lenient: !c.Strict}, nil
}

// DefaultRounding parses Rounding.
func (c *Config) DefaultRounding() (calendar.Rounding, error) {
	r, err := calendar.ParseRounding(c.Rounding)
	if err != nil {
		return 0, fmt.Errorf("rounding: %w", err)
	}
	return r, nil
}

// Interval parses RetentionInterval.
func (c *Config) Interval() (time.Duration, error) {
	d, err := time.ParseDuration(c.RetentionInterval)
	if err != nil {
		return 0, fmt.Errorf("retention_interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("retention_interval must be positive, got %s", d)
	}
	return d, nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written there (0600)
//     and returned.
//   - Otherwise the YAML is read, normalized and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &cfg, nil
}

// Save writes cfg to path atomically via a temp file and rename.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calendar-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
