// Package config holds the options structure consumed by the guide pipeline.
// The CLI layer populates it from a YAML file plus flag overrides; the core
// never reads process-global state.
package config

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sdgrab/sd-xmltv/internal/logging"
)

// Defaults mirror the Schedules Direct published limits and the original
// grabber's conventions. The batch caps are service-imposed, not tunables to
// guess at; they are configurable only so a service-side change does not
// require a rebuild.
const (
	DefaultBaseURL            = "https://json.schedulesdirect.org/20141201"
	DefaultDays               = 15
	DefaultOutput             = "xmltv.xml"
	DefaultMaxStationsPerCall = 5000
	DefaultMaxProgramsPerCall = 500
	DefaultConcurrency        = 4
	DefaultRequestsPerSecond  = 5
)

// Config is the single options structure for a guide run.
type Config struct {
	URL          string `yaml:"url"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`      // plain; hashed at Validate
	PasswordSHA1 string `yaml:"password_sha1"` // preferred: pre-hashed
	Country      string `yaml:"country"`
	PostalCode   string `yaml:"postal_code"`
	Lineup       string `yaml:"lineup"`

	// Headers are extra HTTP headers attached to every API call.
	Headers map[string]string `yaml:"headers"`

	Days     int    `yaml:"days"`
	Timezone string `yaml:"timezone"` // IANA name; empty = system local
	Output   string `yaml:"output"`   // "" = build only, no file

	MaxStationsPerCall int     `yaml:"max_stations_per_call"`
	MaxProgramsPerCall int     `yaml:"max_programs_per_call"`
	Concurrency        int     `yaml:"concurrency"`
	RequestsPerSecond  float64 `yaml:"requests_per_second"`

	MetricsAddr string         `yaml:"metrics_addr"`
	Log         logging.Config `yaml:"log"`
}

// Default returns a Config with every tunable at its documented default.
func Default() *Config {
	return &Config{
		URL:                DefaultBaseURL,
		Country:            "USA",
		Days:               DefaultDays,
		Output:             DefaultOutput,
		MaxStationsPerCall: DefaultMaxStationsPerCall,
		MaxProgramsPerCall: DefaultMaxProgramsPerCall,
		Concurrency:        DefaultConcurrency,
		RequestsPerSecond:  DefaultRequestsPerSecond,
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

var sha1Re = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)

// ValidateCredentials normalises the credentials. A plain password is
// converted to its SHA1 hex digest, which is what the token endpoint
// expects; the plain form is discarded.
func (c *Config) ValidateCredentials() error {
	if c.URL == "" {
		c.URL = DefaultBaseURL
	}
	if c.Username == "" {
		return errors.New("config: username is required")
	}
	if c.PasswordSHA1 == "" && c.Password == "" {
		return errors.New("config: password or password_sha1 is required")
	}
	if c.PasswordSHA1 == "" {
		sum := sha1.Sum([]byte(c.Password))
		c.PasswordSHA1 = fmt.Sprintf("%x", sum)
		c.Password = ""
	} else if !sha1Re.MatchString(c.PasswordSHA1) {
		return errors.New("config: password_sha1 must be a 40-char hex SHA1 digest")
	}
	return nil
}

// Validate checks everything a full guide run needs.
func (c *Config) Validate() error {
	if err := c.ValidateCredentials(); err != nil {
		return err
	}
	if c.Lineup == "" {
		return errors.New("config: lineup is required")
	}
	if c.Days <= 0 {
		c.Days = DefaultDays
	}
	if c.MaxStationsPerCall <= 0 {
		c.MaxStationsPerCall = DefaultMaxStationsPerCall
	}
	if c.MaxProgramsPerCall <= 0 {
		c.MaxProgramsPerCall = DefaultMaxProgramsPerCall
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("config: timezone: %w", err)
	}
	return nil
}

// Location resolves the configured timezone, defaulting to the system zone.
// UTC-to-local conversion happens only in the XMLTV builder.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}
