package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	App          AppConfig          `toml:"app"`
	Captcha      CaptchaConfig      `toml:"captcha"`
	Browser      BrowserConfig      `toml:"browser"`
	PersonalInfo PersonalInfoConfig `toml:"personal_info"`
	Database     DatabaseConfig     `toml:"database"`
	Server       ServerConfig       `toml:"server"`
}

// AppConfig contains scan loop settings.
type AppConfig struct {
	Interval       int    `toml:"interval"`        // milliseconds between scan cycles
	MaxRetry       int    `toml:"max_retry"`       // polls per solver task before restarting
	HeadersTimeout int    `toml:"headers_timeout"` // milliseconds
	ScanURL        string `toml:"scan_url"`
	AuthToken      string `toml:"auth_token"`
}

// IntervalDuration returns the scan interval, falling back to one minute.
func (a AppConfig) IntervalDuration() time.Duration {
	if a.Interval <= 0 {
		return time.Minute
	}
	return time.Duration(a.Interval) * time.Millisecond
}

// HeadersTimeoutDuration returns the scan request timeout, falling back to ten seconds.
func (a AppConfig) HeadersTimeoutDuration() time.Duration {
	if a.HeadersTimeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(a.HeadersTimeout) * time.Millisecond
}

// CaptchaConfig selects the auth strategy and configures the captcha solving service.
type CaptchaConfig struct {
	Strategy     string  `toml:"strategy"`
	SolverURL    string  `toml:"solver_url"`
	SolverAPIKey string  `toml:"solver_api_key"`
	TaskType     string  `toml:"task_type"`
	WebsiteURL   string  `toml:"website_url"`
	WebsiteKey   string  `toml:"website_key"`
	PageAction   string  `toml:"page_action"`
	RateLimit    float64 `toml:"rate_limit"`
}

// BrowserConfig contains settings for the automated browser login.
type BrowserConfig struct {
	Headless       bool   `toml:"headless"`
	LoginURL       string `toml:"login_url"`
	AuthURLPattern string `toml:"auth_url_pattern"`
	Bin            string `toml:"bin"`
}

// PersonalInfoConfig holds the identity used to fill the scheduler login form.
type PersonalInfoConfig struct {
	FirstName   string `toml:"first_name"`
	LastName    string `toml:"last_name"`
	DOB         string `toml:"dob"`
	LastFourSSN string `toml:"last_four_ssn"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains status web server settings.
type ServerConfig struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, ErrInvalidArgument)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig encodes the config as TOML and writes it to path.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
