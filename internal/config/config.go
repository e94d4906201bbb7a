// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// DefaultConfigFile is the file created on first run when no --config is given.
const DefaultConfigFile = "config.json"

// EnvPrefix is prepended to every environment override (e.g. SIGNUP_RETRIES).
const EnvPrefix = "SIGNUP"

// Browser backends.
const (
	BackendChrome  = "chrome"
	BackendRod     = "rod"
	BackendFirefox = "firefox"
	BackendStatic  = "static"
)

// Config holds the whole run configuration. It is loaded once and never mutated while
// a batch is running; every component receives it explicitly.
type Config struct {
	AutomationAllowed    bool     `mapstructure:"automation_allowed" json:"automation_allowed"`
	Retries              int      `mapstructure:"retries" json:"retries"`
	RetryDelay           float64  `mapstructure:"retry_delay" json:"retry_delay"`
	FindTimeout          float64  `mapstructure:"find_timeout" json:"find_timeout"`
	SubmitWait           float64  `mapstructure:"submit_wait" json:"submit_wait"`
	ConfirmationKeywords []string `mapstructure:"confirmation_keywords" json:"confirmation_keywords"`
	PopupEmailSelectors  []string `mapstructure:"popup_email_selectors" json:"popup_email_selectors"`
	PopupSubmitSelectors []string `mapstructure:"popup_submit_selectors" json:"popup_submit_selectors"`
	CookieAcceptXPaths   []string `mapstructure:"cookie_accept_xpaths" json:"cookie_accept_xpaths"`
	Headless             bool     `mapstructure:"headless" json:"headless"`

	Browser BrowserConfig `mapstructure:"browser" json:"browser"`
	Paths   PathsConfig   `mapstructure:"paths" json:"paths"`
	Logger  LoggerConfig  `mapstructure:"logger" json:"logger"`
}

// BrowserConfig selects and tunes the automation backend.
type BrowserConfig struct {
	Backend string `mapstructure:"backend" json:"backend"`
	// Binary overrides the browser executable (Chrome/Chromium or Firefox).
	Binary string `mapstructure:"binary" json:"binary"`
	// DriverPath points at geckodriver for the firefox backend.
	DriverPath string `mapstructure:"driver_path" json:"driver_path"`
	DriverPort int    `mapstructure:"driver_port" json:"driver_port"`
	// NavigationTimeout bounds a single page load, in seconds.
	NavigationTimeout float64  `mapstructure:"navigation_timeout" json:"navigation_timeout"`
	Width             int      `mapstructure:"width" json:"width"`
	Height            int      `mapstructure:"height" json:"height"`
	Args              []string `mapstructure:"args" json:"args"`
	UserAgent         string   `mapstructure:"user_agent" json:"user_agent"`
}

// PathsConfig locates the run's input and output files.
type PathsConfig struct {
	Targets    string `mapstructure:"targets" json:"targets"`
	SuccessLog string `mapstructure:"success_log" json:"success_log"`
	FailedLog  string `mapstructure:"failed_log" json:"failed_log"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" json:"level"`
	Format      string      `mapstructure:"format" json:"format"`
	AddSource   bool        `mapstructure:"add_source" json:"add_source"`
	ServiceName string      `mapstructure:"service_name" json:"service_name"`
	LogFile     string      `mapstructure:"log_file" json:"log_file"`
	MaxSize     int         `mapstructure:"max_size" json:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" json:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" json:"max_age"`
	Compress    bool        `mapstructure:"compress" json:"compress"`
	Colors      ColorConfig `mapstructure:"colors" json:"colors"`
}

// ColorConfig defines the color names used for each log level on the console.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" json:"debug"`
	Info   string `mapstructure:"info" json:"info"`
	Warn   string `mapstructure:"warn" json:"warn"`
	Error  string `mapstructure:"error" json:"error"`
	DPanic string `mapstructure:"dpanic" json:"dpanic"`
	Panic  string `mapstructure:"panic" json:"panic"`
	Fatal  string `mapstructure:"fatal" json:"fatal"`
}

// Seconds converts a configured number of seconds into a duration. Negative values
// collapse to zero.
func Seconds(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}

func (c *Config) RetryDelayDuration() time.Duration  { return Seconds(c.RetryDelay) }
func (c *Config) FindTimeoutDuration() time.Duration { return Seconds(c.FindTimeout) }
func (c *Config) SubmitWaitDuration() time.Duration  { return Seconds(c.SubmitWait) }

// NavigationTimeoutDuration falls back to 60s when unset.
func (b BrowserConfig) NavigationTimeoutDuration() time.Duration {
	if b.NavigationTimeout <= 0 {
		return 60 * time.Second
	}
	return Seconds(b.NavigationTimeout)
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Signup behaviour --
	v.SetDefault("automation_allowed", false)
	v.SetDefault("retries", 1)
	v.SetDefault("retry_delay", 6)
	v.SetDefault("find_timeout", 20)
	v.SetDefault("submit_wait", 5)
	v.SetDefault("confirmation_keywords", []string{
		"thank", "success", "subscribed", "confirmed", "welcome", "thank you", "check your email",
	})
	v.SetDefault("popup_email_selectors", []string{
		"input[type='email']", "input[name*='email']", "input[placeholder*='email']",
	})
	v.SetDefault("popup_submit_selectors", []string{
		"button[type='submit']", "input[type='submit']", "button[name*='sub']", "input[name*='sub']",
	})
	v.SetDefault("cookie_accept_xpaths", []string{
		"//button[contains(translate(text(),'ABCDEFGHIJKLMNOPQRSTUVWXYZ','abcdefghijklmnopqrstuvwxyz'),'accept')]",
		"//button[contains(translate(text(),'ABCDEFGHIJKLMNOPQRSTUVWXYZ','abcdefghijklmnopqrstuvwxyz'),'agree')]",
		"//button[contains(translate(text(),'ABCDEFGHIJKLMNOPQRSTUVWXYZ','abcdefghijklmnopqrstuvwxyz'),'ok')]",
	})
	v.SetDefault("headless", false)

	// -- Browser --
	v.SetDefault("browser.backend", BackendChrome)
	v.SetDefault("browser.binary", "")
	v.SetDefault("browser.driver_path", "geckodriver")
	v.SetDefault("browser.driver_port", 4444)
	v.SetDefault("browser.navigation_timeout", 60)
	v.SetDefault("browser.width", 1200)
	v.SetDefault("browser.height", 900)
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.user_agent", "")

	// -- Paths --
	v.SetDefault("paths.targets", "WebsiteList.xlsx")
	v.SetDefault("paths.success_log", "signup_successes.csv")
	v.SetDefault("paths.failed_log", "failed_sites.txt")

	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "signup-cli")
	v.SetDefault("logger.log_file", "signup-cli.log")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")
}

// Prepare points v at the config file (or the default one), installs defaults and
// enables SIGNUP_* environment overrides. It does not read anything.
func Prepare(v *viper.Viper, path string) {
	SetDefaults(v)
	if path == "" {
		path = DefaultConfigFile
	}
	v.SetConfigFile(path)
	v.SetConfigType(configType(path))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// EnsureFile writes the defaults held by v to its config file when that file does not
// exist yet. It reports whether a file was created.
func EnsureFile(v *viper.Viper) (bool, error) {
	path := v.ConfigFileUsed()
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to stat config file %s: %w", path, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("failed to create config directory %s: %w", dir, err)
		}
	}
	if err := v.SafeWriteConfigAs(path); err != nil {
		var exists viper.ConfigFileAlreadyExistsError
		if errors.As(err, &exists) {
			return false, nil
		}
		return false, fmt.Errorf("failed to write default config %s: %w", path, err)
	}
	return true, nil
}

// Load creates the config file with defaults if needed, reads it and returns the
// validated configuration. The viper instance may carry bound flags already.
func Load(v *viper.Viper) (*Config, bool, error) {
	created, err := EnsureFile(v)
	if err != nil {
		return nil, false, err
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, created, fmt.Errorf("error reading config file: %w", err)
	}
	cfg, err := NewConfigFromViper(v)
	if err != nil {
		return nil, created, err
	}
	return cfg, created, nil
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	cfg.Browser.Backend = strings.ToLower(strings.TrimSpace(cfg.Browser.Backend))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.Paths.Targets, &c.Paths.SuccessLog, &c.Paths.FailedLog, &c.Logger.LogFile, &c.Browser.DriverPath, &c.Browser.Binary} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Retries < 0 {
		return fmt.Errorf("retries must be zero or a positive integer")
	}
	if c.RetryDelay < 0 || c.FindTimeout < 0 || c.SubmitWait < 0 {
		return fmt.Errorf("retry_delay, find_timeout and submit_wait must not be negative")
	}
	if len(c.ConfirmationKeywords) == 0 {
		return fmt.Errorf("confirmation_keywords must list at least one keyword")
	}
	switch c.Browser.Backend {
	case BackendChrome, BackendRod, BackendFirefox, BackendStatic:
	default:
		return fmt.Errorf("browser.backend %q is not one of chrome, rod, firefox, static", c.Browser.Backend)
	}
	if c.Browser.Backend == BackendFirefox && c.Browser.DriverPort <= 0 {
		return fmt.Errorf("browser.driver_port must be a positive integer")
	}
	if c.Paths.SuccessLog == "" || c.Paths.FailedLog == "" {
		return fmt.Errorf("paths.success_log and paths.failed_log are required")
	}
	return nil
}

func configType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	default:
		return "json"
	}
}
