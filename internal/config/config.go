// Package config loads client settings. Values are layered, later sources
// overriding earlier ones:
//
//  1. built-in defaults;
//  2. a YAML file given by --config or PAYSYNC_CONFIG;
//  3. environment variables PAYSYNC_* (a .env file is loaded first, without
//     overriding variables that are already set);
//  4. command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
)

// EnvPrefix prefix of every environment variable read by Load
const EnvPrefix = "PAYSYNC_"

// Config настройки клиента
type Config struct {
	ServerURL      string `yaml:"server_url"`      // адрес сервера
	DBPath         string `yaml:"db_path"`         // путь к локальной базе
	Backend        string `yaml:"backend"`         // bolt или sqlite
	LogLevel       string `yaml:"log_level"`       // debug, info, warn, error
	Passphrase     string `yaml:"-"`               // только из окружения или файла
	PassphraseFile string `yaml:"passphrase_file"` // файл с фразой для шифрования токенов

	SyncInterval        time.Duration `yaml:"sync_interval"`
	OnlineCheckInterval time.Duration `yaml:"online_check_interval"`
	RequestTimeout      time.Duration `yaml:"request_timeout"`
	BaseDelay           time.Duration `yaml:"base_delay"`
	MaxDelay            time.Duration `yaml:"max_delay"`

	Multiplier float64 `yaml:"multiplier"`
	RateLimit  float64 `yaml:"rate_limit"` // запросов в секунду, 0 - без ограничения
	MaxRetries int     `yaml:"max_retries"`
	RateBurst  int     `yaml:"rate_burst"`
	Jitter     bool    `yaml:"jitter"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		ServerURL:           "http://localhost:8080",
		DBPath:              "paysync.db",
		Backend:             BackendBolt,
		LogLevel:            "info",
		SyncInterval:        30 * time.Second,
		OnlineCheckInterval: 10 * time.Second,
		RequestTimeout:      30 * time.Second,
		BaseDelay:           time.Second,
		MaxDelay:            30 * time.Second,
		Multiplier:          2,
		MaxRetries:          5,
		RateBurst:           1,
		Jitter:              true,
	}
}

// Load builds the configuration from args (without the program name) and
// the process environment. It returns the positional arguments left after
// flag parsing.
func Load(args []string) (*Config, []string, error) {
	// Первый проход: только пути к файлам конфигурации
	var configPath, envFile string
	pre := pflag.NewFlagSet("paysync", pflag.ContinueOnError)
	pre.ParseErrorsAllowlist.UnknownFlags = true
	pre.Usage = func() {}
	pre.SetOutput(io.Discard)
	pre.SetInterspersed(false)
	pre.StringVar(&configPath, "config", "", "")
	pre.StringVar(&envFile, "env-file", "", "")
	pre.BoolP("help", "h", false, "")
	_ = pre.Parse(args)

	if err := loadDotEnv(envFile); err != nil {
		return nil, nil, err
	}
	if configPath == "" {
		configPath = os.Getenv(EnvPrefix + "CONFIG")
	}

	cfg := Default()
	if configPath != "" {
		if err := cfg.LoadFile(configPath); err != nil {
			return nil, nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, nil, err
	}

	// Второй проход: флаги поверх файла и окружения
	fs := cfg.FlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	if cfg.Passphrase == "" && cfg.PassphraseFile != "" {
		data, err := os.ReadFile(cfg.PassphraseFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read passphrase file: %w", err)
		}
		cfg.Passphrase = strings.TrimRight(string(data), "\r\n")
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return &cfg, fs.Args(), nil
}

// LoadFile reads YAML settings from path over the current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides settings from PAYSYNC_* environment variables.
func (c *Config) ApplyEnv() error {
	var errs []error

	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	float := func(name string, dst *float64) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	str("SERVER_URL", &c.ServerURL)
	str("DB_PATH", &c.DBPath)
	str("BACKEND", &c.Backend)
	str("LOG_LEVEL", &c.LogLevel)
	str("PASSPHRASE", &c.Passphrase)
	str("PASSPHRASE_FILE", &c.PassphraseFile)
	dur("SYNC_INTERVAL", &c.SyncInterval)
	dur("ONLINE_CHECK_INTERVAL", &c.OnlineCheckInterval)
	dur("REQUEST_TIMEOUT", &c.RequestTimeout)
	dur("BASE_DELAY", &c.BaseDelay)
	dur("MAX_DELAY", &c.MaxDelay)
	float("MULTIPLIER", &c.Multiplier)
	float("RATE_LIMIT", &c.RateLimit)
	integer("MAX_RETRIES", &c.MaxRetries)
	integer("RATE_BURST", &c.RateBurst)
	boolean("JITTER", &c.Jitter)

	return errors.Join(errs...)
}

// FlagSet returns the command-line flags bound to c. Each flag defaults to
// the current value, so an absent flag leaves the setting unchanged.
func (c *Config) FlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("paysync", pflag.ContinueOnError)
	fs.SetInterspersed(false)

	fs.String("config", "", "Path to YAML config file (env PAYSYNC_CONFIG)")
	fs.String("env-file", "", "Path to .env file (default .env if present)")
	fs.StringVar(&c.ServerURL, "server", c.ServerURL, "Server URL")
	fs.StringVar(&c.DBPath, "db", c.DBPath, "Path to local database")
	fs.StringVar(&c.Backend, "backend", c.Backend, "Storage backend: bolt or sqlite")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&c.PassphraseFile, "passphrase-file", c.PassphraseFile, "File with the passphrase sealing stored tokens")
	fs.DurationVar(&c.SyncInterval, "sync-interval", c.SyncInterval, "Background sync period")
	fs.DurationVar(&c.OnlineCheckInterval, "online-check-interval", c.OnlineCheckInterval, "Health check period")
	fs.DurationVar(&c.RequestTimeout, "request-timeout", c.RequestTimeout, "HTTP request timeout")
	fs.DurationVar(&c.BaseDelay, "base-delay", c.BaseDelay, "First retry delay")
	fs.DurationVar(&c.MaxDelay, "max-delay", c.MaxDelay, "Retry delay cap")
	fs.Float64Var(&c.Multiplier, "multiplier", c.Multiplier, "Retry delay multiplier")
	fs.Float64Var(&c.RateLimit, "rate-limit", c.RateLimit, "Requests per second, 0 disables pacing")
	fs.IntVar(&c.RateBurst, "rate-burst", c.RateBurst, "Request burst size")
	fs.IntVar(&c.MaxRetries, "max-retries", c.MaxRetries, "Attempts before an entry is marked failed")
	fs.BoolVar(&c.Jitter, "jitter", c.Jitter, "Randomize retry delays by ±25%")
	return fs
}

// Validate checks that the settings are usable.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("server_url must be an http(s) URL, got %q", c.ServerURL))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if c.Backend != BackendBolt && c.Backend != BackendSQLite {
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"sync_interval", c.SyncInterval},
		{"online_check_interval", c.OnlineCheckInterval},
		{"request_timeout", c.RequestTimeout},
		{"base_delay", c.BaseDelay},
		{"max_delay", c.MaxDelay},
	} {
		if d.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", d.name))
		}
	}
	if c.MaxDelay > 0 && c.MaxDelay < c.BaseDelay {
		errs = append(errs, errors.New("max_delay must not be less than base_delay"))
	}
	if c.Multiplier < 1 {
		errs = append(errs, errors.New("multiplier must be at least 1"))
	}
	if c.MaxRetries < 1 {
		errs = append(errs, errors.New("max_retries must be at least 1"))
	}
	if c.RateLimit < 0 {
		errs = append(errs, errors.New("rate_limit must not be negative"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return level, nil
}

// loadDotEnv загружает переменные из .env; отсутствие файла по умолчанию не ошибка
func loadDotEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}

	err := godotenv.Load(path)
	if err == nil || (!explicit && errors.Is(err, os.ErrNotExist)) {
		return nil
	}
	return fmt.Errorf("failed to load env file %s: %w", path, err)
}
