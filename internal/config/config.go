// Package config loads application settings from the environment.
//
// A .env file in the working directory, or the file named by CONFIG_FILE, is read first.
// Variables already set in the environment take precedence over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"

	"station-climatology/internal/presentation"
	"station-climatology/pkg/database"
	"station-climatology/pkg/logging"
)

// Store backends
const (
	BackendSQL   = "sql"
	BackendFiles = "files"
)

// Config is the complete application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Store    StoreConfig
	Logging  LoggingConfig
	Display  DisplayConfig
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig configures the SQL backend
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// StoreConfig selects where catalog and series are read from
type StoreConfig struct {
	Backend         string
	CatalogPath     string
	QualityPath     string
	SeriesPattern   string
	Separator       string
	MaxParallel     int
	CacheTTL        time.Duration
	SeriesCacheSize int
	ReloadInterval  time.Duration
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// DisplayConfig configures presentation strings
type DisplayConfig struct {
	Locale string
}

// LoadConfig reads the configuration from the environment
func LoadConfig() (*Config, error) {
	envFile := os.Getenv("CONFIG_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
	}

	p := &parser{}
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            p.int("SERVER_PORT", 8080),
			ReadTimeout:     p.duration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    p.duration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:     p.duration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: p.duration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", database.DriverPostgres),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            p.int("DB_PORT", 5432),
			User:            getEnv("DB_USER", "climatology"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "climatology"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			Path:            getEnv("DB_PATH", "climatology.db"),
			MaxOpenConns:    p.int("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    p.int("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: p.duration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: p.duration("DB_CONN_MAX_IDLE_TIME", time.Minute),
		},
		Store: StoreConfig{
			Backend:         getEnv("STORE_BACKEND", BackendFiles),
			CatalogPath:     getEnv("STORE_CATALOG_PATH", "data/catalog.csv"),
			QualityPath:     getEnv("STORE_QUALITY_PATH", "data/quality.csv"),
			SeriesPattern:   getEnv("STORE_SERIES_PATTERN", "data/series_part_*.csv"),
			Separator:       getEnv("STORE_SEPARATOR", ""),
			MaxParallel:     p.int("STORE_MAX_PARALLEL", 4),
			CacheTTL:        p.duration("STORE_CACHE_TTL", 10*time.Minute),
			SeriesCacheSize: p.int("STORE_SERIES_CACHE_SIZE", 256),
			ReloadInterval:  p.duration("STORE_RELOAD_INTERVAL", 0),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  p.int("LOG_MAX_SIZE_MB", 100),
			MaxBackups: p.int("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: p.int("LOG_MAX_AGE_DAYS", 28),
		},
		Display: DisplayConfig{
			Locale: getEnv("DISPLAY_LOCALE", string(presentation.LocaleEN)),
		},
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks value ranges and enumerations
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT %d out of range", c.Server.Port))
	}

	switch c.Database.Driver {
	case database.DriverPostgres:
		if c.Database.Host == "" || c.Database.Database == "" {
			errs = append(errs, errors.New("DB_HOST and DB_NAME are required for postgres"))
		}
	case database.DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, errors.New("DB_PATH is required for sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be %q or %q, got %q",
			database.DriverPostgres, database.DriverSQLite, c.Database.Driver))
	}

	switch c.Store.Backend {
	case BackendSQL:
	case BackendFiles:
		if c.Store.CatalogPath == "" || c.Store.QualityPath == "" || c.Store.SeriesPattern == "" {
			errs = append(errs, errors.New("STORE_CATALOG_PATH, STORE_QUALITY_PATH and STORE_SERIES_PATTERN are required for the files backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendSQL, BackendFiles, c.Store.Backend))
	}

	if _, err := c.Store.SeparatorRune(); err != nil {
		errs = append(errs, err)
	}
	if c.Store.CacheTTL < 0 || c.Store.ReloadInterval < 0 {
		errs = append(errs, errors.New("STORE_CACHE_TTL and STORE_RELOAD_INTERVAL must not be negative"))
	}
	if c.Store.SeriesCacheSize < 0 {
		errs = append(errs, errors.New("STORE_SERIES_CACHE_SIZE must not be negative"))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error", "fatal":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q is not a known level", c.Logging.Level))
	}

	if _, err := presentation.ParseLocale(c.Display.Locale); err != nil {
		errs = append(errs, fmt.Errorf("DISPLAY_LOCALE: %w", err))
	}

	return errors.Join(errs...)
}

// SeparatorRune returns the configured CSV separator; an empty value means auto-detect (0)
func (s *StoreConfig) SeparatorRune() (rune, error) {
	switch {
	case s.Separator == "":
		return 0, nil
	case s.Separator == `\t` || s.Separator == "tab":
		return '\t', nil
	case utf8.RuneCountInString(s.Separator) == 1:
		r, _ := utf8.DecodeRuneInString(s.Separator)
		return r, nil
	default:
		return 0, fmt.Errorf("STORE_SEPARATOR %q must be a single character", s.Separator)
	}
}

// DBConfig converts the database section to a pkg/database configuration
func (c *Config) DBConfig() *database.Config {
	return &database.Config{
		Driver:          c.Database.Driver,
		Host:            c.Database.Host,
		Port:            c.Database.Port,
		User:            c.Database.User,
		Password:        c.Database.Password,
		Database:        c.Database.Database,
		SSLMode:         c.Database.SSLMode,
		Path:            c.Database.Path,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
		ConnMaxIdleTime: c.Database.ConnMaxIdleTime,
	}
}

// LogLevel returns the parsed logging level
func (c *Config) LogLevel() logging.LogLevel {
	return logging.ParseLevel(c.Logging.Level)
}

// Locale returns the parsed display locale, English when invalid
func (c *Config) Locale() presentation.Locale {
	loc, err := presentation.ParseLocale(c.Display.Locale)
	if err != nil {
		return presentation.LocaleEN
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parser collects conversion errors so every malformed variable is reported at once
type parser struct {
	errs []error
}

func (p *parser) int(key string, defaultValue int) int {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", key, value))
		return defaultValue
	}
	return intValue
}

func (p *parser) duration(key string, defaultValue time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid duration %q", key, value))
		return defaultValue
	}
	return d
}
