package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"folio/internal/database"
	"folio/internal/service"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port            string
	StoreBackend    string
	PostgresURL     string
	BackendURL      string
	APIToken        string
	DisplayCurrency string
	Sync            service.SyncOptions
	RefreshSchedule string
	LogLevel        string
	LogFormat       string
}

// Load reads the environment, after loading .env when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	var errs []error
	durationVar := func(name string, def time.Duration) time.Duration {
		d, err := parseDuration(name, def)
		errs = append(errs, err)
		return d
	}
	intVar := func(name string, def int) int {
		n, err := parseInt(name, def)
		errs = append(errs, err)
		return n
	}

	def := service.DefaultSyncOptions()
	cfg := Config{
		Port:            getEnv("PORT", "8080"),
		StoreBackend:    getEnv("STORE_BACKEND", database.BackendMemory),
		PostgresURL:     os.Getenv("POSTGRES_URL"),
		BackendURL:      getEnv("BACKEND_URL", "http://localhost:8000"),
		APIToken:        os.Getenv("API_TOKEN"),
		DisplayCurrency: strings.ToUpper(getEnv("DISPLAY_CURRENCY", "USD")),
		Sync: service.SyncOptions{
			Timeout:     durationVar("QUOTE_TIMEOUT", def.Timeout),
			Retries:     intVar("QUOTE_RETRIES", def.Retries),
			Backoff:     durationVar("QUOTE_BACKOFF", def.Backoff),
			Concurrency: intVar("QUOTE_CONCURRENCY", def.Concurrency),
		},
		RefreshSchedule: os.Getenv("REFRESH_SCHEDULE"),
		LogLevel:        getEnv("LOG_LEVEL", "debug"),
		LogFormat:       os.Getenv("LOG_FORMAT"),
	}
	if err := errors.Join(errs...); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	backend, arg := database.ParseBackend(c.StoreBackend)
	switch backend {
	case database.BackendMemory:
	case database.BackendHTTP:
		if c.BackendURL == "" {
			return errors.New("STORE_BACKEND=http requires BACKEND_URL")
		}
	case database.BackendPostgres:
		if arg == "" && c.PostgresURL == "" {
			return errors.New("STORE_BACKEND=postgres requires a dsn or POSTGRES_URL")
		}
	case database.BackendSQLite:
		if arg == "" {
			return errors.New("STORE_BACKEND=sqlite requires a path, e.g. sqlite:folio.db")
		}
	default:
		return fmt.Errorf("unsupported store backend %q", backend)
	}
	if c.Sync.Timeout < 0 || c.Sync.Backoff < 0 {
		return errors.New("quote timeout and backoff must not be negative")
	}
	if c.Sync.Retries < 0 || c.Sync.Concurrency < 0 {
		return errors.New("quote retries and concurrency must not be negative")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// StoreDSN returns the data source for SQL backends.
func (c Config) StoreDSN() (backend, dsn string) {
	backend, dsn = database.ParseBackend(c.StoreBackend)
	if backend == database.BackendPostgres && dsn == "" {
		dsn = c.PostgresURL
	}
	return backend, dsn
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)
	if strings.EqualFold(c.LogFormat, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

func getEnv(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func parseInt(name string, def int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: invalid integer %q", name, v)
	}
	return n, nil
}

func parseDuration(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: invalid duration %q", name, v)
	}
	return d, nil
}
