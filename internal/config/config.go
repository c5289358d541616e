package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"dashboard-query-service/internal/model"
)

// Config holds application configuration loaded from an optional YAML file and environment variables.
type Config struct {
	HTTPPort           string        `yaml:"httpPort"`
	AppMode            string        `yaml:"appMode"`
	LogLevel           string        `yaml:"logLevel"`
	FiberPrefork       bool          `yaml:"fiberPrefork"`
	ClickHouseAddr     []string      `yaml:"clickhouseAddr"`
	ClickHouseDatabase string        `yaml:"clickhouseDatabase"`
	ClickHouseUser     string        `yaml:"clickhouseUser"`
	ClickHousePassword string        `yaml:"clickhousePassword"`
	DBMaxOpenConns     int           `yaml:"dbMaxOpenConns"`
	DBMaxIdleConns     int           `yaml:"dbMaxIdleConns"`
	DBConnMaxLifetime  time.Duration `yaml:"dbConnMaxLifetime"`
	DBDialTimeout      time.Duration `yaml:"dbDialTimeout"`
	WorkerBufferSize   int           `yaml:"workerBufferSize"`
	WorkerBatchSize    int           `yaml:"workerBatchSize"`
	WorkerFlushEvery   time.Duration `yaml:"workerFlushEvery"`
	FutureTolerance    time.Duration `yaml:"futureTolerance"`
	Query              QueryConfig   `yaml:"query"`
}

// QueryConfig tunes timeseries query execution.
type QueryConfig struct {
	Fallback      model.FallbackConfig `yaml:"fallback"`
	RetryAttempts uint                 `yaml:"retryAttempts"`
	RetryDelay    time.Duration        `yaml:"retryDelay"`
	CacheTTL      time.Duration        `yaml:"cacheTTL"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		HTTPPort:           ":8080",
		AppMode:            "dev",
		LogLevel:           "info",
		ClickHouseAddr:     []string{"localhost:9000"},
		ClickHouseDatabase: "default",
		ClickHouseUser:     "default",
		DBMaxOpenConns:     20,
		DBMaxIdleConns:     5,
		DBConnMaxLifetime:  30 * time.Minute,
		DBDialTimeout:      5 * time.Second,
		WorkerBufferSize:   10000,
		WorkerBatchSize:    1000,
		WorkerFlushEvery:   time.Second,
		FutureTolerance:    5 * time.Minute,
		Query: QueryConfig{
			Fallback: model.FallbackConfig{
				EnableEmptyRangeFallback: true,
				WindowSeconds:            []int{86400, 604800, 2592000},
				MaxRangeSeconds:          86400 * 31,
			},
			RetryAttempts: 3,
			RetryDelay:    200 * time.Millisecond,
			CacheTTL:      30 * time.Second,
		},
	}
}

// Load reads configuration in the order: defaults < CONFIG_FILE (YAML) < environment.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config file: %w", err)
		}
		defer f.Close()
		if err := cfg.decode(f); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode overlays YAML from r onto cfg. An empty document is not an error.
func (cfg *Config) decode(r io.Reader) error {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("can't decode config: %w", err)
	}
	return nil
}

func (cfg *Config) applyEnv() error {
	var result *multierror.Error

	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.AppMode = strings.ToLower(getEnv("APP_MODE", cfg.AppMode))
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", cfg.LogLevel))
	cfg.FiberPrefork = parseBoolEnv("FIBER_PREFORK", cfg.FiberPrefork)
	if addr := os.Getenv("CLICKHOUSE_ADDR"); addr != "" {
		cfg.ClickHouseAddr = splitList(addr)
	}
	cfg.ClickHouseDatabase = getEnv("CLICKHOUSE_DATABASE", cfg.ClickHouseDatabase)
	cfg.ClickHouseUser = getEnv("CLICKHOUSE_USER", cfg.ClickHouseUser)
	cfg.ClickHousePassword = getEnv("CLICKHOUSE_PASSWORD", cfg.ClickHousePassword)
	cfg.DBMaxOpenConns = parseIntEnv("DB_MAX_OPEN_CONNS", cfg.DBMaxOpenConns)
	cfg.DBMaxIdleConns = parseIntEnv("DB_MAX_IDLE_CONNS", cfg.DBMaxIdleConns)
	cfg.DBConnMaxLifetime = parseDurationEnv("DB_CONN_MAX_LIFETIME", cfg.DBConnMaxLifetime)
	cfg.DBDialTimeout = parseDurationEnv("DB_DIAL_TIMEOUT", cfg.DBDialTimeout)
	cfg.WorkerBufferSize = parseIntEnv("WORKER_BUFFER_SIZE", cfg.WorkerBufferSize)
	cfg.WorkerBatchSize = parseIntEnv("WORKER_BATCH_SIZE", cfg.WorkerBatchSize)
	cfg.WorkerFlushEvery = parseDurationEnv("WORKER_FLUSH_EVERY", cfg.WorkerFlushEvery)
	cfg.FutureTolerance = parseDurationEnv("FUTURE_TOLERANCE", cfg.FutureTolerance)

	q := &cfg.Query
	q.Fallback.EnableEmptyRangeFallback = parseBoolEnv("FALLBACK_ENABLED", q.Fallback.EnableEmptyRangeFallback)
	if raw := os.Getenv("FALLBACK_WINDOW_SECONDS"); raw != "" {
		windows, err := parseIntList(raw)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("FALLBACK_WINDOW_SECONDS: %w", err))
		} else {
			q.Fallback.WindowSeconds = windows
		}
	}
	q.Fallback.MaxRangeSeconds = parseIntEnv("FALLBACK_MAX_RANGE_SECONDS", q.Fallback.MaxRangeSeconds)
	if attempts := parseIntEnv("QUERY_RETRY_ATTEMPTS", int(q.RetryAttempts)); attempts < 1 {
		result = multierror.Append(result, fmt.Errorf("QUERY_RETRY_ATTEMPTS: must be at least 1, got %d", attempts))
	} else {
		q.RetryAttempts = uint(attempts)
	}
	q.RetryDelay = parseDurationEnv("QUERY_RETRY_DELAY", q.RetryDelay)
	q.CacheTTL = parseDurationEnv("QUERY_CACHE_TTL", q.CacheTTL)

	return result.ErrorOrNil()
}

// Validate reports every invalid setting at once.
func (cfg *Config) Validate() error {
	var result *multierror.Error

	if cfg.HTTPPort == "" {
		result = multierror.Append(result, fmt.Errorf("http port is required"))
	}
	if len(cfg.ClickHouseAddr) == 0 {
		result = multierror.Append(result, fmt.Errorf("clickhouse address is required"))
	}
	if cfg.WorkerBufferSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("worker buffer size must be positive"))
	}
	if cfg.WorkerBatchSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("worker batch size must be positive"))
	}
	if cfg.WorkerFlushEvery <= 0 {
		result = multierror.Append(result, fmt.Errorf("worker flush interval must be positive"))
	}
	for _, seconds := range cfg.Query.Fallback.WindowSeconds {
		if seconds <= 0 {
			result = multierror.Append(result, fmt.Errorf("fallback window %d must be positive", seconds))
		}
	}
	if cfg.Query.Fallback.MaxRangeSeconds < 0 {
		result = multierror.Append(result, fmt.Errorf("fallback max range must not be negative"))
	}
	if cfg.Query.RetryAttempts < 1 {
		result = multierror.Append(result, fmt.Errorf("query retry attempts must be at least 1"))
	}

	return result.ErrorOrNil()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseBoolEnv(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseIntEnv(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseDurationEnv(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseIntList(raw string) ([]int, error) {
	parts := splitList(raw)
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", part)
		}
		out = append(out, v)
	}
	return out, nil
}
