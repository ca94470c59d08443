// Package config defines the top-level configuration for the polydata tool
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/cyoung/polydata/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by POLYDATA_* environment
// variables.
type Config struct {
	Polymarket PolymarketConfig `toml:"polymarket"`
	Extract    ExtractConfig    `toml:"extract"`
	Cache      CacheConfig      `toml:"cache"`
	Archive    ArchiveConfig    `toml:"archive"`
	Export     ExportConfig     `toml:"export"`
	LogLevel   string           `toml:"log_level"`
	LogFormat  string           `toml:"log_format"`
}

// PolymarketConfig holds API endpoints and HTTP client tuning.
type PolymarketConfig struct {
	ClobHost   string   `toml:"clob_host"`
	GammaHost  string   `toml:"gamma_host"`
	DataHost   string   `toml:"data_host"`
	Timeout    duration `toml:"timeout"`
	MaxRetries int      `toml:"max_retries"`
	RetryDelay duration `toml:"retry_delay"`
	UserAgent  string   `toml:"user_agent"`
}

// ExtractConfig holds extraction run parameters.
type ExtractConfig struct {
	Interval      string   `toml:"interval"`
	DaysBack      int      `toml:"days_back"`
	MarketDelay   duration `toml:"market_delay"`
	MaxNarrowings int      `toml:"max_narrowings"`
	ReleaseMemory bool     `toml:"release_memory"`
}

// CacheConfig holds resolution cache parameters. The cache is optional;
// when disabled every lookup goes straight to the APIs.
type CacheConfig struct {
	Enabled bool        `toml:"enabled"`
	TTL     duration    `toml:"ttl"`
	Redis   RedisConfig `toml:"redis"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ArchiveConfig holds run-archive parameters. The archive is optional.
type ArchiveConfig struct {
	Enabled       bool           `toml:"enabled"`
	RunMigrations bool           `toml:"run_migrations"`
	Postgres      PostgresConfig `toml:"postgres"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN          string `toml:"dsn"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Database     string `toml:"database"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	SSLMode      string `toml:"ssl_mode"`
	PoolMaxConns int    `toml:"pool_max_conns"`
	PoolMinConns int    `toml:"pool_min_conns"`
}

// ExportConfig holds artifact output parameters.
type ExportConfig struct {
	Dir    string   `toml:"dir"`
	Format string   `toml:"format"`
	Upload bool     `toml:"upload"`
	Prefix string   `toml:"prefix"`
	S3     S3Config `toml:"s3"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// duration wraps time.Duration so TOML files can use "30s" / "5m" strings.
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with sensible defaults for the public
// Polymarket endpoints and a conservative extraction profile.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			ClobHost:   "https://clob.polymarket.com",
			GammaHost:  "https://gamma-api.polymarket.com",
			DataHost:   "https://data-api.polymarket.com",
			Timeout:    duration{30 * time.Second},
			MaxRetries: 3,
			RetryDelay: duration{time.Second},
			UserAgent:  "polydata/1.0",
		},
		Extract: ExtractConfig{
			Interval:      string(domain.IntervalMax),
			DaysBack:      30,
			MarketDelay:   duration{500 * time.Millisecond},
			MaxNarrowings: 3,
		},
		Cache: CacheConfig{
			TTL: duration{5 * time.Minute},
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 10,
			},
		},
		Archive: ArchiveConfig{
			RunMigrations: true,
			Postgres: PostgresConfig{
				Host:         "localhost",
				Port:         5432,
				Database:     "polydata",
				SSLMode:      "disable",
				PoolMaxConns: 4,
			},
		},
		Export: ExportConfig{
			Dir:    ".",
			Format: "csv",
			Prefix: "exports",
			S3: S3Config{
				Region: "us-east-1",
			},
		},
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// Validate checks the configuration for inconsistencies that would surface
// as confusing runtime failures.
func (c *Config) Validate() error {
	var problems []string

	if c.Polymarket.ClobHost == "" {
		problems = append(problems, "polymarket.clob_host is required")
	}
	if c.Polymarket.GammaHost == "" {
		problems = append(problems, "polymarket.gamma_host is required")
	}
	if c.Polymarket.MaxRetries < 0 {
		problems = append(problems, "polymarket.max_retries must not be negative")
	}
	if c.Polymarket.Timeout.Duration < 0 {
		problems = append(problems, "polymarket.timeout must not be negative")
	}

	if _, err := domain.ParseInterval(c.Extract.Interval); err != nil {
		problems = append(problems, fmt.Sprintf("extract.interval: %v", err))
	}
	if c.Extract.DaysBack <= 0 {
		problems = append(problems, "extract.days_back must be positive")
	}
	if c.Extract.MaxNarrowings < 0 {
		problems = append(problems, "extract.max_narrowings must not be negative")
	}

	if c.Cache.Enabled && c.Cache.Redis.Addr == "" {
		problems = append(problems, "cache.redis.addr is required when cache.enabled")
	}

	if c.Archive.Enabled {
		pg := c.Archive.Postgres
		if pg.DSN == "" && (pg.Host == "" || pg.Database == "" || pg.User == "") {
			problems = append(problems, "archive.postgres needs a dsn or host/database/user when archive.enabled")
		}
	}

	switch c.Export.Format {
	case "csv", "json":
	default:
		problems = append(problems, fmt.Sprintf("export.format %q must be csv or json", c.Export.Format))
	}
	if c.Export.Upload {
		s3 := c.Export.S3
		if s3.Bucket == "" || s3.AccessKey == "" || s3.SecretKey == "" {
			problems = append(problems, "export.s3 needs bucket/access_key/secret_key when export.upload")
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log_level %q must be debug, info, warn or error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		problems = append(problems, fmt.Sprintf("log_format %q must be json or text", c.LogFormat))
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}
