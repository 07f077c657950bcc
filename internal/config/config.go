// Package config defines the arbwatch configuration and its validation.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBWATCH_* environment variables.
type Config struct {
	Mode               string           `toml:"mode"`
	LogLevel           string           `toml:"log_level"`
	SettlementCurrency string           `toml:"settlement_currency"`
	PlatformA          PlatformConfig   `toml:"platform_a"`
	PlatformB          PlatformConfig   `toml:"platform_b"`
	Markets            []MarketConfig   `toml:"markets"`
	Polymarket         PolymarketConfig `toml:"polymarket"`
	Kalshi             KalshiConfig     `toml:"kalshi"`
	Mock               MockConfig       `toml:"mock"`
	FXRate             FXRateConfig     `toml:"fxrate"`
	Monitor            MonitorConfig    `toml:"monitor"`
	Postgres           PostgresConfig   `toml:"postgres"`
	Redis              RedisConfig      `toml:"redis"`
	S3                 S3Config         `toml:"s3"`
	Server             ServerConfig     `toml:"server"`
	Notify             NotifyConfig     `toml:"notify"`
}

// PlatformConfig selects the orderbook source for one side of every pair.
type PlatformConfig struct {
	// Kind is one of polymarket, kalshi or mock.
	Kind string `toml:"kind"`
	// Name overrides the label used in opportunities. Defaults to Kind.
	Name string `toml:"name"`
	// Currency overrides the venue's quote currency (mock only).
	Currency string `toml:"currency"`
}

// Label is the name opportunities carry for this platform.
func (p PlatformConfig) Label() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Kind
}

// MarketConfig pairs the same question on both platforms.
type MarketConfig struct {
	ID          string `toml:"id"`
	Title       string `toml:"title"`
	InstrumentA string `toml:"instrument_a"`
	InstrumentB string `toml:"instrument_b"`
}

// PolymarketConfig holds the CLOB endpoint.
type PolymarketConfig struct {
	ClobHost string   `toml:"clob_host"`
	Timeout  duration `toml:"timeout"`
}

// KalshiConfig holds Kalshi exchange API credentials. Without a key the
// public orderbook endpoint is called unsigned.
type KalshiConfig struct {
	BaseURL           string   `toml:"base_url"`
	APIKey            string   `toml:"api_key"`
	RSAPrivateKeyPath string   `toml:"rsa_private_key_path"`
	Timeout           duration `toml:"timeout"`
}

// MockConfig configures the fixture-backed source. An empty path uses the
// embedded fixtures.
type MockConfig struct {
	FixturesPath string `toml:"fixtures_path"`
	Currency     string `toml:"currency"`
}

// FXRateConfig configures live exchange rates and their fallbacks.
type FXRateConfig struct {
	BaseURL  string   `toml:"base_url"`
	Timeout  duration `toml:"timeout"`
	CacheTTL duration `toml:"cache_ttl"`
	// Fallback maps "FROM:TO" to the rate used when the live source fails.
	Fallback map[string]float64 `toml:"fallback"`
}

// MonitorConfig controls the scan loop.
type MonitorConfig struct {
	Interval     duration `toml:"interval"`
	Concurrency  int      `toml:"concurrency"`
	MinProfitPct float64  `toml:"min_profit_pct"`
	LockTTL      duration `toml:"lock_ttl"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	BookTTL    duration `toml:"book_ttl"`
}

// S3Config holds S3-compatible object storage parameters for the evaluation
// archive.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	// Enabled starts the API alongside the monitor. Server mode always
	// serves.
	Enabled     bool     `toml:"enabled"`
	Addr        string   `toml:"addr"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Mode:               "monitor",
		LogLevel:           "info",
		SettlementCurrency: "USD",
		PlatformA:          PlatformConfig{Kind: "polymarket"},
		PlatformB:          PlatformConfig{Kind: "kalshi"},
		Polymarket: PolymarketConfig{
			ClobHost: "https://clob.polymarket.com",
			Timeout:  duration{10 * time.Second},
		},
		Kalshi: KalshiConfig{
			BaseURL: "https://api.elections.kalshi.com/trade-api/v2",
			Timeout: duration{10 * time.Second},
		},
		Mock: MockConfig{
			Currency: "INR",
		},
		FXRate: FXRateConfig{
			BaseURL:  "https://open.er-api.com/v6",
			Timeout:  duration{5 * time.Second},
			CacheTTL: duration{time.Hour},
			Fallback: map[string]float64{"INR:USD": 0.012},
		},
		Monitor: MonitorConfig{
			Interval:     duration{30 * time.Second},
			Concurrency:  4,
			MinProfitPct: 1.0,
		},
		Postgres: PostgresConfig{
			Enabled:       true,
			Host:          "localhost",
			Port:          5432,
			Database:      "arbwatch",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    true,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			BookTTL:    duration{2 * time.Minute},
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "arbwatch",
			ForcePathStyle: true,
			Prefix:         "evaluations",
		},
		Server: ServerConfig{
			Enabled:     true,
			Addr:        ":8000",
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"arb_detected", "rate_fallback", "error"},
		},
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":    true,
	"monitor": true,
	"server":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validKinds = map[string]bool{
	"polymarket": true,
	"kalshi":     true,
	"mock":       true,
}

// ServesHTTP reports whether the configured mode starts the API.
func (c *Config) ServesHTTP() bool {
	switch strings.ToLower(c.Mode) {
	case "server":
		return true
	case "monitor":
		return c.Server.Enabled
	default:
		return false
	}
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, monitor, server)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}
	if !isCurrency(c.SettlementCurrency) {
		errs = append(errs, fmt.Sprintf("settlement_currency must be a 3-letter code, got %q", c.SettlementCurrency))
	}

	// Platforms
	for i, p := range []PlatformConfig{c.PlatformA, c.PlatformB} {
		side := [...]string{"platform_a", "platform_b"}[i]
		if !validKinds[p.Kind] {
			errs = append(errs, fmt.Sprintf("%s: unknown kind %q (valid: polymarket, kalshi, mock)", side, p.Kind))
		}
		if p.Currency != "" && !isCurrency(p.Currency) {
			errs = append(errs, fmt.Sprintf("%s: currency must be a 3-letter code, got %q", side, p.Currency))
		}
	}
	if c.PlatformA.Label() == c.PlatformB.Label() {
		errs = append(errs, fmt.Sprintf("platform_a and platform_b share the label %q; set a distinct name", c.PlatformA.Label()))
	}

	// Markets
	if len(c.Markets) == 0 {
		errs = append(errs, "markets: at least one market must be configured")
	}
	seen := make(map[string]bool, len(c.Markets))
	for i, m := range c.Markets {
		if m.ID == "" {
			errs = append(errs, fmt.Sprintf("markets[%d]: id must not be empty", i))
		} else if seen[m.ID] {
			errs = append(errs, fmt.Sprintf("markets[%d]: duplicate id %q", i, m.ID))
		}
		seen[m.ID] = true
		if m.InstrumentA == "" || m.InstrumentB == "" {
			errs = append(errs, fmt.Sprintf("markets[%d]: instrument_a and instrument_b must both be set", i))
		}
	}

	// Venues
	if c.uses("polymarket") && c.Polymarket.ClobHost == "" {
		errs = append(errs, "polymarket: clob_host must not be empty")
	}
	if c.uses("kalshi") {
		if c.Kalshi.BaseURL == "" {
			errs = append(errs, "kalshi: base_url must not be empty")
		}
		if c.Kalshi.RSAPrivateKeyPath != "" && c.Kalshi.APIKey == "" {
			errs = append(errs, "kalshi: api_key is required when rsa_private_key_path is set")
		}
	}

	// FX
	for pair, rate := range c.FXRate.Fallback {
		from, to, ok := strings.Cut(pair, ":")
		if !ok || !isCurrency(from) || !isCurrency(to) {
			errs = append(errs, fmt.Sprintf("fxrate: fallback key %q must look like FROM:TO", pair))
		}
		if rate <= 0 {
			errs = append(errs, fmt.Sprintf("fxrate: fallback %s must be > 0", pair))
		}
	}

	// Monitor
	if c.Monitor.Interval.Duration <= 0 {
		errs = append(errs, "monitor: interval must be > 0")
	}
	if c.Monitor.Concurrency < 1 {
		errs = append(errs, "monitor: concurrency must be >= 1")
	}
	if c.Monitor.MinProfitPct < 0 {
		errs = append(errs, "monitor: min_profit_pct must be >= 0")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled && c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty when enabled")
	}

	// Server
	if c.ServesHTTP() {
		if c.Server.Addr == "" {
			errs = append(errs, "server: addr must not be empty")
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be > 0 when rate_limit is set")
		}
	}

	// Notify
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c *Config) uses(kind string) bool {
	return c.PlatformA.Kind == kind || c.PlatformB.Kind == kind
}

func isCurrency(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}
