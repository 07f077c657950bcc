package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	s3blob "github.com/alanyoungcy/arbwatch/internal/blob/s3"
	"github.com/alanyoungcy/arbwatch/internal/cache/redis"
	"github.com/alanyoungcy/arbwatch/internal/config"
	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/fxrate"
	"github.com/alanyoungcy/arbwatch/internal/notify"
	"github.com/alanyoungcy/arbwatch/internal/platform/kalshi"
	"github.com/alanyoungcy/arbwatch/internal/platform/mock"
	"github.com/alanyoungcy/arbwatch/internal/platform/polymarket"
	"github.com/alanyoungcy/arbwatch/internal/server/handler"
	"github.com/alanyoungcy/arbwatch/internal/service"
	"github.com/alanyoungcy/arbwatch/internal/store/postgres"
)

// Dependencies bundles every concrete collaborator the modes need. Optional
// infrastructure is nil when the mode or configuration leaves it out.
type Dependencies struct {
	// Sources
	SourceA service.OrderbookSource
	SourceB service.OrderbookSource
	Rates   service.RateFetcher

	// Stores
	OpportunityStore domain.OpportunityStore
	AuditStore       domain.AuditStore

	// Caches
	BookCache   domain.OrderbookCache
	RateCache   domain.RateCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Blob storage
	Archiver domain.Archiver

	// Notifications
	Notifier *notify.Notifier

	// Checks are reported by GET /api/health.
	Checks map[string]handler.Pinger
}

// needsInfra reports whether mode persists or serves results. Scan is a
// read-only pass that must run without any backing service.
func needsInfra(mode string) bool {
	switch strings.ToLower(mode) {
	case "monitor", "server":
		return true
	default:
		return false
	}
}

// needsS3 returns true when evaluations are archived.
func needsS3(cfg *config.Config) bool {
	return cfg.S3.Enabled && strings.EqualFold(cfg.Mode, "monitor")
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{Checks: map[string]handler.Pinger{}}

	// --- Orderbook and rate sources ---
	var err error
	if deps.SourceA, err = buildSource(cfg, cfg.PlatformA); err != nil {
		return fail(fmt.Errorf("wire: platform_a: %w", err))
	}
	if deps.SourceB, err = buildSource(cfg, cfg.PlatformB); err != nil {
		return fail(fmt.Errorf("wire: platform_b: %w", err))
	}
	if cfg.FXRate.BaseURL != "" {
		deps.Rates = fxrate.NewClient(cfg.FXRate.BaseURL, cfg.FXRate.Timeout.Duration)
	}

	// --- PostgreSQL ---
	if needsInfra(cfg.Mode) && cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}

		deps.OpportunityStore = pgClient.Opportunities()
		deps.AuditStore = pgClient.Audit()
		deps.Checks["postgres"] = pgClient.Pool().Ping
	}

	// --- Redis ---
	if needsInfra(cfg.Mode) && cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.BookCache = redis.NewOrderbookCache(redisClient, cfg.Redis.BookTTL.Duration)
		deps.RateCache = redis.NewRateCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.Checks["redis"] = redisClient.Ping
	}

	// --- S3 archive ---
	if needsS3(cfg) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		prefix := strings.Trim(cfg.S3.Prefix, "/")
		if prefix != "" {
			prefix += "/"
		}
		deps.Archiver = s3blob.NewEvaluationArchiver(s3blob.NewWriter(s3Client), prefix)
		deps.Checks["s3"] = s3Client.Health
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// labeled renames a source without changing its behaviour.
type labeled struct {
	service.OrderbookSource
	name string
}

func (l labeled) Name() string { return l.name }

func buildSource(cfg *config.Config, p config.PlatformConfig) (service.OrderbookSource, error) {
	var src service.OrderbookSource

	switch p.Kind {
	case "polymarket":
		src = polymarket.NewClobClient(cfg.Polymarket.ClobHost, cfg.Polymarket.Timeout.Duration)

	case "kalshi":
		client := kalshi.NewClient(cfg.Kalshi.BaseURL, cfg.Kalshi.APIKey, cfg.Kalshi.Timeout.Duration)
		if cfg.Kalshi.RSAPrivateKeyPath != "" {
			pemBytes, err := os.ReadFile(cfg.Kalshi.RSAPrivateKeyPath)
			if err != nil {
				return nil, fmt.Errorf("read kalshi key: %w", err)
			}
			if err := client.SetRSAPrivateKey(pemBytes); err != nil {
				return nil, err
			}
		}
		src = client

	case "mock":
		currency := p.Currency
		if currency == "" {
			currency = cfg.Mock.Currency
		}
		m, err := mock.NewSource(p.Label(), currency, cfg.Mock.FixturesPath)
		if err != nil {
			return nil, err
		}
		return m, nil

	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPlatform, p.Kind)
	}

	if p.Name != "" && p.Name != src.Name() {
		src = labeled{OrderbookSource: src, name: p.Name}
	}
	return src, nil
}
