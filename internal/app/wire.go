// Package app wires the concrete clients, caches and stores behind the
// polydata commands and manages their teardown.
package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/cyoung/polydata/internal/blob/s3"
	"github.com/cyoung/polydata/internal/cache/redis"
	"github.com/cyoung/polydata/internal/config"
	"github.com/cyoung/polydata/internal/domain"
	"github.com/cyoung/polydata/internal/extract"
	"github.com/cyoung/polydata/internal/history"
	"github.com/cyoung/polydata/internal/platform/polymarket"
	"github.com/cyoung/polydata/internal/resolver"
	"github.com/cyoung/polydata/internal/store/postgres"
)

// Dependencies bundles everything the commands need to operate. It is
// constructed by Wire and torn down by Close, which runs cleanups in
// reverse registration order.
type Dependencies struct {
	Clob  *polymarket.ClobClient
	Gamma *polymarket.GammaClient
	Data  *polymarket.DataClient

	Resolver  *resolver.Service
	Fetcher   *history.Fetcher
	Extractor *extract.Extractor

	Cache     domain.ResolutionCache
	Store     domain.ExtractionStore
	Uploader  *s3blob.ArtifactUploader
	Artifacts *s3blob.Reader

	closers []func()
}

// Close tears down all wired resources. Safe to call multiple times.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

// Wire constructs the concrete dependency graph from configuration. The
// Redis cache, Postgres archive and S3 artifact store are wired only when their
// sections are enabled; the core works without any of them.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{}

	tcfg := polymarket.TransportConfig{
		Timeout:    cfg.Polymarket.Timeout.Duration,
		MaxRetries: cfg.Polymarket.MaxRetries,
		RetryDelay: cfg.Polymarket.RetryDelay.Duration,
		UserAgent:  cfg.Polymarket.UserAgent,
	}
	deps.Clob = polymarket.NewClobClient(cfg.Polymarket.ClobHost, tcfg, logger)
	deps.closers = append(deps.closers, deps.Clob.Close)
	deps.Gamma = polymarket.NewGammaClient(cfg.Polymarket.GammaHost, tcfg, logger)
	deps.closers = append(deps.closers, deps.Gamma.Close)
	deps.Data = polymarket.NewDataClient(cfg.Polymarket.DataHost, tcfg, logger)
	deps.closers = append(deps.closers, deps.Data.Close)

	if cfg.Cache.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Cache.Redis.Addr,
			Password:   cfg.Cache.Redis.Password,
			DB:         cfg.Cache.Redis.DB,
			PoolSize:   cfg.Cache.Redis.PoolSize,
			MaxRetries: cfg.Cache.Redis.MaxRetries,
			TLSEnabled: cfg.Cache.Redis.TLSEnabled,
		})
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("wire: redis: %w", err)
		}
		deps.closers = append(deps.closers, func() { _ = redisClient.Close() })
		deps.Cache = redis.NewResolutionCache(redisClient, cfg.Cache.TTL.Duration)
	}

	if cfg.Archive.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Archive.Postgres.DSN,
			Host:     cfg.Archive.Postgres.Host,
			Port:     cfg.Archive.Postgres.Port,
			Database: cfg.Archive.Postgres.Database,
			User:     cfg.Archive.Postgres.User,
			Password: cfg.Archive.Postgres.Password,
			SSLMode:  cfg.Archive.Postgres.SSLMode,
			MaxConns: cfg.Archive.Postgres.PoolMaxConns,
			MinConns: cfg.Archive.Postgres.PoolMinConns,
		})
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("wire: postgres: %w", err)
		}
		deps.closers = append(deps.closers, pgClient.Close)

		if cfg.Archive.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				deps.Close()
				return nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.Store = postgres.NewExtractionStore(pgClient.Pool())
	}

	if cfg.Export.Upload {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.Export.S3.Endpoint,
			Region:         cfg.Export.S3.Region,
			Bucket:         cfg.Export.S3.Bucket,
			AccessKey:      cfg.Export.S3.AccessKey,
			SecretKey:      cfg.Export.S3.SecretKey,
			UseSSL:         cfg.Export.S3.UseSSL,
			ForcePathStyle: cfg.Export.S3.ForcePathStyle,
		})
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Uploader = s3blob.NewArtifactUploader(s3blob.NewWriter(s3Client), cfg.Export.Prefix)
		deps.Artifacts = s3blob.NewReader(s3Client)
	}

	// CLOB is preferred for market resolution; Gamma backfills markets the
	// listing misses and serves events.
	deps.Resolver = resolver.New(
		[]domain.MarketSource{deps.Clob, deps.Gamma},
		deps.Gamma,
		deps.Cache,
		logger,
	)
	deps.Fetcher = history.NewFetcher(deps.Clob, cfg.Extract.MaxNarrowings, logger)
	deps.Extractor = extract.New(deps.Resolver, deps.Fetcher, deps.Store, logger)

	return deps, nil
}
