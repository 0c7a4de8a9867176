package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pribylovaa/go-session-auth/internal/audit"
	auditmongo "github.com/pribylovaa/go-session-auth/internal/audit/mongo"
	auditredis "github.com/pribylovaa/go-session-auth/internal/audit/redis"
	"github.com/pribylovaa/go-session-auth/internal/config"
	"github.com/pribylovaa/go-session-auth/internal/storage"
	"github.com/pribylovaa/go-session-auth/internal/storage/memory"
	"github.com/pribylovaa/go-session-auth/internal/storage/postgres"
)

const connectTimeout = 10 * time.Second

// store — выбранное хранилище аккаунтов. saver != nil, если хранилище
// умеет сохранять аудит-события (postgres).
type store struct {
	storage.Storage
	saver audit.EventSaver
}

// openStore подключает хранилище по db.driver; для postgres при db.migrate
// накатывает миграции.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (*store, error) {
	switch cfg.DB.Driver {
	case config.DriverMemory:
		log.Warn("memory_store_in_use", slog.String("hint", "accounts are lost on restart"))
		return &store{Storage: memory.New()}, nil

	case config.DriverPostgres:
		dbCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		pg, err := postgres.New(dbCtx, cfg.DB.DatabaseURL)
		if err != nil {
			log.Error("postgres_connect_failed", slog.String("err", err.Error()))
			return nil, err
		}
		log.Info("postgres_connected")

		if cfg.DB.Migrate {
			if err := pg.Migrate(dbCtx); err != nil {
				log.Error("postgres_migrate_failed", slog.String("err", err.Error()))
				pg.Close()
				return nil, err
			}
			log.Info("postgres_migrated")
		}

		return &store{Storage: pg, saver: pg}, nil

	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.DB.Driver)
	}
}

// openAudit собирает приёмники аудита и запускает Dispatcher.
// Недоступный внешний приёмник (redis, mongo) отключается с предупреждением:
// аудит не должен мешать запуску и работе протокола.
func openAudit(ctx context.Context, cfg *config.Config, log *slog.Logger, str *store, metrics *audit.Metrics) (*audit.Dispatcher, func()) {
	sinks := []audit.Sink{audit.NewSlogSink(log), metrics}
	var closers []func()

	if cfg.Audit.Postgres {
		if str.saver != nil {
			sinks = append(sinks, audit.NewStoreSink(str.saver))
		} else {
			log.Warn("audit_sink_disabled", slog.String("sink", "store"), slog.String("why", "db driver has no audit table"))
		}
	}

	if cfg.Audit.RedisURL != "" {
		rctx, cancel := context.WithTimeout(ctx, connectTimeout)
		rs, err := auditredis.New(rctx, cfg.Audit.RedisURL, cfg.Audit.RedisStream)
		cancel()
		if err != nil {
			log.Warn("audit_sink_disabled", slog.String("sink", "redis"), slog.String("err", err.Error()))
		} else {
			sinks = append(sinks, rs)
			closers = append(closers, func() { _ = rs.Close() })
		}
	}

	if cfg.Audit.MongoURL != "" {
		mctx, cancel := context.WithTimeout(ctx, connectTimeout)
		ms, err := auditmongo.New(mctx, cfg.Audit.MongoURL)
		cancel()
		if err != nil {
			log.Warn("audit_sink_disabled", slog.String("sink", "mongo"), slog.String("err", err.Error()))
		} else {
			sinks = append(sinks, ms)
			closers = append(closers, func() {
				cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = ms.Close(cctx)
			})
		}
	}

	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	log.Info("audit_initialized", slog.Any("sinks", names), slog.Int("buffer", cfg.Audit.Buffer))

	d := audit.NewDispatcher(log, cfg.Audit.Buffer, sinks, audit.WithDropHook(metrics.Dropped))

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	return d, closeAll
}
