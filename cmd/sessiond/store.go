package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/dmitrymomot/atomicsession/pkg/config"
	"github.com/dmitrymomot/atomicsession/pkg/httpserver"
	"github.com/dmitrymomot/atomicsession/pkg/logger"
	"github.com/dmitrymomot/atomicsession/pkg/mongo"
	"github.com/dmitrymomot/atomicsession/pkg/pg"
	"github.com/dmitrymomot/atomicsession/pkg/redis"
	"github.com/dmitrymomot/atomicsession/pkg/session"
)

const (
	storeMemory = "memory"
	storeMongo  = "mongo"
	storeRedis  = "redis"
	storePG     = "pg"
)

// backend is an opened session store plus what the process needs to operate it.
type backend struct {
	store session.Store
	check httpserver.Check
	// sweep is nil for stores that expire documents themselves.
	sweep func(context.Context) (int64, error)
	// migrate is nil for schemaless stores.
	migrate func(context.Context) error
	close   func(context.Context) error
}

func openBackend(ctx context.Context, cmd *cli.Command, log *slog.Logger) (*backend, error) {
	kind := strings.ToLower(cmd.String("store"))
	opts := loadOptions(cmd)
	log = log.With(logger.Store(kind))

	switch kind {
	case storeMongo:
		var cfg mongo.Config
		if err := config.Load(&cfg, opts...); err != nil {
			return nil, err
		}
		client, coll, err := mongo.NewSessionCollection(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store := mongo.NewSessionStore(coll)
		log.InfoContext(ctx, "connected", slog.String("collection", cfg.Database+"."+cfg.SessionsCollection))
		return &backend{
			store: store,
			check: httpserver.Check{Name: kind, Fn: store.Ping},
			close: client.Disconnect,
		}, nil

	case storeRedis:
		var cfg redis.Config
		if err := config.Load(&cfg, opts...); err != nil {
			return nil, err
		}
		client, err := redis.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store := redis.NewSessionStoreFromConfig(client, cfg)
		log.InfoContext(ctx, "connected", slog.String("prefix", cfg.SessionPrefix))
		return &backend{
			store: store,
			check: httpserver.Check{Name: kind, Fn: store.Ping},
			close: func(context.Context) error { return client.Close() },
		}, nil

	case storePG:
		var cfg pg.Config
		if err := config.Load(&cfg, opts...); err != nil {
			return nil, err
		}
		pool, err := pg.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store := pg.NewSessionStore(pool)
		log.InfoContext(ctx, "connected")
		return &backend{
			store:   store,
			check:   httpserver.Check{Name: kind, Fn: store.Ping},
			sweep:   store.DeleteExpired,
			migrate: func(ctx context.Context) error { return pg.Migrate(ctx, pool, cfg, log) },
			close: func(context.Context) error {
				pool.Close()
				return nil
			},
		}, nil

	case storeMemory:
		store := session.NewMemoryStore(0)
		return &backend{
			store: store,
			check: httpserver.Check{Name: kind, Fn: func(context.Context) error { return nil }},
			sweep: func(ctx context.Context) (int64, error) {
				before := store.Len()
				err := store.DeleteExpired(ctx)
				return int64(before - store.Len()), err
			},
			close: func(context.Context) error { return store.Close() },
		}, nil
	}

	return nil, fmt.Errorf("unknown store %q", kind)
}

func newEnsureIndexCmd() *cli.Command {
	return &cli.Command{
		Name:  "ensure-index",
		Usage: "create the expiry index on the session store",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, log, err := loadApp(cmd)
			if err != nil {
				return err
			}
			b, err := openBackend(ctx, cmd, log)
			if err != nil {
				return err
			}
			defer func() { _ = b.close(context.WithoutCancel(ctx)) }()

			if err := b.store.EnsureTTLIndex(ctx, session.FieldExpires); err != nil {
				return fmt.Errorf("ensure index: %w", err)
			}
			log.InfoContext(ctx, "expiry index ready", logger.Component("sessiond"))
			return nil
		},
	}
}

func newMigrateCmd() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply the session store schema",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, log, err := loadApp(cmd)
			if err != nil {
				return err
			}
			b, err := openBackend(ctx, cmd, log)
			if err != nil {
				return err
			}
			defer func() { _ = b.close(context.WithoutCancel(ctx)) }()

			if b.migrate == nil {
				return errors.New("store " + cmd.String("store") + " has no schema to migrate")
			}
			if err := b.migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.InfoContext(ctx, "migration finished", logger.Component("sessiond"))
			return nil
		},
	}
}
