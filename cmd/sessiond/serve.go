package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/dmitrymomot/atomicsession/pkg/cookie"
	"github.com/dmitrymomot/atomicsession/pkg/httpserver"
	"github.com/dmitrymomot/atomicsession/pkg/logger"
	"github.com/dmitrymomot/atomicsession/pkg/requestid"
	"github.com/dmitrymomot/atomicsession/pkg/session"
)

func newServeCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "start the HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "address",
				Usage:   "listen address, overrides HTTP_ADDR",
				Aliases: []string{"a"},
				Config:  cli.StringConfig{TrimSpace: true},
			},
			&cli.BoolFlag{
				Name:  "skip-index",
				Usage: "do not ensure the expiry index at startup",
			},
		},
		Action: serveCmd,
	}
}

func serveCmd(ctx context.Context, cmd *cli.Command) error {
	cfg, log, err := loadApp(cmd)
	if err != nil {
		return err
	}
	if addr := cmd.String("address"); addr != "" {
		cfg.HTTP.Addr = addr
	}

	b, err := openBackend(ctx, cmd, log)
	if err != nil {
		return err
	}

	cookies, err := cookie.NewFromConfig(cfg.Cookie)
	if err != nil {
		_ = b.close(ctx)
		return err
	}

	manager, err := session.NewFromConfig(cfg.Session,
		session.WithStore(b.store),
		session.WithCookieManager(cookies),
		session.WithLogger(log),
	)
	if err != nil {
		_ = b.close(ctx)
		return err
	}

	if !cmd.Bool("skip-index") {
		if err := manager.EnsureTTLIndex(ctx); err != nil {
			_ = b.close(ctx)
			return err
		}
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	if b.sweep != nil && cfg.SweepInterval > 0 {
		go sweepLoop(sweepCtx, log, b.sweep, cfg.SweepInterval)
	}

	srv := httpserver.New(cfg.HTTP,
		httpserver.WithLogger(log),
		httpserver.WithStopHook(func(ctx context.Context) error {
			stopSweep()
			return b.close(ctx)
		}),
	)

	return srv.Run(ctx, newRouter(manager, log, b.check))
}

func newRouter(manager *session.Manager, log *slog.Logger, checks ...httpserver.Check) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestid.Middleware)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(log, checks...))

	r.Route("/session", func(r chi.Router) {
		r.Use(manager.Middleware)
		r.Use(manager.RequireCSRF)
		h := &handlers{manager: manager, log: log}
		h.mount(r)
	})
	return r
}

// sweepLoop removes expired sessions on stores without native expiry.
func sweepLoop(ctx context.Context, log *slog.Logger, sweep func(context.Context) (int64, error), every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			n, err := sweep(ctx)
			if err != nil {
				log.ErrorContext(ctx, "sweep failed", logger.Component("sweeper"), logger.Error(err))
				continue
			}
			log.DebugContext(ctx, "expired sessions removed",
				logger.Component("sweeper"),
				slog.Int64("removed", n),
				logger.Duration(time.Since(start)),
			)
		}
	}
}
