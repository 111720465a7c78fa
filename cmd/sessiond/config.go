package main

import (
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dmitrymomot/atomicsession/pkg/config"
	"github.com/dmitrymomot/atomicsession/pkg/cookie"
	"github.com/dmitrymomot/atomicsession/pkg/httpserver"
	"github.com/dmitrymomot/atomicsession/pkg/logger"
	"github.com/dmitrymomot/atomicsession/pkg/requestid"
	"github.com/dmitrymomot/atomicsession/pkg/session"
)

type appConfig struct {
	Log     logger.Config
	HTTP    httpserver.Config
	Session session.Config
	Cookie  cookie.Config

	// SweepInterval drives DeleteExpired for stores without native expiry.
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"10m"`
}

// loadOptions turns the global flags into config.Load options.
func loadOptions(cmd *cli.Command) []config.LoadOption {
	opts := []config.LoadOption{config.WithPrefix(cmd.String("env-prefix"))}
	if files := cmd.StringSlice("env-file"); len(files) > 0 {
		opts = append(opts, config.WithEnvFiles(files...))
	}
	return opts
}

func loadApp(cmd *cli.Command) (appConfig, *slog.Logger, error) {
	var cfg appConfig
	if err := config.Load(&cfg, loadOptions(cmd)...); err != nil {
		return cfg, nil, err
	}

	log := logger.New(
		logger.WithConfig(cfg.Log),
		logger.WithContextExtractors(requestid.Extractor),
	)
	logger.SetAsDefault(log)
	return cfg, log, nil
}
