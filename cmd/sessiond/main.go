// Command sessiond serves a small HTTP API on top of the session package and
// carries the operational commands for its stores.
//
//	sessiond --store redis serve
//	sessiond --store mongo ensure-index
//	sessiond --store pg migrate
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
)

var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:    "sessiond",
		Usage:   "session service with atomic field updates",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:      "store",
				Value:     storeMemory,
				Usage:     "session store (memory, mongo, redis, pg)",
				Aliases:   []string{"s"},
				Sources:   cli.EnvVars("SESSIOND_STORE"),
				Validator: storeValidator,
				Config:    cli.StringConfig{TrimSpace: true},
			},
			&cli.StringFlag{
				Name:    "env-prefix",
				Usage:   "prefix prepended to every configuration variable",
				Sources: cli.EnvVars("SESSIOND_ENV_PREFIX"),
			},
			&cli.StringSliceFlag{
				Name:      "env-file",
				Usage:     "dotenv files loaded before the environment is parsed",
				TakesFile: true,
			},
		},
		Commands: []*cli.Command{
			newServeCmd(),
			newEnsureIndexCmd(),
			newMigrateCmd(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func storeValidator(kind string) error {
	switch strings.ToLower(kind) {
	case storeMemory, storeMongo, storeRedis, storePG:
		return nil
	}
	return fmt.Errorf("unknown store %q", kind)
}
