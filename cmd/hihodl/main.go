package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "hihodl",
		Usage: "Send pipeline service CLI",
		Description: `A command-line tool for managing and debugging the sendcore service.

Use this CLI to classify recipient input, diagnose transfer feasibility,
inspect transfer records, and drive the status reconciler.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			resolveCommand(),
			diagnoseCommand(),
			// Transfer record commands
			{
				Name:  "transfers",
				Usage: "Transfer record commands",
				Subcommands: []*cli.Command{
					listTransfersCommand(),
					submitTransferCommand(),
				},
			},
			balancesCommand(),
			// Reconciler commands
			{
				Name:  "reconcile",
				Usage: "Status reconciler commands",
				Subcommands: []*cli.Command{
					reconcileOnceCommand(),
					reconcilePauseCommand(),
					reconcileResumeCommand(),
					reconcileStatusCommand(),
				},
			},
			// Server utility commands
			{
				Name:  "server",
				Usage: "Server utility commands",
				Subcommands: []*cli.Command{
					healthCommand(),
					versionCommand(),
				},
			},
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server-url",
				Usage:   "Server URL for API commands",
				EnvVars: []string{"SERVER_URL"},
				Value:   "http://localhost:8080",
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the legacy record store",
				EnvVars: []string{"REDIS_ADDR"},
				Value:   "localhost:6379",
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS server URL",
				EnvVars: []string{"NATS_URL"},
				Value:   "nats://localhost:4222",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
