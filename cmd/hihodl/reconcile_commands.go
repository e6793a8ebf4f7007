package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"

	"github.com/hihodl/sendcore/service/chainstatus"
	"github.com/hihodl/sendcore/service/ledger"
	"github.com/hihodl/sendcore/service/notify"
	"github.com/hihodl/sendcore/service/reconcile"
)

// reconcileOnceCommand runs one reconciliation pass directly against the
// stores, bypassing the server. Useful for debugging stuck transfers.
func reconcileOnceCommand() *cli.Command {
	return &cli.Command{
		Name:  "once",
		Usage: "Run a single reconciliation tick against the stores",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "solana-rpc-url",
				Usage:    "Solana RPC endpoint",
				EnvVars:  []string{"SOLANA_RPC_URL"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "base-rpc-url",
				Usage:   "Base RPC endpoint",
				EnvVars: []string{"BASE_RPC_URL"},
			},
			&cli.StringFlag{
				Name:    "ethereum-rpc-url",
				Usage:   "Ethereum RPC endpoint",
				EnvVars: []string{"ETHEREUM_RPC_URL"},
			},
			&cli.Float64Flag{
				Name:  "rps",
				Usage: "Provider requests per second",
				Value: 5,
			},
			&cli.BoolFlag{
				Name:  "notify",
				Usage: "Publish completion notifications to NATS",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Overall timeout for the tick",
				Value: time.Minute,
			},
		},
		Action: func(c *cli.Context) error {
			databaseURL := c.String("database-url")
			if databaseURL == "" {
				return fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
			}

			ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
			defer cancel()
			logger := discardLogger()

			pool, err := pgxpool.New(ctx, databaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()

			canonical := ledger.NewPostgresStore(pool)
			if err := canonical.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("failed to ensure schema: %w", err)
			}

			rdb := redis.NewClient(&redis.Options{Addr: c.String("redis-addr")})
			defer rdb.Close()
			legacy := ledger.NewLegacyStore(rdb, logger)
			view := &ledger.View{Canonical: canonical, Legacy: legacy}

			providers := chainstatus.NewRegistry()
			limit := rate.Limit(c.Float64("rps"))
			solanaProvider := chainstatus.NewSolanaProvider(chainstatus.NewSolanaRPC(c.String("solana-rpc-url")), nil, logger)
			providers.Register("solana", chainstatus.RateLimited(solanaProvider, rate.NewLimiter(limit, 1)))

			evmURLs := map[string]string{
				"base":     c.String("base-rpc-url"),
				"ethereum": c.String("ethereum-rpc-url"),
			}
			for chain, rpcURL := range evmURLs {
				if rpcURL == "" {
					continue
				}
				rpc, err := chainstatus.DialEVMRPC(ctx, rpcURL)
				if err != nil {
					return fmt.Errorf("failed to dial %s RPC: %w", chain, err)
				}
				evmProvider := chainstatus.NewEVMProvider(rpc, nil, logger)
				providers.Register(chain, chainstatus.RateLimited(evmProvider, rate.NewLimiter(limit, 1)))
			}

			var sink notify.Sink = notify.NopSink{}
			if c.Bool("notify") {
				js, err := notify.NewJetStreamSink(c.String("nats-url"), logger)
				if err != nil {
					return fmt.Errorf("failed to connect to NATS: %w", err)
				}
				defer js.Close()
				sink = js
			}

			changed := 0
			rec := reconcile.New(reconcile.Options{
				Source:    reconcile.ViewSource{View: view},
				Canonical: canonical,
				Legacy:    legacy,
				Provider:  providers,
				Sink:      sink,
				Logger:    logger,
				OnChange: func(r ledger.TransferRecord) {
					changed++
					fmt.Printf("✓ %s -> %s\n", r.ID, r.Status)
				},
			})

			if err := rec.Tick(ctx); err != nil {
				return fmt.Errorf("tick failed: %w", err)
			}
			if tickErr := rec.LastTickError(); tickErr != nil {
				fmt.Printf("⚠ some polls failed: %v\n", tickErr)
			}
			fmt.Printf("Tick complete: %d status change(s) applied.\n", changed)
			return nil
		},
	}
}

func reconcilePauseCommand() *cli.Command {
	return &cli.Command{
		Name:  "pause",
		Usage: "Pause the server's status reconciler",
		Action: func(c *cli.Context) error {
			if err := newServiceClient(c).PauseReconciler(context.Background()); err != nil {
				return fmt.Errorf("failed to pause reconciler: %w", err)
			}
			fmt.Println("✓ Reconciler paused")
			return nil
		},
	}
}

func reconcileResumeCommand() *cli.Command {
	return &cli.Command{
		Name:  "resume",
		Usage: "Resume the server's status reconciler",
		Action: func(c *cli.Context) error {
			if err := newServiceClient(c).ResumeReconciler(context.Background()); err != nil {
				return fmt.Errorf("failed to resume reconciler: %w", err)
			}
			fmt.Println("✓ Reconciler resumed")
			return nil
		},
	}
}

func reconcileStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show whether the server's last reconcile tick succeeded",
		Action: func(c *cli.Context) error {
			serverURL := c.String("server-url")
			resp, err := httpGetJSON(serverURL + "/api/v1/reconcile/status")
			if err != nil {
				return fmt.Errorf("failed to query reconciler status: %w", err)
			}
			if syncing, ok := resp["syncing"].(bool); ok && syncing {
				fmt.Println("✓ Reconciler is syncing cleanly")
				return nil
			}
			fmt.Printf("⚠ Reconciler reported an error: %v\n", resp["error"])
			return nil
		},
	}
}
