package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"

	"github.com/hihodl/sendcore/client"
	"github.com/hihodl/sendcore/service/balances"
	"github.com/hihodl/sendcore/service/ledger"
)

func listTransfersCommand() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "List transfer records, optionally for one thread",
		ArgsUsage: "[THREAD_ID]",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "filter",
				Aliases: []string{"f"},
				Usage:   "jq expression applied to each record; records where every filter returns true are kept",
			},
		},
		Action: func(c *cli.Context) error {
			threadID := c.Args().Get(0)

			// Compile jq filters
			filters := c.StringSlice("filter")
			compiled := make([]*gojq.Code, len(filters))
			for i, filter := range filters {
				query, err := gojq.Parse(filter)
				if err != nil {
					return fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
				}
				compiled[i], err = gojq.Compile(query)
				if err != nil {
					return fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
				}
			}

			cl := newServiceClient(c)
			records, err := cl.ListTransfers(context.Background(), threadID)
			if err != nil {
				return fmt.Errorf("failed to list transfers: %w", err)
			}

			if len(compiled) > 0 {
				records, err = filterRecords(records, compiled)
				if err != nil {
					return err
				}
			}

			if c.Bool("json") {
				data, err := json.MarshalIndent(records, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal records: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}

			if len(records) == 0 {
				fmt.Println("No transfers found.")
				return nil
			}
			for _, rec := range records {
				printRecord(rec)
			}
			return nil
		},
	}
}

// filterRecords keeps records for which every compiled jq filter yields
// true. Records are passed to jq as their JSON object form.
func filterRecords(records []ledger.TransferRecord, filters []*gojq.Code) ([]ledger.TransferRecord, error) {
	var out []ledger.TransferRecord
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal record %s: %w", rec.ID, err)
		}
		var obj map[string]any
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record %s: %w", rec.ID, err)
		}

		keep := true
		for _, code := range filters {
			iter := code.Run(obj)
			v, ok := iter.Next()
			if !ok {
				keep = false
				break
			}
			if err, isErr := v.(error); isErr {
				return nil, fmt.Errorf("jq filter failed on record %s: %w", rec.ID, err)
			}
			if b, isBool := v.(bool); !isBool || !b {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, rec)
		}
	}
	return out, nil
}

func submitTransferCommand() *cli.Command {
	return &cli.Command{
		Name:  "submit",
		Usage: "Record a submitted transfer for reconciliation",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "thread",
				Usage:    "Thread id the transfer belongs to",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "token",
				Usage:    "Token id (e.g. usdc)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "chain",
				Usage:    "Chain the transaction was sent on",
				Required: true,
			},
			&cli.Float64Flag{
				Name:     "amount",
				Usage:    "Transfer amount",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "tx-hash",
				Usage: "On-chain transaction hash or signature",
			},
			&cli.StringFlag{
				Name:  "kind",
				Usage: "Record kind: tx or request",
				Value: "tx",
			},
		},
		Action: func(c *cli.Context) error {
			cl := newServiceClient(c)
			rec, err := cl.SubmitTransfer(context.Background(), client.SubmitTransferRequest{
				ThreadID: c.String("thread"),
				TokenID:  c.String("token"),
				Chain:    c.String("chain"),
				Amount:   c.Float64("amount"),
				TxHash:   c.String("tx-hash"),
				Kind:     c.String("kind"),
			})
			if err != nil {
				return fmt.Errorf("failed to submit transfer: %w", err)
			}

			if c.Bool("json") {
				data, err := json.MarshalIndent(rec, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal record: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}
			fmt.Printf("✓ Transfer recorded\n")
			printRecord(*rec)
			return nil
		},
	}
}

func balancesCommand() *cli.Command {
	return &cli.Command{
		Name:      "balances",
		Usage:     "Show an account's balance snapshot (all known accounts if omitted)",
		ArgsUsage: "[ACCOUNT_ID]",
		Action: func(c *cli.Context) error {
			cl := newServiceClient(c)

			if c.NArg() < 1 {
				for _, accountID := range balances.Accounts() {
					snap, err := cl.GetBalances(context.Background(), accountID)
					if err != nil {
						return fmt.Errorf("failed to get balances for %s: %w", accountID, err)
					}
					fmt.Printf("%s: %.6f\n", accountID, snap.Total())
				}
				return nil
			}
			accountID := c.Args().Get(0)

			snap, err := cl.GetBalances(context.Background(), accountID)
			if err != nil {
				return fmt.Errorf("failed to get balances: %w", err)
			}

			if c.Bool("json") {
				data, err := json.MarshalIndent(snap, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal snapshot: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}

			if len(snap) == 0 {
				fmt.Printf("No balances for account %s.\n", accountID)
				return nil
			}
			for token, chains := range snap {
				for chain, amount := range chains {
					fmt.Printf("%-8s %-10s %.6f\n", token, chain, amount)
				}
			}
			fmt.Printf("Total: %.6f\n", snap.Total())
			return nil
		},
	}
}

func printRecord(rec ledger.TransferRecord) {
	fmt.Printf("%s  %-8s %-10s %-9s %10.4f %s  thread=%s",
		rec.Timestamp.Format(time.RFC3339),
		rec.Kind,
		rec.Chain,
		rec.Status,
		rec.Amount,
		rec.TokenID,
		rec.ThreadID,
	)
	if rec.TxHash != "" {
		fmt.Printf("  tx=%s", rec.TxHash)
	}
	fmt.Println()
}

// newServiceClient builds a client against the configured server URL,
// logging only errors to stderr.
func newServiceClient(c *cli.Context) *client.Client {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	return client.NewClient(c.String("server-url"), nil, logger)
}

// discardLogger is used by commands that run fully locally.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
