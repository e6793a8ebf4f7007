package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/hihodl/sendcore/service/balances"
	"github.com/hihodl/sendcore/service/funding"
)

func diagnoseCommand() *cli.Command {
	return &cli.Command{
		Name:  "diagnose",
		Usage: "Diagnose whether a transfer can be funded",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "token",
				Usage:    "Token id (e.g. usdc)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "chain",
				Usage:    "Destination chain (e.g. base, solana)",
				Required: true,
			},
			&cli.Float64Flag{
				Name:     "amount",
				Usage:    "Transfer amount",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "recipient",
				Usage: "Recipient (any resolvable input)",
			},
			&cli.StringFlag{
				Name:     "balances",
				Aliases:  []string{"b"},
				Usage:    "Path to a JSON balance snapshot (token -> chain -> amount), or - for stdin",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "other-accounts",
				Usage: "Path to a JSON map of account -> balance snapshot",
			},
			&cli.BoolFlag{
				Name:  "offline",
				Usage: "Diagnose as if the device were offline",
			},
			&cli.IntFlag{
				Name:  "pending",
				Usage: "Number of pending transactions blocking this one",
			},
		},
		Action: func(c *cli.Context) error {
			var snap balances.Snapshot
			if err := loadJSONFile(c.String("balances"), &snap); err != nil {
				return fmt.Errorf("failed to load balances: %w", err)
			}

			var others map[string]balances.Snapshot
			if path := c.String("other-accounts"); path != "" {
				if err := loadJSONFile(path, &others); err != nil {
					return fmt.Errorf("failed to load other accounts: %w", err)
				}
			}

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			diag := funding.NewDiagnostician(funding.DefaultFeeTable(), logger)
			result := diag.Diagnose(funding.Context{
				TokenID:        c.String("token"),
				Chain:          c.String("chain"),
				Amount:         c.Float64("amount"),
				Recipient:      c.String("recipient"),
				Online:         !c.Bool("offline"),
				PendingTxCount: c.Int("pending"),
				Balances:       snap,
				OtherAccounts:  others,
			})

			if c.Bool("json") {
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal result: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}

			printDiagnosis(result)
			return nil
		},
	}
}

func printDiagnosis(result funding.Result) {
	fmt.Printf("Problem:  %s (%s)\n", result.Problem, result.Severity)
	fmt.Printf("Message:  %s\n", result.Message)

	if len(result.AutoBridgePlan) > 0 {
		fmt.Println("Bridge plan:")
		for _, hop := range result.AutoBridgePlan {
			fmt.Printf("  %-10s %.6f\n", hop.Chain, hop.Amount)
		}
	}

	if len(result.Solutions) > 0 {
		fmt.Println("Solutions:")
		for _, sol := range result.Solutions {
			fmt.Printf("  %d. [%s] %s: %s\n", sol.Priority, sol.Action, sol.Label, sol.Description)
		}
	}

	if len(result.OtherAccountsBalance) > 0 {
		fmt.Println("Funds in other accounts:")
		for _, bal := range result.OtherAccountsBalance {
			fmt.Printf("  %s: %.6f %s on %s\n", bal.Account, bal.Balance, bal.TokenID, bal.Chain)
		}
	}
}

// loadJSONFile decodes a JSON file into dst; "-" reads stdin.
func loadJSONFile(path string, dst any) error {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	return json.NewDecoder(r).Decode(dst)
}
