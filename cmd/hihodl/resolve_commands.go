package main

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/hihodl/sendcore/service/recipient"
)

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Classify free-form recipient input",
		ArgsUsage: "INPUT",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "evm-chain",
				Usage:   "Default chain hint for bare 0x addresses",
				EnvVars: []string{"DEFAULT_EVM_CHAIN"},
				Value:   "base",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("recipient input is required")
			}
			input := c.Args().Get(0)

			resolver := recipient.NewResolver(c.String("evm-chain"))
			parsed := resolver.Resolve(input)

			if c.Bool("json") {
				out := map[string]any{
					"matched": parsed != nil,
				}
				if parsed != nil {
					out["recipient"] = parsed
					out["sendable"] = resolver.IsSendableAddress(input)
				}
				data, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal result: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}

			if parsed == nil {
				fmt.Println("No rule matched the input.")
				return nil
			}

			fmt.Printf("Kind:     %s\n", parsed.Kind)
			if parsed.ChainHint != "" {
				fmt.Printf("Chain:    %s\n", parsed.ChainHint)
			}
			if parsed.ResolvedAddress != "" {
				fmt.Printf("Address:  %s\n", parsed.ResolvedAddress)
			}
			if parsed.ValidationError != "" {
				fmt.Printf("Invalid:  %s\n", parsed.ValidationError)
			} else {
				fmt.Printf("Sendable: %t\n", resolver.IsSendableAddress(input))
			}
			return nil
		},
	}
}
