package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"shadowScope/internal/chain"
	"shadowScope/internal/config"
)

func newNodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "One-shot node queries",
	}
	cmd.AddCommand(
		nodeQuery("info", "Chain info as reported by the node", cobra.NoArgs,
			func(ctx context.Context, c *chain.Client, _ []string) (any, error) { return c.Info(ctx) }),
		nodeQuery("validators", "Validator set", cobra.NoArgs,
			func(ctx context.Context, c *chain.Client, _ []string) (any, error) { return c.Validators(ctx) }),
		nodeQuery("explorer", "Recent transactions", cobra.NoArgs,
			func(ctx context.Context, c *chain.Client, _ []string) (any, error) { return c.RecentTransactions(ctx) }),
		nodeQuery("tx <signature>", "Look up one transaction", cobra.ExactArgs(1),
			func(ctx context.Context, c *chain.Client, args []string) (any, error) { return c.Transaction(ctx, args[0]) }),
		nodeQuery("merkle-root", "Current commitment tree root", cobra.NoArgs,
			func(ctx context.Context, c *chain.Client, _ []string) (any, error) { return c.MerkleRoot(ctx) }),
		nodeQuery("address", "Generate a shielded address", cobra.NoArgs,
			func(ctx context.Context, c *chain.Client, _ []string) (any, error) { return c.GenerateAddress(ctx) }),
		nodeQuery("faucet <address>", "Request test tokens", cobra.ExactArgs(1),
			func(ctx context.Context, c *chain.Client, args []string) (any, error) { return c.Faucet(ctx, args[0]) }),
		nodeQuery("balance <commitment>...", "Balance of note commitments", cobra.MinimumNArgs(1),
			func(ctx context.Context, c *chain.Client, args []string) (any, error) { return c.Balance(ctx, args) }),
		nodeQuery("submit-tx <file|->", "Submit a transaction document", cobra.ExactArgs(1),
			func(ctx context.Context, c *chain.Client, args []string) (any, error) {
				tx, err := readDocument(args[0])
				if err != nil {
					return nil, err
				}
				return c.SubmitTransaction(ctx, tx)
			}),
		nodeQuery("health", "Node health", cobra.NoArgs,
			func(ctx context.Context, c *chain.Client, _ []string) (any, error) { return c.Health(ctx) }),
	)
	return cmd
}

type nodeFunc func(ctx context.Context, c *chain.Client, args []string) (any, error)

func nodeQuery(use, short string, args cobra.PositionalArgs, fn nodeFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			common, err := config.LoadNode(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := newLogger(common)
			if err != nil {
				return err
			}
			defer logger.Sync()

			result, err := fn(cmd.Context(), newClient(common, nil, logger), args)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}

func readDocument(name string) (json.RawMessage, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, fmt.Errorf("read transaction: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("read transaction: %s is not valid JSON", name)
	}
	return data, nil
}
