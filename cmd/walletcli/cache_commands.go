package main

import (
	"fmt"
	"io"
	"time"

	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/analysis"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/models"
	"github.com/urfave/cli/v2"
)

func cacheListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List cached wallets, most recently fetched first",
		Action: func(c *cli.Context) error {
			logger := newLogger(c)
			store, closeStore := openStore(c, logger)
			defer closeStore()

			wallets, err := store.ListWallets(c.Context)
			if err != nil {
				return fmt.Errorf("failed to list wallets: %w", err)
			}

			if c.Bool("json") {
				return writeJSON(c.App.Writer, wallets)
			}
			if len(wallets) == 0 {
				fmt.Fprintln(c.App.Writer, "No cached wallets")
				return nil
			}
			for _, m := range wallets {
				printMetadata(c.App.Writer, m)
			}
			return nil
		},
	}
}

func cacheShowCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show the cached analysis of a wallet without any network calls",
		ArgsUsage: "WALLET_ADDRESS",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}
			address := c.Args().Get(0)

			logger := newLogger(c)
			store, closeStore := openStore(c, logger)
			defer closeStore()

			meta, err := store.GetWalletMetadata(c.Context, address)
			if err != nil {
				return fmt.Errorf("failed to read wallet cache: %w", err)
			}
			if meta == nil {
				return fmt.Errorf("wallet %s is not cached", address)
			}
			cached, err := store.GetWalletTransactions(c.Context, address)
			if err != nil {
				return fmt.Errorf("failed to read cached transactions: %w", err)
			}

			txs := make([]models.ParsedTransaction, 0, len(cached))
			for _, tx := range cached {
				txs = append(txs, tx.ParsedTransaction)
			}
			summary := analysis.Summarize(address, txs, meta.LastFetchedAt)

			if c.Bool("json") {
				return writeJSON(c.App.Writer, map[string]any{
					"metadata": meta,
					"analysis": summary,
				})
			}
			printMetadata(c.App.Writer, *meta)
			fmt.Fprintf(c.App.Writer, "  Net holdings:        %.4f\n", summary.NetHoldings)
			fmt.Fprintf(c.App.Writer, "  Avg entry price:     $%.8f\n", summary.WeightedAverageEntryPrice)
			return nil
		},
	}
}

func cacheDeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Remove one wallet and its transactions from the local cache",
		ArgsUsage: "WALLET_ADDRESS",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}
			address := c.Args().Get(0)

			logger := newLogger(c)
			store, closeStore := openStore(c, logger)
			defer closeStore()

			if err := store.DeleteWalletCache(c.Context, address); err != nil {
				return fmt.Errorf("failed to delete wallet cache: %w", err)
			}
			fmt.Fprintf(c.App.Writer, "Deleted cache for %s\n", address)
			return nil
		},
	}
}

func cacheClearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Remove every wallet from the local cache",
		Action: func(c *cli.Context) error {
			logger := newLogger(c)
			store, closeStore := openStore(c, logger)
			defer closeStore()

			if err := store.ClearAllCache(c.Context); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			fmt.Fprintln(c.App.Writer, "Cache cleared")
			return nil
		},
	}
}

func printMetadata(w io.Writer, m models.WalletMetadata) {
	fetched := time.UnixMilli(m.LastFetchedAt).UTC().Format(time.RFC3339)
	fmt.Fprintf(w, "Wallet: %s\n", m.Address)
	fmt.Fprintf(w, "  Last fetched:        %s\n", fetched)
	fmt.Fprintf(w, "  Cached transactions: %d\n", m.TotalCachedTxCount)
	if m.NewestTxSignature != "" {
		fmt.Fprintf(w, "  Newest transaction:  %s\n", shortSignature(m.NewestTxSignature))
	}
}
