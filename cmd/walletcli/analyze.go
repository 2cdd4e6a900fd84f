package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/models"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/portfolio"
	"github.com/urfave/cli/v2"
)

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Analyze a wallet, fetching only transactions newer than the local cache",
		ArgsUsage: "WALLET_ADDRESS",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 120 * time.Second,
				Usage: "Timeout for each analyzer API call",
			},
			&cli.IntFlag{
				Name:  "limit",
				Value: 10,
				Usage: "Number of recent transactions to print (0 for all)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}
			address := c.Args().Get(0)

			logger := newLogger(c)
			store, closeStore := openStore(c, logger)
			defer closeStore()

			var progress portfolio.StateObserver
			if !c.Bool("json") {
				progress = portfolio.StateFunc(func(st portfolio.LoadingState) {
					printState(os.Stderr, st)
				})
			}

			o := portfolio.NewOrchestrator(portfolio.Config{
				API:      portfolio.NewClient(c.String("server"), c.String("api-key"), c.Duration("timeout")),
				Store:    store,
				Observer: progress,
				Logger:   logger,
			})

			res, err := o.Analyze(c.Context, address)
			// cache writes run in the background; let them land before exiting
			o.Wait()
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			if c.Bool("json") {
				return writeJSON(c.App.Writer, res)
			}
			printResult(c.App.Writer, res, c.Int("limit"))
			return nil
		},
	}
}

func printState(w io.Writer, st portfolio.LoadingState) {
	// page counts stay on the server; the client only sees the phase
	if !st.Loading() {
		return
	}
	fmt.Fprintf(w, "  %s\n", st.Message)
}

func printResult(w io.Writer, res *portfolio.Result, limit int) {
	a := res.Analysis
	fmt.Fprintf(w, "Wallet: %s\n", a.Address)
	fmt.Fprintf(w, "  Balance:             %.4f\n", res.Balance)
	fmt.Fprintf(w, "  Total bought:        %.4f\n", a.TotalBought)
	fmt.Fprintf(w, "  Total sold:          %.4f\n", a.TotalSold)
	fmt.Fprintf(w, "  Net holdings:        %.4f\n", a.NetHoldings)
	fmt.Fprintf(w, "  Avg entry price:     $%.8f\n", a.WeightedAverageEntryPrice)
	fmt.Fprintf(w, "  Transactions:        %d\n", len(a.Transactions))

	mode := "full"
	if res.WasIncremental {
		mode = fmt.Sprintf("incremental, %d from cache", res.FromCache)
	}
	fmt.Fprintf(w, "  Fetched:             %d (%s)\n", res.FetchedCount, mode)

	txs := a.Transactions
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	if len(txs) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, tx := range txs {
		printTransaction(w, tx)
	}
}

func printTransaction(w io.Writer, tx models.ParsedTransaction) {
	ts := time.UnixMilli(tx.Timestamp).UTC().Format("2006-01-02 15:04:05")
	price := "-"
	if tx.PricePerToken > 0 {
		price = fmt.Sprintf("$%.8f", tx.PricePerToken)
	}
	fmt.Fprintf(w, "  %s  %-4s  %16.4f  %14s  %s\n", ts, tx.Type, tx.TokenAmount, price, shortSignature(tx.Signature))
}

func shortSignature(sig string) string {
	if len(sig) > 12 {
		return sig[:12] + "..."
	}
	return sig
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
