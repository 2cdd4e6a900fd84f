package analysis

import (
	"sort"

	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/models"
	"github.com/shopspring/decimal"
)

// Summarize aggregates classified transactions into a WalletAnalysis. The
// input is sorted newest first in place; unknown entries are dropped.
//
// The weighted average only covers buys with a known price, so an unpriced
// buy counts toward totalBought but never drags the average to zero.
func Summarize(address string, txs []models.ParsedTransaction, analyzedAt int64) models.WalletAnalysis {
	kept := make([]models.ParsedTransaction, 0, len(txs))
	bought := decimal.Zero
	sold := decimal.Zero
	pricedBought := decimal.Zero
	weighted := decimal.Zero

	for _, tx := range txs {
		amount := decimal.NewFromFloat(tx.TokenAmount)
		switch tx.Type {
		case models.TxBuy:
			bought = bought.Add(amount)
			if tx.PricePerToken > 0 {
				pricedBought = pricedBought.Add(amount)
				weighted = weighted.Add(amount.Mul(decimal.NewFromFloat(tx.PricePerToken)))
			}
		case models.TxSell:
			sold = sold.Add(amount)
		default:
			continue
		}
		kept = append(kept, tx)
	}

	SortNewestFirst(kept)

	avg := decimal.Zero
	if pricedBought.IsPositive() {
		avg = weighted.Div(pricedBought)
	}

	return models.WalletAnalysis{
		Address:                   address,
		TotalBought:               bought.InexactFloat64(),
		TotalSold:                 sold.InexactFloat64(),
		NetHoldings:               bought.Sub(sold).InexactFloat64(),
		WeightedAverageEntryPrice: avg.InexactFloat64(),
		Transactions:              kept,
		AnalyzedAt:                analyzedAt,
	}
}

// SortNewestFirst orders by timestamp descending; ties keep input order.
func SortNewestFirst(txs []models.ParsedTransaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp > txs[j].Timestamp
	})
}

// Merge puts fresh records in front of cached ones, dropping any cached
// record whose signature also appears in fresh.
func Merge(fresh, cached []models.ParsedTransaction) []models.ParsedTransaction {
	seen := make(map[string]struct{}, len(fresh))
	out := make([]models.ParsedTransaction, 0, len(fresh)+len(cached))
	for _, tx := range fresh {
		seen[tx.Signature] = struct{}{}
		out = append(out, tx)
	}
	for _, tx := range cached {
		if _, dup := seen[tx.Signature]; dup {
			continue
		}
		seen[tx.Signature] = struct{}{}
		out = append(out, tx)
	}
	return out
}
