package analysis

import (
	"testing"

	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parsed(sig string, ts int64, typ models.TxType, amount, price float64) models.ParsedTransaction {
	return models.ParsedTransaction{Signature: sig, Timestamp: ts, Type: typ, TokenAmount: amount, PricePerToken: price}
}

func TestSummarize_WeightedAverage(t *testing.T) {
	got := Summarize(testWallet, []models.ParsedTransaction{
		parsed("a", 1000, models.TxBuy, 100, 0.01),
		parsed("b", 2000, models.TxBuy, 50, 0.02),
	}, 42)

	assert.Equal(t, 150.0, got.TotalBought)
	assert.Zero(t, got.TotalSold)
	assert.Equal(t, 150.0, got.NetHoldings)
	assert.InDelta(t, 0.0133333333, got.WeightedAverageEntryPrice, 1e-9)
	assert.Equal(t, int64(42), got.AnalyzedAt)
	require.Len(t, got.Transactions, 2)
	assert.Equal(t, "b", got.Transactions[0].Signature, "newest first")
}

func TestSummarize_OnlySells(t *testing.T) {
	got := Summarize(testWallet, []models.ParsedTransaction{
		parsed("a", 1000, models.TxSell, 10, 0.5),
		parsed("b", 2000, models.TxSell, 5, 0.7),
	}, 0)

	assert.Equal(t, 0.0, got.WeightedAverageEntryPrice)
	assert.Equal(t, 15.0, got.TotalSold)
	assert.Equal(t, -15.0, got.NetHoldings)
}

func TestSummarize_UnpricedBuysExcludedFromAverage(t *testing.T) {
	got := Summarize(testWallet, []models.ParsedTransaction{
		parsed("a", 1000, models.TxBuy, 100, 0.01),
		parsed("b", 2000, models.TxBuy, 900, 0),
	}, 0)

	assert.Equal(t, 1000.0, got.TotalBought)
	assert.InDelta(t, 0.01, got.WeightedAverageEntryPrice, 1e-12)

	only := Summarize(testWallet, []models.ParsedTransaction{parsed("c", 1, models.TxBuy, 5, 0)}, 0)
	assert.Zero(t, only.WeightedAverageEntryPrice)
}

func TestSummarize_EmptyIsValid(t *testing.T) {
	got := Summarize(testWallet, nil, 7)
	assert.NotNil(t, got.Transactions)
	assert.Empty(t, got.Transactions)
	assert.Zero(t, got.TotalBought)
	assert.Zero(t, got.WeightedAverageEntryPrice)
}

func TestSummarize_DropsUnknown(t *testing.T) {
	got := Summarize(testWallet, []models.ParsedTransaction{
		parsed("a", 1, models.TxUnknown, 0, 0),
		parsed("b", 2, models.TxBuy, 1, 1),
	}, 0)
	require.Len(t, got.Transactions, 1)
	assert.Equal(t, "b", got.Transactions[0].Signature)
}

func TestSummarize_Idempotent(t *testing.T) {
	txs := []models.ParsedTransaction{
		parsed("a", 3000, models.TxBuy, 100, 0.01),
		parsed("b", 2000, models.TxSell, 40, 0.03),
		parsed("c", 1000, models.TxBuy, 50, 0.02),
	}
	first := Summarize(testWallet, txs, 1)
	second := Summarize(testWallet, first.Transactions, 1)
	assert.Equal(t, first, second)
}

func TestMerge(t *testing.T) {
	fresh := []models.ParsedTransaction{parsed("n2", 5, models.TxBuy, 1, 1), parsed("n1", 4, models.TxBuy, 1, 1)}
	cached := []models.ParsedTransaction{parsed("n1", 4, models.TxBuy, 1, 1), parsed("o1", 2, models.TxSell, 1, 1)}

	merged := Merge(fresh, cached)
	sigs := make([]string, 0, len(merged))
	for _, tx := range merged {
		sigs = append(sigs, tx.Signature)
	}
	assert.Equal(t, []string{"n2", "n1", "o1"}, sigs)
}
