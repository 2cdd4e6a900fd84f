package models

// WalletAnalysis aggregates a wallet's buy/sell history of the target token.
// Transactions are ordered newest first.
type WalletAnalysis struct {
	Address                   string              `json:"address"`
	TotalBought               float64             `json:"totalBought"`
	TotalSold                 float64             `json:"totalSold"`
	NetHoldings               float64             `json:"netHoldings"`
	WeightedAverageEntryPrice float64             `json:"weightedAverageEntryPrice"`
	Transactions              []ParsedTransaction `json:"transactions"`
	AnalyzedAt                int64               `json:"analyzedAt"` // unix millis
	Stale                     bool                `json:"stale,omitempty"`
}

// AnalysisResponse is the /wallet-analysis payload: the analysis plus the
// metadata a caller needs for its next incremental request.
type AnalysisResponse struct {
	WalletAnalysis
	NewestTxSignature string `json:"newestTxSignature,omitempty"`
	NewestTxTimestamp int64  `json:"newestTxTimestamp,omitempty"`
	FetchedCount      int    `json:"fetchedCount"`
	WasIncremental    bool   `json:"wasIncremental"`
}

// HoldingsResponse is the /wallet-holdings payload.
type HoldingsResponse struct {
	Address   string  `json:"address"`
	Balance   float64 `json:"balance"`
	Timestamp int64   `json:"timestamp"` // unix millis
}

// AnalysisEvent is published after the server completes an analysis.
type AnalysisEvent struct {
	Address                   string  `json:"address"`
	TotalBought               float64 `json:"totalBought"`
	TotalSold                 float64 `json:"totalSold"`
	WeightedAverageEntryPrice float64 `json:"weightedAverageEntryPrice"`
	TransactionCount          int     `json:"transactionCount"`
	FetchedCount              int     `json:"fetchedCount"`
	WasIncremental            bool    `json:"wasIncremental"`
	AnalyzedAt                int64   `json:"analyzedAt"`
}

// Event builds the pub/sub summary of an analysis response.
func (r *AnalysisResponse) Event() *AnalysisEvent {
	return &AnalysisEvent{
		Address:                   r.Address,
		TotalBought:               r.TotalBought,
		TotalSold:                 r.TotalSold,
		WeightedAverageEntryPrice: r.WeightedAverageEntryPrice,
		TransactionCount:          len(r.Transactions),
		FetchedCount:              r.FetchedCount,
		WasIncremental:            r.WasIncremental,
		AnalyzedAt:                r.AnalyzedAt,
	}
}
