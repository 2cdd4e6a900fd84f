// ============================================================================
// models/transaction.go
// ============================================================================
package models

// TxType classifies a transaction relative to the target token.
type TxType string

const (
	TxBuy     TxType = "buy"
	TxSell    TxType = "sell"
	TxUnknown TxType = "unknown"
)

// RawTransaction is one record of the upstream enhanced transaction history.
// Received as-is and never mutated.
type RawTransaction struct {
	Signature   string        `json:"signature"`
	Timestamp   int64         `json:"timestamp"` // unix seconds
	Type        string        `json:"type,omitempty"`
	Source      string        `json:"source,omitempty"`
	Fee         int64         `json:"fee,omitempty"`
	FeePayer    string        `json:"feePayer,omitempty"`
	AccountData []AccountData `json:"accountData"`
}

// AccountData holds the balance changes of a single account in a transaction.
type AccountData struct {
	Account             string               `json:"account"`
	NativeBalanceChange int64                `json:"nativeBalanceChange"` // lamports
	TokenBalanceChanges []TokenBalanceChange `json:"tokenBalanceChanges"`
}

// TokenBalanceChange is a signed token balance change owned by UserAccount.
type TokenBalanceChange struct {
	UserAccount    string         `json:"userAccount"`
	TokenAccount   string         `json:"tokenAccount"`
	Mint           string         `json:"mint"`
	RawTokenAmount RawTokenAmount `json:"rawTokenAmount"`
}

// RawTokenAmount is an integer amount in base units plus its decimal count.
type RawTokenAmount struct {
	TokenAmount string `json:"tokenAmount"`
	Decimals    int32  `json:"decimals"`
}

// ParsedTransaction is a classified buy/sell of the target token.
type ParsedTransaction struct {
	Signature     string  `json:"signature"`
	Timestamp     int64   `json:"timestamp"` // unix millis
	Type          TxType  `json:"type"`
	TokenAmount   float64 `json:"tokenAmount"`
	QuoteAmount   float64 `json:"quoteAmount"`
	QuoteMint     string  `json:"quoteMint"`
	PricePerToken float64 `json:"pricePerToken"` // USD per token, 0 when unknown
}

// FetchProgress is reported after every fetched history page.
type FetchProgress struct {
	CurrentPage        int  `json:"currentPage"`
	TransactionsLoaded int  `json:"transactionsLoaded"`
	IsIncremental      bool `json:"isIncremental"`
}
