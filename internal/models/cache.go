package models

// WalletMetadata is the per-wallet record of the local cache, keyed by address.
type WalletMetadata struct {
	Address            string `json:"address"`
	LastFetchedAt      int64  `json:"lastFetchedAt"` // unix millis
	NewestTxSignature  string `json:"newestTxSignature"`
	NewestTxTimestamp  int64  `json:"newestTxTimestamp"`
	TotalCachedTxCount int    `json:"totalCachedTxCount"`
}

// CachedTransaction is a ParsedTransaction owned by a wallet, keyed by
// "<wallet>:<signature>".
type CachedTransaction struct {
	ID            string `json:"id"`
	WalletAddress string `json:"walletAddress"`
	ParsedTransaction
}

// CachedTransactionID returns the compound cache key of a wallet's transaction.
func CachedTransactionID(walletAddress, signature string) string {
	return walletAddress + ":" + signature
}

func NewCachedTransaction(walletAddress string, tx ParsedTransaction) CachedTransaction {
	return CachedTransaction{
		ID:                CachedTransactionID(walletAddress, tx.Signature),
		WalletAddress:     walletAddress,
		ParsedTransaction: tx,
	}
}
