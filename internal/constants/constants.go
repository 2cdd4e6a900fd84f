package constants

import "time"

// Default target token. Overridable through TOKEN_MINT.
const DefaultTokenMint = "63LfDmNb3MQ8mw9MtZ2To9bEA2M71kZUUGq5tiJxcqj9"

// Quote currency mints
const (
	MintSOL  = "So11111111111111111111111111111111111111112"
	MintUSDC = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	MintUSDT = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

// StableMints are priced 1:1 against USD.
var StableMints = map[string]string{
	MintUSDC: "USDC",
	MintUSDT: "USDT",
}

// Upstream paging
const (
	HistoryPageSize = 100
	HistoryMaxPages = 50 // hard cap, up to 5000 records
)

// Classification
const (
	LamportsPerSOL = 1_000_000_000
	// Native deltas at or below this many lamports are treated as network fees.
	MinQuoteLamports = 100_000
)

// Local cache
const (
	MaxCachedWallets   = 10
	CacheSchemaVersion = 1
)

// Redis keys
const (
	RedisKeyAnalysisPrefix  = "analysis:"
	RedisKeyWalletIndex     = "walletcache:wallets"
	RedisKeyWalletPrefix    = "walletcache:wallet:"
	RedisKeyWalletTxsPrefix = "walletcache:txs:"
)

// Redis Pub/Sub channels
const (
	PubSubChannelAnalysisAll    = "wallet:analysis:all"
	PubSubChannelAnalysisPrefix = "wallet:analysis:"
)

// Server-side analysis cache
const (
	DefaultAnalysisCacheTTL = 5 * time.Minute
	DefaultAnalysisStaleTTL = 24 * time.Hour
)
