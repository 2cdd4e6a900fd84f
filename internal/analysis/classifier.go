package analysis

import (
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/constants"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/models"
	"github.com/shopspring/decimal"
)

var minQuoteLamports = decimal.NewFromInt(constants.MinQuoteLamports)

// Classifier turns raw history records into target-token buys and sells.
type Classifier struct {
	tokenMint string
}

func NewClassifier(tokenMint string) *Classifier {
	if tokenMint == "" {
		tokenMint = constants.DefaultTokenMint
	}
	return &Classifier{tokenMint: tokenMint}
}

func (c *Classifier) TokenMint() string { return c.tokenMint }

// Classify returns nil when the record holds no target-token change owned by
// wallet. solPriceUSD converts native quote amounts into USD.
//
// The quote side is a heuristic: the first native delta above the fee
// threshold on an account tied to the wallet wins, otherwise the first
// USDC/USDT change owned by the wallet. Swaps routed through helper accounts
// can be priced wrong.
func (c *Classifier) Classify(tx models.RawTransaction, wallet string, solPriceUSD float64) *models.ParsedTransaction {
	change, ok := c.findTokenChange(tx, wallet)
	if !ok {
		return nil
	}

	raw, err := decimal.NewFromString(change.RawTokenAmount.TokenAmount)
	if err != nil {
		return nil
	}
	amount := raw.Abs().Shift(-change.RawTokenAmount.Decimals)

	txType := models.TxUnknown
	switch raw.Sign() {
	case 1:
		txType = models.TxBuy
	case -1:
		txType = models.TxSell
	}

	quote, quoteMint := findQuote(tx, wallet)

	price := decimal.Zero
	if amount.IsPositive() && quote.IsPositive() {
		if quoteMint == constants.MintSOL {
			price = quote.Mul(decimal.NewFromFloat(solPriceUSD)).Div(amount)
		} else {
			price = quote.Div(amount)
		}
	}

	return &models.ParsedTransaction{
		Signature:     tx.Signature,
		Timestamp:     tx.Timestamp * 1000,
		Type:          txType,
		TokenAmount:   amount.InexactFloat64(),
		QuoteAmount:   quote.InexactFloat64(),
		QuoteMint:     quoteMint,
		PricePerToken: price.InexactFloat64(),
	}
}

func (c *Classifier) findTokenChange(tx models.RawTransaction, wallet string) (models.TokenBalanceChange, bool) {
	for _, acc := range tx.AccountData {
		for _, ch := range acc.TokenBalanceChanges {
			if ch.Mint == c.tokenMint && ch.UserAccount == wallet {
				return ch, true
			}
		}
	}
	return models.TokenBalanceChange{}, false
}

func findQuote(tx models.RawTransaction, wallet string) (decimal.Decimal, string) {
	for _, acc := range tx.AccountData {
		if acc.NativeBalanceChange == 0 || !accountTiedToWallet(acc, wallet) {
			continue
		}
		lamports := decimal.NewFromInt(acc.NativeBalanceChange).Abs()
		if lamports.GreaterThan(minQuoteLamports) {
			return lamports.Shift(-9), constants.MintSOL
		}
	}

	for _, acc := range tx.AccountData {
		for _, ch := range acc.TokenBalanceChanges {
			if ch.UserAccount != wallet {
				continue
			}
			if _, stable := constants.StableMints[ch.Mint]; !stable {
				continue
			}
			raw, err := decimal.NewFromString(ch.RawTokenAmount.TokenAmount)
			if err != nil {
				continue
			}
			return raw.Abs().Shift(-ch.RawTokenAmount.Decimals), ch.Mint
		}
	}

	return decimal.Zero, constants.MintSOL
}

func accountTiedToWallet(acc models.AccountData, wallet string) bool {
	if acc.Account == wallet {
		return true
	}
	for _, ch := range acc.TokenBalanceChanges {
		if ch.UserAccount == wallet {
			return true
		}
	}
	return false
}
