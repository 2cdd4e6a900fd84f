package rpc

// RPCError represents a JSON-RPC error response
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// TokenAmount represents token balance information
type TokenAmount struct {
	Amount         string  `json:"amount"`
	Decimals       int     `json:"decimals"`
	UIAmountString string  `json:"uiAmountString"`
	UIAmount       float64 `json:"uiAmount"`
}

// ParsedTokenAccount is the jsonParsed body of an SPL token account.
type ParsedTokenAccount struct {
	Parsed struct {
		Info struct {
			Mint        string      `json:"mint"`
			Owner       string      `json:"owner"`
			TokenAmount TokenAmount `json:"tokenAmount"`
		} `json:"info"`
		Type string `json:"type"`
	} `json:"parsed"`
	Program string `json:"program"`
}

// KeyedTokenAccount pairs a token account address with its parsed data.
type KeyedTokenAccount struct {
	Pubkey  string `json:"pubkey"`
	Account struct {
		Data     ParsedTokenAccount `json:"data"`
		Lamports uint64             `json:"lamports"`
	} `json:"account"`
}

// TokenAccountsResponse is the response from getTokenAccountsByOwner
type TokenAccountsResponse struct {
	Result struct {
		Value []KeyedTokenAccount `json:"value"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}
