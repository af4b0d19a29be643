package solana

// Well-known program IDs.
const (
	TokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	LamportsPerSOL = 1_000_000_000
)

// JSON-RPC error codes.
const (
	ErrCodeInvalidParams = -32602
)

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// TokenAccount is a parsed SPL token account from getTokenAccountsByOwner.
type TokenAccount struct {
	Pubkey         string
	Mint           string
	Owner          string
	Amount         string // raw integer amount as returned by the node
	Decimals       uint8
	UIAmountString string
}
