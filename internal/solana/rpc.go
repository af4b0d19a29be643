package solana

import "context"

// RPCClient defines the read-only Solana RPC HTTP interface used for scoring.
type RPCClient interface {
	// GetBalance retrieves the lamport balance of an account.
	GetBalance(ctx context.Context, address string) (uint64, error)

	// GetSignaturesForAddress retrieves signatures for an address, newest first.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetTokenAccountsByOwner retrieves parsed token accounts owned by an address.
	GetTokenAccountsByOwner(ctx context.Context, owner, programID string) ([]TokenAccount, error)

	// GetTransaction retrieves a transaction by signature.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err         interface{}
	LogMessages []string
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
}
