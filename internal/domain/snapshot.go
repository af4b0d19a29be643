package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerSnapshot is a single read of ledger state used as the sole input
// to one scoring pass. It is never persisted.
type LedgerSnapshot struct {
	Account    Account
	CapturedAt time.Time // single clock read shared by all derived ages

	Lamports   uint64         // native balance in base units
	Signatures []SignatureRef // newest first, bounded sample
	Holdings   []TokenHolding

	// ProtocolSample is set only when protocol sampling is enabled.
	ProtocolSample *ProtocolSample

	// Degraded names sub-queries that failed and fell back to defaults.
	Degraded []string
}

// SignatureRef is one entry of an account's signature history.
type SignatureRef struct {
	Signature string
	Slot      int64
	BlockTime *int64 // Unix seconds, nil when the ledger does not know it
}

// TokenHolding is one token account owned by the wallet.
type TokenHolding struct {
	Mint     string
	Decimals uint8
	Amount   decimal.Decimal // UI amount (raw amount shifted by decimals)
}

// IsNFT reports whether the holding looks like a non-fungible token:
// zero decimals and an amount of exactly one.
func (h TokenHolding) IsNFT() bool {
	return h.Decimals == 0 && h.Amount.Equal(decimal.NewFromInt(1))
}

// ProtocolSample counts known-protocol transactions among the most recent ones.
type ProtocolSample struct {
	Sampled      int
	Interactions int
}

// SignalSet is the canonical numeric view of a snapshot.
type SignalSet struct {
	AgeDays            int
	LastActiveDays     int
	TxCount            int
	NativeBalance      decimal.Decimal
	StakedValue        decimal.Decimal
	TotalValueHeld     decimal.Decimal
	FungibleTokenCount int
	NFTCount           int

	// ProtocolInteractions is an extrapolated estimate, nil when not sampled.
	ProtocolInteractions *int
}

// StakeRatio returns StakedValue / TotalValueHeld, zero when nothing is held.
func (s SignalSet) StakeRatio() decimal.Decimal {
	if !s.TotalValueHeld.IsPositive() {
		return decimal.Zero
	}
	return s.StakedValue.Div(s.TotalValueHeld)
}
