// Package scoring turns ledger snapshots into reputation scores.
//
// Every function in this package is pure: the same snapshot always yields
// the same result.
package scoring

import (
	"github.com/shopspring/decimal"

	"wallet-score/internal/domain"
)

const secondsPerDay = 86400

var lamportsPerSOL = decimal.NewFromInt(1_000_000_000)

// LiquidStakingMints maps allow-listed liquid-staking token mints to their symbol.
// Their amounts count 1:1 as staked SOL.
var LiquidStakingMints = map[string]string{
	"mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So":  "mSOL",
	"J1toso1uCk3RLmjorhTtrVwY9HJ7X8V9yYac6Y7kGCPn": "jitoSOL",
	"bSo13r4TkiE4KumL71LsHTPpL2euBYLFx6h9HP3piy1":  "bSOL",
	"7dHbWXmci3dT8UFYWYZweBLXgycu7Y3iL6trKn1Y7ARj": "stSOL",
	"he1iusmfkpAdwvxLNGV8Y1iSbj4rUy6yMhEA3fotn9A":  "hSOL",
	"LSTxxxnJzKDFSLr4dUkPcmCf5VyryEqzPLz5j4bpxFp":  "LST",
}

// ExtractSignals derives the canonical signal set from a snapshot.
//
// Ages are measured against snap.CapturedAt. AgeDays uses the oldest sampled
// signature, which is a lower bound on true age when the sample is truncated.
func ExtractSignals(snap *domain.LedgerSnapshot) domain.SignalSet {
	var s domain.SignalSet

	s.TxCount = len(snap.Signatures)
	if s.TxCount > 0 {
		s.AgeDays = daysSince(snap, snap.Signatures[s.TxCount-1].BlockTime)
		s.LastActiveDays = daysSince(snap, snap.Signatures[0].BlockTime)
	}

	staked := decimal.Zero
	for _, h := range snap.Holdings {
		if !h.Amount.IsPositive() {
			continue
		}
		if _, ok := LiquidStakingMints[h.Mint]; ok {
			staked = staked.Add(h.Amount)
		}
		if h.IsNFT() {
			s.NFTCount++
		} else {
			s.FungibleTokenCount++
		}
	}

	s.NativeBalance = decimal.NewFromUint64(snap.Lamports).Div(lamportsPerSOL)
	s.StakedValue = staked
	s.TotalValueHeld = s.NativeBalance.Add(staked)

	if p := snap.ProtocolSample; p != nil && p.Sampled > 0 {
		est := int(decimal.NewFromInt(int64(p.Interactions)).
			Mul(decimal.NewFromInt(int64(s.TxCount))).
			Div(decimal.NewFromInt(int64(p.Sampled))).
			Round(0).
			IntPart())
		s.ProtocolInteractions = &est
	}

	return s
}

// daysSince returns whole days between blockTime and the capture time,
// zero when the time is unknown or in the future.
func daysSince(snap *domain.LedgerSnapshot, blockTime *int64) int {
	if blockTime == nil {
		return 0
	}
	days := (snap.CapturedAt.Unix() - *blockTime) / secondsPerDay
	if days < 0 {
		return 0
	}
	return int(days)
}
