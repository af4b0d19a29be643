package ledger

import (
	"strings"

	"wallet-score/internal/solana"
)

// Known DeFi program IDs counted as protocol interactions.
const (
	JupiterV6     = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"
	RaydiumAMMV4  = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	OrcaWhirlpool = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"
	Marinade      = "MarBmsSgKXdrN1egZf5sqe1TMai9K1rChYNDJgjq7aD"
	MeteoraDLMM   = "LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo"
)

// KnownPrograms maps program ID to protocol name.
var KnownPrograms = map[string]string{
	JupiterV6:     "jupiter",
	RaydiumAMMV4:  "raydium",
	OrcaWhirlpool: "orca",
	Marinade:      "marinade",
	MeteoraDLMM:   "meteora",
}

// TouchesKnownProgram reports whether tx references a known DeFi program,
// either as an account key or through a program invoke log line.
func TouchesKnownProgram(tx *solana.Transaction) bool {
	if tx == nil {
		return false
	}
	if tx.Message != nil {
		for _, key := range tx.Message.AccountKeys {
			if _, ok := KnownPrograms[key]; ok {
				return true
			}
		}
	}
	if tx.Meta != nil {
		for _, log := range tx.Meta.LogMessages {
			if !strings.HasPrefix(log, "Program ") || !strings.Contains(log, " invoke") {
				continue
			}
			fields := strings.Fields(log)
			if len(fields) < 2 {
				continue
			}
			if _, ok := KnownPrograms[fields[1]]; ok {
				return true
			}
		}
	}
	return false
}
