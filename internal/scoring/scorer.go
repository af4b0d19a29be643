package scoring

import (
	"github.com/shopspring/decimal"

	"wallet-score/internal/domain"
)

// ScoreSignals computes the four sub-scores.
func ScoreSignals(s domain.SignalSet) domain.ScoreBreakdown {
	diversity := DiversityPoints(s.FungibleTokenCount, s.NFTCount)
	return domain.ScoreBreakdown{
		Age:       AgeLadder.Apply(decimal.NewFromInt(int64(s.AgeDays)), s),
		Activity:  ActivityLadder.Apply(decimal.NewFromInt(int64(s.TxCount)), s),
		Value:     ValueLadder.Apply(s.TotalValueHeld, s),
		Diversity: subScore(diversity, DiversityLabels.Match(decimal.NewFromInt(int64(diversity))), s),
	}
}

// Composite sums the breakdown, clamped to [0, 100].
func Composite(b domain.ScoreBreakdown) int {
	return max(0, min(domain.MaxScore, b.Total()))
}

// Score runs the full pipeline on one snapshot. An account without observed
// signatures is not scored and yields domain.ErrNoActivity.
// ComputedAt is the snapshot capture time.
func Score(snap *domain.LedgerSnapshot) (*domain.ScoreResult, error) {
	if len(snap.Signatures) == 0 {
		return nil, domain.WrapAccount(snap.Account.String(), domain.ErrNoActivity)
	}

	signals := ExtractSignals(snap)
	breakdown := ScoreSignals(signals)
	total := Composite(breakdown)
	badges := AwardBadges(BadgeInput{
		Signals:   signals,
		Breakdown: breakdown,
		Score:     total,
	})

	return &domain.ScoreResult{
		Account:    snap.Account,
		Score:      total,
		Grade:      GradeFor(total),
		Breakdown:  breakdown,
		Badges:     badges,
		Stats:      statsFor(snap, signals),
		ComputedAt: snap.CapturedAt,
	}, nil
}

func statsFor(snap *domain.LedgerSnapshot, s domain.SignalSet) domain.ScoreStats {
	var degraded []string
	if len(snap.Degraded) > 0 {
		degraded = append(degraded, snap.Degraded...)
	}
	return domain.ScoreStats{
		SOLBalance:           s.NativeBalance.Round(3),
		StakedSOL:            s.StakedValue.Round(3),
		TotalSOLValue:        s.TotalValueHeld.Round(3),
		TokenCount:           s.FungibleTokenCount,
		NFTCount:             s.NFTCount,
		TxCount:              s.TxCount,
		OldestTxDays:         s.AgeDays,
		LastActiveDays:       s.LastActiveDays,
		ProtocolInteractions: s.ProtocolInteractions,
		AccountKind:          snap.Account.Kind(),
		Degraded:             degraded,
	}
}
