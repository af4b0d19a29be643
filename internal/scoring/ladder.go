package scoring

import (
	"fmt"

	"github.com/shopspring/decimal"

	"wallet-score/internal/domain"
)

// Rung is one bucket of a ladder. A value belongs to the first rung,
// scanning from the top, whose Min it reaches.
type Rung struct {
	Min     decimal.Decimal
	Points  int
	Reason  string
	Details func(s domain.SignalSet) string
}

// Ladder is an ordered band table with inclusive lower bounds.
type Ladder struct {
	Rungs []Rung // highest Min first
	Floor Rung   // applies below every rung; Min is ignored
}

// Match returns the rung v falls into.
func (l Ladder) Match(v decimal.Decimal) Rung {
	for _, r := range l.Rungs {
		if v.GreaterThanOrEqual(r.Min) {
			return r
		}
	}
	return l.Floor
}

// Apply scores v and explains it with the same rung.
func (l Ladder) Apply(v decimal.Decimal, s domain.SignalSet) domain.SubScore {
	r := l.Match(v)
	return subScore(r.Points, r, s)
}

func subScore(points int, r Rung, s domain.SignalSet) domain.SubScore {
	out := domain.SubScore{
		Points:    points,
		MaxPoints: domain.MaxSubScore,
		Reason:    r.Reason,
	}
	if r.Details != nil {
		out.Details = r.Details(s)
	}
	return out
}

func rung(lo string, points int, reason string, details func(domain.SignalSet) string) Rung {
	return Rung{Min: decimal.RequireFromString(lo), Points: points, Reason: reason, Details: details}
}

func ageDetails(suffix string) func(domain.SignalSet) string {
	return func(s domain.SignalSet) string {
		return fmt.Sprintf("%d days old - %s", s.AgeDays, suffix)
	}
}

func activityDetails(suffix string) func(domain.SignalSet) string {
	return func(s domain.SignalSet) string {
		return fmt.Sprintf("%d transactions - %s", s.TxCount, suffix)
	}
}

func valueDetails(places int32, withStaking bool, suffix string) func(domain.SignalSet) string {
	return func(s domain.SignalSet) string {
		note := ""
		if withStaking && s.StakedValue.IsPositive() {
			note = fmt.Sprintf(" (%s staked)", s.StakedValue.StringFixed(2))
		}
		return fmt.Sprintf("%s SOL total%s - %s", s.TotalValueHeld.StringFixed(places), note, suffix)
	}
}

func diversityDetails(suffix string) func(domain.SignalSet) string {
	return func(s domain.SignalSet) string {
		return fmt.Sprintf("%d tokens + %d NFTs - %s", s.FungibleTokenCount, s.NFTCount, suffix)
	}
}

// AgeLadder scores wallet age in days: 5 points per complete 30 days, capped at 25.
var AgeLadder = Ladder{
	Rungs: []Rung{
		rung("150", 25, "Veteran wallet", ageDetails("maximum maturity achieved")),
		rung("120", 20, "Well-established", ageDetails("4+ months of history")),
		rung("90", 15, "Established wallet", ageDetails("3+ months on-chain")),
		rung("60", 10, "Growing history", ageDetails("building credibility")),
		rung("30", 5, "New but active", ageDetails("1+ month of activity")),
	},
	Floor: Rung{Points: 0, Reason: "Fresh wallet", Details: func(s domain.SignalSet) string {
		return fmt.Sprintf("Only %d days old - needs more history", s.AgeDays)
	}},
}

// ActivityLadder scores sampled transaction count: 5 points per complete 10, capped at 25.
var ActivityLadder = Ladder{
	Rungs: []Rung{
		rung("50", 25, "Highly active", activityDetails("power user status")),
		rung("40", 20, "Very active", activityDetails("frequent usage")),
		rung("30", 15, "Active user", activityDetails("regular engagement")),
		rung("20", 10, "Moderate activity", activityDetails("average usage")),
		rung("10", 5, "Low activity", activityDetails("occasional user")),
	},
	Floor: Rung{Points: 0, Reason: "Minimal activity", Details: func(s domain.SignalSet) string {
		return fmt.Sprintf("Only %d transactions - limited engagement", s.TxCount)
	}},
}

// ValueLadder scores total SOL value held (native plus liquid-staked).
var ValueLadder = Ladder{
	Rungs: []Rung{
		rung("100", 25, "Whale status", valueDetails(2, true, "significant holdings")),
		rung("50", 20, "Major holder", valueDetails(2, true, "substantial position")),
		rung("10", 15, "Solid holdings", valueDetails(2, true, "meaningful stake")),
		rung("1", 10, "Modest holdings", valueDetails(2, true, "some skin in the game")),
		rung("0.1", 5, "Small holdings", valueDetails(3, false, "minimal funds")),
	},
	Floor: Rung{Points: 0, Reason: "Dust account", Details: valueDetails(4, false, "needs funding")},
}

// DiversityLabels explains diversity points. The points themselves come
// from DiversityPoints, so the label is chosen from the produced points.
var DiversityLabels = Ladder{
	Rungs: []Rung{
		rung("20", 0, "Highly diversified", diversityDetails("excellent portfolio diversity")),
		rung("15", 0, "Well diversified", diversityDetails("good asset spread")),
		rung("9", 0, "Moderately diversified", diversityDetails("some variety")),
		rung("3", 0, "Limited diversity", diversityDetails("concentrated holdings")),
	},
	Floor: Rung{Reason: "Minimal diversity", Details: diversityDetails("needs diversification")},
}

// DiversityPoints returns min(25, 3 per fungible token + min(5, one per 5 NFTs)).
func DiversityPoints(fungible, nfts int) int {
	bonus := nfts / 5
	if bonus > 5 {
		bonus = 5
	}
	return min(domain.MaxSubScore, fungible*3+bonus)
}
