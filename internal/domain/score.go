package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxSubScore is the cap of every sub-score; MaxScore caps the composite.
const (
	MaxSubScore = 25
	MaxScore    = 100
)

// Grade is the letter classification of a composite score.
type Grade string

const (
	GradeS Grade = "S"
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// String returns the string representation of Grade.
func (g Grade) String() string {
	return string(g)
}

// IsValid checks if the grade is a valid value.
func (g Grade) IsValid() bool {
	switch g {
	case GradeS, GradeA, GradeB, GradeC, GradeD, GradeF:
		return true
	}
	return false
}

// SubScore is one bucketed signal score with its explanation.
type SubScore struct {
	Points    int    `json:"score"`
	MaxPoints int    `json:"maxScore"`
	Reason    string `json:"reason"`
	Details   string `json:"details"`
}

// ScoreBreakdown holds the four sub-scores.
type ScoreBreakdown struct {
	Age       SubScore `json:"age"`
	Activity  SubScore `json:"activity"`
	Value     SubScore `json:"balance"`
	Diversity SubScore `json:"diversity"`
}

// Total returns the unclamped sum of the sub-scores.
func (b ScoreBreakdown) Total() int {
	return b.Age.Points + b.Activity.Points + b.Value.Points + b.Diversity.Points
}

// HasPerfect reports whether any sub-score reached its cap.
func (b ScoreBreakdown) HasPerfect() bool {
	for _, s := range []SubScore{b.Age, b.Activity, b.Value, b.Diversity} {
		if s.Points == MaxSubScore {
			return true
		}
	}
	return false
}

// ScoreStats is the signal view returned alongside a score.
type ScoreStats struct {
	SOLBalance           decimal.Decimal `json:"solBalance"`
	StakedSOL            decimal.Decimal `json:"stakedSol"`
	TotalSOLValue        decimal.Decimal `json:"totalSolValue"`
	TokenCount           int             `json:"tokenCount"`
	NFTCount             int             `json:"nftCount"`
	TxCount              int             `json:"txCount"`
	OldestTxDays         int             `json:"oldestTxDays"`
	LastActiveDays       int             `json:"lastActiveDays"`
	ProtocolInteractions *int            `json:"protocolInteractions,omitempty"`
	AccountKind          string          `json:"accountKind"`
	Degraded             []string        `json:"degraded,omitempty"`
}

// ScoreResult is an immutable scoring outcome for one account.
type ScoreResult struct {
	Account    Account        `json:"wallet"`
	Score      int            `json:"score"`
	Grade      Grade          `json:"grade"`
	Breakdown  ScoreBreakdown `json:"breakdown"`
	Badges     []Badge        `json:"badges"`
	Stats      ScoreStats     `json:"stats"`
	ComputedAt time.Time      `json:"timestamp"`
}

// Clone returns a copy that shares no slices or pointers with r.
func (r *ScoreResult) Clone() *ScoreResult {
	if r == nil {
		return nil
	}
	c := *r
	if r.Badges != nil {
		c.Badges = append([]Badge(nil), r.Badges...)
	}
	if r.Stats.Degraded != nil {
		c.Stats.Degraded = append([]string(nil), r.Stats.Degraded...)
	}
	if r.Stats.ProtocolInteractions != nil {
		n := *r.Stats.ProtocolInteractions
		c.Stats.ProtocolInteractions = &n
	}
	return &c
}

// ScoreRecord is the archived projection of a ScoreResult.
// Corresponds to score_records table in PostgreSQL.
type ScoreRecord struct {
	Account        Account   `json:"wallet"`
	Score          int       `json:"score"`
	Grade          Grade     `json:"grade"`
	AgePoints      int       `json:"agePoints"`
	ActivityPoints int       `json:"activityPoints"`
	ValuePoints    int       `json:"balancePoints"`
	DiversityPts   int       `json:"diversityPoints"`
	BadgeIDs       []string  `json:"badges"`
	ComputedAt     time.Time `json:"timestamp"`
}

// NewScoreRecord projects a result into its archived form.
func NewScoreRecord(r *ScoreResult) *ScoreRecord {
	ids := make([]string, len(r.Badges))
	for i, b := range r.Badges {
		ids[i] = b.ID
	}
	return &ScoreRecord{
		Account:        r.Account,
		Score:          r.Score,
		Grade:          r.Grade,
		AgePoints:      r.Breakdown.Age.Points,
		ActivityPoints: r.Breakdown.Activity.Points,
		ValuePoints:    r.Breakdown.Value.Points,
		DiversityPts:   r.Breakdown.Diversity.Points,
		BadgeIDs:       ids,
		ComputedAt:     r.ComputedAt,
	}
}
