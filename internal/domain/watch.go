package domain

import "time"

// ScorePoint is one entry of a watched account's score history.
type ScorePoint struct {
	Score     int       `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// WatchEntry is the read view of a watched account.
type WatchEntry struct {
	Account       Account      `json:"wallet"`
	AddedAt       time.Time    `json:"addedAt"`
	LastScore     int          `json:"lastScore"`
	LastGrade     Grade        `json:"lastGrade"`
	PreviousScore *int         `json:"previousScore"`
	History       []ScorePoint `json:"scoreHistory"`
}

// LastDelta returns LastScore - PreviousScore, or nil before the first rescore.
func (e WatchEntry) LastDelta() *int {
	if e.PreviousScore == nil {
		return nil
	}
	d := e.LastScore - *e.PreviousScore
	return &d
}

// ChangeEvent records a significant score change of a watched account.
// Corresponds to change_events table in ClickHouse.
type ChangeEvent struct {
	ID        string    `json:"id"`
	Account   Account   `json:"wallet"`
	OldScore  int       `json:"oldScore"`
	NewScore  int       `json:"newScore"`
	Delta     int       `json:"change"`
	Timestamp time.Time `json:"timestamp"`
}

// Direction returns "up", "down" or "stable".
func Direction(delta int) string {
	switch {
	case delta > 0:
		return "up"
	case delta < 0:
		return "down"
	default:
		return "stable"
	}
}
