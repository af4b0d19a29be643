package watchlist

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"wallet-score/internal/domain"
)

// Report and alert parameters.
const (
	ReportWindow      = 24 * time.Hour
	reportPerformers  = 5
	reportSignificant = 10
)

// Performer is a compact entry view used in report rankings.
type Performer struct {
	Account domain.Account `json:"wallet"`
	Score   int            `json:"score"`
	Grade   domain.Grade   `json:"grade"`
}

// EntryChange is a watched account whose last rescore moved its score.
type EntryChange struct {
	Account       domain.Account `json:"wallet"`
	Score         int            `json:"score"`
	Grade         domain.Grade   `json:"grade"`
	PreviousScore int            `json:"previousScore"`
	Change        int            `json:"change"`
	AddedAt       time.Time      `json:"addedAt"`
}

// Report is a read-only summary of the watchlist.
type Report struct {
	Generated         time.Time            `json:"generated"`
	Count             int                  `json:"watchlistCount"`
	AverageScore      float64              `json:"averageScore"`
	GradeDistribution map[domain.Grade]int `json:"gradeDistribution"`
	TopPerformers     []Performer          `json:"topPerformers"`
	BottomPerformers  []Performer          `json:"bottomPerformers"`
	Significant       []EntryChange        `json:"significantChanges"`
	RecentChanges     []domain.ChangeEvent `json:"recentChanges24h"`
	Summary           string               `json:"summary"`
}

// Report builds a summary of the current entries. It never mutates state.
func (w *Watchlist) Report() *Report {
	now := w.now()
	entries := w.List()

	r := &Report{
		Generated:         now,
		Count:             len(entries),
		GradeDistribution: make(map[domain.Grade]int),
		TopPerformers:     []Performer{},
		BottomPerformers:  []Performer{},
		Significant:       []EntryChange{},
		RecentChanges:     []domain.ChangeEvent{},
	}
	if len(entries) == 0 {
		r.Summary = "No wallets in watchlist"
		return r
	}

	total := 0
	for _, e := range entries {
		total += e.LastScore
		r.GradeDistribution[e.LastGrade]++
	}
	r.AverageScore = math.Round(float64(total)/float64(len(entries))*10) / 10

	// entries are sorted by score descending
	for i := 0; i < len(entries) && i < reportPerformers; i++ {
		r.TopPerformers = append(r.TopPerformers, performer(entries[i]))
	}
	for i := len(entries) - 1; i >= 0 && i >= len(entries)-reportPerformers; i-- {
		r.BottomPerformers = append(r.BottomPerformers, performer(entries[i]))
	}

	for _, e := range entries {
		d := e.LastDelta()
		if d == nil || !isSignificant(*d) {
			continue
		}
		r.Significant = append(r.Significant, EntryChange{
			Account:       e.Account,
			Score:         e.LastScore,
			Grade:         e.LastGrade,
			PreviousScore: *e.PreviousScore,
			Change:        *d,
			AddedAt:       e.AddedAt,
		})
	}
	sort.SliceStable(r.Significant, func(i, j int) bool {
		return abs(r.Significant[i].Change) > abs(r.Significant[j].Change)
	})
	flagged := len(r.Significant)
	if flagged > reportSignificant {
		r.Significant = r.Significant[:reportSignificant]
	}

	if recent := w.changesSince(now.Add(-ReportWindow)); recent != nil {
		r.RecentChanges = recent
	}

	if flagged > 0 {
		r.Summary = fmt.Sprintf("%d wallet(s) with score changes > %d points", flagged, SignificantDelta)
	} else {
		r.Summary = "No significant score changes detected"
	}
	return r
}

// Alert is an outbound notification payload.
type Alert struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Changes int    `json:"changesCount"`
}

// Alert builds a payload from the change events of the trailing 24 hours.
// Returns nil when there is nothing to report.
func (w *Watchlist) Alert() *Alert {
	return BuildAlert(w.changesSince(w.now().Add(-ReportWindow)))
}

// BuildAlert formats changes into an alert. Returns nil for no changes.
func BuildAlert(changes []domain.ChangeEvent) *Alert {
	if len(changes) == 0 {
		return nil
	}

	lines := make([]string, len(changes))
	for i, c := range changes {
		icon, sign := "📉", ""
		if c.Delta > 0 {
			icon, sign = "📈", "+"
		}
		lines[i] = fmt.Sprintf("%s `%s...`: %d → %d (%s%d)", icon, c.Account.Short(), c.OldScore, c.NewScore, sign, c.Delta)
	}

	return &Alert{
		Title: fmt.Sprintf("🔔 BlockScore Alert: %d Significant Score Change(s)", len(changes)),
		Content: "**Wallet Score Changes Detected**\n\n" +
			strings.Join(lines, "\n") +
			"\n\n---\n*Generated by BlockScore Monitoring*",
		Changes: len(changes),
	}
}

func performer(e domain.WatchEntry) Performer {
	return Performer{Account: e.Account, Score: e.LastScore, Grade: e.LastGrade}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
