// Package watchlist tracks score history for a set of accounts and records
// significant score changes.
package watchlist

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wallet-score/internal/domain"
	"wallet-score/internal/observability"
	"wallet-score/internal/storage"
)

// Capacity and threshold constants.
const (
	MaxHistory = 50
	MaxChanges = 100
	// SignificantDelta is exclusive: a change must exceed it.
	SignificantDelta = 5
)

// Scorer is the scoring pipeline the watchlist drives.
type Scorer interface {
	Resolve(ctx context.Context, id string) (domain.Account, error)
	ScoreAccount(ctx context.Context, account domain.Account) (*domain.ScoreResult, error)
	Refresh(ctx context.Context, account domain.Account) (*domain.ScoreResult, error)
}

// Notifier receives significant change events as they are recorded.
type Notifier interface {
	NotifyChange(event domain.ChangeEvent)
}

// ChangeInfo describes the transition applied by one rescore.
type ChangeInfo struct {
	PreviousScore int    `json:"previousScore"`
	NewScore      int    `json:"newScore"`
	Change        int    `json:"change"`
	Significant   bool   `json:"significantChange"`
	Direction     string `json:"direction"`
}

// RescoreResult is the outcome of Rescore. Change is nil for unwatched accounts.
type RescoreResult struct {
	Result  *domain.ScoreResult
	Watched bool
	Change  *ChangeInfo
}

// BulkItem is the per-account outcome of BulkRescore.
type BulkItem struct {
	Account       domain.Account `json:"wallet"`
	PreviousScore int            `json:"previousScore"`
	NewScore      int            `json:"newScore"`
	Change        int            `json:"change"`
	Significant   bool           `json:"significantChange"`
	Error         string         `json:"error,omitempty"`
}

// BulkResult aggregates a BulkRescore pass.
type BulkResult struct {
	Rescored    int        `json:"rescored"`
	Failed      int        `json:"failed"`
	Items       []BulkItem `json:"results"`
	Significant []BulkItem `json:"significantChanges"`
}

// Watchlist is the in-memory set of watched accounts and the global change log.
// State is not durable. Safe for concurrent use.
type Watchlist struct {
	mu      sync.RWMutex
	entries map[domain.Account]*domain.WatchEntry
	changes []domain.ChangeEvent

	scorer   Scorer
	sink     storage.ChangeEventStore
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures Watchlist.
type Option func(*Watchlist)

// WithClock overrides the clock used for history and change timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Watchlist) {
		w.now = now
	}
}

// WithSink exports every significant change event to store.
func WithSink(store storage.ChangeEventStore) Option {
	return func(w *Watchlist) {
		w.sink = store
	}
}

// WithNotifier forwards every significant change event to n.
func WithNotifier(n Notifier) Option {
	return func(w *Watchlist) {
		w.notifier = n
	}
}

// New creates an empty watchlist.
func New(scorer Scorer, logger *zap.Logger, opts ...Option) *Watchlist {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Watchlist{
		entries: make(map[domain.Account]*domain.WatchEntry),
		scorer:  scorer,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Add starts watching id. The account must score successfully first.
func (w *Watchlist) Add(ctx context.Context, id string) (domain.WatchEntry, error) {
	account, err := w.scorer.Resolve(ctx, id)
	if err != nil {
		return domain.WatchEntry{}, err
	}

	w.mu.RLock()
	_, exists := w.entries[account]
	w.mu.RUnlock()
	if exists {
		return domain.WatchEntry{}, &domain.AccountError{Account: account.String(), Err: domain.ErrAlreadyWatched}
	}

	result, err := w.scorer.ScoreAccount(ctx, account)
	if err != nil {
		return domain.WatchEntry{}, err
	}

	now := w.now()
	w.mu.Lock()
	if _, exists := w.entries[account]; exists {
		w.mu.Unlock()
		return domain.WatchEntry{}, &domain.AccountError{Account: account.String(), Err: domain.ErrAlreadyWatched}
	}
	entry := &domain.WatchEntry{
		Account:   account,
		AddedAt:   now,
		LastScore: result.Score,
		LastGrade: result.Grade,
		History:   []domain.ScorePoint{{Score: result.Score, Timestamp: now}},
	}
	w.entries[account] = entry
	n := len(w.entries)
	view := copyEntry(entry)
	w.mu.Unlock()

	observability.UpdateWatchlistSize(n)
	w.logger.Info("account watched",
		zap.String("account", account.String()),
		zap.Int("score", result.Score),
		zap.Int("watchlist_size", n),
	)
	return view, nil
}

// Remove stops watching id.
func (w *Watchlist) Remove(ctx context.Context, id string) error {
	account, err := w.scorer.Resolve(ctx, id)
	if err != nil {
		return err
	}

	w.mu.Lock()
	if _, ok := w.entries[account]; !ok {
		w.mu.Unlock()
		return &domain.AccountError{Account: account.String(), Err: domain.ErrNotWatched}
	}
	delete(w.entries, account)
	n := len(w.entries)
	w.mu.Unlock()

	observability.UpdateWatchlistSize(n)
	w.logger.Info("account unwatched", zap.String("account", account.String()), zap.Int("watchlist_size", n))
	return nil
}

// Len returns the number of watched accounts.
func (w *Watchlist) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entries)
}

// Get returns a copy of the entry for account.
func (w *Watchlist) Get(account domain.Account) (domain.WatchEntry, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entries[account]
	if !ok {
		return domain.WatchEntry{}, false
	}
	return copyEntry(e), true
}

// List returns copies of all entries, highest score first.
func (w *Watchlist) List() []domain.WatchEntry {
	w.mu.RLock()
	out := make([]domain.WatchEntry, 0, len(w.entries))
	for _, e := range w.entries {
		out = append(out, copyEntry(e))
	}
	w.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].LastScore != out[j].LastScore {
			return out[i].LastScore > out[j].LastScore
		}
		return out[i].Account < out[j].Account
	})
	return out
}

// RecentChanges returns up to n most recent change events, oldest first.
// n <= 0 returns the whole log.
func (w *Watchlist) RecentChanges(n int) []domain.ChangeEvent {
	w.mu.RLock()
	defer w.mu.RUnlock()
	start := 0
	if n > 0 && len(w.changes) > n {
		start = len(w.changes) - n
	}
	return append([]domain.ChangeEvent(nil), w.changes[start:]...)
}

// changesSince returns change events strictly after t, oldest first.
func (w *Watchlist) changesSince(t time.Time) []domain.ChangeEvent {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []domain.ChangeEvent
	for _, c := range w.changes {
		if c.Timestamp.After(t) {
			out = append(out, c)
		}
	}
	return out
}

// Rescore recomputes id bypassing the cache. For a watched account the
// entry is advanced and a significant change is recorded; an unwatched
// account only gets the fresh score.
func (w *Watchlist) Rescore(ctx context.Context, id string) (*RescoreResult, error) {
	account, err := w.scorer.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return w.rescore(ctx, account)
}

func (w *Watchlist) rescore(ctx context.Context, account domain.Account) (*RescoreResult, error) {
	result, err := w.scorer.Refresh(ctx, account)
	if err != nil {
		return nil, err
	}

	info, event, watched := w.apply(account, result)
	if !watched {
		return &RescoreResult{Result: result}, nil
	}

	observability.RecordRescore(info.Significant, info.Direction)
	if event != nil {
		w.publish(ctx, *event)
	}
	return &RescoreResult{Result: result, Watched: true, Change: info}, nil
}

// apply advances the entry under the lock.
func (w *Watchlist) apply(account domain.Account, result *domain.ScoreResult) (*ChangeInfo, *domain.ChangeEvent, bool) {
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	entry, ok := w.entries[account]
	if !ok {
		return nil, nil, false
	}

	previous := entry.LastScore
	delta := result.Score - previous

	entry.PreviousScore = &previous
	entry.LastScore = result.Score
	entry.LastGrade = result.Grade
	entry.History = append(entry.History, domain.ScorePoint{Score: result.Score, Timestamp: now})
	if over := len(entry.History) - MaxHistory; over > 0 {
		entry.History = append([]domain.ScorePoint(nil), entry.History[over:]...)
	}

	info := &ChangeInfo{
		PreviousScore: previous,
		NewScore:      result.Score,
		Change:        delta,
		Significant:   isSignificant(delta),
		Direction:     domain.Direction(delta),
	}
	if !info.Significant {
		return info, nil, true
	}

	event := domain.ChangeEvent{
		ID:        uuid.NewString(),
		Account:   account,
		OldScore:  previous,
		NewScore:  result.Score,
		Delta:     delta,
		Timestamp: now,
	}
	w.changes = append(w.changes, event)
	if over := len(w.changes) - MaxChanges; over > 0 {
		w.changes = append([]domain.ChangeEvent(nil), w.changes[over:]...)
	}
	return info, &event, true
}

// publish exports event to the sink and the notifier. Failures are logged only.
func (w *Watchlist) publish(ctx context.Context, event domain.ChangeEvent) {
	w.logger.Info("significant score change",
		zap.String("account", event.Account.String()),
		zap.Int("old_score", event.OldScore),
		zap.Int("new_score", event.NewScore),
		zap.Int("delta", event.Delta),
	)

	if w.sink != nil {
		if err := w.sink.Insert(context.WithoutCancel(ctx), &event); err != nil {
			w.logger.Warn("export change event", zap.String("id", event.ID), zap.Error(err))
		}
	}
	if w.notifier != nil {
		w.notifier.NotifyChange(event)
	}
}

// BulkRescore rescores every watched account one at a time, in the order
// they were added. A failing account is reported and does not stop the pass.
func (w *Watchlist) BulkRescore(ctx context.Context) (*BulkResult, error) {
	w.mu.RLock()
	entries := make([]*domain.WatchEntry, 0, len(w.entries))
	for _, e := range w.entries {
		entries = append(entries, e)
	}
	accounts := make([]domain.Account, len(entries))
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].AddedAt.Equal(entries[j].AddedAt) {
			return entries[i].AddedAt.Before(entries[j].AddedAt)
		}
		return entries[i].Account < entries[j].Account
	})
	for i, e := range entries {
		accounts[i] = e.Account
	}
	w.mu.RUnlock()

	out := &BulkResult{Items: []BulkItem{}, Significant: []BulkItem{}}
	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("bulk rescore interrupted: %w", err)
		}

		res, err := w.rescore(ctx, account)
		if err != nil {
			out.Failed++
			out.Items = append(out.Items, BulkItem{Account: account, Error: err.Error()})
			w.logger.Warn("rescore failed", zap.String("account", account.String()), zap.Error(err))
			continue
		}
		if !res.Watched {
			// removed while the pass was running
			continue
		}

		item := BulkItem{
			Account:       account,
			PreviousScore: res.Change.PreviousScore,
			NewScore:      res.Change.NewScore,
			Change:        res.Change.Change,
			Significant:   res.Change.Significant,
		}
		out.Rescored++
		out.Items = append(out.Items, item)
		if item.Significant {
			out.Significant = append(out.Significant, item)
		}
	}
	return out, nil
}

func isSignificant(delta int) bool {
	return delta > SignificantDelta || delta < -SignificantDelta
}

func copyEntry(e *domain.WatchEntry) domain.WatchEntry {
	out := *e
	if e.PreviousScore != nil {
		p := *e.PreviousScore
		out.PreviousScore = &p
	}
	out.History = append([]domain.ScorePoint(nil), e.History...)
	return out
}
