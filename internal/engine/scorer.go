// Package engine runs the scoring pipeline: identifier resolution, cache,
// ledger snapshot, scoring and archival.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"wallet-score/internal/cache"
	"wallet-score/internal/domain"
	"wallet-score/internal/observability"
	"wallet-score/internal/scoring"
	"wallet-score/internal/sns"
	"wallet-score/internal/storage"
)

// Default configuration values.
const (
	DefaultBatchTimeout = 30 * time.Second
	MaxBatchSize        = 10
)

// Score outcomes reported to metrics.
const (
	outcomeComputed   = "computed"
	outcomeCached     = "cached"
	outcomeNoActivity = "no_activity"
	outcomeError      = "error"
	outcomeAbandoned  = "abandoned"
)

// SnapshotSource reads the ledger state of one account.
type SnapshotSource interface {
	Snapshot(ctx context.Context, account domain.Account) (*domain.LedgerSnapshot, error)
}

// Config configures the Scorer.
type Config struct {
	// BatchTimeout bounds the wall-clock time of one ScoreBatch call.
	BatchTimeout time.Duration
}

// DefaultConfig returns the default scorer configuration.
func DefaultConfig() Config {
	return Config{BatchTimeout: DefaultBatchTimeout}
}

// Scorer produces ScoreResults for identifiers.
// Safe for concurrent use.
type Scorer struct {
	ledger   SnapshotSource
	resolver sns.Resolver
	cache    *cache.ScoreCache
	records  storage.ScoreRecordStore
	cfg      Config
	logger   *zap.Logger

	inflight singleflight.Group
}

// Option configures Scorer.
type Option func(*Scorer)

// WithResolver sets the .sol name resolver. Without one every domain
// identifier fails with ErrDomainResolutionFailed.
func WithResolver(r sns.Resolver) Option {
	return func(s *Scorer) {
		s.resolver = r
	}
}

// WithRecordStore archives every fresh computation to store.
func WithRecordStore(store storage.ScoreRecordStore) Option {
	return func(s *Scorer) {
		s.records = store
	}
}

// NewScorer creates a Scorer over ledger and cache.
func NewScorer(ledger SnapshotSource, c *cache.ScoreCache, cfg Config, logger *zap.Logger, opts ...Option) *Scorer {
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = DefaultBatchTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scorer{
		ledger: ledger,
		cache:  c,
		cfg:    cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cache returns the score cache.
func (s *Scorer) Cache() *cache.ScoreCache {
	return s.cache
}

// Resolve turns an identifier into an Account. Identifiers ending in .sol
// are checked and resolved through the name service; anything else must
// parse as an address. No ledger call is made.
func (s *Scorer) Resolve(ctx context.Context, id string) (domain.Account, error) {
	if domain.IsDomainName(id) {
		if _, err := domain.ParseDomainName(id); err != nil {
			return "", err
		}
		if s.resolver == nil {
			return "", &domain.AccountError{
				Account: id,
				Err:     fmt.Errorf("%w: no resolver configured", domain.ErrDomainResolutionFailed),
			}
		}
		return s.resolver.Resolve(ctx, id)
	}
	return domain.ParseAccount(id)
}

// Score resolves id and scores the account.
func (s *Scorer) Score(ctx context.Context, id string) (*domain.ScoreResult, error) {
	account, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.ScoreAccount(ctx, account)
}

// ScoreAccount returns the cached result when fresh, otherwise computes one.
// Concurrent computations for the same account are collapsed.
func (s *Scorer) ScoreAccount(ctx context.Context, account domain.Account) (*domain.ScoreResult, error) {
	if result, ok := s.cache.Get(account); ok {
		observability.RecordScoreOutcome(outcomeCached)
		return result, nil
	}
	return s.compute(ctx, account)
}

// Refresh drops any cached result for account and computes a new one.
func (s *Scorer) Refresh(ctx context.Context, account domain.Account) (*domain.ScoreResult, error) {
	s.cache.Invalidate(account)
	return s.compute(ctx, account)
}

// flight is one shared computation. Its result is committed to the cache
// and the archive at most once, by the first waiter still live on arrival.
type flight struct {
	result   *domain.ScoreResult
	elapsed  time.Duration
	degraded []string
	once     sync.Once
}

func (s *Scorer) compute(ctx context.Context, account domain.Account) (*domain.ScoreResult, error) {
	// The shared computation outlives a cancelled caller so that other
	// waiters still get its result. Per-query deadlines inside the gateway
	// bound it. Nothing is committed unless a waiter is live on arrival.
	ch := s.inflight.DoChan(account.String(), func() (interface{}, error) {
		return s.run(context.WithoutCancel(ctx), account)
	})

	select {
	case <-ctx.Done():
		return nil, abandoned(account, ctx.Err())
	case res := <-ch:
		if err := ctx.Err(); err != nil {
			return nil, abandoned(account, err)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		f := res.Val.(*flight)
		s.commit(ctx, f)
		return f.result.Clone(), nil
	}
}

func abandoned(account domain.Account, cause error) error {
	observability.RecordScoreOutcome(outcomeAbandoned)
	return domain.WrapAccount(account.String(), fmt.Errorf("%w: %w", domain.ErrTimeout, cause))
}

// run computes a score without side effects beyond metrics.
func (s *Scorer) run(ctx context.Context, account domain.Account) (*flight, error) {
	start := time.Now()

	snap, err := s.ledger.Snapshot(ctx, account)
	if err != nil {
		observability.RecordScoreOutcome(outcomeError)
		s.logger.Warn("ledger snapshot failed", zap.String("account", account.String()), zap.Error(err))
		return nil, err
	}

	result, err := scoring.Score(snap)
	if err != nil {
		if errors.Is(err, domain.ErrNoActivity) {
			observability.RecordScoreOutcome(outcomeNoActivity)
		} else {
			observability.RecordScoreOutcome(outcomeError)
		}
		return nil, err
	}

	return &flight{result: result, elapsed: time.Since(start), degraded: snap.Degraded}, nil
}

func (s *Scorer) commit(ctx context.Context, f *flight) {
	f.once.Do(func() {
		result := f.result
		s.cache.Put(result)
		observability.RecordScoreOutcome(outcomeComputed)
		observability.RecordScoreComputed(result.Score, result.Grade.String(), f.elapsed.Seconds())

		s.logger.Debug("account scored",
			zap.String("account", result.Account.String()),
			zap.Int("score", result.Score),
			zap.String("grade", result.Grade.String()),
			zap.Strings("degraded", f.degraded),
		)

		// Committed already; a caller leaving now must not tear the insert.
		s.archive(context.WithoutCancel(ctx), result)
	})
}

// archive stores the result projection. Failures are logged only.
func (s *Scorer) archive(ctx context.Context, result *domain.ScoreResult) {
	if s.records == nil {
		return
	}
	err := s.records.Insert(ctx, domain.NewScoreRecord(result))
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrDuplicateKey):
		s.logger.Debug("score record already archived", zap.String("account", result.Account.String()))
	default:
		s.logger.Warn("archive score record", zap.String("account", result.Account.String()), zap.Error(err))
	}
}

// History returns archived scores for id, newest first.
// Without a record store the history is empty.
func (s *Scorer) History(ctx context.Context, id string, limit int) ([]*domain.ScoreRecord, error) {
	account, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.records == nil {
		return nil, nil
	}
	records, err := s.records.GetByAccount(ctx, account, limit)
	if err != nil {
		return nil, fmt.Errorf("get score records: %w", err)
	}
	return records, nil
}

// BatchItem is the per-identifier outcome of ScoreBatch.
type BatchItem struct {
	ID     string
	Result *domain.ScoreResult
	Err    error
}

// ScoreBatch scores up to MaxBatchSize identifiers concurrently.
// Results keep the input order and carry per-item errors. The whole call
// fails with ErrBatchTooLarge before any work when ids exceeds the cap, and
// with ErrTimeout when the batch deadline passes.
func (s *Scorer) ScoreBatch(ctx context.Context, ids []string) ([]BatchItem, error) {
	if len(ids) > MaxBatchSize {
		observability.RecordBatch("too_large", len(ids))
		return nil, fmt.Errorf("%w: %d identifiers, max %d", domain.ErrBatchTooLarge, len(ids), MaxBatchSize)
	}
	if len(ids) == 0 {
		return []BatchItem{}, nil
	}

	bctx, cancel := context.WithTimeout(ctx, s.cfg.BatchTimeout)
	defer cancel()

	results := make([]BatchItem, len(ids))
	g := new(errgroup.Group)
	g.SetLimit(MaxBatchSize)

	for i, id := range ids {
		g.Go(func() error {
			result, err := s.Score(bctx, id)
			results[i] = BatchItem{ID: id, Result: result, Err: err}
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-bctx.Done():
	}
	// A deadline that fires together with the last item still wins.
	if bctx.Err() != nil {
		observability.RecordBatch("timeout", len(ids))
		s.logger.Warn("batch deadline exceeded", zap.Int("size", len(ids)), zap.Duration("timeout", s.cfg.BatchTimeout))
		return nil, fmt.Errorf("%w: batch of %d exceeded %s", domain.ErrTimeout, len(ids), s.cfg.BatchTimeout)
	}

	observability.RecordBatch("ok", len(ids))
	return results, nil
}
