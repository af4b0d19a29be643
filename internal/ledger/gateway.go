// Package ledger reads the per-account ledger state that one scoring pass needs.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wallet-score/internal/domain"
	"wallet-score/internal/observability"
	"wallet-score/internal/solana"
)

// Default configuration values.
const (
	DefaultQueryTimeout   = 10 * time.Second
	DefaultSignatureLimit = 1000
	protocolFetchLimit    = 4
)

// Sub-query names, as reported in LedgerSnapshot.Degraded.
const (
	QueryBalance    = "balance"
	QuerySignatures = "signatures"
	QueryHoldings   = "holdings"
	QueryProtocols  = "protocols"
)

// Config configures the gateway.
type Config struct {
	// QueryTimeout bounds each sub-query independently.
	QueryTimeout time.Duration
	// SignatureLimit caps the signature sample.
	SignatureLimit int
	// ProtocolSampleSize is the number of recent transactions inspected for
	// known-protocol interactions. Zero disables sampling.
	ProtocolSampleSize int
}

// DefaultConfig returns the default gateway configuration.
func DefaultConfig() Config {
	return Config{
		QueryTimeout:   DefaultQueryTimeout,
		SignatureLimit: DefaultSignatureLimit,
	}
}

// Gateway builds LedgerSnapshots from a Solana RPC client.
type Gateway struct {
	rpc    solana.RPCClient
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// Option configures Gateway.
type Option func(*Gateway)

// WithClock overrides the clock used for CapturedAt.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		g.now = now
	}
}

// NewGateway creates a gateway. Zero config fields fall back to defaults.
func NewGateway(rpc solana.RPCClient, cfg Config, logger *zap.Logger, opts ...Option) *Gateway {
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultQueryTimeout
	}
	if cfg.SignatureLimit <= 0 {
		cfg.SignatureLimit = DefaultSignatureLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{
		rpc:    rpc,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Snapshot reads balance, signatures and token holdings concurrently.
//
// Balance and holdings failures degrade to zero and empty; the failed
// sub-query is named in Degraded. A signature failure is fatal and is
// classified as domain.ErrTimeout, domain.ErrNotFound or domain.ErrUnreachable.
// An account without signatures is returned as is.
func (g *Gateway) Snapshot(ctx context.Context, account domain.Account) (*domain.LedgerSnapshot, error) {
	snap := &domain.LedgerSnapshot{
		Account:    account,
		CapturedAt: g.now().UTC(),
	}
	addr := account.String()

	var (
		mu       sync.Mutex
		degraded []string
	)
	degrade := func(query string, err error) {
		kind := classify(err)
		observability.RecordLedgerFailure(query, kindLabel(kind))
		g.logger.Warn("ledger sub-query degraded",
			zap.String("account", addr),
			zap.String("query", query),
			zap.Error(err),
		)
		mu.Lock()
		degraded = append(degraded, query)
		mu.Unlock()
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		qctx, cancel := context.WithTimeout(egCtx, g.cfg.QueryTimeout)
		defer cancel()

		lamports, err := g.rpc.GetBalance(qctx, addr)
		if err != nil {
			degrade(QueryBalance, queryErr(qctx, err))
			return nil
		}
		snap.Lamports = lamports
		return nil
	})

	eg.Go(func() error {
		qctx, cancel := context.WithTimeout(egCtx, g.cfg.QueryTimeout)
		defer cancel()

		sigs, err := g.rpc.GetSignaturesForAddress(qctx, addr, &solana.SignaturesOpts{Limit: g.cfg.SignatureLimit})
		if err != nil {
			err = queryErr(qctx, err)
			kind := classify(err)
			observability.RecordLedgerFailure(QuerySignatures, kindLabel(kind))
			return domain.WrapAccount(addr, fmt.Errorf("%w: %s: %w", kind, QuerySignatures, err))
		}

		refs := make([]domain.SignatureRef, len(sigs))
		for i, s := range sigs {
			refs[i] = domain.SignatureRef{
				Signature: s.Signature,
				Slot:      s.Slot,
				BlockTime: s.BlockTime,
			}
		}
		snap.Signatures = refs
		return nil
	})

	eg.Go(func() error {
		qctx, cancel := context.WithTimeout(egCtx, g.cfg.QueryTimeout)
		defer cancel()

		accounts, err := g.rpc.GetTokenAccountsByOwner(qctx, addr, solana.TokenProgramID)
		if err != nil {
			degrade(QueryHoldings, queryErr(qctx, err))
			return nil
		}
		snap.Holdings = g.holdings(addr, accounts)
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if g.cfg.ProtocolSampleSize > 0 && len(snap.Signatures) > 0 {
		sample, err := g.sampleProtocols(ctx, snap.Signatures)
		if err != nil {
			degrade(QueryProtocols, err)
		} else {
			snap.ProtocolSample = sample
		}
	}

	snap.Degraded = degraded
	return snap, nil
}

// holdings converts raw token accounts, skipping malformed amounts.
func (g *Gateway) holdings(addr string, accounts []solana.TokenAccount) []domain.TokenHolding {
	out := make([]domain.TokenHolding, 0, len(accounts))
	for _, a := range accounts {
		raw, err := decimal.NewFromString(a.Amount)
		if err != nil || raw.IsNegative() {
			g.logger.Debug("skipping token account with malformed amount",
				zap.String("account", addr),
				zap.String("token_account", a.Pubkey),
				zap.String("amount", a.Amount),
			)
			continue
		}
		out = append(out, domain.TokenHolding{
			Mint:     a.Mint,
			Decimals: a.Decimals,
			Amount:   raw.Shift(-int32(a.Decimals)),
		})
	}
	return out
}

// sampleProtocols fetches the most recent transactions and counts those
// touching a known DeFi program. Missing transactions are not counted as sampled.
func (g *Gateway) sampleProtocols(ctx context.Context, sigs []domain.SignatureRef) (*domain.ProtocolSample, error) {
	n := g.cfg.ProtocolSampleSize
	if n > len(sigs) {
		n = len(sigs)
	}

	qctx, cancel := context.WithTimeout(ctx, g.cfg.QueryTimeout)
	defer cancel()

	found := make([]int, n) // 0 missing, 1 sampled, 2 interaction
	eg, egCtx := errgroup.WithContext(qctx)
	eg.SetLimit(protocolFetchLimit)
	for i := 0; i < n; i++ {
		sig := sigs[i].Signature
		eg.Go(func() error {
			tx, err := g.rpc.GetTransaction(egCtx, sig)
			if err != nil {
				return queryErr(qctx, err)
			}
			switch {
			case tx == nil:
			case TouchesKnownProgram(tx):
				found[i] = 2
			default:
				found[i] = 1
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sample := &domain.ProtocolSample{}
	for _, f := range found {
		if f > 0 {
			sample.Sampled++
		}
		if f == 2 {
			sample.Interactions++
		}
	}
	return sample, nil
}

// queryErr reports deadline expiry of the sub-query even when the underlying
// error does not wrap context.DeadlineExceeded (for example the rate limiter).
func queryErr(qctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(qctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return err
}

// classify maps a sub-query error to a domain sentinel.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrTimeout
	}
	var rpcErr *solana.RPCError
	if errors.As(err, &rpcErr) && rpcErr.Code == solana.ErrCodeInvalidParams {
		return domain.ErrNotFound
	}
	return domain.ErrUnreachable
}

func kindLabel(kind error) string {
	switch {
	case errors.Is(kind, domain.ErrTimeout):
		return "timeout"
	case errors.Is(kind, domain.ErrNotFound):
		return "not_found"
	default:
		return "unreachable"
	}
}
