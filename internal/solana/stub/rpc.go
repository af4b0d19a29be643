package stub

import (
	"context"
	"sync"
	"time"

	"wallet-score/internal/solana"
)

// Method names used for call counting and error injection.
const (
	MethodGetBalance              = "getBalance"
	MethodGetSignaturesForAddress = "getSignaturesForAddress"
	MethodGetTokenAccountsByOwner = "getTokenAccountsByOwner"
	MethodGetTransaction          = "getTransaction"
)

// RPCClient implements solana.RPCClient for testing.
// It is safe for concurrent use.
type RPCClient struct {
	mu            sync.Mutex
	balances      map[string]uint64
	signatures    map[string][]solana.SignatureInfo
	tokenAccounts map[string][]solana.TokenAccount
	transactions  map[string]*solana.Transaction
	errs          map[string]error
	delays        map[string]time.Duration
	calls         map[string]int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		balances:      make(map[string]uint64),
		signatures:    make(map[string][]solana.SignatureInfo),
		tokenAccounts: make(map[string][]solana.TokenAccount),
		transactions:  make(map[string]*solana.Transaction),
		errs:          make(map[string]error),
		delays:        make(map[string]time.Duration),
		calls:         make(map[string]int),
	}
}

// SetBalance sets the lamport balance of an address.
func (c *RPCClient) SetBalance(address string, lamports uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[address] = lamports
}

// AddSignatures sets signatures for an address, newest first.
func (c *RPCClient) AddSignatures(address string, sigs []solana.SignatureInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signatures[address] = sigs
}

// AddTokenAccounts sets token accounts owned by an address.
func (c *RPCClient) AddTokenAccounts(owner string, accounts []solana.TokenAccount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokenAccounts[owner] = accounts
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transactions[tx.Signature] = tx
}

// FailMethod makes every call of method return err. A nil err clears it.
func (c *RPCClient) FailMethod(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.errs, method)
		return
	}
	c.errs[method] = err
}

// DelayMethod makes method block for d or until its context is done.
func (c *RPCClient) DelayMethod(method string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delays[method] = d
}

// Calls returns how many times method was invoked.
func (c *RPCClient) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// TotalCalls returns the number of invocations across all methods.
func (c *RPCClient) TotalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.calls {
		total += n
	}
	return total
}

// enter records the call and applies injected delay and error.
func (c *RPCClient) enter(ctx context.Context, method string) error {
	c.mu.Lock()
	c.calls[method]++
	delay := c.delays[method]
	err := c.errs[method]
	c.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

// GetBalance returns the configured balance, zero when unset.
func (c *RPCClient) GetBalance(ctx context.Context, address string) (uint64, error) {
	if err := c.enter(ctx, MethodGetBalance); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[address], nil
}

// GetSignaturesForAddress retrieves signatures for an address from the stub store.
func (c *RPCClient) GetSignaturesForAddress(ctx context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	if err := c.enter(ctx, MethodGetSignaturesForAddress); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	sigs, ok := c.signatures[address]
	if !ok {
		return nil, nil
	}

	// Apply limit if specified
	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		sigs = sigs[:opts.Limit]
	}

	return append([]solana.SignatureInfo(nil), sigs...), nil
}

// GetTokenAccountsByOwner returns the configured token accounts.
func (c *RPCClient) GetTokenAccountsByOwner(ctx context.Context, owner, _ string) ([]solana.TokenAccount, error) {
	if err := c.enter(ctx, MethodGetTokenAccountsByOwner); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]solana.TokenAccount(nil), c.tokenAccounts[owner]...), nil
}

// GetTransaction returns the stored transaction, or nil when unknown.
func (c *RPCClient) GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	if err := c.enter(ctx, MethodGetTransaction); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transactions[signature], nil
}

var _ solana.RPCClient = (*RPCClient)(nil)
