// Package sns resolves .sol names to account addresses.
package sns

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"wallet-score/internal/domain"
)

// DefaultBaseURL is the public Bonfida SNS proxy.
const DefaultBaseURL = "https://sns-sdk-proxy.bonfida.workers.dev"

// DefaultTimeout bounds a single resolution.
const DefaultTimeout = 10 * time.Second

// Resolver maps a .sol name to the account it points to.
type Resolver interface {
	// Resolve returns the owner account of name. Failures wrap
	// domain.ErrDomainResolutionFailed, or domain.ErrInvalidIdentifier
	// for a malformed name.
	Resolve(ctx context.Context, name string) (domain.Account, error)
}

// HTTPResolver resolves names through the SNS proxy HTTP API.
type HTTPResolver struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPResolver creates a resolver. An empty baseURL uses DefaultBaseURL.
func NewHTTPResolver(baseURL string, client *http.Client, logger *zap.Logger) *HTTPResolver {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

// resolveResponse is the proxy reply: {"s":"ok","result":"<address>"}.
type resolveResponse struct {
	Status string `json:"s"`
	Result string `json:"result"`
}

// Resolve looks up name, with or without the .sol suffix. A malformed
// name fails with domain.ErrInvalidIdentifier without a request.
func (r *HTTPResolver) Resolve(ctx context.Context, name string) (domain.Account, error) {
	label := StripSuffix(name)
	if !domain.ValidDomainLabel(label) {
		return "", &domain.AccountError{
			Account: name,
			Err:     fmt.Errorf("%w: malformed domain name", domain.ErrInvalidIdentifier),
		}
	}

	endpoint := r.baseURL + "/resolve/" + url.PathEscape(label)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", resolutionError(name, fmt.Errorf("create request: %w", err))
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("sns lookup failed", zap.String("name", name), zap.Error(err))
		return "", resolutionError(name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", resolutionError(name, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return "", resolutionError(name, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var out resolveResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", resolutionError(name, fmt.Errorf("unmarshal response: %w", err))
	}
	if out.Status != "ok" || out.Result == "" {
		return "", resolutionError(name, fmt.Errorf("proxy status %q", out.Status))
	}

	account, err := domain.ParseAccount(out.Result)
	if err != nil {
		return "", resolutionError(name, err)
	}
	return account, nil
}

// StripSuffix removes a trailing .sol, case-insensitively.
func StripSuffix(name string) string {
	if domain.IsDomainName(name) {
		return name[:len(name)-len(domain.DomainSuffix)]
	}
	return name
}

func resolutionError(name string, cause error) error {
	return &domain.AccountError{
		Account: name,
		Err:     fmt.Errorf("%w: %w", domain.ErrDomainResolutionFailed, cause),
	}
}

// StaticResolver resolves from a fixed table. Keys are full names including .sol.
type StaticResolver struct {
	mu    sync.RWMutex
	names map[string]domain.Account
}

// NewStaticResolver creates a resolver over names.
func NewStaticResolver(names map[string]domain.Account) *StaticResolver {
	m := make(map[string]domain.Account, len(names))
	for k, v := range names {
		m[strings.ToLower(k)] = v
	}
	return &StaticResolver{names: m}
}

// Set adds or replaces a mapping.
func (s *StaticResolver) Set(name string, account domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[strings.ToLower(name)] = account
}

// Resolve returns the configured account for name.
func (s *StaticResolver) Resolve(_ context.Context, name string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.names[strings.ToLower(name)]
	if !ok {
		return "", resolutionError(name, fmt.Errorf("unknown name"))
	}
	return account, nil
}

var (
	_ Resolver = (*HTTPResolver)(nil)
	_ Resolver = (*StaticResolver)(nil)
)
