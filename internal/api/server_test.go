package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-score/internal/cache"
	"wallet-score/internal/domain"
	"wallet-score/internal/engine"
	"wallet-score/internal/ledger"
	"wallet-score/internal/notify"
	"wallet-score/internal/solana"
	"wallet-score/internal/solana/stub"
	"wallet-score/internal/storage/memory"
	"wallet-score/internal/watchlist"
)

const (
	walletA  = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	walletB  = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	adminKey = "test-admin-key"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	rpc    *stub.RPCClient
	server *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := func() time.Time { return testNow }

	rpc := stub.NewRPCClient()
	gw := ledger.NewGateway(rpc, ledger.DefaultConfig(), nil, ledger.WithClock(clock))
	scorer := engine.NewScorer(gw, cache.New(time.Minute), engine.DefaultConfig(), nil,
		engine.WithRecordStore(memory.NewScoreRecordStore()))
	hub := notify.NewHub(nil, nil)
	wl := watchlist.New(scorer, nil, watchlist.WithClock(clock), watchlist.WithNotifier(hub))

	server := httptest.NewServer(NewServer(scorer, wl, hub, adminKey, nil).Handler())
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})
	return &testEnv{rpc: rpc, server: server}
}

func (e *testEnv) seed(addr string, lamports uint64) {
	sigs := make([]solana.SignatureInfo, 60)
	for i := range sigs {
		bt := testNow.Add(-time.Duration(i) * 48 * time.Hour).Unix()
		sigs[i] = solana.SignatureInfo{Signature: fmt.Sprintf("%s-%d", addr[:4], i), BlockTime: &bt}
	}
	e.rpc.AddSignatures(addr, sigs)
	e.rpc.SetBalance(addr, lamports)
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers ...string) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestScore(t *testing.T) {
	env := newTestEnv(t)
	env.seed(walletA, 12_000_000_000)

	resp, body := env.do(t, http.MethodGet, "/score/"+walletA, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, walletA, body["wallet"])
	assert.Contains(t, body, "breakdown")
	assert.Contains(t, body, "badges")
}

func TestScore_ErrorStatus(t *testing.T) {
	env := newTestEnv(t)
	env.rpc.AddSignatures(walletB, nil)

	tests := []struct {
		name   string
		id     string
		setup  func()
		status int
	}{
		{"invalid address", "not-an-address", nil, http.StatusBadRequest},
		{"unresolvable domain", "nobody.sol", nil, http.StatusBadRequest},
		{"no activity", walletB, nil, http.StatusUnprocessableEntity},
		{
			"ledger unreachable",
			walletA,
			func() { env.rpc.FailMethod(stub.MethodGetSignaturesForAddress, errors.New("connection refused")) },
			http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			resp, body := env.do(t, http.MethodGet, "/score/"+tt.id, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestBatch(t *testing.T) {
	env := newTestEnv(t)
	env.seed(walletA, 1_000_000_000)

	resp, body := env.do(t, http.MethodPost, "/batch", batchRequest{Wallets: []string{walletA, "bogus"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["count"])

	results := body["results"].([]interface{})
	require.Len(t, results, 2)
	assert.Equal(t, walletA, results[0].(map[string]interface{})["wallet"])
	failed := results[1].(map[string]interface{})
	assert.Equal(t, "bogus", failed["wallet"])
	assert.NotEmpty(t, failed["error"])
}

func TestBatch_TooLarge(t *testing.T) {
	env := newTestEnv(t)
	ids := make([]string, engine.MaxBatchSize+1)
	for i := range ids {
		ids[i] = walletA
	}

	resp, _ := env.do(t, http.MethodPost, "/batch", batchRequest{Wallets: ids})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, env.rpc.TotalCalls())
}

func TestWatchlistFlow(t *testing.T) {
	env := newTestEnv(t)
	env.seed(walletA, 12_000_000_000)

	resp, body := env.do(t, http.MethodPost, "/watch", watchRequest{Wallet: walletA})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "added", body["status"])
	assert.Equal(t, float64(1), body["watchlistSize"])

	resp, _ = env.do(t, http.MethodPost, "/watch", watchRequest{Wallet: walletA})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Drop the balance so the next rescore moves the score significantly.
	env.rpc.SetBalance(walletA, 0)
	resp, body = env.do(t, http.MethodPost, "/rescore/"+walletA, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["isWatched"])
	info := body["changeInfo"].(map[string]interface{})
	assert.Equal(t, true, info["significantChange"])
	assert.Equal(t, "down", info["direction"])

	resp, body = env.do(t, http.MethodGet, "/watchlist", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["count"])
	assert.Len(t, body["recentChanges"], 1)

	resp, body = env.do(t, http.MethodGet, "/report", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["watchlistCount"])

	resp, body = env.do(t, http.MethodGet, "/alerts/preview", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, body["preview"])
	assert.Equal(t, float64(1), body["changesCount"])

	resp, body = env.do(t, http.MethodPost, "/watchlist/rescore", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["rescored"])
	assert.Equal(t, float64(0), body["alertCount"])

	resp, _ = env.do(t, http.MethodDelete, "/watch/"+walletA, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodDelete, "/watch/"+walletA, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWatch_MissingWallet(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/watch", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRescore_Unwatched(t *testing.T) {
	env := newTestEnv(t)
	env.seed(walletA, 1_000_000_000)

	resp, body := env.do(t, http.MethodPost, "/rescore/"+walletA, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["isWatched"])
	assert.Nil(t, body["changeInfo"])
	assert.Equal(t, walletA, body["wallet"])
}

func TestAdminEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/cache/clear", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/cache/clear", nil, "X-API-Key", "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/cache/clear", nil, "X-API-Key", adminKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Cache cleared", body["status"])

	resp, _ = env.do(t, http.MethodPost, "/alerts/publish", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/alerts/publish", nil, "X-API-Key", adminKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "skipped", body["status"])
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t)
	env.seed(walletA, 1_000_000_000)

	resp, _ := env.do(t, http.MethodGet, "/score/"+walletA, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/history/"+walletA+"?limit=5", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["records"], 1)

	resp, _ = env.do(t, http.MethodGet, "/history/"+walletA+"?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body["cache"], "keys")

	resp, _ = env.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{domain.ErrInvalidIdentifier, http.StatusBadRequest},
		{domain.ErrDomainResolutionFailed, http.StatusBadRequest},
		{domain.ErrBatchTooLarge, http.StatusBadRequest},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrNotWatched, http.StatusNotFound},
		{domain.ErrAlreadyWatched, http.StatusConflict},
		{domain.ErrNoActivity, http.StatusUnprocessableEntity},
		{domain.ErrUnreachable, http.StatusBadGateway},
		{domain.ErrTimeout, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
		{&domain.AccountError{Account: walletA, Err: domain.ErrTimeout}, http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, statusFor(tt.err), tt.err.Error())
	}
}
