package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-score/internal/domain"
)

const (
	walletA = domain.Account("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	walletB = domain.Account("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU")
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache(ttl time.Duration) (*ScoreCache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	return New(ttl, WithClock(clock.Now)), clock
}

func TestScoreCache_GetPut(t *testing.T) {
	c, _ := newTestCache(time.Minute)

	_, ok := c.Get(walletA)
	assert.False(t, ok)

	result := &domain.ScoreResult{Account: walletA, Score: 77, Grade: domain.GradeB}
	c.Put(result)

	got, ok := c.Get(walletA)
	require.True(t, ok)
	assert.Equal(t, result, got)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestScoreCache_CallersDoNotShareResults(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	result := &domain.ScoreResult{
		Account: walletA,
		Score:   90,
		Badges:  []domain.Badge{{ID: "s_tier"}},
		Stats:   domain.ScoreStats{Degraded: []string{"holdings"}},
	}
	c.Put(result)

	result.Badges[0].ID = "mutated after put"

	first, ok := c.Get(walletA)
	require.True(t, ok)
	assert.Equal(t, "s_tier", first.Badges[0].ID)

	first.Score = 1
	first.Badges[0].ID = "mutated after get"
	first.Stats.Degraded[0] = "mutated after get"

	second, ok := c.Get(walletA)
	require.True(t, ok)
	assert.NotSame(t, first, second)
	assert.Equal(t, 90, second.Score)
	assert.Equal(t, "s_tier", second.Badges[0].ID)
	assert.Equal(t, []string{"holdings"}, second.Stats.Degraded)
}

func TestScoreCache_Expiry(t *testing.T) {
	c, clock := newTestCache(300 * time.Second)
	c.Put(&domain.ScoreResult{Account: walletA, Score: 50})

	clock.Advance(299 * time.Second)
	_, ok := c.Get(walletA)
	assert.True(t, ok, "entry must be served before its TTL")

	clock.Advance(time.Second)
	_, ok = c.Get(walletA)
	assert.False(t, ok, "entry must expire at its TTL")
}

func TestScoreCache_PutReplaces(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	c.Put(&domain.ScoreResult{Account: walletA, Score: 10})

	clock.Advance(50 * time.Second)
	c.Put(&domain.ScoreResult{Account: walletA, Score: 20})

	clock.Advance(50 * time.Second)
	got, ok := c.Get(walletA)
	require.True(t, ok, "replacement resets expiry")
	assert.Equal(t, 20, got.Score)
	assert.Equal(t, 1, c.Len())
}

func TestScoreCache_InvalidateAndClear(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	c.Put(&domain.ScoreResult{Account: walletA})
	c.Put(&domain.ScoreResult{Account: walletB})

	c.Invalidate(walletA)
	_, ok := c.Get(walletA)
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	assert.Equal(t, 1, c.Clear())
	assert.Equal(t, 0, c.Len())
}

func TestScoreCache_Sweep(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	c.Put(&domain.ScoreResult{Account: walletA})
	clock.Advance(30 * time.Second)
	c.Put(&domain.ScoreResult{Account: walletB})

	clock.Advance(30 * time.Second)
	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())

	_, ok := c.Get(walletB)
	assert.True(t, ok)
}

func TestScoreCache_RunStopsOnCancel(t *testing.T) {
	c, _ := newTestCache(time.Millisecond)
	c.Put(&domain.ScoreResult{Account: walletA})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestScoreCache_ConcurrentAccess(t *testing.T) {
	c := New(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			acct := walletA
			if i%2 == 0 {
				acct = walletB
			}
			c.Put(&domain.ScoreResult{Account: acct, Score: i})
			c.Get(acct)
			if i%10 == 0 {
				c.Invalidate(acct)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 2)
}
