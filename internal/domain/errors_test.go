package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapAccount(t *testing.T) {
	assert.Nil(t, WrapAccount("x", nil))

	err := WrapAccount("acct", fmt.Errorf("%w: signatures", ErrTimeout))
	var ae *AccountError
	assert.ErrorAs(t, err, &ae)
	assert.Equal(t, "acct", ae.Account)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, "acct: timeout: signatures", err.Error())

	// An identifier already attached is kept.
	again := WrapAccount("other", err)
	assert.Same(t, err, again)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(fmt.Errorf("%w: x", ErrTimeout)))
	assert.True(t, IsRetryable(&AccountError{Account: "a", Err: ErrUnreachable}))
	assert.False(t, IsRetryable(ErrNoActivity))
	assert.False(t, IsRetryable(errors.New("other")))
}

func TestDirectionAndDelta(t *testing.T) {
	assert.Equal(t, "up", Direction(3))
	assert.Equal(t, "down", Direction(-1))
	assert.Equal(t, "stable", Direction(0))

	prev := 50
	e := WatchEntry{LastScore: 44, PreviousScore: &prev}
	assert.Equal(t, -6, *e.LastDelta())
	assert.Nil(t, WatchEntry{LastScore: 10}.LastDelta())
}

func TestRarityRank(t *testing.T) {
	assert.Less(t, RarityLegendary.Rank(), RarityEpic.Rank())
	assert.Less(t, RarityEpic.Rank(), RarityRare.Rank())
	assert.Less(t, RarityRare.Rank(), RarityCommon.Rank())
}
