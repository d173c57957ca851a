package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rosterSnapshot struct {
	OnDuty int `json:"on_duty"`
}

func TestRememberLoadsOnceThenServesCache(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	ctx := context.Background()
	loads := 0
	load := func(context.Context) (*rosterSnapshot, error) {
		loads++
		return &rosterSnapshot{OnDuty: 4}, nil
	}

	v, hit, err := Remember(ctx, cache, "roster:today", 0, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 4, v.OnDuty)
	assert.Contains(t, repo.entries, "roster:today")

	v.OnDuty = 99
	again, hit, err := Remember(ctx, cache, "roster:today", 0, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 4, again.OnDuty)
	assert.Equal(t, 1, loads)
}

func TestRememberDoesNotCacheFailures(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	boom := errors.New("db down")

	_, _, err := Remember(context.Background(), cache, "roster:today", 0, func(context.Context) (*rosterSnapshot, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, repo.entries)
}

func TestRememberWithoutCacheAlwaysLoads(t *testing.T) {
	loads := 0
	load := func(context.Context) (*rosterSnapshot, error) {
		loads++
		return &rosterSnapshot{OnDuty: loads}, nil
	}

	for _, cache := range []*CacheService{nil, NewCacheService(newMemoryCacheRepo(), nil, 0, nil, false)} {
		_, hit, err := Remember(context.Background(), cache, "k", 0, load)
		require.NoError(t, err)
		assert.False(t, hit)
	}
	assert.Equal(t, 2, loads)
}
