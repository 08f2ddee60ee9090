package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheServiceDisabled(t *testing.T) {
	svc := NewCacheService(newMemoryOTPStore(), nil, time.Minute, nil, false)
	assert.False(t, svc.Enabled())

	var dest string
	hit, err := svc.Get(context.Background(), "k", &dest)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, svc.Set(context.Background(), "k", "v", 0))

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}

func TestCacheServiceRoundTripAndInvalidate(t *testing.T) {
	store := newMemoryOTPStore()
	svc := NewCacheService(store, nil, time.Minute, nil, true)

	require.NoError(t, svc.Set(context.Background(), "k", "v", 0))
	assert.Equal(t, time.Minute, store.ttls["k"])

	var dest string
	hit, err := svc.Get(context.Background(), "k", &dest)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "v", dest)

	require.NoError(t, svc.Invalidate(context.Background(), "k"))
	hit, err = svc.Get(context.Background(), "k", &dest)
	require.NoError(t, err)
	assert.False(t, hit)

	store.setErr = errors.New("redis down")
	assert.Error(t, svc.Set(context.Background(), "k", "v", time.Second))
}

func TestRememberLoadsOnceAndSkipsErrors(t *testing.T) {
	svc := NewCacheService(newMemoryOTPStore(), nil, time.Minute, nil, true)
	loads := 0
	load := func(context.Context) (int, error) {
		loads++
		return 42, nil
	}

	v, hit, err := Remember(context.Background(), svc, "answer", 0, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 42, v)

	v, hit, err = Remember(context.Background(), svc, "answer", 0, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, loads)

	_, _, err = Remember(context.Background(), svc, "broken", 0, func(context.Context) (int, error) {
		return 0, errors.New("db down")
	})
	assert.Error(t, err)
	hit, _ = svc.Get(context.Background(), "broken", new(int))
	assert.False(t, hit)
}
