package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemoryStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestMemoryStore_CopiesValue(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	buf := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", buf, time.Minute))
	buf[0] = 'x'

	got, _, _ := s.Get(ctx, "k")
	assert.Equal(t, "abc", string(got))
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewMemoryStore().WithClock(clock.Now)

	require.NoError(t, s.Set(ctx, "page", []byte("body"), 20*time.Second))

	clock.Advance(19 * time.Second)
	_, ok, _ := s.Get(ctx, "page")
	assert.True(t, ok, "entry should live until its ttl")

	clock.Advance(time.Second)
	_, ok, _ = s.Get(ctx, "page")
	assert.False(t, ok, "entry should expire exactly at its ttl")
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_SweepOnSet(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewMemoryStore().WithClock(clock.Now)

	require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Second))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), time.Second))
	clock.Advance(2 * time.Minute)
	require.NoError(t, s.Set(ctx, "c", []byte("3"), time.Minute))

	assert.Equal(t, 1, s.Len())
}

func TestMemoryStore_DefaultTTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewMemoryStore().WithClock(clock.Now)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
	clock.Advance(DefaultTTL - time.Second)
	_, ok, _ := s.Get(ctx, "k")
	assert.True(t, ok)
}

func TestMemoryStore_ClearAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, k := range []string{"page:index:1", "page:index:2", "jwt:revoked:x"} {
		require.NoError(t, s.Set(ctx, k, []byte("v"), time.Minute))
	}

	require.NoError(t, s.Clear(ctx, "page:"))
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Delete(ctx, "jwt:revoked:x"))
	assert.Equal(t, 0, s.Len())

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, s.Clear(ctx, ""))
	assert.Equal(t, 0, s.Len())
}
