package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock is a manually advanced clock for TTL tests.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time { return f.t }

func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestGetSet(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1700000000, 0)}
	c := New[string](10*time.Minute, clk.now)

	_, ok := c.Get("a")
	assert.False(t, ok, "empty cache should miss")

	c.Set("a", "first")
	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "first", got)

	c.Set("a", "second")
	got, _ = c.Get("a")
	assert.Equal(t, "second", got, "Set should replace the whole entry")
}

func TestLazyExpiry(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1700000000, 0)}
	c := New[int](10*time.Minute, clk.now)

	c.Set("k", 42)

	clk.advance(9 * time.Minute)
	_, ok := c.Get("k")
	assert.True(t, ok, "entry inside TTL should hit")

	clk.advance(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry past TTL should miss")

	// Expired entries stay in the map until overwritten or invalidated.
	assert.Equal(t, Stats{Total: 1, Valid: 0, Expired: 1}, c.Stats())
}

func TestInvalidate(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1700000000, 0)}
	c := New[int](time.Minute, clk.now)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Invalidate()

	assert.Equal(t, Stats{}, c.Stats())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestStatsMixed(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1700000000, 0)}
	c := New[int](10*time.Minute, clk.now)

	c.Set("old", 1)
	clk.advance(11 * time.Minute)
	c.Set("fresh", 2)

	assert.Equal(t, Stats{Total: 2, Valid: 1, Expired: 1}, c.Stats())
}
