package indexcache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/rtkit/pkg/indexcache"
)

func TestCache_Add(t *testing.T) {
	t.Parallel()

	t.Run("first add registers", func(t *testing.T) {
		t.Parallel()
		c := indexcache.New(0)
		assert.True(t, c.Add("users"))
		assert.True(t, c.Exists("users"))
		assert.Equal(t, 1, c.Len())
	})

	t.Run("repeated add is a no-op", func(t *testing.T) {
		t.Parallel()
		c := indexcache.New(0)
		assert.True(t, c.Add("users"))
		assert.False(t, c.Add("users"))
		assert.Equal(t, 1, c.Len())
	})

	t.Run("empty collection name ignored", func(t *testing.T) {
		t.Parallel()
		c := indexcache.New(0)
		assert.False(t, c.Add(""))
		assert.Zero(t, c.Len())
	})
}

func TestCache_Remove(t *testing.T) {
	t.Parallel()

	c := indexcache.New(0)
	c.Add("users")
	c.Remove("users")

	assert.False(t, c.Exists("users"))
	// A removed collection registers as new again.
	assert.True(t, c.Add("users"))
}

func TestCache_CapacityBound(t *testing.T) {
	t.Parallel()

	c := indexcache.New(2)
	c.Add("a")
	c.Add("b")
	c.Add("c") // evicts a

	assert.False(t, c.Exists("a"))
	// Eviction only forgets; re-adding is treated as new.
	assert.True(t, c.Add("a"))
}
