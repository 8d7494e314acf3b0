package filters_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rtkit/pkg/filters"
)

func mustParse(t *testing.T, raw map[string]any) *filters.Node {
	t.Helper()
	expr, err := filters.Parse(raw)
	require.NoError(t, err)
	return expr
}

func TestMatcher_Register(t *testing.T) {
	t.Parallel()

	t.Run("identical filters resolve to the same room", func(t *testing.T) {
		t.Parallel()
		m := filters.NewMatcher()

		r1, err := m.Register("user", mustParse(t, map[string]any{
			"term": map[string]any{"firstName": "Ada"},
		}))
		require.NoError(t, err)

		r2, err := m.Register("user", mustParse(t, map[string]any{
			"term": map[string]any{"firstName": "Ada"},
		}))
		require.NoError(t, err)

		assert.Equal(t, r1, r2)
		assert.Equal(t, 1, m.RoomCount("user"))
	})

	t.Run("nil expression rejected", func(t *testing.T) {
		t.Parallel()
		m := filters.NewMatcher()
		_, err := m.Register("user", nil)
		assert.ErrorIs(t, err, filters.ErrNilExpression)
	})

	t.Run("resolve matches register identity", func(t *testing.T) {
		t.Parallel()
		m := filters.NewMatcher()
		expr := mustParse(t, map[string]any{"term": map[string]any{"a": "b"}})

		resolved, err := m.Resolve("user", expr)
		require.NoError(t, err)

		registered, err := m.Register("user", expr)
		require.NoError(t, err)
		assert.Equal(t, resolved, registered)
	})
}

func TestMatcher_Unregister(t *testing.T) {
	t.Parallel()

	t.Run("unknown room", func(t *testing.T) {
		t.Parallel()
		m := filters.NewMatcher()
		assert.ErrorIs(t, m.Unregister("nope"), filters.ErrRoomNotFound)
	})

	t.Run("unregistered room no longer matches", func(t *testing.T) {
		t.Parallel()
		m := filters.NewMatcher()
		roomID, err := m.Register("user", mustParse(t, map[string]any{
			"term": map[string]any{"firstName": "Ada"},
		}))
		require.NoError(t, err)

		require.NoError(t, m.Unregister(roomID))
		assert.Empty(t, m.Test("user", filters.Document{"firstName": "Ada"}))
		assert.Zero(t, m.RoomCount("user"))
	})

	t.Run("shared predicate survives sibling room removal", func(t *testing.T) {
		t.Parallel()
		m := filters.NewMatcher()

		// Both rooms share the term(status:active) leaf.
		r1, err := m.Register("user", mustParse(t, map[string]any{
			"term": map[string]any{"status": "active"},
		}))
		require.NoError(t, err)
		r2, err := m.Register("user", mustParse(t, map[string]any{
			"and": []any{
				map[string]any{"term": map[string]any{"status": "active"}},
				map[string]any{"term": map[string]any{"role": "admin"}},
			},
		}))
		require.NoError(t, err)

		require.NoError(t, m.Unregister(r1))

		matched := m.Test("user", filters.Document{"status": "active", "role": "admin"})
		assert.Equal(t, []string{r2}, matched)
	})
}

func TestMatcher_Test(t *testing.T) {
	t.Parallel()

	t.Run("term and terms discrimination", func(t *testing.T) {
		t.Parallel()
		m := filters.NewMatcher()

		r1, err := m.Register("user", mustParse(t, map[string]any{
			"term": map[string]any{"firstName": "Ada"},
		}))
		require.NoError(t, err)
		r2, err := m.Register("user", mustParse(t, map[string]any{
			"terms": map[string]any{"firstName": []any{"Ada", "Grace"}},
		}))
		require.NoError(t, err)
		require.NotEqual(t, r1, r2)

		matched := m.Test("user", filters.Document{"firstName": "Grace"})
		assert.Equal(t, []string{r2}, matched)

		matched = m.Test("user", filters.Document{"firstName": "Ada"})
		assert.ElementsMatch(t, []string{r1, r2}, matched)
	})

	t.Run("match-all room matches any document", func(t *testing.T) {
		t.Parallel()
		m := filters.NewMatcher()
		all, err := m.Register("user", mustParse(t, map[string]any{}))
		require.NoError(t, err)

		assert.Equal(t, []string{all}, m.Test("user", filters.Document{"anything": 1}))
		assert.Equal(t, []string{all}, m.Test("user", filters.Document{}))
	})

	t.Run("missing referenced field does not match", func(t *testing.T) {
		t.Parallel()
		m := filters.NewMatcher()
		_, err := m.Register("user", mustParse(t, map[string]any{
			"term": map[string]any{"firstName": "Ada"},
		}))
		require.NoError(t, err)

		assert.Empty(t, m.Test("user", filters.Document{"lastName": "Lovelace"}))
	})

	t.Run("range semantics", func(t *testing.T) {
		t.Parallel()
		m := filters.NewMatcher()
		roomID, err := m.Register("user", mustParse(t, map[string]any{
			"range": map[string]any{"age": map[string]any{"gte": 18, "lt": 65}},
		}))
		require.NoError(t, err)

		assert.Equal(t, []string{roomID}, m.Test("user", filters.Document{"age": 18}))
		assert.Equal(t, []string{roomID}, m.Test("user", filters.Document{"age": 64.9}))
		assert.Empty(t, m.Test("user", filters.Document{"age": 65}))
		assert.Empty(t, m.Test("user", filters.Document{"age": 17}))
		// Type-mismatched comparison is non-matching, not an error.
		assert.Empty(t, m.Test("user", filters.Document{"age": "old"}))
	})

	t.Run("not combinator needs a touched field", func(t *testing.T) {
		t.Parallel()
		m := filters.NewMatcher()
		roomID, err := m.Register("user", mustParse(t, map[string]any{
			"not": map[string]any{"term": map[string]any{"role": "bot"}},
		}))
		require.NoError(t, err)

		assert.Equal(t, []string{roomID}, m.Test("user", filters.Document{"role": "human"}))
		assert.Empty(t, m.Test("user", filters.Document{"role": "bot"}))
		// No predicate touches a present field: the room does not match.
		assert.Empty(t, m.Test("user", filters.Document{"name": "x"}))
	})

	t.Run("and with missing clause", func(t *testing.T) {
		t.Parallel()
		m := filters.NewMatcher()
		roomID, err := m.Register("user", mustParse(t, map[string]any{
			"and": []any{
				map[string]any{"term": map[string]any{"status": "active"}},
				map[string]any{"missing": map[string]any{"field": "deletedAt"}},
			},
		}))
		require.NoError(t, err)

		assert.Equal(t, []string{roomID}, m.Test("user", filters.Document{"status": "active"}))
		assert.Empty(t, m.Test("user", filters.Document{"status": "active", "deletedAt": "2026-01-01"}))
	})

	t.Run("nested fields match dot paths", func(t *testing.T) {
		t.Parallel()
		m := filters.NewMatcher()
		roomID, err := m.Register("user", mustParse(t, map[string]any{
			"term": map[string]any{"address.city": "London"},
		}))
		require.NoError(t, err)

		doc := filters.Document{"address": map[string]any{"city": "London"}}
		assert.Equal(t, []string{roomID}, m.Test("user", doc))
	})

	t.Run("collections are isolated", func(t *testing.T) {
		t.Parallel()
		m := filters.NewMatcher()
		_, err := m.Register("user", mustParse(t, map[string]any{
			"term": map[string]any{"a": "b"},
		}))
		require.NoError(t, err)

		assert.Empty(t, m.Test("post", filters.Document{"a": "b"}))
	})
}

func TestMatcher_Concurrency(t *testing.T) {
	t.Parallel()

	m := filters.NewMatcher()
	base, err := m.Register("user", mustParse(t, map[string]any{
		"term": map[string]any{"stable": true},
	}))
	require.NoError(t, err)

	exprs := make([]*filters.Node, 16)
	for i := range exprs {
		exprs[i] = mustParse(t, map[string]any{
			"term": map[string]any{"n": fmt.Sprintf("v%d", i)},
		})
	}

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			roomID, err := m.Register("user", exprs[i])
			assert.NoError(t, err)
			assert.NoError(t, m.Unregister(roomID))
		}()
		go func() {
			defer wg.Done()
			for range 100 {
				matched := m.Test("user", filters.Document{"stable": true})
				assert.Contains(t, matched, base)
			}
		}()
	}
	wg.Wait()
}
