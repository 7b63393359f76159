package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestListProducts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("returns seeded products ordered by id", func(t *testing.T) {
		products, err := store.ListProducts(ctx, "", 100)
		require.NoError(t, err)
		require.Len(t, products, 8)
		for i := 1; i < len(products); i++ {
			assert.Greater(t, products[i].ID, products[i-1].ID)
		}
	})

	t.Run("respects the limit", func(t *testing.T) {
		products, err := store.ListProducts(ctx, "", 3)
		require.NoError(t, err)
		assert.Len(t, products, 3)
	})

	t.Run("filters by category substring", func(t *testing.T) {
		products, err := store.ListProducts(ctx, "serum", 100)
		require.NoError(t, err)
		require.NotEmpty(t, products)
		for _, p := range products {
			assert.Equal(t, "facial serum", p.Category)
		}
	})

	t.Run("unknown category returns nothing", func(t *testing.T) {
		products, err := store.ListProducts(ctx, "does-not-exist", 100)
		require.NoError(t, err)
		assert.Empty(t, products)
	})

	t.Run("attaches intent tags", func(t *testing.T) {
		products, err := store.ListProducts(ctx, "", 100)
		require.NoError(t, err)

		tagged := 0
		for _, p := range products {
			if len(p.Tags) > 0 {
				tagged++
			}
		}
		assert.NotZero(t, tagged, "no products carry intent tags")
	})
}

func TestTagsForProducts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("empty input yields empty map", func(t *testing.T) {
		tags, err := store.TagsForProducts(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, tags)
	})

	t.Run("batches ingredient tags per product", func(t *testing.T) {
		tags, err := store.TagsForProducts(ctx, []int{4, 5})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"retinol", "retinoid"}, tags[4])
		assert.Contains(t, tags[5], "bha")
	})
}
