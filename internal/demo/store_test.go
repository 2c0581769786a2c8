package demo

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/wiggly/internal/util"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := NewRedisStore(client, "")
	require.NoError(t, s.Seed(context.Background(), SeedProducts()))
	return s
}

func stores(t *testing.T) map[string]ProductStore {
	return map[string]ProductStore{
		"memory": NewMemoryStore(SeedProducts()),
		"redis":  newRedisStore(t),
	}
}

func TestProductStore(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			list, err := store.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, SeedProducts(), list)

			p, err := store.Get(ctx, "2")
			require.NoError(t, err)
			assert.Equal(t, "Smartphone", p.Name)

			_, err = store.Get(ctx, "99")
			assert.ErrorIs(t, err, ErrProductNotFound)
			assert.True(t, IsNotFound(err))

			created, err := store.Create(ctx, ProductInput{Name: "Monitor", Price: 300})
			require.NoError(t, err)
			assert.Equal(t, "4", created.ID)

			_, err = store.Create(ctx, ProductInput{Name: " "})
			assert.ErrorIs(t, err, util.ErrInvalidInput)

			price := 250.0
			updated, err := store.Update(ctx, "4", ProductPatch{Price: &price})
			require.NoError(t, err)
			assert.Equal(t, Product{ID: "4", Name: "Monitor", Price: 250}, updated)

			got, err := store.Get(ctx, "4")
			require.NoError(t, err)
			assert.Equal(t, updated, got)

			_, err = store.Update(ctx, "99", ProductPatch{Price: &price})
			assert.ErrorIs(t, err, ErrProductNotFound)

			negative := -1.0
			_, err = store.Update(ctx, "4", ProductPatch{Price: &negative})
			assert.ErrorIs(t, err, util.ErrInvalidInput)

			require.NoError(t, store.Delete(ctx, "1"))
			require.NoError(t, store.Delete(ctx, "1"))
			list, err = store.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 3)
			assert.Equal(t, []string{"2", "3", "4"}, []string{list[0].ID, list[1].ID, list[2].ID})

			// IDs are never reused.
			next, err := store.Create(ctx, ProductInput{Name: "Mouse", Price: 20})
			require.NoError(t, err)
			assert.Equal(t, "5", next.ID)
		})
	}
}

func TestProductStore_ConcurrentCreate(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := store.Create(context.Background(), ProductInput{Name: "item"})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			list, err := store.List(context.Background())
			require.NoError(t, err)
			assert.Len(t, list, 23)
		})
	}
}

func TestRedisStore_SeedOnlyWhenEmpty(t *testing.T) {
	t.Parallel()

	s := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Delete(ctx, "3"))
	require.NoError(t, s.Seed(ctx, SeedProducts()))

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestProductPatch_Apply(t *testing.T) {
	t.Parallel()

	name := "New"
	desc := "Described"
	empty := ""
	base := Product{ID: "1", Name: "Old", Price: 5}

	got, err := ProductPatch{Name: &name, Description: &desc}.Apply(base)
	require.NoError(t, err)
	assert.Equal(t, Product{ID: "1", Name: "New", Description: "Described", Price: 5}, got)

	_, err = ProductPatch{Name: &empty}.Apply(base)
	assert.ErrorIs(t, err, util.ErrInvalidInput)
}
