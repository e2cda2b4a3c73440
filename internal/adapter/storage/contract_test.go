package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/pantry-sync/internal/core/domain"
	"github.com/rl1809/pantry-sync/internal/port"
)

type atomicItemStore interface {
	port.ItemStore
	port.Upserter
	port.Withdrawer
}

// runStoreContract checks the behaviour every ItemStore adapter shares.
// newStore must return an empty store scoped to the given user.
func runStoreContract(t *testing.T, newStore func(t *testing.T) (atomicItemStore, string)) {
	t.Run("GetItem_Absent", func(t *testing.T) {
		store, user := newStore(t)
		item, err := store.GetItem(context.Background(), user, "eggs")
		require.NoError(t, err)
		assert.Nil(t, item)
	})

	t.Run("CreateItem_ThenDuplicate", func(t *testing.T) {
		store, user := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.CreateItem(ctx, user, "eggs", 3))
		err := store.CreateItem(ctx, user, "eggs", 1)
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)

		item, err := store.GetItem(ctx, user, "eggs")
		require.NoError(t, err)
		require.NotNil(t, item)
		assert.Equal(t, 3, item.Quantity)
	})

	t.Run("IncrementItem", func(t *testing.T) {
		store, user := newStore(t)
		ctx := context.Background()

		err := store.IncrementItem(ctx, user, "milk", 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		require.NoError(t, store.CreateItem(ctx, user, "milk", 1))
		require.NoError(t, store.IncrementItem(ctx, user, "milk", 4))
		require.NoError(t, store.IncrementItem(ctx, user, "milk", -2))

		item, err := store.GetItem(ctx, user, "milk")
		require.NoError(t, err)
		require.NotNil(t, item)
		assert.Equal(t, 3, item.Quantity)
	})

	t.Run("AddQuantity_CreatesThenIncrements", func(t *testing.T) {
		store, user := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.AddQuantity(ctx, user, "rice", 1))
		require.NoError(t, store.AddQuantity(ctx, user, "rice", 2))

		item, err := store.GetItem(ctx, user, "rice")
		require.NoError(t, err)
		require.NotNil(t, item)
		assert.Equal(t, 3, item.Quantity)

		assert.ErrorIs(t, store.AddQuantity(ctx, user, "rice", 0), domain.ErrInvalidArgument)
	})

	t.Run("TakeQuantity", func(t *testing.T) {
		store, user := newStore(t)
		ctx := context.Background()

		_, err := store.TakeQuantity(ctx, user, "salt", 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		require.NoError(t, store.AddQuantity(ctx, user, "salt", 5))

		remaining, err := store.TakeQuantity(ctx, user, "salt", 2)
		require.NoError(t, err)
		assert.Equal(t, 3, remaining)

		remaining, err = store.TakeQuantity(ctx, user, "salt", 10)
		require.NoError(t, err)
		assert.Equal(t, 0, remaining)

		item, err := store.GetItem(ctx, user, "salt")
		require.NoError(t, err)
		assert.Nil(t, item, "record must be deleted at zero")
	})

	t.Run("GetAllItems_And_DeleteScope", func(t *testing.T) {
		store, user := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.AddQuantity(ctx, user, "eggs", 2))
		require.NoError(t, store.AddQuantity(ctx, user, "milk", 1))

		items, err := store.GetAllItems(ctx, user)
		require.NoError(t, err)
		snap := domain.NewSnapshot(user, items)
		require.Len(t, snap.Items, 2)
		assert.Equal(t, 2, snap.Quantity("eggs"))
		assert.Equal(t, 1, snap.Quantity("milk"))

		require.NoError(t, store.DeleteItem(ctx, user, "milk"))
		require.NoError(t, store.DeleteItem(ctx, user, "milk"), "deleting an absent record is not an error")

		require.NoError(t, store.DeleteScope(ctx, user))
		items, err = store.GetAllItems(ctx, user)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("AddQuantity_Concurrent", func(t *testing.T) {
		store, user := newStore(t)
		ctx := context.Background()
		total := 40

		var wg sync.WaitGroup
		for i := 0; i < total; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := store.AddQuantity(ctx, user, "beans", 1); err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		item, err := store.GetItem(ctx, user, "beans")
		require.NoError(t, err)
		require.NotNil(t, item)
		assert.Equal(t, total, item.Quantity)
	})
}
