package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAdapter(t *testing.T) {
	runStoreContract(t, func(t *testing.T) (atomicItemStore, string) {
		return NewMemoryAdapter(), "user-1"
	})
}

func TestMemoryAdapter_NegativeIncrementDropsRecord(t *testing.T) {
	store := NewMemoryAdapter()
	ctx := context.Background()

	require.NoError(t, store.CreateItem(ctx, "user-1", "eggs", 2))
	require.NoError(t, store.IncrementItem(ctx, "user-1", "eggs", -2))

	item, err := store.GetItem(ctx, "user-1", "eggs")
	require.NoError(t, err)
	assert.Nil(t, item)
}
