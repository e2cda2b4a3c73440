package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/pantry-sync/internal/core/domain"
	"github.com/rl1809/pantry-sync/internal/port"
)

func storeVariants() map[string]func() port.ItemStore {
	return map[string]func() port.ItemStore{
		"minimal": func() port.ItemStore { return newMockItemStore() },
		"atomic":  func() port.ItemStore { return newMockAtomicStore() },
	}
}

func TestAddItem_RepeatedAddsAccumulate(t *testing.T) {
	for name, newStore := range storeVariants() {
		t.Run(name, func(t *testing.T) {
			svc, _, _ := newTestSynchronizer(newStore())
			ctx := context.Background()

			var snap domain.Snapshot
			var err error
			for i := 0; i < 5; i++ {
				snap, err = svc.AddItem(ctx, testSession, "flour")
				require.NoError(t, err)
			}

			assert.Equal(t, 5, snap.Quantity("flour"))
			assert.Len(t, snap.Items, 1)
		})
	}
}

func TestScenario_Eggs(t *testing.T) {
	for name, newStore := range storeVariants() {
		t.Run(name, func(t *testing.T) {
			svc, _, _ := newTestSynchronizer(newStore())
			ctx := context.Background()

			_, err := svc.AddItem(ctx, testSession, "eggs")
			require.NoError(t, err)
			snap, err := svc.AddItem(ctx, testSession, "eggs")
			require.NoError(t, err)
			assert.Equal(t, 2, snap.Quantity("eggs"))

			snap, err = svc.RemoveItem(ctx, testSession, "eggs", 1)
			require.NoError(t, err)
			assert.Equal(t, 1, snap.Quantity("eggs"))

			snap, err = svc.RemoveItem(ctx, testSession, "eggs", 5)
			require.NoError(t, err)
			_, found := snap.Find("eggs")
			assert.False(t, found, "record should be absent after removing more than stocked")
		})
	}
}

func TestAddItem_EmptyNameRejectedWithoutRemoteCall(t *testing.T) {
	store := newMockItemStore()
	svc, _, publisher := newTestSynchronizer(store)

	for _, name := range []string{"", "   "} {
		_, err := svc.AddItem(context.Background(), testSession, name)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	}

	assert.Equal(t, 0, store.callCount())
	assert.Empty(t, publisher.published())
}

func TestRemoveItem_NonPositiveAmountRejected(t *testing.T) {
	store := newMockItemStore()
	svc, _, _ := newTestSynchronizer(store)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, testSession, "milk")
	require.NoError(t, err)
	callsBefore := store.callCount()

	for _, amount := range []int{0, -1, -10} {
		_, err := svc.RemoveItem(ctx, testSession, "milk", amount)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	}

	assert.Equal(t, callsBefore, store.callCount())
	qty, ok := store.quantity(testSession.UserID, "milk")
	assert.True(t, ok)
	assert.Equal(t, 1, qty)
}

func TestRemoveItem_PartialAmountDecrements(t *testing.T) {
	for name, newStore := range storeVariants() {
		t.Run(name, func(t *testing.T) {
			svc, _, publisher := newTestSynchronizer(newStore())
			ctx := context.Background()

			for i := 0; i < 4; i++ {
				_, err := svc.AddItem(ctx, testSession, "rice")
				require.NoError(t, err)
			}

			snap, err := svc.RemoveItem(ctx, testSession, "rice", 3)
			require.NoError(t, err)
			assert.Equal(t, 1, snap.Quantity("rice"))

			events := publisher.published()
			require.NotEmpty(t, events)
			last := events[len(events)-1]
			assert.Equal(t, domain.EventItemRemoved, last.Type)
			assert.Equal(t, 1, last.Quantity)
		})
	}
}

func TestRemoveItem_ExactAmountDeletesRecord(t *testing.T) {
	for name, newStore := range storeVariants() {
		t.Run(name, func(t *testing.T) {
			store := newStore()
			svc, _, _ := newTestSynchronizer(store)
			ctx := context.Background()

			_, err := svc.AddItem(ctx, testSession, "salt")
			require.NoError(t, err)
			_, err = svc.AddItem(ctx, testSession, "salt")
			require.NoError(t, err)

			snap, err := svc.RemoveItem(ctx, testSession, "salt", 2)
			require.NoError(t, err)
			assert.Empty(t, snap.Items)

			item, err := store.GetItem(ctx, testSession.UserID, "salt")
			require.NoError(t, err)
			assert.Nil(t, item)
		})
	}
}

func TestRemoveItem_MissingRecordIsNotFound(t *testing.T) {
	for name, newStore := range storeVariants() {
		t.Run(name, func(t *testing.T) {
			svc, _, publisher := newTestSynchronizer(newStore())

			_, err := svc.RemoveItem(context.Background(), testSession, "butter", 1)
			assert.ErrorIs(t, err, domain.ErrNotFound)
			assert.NotErrorIs(t, err, domain.ErrRemoteUnavailable)
			assert.Empty(t, publisher.published())
		})
	}
}

func TestAddItem_RemoteFailureSurfaces(t *testing.T) {
	store := newMockAtomicStore()
	store.fail("AddQuantity", errBackendDown)
	svc, _, publisher := newTestSynchronizer(store)

	snap, err := svc.AddItem(context.Background(), testSession, "eggs")
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
	assert.ErrorIs(t, err, errBackendDown)
	assert.Empty(t, snap.Items)
	assert.Empty(t, publisher.published())
}

func TestAddItem_RefreshFailureSurfaces(t *testing.T) {
	store := newMockItemStore()
	store.fail("GetAllItems", errBackendDown)
	svc, _, _ := newTestSynchronizer(store)

	_, err := svc.AddItem(context.Background(), testSession, "eggs")
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)

	qty, ok := store.quantity(testSession.UserID, "eggs")
	assert.True(t, ok, "write happened before the failed refresh")
	assert.Equal(t, 1, qty)
}

// racingStore hides the record from GetItem to simulate a concurrent creator
type racingStore struct {
	*mockItemStore
}

func (r racingStore) GetItem(ctx context.Context, userID, name string) (*domain.Item, error) {
	return nil, nil
}

func TestAddItem_FallbackRecoversFromCreateRace(t *testing.T) {
	inner := newMockItemStore()
	require.NoError(t, inner.CreateItem(context.Background(), testSession.UserID, "oats", 1))
	svc, _, _ := newTestSynchronizer(racingStore{inner})

	snap, err := svc.AddItem(context.Background(), testSession, "oats")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Quantity("oats"))
}

func TestAddItem_UsesAtomicUpsertWhenAvailable(t *testing.T) {
	store := newMockAtomicStore()
	svc, _, _ := newTestSynchronizer(store)

	_, err := svc.AddItem(context.Background(), testSession, "tea")
	require.NoError(t, err)

	assert.Equal(t, 1, store.upserts)
	assert.Equal(t, 0, store.created)
}

func TestAddItem_ConcurrentAtomic(t *testing.T) {
	store := newMockAtomicStore()
	svc, _, _ := newTestSynchronizer(store)
	ctx := context.Background()
	total := 50

	var wg sync.WaitGroup
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AddItem(ctx, testSession, "beans"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	qty, _ := store.quantity(testSession.UserID, "beans")
	assert.Equal(t, total, qty)
}

func TestAddItem_NormalizesName(t *testing.T) {
	svc, _, _ := newTestSynchronizer(newMockAtomicStore())
	ctx := context.Background()

	_, err := svc.AddItem(ctx, testSession, " café ")
	require.NoError(t, err)
	snap, err := svc.AddItem(ctx, testSession, "café")
	require.NoError(t, err)

	require.Len(t, snap.Items, 1)
	assert.Equal(t, 2, snap.Items[0].Quantity)
}

func TestRefresh_ReflectsLastMutation(t *testing.T) {
	svc, _, _ := newTestSynchronizer(newMockAtomicStore())
	ctx := context.Background()

	mutated, err := svc.AddItem(ctx, testSession, "pasta")
	require.NoError(t, err)
	mutated, err = svc.AddItem(ctx, testSession, "sauce")
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, testSession)
	require.NoError(t, err)
	assert.Equal(t, mutated, refreshed)
}

func TestRefresh_ScopedPerUser(t *testing.T) {
	svc, _, _ := newTestSynchronizer(newMockAtomicStore())
	ctx := context.Background()
	other := domain.Session{UserID: "user-2"}

	_, err := svc.AddItem(ctx, testSession, "pasta")
	require.NoError(t, err)

	snap, err := svc.Refresh(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, snap.Items)
	assert.Equal(t, "user-2", snap.UserID)
}

func TestOperations_RequireSession(t *testing.T) {
	store := newMockItemStore()
	svc, _, _ := newTestSynchronizer(store)
	ctx := context.Background()
	anonymous := domain.Session{}

	_, err := svc.Refresh(ctx, anonymous)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = svc.AddItem(ctx, anonymous, "eggs")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = svc.RemoveItem(ctx, anonymous, "eggs", 1)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.ErrorIs(t, svc.DeleteAccount(ctx, anonymous), domain.ErrUnauthenticated)

	assert.Equal(t, 0, store.callCount())
}

func TestItem(t *testing.T) {
	svc, _, _ := newTestSynchronizer(newMockItemStore())
	ctx := context.Background()

	_, err := svc.Item(ctx, testSession, "jam")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.AddItem(ctx, testSession, "jam")
	require.NoError(t, err)

	item, err := svc.Item(ctx, testSession, "jam")
	require.NoError(t, err)
	assert.Equal(t, domain.Item{Name: "jam", Quantity: 1}, item)
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	store := newMockAtomicStore()
	svc, _, publisher := newTestSynchronizer(store)
	publisher.err = errors.New("kafka unreachable")

	snap, err := svc.AddItem(context.Background(), testSession, "eggs")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Quantity("eggs"))
}

func TestDeleteAccount_DeletesDataThenIdentity(t *testing.T) {
	store := newMockAtomicStore()
	svc, identity, publisher := newTestSynchronizer(store)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, testSession, "eggs")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAccount(ctx, testSession))

	snap, err := svc.Refresh(ctx, testSession)
	require.NoError(t, err)
	assert.Empty(t, snap.Items)
	assert.Equal(t, []string{"user-1"}, identity.deletedUsers())

	events := publisher.published()
	require.NotEmpty(t, events)
	assert.Equal(t, domain.EventAccountDeleted, events[len(events)-1].Type)
}

func TestDeleteAccount_ScopeFailureKeepsIdentity(t *testing.T) {
	store := newMockItemStore()
	store.fail("DeleteScope", errBackendDown)
	svc, identity, _ := newTestSynchronizer(store)

	err := svc.DeleteAccount(context.Background(), testSession)
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
	assert.NotErrorIs(t, err, domain.ErrPartialFailure)
	assert.Empty(t, identity.deletedUsers())
}

func TestDeleteAccount_PartialFailureIsReportedAndQueued(t *testing.T) {
	store := newMockItemStore()
	svc, identity, publisher := newTestSynchronizer(store)
	identity.failures = 1
	identity.err = errBackendDown

	err := svc.DeleteAccount(context.Background(), testSession)

	var pf *domain.PartialFailureError
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, "user-1", pf.UserID)
	assert.Equal(t, domain.StageDeleteIdentity, pf.Stage)
	assert.ErrorIs(t, err, errBackendDown)
	assert.Empty(t, publisher.published())

	select {
	case userID := <-svc.GetCleanupQueue():
		assert.Equal(t, "user-1", userID)
	default:
		t.Fatal("expected user to be queued for identity cleanup")
	}
}

func TestDeleteAccount_PartialFailureAfterCloseIsDropped(t *testing.T) {
	store := newMockItemStore()
	svc, identity, _ := newTestSynchronizer(store)
	identity.failures = 1
	identity.err = errBackendDown

	svc.Close()
	svc.Close()

	var err error
	require.NotPanics(t, func() {
		err = svc.DeleteAccount(context.Background(), testSession)
	})

	var pf *domain.PartialFailureError
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, domain.StageDeleteIdentity, pf.Stage)

	_, open := <-svc.GetCleanupQueue()
	assert.False(t, open)
}
