package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/rl1809/pantry-sync/internal/core/domain"
)

// Tracker holds one session's local view. The view is replaced only by a
// successful operation; failures leave it as it was.
type Tracker struct {
	mu           sync.Mutex
	synchronizer *Synchronizer
	session      domain.Session
	view         domain.Snapshot
}

func NewTracker(synchronizer *Synchronizer, session domain.Session) *Tracker {
	return &Tracker{
		synchronizer: synchronizer,
		session:      session,
		view:         domain.NewSnapshot(session.UserID, nil),
	}
}

func (t *Tracker) Refresh(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap, err := t.synchronizer.Refresh(ctx, t.session)
	return t.apply("refresh", snap, err)
}

func (t *Tracker) Add(ctx context.Context, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap, err := t.synchronizer.AddItem(ctx, t.session, name)
	return t.apply("add item", snap, err)
}

func (t *Tracker) Remove(ctx context.Context, name string, amount int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap, err := t.synchronizer.RemoveItem(ctx, t.session, name, amount)
	return t.apply("remove item", snap, err)
}

func (t *Tracker) View() domain.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.view.Clone()
}

func (t *Tracker) Session() domain.Session {
	return t.session
}

func (t *Tracker) apply(op string, snap domain.Snapshot, err error) error {
	if err != nil {
		t.synchronizer.logger.Warn("local view unchanged",
			zap.String("op", op),
			zap.String("user_id", t.session.UserID),
			zap.Error(err),
		)
		return err
	}
	t.view = snap
	return nil
}
