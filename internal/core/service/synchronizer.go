package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/pantry-sync/internal/core/domain"
	"github.com/rl1809/pantry-sync/internal/port"
)

const tracerName = "github.com/rl1809/pantry-sync/internal/core/service"

// Synchronizer applies inventory mutations to the remote store and returns
// the post-mutation snapshot, re-fetched in full after every write.
type Synchronizer struct {
	store        port.ItemStore
	identity     port.IdentityDeleter
	publisher    port.EventPublisher
	logger       *zap.Logger
	tracer       trace.Tracer

	queueMu      sync.Mutex
	queueClosed  bool
	cleanupQueue chan string
}

func NewSynchronizer(store port.ItemStore, identity port.IdentityDeleter, publisher port.EventPublisher, logger *zap.Logger, queueSize int) *Synchronizer {
	return &Synchronizer{
		store:        store,
		identity:     identity,
		publisher:    publisher,
		logger:       logger,
		tracer:       otel.Tracer(tracerName),
		cleanupQueue: make(chan string, queueSize),
	}
}

func (s *Synchronizer) Refresh(ctx context.Context, session domain.Session) (domain.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.refresh")
	defer span.End()

	if err := requireSession(session); err != nil {
		return domain.Snapshot{}, err
	}
	span.SetAttributes(attribute.String("user.id", session.UserID))

	snap, err := s.refresh(ctx, session.UserID)
	if err != nil {
		s.fail(span, "refresh failed", err, zap.String("user_id", session.UserID))
		return domain.Snapshot{}, err
	}

	span.SetAttributes(attribute.Int("inventory.records", len(snap.Items)))
	return snap, nil
}

func (s *Synchronizer) Item(ctx context.Context, session domain.Session, name string) (domain.Item, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.get_item")
	defer span.End()

	if err := requireSession(session); err != nil {
		return domain.Item{}, err
	}
	name, err := domain.NormalizeName(name)
	if err != nil {
		return domain.Item{}, err
	}

	item, err := s.store.GetItem(ctx, session.UserID, name)
	if err != nil {
		err = domain.Remote("get item", err)
		s.fail(span, "get item failed", err, zap.String("user_id", session.UserID), zap.String("item", name))
		return domain.Item{}, err
	}
	if item == nil {
		return domain.Item{}, fmt.Errorf("item %q: %w", name, domain.ErrNotFound)
	}
	return *item, nil
}

// AddItem creates the record with quantity 1 or increments it by 1.
func (s *Synchronizer) AddItem(ctx context.Context, session domain.Session, name string) (domain.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.add_item")
	defer span.End()

	if err := requireSession(session); err != nil {
		return domain.Snapshot{}, err
	}
	name, err := domain.NormalizeName(name)
	if err != nil {
		s.fail(span, "add item rejected", err, zap.String("user_id", session.UserID))
		return domain.Snapshot{}, err
	}
	span.SetAttributes(
		attribute.String("user.id", session.UserID),
		attribute.String("inventory.item", name),
	)

	if err := s.addOne(ctx, session.UserID, name); err != nil {
		s.fail(span, "add item failed", err, zap.String("user_id", session.UserID), zap.String("item", name))
		return domain.Snapshot{}, err
	}

	snap, err := s.refresh(ctx, session.UserID)
	if err != nil {
		s.fail(span, "refresh after add failed", err, zap.String("user_id", session.UserID))
		return domain.Snapshot{}, err
	}

	quantity := snap.Quantity(name)
	span.SetAttributes(attribute.Int("inventory.quantity", quantity))
	s.publish(ctx, domain.EventItemAdded, session.UserID, name, quantity)
	return snap, nil
}

// RemoveItem takes amount units; the record is deleted once nothing remains.
func (s *Synchronizer) RemoveItem(ctx context.Context, session domain.Session, name string, amount int) (domain.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.remove_item")
	defer span.End()

	if err := requireSession(session); err != nil {
		return domain.Snapshot{}, err
	}
	name, err := domain.NormalizeName(name)
	if err == nil && amount <= 0 {
		err = fmt.Errorf("%w: amount must be positive, got %d", domain.ErrInvalidArgument, amount)
	}
	if err != nil {
		s.fail(span, "remove item rejected", err, zap.String("user_id", session.UserID))
		return domain.Snapshot{}, err
	}
	span.SetAttributes(
		attribute.String("user.id", session.UserID),
		attribute.String("inventory.item", name),
		attribute.Int("inventory.amount", amount),
	)

	remaining, err := s.take(ctx, session.UserID, name, amount)
	if err != nil {
		s.fail(span, "remove item failed", err, zap.String("user_id", session.UserID), zap.String("item", name))
		return domain.Snapshot{}, err
	}

	snap, err := s.refresh(ctx, session.UserID)
	if err != nil {
		s.fail(span, "refresh after remove failed", err, zap.String("user_id", session.UserID))
		return domain.Snapshot{}, err
	}

	span.SetAttributes(attribute.Int("inventory.quantity", remaining))
	s.publish(ctx, domain.EventItemRemoved, session.UserID, name, remaining)
	return snap, nil
}

// DeleteAccount removes the inventory scope, then the identity. A failure
// between the two returns *domain.PartialFailureError and queues the identity
// for background cleanup.
func (s *Synchronizer) DeleteAccount(ctx context.Context, session domain.Session) error {
	ctx, span := s.tracer.Start(ctx, "account.delete")
	defer span.End()

	if err := requireSession(session); err != nil {
		return err
	}
	span.SetAttributes(attribute.String("user.id", session.UserID))

	if err := s.store.DeleteScope(ctx, session.UserID); err != nil {
		err = domain.Remote("delete scope", err)
		s.fail(span, "delete inventory scope failed", err, zap.String("user_id", session.UserID))
		return err
	}

	if err := s.identity.DeleteIdentity(ctx, session.UserID); err != nil {
		pf := &domain.PartialFailureError{UserID: session.UserID, Stage: domain.StageDeleteIdentity, Err: err}
		s.fail(span, "account partially deleted", pf, zap.String("user_id", session.UserID))
		s.enqueueCleanup(session.UserID)
		return pf
	}

	s.logger.Info("account deleted", zap.String("user_id", session.UserID))
	s.publish(ctx, domain.EventAccountDeleted, session.UserID, "", 0)
	return nil
}

// GetCleanupQueue exposes user ids whose identity deletion must be retried.
func (s *Synchronizer) GetCleanupQueue() <-chan string {
	return s.cleanupQueue
}

// Close stops accepting cleanups. Partial deletions that finish afterwards
// are logged and dropped. Safe to call more than once.
func (s *Synchronizer) Close() {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()

	if s.queueClosed {
		return
	}
	s.queueClosed = true
	close(s.cleanupQueue)
}

func (s *Synchronizer) refresh(ctx context.Context, userID string) (domain.Snapshot, error) {
	items, err := s.store.GetAllItems(ctx, userID)
	if err != nil {
		return domain.Snapshot{}, domain.Remote("get all items", err)
	}
	return domain.NewSnapshot(userID, items), nil
}

func (s *Synchronizer) addOne(ctx context.Context, userID, name string) error {
	if upserter, ok := s.store.(port.Upserter); ok {
		return domain.Remote("add quantity", upserter.AddQuantity(ctx, userID, name, 1))
	}

	existing, err := s.store.GetItem(ctx, userID, name)
	if err != nil {
		return domain.Remote("get item", err)
	}
	if existing != nil {
		return domain.Remote("increment item", s.store.IncrementItem(ctx, userID, name, 1))
	}

	err = s.store.CreateItem(ctx, userID, name, 1)
	if errors.Is(err, domain.ErrAlreadyExists) {
		// another writer created it between the read and the insert
		return domain.Remote("increment item", s.store.IncrementItem(ctx, userID, name, 1))
	}
	return domain.Remote("create item", err)
}

func (s *Synchronizer) take(ctx context.Context, userID, name string, amount int) (int, error) {
	if withdrawer, ok := s.store.(port.Withdrawer); ok {
		remaining, err := withdrawer.TakeQuantity(ctx, userID, name, amount)
		if err != nil {
			return 0, domain.Remote("take quantity", err)
		}
		return remaining, nil
	}

	existing, err := s.store.GetItem(ctx, userID, name)
	if err != nil {
		return 0, domain.Remote("get item", err)
	}
	if existing == nil {
		return 0, fmt.Errorf("item %q: %w", name, domain.ErrNotFound)
	}
	if amount >= existing.Quantity {
		return 0, domain.Remote("delete item", s.store.DeleteItem(ctx, userID, name))
	}
	return existing.Quantity - amount, domain.Remote("increment item", s.store.IncrementItem(ctx, userID, name, -amount))
}

func (s *Synchronizer) enqueueCleanup(userID string) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()

	if s.queueClosed {
		s.logger.Error("identity cleanup queue closed, dropping", zap.String("user_id", userID))
		return
	}

	select {
	case s.cleanupQueue <- userID:
		s.logger.Info("queued identity cleanup", zap.String("user_id", userID))
	default:
		s.logger.Error("identity cleanup queue full, dropping", zap.String("user_id", userID))
	}
}

func (s *Synchronizer) publish(ctx context.Context, eventType domain.EventType, userID, item string, quantity int) {
	event := domain.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		Item:       item,
		Quantity:   quantity,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("event_type", string(eventType)),
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

func (s *Synchronizer) fail(span trace.Span, msg string, err error, fields ...zap.Field) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)

	fields = append(fields, zap.Error(err))
	if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn(msg, fields...)
		return
	}
	s.logger.Error(msg, fields...)
}

func requireSession(session domain.Session) error {
	if !session.Valid() {
		return fmt.Errorf("%w: no signed-in user", domain.ErrUnauthenticated)
	}
	return nil
}
