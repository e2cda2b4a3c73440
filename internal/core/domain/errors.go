package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrRemoteUnavailable = errors.New("remote unavailable")
	ErrAlreadyExists     = errors.New("already exists")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrPartialFailure    = errors.New("partial failure")
)

type DeletionStage string

const (
	StageDeleteScope    DeletionStage = "delete_scope"
	StageDeleteIdentity DeletionStage = "delete_identity"
)

// PartialFailureError reports an account deletion that removed the inventory
// scope but left the identity behind.
type PartialFailureError struct {
	UserID string
	Stage  DeletionStage
	Err    error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("account %s partially deleted, failed at %s: %v", e.UserID, e.Stage, e.Err)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Err
}

func (e *PartialFailureError) Is(target error) bool {
	return target == ErrPartialFailure
}

// Remote wraps a store or provider failure so callers can match
// ErrRemoteUnavailable while keeping the cause. Domain sentinels pass through.
func Remote(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrNotFound, ErrInvalidArgument, ErrAlreadyExists, ErrUnauthenticated} {
		if errors.Is(err, known) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, ErrRemoteUnavailable, err)
}
