package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/solatis/fieldcheck/internal/types"
)

// Error classes shared by the transports.
// Configuration errors map to INVALID_ARGUMENT / 400.
// Missing rule sets and presets map to NOT_FOUND / 404.
// Storage errors map to UNAVAILABLE / 503.
// Context timeouts map to DEADLINE_EXCEEDED / 504.

// ErrStorage wraps failures of the backing store.
var ErrStorage = errors.New("storage unavailable")

// Class is the transport-neutral category of a service error.
type Class int

const (
	ClassInternal Class = iota
	ClassInvalid
	ClassNotFound
	ClassUnavailable
	ClassTimeout
	ClassCanceled
)

// Classify returns the category of err.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassInternal
	case types.IsConfigError(err):
		return ClassInvalid
	case errors.Is(err, types.ErrRuleSetNotFound), errors.Is(err, types.ErrPresetNotFound):
		return ClassNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	case errors.Is(err, context.Canceled):
		return ClassCanceled
	case errors.Is(err, ErrStorage):
		return ClassUnavailable
	default:
		return ClassInternal
	}
}

// storageError tags store failures, leaving not-found and validation
// errors recognizable.
func storageError(err error) error {
	if err == nil || types.IsConfigError(err) ||
		errors.Is(err, types.ErrRuleSetNotFound) || errors.Is(err, types.ErrPresetNotFound) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
