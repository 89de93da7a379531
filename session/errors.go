package session

import (
	"errors"
	"fmt"

	"fmeca-service/db"
	"fmeca-service/models"
)

var (
	// ErrStoreUnavailable means the store could not be read at load time.
	// Callers treat it as fatal.
	ErrStoreUnavailable = db.ErrUnavailable

	// ErrValidation covers user-entry type and range violations.
	ErrValidation = errors.New("validation error")

	// ErrReadOnlyColumn is returned for edits to the description or RPN.
	ErrReadOnlyColumn = fmt.Errorf("%w: column is read-only", ErrValidation)

	// ErrThresholdRequired is returned when no threshold value was entered.
	ErrThresholdRequired = fmt.Errorf("%w: a risk threshold is required", ErrValidation)

	// ErrSelectionMissing means an action needs a selected component.
	ErrSelectionMissing = errors.New("no component selected")

	// ErrPersistence means the working set could not be written back.
	// The in-memory working set is left as it was.
	ErrPersistence = errors.New("failed to save working set")

	// ErrNotLoaded is returned by operations that need Load to have run.
	ErrNotLoaded = errors.New("session not loaded")
)

// EditError describes a rejected cell edit. Prior is the value the cell
// must be reverted to.
type EditError struct {
	Key    int64
	Column models.Column
	Raw    string
	Prior  string
	Reason string
	Err    error
}

func (e *EditError) Error() string {
	return fmt.Sprintf("edit %s of row %d rejected: %s", e.Column, e.Key, e.Reason)
}

func (e *EditError) Unwrap() error { return e.Err }
