package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is the parent of every "record does not exist" error.
var ErrNotFound = errors.New("not found")

var (
	ErrResidentNotFound    = fmt.Errorf("resident %w", ErrNotFound)
	ErrEmployeeNotFound    = fmt.Errorf("employee %w", ErrNotFound)
	ErrWeightSheetNotFound = fmt.Errorf("weight sheet %w", ErrNotFound)
	ErrWeightNotFound      = fmt.Errorf("weight %w", ErrNotFound)
)

var (
	// ErrAlreadyExists is returned when a weight sheet already exists for the
	// same resident and date.
	ErrAlreadyExists = errors.New("already exists")
	// ErrDateRequired is returned by date-scoped bulk operations called
	// without a date.
	ErrDateRequired = errors.New("a date must be provided")
	// ErrInvalidDate is returned for dates not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("invalid date")
	// ErrSheetLocked is returned when updating a finalized sheet while the
	// lock policy is enforced.
	ErrSheetLocked = errors.New("weight sheet is finalized")
)
