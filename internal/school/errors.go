package school

import (
	"errors"
	"fmt"

	"schooldesk/internal/rowstore"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUsername = errors.New("this username already exists")
	ErrAccountPending    = errors.New("account is pending review and awaiting administrator approval")
	ErrAccountDisabled   = errors.New("this account has been disabled, please contact the administration")
	ErrMissingColumn     = errors.New("sheet is missing a required column")
	ErrInvalidPayload    = errors.New("invalid payload")
)

// NotFoundError names the id that could not be located.
type NotFoundError struct {
	Sheet string
	ID    any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("item with ID %s not found in %s", rowstore.Text(e.ID), e.Sheet)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func missingColumn(sheet string, names ...string) error {
	return fmt.Errorf("%w: %s needs %q", ErrMissingColumn, sheet, names)
}
