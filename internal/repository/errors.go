package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a logic id is unknown
	ErrNotFound = errors.New("logic not found")

	// ErrClipboardEmpty is returned by Paste when nothing was copied
	ErrClipboardEmpty = errors.New("clipboard is empty")
)

// ValidationError is a user-correctable save failure.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ReferencedError blocks deleting a logic still used by other logics.
type ReferencedError struct {
	ID       uuid.UUID
	Referrer []string
}

func (e *ReferencedError) Error() string {
	return fmt.Sprintf("logic is still used by: %s", strings.Join(e.Referrer, ", "))
}
