package executor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrForceStopped is returned by Run when Stop interrupted the run.
	ErrForceStopped = errors.New("run force stopped")

	// ErrBusy is returned when a run is already in progress.
	ErrBusy = errors.New("another logic is running")

	// ErrTooManySteps is returned when a logic expands past MaxSteps.
	ErrTooManySteps = errors.New("logic expands to too many steps")

	// ErrNoEffector is returned when an item needs an effector that was not
	// configured.
	ErrNoEffector = errors.New("no effector for item")
)

// CycleError reports a nested-logic reference cycle. Path lists logic names
// from the outer logic to the repeated one.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "logic reference cycle: " + strings.Join(e.Path, " -> ")
}

// DepthError reports nesting deeper than the configured limit.
type DepthError struct {
	Limit int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("logic nesting exceeds %d levels", e.Limit)
}

// MissingLogicError reports a dangling nested-logic reference.
type MissingLogicError struct {
	ID     uuid.UUID
	Parent string
}

func (e *MissingLogicError) Error() string {
	return fmt.Sprintf("logic %q references missing logic %s", e.Parent, e.ID)
}

// ImageTimeoutError reports an image_search gate that timed out.
type ImageTimeoutError struct {
	ImagePath string
}

func (e *ImageTimeoutError) Error() string {
	return fmt.Sprintf("image %s not found before timeout", e.ImagePath)
}
