package logic

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyName is returned when a logic has no name
	ErrEmptyName = errors.New("logic name must not be empty")

	// ErrInvalidRepeat is returned when repeat_count is below 1
	ErrInvalidRepeat = errors.New("repeat count must be at least 1")

	// ErrMissingTrigger is returned when a non-nested logic has no trigger key
	ErrMissingTrigger = errors.New("non-nested logic requires a trigger key")

	// ErrNestedTrigger is returned when a nested logic carries a trigger key
	ErrNestedTrigger = errors.New("nested logic must not have a trigger key")

	// ErrUnknownItemType is returned when decoding an item with an unrecognised type
	ErrUnknownItemType = errors.New("unknown item type")

	// ErrUnknownKey is returned when a key name cannot be mapped to a virtual key
	ErrUnknownKey = errors.New("unknown key name")
)

// MalformedItemError reports an item whose payload failed validation.
type MalformedItemError struct {
	Index int
	Type  ItemType
	Err   error
}

func (e *MalformedItemError) Error() string {
	return fmt.Sprintf("item %d (%s) is malformed: %v", e.Index+1, e.Type, e.Err)
}

func (e *MalformedItemError) Unwrap() error { return e.Err }

// OrderError reports a broken 1..N order sequence.
type OrderError struct {
	Want, Got int
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("item order not dense: expected %d, found %d", e.Want, e.Got)
}
