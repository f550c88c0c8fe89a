// Package logic defines the automation data model: typed input items, the
// ordered item store that edits them, and the Logic record that binds a
// sequence of items to a trigger key.
package logic

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Logic is a named, persisted automation sequence.
type Logic struct {
	ID           uuid.UUID   `json:"id" yaml:"id"`
	Name         string      `json:"name" yaml:"name"`
	IsNested     bool        `json:"is_nested" yaml:"is_nested"`
	TriggerKey   *TriggerKey `json:"trigger_key,omitempty" yaml:"trigger_key,omitempty"`
	RepeatCount  int         `json:"repeat_count" yaml:"repeat_count"`
	DisplayOrder int         `json:"order" yaml:"order"`
	Items        []Item      `json:"items" yaml:"items"`
	CreatedAt    time.Time   `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" yaml:"updated_at"`
}

// Clone returns a deep copy of l.
func (l *Logic) Clone() *Logic {
	if l == nil {
		return nil
	}
	c := *l
	if l.TriggerKey != nil {
		k := *l.TriggerKey
		c.TriggerKey = &k
	}
	c.Items = CloneItems(l.Items)
	return &c
}

// CloneItems deep-copies a slice of items.
func CloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// Validate checks the rules that apply to a single logic in isolation.
// Cross-logic rules (unique names and triggers) are enforced by the repository.
func (l *Logic) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return ErrEmptyName
	}
	if l.RepeatCount < 1 {
		return ErrInvalidRepeat
	}
	if l.IsNested && l.TriggerKey != nil {
		return ErrNestedTrigger
	}
	if !l.IsNested && (l.TriggerKey == nil || l.TriggerKey.VirtualKey == 0) {
		return ErrMissingTrigger
	}
	for i, it := range l.Items {
		if err := it.Validate(); err != nil {
			return &MalformedItemError{Index: i, Type: it.Type(), Err: err}
		}
	}
	return CheckOrder(l.Items)
}

// References returns the ids of logics referenced by l's logic-type items,
// in item order, without duplicates.
func (l *Logic) References() []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	for _, it := range l.Items {
		ref, ok := it.Payload.(LogicRefPayload)
		if !ok || seen[ref.LogicID] {
			continue
		}
		seen[ref.LogicID] = true
		out = append(out, ref.LogicID)
	}
	return out
}

// RefersTo reports whether any logic-type item of l references id.
func (l *Logic) RefersTo(id uuid.UUID) bool {
	for _, it := range l.Items {
		if ref, ok := it.Payload.(LogicRefPayload); ok && ref.LogicID == id {
			return true
		}
	}
	return false
}

// Renumber assigns dense 1..N orders following the slice order.
func Renumber(items []Item) {
	for i := range items {
		items[i].Order = i + 1
	}
}

// CheckOrder verifies that item orders are exactly 1..N in slice order.
func CheckOrder(items []Item) error {
	for i, it := range items {
		if it.Order != i+1 {
			return &OrderError{Want: i + 1, Got: it.Order}
		}
	}
	return nil
}
