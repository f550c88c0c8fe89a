// Package executor replays logics: it expands nested references into a flat
// step list and dispatches each step to the input effectors.
package executor

import (
	"github.com/google/uuid"

	"vmacro/internal/logic"
)

const (
	// DefaultMaxDepth bounds nested-logic expansion.
	DefaultMaxDepth = 16

	// MaxSteps bounds the size of one flattened repetition.
	MaxSteps = 1 << 20
)

// Resolver looks logics up by id.
type Resolver interface {
	Resolve(id uuid.UUID) (*logic.Logic, bool)
}

// Step is one leaf item of a flattened logic.
type Step struct {
	Item logic.Item
	// Source is the name of the logic the item belongs to.
	Source string
	Depth  int
}

// Flatten expands l into leaf steps, inlining every nested-logic item
// RepeatCount times. The outer logic's own RepeatCount is not applied. Items
// are validated on the way so a malformed payload aborts before any input
// is sent.
func Flatten(r Resolver, l *logic.Logic, maxDepth int) ([]Step, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	f := &flattener{
		resolver:  r,
		maxDepth:  maxDepth,
		expanding: make(map[uuid.UUID]bool),
	}
	if err := f.expand(l, 0); err != nil {
		return nil, err
	}
	return f.steps, nil
}

type flattener struct {
	resolver  Resolver
	maxDepth  int
	expanding map[uuid.UUID]bool
	path      []string
	steps     []Step
}

func (f *flattener) expand(l *logic.Logic, depth int) error {
	f.expanding[l.ID] = true
	f.path = append(f.path, l.Name)
	defer func() {
		delete(f.expanding, l.ID)
		f.path = f.path[:len(f.path)-1]
	}()

	for i, it := range l.Items {
		if err := it.Validate(); err != nil {
			return &logic.MalformedItemError{Index: i, Type: it.Type(), Err: err}
		}
		ref, ok := it.Payload.(logic.LogicRefPayload)
		if !ok {
			if len(f.steps) >= MaxSteps {
				return ErrTooManySteps
			}
			f.steps = append(f.steps, Step{Item: it, Source: l.Name, Depth: depth})
			continue
		}

		if f.expanding[ref.LogicID] {
			name := ref.LogicName
			if name == "" {
				name = ref.LogicID.String()
			}
			return &CycleError{Path: append(append([]string(nil), f.path...), name)}
		}
		if depth+1 > f.maxDepth {
			return &DepthError{Limit: f.maxDepth}
		}
		child, found := f.resolver.Resolve(ref.LogicID)
		if !found {
			return &MissingLogicError{ID: ref.LogicID, Parent: l.Name}
		}
		for n := 0; n < ref.RepeatCount; n++ {
			if err := f.expand(child, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
