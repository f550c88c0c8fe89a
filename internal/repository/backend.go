package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"vmacro/internal/logic"
)

// Backend persists the whole logic collection at once, keyed by logic id.
type Backend interface {
	LoadAll(ctx context.Context) (map[uuid.UUID]*logic.Logic, error)
	SaveAll(ctx context.Context, logics map[uuid.UUID]*logic.Logic) error
	Close() error
}

// MemoryBackend keeps logics in process memory. It is used by tests and by
// the CLI when no storage path is configured.
type MemoryBackend struct {
	mu     sync.Mutex
	logics map[uuid.UUID]*logic.Logic
	saves  int
	// FailSave, when set, is returned by SaveAll.
	FailSave error
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{logics: make(map[uuid.UUID]*logic.Logic)}
}

func (b *MemoryBackend) LoadAll(ctx context.Context) (map[uuid.UUID]*logic.Logic, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneAll(b.logics), nil
}

func (b *MemoryBackend) SaveAll(ctx context.Context, logics map[uuid.UUID]*logic.Logic) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailSave != nil {
		return b.FailSave
	}
	b.logics = cloneAll(logics)
	b.saves++
	return nil
}

// Put stores a logic directly, bypassing repository validation.
func (b *MemoryBackend) Put(l *logic.Logic) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logics[l.ID] = l.Clone()
}

// Saves returns how many times SaveAll succeeded.
func (b *MemoryBackend) Saves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}

func (b *MemoryBackend) Close() error { return nil }

func cloneAll(in map[uuid.UUID]*logic.Logic) map[uuid.UUID]*logic.Logic {
	out := make(map[uuid.UUID]*logic.Logic, len(in))
	for id, l := range in {
		out[id] = l.Clone()
	}
	return out
}
