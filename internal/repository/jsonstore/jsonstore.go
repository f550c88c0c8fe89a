// Package jsonstore persists logics as one JSON document:
//
//	{ "logics": { "<uuid>": { name, order, repeat_count, is_nested, trigger_key, items } } }
package jsonstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"vmacro/internal/logic"
)

type document struct {
	Logics map[string]record `json:"logics"`
}

type record struct {
	Name        string            `json:"name"`
	Order       int               `json:"order"`
	RepeatCount int               `json:"repeat_count"`
	IsNested    bool              `json:"is_nested"`
	TriggerKey  *logic.TriggerKey `json:"trigger_key,omitempty"`
	Items       json.RawMessage   `json:"items"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Store is a file-backed repository backend.
type Store struct {
	mu   sync.Mutex
	path string
}

// Open returns a store writing to path. The file is created on first save.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{path: path}, nil
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// LoadAll reads the whole document. A missing file is an empty collection.
func (s *Store) LoadAll(ctx context.Context) (map[uuid.UUID]*logic.Logic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[uuid.UUID]*logic.Logic)
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}

	for key, rec := range doc.Logics {
		id, err := uuid.Parse(key)
		if err != nil {
			return nil, fmt.Errorf("invalid logic id %q: %w", key, err)
		}
		items, err := decodeItems(rec.Items)
		if err != nil {
			return nil, fmt.Errorf("logic %q: %w", rec.Name, err)
		}
		if rec.RepeatCount < 1 {
			rec.RepeatCount = 1
		}
		out[id] = &logic.Logic{
			ID:           id,
			Name:         rec.Name,
			IsNested:     rec.IsNested,
			TriggerKey:   rec.TriggerKey,
			RepeatCount:  rec.RepeatCount,
			DisplayOrder: rec.Order,
			Items:        items,
			CreatedAt:    rec.CreatedAt,
			UpdatedAt:    rec.UpdatedAt,
		}
	}
	return out, nil
}

func decodeItems(raw json.RawMessage) ([]logic.Item, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	items, err := logic.DecodeItems(raw)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })
	logic.Renumber(items)
	return items, nil
}

// SaveAll rewrites the document atomically via a temp file and rename.
func (s *Store) SaveAll(ctx context.Context, logics map[uuid.UUID]*logic.Logic) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := document{Logics: make(map[string]record, len(logics))}
	for id, l := range logics {
		items, err := json.Marshal(itemsOrEmpty(l.Items))
		if err != nil {
			return fmt.Errorf("logic %q: %w", l.Name, err)
		}
		doc.Logics[id.String()] = record{
			Name:        l.Name,
			Order:       l.DisplayOrder,
			RepeatCount: l.RepeatCount,
			IsNested:    l.IsNested,
			TriggerKey:  l.TriggerKey,
			Items:       items,
			CreatedAt:   l.CreatedAt,
			UpdatedAt:   l.UpdatedAt,
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".logics-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func itemsOrEmpty(items []logic.Item) []logic.Item {
	if items == nil {
		return []logic.Item{}
	}
	return items
}

// Close is a no-op; the file is only open during LoadAll and SaveAll.
func (s *Store) Close() error { return nil }
