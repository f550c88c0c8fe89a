// Package sqlstore is the relational repository backend on SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vmacro/internal/logic"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS logics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uuid TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	is_nested INTEGER NOT NULL DEFAULT 0,
	trigger_key JSON,
	repeat_count INTEGER NOT NULL DEFAULT 1,
	display_order INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS logic_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	logic_id INTEGER NOT NULL REFERENCES logics(id) ON DELETE CASCADE,
	item_order INTEGER NOT NULL,
	item_type TEXT NOT NULL,
	item_data JSON NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_logic_items_logic ON logic_items(logic_id, item_order);
`

// Store keeps logics in two tables, logics and logic_items.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Foreign keys are per connection in SQLite; pin one connection so the
	// pragma always applies.
	db.SetMaxOpenConns(1)
	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing database handle.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	ctx := context.Background()
	if _, err := s.db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// LoadAll reads every logic with its items.
func (s *Store) LoadAll(ctx context.Context) (map[uuid.UUID]*logic.Logic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, uuid, name, created_at, updated_at, is_nested, trigger_key, repeat_count, display_order
		FROM logics
		ORDER BY display_order`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[uuid.UUID]*logic.Logic)
	byRow := make(map[int64]*logic.Logic)
	for rows.Next() {
		var (
			rowID      int64
			uid        string
			name       string
			createdAt  string
			updatedAt  string
			nested     bool
			triggerRaw sql.NullString
			repeat     int
			order      int
		)
		if err := rows.Scan(&rowID, &uid, &name, &createdAt, &updatedAt, &nested, &triggerRaw, &repeat, &order); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(uid)
		if err != nil {
			return nil, fmt.Errorf("invalid logic uuid %q: %w", uid, err)
		}
		l := &logic.Logic{
			ID:           id,
			Name:         name,
			IsNested:     nested,
			RepeatCount:  repeat,
			DisplayOrder: order,
			CreatedAt:    parseTime(createdAt),
			UpdatedAt:    parseTime(updatedAt),
		}
		if triggerRaw.Valid && triggerRaw.String != "" {
			var k logic.TriggerKey
			if err := json.Unmarshal([]byte(triggerRaw.String), &k); err != nil {
				return nil, fmt.Errorf("logic %q: invalid trigger_key: %w", name, err)
			}
			l.TriggerKey = &k
		}
		out[id] = l
		byRow[rowID] = l
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadItems(ctx, byRow); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) loadItems(ctx context.Context, byRow map[int64]*logic.Logic) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT logic_id, item_order, item_type, item_data
		FROM logic_items
		ORDER BY logic_id, item_order`)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			logicRow int64
			order    int
			itemType string
			data     string
		)
		if err := rows.Scan(&logicRow, &order, &itemType, &data); err != nil {
			return err
		}
		l, ok := byRow[logicRow]
		if !ok {
			continue
		}
		var it logic.Item
		if err := it.UnmarshalJSON([]byte(data)); err != nil {
			return &logic.MalformedItemError{Index: len(l.Items), Type: logic.ItemType(itemType), Err: err}
		}
		it.Order = order
		l.Items = append(l.Items, it)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, l := range byRow {
		logic.Renumber(l.Items)
	}
	return nil
}

// SaveAll replaces the stored collection in a single transaction: logics
// are upserted by uuid, their items rewritten, and rows for logics no longer
// present are deleted (items follow by cascade).
func (s *Store) SaveAll(ctx context.Context, logics map[uuid.UUID]*logic.Logic) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	keep := make(map[string]bool, len(logics))
	for id, l := range logics {
		keep[id.String()] = true
		if err := saveLogic(ctx, tx, id, l); err != nil {
			return fmt.Errorf("logic %q: %w", l.Name, err)
		}
	}

	rows, err := tx.QueryContext(ctx, `SELECT uuid FROM logics`)
	if err != nil {
		return err
	}
	var stale []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			rows.Close()
			return err
		}
		if !keep[uid] {
			stale = append(stale, uid)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, uid := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM logics WHERE uuid = ?`, uid); err != nil {
			return fmt.Errorf("failed to delete logic %s: %w", uid, err)
		}
	}
	return tx.Commit()
}

func saveLogic(ctx context.Context, tx *sql.Tx, id uuid.UUID, l *logic.Logic) error {
	var trigger sql.NullString
	if l.TriggerKey != nil {
		data, err := json.Marshal(l.TriggerKey)
		if err != nil {
			return err
		}
		trigger = sql.NullString{String: string(data), Valid: true}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO logics (uuid, name, created_at, updated_at, is_nested, trigger_key, repeat_count, display_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uuid) DO UPDATE SET
			name = excluded.name,
			updated_at = excluded.updated_at,
			is_nested = excluded.is_nested,
			trigger_key = excluded.trigger_key,
			repeat_count = excluded.repeat_count,
			display_order = excluded.display_order`,
		id.String(), l.Name, formatTime(l.CreatedAt), formatTime(l.UpdatedAt), l.IsNested, trigger, l.RepeatCount, l.DisplayOrder,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert: %w", err)
	}

	var rowID int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM logics WHERE uuid = ?`, id.String()).Scan(&rowID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM logic_items WHERE logic_id = ?`, rowID); err != nil {
		return err
	}
	for _, it := range l.Items {
		data, err := json.Marshal(it)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO logic_items (logic_id, item_order, item_type, item_data) VALUES (?, ?, ?, ?)`,
			rowID, it.Order, string(it.Type()), string(data),
		); err != nil {
			return fmt.Errorf("failed to insert item %d: %w", it.Order, err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
