// Package repository stores logics and enforces the rules that span more
// than one logic: unique names, unique trigger keys, referential integrity
// of nested-logic items and contiguous display ordering.
package repository

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vmacro/internal/logic"
)

// CopySuffix is appended to the name of a pasted logic.
const CopySuffix = " (copy)"

// Result is the outcome of a mutating repository operation. OK is false
// for validation and referential failures, whose reason is in Message and
// Err. Backend failures are returned as a separate error instead.
type Result struct {
	OK      bool
	Logic   *logic.Logic
	Message string
	Err     error
}

func failed(err error) Result {
	return Result{OK: false, Message: err.Error(), Err: err}
}

func succeeded(l *logic.Logic) Result {
	return Result{OK: true, Logic: l}
}

// Repository is the in-memory view of the stored logics, written through
// to a Backend on every mutation.
type Repository struct {
	mu        sync.Mutex
	backend   Backend
	logger    *slog.Logger
	cache     map[uuid.UUID]*logic.Logic
	loaded    bool
	clipboard *logic.Logic
	onChange  func()
	now       func() time.Time
}

// New creates a repository over backend.
func New(backend Backend, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		backend: backend,
		logger:  logger.With("component", "repository"),
		cache:   make(map[uuid.UUID]*logic.Logic),
		now:     time.Now,
	}
}

// RegisterChangeCallback registers a function called after every successful
// mutation, outside the repository lock.
func (r *Repository) RegisterChangeCallback(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

func (r *Repository) notify() {
	r.mu.Lock()
	fn := r.onChange
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// ensureLoaded must be called with mu held.
func (r *Repository) ensureLoaded(ctx context.Context, force bool) error {
	if r.loaded && !force {
		return nil
	}
	all, err := r.backend.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load logics: %w", err)
	}
	r.cache = all
	r.loaded = true
	compactOrders(r.cache)
	return nil
}

// commit persists next and swaps it in as the cache. On failure the cache
// is left untouched. Must be called with mu held.
func (r *Repository) commit(ctx context.Context, next map[uuid.UUID]*logic.Logic) error {
	if err := r.backend.SaveAll(ctx, next); err != nil {
		r.logger.Error("failed to persist logics", "error", err)
		return fmt.Errorf("failed to save logics: %w", err)
	}
	r.cache = next
	return nil
}

// Save creates (id == nil) or updates a logic. Validation failures return a
// failed Result and a nil error.
func (r *Repository) Save(ctx context.Context, id *uuid.UUID, data *logic.Logic) (Result, error) {
	if data == nil {
		return failed(&ValidationError{Field: "logic", Reason: "no data"}), nil
	}
	candidate := data.Clone()
	candidate.Name = strings.TrimSpace(candidate.Name)
	if candidate.RepeatCount == 0 {
		candidate.RepeatCount = 1
	}
	if candidate.IsNested {
		candidate.TriggerKey = nil
	}
	logic.Renumber(candidate.Items)
	if err := candidate.Validate(); err != nil {
		return failed(err), nil
	}

	r.mu.Lock()
	if err := r.ensureLoaded(ctx, false); err != nil {
		r.mu.Unlock()
		return Result{}, err
	}

	now := r.now()
	var prev *logic.Logic
	if id != nil && *id != uuid.Nil {
		candidate.ID = *id
		prev = r.cache[*id]
	} else {
		candidate.ID = uuid.New()
	}

	if err := r.checkUnique(candidate); err != nil {
		r.mu.Unlock()
		return failed(err), nil
	}
	if err := r.checkReferences(candidate); err != nil {
		r.mu.Unlock()
		return failed(err), nil
	}

	if prev != nil {
		candidate.CreatedAt = prev.CreatedAt
		candidate.DisplayOrder = prev.DisplayOrder
	} else {
		candidate.CreatedAt = now
		candidate.DisplayOrder = len(r.cache) + 1
	}
	candidate.UpdatedAt = now

	next := cloneAll(r.cache)
	next[candidate.ID] = candidate.Clone()
	if prev != nil && prev.Name != candidate.Name {
		renameReferences(next, candidate.ID, candidate.Name)
	}
	if err := r.commit(ctx, next); err != nil {
		r.mu.Unlock()
		return Result{}, err
	}
	r.mu.Unlock()

	r.logger.Info("logic saved", "id", candidate.ID, "name", candidate.Name, "created", prev == nil)
	r.notify()
	return succeeded(candidate), nil
}

func (r *Repository) checkUnique(candidate *logic.Logic) error {
	for _, other := range r.cache {
		if other.ID == candidate.ID {
			continue
		}
		if other.Name == candidate.Name {
			return &ValidationError{Field: "name", Reason: fmt.Sprintf("a logic named %q already exists", candidate.Name)}
		}
		if candidate.IsNested || other.IsNested || other.TriggerKey == nil {
			continue
		}
		if other.TriggerKey.Combo() == candidate.TriggerKey.Combo() {
			return &ValidationError{
				Field:  "trigger_key",
				Reason: fmt.Sprintf("trigger %s is already used by %q", candidate.TriggerKey, other.Name),
			}
		}
	}
	return nil
}

func (r *Repository) checkReferences(candidate *logic.Logic) error {
	for _, ref := range candidate.References() {
		if ref == candidate.ID {
			return &ValidationError{Field: "items", Reason: "a logic cannot contain itself"}
		}
		if _, ok := r.cache[ref]; !ok {
			return &ValidationError{Field: "items", Reason: fmt.Sprintf("referenced logic %s does not exist", ref)}
		}
	}
	return nil
}

// Load returns a copy of the logic with id.
func (r *Repository) Load(ctx context.Context, id uuid.UUID) (*logic.Logic, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoaded(ctx, false); err != nil {
		r.logger.Error("load failed", "id", id, "error", err)
		return nil, false
	}
	l, ok := r.cache[id]
	if !ok {
		return nil, false
	}
	return l.Clone(), true
}

// Resolve looks up a logic by id from the cache. It satisfies the executor's
// resolver interface.
func (r *Repository) Resolve(id uuid.UUID) (*logic.Logic, bool) {
	return r.Load(context.Background(), id)
}

// Delete removes a logic. Deletion is refused while another logic still
// references it from a nested-logic item.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (Result, error) {
	r.mu.Lock()
	if err := r.ensureLoaded(ctx, false); err != nil {
		r.mu.Unlock()
		return Result{}, err
	}
	target, ok := r.cache[id]
	if !ok {
		r.mu.Unlock()
		return failed(ErrNotFound), nil
	}
	if refs := r.referrers(id); len(refs) > 0 {
		names := make([]string, len(refs))
		for i, l := range refs {
			names[i] = l.Name
		}
		r.mu.Unlock()
		return failed(&ReferencedError{ID: id, Referrer: names}), nil
	}

	next := cloneAll(r.cache)
	delete(next, id)
	compactOrders(next)
	if err := r.commit(ctx, next); err != nil {
		r.mu.Unlock()
		return Result{}, err
	}
	if r.clipboard != nil && r.clipboard.ID == id {
		r.clipboard = nil
	}
	r.mu.Unlock()

	r.logger.Info("logic deleted", "id", id, "name", target.Name)
	r.notify()
	return succeeded(target.Clone()), nil
}

func (r *Repository) referrers(id uuid.UUID) []*logic.Logic {
	var out []*logic.Logic
	for _, l := range sorted(r.cache) {
		if l.ID != id && l.RefersTo(id) {
			out = append(out, l)
		}
	}
	return out
}

// References returns copies of the logics whose items reference id.
func (r *Repository) References(ctx context.Context, id uuid.UUID) ([]*logic.Logic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoaded(ctx, false); err != nil {
		return nil, err
	}
	refs := r.referrers(id)
	for i, l := range refs {
		refs[i] = l.Clone()
	}
	return refs, nil
}

// List returns copies of all logics ordered by display order.
func (r *Repository) List(ctx context.Context, forceReload bool) ([]*logic.Logic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoaded(ctx, forceReload); err != nil {
		return nil, err
	}
	out := sorted(r.cache)
	for i, l := range out {
		out[i] = l.Clone()
	}
	return out, nil
}

// FindByTrigger returns the non-nested logic bound to combo.
func (r *Repository) FindByTrigger(ctx context.Context, combo logic.Combo) (*logic.Logic, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoaded(ctx, false); err != nil {
		r.logger.Error("trigger lookup failed", "error", err)
		return nil, false
	}
	for _, l := range r.cache {
		if !l.IsNested && l.TriggerKey != nil && l.TriggerKey.Combo() == combo {
			return l.Clone(), true
		}
	}
	return nil, false
}

// Move places the logic at newPosition: every other logic at or after that
// position shifts down by one, then orders are compacted back to 1..N.
func (r *Repository) Move(ctx context.Context, id uuid.UUID, newPosition int) error {
	r.mu.Lock()
	if err := r.ensureLoaded(ctx, false); err != nil {
		r.mu.Unlock()
		return err
	}
	if _, ok := r.cache[id]; !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	if newPosition < 1 {
		newPosition = 1
	}

	next := cloneAll(r.cache)
	for oid, l := range next {
		if oid != id && l.DisplayOrder >= newPosition {
			l.DisplayOrder++
		}
	}
	next[id].DisplayOrder = newPosition
	compactOrders(next)
	if err := r.commit(ctx, next); err != nil {
		r.mu.Unlock()
		return err
	}
	r.mu.Unlock()

	r.notify()
	return nil
}

// Copy places a deep copy of the logic on the clipboard.
func (r *Repository) Copy(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoaded(ctx, false); err != nil {
		return err
	}
	l, ok := r.cache[id]
	if !ok {
		return ErrNotFound
	}
	r.clipboard = l.Clone()
	return nil
}

// Paste stores the clipboard logic as a new nested logic without a trigger
// key, so the copy can never collide with the original's binding.
func (r *Repository) Paste(ctx context.Context) (Result, error) {
	r.mu.Lock()
	if r.clipboard == nil {
		r.mu.Unlock()
		return failed(ErrClipboardEmpty), nil
	}
	if err := r.ensureLoaded(ctx, false); err != nil {
		r.mu.Unlock()
		return Result{}, err
	}
	c := r.clipboard.Clone()
	c.Name = r.copyName(c.Name)
	c.TriggerKey = nil
	c.IsNested = true
	r.mu.Unlock()

	return r.Save(ctx, nil, c)
}

// copyName must be called with mu held.
func (r *Repository) copyName(base string) string {
	taken := make(map[string]bool, len(r.cache))
	for _, l := range r.cache {
		taken[l.Name] = true
	}
	name := base + CopySuffix
	for n := 2; taken[name]; n++ {
		name = fmt.Sprintf("%s (copy %d)", base, n)
	}
	return name
}

// Close releases the backend.
func (r *Repository) Close() error {
	return r.backend.Close()
}

func sorted(m map[uuid.UUID]*logic.Logic) []*logic.Logic {
	out := make([]*logic.Logic, 0, len(m))
	for _, l := range m {
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// compactOrders renumbers display orders to 1..N keeping relative order.
func compactOrders(m map[uuid.UUID]*logic.Logic) {
	for i, l := range sorted(m) {
		l.DisplayOrder = i + 1
	}
}

func renameReferences(m map[uuid.UUID]*logic.Logic, id uuid.UUID, name string) {
	for _, l := range m {
		for i, it := range l.Items {
			if ref, ok := it.Payload.(logic.LogicRefPayload); ok && ref.LogicID == id {
				ref.LogicName = name
				l.Items[i].Payload = ref
			}
		}
	}
}
