package logic

import "sync"

// ItemStore is the editable, ordered item list of one logic being composed.
// Items are addressed by their 1-based order. Every mutation leaves orders
// dense (1..N) and notifies the change callback once.
type ItemStore struct {
	mu        sync.Mutex
	items     []Item
	clipboard []Item
	onChange  func()
}

// NewItemStore creates a store seeded with a copy of items, renumbered.
func NewItemStore(items []Item) *ItemStore {
	s := &ItemStore{items: CloneItems(items)}
	Renumber(s.items)
	return s
}

// OnChange registers the function called after each logical mutation.
func (s *ItemStore) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// commit renumbers and notifies outside the lock.
func (s *ItemStore) commit() {
	Renumber(s.items)
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// All returns a copy of the items in order.
func (s *ItemStore) All() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CloneItems(s.items)
}

// Len returns the number of items.
func (s *ItemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Add appends an item.
func (s *ItemStore) Add(it Item) {
	s.mu.Lock()
	s.items = append(s.items, it)
	s.commit()
}

// Insert places an item so that it ends up at order pos. Positions outside
// 1..N+1 are clamped.
func (s *ItemStore) Insert(pos int, it Item) {
	s.mu.Lock()
	idx := clamp(pos-1, 0, len(s.items))
	s.items = append(s.items, Item{})
	copy(s.items[idx+1:], s.items[idx:])
	s.items[idx] = it
	s.commit()
}

// Replace swaps the payload at order, keeping its position. It reports
// whether order existed.
func (s *ItemStore) Replace(order int, it Item) bool {
	s.mu.Lock()
	idx := order - 1
	if idx < 0 || idx >= len(s.items) {
		s.mu.Unlock()
		return false
	}
	s.items[idx] = it
	s.commit()
	return true
}

// Delete removes the item at order. It reports whether order existed.
func (s *ItemStore) Delete(order int) bool {
	s.mu.Lock()
	idx := order - 1
	if idx < 0 || idx >= len(s.items) {
		s.mu.Unlock()
		return false
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	s.commit()
	return true
}

// MoveUp swaps the item with its predecessor. No-op on the first item.
func (s *ItemStore) MoveUp(order int) bool {
	s.mu.Lock()
	idx := order - 1
	if idx <= 0 || idx >= len(s.items) {
		s.mu.Unlock()
		return false
	}
	s.items[idx-1], s.items[idx] = s.items[idx], s.items[idx-1]
	s.commit()
	return true
}

// MoveDown swaps the item with its successor. No-op on the last item.
func (s *ItemStore) MoveDown(order int) bool {
	s.mu.Lock()
	idx := order - 1
	if idx < 0 || idx >= len(s.items)-1 {
		s.mu.Unlock()
		return false
	}
	s.items[idx], s.items[idx+1] = s.items[idx+1], s.items[idx]
	s.commit()
	return true
}

// Copy places deep copies of the items at the given orders on the store's
// clipboard, in list order. Unknown orders are ignored. It returns the
// number of items copied.
func (s *ItemStore) Copy(orders ...int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[int]bool, len(orders))
	for _, o := range orders {
		want[o] = true
	}
	s.clipboard = s.clipboard[:0]
	for _, it := range s.items {
		if want[it.Order] {
			s.clipboard = append(s.clipboard, it)
		}
	}
	return len(s.clipboard)
}

// Paste inserts copies of the clipboard right after the item at afterOrder.
// afterOrder 0 pastes at the top; anything past the end appends. The
// clipboard is kept so the same items can be pasted again.
func (s *ItemStore) Paste(afterOrder int) int {
	s.mu.Lock()
	n := len(s.clipboard)
	if n == 0 {
		s.mu.Unlock()
		return 0
	}
	idx := clamp(afterOrder, 0, len(s.items))
	pasted := CloneItems(s.clipboard)
	out := make([]Item, 0, len(s.items)+n)
	out = append(out, s.items[:idx]...)
	out = append(out, pasted...)
	out = append(out, s.items[idx:]...)
	s.items = out
	s.commit()
	return n
}

// Clear removes every item. The clipboard survives.
func (s *ItemStore) Clear() {
	s.mu.Lock()
	s.items = nil
	s.commit()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
