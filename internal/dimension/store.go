package dimension

import (
	"fmt"
	"sort"
	"sync"
)

// Store holds the Dimension records of one drawing. Balloon numbers come
// from a single monotonic counter; a deleted number is never reused.
// Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	dims   map[int]*Dimension
	nextID int
}

// NewStore creates an empty store. Numbering starts at 1.
func NewStore() *Store {
	return &Store{dims: make(map[int]*Dimension), nextID: 1}
}

// NextID allocates the next balloon number.
func (s *Store) NextID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	return id
}

// Put inserts or replaces a dimension. The id must have been allocated
// by NextID (or equal an existing record's id on replacement).
func (s *Store) Put(d *Dimension) error {
	if d == nil || d.ID <= 0 {
		return fmt.Errorf("dimension requires an allocated id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID >= s.nextID {
		// Manual records may arrive with externally allocated ids; keep
		// the counter ahead so numbers stay unique.
		s.nextID = d.ID + 1
	}
	s.dims[d.ID] = d
	return nil
}

// Get returns a copy of the dimension with the given id.
func (s *Store) Get(id int) (Dimension, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.dims[id]
	if !ok {
		return Dimension{}, false
	}
	return *d, true
}

// List returns copies of all dimensions in balloon-number order.
func (s *Store) List() []Dimension {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Dimension, 0, len(s.dims))
	for _, d := range s.dims {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Delete removes a dimension. The freed number is not reused.
func (s *Store) Delete(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dims[id]; !ok {
		return false
	}
	delete(s.dims, id)
	return true
}

// Mutate runs fn against the live record under the store lock. It is the
// single write path EditSync uses so field merges and derived-value
// application cannot interleave.
func (s *Store) Mutate(id int, fn func(*Dimension) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dims[id]
	if !ok {
		return fmt.Errorf("dimension %d not found", id)
	}
	return fn(d)
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.dims)
}
