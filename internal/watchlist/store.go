package watchlist

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/pders01/reel/internal/catalog"
	"github.com/pders01/reel/internal/debuglog"
	"github.com/pders01/reel/internal/storage"
)

// Key is the storage key holding the serialized watchlist.
const Key = "watchlist"

// UpdateListener is notified after every mutation, outside the store lock.
type UpdateListener interface {
	OnSelectionChanged(item catalog.Item, selected bool)
}

// Store is the process-wide watchlist: an ordered set of items keyed by id,
// written through to a storage backend after every change.
type Store struct {
	backend storage.Backend
	log     *debuglog.FieldLogger

	mu         sync.Mutex
	order      []int
	entries    map[int]catalog.Item
	persistErr error
	listeners  []UpdateListener
}

// Load reads the watchlist from backend. Missing or unreadable data yields
// an empty store; the problem is logged, never returned.
func Load(backend storage.Backend) *Store {
	s := &Store{
		backend: backend,
		entries: make(map[int]catalog.Item),
		log:     debuglog.WithFields(map[string]interface{}{"component": "watchlist"}),
	}

	data, err := backend.Read(Key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return s
	case err != nil:
		s.log.Warnf("reading watchlist: %v", err)
		return s
	}

	var items []catalog.Item
	if err := json.Unmarshal(data, &items); err != nil {
		s.log.Warnf("decoding watchlist, starting empty: %v", err)
		return s
	}
	for _, it := range items {
		if _, dup := s.entries[it.ID]; dup {
			continue
		}
		s.entries[it.ID] = it
		s.order = append(s.order, it.ID)
	}
	s.log.Debugf("loaded %d entries", len(s.order))
	return s
}

// Subscribe registers l for mutation notifications.
func (s *Store) Subscribe(l UpdateListener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

func (s *Store) Contains(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	return ok
}

func (s *Store) Get(id int) (catalog.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.entries[id]
	return it, ok
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Toggle removes item if present, otherwise appends it, and reports whether
// the item is selected afterwards.
func (s *Store) Toggle(item catalog.Item) bool {
	s.mu.Lock()
	_, present := s.entries[item.ID]
	if present {
		s.removeLocked(item.ID)
	} else {
		s.addLocked(item)
	}
	listeners := s.persistLocked()
	s.mu.Unlock()

	s.notify(listeners, item, !present)
	return !present
}

// Add selects item; it is a no-op when the id is already present.
func (s *Store) Add(item catalog.Item) {
	s.mu.Lock()
	if _, ok := s.entries[item.ID]; ok {
		s.mu.Unlock()
		return
	}
	s.addLocked(item)
	listeners := s.persistLocked()
	s.mu.Unlock()

	s.notify(listeners, item, true)
}

// Remove deselects id; it is a no-op when the id is absent.
func (s *Store) Remove(id int) {
	s.mu.Lock()
	item, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	s.removeLocked(id)
	listeners := s.persistLocked()
	s.mu.Unlock()

	s.notify(listeners, item, false)
}

// List yields the entries in insertion order as of the call.
func (s *Store) List() iter.Seq[catalog.Item] {
	s.mu.Lock()
	items := s.snapshotLocked()
	s.mu.Unlock()
	return slices.Values(items)
}

// LastPersistErr is the error of the most recent write, nil once a write
// succeeds again.
func (s *Store) LastPersistErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistErr
}

func (s *Store) addLocked(item catalog.Item) {
	s.entries[item.ID] = item
	s.order = append(s.order, item.ID)
}

func (s *Store) removeLocked(id int) {
	delete(s.entries, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
}

func (s *Store) snapshotLocked() []catalog.Item {
	items := make([]catalog.Item, 0, len(s.order))
	for _, id := range s.order {
		items = append(items, s.entries[id])
	}
	return items
}

// persistLocked writes the whole list while the lock is held, so writes land
// in mutation order. It returns the listeners to notify after unlocking.
func (s *Store) persistLocked() []UpdateListener {
	data, err := json.Marshal(s.snapshotLocked())
	if err == nil {
		err = s.backend.Write(Key, data)
	}
	if err != nil {
		s.persistErr = fmt.Errorf("persisting watchlist: %w", err)
		s.log.Errorf("%v", s.persistErr)
	} else {
		s.persistErr = nil
	}
	return slices.Clone(s.listeners)
}

func (s *Store) notify(listeners []UpdateListener, item catalog.Item, selected bool) {
	for _, l := range listeners {
		l.OnSelectionChanged(item, selected)
	}
}
