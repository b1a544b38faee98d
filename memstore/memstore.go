// Package memstore provides an in-memory store.Backend with optimistic
// transactions.
//
// Each document carries a version. A transaction records the version of
// every document it reads and, on commit, fails with store.ErrConflict if any
// of them changed since. Reads take a snapshot copy; callers never share
// maps with the store.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jacentio/docket/internal/keys"
	"github.com/jacentio/docket/internal/match"
	"github.com/jacentio/docket/store"
)

type docKey struct {
	path string
	id   string
}

type record struct {
	data    store.Fields
	version uint64
}

// Store is an in-memory document store.
type Store struct {
	mu      sync.RWMutex
	docs    map[string]map[string]record
	version uint64
	newID   func() string
}

var _ store.Backend = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		docs:  make(map[string]map[string]record),
		newID: uuid.NewString,
	}
}

// NewID returns a random UUID.
func (s *Store) NewID() string {
	return s.newID()
}

// Get reads one document.
func (s *Store) Get(ctx context.Context, path, id string) (store.Fields, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.docs[path][id]
	if !ok {
		return nil, false, nil
	}
	return clone(rec.data), true, nil
}

// Put writes a document outside any transaction.
func (s *Store) Put(path, id string, data store.Fields) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(write{kind: writeSet, key: docKey{path, id}, data: clone(data)})
}

// Count returns the number of documents in a collection path.
func (s *Store) Count(path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs[path])
}

// Query runs q against a snapshot of the store.
func (s *Store) Query(ctx context.Context, q store.Query) ([]store.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var snaps []store.Snapshot
	for path, coll := range s.docs {
		if q.Group {
			if keys.GroupName(path) != q.Collection {
				continue
			}
		} else if path != q.Collection {
			continue
		}
		for id, rec := range coll {
			snaps = append(snaps, store.Snapshot{Path: path, ID: id, Fields: rec.data})
		}
	}
	s.mu.RUnlock()

	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].Path != snaps[j].Path {
			return snaps[i].Path < snaps[j].Path
		}
		return snaps[i].ID < snaps[j].ID
	})

	matched, err := match.Filter(snaps, q.Where)
	if err != nil {
		return nil, err
	}
	matched = match.Sort(matched, q.OrderBy)
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	for i := range matched {
		matched[i].Fields = clone(matched[i].Fields)
	}
	return matched, nil
}

// RunTransaction runs fn and commits its staged writes atomically.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	t := &tx{store: s, reads: make(map[docKey]uint64)}
	if err := fn(ctx, t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(t)
}

func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, seen := range t.reads {
		if s.docs[k.path][k.id].version != seen {
			return fmt.Errorf("%w: %s/%s changed since read", store.ErrConflict, k.path, k.id)
		}
	}
	for _, w := range t.writes {
		if w.kind == writeUpdate {
			if _, ok := s.docs[w.key.path][w.key.id]; !ok && !t.staged(w.key) {
				return fmt.Errorf("%w: update of missing document %s/%s", store.ErrNotFound, w.key.path, w.key.id)
			}
		}
	}
	for _, w := range t.writes {
		s.apply(w)
	}
	return nil
}

// apply performs one write. The caller holds the write lock.
func (s *Store) apply(w write) {
	coll := s.docs[w.key.path]
	switch w.kind {
	case writeDelete:
		delete(coll, w.key.id)
		if len(coll) == 0 {
			delete(s.docs, w.key.path)
		}
		return
	case writeUpdate:
		merged := clone(coll[w.key.id].data)
		if merged == nil {
			merged = store.Fields{}
		}
		for k, v := range w.data {
			merged[k] = v
		}
		w.data = merged
	}
	if coll == nil {
		coll = make(map[string]record)
		s.docs[w.key.path] = coll
	}
	s.version++
	coll[w.key.id] = record{data: w.data, version: s.version}
}

type writeKind int

const (
	writeSet writeKind = iota
	writeUpdate
	writeDelete
)

type write struct {
	kind writeKind
	key  docKey
	data store.Fields
}

type tx struct {
	store  *Store
	reads  map[docKey]uint64
	writes []write
}

func (t *tx) Get(ctx context.Context, path, id string) (store.Fields, bool, error) {
	if len(t.writes) > 0 {
		return nil, false, store.ErrReadAfterWrite
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	rec, ok := t.store.docs[path][id]
	k := docKey{path, id}
	if _, seen := t.reads[k]; !seen {
		t.reads[k] = rec.version
	}
	if !ok {
		return nil, false, nil
	}
	return clone(rec.data), true, nil
}

func (t *tx) Set(path, id string, data store.Fields) error {
	t.writes = append(t.writes, write{kind: writeSet, key: docKey{path, id}, data: clone(data)})
	return nil
}

func (t *tx) Update(path, id string, data store.Fields) error {
	t.writes = append(t.writes, write{kind: writeUpdate, key: docKey{path, id}, data: clone(data)})
	return nil
}

func (t *tx) Delete(path, id string) error {
	t.writes = append(t.writes, write{kind: writeDelete, key: docKey{path, id}})
	return nil
}

// staged reports whether an earlier write in t creates the document at k.
func (t *tx) staged(k docKey) bool {
	created := false
	for _, w := range t.writes {
		if w.key != k {
			continue
		}
		switch w.kind {
		case writeSet:
			created = true
		case writeDelete:
			created = false
		}
	}
	return created
}
