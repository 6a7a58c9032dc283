// Package memory implements the store.Gateway contract entirely in process.
// It is the default backend for tests and single-node dev runs.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/geocoder89/gatherdesk/internal/store"
)

type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]store.Document
	subs        map[string]map[int64]*subscription
	nextSubID   int64
}

var _ store.Gateway = (*Store)(nil)

func New() *Store {
	return &Store{
		collections: make(map[string]map[string]store.Document),
		subs:        make(map[string]map[int64]*subscription),
	}
}

func cloneDoc(doc store.Document) store.Document {
	return maps.Clone(doc)
}

func (s *Store) Get(ctx context.Context, collection, key string) (store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[collection]
	if !ok {
		return nil, store.ErrNotFound
	}

	doc, ok := coll[key]
	if !ok {
		return nil, store.ErrNotFound
	}

	return cloneDoc(doc), nil
}

func (s *Store) Put(ctx context.Context, collection, key string, doc store.Document) error {
	s.mu.Lock()

	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]store.Document)
		s.collections[collection] = coll
	}

	coll[key] = cloneDoc(doc)
	snaps := s.pendingSnapshotsLocked(collection)
	s.mu.Unlock()

	deliverAll(snaps)
	return nil
}

func (s *Store) Update(ctx context.Context, collection, key string, fields store.Document) error {
	s.mu.Lock()

	coll, ok := s.collections[collection]
	if !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}

	doc, ok := coll[key]
	if !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}

	merged := cloneDoc(doc)
	for k, v := range fields {
		merged[k] = v
	}
	coll[key] = merged
	snaps := s.pendingSnapshotsLocked(collection)
	s.mu.Unlock()

	deliverAll(snaps)
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, key string) error {
	s.mu.Lock()

	coll, ok := s.collections[collection]
	if !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}

	if _, ok := coll[key]; !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}

	delete(coll, key)
	snaps := s.pendingSnapshotsLocked(collection)
	s.mu.Unlock()

	deliverAll(snaps)
	return nil
}

func (s *Store) List(ctx context.Context, collection string, pred store.Predicate) ([]store.KeyedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked(collection, pred), nil
}

func (s *Store) Query(ctx context.Context, collection string, pred store.Predicate) (store.Subscription, error) {
	sub := &subscription{
		ch:   make(chan store.Snapshot, 1),
		pred: pred,
	}

	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID

	byID, ok := s.subs[collection]
	if !ok {
		byID = make(map[int64]*subscription)
		s.subs[collection] = byID
	}
	byID[id] = sub

	sub.remove = func() {
		s.mu.Lock()
		delete(s.subs[collection], id)
		s.mu.Unlock()
	}

	initial := s.snapshotLocked(collection, pred)
	s.mu.Unlock()

	// first snapshot reflects subscribe-time state
	sub.deliver(store.Snapshot{Docs: initial})

	return sub, nil
}

// snapshotLocked builds the current filtered view of a collection.
// Callers must hold at least the read lock.
func (s *Store) snapshotLocked(collection string, pred store.Predicate) []store.KeyedDocument {
	coll := s.collections[collection]
	out := make([]store.KeyedDocument, 0, len(coll))

	for key, doc := range coll {
		if pred != nil && !pred(doc) {
			continue
		}
		out = append(out, store.KeyedDocument{Key: key, Doc: cloneDoc(doc)})
	}

	return out
}

type pendingDelivery struct {
	sub  *subscription
	snap store.Snapshot
}

// pendingSnapshotsLocked materializes one snapshot per open subscription on
// the collection. Delivery happens after the store lock is released so a slow
// subscriber never blocks writers.
func (s *Store) pendingSnapshotsLocked(collection string) []pendingDelivery {
	byID := s.subs[collection]
	if len(byID) == 0 {
		return nil
	}

	out := make([]pendingDelivery, 0, len(byID))
	for _, sub := range byID {
		out = append(out, pendingDelivery{
			sub:  sub,
			snap: store.Snapshot{Docs: s.snapshotLocked(collection, sub.pred)},
		})
	}

	return out
}

func deliverAll(pending []pendingDelivery) {
	for _, p := range pending {
		p.sub.deliver(p.snap)
	}
}

type subscription struct {
	ch     chan store.Snapshot
	pred   store.Predicate
	remove func()

	mu     sync.Mutex
	closed bool
	once   sync.Once
}

func (sub *subscription) Snapshots() <-chan store.Snapshot {
	return sub.ch
}

// deliver coalesces: with the 1-slot buffer full, the stale pending snapshot
// is dropped in favor of the newest one.
func (sub *subscription) deliver(snap store.Snapshot) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if sub.closed {
		return
	}

	select {
	case sub.ch <- snap:
		return
	default:
	}

	select {
	case <-sub.ch:
	default:
	}

	select {
	case sub.ch <- snap:
	default:
	}
}

func (sub *subscription) Unsubscribe() {
	sub.once.Do(func() {
		sub.remove()

		sub.mu.Lock()
		sub.closed = true
		close(sub.ch)
		sub.mu.Unlock()
	})
}
