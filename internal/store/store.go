// Package store defines the document store gateway the rest of the
// application is written against: keyed CRUD over collections plus a live
// query subscription that pushes whole-collection snapshots on every commit.
//
// Single-document writes are serialized by the backing store. There is no
// multi-document transaction, which is why the registration engine documents
// its two-write sequences the way it does.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

// Document is the wire shape of a stored record: a flat JSON object.
type Document map[string]any

var (
	ErrNotFound    = errors.New("document not found")
	ErrUnavailable = errors.New("store unavailable")
)

// Predicate filters documents client-side in queries. A nil predicate
// matches everything.
type Predicate func(doc Document) bool

// KeyedDocument pairs a document with its key inside the collection.
type KeyedDocument struct {
	Key string
	Doc Document
}

// Snapshot is one eventually-consistent view of a queried collection.
// Subscribers may see snapshots coalesced but never out of date relative
// to one another on the same subscription.
type Snapshot struct {
	Docs []KeyedDocument
}

// Subscription is a live query handle. Snapshots delivers at least one
// snapshot per committed change (coalescing is allowed under load).
// Unsubscribe is idempotent and stops delivery immediately; the Snapshots
// channel is closed once no further delivery can happen.
type Subscription interface {
	Snapshots() <-chan Snapshot
	Unsubscribe()
}

// Gateway is the external collaborator surface. Implementations must
// serialize writes per document and deliver change notifications
// at-least-once to every open subscription on the touched collection.
type Gateway interface {
	// Get returns the document at key or ErrNotFound.
	Get(ctx context.Context, collection, key string) (Document, error)

	// Put creates or fully replaces the document at key.
	Put(ctx context.Context, collection, key string, doc Document) error

	// Update merges the given fields into an existing document.
	// Returns ErrNotFound if the document is absent.
	Update(ctx context.Context, collection, key string, fields Document) error

	// Delete removes the document at key. Deleting an absent key
	// returns ErrNotFound.
	Delete(ctx context.Context, collection, key string) error

	// List returns the current documents of a collection matching pred.
	List(ctx context.Context, collection string, pred Predicate) ([]KeyedDocument, error)

	// Query opens a live subscription over the collection. The first
	// snapshot reflects the state at subscribe time.
	Query(ctx context.Context, collection string, pred Predicate) (Subscription, error)
}

// Encode converts a domain value into a Document via its JSON form.
func Encode(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// Decode fills a domain value from a Document via its JSON form.
func Decode(doc Document, out any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, out)
}
