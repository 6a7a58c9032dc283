package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/gatherdesk/internal/domain/event"
	"github.com/geocoder89/gatherdesk/internal/observability"
	"github.com/geocoder89/gatherdesk/internal/store"
)

type EventsRepo struct {
	gw    store.Gateway
	colls Collections
	prom  *observability.Prom
}

func NewEventsRepo(gw store.Gateway, colls Collections, prom *observability.Prom) *EventsRepo {
	return &EventsRepo{
		gw:    gw,
		colls: colls,
		prom:  prom,
	}
}

func (r *EventsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveStore(op, fn)
	}
	return fn()
}

func (r *EventsRepo) Create(ctx context.Context, req event.CreateEventRequest, creatorID, creatorEmail string) (event.Event, error) {
	e := event.NewFromCreateRequest(req, creatorID, creatorEmail)

	doc, err := store.Encode(e)
	if err != nil {
		return event.Event{}, err
	}

	err = r.observe("events.create", func() error {
		return r.gw.Put(ctx, r.colls.Events(), e.ID, doc)
	})
	if err != nil {
		return event.Event{}, err
	}

	return e, nil
}

func (r *EventsRepo) GetByID(ctx context.Context, id string) (event.Event, error) {
	var doc store.Document

	err := r.observe("events.get_by_id", func() error {
		var gerr error
		doc, gerr = r.gw.Get(ctx, r.colls.Events(), id)
		return gerr
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, err
	}

	var e event.Event
	if err := store.Decode(doc, &e); err != nil {
		return event.Event{}, err
	}

	return e, nil
}

func (r *EventsRepo) List(ctx context.Context) ([]event.Event, error) {
	var docs []store.KeyedDocument

	err := r.observe("events.list", func() error {
		var lerr error
		docs, lerr = r.gw.List(ctx, r.colls.Events(), nil)
		return lerr
	})
	if err != nil {
		return nil, err
	}

	out := make([]event.Event, 0, len(docs))
	for _, kd := range docs {
		var e event.Event
		if err := store.Decode(kd.Doc, &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}

	return out, nil
}

// Update applies a creator field edit as a single-document merge.
// Status and attendees are untouched on purpose. The capacity floor is a
// read-then-write check, so it carries the same race bound as registration;
// no committed merge can push the list over its own capacity.
func (r *EventsRepo) Update(ctx context.Context, id string, req event.UpdateEventRequest) (event.Event, error) {
	cur, err := r.GetByID(ctx, id)
	if err != nil {
		return event.Event{}, err
	}
	if req.Capacity < len(cur.Attendees) {
		return event.Event{}, event.ErrCapacityBelowAttendance
	}

	fields := store.Document{
		"title":       req.Title,
		"description": req.Description,
		"date":        req.Date,
		"time":        req.Time,
		"location":    req.Location,
		"capacity":    req.Capacity,
		"updatedAt":   time.Now().UTC(),
	}

	err = r.observe("events.update", func() error {
		return r.gw.Update(ctx, r.colls.Events(), id, fields)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, err
	}

	return r.GetByID(ctx, id)
}

// UpdateStatus writes the moderation transition as a single-field merge.
func (r *EventsRepo) UpdateStatus(ctx context.Context, id string, status event.Status) error {
	err := r.observe("events.update_status", func() error {
		return r.gw.Update(ctx, r.colls.Events(), id, store.Document{
			"status":    status,
			"updatedAt": time.Now().UTC(),
		})
	})
	if errors.Is(err, store.ErrNotFound) {
		return event.ErrNotFound
	}
	return err
}

// UpdateAttendees replaces the attendee list as a single-document merge.
// This is the primary write of the registration engine's two-write sequence.
func (r *EventsRepo) UpdateAttendees(ctx context.Context, id string, attendees []string) error {
	err := r.observe("events.update_attendees", func() error {
		return r.gw.Update(ctx, r.colls.Events(), id, store.Document{
			"attendees": attendees,
			"updatedAt": time.Now().UTC(),
		})
	})
	if errors.Is(err, store.ErrNotFound) {
		return event.ErrNotFound
	}
	return err
}

func (r *EventsRepo) Delete(ctx context.Context, id string) error {
	err := r.observe("events.delete", func() error {
		return r.gw.Delete(ctx, r.colls.Events(), id)
	})
	if errors.Is(err, store.ErrNotFound) {
		return event.ErrNotFound
	}
	return err
}

// Watch opens a live subscription over the whole event collection.
func (r *EventsRepo) Watch(ctx context.Context) (store.Subscription, error) {
	return r.gw.Query(ctx, r.colls.Events(), nil)
}

// DecodeSnapshot turns one subscription snapshot into domain events.
// Undecodable documents are skipped so one bad record cannot wedge the feed.
func (r *EventsRepo) DecodeSnapshot(snap store.Snapshot) []event.Event {
	out := make([]event.Event, 0, len(snap.Docs))
	for _, kd := range snap.Docs {
		var e event.Event
		if err := store.Decode(kd.Doc, &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out
}
