package docstore

import (
	"context"
	"errors"

	"github.com/geocoder89/gatherdesk/internal/domain/registration"
	"github.com/geocoder89/gatherdesk/internal/observability"
	"github.com/geocoder89/gatherdesk/internal/store"
)

// RegistrationsRepo manages the registrant-owned registration records.
// Each identity has its own collection; the record key is the event id,
// which makes the (event, registrant) pair naturally unique.
type RegistrationsRepo struct {
	gw    store.Gateway
	colls Collections
	prom  *observability.Prom
}

func NewRegistrationsRepo(gw store.Gateway, colls Collections, prom *observability.Prom) *RegistrationsRepo {
	return &RegistrationsRepo{
		gw:    gw,
		colls: colls,
		prom:  prom,
	}
}

func (r *RegistrationsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveStore(op, fn)
	}
	return fn()
}

func (r *RegistrationsRepo) Create(ctx context.Context, reg registration.Registration) error {
	doc, err := store.Encode(reg)
	if err != nil {
		return err
	}

	return r.observe("registrations.create", func() error {
		return r.gw.Put(ctx, r.colls.Registrations(reg.UserID), reg.EventID, doc)
	})
}

func (r *RegistrationsRepo) Get(ctx context.Context, userID, eventID string) (registration.Registration, error) {
	var doc store.Document

	err := r.observe("registrations.get", func() error {
		var gerr error
		doc, gerr = r.gw.Get(ctx, r.colls.Registrations(userID), eventID)
		return gerr
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return registration.Registration{}, registration.ErrNotFound
		}
		return registration.Registration{}, err
	}

	var reg registration.Registration
	if err := store.Decode(doc, &reg); err != nil {
		return registration.Registration{}, err
	}

	return reg, nil
}

func (r *RegistrationsRepo) Delete(ctx context.Context, userID, eventID string) error {
	err := r.observe("registrations.delete", func() error {
		return r.gw.Delete(ctx, r.colls.Registrations(userID), eventID)
	})
	if errors.Is(err, store.ErrNotFound) {
		return registration.ErrNotFound
	}
	return err
}

func (r *RegistrationsRepo) ListByUser(ctx context.Context, userID string) ([]registration.Registration, error) {
	var docs []store.KeyedDocument

	err := r.observe("registrations.list_by_user", func() error {
		var lerr error
		docs, lerr = r.gw.List(ctx, r.colls.Registrations(userID), nil)
		return lerr
	})
	if err != nil {
		return nil, err
	}

	out := make([]registration.Registration, 0, len(docs))
	for _, kd := range docs {
		var reg registration.Registration
		if err := store.Decode(kd.Doc, &reg); err != nil {
			return nil, err
		}
		out = append(out, reg)
	}

	return out, nil
}
