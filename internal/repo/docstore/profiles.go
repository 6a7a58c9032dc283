package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/gatherdesk/internal/domain/profile"
	"github.com/geocoder89/gatherdesk/internal/observability"
	"github.com/geocoder89/gatherdesk/internal/store"
)

// ProfilesRepo stores per-identity profiles keyed by user id.
// The password hash is persisted under its own field because the domain
// struct hides it from JSON on purpose.
type ProfilesRepo struct {
	gw    store.Gateway
	colls Collections
	prom  *observability.Prom
}

func NewProfilesRepo(gw store.Gateway, colls Collections, prom *observability.Prom) *ProfilesRepo {
	return &ProfilesRepo{
		gw:    gw,
		colls: colls,
		prom:  prom,
	}
}

func (r *ProfilesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveStore(op, fn)
	}
	return fn()
}

func encodeProfile(p profile.Profile) (store.Document, error) {
	doc, err := store.Encode(p)
	if err != nil {
		return nil, err
	}
	doc["passwordHash"] = p.PasswordHash
	return doc, nil
}

func decodeProfile(doc store.Document) (profile.Profile, error) {
	var p profile.Profile
	if err := store.Decode(doc, &p); err != nil {
		return profile.Profile{}, err
	}
	p.PasswordHash, _ = doc["passwordHash"].(string)
	return p, nil
}

func (r *ProfilesRepo) Create(ctx context.Context, p profile.Profile) error {
	existing, err := r.GetByEmail(ctx, p.Email)
	if err == nil && existing.UserID != "" {
		return profile.ErrEmailTaken
	}
	if err != nil && !errors.Is(err, profile.ErrNotFound) {
		return err
	}

	doc, err := encodeProfile(p)
	if err != nil {
		return err
	}

	return r.observe("profiles.create", func() error {
		return r.gw.Put(ctx, r.colls.Profiles(), p.UserID, doc)
	})
}

func (r *ProfilesRepo) GetByID(ctx context.Context, userID string) (profile.Profile, error) {
	var doc store.Document

	err := r.observe("profiles.get_by_id", func() error {
		var gerr error
		doc, gerr = r.gw.Get(ctx, r.colls.Profiles(), userID)
		return gerr
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return profile.Profile{}, profile.ErrNotFound
		}
		return profile.Profile{}, err
	}

	return decodeProfile(doc)
}

func (r *ProfilesRepo) GetByEmail(ctx context.Context, email string) (profile.Profile, error) {
	var docs []store.KeyedDocument

	err := r.observe("profiles.get_by_email", func() error {
		var lerr error
		docs, lerr = r.gw.List(ctx, r.colls.Profiles(), func(doc store.Document) bool {
			return doc["email"] == email
		})
		return lerr
	})
	if err != nil {
		return profile.Profile{}, err
	}

	if len(docs) == 0 {
		return profile.Profile{}, profile.ErrNotFound
	}

	return decodeProfile(docs[0].Doc)
}

// Resolve fetches the profile for an authenticated identity, lazily
// creating the default (non-admin) record on first sight.
func (r *ProfilesRepo) Resolve(ctx context.Context, userID, email string) (profile.Profile, error) {
	p, err := r.GetByID(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, profile.ErrNotFound) {
		return profile.Profile{}, err
	}

	p = profile.New(userID, email)

	doc, err := encodeProfile(p)
	if err != nil {
		return profile.Profile{}, err
	}

	err = r.observe("profiles.resolve_create", func() error {
		return r.gw.Put(ctx, r.colls.Profiles(), p.UserID, doc)
	})
	if err != nil {
		return profile.Profile{}, err
	}

	return p, nil
}

// IsAdmin answers the authoritative admin question from the stored profile.
// An unknown user is simply not an admin.
func (r *ProfilesRepo) IsAdmin(ctx context.Context, userID string) (bool, error) {
	p, err := r.GetByID(ctx, userID)
	if errors.Is(err, profile.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.IsAdmin, nil
}

// ListAll returns every known profile. Used by the reconciler to walk the
// per-identity registration collections.
func (r *ProfilesRepo) ListAll(ctx context.Context) ([]profile.Profile, error) {
	var docs []store.KeyedDocument

	err := r.observe("profiles.list_all", func() error {
		var lerr error
		docs, lerr = r.gw.List(ctx, r.colls.Profiles(), nil)
		return lerr
	})
	if err != nil {
		return nil, err
	}

	out := make([]profile.Profile, 0, len(docs))
	for _, kd := range docs {
		p, err := decodeProfile(kd.Doc)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, nil
}

// SetAdmin flips the admin flag. Only the out-of-band seeding path calls
// this; no request handler reaches it.
func (r *ProfilesRepo) SetAdmin(ctx context.Context, userID string, isAdmin bool) error {
	err := r.observe("profiles.set_admin", func() error {
		return r.gw.Update(ctx, r.colls.Profiles(), userID, store.Document{
			"isAdmin":   isAdmin,
			"updatedAt": time.Now().UTC(),
		})
	})
	if errors.Is(err, store.ErrNotFound) {
		return profile.ErrNotFound
	}
	return err
}
