// Package moderation drives the admin-gated event lifecycle:
// pending -> approved or pending -> rejected, nothing else, ever.
package moderation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/geocoder89/gatherdesk/internal/domain/event"
	"github.com/geocoder89/gatherdesk/internal/domain/profile"
	"github.com/geocoder89/gatherdesk/internal/observability"
)

var ErrUnauthorized = errors.New("admin authority required")

type EventsStore interface {
	GetByID(ctx context.Context, id string) (event.Event, error)
	UpdateStatus(ctx context.Context, id string, status event.Status) error
}

// ProfilesStore resolves the acting identity's profile. The admin flag is
// re-read on every call so a revoked admin loses authority immediately,
// token claims notwithstanding.
type ProfilesStore interface {
	GetByID(ctx context.Context, userID string) (profile.Profile, error)
}

type StateMachine struct {
	events   EventsStore
	profiles ProfilesStore
	log      *slog.Logger
	prom     *observability.Prom
}

func New(events EventsStore, profiles ProfilesStore, log *slog.Logger, prom *observability.Prom) *StateMachine {
	return &StateMachine{
		events:   events,
		profiles: profiles,
		log:      log,
		prom:     prom,
	}
}

func (m *StateMachine) Approve(ctx context.Context, eventID, actorID string) error {
	return m.transition(ctx, eventID, actorID, event.StatusApproved)
}

func (m *StateMachine) Reject(ctx context.Context, eventID, actorID string) error {
	return m.transition(ctx, eventID, actorID, event.StatusRejected)
}

func (m *StateMachine) transition(ctx context.Context, eventID, actorID string, to event.Status) (err error) {
	defer func() {
		if m.prom != nil {
			result := "ok"
			switch {
			case errors.Is(err, ErrUnauthorized):
				result = "unauthorized"
			case errors.Is(err, event.ErrNotFound):
				result = "not_found"
			case err != nil:
				result = "error"
			}
			m.prom.EngineResultsTotal.WithLabelValues("moderate_"+string(to), result).Inc()
		}
	}()

	actor, err := m.profiles.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}

	if !actor.IsAdmin {
		return ErrUnauthorized
	}

	e, err := m.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}

	// duplicate admin clicks land here; tolerated as a no-op rather than
	// an error
	if e.Status != event.StatusPending {
		if m.log != nil {
			m.log.DebugContext(ctx, "moderation no-op",
				"event_id", eventID,
				"status", e.Status,
				"requested", to,
			)
		}
		return nil
	}

	if err := m.events.UpdateStatus(ctx, eventID, to); err != nil {
		return err
	}

	if m.log != nil {
		m.log.InfoContext(ctx, "event moderated",
			"event_id", eventID,
			"actor_id", actorID,
			"status", to,
		)
	}

	return nil
}
