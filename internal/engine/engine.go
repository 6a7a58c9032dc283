// Package engine enforces the registration protocol: the capacity check,
// the attendee-list write and the paired registrant-owned record, in that
// order. The store gives us atomic single-document writes and nothing more,
// so the two writes of each operation are individually durable but not
// jointly atomic; a failed second write surfaces as PartialWriteError and is
// never rolled back or retried here.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/gatherdesk/internal/domain/event"
	"github.com/geocoder89/gatherdesk/internal/domain/registration"
	"github.com/geocoder89/gatherdesk/internal/identity"
	"github.com/geocoder89/gatherdesk/internal/observability"
)

// EventsStore is the slice of the event repository the engine needs.
type EventsStore interface {
	GetByID(ctx context.Context, id string) (event.Event, error)
	UpdateAttendees(ctx context.Context, id string, attendees []string) error
}

// RegistrationsStore is the slice of the registration repository the
// engine needs.
type RegistrationsStore interface {
	Create(ctx context.Context, reg registration.Registration) error
	Delete(ctx context.Context, userID, eventID string) error
}

// PartialWriteError reports that the first write of a two-write sequence
// committed and the second did not. The event document is authoritative;
// the registrant's personal record is out of step until the reconciler or
// an operator repairs it.
type PartialWriteError struct {
	Op      string // register or cancel
	EventID string
	UserID  string
	Err     error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("partial write during %s (event=%s user=%s): attendee list committed, registration record did not: %v",
		e.Op, e.EventID, e.UserID, e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }

type Engine struct {
	events EventsStore
	regs   RegistrationsStore
	log    *slog.Logger
	prom   *observability.Prom
}

func New(events EventsStore, regs RegistrationsStore, log *slog.Logger, prom *observability.Prom) *Engine {
	return &Engine{
		events: events,
		regs:   regs,
		log:    log,
		prom:   prom,
	}
}

func (en *Engine) count(op string, err error) {
	if en.prom == nil {
		return
	}
	en.prom.EngineResultsTotal.WithLabelValues(op, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, event.ErrNotFound):
		return "not_found"
	case errors.Is(err, registration.ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, registration.ErrNotRegistered):
		return "not_registered"
	case errors.Is(err, registration.ErrEventFull):
		return "event_full"
	case errors.Is(err, event.ErrNotApproved):
		return "not_approved"
	case errors.Is(err, event.ErrEventEnded):
		return "event_ended"
	default:
		var pw *PartialWriteError
		if errors.As(err, &pw) {
			return "partial_write"
		}
		return "error"
	}
}

// Register signs who up for the event.
//
// The capacity check and the attendee write are a read-then-write pair, not
// a compare-and-swap: two callers racing on the same event can both pass the
// check and both report success even though the later list write replaces
// the earlier one. Because each committed list is one reader's view plus a
// single entry, no committed state ever exceeds capacity; the race instead
// shows up as a successful registrant missing from the list, which the
// reconciler squares against the registration records. That race is
// documented and accepted rather than serialized behind a lock.
func (en *Engine) Register(ctx context.Context, eventID string, who identity.Identity) (err error) {
	defer func() { en.count("register", err) }()

	e, err := en.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}

	if e.HasAttendee(who.ID) {
		return registration.ErrAlreadyRegistered
	}

	if e.Status != event.StatusApproved {
		return event.ErrNotApproved
	}

	if e.IsPast(time.Now()) {
		return event.ErrEventEnded
	}

	if e.IsFull() {
		return registration.ErrEventFull
	}

	attendees := append(append([]string{}, e.Attendees...), who.ID)

	if err := en.events.UpdateAttendees(ctx, eventID, attendees); err != nil {
		return err
	}

	// second write: the registrant-owned record
	if err := en.regs.Create(ctx, registration.New(eventID, who.ID)); err != nil {
		pw := &PartialWriteError{Op: "register", EventID: eventID, UserID: who.ID, Err: err}
		en.logPartialWrite(ctx, pw)
		return pw
	}

	return nil
}

// Cancel removes who from the event's attendee list and deletes the paired
// registration record, with the same two-write caveat as Register.
func (en *Engine) Cancel(ctx context.Context, eventID string, who identity.Identity) (err error) {
	defer func() { en.count("cancel", err) }()

	e, err := en.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}

	if !e.HasAttendee(who.ID) {
		return registration.ErrNotRegistered
	}

	attendees := make([]string, 0, len(e.Attendees)-1)
	for _, id := range e.Attendees {
		if id != who.ID {
			attendees = append(attendees, id)
		}
	}

	if err := en.events.UpdateAttendees(ctx, eventID, attendees); err != nil {
		return err
	}

	if err := en.regs.Delete(ctx, who.ID, eventID); err != nil {
		// an absent record means a previous register half-failed; the
		// final state is consistent, so this is a completed cancel
		if errors.Is(err, registration.ErrNotFound) {
			return nil
		}

		pw := &PartialWriteError{Op: "cancel", EventID: eventID, UserID: who.ID, Err: err}
		en.logPartialWrite(ctx, pw)
		return pw
	}

	return nil
}

func (en *Engine) logPartialWrite(ctx context.Context, pw *PartialWriteError) {
	if en.prom != nil {
		en.prom.PartialWritesTotal.WithLabelValues(pw.Op).Inc()
	}
	if en.log != nil {
		en.log.ErrorContext(ctx, "partial write",
			"op", pw.Op,
			"event_id", pw.EventID,
			"user_id", pw.UserID,
			"err", pw.Err,
		)
	}
}
