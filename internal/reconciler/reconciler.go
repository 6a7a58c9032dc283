// Package reconciler repairs the drift the registration engine's two-write
// sequence can leave behind. It is the offline counterpart of the partial
// write errors the engine surfaces at request time.
package reconciler

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/gatherdesk/internal/domain/event"
	"github.com/geocoder89/gatherdesk/internal/domain/profile"
	"github.com/geocoder89/gatherdesk/internal/domain/registration"
	"github.com/geocoder89/gatherdesk/internal/observability"
)

type EventsStore interface {
	List(ctx context.Context) ([]event.Event, error)
}

type RegistrationsStore interface {
	ListByUser(ctx context.Context, userID string) ([]registration.Registration, error)
	Create(ctx context.Context, reg registration.Registration) error
	Delete(ctx context.Context, userID, eventID string) error
}

type ProfilesStore interface {
	ListAll(ctx context.Context) ([]profile.Profile, error)
}

type Config struct {
	Interval time.Duration
}

// Report counts what one pass found and fixed.
type Report struct {
	EventsScanned   int
	ProfilesScanned int
	RecordsCreated  int // attendee present, record missing
	RecordsDeleted  int // record present, attendee missing
	Orphans         int // record points at a deleted event
}

type Reconciler struct {
	cfg      Config
	events   EventsStore
	regs     RegistrationsStore
	profiles ProfilesStore
	log      *slog.Logger
	prom     *observability.Prom
}

func New(cfg Config, events EventsStore, regs RegistrationsStore, profiles ProfilesStore, log *slog.Logger, prom *observability.Prom) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	return &Reconciler{
		cfg:      cfg,
		events:   events,
		regs:     regs,
		profiles: profiles,
		log:      log,
		prom:     prom,
	}
}

// Run loops one reconcile pass per tick until the context is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("reconciler received shutdown signal")
			return nil

		case <-ticker.C:
			rep, err := r.Reconcile(ctx)
			if err != nil {
				r.log.Error("reconcile pass failed", "err", err)
				continue
			}
			r.log.Info("reconcile pass complete",
				"events", rep.EventsScanned,
				"profiles", rep.ProfilesScanned,
				"records_created", rep.RecordsCreated,
				"records_deleted", rep.RecordsDeleted,
				"orphans", rep.Orphans,
			)
		}
	}
}

// Reconcile walks every event's attendee list against every identity's
// registration records and squares the two sides.
//
// An attendee without a record gets the record backfilled; a record whose
// user is off the attendee list gets deleted. A record pointing at an event
// that no longer exists is only logged: the engine never deletes events, so
// an orphan means an operator removed the event out of band and should
// decide what the record means.
func (r *Reconciler) Reconcile(ctx context.Context) (Report, error) {
	var rep Report

	events, err := r.events.List(ctx)
	if err != nil {
		return rep, err
	}
	rep.EventsScanned = len(events)

	byID := make(map[string]event.Event, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}

	profiles, err := r.profiles.ListAll(ctx)
	if err != nil {
		return rep, err
	}
	rep.ProfilesScanned = len(profiles)

	// registered[userID][eventID] marks an existing record
	registered := make(map[string]map[string]bool, len(profiles))

	for _, p := range profiles {
		regs, err := r.regs.ListByUser(ctx, p.UserID)
		if err != nil {
			return rep, err
		}

		seen := make(map[string]bool, len(regs))
		for _, reg := range regs {
			seen[reg.EventID] = true

			ev, ok := byID[reg.EventID]
			if !ok {
				rep.Orphans++
				r.log.Warn("registration record for deleted event",
					"user_id", reg.UserID, "event_id", reg.EventID)
				continue
			}

			if !ev.HasAttendee(reg.UserID) {
				if err := r.regs.Delete(ctx, reg.UserID, reg.EventID); err != nil {
					r.log.Error("could not delete stale record",
						"user_id", reg.UserID, "event_id", reg.EventID, "err", err)
					continue
				}
				rep.RecordsDeleted++
				r.repaired("record_deleted")
			}
		}
		registered[p.UserID] = seen
	}

	for _, ev := range events {
		for _, userID := range ev.Attendees {
			if registered[userID][ev.ID] {
				continue
			}
			if err := r.regs.Create(ctx, registration.New(ev.ID, userID)); err != nil {
				r.log.Error("could not backfill record",
					"user_id", userID, "event_id", ev.ID, "err", err)
				continue
			}
			rep.RecordsCreated++
			r.repaired("record_created")
		}
	}

	if r.prom != nil {
		r.prom.ReconcilerRunsTotal.Inc()
	}

	return rep, nil
}

func (r *Reconciler) repaired(kind string) {
	if r.prom != nil {
		r.prom.ReconcilerRepairsTotal.WithLabelValues(kind).Inc()
	}
}
