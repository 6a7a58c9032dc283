package reconciler_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/geocoder89/gatherdesk/internal/domain/event"
	"github.com/geocoder89/gatherdesk/internal/domain/profile"
	"github.com/geocoder89/gatherdesk/internal/domain/registration"
	"github.com/geocoder89/gatherdesk/internal/reconciler"
	"github.com/geocoder89/gatherdesk/internal/repo/docstore"
	"github.com/geocoder89/gatherdesk/internal/store/memory"
)

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type fixture struct {
	events   *docstore.EventsRepo
	regs     *docstore.RegistrationsRepo
	profiles *docstore.ProfilesRepo
	rec      *reconciler.Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	colls := docstore.NewCollections("test")
	gw := memory.New()
	events := docstore.NewEventsRepo(gw, colls, nil)
	regs := docstore.NewRegistrationsRepo(gw, colls, nil)
	profiles := docstore.NewProfilesRepo(gw, colls, nil)

	return &fixture{
		events:   events,
		regs:     regs,
		profiles: profiles,
		rec: reconciler.New(reconciler.Config{Interval: time.Minute},
			events, regs, profiles, discard(), nil),
	}
}

func (f *fixture) seedProfile(t *testing.T, userID string) {
	t.Helper()
	if err := f.profiles.Create(context.Background(), profile.New(userID, userID+"@example.com")); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
}

func (f *fixture) seedEvent(t *testing.T, attendees ...string) event.Event {
	t.Helper()
	ctx := context.Background()

	e, err := f.events.Create(ctx, event.CreateEventRequest{
		Title:    "Go Meetup",
		Date:     "2099-06-01",
		Time:     "18:30",
		Capacity: 10,
	}, "creator-1", "creator@example.com")
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}

	if len(attendees) > 0 {
		if err := f.events.UpdateAttendees(ctx, e.ID, attendees); err != nil {
			t.Fatalf("seed attendees: %v", err)
		}
		e.Attendees = attendees
	}

	return e
}

func TestConsistentStateNeedsNoRepairs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedProfile(t, "alice")
	e := f.seedEvent(t, "alice")
	if err := f.regs.Create(ctx, registration.New(e.ID, "alice")); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	rep, err := f.rec.Reconcile(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if rep.RecordsCreated != 0 || rep.RecordsDeleted != 0 || rep.Orphans != 0 {
		t.Fatalf("unexpected repairs: %+v", rep)
	}
}

func TestBackfillsRecordForAttendee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedProfile(t, "alice")
	e := f.seedEvent(t, "alice") // attendee listed, record missing

	rep, err := f.rec.Reconcile(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if rep.RecordsCreated != 1 {
		t.Fatalf("records created = %d, want 1", rep.RecordsCreated)
	}

	reg, err := f.regs.Get(ctx, "alice", e.ID)
	if err != nil {
		t.Fatalf("record not backfilled: %v", err)
	}
	if reg.UserID != "alice" || reg.EventID != e.ID {
		t.Fatalf("backfilled record mismatch: %+v", reg)
	}
}

func TestDeletesRecordWithoutAttendee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedProfile(t, "alice")
	e := f.seedEvent(t) // empty attendee list
	if err := f.regs.Create(ctx, registration.New(e.ID, "alice")); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	rep, err := f.rec.Reconcile(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if rep.RecordsDeleted != 1 {
		t.Fatalf("records deleted = %d, want 1", rep.RecordsDeleted)
	}

	if _, err := f.regs.Get(ctx, "alice", e.ID); !errors.Is(err, registration.ErrNotFound) {
		t.Fatalf("stale record should be gone, got err=%v", err)
	}
}

// A record pointing at an event the store no longer holds is reported but
// never deleted; an operator removed the event out of band and owns the
// cleanup decision.
func TestOrphanRecordIsReportedNotDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedProfile(t, "alice")
	if err := f.regs.Create(ctx, registration.New("gone-event", "alice")); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	rep, err := f.rec.Reconcile(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if rep.Orphans != 1 {
		t.Fatalf("orphans = %d, want 1", rep.Orphans)
	}

	if _, err := f.regs.Get(ctx, "alice", "gone-event"); err != nil {
		t.Fatalf("orphan record should survive: %v", err)
	}
}

func TestRepairsMultipleUsersInOnePass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedProfile(t, "alice")
	f.seedProfile(t, "bob")

	e := f.seedEvent(t, "alice") // alice listed without record
	if err := f.regs.Create(ctx, registration.New(e.ID, "bob")); err != nil {
		t.Fatalf("seed record: %v", err) // bob recorded without being listed
	}

	rep, err := f.rec.Reconcile(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if rep.RecordsCreated != 1 || rep.RecordsDeleted != 1 {
		t.Fatalf("repairs = %+v, want one create and one delete", rep)
	}

	if _, err := f.regs.Get(ctx, "alice", e.ID); err != nil {
		t.Fatalf("alice record missing after repair: %v", err)
	}
	if _, err := f.regs.Get(ctx, "bob", e.ID); !errors.Is(err, registration.ErrNotFound) {
		t.Fatalf("bob record should be gone, got err=%v", err)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- f.rec.Run(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop on cancel")
	}
}
