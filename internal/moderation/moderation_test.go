package moderation_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/geocoder89/gatherdesk/internal/domain/event"
	"github.com/geocoder89/gatherdesk/internal/domain/profile"
	"github.com/geocoder89/gatherdesk/internal/moderation"
	"github.com/geocoder89/gatherdesk/internal/repo/docstore"
	"github.com/geocoder89/gatherdesk/internal/store/memory"
)

type fixture struct {
	events   *docstore.EventsRepo
	profiles *docstore.ProfilesRepo
	sm       *moderation.StateMachine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	colls := docstore.NewCollections("test")
	gw := memory.New()
	events := docstore.NewEventsRepo(gw, colls, nil)
	profiles := docstore.NewProfilesRepo(gw, colls, nil)

	return &fixture{
		events:   events,
		profiles: profiles,
		sm:       moderation.New(events, profiles, slog.New(slog.DiscardHandler), nil),
	}
}

func (f *fixture) seedProfile(t *testing.T, userID string, isAdmin bool) {
	t.Helper()

	p := profile.New(userID, userID+"@example.com")
	p.IsAdmin = isAdmin

	if err := f.profiles.Create(context.Background(), p); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
}

func (f *fixture) seedEvent(t *testing.T) event.Event {
	t.Helper()

	e, err := f.events.Create(context.Background(), event.CreateEventRequest{
		Title:    "Go Meetup",
		Date:     "2099-06-01",
		Time:     "18:30",
		Capacity: 10,
	}, "creator-1", "creator@example.com")
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}

	return e
}

func (f *fixture) status(t *testing.T, id string) event.Status {
	t.Helper()

	e, err := f.events.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	return e.Status
}

func TestNonAdminCannotModerate(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, f *fixture) string // actor id
	}{
		{
			name: "regular_user",
			setup: func(t *testing.T, f *fixture) string {
				f.seedProfile(t, "user-1", false)
				return "user-1"
			},
		},
		{
			name: "unknown_identity",
			setup: func(t *testing.T, f *fixture) string {
				return "ghost"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			e := f.seedEvent(t)
			actor := tt.setup(t, f)

			if err := f.sm.Approve(context.Background(), e.ID, actor); !errors.Is(err, moderation.ErrUnauthorized) {
				t.Fatalf("approve: got %v, want ErrUnauthorized", err)
			}
			if err := f.sm.Reject(context.Background(), e.ID, actor); !errors.Is(err, moderation.ErrUnauthorized) {
				t.Fatalf("reject: got %v, want ErrUnauthorized", err)
			}

			if got := f.status(t, e.ID); got != event.StatusPending {
				t.Fatalf("status mutated to %s", got)
			}
		})
	}
}

func TestApproveTransitionAndIdempotence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProfile(t, "admin-1", true)
	e := f.seedEvent(t)

	if err := f.sm.Approve(ctx, e.ID, "admin-1"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got := f.status(t, e.ID); got != event.StatusApproved {
		t.Fatalf("status = %s, want approved", got)
	}

	// duplicate click: no error, no change
	if err := f.sm.Approve(ctx, e.ID, "admin-1"); err != nil {
		t.Fatalf("repeat approve: %v", err)
	}
	if got := f.status(t, e.ID); got != event.StatusApproved {
		t.Fatalf("status = %s after repeat, want approved", got)
	}
}

func TestRejectTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProfile(t, "admin-1", true)
	e := f.seedEvent(t)

	if err := f.sm.Reject(ctx, e.ID, "admin-1"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got := f.status(t, e.ID); got != event.StatusRejected {
		t.Fatalf("status = %s, want rejected", got)
	}
}

// approved and rejected are terminal: the opposite verb is a no-op, never
// a second transition.
func TestNoTransitionOutOfTerminalStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProfile(t, "admin-1", true)

	e1 := f.seedEvent(t)
	if err := f.sm.Approve(ctx, e1.ID, "admin-1"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := f.sm.Reject(ctx, e1.ID, "admin-1"); err != nil {
		t.Fatalf("reject after approve: %v", err)
	}
	if got := f.status(t, e1.ID); got != event.StatusApproved {
		t.Fatalf("approved event moved to %s", got)
	}

	e2 := f.seedEvent(t)
	if err := f.sm.Reject(ctx, e2.ID, "admin-1"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := f.sm.Approve(ctx, e2.ID, "admin-1"); err != nil {
		t.Fatalf("approve after reject: %v", err)
	}
	if got := f.status(t, e2.ID); got != event.StatusRejected {
		t.Fatalf("rejected event moved to %s", got)
	}
}

func TestModerateMissingEvent(t *testing.T) {
	f := newFixture(t)
	f.seedProfile(t, "admin-1", true)

	if err := f.sm.Approve(context.Background(), "no-such-event", "admin-1"); !errors.Is(err, event.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

// revoking the admin flag takes effect on the very next call; there is no
// cached admin session.
func TestRevokedAdminLosesAuthorityImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProfile(t, "admin-1", true)

	e1 := f.seedEvent(t)
	if err := f.sm.Approve(ctx, e1.ID, "admin-1"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if err := f.profiles.SetAdmin(ctx, "admin-1", false); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	e2 := f.seedEvent(t)
	if err := f.sm.Approve(ctx, e2.ID, "admin-1"); !errors.Is(err, moderation.ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized after revoke", err)
	}
	if got := f.status(t, e2.ID); got != event.StatusPending {
		t.Fatalf("status mutated to %s", got)
	}
}
