package view_test

import (
	"testing"
	"time"

	"github.com/geocoder89/gatherdesk/internal/domain/event"
	"github.com/geocoder89/gatherdesk/internal/identity"
	"github.com/geocoder89/gatherdesk/internal/view"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func futureEvent(id string, status event.Status) event.Event {
	return event.Event{
		ID:        id,
		Title:     "Event " + id,
		Date:      "2026-07-01",
		Time:      "18:00",
		Location:  "Toronto",
		Capacity:  10,
		Attendees: []string{},
		Status:    status,
		CreatorID: "creator-1",
	}
}

func TestTabFiltering(t *testing.T) {
	approved := futureEvent("e-approved", event.StatusApproved)
	pending := futureEvent("e-pending", event.StatusPending)
	rejected := futureEvent("e-rejected", event.StatusRejected)

	mine := futureEvent("e-mine", event.StatusPending)
	mine.CreatorID = "me"

	attending := futureEvent("e-attending", event.StatusApproved)
	attending.Attendees = []string{"me"}

	all := []event.Event{approved, pending, rejected, mine, attending}

	self := identity.Identity{ID: "me"}
	admin := identity.Identity{ID: "root", IsAdmin: true}

	tests := []struct {
		name    string
		self    identity.Identity
		tab     view.Tab
		wantIDs []string
	}{
		{
			name:    "all_tab_only_approved",
			self:    self,
			tab:     view.TabAll,
			wantIDs: []string{"e-approved", "e-attending"},
		},
		{
			name:    "mine_created_any_status",
			self:    self,
			tab:     view.TabMineCreated,
			wantIDs: []string{"e-mine"},
		},
		{
			name:    "mine_registered",
			self:    self,
			tab:     view.TabMineRegistered,
			wantIDs: []string{"e-attending"},
		},
		{
			name:    "admin_pending_hidden_from_non_admin",
			self:    self,
			tab:     view.TabAdminPending,
			wantIDs: []string{},
		},
		{
			name:    "admin_pending_for_admin",
			self:    admin,
			tab:     view.TabAdminPending,
			wantIDs: []string{"e-mine", "e-pending"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := view.Project(all, tt.self, tt.tab, view.Filters{}, now)

			ids := make([]string, 0, len(items))
			for _, it := range items {
				ids = append(ids, it.ID)
			}

			if len(ids) != len(tt.wantIDs) {
				t.Fatalf("got %v, want %v", ids, tt.wantIDs)
			}
			for i := range ids {
				if ids[i] != tt.wantIDs[i] {
					t.Fatalf("got %v, want %v", ids, tt.wantIDs)
				}
			}
		})
	}
}

func TestSecondaryFiltersAreConjunctive(t *testing.T) {
	e1 := futureEvent("e1", event.StatusApproved)
	e1.Date = "2026-07-01"
	e1.Location = "Toronto Convention Centre"

	e2 := futureEvent("e2", event.StatusApproved)
	e2.Date = "2026-07-01"
	e2.Location = "Lagos"

	e3 := futureEvent("e3", event.StatusApproved)
	e3.Date = "2026-08-15"
	e3.Location = "Toronto Island"

	all := []event.Event{e1, e2, e3}
	self := identity.Identity{ID: "me"}

	tests := []struct {
		name    string
		filters view.Filters
		wantIDs []string
	}{
		{name: "date_only", filters: view.Filters{Date: "2026-07-01"}, wantIDs: []string{"e1", "e2"}},
		{name: "location_substring_case_insensitive", filters: view.Filters{Location: "toronto"}, wantIDs: []string{"e1", "e3"}},
		{name: "both_anded", filters: view.Filters{Date: "2026-07-01", Location: "TORONTO"}, wantIDs: []string{"e1"}},
		{name: "no_match", filters: view.Filters{Date: "2026-07-01", Location: "Berlin"}, wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := view.Project(all, self, view.TabAll, tt.filters, now)

			if len(items) != len(tt.wantIDs) {
				t.Fatalf("got %d items, want %d", len(items), len(tt.wantIDs))
			}
			for i, it := range items {
				if it.ID != tt.wantIDs[i] {
					t.Fatalf("item %d = %s, want %s", i, it.ID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestFullEventStaysListedButClosed(t *testing.T) {
	e := futureEvent("e-full", event.StatusApproved)
	e.Capacity = 2
	e.Attendees = []string{"a", "b"}

	items := view.Project([]event.Event{e}, identity.Identity{ID: "me"}, view.TabAll, view.Filters{}, now)

	if len(items) != 1 {
		t.Fatalf("full event was hidden")
	}
	if !items[0].Full {
		t.Fatalf("full flag not set")
	}
	if items[0].CanRegister {
		t.Fatalf("full event must not accept registration")
	}
}

func TestPastEventStaysListedWithoutControls(t *testing.T) {
	e := futureEvent("e-past", event.StatusApproved)
	e.Date = "2026-05-31" // the day before now

	items := view.Project([]event.Event{e}, identity.Identity{ID: "me"}, view.TabAll, view.Filters{}, now)

	if len(items) != 1 {
		t.Fatalf("past event was hidden")
	}
	if !items[0].Past {
		t.Fatalf("past flag not set")
	}
	if items[0].CanRegister {
		t.Fatalf("past event must not accept registration")
	}
}

func TestRegisteredViewerCannotRegisterAgain(t *testing.T) {
	e := futureEvent("e1", event.StatusApproved)
	e.Attendees = []string{"me"}

	items := view.Project([]event.Event{e}, identity.Identity{ID: "me"}, view.TabAll, view.Filters{}, now)

	if !items[0].Registered {
		t.Fatalf("registered flag not set")
	}
	if items[0].CanRegister {
		t.Fatalf("already-registered viewer offered registration")
	}
}

func TestProjectionOrdering(t *testing.T) {
	later := futureEvent("b", event.StatusApproved)
	later.Date = "2026-09-01"

	earlier := futureEvent("a", event.StatusApproved)
	earlier.Date = "2026-07-01"

	sameDay := futureEvent("c", event.StatusApproved)
	sameDay.Date = "2026-07-01"
	sameDay.Time = "09:00"

	items := view.Project([]event.Event{later, earlier, sameDay}, identity.Identity{ID: "me"}, view.TabAll, view.Filters{}, now)

	got := []string{items[0].ID, items[1].ID, items[2].ID}
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}
