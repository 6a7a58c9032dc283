// Package view derives the client-visible event lists from store state.
// Everything here is a pure function of the events, the viewer's identity
// and the clock; it runs on every change-feed snapshot and on tab switch.
package view

import (
	"sort"
	"strings"
	"time"

	"github.com/geocoder89/gatherdesk/internal/domain/event"
	"github.com/geocoder89/gatherdesk/internal/identity"
)

type Tab string

const (
	TabAll            Tab = "all"             // approved events
	TabMineCreated    Tab = "mine-created"    // events I created, any status
	TabMineRegistered Tab = "mine-registered" // events I attend
	TabAdminPending   Tab = "admin-pending"   // pending queue, admins only
)

func (t Tab) IsValid() bool {
	switch t {
	case TabAll, TabMineCreated, TabMineRegistered, TabAdminPending:
		return true
	}
	return false
}

// Filters are the secondary client-side filters, applied conjunctively
// after the tab filter.
type Filters struct {
	Date     string // exact match on the event date, 2006-01-02
	Location string // case-insensitive substring
}

// Item is an event decorated with the per-viewer display flags.
type Item struct {
	event.Event

	// Full disables new registration but never hides the event.
	Full bool `json:"full"`
	// Past suppresses the register/cancel controls but keeps the event
	// listed.
	Past bool `json:"past"`
	// Registered marks the viewer's own attendance.
	Registered bool `json:"registered"`
	// CanRegister is the combined gate the client renders against.
	CanRegister bool `json:"canRegister"`
}

// Project derives one tab's list for the viewer at the given instant.
// The admin-pending tab yields nothing for non-admins regardless of input.
func Project(events []event.Event, self identity.Identity, tab Tab, f Filters, now time.Time) []Item {
	out := make([]Item, 0, len(events))

	for _, e := range events {
		if !inTab(e, self, tab) {
			continue
		}
		if !matchesFilters(e, f) {
			continue
		}
		out = append(out, decorate(e, self, now))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].ID < out[j].ID
	})

	return out
}

func inTab(e event.Event, self identity.Identity, tab Tab) bool {
	switch tab {
	case TabAll:
		return e.Status == event.StatusApproved
	case TabMineCreated:
		return e.CreatorID == self.ID
	case TabMineRegistered:
		return e.HasAttendee(self.ID)
	case TabAdminPending:
		return self.IsAdmin && e.Status == event.StatusPending
	default:
		return false
	}
}

func matchesFilters(e event.Event, f Filters) bool {
	if f.Date != "" && e.Date != f.Date {
		return false
	}

	if f.Location != "" {
		if !strings.Contains(strings.ToLower(e.Location), strings.ToLower(f.Location)) {
			return false
		}
	}

	return true
}

func decorate(e event.Event, self identity.Identity, now time.Time) Item {
	full := e.IsFull()
	past := e.IsPast(now)
	registered := e.HasAttendee(self.ID)

	return Item{
		Event:       e,
		Full:        full,
		Past:        past,
		Registered:  registered,
		CanRegister: e.Status == event.StatusApproved && !full && !past && !registered,
	}
}
