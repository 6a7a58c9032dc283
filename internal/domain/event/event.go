package event

import (
	"errors"
	"time"
)

// Status is the moderation lifecycle of an event. Every event starts
// pending; an admin moves it to approved or rejected, never back.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

type Event struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Date         string    `json:"date"` // 2006-01-02
	Time         string    `json:"time"` // 15:04
	Location     string    `json:"location,omitempty"`
	Capacity     int       `json:"capacity"`
	Attendees    []string  `json:"attendees"`
	Status       Status    `json:"status"`
	CreatorID    string    `json:"creatorId"`
	CreatorEmail string    `json:"creatorEmail,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

var (
	ErrNotFound = errors.New("event not found")
	// moderation has not approved the event (or has rejected it)
	ErrNotApproved = errors.New("event is not open for registration")
	// the event's start instant is already behind us
	ErrEventEnded = errors.New("event has already taken place")
	// a creator edit tried to shrink capacity under the committed
	// attendee count, which would commit an over-full list
	ErrCapacityBelowAttendance = errors.New("capacity below current attendance")
)

// StartsAt combines the date and time fields into one instant, interpreted
// in the given location.
func (e Event) StartsAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", e.Date+" "+e.Time, loc)
}

// IsPast reports whether the event's start instant is strictly before now.
// Unparseable date/time pairs count as not past, so a malformed record stays
// registrable instead of silently dying.
func (e Event) IsPast(now time.Time) bool {
	at, err := e.StartsAt(now.Location())
	if err != nil {
		return false
	}
	return at.Before(now)
}

// IsFull reports whether the attendee list has reached capacity.
func (e Event) IsFull() bool {
	return len(e.Attendees) >= e.Capacity
}

// HasAttendee reports membership of the identity in the attendee set.
func (e Event) HasAttendee(userID string) bool {
	for _, id := range e.Attendees {
		if id == userID {
			return true
		}
	}
	return false
}

type CreateEventRequest struct {
	Title       string `json:"title" binding:"required,min=3,max=120"`
	Description string `json:"description" binding:"omitempty,max=1000"`
	Date        string `json:"date" binding:"required,datetime=2006-01-02"`
	Time        string `json:"time" binding:"required,datetime=15:04"`
	Location    string `json:"location" binding:"omitempty,max=160"`
	Capacity    int    `json:"capacity" binding:"required,min=1,max=50000"`
}

// Field edits by the creator. Status and attendees are deliberately absent:
// status moves only through moderation, attendees only through the
// registration engine.
type UpdateEventRequest struct {
	Title       string `json:"title" binding:"required,min=3,max=120"`
	Description string `json:"description" binding:"omitempty,max=1000"`
	Date        string `json:"date" binding:"required,datetime=2006-01-02"`
	Time        string `json:"time" binding:"required,datetime=15:04"`
	Location    string `json:"location" binding:"omitempty,max=160"`
	Capacity    int    `json:"capacity" binding:"required,min=1,max=50000"`
}
