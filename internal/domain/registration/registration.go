package registration

import (
	"errors"
	"time"
)

// Registration is the registrant-owned half of a successful sign-up: a
// personal record keyed by event under the registrant's own collection.
// It is created right after the attendee-list write and deleted right after
// the attendee-list removal; the two writes are not atomic (see engine).
type Registration struct {
	EventID      string    `json:"eventId"`
	UserID       string    `json:"userId"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// if you are already on the attendee list
var ErrAlreadyRegistered = errors.New("already registered for this event")

// cancel without a matching registration
var ErrNotRegistered = errors.New("not registered for this event")

// event at capacity
var ErrEventFull = errors.New("event is full")

var ErrNotFound = errors.New("registration not found")

func New(eventID, userID string) Registration {
	return Registration{
		EventID:      eventID,
		UserID:       userID,
		RegisteredAt: time.Now().UTC(),
	}
}
