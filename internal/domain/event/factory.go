package event

import (
	"time"

	"github.com/google/uuid"
)

// NewFromCreateRequest builds a fresh Event from the incoming DTO.
// Status is forced to pending and the attendee set starts empty no matter
// what the caller sends.
func NewFromCreateRequest(req CreateEventRequest, creatorID, creatorEmail string) Event {
	now := time.Now().UTC()

	return Event{
		ID:           uuid.NewString(),
		Title:        req.Title,
		Description:  req.Description,
		Date:         req.Date,
		Time:         req.Time,
		Location:     req.Location,
		Capacity:     req.Capacity,
		Attendees:    []string{},
		Status:       StatusPending,
		CreatorID:    creatorID,
		CreatorEmail: creatorEmail,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
