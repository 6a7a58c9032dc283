package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/gatherdesk/internal/cache"
	"github.com/geocoder89/gatherdesk/internal/config"
	"github.com/geocoder89/gatherdesk/internal/domain/event"
	"github.com/geocoder89/gatherdesk/internal/http/middlewares"
	"github.com/geocoder89/gatherdesk/internal/store"
	"github.com/geocoder89/gatherdesk/internal/view"
)

type EventStore interface {
	Create(ctx context.Context, req event.CreateEventRequest, creatorID, creatorEmail string) (event.Event, error)
	GetByID(ctx context.Context, id string) (event.Event, error)
	List(ctx context.Context) ([]event.Event, error)
	Update(ctx context.Context, id string, req event.UpdateEventRequest) (event.Event, error)
	Delete(ctx context.Context, id string) error
}

// AdminChecker answers the store-authoritative admin question. The JWT's
// isAdmin claim is only a UI hint; destructive paths re-read the profile.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

const eventsCacheKey = "events:list"

type EventsHandler struct {
	events EventStore
	admins AdminChecker
	cache  *cache.Cache
	now    func() time.Time
}

func NewEventsHandler(events EventStore, admins AdminChecker, c *cache.Cache) *EventsHandler {
	return &EventsHandler{events: events, admins: admins, cache: c, now: time.Now}
}

// Create accepts the event and parks it in the pending queue; it stays
// invisible on the public tab until an admin approves it.
func (h *EventsHandler) Create(ctx *gin.Context) {
	id, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Missing identity")
		return
	}

	var req event.CreateEventRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	ev, err := h.events.Create(cctx, req, id.ID, id.Email)
	if err != nil {
		h.respondStoreError(ctx, err)
		return
	}
	h.cache.Delete(eventsCacheKey)

	ctx.JSON(http.StatusCreated, ev)
}

func (h *EventsHandler) Get(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	ev, err := h.events.GetByID(cctx, ctx.Param("id"))
	if err != nil {
		h.respondStoreError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, ev)
}

// List serves every tab from one shared raw list; the per-viewer projection
// is cheap, so only the store read is cached.
func (h *EventsHandler) List(ctx *gin.Context) {
	id, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Missing identity")
		return
	}

	tab := view.Tab(ctx.DefaultQuery("tab", string(view.TabAll)))
	if !tab.IsValid() {
		RespondBadRequest(ctx, "Unknown tab", gin.H{"tab": string(tab)})
		return
	}

	filters := view.Filters{
		Date:     ctx.Query("date"),
		Location: ctx.Query("location"),
	}

	// the pending queue reads the admin flag from the stored profile, same
	// as moderation, so a revoked admin loses it before the token expires
	if tab == view.TabAdminPending {
		cctx, cancel := config.WithTimeout(2 * time.Second)
		isAdmin, err := h.admins.IsAdmin(cctx, id.ID)
		cancel()
		if err != nil {
			RespondInternal(ctx, "Could not verify permissions")
			return
		}
		id.IsAdmin = isAdmin
	}

	events, err := h.listEvents(ctx)
	if err != nil {
		h.respondStoreError(ctx, err)
		return
	}

	items := view.Project(events, id, tab, filters, h.now())
	ctx.JSON(http.StatusOK, gin.H{"events": items})
}

func (h *EventsHandler) listEvents(ctx *gin.Context) ([]event.Event, error) {
	if cached, ok := h.cache.Get(eventsCacheKey); ok {
		if events, ok := cached.([]event.Event); ok {
			return events, nil
		}
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	events, err := h.events.List(cctx)
	if err != nil {
		return nil, err
	}
	h.cache.Set(eventsCacheKey, events)
	return events, nil
}

// Update lets only the creator edit the descriptive fields. Status and
// attendees never travel through this path.
func (h *EventsHandler) Update(ctx *gin.Context) {
	id, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Missing identity")
		return
	}

	var req event.UpdateEventRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	eventID := ctx.Param("id")

	ev, err := h.events.GetByID(cctx, eventID)
	if err != nil {
		h.respondStoreError(ctx, err)
		return
	}
	if ev.CreatorID != id.ID {
		RespondForbidden(ctx, "not_creator", "Only the creator can edit this event.")
		return
	}

	updated, err := h.events.Update(cctx, eventID, req)
	if err != nil {
		h.respondStoreError(ctx, err)
		return
	}
	h.cache.Delete(eventsCacheKey)

	ctx.JSON(http.StatusOK, updated)
}

// Delete is allowed for the creator or an admin. Admin status comes from the
// profile record, not from the token.
func (h *EventsHandler) Delete(ctx *gin.Context) {
	id, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	eventID := ctx.Param("id")

	ev, err := h.events.GetByID(cctx, eventID)
	if err != nil {
		h.respondStoreError(ctx, err)
		return
	}

	if ev.CreatorID != id.ID {
		isAdmin, err := h.admins.IsAdmin(cctx, id.ID)
		if err != nil {
			RespondInternal(ctx, "Could not verify permissions")
			return
		}
		if !isAdmin {
			RespondForbidden(ctx, "not_allowed", "Only the creator or an admin can delete this event.")
			return
		}
	}

	if err := h.events.Delete(cctx, eventID); err != nil {
		h.respondStoreError(ctx, err)
		return
	}
	h.cache.Delete(eventsCacheKey)

	ctx.Status(http.StatusNoContent)
}

func (h *EventsHandler) respondStoreError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, event.ErrNotFound):
		RespondNotFound(ctx, "Event not found")
	case errors.Is(err, event.ErrCapacityBelowAttendance):
		RespondConflict(ctx, "capacity_below_attendance",
			"Capacity cannot be lower than the current number of attendees.")
	case errors.Is(err, store.ErrUnavailable):
		RespondUnavailable(ctx, "Event store is unavailable, try again shortly")
	default:
		RespondInternal(ctx, "Could not complete the request")
	}
}
