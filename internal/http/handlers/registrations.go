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
	"github.com/geocoder89/gatherdesk/internal/domain/registration"
	"github.com/geocoder89/gatherdesk/internal/engine"
	"github.com/geocoder89/gatherdesk/internal/http/middlewares"
	"github.com/geocoder89/gatherdesk/internal/identity"
	"github.com/geocoder89/gatherdesk/internal/store"
)

type Registrar interface {
	Register(ctx context.Context, eventID string, who identity.Identity) error
	Cancel(ctx context.Context, eventID string, who identity.Identity) error
}

type RegistrationLister interface {
	ListByUser(ctx context.Context, userID string) ([]registration.Registration, error)
}

type RegistrationsHandler struct {
	engine Registrar
	regs   RegistrationLister
	cache  *cache.Cache
}

func NewRegistrationsHandler(eng Registrar, regs RegistrationLister, c *cache.Cache) *RegistrationsHandler {
	return &RegistrationsHandler{engine: eng, regs: regs, cache: c}
}

func (h *RegistrationsHandler) Register(ctx *gin.Context) {
	id, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	if err := h.engine.Register(cctx, ctx.Param("id"), id); err != nil {
		h.respondEngineError(ctx, err)
		return
	}
	h.cache.Delete(eventsCacheKey)

	ctx.JSON(http.StatusCreated, gin.H{"message": "Registered"})
}

func (h *RegistrationsHandler) Cancel(ctx *gin.Context) {
	id, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	if err := h.engine.Cancel(cctx, ctx.Param("id"), id); err != nil {
		h.respondEngineError(ctx, err)
		return
	}
	h.cache.Delete(eventsCacheKey)

	ctx.Status(http.StatusNoContent)
}

// ListMine returns the caller's own registration records, newest first in
// whatever order the store hands them back.
func (h *RegistrationsHandler) ListMine(ctx *gin.Context) {
	id, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	regs, err := h.regs.ListByUser(cctx, id.ID)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			RespondUnavailable(ctx, "Registration store is unavailable, try again shortly")
			return
		}
		RespondInternal(ctx, "Could not load registrations")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"registrations": regs})
}

func (h *RegistrationsHandler) respondEngineError(ctx *gin.Context, err error) {
	var pw *engine.PartialWriteError

	switch {
	case errors.Is(err, event.ErrNotFound):
		RespondNotFound(ctx, "Event not found")
	case errors.Is(err, registration.ErrAlreadyRegistered):
		RespondConflict(ctx, "already_registered", "You are already registered for this event.")
	case errors.Is(err, registration.ErrNotRegistered):
		RespondConflict(ctx, "not_registered", "You are not registered for this event.")
	case errors.Is(err, registration.ErrEventFull):
		RespondConflict(ctx, "event_full", "This event has reached its capacity.")
	case errors.Is(err, event.ErrNotApproved):
		RespondConflict(ctx, "not_approved", "This event is not open for registration.")
	case errors.Is(err, event.ErrEventEnded):
		RespondConflict(ctx, "event_ended", "This event has already taken place.")
	case errors.As(err, &pw):
		// the first write landed, so the state is inconsistent rather
		// than unchanged; tell the client which side stuck
		RespondError(ctx, http.StatusInternalServerError, "partial_write",
			"The registration was only partially recorded.", gin.H{"op": pw.Op})
	case errors.Is(err, store.ErrUnavailable):
		RespondUnavailable(ctx, "Event store is unavailable, try again shortly")
	default:
		RespondInternal(ctx, "Could not complete the request")
	}
}
