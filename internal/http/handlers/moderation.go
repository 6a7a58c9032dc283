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
	"github.com/geocoder89/gatherdesk/internal/moderation"
	"github.com/geocoder89/gatherdesk/internal/store"
)

type Moderator interface {
	Approve(ctx context.Context, eventID, actorID string) error
	Reject(ctx context.Context, eventID, actorID string) error
}

// ModerationHandler exposes the admin approve/reject actions. There is no
// admin middleware in front of these routes on purpose: the state machine
// re-reads the actor's profile on every call, so a revoked admin is refused
// even with a still-valid token.
type ModerationHandler struct {
	sm    Moderator
	cache *cache.Cache
}

func NewModerationHandler(sm Moderator, c *cache.Cache) *ModerationHandler {
	return &ModerationHandler{sm: sm, cache: c}
}

func (h *ModerationHandler) Approve(ctx *gin.Context) {
	h.moderate(ctx, h.sm.Approve)
}

func (h *ModerationHandler) Reject(ctx *gin.Context) {
	h.moderate(ctx, h.sm.Reject)
}

func (h *ModerationHandler) moderate(ctx *gin.Context, do func(context.Context, string, string) error) {
	id, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := do(cctx, ctx.Param("id"), id.ID); err != nil {
		switch {
		case errors.Is(err, moderation.ErrUnauthorized):
			RespondForbidden(ctx, "not_admin", "Only admins can moderate events.")
		case errors.Is(err, event.ErrNotFound):
			RespondNotFound(ctx, "Event not found")
		case errors.Is(err, store.ErrUnavailable):
			RespondUnavailable(ctx, "Event store is unavailable, try again shortly")
		default:
			RespondInternal(ctx, "Could not complete the request")
		}
		return
	}
	h.cache.Delete(eventsCacheKey)

	ctx.Status(http.StatusNoContent)
}
