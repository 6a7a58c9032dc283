package handlers

import (
	"context"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/gatherdesk/internal/config"
	"github.com/geocoder89/gatherdesk/internal/domain/event"
	"github.com/geocoder89/gatherdesk/internal/http/middlewares"
	"github.com/geocoder89/gatherdesk/internal/store"
	"github.com/geocoder89/gatherdesk/internal/view"
)

type EventWatcher interface {
	Watch(ctx context.Context) (store.Subscription, error)
	DecodeSnapshot(snap store.Snapshot) []event.Event
}

// WatchHandler streams live event list projections over SSE. Each committed
// change in the event collection yields one projected snapshot for the
// viewer's tab, so the client never polls.
type WatchHandler struct {
	events EventWatcher
	admins AdminChecker
	now    func() time.Time
}

func NewWatchHandler(events EventWatcher, admins AdminChecker) *WatchHandler {
	return &WatchHandler{events: events, admins: admins, now: time.Now}
}

func (h *WatchHandler) Stream(ctx *gin.Context) {
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

	// pending-queue streams gate on the stored profile, not the claim
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

	sub, err := h.events.Watch(ctx.Request.Context())
	if err != nil {
		RespondUnavailable(ctx, "Event store is unavailable, try again shortly")
		return
	}
	defer sub.Unsubscribe()

	ctx.Writer.Header().Set("Cache-Control", "no-cache")
	ctx.Writer.Header().Set("X-Accel-Buffering", "no")

	clientGone := ctx.Request.Context().Done()

	ctx.Stream(func(w io.Writer) bool {
		select {
		case snap, open := <-sub.Snapshots():
			if !open {
				return false
			}
			events := h.events.DecodeSnapshot(snap)
			items := view.Project(events, id, tab, filters, h.now())
			ctx.SSEvent("events", gin.H{"events": items})
			return true
		case <-clientGone:
			return false
		}
	})
}
