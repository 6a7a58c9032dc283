package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/gatherdesk/internal/cache"
	"github.com/geocoder89/gatherdesk/internal/domain/event"
	"github.com/geocoder89/gatherdesk/internal/http/handlers"
	"github.com/geocoder89/gatherdesk/internal/moderation"
)

type fakeModerator struct {
	approveErr error
	rejectErr  error

	gotEventID string
	gotActorID string
}

func (f *fakeModerator) Approve(ctx context.Context, eventID, actorID string) error {
	f.gotEventID = eventID
	f.gotActorID = actorID
	return f.approveErr
}

func (f *fakeModerator) Reject(ctx context.Context, eventID, actorID string) error {
	f.gotEventID = eventID
	f.gotActorID = actorID
	return f.rejectErr
}

func TestApproveEndpointStatusMapping(t *testing.T) {
	tests := []struct {
		name           string
		smErr          error
		wantStatusCode int
	}{
		{name: "success", wantStatusCode: http.StatusNoContent},
		{name: "not_admin", smErr: moderation.ErrUnauthorized, wantStatusCode: http.StatusForbidden},
		{name: "missing_event", smErr: event.ErrNotFound, wantStatusCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := &fakeModerator{approveErr: tt.smErr}
			h := handlers.NewModerationHandler(sm, cache.New(time.Minute))

			r := setupRouter(http.MethodPost, "/admin/events/:id/approve", viewer("root"), h.Approve)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/events/e1/approve", nil))

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
			if sm.gotEventID != "e1" || sm.gotActorID != "root" {
				t.Fatalf("state machine called with event=%q actor=%q", sm.gotEventID, sm.gotActorID)
			}
		})
	}
}

func TestRejectEndpointCallsStateMachine(t *testing.T) {
	sm := &fakeModerator{}
	h := handlers.NewModerationHandler(sm, cache.New(time.Minute))

	r := setupRouter(http.MethodPost, "/admin/events/:id/reject", viewer("root"), h.Reject)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/events/e1/reject", nil))

	if w.Code != http.StatusNoContent {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	if sm.gotEventID != "e1" || sm.gotActorID != "root" {
		t.Fatalf("state machine called with event=%q actor=%q", sm.gotEventID, sm.gotActorID)
	}
}
