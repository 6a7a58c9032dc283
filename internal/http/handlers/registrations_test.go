package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/gatherdesk/internal/cache"
	"github.com/geocoder89/gatherdesk/internal/domain/event"
	"github.com/geocoder89/gatherdesk/internal/domain/registration"
	"github.com/geocoder89/gatherdesk/internal/engine"
	"github.com/geocoder89/gatherdesk/internal/http/handlers"
	"github.com/geocoder89/gatherdesk/internal/identity"
	"github.com/geocoder89/gatherdesk/internal/store"
)

type fakeRegistrar struct {
	registerErr error
	cancelErr   error

	gotEventID string
	gotUser    identity.Identity
}

func (f *fakeRegistrar) Register(ctx context.Context, eventID string, who identity.Identity) error {
	f.gotEventID = eventID
	f.gotUser = who
	return f.registerErr
}

func (f *fakeRegistrar) Cancel(ctx context.Context, eventID string, who identity.Identity) error {
	f.gotEventID = eventID
	f.gotUser = who
	return f.cancelErr
}

type fakeRegLister struct {
	regs []registration.Registration
	err  error
}

func (f *fakeRegLister) ListByUser(ctx context.Context, userID string) ([]registration.Registration, error) {
	return f.regs, f.err
}

func newRegHandler(reg *fakeRegistrar, lister *fakeRegLister) *handlers.RegistrationsHandler {
	if lister == nil {
		lister = &fakeRegLister{}
	}
	return handlers.NewRegistrationsHandler(reg, lister, cache.New(time.Minute))
}

func TestRegisterEndpointStatusMapping(t *testing.T) {
	tests := []struct {
		name           string
		engineErr      error
		wantStatusCode int
		wantCode       string
	}{
		{name: "success", wantStatusCode: http.StatusCreated},
		{name: "missing_event", engineErr: event.ErrNotFound, wantStatusCode: http.StatusNotFound, wantCode: "not_found"},
		{name: "already_registered", engineErr: registration.ErrAlreadyRegistered, wantStatusCode: http.StatusConflict, wantCode: "already_registered"},
		{name: "event_full", engineErr: registration.ErrEventFull, wantStatusCode: http.StatusConflict, wantCode: "event_full"},
		{name: "not_approved", engineErr: event.ErrNotApproved, wantStatusCode: http.StatusConflict, wantCode: "not_approved"},
		{name: "event_ended", engineErr: event.ErrEventEnded, wantStatusCode: http.StatusConflict, wantCode: "event_ended"},
		{
			name: "partial_write",
			engineErr: &engine.PartialWriteError{
				Op:      "register",
				EventID: "e1",
				UserID:  "alice",
				Err:     errors.New("store went away"),
			},
			wantStatusCode: http.StatusInternalServerError,
			wantCode:       "partial_write",
		},
		{name: "store_down", engineErr: store.ErrUnavailable, wantStatusCode: http.StatusServiceUnavailable, wantCode: "store_unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &fakeRegistrar{registerErr: tt.engineErr}
			h := newRegHandler(reg, nil)

			r := setupRouter(http.MethodPost, "/events/:id/register", viewer("alice"), h.Register)

			req := httptest.NewRequest(http.MethodPost, "/events/e1/register", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
			if reg.gotEventID != "e1" || reg.gotUser.ID != "alice" {
				t.Fatalf("engine called with event=%q user=%q", reg.gotEventID, reg.gotUser.ID)
			}
			if tt.wantCode == "" {
				return
			}

			var resp struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Error.Code != tt.wantCode {
				t.Fatalf("error code %q, want %q", resp.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestCancelEndpointStatusMapping(t *testing.T) {
	tests := []struct {
		name           string
		engineErr      error
		wantStatusCode int
	}{
		{name: "success", wantStatusCode: http.StatusNoContent},
		{name: "not_registered", engineErr: registration.ErrNotRegistered, wantStatusCode: http.StatusConflict},
		{name: "missing_event", engineErr: event.ErrNotFound, wantStatusCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newRegHandler(&fakeRegistrar{cancelErr: tt.engineErr}, nil)

			r := setupRouter(http.MethodDelete, "/events/:id/register", viewer("alice"), h.Cancel)

			req := httptest.NewRequest(http.MethodDelete, "/events/e1/register", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestListMineReturnsRecords(t *testing.T) {
	lister := &fakeRegLister{
		regs: []registration.Registration{
			registration.New("e1", "alice"),
			registration.New("e2", "alice"),
		},
	}
	h := newRegHandler(&fakeRegistrar{}, lister)

	r := setupRouter(http.MethodGet, "/me/registrations", viewer("alice"), h.ListMine)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me/registrations", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Registrations []registration.Registration `json:"registrations"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Registrations) != 2 {
		t.Fatalf("got %d registrations, want 2", len(resp.Registrations))
	}
}

func TestRegisterWithoutIdentity(t *testing.T) {
	h := newRegHandler(&fakeRegistrar{}, nil)

	// empty identity means the stub middleware sets nothing
	r := setupRouter(http.MethodPost, "/events/:id/register", identity.Identity{}, h.Register)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/events/e1/register", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", w.Code)
	}
}
