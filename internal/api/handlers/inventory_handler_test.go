package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/audit-service/internal/application"
	"github.com/wms-platform/audit-service/internal/domain"
	"github.com/wms-platform/audit-service/internal/realtime"
	"github.com/wms-platform/audit-service/pkg/errors"
	testutil "github.com/wms-platform/audit-service/pkg/testing"
)

func TestInventoryHandler_SubmitEntry(t *testing.T) {
	router, svc := newTestRouter(nil)
	staff := svc.caller.as(domain.RoleStaff)

	var got application.SubmitEntryCommand
	svc.audit.submitFn = func(_ context.Context, cmd application.SubmitEntryCommand) (*application.SubmitEntryResult, error) {
		got = cmd
		return &application.SubmitEntryResult{Entry: application.EntryDTO{ID: "e1", Status: "pending-client"}}, nil
	}

	body := `{"skuId":"1001","location":"Noida","counts":{"picking":3,"bulk":4},"odin":{"minQuantity":10,"blocked":2},"notes":"shelf"}`
	rec := performJSON(router, http.MethodPost, "/api/inventory", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, staff.ID.Hex(), got.StaffID)
	assert.Equal(t, domain.EntryKindSKU, got.Kind)
	assert.Equal(t, domain.Counts{Picking: 3, Bulk: 4}, got.Counts)
	require.NotNil(t, got.Odin)
	assert.Equal(t, domain.Thresholds{MinQuantity: 10, BlockedQuantity: 2}, *got.Odin)

	t.Run("odin omitted", func(t *testing.T) {
		rec := performJSON(router, http.MethodPost, "/api/inventory", `{"skuId":"1001","location":"Noida","counts":{"picking":3}}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Nil(t, got.Odin)
	})

	t.Run("bin entry", func(t *testing.T) {
		rec := performJSON(router, http.MethodPost, "/api/inventory", `{"kind":"bin","binId":"B-7","location":"Noida","bookQuantity":5,"actualQuantity":4}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, domain.EntryKindBin, got.Kind)
		assert.Equal(t, 4.0, got.ActualQuantity)
	})

	tests := []struct {
		name string
		body string
	}{
		{name: "missing location", body: `{"skuId":"1001","counts":{"picking":1}}`},
		{name: "negative count", body: `{"skuId":"1001","location":"Noida","counts":{"picking":-1}}`},
		{name: "unknown kind", body: `{"kind":"pallet","location":"Noida"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := performJSON(router, http.MethodPost, "/api/inventory", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	t.Run("no approver", func(t *testing.T) {
		svc.audit.submitFn = func(context.Context, application.SubmitEntryCommand) (*application.SubmitEntryResult, error) {
			return nil, errors.ErrUnprocessable("no client serves this location")
		}
		rec := performJSON(router, http.MethodPost, "/api/inventory", body)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestInventoryHandler_RoleGuards(t *testing.T) {
	router, svc := newTestRouter(realtime.NewHub(nil, nil))

	tests := []struct {
		name   string
		role   domain.Role
		method string
		path   string
	}{
		{name: "client cannot submit", role: domain.RoleClient, method: http.MethodPost, path: "/api/inventory"},
		{name: "staff cannot respond", role: domain.RoleStaff, method: http.MethodPost, path: "/api/inventory/abc/respond"},
		{name: "staff cannot list pending", role: domain.RoleStaff, method: http.MethodGet, path: "/api/inventory/pending"},
		{name: "client cannot look up", role: domain.RoleClient, method: http.MethodGet, path: "/api/inventory/lookup/1001"},
		{name: "admin cannot stream", role: domain.RoleAdmin, method: http.MethodGet, path: "/api/inventory/stream"},
		{name: "client cannot read staff history", role: domain.RoleClient, method: http.MethodGet, path: "/api/inventory/staff-history"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc.caller.as(tt.role)
			rec := performJSON(router, tt.method, tt.path, `{}`)
			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}

	svc.caller.principal = nil
	rec := performJSON(router, http.MethodGet, "/api/inventory/pending", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInventoryHandler_Respond(t *testing.T) {
	router, svc := newTestRouter(nil)
	client := svc.caller.as(domain.RoleClient)

	svc.audit.respondFn = func(_ context.Context, cmd application.RespondCommand) (*application.EntryDTO, error) {
		assert.Equal(t, client.ID.Hex(), cmd.ActorID)
		switch cmd.EntryID {
		case "done":
			return nil, errors.ErrConflict("entry is no longer pending")
		case "other":
			return nil, errors.ErrForbidden("not the assigned approver")
		}
		return &application.EntryDTO{ID: cmd.EntryID, Status: "client-rejected"}, nil
	}

	rec := performJSON(router, http.MethodPost, "/api/inventory/e1/respond", `{"action":"rejected","comment":"recount"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "client-rejected")

	rec = performJSON(router, http.MethodPost, "/api/inventory/done/respond", `{"action":"approved"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = performJSON(router, http.MethodPost, "/api/inventory/other/respond", `{"action":"approved"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = performJSON(router, http.MethodPost, "/api/inventory/e1/respond", `{"action":"maybe"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "approved, rejected")
}

func TestInventoryHandler_Queries(t *testing.T) {
	router, svc := newTestRouter(nil)

	admin := svc.caller.as(domain.RoleAdmin)
	svc.audit.listPendingFn = func(_ context.Context, actor application.Actor) ([]application.EntryDTO, error) {
		assert.Equal(t, application.Actor{ID: admin.ID.Hex(), Role: domain.RoleAdmin}, actor)
		return []application.EntryDTO{{ID: "e1"}}, nil
	}
	rec := performJSON(router, http.MethodGet, "/api/inventory/pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"e1"`)

	svc.audit.lookupFn = func(_ context.Context, raw string) (*application.ReferenceItemDTO, error) {
		if raw != "abc-9" {
			return nil, errors.ErrNotFound("reference item")
		}
		return &application.ReferenceItemDTO{SkuID: "AbC-9", MinQuantity: 7}, nil
	}
	rec = performJSON(router, http.MethodGet, "/api/inventory/lookup/abc-9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"skuId":"AbC-9"`)

	rec = performJSON(router, http.MethodGet, "/api/inventory/lookup/zzz", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	svc.audit.clientsFn = func(_ context.Context, location string) ([]application.IdentityDTO, error) {
		assert.Equal(t, "Noida WH", location)
		return []application.IdentityDTO{}, nil
	}
	rec = performJSON(router, http.MethodGet, "/api/inventory/clients-by-location?location=Noida%20WH", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	staff := svc.caller.as(domain.RoleStaff)
	svc.audit.historyFn = func(_ context.Context, id string) ([]application.EntryDTO, error) {
		assert.Equal(t, staff.ID.Hex(), id)
		return []application.EntryDTO{{ID: "e2"}}, nil
	}
	rec = performJSON(router, http.MethodGet, "/api/inventory/staff-history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"e2"`)
}

type syncRecorder struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func (r *syncRecorder) Write(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(b)
}

func (r *syncRecorder) WriteString(s string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.WriteString(s)
}

func (r *syncRecorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ResponseRecorder.Flush()
}

func (r *syncRecorder) body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Body.String()
}

func TestInventoryHandler_Stream(t *testing.T) {
	hub := realtime.NewHub(nil, nil)
	router, svc := newTestRouter(hub)
	client := svc.caller.as(domain.RoleClient)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/inventory/stream", nil).WithContext(ctx)
	rec := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		defer close(done)
		router.ServeHTTP(rec, req)
	}()

	testutil.AssertEventually(t, func() bool { return hub.Subscribers(client.ID.Hex()) == 1 }, time.Second, "stream subscribed")

	hub.Broadcast(client.ID.Hex(), application.EventNewDiscrepancy, application.EntryDTO{ID: "e1", Status: "pending-client"})
	hub.Broadcast("someone-else", application.EventNewDiscrepancy, application.EntryDTO{ID: "e2"})

	testutil.AssertEventually(t, func() bool {
		return strings.Contains(rec.body(), "event:"+application.EventNewDiscrepancy)
	}, time.Second, "event delivered")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not end after the client disconnected")
	}

	body := rec.body()
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, body, "event:ready")
	assert.Contains(t, body, `"id":"e1"`)
	assert.NotContains(t, body, `"id":"e2"`)
	assert.Zero(t, hub.Subscribers(client.ID.Hex()))
}
