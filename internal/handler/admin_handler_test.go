package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/cardmeet/internal/model"
)

// mockAdminEventService はAdminEventServiceInterfaceのモック実装。
type mockAdminEventService struct {
	listEventMastersFn  func(ctx context.Context) ([]model.EventMaster, error)
	deleteEventMasterFn func(ctx context.Context, id string) error
}

func (m *mockAdminEventService) ListEventMasters(ctx context.Context) ([]model.EventMaster, error) {
	return m.listEventMastersFn(ctx)
}

func (m *mockAdminEventService) DeleteEventMaster(ctx context.Context, id string) error {
	return m.deleteEventMasterFn(ctx, id)
}

// mockAdminUserService はAdminUserServiceInterfaceのモック実装。
type mockAdminUserService struct {
	listUsersFn func(ctx context.Context) ([]model.User, error)
}

func (m *mockAdminUserService) ListUsers(ctx context.Context) ([]model.User, error) {
	return m.listUsersFn(ctx)
}

// mockBootstrapper はBootstrapperのモック実装。
type mockBootstrapper struct {
	bootstrapFn func() error
}

func (m *mockBootstrapper) Bootstrap() error {
	return m.bootstrapFn()
}

func newAdminTestRouter(events AdminEventServiceInterface, users AdminUserServiceInterface, bootstrapper Bootstrapper) http.Handler {
	h := NewAdminHandler(events, users, bootstrapper)
	r := chi.NewRouter()
	r.Get("/api/admin/event-masters", h.ListEventMasters)
	r.Delete("/api/admin/event-masters/{id}", h.DeleteEventMaster)
	r.Get("/api/admin/users", h.ListUsers)
	r.Post("/api/admin/bootstrap", h.Bootstrap)
	return r
}

func TestListEventMasters(t *testing.T) {
	events := &mockAdminEventService{
		listEventMastersFn: func(ctx context.Context) ([]model.EventMaster, error) {
			return []model.EventMaster{
				{ID: "m1", Name: "カードラボ交流会", IsActive: true},
			}, nil
		},
	}
	router := newAdminTestRouter(events, &mockAdminUserService{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/event-masters", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		EventMasters []model.EventMaster `json:"event_masters"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.EventMasters) != 1 {
		t.Errorf("returned %d masters, want 1", len(body.EventMasters))
	}
}

func TestDeleteEventMaster(t *testing.T) {
	var deletedID string
	events := &mockAdminEventService{
		deleteEventMasterFn: func(ctx context.Context, id string) error {
			deletedID = id
			return nil
		},
	}
	router := newAdminTestRouter(events, &mockAdminUserService{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/admin/event-masters/m1", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if deletedID != "m1" {
		t.Errorf("deleted ID = %q, want m1", deletedID)
	}
}

func TestDeleteEventMaster_NotFound(t *testing.T) {
	events := &mockAdminEventService{
		deleteEventMasterFn: func(ctx context.Context, id string) error {
			return model.NewEventMasterNotFoundError(id)
		},
	}
	router := newAdminTestRouter(events, &mockAdminUserService{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/admin/event-masters/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAdminListUsers(t *testing.T) {
	users := &mockAdminUserService{
		listUsersFn: func(ctx context.Context) ([]model.User, error) {
			return []model.User{{ID: "x-user-1", Name: "テスト太郎"}}, nil
		},
	}
	router := newAdminTestRouter(&mockAdminEventService{}, users, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/users", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Users []model.User `json:"users"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Users) != 1 {
		t.Errorf("returned %d users, want 1", len(body.Users))
	}
}

func TestBootstrap(t *testing.T) {
	t.Run("成功", func(t *testing.T) {
		called := false
		bootstrapper := &mockBootstrapper{
			bootstrapFn: func() error {
				called = true
				return nil
			},
		}
		router := newAdminTestRouter(&mockAdminEventService{}, &mockAdminUserService{}, bootstrapper)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/bootstrap", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
		if !called {
			t.Error("Bootstrap() was not called")
		}
	})

	t.Run("データベース未構成なら409", func(t *testing.T) {
		router := newAdminTestRouter(&mockAdminEventService{}, &mockAdminUserService{}, nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/bootstrap", nil))

		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("初期化失敗は500", func(t *testing.T) {
		bootstrapper := &mockBootstrapper{
			bootstrapFn: func() error {
				return errors.New("connection refused")
			},
		}
		router := newAdminTestRouter(&mockAdminEventService{}, &mockAdminUserService{}, bootstrapper)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/bootstrap", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}

		var body apiErrorResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode error response: %v", err)
		}
		if body.Code != model.ErrCodeBootstrapFailed {
			t.Errorf("error code = %q, want %q", body.Code, model.ErrCodeBootstrapFailed)
		}
	})
}
