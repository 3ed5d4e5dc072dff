package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/cardmeet/internal/model"
)

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	getLoginURLFn    func(state string) string
	handleCallbackFn func(ctx context.Context, code string) (*model.Session, error)
	adminLoginFn     func(ctx context.Context, password string) (*model.Session, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	getCurrentUserFn func(ctx context.Context, sessionID string) (*model.User, *model.Session, error)
}

func (m *mockAuthService) GetLoginURL(state string) string {
	return m.getLoginURLFn(state)
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	return m.handleCallbackFn(ctx, code)
}

func (m *mockAuthService) AdminLogin(ctx context.Context, password string) (*model.Session, error) {
	return m.adminLoginFn(ctx, password)
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	return m.logoutFn(ctx, sessionID)
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, *model.Session, error) {
	return m.getCurrentUserFn(ctx, sessionID)
}

func testAuthConfig() AuthHandlerConfig {
	return AuthHandlerConfig{
		BaseURL:       "https://app.example.com",
		SessionMaxAge: 3600,
	}
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLogin_RedirectsWithStateCookie(t *testing.T) {
	service := &mockAuthService{
		getLoginURLFn: func(state string) string {
			return "https://accounts.example.com/auth?state=" + state
		},
	}
	h := NewAuthHandler(service, testAuthConfig())

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodGet, "/auth/google/login", nil))

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}

	stateCookie := findCookie(rec, oauthStateCookie)
	if stateCookie == nil || stateCookie.Value == "" {
		t.Fatal("state cookie should be set")
	}
	if !stateCookie.HttpOnly {
		t.Error("state cookie should be HTTP only")
	}

	// リダイレクト先URLにCookieと同じstateが含まれること
	location := rec.Header().Get("Location")
	if !strings.Contains(location, "state="+stateCookie.Value) {
		t.Errorf("redirect location %q should carry state %q", location, stateCookie.Value)
	}
}

func TestCallback_IssuesSessionAndRedirects(t *testing.T) {
	service := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.Session, error) {
			if code != "auth-code" {
				t.Errorf("code = %q, want auth-code", code)
			}
			return &model.Session{ID: "sess-1", UserXID: "x-user-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	h := NewAuthHandler(service, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=auth-code&state=abc123", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "abc123"})

	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}
	if location := rec.Header().Get("Location"); location != "https://app.example.com" {
		t.Errorf("redirect location = %q", location)
	}

	sessionCookie := findCookie(rec, sessionCookieName)
	if sessionCookie == nil || sessionCookie.Value != "sess-1" {
		t.Errorf("session cookie = %+v, want value sess-1", sessionCookie)
	}
	if sessionCookie != nil && !sessionCookie.HttpOnly {
		t.Error("session cookie should be HTTP only")
	}
}

func TestCallback_StateMismatch(t *testing.T) {
	service := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.Session, error) {
			t.Fatal("HandleCallback should not be called on state mismatch")
			return nil, nil
		},
	}
	h := NewAuthHandler(service, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=auth-code&state=tampered", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "abc123"})

	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCallback_MissingCode(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=abc123", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "abc123"})

	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAdminLoginHandler(t *testing.T) {
	service := &mockAuthService{
		adminLoginFn: func(ctx context.Context, password string) (*model.Session, error) {
			if password != "correct horse" {
				return nil, model.NewAdminAuthFailedError()
			}
			return &model.Session{ID: "admin-sess", UserXID: "admin", IsAdmin: true, ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	h := NewAuthHandler(service, testAuthConfig())

	t.Run("正しいパスワード", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/admin/login", strings.NewReader(`{"password":"correct horse"}`))
		rec := httptest.NewRecorder()
		h.AdminLogin(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if c := findCookie(rec, sessionCookieName); c == nil || c.Value != "admin-sess" {
			t.Errorf("session cookie = %+v", c)
		}
	})

	t.Run("誤ったパスワードは401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/admin/login", strings.NewReader(`{"password":"wrong"}`))
		rec := httptest.NewRecorder()
		h.AdminLogin(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("空パスワードは400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/admin/login", strings.NewReader(`{"password":""}`))
		rec := httptest.NewRecorder()
		h.AdminLogin(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestLogout_ClearsCookie(t *testing.T) {
	var loggedOut string
	service := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			loggedOut = sessionID
			return nil
		},
	}
	h := NewAuthHandler(service, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess-1"})

	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if loggedOut != "sess-1" {
		t.Errorf("logged out session = %q, want sess-1", loggedOut)
	}

	cleared := findCookie(rec, sessionCookieName)
	if cleared == nil || cleared.MaxAge != -1 {
		t.Errorf("session cookie should be cleared, got %+v", cleared)
	}
}

func TestMe(t *testing.T) {
	t.Run("未ログインは401", func(t *testing.T) {
		h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

		rec := httptest.NewRecorder()
		h.Me(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("一般ユーザー", func(t *testing.T) {
		service := &mockAuthService{
			getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.User, *model.Session, error) {
				return &model.User{ID: "x-user-1", Name: "テスト太郎", Username: "taro"},
					&model.Session{ID: sessionID, UserXID: "x-user-1"}, nil
			},
		}
		h := NewAuthHandler(service, testAuthConfig())

		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess-1"})

		rec := httptest.NewRecorder()
		h.Me(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var body map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body["id"] != "x-user-1" || body["is_admin"] != false {
			t.Errorf("body = %+v", body)
		}
	})

	t.Run("管理者セッションはユーザーレコードなし", func(t *testing.T) {
		service := &mockAuthService{
			getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.User, *model.Session, error) {
				return nil, &model.Session{ID: sessionID, UserXID: "admin", IsAdmin: true}, nil
			},
		}
		h := NewAuthHandler(service, testAuthConfig())

		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "admin-sess"})

		rec := httptest.NewRecorder()
		h.Me(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var body map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body["is_admin"] != true {
			t.Errorf("body = %+v, want is_admin true", body)
		}
	})

	t.Run("期限切れセッションは401", func(t *testing.T) {
		service := &mockAuthService{
			getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.User, *model.Session, error) {
				return nil, nil, model.NewUnauthorizedError()
			},
		}
		h := NewAuthHandler(service, testAuthConfig())

		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "stale"})

		rec := httptest.NewRecorder()
		h.Me(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}
