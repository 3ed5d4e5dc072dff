package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func newTestRateLimiter(t *testing.T, config RateLimiterConfig) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(config)
	t.Cleanup(rl.Stop)
	return rl
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestGeneralMiddleware_AllowsWithinBurst(t *testing.T) {
	rl := newTestRateLimiter(t, RateLimiterConfig{
		GeneralRate:     rate.Limit(2),
		GeneralBurst:    3,
		JoinRate:        rate.Limit(1),
		JoinBurst:       1,
		CleanupInterval: time.Minute,
	})
	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		req.RemoteAddr = "10.0.0.1:51234"

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}
}

func TestGeneralMiddleware_RejectsOverBurst(t *testing.T) {
	rl := newTestRateLimiter(t, RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001), // 補充なしとみなせる低レート
		GeneralBurst:    2,
		JoinRate:        rate.Limit(1),
		JoinBurst:       1,
		CleanupInterval: time.Minute,
	})
	handler := rl.GeneralMiddleware()(okHandler())

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		req.RemoteAddr = "10.0.0.1:51234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	send()
	send()
	rec := send()

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 response should carry a Retry-After header")
	}
}

func TestGeneralMiddleware_KeysByClientIP(t *testing.T) {
	rl := newTestRateLimiter(t, RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001),
		GeneralBurst:    1,
		JoinRate:        rate.Limit(1),
		JoinBurst:       1,
		CleanupInterval: time.Minute,
	})
	handler := rl.GeneralMiddleware()(okHandler())

	send := func(remoteAddr string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := send("10.0.0.1:51234"); got != http.StatusOK {
		t.Fatalf("first client: status = %d, want 200", got)
	}
	if got := send("10.0.0.1:51235"); got != http.StatusTooManyRequests {
		t.Errorf("same IP, different port: status = %d, want 429", got)
	}
	// 別IPは別枠
	if got := send("10.0.0.2:51234"); got != http.StatusOK {
		t.Errorf("different IP: status = %d, want 200", got)
	}

	if count := rl.GeneralLimiterCount(); count != 2 {
		t.Errorf("GeneralLimiterCount() = %d, want 2", count)
	}
}

func TestGeneralMiddleware_KeysByUserWhenAuthenticated(t *testing.T) {
	rl := newTestRateLimiter(t, RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001),
		GeneralBurst:    1,
		JoinRate:        rate.Limit(1),
		JoinBurst:       1,
		CleanupInterval: time.Minute,
	})
	handler := rl.GeneralMiddleware()(okHandler())

	send := func(userXID, remoteAddr string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		req.RemoteAddr = remoteAddr
		session := validSession(false)
		session.UserXID = userXID
		req = req.WithContext(ContextWithSession(req.Context(), session))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	// 同一ユーザーはIPが変わっても同じ枠を消費する
	if got := send("x-user-1", "10.0.0.1:51234"); got != http.StatusOK {
		t.Fatalf("first request: status = %d, want 200", got)
	}
	if got := send("x-user-1", "10.0.0.9:40000"); got != http.StatusTooManyRequests {
		t.Errorf("same user from new IP: status = %d, want 429", got)
	}
}

func TestJoinMiddleware_RequiresSession(t *testing.T) {
	rl := newTestRateLimiter(t, DefaultRateLimiterConfig())
	handler := rl.JoinMiddleware()(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/events/e1/join", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestJoinMiddleware_IndependentOfGeneralLimit(t *testing.T) {
	rl := newTestRateLimiter(t, RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001),
		GeneralBurst:    1,
		JoinRate:        rate.Limit(0.001),
		JoinBurst:       2,
		CleanupInterval: time.Minute,
	})

	joinHandler := rl.JoinMiddleware()(okHandler())

	sendJoin := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/events/e1/join", nil)
		req = req.WithContext(ContextWithSession(req.Context(), validSession(false)))
		rec := httptest.NewRecorder()
		joinHandler.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := sendJoin(); got != http.StatusOK {
		t.Fatalf("first join: status = %d, want 200", got)
	}
	if got := sendJoin(); got != http.StatusOK {
		t.Fatalf("second join: status = %d, want 200", got)
	}
	if got := sendJoin(); got != http.StatusTooManyRequests {
		t.Errorf("third join: status = %d, want 429", got)
	}

	if count := rl.JoinLimiterCount(); count != 1 {
		t.Errorf("JoinLimiterCount() = %d, want 1", count)
	}
}
