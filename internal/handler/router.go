package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/cardmeet/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	StatusRecorder    middleware.HTTPStatusRecorder

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// イベント
	EventService EventServiceInterface

	// 参加管理
	ParticipantService ParticipantServiceInterface
	UserResolver       UserResolver

	// 管理者
	AdminEventService AdminEventServiceInterface
	AdminUserService  AdminUserServiceInterface
	Bootstrapper      Bootstrapper

	// 監視
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Session → RateLimit(General)
//
// セッションミドルウェアは未ログインを拒否しない。認証が必要なルートにだけ
// RequireLogin / RequireAdminを重ねる。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.StatusRecorder))
	r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	eventHandler := NewEventHandler(deps.EventService)
	participantHandler := NewParticipantHandler(deps.ParticipantService, deps.UserResolver)
	adminHandler := NewAdminHandler(deps.AdminEventService, deps.AdminUserService, deps.Bootstrapper)

	// --- 監視用ルート（レート制限の外） ---

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 認証ルート（OAuthフロー・管理者ログイン） ---

	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Post("/admin/login", authHandler.AdminLogin)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- APIルート ---
	// ミドルウェアスタック: RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// イベント
		r.Route("/api/events", func(r chi.Router) {
			// 閲覧は未ログインでも可能
			r.Get("/", eventHandler.ListEvents)

			// 作成はログイン済みユーザーなら可。更新・削除は管理者のみ。
			r.With(middleware.RequireLogin()).Post("/", eventHandler.CreateEvent)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", eventHandler.GetEvent)
				r.With(middleware.RequireAdmin()).Put("/", eventHandler.UpdateEvent)
				r.With(middleware.RequireAdmin()).Delete("/", eventHandler.DeleteEvent)

				// 参加者一覧は未ログインでも閲覧可能
				r.Get("/participants", participantHandler.ListByEvent)

				// 参加管理はログイン必須。参加表明には専用レート制限を追加。
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireLogin())

					r.With(deps.RateLimiter.JoinMiddleware()).Post("/join", participantHandler.Join)
					r.Delete("/join", participantHandler.Leave)
					r.Get("/joined", participantHandler.Joined)
				})
			})
		})

		// ログインユーザー自身の参加表明一覧
		r.With(middleware.RequireLogin()).Get("/api/users/me/participants", participantHandler.ListMine)

		// 管理者向けAPI
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin())

			r.Get("/event-masters", adminHandler.ListEventMasters)
			r.Delete("/event-masters/{id}", adminHandler.DeleteEventMaster)
			r.Get("/users", adminHandler.ListUsers)
			r.Post("/bootstrap", adminHandler.Bootstrap)
		})
	})

	return r
}
