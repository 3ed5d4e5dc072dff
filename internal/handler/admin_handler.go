package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/cardmeet/internal/model"
)

// AdminEventServiceInterface は管理ハンドラーが必要とするイベントマスター操作。
type AdminEventServiceInterface interface {
	// ListEventMasters は全イベントマスターを返す。
	ListEventMasters(ctx context.Context) ([]model.EventMaster, error)
	// DeleteEventMaster はイベントマスターを削除する。参加履歴は削除しない。
	DeleteEventMaster(ctx context.Context, id string) error
}

// AdminUserServiceInterface は管理ハンドラーが必要とするユーザー操作。
type AdminUserServiceInterface interface {
	// ListUsers は全ユーザーを返す。
	ListUsers(ctx context.Context) ([]model.User, error)
}

// Bootstrapper はデータベーススキーマの初期化インターフェース。
// リレーショナルストアが未構成の場合はnilになる。
type Bootstrapper interface {
	Bootstrap() error
}

// AdminHandler は管理者向けAPIのHTTPハンドラー。
// ルーティング側でRequireAdminを通過したリクエストのみが到達する。
type AdminHandler struct {
	events       AdminEventServiceInterface
	users        AdminUserServiceInterface
	bootstrapper Bootstrapper
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(events AdminEventServiceInterface, users AdminUserServiceInterface, bootstrapper Bootstrapper) *AdminHandler {
	return &AdminHandler{
		events:       events,
		users:        users,
		bootstrapper: bootstrapper,
	}
}

// ListEventMasters はイベントマスター一覧を返す。
// GET /api/admin/event-masters
func (h *AdminHandler) ListEventMasters(w http.ResponseWriter, r *http.Request) {
	masters, err := h.events.ListEventMasters(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"event_masters": masters})
}

// DeleteEventMaster はイベントマスターを削除する。
// 参加履歴（participations）は外部キーを持たないため残り続ける。
// DELETE /api/admin/event-masters/:id
func (h *AdminHandler) DeleteEventMaster(w http.ResponseWriter, r *http.Request) {
	masterID := chi.URLParam(r, "id")

	if err := h.events.DeleteEventMaster(r.Context(), masterID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListUsers は全ユーザーの一覧を返す。
// GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"users": users})
}

// Bootstrap はデータベーススキーマを初期化する。
// 冪等なDDLのみを実行するため、何度実行しても安全。
// スキーマ初期化の失敗はフォールバックせず、そのままエラーを返す。
// POST /api/admin/bootstrap
func (h *AdminHandler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	if h.bootstrapper == nil {
		writeAPIErrorResponse(w, http.StatusConflict,
			model.NewBootstrapFailedError("データベースが構成されていません"))
		return
	}

	if err := h.bootstrapper.Bootstrap(); err != nil {
		slog.Error("schema bootstrap failed", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusInternalServerError,
			model.NewBootstrapFailedError(err.Error()))
		return
	}

	slog.Info("schema bootstrap completed")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
