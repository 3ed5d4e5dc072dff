package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/cardmeet/internal/middleware"
	"github.com/hitoshi/cardmeet/internal/model"
)

// ParticipantServiceInterface は参加管理ハンドラーが必要とするサービスインターフェース。
type ParticipantServiceInterface interface {
	// JoinEvent は参加表明を登録する。重複の場合はfalseを返す。
	JoinEvent(ctx context.Context, eventID string, user *model.User) (bool, error)
	// LeaveEvent は参加表明を取り消す。未参加の場合はfalseを返す。
	LeaveEvent(ctx context.Context, eventID, userXID string) (bool, error)
	// IsUserJoined はユーザーがイベントに参加表明済みかを返す。
	IsUserJoined(ctx context.Context, eventID, userXID string) (bool, error)
	// ListByEvent はイベントの参加者一覧を返す。
	ListByEvent(ctx context.Context, eventID string) ([]model.Participant, error)
	// ListByUser はユーザーの参加表明一覧を返す。
	ListByUser(ctx context.Context, userXID string) ([]model.Participant, error)
}

// UserResolver は参加表明時のユーザー解決に必要なインターフェース。
// user.Serviceの部分集合として定義する。
type UserResolver interface {
	GetUser(ctx context.Context, xid string) (*model.User, error)
}

// ParticipantHandler は参加管理のHTTPハンドラー。
type ParticipantHandler struct {
	service ParticipantServiceInterface
	users   UserResolver
}

// NewParticipantHandler はParticipantHandlerを生成する。
func NewParticipantHandler(service ParticipantServiceInterface, users UserResolver) *ParticipantHandler {
	return &ParticipantHandler{
		service: service,
		users:   users,
	}
}

// Join は参加表明を登録する。
// 参加者にはログイン時点の表示名とアバターがスナップショットされる。
// POST /api/events/:id/join → 201 Created | 409 Conflict（重複）
func (h *ParticipantHandler) Join(w http.ResponseWriter, r *http.Request) {
	userXID, err := middleware.UserXIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	eventID := chi.URLParam(r, "id")

	u, err := h.users.GetUser(r.Context(), userXID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if u == nil {
		// セッションは有効だがユーザーレコードが無い（縮退からの復帰直後など）
		u = &model.User{ID: userXID, IsActive: true}
	}

	created, err := h.service.JoinEvent(r.Context(), eventID, u)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !created {
		writeAPIErrorResponse(w, http.StatusConflict, model.NewAlreadyJoinedError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"joined": true})
}

// Leave は参加表明を取り消す。
// DELETE /api/events/:id/join
func (h *ParticipantHandler) Leave(w http.ResponseWriter, r *http.Request) {
	userXID, err := middleware.UserXIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	eventID := chi.URLParam(r, "id")

	removed, err := h.service.LeaveEvent(r.Context(), eventID, userXID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !removed {
		writeAPIErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     model.ErrCodeNotJoined,
			Message:  "このイベントには参加表明していません。",
			Category: "event",
			Action:   "参加状況を確認してください。",
		})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Joined はユーザーの参加状況を返す。
// GET /api/events/:id/joined
func (h *ParticipantHandler) Joined(w http.ResponseWriter, r *http.Request) {
	userXID, err := middleware.UserXIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	eventID := chi.URLParam(r, "id")

	joined, err := h.service.IsUserJoined(r.Context(), eventID, userXID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"joined": joined})
}

// ListByEvent はイベントの参加者一覧を返す。未ログインでも閲覧できる。
// GET /api/events/:id/participants
func (h *ParticipantHandler) ListByEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	participants, err := h.service.ListByEvent(r.Context(), eventID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"participants": participants})
}

// ListMine はログインユーザー自身の参加表明一覧を返す。
// GET /api/users/me/participants
func (h *ParticipantHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userXID, err := middleware.UserXIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	participants, err := h.service.ListByUser(r.Context(), userXID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"participants": participants})
}
