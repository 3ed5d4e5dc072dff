// Package auth はOAuth認証フロー、管理者認証、セッション管理を提供する。
// コアの永続化層はここから安定したユーザーIDと表示情報を受け取るだけで、
// 資格情報の検証は外部IdPに委譲する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/cardmeet/internal/model"
	"github.com/hitoshi/cardmeet/internal/user"
	"golang.org/x/crypto/bcrypt"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Name           string
	Username       string
	AvatarURL      string
	Provider       string // "google" 等
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// 将来的に複数IdP（Google, X等）に対応するための抽象化。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// UserDirectory はログイン時のupsertと現在ユーザーの解決に必要なインターフェース。
// user.Serviceの部分集合として定義する。
type UserDirectory interface {
	UpsertFromLogin(ctx context.Context, profile user.LoginProfile) *model.User
	GetUser(ctx context.Context, xid string) (*model.User, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge     int    // セッション有効期間（秒）
	AdminPasswordHash string // 管理者パスワードのbcryptハッシュ
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth    OAuthProvider
	users    UserDirectory
	sessions *SessionStore
	config   ServiceConfig
}

// NewService はServiceを生成する。
func NewService(oauth OAuthProvider, users UserDirectory, sessions *SessionStore, config ServiceConfig) *Service {
	return &Service{
		oauth:    oauth,
		users:    users,
		sessions: sessions,
		config:   config,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// ログインのたびにユーザーをupsertする（初回は作成、以降は表示情報と
// last_seenの更新）。upsertはベストエフォートであり、ストレージが
// 縮退していてもログインは成功する。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	u := s.users.UpsertFromLogin(ctx, user.LoginProfile{
		ID:        userInfo.ProviderUserID,
		Name:      userInfo.Name,
		Username:  userInfo.Username,
		AvatarURL: userInfo.AvatarURL,
	})

	session := s.sessions.Create(u.ID, false, time.Duration(s.config.SessionMaxAge)*time.Second)

	slog.Info("user logged in",
		slog.String("user_x_id", u.ID),
		slog.String("provider", userInfo.Provider),
	)
	return session, nil
}

// AdminLogin は管理者パスワードを検証し、管理者セッションを発行する。
// bcrypt.CompareHashAndPasswordは内部で定数時間比較を行う。
func (s *Service) AdminLogin(ctx context.Context, password string) (*model.Session, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(s.config.AdminPasswordHash), []byte(password)); err != nil {
		return nil, model.NewAdminAuthFailedError()
	}

	session := s.sessions.Create("admin", true, time.Duration(s.config.SessionMaxAge)*time.Second)

	slog.Info("admin logged in")
	return session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	s.sessions.Delete(sessionID)
	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentUser はセッションIDから現在のログインユーザーを解決する。
// 管理者セッションにはユーザーレコードが存在しないため、ユーザーはnilになる。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, *model.Session, error) {
	session := s.sessions.Find(sessionID)
	if session == nil {
		return nil, nil, model.NewUnauthorizedError()
	}
	if session.IsAdmin {
		return nil, session, nil
	}

	u, err := s.users.GetUser(ctx, session.UserXID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve current user: %w", err)
	}
	if u == nil {
		// ストレージ縮退中にupsertが失われたケース。セッション情報から復元する。
		u = &model.User{ID: session.UserXID, IsActive: true}
	}
	return u, session, nil
}

// FindSession はセッションIDからセッションを返す。
// 期限切れ・未登録の場合はnilを返す。
func (s *Service) FindSession(ctx context.Context, sessionID string) *model.Session {
	return s.sessions.Find(sessionID)
}
