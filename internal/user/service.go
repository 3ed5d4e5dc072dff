// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/cardmeet/internal/model"
	"github.com/hitoshi/cardmeet/internal/repository"
)

// LoginProfile は外部IdPから受け取るユーザー情報を表す。
// コアは資格情報を一切検証せず、安定したidと表示情報だけを受け取る。
type LoginProfile struct {
	ID        string
	Name      string
	Username  string
	AvatarURL string
}

// Service はユーザー管理のサービス層。
type Service struct {
	store repository.Store
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(store repository.Store) *Service {
	return &Service{store: store}
}

// UpsertFromLogin はログインのたびに呼ばれ、ユーザーを作成または更新する。
// 表示名・ハンドル・アバターとlast_seenは常に最新へ更新される。
// ストレージが縮退していても呼び出し元（ログインフロー）を失敗させない。
func (s *Service) UpsertFromLogin(ctx context.Context, profile LoginProfile) *model.User {
	u := &model.User{
		ID:        profile.ID,
		Name:      profile.Name,
		Username:  profile.Username,
		AvatarURL: profile.AvatarURL,
		IsActive:  true,
	}

	if err := s.store.UpsertUser(ctx, u); err != nil {
		// ベストエフォート: ログイン自体は成功させる
		slog.Error("ユーザーのupsertに失敗しました",
			slog.String("user_x_id", profile.ID),
			slog.String("error", err.Error()),
		)
	}

	return u
}

// GetUser は外部IDでユーザーを取得する。存在しない場合は (nil, nil) を返す。
func (s *Service) GetUser(ctx context.Context, xid string) (*model.User, error) {
	u, err := s.store.GetUserByXID(ctx, xid)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	return u, nil
}

// ListUsers は全ユーザーを返す（管理者向け）。
func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}
