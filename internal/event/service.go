// Package event はイベント管理のドメインロジックを提供する。
package event

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/hitoshi/cardmeet/internal/model"
	"github.com/hitoshi/cardmeet/internal/repository"
	"github.com/hitoshi/cardmeet/internal/security"
)

// dateFormat は受け付ける日付形式（ISO形式 "2025-09-01"）。
var dateFormat = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// timeFormat は受け付ける時刻形式（"10:00"）。空は許容する。
var timeFormat = regexp.MustCompile(`^\d{2}:\d{2}$`)

// Service はイベント管理のサービス層。
// 入力検証と説明文のサニタイズを行ったうえでストアへ委譲する。
type Service struct {
	store     repository.Store
	sanitizer security.ContentSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(store repository.Store, sanitizer security.ContentSanitizerService) *Service {
	return &Service{
		store:     store,
		sanitizer: sanitizer,
	}
}

// ListEvents は全イベントを開催日・開始時刻の昇順で返す。
func (s *Service) ListEvents(ctx context.Context) ([]model.Event, error) {
	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("イベント一覧の取得に失敗しました: %w", err)
	}
	return events, nil
}

// GetEvent は指定IDのイベントを返す。見つからない場合はエラーを返す。
func (s *Service) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	ev, err := s.store.GetEventByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if ev == nil {
		return nil, model.NewEventNotFoundError(id)
	}
	return ev, nil
}

// CreateEvent はイベントを新規作成する。
// イベントマスターも同時に作成される（ストアの契約）。
func (s *Service) CreateEvent(ctx context.Context, input model.EventInput) (*model.Event, error) {
	if err := s.validate(&input); err != nil {
		return nil, err
	}

	ev, err := s.store.CreateEvent(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("イベントの作成に失敗しました: %w", err)
	}

	slog.Info("イベントを作成しました",
		slog.String("event_id", ev.ID),
		slog.String("name", ev.Name),
		slog.String("date", ev.Date),
	)
	return ev, nil
}

// UpdateEvent は指定IDのイベントを更新する。見つからない場合はエラーを返す。
func (s *Service) UpdateEvent(ctx context.Context, id string, input model.EventInput) (*model.Event, error) {
	if err := s.validate(&input); err != nil {
		return nil, err
	}

	ev, err := s.store.UpdateEvent(ctx, id, input)
	if err != nil {
		return nil, fmt.Errorf("イベントの更新に失敗しました: %w", err)
	}
	if ev == nil {
		return nil, model.NewEventNotFoundError(id)
	}

	slog.Info("イベントを更新しました", slog.String("event_id", id))
	return ev, nil
}

// DeleteEvent は指定IDのイベントを削除する。参加者も連鎖削除される。
// 見つからない場合はエラーを返す。
func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	deleted, err := s.store.DeleteEvent(ctx, id)
	if err != nil {
		return fmt.Errorf("イベントの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewEventNotFoundError(id)
	}

	slog.Info("イベントを削除しました", slog.String("event_id", id))
	return nil
}

// ListEventMasters は全イベントマスターを返す（管理者向け）。
func (s *Service) ListEventMasters(ctx context.Context) ([]model.EventMaster, error) {
	masters, err := s.store.ListEventMasters(ctx)
	if err != nil {
		return nil, fmt.Errorf("イベントマスター一覧の取得に失敗しました: %w", err)
	}
	return masters, nil
}

// DeleteEventMaster はイベントマスターを物理削除する（管理者向け）。
// 参加履歴は削除されない。見つからない場合はエラーを返す。
func (s *Service) DeleteEventMaster(ctx context.Context, id string) error {
	deleted, err := s.store.DeleteEventMaster(ctx, id)
	if err != nil {
		return fmt.Errorf("イベントマスターの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewEventMasterNotFoundError(id)
	}

	slog.Info("イベントマスターを削除しました", slog.String("event_master_id", id))
	return nil
}

// validate は入力を検証し、説明文をサニタイズする。
func (s *Service) validate(input *model.EventInput) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return model.NewValidationError("イベント名は必須です")
	}
	if input.Date == "" {
		return model.NewValidationError("開催日は必須です")
	}
	if !dateFormat.MatchString(input.Date) {
		return model.NewValidationError("開催日はYYYY-MM-DD形式で指定してください")
	}
	if input.StartTime != "" && !timeFormat.MatchString(input.StartTime) {
		return model.NewValidationError("開始時刻はHH:MM形式で指定してください")
	}
	if input.EndTime != "" && !timeFormat.MatchString(input.EndTime) {
		return model.NewValidationError("終了時刻はHH:MM形式で指定してください")
	}

	if s.sanitizer != nil {
		input.Description = s.sanitizer.Sanitize(input.Description)
	}
	return nil
}
