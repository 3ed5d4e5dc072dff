// Package participant はイベント参加（RSVP）のドメインロジックを提供する。
package participant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/cardmeet/internal/model"
	"github.com/hitoshi/cardmeet/internal/repository"
)

// DuplicateJoinRecorder は重複参加のメトリクス記録に必要なインターフェース。
// metrics.Collectorの部分集合として定義する。
type DuplicateJoinRecorder interface {
	RecordDuplicateJoin()
}

// Service はイベント参加のサービス層。
// 参加者（Participant）の作成・削除と、イベントマスターに対する
// 恒久的な参加履歴（Participation）の記録をまとめて扱う。
type Service struct {
	store repository.Store
	rec   DuplicateJoinRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// recはnilを許容する（メトリクス未構成時）。
func NewService(store repository.Store, rec DuplicateJoinRecorder) *Service {
	return &Service{store: store, rec: rec}
}

// JoinEvent は指定イベントへの参加を表明する。
// 戻り値は参加が新規に記録されたかどうか。すでに参加済みの場合は
// false（エラーではない）を返す。イベントが存在しない場合はエラー。
//
// イベントがマスターに紐づく場合は、削除されない参加履歴
// （Participation）も同時に記録する。
func (s *Service) JoinEvent(ctx context.Context, eventID string, user *model.User) (bool, error) {
	ev, err := s.store.GetEventByID(ctx, eventID)
	if err != nil {
		return false, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if ev == nil {
		return false, model.NewEventNotFoundError(eventID)
	}

	created, err := s.store.CreateParticipant(ctx, &model.Participant{
		EventID:   eventID,
		UserXID:   user.ID,
		UserName:  user.Name,
		AvatarURL: user.AvatarURL,
	})
	if err != nil {
		return false, fmt.Errorf("参加者の作成に失敗しました: %w", err)
	}
	if created == nil {
		// すでに参加済み
		if s.rec != nil {
			s.rec.RecordDuplicateJoin()
		}
		return false, nil
	}

	// 恒久的な参加履歴を記録する。重複（nil, nil）は参加履歴が既に
	// 残っているということなので、そのままでよい。
	if ev.MasterID != "" {
		if _, err := s.store.CreateParticipation(ctx, &model.Participation{
			EventMasterID: ev.MasterID,
			UserXID:       user.ID,
		}); err != nil {
			// 履歴の記録失敗で参加自体を失敗にはしない
			slog.Error("参加履歴の記録に失敗しました",
				slog.String("event_master_id", ev.MasterID),
				slog.String("user_x_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	slog.Info("イベントに参加しました",
		slog.String("event_id", eventID),
		slog.String("user_x_id", user.ID),
	)
	return true, nil
}

// LeaveEvent は指定イベントへの参加を取り消す。
// 戻り値は参加者行が実際に削除されたかどうか。
// 参加履歴はソフトキャンセルされ、行としては残り続ける。
func (s *Service) LeaveEvent(ctx context.Context, eventID, userXID string) (bool, error) {
	deleted, err := s.store.DeleteParticipant(ctx, eventID, userXID)
	if err != nil {
		return false, fmt.Errorf("参加者の削除に失敗しました: %w", err)
	}
	if !deleted {
		return false, nil
	}

	// イベントがまだ存在しマスターに紐づくなら、参加履歴をキャンセル扱いにする
	ev, err := s.store.GetEventByID(ctx, eventID)
	if err == nil && ev != nil && ev.MasterID != "" {
		if _, err := s.store.CancelParticipation(ctx, ev.MasterID, userXID); err != nil {
			slog.Error("参加履歴のキャンセルに失敗しました",
				slog.String("event_master_id", ev.MasterID),
				slog.String("user_x_id", userXID),
				slog.String("error", err.Error()),
			)
		}
	}

	slog.Info("イベントへの参加を取り消しました",
		slog.String("event_id", eventID),
		slog.String("user_x_id", userXID),
	)
	return true, nil
}

// IsUserJoined は指定ユーザーがイベントに参加済みかを返す。
func (s *Service) IsUserJoined(ctx context.Context, eventID, userXID string) (bool, error) {
	joined, err := s.store.IsUserJoined(ctx, eventID, userXID)
	if err != nil {
		return false, fmt.Errorf("参加状態の確認に失敗しました: %w", err)
	}
	return joined, nil
}

// ListByEvent は指定イベントの参加者一覧を返す。
func (s *Service) ListByEvent(ctx context.Context, eventID string) ([]model.Participant, error) {
	participants, err := s.store.ListParticipantsByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("参加者一覧の取得に失敗しました: %w", err)
	}
	return participants, nil
}

// ListByUser は指定ユーザーの参加者一覧を返す。
func (s *Service) ListByUser(ctx context.Context, userXID string) ([]model.Participant, error) {
	participants, err := s.store.ListParticipantsByUserID(ctx, userXID)
	if err != nil {
		return nil, fmt.Errorf("参加者一覧の取得に失敗しました: %w", err)
	}
	return participants, nil
}
