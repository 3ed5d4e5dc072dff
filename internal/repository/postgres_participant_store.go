package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/cardmeet/internal/model"
)

// CreateParticipant は参加者を作成する。
// (event_id, user_x_id) の一意性制約違反は「すでに参加済み」のドメイン
// シグナルとして (nil, nil) に変換する。エラーにはしない。
func (r *PostgresStore) CreateParticipant(ctx context.Context, p *model.Participant) (*model.Participant, error) {
	created := &model.Participant{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO participants (event_id, user_x_id, user_name, avatar_url, created_at)
		 VALUES ($1, $2, $3, $4, now())
		 RETURNING id, event_id, user_x_id, user_name, avatar_url, created_at`,
		p.EventID, p.UserXID, p.UserName, p.AvatarURL,
	).Scan(&created.ID, &created.EventID, &created.UserXID, &created.UserName, &created.AvatarURL, &created.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("参加者の作成に失敗しました: %w", err)
	}
	return created, nil
}

// DeleteParticipant は指定イベント・ユーザーの参加者を削除し、
// 行が削除されたかを返す。
func (r *PostgresStore) DeleteParticipant(ctx context.Context, eventID, userXID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM participants WHERE event_id = $1 AND user_x_id = $2`,
		eventID, userXID,
	)
	if err != nil {
		return false, fmt.Errorf("参加者の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// ListParticipantsByEventID は指定イベントの参加者一覧を参加順で返す。
func (r *PostgresStore) ListParticipantsByEventID(ctx context.Context, eventID string) ([]model.Participant, error) {
	return r.listParticipants(ctx,
		`SELECT id, event_id, user_x_id, user_name, avatar_url, created_at
		 FROM participants WHERE event_id = $1 ORDER BY created_at ASC`,
		eventID,
	)
}

// ListParticipantsByUserID は指定ユーザーの参加者一覧を返す。
func (r *PostgresStore) ListParticipantsByUserID(ctx context.Context, userXID string) ([]model.Participant, error) {
	return r.listParticipants(ctx,
		`SELECT id, event_id, user_x_id, user_name, avatar_url, created_at
		 FROM participants WHERE user_x_id = $1 ORDER BY created_at ASC`,
		userXID,
	)
}

func (r *PostgresStore) listParticipants(ctx context.Context, query string, arg any) ([]model.Participant, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("参加者一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	participants := make([]model.Participant, 0)
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.ID, &p.EventID, &p.UserXID, &p.UserName, &p.AvatarURL, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("参加者行の読み取りに失敗しました: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("参加者一覧の走査に失敗しました: %w", err)
	}
	return participants, nil
}

// IsUserJoined は指定ユーザーがイベントに参加済みかを返す。
// EXISTSは最初の一致で走査を打ち切るため、COUNTより軽い。
func (r *PostgresStore) IsUserJoined(ctx context.Context, eventID, userXID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM participants WHERE event_id = $1 AND user_x_id = $2
		)`,
		eventID, userXID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("参加状態の確認に失敗しました: %w", err)
	}
	return exists, nil
}

// CreateParticipation は恒久的な参加履歴を作成する。
// 未キャンセル行に対する部分一意インデックスの違反は (nil, nil) に変換する。
func (r *PostgresStore) CreateParticipation(ctx context.Context, p *model.Participation) (*model.Participation, error) {
	created := &model.Participation{}
	var cancelledAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO participations (event_master_id, user_x_id, is_cancelled, created_at)
		 VALUES ($1, $2, false, now())
		 RETURNING id, event_master_id, user_x_id, is_cancelled, cancelled_at, created_at`,
		p.EventMasterID, p.UserXID,
	).Scan(&created.ID, &created.EventMasterID, &created.UserXID, &created.IsCancelled, &cancelledAt, &created.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("参加履歴の作成に失敗しました: %w", err)
	}
	if cancelledAt.Valid {
		created.CancelledAt = &cancelledAt.Time
	}
	return created, nil
}

// CancelParticipation は参加履歴をソフトキャンセルする。
// 削除はせず、is_cancelledとcancelled_atを記録する。
func (r *PostgresStore) CancelParticipation(ctx context.Context, eventMasterID, userXID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE participations SET is_cancelled = true, cancelled_at = now()
		 WHERE event_master_id = $1 AND user_x_id = $2 AND is_cancelled = false`,
		eventMasterID, userXID,
	)
	if err != nil {
		return false, fmt.Errorf("参加履歴のキャンセルに失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}
