package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/cardmeet/internal/model"
)

// UpsertUser は外部IDをキーにユーザーを作成または更新する。
// ログインのたびに呼ばれ、表示名・ハンドル・アバターとlast_seen_atを
// 常に最新へ更新する。重複行が作られることはない。
func (r *PostgresStore) UpsertUser(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, username, avatar_url, first_seen_at, last_seen_at, is_active)
		 VALUES ($1, $2, $3, $4, now(), now(), true)
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			username = EXCLUDED.username,
			avatar_url = EXCLUDED.avatar_url,
			last_seen_at = now(),
			is_active = true`,
		user.ID, user.Name, user.Username, user.AvatarURL,
	)
	if err != nil {
		return fmt.Errorf("ユーザーのupsertに失敗しました: %w", err)
	}
	return nil
}

// GetUserByXID は外部IDでユーザーを取得する。存在しない場合は (nil, nil) を返す。
func (r *PostgresStore) GetUserByXID(ctx context.Context, xid string) (*model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, username, avatar_url, first_seen_at, last_seen_at, is_active
		 FROM users WHERE id = $1`,
		xid,
	).Scan(
		&u.ID, &u.Name, &u.Username, &u.AvatarURL,
		&u.FirstSeenAt, &u.LastSeenAt, &u.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	return &u, nil
}

// ListUsers は全ユーザーをlast_seen_at降順で返す。
func (r *PostgresStore) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, username, avatar_url, first_seen_at, last_seen_at, is_active
		 FROM users ORDER BY last_seen_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(
			&u.ID, &u.Name, &u.Username, &u.AvatarURL,
			&u.FirstSeenAt, &u.LastSeenAt, &u.IsActive,
		); err != nil {
			return nil, fmt.Errorf("ユーザー行の読み取りに失敗しました: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ユーザー一覧の走査に失敗しました: %w", err)
	}
	return users, nil
}
