// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// IDは外部IdP（OAuthプロバイダー）が発行する安定した識別子をそのまま使用する。
// 初回ログイン時に作成され、以降のログインごとに表示名・ハンドル・アバターと
// LastSeenAtが更新される（upsert）。物理削除は行わず、IsActiveで無効化する。
type User struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Username    string    `json:"username"`
	AvatarURL   string    `json:"avatar_url"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	IsActive    bool      `json:"is_active"`
}

// Session はユーザーのログインセッションを表す。
// DB未構成の環境でも動作させるため、プロセス内ストアで保持する。
type Session struct {
	ID        string
	UserXID   string
	IsAdmin   bool
	ExpiresAt time.Time
	CreatedAt time.Time
}
