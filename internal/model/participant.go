package model

import "time"

// Participant は1件のRSVP（イベント参加表明）を表す。
// ユーザー情報は外部キーではなく非正規化して保持する（フォールバック経路でも
// JOINなしで参加者一覧を返せるようにするため）。
// (EventID, UserXID) の組は一意であり、重複参加は拒否される。
// 親イベントの削除に伴いまとめて削除される。
type Participant struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	UserXID   string    `json:"user_x_id"`
	UserName  string    `json:"user_name"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

// Participation はEventMasterに対する恒久的な参加履歴を表す。
// Participantと異なり削除されることはなく、離脱は IsCancelled=true と
// CancelledAt の記録で表現する。EventMasterの「消えない」保証を支える監査証跡。
// 未キャンセルの行の中で (EventMasterID, UserXID) は一意。
type Participation struct {
	ID            string     `json:"id"`
	EventMasterID string     `json:"event_master_id"`
	UserXID       string     `json:"user_x_id"`
	IsCancelled   bool       `json:"is_cancelled"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
