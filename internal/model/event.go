package model

import "time"

// Event は現在掲載中のイベントを表す。
// EventMasterの運用上の射影であり、MasterIDで対応するマスターに紐づく
// （紐付けのない単独イベントも許容する）。
// 削除すると紐づくParticipantもまとめて削除される。
//
// DateとStartTime/EndTimeはISO形式の文字列（"2025-09-01"、"10:00"）で保持する。
// ISO形式は辞書順がそのまま時系列順になるため、SQLのORDER BYと
// フォールバックミラーのソートで同一の並びが得られる。
type Event struct {
	ID          string    `json:"id"`
	MasterID    string    `json:"master_id,omitempty"`
	Name        string    `json:"name"`
	Date        string    `json:"date"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	Organizer   string    `json:"organizer"`
	Area        string    `json:"area"`
	Prefecture  string    `json:"prefecture"`
	Venue       string    `json:"venue"`
	Address     string    `json:"address"`
	URL         string    `json:"url,omitempty"`
	Description string    `json:"description"`
	AnnounceURL string    `json:"announce_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EventMaster はイベントの恒久的な原本レコードを表す。
// 掲載中のイベント一覧から整理・削除されても履歴として残ることを意図している。
// IDは作成後不変。IsActiveがマスター一覧での表示可否を制御する。
// 削除は管理者の明示的な操作のみで行われ、Participationには波及しない。
type EventMaster struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Date        string    `json:"date"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	Organizer   string    `json:"organizer"`
	Area        string    `json:"area"`
	Prefecture  string    `json:"prefecture"`
	Venue       string    `json:"venue"`
	Address     string    `json:"address"`
	URL         string    `json:"url,omitempty"`
	Description string    `json:"description"`
	AnnounceURL string    `json:"announce_url,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EventInput はイベント作成・更新の入力を表す。
// IDとタイムスタンプはストア側で払い出す。
type EventInput struct {
	Name        string `json:"name"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Organizer   string `json:"organizer"`
	Area        string `json:"area"`
	Prefecture  string `json:"prefecture"`
	Venue       string `json:"venue"`
	Address     string `json:"address"`
	URL         string `json:"url"`
	Description string `json:"description"`
	AnnounceURL string `json:"announce_url"`
}
