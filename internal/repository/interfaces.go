// Package repository はデータ永続化のインターフェースと各バックエンド実装を提供する。
//
// バックエンドは3つの表現を持つ:
//   - PostgresStore: リレーショナルDB（構成されている場合の正系）
//   - MemoryStore: プロセス内ミラー + ファイルスナップショット（フォールバック）
//   - FailoverStore: 正系を優先しつつフォールバックへ縮退する合成ストア
//
// 「どのバックエンドが構成されているか」の分岐を各関数へ散らばらせず、
// Storeインターフェースの実装差し替えとして表現する。
package repository

import (
	"context"

	"github.com/hitoshi/cardmeet/internal/model"
)

// Store はエンティティCRUDの単一の入口となるインターフェース。
//
// 契約:
//   - 未検出は nil / false / 空スライスで表現し、エラーにしない。
//   - 一覧は空スライス（nilではない）を返す。JSONで[]にシリアライズするため。
//   - CreateParticipant の (nil, nil) は「すでに参加済み」のシグナルであり、
//     エラーではない。
type Store interface {
	// --- イベント ---

	// ListEvents は全イベントを (date, start_time) 昇順で返す。
	ListEvents(ctx context.Context) ([]model.Event, error)

	// GetEventByID は指定IDのイベントを返す。見つからない場合はnilを返す。
	GetEventByID(ctx context.Context, id string) (*model.Event, error)

	// CreateEvent はイベントと対応するイベントマスターを同一の論理操作で作成する。
	// イベントは作成と同時に運用可能かつ恒久的であることを保証するため、
	// 両者は必ず一緒に作られる。
	CreateEvent(ctx context.Context, input model.EventInput) (*model.Event, error)

	// UpdateEvent はイベント行と対になるマスター行を一緒に更新する。
	// 該当行がない場合はnilを返す。
	UpdateEvent(ctx context.Context, id string, input model.EventInput) (*model.Event, error)

	// DeleteEvent はイベントを削除し、行が実際に削除されたかを返す。
	// 紐づくParticipantはカスケード削除される。
	DeleteEvent(ctx context.Context, id string) (bool, error)

	// --- イベントマスター ---

	// ListEventMasters は全イベントマスターを (date, start_time) 昇順で返す。
	ListEventMasters(ctx context.Context) ([]model.EventMaster, error)

	// DeleteEventMaster はマスターを物理削除し、行が削除されたかを返す。
	// 履歴であるParticipationには波及しない。
	DeleteEventMaster(ctx context.Context, id string) (bool, error)

	// --- ユーザー ---

	// UpsertUser は外部IDをキーにユーザーを作成または更新する。
	// 既存ユーザーの場合は名前・ハンドル・アバター・LastSeenAtを更新する。
	UpsertUser(ctx context.Context, user *model.User) error

	// GetUserByXID は外部IDでユーザーを取得する。存在しない場合は (nil, nil) を返す。
	GetUserByXID(ctx context.Context, xid string) (*model.User, error)

	// ListUsers は全ユーザーをLastSeenAt降順で返す。
	ListUsers(ctx context.Context) ([]model.User, error)

	// --- 参加者 ---

	// CreateParticipant は参加者を作成する。
	// (event_id, user_x_id) が既に存在する場合は (nil, nil) を返す。
	CreateParticipant(ctx context.Context, p *model.Participant) (*model.Participant, error)

	// DeleteParticipant は指定イベント・ユーザーの参加者を削除し、
	// 行が削除されたかを返す。
	DeleteParticipant(ctx context.Context, eventID, userXID string) (bool, error)

	// ListParticipantsByEventID は指定イベントの参加者一覧を参加順で返す。
	ListParticipantsByEventID(ctx context.Context, eventID string) ([]model.Participant, error)

	// ListParticipantsByUserID は指定ユーザーの参加者一覧を返す。
	ListParticipantsByUserID(ctx context.Context, userXID string) ([]model.Participant, error)

	// IsUserJoined は指定ユーザーがイベントに参加済みかを返す。
	IsUserJoined(ctx context.Context, eventID, userXID string) (bool, error)

	// --- 参加履歴 ---

	// CreateParticipation は恒久的な参加履歴を作成する。
	// 未キャンセルの (event_master_id, user_x_id) が既に存在する場合は
	// (nil, nil) を返す。
	CreateParticipation(ctx context.Context, p *model.Participation) (*model.Participation, error)

	// CancelParticipation は参加履歴をソフトキャンセルする
	// （is_cancelled=true + cancelled_at。削除はしない）。
	CancelParticipation(ctx context.Context, eventMasterID, userXID string) (bool, error)
}

// MirrorStore はフォールバックストアが追加で提供する書き込みミラー操作。
// 正系（リレーショナルDB）の書き込みが成功した後、FailoverStoreが
// 同じレコードをIDごとミラーへ複製するために使用する（write-throughミラーリング）。
// IDを新規採番するCreate系と異なり、正系が払い出したIDをそのまま受け取る。
type MirrorStore interface {
	Store

	// MirrorEvent はイベントとマスターの対をIDを保ったままミラーへ登録する。
	MirrorEvent(ctx context.Context, ev *model.Event, master *model.EventMaster) error

	// MirrorParticipant は参加者をIDを保ったままミラーへ登録する。
	// 既に同じ (event_id, user_x_id) が存在する場合は何もしない。
	MirrorParticipant(ctx context.Context, p *model.Participant) error

	// MirrorParticipation は参加履歴をIDを保ったままミラーへ登録する。
	MirrorParticipation(ctx context.Context, p *model.Participation) error
}
