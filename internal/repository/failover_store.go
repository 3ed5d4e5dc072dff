package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/cardmeet/internal/model"
)

// OpRecorder はストア操作のメトリクス記録に必要なインターフェース。
// metrics.Collectorの部分集合として定義する。
type OpRecorder interface {
	RecordPrimaryOp(op string)
	RecordFallbackOp(op string)
}

// nopRecorder はメトリクス未構成時に使用する何もしない実装。
type nopRecorder struct{}

func (nopRecorder) RecordPrimaryOp(op string)  {}
func (nopRecorder) RecordFallbackOp(op string) {}

// DefaultPrimaryTimeout は正系呼び出し1回あたりの既定タイムアウト。
// タイムアウトはその他の接続エラーと同様に扱われ、フォールバックを発動する。
const DefaultPrimaryTimeout = 5 * time.Second

// FailoverStore は正系（リレーショナルDB）を優先し、失敗時に
// フォールバック（プロセス内ミラー + ファイルスナップショット）へ縮退する
// 合成ストア。
//
// 方針:
//   - 正系のエラーはすべてこの層で回復可能として扱う。ログと
//     メトリクスに記録し、フォールバックの結果を返す。呼び出し元へ
//     例外的な失敗を伝播させない（スキーマ初期化はこの層の外で行われ、
//     そちらだけが硬い失敗となる）。
//   - write-throughミラーリング: 正系の書き込みが成功した場合も、同じ
//     レコードを必ずミラーとスナップショットへ複製する。DB接続が
//     失われてもプロセス再起動後にディスクから復元できるようにするための
//     明示的な多重防御ポリシーであり、偶発的な二重書き込みではない。
//   - 正系のどのエラーで縮退したかは操作名付きでログに残す。一過性の
//     接続断ではない恒常的なエラー（SQL不正など）もログから追えるようにする。
type FailoverStore struct {
	primary  Store
	fallback MirrorStore
	timeout  time.Duration
	rec      OpRecorder
}

// NewFailoverStore はFailoverStoreを生成する。
// timeoutが0の場合はDefaultPrimaryTimeoutを使用する。
// recがnilの場合はメトリクスを記録しない。
func NewFailoverStore(primary Store, fallback MirrorStore, timeout time.Duration, rec OpRecorder) *FailoverStore {
	if timeout <= 0 {
		timeout = DefaultPrimaryTimeout
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &FailoverStore{
		primary:  primary,
		fallback: fallback,
		timeout:  timeout,
		rec:      rec,
	}
}

// primaryCtx は正系呼び出し用の固定タイムアウト付きコンテキストを返す。
func (s *FailoverStore) primaryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// fellBack は正系エラーをログとメトリクスへ記録する。
func (s *FailoverStore) fellBack(op string, err error) {
	s.rec.RecordFallbackOp(op)
	slog.Warn("正系ストアの操作に失敗したためフォールバックへ縮退します",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
}

// mirrorFailed はwrite-throughミラーの失敗をログへ記録する。
// ミラーは多重防御であり、失敗しても操作自体は成功として扱う。
func mirrorFailed(op string, err error) {
	slog.Error("write-throughミラーへの複製に失敗しました",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
}

// --- イベント ---

// ListEvents は正系から取得し、失敗時はミラーの一覧を返す。
func (s *FailoverStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	pctx, cancel := s.primaryCtx(ctx)
	defer cancel()

	events, err := s.primary.ListEvents(pctx)
	if err != nil {
		s.fellBack("list_events", err)
		return s.fallback.ListEvents(ctx)
	}
	s.rec.RecordPrimaryOp("list_events")
	return events, nil
}

// GetEventByID は正系から取得し、失敗時はミラーを参照する。
func (s *FailoverStore) GetEventByID(ctx context.Context, id string) (*model.Event, error) {
	pctx, cancel := s.primaryCtx(ctx)
	defer cancel()

	ev, err := s.primary.GetEventByID(pctx, id)
	if err != nil {
		s.fellBack("get_event", err)
		return s.fallback.GetEventByID(ctx, id)
	}
	s.rec.RecordPrimaryOp("get_event")
	return ev, nil
}

// CreateEvent は正系で作成し、成功時は同じレコードをミラーへ複製する。
// 正系が失敗した場合はフォールバックのみで作成する。呼び出し元から見て
// 作成が失敗することはなく、DB障害は耐久性の低下した成功へ縮退する。
func (s *FailoverStore) CreateEvent(ctx context.Context, input model.EventInput) (*model.Event, error) {
	pctx, cancel := s.primaryCtx(ctx)
	defer cancel()

	ev, err := s.primary.CreateEvent(pctx, input)
	if err != nil {
		s.fellBack("create_event", err)
		return s.fallback.CreateEvent(ctx, input)
	}
	s.rec.RecordPrimaryOp("create_event")

	master := masterFromInput(ev.MasterID, input, ev.CreatedAt)
	if err := s.fallback.MirrorEvent(ctx, ev, &master); err != nil {
		mirrorFailed("create_event", err)
	}
	return ev, nil
}

// UpdateEvent は正系で更新し、成功時はミラーへも反映する。
func (s *FailoverStore) UpdateEvent(ctx context.Context, id string, input model.EventInput) (*model.Event, error) {
	pctx, cancel := s.primaryCtx(ctx)
	defer cancel()

	ev, err := s.primary.UpdateEvent(pctx, id, input)
	if err != nil {
		s.fellBack("update_event", err)
		return s.fallback.UpdateEvent(ctx, id, input)
	}
	s.rec.RecordPrimaryOp("update_event")
	if ev == nil {
		return nil, nil
	}

	mirrored, err := s.fallback.UpdateEvent(ctx, id, input)
	if err == nil && mirrored == nil {
		// ミラーに行がない場合は複製し直す
		master := masterFromInput(ev.MasterID, input, ev.UpdatedAt)
		err = s.fallback.MirrorEvent(ctx, ev, &master)
	}
	if err != nil {
		mirrorFailed("update_event", err)
	}
	return ev, nil
}

// DeleteEvent は正系で削除し、成功時はミラーからも削除する。
func (s *FailoverStore) DeleteEvent(ctx context.Context, id string) (bool, error) {
	pctx, cancel := s.primaryCtx(ctx)
	defer cancel()

	deleted, err := s.primary.DeleteEvent(pctx, id)
	if err != nil {
		s.fellBack("delete_event", err)
		return s.fallback.DeleteEvent(ctx, id)
	}
	s.rec.RecordPrimaryOp("delete_event")
	if deleted {
		if _, err := s.fallback.DeleteEvent(ctx, id); err != nil {
			mirrorFailed("delete_event", err)
		}
	}
	return deleted, nil
}

// --- イベントマスター ---

// ListEventMasters は正系から取得し、失敗時はミラーの一覧を返す。
func (s *FailoverStore) ListEventMasters(ctx context.Context) ([]model.EventMaster, error) {
	pctx, cancel := s.primaryCtx(ctx)
	defer cancel()

	masters, err := s.primary.ListEventMasters(pctx)
	if err != nil {
		s.fellBack("list_event_masters", err)
		return s.fallback.ListEventMasters(ctx)
	}
	s.rec.RecordPrimaryOp("list_event_masters")
	return masters, nil
}

// DeleteEventMaster は正系で削除し、成功時はミラーからも削除する。
func (s *FailoverStore) DeleteEventMaster(ctx context.Context, id string) (bool, error) {
	pctx, cancel := s.primaryCtx(ctx)
	defer cancel()

	deleted, err := s.primary.DeleteEventMaster(pctx, id)
	if err != nil {
		s.fellBack("delete_event_master", err)
		return s.fallback.DeleteEventMaster(ctx, id)
	}
	s.rec.RecordPrimaryOp("delete_event_master")
	if deleted {
		if _, err := s.fallback.DeleteEventMaster(ctx, id); err != nil {
			mirrorFailed("delete_event_master", err)
		}
	}
	return deleted, nil
}

// --- ユーザー ---

// UpsertUser は正系とミラーの両方へupsertする。
// ストレージが縮退していても呼び出し元を失敗させない（ベストエフォート）。
func (s *FailoverStore) UpsertUser(ctx context.Context, user *model.User) error {
	pctx, cancel := s.primaryCtx(ctx)
	defer cancel()

	if err := s.primary.UpsertUser(pctx, user); err != nil {
		s.fellBack("upsert_user", err)
		return s.fallback.UpsertUser(ctx, user)
	}
	s.rec.RecordPrimaryOp("upsert_user")
	if err := s.fallback.UpsertUser(ctx, user); err != nil {
		mirrorFailed("upsert_user", err)
	}
	return nil
}

// GetUserByXID は正系から取得し、失敗時はミラーを参照する。
func (s *FailoverStore) GetUserByXID(ctx context.Context, xid string) (*model.User, error) {
	pctx, cancel := s.primaryCtx(ctx)
	defer cancel()

	u, err := s.primary.GetUserByXID(pctx, xid)
	if err != nil {
		s.fellBack("get_user", err)
		return s.fallback.GetUserByXID(ctx, xid)
	}
	s.rec.RecordPrimaryOp("get_user")
	return u, nil
}

// ListUsers は正系から取得し、失敗時はミラーの一覧を返す。
func (s *FailoverStore) ListUsers(ctx context.Context) ([]model.User, error) {
	pctx, cancel := s.primaryCtx(ctx)
	defer cancel()

	users, err := s.primary.ListUsers(pctx)
	if err != nil {
		s.fellBack("list_users", err)
		return s.fallback.ListUsers(ctx)
	}
	s.rec.RecordPrimaryOp("list_users")
	return users, nil
}

// --- 参加者 ---

// CreateParticipant は正系で作成し、どちらの経路で成功した場合でも
// 参加者を無条件にミラーとスナップショットへ複製する。
// (nil, nil) は「すでに参加済み」を表す。
func (s *FailoverStore) CreateParticipant(ctx context.Context, p *model.Participant) (*model.Participant, error) {
	pctx, cancel := s.primaryCtx(ctx)
	defer cancel()

	created, err := s.primary.CreateParticipant(pctx, p)
	if err != nil {
		s.fellBack("create_participant", err)
		return s.fallback.CreateParticipant(ctx, p)
	}
	s.rec.RecordPrimaryOp("create_participant")
	if created == nil {
		return nil, nil
	}
	if err := s.fallback.MirrorParticipant(ctx, created); err != nil {
		mirrorFailed("create_participant", err)
	}
	return created, nil
}

// DeleteParticipant は正系で削除し、成功時はミラーからも削除する。
func (s *FailoverStore) DeleteParticipant(ctx context.Context, eventID, userXID string) (bool, error) {
	pctx, cancel := s.primaryCtx(ctx)
	defer cancel()

	deleted, err := s.primary.DeleteParticipant(pctx, eventID, userXID)
	if err != nil {
		s.fellBack("delete_participant", err)
		return s.fallback.DeleteParticipant(ctx, eventID, userXID)
	}
	s.rec.RecordPrimaryOp("delete_participant")
	if _, err := s.fallback.DeleteParticipant(ctx, eventID, userXID); err != nil {
		mirrorFailed("delete_participant", err)
	}
	return deleted, nil
}

// ListParticipantsByEventID は正系から取得し、失敗時はミラーを参照する。
func (s *FailoverStore) ListParticipantsByEventID(ctx context.Context, eventID string) ([]model.Participant, error) {
	pctx, cancel := s.primaryCtx(ctx)
	defer cancel()

	participants, err := s.primary.ListParticipantsByEventID(pctx, eventID)
	if err != nil {
		s.fellBack("list_participants_by_event", err)
		return s.fallback.ListParticipantsByEventID(ctx, eventID)
	}
	s.rec.RecordPrimaryOp("list_participants_by_event")
	return participants, nil
}

// ListParticipantsByUserID は正系から取得し、失敗時はミラーを参照する。
func (s *FailoverStore) ListParticipantsByUserID(ctx context.Context, userXID string) ([]model.Participant, error) {
	pctx, cancel := s.primaryCtx(ctx)
	defer cancel()

	participants, err := s.primary.ListParticipantsByUserID(pctx, userXID)
	if err != nil {
		s.fellBack("list_participants_by_user", err)
		return s.fallback.ListParticipantsByUserID(ctx, userXID)
	}
	s.rec.RecordPrimaryOp("list_participants_by_user")
	return participants, nil
}

// IsUserJoined は正系で確認し、失敗時はミラーを参照する。
func (s *FailoverStore) IsUserJoined(ctx context.Context, eventID, userXID string) (bool, error) {
	pctx, cancel := s.primaryCtx(ctx)
	defer cancel()

	joined, err := s.primary.IsUserJoined(pctx, eventID, userXID)
	if err != nil {
		s.fellBack("is_user_joined", err)
		return s.fallback.IsUserJoined(ctx, eventID, userXID)
	}
	s.rec.RecordPrimaryOp("is_user_joined")
	return joined, nil
}

// --- 参加履歴 ---

// CreateParticipation は正系で作成し、成功時はミラーへ複製する。
func (s *FailoverStore) CreateParticipation(ctx context.Context, p *model.Participation) (*model.Participation, error) {
	pctx, cancel := s.primaryCtx(ctx)
	defer cancel()

	created, err := s.primary.CreateParticipation(pctx, p)
	if err != nil {
		s.fellBack("create_participation", err)
		return s.fallback.CreateParticipation(ctx, p)
	}
	s.rec.RecordPrimaryOp("create_participation")
	if created == nil {
		return nil, nil
	}
	if err := s.fallback.MirrorParticipation(ctx, created); err != nil {
		mirrorFailed("create_participation", err)
	}
	return created, nil
}

// CancelParticipation は正系でキャンセルし、成功時はミラーへも反映する。
func (s *FailoverStore) CancelParticipation(ctx context.Context, eventMasterID, userXID string) (bool, error) {
	pctx, cancel := s.primaryCtx(ctx)
	defer cancel()

	cancelled, err := s.primary.CancelParticipation(pctx, eventMasterID, userXID)
	if err != nil {
		s.fellBack("cancel_participation", err)
		return s.fallback.CancelParticipation(ctx, eventMasterID, userXID)
	}
	s.rec.RecordPrimaryOp("cancel_participation")
	if _, err := s.fallback.CancelParticipation(ctx, eventMasterID, userXID); err != nil {
		mirrorFailed("cancel_participation", err)
	}
	return cancelled, nil
}

// compile-time interface check
var _ Store = (*FailoverStore)(nil)
