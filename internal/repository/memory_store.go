package repository

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/cardmeet/internal/model"
	"github.com/hitoshi/cardmeet/internal/snapshot"
)

// MemoryStore はプロセス内ミラーとファイルスナップショットによる
// フォールバックストア。起動時にスナップショットから一度だけ水和され、
// 以後の全変更はミラーとスナップショットファイルの両方へ反映される。
//
// モジュールレベルのグローバル変数ではなく、依存として注入される
// 明示的なオブジェクトとして実装する。テストでは独立したインスタンスを
// 生成できる。
//
// スナップショット保存の失敗はログに記録して処理を継続する。
// フォールバック経路は「ダウンタイムよりデータ損失の方が許容できる」
// 配備を前提とした縮退モードであり、ディスク障害で操作を失敗させない。
type MemoryStore struct {
	files *snapshot.Store

	mu   sync.RWMutex
	data *snapshot.Snapshot
}

// NewMemoryStore はスナップショットストアから水和したMemoryStoreを生成する。
// スナップショットが空（イベントなし）の場合はLoad側でシードが補われる。
func NewMemoryStore(files *snapshot.Store) (*MemoryStore, error) {
	snap, err := files.Load()
	if err != nil {
		return nil, err
	}
	return &MemoryStore{files: files, data: snap}, nil
}

// persistLocked は現在のミラー全体をスナップショットへ書き出す。
// 呼び出し元がロックを保持していること。
func (s *MemoryStore) persistLocked() {
	if err := s.files.Save(s.data); err != nil {
		slog.Error("スナップショットの保存に失敗しました",
			slog.String("path", s.files.Path()),
			slog.String("error", err.Error()),
		)
	}
}

// --- イベント ---

// ListEvents は全イベントを (date, start_time) 昇順で返す。
func (s *MemoryStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]model.Event, len(s.data.Events))
	copy(events, s.data.Events)
	sortEvents(events)
	return events, nil
}

// GetEventByID は指定IDのイベントを返す。見つからない場合はnilを返す。
func (s *MemoryStore) GetEventByID(ctx context.Context, id string) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.data.Events {
		if s.data.Events[i].ID == id {
			ev := s.data.Events[i]
			return &ev, nil
		}
	}
	return nil, nil
}

// CreateEvent はイベントとマスターの対をローカル採番のIDで作成する。
func (s *MemoryStore) CreateEvent(ctx context.Context, input model.EventInput) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	id := uuid.New().String()

	ev := eventFromInput(id, id, input, now)
	master := masterFromInput(id, input, now)

	s.data.Events = append(s.data.Events, ev)
	s.data.EventMasters = append(s.data.EventMasters, master)
	s.persistLocked()

	return &ev, nil
}

// UpdateEvent はイベント行と対になるマスター行を一緒に更新する。
// 該当行がない場合はnilを返す。
func (s *MemoryStore) UpdateEvent(ctx context.Context, id string, input model.EventInput) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	for i := range s.data.Events {
		if s.data.Events[i].ID != id {
			continue
		}

		ev := &s.data.Events[i]
		applyInputToEvent(ev, input, now)

		// 対になるマスター行も同じ内容で更新する
		for j := range s.data.EventMasters {
			if s.data.EventMasters[j].ID == ev.MasterID {
				applyInputToMaster(&s.data.EventMasters[j], input, now)
				break
			}
		}

		s.persistLocked()
		updated := *ev
		return &updated, nil
	}
	return nil, nil
}

// DeleteEvent はイベントを削除し、紐づく参加者もまとめて削除する。
func (s *MemoryStore) DeleteEvent(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	events := s.data.Events[:0]
	for _, ev := range s.data.Events {
		if ev.ID == id {
			found = true
			continue
		}
		events = append(events, ev)
	}
	s.data.Events = events

	if !found {
		return false, nil
	}

	// カスケード削除: 参加者
	participants := s.data.Participants[:0]
	for _, p := range s.data.Participants {
		if p.EventID == id {
			continue
		}
		participants = append(participants, p)
	}
	s.data.Participants = participants

	s.persistLocked()
	return true, nil
}

// --- イベントマスター ---

// ListEventMasters は全イベントマスターを (date, start_time) 昇順で返す。
func (s *MemoryStore) ListEventMasters(ctx context.Context) ([]model.EventMaster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	masters := make([]model.EventMaster, len(s.data.EventMasters))
	copy(masters, s.data.EventMasters)
	sort.SliceStable(masters, func(i, j int) bool {
		if masters[i].Date != masters[j].Date {
			return masters[i].Date < masters[j].Date
		}
		return masters[i].StartTime < masters[j].StartTime
	})
	return masters, nil
}

// DeleteEventMaster はマスターを物理削除する。Participationは残す。
func (s *MemoryStore) DeleteEventMaster(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	masters := s.data.EventMasters[:0]
	for _, m := range s.data.EventMasters {
		if m.ID == id {
			found = true
			continue
		}
		masters = append(masters, m)
	}
	s.data.EventMasters = masters

	if !found {
		return false, nil
	}

	s.persistLocked()
	return true, nil
}

// --- ユーザー ---

// UpsertUser は外部IDをキーにユーザーを作成または更新する。
func (s *MemoryStore) UpsertUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	for i := range s.data.Users {
		if s.data.Users[i].ID == user.ID {
			u := &s.data.Users[i]
			u.Name = user.Name
			u.Username = user.Username
			u.AvatarURL = user.AvatarURL
			u.LastSeenAt = now
			u.IsActive = true
			s.persistLocked()
			return nil
		}
	}

	created := *user
	if created.FirstSeenAt.IsZero() {
		created.FirstSeenAt = now
	}
	created.LastSeenAt = now
	created.IsActive = true
	s.data.Users = append(s.data.Users, created)
	s.persistLocked()
	return nil
}

// GetUserByXID は外部IDでユーザーを取得する。存在しない場合は (nil, nil) を返す。
func (s *MemoryStore) GetUserByXID(ctx context.Context, xid string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.data.Users {
		if s.data.Users[i].ID == xid {
			u := s.data.Users[i]
			return &u, nil
		}
	}
	return nil, nil
}

// ListUsers は全ユーザーをLastSeenAt降順で返す。
func (s *MemoryStore) ListUsers(ctx context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]model.User, len(s.data.Users))
	copy(users, s.data.Users)
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].LastSeenAt.After(users[j].LastSeenAt)
	})
	return users, nil
}

// --- 参加者 ---

// CreateParticipant は参加者を作成する。重複の場合は (nil, nil) を返す。
// 重複チェックと挿入はストア全体のロック下で行われるため、
// 並行する同一ペアの参加表明が両方成功することはない。
func (s *MemoryStore) CreateParticipant(ctx context.Context, p *model.Participant) (*model.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Participants {
		if s.data.Participants[i].EventID == p.EventID && s.data.Participants[i].UserXID == p.UserXID {
			return nil, nil
		}
	}

	created := *p
	if created.ID == "" {
		created.ID = uuid.New().String()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now()
	}
	s.data.Participants = append(s.data.Participants, created)
	s.persistLocked()
	return &created, nil
}

// DeleteParticipant は指定イベント・ユーザーの参加者を削除する。
func (s *MemoryStore) DeleteParticipant(ctx context.Context, eventID, userXID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	participants := s.data.Participants[:0]
	for _, p := range s.data.Participants {
		if p.EventID == eventID && p.UserXID == userXID {
			found = true
			continue
		}
		participants = append(participants, p)
	}
	s.data.Participants = participants

	if !found {
		return false, nil
	}

	s.persistLocked()
	return true, nil
}

// ListParticipantsByEventID は指定イベントの参加者一覧を参加順で返す。
func (s *MemoryStore) ListParticipantsByEventID(ctx context.Context, eventID string) ([]model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.Participant, 0)
	for _, p := range s.data.Participants {
		if p.EventID == eventID {
			result = append(result, p)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// ListParticipantsByUserID は指定ユーザーの参加者一覧を返す。
func (s *MemoryStore) ListParticipantsByUserID(ctx context.Context, userXID string) ([]model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.Participant, 0)
	for _, p := range s.data.Participants {
		if p.UserXID == userXID {
			result = append(result, p)
		}
	}
	return result, nil
}

// IsUserJoined は指定ユーザーがイベントに参加済みかを返す。
func (s *MemoryStore) IsUserJoined(ctx context.Context, eventID, userXID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.data.Participants {
		if p.EventID == eventID && p.UserXID == userXID {
			return true, nil
		}
	}
	return false, nil
}

// --- 参加履歴 ---

// CreateParticipation は参加履歴を作成する。
// 未キャンセルの同一ペアが存在する場合は (nil, nil) を返す。
func (s *MemoryStore) CreateParticipation(ctx context.Context, p *model.Participation) (*model.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Participations {
		existing := &s.data.Participations[i]
		if existing.EventMasterID == p.EventMasterID && existing.UserXID == p.UserXID && !existing.IsCancelled {
			return nil, nil
		}
	}

	created := *p
	if created.ID == "" {
		created.ID = uuid.New().String()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now()
	}
	s.data.Participations = append(s.data.Participations, created)
	s.persistLocked()
	return &created, nil
}

// CancelParticipation は参加履歴をソフトキャンセルする。行は削除しない。
func (s *MemoryStore) CancelParticipation(ctx context.Context, eventMasterID, userXID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Participations {
		p := &s.data.Participations[i]
		if p.EventMasterID == eventMasterID && p.UserXID == userXID && !p.IsCancelled {
			now := time.Now()
			p.IsCancelled = true
			p.CancelledAt = &now
			s.persistLocked()
			return true, nil
		}
	}
	return false, nil
}

// --- write-throughミラー ---

// MirrorEvent は正系が払い出したIDのままイベント・マスター対を登録する。
func (s *MemoryStore) MirrorEvent(ctx context.Context, ev *model.Event, master *model.EventMaster) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Events {
		if s.data.Events[i].ID == ev.ID {
			s.data.Events[i] = *ev
			s.persistLocked()
			return nil
		}
	}
	s.data.Events = append(s.data.Events, *ev)
	if master != nil {
		s.data.EventMasters = append(s.data.EventMasters, *master)
	}
	s.persistLocked()
	return nil
}

// MirrorParticipant は正系が払い出したIDのまま参加者を登録する。
func (s *MemoryStore) MirrorParticipant(ctx context.Context, p *model.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Participants {
		if s.data.Participants[i].EventID == p.EventID && s.data.Participants[i].UserXID == p.UserXID {
			return nil
		}
	}
	s.data.Participants = append(s.data.Participants, *p)
	s.persistLocked()
	return nil
}

// MirrorParticipation は正系が払い出したIDのまま参加履歴を登録する。
func (s *MemoryStore) MirrorParticipation(ctx context.Context, p *model.Participation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Participations {
		existing := &s.data.Participations[i]
		if existing.EventMasterID == p.EventMasterID && existing.UserXID == p.UserXID && !existing.IsCancelled {
			return nil
		}
	}
	s.data.Participations = append(s.data.Participations, *p)
	s.persistLocked()
	return nil
}

// --- ヘルパー ---

// sortEvents はイベントを (date, start_time) 昇順でソートする。
// ISO形式の文字列は辞書順がそのまま時系列順になる。
func sortEvents(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		return events[i].StartTime < events[j].StartTime
	})
}

func eventFromInput(id, masterID string, input model.EventInput, now time.Time) model.Event {
	return model.Event{
		ID:          id,
		MasterID:    masterID,
		Name:        input.Name,
		Date:        input.Date,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		Organizer:   input.Organizer,
		Area:        input.Area,
		Prefecture:  input.Prefecture,
		Venue:       input.Venue,
		Address:     input.Address,
		URL:         input.URL,
		Description: input.Description,
		AnnounceURL: input.AnnounceURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func masterFromInput(id string, input model.EventInput, now time.Time) model.EventMaster {
	return model.EventMaster{
		ID:          id,
		Name:        input.Name,
		Date:        input.Date,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		Organizer:   input.Organizer,
		Area:        input.Area,
		Prefecture:  input.Prefecture,
		Venue:       input.Venue,
		Address:     input.Address,
		URL:         input.URL,
		Description: input.Description,
		AnnounceURL: input.AnnounceURL,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func applyInputToEvent(ev *model.Event, input model.EventInput, now time.Time) {
	ev.Name = input.Name
	ev.Date = input.Date
	ev.StartTime = input.StartTime
	ev.EndTime = input.EndTime
	ev.Organizer = input.Organizer
	ev.Area = input.Area
	ev.Prefecture = input.Prefecture
	ev.Venue = input.Venue
	ev.Address = input.Address
	ev.URL = input.URL
	ev.Description = input.Description
	ev.AnnounceURL = input.AnnounceURL
	ev.UpdatedAt = now
}

func applyInputToMaster(m *model.EventMaster, input model.EventInput, now time.Time) {
	m.Name = input.Name
	m.Date = input.Date
	m.StartTime = input.StartTime
	m.EndTime = input.EndTime
	m.Organizer = input.Organizer
	m.Area = input.Area
	m.Prefecture = input.Prefecture
	m.Venue = input.Venue
	m.Address = input.Address
	m.URL = input.URL
	m.Description = input.Description
	m.AnnounceURL = input.AnnounceURL
	m.UpdatedAt = now
}

// compile-time interface check
var _ MirrorStore = (*MemoryStore)(nil)
