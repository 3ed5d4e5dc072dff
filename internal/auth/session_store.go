package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/cardmeet/internal/model"
)

// SessionStore はログインセッションのプロセス内ストア。
// リレーショナルDBが未構成の構成でも動作させるため、セッションは
// 永続化せずメモリで保持する（再起動でログアウトになるのは許容）。
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
	stopCh   chan struct{}
}

// NewSessionStore は新しいSessionStoreを生成し、期限切れセッションの
// バックグラウンドクリーンアップを開始する。
func NewSessionStore() *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]*model.Session),
		stopCh:   make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (s *SessionStore) Stop() {
	close(s.stopCh)
}

// Create は新しいセッションを発行する。
func (s *SessionStore) Create(userXID string, isAdmin bool, maxAge time.Duration) *model.Session {
	now := time.Now()
	session := &model.Session{
		ID:        uuid.New().String(),
		UserXID:   userXID,
		IsAdmin:   isAdmin,
		ExpiresAt: now.Add(maxAge),
		CreatedAt: now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	return session
}

// Find は指定IDのセッションを返す。期限切れ・未登録の場合はnilを返す。
func (s *SessionStore) Find(id string) *model.Session {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || time.Now().After(session.ExpiresAt) {
		return nil
	}
	return session
}

// Delete は指定IDのセッションを破棄する。存在しない場合は何もしない。
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// cleanupLoop は期限切れセッションを定期的に破棄する。
func (s *SessionStore) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for id, session := range s.sessions {
				if now.After(session.ExpiresAt) {
					delete(s.sessions, id)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}
