// Package snapshot はデータセット全体を単一のJSONドキュメントとして
// ローカルディスクに読み書きするファイルスナップショットストアを提供する。
// フォールバック経路の永続化先であると同時に、リレーショナルDBが主系の
// 場合でも多重防御のバックアップとして毎回書き込まれる。
package snapshot

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hitoshi/cardmeet/internal/model"
)

// DefaultPath はスナップショットファイルの既定の保存先。
const DefaultPath = "./data/persistent_data.json"

// Snapshot はスナップショットファイルのトップレベル構造を表す。
// 各コレクションはトップレベル配列として保存され、欠けている配列は
// 空として読み込まれる（前方互換スキーマ）。
// LastUpdatedはRFC3339のタイムスタンプ文字列としてシリアライズされる。
type Snapshot struct {
	Users          []model.User          `json:"users"`
	Events         []model.Event         `json:"events"`
	EventMasters   []model.EventMaster   `json:"event_masters"`
	Participants   []model.Participant   `json:"participants"`
	Participations []model.Participation `json:"participations"`
	LastUpdated    time.Time             `json:"lastUpdated"`
}

// SaveRecorder はスナップショット保存時間のメトリクス記録に必要なインターフェース。
// metrics.Collectorの部分集合として定義する。
type SaveRecorder interface {
	RecordSnapshotSave(duration time.Duration)
}

// Store はスナップショットファイルへの同期的なload/saveを提供する。
// サーバー専用のリソースであり、並行する保存が書きかけのファイルを
// 残さないようミューテックスで直列化する。
type Store struct {
	path string
	mu   sync.Mutex
	rec  SaveRecorder
}

// NewStore は指定パスのスナップショットストアを生成する。
// pathが空の場合はDefaultPathを使用する。
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

// SetSaveRecorder は保存時間のメトリクス記録先を設定する。
// 未設定の場合は記録しない。
func (s *Store) SetSaveRecorder(rec SaveRecorder) {
	s.rec = rec
}

// Path はスナップショットファイルのパスを返す。
func (s *Store) Path() string {
	return s.path
}

// Load はスナップショットファイルを読み込んで返す。
//   - ファイルが存在しない場合はデータディレクトリを作成し、シードデータ入りの
//     スナップショットを生成してディスクへ保存したうえで返す。
//   - ファイルが壊れている場合はログを出力し、空データセットとして扱って
//     シードデータで再初期化する（起動をクラッシュさせない）。
//   - イベントが1件もない場合もシードデータを補って保存する
//     （初回起動時にUIが空にならないようにするため）。
func (s *Store) Load() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("データディレクトリの作成に失敗しました: %w", err)
	}

	snap := &Snapshot{}

	data, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
		slog.Info("スナップショットファイルが存在しないため新規作成します",
			slog.String("path", s.path),
		)
	case err != nil:
		return nil, fmt.Errorf("スナップショットファイルの読み込みに失敗しました: %w", err)
	default:
		if err := json.Unmarshal(data, snap); err != nil {
			// 壊れたスナップショットは空データセットとして扱い、シードで再出発する
			slog.Error("スナップショットファイルの解析に失敗したため空データセットとして扱います",
				slog.String("path", s.path),
				slog.String("error", err.Error()),
			)
			snap = &Snapshot{}
		}
	}

	normalize(snap)

	if len(snap.Events) == 0 {
		applySeed(snap)
		if err := s.saveLocked(snap); err != nil {
			return nil, fmt.Errorf("シードデータの保存に失敗しました: %w", err)
		}
	}

	return snap, nil
}

// Save はスナップショット全体でファイルを上書きする。
// LastUpdatedは保存時刻で更新される。
func (s *Store) Save(snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(snap)
}

func (s *Store) saveLocked(snap *Snapshot) error {
	start := time.Now()
	defer func() {
		if s.rec != nil {
			s.rec.RecordSnapshotSave(time.Since(start))
		}
	}()

	normalize(snap)
	snap.LastUpdated = time.Now()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("スナップショットのシリアライズに失敗しました: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("データディレクトリの作成に失敗しました: %w", err)
	}

	// 書きかけのファイルが本体を壊さないよう、一時ファイルへ書いてからrenameする
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("スナップショットファイルの書き込みに失敗しました: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("スナップショットファイルの置き換えに失敗しました: %w", err)
	}

	return nil
}

// normalize はnilのコレクションを空スライスへ置き換える。
// JSONで欠けていた配列を空扱いにし、保存時もnullではなく[]を出力する。
func normalize(snap *Snapshot) {
	if snap.Users == nil {
		snap.Users = []model.User{}
	}
	if snap.Events == nil {
		snap.Events = []model.Event{}
	}
	if snap.EventMasters == nil {
		snap.EventMasters = []model.EventMaster{}
	}
	if snap.Participants == nil {
		snap.Participants = []model.Participant{}
	}
	if snap.Participations == nil {
		snap.Participations = []model.Participation{}
	}
}
