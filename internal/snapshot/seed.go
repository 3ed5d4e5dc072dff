package snapshot

import (
	"time"

	"github.com/hitoshi/cardmeet/internal/model"
)

// SeedEventID はシードイベント（およびそのマスター）の固定ID。
// シードは決定的であり、何度生成しても同じIDと内容になる。
const SeedEventID = "00000000-0000-0000-0000-000000000001"

// seedCreatedAt はシードレコードの固定タイムスタンプ。
var seedCreatedAt = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

// SeedEvent はシードとして投入するイベントを返す。
func SeedEvent() model.Event {
	return model.Event{
		ID:          SeedEventID,
		MasterID:    SeedEventID,
		Name:        "カードラボ交流会 キックオフ",
		Date:        "2025-05-10",
		StartTime:   "13:00",
		EndTime:     "17:00",
		Organizer:   "カードラボ運営",
		Area:        "関東",
		Prefecture:  "東京都",
		Venue:       "秋葉原コミュニティスペース",
		Address:     "東京都千代田区外神田1-1-1",
		Description: "トレーディングカード好きのための交流会です。初心者歓迎。",
		CreatedAt:   seedCreatedAt,
		UpdatedAt:   seedCreatedAt,
	}
}

// SeedEventMaster はシードイベントに対応するマスターレコードを返す。
func SeedEventMaster() model.EventMaster {
	ev := SeedEvent()
	return model.EventMaster{
		ID:          ev.ID,
		Name:        ev.Name,
		Date:        ev.Date,
		StartTime:   ev.StartTime,
		EndTime:     ev.EndTime,
		Organizer:   ev.Organizer,
		Area:        ev.Area,
		Prefecture:  ev.Prefecture,
		Venue:       ev.Venue,
		Address:     ev.Address,
		Description: ev.Description,
		IsActive:    true,
		CreatedAt:   ev.CreatedAt,
		UpdatedAt:   ev.UpdatedAt,
	}
}

// applySeed は空のスナップショットへシードのイベント・マスター対を補う。
// ユーザーは投入しない（ログイン時のupsertで作成されるため）。
func applySeed(snap *Snapshot) {
	snap.Events = append(snap.Events, SeedEvent())

	// マスターが既に存在する場合は重複させない
	for _, m := range snap.EventMasters {
		if m.ID == SeedEventID {
			return
		}
	}
	snap.EventMasters = append(snap.EventMasters, SeedEventMaster())
}
