package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/cardmeet/internal/model"
)

// eventColumns はeventsテーブルのSELECT対象カラム。
const eventColumns = `id, master_id, name, date, start_time, end_time, organizer,
	area, prefecture, venue, address, url, description, announce_url,
	created_at, updated_at`

// scanEvent は1行をmodel.Eventへ読み取る。
func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
	ev := &model.Event{}
	var masterID sql.NullString
	err := row.Scan(
		&ev.ID, &masterID, &ev.Name, &ev.Date, &ev.StartTime, &ev.EndTime,
		&ev.Organizer, &ev.Area, &ev.Prefecture, &ev.Venue, &ev.Address,
		&ev.URL, &ev.Description, &ev.AnnounceURL,
		&ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	ev.MasterID = masterID.String
	return ev, nil
}

// ListEvents は全イベントを (date, start_time) 昇順で返す。
func (r *PostgresStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY date ASC, start_time ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("イベント一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	events := make([]model.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("イベント行の読み取りに失敗しました: %w", err)
		}
		events = append(events, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("イベント一覧の走査に失敗しました: %w", err)
	}
	return events, nil
}

// GetEventByID は指定IDのイベントを取得する。見つからない場合はnilを返す。
func (r *PostgresStore) GetEventByID(ctx context.Context, id string) (*model.Event, error) {
	ev, err := scanEvent(r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	return ev, nil
}

// CreateEvent はイベントマスターとイベントを同一トランザクションで作成する。
// IDはいずれもDB側で払い出されるUUID。イベントは作成と同時に
// マスター（恒久レコード）を持つことが保証される。
func (r *PostgresStore) CreateEvent(ctx context.Context, input model.EventInput) (*model.Event, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	// 1. マスター行を作成
	var masterID string
	err = tx.QueryRowContext(ctx,
		`INSERT INTO event_masters (name, date, start_time, end_time, organizer,
			area, prefecture, venue, address, url, description, announce_url,
			is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, true, now(), now())
		 RETURNING id`,
		input.Name, input.Date, input.StartTime, input.EndTime, input.Organizer,
		input.Area, input.Prefecture, input.Venue, input.Address,
		input.URL, input.Description, input.AnnounceURL,
	).Scan(&masterID)
	if err != nil {
		return nil, fmt.Errorf("イベントマスターの作成に失敗しました: %w", err)
	}

	// 2. 掲載用のイベント行を作成
	ev, err := scanEvent(tx.QueryRowContext(ctx,
		`INSERT INTO events (master_id, name, date, start_time, end_time, organizer,
			area, prefecture, venue, address, url, description, announce_url,
			created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())
		 RETURNING `+eventColumns,
		masterID, input.Name, input.Date, input.StartTime, input.EndTime, input.Organizer,
		input.Area, input.Prefecture, input.Venue, input.Address,
		input.URL, input.Description, input.AnnounceURL,
	))
	if err != nil {
		return nil, fmt.Errorf("イベントの作成に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return ev, nil
}

// UpdateEvent はイベント行と対になるマスター行を同一トランザクションで更新する。
// 該当行がない場合はnilを返す。
func (r *PostgresStore) UpdateEvent(ctx context.Context, id string, input model.EventInput) (*model.Event, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	ev, err := scanEvent(tx.QueryRowContext(ctx,
		`UPDATE events SET name = $2, date = $3, start_time = $4, end_time = $5,
			organizer = $6, area = $7, prefecture = $8, venue = $9, address = $10,
			url = $11, description = $12, announce_url = $13, updated_at = now()
		 WHERE id = $1
		 RETURNING `+eventColumns,
		id, input.Name, input.Date, input.StartTime, input.EndTime,
		input.Organizer, input.Area, input.Prefecture, input.Venue, input.Address,
		input.URL, input.Description, input.AnnounceURL,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("イベントの更新に失敗しました: %w", err)
	}

	// 対になるマスター行も同じ内容で更新する
	if ev.MasterID != "" {
		_, err = tx.ExecContext(ctx,
			`UPDATE event_masters SET name = $2, date = $3, start_time = $4, end_time = $5,
				organizer = $6, area = $7, prefecture = $8, venue = $9, address = $10,
				url = $11, description = $12, announce_url = $13, updated_at = now()
			 WHERE id = $1`,
			ev.MasterID, input.Name, input.Date, input.StartTime, input.EndTime,
			input.Organizer, input.Area, input.Prefecture, input.Venue, input.Address,
			input.URL, input.Description, input.AnnounceURL,
		)
		if err != nil {
			return nil, fmt.Errorf("イベントマスターの更新に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return ev, nil
}

// DeleteEvent はイベント行を削除し、行が削除されたかを返す。
// 参加者はDBのON DELETE CASCADEで削除される。
func (r *PostgresStore) DeleteEvent(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("イベントの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// masterColumns はevent_mastersテーブルのSELECT対象カラム。
const masterColumns = `id, name, date, start_time, end_time, organizer,
	area, prefecture, venue, address, url, description, announce_url,
	is_active, created_at, updated_at`

// ListEventMasters は全イベントマスターを (date, start_time) 昇順で返す。
func (r *PostgresStore) ListEventMasters(ctx context.Context) ([]model.EventMaster, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+masterColumns+` FROM event_masters ORDER BY date ASC, start_time ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("イベントマスター一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	masters := make([]model.EventMaster, 0)
	for rows.Next() {
		var m model.EventMaster
		if err := rows.Scan(
			&m.ID, &m.Name, &m.Date, &m.StartTime, &m.EndTime, &m.Organizer,
			&m.Area, &m.Prefecture, &m.Venue, &m.Address,
			&m.URL, &m.Description, &m.AnnounceURL,
			&m.IsActive, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("イベントマスター行の読み取りに失敗しました: %w", err)
		}
		masters = append(masters, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("イベントマスター一覧の走査に失敗しました: %w", err)
	}
	return masters, nil
}

// DeleteEventMaster はマスター行を物理削除し、行が削除されたかを返す。
// 参加履歴（participations）は外部キーを持たないため削除されず残る。
func (r *PostgresStore) DeleteEventMaster(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM event_masters WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("イベントマスターの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}
