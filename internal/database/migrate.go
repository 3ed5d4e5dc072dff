package database

import (
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// NewMigrator はスキーマ初期化実行用のmigrateインスタンスを生成する。
// databaseURLはPostgreSQLの接続URLを指定する。
func NewMigrator(databaseURL string) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return m, nil
}

// Bootstrap はスキーマ初期化DDLを適用する。
// DDLはすべてCREATE ... IF NOT EXISTSで構成され、起動のたびに安全に
// 再実行できる。すでに適用済みの場合はエラーなしで返る。
//
// この失敗は呼び出し元へそのまま返される。テーブルが存在しないまま
// 黙って継続すると以降の全操作が無意味になるため、永続化層で唯一の
// 硬い失敗として扱う。
func Bootstrap(databaseURL string) error {
	m, err := NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to bootstrap schema: %w", err)
	}

	return nil
}
