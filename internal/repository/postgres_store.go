package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// PostgresStore はPostgreSQLを使用するリレーショナルバックエンドアダプタ。
// DATABASE_URLが構成されている場合の正系ストアとなる。
//
// 接続は操作ごとにdatabase/sqlのプールから払い出され、成功・失敗いずれの
// 経路でも必ず解放される（rows.Close / トランザクションのdefer Rollback）。
// 一意性制約はDBエンジン側で強制し、違反はドメインの「既に存在する」
// シグナルへ変換する。
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore はPostgresStoreを生成する。
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// uniqueViolation はPostgreSQLのunique_violationエラーコード。
const uniqueViolation = "23505"

// isUniqueViolation は一意性制約違反のエラーかどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}

// compile-time interface check
var _ Store = (*PostgresStore)(nil)
