package repository

import (
	"errors"
	"testing"

	"github.com/lib/pq"
)

// PostgresStoreはStoreインターフェースを満たすことを検証
func TestPostgresStore_ImplementsInterface(t *testing.T) {
	var _ Store = (*PostgresStore)(nil)
}

// NewPostgresStoreが正しく初期化されることを検証
func TestNewPostgresStore_Initializes(t *testing.T) {
	store := NewPostgresStore(nil)
	if store == nil {
		t.Fatal("expected non-nil store")
	}
}

// ユニットテスト: 一意性制約違反の判定ロジック
// （DB接続なしでロジックのみ検証）
func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unique_violation", &pq.Error{Code: "23505"}, true},
		{"他のPostgreSQLエラー", &pq.Error{Code: "23503"}, false},
		{"ラップされたunique_violation", wrapErr(&pq.Error{Code: "23505"}), true},
		{"一般エラー", errors.New("connection refused"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Errorf("isUniqueViolation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func wrapErr(err error) error {
	return errors.Join(errors.New("failed to create participant"), err)
}
