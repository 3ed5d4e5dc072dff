// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, event, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeEventNotFound   = "EVENT_NOT_FOUND"
	ErrCodeAlreadyJoined   = "ALREADY_JOINED"
	ErrCodeNotJoined       = "NOT_JOINED"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeAdminAuthFailed = "ADMIN_AUTH_FAILED"
	ErrCodeBootstrapFailed = "BOOTSTRAP_FAILED"
	ErrCodeMasterNotFound  = "EVENT_MASTER_NOT_FOUND"
)

// NewEventNotFoundError はイベント未検出エラーを生成する。
func NewEventNotFoundError(eventID string) *APIError {
	return &APIError{
		Code:     ErrCodeEventNotFound,
		Message:  fmt.Sprintf("指定されたイベントが見つかりません: %s", eventID),
		Category: "event",
		Action:   "イベント一覧を再読み込みしてください。",
	}
}

// NewEventMasterNotFoundError はイベントマスター未検出エラーを生成する。
func NewEventMasterNotFoundError(masterID string) *APIError {
	return &APIError{
		Code:     ErrCodeMasterNotFound,
		Message:  fmt.Sprintf("指定されたイベントマスターが見つかりません: %s", masterID),
		Category: "event",
		Action:   "イベントマスター一覧を確認してください。",
	}
}

// NewAlreadyJoinedError は重複参加エラーを生成する。
func NewAlreadyJoinedError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyJoined,
		Message:  "このイベントにはすでに参加表明しています。",
		Category: "event",
		Action:   "参加済みの一覧を確認してください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewAdminAuthFailedError は管理者認証失敗エラーを生成する。
func NewAdminAuthFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeAdminAuthFailed,
		Message:  "管理者パスワードが正しくありません。",
		Category: "auth",
		Action:   "パスワードを確認して再度お試しください。",
	}
}

// NewBootstrapFailedError はスキーマ初期化失敗エラーを生成する。
// テーブルが存在しないまま黙って継続すると以降の全操作が無意味になるため、
// この失敗だけは呼び出し元へ確実に伝える。
func NewBootstrapFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeBootstrapFailed,
		Message:  fmt.Sprintf("データベーススキーマの初期化に失敗しました: %s", reason),
		Category: "system",
		Action:   "DATABASE_URLとデータベースの状態を確認してください。",
	}
}
