package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GOOGLE_CLIENT_ID", "test-client-id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "test-client-secret")
	t.Setenv("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/google/callback")
	t.Setenv("SESSION_SECRET", "test-session-secret-32bytes-long!")
	t.Setenv("ADMIN_PASSWORD_HASH", "$2a$10$dummyhash")
	t.Setenv("BASE_URL", "http://localhost:8080")
	t.Setenv("DATABASE_URL", "")
}

func TestInit_WithValidConfig_Succeeds(t *testing.T) {
	setTestEnv(t)

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg == nil {
		t.Fatal("expected non-nil config")
	}

	// DATABASE_URL未設定でも初期化は成功する（フォールバック専用モード）
	if cfg.RelationalConfigured() {
		t.Error("RelationalConfigured() = true without DATABASE_URL")
	}

	// グローバルロガーがJSON出力に設定されていることを確認
	slog.Default().Info("init test")
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log output, got error: %v\nraw: %s", err, buf.String())
	}
	if entry["msg"] != "init test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "init test")
	}
}

func TestInit_WithMissingConfig_ReturnsError(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("GOOGLE_CLIENT_SECRET", "")
	t.Setenv("GOOGLE_REDIRECT_URL", "")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("ADMIN_PASSWORD_HASH", "")
	t.Setenv("BASE_URL", "")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err == nil {
		t.Fatal("expected error for missing required env vars, got nil")
	}
	if cfg != nil {
		t.Error("expected nil config on error")
	}
}

// TestRun_MigrateWithoutDatabaseURL_ReturnsError はmigrateコマンドが
// DATABASE_URLを必須とすることを検証する。serveと違い、スキーマ初期化は
// フォールバックへ縮退できない。
func TestRun_MigrateWithoutDatabaseURL_ReturnsError(t *testing.T) {
	setTestEnv(t)

	var buf bytes.Buffer
	err := Run(&buf, []string{"migrate"})
	if err == nil {
		t.Fatal("Run(migrate) should fail without DATABASE_URL")
	}
}

func TestMaskDatabaseURL(t *testing.T) {
	masked := maskDatabaseURL("postgres://cardmeet:secret-password@db:5432/cardmeet")
	if strings.Contains(masked, "secret-password") {
		t.Errorf("masked URL %q still contains the password", masked)
	}

	if got := maskDatabaseURL("short"); got != "***" {
		t.Errorf("maskDatabaseURL(short) = %q, want ***", got)
	}
}

// migrateBootstrapperはhandler.Bootstrapperを満たすことを検証
func TestMigrateBootstrapper_BootstrapFailsForUnreachableDB(t *testing.T) {
	b := &migrateBootstrapper{databaseURL: "postgres://cardmeet:pw@127.0.0.1:1/cardmeet?sslmode=disable&connect_timeout=1"}
	if err := b.Bootstrap(); err == nil {
		t.Error("Bootstrap should fail for an unreachable database")
	}
}
