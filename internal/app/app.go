// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/cardmeet/internal/auth"
	"github.com/hitoshi/cardmeet/internal/config"
	"github.com/hitoshi/cardmeet/internal/database"
	"github.com/hitoshi/cardmeet/internal/event"
	"github.com/hitoshi/cardmeet/internal/handler"
	"github.com/hitoshi/cardmeet/internal/logger"
	"github.com/hitoshi/cardmeet/internal/metrics"
	"github.com/hitoshi/cardmeet/internal/middleware"
	"github.com/hitoshi/cardmeet/internal/participant"
	"github.com/hitoshi/cardmeet/internal/repository"
	"github.com/hitoshi/cardmeet/internal/security"
	"github.com/hitoshi/cardmeet/internal/snapshot"
	"github.com/hitoshi/cardmeet/internal/user"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// migrateBootstrapper はhandler.Bootstrapperをdatabase.Bootstrapで実装する。
type migrateBootstrapper struct {
	databaseURL string
}

func (b *migrateBootstrapper) Bootstrap() error {
	return database.Bootstrap(b.databaseURL)
}

// runServe はAPIサーバーモードで起動する。
//
// ストレージの構成はDATABASE_URLの有無で決まる。
//   - 設定あり: PostgreSQLを主系とし、インメモリミラー＋ファイルスナップ
//     ショットへのフォールバックを備えたFailoverStoreを構成する。
//   - 設定なし: インメモリミラー＋ファイルスナップショットのみで動作する。
//
// 主系DBが起動時に到達不能でもサーバーは起動する。スキーマ初期化の失敗
// だけは縮退で隠さず、起動を中断する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 2. スナップショットストアとインメモリミラーの初期化
	snapStore := snapshot.NewStore(cfg.SnapshotPath)
	snapStore.SetSaveRecorder(collector)

	memStore, err := repository.NewMemoryStore(snapStore)
	if err != nil {
		return fmt.Errorf("failed to initialize memory store: %w", err)
	}

	slog.Info("snapshot store initialized", slog.String("path", snapStore.Path()))

	// 3. リレーショナルバックエンドの構成（任意）
	var store repository.Store = memStore
	var bootstrapper handler.Bootstrapper

	if cfg.RelationalConfigured() {
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if pingErr := db.Ping(); pingErr != nil {
			// 主系が落ちていても起動は継続する。以降の操作はフォールバックが受ける。
			slog.Warn("primary database unreachable at startup",
				slog.String("error", pingErr.Error()),
			)
		} else {
			// スキーマ初期化は冪等。失敗した場合のみ起動を中断する。
			if err := database.Bootstrap(cfg.DatabaseURL); err != nil {
				return fmt.Errorf("schema bootstrap failed: %w", err)
			}
			slog.Info("database connection established")
		}

		store = repository.NewFailoverStore(
			repository.NewPostgresStore(db), memStore, cfg.StoreTimeout, collector,
		)
		bootstrapper = &migrateBootstrapper{databaseURL: cfg.DatabaseURL}
	} else {
		slog.Info("no DATABASE_URL configured, running on snapshot-backed store only")
	}

	// 4. ドメインサービスの初期化
	sanitizer := security.NewContentSanitizer()
	eventService := event.NewService(store, sanitizer)
	participantService := participant.NewService(store, collector)
	userService := user.NewService(store)

	// 5. 認証サービスの初期化
	sessions := auth.NewSessionStore()
	defer sessions.Stop()

	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	authService := auth.NewService(
		oauthProvider, userService, sessions,
		auth.ServiceConfig{
			SessionMaxAge:     cfg.SessionMaxAge,
			AdminPasswordHash: cfg.AdminPasswordHash,
		},
	)

	// 6. レートリミッターの構築（configはreq/min単位、rate.Limitはreq/sec単位）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.JoinRate = rate.Limit(float64(cfg.RateLimitJoin) / 60.0)
	rateLimiterCfg.JoinBurst = cfg.RateLimitJoin

	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	// 7. ルーターの構築
	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		SessionFinder:     authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		StatusRecorder:    collector,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		EventService: eventService,

		ParticipantService: participantService,
		UserResolver:       userService,

		AdminEventService: eventService,
		AdminUserService:  userService,
		Bootstrapper:      bootstrapper,

		MetricsHandler: metrics.Handler(registry),
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベーススキーマの初期化を実行する。
// DDLは冪等（CREATE TABLE IF NOT EXISTS 相当）のため、何度実行しても安全。
func runMigrate(cfg *config.Config) error {
	if !cfg.RelationalConfigured() {
		return fmt.Errorf("DATABASE_URL is not configured")
	}

	slog.Info("running schema bootstrap",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.Bootstrap(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("schema bootstrap failed: %w", err)
	}

	slog.Info("schema bootstrap completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
