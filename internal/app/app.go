package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/hashtrail/internal/attendance"
	"github.com/hitoshi/hashtrail/internal/config"
	"github.com/hitoshi/hashtrail/internal/database"
	"github.com/hitoshi/hashtrail/internal/handler"
	"github.com/hitoshi/hashtrail/internal/logger"
	"github.com/hitoshi/hashtrail/internal/metrics"
	"github.com/hitoshi/hashtrail/internal/middleware"
	"github.com/hitoshi/hashtrail/internal/objectstore"
	"github.com/hitoshi/hashtrail/internal/photo"
	"github.com/hitoshi/hashtrail/internal/repository"
	"github.com/hitoshi/hashtrail/internal/repository/memory"
	"github.com/hitoshi/hashtrail/internal/rsvp"
	"github.com/hitoshi/hashtrail/internal/security"
	"github.com/hitoshi/hashtrail/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. .envの読み込み（LOG_LEVELを含むため最初に行う）
	if err := config.LoadEnvFile(".env"); err != nil {
		return nil, err
	}

	// 2. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 3. 環境変数から設定を読み込む
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
		slog.String("storage_backend", cfg.StorageBackend),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// backend はStorage GatewayとObject Storage Clientの実装一式。
// STORAGE_BACKENDに応じてPostgreSQL+S3かインメモリ実装のいずれかを組み立てる。
type backend struct {
	runs        repository.RunRepository
	users       repository.UserRepository
	sessions    repository.SessionRepository
	rsvps       repository.RSVPRepository
	attendances repository.AttendanceRepository
	photos      repository.PhotoRepository
	storage     objectstore.Storage

	// health はDB疎通確認。インメモリ構成ではnil。
	health handler.HealthChecker
	close  func() error
}

// openBackend は設定に応じたbackendを生成する。
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	if cfg.UseMemory() {
		return newMemoryBackend(cfg), nil
	}

	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established")

	// 2. オブジェクトストレージ
	storage, err := objectstore.New(ctx, objectstore.Config{
		Bucket:          cfg.S3BucketName,
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		Endpoint:        cfg.S3Endpoint,
		PublicBaseURL:   cfg.S3PublicBaseURL,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}
	if err := storage.CheckConfigured(); err != nil {
		// 写真以外の機能は動作するため起動は継続する
		slog.Warn("object storage is not configured; photo uploads will be rejected",
			slog.String("bucket", cfg.S3BucketName),
			slog.String("region", cfg.AWSRegion),
		)
	}

	// 3. リポジトリ
	return &backend{
		runs:        repository.NewPostgresRunRepo(db),
		users:       repository.NewPostgresUserRepo(db),
		sessions:    repository.NewPostgresSessionRepo(db),
		rsvps:       repository.NewPostgresRSVPRepo(db),
		attendances: repository.NewPostgresAttendanceRepo(db),
		photos:      repository.NewPostgresPhotoRepo(db),
		storage:     storage,
		health:      db,
		close:       db.Close,
	}, nil
}

// newMemoryBackend はインメモリのStoreとFakeストレージでbackendを組み立てる。
// データはプロセス終了時に失われる。
func newMemoryBackend(cfg *config.Config) *backend {
	store := memory.New()

	publicBase := cfg.S3PublicBaseURL
	if publicBase == "" {
		publicBase = strings.TrimRight(cfg.BaseURL, "/") + "/uploads"
	}

	slog.Warn("using in-memory storage backend; data is not persisted",
		slog.String("public_base_url", publicBase),
	)

	return &backend{
		runs:        store.Runs(),
		users:       store.Users(),
		sessions:    store.Sessions(),
		rsvps:       store.RSVPs(),
		attendances: store.Attendances(),
		photos:      store.Photos(),
		storage:     objectstore.NewFake(publicBase),
		close:       func() error { return nil },
	}
}

// newMetricsRegistry はアプリケーションとランタイムのメトリクスを登録したレジストリを返す。
func newMetricsRegistry() (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewCollector(reg)
}

// photoConfig は設定から写真サービスの設定を組み立てる。
func photoConfig(cfg *config.Config) photo.Config {
	policy := photo.ReconfirmAllow
	if !cfg.PhotoAllowReconfirm {
		policy = photo.ReconfirmReject
	}
	return photo.Config{
		UploadURLTTL: cfg.UploadURLTTL,
		Reconfirm:    policy,
	}
}

// newRouter はbackendからサービス・ハンドラーを構築してルーターを返す。
// 返されたRateLimiterは呼び出し側でStopする。
func newRouter(cfg *config.Config, b *backend, reg *prometheus.Registry, mc metrics.MetricsCollector, log *slog.Logger) (http.Handler, *middleware.RateLimiter) {
	// 1. ドメインサービスの初期化
	rsvpService := rsvp.NewService(b.runs, b.users, b.rsvps, mc)
	attendanceService := attendance.NewService(b.runs, b.users, b.attendances, mc)
	photoService := photo.NewService(
		b.runs, b.photos, b.storage, security.NewCaptionSanitizer(),
		photoConfig(cfg), mc, log,
	)

	// 2. ルーターの構築（レート制限はreq/min単位の設定から生成）
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitUpload),
	)

	deps := &handler.RouterDeps{
		HealthChecker:     b.health,
		SessionFinder:     b.sessions,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter:     rateLimiter,
		Logger:          log,
		Metrics:         mc,
		MetricsGatherer: reg,

		RSVPService:       handler.NewRSVPServiceAdapter(rsvpService),
		AttendanceService: handler.NewAttendanceServiceAdapter(attendanceService),
		PhotoService:      handler.NewPhotoServiceAdapter(photoService),
	}

	return handler.NewRouter(deps), rateLimiter
}

// runServe はAPIサーバーモードで起動する。
// backendを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	b, err := openBackend(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer b.close()

	reg, mc := newMetricsRegistry()
	router, rateLimiter := newRouter(cfg, b, reg, mc, slog.Default())
	defer rateLimiter.Stop()

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

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serverErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 確認されないまま放置された写真のクリーンアップジョブを定期実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	b, err := openBackend(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer b.close()

	_, mc := newMetricsRegistry()
	job := cleanup.NewCleanupJob(b.photos, b.storage, mc, slog.Default(), cleanup.Config{
		PendingTTL: cfg.PendingPhotoTTL,
		BatchSize:  cfg.CleanupBatchSize,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
		slog.Duration("pending_photo_ttl", cfg.PendingPhotoTTL),
		slog.Int("batch_size", cfg.CleanupBatchSize),
	)

	// クリーンアップジョブをメインgoroutineで実行（ブロッキング）
	job.Start(ctx, cfg.CleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.UseMemory() {
		slog.Info("in-memory storage backend; no migrations to run")
		return nil
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
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
