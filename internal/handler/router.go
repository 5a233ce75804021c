package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/hashtrail/internal/metrics"
	"github.com/hitoshi/hashtrail/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// メトリクス（Gathererがnilの場合 /metrics は公開しない）
	Metrics         metrics.MetricsCollector
	MetricsGatherer prometheus.Gatherer

	RSVPService       RSVPServiceInterface
	AttendanceService AttendanceServiceInterface
	PhotoService      PhotoServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → Metrics → CORS
//	  認証ルート: → Session → CSRF → RateLimit(General) [→ RateLimit(Upload)]
//
// /health、/metrics、/api/csrf-token は認証不要。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mc := deps.Metrics
	if mc == nil {
		mc = metrics.NopCollector{}
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(mc))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	rsvpHandler := NewRSVPHandler(deps.RSVPService)
	attendanceHandler := NewAttendanceHandler(deps.AttendanceService)
	photoHandler := NewPhotoHandler(deps.PhotoService)

	// --- 認証不要のルート ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.SetupMetricsRoute(deps.MetricsGatherer))
	}
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/runs/{id}", func(r chi.Router) {
			r.Put("/rsvp", rsvpHandler.SetRSVP)
			r.Get("/rsvps", rsvpHandler.ListRSVPs)

			r.Post("/attendance", attendanceHandler.MarkAttended)
			r.Get("/attendance", attendanceHandler.ListAttendance)

			r.Route("/photos", func(r chi.Router) {
				r.Get("/", photoHandler.ListPhotos)
				// アップロードURL発行は専用レート制限を追加
				r.With(deps.RateLimiter.UploadMiddleware()).Post("/upload-url", photoHandler.RequestUploadURL)
				r.Post("/confirm", photoHandler.ConfirmUpload)
			})
		})
	})

	return r
}
