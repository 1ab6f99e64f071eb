package railstub

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/trainboard/internal/metrics"
	"github.com/hitoshi/trainboard/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Handler           *Handler
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// Metricsがnilの場合はステータス記録を行わない。
	Metrics metrics.MetricsCollector
	// Gathererがnilの場合は/metricsを公開しない。
	Gatherer prometheus.Gatherer
}

// NewRouter はモックバックエンドのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → Status(Metrics) → RateLimit
//
// /healthと/metricsはレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Metrics != nil {
		r.Use(metrics.NewStatusMiddleware(deps.Metrics))
	}

	r.Get("/health", deps.Handler.Health)
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}

		r.Get("/search_trains", deps.Handler.SearchTrains)
		r.Get("/pnr_status", deps.Handler.PNRStatus)
		r.Get("/live_status", deps.Handler.LiveStatus)
		r.Get("/fare_info", deps.Handler.FareInfo)
		r.Get("/seat_availability", deps.Handler.SeatAvailability)
	})

	return r
}
