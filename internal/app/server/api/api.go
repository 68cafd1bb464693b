// Package api собирает HTTP API сервера синхронизации:
//
//	GET  /api/v1/health     # Проверка живости (публичный)
//	POST /api/sync/batch    # Пакет осмотров с устройства
//	GET  /api/sync/status   # Агрегированный статус инспектора
//	GET  /metrics           # Prometheus
//	GET  /photos/*          # Сохраненные фотографии
package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"golang.org/x/exp/slog"

	healthAPI "vistoria/internal/app/server/api/http/health"
	"vistoria/internal/app/server/api/http/middleware"
	"vistoria/internal/app/server/api/http/middleware/logger"
	"vistoria/internal/app/server/api/http/middleware/ratelimit"
	syncAPI "vistoria/internal/app/server/api/http/sync"
	"vistoria/internal/app/server/config"
	"vistoria/internal/app/server/metrics"
	"vistoria/internal/domain/sync"
)

// Deps внешние зависимости API
type Deps struct {
	Repo    sync.Repository
	Blobs   sync.BlobStore
	DB      healthAPI.Pinger
	Metrics *metrics.Registry
}

type Handlers struct {
	Health *healthAPI.Handler
	Sync   *syncAPI.Handler
}

// New создает *chi.Mux со всеми операциями
func New(cfg *config.Config, deps Deps, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	mux.Handle("/metrics", deps.Metrics.Handler())

	if prefix := photosPath(cfg.Photos.PublicURL); prefix != "" && cfg.Photos.Dir != "" {
		mux.Handle(prefix+"/*", http.StripPrefix(prefix+"/", http.FileServer(http.Dir(cfg.Photos.Dir))))
	}

	humaConfig := huma.DefaultConfig("Vistoria Sync API", "1.0.0")
	API := humachi.New(mux, humaConfig)

	h := handlers(cfg, deps, log)
	h.Health.SetupRoutes(API)
	h.Sync.SetupRoutes(API)

	return mux
}

// photosPath путь, под которым сервер сам раздает фото; пусто, если
// публичный URL указывает на другой хост без пути
func photosPath(publicURL string) string {
	u, err := url.Parse(publicURL)
	if err != nil {
		return ""
	}
	p := strings.TrimRight(u.Path, "/")
	if !strings.HasPrefix(p, "/") {
		return ""
	}
	return p
}

func handlers(cfg *config.Config, deps Deps, log *slog.Logger) *Handlers {
	loggerMW := logger.New(log)
	limiter := ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, deps.Metrics.RateLimited, log)
	middlewares := middleware.NewContainer(loggerMW.Middleware())

	healthHandler := healthAPI.NewHandler(deps.DB, log, middlewares.GetAllAndClear())

	syncService := sync.NewService(deps.Repo, deps.Blobs, log, sync.ServiceConfig{
		Workers:        cfg.Sync.Workers,
		MaxBatch:       cfg.Sync.MaxBatch,
		StatusCacheTTL: cfg.Sync.StatusCacheTTL,
		MaxPhotoBytes:  cfg.Photos.MaxBytes,
	}, sync.WithRecorder(deps.Metrics))
	middlewares.Add(limiter.Middleware())
	syncHandler := syncAPI.NewHandler(syncService, log, middlewares.GetAllAndClear(), cfg.Sync.MaxBodyBytes)

	return &Handlers{
		Health: healthHandler,
		Sync:   syncHandler,
	}
}
