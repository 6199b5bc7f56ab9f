package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/veritaslabs/veritas/internal/api/handlers"
	mw "github.com/veritaslabs/veritas/internal/api/middleware"
	"github.com/veritaslabs/veritas/internal/buildconfig"
	"github.com/veritaslabs/veritas/internal/config"
	"github.com/veritaslabs/veritas/internal/embedding"
	"github.com/veritaslabs/veritas/internal/service"
	"github.com/veritaslabs/veritas/internal/store"
)

// App holds the router and request metrics.
type App struct {
	Router       *chi.Mux
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	argumentStore := store.NewArgumentStore(db)
	factStore := store.NewFactStore(db)
	linkStore := store.NewLinkStore(db)
	auditStore := store.NewAuditStore(db)

	// Embedding client via provider factory
	embeddingClient, err := embedding.NewClient(config.EmbeddingProvider(), config.EmbeddingAPIKey())
	if err != nil {
		logger.Warn("embedding client initialization failed",
			zap.String("provider", config.EmbeddingProvider()),
			zap.Error(err))
	} else {
		logger.Info("embedding client initialized", zap.String("provider", config.EmbeddingProvider()))
	}

	// Services
	argumentSvc := service.NewArgumentService(argumentStore, factStore, linkStore, auditStore, embeddingClient, logger)
	factSvc := service.NewFactService(factStore, linkStore, auditStore, embeddingClient, logger)

	// Threshold tunables from env, service defaults as fallback
	tunables := service.DefaultTunables()
	tunables.PropagationThreshold = config.PropagationThreshold(tunables.PropagationThreshold)
	tunables.PropagationDecay = config.PropagationDecay(tunables.PropagationDecay)
	tunables.MinPropagatedChange = config.MinPropagatedChange(tunables.MinPropagatedChange)
	tunables.SimilarityThreshold = config.SimilarityThreshold(tunables.SimilarityThreshold)
	tunables.ClusterThreshold = config.ClusterThreshold(tunables.ClusterThreshold)
	tunables.FactSimilarityThreshold = config.FactSimilarityThreshold(tunables.FactSimilarityThreshold)
	argumentSvc.Tunables = tunables
	factSvc.Tunables = tunables

	// Fact confidence changes cascade into the argument ledger.
	factSvc.SetRecalculator(argumentSvc)

	// Handlers
	argumentHandler := handlers.NewArgumentHandler(argumentSvc)
	factHandler := handlers.NewFactHandler(factSvc)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		startTime: time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/arguments", func(r chi.Router) {
			r.Post("/", argumentHandler.Create)
			r.Get("/top", argumentHandler.Top)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", argumentHandler.GetByID)
				r.Get("/cluster", argumentHandler.Cluster)
				r.Post("/confidence", argumentHandler.UpdateConfidence)
				r.Post("/support", argumentHandler.Support)
				r.Post("/refute", argumentHandler.Refute)
				r.Post("/links", argumentHandler.LinkToFact)
			})
		})

		r.Route("/facts", func(r chi.Router) {
			r.Post("/", factHandler.Create)
			r.Get("/search", factHandler.Search)
			r.Get("/low-confidence", factHandler.LowConfidence)
			r.Get("/established", factHandler.Established)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", factHandler.GetByID)
				r.Get("/arguments", factHandler.DependentArguments)
				r.Post("/challenge", factHandler.Challenge)
				r.Post("/cite", factHandler.Cite)
			})
		})
	})

	return app
}

// NewRouter returns just the chi.Mux.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(db, logger).Router
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"version": buildconfig.Version(),
			"commit":  buildconfig.Commit(),
		})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}
