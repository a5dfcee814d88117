package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/Harshitk-cp/orgbrain/internal/api/handlers"
	mw "github.com/Harshitk-cp/orgbrain/internal/api/middleware"
	"github.com/Harshitk-cp/orgbrain/internal/buildconfig"
	"github.com/Harshitk-cp/orgbrain/internal/domain"
	"github.com/Harshitk-cp/orgbrain/internal/embedding"
	"github.com/Harshitk-cp/orgbrain/internal/llm"
	"github.com/Harshitk-cp/orgbrain/internal/service"
	"github.com/Harshitk-cp/orgbrain/internal/speech"
	"github.com/Harshitk-cp/orgbrain/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Options configures the HTTP surface.
type Options struct {
	APIKey          string
	CORSOrigins     []string
	RateLimitRPS    float64
	RateLimitBurst  int
	StreamKeepAlive time.Duration
}

// App holds the router and background services for lifecycle management.
type App struct {
	Router       *chi.Mux
	Service      *service.ReasoningService
	Sweeper      *service.Sweeper
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(svc *service.ReasoningService, opts Options, logger *zap.Logger) *App {
	askHandler := handlers.NewAskHandler(svc, logger)
	knowledgeHandler := handlers.NewKnowledgeHandler(svc)
	traceHandler := handlers.NewTraceHandler(svc)
	graphHandler := handlers.NewGraphHandler(svc)
	streamHandler := handlers.NewStreamHandler(svc, opts.StreamKeepAlive, logger)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Service:   svc,
		Sweeper:   service.NewSweeper(svc, logger),
		startTime: time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", mw.APIKeyHeader, mw.EmployeeHeader, mw.RequestIDHeader},
		ExposedHeaders: []string{mw.RequestIDHeader},
		MaxAge:         300,
	}))

	// No credential
	r.Get("/health", healthHandler(svc))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/stats", app.statsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKey(opts.APIKey))
		r.Use(mw.Identity)
		r.Use(mw.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst))

		r.Post("/ask", askHandler.Ask)
		r.Post("/knowledge", knowledgeHandler.Ingest)

		r.Get("/traces", traceHandler.List)
		r.Get("/graph/snapshot", graphHandler.Snapshot)

		r.Route("/agents/{agent_id}", func(r chi.Router) {
			r.Get("/traces", traceHandler.ForAgent)
			r.Get("/graph/snapshot", graphHandler.AgentSnapshot)
		})

		r.Get("/decisions/current", graphHandler.Current(domain.KindDecision))
		r.Get("/decisions/{id}/history", graphHandler.History(domain.KindDecision))
		r.Get("/truth/current", graphHandler.Current(domain.KindTruth))
		r.Get("/truth/{id}/history", graphHandler.History(domain.KindTruth))

		r.Get("/stream", streamHandler.SSE)
		r.Get("/ws", streamHandler.WebSocket)
	})

	return app
}

func healthHandler(svc *service.ReasoningService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if !svc.GraphAvailable() {
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "graph": "disabled"})
			return
		}
		if err := svc.PingGraph(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "graph": "ok"})
	}
}

func (app *App) statsHandler() http.HandlerFunc {
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
			"traces":         app.Service.TraceCount(),
			"subscribers":    app.Service.SubscriberCount(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"build": buildconfig.Info(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.GraphStore        = (*store.GraphStore)(nil)
	_ domain.GraphStore        = (*store.MemoryGraph)(nil)
	_ domain.ConversationStore = (*store.GraphStore)(nil)
	_ domain.ConversationStore = (*store.MemoryGraph)(nil)
	_ domain.Retriever         = (*store.KnowledgeStore)(nil)
	_ domain.Retriever         = (*store.LexicalRetriever)(nil)
	_ domain.EmbeddingClient   = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient   = (*embedding.MockClient)(nil)
	_ domain.CompletionClient  = (*llm.OpenAIClient)(nil)
	_ domain.CompletionClient  = (*llm.AnthropicClient)(nil)
	_ domain.CompletionClient  = (*llm.BreakerClient)(nil)
	_ domain.CompletionClient  = (*llm.MockClient)(nil)
	_ domain.SpeechClient      = (*speech.ElevenLabsClient)(nil)
	_ domain.SpeechClient      = (*speech.MockClient)(nil)
)
