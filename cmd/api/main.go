// Package main is the entry point for the widget backend API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	storage_go "github.com/supabase-community/storage-go"
	"go.uber.org/zap"

	"github.com/longhornrumble/widget-backend/internal/config"
	"github.com/longhornrumble/widget-backend/internal/engine"
	"github.com/longhornrumble/widget-backend/internal/fulfill"
	"github.com/longhornrumble/widget-backend/internal/handler"
	"github.com/longhornrumble/widget-backend/internal/llm"
	"github.com/longhornrumble/widget-backend/internal/middleware"
	natsclient "github.com/longhornrumble/widget-backend/internal/nats"
	"github.com/longhornrumble/widget-backend/internal/orchestrator"
	"github.com/longhornrumble/widget-backend/internal/retrieval"
	"github.com/longhornrumble/widget-backend/internal/store"
	"github.com/longhornrumble/widget-backend/internal/tenant"
	"github.com/longhornrumble/widget-backend/pkg/logger"
	"github.com/longhornrumble/widget-backend/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting widget backend")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "widget-backend", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to NATS
	nc, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer nc.Close()

	streamManager := natsclient.NewStreamManager(nc)
	if err := streamManager.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure stream", zap.Error(err))
		os.Exit(1)
	}

	// Submission store. Redis in production, memory when unconfigured.
	var st store.Store
	if cfg.RedisAddr != "" {
		st = store.NewRedisStore(redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}))
	} else {
		log.Warn("REDIS_ADDR not set, submissions will not survive restarts")
		st = store.NewInMemoryStore()
	}
	defer st.Close()

	// Tenant configuration resolver
	tenantStore, err := tenant.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseAPIKey)
	if err != nil {
		log.Error("failed to create tenant store", zap.Error(err))
		os.Exit(1)
	}
	resolver := tenant.NewResolver(tenantStore, cfg.ConfigCacheTTL, log)

	// Knowledge retrieval, optional
	var retriever *retrieval.Retriever
	if cfg.QdrantURL != "" && cfg.OpenAIAPIKey != "" {
		embedder, err := retrieval.NewOpenAIEmbedder(cfg.OpenAIAPIKey)
		if err != nil {
			log.Warn("failed to create embedder, retrieval disabled", zap.Error(err))
		} else {
			searcher, err := retrieval.NewQdrantSearcher(cfg.QdrantURL, cfg.QdrantAPIKey)
			if err != nil {
				log.Warn("failed to create qdrant client, retrieval disabled", zap.Error(err))
			} else {
				retriever = retrieval.NewRetriever(embedder, searcher, cfg.RetrievalCacheTTL, log)
			}
		}
	} else {
		log.Info("retrieval not configured, answers will use tenant config only")
	}

	// LLM client
	apiKey := cfg.AnthropicAPIKey
	if llm.Provider(cfg.DefaultLLM) == llm.ProviderOpenAI {
		apiKey = cfg.OpenAIAPIKey
	}
	llmClient, err := llm.NewClient(llm.Provider(cfg.DefaultLLM), apiKey)
	if err != nil {
		log.Error("failed to create LLM client", zap.Error(err))
		os.Exit(1)
	}

	// Fulfillment
	archiver := fulfill.NewSupabaseArchiver(storage_go.NewClient(
		cfg.SupabaseURL+"/storage/v1", cfg.SupabaseAPIKey, nil))
	router := fulfill.NewRouter(
		st,
		fulfill.NewSMSLimiter(st, cfg.SMSMonthlyLimit, log),
		fulfill.NewHTTPEmailSender(cfg.EmailAPIURL, cfg.EmailAPIKey, cfg.EmailFrom),
		fulfill.NewHTTPSMSSender(cfg.SMSAPIURL, cfg.SMSAPIKey, cfg.SMSFrom),
		fulfill.NewHTTPWebhookSender(),
		natsclient.NewInvoker(nc),
		archiver,
		log,
	)

	orch := orchestrator.New(resolver, retriever, llmClient, engine.New(log), router, streamManager, log)

	// Handlers
	healthHandler := handler.NewHealthHandler(nc, st)
	turnHandler := handler.NewTurnHandler(orch, log)
	submissionHandler := handler.NewSubmissionHandler(st)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Tenant-Handle"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Widget endpoint, public but rate limited
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
			r.Post("/turn", turnHandler.Turn)
		})

		// Admin surface
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))
			r.Get("/submissions/{id}", submissionHandler.Get)
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
