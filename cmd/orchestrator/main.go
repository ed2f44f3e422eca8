package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/advisordesk/orchestrator/internal/assistant"
	"github.com/advisordesk/orchestrator/internal/auth"
	"github.com/advisordesk/orchestrator/internal/classifier"
	"github.com/advisordesk/orchestrator/internal/config"
	"github.com/advisordesk/orchestrator/internal/db"
	"github.com/advisordesk/orchestrator/internal/engine"
	"github.com/advisordesk/orchestrator/internal/httpapi"
	"github.com/advisordesk/orchestrator/internal/llm"
	"github.com/advisordesk/orchestrator/internal/resume"
	"github.com/advisordesk/orchestrator/internal/retrieval"
	"github.com/advisordesk/orchestrator/internal/rules"
	"github.com/advisordesk/orchestrator/internal/session"
	"github.com/advisordesk/orchestrator/internal/tools"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	dbClient, err := db.NewClient(&cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database client", zap.Error(err))
	}
	defer dbClient.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	sessions, err := session.NewManager(redisClient, logger)
	if err != nil {
		logger.Fatal("Failed to initialize session manager", zap.Error(err))
	}

	taskStore := db.NewTaskStore(dbClient, logger)
	adapters := tools.NewHTTPAdapters(&cfg.Adapters, logger)
	llmClient := llm.NewClient(&cfg.LLM, logger)
	retriever := retrieval.NewClient(&cfg.Retrieval, logger)

	eng := engine.New(taskStore, adapters, adapters, adapters, llmClient, cfg.Engine, logger)
	coordinator := resume.NewCoordinator(taskStore, eng, logger)

	ruleStore := rules.NewStore(dbClient, logger)
	evaluator := rules.NewEvaluator(ruleStore, adapters, adapters, logger)

	cls := classifier.New(logger)
	svc := assistant.NewService(cls, taskStore, eng, retriever, llmClient, sessions, cfg.Engine.MaxRetries, logger)

	verifier := auth.NewVerifier(cfg.Server.JWTSecret, logger)

	mux := http.NewServeMux()
	httpapi.NewHealthHandler(dbClient).RegisterRoutes(mux)
	httpapi.NewWebhookHandler(coordinator, evaluator, redisClient, cfg.Server.WebhookBearerToken, logger).RegisterRoutes(mux)

	authed := http.NewServeMux()
	httpapi.NewAssistantHandler(svc, logger).RegisterRoutes(authed)
	httpapi.NewTaskHandler(taskStore, logger).RegisterRoutes(authed)
	mux.Handle("/v1/assistant/", verifier.Middleware(authed))
	mux.Handle("/v1/tasks/", verifier.Middleware(authed))

	apiServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: metricsMux,
	}

	go func() {
		logger.Info("Metrics server listening", zap.Int("port", cfg.Server.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("API server listening", zap.Int("port", cfg.Server.Port))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("API server failed", zap.Error(err))
		}
	}()

	// Periodic stale-waiting report. Tasks are never expired automatically;
	// this only surfaces ones an operator should look at.
	reportCtx, stopReport := context.WithCancel(context.Background())
	defer stopReport()
	go staleWaitingReport(reportCtx, taskStore, cfg.Engine.StaleAfter, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown failed", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Metrics server shutdown failed", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// staleWaitingReport periodically logs waiting tasks that have sat past the
// configured cutoff.
func staleWaitingReport(ctx context.Context, store *db.TaskStore, staleAfter time.Duration, logger *zap.Logger) {
	if staleAfter <= 0 {
		return
	}
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stale, err := store.ListStaleWaiting(ctx, time.Now().UTC().Add(-staleAfter))
			if err != nil {
				logger.Error("Stale-waiting report failed", zap.Error(err))
				continue
			}
			for _, t := range stale {
				logger.Warn("Task waiting past cutoff",
					zap.String("task_id", t.ID.String()),
					zap.String("user_id", t.UserID),
					zap.Time("updated_at", t.UpdatedAt),
				)
			}
		}
	}
}
