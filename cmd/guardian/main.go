package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/antoniostano/guardian/internal/audit"
	"github.com/antoniostano/guardian/internal/config"
	"github.com/antoniostano/guardian/internal/conversation"
	"github.com/antoniostano/guardian/internal/education"
	"github.com/antoniostano/guardian/internal/emotion"
	"github.com/antoniostano/guardian/internal/httpapi"
	"github.com/antoniostano/guardian/internal/observability"
	"github.com/antoniostano/guardian/internal/patterns"
	"github.com/antoniostano/guardian/internal/safety"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	catalog, err := patterns.Load(cfg.PatternsPath)
	if err != nil {
		log.Fatalf("pattern catalog init failed: %v", err)
	}
	matcher, err := patterns.NewMatcher(catalog, cfg.MatchEngine)
	if err != nil {
		log.Fatalf("match engine init failed: %v", err)
	}
	log.Printf("pattern catalog: %d categories, %s engine", catalog.Len(), cfg.MatchEngine)

	ctx := context.Background()
	auditStore, err := audit.NewStore(ctx, cfg.AuditDatabaseURL)
	if err != nil {
		log.Fatalf("audit store init failed: %v", err)
	}
	defer auditStore.Close()
	if cfg.AuditDatabaseURL == "" {
		log.Printf("audit store: in-memory (set GUARDIAN_AUDIT_DATABASE_URL for postgres)")
	} else {
		log.Printf("audit store: postgres")
	}

	sink := audit.NewAsyncSink(auditStore, cfg.AuditQueueSize,
		func() { metrics.AuditDropped.Inc() },
		func(err error) { log.Printf("audit: save event failed: %v", err) },
	)
	defer sink.Close()

	registry := conversation.NewRegistry(cfg.MaxHistoryTurns)

	engine, err := safety.NewEngine(
		safety.Config{
			ToxicityThreshold: cfg.ToxicityThreshold,
			HighRiskThreshold: cfg.HighRiskThreshold,
			CriticalThreshold: cfg.CriticalThreshold,
		},
		matcher,
		conversation.NewAnalyzer(registry, conversation.DefaultThresholds()),
		emotion.NewAnalyzer(),
		education.NewEvaluator(),
		sink,
		metrics,
		cfg.BatchConcurrency,
	)
	if err != nil {
		log.Fatalf("safety engine init failed: %v", err)
	}

	api := httpapi.New(cfg, engine, registry, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	registry.StartJanitor(runCtx, 30*time.Second, cfg.SessionIdleTimeout)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
