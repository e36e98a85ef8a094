package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	cfgPkg "feedback-relay-go/config"
	"feedback-relay-go/internal/connector"
	"feedback-relay-go/internal/connector/gmail"
	"feedback-relay-go/internal/connector/helpscout"
	"feedback-relay-go/internal/connector/imap"
	"feedback-relay-go/internal/database"
	handlerPkg "feedback-relay-go/internal/handler"
	"feedback-relay-go/internal/llm"
	metricsPkg "feedback-relay-go/internal/metrics"
	"feedback-relay-go/internal/model"
	"feedback-relay-go/internal/repository"
	"feedback-relay-go/internal/router"
	"feedback-relay-go/internal/service/classifier"
	"feedback-relay-go/internal/service/contact"
	"feedback-relay-go/internal/service/matcher"
	"feedback-relay-go/internal/service/pipeline"
	schedulerPkg "feedback-relay-go/internal/service/scheduler"
)

func main() {
	// Configure logging
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting Feedback Relay Service")

	// Load configuration
	cfg, err := cfgPkg.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Configuration validation failed: %v", err)
	}

	// Initialize database
	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	repo := repository.New(db)

	metrics := metricsPkg.NewMetrics(prometheus.DefaultRegisterer)

	// Language model and the services built on it
	completer, err := llm.New(cfg.LLM)
	if err != nil {
		logrus.Fatalf("Failed to create LLM client: %v", err)
	}
	classify := classifier.New(completer)
	match := matcher.New(repo, completer, cfg.Pipeline.MatchCandidateLimit)
	contacts := contact.NewResolver(repo)

	// Channel adapters
	registry := connector.NewRegistry()
	registry.Register(model.ChannelGmail, gmail.Builder(cfg.Gmail))
	registry.Register(model.ChannelIMAP, imap.Builder(cfg.IMAP))
	registry.Register(model.ChannelHelpScout, helpscout.Builder(cfg.HelpScout))

	dispatcher := pipeline.NewDispatcher(classify, registry, metrics, pipeline.DispatcherConfig{
		Workers:   cfg.Pipeline.DraftWorkers,
		QueueSize: cfg.Pipeline.DraftQueueSize,
		Timeout:   cfg.Pipeline.DraftTimeout,
	})
	orchestrator := pipeline.NewOrchestrator(repo, classify, match, contacts, dispatcher, metrics)
	syncer := pipeline.NewSyncer(repo, registry, orchestrator, metrics, cfg.Pipeline.BackfillLimit)

	scheduler := schedulerPkg.New(&cfg.Scheduler, syncer)

	handlers := handlerPkg.NewHandlers(repo, syncer, scheduler, handlerPkg.Options{
		HelpScoutWebhookSecret: cfg.HelpScout.WebhookSecret,
		BackfillLimit:          cfg.Pipeline.BackfillLimit,
	})

	// Setup HTTP server
	r := router.SetupRouter(handlers)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.Scheduler.Enabled {
		if err := scheduler.Start(); err != nil {
			logrus.Fatalf("Failed to start scheduler: %v", err)
		}
	}

	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := scheduler.Stop(); err != nil {
		logrus.Errorf("Failed to stop scheduler: %v", err)
	}
	scheduler.Wait()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	// Pending drafts are finished before exit
	dispatcher.Stop()

	logrus.Info("Server stopped gracefully")
}
