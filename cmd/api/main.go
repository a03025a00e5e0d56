package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/timmy/cropguard/internal/api"
	"github.com/timmy/cropguard/internal/classifier"
	"github.com/timmy/cropguard/internal/config"
	"github.com/timmy/cropguard/internal/knowledge"
	"github.com/timmy/cropguard/internal/logger"
	"github.com/timmy/cropguard/internal/metrics"
	"github.com/timmy/cropguard/internal/notify"
	"github.com/timmy/cropguard/internal/repository"
	"github.com/timmy/cropguard/internal/service"
	"github.com/timmy/cropguard/internal/staging"
	"github.com/timmy/cropguard/internal/storage"
)

func main() {
	log := logger.NewDefault()
	logger.SetDefaultLogger(log)
	defer logger.Sync()

	// CONFIG_PATH overrides the ./configs search for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}

	ctx := log.WithContext(context.Background())

	store, err := repository.Open(ctx, &cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer store.Close()

	registry := classifier.Load(ctx, cfg.Models)
	defer registry.Close()
	for kind, ok := range registry.Availability() {
		if !ok {
			log.WithField(logger.FieldModelType, kind).Warn("Model unavailable, requests for it will be rejected")
		}
	}

	area, err := staging.New(cfg.Staging.Dir)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize upload staging")
	}

	resolver, err := knowledge.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load disease knowledge base")
	}

	// Archive is optional; nil when disabled
	archive, err := storage.NewArchive(ctx, &cfg.Archive)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize upload archive")
	}

	notifier, err := notify.New(&cfg.Notify)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize notifier")
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m, err = metrics.New(prometheus.NewRegistry())
		if err != nil {
			log.WithError(err).Fatal("Failed to register metrics")
		}
	}

	predictions := repository.NewPredictionRepository(store)
	contacts := repository.NewContactRepository(store)

	deps := &api.Dependencies{
		Prediction: service.NewPredictionService(registry, area, resolver, predictions, archive, m),
		Feedback:   service.NewFeedbackService(repository.NewFeedbackRepository(store), m),
		Analytics: service.NewAnalyticsService(predictions, contacts, service.AnalyticsConfig{
			Version:         cfg.App.Version,
			ContactEmail:    cfg.Contact.Email,
			ContactWhatsApp: cfg.Contact.WhatsApp,
			Accuracy:        cfg.App.Accuracy,
		}),
		Contact: service.NewContactService(contacts, notifier, m, service.ContactConfig{
			DefaultSubject: cfg.Contact.DefaultSubject,
			WhatsApp:       cfg.Contact.WhatsApp,
		}),
		Registry:  registry,
		Knowledge: resolver,
		Metrics:   m,
		Logger:    log,
	}

	router := api.SetupRouter(deps, cfg)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.WithFields(logger.Fields{
			"port":           cfg.Server.Port,
			"mode":           cfg.Server.Mode,
			"schema_version": int(store.SchemaVersion()),
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server exited")
}
