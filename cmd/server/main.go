package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kindling-crm/be-donor-pipeline/internal/client"
	"github.com/kindling-crm/be-donor-pipeline/internal/config"
	"github.com/kindling-crm/be-donor-pipeline/internal/database"
	"github.com/kindling-crm/be-donor-pipeline/internal/handler"
	"github.com/kindling-crm/be-donor-pipeline/internal/logger"
	"github.com/kindling-crm/be-donor-pipeline/internal/middleware"
	natsclient "github.com/kindling-crm/be-donor-pipeline/internal/nats"
	"github.com/kindling-crm/be-donor-pipeline/internal/repository"
	"github.com/kindling-crm/be-donor-pipeline/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       os.Getenv("LOG_LEVEL"),
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting Donor Pipeline Service")

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		Database:    cfg.Database.Database,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		MaxConnTime: cfg.Database.MaxConnTime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Initialize NATS for notification events. An empty URL disables
	// publishing entirely; the service runs fine without it.
	var nc *natsclient.Client
	if cfg.NATS.URL != "" {
		nc, err = natsclient.Connect(cfg.NATS.URL, cfg.Service.Name)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		defer nc.Close()
		log.Info().Str("url", cfg.NATS.URL).Msg("NATS connection established")
	} else {
		log.Warn().Msg("NATS_URL not set, notification events disabled")
	}
	publisher := client.NewNotificationPublisher(nc, log.Logger)

	// Initialize repositories
	pledgeRepo := repository.NewPledgeRepository(db)
	journalRepo := repository.NewJournalRepository(db)
	stageEventRepo := repository.NewStageEventRepository(db)
	decisionRepo := repository.NewDecisionRepository(db)
	decisionHistoryRepo := repository.NewDecisionHistoryRepository(db)
	nextStepRepo := repository.NewNextStepRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	// Initialize services
	pledgeService := service.NewPledgeService(pledgeRepo, publisher, log, cfg.Donor.GracePeriodDays)
	journalService := service.NewJournalService(journalRepo, stageEventRepo, nextStepRepo, publisher, log)
	decisionService := service.NewDecisionService(decisionRepo, decisionHistoryRepo, journalRepo, publisher, log)
	dashboardService := service.NewDashboardService(pledgeRepo, activityRepo, log,
		cfg.Donor.GracePeriodDays, cfg.Donor.AtRiskThresholdDays, cfg.Donor.AttentionPreviewLimit)

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(pledgeService, journalService, decisionService, dashboardService, log)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", httpHandler.Health)

	// Pledge routes
	mux.HandleFunc("/api/v1/pledges", httpHandler.Pledges)
	mux.HandleFunc("/api/v1/pledges/get", httpHandler.GetPledge)
	mux.HandleFunc("/api/v1/pledges/status", httpHandler.ChangePledgeStatus)
	mux.HandleFunc("/api/v1/pledges/link-gift", httpHandler.LinkGift)
	mux.HandleFunc("/api/v1/pledges/delete", httpHandler.DeletePledge)

	// Journal / stage event routes
	mux.HandleFunc("/api/v1/journals/events", httpHandler.RecordEvent)
	mux.HandleFunc("/api/v1/journals/events/list", httpHandler.ListEvents)
	mux.HandleFunc("/api/v1/journals/board", httpHandler.Board)
	mux.HandleFunc("/api/v1/journals/transition-check", httpHandler.TransitionCheck)

	// Decision routes
	mux.HandleFunc("/api/v1/decisions", httpHandler.CreateDecision)
	mux.HandleFunc("/api/v1/decisions/get", httpHandler.GetDecision)
	mux.HandleFunc("/api/v1/decisions/update", httpHandler.UpdateDecision)
	mux.HandleFunc("/api/v1/decisions/delete", httpHandler.DeleteDecision)
	mux.HandleFunc("/api/v1/decisions/history", httpHandler.DecisionHistory)

	// Next step routes
	mux.HandleFunc("/api/v1/next-steps", httpHandler.NextSteps)
	mux.HandleFunc("/api/v1/next-steps/update", httpHandler.UpdateNextStep)
	mux.HandleFunc("/api/v1/next-steps/complete", httpHandler.CompleteNextStep)
	mux.HandleFunc("/api/v1/next-steps/delete", httpHandler.DeleteNextStep)

	// Dashboard routes
	mux.HandleFunc("/api/v1/dashboard/attention", httpHandler.NeedsAttention)
	mux.HandleFunc("/api/v1/dashboard/late", httpHandler.LateDonations)
	mux.HandleFunc("/api/v1/dashboard/at-risk", httpHandler.AtRiskDonors)
	mux.HandleFunc("/api/v1/dashboard/thank-you", httpHandler.ThankYouQueue)

	// Apply middleware
	var h http.Handler = mux
	h = middleware.RequestID(h)
	h = middleware.Logger(&log.Logger)(h)
	h = middleware.Recovery(&log.Logger)(h)
	h = middleware.CORS([]string{"*"})(h)
	h = middleware.Timeout(30 * time.Second)(h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
