package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/lheureux/giftwish/internal/api"
	"github.com/lheureux/giftwish/internal/config"
	"github.com/lheureux/giftwish/internal/metrics"
	"github.com/lheureux/giftwish/internal/notify"
	"github.com/lheureux/giftwish/internal/repository/postgres"
	"github.com/lheureux/giftwish/internal/service"
	"github.com/lheureux/giftwish/pkg/logger"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel)
	l.Info("Starting giftwish...")

	// Database
	db, err := config.NewDatabase(cfg, l)
	if err != nil {
		l.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate("migrations"); err != nil {
		l.Fatalf("Failed to run migrations: %v", err)
	}

	// Repositories
	listRepo := postgres.NewListRepository(db.DB)
	itemRepo := postgres.NewItemRepository(db.DB)
	reservationRepo := postgres.NewReservationRepository(db.DB)
	commentRepo := postgres.NewCommentRepository(db.DB)
	notificationRepo := postgres.NewNotificationRepository(db.DB)
	ledger := postgres.NewLedgerStore(db.DB)

	// Metrics
	m := metrics.New()

	// Notification side channel. Telegram delivery is optional; without a
	// token the dispatcher only writes the in-app feed.
	var sender notify.Sender
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegramSender(cfg.TelegramToken, cfg.TelegramChatID, l)
		if err != nil {
			l.Fatalf("Failed to create Telegram sender: %v", err)
		}
		sender = tg
	}

	// Confirmation mail carries the single-use token in confirm mode. Without
	// a relay configured, pending reservations cannot be redeemed.
	var mailer notify.ConfirmationMailer
	if cfg.SMTPAddr != "" {
		mailer = notify.NewSMTPMailer(cfg.SMTPAddr, cfg.SMTPFrom, cfg.PublicBaseURL)
	} else if cfg.ReservationMode == "confirm" {
		l.Warn("RESERVATION_MODE is confirm but SMTP_ADDR is not set; confirmation links will not be delivered")
	}
	dispatcher := notify.NewDispatcher(notificationRepo, listRepo, sender, mailer, l)

	// Service layer
	svc := service.New(
		service.Config{
			Mode:            service.ReservationMode(cfg.ReservationMode),
			ConfirmationTTL: cfg.ConfirmationTTL,
			SweepInterval:   cfg.SweepInterval,
		},
		l, m,
		listRepo, itemRepo, reservationRepo, commentRepo, notificationRepo,
		ledger, dispatcher,
	)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	// Start expiry sweeper for pending reservations
	go svc.StartExpirySweeper(ctx)

	// Start metrics server
	metricsServer := &http.Server{
		Addr:    ":" + cfg.PrometheusPort,
		Handler: m.Handler(),
	}
	go func() {
		l.Infof("Metrics server listening on :%s", cfg.PrometheusPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("Metrics server error: %v", err)
		}
	}()

	// Start HTTP API server
	apiServer := api.NewServer(svc, cfg.JWTSecret, l)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: apiServer.Handler(),
	}

	go func() {
		l.Infof("HTTP server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("HTTP server error: %v", err)
		}
	}()

	l.Info("giftwish started successfully")

	<-ctx.Done()

	l.Info("Shutting down HTTP server...")
	httpServer.Close()
	metricsServer.Close()

	l.Info("giftwish stopped")
}
