package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trading-academy-platform/internal/config"
	"trading-academy-platform/internal/domain/ports/adapter"
	pg "trading-academy-platform/internal/infra/db/postgres"
	"trading-academy-platform/internal/infra/logging"
	"trading-academy-platform/internal/infra/mail"
	"trading-academy-platform/internal/infra/metrics"
	pay "trading-academy-platform/internal/infra/payment"
	red "trading-academy-platform/internal/infra/redis"
	"trading-academy-platform/internal/infra/sched"
	"trading-academy-platform/internal/infra/web"
	"trading-academy-platform/internal/infra/worker"
	"trading-academy-platform/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed checks)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	stateRepo := red.NewFlowStateRepo(redisClient, cfg.Redis.TTL)

	// ---- Repositories ----
	txManager := pg.NewTxManager(pool)
	enrollmentRepo := pg.NewEnrollmentRepo(pool)
	subscriptionRepo := pg.NewSubscriptionRepo(pool)
	courseAccessRepo := pg.NewCourseAccessRepo(pool)
	userRepo := pg.NewUserRepo(pool)
	webhookEventRepo := pg.NewWebhookEventRepo(pool)
	templateRepo := pg.NewEmailTemplateRepo(pool)
	emailLogRepo := pg.NewEmailLogRepo(pool)
	emailJobRepo := pg.NewEmailJobRepo(pool)
	leadRepo := pg.NewLeadRepo(pool)

	// ---- Payment gateways ----
	gateways := map[string]adapter.PaymentGateway{}
	if cfg.Stripe.SecretKey != "" {
		gw := pay.NewStripeGateway(cfg.Stripe.SecretKey)
		gateways[gw.Name()] = gw
		logger.Info().Msg("stripe gateway configured")
	}
	if cfg.Cashfree.AppID != "" {
		gw := pay.NewCashfreeGateway(cfg.Cashfree.AppID, cfg.Cashfree.SecretKey,
			cfg.Cashfree.Sandbox, cfg.Cashfree.ReturnURL, cfg.Cashfree.NotifyURL)
		gateways[gw.Name()] = gw
		logger.Info().Bool("sandbox", cfg.Cashfree.Sandbox).Msg("cashfree gateway configured")
	}

	// ---- Mailer ----
	mailer := mail.NewResendMailer(cfg.Email.ResendAPIKey)

	// ---- Use cases ----
	checkoutUC := usecase.NewCheckoutUseCase(stateRepo, enrollmentRepo, gateways, logger)
	notifUC := usecase.NewNotificationUseCase(templateRepo, emailLogRepo, emailJobRepo, mailer, usecase.NotificationDefaults{
		FromAddress:  cfg.Email.FromAddress,
		SupportEmail: cfg.Email.SupportEmail,
		SupportPhone: cfg.Email.SupportPhone,
		SiteURL:      cfg.Site.BaseURL,
	}, logger)
	reconcileUC := usecase.NewReconcileUseCase(enrollmentRepo, subscriptionRepo, courseAccessRepo,
		userRepo, webhookEventRepo, notifUC, txManager, logger)
	leadUC := usecase.NewLeadUseCase(leadRepo, logger)

	// ---- HTTP server ----
	authManager := web.NewAuthManager(cfg.Admin.JWTSecret, !cfg.Runtime.Dev, "", cfg.Admin.SessionTTL)
	srv := web.NewServer(checkoutUC, reconcileUC, notifUC, leadUC, web.WebhookSecrets{
		Stripe:   cfg.Stripe.WebhookSecret,
		Cashfree: cfg.Cashfree.WebhookSecret,
	}, cfg.Admin.APIKey, authManager, cfg.Runtime.Dev, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Workers ----
	pool2 := worker.NewPool(cfg.Workers.EmailWorkers, logger)
	pool2.Start(ctx)
	emailWorker := sched.NewEmailWorker(cfg.Workers.EmailPollInterval, cfg.Workers.EmailBatchSize,
		emailJobRepo, notifUC, pool2, logger)
	go func() { _ = emailWorker.Run(ctx) }()

	paymentReconciler := sched.NewPaymentReconciler(reconcileUC, enrollmentRepo, gateways,
		cfg.Workers.ReconcileInterval, cfg.Workers.ReconcileStale, logger)
	go func() { _ = paymentReconciler.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
	pool2.Stop()
}
