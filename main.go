package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slotbook/config"
	"slotbook/cron"
	"slotbook/database"
	"slotbook/handlers"
	"slotbook/middleware"
	"slotbook/routes"
	"slotbook/services/booking"
	"slotbook/services/payment"
	"slotbook/services/reconcile"
	"slotbook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger := utils.GetLogger()
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("main: invalid configuration", zap.Error(err))
	}
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	utils.InitCache()
	cache := utils.GetCacheClient()

	stores, err := database.OpenStores(cfg)
	if err != nil {
		logger.Fatal("main: failed to open store", zap.Error(err))
	}
	logger.Info("main: store ready", zap.String("driver", stores.Driver))

	// reconciliation.
	ledger := reconcile.NewRedisLedger(cache)
	canceller := &reconcile.Canceller{
		Bookings: stores.Bookings,
		Slots:    stores.Slots,
		Ledger:   ledger,
		Logger:   logger.Named("canceller"),
	}
	locator := &reconcile.Locator{
		Bookings:     stores.Bookings,
		InitialDelay: cfg.WebhookInitialDelay,
		RetryDelay:   cfg.WebhookRetryDelay,
		MaxAttempts:  cfg.WebhookMaxAttempts,
		Logger:       logger.Named("locator"),
	}
	processor := &reconcile.WebhookProcessor{
		Bookings:  stores.Bookings,
		Locator:   locator,
		Canceller: canceller,
		Ledger:    ledger,
		Claims:    ledger,
		Logger:    logger.Named("webhook"),
	}
	sweeper := &reconcile.Sweeper{
		Bookings:   stores.Bookings,
		Canceller:  canceller,
		StaleAfter: cfg.SweepStaleAfter,
		Logger:     logger.Named("sweeper"),
	}

	// services.
	bookingService := &booking.DefaultBookingService{
		Bookings:       stores.Bookings,
		Slots:          stores.Slots,
		Canceller:      canceller,
		Ledger:         ledger,
		Logger:         logger.Named("booking"),
		SlotLabels:     cfg.Slots(),
		CheckoutSecret: cfg.RazorpayKeySecret,
	}
	orderService := payment.NewOrderService(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.DefaultCurrency, logger.Named("orders"))
	if !cfg.HasGatewayCredentials() {
		logger.Warn("main: Razorpay key id/secret not set; order creation will fail")
	}

	healthCtx, stopHealth := context.WithCancel(context.Background())
	defer stopHealth()
	utils.StartHealthMonitor(healthCtx, cache, stores.Ping)

	worker, err := cron.InitSweepWorker(cfg, sweeper, logger.Named("cron"))
	if err != nil {
		logger.Error("main: sweep worker not started", zap.Error(err))
	}

	webhookHandler := handlers.NewWebhookHandler(processor, cfg.RazorpayWebhookSecret)
	orderHandler := handlers.NewOrderHandler(orderService, cfg.RazorpayKeySecret)
	bookingHandler := handlers.NewBookingHandler(bookingService)
	adminHandler := handlers.NewAdminHandler(bookingService, sweeper)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		RazorpayWebhookHandler: webhookHandler.RazorpayWebhookHandler,
		WebhookStatusHandler:   webhookHandler.WebhookStatusHandler,
		CreateOrderHandler:     orderHandler.CreateRazorpayOrderHandler,
		VerifyPaymentHandler:   orderHandler.VerifyPaymentHandler,

		CreateBookingHandler:  bookingHandler.CreateBookingHandler,
		GetSlotsHandler:       bookingHandler.GetSlotsHandler,
		BookingStatusHandler:  bookingHandler.BookingStatusHandler,
		ReleaseBookingHandler: bookingHandler.ReleaseBookingHandler,

		ListBookingsHandler: adminHandler.ListBookingsHandler,
		SweepHandler:        adminHandler.SweepHandler,

		HealthHandler: handlers.HealthHandler(func(ctx context.Context) utils.HealthStatus {
			return utils.CheckHealth(ctx, cache, stores.Ping)
		}),
	}

	// Create the Gin router.
	router := gin.New()
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin, routes.WebhookPath))

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	// Webhook lookups can wait out their full retry budget before answering.
	ctx, cancel := context.WithTimeout(context.Background(), locator.MaxWait()+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	if worker != nil {
		worker.Shutdown()
	}
	stopHealth()
	if err := stores.Close(ctx); err != nil {
		logger.Warn("main: failed to close store", zap.Error(err))
	}
	if err := cache.Close(); err != nil {
		logger.Warn("main: failed to close redis", zap.Error(err))
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
