package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/laviebeauty/lavie-platform/internal/api/router"
	"github.com/laviebeauty/lavie-platform/internal/assistant"
	"github.com/laviebeauty/lavie-platform/internal/billing"
	"github.com/laviebeauty/lavie-platform/internal/booking"
	"github.com/laviebeauty/lavie-platform/internal/calendar"
	"github.com/laviebeauty/lavie-platform/internal/catalog"
	"github.com/laviebeauty/lavie-platform/internal/config"
	"github.com/laviebeauty/lavie-platform/internal/events"
	"github.com/laviebeauty/lavie-platform/internal/notify"
	"github.com/laviebeauty/lavie-platform/internal/observability/metrics"
	"github.com/laviebeauty/lavie-platform/internal/salon"
	"github.com/laviebeauty/lavie-platform/internal/scheduling"
	"github.com/laviebeauty/lavie-platform/internal/worker/calendarsync"
	"github.com/laviebeauty/lavie-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	location, err := time.LoadLocation(cfg.SalonTimezone)
	if err != nil {
		logger.Error("invalid salon timezone, falling back to UTC", "timezone", cfg.SalonTimezone, "error", err)
		location = time.UTC
	}

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("cannot create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, caching disabled", "addr", cfg.RedisAddr, "error", err)
			redisClient = nil
		}
	}

	slots, err := scheduling.NewSlotCalendar(cfg.SlotTimes)
	if err != nil {
		logger.Error("invalid slot times", "error", err)
		os.Exit(1)
	}

	// Repositories.
	salonRepo := salon.NewRepository(pool)
	catalogRepo := catalog.NewRepository(pool)
	bookingRepo := booking.NewRepository(pool)
	processedStore := events.NewProcessedStore(pool)

	salonStore := salon.NewStore(salonRepo, redisClient, logger)

	// Google Calendar mirror is optional. Without service-account credentials
	// availability still resolves against internal bookings only.
	var calendarClient *calendar.Client
	if cfg.GoogleClientEmail != "" && cfg.GooglePrivateKey != "" {
		calendarClient, err = calendar.NewClient(ctx, calendar.Credentials{
			ClientEmail: cfg.GoogleClientEmail,
			PrivateKey:  cfg.GooglePrivateKey,
		}, logger)
		if err != nil {
			logger.Error("cannot create calendar client", "error", err)
			os.Exit(1)
		}
		logger.Info("google calendar client ready", "client_email", cfg.GoogleClientEmail)
	} else {
		logger.Warn("google calendar credentials missing, external busy checks disabled")
	}

	var emailSender notify.EmailSender
	if cfg.SendGridAPIKey != "" {
		emailSender = notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
	} else {
		logger.Warn("sendgrid api key missing, emails are logged instead of sent")
		emailSender = notify.NewStubEmailSender(logger)
	}
	notifier := notify.NewService(emailSender, logger).WithBaseURL(cfg.PublicBaseURL)

	availabilityMetrics := metrics.NewAvailabilityMetrics(nil)
	bookingMetrics := metrics.NewBookingMetrics(nil)
	billingMetrics := metrics.NewBillingMetrics(nil)

	var busySource scheduling.BusySource
	if calendarClient != nil {
		busySource = calendarClient
	}
	availabilitySvc := scheduling.NewService(catalogRepo, bookingRepo, busySource, slots, location, logger, scheduling.ServiceOptions{
		Redis:               redisClient,
		CacheTTL:            cfg.AvailabilityCacheTTL,
		Metrics:             availabilityMetrics,
		WindowStart:         cfg.DayWindowStart,
		WindowEnd:           cfg.DayWindowEnd,
		DefaultDurationMins: cfg.DefaultDurationMins,
		Alerter:             notifier,
		Salons:              salonStore,
	})

	bookingOpts := booking.ServiceOptions{
		Notifier:    notifier,
		Invalidator: availabilitySvc,
		Metrics:     bookingMetrics,
	}
	if calendarClient != nil {
		bookingOpts.Events = calendarClient
	}
	bookingSvc := booking.NewService(bookingRepo, catalogRepo, slots.Times(), location, logger, bookingOpts)

	var chatSvc *assistant.Service
	if cfg.GeminiAPIKey != "" {
		llm, err := assistant.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("cannot create gemini client", "error", err)
			os.Exit(1)
		}
		defer llm.Close()
		chatSvc = assistant.NewService(llm, catalogRepo, bookingSvc, "La Vie Beauty", slots.Times(), location, logger, assistant.ServiceOptions{
			Redis:  redisClient,
			Salons: salonStore,
		})
	} else {
		logger.Warn("gemini api key missing, chat assistant disabled")
	}

	asaasClient := billing.NewAsaasClient(cfg.AsaasBaseURL, cfg.AsaasAPIKey)
	checkoutSvc := billing.NewCheckoutService(asaasClient, salonStore, billing.CheckoutConfig{
		ShineValue:   cfg.ShinePlanValue,
		GlamourValue: cfg.GlamourPlanValue,
		RefPrefix:    cfg.BillingRefPrefix,
	}, logger)

	routerCfg := &router.Config{
		Logger:              logger,
		CatalogHandler:      catalog.NewHandler(catalogRepo, logger),
		AvailabilityHandler: scheduling.NewHandler(availabilitySvc, logger),
		BookingHandler:      booking.NewHandler(bookingSvc, logger),
		CheckoutHandler:     billing.NewCheckoutHandler(checkoutSvc, logger),
		AsaasWebhook:        billing.NewWebhookHandler(salonStore, processedStore, cfg.BillingRefPrefix, billingMetrics, logger),
		MetricsHandler:      promhttp.Handler(),
		AdminAuthSecret:     cfg.AdminJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitPerSecond:  cfg.RateLimitRPS,
		RateLimitBurst:      cfg.RateLimitBurst,
	}
	if chatSvc != nil {
		routerCfg.ChatHandler = assistant.NewHandler(chatSvc, logger)
	}

	if cfg.CalendarSyncEnabled && calendarClient != nil {
		sweeper := calendarsync.NewWorker(salonRepo, bookingRepo, catalogRepo, calendarClient, logger).
			WithInterval(cfg.CalendarSyncInterval).
			WithWindowDays(cfg.CalendarSyncWindowDays).
			WithInvalidator(availabilitySvc)
		go sweeper.Start(ctx)
		routerCfg.SweepTrigger = func(w http.ResponseWriter, r *http.Request) {
			removed := sweeper.Sweep(r.Context())
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"removed":%d}`, removed)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.New(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.Env)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}
