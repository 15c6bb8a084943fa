package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/laviebeauty/lavie-platform/internal/assistant"
	"github.com/laviebeauty/lavie-platform/internal/billing"
	"github.com/laviebeauty/lavie-platform/internal/booking"
	"github.com/laviebeauty/lavie-platform/internal/catalog"
	httpmiddleware "github.com/laviebeauty/lavie-platform/internal/http/middleware"
	"github.com/laviebeauty/lavie-platform/internal/scheduling"
	"github.com/laviebeauty/lavie-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	CatalogHandler      *catalog.Handler
	AvailabilityHandler *scheduling.Handler
	BookingHandler      *booking.Handler
	ChatHandler         *assistant.Handler
	CheckoutHandler     *billing.CheckoutHandler
	AsaasWebhook        *billing.WebhookHandler
	SweepTrigger        http.HandlerFunc
	MetricsHandler      http.Handler
	AdminAuthSecret     string
	CORSAllowedOrigins  []string
	RateLimitPerSecond  float64
	RateLimitBurst      int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (webhooks, health checks)
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.AsaasWebhook != nil {
			public.Post("/webhooks/asaas", cfg.AsaasWebhook.Handle)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Tenant-scoped API routes
	r.Route("/api", func(api chi.Router) {
		api.Use(httpmiddleware.RequireSalonID)
		if cfg.RateLimitPerSecond > 0 {
			burst := cfg.RateLimitBurst
			if burst < 1 {
				burst = 1
			}
			api.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, burst))
		}

		if cfg.CatalogHandler != nil {
			api.Get("/services", cfg.CatalogHandler.ListServices)
			api.Get("/professionals", cfg.CatalogHandler.ListProfessionals)
		}
		if cfg.AvailabilityHandler != nil {
			api.Post("/availability", cfg.AvailabilityHandler.Availability)
		}
		if cfg.BookingHandler != nil {
			api.Post("/bookings", cfg.BookingHandler.Create)
		}
		if cfg.ChatHandler != nil {
			api.Post("/chat", cfg.ChatHandler.Chat)
		}
		if cfg.CheckoutHandler != nil {
			api.Post("/checkout", cfg.CheckoutHandler.Checkout)
		}
	})

	// Admin routes (protected by HMAC JWT)
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Use(httpmiddleware.RequireSalonID)

			if cfg.CatalogHandler != nil {
				admin.Post("/services", cfg.CatalogHandler.CreateService)
				admin.Delete("/services/{serviceID}", cfg.CatalogHandler.DeleteService)
				admin.Post("/professionals", cfg.CatalogHandler.CreateProfessional)
				admin.Delete("/professionals/{professionalID}", cfg.CatalogHandler.DeleteProfessional)
			}
			if cfg.BookingHandler != nil {
				admin.Get("/bookings", cfg.BookingHandler.ListForDay)
				admin.Post("/bookings/{bookingID}/cancel", cfg.BookingHandler.Cancel)
			}
			if cfg.SweepTrigger != nil {
				admin.Post("/calendar-sync/sweep", cfg.SweepTrigger)
			}
		})
	}

	return r
}
