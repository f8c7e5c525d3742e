// Package router assembles the HTTP surface of the booking engine.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/alemendez13/sistema-ATU-sub000/internal/http/handlers"
	httpmiddleware "github.com/alemendez13/sistema-ATU-sub000/internal/http/middleware"
	"github.com/alemendez13/sistema-ATU-sub000/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger         *logging.Logger
	Availability   *handlers.AvailabilityHandler
	Bookings       *handlers.BookingHandler
	Inventory      *handlers.InventoryHandler
	Folios         *handlers.FolioHandler
	Catalog        *handlers.CatalogHandler
	MetricsHandler http.Handler

	CORSAllowedOrigins []string
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.NewOriginPolicy(cfg.CORSAllowedOrigins).Handler)
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitPerSecond > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Availability != nil {
		r.Get("/providers/{providerID}/availability", cfg.Availability.GetDaySheet)
	}

	if cfg.Bookings != nil {
		r.Route("/bookings", func(b chi.Router) {
			b.Post("/", cfg.Bookings.Create)
			b.Post("/{correlationID}/reschedule", cfg.Bookings.Reschedule)
			b.Post("/{correlationID}/cancel", cfg.Bookings.Cancel)
		})
	}

	if cfg.Inventory != nil {
		r.Post("/inventory/{sku}/deplete", cfg.Inventory.Deplete)
	}
	if cfg.Folios != nil {
		r.Post("/folios", cfg.Folios.Next)
	}

	r.Route("/admin", func(admin chi.Router) {
		if cfg.Catalog != nil {
			admin.Post("/catalog/services", cfg.Catalog.ImportServices)
			admin.Post("/catalog/providers", cfg.Catalog.ImportProviders)
		}
		if cfg.Bookings != nil {
			admin.Post("/lockout/{requester}/reset", cfg.Bookings.ResetLockout)
		}
	})

	return r
}
