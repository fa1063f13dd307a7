// Package router assembles the chi router for the assistant's HTTP surface.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/medagenda/or-assistant/internal/http/handlers"
	httpmiddleware "github.com/medagenda/or-assistant/internal/http/middleware"
	"github.com/medagenda/or-assistant/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger          *logging.Logger
	WhatsAppHandler *handlers.WhatsAppHandler
	MetricsHandler  http.Handler
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", cfg.WhatsAppHandler.HealthCheck)
	r.Post("/whatsapp", cfg.WhatsAppHandler.HandleMessage)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}
