// Package httpapi provides the HTTP ingest chassis for the CardCast notifier.
// It creates a chi router that accepts raw SNS HTTPS deliveries, so the
// notifier can run as a long-lived container behind an SNS HTTPS subscription
// instead of as a Lambda target. Cross-cutting concerns (panic recovery,
// request correlation, logging) are enforced before requests reach the
// ingest handler.
package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cardcast/internal/config"
	"cardcast/internal/notify"
	"cardcast/internal/security"
)

// Server encapsulates the dependencies of the ingest API, allowing injection
// during testing and distinct configuration for different environments.
type Server struct {
	Config   *config.Config
	Notifier *notify.Notifier
	Logger   *slog.Logger

	// confirmClient performs SNS SubscribeURL confirmations. It carries the
	// same SSRF protections as the delivery client because the URL arrives in
	// an unauthenticated request body.
	confirmClient *http.Client

	router *chi.Mux
}

// NewServer validates dependencies and prepares the server for route
// mounting. The caller mounts routes via MountRoutes after construction; the
// separation lets tests customize route registration.
func NewServer(cfg *config.Config, notifier *notify.Notifier, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	confirmClient, err := security.NewSafeHTTPClient(cfg.Webhook.Timeout, cfg.Webhook.MaxRedirects)
	if err != nil {
		return nil, fmt.Errorf("creating confirmation client: %w", err)
	}

	return &Server{
		Config:        cfg,
		Notifier:      notifier,
		Logger:        logger,
		confirmClient: confirmClient,
		router:        chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler for the router, for use by
// http.ListenAndServe.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration and tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// SetConfirmClient replaces the subscription confirmation client. Tests use
// this to reach local endpoints the SSRF-safe client would refuse.
func (s *Server) SetConfirmClient(client *http.Client) {
	s.confirmClient = client
}
