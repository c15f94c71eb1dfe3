/*
Package server implements the application's network transport layer.
It initializes the HTTP server, configures timeouts, and wires the
in-memory store, the Gemini client and the handlers into the router.
*/
package server

import (
	"fmt"
	"net/http"
	"time"

	"Nutrimind/internal/config"
	"Nutrimind/internal/geminiservice"
	"Nutrimind/internal/nutrition"
	"Nutrimind/internal/store"
	"Nutrimind/internal/user"
	"Nutrimind/internal/utility"
	"github.com/rs/zerolog/log"
)

// Server defines the configuration and dependencies for the HTTP service.
type Server struct {
	cfg *config.Config

	// store holds profiles, food logs and mind sessions.
	store store.Service

	// ai is nil-safe: an unconfigured client turns AI routes into 503s.
	ai user.AIService

	hub     *utility.Hub
	handler *user.Handler

	startTime time.Time
}

// New assembles a Server from its dependencies.
func New(cfg *config.Config, st store.Service, ai user.AIService) (*Server, error) {
	calc, err := nutrition.NewCalculator(cfg.ProteinFactor)
	if err != nil {
		return nil, err
	}

	hub := utility.NewHub()
	return &Server{
		cfg:   cfg,
		store: st,
		ai:    ai,
		hub:   hub,
		handler: user.NewHandler(st, ai, calc, hub, user.Options{
			MaxUploadBytes: cfg.MaxUploadBytes,
			MindMaxTurns:   cfg.MindMaxTurns,
		}),
		startTime: time.Now(),
	}, nil
}

// NewServer builds the Gemini client and returns a configured *http.Server.
func NewServer(cfg *config.Config, st store.Service) (*http.Server, error) {
	ai := geminiservice.NewClient(cfg.Gemini)
	if !ai.Configured() {
		log.Warn().Msg("GEMINI_API_KEY is not set; food analysis, mind chat and AI insights are disabled")
	}

	app, err := New(cfg, st, ai)
	if err != nil {
		return nil, err
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      app.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  15 * time.Second,
		// Photo analysis and chat turns wait on the model, retries included.
		WriteTimeout: cfg.Gemini.Timeout*time.Duration(cfg.Gemini.MaxRetries+1) + 15*time.Second,
	}

	return server, nil
}
