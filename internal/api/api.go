// Package api provides HTTP handlers and the main API server logic for NatureScripts.
//
// It exposes RESTful endpoints for the onboarding dialogue, the live
// consultation chat, protocol generation and retrieval, and usage counters.
// Handlers are thin: all conversation and parsing logic lives in the flow
// package.
package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/joelbyler272/naturescripts-sub000/internal/flow"
	"github.com/joelbyler272/naturescripts-sub000/internal/genai"
	"github.com/joelbyler272/naturescripts-sub000/internal/store"
)

// DefaultAddr is the default API listen address.
const DefaultAddr = ":8080"

// Opts holds API server configuration.
type Opts struct {
	Addr            string
	AmazonTag       string
	IHerbCode       string
	EmailMaxRetries int
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithAffiliateTags sets the storefront affiliate identifiers.
func WithAffiliateTags(amazonTag, iherbCode string) Option {
	return func(o *Opts) { o.AmazonTag = amazonTag; o.IHerbCode = iherbCode }
}

// WithEmailMaxRetries overrides the onboarding email retry cap.
func WithEmailMaxRetries(n int) Option {
	return func(o *Opts) { o.EmailMaxRetries = n }
}

// Server wires the flows, store, and HTTP handlers together.
type Server struct {
	st           store.Store
	onboarding   *flow.OnboardingFlow
	consultation *flow.ConsultationFlow
	generator    *flow.ProtocolGenerator
	addr         string
}

// NewServer builds a Server from already-constructed dependencies.
func NewServer(st store.Store, onboarding *flow.OnboardingFlow, consultation *flow.ConsultationFlow, generator *flow.ProtocolGenerator, addr string) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{
		st:           st,
		onboarding:   onboarding,
		consultation: consultation,
		generator:    generator,
		addr:         addr,
	}
}

// Run builds all modules from options and serves the API. It blocks until
// the HTTP server exits.
func Run(storeOpts []store.Option, genaiOpts []genai.Option, apiOpts []Option) error {
	// A retry cap of 0 is meaningful (re-prompt forever), so the default is
	// seeded before options apply rather than patched afterwards.
	cfg := Opts{EmailMaxRetries: flow.DefaultEmailMaxRetries}
	for _, opt := range apiOpts {
		opt(&cfg)
	}

	st, err := store.New(storeOpts...)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	genaiClient, err := genai.NewClient(genaiOpts...)
	if err != nil {
		return fmt.Errorf("failed to create GenAI client: %w", err)
	}

	stateManager := flow.NewStoreBasedStateManager(st)
	engine := flow.NewEngineWithEmailRetries(cfg.EmailMaxRetries)
	enricher := flow.NewAffiliateEnricher(flow.AffiliateConfig{AmazonTag: cfg.AmazonTag, IHerbCode: cfg.IHerbCode})
	parser := flow.NewProtocolParser(enricher)

	onboarding := flow.NewOnboardingFlow(stateManager, genaiClient, engine, st)
	consultation := flow.NewConsultationFlow(stateManager, genaiClient, st)
	generator := flow.NewProtocolGenerator(stateManager, genaiClient, parser, st, st)

	server := NewServer(st, onboarding, consultation, generator, cfg.Addr)
	defer func() {
		if err := st.Close(); err != nil {
			slog.Warn("Server.Run: failed to close store", "error", err)
		}
	}()

	slog.Info("NatureScripts API running", "addr", server.addr)
	return http.ListenAndServe(server.addr, server.Handler())
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/onboarding/message", s.onboardingMessageHandler)
	mux.HandleFunc("/consultation/message", s.consultationMessageHandler)
	mux.HandleFunc("/protocols/generate", s.generateHandler)
	mux.HandleFunc("/protocols", s.protocolsHandler)
	mux.HandleFunc("/usage", s.usageHandler)
	return mux
}
