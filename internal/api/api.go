// Package api provides HTTP handlers and the main API server logic for
// PitchPerfect.
//
// It exposes JSON endpoints for pitch analysis, phase-based coaching turns,
// phase evaluations, adaptive diagnostic questions, and personalized
// diagnostics. The API wires together the genai, phase, store, flow, and
// access modules.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/LukaSashic/PitchPerfect/internal/access"
	"github.com/LukaSashic/PitchPerfect/internal/flow"
	"github.com/LukaSashic/PitchPerfect/internal/genai"
	"github.com/LukaSashic/PitchPerfect/internal/phase"
	"github.com/LukaSashic/PitchPerfect/internal/store"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// defaultRequestTimeout bounds one handler invocation end to end. Analysis
// calls are the slowest flow, so the bound sits well above the model timeout.
const defaultRequestTimeout = 60 * time.Second

// Opts holds configuration options for the API server.
type Opts struct {
	Addr           string
	RequestTimeout time.Duration
	AccessProfiles access.ProfileSource
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address for the API server.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// WithRequestTimeout sets the per-request timeout for the API server.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Opts) {
		o.RequestTimeout = d
	}
}

// WithAccessProfiles sets the subscription profile source used for feature
// gating.
func WithAccessProfiles(profiles access.ProfileSource) Option {
	return func(o *Opts) {
		o.AccessProfiles = profiles
	}
}

// Server bundles the coaching engine and its collaborators behind HTTP
// handlers.
type Server struct {
	engine         *flow.Engine
	registry       *phase.Registry
	durable        store.Store
	fallback       store.Store
	accessCtl      *access.Controller
	requestTimeout time.Duration
}

// NewServer creates a Server over an already-wired engine. Used directly by
// tests; production callers go through Run.
func NewServer(engine *flow.Engine, registry *phase.Registry, durable, fallback store.Store, accessCtl *access.Controller, requestTimeout time.Duration) *Server {
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	return &Server{
		engine:         engine,
		registry:       registry,
		durable:        durable,
		fallback:       fallback,
		accessCtl:      accessCtl,
		requestTimeout: requestTimeout,
	}
}

// Handler returns the route table for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/analyze-pitch", s.analyzePitchHandler)
	mux.HandleFunc("/api/chat-turn", s.chatTurnHandler)
	mux.HandleFunc("/api/evaluate-phase", s.evaluatePhaseHandler)
	mux.HandleFunc("/api/generate-adaptive-question", s.generateQuestionHandler)
	mux.HandleFunc("/api/generate-diagnostic", s.generateDiagnosticHandler)
	mux.HandleFunc("/api/history", s.historyHandler)
	mux.HandleFunc("/api/reset-phase", s.resetPhaseHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Run builds the full server from configuration options and serves until the
// context is canceled or the listener fails.
//
// Store wiring is deliberately forgiving: the durable store is Postgres or
// SQLite depending on the DSN, and if it cannot be opened the server starts
// on the in-memory fallback alone rather than refusing to boot. A missing
// model credential likewise leaves the canned-payload paths working.
func Run(ctx context.Context, storeOpts []store.Option, genaiOpts []genai.Option, apiOpts []Option) error {
	var opts Opts
	for _, opt := range apiOpts {
		opt(&opts)
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}

	registry, err := phase.NewRegistry()
	if err != nil {
		return fmt.Errorf("failed to load phase catalog: %w", err)
	}

	durable := buildDurableStore(storeOpts)
	fallback := store.NewInMemoryStore()

	var client genai.ClientInterface
	c, err := genai.NewClient(genaiOpts...)
	if err != nil {
		slog.Warn("api.Run: model client unavailable, responses degrade to fallbacks", "error", err)
	} else {
		client = c
	}

	engine := flow.NewEngine(client, registry, durable, fallback)

	profiles := opts.AccessProfiles
	if profiles == nil {
		profiles = access.StaticProfiles{Assigned: access.TierPro}
	}
	srv := NewServer(engine, registry, durable, fallback, access.NewController(profiles), opts.RequestTimeout)

	httpSrv := &http.Server{
		Addr:        opts.Addr,
		Handler:     srv.Handler(),
		ReadTimeout: 30 * time.Second,
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("api.Run: server shutdown failed", "error", err)
		}
		if durable != nil {
			if err := durable.Close(); err != nil {
				slog.Warn("api.Run: durable store close failed", "error", err)
			}
		}
	}()

	slog.Info("api.Run: PitchPerfect API listening", "addr", opts.Addr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("API server failed: %w", err)
	}
	return nil
}

// buildDurableStore opens the configured durable store, degrading to
// in-memory when the DSN is absent or the backend cannot be reached.
func buildDurableStore(storeOpts []store.Option) store.Store {
	var so store.Opts
	for _, opt := range storeOpts {
		opt(&so)
	}
	if so.DSN == "" {
		slog.Info("api.buildDurableStore: no DSN configured, conversation turns are held in memory only")
		return store.NewInMemoryStore()
	}

	switch store.DetectDSNType(so.DSN) {
	case store.DSNTypePostgres:
		st, err := store.NewPostgresStore(storeOpts...)
		if err != nil {
			slog.Warn("api.buildDurableStore: Postgres store unavailable, falling back to memory", "error", err)
			return store.NewInMemoryStore()
		}
		slog.Info("api.buildDurableStore: using Postgres store")
		return st
	default:
		st, err := store.NewSQLiteStore(storeOpts...)
		if err != nil {
			slog.Warn("api.buildDurableStore: SQLite store unavailable, falling back to memory", "error", err)
			return store.NewInMemoryStore()
		}
		slog.Info("api.buildDurableStore: using SQLite store")
		return st
	}
}
