// Package server provides the public entry point for initializing the
// Switchboard dispatch plane.
//
// It lives in pkg/ (not internal/) so deployments can compose the server
// with their own middleware:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"github.com/switchboard-ai/switchboard/internal/agents"
	"github.com/switchboard-ai/switchboard/internal/api"
	"github.com/switchboard-ai/switchboard/internal/api/handlers"
	"github.com/switchboard-ai/switchboard/internal/config"
	"github.com/switchboard-ai/switchboard/internal/llm"
	"github.com/switchboard-ai/switchboard/internal/mcp"
	"github.com/switchboard-ai/switchboard/internal/orchestrator"
	"github.com/switchboard-ai/switchboard/internal/telemetry"
	"github.com/switchboard-ai/switchboard/internal/tenants"
)

// Server holds the initialized dispatch plane.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Tenants is the loaded tenant configuration store, exposed for
	// embedding deployments that drive reloads themselves.
	Tenants *tenants.Store

	// Agents and MCPServers are the component registries, exposed so
	// embedding deployments can register additional implementations
	// before serving.
	Agents     *agents.Registry
	MCPServers *mcp.Registry

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc flushes telemetry and releases pooled MCP servers.
	// Call it on graceful shutdown.
	ShutdownFunc func(context.Context) error
}

// New initializes all components from environment configuration and
// returns a ready Server.
func New(ctx context.Context) (*Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	return NewWithConfig(ctx, cfg)
}

// NewWithConfig initializes the dispatch plane with an explicit
// configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdownTelemetry, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, errors.Wrap(err, "init telemetry")
	}

	store := tenants.NewStore(cfg.TenantDir)
	if err := store.Load(); err != nil {
		return nil, err
	}

	client := llm.NewOpenAIClient(cfg.LLM)
	log.Info().Str("base_url", cfg.LLM.BaseURL).Msg("LLM client initialized")

	mcpRegistry := mcp.NewRegistry()
	agentRegistry := agents.NewRegistry()

	// Declared registrations extend the built-in type tags. Unresolvable
	// declarations are logged and skipped; the rest still register.
	decls, err := config.LoadDeclarations(cfg.DeclarationsFile)
	if err != nil {
		return nil, err
	}
	for _, derr := range mcpRegistry.RegisterDeclared(decls.MCPServers) {
		log.Warn().Err(derr).Msg("Skipped MCP server declaration")
	}
	for _, derr := range agentRegistry.RegisterDeclared(decls.Agents) {
		log.Warn().Err(derr).Msg("Skipped agent declaration")
	}

	pool := mcp.NewPool(mcpRegistry)
	orch := orchestrator.New(store, agentRegistry, client, pool, cfg.RequestTimeout)

	h := handlers.New(store, orch)
	router := api.NewRouter(cfg, h)

	shutdown := func(ctx context.Context) error {
		err := pool.Close()
		if terr := shutdownTelemetry(ctx); terr != nil && err == nil {
			err = terr
		}
		return err
	}

	return &Server{
		Handler:      router,
		Tenants:      store,
		Agents:       agentRegistry,
		MCPServers:   mcpRegistry,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}
