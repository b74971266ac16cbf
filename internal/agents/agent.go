// Package agents implements the responder components a request can be
// dispatched to. Built-ins: chat (general conversation) and sql
// (schema-aware natural-language data queries).
package agents

import (
	"context"

	"github.com/switchboard-ai/switchboard/internal/llm"
	"github.com/switchboard-ai/switchboard/internal/mcp"
	"github.com/switchboard-ai/switchboard/internal/registry"
	"github.com/switchboard-ai/switchboard/pkg/models"
)

// Agent is the processing contract every responder implements. Errors
// returned from Process are translated into failure responses at the
// dispatch boundary; they never reach the HTTP caller raw.
type Agent interface {
	Process(ctx context.Context, req *models.AgentRequest) (*models.AgentResponse, error)
	Type() models.AgentType
}

// Config is everything a constructor needs to build one agent instance for
// one tenant.
type Config struct {
	TenantID string
	Name     string
	Spec     models.AgentSpec

	LLM     llm.Client
	Servers *mcp.Pool
}

// Constructor builds an agent from its config.
type Constructor = registry.Constructor[Config, Agent]

// Registry resolves agent type tags to constructors.
type Registry struct {
	inner *registry.Registry[Config, Agent]
}

// NewRegistry creates the agent registry with the built-in implementations
// registered.
func NewRegistry() *Registry {
	r := &Registry{inner: registry.New[Config, Agent]("agents")}
	r.inner.Register(string(models.AgentTypeChat), NewChatAgent)
	r.inner.Register(string(models.AgentTypeSQL), NewSQLAgent)
	return r
}

// Register adds or overrides a constructor for a type tag.
func (r *Registry) Register(tag string, ctor Constructor) {
	r.inner.Register(tag, ctor)
}

// RegisterDeclared processes dynamic registration declarations against the
// compiled-in catalog.
func (r *Registry) RegisterDeclared(decls []models.RegistrationDecl) []error {
	return r.inner.RegisterDeclared(decls, Catalog())
}

// Types returns all registered type tags.
func (r *Registry) Types() []string { return r.inner.Types() }

// Create instantiates the agent registered under the spec's type tag.
func (r *Registry) Create(cfg Config) (Agent, error) {
	return r.inner.Create(string(cfg.Spec.Type), cfg)
}

// Catalog is the compiled-in symbol table for registration declarations,
// keyed by "module_path.class_name".
func Catalog() map[string]Constructor {
	return map[string]Constructor{
		"github.com/switchboard-ai/switchboard/internal/agents.NewChatAgent": NewChatAgent,
		"github.com/switchboard-ai/switchboard/internal/agents.NewSQLAgent":  NewSQLAgent,
	}
}
