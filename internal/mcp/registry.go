package mcp

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"github.com/switchboard-ai/switchboard/internal/registry"
	"github.com/switchboard-ai/switchboard/pkg/errdefs"
	"github.com/switchboard-ai/switchboard/pkg/models"
)

// initTimeout bounds the post-construction initialization of a new server.
const initTimeout = 15 * time.Second

// Constructor builds an MCP server from its spec.
type Constructor = registry.Constructor[*models.MCPServerSpec, Server]

// Registry resolves MCP server type tags to constructors. Unlike the agent
// registry, Create performs the explicit initialization step: the instance
// must report successful initialization before it is handed back, and a
// failing instance is closed and discarded.
type Registry struct {
	inner *registry.Registry[*models.MCPServerSpec, Server]
}

// NewRegistry creates the MCP server registry with the built-in
// implementations registered.
func NewRegistry() *Registry {
	r := &Registry{inner: registry.New[*models.MCPServerSpec, Server]("mcp")}
	r.inner.Register("sqlite", NewSQLiteServer)
	r.inner.Register("postgresql", NewPostgresServer)
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

// Create constructs and initializes a server for the spec. Initialization
// failure discards the instance and surfaces as an initialization error;
// there is no automatic retry.
func (r *Registry) Create(ctx context.Context, spec *models.MCPServerSpec) (Server, error) {
	srv, err := r.inner.Create(spec.Type, spec)
	if err != nil {
		return nil, err
	}

	initCtx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()
	if err := srv.Initialize(initCtx); err != nil {
		_ = srv.Close()
		if errors.Is(initCtx.Err(), context.DeadlineExceeded) {
			return nil, errdefs.Timeout(err, "initialize "+spec.Type+" server")
		}
		return nil, err
	}
	return srv, nil
}

// Catalog is the compiled-in symbol table for registration declarations,
// keyed by "module_path.class_name". Deployments declare new type tags for
// these symbols in tenant-independent platform configuration; arbitrary
// runtime code loading is deliberately unsupported.
func Catalog() map[string]Constructor {
	return map[string]Constructor{
		"github.com/switchboard-ai/switchboard/internal/mcp.NewSQLiteServer":   NewSQLiteServer,
		"github.com/switchboard-ai/switchboard/internal/mcp.NewPostgresServer": NewPostgresServer,
	}
}

// ── Instance Pool ────────────────────────────────────────────

// Pool caches initialized servers for connection-pool-like reuse across
// requests. Construction and verification are serialized per key, never
// across keys, so one tenant's slow backend cannot stall another tenant's
// dispatch. Every handout re-verifies initialization; a cached instance
// that fails the check is closed, dropped, and rebuilt — never silently
// reused.
type Pool struct {
	registry *Registry

	mu      sync.Mutex
	entries map[string]*poolEntry
}

// poolEntry serializes construction and verification for one key.
type poolEntry struct {
	mu  sync.Mutex
	srv Server
}

// NewPool creates an empty pool over the registry.
func NewPool(reg *Registry) *Pool {
	return &Pool{registry: reg, entries: make(map[string]*poolEntry)}
}

// entry returns the per-key entry, creating it on first use. The pool lock
// covers map access only; the slow work happens under the entry lock.
func (p *Pool) entry(key string) *poolEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[key]
	if !ok {
		e = &poolEntry{}
		p.entries[key] = e
	}
	return e
}

// Get returns an initialized server for the key, constructing one on
// demand.
func (p *Pool) Get(ctx context.Context, key string, spec *models.MCPServerSpec) (Server, error) {
	e := p.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.srv != nil {
		verifyCtx, cancel := context.WithTimeout(ctx, initTimeout)
		err := e.srv.Initialize(verifyCtx)
		cancel()
		if err == nil {
			return e.srv, nil
		}
		log.Warn().Str("server", key).Err(err).Msg("Cached MCP server failed verification, rebuilding")
		_ = e.srv.Close()
		e.srv = nil
	}

	srv, err := p.registry.Create(ctx, spec)
	if err != nil {
		return nil, err
	}
	e.srv = srv
	return srv, nil
}

// Invalidate closes every cached server whose key has the given prefix.
// Used on tenant reload. Entries stay in the map so a concurrent Get for
// the same key never repopulates an orphaned entry; the next Get rebuilds.
func (p *Pool) Invalidate(prefix string) {
	p.mu.Lock()
	victims := make([]*poolEntry, 0, len(p.entries))
	for key, e := range p.entries {
		if strings.HasPrefix(key, prefix) {
			victims = append(victims, e)
		}
	}
	p.mu.Unlock()

	for _, e := range victims {
		e.mu.Lock()
		if e.srv != nil {
			_ = e.srv.Close()
			e.srv = nil
		}
		e.mu.Unlock()
	}
}

// Close releases every cached server.
func (p *Pool) Close() error {
	p.mu.Lock()
	entries := make([]*poolEntry, 0, len(p.entries))
	for _, e := range p.entries {
		entries = append(entries, e)
	}
	p.entries = make(map[string]*poolEntry)
	p.mu.Unlock()

	var firstErr error
	for _, e := range entries {
		e.mu.Lock()
		if e.srv != nil {
			if err := e.srv.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
			e.srv = nil
		}
		e.mu.Unlock()
	}
	return firstErr
}
