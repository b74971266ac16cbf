// Package tenants loads and serves per-tenant configuration documents.
//
// One JSON document per tenant lives in the configured directory. Documents
// are parsed, validated, and compiled (routing rules, env placeholders)
// once at load time; after that the store is read-mostly shared state.
// Reload builds a complete replacement set and swaps it atomically.
package tenants

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/switchboard-ai/switchboard/internal/routing"
	"github.com/switchboard-ai/switchboard/pkg/errdefs"
	"github.com/switchboard-ai/switchboard/pkg/models"
)

// Tenant is one tenant's loaded configuration with its compiled routing
// rules. Immutable once published by the store.
type Tenant struct {
	Config *models.TenantConfig
	Rules  *routing.RuleSet
}

// Store holds every loaded tenant. Reads take the read lock; the write
// lock is held only while swapping in a reloaded set.
type Store struct {
	dir string

	mu         sync.RWMutex
	tenants    map[string]*Tenant
	generation uint64
}

// NewStore creates a store over a tenant document directory. Call Load
// before first use.
func NewStore(dir string) *Store {
	return &Store{dir: dir, tenants: make(map[string]*Tenant)}
}

// Load reads every tenant document. A malformed document is fatal: process
// startup must not continue on a half-loaded configuration.
func (s *Store) Load() error {
	loaded, err := loadDir(s.dir)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.tenants = loaded
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	log.Info().
		Int("tenants", len(loaded)).
		Uint64("generation", gen).
		Str("dir", s.dir).
		Msg("Tenant configurations loaded")
	return nil
}

// Reload is Load; it exists as a named operation for the admin surface.
func (s *Store) Reload() error { return s.Load() }

// Get returns the tenant by id. Unknown ids are a configuration error,
// fatal to the current request.
func (s *Store) Get(tenantID string) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[tenantID]
	if !ok {
		return nil, errdefs.Configuration("unknown tenant: %s", tenantID)
	}
	return t, nil
}

// IDs returns all loaded tenant ids, sorted.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.tenants))
	for id := range s.tenants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Generation increments on every successful (re)load. Consumers caching
// per-tenant state key their caches by generation to drop stale entries.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// ── Loading & Validation ─────────────────────────────────────

func loadDir(dir string) (map[string]*Tenant, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errdefs.Configuration("read tenant directory %s: %v", dir, err)
	}

	loaded := make(map[string]*Tenant)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		tenant, err := loadDocument(path)
		if err != nil {
			return nil, err
		}
		if _, dup := loaded[tenant.Config.TenantID]; dup {
			return nil, errdefs.Configuration("duplicate tenant id %q in %s", tenant.Config.TenantID, path)
		}
		loaded[tenant.Config.TenantID] = tenant
	}
	return loaded, nil
}

func loadDocument(path string) (*Tenant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errdefs.Configuration("read tenant document %s: %v", path, err)
	}

	var cfg models.TenantConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errdefs.Configuration("parse tenant document %s: %v", path, err)
	}
	if cfg.TenantID == "" {
		cfg.TenantID = strings.TrimSuffix(filepath.Base(path), ".json")
	}
	if len(cfg.Agents) == 0 {
		return nil, errdefs.Configuration("tenant %s declares no agents", cfg.TenantID)
	}

	if err := resolveTenantEnv(&cfg); err != nil {
		return nil, err
	}
	if err := validateSchemas(&cfg); err != nil {
		return nil, err
	}

	rules, err := routing.Compile(&cfg)
	if err != nil {
		return nil, err
	}
	return &Tenant{Config: &cfg, Rules: rules}, nil
}

var envPlaceholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// resolveTenantEnv expands ${ENV_VAR} placeholders in every MCP server's
// connection details, both tenant-level declarations and the specs embedded
// in agent params. Missing variables are load-time errors: a request must
// never discover them.
func resolveTenantEnv(cfg *models.TenantConfig) error {
	for name, spec := range cfg.MCPServers {
		if err := resolveSpecEnv(cfg.TenantID, &spec); err != nil {
			return err
		}
		cfg.MCPServers[name] = spec
	}
	for name, agent := range cfg.Agents {
		if agent.Params.MCPServer != nil {
			if err := resolveSpecEnv(cfg.TenantID, agent.Params.MCPServer); err != nil {
				return err
			}
		}
		cfg.Agents[name] = agent
	}
	return nil
}

func resolveSpecEnv(tenantID string, spec *models.MCPServerSpec) error {
	for key, value := range spec.ConnectionDetails {
		var missing string
		resolved := envPlaceholder.ReplaceAllStringFunc(value, func(ph string) string {
			name := envPlaceholder.FindStringSubmatch(ph)[1]
			v, ok := os.LookupEnv(name)
			if !ok {
				missing = name
			}
			return v
		})
		if missing != "" {
			return errdefs.Configuration("tenant %s: connection detail %q references unset environment variable %s", tenantID, key, missing)
		}
		spec.ConnectionDetails[key] = resolved
	}
	return nil
}

// validateSchemas enforces the reachability invariant: when a schema
// config declares its physical tables, every table mapping target and
// column mapping key must be one of them. The resolver never invents
// names, so a dangling mapping would only surface as a broken query.
func validateSchemas(cfg *models.TenantConfig) error {
	for name, agent := range cfg.Agents {
		sc := agent.Params.Schema
		if sc == nil || (len(sc.Tables) == 0 && len(sc.Views) == 0) {
			continue
		}
		known := make(map[string]struct{}, len(sc.Tables)+len(sc.Views))
		for _, t := range sc.Tables {
			known[bareName(t)] = struct{}{}
		}
		for _, v := range sc.Views {
			known[bareName(v)] = struct{}{}
		}
		for logical, physical := range sc.TableMappings {
			if _, ok := known[bareName(physical)]; !ok {
				return errdefs.Configuration("tenant %s agent %s: table mapping %q -> %q targets undeclared table", cfg.TenantID, name, logical, physical)
			}
		}
		for table := range sc.ColumnMappings {
			if _, ok := known[bareName(table)]; !ok {
				return errdefs.Configuration("tenant %s agent %s: column mappings reference undeclared table %q", cfg.TenantID, name, table)
			}
		}
	}
	return nil
}

func bareName(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
