// Package orchestrator ties routing, agent construction, and execution
// into the single dispatch operation the API exposes.
package orchestrator

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/switchboard-ai/switchboard/internal/agents"
	"github.com/switchboard-ai/switchboard/internal/llm"
	"github.com/switchboard-ai/switchboard/internal/mcp"
	"github.com/switchboard-ai/switchboard/internal/tenants"
	"github.com/switchboard-ai/switchboard/pkg/errdefs"
	"github.com/switchboard-ai/switchboard/pkg/models"
)

// Orchestrator resolves a request to a tenant agent and runs it. Agent
// instances are cached per tenant and invalidated when the tenant store
// reloads; a construction failure is never cached.
type Orchestrator struct {
	store    *tenants.Store
	registry *agents.Registry
	client   llm.Client
	servers  *mcp.Pool
	timeout  time.Duration

	mu         sync.RWMutex
	generation uint64
	cache      map[string]agents.Agent
}

// New creates an orchestrator. timeout bounds every dispatched request
// end to end.
func New(store *tenants.Store, reg *agents.Registry, client llm.Client, servers *mcp.Pool, timeout time.Duration) *Orchestrator {
	return &Orchestrator{
		store:    store,
		registry: reg,
		client:   client,
		servers:  servers,
		timeout:  timeout,
		cache:    make(map[string]agents.Agent),
	}
}

// Handle routes content to the tenant's selected agent and executes it.
// Every outcome is a response: agent errors and lookup errors come back
// as failed DispatchResponses, never as transport errors.
func (o *Orchestrator) Handle(ctx context.Context, tenantID, content string) *models.DispatchResponse {
	start := time.Now()
	requestID := uuid.New().String()

	resp := &models.DispatchResponse{
		RequestID: requestID,
		TenantID:  tenantID,
	}

	tenant, err := o.store.Get(tenantID)
	if err != nil {
		return fail(resp, "", err, start)
	}

	agentName := tenant.Rules.Select(content)
	resp.Agent = agentName

	agent, err := o.agentFor(tenant, agentName)
	if err != nil {
		return fail(resp, agentName, err, start)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	log.Info().
		Str("request_id", requestID).
		Str("tenant", tenantID).
		Str("agent", agentName).
		Msg("Dispatching request")

	result, err := agent.Process(ctx, &models.AgentRequest{
		Content:   content,
		TenantID:  tenantID,
		RequestID: requestID,
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = errdefs.Timeout(err, "dispatch")
		}
		return fail(resp, agentName, err, start)
	}

	resp.Content = result.Content
	resp.Success = result.Success
	resp.Error = result.Error
	resp.Metadata = result.Metadata
	resp.Elapsed = time.Since(start).Seconds()
	return resp
}

// agentFor returns the cached instance for tenant/agent, constructing it
// on a miss. The cache is cleared whenever the store's generation moves.
func (o *Orchestrator) agentFor(tenant *tenants.Tenant, name string) (agents.Agent, error) {
	spec, ok := tenant.Config.Agents[name]
	if !ok {
		return nil, errdefs.Configuration("tenant %s: no agent named %s", tenant.Config.TenantID, name)
	}

	gen := o.store.Generation()
	key := tenant.Config.TenantID + "/" + name

	o.mu.RLock()
	if o.generation == gen {
		if a, ok := o.cache[key]; ok {
			o.mu.RUnlock()
			return a, nil
		}
	}
	o.mu.RUnlock()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.generation != gen {
		o.cache = make(map[string]agents.Agent)
		o.generation = gen
	}
	if a, ok := o.cache[key]; ok {
		return a, nil
	}

	a, err := o.registry.Create(agents.Config{
		TenantID: tenant.Config.TenantID,
		Name:     name,
		Spec:     spec,
		LLM:      o.client,
		Servers:  o.servers,
	})
	if err != nil {
		return nil, err
	}
	o.cache[key] = a
	return a, nil
}

// Invalidate drops the tenant's cached agent instances and pooled MCP
// servers, leaving other tenants untouched. Called per tenant after
// configuration reload.
func (o *Orchestrator) Invalidate(tenantID string) {
	prefix := tenantID + "/"
	o.mu.Lock()
	for key := range o.cache {
		if strings.HasPrefix(key, prefix) {
			delete(o.cache, key)
		}
	}
	o.mu.Unlock()
	o.servers.Invalidate(prefix)
}

func fail(resp *models.DispatchResponse, agent string, err error, start time.Time) *models.DispatchResponse {
	log.Error().
		Str("request_id", resp.RequestID).
		Str("tenant", resp.TenantID).
		Str("agent", agent).
		Err(err).
		Msg("Dispatch failed")
	resp.Agent = agent
	resp.Success = false
	resp.Error = err.Error()
	resp.Elapsed = time.Since(start).Seconds()
	return resp
}
