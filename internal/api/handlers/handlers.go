// Package handlers implements the HTTP handlers for the dispatch plane.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/switchboard-ai/switchboard/internal/api/middleware"
	"github.com/switchboard-ai/switchboard/internal/orchestrator"
	"github.com/switchboard-ai/switchboard/internal/tenants"
	"github.com/switchboard-ai/switchboard/pkg/errdefs"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Tenants      *tenants.Store
	Orchestrator *orchestrator.Orchestrator
}

// New creates a new Handlers instance.
func New(store *tenants.Store, orch *orchestrator.Orchestrator) *Handlers {
	return &Handlers{Tenants: store, Orchestrator: orch}
}

// dispatchRequest is the body of POST /api/v1/dispatch. The tenant comes
// from the request context; a tenant_id in the body overrides it.
type dispatchRequest struct {
	Content  string `json:"content"`
	TenantID string `json:"tenant_id,omitempty"`
}

// Dispatch routes the request content to a tenant agent and returns the
// agent's response. Processing failures are 200s with success=false; only
// transport-level problems map to HTTP errors.
func (h *Handlers) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Content == "" {
		respondError(w, http.StatusBadRequest, "content is required")
		return
	}

	tenantID := req.TenantID
	if tenantID == "" {
		tenantID = middleware.GetTenantID(r.Context())
	}

	resp := h.Orchestrator.Handle(r.Context(), tenantID, req.Content)
	respondJSON(w, http.StatusOK, resp)
}

// ListTenants returns the ids of every loaded tenant.
func (h *Handlers) ListTenants(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tenants": h.Tenants.IDs(),
	})
}

// agentSummary is the secret-free view of one configured agent.
type agentSummary struct {
	Type  string `json:"type"`
	Model string `json:"model"`
}

// GetTenant returns a summary of one tenant's configuration. Connection
// details never leave the process; they may hold resolved credentials.
func (h *Handlers) GetTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	tenant, err := h.Tenants.Get(tenantID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	agents := make(map[string]agentSummary, len(tenant.Config.Agents))
	for name, spec := range tenant.Config.Agents {
		agents[name] = agentSummary{Type: string(spec.Type), Model: spec.Model}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tenant_id":     tenant.Config.TenantID,
		"name":          tenant.Config.Name,
		"agents":        agents,
		"routing_rules": len(tenant.Config.RoutingRules),
	})
}

// ReloadTenants re-reads every tenant document and invalidates cached
// agent and server instances. A failed reload keeps the previous set.
func (h *Handlers) ReloadTenants(w http.ResponseWriter, r *http.Request) {
	before := h.Tenants.IDs()
	if err := h.Tenants.Reload(); err != nil {
		status := http.StatusInternalServerError
		if errdefs.IsKind(err, errdefs.ErrConfiguration) {
			status = http.StatusUnprocessableEntity
		}
		log.Error().Err(err).Msg("Tenant reload failed, previous configuration kept")
		respondError(w, status, err.Error())
		return
	}
	for _, id := range before {
		h.Orchestrator.Invalidate(id)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tenants":    h.Tenants.IDs(),
		"generation": h.Tenants.Generation(),
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
