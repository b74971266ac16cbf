package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/switchboard-ai/switchboard/internal/agents"
	"github.com/switchboard-ai/switchboard/internal/mcp"
	"github.com/switchboard-ai/switchboard/internal/orchestrator"
	"github.com/switchboard-ai/switchboard/internal/tenants"
	"github.com/switchboard-ai/switchboard/pkg/models"
)

type cannedAgent struct{}

func (cannedAgent) Type() models.AgentType { return models.AgentTypeChat }

func (cannedAgent) Process(ctx context.Context, req *models.AgentRequest) (*models.AgentResponse, error) {
	return &models.AgentResponse{Content: "pong", Success: true}, nil
}

func testHandlers(t *testing.T) *Handlers {
	t.Helper()
	dir := t.TempDir()
	doc := `{"tenant_id": "acme", "agents": {"chat": {"type": "chat", "model": "m"}}}`
	if err := os.WriteFile(filepath.Join(dir, "acme.json"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	store := tenants.NewStore(dir)
	if err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	reg := agents.NewRegistry()
	reg.Register("chat", func(cfg agents.Config) (agents.Agent, error) {
		return cannedAgent{}, nil
	})
	orch := orchestrator.New(store, reg, nil, mcp.NewPool(mcp.NewRegistry()), time.Second)
	return New(store, orch)
}

func TestDispatch(t *testing.T) {
	h := testHandlers(t)

	body := `{"content": "ping", "tenant_id": "acme"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Dispatch(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp models.DispatchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Content != "pong" {
		t.Errorf("resp = %+v, want successful pong", resp)
	}
}

func TestDispatchRequiresContent(t *testing.T) {
	h := testHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	h.Dispatch(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestDispatchUnknownTenantIsFailedResponse(t *testing.T) {
	h := testHandlers(t)

	body := `{"content": "ping", "tenant_id": "ghost"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Dispatch(w, req)

	// Processing failures are payload-level, not transport-level.
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp models.DispatchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success {
		t.Error("Success = true, want failure for unknown tenant")
	}
}

func TestListTenants(t *testing.T) {
	h := testHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tenants", nil)
	w := httptest.NewRecorder()
	h.ListTenants(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Tenants []string `json:"tenants"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Tenants) != 1 || resp.Tenants[0] != "acme" {
		t.Errorf("tenants = %v, want [acme]", resp.Tenants)
	}
}

func TestReloadTenants(t *testing.T) {
	h := testHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants/reload", nil)
	w := httptest.NewRecorder()
	h.ReloadTenants(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
}
