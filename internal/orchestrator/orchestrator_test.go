package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/switchboard-ai/switchboard/internal/agents"
	"github.com/switchboard-ai/switchboard/internal/mcp"
	"github.com/switchboard-ai/switchboard/internal/tenants"
	"github.com/switchboard-ai/switchboard/pkg/models"
)

// echoAgent answers with its name and the request content; fails when told.
type echoAgent struct {
	name string
	fail bool
}

func (a *echoAgent) Type() models.AgentType { return models.AgentTypeChat }

func (a *echoAgent) Process(ctx context.Context, req *models.AgentRequest) (*models.AgentResponse, error) {
	if a.fail {
		return nil, errors.New("backend unavailable")
	}
	return &models.AgentResponse{
		Content: a.name + ": " + req.Content,
		Success: true,
	}, nil
}

func testStore(t *testing.T) *tenants.Store {
	t.Helper()
	dir := t.TempDir()
	doc := `{
	  "tenant_id": "acme",
	  "agents": {
	    "chat": {"type": "chat", "model": "m"},
	    "sql": {"type": "sql", "model": "m"}
	  },
	  "routing_rules": [
	    {"pattern": "\\bquery\\b", "agent": "sql", "priority": 10}
	  ],
	  "routing_config": {
	    "agent_rules": {"chat": {"keywords": [], "fallback_priority": 0}}
	  }
	}`
	if err := os.WriteFile(filepath.Join(dir, "acme.json"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	beta := `{"tenant_id": "beta", "agents": {"chat": {"type": "chat", "model": "m"}}}`
	if err := os.WriteFile(filepath.Join(dir, "beta.json"), []byte(beta), 0o644); err != nil {
		t.Fatal(err)
	}
	s := tenants.NewStore(dir)
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

func testOrchestrator(t *testing.T, store *tenants.Store) (*Orchestrator, map[string]int) {
	t.Helper()
	builds := make(map[string]int)
	reg := agents.NewRegistry()
	reg.Register("chat", func(cfg agents.Config) (agents.Agent, error) {
		builds[cfg.TenantID+"/"+cfg.Name]++
		return &echoAgent{name: cfg.Name}, nil
	})
	reg.Register("sql", func(cfg agents.Config) (agents.Agent, error) {
		builds[cfg.TenantID+"/"+cfg.Name]++
		return &echoAgent{name: cfg.Name, fail: true}, nil
	})
	pool := mcp.NewPool(mcp.NewRegistry())
	return New(store, reg, nil, pool, 5*time.Second), builds
}

func TestHandleRoutesAndWrapsResponse(t *testing.T) {
	o, _ := testOrchestrator(t, testStore(t))

	resp := o.Handle(context.Background(), "acme", "hello there")
	if !resp.Success {
		t.Fatalf("Success = false: %s", resp.Error)
	}
	if resp.Agent != "chat" {
		t.Errorf("Agent = %q, want chat", resp.Agent)
	}
	if resp.Content != "chat: hello there" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.RequestID == "" {
		t.Error("RequestID empty")
	}
	if resp.TenantID != "acme" {
		t.Errorf("TenantID = %q, want acme", resp.TenantID)
	}
}

func TestHandleAgentFailureBecomesFailedResponse(t *testing.T) {
	o, _ := testOrchestrator(t, testStore(t))

	resp := o.Handle(context.Background(), "acme", "please query the data")
	if resp.Success {
		t.Fatal("Success = true, want failure")
	}
	if resp.Agent != "sql" {
		t.Errorf("Agent = %q, want sql", resp.Agent)
	}
	if !strings.Contains(resp.Error, "backend unavailable") {
		t.Errorf("Error = %q, want the agent's error text", resp.Error)
	}
}

func TestHandleUnknownTenant(t *testing.T) {
	o, _ := testOrchestrator(t, testStore(t))

	resp := o.Handle(context.Background(), "ghost", "hello")
	if resp.Success {
		t.Fatal("Success = true, want failure")
	}
	if !strings.Contains(resp.Error, "unknown tenant") {
		t.Errorf("Error = %q, want unknown tenant", resp.Error)
	}
}

func TestHandleCachesAgentInstances(t *testing.T) {
	o, builds := testOrchestrator(t, testStore(t))

	o.Handle(context.Background(), "acme", "hello")
	o.Handle(context.Background(), "acme", "hello again")
	if builds["acme/chat"] != 1 {
		t.Errorf("chat agent built %d times, want 1", builds["acme/chat"])
	}
}

func TestHandleRebuildsAfterReload(t *testing.T) {
	store := testStore(t)
	o, builds := testOrchestrator(t, store)

	o.Handle(context.Background(), "acme", "hello")
	if err := store.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	o.Handle(context.Background(), "acme", "hello again")
	if builds["acme/chat"] != 2 {
		t.Errorf("chat agent built %d times, want 2 after reload", builds["acme/chat"])
	}
}

func TestInvalidateIsTenantScoped(t *testing.T) {
	o, builds := testOrchestrator(t, testStore(t))

	o.Handle(context.Background(), "acme", "hello")
	o.Handle(context.Background(), "beta", "hello")

	o.Invalidate("acme")

	o.Handle(context.Background(), "acme", "hello again")
	o.Handle(context.Background(), "beta", "hello again")
	if builds["acme/chat"] != 2 {
		t.Errorf("acme chat built %d times, want 2 after invalidate", builds["acme/chat"])
	}
	if builds["beta/chat"] != 1 {
		t.Errorf("beta chat built %d times, want 1; invalidate must not touch other tenants", builds["beta/chat"])
	}
}
