package agents

import (
	"context"
	"strings"
	"testing"

	"github.com/switchboard-ai/switchboard/internal/llm"
	"github.com/switchboard-ai/switchboard/internal/mcp"
	"github.com/switchboard-ai/switchboard/pkg/errdefs"
	"github.com/switchboard-ai/switchboard/pkg/models"
)

// scriptedClient returns a canned completion and records the request.
type scriptedClient struct {
	response string
	last     llm.CompletionRequest
}

func (c *scriptedClient) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	c.last = req
	return c.response, nil
}

// stubDataSource is an in-memory MCP server with a fixed schema and result.
type stubDataSource struct {
	schema    models.PhysicalSchema
	result    *models.QueryResult
	lastQuery string
}

func (s *stubDataSource) Initialize(ctx context.Context) error { return nil }

func (s *stubDataSource) Execute(ctx context.Context, query, tenantID string) (*models.QueryResult, error) {
	s.lastQuery = query
	return s.result, nil
}

func (s *stubDataSource) Schema(ctx context.Context) (models.PhysicalSchema, error) {
	return s.schema, nil
}

func (s *stubDataSource) Close() error { return nil }

func stubPool(src *stubDataSource) *mcp.Pool {
	reg := mcp.NewRegistry()
	reg.Register("stub", func(spec *models.MCPServerSpec) (mcp.Server, error) {
		return src, nil
	})
	return mcp.NewPool(reg)
}

func sqlAgentConfig(client llm.Client, pool *mcp.Pool) Config {
	return Config{
		TenantID: "acme",
		Name:     "sql",
		Spec: models.AgentSpec{
			Type:  models.AgentTypeSQL,
			Model: "gpt-4o",
			Params: models.AgentParams{
				Schema: &models.SchemaConfig{
					SchemaPrefix:  "sales",
					Tables:        []string{"order_header"},
					TableMappings: map[string]string{"orders": "order_header"},
					ColumnMappings: map[string]map[string]string{
						"order_header": {"total": "total_amount"},
					},
				},
				MCPServer: &models.MCPServerSpec{Type: "stub"},
			},
		},
		LLM:     client,
		Servers: pool,
	}
}

func TestNewSQLAgentRequiresSchemaAndServer(t *testing.T) {
	cfg := sqlAgentConfig(&scriptedClient{}, stubPool(&stubDataSource{}))
	cfg.Spec.Params.Schema = nil
	if _, err := NewSQLAgent(cfg); !errdefs.IsKind(err, errdefs.ErrConfiguration) {
		t.Errorf("NewSQLAgent error = %v, want configuration error", err)
	}

	cfg = sqlAgentConfig(&scriptedClient{}, stubPool(&stubDataSource{}))
	cfg.Spec.Params.MCPServer = nil
	if _, err := NewSQLAgent(cfg); !errdefs.IsKind(err, errdefs.ErrConfiguration) {
		t.Errorf("NewSQLAgent error = %v, want configuration error", err)
	}
}

func TestSQLAgentProcess(t *testing.T) {
	src := &stubDataSource{
		schema: models.PhysicalSchema{
			"order_header": {
				{Name: "id", DataType: "integer"},
				{Name: "total_amount", DataType: "numeric", Nullable: true},
			},
		},
		result: &models.QueryResult{
			Columns:  []string{"id", "total_amount"},
			Rows:     []map[string]interface{}{{"id": int64(1), "total_amount": 9.5}},
			RowCount: 1,
		},
	}
	client := &scriptedClient{response: "```sql\nSELECT id, total FROM orders\n```"}

	agent, err := NewSQLAgent(sqlAgentConfig(client, stubPool(src)))
	if err != nil {
		t.Fatalf("NewSQLAgent: %v", err)
	}

	resp, err := agent.Process(context.Background(), &models.AgentRequest{
		Content:  "what are the order totals?",
		TenantID: "acme",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !resp.Success {
		t.Fatalf("Success = false: %s", resp.Error)
	}

	// Fences stripped, logical names rewritten before execution.
	want := "SELECT id, total_amount FROM sales.order_header"
	if src.lastQuery != want {
		t.Errorf("executed query = %q, want %q", src.lastQuery, want)
	}
	if got := resp.Metadata["sql_query"]; got != want {
		t.Errorf("metadata sql_query = %v, want %q", got, want)
	}
	if got := resp.Metadata["row_count"]; got != 1 {
		t.Errorf("metadata row_count = %v, want 1", got)
	}
	if !strings.Contains(resp.Content, "id | total_amount") {
		t.Errorf("content missing header row:\n%s", resp.Content)
	}

	// The prompt carried the schema description.
	if !strings.Contains(client.last.System, "Table: sales.order_header") {
		t.Errorf("system prompt missing schema description:\n%s", client.last.System)
	}
}

func TestSQLAgentProcessNoRows(t *testing.T) {
	src := &stubDataSource{
		schema: models.PhysicalSchema{"order_header": {{Name: "id", DataType: "integer"}}},
		result: &models.QueryResult{Columns: []string{"id"}, Rows: []map[string]interface{}{}},
	}
	client := &scriptedClient{response: "SELECT id FROM orders"}

	agent, err := NewSQLAgent(sqlAgentConfig(client, stubPool(src)))
	if err != nil {
		t.Fatalf("NewSQLAgent: %v", err)
	}
	resp, err := agent.Process(context.Background(), &models.AgentRequest{Content: "any orders?", TenantID: "acme"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !strings.Contains(resp.Content, "No rows matched.") {
		t.Errorf("content = %q, want empty-result message", resp.Content)
	}
}
