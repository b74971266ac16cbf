package agents

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/switchboard-ai/switchboard/internal/llm"
	"github.com/switchboard-ai/switchboard/internal/mcp"
	"github.com/switchboard-ai/switchboard/internal/schema"
	"github.com/switchboard-ai/switchboard/pkg/errdefs"
	"github.com/switchboard-ai/switchboard/pkg/models"
)

// sqlPromptRules is the instruction block presented to the completion
// capability ahead of the schema description.
const sqlPromptRules = `You are a SQL expert that converts natural language questions into SQL queries.
Follow these rules strictly:
1. Only generate SELECT queries
2. Use proper table and column names from the schema
3. ALWAYS use the table mappings to convert natural language table names to actual table names
4. ALWAYS use the column mappings to convert natural language column names to actual column names
5. Use correct data types in WHERE clauses based on the schema information
6. For text values, ALWAYS use quotes; for numeric values, NEVER use quotes
7. ALWAYS use fully qualified table names when a schema prefix is given
8. NEVER use table aliases
9. Return ONLY the SQL query without any explanation or comments

`

// SQLAgent answers natural-language data questions: it presents the
// mapped schema to the completion capability, post-processes the generated
// query against known physical names, executes it through the MCP server,
// and formats the rows as a text table.
type SQLAgent struct {
	cfg     Config
	client  llm.Client
	servers *mcp.Pool
	mapping *schema.Mapping
	mcpSpec *models.MCPServerSpec
	poolKey string
}

var _ Agent = (*SQLAgent)(nil)

// NewSQLAgent builds a sql agent. A schema config and an MCP server
// reference are required; their absence is a configuration error, caught
// at construction rather than per request.
func NewSQLAgent(cfg Config) (Agent, error) {
	if cfg.Spec.Params.Schema == nil {
		return nil, errdefs.Configuration("agent %s/%s: sql agent requires schema_config", cfg.TenantID, cfg.Name)
	}
	if cfg.Spec.Params.MCPServer == nil {
		return nil, errdefs.Configuration("agent %s/%s: sql agent requires mcp_server", cfg.TenantID, cfg.Name)
	}
	return &SQLAgent{
		cfg:     cfg,
		client:  cfg.LLM,
		servers: cfg.Servers,
		mapping: schema.NewMapping(cfg.Spec.Params.Schema),
		mcpSpec: cfg.Spec.Params.MCPServer,
		poolKey: cfg.TenantID + "/" + cfg.Name,
	}, nil
}

// Type implements Agent.
func (a *SQLAgent) Type() models.AgentType { return models.AgentTypeSQL }

// Process translates the question to SQL and executes it.
func (a *SQLAgent) Process(ctx context.Context, req *models.AgentRequest) (*models.AgentResponse, error) {
	srv, err := a.servers.Get(ctx, a.poolKey, a.mcpSpec)
	if err != nil {
		return nil, err
	}

	physical, err := srv.Schema(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := a.client.Complete(ctx, llm.CompletionRequest{
		Model:       a.cfg.Spec.Model,
		System:      sqlPromptRules + a.mapping.Describe(physical),
		Prompt:      req.Content,
		Temperature: a.cfg.Spec.Temperature,
		MaxTokens:   a.cfg.Spec.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	query := a.mapping.Rewrite(stripCodeFences(raw))
	warnings := a.mapping.Validate(query)
	for _, w := range warnings {
		log.Warn().
			Str("tenant", req.TenantID).
			Str("agent", a.cfg.Name).
			Str("query", query).
			Msg(w)
	}

	result, err := srv.Execute(ctx, query, req.TenantID)
	if err != nil {
		return nil, err
	}

	meta := map[string]interface{}{
		"agent_type": string(models.AgentTypeSQL),
		"model":      a.cfg.Spec.Model,
		"sql_query":  query,
		"row_count":  result.RowCount,
	}
	if len(warnings) > 0 {
		meta["warnings"] = warnings
	}
	return &models.AgentResponse{
		Content:  formatResults(result, req.Content),
		Success:  true,
		Metadata: meta,
	}, nil
}

var codeFence = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")

// stripCodeFences unwraps a markdown-fenced completion and trims it down
// to the bare statement.
func stripCodeFences(s string) string {
	if m := codeFence.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	return strings.TrimSpace(s)
}

// formatResults renders rows as a plain text table headed by the original
// question.
func formatResults(result *models.QueryResult, question string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Results for: %s\n\n", question)

	if result.RowCount == 0 {
		b.WriteString("No rows matched.")
		return b.String()
	}

	header := strings.Join(result.Columns, " | ")
	b.WriteString(header)
	b.WriteByte('\n')
	b.WriteString(strings.Repeat("-", len(header)))
	for _, row := range result.Rows {
		b.WriteByte('\n')
		cells := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			cells[i] = fmt.Sprint(row[col])
		}
		b.WriteString(strings.Join(cells, " | "))
	}
	return b.String()
}
