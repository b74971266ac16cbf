// Package models defines the shared domain types for Switchboard:
// tenant configuration documents, agent and MCP server specifications,
// routing rules, schema mappings, and the request/response shapes that
// cross component boundaries.
package models

import (
	"encoding/json"
)

// ── Agent Types ──────────────────────────────────────────────

// AgentType is the enumerated capability family of an agent.
type AgentType string

const (
	AgentTypeChat AgentType = "chat"
	AgentTypeSQL  AgentType = "sql"
	AgentTypeRAG  AgentType = "rag"
)

// ── Tenant Configuration ─────────────────────────────────────

// TenantConfig is one tenant's complete configuration document.
// Immutable after load; a reload replaces the whole value.
type TenantConfig struct {
	TenantID     string                     `json:"tenant_id"`
	Name         string                     `json:"name"`
	Agents       map[string]AgentSpec       `json:"agents"`
	Workflows    map[string]json.RawMessage `json:"workflows,omitempty"` // pass-through, unused by the core
	RoutingRules []RoutingRule              `json:"routing_rules"`
	RoutingCfg   RoutingConfig              `json:"routing_config"`
	MCPServers   map[string]MCPServerSpec   `json:"mcp_servers,omitempty"`
}

// AgentSpec declares one agent instance for a tenant.
type AgentSpec struct {
	Type        AgentType   `json:"type"`
	Model       string      `json:"model"`
	Temperature float64     `json:"temperature"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
	Params      AgentParams `json:"additional_params,omitempty"`
}

// AgentParams is the typed form of the agent's additional parameters,
// resolved once at configuration load time. Query-capable agents carry a
// schema config and an MCP server reference; chat agents carry a system
// prompt. Unrecognized keys survive in Extra for forward compatibility.
type AgentParams struct {
	SystemPrompt string         `json:"system_prompt,omitempty"`
	MCPServer    *MCPServerSpec `json:"mcp_server,omitempty"`
	Schema       *SchemaConfig  `json:"schema_config,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// agentParamsWire mirrors the typed fields of AgentParams for two-pass
// decoding: known fields first, then everything else into Extra.
type agentParamsWire struct {
	SystemPrompt string         `json:"system_prompt,omitempty"`
	MCPServer    *MCPServerSpec `json:"mcp_server,omitempty"`
	Schema       *SchemaConfig  `json:"schema_config,omitempty"`
}

// UnmarshalJSON decodes known params into typed fields and preserves the
// remainder as raw JSON.
func (p *AgentParams) UnmarshalJSON(data []byte) error {
	var known agentParamsWire
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	delete(all, "system_prompt")
	delete(all, "mcp_server")
	delete(all, "schema_config")

	p.SystemPrompt = known.SystemPrompt
	p.MCPServer = known.MCPServer
	p.Schema = known.Schema
	if len(all) > 0 {
		p.Extra = all
	}
	return nil
}

// MarshalJSON re-assembles typed fields and the preserved remainder.
func (p AgentParams) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(p.Extra)+3)
	for k, v := range p.Extra {
		out[k] = v
	}
	if p.SystemPrompt != "" {
		out["system_prompt"] = p.SystemPrompt
	}
	if p.MCPServer != nil {
		out["mcp_server"] = p.MCPServer
	}
	if p.Schema != nil {
		out["schema_config"] = p.Schema
	}
	return json.Marshal(out)
}

// ── Routing ──────────────────────────────────────────────────

// RoutingRule matches request text against a case-insensitive regular
// expression. The configured order of rules is load-bearing: it breaks
// priority ties deterministically.
type RoutingRule struct {
	Pattern  string `json:"pattern"`
	Agent    string `json:"agent"`
	Priority int    `json:"priority"`
}

// RoutingConfig carries the keyword fallback table used when no pattern
// rule matches.
type RoutingConfig struct {
	AgentRules map[string]FallbackRule `json:"agent_rules,omitempty"`
}

// FallbackRule ranks an agent by keyword hits when pattern routing yields
// nothing. FallbackPriority is a rank: lower wins ties, and the lowest rank
// is the universal default when no keyword hits at all. An empty keyword
// set is a legal always-eligible catch-all.
type FallbackRule struct {
	Keywords         []string `json:"keywords"`
	FallbackPriority int      `json:"fallback_priority"`
}

// ── Schema Mapping ───────────────────────────────────────────

// SchemaConfig is the translation table between the natural-language
// vocabulary users and operators use and the physical identifiers of the
// backing data source.
type SchemaConfig struct {
	SchemaPrefix   string                       `json:"schema_prefix,omitempty"`
	Tables         []string                     `json:"tables,omitempty"`
	Views          []string                     `json:"views,omitempty"`
	TableMappings  map[string]string            `json:"table_mappings,omitempty"`
	ColumnMappings map[string]map[string]string `json:"column_mappings,omitempty"`
	DataTypeRules  DataTypeRules                `json:"data_type_rules,omitempty"`
}

// DataTypeRules partitions physical column names into data type categories.
// A column belongs to at most one category; columns in none are treated as
// unknown.
type DataTypeRules struct {
	Integer []string `json:"integer_columns,omitempty"`
	Text    []string `json:"text_columns,omitempty"`
	Numeric []string `json:"numeric_columns,omitempty"`
	Date    []string `json:"date_columns,omitempty"`
}

// ── MCP Servers ──────────────────────────────────────────────

// MCPServerSpec declares a backing data source exposed through the MCP
// initialize/execute capability. Connection detail values may contain
// ${ENV_VAR} placeholders; the tenant loader resolves them at load time.
type MCPServerSpec struct {
	Type              string                     `json:"type"`
	ConnectionDetails map[string]string          `json:"connection_details"`
	AdditionalParams  map[string]json.RawMessage `json:"additional_params,omitempty"`
}

// ── Dynamic Registration ─────────────────────────────────────

// RegistrationDecl names an implementation to register under a type tag.
// ModulePath and ClassName are resolved against the compiled-in symbol
// catalog; arbitrary runtime code loading is deliberately not supported.
type RegistrationDecl struct {
	Type       string `json:"type"`
	ModulePath string `json:"module_path"`
	ClassName  string `json:"class_name"`
}

// Declarations is the platform-level registration document: extra type tags
// to register on either registry at startup, tenant-independent.
type Declarations struct {
	Agents     []RegistrationDecl `json:"agents,omitempty"`
	MCPServers []RegistrationDecl `json:"mcp_servers,omitempty"`
}

// ── Requests & Responses ─────────────────────────────────────

// AgentRequest is the processing contract input handed to an agent.
type AgentRequest struct {
	Content   string            `json:"content"`
	TenantID  string            `json:"tenant_id"`
	RequestID string            `json:"request_id"`
	Context   map[string]string `json:"context,omitempty"`
}

// AgentResponse is what an agent hands back. Failures travel as
// Success=false with a human-readable Error, never as raw errors crossing
// the dispatch boundary.
type AgentResponse struct {
	Content  string                 `json:"content"`
	Success  bool                   `json:"success"`
	Error    string                 `json:"error,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// DispatchResponse is the orchestrator's answer to one inbound request.
type DispatchResponse struct {
	RequestID string                 `json:"request_id"`
	TenantID  string                 `json:"tenant_id"`
	Agent     string                 `json:"agent,omitempty"`
	Content   string                 `json:"content,omitempty"`
	Success   bool                   `json:"success"`
	Error     string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Elapsed   float64                `json:"elapsed_seconds"`
}

// QueryResult is the row set returned by an MCP server execution.
type QueryResult struct {
	Columns  []string                 `json:"columns"`
	Rows     []map[string]interface{} `json:"rows"`
	RowCount int                      `json:"row_count"`
}

// ── Physical Schema Introspection ────────────────────────────

// PhysicalColumn is one introspected column of the backing data source.
type PhysicalColumn struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Nullable bool   `json:"nullable"`
}

// PhysicalSchema maps physical table name to its columns, as reported by
// the data source itself.
type PhysicalSchema map[string][]PhysicalColumn
