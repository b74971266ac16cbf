// Package mcp implements the MCP server capability: an abstraction over a
// concrete backing data source exposing initialize/execute/schema. Built-in
// implementations cover sqlite and postgresql; deployments extend the set
// through registration declarations resolved against the compiled-in
// catalog.
package mcp

import (
	"context"
	"database/sql"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/switchboard-ai/switchboard/pkg/errdefs"
	"github.com/switchboard-ai/switchboard/pkg/models"
)

// Server is the MCP server capability consumed by query-capable agents.
// Initialize must succeed before the instance is handed to a caller, and
// is called again on every handout from the pool; implementations treat a
// repeat call as a connectivity check.
type Server interface {
	Initialize(ctx context.Context) error
	Execute(ctx context.Context, query, tenantID string) (*models.QueryResult, error)
	Schema(ctx context.Context) (models.PhysicalSchema, error)
	Close() error
}

// ── Read-Only Guard ──────────────────────────────────────────

var (
	lineComment  = regexp.MustCompile(`--[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

var forbiddenKeywords = []string{
	"insert", "update", "delete", "drop", "alter", "create", "truncate",
	"grant", "revoke", "commit", "rollback", "savepoint",
}

// validateReadOnly rejects anything but SELECT (or WITH ... SELECT)
// statements. Comments are stripped before matching so they cannot smuggle
// keywords past the check.
func validateReadOnly(query string) error {
	cleaned := lineComment.ReplaceAllString(query, " ")
	cleaned = blockComment.ReplaceAllString(cleaned, " ")
	cleaned = strings.ToLower(strings.Join(strings.Fields(cleaned), " "))

	if !strings.HasPrefix(cleaned, "select") && !strings.HasPrefix(cleaned, "with") {
		return errors.New("only SELECT queries are allowed for read-only access")
	}
	padded := " " + cleaned + " "
	for _, kw := range forbiddenKeywords {
		if strings.Contains(padded, " "+kw+" ") {
			return errors.Newf("query contains forbidden keyword: %s", kw)
		}
	}
	return nil
}

// ── Row Scanning ─────────────────────────────────────────────

// collectRows drains a result set into the QueryResult wire shape,
// normalizing []byte values to strings.
func collectRows(rows *sql.Rows) (*models.QueryResult, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, errdefs.Execution(err, "read result columns")
	}

	result := &models.QueryResult{Columns: cols, Rows: []map[string]interface{}{}}
	values := make([]interface{}, len(cols))
	scanTargets := make([]interface{}, len(cols))
	for i := range values {
		scanTargets[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, errdefs.Execution(err, "scan result row")
		}
		row := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errdefs.Execution(err, "iterate result rows")
	}
	result.RowCount = len(result.Rows)
	return result, nil
}
