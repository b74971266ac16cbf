package mcp

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/switchboard-ai/switchboard/pkg/errdefs"
	"github.com/switchboard-ai/switchboard/pkg/models"
)

// SQLiteServer is the MCP server for SQLite databases. The connection
// detail "database" names the database file; it defaults to an in-memory
// database, which is mainly useful for demos and tests.
type SQLiteServer struct {
	path string
	db   *sql.DB
}

var _ Server = (*SQLiteServer)(nil)

// NewSQLiteServer builds a sqlite MCP server from its spec. The connection
// is not opened until Initialize.
func NewSQLiteServer(spec *models.MCPServerSpec) (Server, error) {
	path := spec.ConnectionDetails["database"]
	if path == "" {
		path = ":memory:"
	}
	return &SQLiteServer{path: path}, nil
}

// Initialize opens the database on first call and pings on subsequent
// calls, so the pool can re-verify cached instances.
func (s *SQLiteServer) Initialize(ctx context.Context) error {
	if s.db == nil {
		db, err := sql.Open("sqlite3", s.path)
		if err != nil {
			return errdefs.Initialization(err, "sqlite")
		}
		s.db = db
	}
	if err := s.db.PingContext(ctx); err != nil {
		return errdefs.Initialization(err, "sqlite")
	}
	log.Debug().Str("database", s.path).Msg("SQLite MCP server ready")
	return nil
}

// Execute runs a statement. SELECT-like statements return rows; anything
// else returns the affected row count as a single-row result.
func (s *SQLiteServer) Execute(ctx context.Context, query, tenantID string) (*models.QueryResult, error) {
	if s.db == nil {
		return nil, errdefs.Execution(fmt.Errorf("server not initialized"), "sqlite execute")
	}

	head := strings.ToLower(strings.TrimSpace(query))
	if strings.HasPrefix(head, "select") || strings.HasPrefix(head, "with") || strings.HasPrefix(head, "pragma") {
		rows, err := s.db.QueryContext(ctx, query)
		if err != nil {
			return nil, errdefs.Execution(err, "sqlite query")
		}
		defer rows.Close()
		return collectRows(rows)
	}

	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return nil, errdefs.Execution(err, "sqlite exec")
	}
	affected, _ := res.RowsAffected()
	return &models.QueryResult{
		Columns:  []string{"rows_affected"},
		Rows:     []map[string]interface{}{{"rows_affected": affected}},
		RowCount: 1,
	}, nil
}

// Schema introspects every user table through sqlite_master and
// PRAGMA table_info.
func (s *SQLiteServer) Schema(ctx context.Context) (models.PhysicalSchema, error) {
	if s.db == nil {
		return nil, errdefs.Execution(fmt.Errorf("server not initialized"), "sqlite schema")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type IN ('table','view') AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, errdefs.Execution(err, "sqlite list tables")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errdefs.Execution(err, "sqlite scan table name")
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errdefs.Execution(err, "sqlite list tables")
	}

	ps := make(models.PhysicalSchema, len(tables))
	for _, table := range tables {
		cols, err := s.tableColumns(ctx, table)
		if err != nil {
			return nil, err
		}
		ps[table] = cols
	}
	return ps, nil
}

func (s *SQLiteServer) tableColumns(ctx context.Context, table string) ([]models.PhysicalColumn, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, errdefs.Execution(err, "sqlite table_info")
	}
	defer rows.Close()

	var cols []models.PhysicalColumn
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, errdefs.Execution(err, "sqlite scan column")
		}
		cols = append(cols, models.PhysicalColumn{
			Name:     name,
			DataType: strings.ToLower(ctype),
			Nullable: notnull == 0,
		})
	}
	return cols, rows.Err()
}

// Close releases the underlying connection. The handle stays set; a reader
// still holding the instance gets the driver's closed-database error rather
// than racing a nil write.
func (s *SQLiteServer) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
