package mcp

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/switchboard-ai/switchboard/pkg/errdefs"
	"github.com/switchboard-ai/switchboard/pkg/models"
)

// PostgresServer is the MCP server for PostgreSQL. It enforces read-only
// access: only SELECT (and WITH ... SELECT) statements execute.
//
// Connection details:
//
//	database_url  DSN (required; ${ENV} placeholders are resolved at
//	              tenant load time, before the spec reaches this package)
//	schema        schema to introspect (default "public")
type PostgresServer struct {
	dsn        string
	schemaName string
	db         *sql.DB
}

var _ Server = (*PostgresServer)(nil)

// NewPostgresServer builds a postgresql MCP server from its spec.
func NewPostgresServer(spec *models.MCPServerSpec) (Server, error) {
	dsn := spec.ConnectionDetails["database_url"]
	if dsn == "" {
		return nil, errdefs.Configuration("postgresql MCP server requires connection detail %q", "database_url")
	}
	schemaName := spec.ConnectionDetails["schema"]
	if schemaName == "" {
		schemaName = "public"
	}
	return &PostgresServer{dsn: dsn, schemaName: schemaName}, nil
}

// Initialize opens the connection pool on first call and pings on
// subsequent calls.
func (s *PostgresServer) Initialize(ctx context.Context) error {
	if s.db == nil {
		db, err := sql.Open("postgres", s.dsn)
		if err != nil {
			return errdefs.Initialization(err, "postgresql")
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)
		s.db = db
	}
	if err := s.db.PingContext(ctx); err != nil {
		return errdefs.Initialization(err, "postgresql")
	}
	log.Debug().Str("schema", s.schemaName).Msg("PostgreSQL MCP server ready")
	return nil
}

// Execute runs a read-only query and returns its rows.
func (s *PostgresServer) Execute(ctx context.Context, query, tenantID string) (*models.QueryResult, error) {
	if s.db == nil {
		return nil, errdefs.Execution(fmt.Errorf("server not initialized"), "postgresql execute")
	}
	if err := validateReadOnly(query); err != nil {
		return nil, errdefs.Execution(err, "postgresql execute")
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errdefs.Execution(err, "postgresql query")
	}
	defer rows.Close()

	result, err := collectRows(rows)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("tenant", tenantID).
		Int("rows", result.RowCount).
		Msg("PostgreSQL query executed")
	return result, nil
}

// Schema introspects the configured schema through information_schema.
func (s *PostgresServer) Schema(ctx context.Context) (models.PhysicalSchema, error) {
	if s.db == nil {
		return nil, errdefs.Execution(fmt.Errorf("server not initialized"), "postgresql schema")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT table_name, column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1
		ORDER BY table_name, ordinal_position`, s.schemaName)
	if err != nil {
		return nil, errdefs.Execution(err, "postgresql introspect schema")
	}
	defer rows.Close()

	ps := make(models.PhysicalSchema)
	for rows.Next() {
		var table, column, dataType, nullable string
		if err := rows.Scan(&table, &column, &dataType, &nullable); err != nil {
			return nil, errdefs.Execution(err, "postgresql scan column")
		}
		ps[table] = append(ps[table], models.PhysicalColumn{
			Name:     column,
			DataType: dataType,
			Nullable: nullable == "YES",
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errdefs.Execution(err, "postgresql introspect schema")
	}
	return ps, nil
}

// Close releases the connection pool. The handle stays set; a reader still
// holding the instance gets the driver's closed-pool error rather than
// racing a nil write.
func (s *PostgresServer) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
