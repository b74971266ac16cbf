package mcp

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/switchboard-ai/switchboard/pkg/errdefs"
	"github.com/switchboard-ai/switchboard/pkg/models"
)

func mockedPostgres(t *testing.T) (*PostgresServer, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	srv := &PostgresServer{dsn: "mock", schemaName: "public", db: db}
	t.Cleanup(func() { srv.Close() })
	return srv, mock
}

func TestNewPostgresServerRequiresDSN(t *testing.T) {
	_, err := NewPostgresServer(&models.MCPServerSpec{
		Type:              "postgresql",
		ConnectionDetails: map[string]string{},
	})
	if !errdefs.IsKind(err, errdefs.ErrConfiguration) {
		t.Errorf("NewPostgresServer error = %v, want configuration error", err)
	}
}

func TestPostgresExecute(t *testing.T) {
	srv, mock := mockedPostgres(t)

	mock.ExpectQuery("SELECT id, name FROM users").WillReturnRows(
		sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), []byte("alice")).
			AddRow(int64(2), []byte("bob")))

	result, err := srv.Execute(context.Background(), "SELECT id, name FROM users", "acme")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.RowCount != 2 {
		t.Errorf("RowCount = %d, want 2", result.RowCount)
	}
	if got := result.Rows[0]["name"]; got != "alice" {
		t.Errorf("Rows[0][name] = %v (%T), want string alice", got, got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresExecuteRejectsWrites(t *testing.T) {
	srv, _ := mockedPostgres(t)

	_, err := srv.Execute(context.Background(), "DELETE FROM users", "acme")
	if !errdefs.IsKind(err, errdefs.ErrExecution) {
		t.Errorf("Execute error = %v, want execution error", err)
	}
}

func TestPostgresSchema(t *testing.T) {
	srv, mock := mockedPostgres(t)

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name", "data_type", "is_nullable"}).
			AddRow("users", "id", "integer", "NO").
			AddRow("users", "email", "text", "YES"))

	ps, err := srv.Schema(context.Background())
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	cols := ps["users"]
	if len(cols) != 2 {
		t.Fatalf("users columns = %d, want 2", len(cols))
	}
	if cols[0].Name != "id" || cols[0].Nullable {
		t.Errorf("cols[0] = %+v, want non-nullable id", cols[0])
	}
	if cols[1].Name != "email" || !cols[1].Nullable {
		t.Errorf("cols[1] = %+v, want nullable email", cols[1])
	}
}

func TestPostgresCloseKeepsHandle(t *testing.T) {
	srv, mock := mockedPostgres(t)
	mock.ExpectClose()

	if err := srv.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if srv.db == nil {
		t.Fatal("Close cleared the handle; a concurrent Execute would race the nil write")
	}
	if _, err := srv.Execute(context.Background(), "SELECT 1", "acme"); !errdefs.IsKind(err, errdefs.ErrExecution) {
		t.Errorf("Execute after Close error = %v, want execution error", err)
	}
}

func TestPostgresExecuteBeforeInitialize(t *testing.T) {
	srv := &PostgresServer{dsn: "mock", schemaName: "public"}
	if _, err := srv.Execute(context.Background(), "SELECT 1", "acme"); err == nil {
		t.Error("Execute on uninitialized server succeeded, want error")
	}
}
