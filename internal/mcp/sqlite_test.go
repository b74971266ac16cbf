package mcp

import (
	"context"
	"testing"

	"github.com/switchboard-ai/switchboard/pkg/models"
)

func memorySQLite(t *testing.T) *SQLiteServer {
	t.Helper()
	srv, err := NewSQLiteServer(&models.MCPServerSpec{
		Type:              "sqlite",
		ConnectionDetails: map[string]string{},
	})
	if err != nil {
		t.Fatalf("NewSQLiteServer: %v", err)
	}
	if err := srv.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return srv.(*SQLiteServer)
}

func TestSQLiteExecuteRoundTrip(t *testing.T) {
	srv := memorySQLite(t)
	defer srv.Close()
	ctx := context.Background()

	if _, err := srv.Execute(ctx, "CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT)", "acme"); err != nil {
		t.Fatalf("create: %v", err)
	}
	res, err := srv.Execute(ctx, "INSERT INTO users (email) VALUES ('a@example.com'), ('b@example.com')", "acme")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if res.Rows[0]["rows_affected"] != int64(2) {
		t.Errorf("rows_affected = %v, want 2", res.Rows[0]["rows_affected"])
	}

	res, err = srv.Execute(ctx, "SELECT id, email FROM users ORDER BY id", "acme")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if res.RowCount != 2 {
		t.Errorf("RowCount = %d, want 2", res.RowCount)
	}
	if got := res.Rows[0]["email"]; got != "a@example.com" {
		t.Errorf("Rows[0][email] = %v, want a@example.com", got)
	}

	ps, err := srv.Schema(ctx)
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	cols := ps["users"]
	if len(cols) != 2 || cols[0].Name != "id" || cols[1].Name != "email" {
		t.Errorf("schema users = %+v, want id and email columns", cols)
	}
}

func TestSQLiteCloseKeepsHandle(t *testing.T) {
	srv := memorySQLite(t)

	if err := srv.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if srv.db == nil {
		t.Fatal("Close cleared the handle; a concurrent Execute would race the nil write")
	}
	if _, err := srv.Execute(context.Background(), "SELECT 1", "acme"); err == nil {
		t.Error("Execute after Close succeeded, want closed-database error")
	}
}
