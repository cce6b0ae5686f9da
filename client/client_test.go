package client

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"path"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tomyedwab/sqlgate/dispatch"
	"github.com/tomyedwab/sqlgate/gate"
	"github.com/tomyedwab/sqlgate/server"
)

func setupGateway(t *testing.T) (*Client, *sqlx.DB) {
	t.Helper()
	db := sqlx.MustConnect("sqlite3", path.Join(t.TempDir(), "test_client.db"))
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		db.Close()
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := gate.New(db)
	t.Cleanup(g.Close)

	srv := server.New(g, dispatch.New(logger), nil, logger, "test")
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return New(ts.URL), db
}

func TestQuery(t *testing.T) {
	c, _ := setupGateway(t)

	rows, err := c.Query(context.Background(), "SELECT ? AS x, ? AS y", 42, "hello")
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if len(rows) != 1 || len(rows[0]) != 2 {
		t.Fatalf("Unexpected row shape: %v", rows)
	}
	if rows[0][0] != float64(42) || rows[0][1] != "hello" {
		t.Errorf("Unexpected values: %v", rows[0])
	}
}

func TestQueryError(t *testing.T) {
	c, _ := setupGateway(t)

	if _, err := c.Query(context.Background(), "NOT VALID SQL"); err == nil {
		t.Fatal("Expected error for invalid SQL, got nil")
	}
}

func TestExec(t *testing.T) {
	c, db := setupGateway(t)
	db.MustExec("CREATE TABLE t (v INTEGER)")

	if err := c.Exec(context.Background(), "INSERT INTO t(v) VALUES(?)", 7); err != nil {
		t.Fatalf("Exec returned error: %v", err)
	}

	var v int64
	if err := db.Get(&v, "SELECT v FROM t"); err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if v != 7 {
		t.Errorf("Expected 7, got %d", v)
	}
}

func TestBatch(t *testing.T) {
	c, db := setupGateway(t)
	db.MustExec("CREATE TABLE t (v INTEGER)")

	err := c.Batch(context.Background(),
		[]string{"INSERT INTO t(v) VALUES(?)", "INSERT INTO t(v) VALUES(?)"},
		[][]any{{1}, {2}})
	if err != nil {
		t.Fatalf("Batch returned error: %v", err)
	}

	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM t"); err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 rows, got %d", count)
	}
}

func TestBatchLengthMismatch(t *testing.T) {
	c, db := setupGateway(t)
	db.MustExec("CREATE TABLE t (v INTEGER)")

	err := c.Batch(context.Background(),
		[]string{"INSERT INTO t(v) VALUES(?)", "INSERT INTO t(v) VALUES(?)"},
		[][]any{{1}})
	if err == nil {
		t.Fatal("Expected error for mismatched batch, got nil")
	}
}
