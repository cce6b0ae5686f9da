package storage

// Package storage opens the one SQLite database the gateway serves. The
// returned handle is pinned to a single physical connection and has all
// startup pragmas applied; any failure here is fatal before traffic is
// accepted.

import (
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// Config holds the store settings, resolved once at startup and immutable
// for the process's lifetime.
type Config struct {
	DBPath      string
	EnableWAL   bool
	ForeignKeys bool
	Extensions  []string
}

var extDriverSeq int64

// registerExtensionDriver registers a go-sqlite3 driver variant that loads
// the given extension modules on connect. Driver names must be unique per
// registration, hence the sequence suffix.
func registerExtensionDriver(extensions []string) string {
	name := fmt.Sprintf("sqlite3_ext_%d", atomic.AddInt64(&extDriverSeq, 1))
	sql.Register(name, &sqlite3.SQLiteDriver{Extensions: extensions})
	return name
}

// Open connects to the database file and prepares it for serving. The handle
// is limited to one open connection; exclusive use is enforced separately by
// the gate.
func Open(cfg Config) (*sqlx.DB, error) {
	driverName := "sqlite3"
	if len(cfg.Extensions) > 0 {
		driverName = registerExtensionDriver(cfg.Extensions)
	}

	// sqlx.Connect pings, so extension load failures surface here.
	db, err := sqlx.Connect(driverName, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.DBPath, err)
	}
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db, cfg); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func applyPragmas(db *sqlx.DB, cfg Config) error {
	if _, err := db.Exec(`PRAGMA encoding = "UTF-8"`); err != nil {
		return fmt.Errorf("failed to set UTF-8 encoding: %w", err)
	}
	if cfg.EnableWAL {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if cfg.ForeignKeys {
		if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
			return fmt.Errorf("failed to enable foreign key enforcement: %w", err)
		}
	}
	return nil
}
