package audit

import (
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Record represents one audit row: the request payload as received plus the
// execution window it occupied. Rows are appended once per accepted request
// and never mutated or deleted by the gateway; retention is the operator's
// responsibility.
type Record struct {
	ID         int64  `db:"id"`
	Payload    string `db:"payload"`
	StartedAt  string `db:"started_at"`
	FinishedAt string `db:"finished_at"`
}

// Logger records accepted requests in the __metadata_query table. Inserts
// are best-effort: a failure is logged and never surfaced to the caller.
type Logger struct {
	log *slog.Logger
}

// NewLogger initializes the audit table and returns a logger writing to it.
func NewLogger(db *sqlx.DB, log *slog.Logger) (*Logger, error) {
	if err := DBInit(db); err != nil {
		return nil, err
	}
	return &Logger{log: log}, nil
}

// DBInit creates the audit table. The table name and schema match the
// original deployment so existing tooling keeps working against it.
func DBInit(db *sqlx.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS __metadata_query (
		id INTEGER,
		payload TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		PRIMARY KEY(id)
	)
	`)
	return err
}

// Record inserts one audit row. It is called inside the gate's critical
// section, after execution completes, so the write is serialized with every
// other statement. Insert failures are swallowed; audit is diagnostic, not
// transactional.
func (l *Logger) Record(db *sqlx.DB, payload []byte, startedAt, finishedAt time.Time) {
	_, err := db.Exec(
		`INSERT INTO __metadata_query (payload, started_at, finished_at) VALUES ($1, $2, $3)`,
		string(payload),
		startedAt.Format(time.RFC3339Nano),
		finishedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		l.log.Warn("Error occurred while storing request metadata", "error", err)
	}
}

// Recent retrieves the most recent audit records, newest first.
func (l *Logger) Recent(db *sqlx.DB, limit int) ([]Record, error) {
	var records []Record
	err := db.Select(&records,
		`SELECT * FROM __metadata_query ORDER BY id DESC LIMIT $1`, limit)
	return records, err
}
