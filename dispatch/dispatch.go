package dispatch

// Package dispatch classifies a parsed request as single-statement or batch,
// validates its shape, and executes it against the connection handed in by
// the gate. All shape validation that can happen before touching the database
// happens first; a batch that fails validation at index i leaves statements
// 0..i-1 committed (execution is serialized, not atomic).

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/tomyedwab/sqlgate/types"
	"github.com/tomyedwab/sqlgate/values"
)

// Dispatcher executes requests. It holds no connection state; the database
// handle is passed per call from inside the gate's critical section.
type Dispatcher struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Dispatcher {
	return &Dispatcher{log: log}
}

// Execute runs one request and returns its result rows. Batch requests never
// return rows; a successful batch yields an empty response.
func (d *Dispatcher) Execute(db *sqlx.DB, req *types.Request) (*types.Response, error) {
	switch req.SQL.Mode {
	case types.ModeSingle:
		return d.executeSingle(db, req)
	case types.ModeBatch:
		return d.executeBatch(db, req)
	}
	return nil, fmt.Errorf("unknown statement mode %d", req.SQL.Mode)
}

// decodeScalarList decodes a raw JSON argument list into bindable parameters.
// A missing list binds zero parameters. Nested arrays and objects are
// rejected by values.ToParameter, which also covers the "batch-shaped args
// sent with a single statement" case.
func decodeScalarList(raw json.RawMessage) ([]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("args must be a list: %w", err)
	}
	params := make([]any, 0, len(elems))
	for i, e := range elems {
		p, err := values.ToParameter(e)
		if err != nil {
			return nil, fmt.Errorf("arg %d: %w", i, err)
		}
		params = append(params, p)
	}
	return params, nil
}

func (d *Dispatcher) executeSingle(db *sqlx.DB, req *types.Request) (*types.Response, error) {
	params, err := decodeScalarList(req.Args)
	if err != nil {
		return nil, err
	}

	rows, err := db.Queryx(req.SQL.Text, params...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	out := make([][]any, 0)
	for rows.Next() {
		cols, err := rows.SliceScan()
		if err != nil {
			d.log.Warn("Failed to scan result row, skipping it", "error", err)
			continue
		}
		vals := make([]any, 0, len(cols))
		for i, col := range cols {
			jv, err := values.ToJSON(col)
			if err != nil {
				// Preserved leniency: the column is dropped from this row's
				// output rather than failing the request.
				d.log.Warn("Could not convert column to a JSON value, dropping it", "column", i, "error", err)
				continue
			}
			vals = append(vals, jv)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}

	return &types.Response{Rows: out}, nil
}

func (d *Dispatcher) executeBatch(db *sqlx.DB, req *types.Request) (*types.Response, error) {
	var groups []json.RawMessage
	if len(req.Args) > 0 {
		if err := json.Unmarshal(req.Args, &groups); err != nil {
			return nil, fmt.Errorf("batch args must be a list: %w", err)
		}
	}
	if len(groups) != len(req.SQL.Batch) {
		return nil, fmt.Errorf("batch length mismatch: %d statements but %d argument groups",
			len(req.SQL.Batch), len(groups))
	}

	for i, stmt := range req.SQL.Batch {
		params, err := decodeScalarList(groups[i])
		if err != nil {
			return nil, fmt.Errorf("batch args[%d]: %w", i, err)
		}
		if _, err := db.Exec(stmt, params...); err != nil {
			return nil, fmt.Errorf("batch statement %d failed: %w", i, err)
		}
	}

	return types.EmptyResponse(), nil
}
