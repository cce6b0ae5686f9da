package types

// --- JSON structures for the gateway wire protocol ---

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Mode discriminates the two accepted shapes of the "sql" field. It is
// decided once, when the request is parsed, so downstream code never has to
// re-infer the shape from the raw JSON.
type Mode int

const (
	// ModeSingle is one statement with a flat argument list.
	ModeSingle Mode = iota
	// ModeBatch is an ordered statement list where args[i] is the argument
	// group for statements[i].
	ModeBatch
)

// StatementSpec is the parsed "sql" field: either a single statement or an
// ordered batch. Exactly one of Text/Batch is meaningful, selected by Mode.
type StatementSpec struct {
	Mode  Mode
	Text  string
	Batch []string
}

// UnmarshalJSON accepts a JSON string (single mode) or a JSON array of
// strings (batch mode). Any other shape is rejected up front.
func (s *StatementSpec) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("sql field is empty")
	}
	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return fmt.Errorf("failed to parse sql string: %w", err)
		}
		*s = StatementSpec{Mode: ModeSingle, Text: text}
		return nil
	case '[':
		var batch []string
		if err := json.Unmarshal(data, &batch); err != nil {
			return fmt.Errorf("failed to parse sql batch, every element must be a string: %w", err)
		}
		*s = StatementSpec{Mode: ModeBatch, Batch: batch}
		return nil
	}
	return fmt.Errorf("sql must be a string or a list of strings")
}

// MarshalJSON re-emits the original wire shape so a parsed request can be
// serialized back verbatim, e.g. for the audit payload.
func (s StatementSpec) MarshalJSON() ([]byte, error) {
	if s.Mode == ModeBatch {
		return json.Marshal(s.Batch)
	}
	return json.Marshal(s.Text)
}

// Request is one incoming gateway request. Args stays raw until the
// dispatcher decodes it according to the statement mode.
type Request struct {
	SQL  StatementSpec   `json:"sql"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Response carries the result rows back to the caller. Rows is always
// present on the wire, and empty (never null) on error and on batch success.
type Response struct {
	Rows [][]any `json:"rows"`
}

// EmptyResponse returns a Response that serializes as {"rows": []}.
func EmptyResponse() *Response {
	return &Response{Rows: make([][]any, 0)}
}
