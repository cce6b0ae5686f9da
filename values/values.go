package values

// Package values converts between the column values produced by the SQLite
// driver and the JSON scalar model used on the wire. It is stateless; both
// directions return an error for anything outside the supported union.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// ToJSON converts one scanned column value to its JSON scalar. The supported
// union is null, int64, float64, text and blob; datetime columns surface from
// the driver as time.Time and are rendered as RFC3339 text.
//
// Blobs are rendered as a bracketed hex debug string, e.g. "[de, ad, be, ef]".
// This is intentionally lossy: it exists for human inspection, and callers
// must not rely on it to round-trip binary data.
func ToJSON(col any) (any, error) {
	switch v := col.(type) {
	case nil:
		return nil, nil
	case int64:
		return v, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non-finite float %v has no JSON representation", v)
		}
		return v, nil
	case string:
		return v, nil
	case []byte:
		return formatBlob(v), nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	}
	return nil, fmt.Errorf("unsupported column type %T", col)
}

// formatBlob renders a byte sequence as "[de, ad, be, ef]". Each byte is
// lowercase hex without zero padding.
func formatBlob(b []byte) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, c := range b {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%x", c)
	}
	sb.WriteByte(']')
	return sb.String()
}

// ToParameter converts one raw JSON value into a driver-bindable parameter.
// null, numbers, strings and booleans are accepted (booleans bind as 0/1,
// matching SQLite's convention); arrays and objects are rejected since
// parameters must be scalars.
func ToParameter(raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty parameter value")
	}
	switch trimmed[0] {
	case '[':
		return nil, fmt.Errorf("parameter must be a JSON scalar, got an array")
	case '{':
		return nil, fmt.Errorf("parameter must be a JSON scalar, got an object")
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("failed to parse string parameter: %w", err)
		}
		return s, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return nil, fmt.Errorf("failed to parse boolean parameter: %w", err)
		}
		if b {
			return int64(1), nil
		}
		return int64(0), nil
	case 'n':
		if string(trimmed) != "null" {
			return nil, fmt.Errorf("invalid parameter value %q", trimmed)
		}
		return nil, nil
	}

	var num json.Number
	if err := json.Unmarshal(trimmed, &num); err != nil {
		return nil, fmt.Errorf("failed to parse numeric parameter: %w", err)
	}
	if i, err := num.Int64(); err == nil {
		return i, nil
	}
	f, err := num.Float64()
	if err != nil {
		// Overflow to +/-Inf lands here; there is no finite binding for it.
		return nil, fmt.Errorf("numeric parameter %s is not representable: %w", num, err)
	}
	return f, nil
}
