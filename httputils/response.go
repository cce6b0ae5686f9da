package httputils

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// WriteJSON serializes resp and writes it with the given status code. A
// serialization failure degrades to a bare 500; the gateway never leaks
// internal error text in a response body.
func WriteJSON(w http.ResponseWriter, status int, resp interface{}) {
	data, err := json.Marshal(resp)
	if err != nil {
		slog.Error("Failed to marshal response body", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
