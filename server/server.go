package server

// Package server is the HTTP transport for the gateway: it decodes request
// bodies, drives the execution pipeline under the gate, and maps every
// pipeline failure to a single coarse error shape (500 + empty rows).
// Callers intentionally cannot distinguish bad SQL from lock failure from a
// malformed batch; details go to the server log only.

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"

	"github.com/tomyedwab/sqlgate/audit"
	"github.com/tomyedwab/sqlgate/dispatch"
	"github.com/tomyedwab/sqlgate/gate"
	"github.com/tomyedwab/sqlgate/httputils"
	"github.com/tomyedwab/sqlgate/types"
)

// Server handles gateway HTTP traffic. auditLogger is nil when metadata
// collection is disabled.
type Server struct {
	gate        *gate.Gate
	dispatcher  *dispatch.Dispatcher
	auditLogger *audit.Logger
	log         *slog.Logger
	version     string
}

func New(g *gate.Gate, d *dispatch.Dispatcher, auditLogger *audit.Logger, log *slog.Logger, version string) *Server {
	return &Server{
		gate:        g,
		dispatcher:  d,
		auditLogger: auditLogger,
		log:         log,
		version:     version,
	}
}

// Router returns the gateway's route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleExecute).Methods(http.MethodPost)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	httputils.WriteJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	log := s.log.With("request_id", uuid.NewString())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("Failed to read request body", "error", err)
		httputils.WriteJSON(w, http.StatusInternalServerError, types.EmptyResponse())
		return
	}

	var req types.Request
	if err := json.Unmarshal(body, &req); err != nil {
		log.Error("Failed to decode request", "error", err)
		httputils.WriteJSON(w, http.StatusInternalServerError, types.EmptyResponse())
		return
	}
	log.Debug("Received SQL request", "sql", req.SQL, "args", string(req.Args))

	var resp *types.Response
	err = s.gate.With(func(db *sqlx.DB) error {
		startedAt := time.Now()
		var execErr error
		resp, execErr = s.dispatcher.Execute(db, &req)
		finishedAt := time.Now()

		// One audit row per request admitted by the gate, success or not,
		// written inside the same critical section as the execution itself.
		if s.auditLogger != nil {
			if payload, merr := json.Marshal(&req); merr != nil {
				log.Warn("Failed to serialize request for the audit log", "error", merr)
			} else {
				s.auditLogger.Record(db, payload, startedAt, finishedAt)
			}
		}
		return execErr
	})
	if err != nil {
		log.Error("Request failed", "error", err)
		httputils.WriteJSON(w, http.StatusInternalServerError, types.EmptyResponse())
		return
	}

	httputils.WriteJSON(w, http.StatusOK, resp)
}
