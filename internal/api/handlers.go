package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/jbweber/lvnode/internal/compute"
	"github.com/jbweber/lvnode/internal/driver"
	"github.com/jbweber/lvnode/internal/journal"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ActionResponse is returned by the node action endpoint.
type ActionResponse struct {
	UUID    string `json:"uuid"`
	Action  string `json:"action"`
	Success bool   `json:"success"`
}

const maxOperationsLimit = 1000

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.nodes.Ping(); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listNodesHandler(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.nodes.ListNodes(r.Context())
	if err != nil {
		s.writeDriverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) nodeDetailsHandler(w http.ResponseWriter, r *http.Request) {
	node := compute.NodeRef(nodeUUIDParam(r))

	details, err := s.nodes.NodeDetails(r.Context(), node)
	if err != nil {
		s.writeDriverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *Server) nodeActionHandler(w http.ResponseWriter, r *http.Request) {
	id := nodeUUIDParam(r)
	action := driver.Operation(strings.ToLower(chi.URLParam(r, "action")))

	if !isLifecycleOperation(action) {
		writeError(w, http.StatusBadRequest, "unsupported action "+strconv.Quote(string(action)))
		return
	}

	ok, err := s.nodes.Do(r.Context(), action, compute.NodeRef(id))
	if err != nil {
		s.writeDriverError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ActionResponse{UUID: id, Action: string(action), Success: ok})
}

func (s *Server) operationsHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "operation journal is disabled")
		return
	}

	filter := journal.Filter{UUID: r.URL.Query().Get("uuid")}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > maxOperationsLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxOperationsLimit))
			return
		}
		filter.Limit = limit
	}

	entries, err := s.history.List(r.Context(), filter)
	if err != nil {
		logr.FromContextOrDiscard(r.Context()).Error(err, "failed to read journal")
		writeError(w, http.StatusInternalServerError, "failed to read journal")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// writeDriverError maps driver errors onto HTTP statuses.
func (s *Server) writeDriverError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, compute.ErrInvalidUUID):
		writeError(w, http.StatusBadRequest, err.Error())
	case driver.IsNodeNotFound(err):
		writeError(w, http.StatusNotFound, "node not found")
	default:
		logr.FromContextOrDiscard(r.Context()).Error(err, "driver call failed", "path", r.URL.Path)
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

// nodeUUIDParam returns the {uuid} path parameter in canonical lower-case
// form. Malformed values pass through for the driver to reject.
func nodeUUIDParam(r *http.Request) string {
	id := chi.URLParam(r, "uuid")
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed.String()
	}
	return id
}

func isLifecycleOperation(op driver.Operation) bool {
	for _, known := range driver.Operations {
		if op == known {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
