package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dativo-io/guardian/internal/audit"
	guardianotel "github.com/dativo-io/guardian/internal/otel"
	"github.com/dativo-io/guardian/pii"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type protectRequest struct {
	Text string `json:"text"`
}

type batchRequest struct {
	Texts []string `json:"texts"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
	})
}

func (s *Server) handleProtect(w http.ResponseWriter, r *http.Request) {
	var req protectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx := r.Context()
	res, err := s.guardian.Protect(ctx, req.Text)
	if err != nil {
		log.Error().Err(err).Func(guardianotel.LogTraceFields(ctx)).Msg("protect failed")
		writeError(w, http.StatusInternalServerError, "protection failed")
		return
	}

	s.persist(r, "http", res)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleProtectBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	results := s.guardian.ProtectBatch(r.Context(), req.Texts)
	for _, res := range results {
		if res.Count >= 0 {
			s.persist(r, "batch", res)
		}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req protectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx := r.Context()
	entities, err := s.guardian.DetectOnly(ctx, req.Text)
	if err != nil {
		log.Error().Err(err).Func(guardianotel.LogTraceFields(ctx)).Msg("detect failed")
		writeError(w, http.StatusInternalServerError, "detection failed")
		return
	}
	if entities == nil {
		entities = []pii.Entity{}
	}
	writeJSON(w, http.StatusOK, entities)
}

// persist writes an audit record if a store is configured. Audit failures
// must not fail the request.
func (s *Server) persist(r *http.Request, source string, res *pii.ProtectionResult) {
	if s.auditStore == nil {
		return
	}
	rec := audit.NewRecord(source, res)
	if err := s.auditStore.Store(r.Context(), rec); err != nil {
		log.Warn().Err(err).Str("audit_id", rec.ID).Msg("failed to persist audit record")
	}
}
