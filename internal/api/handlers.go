package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/translation-workflow/internal/models"
	"github.com/terra-clan/translation-workflow/internal/workflow"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Kind workflow.Kind `json:"kind"`
	Code string        `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, kind workflow.Kind, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Message: code,
		Error: &apiError{
			Kind: kind,
			Code: code,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// statusFor maps a workflow error kind onto an HTTP status
func statusFor(kind workflow.Kind) int {
	switch kind {
	case workflow.KindValidation:
		return http.StatusBadRequest
	case workflow.KindNotFound:
		return http.StatusNotFound
	case workflow.KindStateConflict, workflow.KindConcurrentModification:
		return http.StatusConflict
	case workflow.KindAuthorization:
		return http.StatusForbidden
	case workflow.KindInfrastructure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err with the status its taxonomy kind maps to
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := workflow.KindOf(err)
	code := workflow.CodeOf(err)
	if kind == "" {
		kind, code = "InternalError", "InternalError"
	}

	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
		)
	} else {
		slog.Debug("request rejected", "error", err, "path", r.URL.Path)
	}

	respondError(w, status, kind, code)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, workflow.KindValidation, "InvalidRequest")
		return false
	}
	return true
}

func urlID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, workflow.KindValidation, "InvalidID")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

// allowSelf admits the user identified by userID and managers
func allowSelf(w http.ResponseWriter, r *http.Request, userID int64) bool {
	user := UserFromContext(r.Context())
	if user == nil || (user.ID != userID && user.Role != models.RoleManager) {
		respondError(w, http.StatusForbidden, workflow.KindAuthorization, "RoleDenied")
		return false
	}
	return true
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := map[string]string{"store": "ok"}
	ready := true

	if err := s.workflow.Ping(ctx); err != nil {
		slog.Warn("store not ready", "error", err)
		status["store"] = "unavailable"
		ready = false
	}

	for name, check := range s.checks {
		if err := check.HealthCheck(ctx); err != nil {
			slog.Warn("dependency not ready", "name", name, "error", err)
			status[name] = "unavailable"
			ready = false
			continue
		}
		status[name] = "ok"
	}

	if !ready {
		respondError(w, http.StatusServiceUnavailable, workflow.KindInfrastructure, "NotReady")
		return
	}

	respondJSON(w, http.StatusOK, status)
}
