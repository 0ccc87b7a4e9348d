package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/translation-workflow/internal/models"
)

func (s *Server) handleCreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAssignmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	assignment, err := s.workflow.CreateAssignment(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, assignment)
}

func (s *Server) handleGetAssignment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	assignment, err := s.workflow.GetAssignment(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, assignment)
}

func (s *Server) handleSetAssignmentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	status := models.AssignmentStatus(chi.URLParam(r, "status"))

	assignment, err := s.workflow.SetAssignmentStatus(r.Context(), id, status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, assignment)
}

func (s *Server) handleListAssignmentsByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "userId")
	if !ok || !allowSelf(w, r, userID) {
		return
	}

	assignments, err := s.workflow.ListAssignmentsByUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, assignments)
}

func (s *Server) handleListAssignmentsByProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := urlID(w, r, "projectId")
	if !ok {
		return
	}

	assignments, err := s.workflow.ListAssignmentsByProject(r.Context(), projectID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, assignments)
}
