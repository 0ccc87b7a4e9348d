package api

import (
	"net/http"

	"github.com/terra-clan/translation-workflow/internal/models"
)

func (s *Server) handleCreateLanguage(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLanguageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	lang, err := s.workflow.CreateLanguage(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, lang)
}

func (s *Server) handleListLanguages(w http.ResponseWriter, r *http.Request) {
	langs, err := s.workflow.ListLanguages(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, langs)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.workflow.CreateUser(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok || !allowSelf(w, r, id) {
		return
	}

	user, err := s.workflow.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	token, err := s.workflow.IssueToken(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"token": token,
	})
}
