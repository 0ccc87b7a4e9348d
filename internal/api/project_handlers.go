package api

import (
	"net/http"

	"github.com/terra-clan/translation-workflow/internal/models"
)

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	project, err := s.workflow.CreateProject(r.Context(), UserFromContext(r.Context()).ID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, project)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	filters := models.ProjectFilters{
		Status: models.ProjectStatus(r.URL.Query().Get("status")),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	if creator := queryInt(r, "creatorId", 0); creator > 0 {
		filters.CreatorID = int64(creator)
	}

	projects, err := s.workflow.ListProjects(r.Context(), filters)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, projects)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	project, err := s.workflow.GetProject(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, project)
}

func (s *Server) handleCancelProject(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	project, err := s.workflow.CancelProject(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, project)
}

func (s *Server) handleAddParagraphs(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req models.AddParagraphsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	paragraphs, err := s.workflow.AddParagraphs(r.Context(), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, paragraphs)
}

func (s *Server) handleListParagraphs(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	paragraphs, err := s.workflow.ListParagraphs(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, paragraphs)
}

func (s *Server) handleProjectProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	progress, err := s.workflow.Progress(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, progress)
}

func (s *Server) handleUpdateParagraph(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateParagraphRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	paragraph, err := s.workflow.UpdateParagraph(r.Context(), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, paragraph)
}

func (s *Server) handleGetFinalText(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	languageID, ok := urlID(w, r, "languageId")
	if !ok {
		return
	}

	final, err := s.workflow.GetFinalText(r.Context(), id, languageID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, final)
}
