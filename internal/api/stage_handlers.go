package api

import (
	"net/http"

	"github.com/terra-clan/translation-workflow/internal/models"
)

// Translation handlers

func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	var req models.SaveDraftRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	translation, err := s.workflow.SaveDraft(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, translation)
}

func (s *Server) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateTextRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	translation, err := s.workflow.UpdateDraft(r.Context(), id, req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, translation)
}

func (s *Server) handleSubmitTranslation(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	translation, err := s.workflow.Submit(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, translation)
}

func (s *Server) handleGetTranslation(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	translation, err := s.workflow.GetTranslation(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, translation)
}

func (s *Server) handleListTranslationsByAssignment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	translations, err := s.workflow.ListTranslationsByAssignment(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, translations)
}

// Review handlers

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var req models.CreateReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	review, err := s.workflow.CreateReview(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, review)
}

func (s *Server) handleUpdateReview(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	review, err := s.workflow.UpdateReview(r.Context(), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, review)
}

func (s *Server) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	review, err := s.workflow.SubmitReview(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, review)
}

func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	review, err := s.workflow.GetReview(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, review)
}

func (s *Server) handleListReviewsByReviewer(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok || !allowSelf(w, r, id) {
		return
	}

	reviews, err := s.workflow.ListReviewsByReviewer(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, reviews)
}

func (s *Server) handlePendingTranslations(w http.ResponseWriter, r *http.Request) {
	assignmentID := int64(queryInt(r, "assignmentId", 0))

	translations, err := s.workflow.ListPendingTranslations(r.Context(), assignmentID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, translations)
}

// Approval handlers

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	var req models.DecisionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	approval, err := s.workflow.Decide(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, approval)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.decideReview(w, r, models.DecisionAccepted)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	s.decideReview(w, r, models.DecisionRejected)
}

func (s *Server) decideReview(w http.ResponseWriter, r *http.Request, decision models.Decision) {
	reviewID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req models.DecisionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var (
		approval *models.Approval
		err      error
	)
	if decision == models.DecisionAccepted {
		approval, err = s.workflow.Approve(r.Context(), reviewID, req)
	} else {
		approval, err = s.workflow.Reject(r.Context(), reviewID, req)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, approval)
}

func (s *Server) handleGetApprovalByReview(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := urlID(w, r, "reviewId")
	if !ok {
		return
	}

	approval, err := s.workflow.GetApprovalByReview(r.Context(), reviewID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, approval)
}
