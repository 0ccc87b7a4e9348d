package api

import (
	"net/http"

	"github.com/terra-clan/translation-workflow/internal/models"
)

func (s *Server) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	var req models.CreateNotificationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := s.workflow.CreateNotification(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, n)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "id")
	if !ok || !allowSelf(w, r, userID) {
		return
	}

	notifications, err := s.workflow.ListNotifications(r.Context(), models.NotificationFilters{
		UserID:     userID,
		UnreadOnly: r.URL.Query().Get("unread") == "true",
		Limit:      queryInt(r, "limit", 50),
		Offset:     queryInt(r, "offset", 0),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, notifications)
}

func (s *Server) handleListUnread(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "id")
	if !ok || !allowSelf(w, r, userID) {
		return
	}

	notifications, err := s.workflow.ListUnread(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, notifications)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	n, err := s.workflow.MarkRead(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, n)
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "id")
	if !ok || !allowSelf(w, r, userID) {
		return
	}

	updated, err := s.workflow.MarkAllRead(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{
		"updated": updated,
	})
}
