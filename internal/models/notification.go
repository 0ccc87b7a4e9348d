package models

import (
	"time"
)

// Notification is a message to a user about a workflow event
type Notification struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	RelatedType string    `json:"relatedType,omitempty"`
	RelatedID   int64     `json:"relatedId,omitempty"`
	IsRead      bool      `json:"isRead"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Related entity types carried on notifications
const (
	RelatedAssignment  = "Assignment"
	RelatedTranslation = "Translation"
	RelatedReview      = "Review"
	RelatedApproval    = "Approval"
	RelatedProject     = "Project"
)

// NotificationFilters defines filters for listing notifications
type NotificationFilters struct {
	UserID     int64
	UnreadOnly bool
	Limit      int
	Offset     int
}
