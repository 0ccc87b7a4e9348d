package models

import (
	"time"
)

// AssignmentStatus represents the current state of an assignment
type AssignmentStatus string

const (
	AssignmentPending    AssignmentStatus = "Pending"
	AssignmentInProgress AssignmentStatus = "InProgress"
	AssignmentCompleted  AssignmentStatus = "Completed"
	AssignmentCancelled  AssignmentStatus = "Cancelled"
)

// Valid returns true for known assignment statuses
func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentPending, AssignmentInProgress, AssignmentCompleted, AssignmentCancelled:
		return true
	}
	return false
}

// IsTerminal returns true if the status is a terminal state
func (s AssignmentStatus) IsTerminal() bool {
	return s == AssignmentCompleted || s == AssignmentCancelled
}

// IsActive returns true if work may still be performed under the assignment
func (s AssignmentStatus) IsActive() bool {
	return s == AssignmentPending || s == AssignmentInProgress
}

// Assignment grants a user a role on one target language of a project
type Assignment struct {
	ID                int64            `json:"id"`
	ProjectID         int64            `json:"projectId"`
	UserID            int64            `json:"userId"`
	Role              Role             `json:"role"`
	LanguageID        int64            `json:"targetLanguageId"`
	Status            AssignmentStatus `json:"status"`
	AssignedAt        time.Time        `json:"assignedAt"`
	Deadline          *time.Time       `json:"deadline,omitempty"`
	CompletedAt       *time.Time       `json:"completedAt,omitempty"`
	OverdueNotifiedAt *time.Time       `json:"-"`
	Version           int64            `json:"version"`

	// IsOverdue is derived at read time, never stored
	IsOverdue bool `json:"isOverdue"`
}

// Overdue reports whether the deadline has passed while the assignment is still open
func (a *Assignment) Overdue(now time.Time) bool {
	if a.Deadline == nil || a.Status.IsTerminal() {
		return false
	}
	return now.After(*a.Deadline)
}

// AssignmentFilters defines filters for listing assignments
type AssignmentFilters struct {
	ProjectID  int64
	UserID     int64
	LanguageID int64
	Role       Role
	Statuses   []AssignmentStatus
}
