package models

import (
	"time"
)

// TranslationStatus represents the state of a translation
type TranslationStatus string

const (
	TranslationDraft     TranslationStatus = "Draft"
	TranslationSubmitted TranslationStatus = "Submitted"
	TranslationCompleted TranslationStatus = "Completed"
	TranslationRejected  TranslationStatus = "Rejected"
)

// IsReviewable returns true if a review may be started on the translation
func (s TranslationStatus) IsReviewable() bool {
	return s == TranslationSubmitted || s == TranslationCompleted
}

// Translation is a translator's text for one paragraph under one assignment
type Translation struct {
	ID           int64             `json:"id"`
	ParagraphID  int64             `json:"paragraphId"`
	AssignmentID int64             `json:"assignmentId"`
	Text         string            `json:"translatedText"`
	FinalText    string            `json:"finalText,omitempty"`
	Status       TranslationStatus `json:"status"`
	SubmittedAt  *time.Time        `json:"submittedAt,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
	Version      int64             `json:"version"`
}

// TranslationFilters defines filters for listing translations
type TranslationFilters struct {
	AssignmentID int64
	ParagraphID  int64
	ProjectID    int64
	LanguageID   int64
	Statuses     []TranslationStatus
}

// ReviewStatus represents the state of a review
type ReviewStatus string

const (
	ReviewPending    ReviewStatus = "Pending"
	ReviewInProgress ReviewStatus = "InProgress"
	ReviewSubmitted  ReviewStatus = "Submitted"
	ReviewCompleted  ReviewStatus = "Completed"
	ReviewApproved   ReviewStatus = "Approved"
	ReviewRejected   ReviewStatus = "Rejected"
)

// IsTerminal returns true once a supervisor has decided on the review
func (s ReviewStatus) IsTerminal() bool {
	return s == ReviewApproved || s == ReviewRejected
}

// IsEditable returns true while the reviewer is still working on the review
func (s ReviewStatus) IsEditable() bool {
	return s == ReviewPending || s == ReviewInProgress
}

// OpenReviewStatuses are the statuses that block a new review of the same translation
var OpenReviewStatuses = []ReviewStatus{ReviewPending, ReviewInProgress, ReviewSubmitted, ReviewCompleted}

// Review is a reviewer's assessment of a translation
type Review struct {
	ID            int64        `json:"id"`
	TranslationID int64        `json:"translationId"`
	AssignmentID  int64        `json:"reviewerAssignmentId"`
	ReviewedText  string       `json:"reviewedText"`
	QualityScore  int          `json:"qualityScore"`
	Status        ReviewStatus `json:"status"`
	SubmittedAt   *time.Time   `json:"submittedAt,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
	Version       int64        `json:"version"`
}

// ReviewFilters defines filters for listing reviews
type ReviewFilters struct {
	TranslationID  int64
	AssignmentID   int64
	ReviewerUserID int64
	Statuses       []ReviewStatus
}

// SelectedVersion names which text a supervisor picked as canonical
type SelectedVersion string

const (
	VersionOriginal SelectedVersion = "Original"
	VersionReviewed SelectedVersion = "Reviewed"
)

// Valid returns true for known versions
func (v SelectedVersion) Valid() bool {
	return v == VersionOriginal || v == VersionReviewed
}

// Decision is a supervisor's verdict on a review
type Decision string

const (
	DecisionAccepted Decision = "Accepted"
	DecisionRejected Decision = "Rejected"
)

// Valid returns true for known decisions
func (d Decision) Valid() bool {
	return d == DecisionAccepted || d == DecisionRejected
}

// Approval records a supervisor decision over a completed review
type Approval struct {
	ID              int64           `json:"id"`
	ReviewID        int64           `json:"reviewId"`
	AssignmentID    int64           `json:"supervisorAssignmentId"`
	SelectedVersion SelectedVersion `json:"selectedVersion"`
	Decision        Decision        `json:"decision"`
	FinalText       string          `json:"finalText"`
	Comments        string          `json:"comments,omitempty"`
	ApprovedAt      time.Time       `json:"approvedAt"`
}

// FinalTranslation is the canonical text of a paragraph in a target language
type FinalTranslation struct {
	ParagraphID int64     `json:"paragraphId"`
	LanguageID  int64     `json:"languageId"`
	Text        string    `json:"text"`
	ApprovalID  int64     `json:"approvalId"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
