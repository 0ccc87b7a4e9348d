package models

import (
	"time"
)

// CreateProjectRequest represents a request to create a project
type CreateProjectRequest struct {
	Name              string  `json:"name"`
	Description       string  `json:"description,omitempty"`
	SourceLanguageID  int64   `json:"sourceLanguageId"`
	TargetLanguageIDs []int64 `json:"targetLanguageIds"`
}

// ParagraphInput is one paragraph in a bulk append
type ParagraphInput struct {
	OriginalText string        `json:"originalText"`
	Type         ParagraphType `json:"type,omitempty"`
	Position     int           `json:"position,omitempty"`
}

// AddParagraphsRequest represents a request to append paragraphs to a project
type AddParagraphsRequest struct {
	Paragraphs []ParagraphInput `json:"paragraphs"`
}

// UpdateParagraphRequest represents a corrective edit of a paragraph
type UpdateParagraphRequest struct {
	OriginalText string        `json:"originalText"`
	Type         ParagraphType `json:"type,omitempty"`
}

// CreateLanguageRequest represents a request to register a language
type CreateLanguageRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// CreateUserRequest represents a request to register a user
type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// CreateAssignmentRequest represents a request to assign work
type CreateAssignmentRequest struct {
	ProjectID  int64      `json:"projectId"`
	UserID     int64      `json:"userId"`
	Role       Role       `json:"role"`
	LanguageID int64      `json:"targetLanguageId"`
	Deadline   *time.Time `json:"deadline,omitempty"`
}

// SaveDraftRequest represents a translator saving a draft
type SaveDraftRequest struct {
	AssignmentID int64  `json:"assignmentId"`
	ParagraphID  int64  `json:"paragraphId"`
	Text         string `json:"translatedText"`
}

// UpdateTextRequest replaces the text of a draft translation
type UpdateTextRequest struct {
	Text string `json:"translatedText"`
}

// CreateReviewRequest represents a reviewer starting a review
type CreateReviewRequest struct {
	TranslationID int64  `json:"translationId"`
	AssignmentID  int64  `json:"reviewerAssignmentId"`
	ReviewedText  string `json:"reviewedText"`
	QualityScore  int    `json:"qualityScore"`
}

// UpdateReviewRequest edits an in-progress review
type UpdateReviewRequest struct {
	ReviewedText string `json:"reviewedText"`
	QualityScore int    `json:"qualityScore"`
}

// DecisionRequest represents a supervisor decision
type DecisionRequest struct {
	ReviewID        int64           `json:"reviewId"`
	AssignmentID    int64           `json:"supervisorAssignmentId"`
	SelectedVersion SelectedVersion `json:"selectedVersion"`
	Decision        Decision        `json:"decision"`
	FinalText       string          `json:"finalText,omitempty"`
	Comments        string          `json:"comments,omitempty"`
}

// CreateNotificationRequest represents a manually sent notification
type CreateNotificationRequest struct {
	UserID      int64  `json:"userId"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	RelatedType string `json:"relatedType,omitempty"`
	RelatedID   int64  `json:"relatedId,omitempty"`
}
