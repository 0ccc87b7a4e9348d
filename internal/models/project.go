package models

import (
	"strings"
	"time"
)

// ProjectStatus represents the aggregate state of a translation project
type ProjectStatus string

const (
	ProjectDraft      ProjectStatus = "Draft"
	ProjectActive     ProjectStatus = "Active"
	ProjectInProgress ProjectStatus = "InProgress"
	ProjectReview     ProjectStatus = "Review"
	ProjectCompleted  ProjectStatus = "Completed"
	ProjectCancelled  ProjectStatus = "Cancelled"
)

// IsTerminal returns true if no further workflow activity is expected
func (s ProjectStatus) IsTerminal() bool {
	return s == ProjectCancelled
}

// Project is a source document split into paragraphs and translated into one or more target languages
type Project struct {
	ID                int64         `json:"id"`
	Name              string        `json:"name"`
	Description       string        `json:"description,omitempty"`
	SourceLanguageID  int64         `json:"sourceLanguageId"`
	CreatorID         int64         `json:"creatorId"`
	Status            ProjectStatus `json:"status"`
	TargetLanguageIDs []int64       `json:"targetLanguageIds"`
	ParagraphCount    int           `json:"paragraphCount"`
	WordCount         int           `json:"wordCount"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
	Version           int64         `json:"version"`
}

// TargetsLanguage reports whether languageID is one of the project's target languages
func (p *Project) TargetsLanguage(languageID int64) bool {
	for _, id := range p.TargetLanguageIDs {
		if id == languageID {
			return true
		}
	}
	return false
}

// ParagraphType classifies a paragraph's role in the source document
type ParagraphType string

const (
	ParagraphNormal    ParagraphType = "Normal"
	ParagraphHeader    ParagraphType = "Header"
	ParagraphSubheader ParagraphType = "Subheader"
	ParagraphQuote     ParagraphType = "Quote"
	ParagraphList      ParagraphType = "List"
	ParagraphCode      ParagraphType = "Code"
)

// Valid returns true for known paragraph types
func (t ParagraphType) Valid() bool {
	switch t {
	case ParagraphNormal, ParagraphHeader, ParagraphSubheader, ParagraphQuote, ParagraphList, ParagraphCode:
		return true
	}
	return false
}

// Paragraph is one translatable unit of a project
type Paragraph struct {
	ID           int64         `json:"id"`
	ProjectID    int64         `json:"projectId"`
	OriginalText string        `json:"originalText"`
	Type         ParagraphType `json:"type"`
	Position     int           `json:"position"`
	WordCount    int           `json:"wordCount"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// CountWords returns the number of whitespace separated words in text
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// Language is a source or target language known to the platform
type Language struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProjectFilters defines filters for listing projects
type ProjectFilters struct {
	CreatorID int64
	Status    ProjectStatus
	Limit     int
	Offset    int
}

// LanguageProgress summarises translation progress of one target language
type LanguageProgress struct {
	LanguageID        int64   `json:"languageId"`
	Paragraphs        int     `json:"paragraphs"`
	Drafted           int     `json:"drafted"`
	Submitted         int     `json:"submitted"`
	Approved          int     `json:"approved"`
	CompletedFraction float64 `json:"completedFraction"`
}

// ProjectProgress is the dashboard read-model for a project
type ProjectProgress struct {
	ProjectID         int64              `json:"projectId"`
	Status            ProjectStatus      `json:"status"`
	CompletedFraction float64            `json:"completedFraction"`
	Languages         []LanguageProgress `json:"languages"`
}
