package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/terra-clan/translation-workflow/internal/models"
	"github.com/terra-clan/translation-workflow/internal/storage"
)

// CreateProject registers a project in Draft
func (s *Service) CreateProject(ctx context.Context, creatorID int64, req models.CreateProjectRequest) (*models.Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name", ErrMissingField)
	}
	if len(req.TargetLanguageIDs) == 0 {
		return nil, fmt.Errorf("%w: targetLanguageIds", ErrMissingField)
	}

	targets := slices.Clone(req.TargetLanguageIDs)
	slices.Sort(targets)
	targets = slices.Compact(targets)

	now := s.now()
	p := &models.Project{
		Name:              name,
		Description:       req.Description,
		SourceLanguageID:  req.SourceLanguageID,
		CreatorID:         creatorID,
		Status:            models.ProjectDraft,
		TargetLanguageIDs: targets,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err := s.run(ctx, "create project", func(tx storage.Tx, _ *outbox) error {
		if _, err := tx.GetUser(ctx, creatorID); err != nil {
			return notFound(err, ErrUnknownUser, creatorID)
		}
		if _, err := tx.GetLanguage(ctx, req.SourceLanguageID); err != nil {
			return notFound(err, ErrUnknownLanguage, req.SourceLanguageID)
		}
		for _, id := range targets {
			if _, err := tx.GetLanguage(ctx, id); err != nil {
				return notFound(err, ErrUnknownLanguage, id)
			}
		}
		return tx.CreateProject(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetProject returns a project by ID
func (s *Service) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	var p *models.Project
	err := s.read(ctx, "get project", func(tx storage.Tx) error {
		var err error
		p, err = tx.GetProject(ctx, id)
		return notFound(err, ErrUnknownProject, id)
	})
	return p, err
}

// ListProjects returns projects matching filters, newest first
func (s *Service) ListProjects(ctx context.Context, filters models.ProjectFilters) ([]*models.Project, error) {
	var projects []*models.Project
	err := s.read(ctx, "list projects", func(tx storage.Tx) error {
		var err error
		projects, err = tx.ListProjects(ctx, filters)
		return err
	})
	return projects, err
}

// CancelProject closes a project. Assignments and produced work are kept as history.
func (s *Service) CancelProject(ctx context.Context, id int64) (*models.Project, error) {
	var p *models.Project
	err := s.run(ctx, "cancel project", func(tx storage.Tx, _ *outbox) error {
		var err error
		p, err = tx.GetProject(ctx, id)
		if err != nil {
			return notFound(err, ErrUnknownProject, id)
		}
		if p.Status == models.ProjectCancelled {
			return fmt.Errorf("%w: project %d", ErrAlreadyTerminal, p.ID)
		}

		p.Status = models.ProjectCancelled
		p.UpdatedAt = s.now()
		return tx.UpdateProject(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// AddParagraphs appends paragraphs to a project. A zero position places the
// paragraph after the current last one. Completed translator assignments on
// the project are reopened.
func (s *Service) AddParagraphs(ctx context.Context, projectID int64, req models.AddParagraphsRequest) ([]*models.Paragraph, error) {
	if len(req.Paragraphs) == 0 {
		return nil, fmt.Errorf("%w: paragraphs", ErrMissingField)
	}
	for i, in := range req.Paragraphs {
		if strings.TrimSpace(in.OriginalText) == "" {
			return nil, fmt.Errorf("%w: paragraph %d", ErrEmptyText, i)
		}
		if in.Type != "" && !in.Type.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidParagraphType, in.Type)
		}
		if in.Position < 0 {
			return nil, fmt.Errorf("%w: position %d", ErrMissingField, in.Position)
		}
	}

	var created []*models.Paragraph
	err := s.run(ctx, "add paragraphs", func(tx storage.Tx, _ *outbox) error {
		project, err := tx.GetProject(ctx, projectID)
		if err != nil {
			return notFound(err, ErrUnknownProject, projectID)
		}
		if project.Status == models.ProjectCancelled {
			return fmt.Errorf("%w: project %d", ErrProjectClosed, project.ID)
		}

		if err := s.reopenTranslators(ctx, tx, projectID); err != nil {
			return err
		}

		existing, err := tx.ListParagraphs(ctx, projectID)
		if err != nil {
			return err
		}
		last := 0
		for _, p := range existing {
			last = max(last, p.Position)
		}

		now := s.now()
		created = make([]*models.Paragraph, 0, len(req.Paragraphs))
		for _, in := range req.Paragraphs {
			p := &models.Paragraph{
				ProjectID:    projectID,
				OriginalText: in.OriginalText,
				Type:         in.Type,
				Position:     in.Position,
				WordCount:    models.CountWords(in.OriginalText),
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if p.Type == "" {
				p.Type = models.ParagraphNormal
			}
			if p.Position == 0 {
				p.Position = last + 1
			}
			last = max(last, p.Position)

			if err := tx.CreateParagraph(ctx, p); err != nil {
				if errors.Is(err, storage.ErrDuplicate) {
					return fmt.Errorf("%w: %d", ErrDuplicatePosition, p.Position)
				}
				return err
			}

			project.ParagraphCount++
			project.WordCount += p.WordCount
			created = append(created, p)
		}

		project.UpdatedAt = now
		if err := tx.UpdateProject(ctx, project); err != nil {
			return err
		}

		return s.refreshProject(ctx, tx, project.ID)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ListParagraphs returns a project's paragraphs in position order
func (s *Service) ListParagraphs(ctx context.Context, projectID int64) ([]*models.Paragraph, error) {
	var paragraphs []*models.Paragraph
	err := s.read(ctx, "list paragraphs", func(tx storage.Tx) error {
		if _, err := tx.GetProject(ctx, projectID); err != nil {
			return notFound(err, ErrUnknownProject, projectID)
		}
		var err error
		paragraphs, err = tx.ListParagraphs(ctx, projectID)
		return err
	})
	return paragraphs, err
}

// UpdateParagraph corrects a paragraph's text or type. Paragraphs that already
// have translations are locked.
func (s *Service) UpdateParagraph(ctx context.Context, id int64, req models.UpdateParagraphRequest) (*models.Paragraph, error) {
	if strings.TrimSpace(req.OriginalText) == "" {
		return nil, fmt.Errorf("%w: paragraph %d", ErrEmptyText, id)
	}
	if req.Type != "" && !req.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidParagraphType, req.Type)
	}

	var p *models.Paragraph
	err := s.run(ctx, "update paragraph", func(tx storage.Tx, _ *outbox) error {
		var err error
		p, err = tx.GetParagraph(ctx, id)
		if err != nil {
			return notFound(err, ErrUnknownParagraph, id)
		}

		translations, err := tx.ListTranslations(ctx, models.TranslationFilters{ParagraphID: id})
		if err != nil {
			return err
		}
		if len(translations) > 0 {
			return fmt.Errorf("%w: paragraph %d has %d translations", ErrParagraphLocked, id, len(translations))
		}

		project, err := tx.GetProject(ctx, p.ProjectID)
		if err != nil {
			return notFound(err, ErrUnknownProject, p.ProjectID)
		}

		words := models.CountWords(req.OriginalText)
		project.WordCount += words - p.WordCount

		now := s.now()
		p.OriginalText = req.OriginalText
		p.WordCount = words
		p.UpdatedAt = now
		if req.Type != "" {
			p.Type = req.Type
		}
		if err := tx.UpdateParagraph(ctx, p); err != nil {
			return err
		}

		project.UpdatedAt = now
		return tx.UpdateProject(ctx, project)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Progress returns the per-language progress of a project
func (s *Service) Progress(ctx context.Context, projectID int64) (*models.ProjectProgress, error) {
	var progress *models.ProjectProgress
	err := s.read(ctx, "project progress", func(tx storage.Tx) error {
		snap, err := loadSnapshot(ctx, tx, projectID)
		if err != nil {
			return err
		}
		progress = snap.progress()
		return nil
	})
	return progress, err
}

// GetFinalText returns the canonical translation of a paragraph in a language
func (s *Service) GetFinalText(ctx context.Context, paragraphID, languageID int64) (*models.FinalTranslation, error) {
	var final *models.FinalTranslation
	err := s.read(ctx, "get final text", func(tx storage.Tx) error {
		if _, err := tx.GetParagraph(ctx, paragraphID); err != nil {
			return notFound(err, ErrUnknownParagraph, paragraphID)
		}
		var err error
		final, err = tx.GetFinalTranslation(ctx, paragraphID, languageID)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: paragraph %d language %d", ErrNoFinalText, paragraphID, languageID)
		}
		return err
	})
	return final, err
}

// reopenTranslators locks the translator assignments of a project and moves
// Completed ones back to InProgress, since a new paragraph has no submitted
// text under them yet.
func (s *Service) reopenTranslators(ctx context.Context, tx storage.Tx, projectID int64) error {
	translators, err := tx.ListAssignments(ctx, models.AssignmentFilters{
		ProjectID: projectID,
		Role:      models.RoleTranslator,
	})
	if err != nil {
		return err
	}

	for _, listed := range translators {
		a, err := tx.LockAssignment(ctx, listed.ID)
		if err != nil {
			return err
		}
		if a.Status != models.AssignmentCompleted {
			continue
		}
		a.Status = models.AssignmentInProgress
		a.CompletedAt = nil
		if err := tx.UpdateAssignment(ctx, a); err != nil {
			return err
		}
	}
	return nil
}
