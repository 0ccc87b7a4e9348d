package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/terra-clan/translation-workflow/internal/models"
	"github.com/terra-clan/translation-workflow/internal/storage"
)

var liveTranslationStatuses = []models.TranslationStatus{
	models.TranslationDraft,
	models.TranslationSubmitted,
	models.TranslationCompleted,
}

// heldTranslatorAssignment locks a translator assignment held by the acting user.
// The lock serializes roll-ups over the same assignment.
func heldTranslatorAssignment(ctx context.Context, tx storage.Tx, id int64) (*models.Assignment, error) {
	a, err := tx.LockAssignment(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrUnknownAssignment, id)
	}

	switch {
	case a.Role != models.RoleTranslator:
		return nil, fmt.Errorf("%w: assignment %d has role %s", ErrNotYourAssignment, a.ID, a.Role)
	case !heldByActor(ctx, a):
		return nil, fmt.Errorf("%w: assignment %d", ErrNotYourAssignment, a.ID)
	}

	return a, nil
}

func activeOnly(a *models.Assignment) error {
	if !a.Status.IsActive() {
		return fmt.Errorf("%w: assignment %d is %s", ErrNotYourAssignment, a.ID, a.Status)
	}
	return nil
}

// translatorAssignment is heldTranslatorAssignment for an assignment that is still active
func translatorAssignment(ctx context.Context, tx storage.Tx, id int64) (*models.Assignment, error) {
	a, err := heldTranslatorAssignment(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := activeOnly(a); err != nil {
		return nil, err
	}
	return a, nil
}

// SaveDraft creates or overwrites the draft translation of a paragraph under
// a translator assignment.
func (s *Service) SaveDraft(ctx context.Context, req models.SaveDraftRequest) (*models.Translation, error) {
	var tr *models.Translation
	err := s.run(ctx, "save draft", func(tx storage.Tx, _ *outbox) error {
		a, err := translatorAssignment(ctx, tx, req.AssignmentID)
		if err != nil {
			return err
		}

		paragraph, err := tx.GetParagraph(ctx, req.ParagraphID)
		if err != nil {
			return notFound(err, ErrUnknownParagraph, req.ParagraphID)
		}
		if paragraph.ProjectID != a.ProjectID {
			return fmt.Errorf("%w: paragraph %d is not part of project %d", ErrNotYourAssignment, paragraph.ID, a.ProjectID)
		}

		project, err := tx.GetProject(ctx, a.ProjectID)
		if err != nil {
			return notFound(err, ErrUnknownProject, a.ProjectID)
		}
		if project.Status == models.ProjectCancelled {
			return fmt.Errorf("%w: project %d", ErrProjectClosed, project.ID)
		}

		live, err := tx.ListTranslations(ctx, models.TranslationFilters{
			AssignmentID: a.ID,
			ParagraphID:  paragraph.ID,
			Statuses:     liveTranslationStatuses,
		})
		if err != nil {
			return err
		}

		now := s.now()
		if len(live) > 0 {
			tr = live[0]
			if tr.Status != models.TranslationDraft {
				return fmt.Errorf("%w: translation %d is %s", ErrAlreadySubmitted, tr.ID, tr.Status)
			}
			tr.Text = req.Text
			tr.UpdatedAt = now
			if err := tx.UpdateTranslation(ctx, tr); err != nil {
				return err
			}
		} else {
			tr = &models.Translation{
				ParagraphID:  paragraph.ID,
				AssignmentID: a.ID,
				Text:         req.Text,
				Status:       models.TranslationDraft,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := tx.CreateTranslation(ctx, tr); err != nil {
				if errors.Is(err, storage.ErrDuplicate) {
					return fmt.Errorf("%w: %v", ErrConcurrentModification, err)
				}
				return err
			}
		}

		if a.Status == models.AssignmentPending {
			a.Status = models.AssignmentInProgress
			if err := tx.UpdateAssignment(ctx, a); err != nil {
				return err
			}
		}

		return s.refreshProject(ctx, tx, a.ProjectID)
	})
	if err != nil {
		return nil, err
	}
	return tr, nil
}

// UpdateDraft replaces the text of a draft translation
func (s *Service) UpdateDraft(ctx context.Context, id int64, text string) (*models.Translation, error) {
	var tr *models.Translation
	err := s.run(ctx, "update draft", func(tx storage.Tx, _ *outbox) error {
		var err error
		tr, err = tx.GetTranslation(ctx, id)
		if err != nil {
			return notFound(err, ErrUnknownTranslation, id)
		}
		a, err := heldTranslatorAssignment(ctx, tx, tr.AssignmentID)
		if err != nil {
			return err
		}
		if err := draftOnly(tr); err != nil {
			return err
		}
		if err := activeOnly(a); err != nil {
			return err
		}

		tr.Text = text
		tr.UpdatedAt = s.now()
		return tx.UpdateTranslation(ctx, tr)
	})
	if err != nil {
		return nil, err
	}
	return tr, nil
}

// Submit moves a draft to Submitted and completes the translator assignment
// once every paragraph of the project has submitted text under it.
func (s *Service) Submit(ctx context.Context, id int64) (*models.Translation, error) {
	var tr *models.Translation
	err := s.run(ctx, "submit translation", func(tx storage.Tx, _ *outbox) error {
		var err error
		tr, err = tx.GetTranslation(ctx, id)
		if err != nil {
			return notFound(err, ErrUnknownTranslation, id)
		}

		a, err := heldTranslatorAssignment(ctx, tx, tr.AssignmentID)
		if err != nil {
			return err
		}
		if err := draftOnly(tr); err != nil {
			return err
		}
		if err := activeOnly(a); err != nil {
			return err
		}
		if strings.TrimSpace(tr.Text) == "" {
			return fmt.Errorf("%w: translation %d", ErrEmptyText, tr.ID)
		}

		now := s.now()
		tr.Status = models.TranslationSubmitted
		tr.SubmittedAt = &now
		tr.UpdatedAt = now
		if err := tx.UpdateTranslation(ctx, tr); err != nil {
			return err
		}

		if err := s.rollUpAssignment(ctx, tx, a); err != nil {
			return err
		}

		return s.refreshProject(ctx, tx, a.ProjectID)
	})
	if err != nil {
		return nil, err
	}
	return tr, nil
}

func draftOnly(tr *models.Translation) error {
	switch tr.Status {
	case models.TranslationDraft:
		return nil
	case models.TranslationRejected:
		return fmt.Errorf("%w: translation %d", ErrTranslationRejected, tr.ID)
	default:
		return fmt.Errorf("%w: translation %d is %s", ErrAlreadySubmitted, tr.ID, tr.Status)
	}
}

// rollUpAssignment sets a translator assignment to Completed when every
// paragraph has a Submitted or Completed translation, InProgress otherwise.
func (s *Service) rollUpAssignment(ctx context.Context, tx storage.Tx, a *models.Assignment) error {
	paragraphs, err := tx.ListParagraphs(ctx, a.ProjectID)
	if err != nil {
		return err
	}

	done, err := tx.ListTranslations(ctx, models.TranslationFilters{
		AssignmentID: a.ID,
		Statuses:     []models.TranslationStatus{models.TranslationSubmitted, models.TranslationCompleted},
	})
	if err != nil {
		return err
	}

	covered := make(map[int64]bool, len(done))
	for _, tr := range done {
		covered[tr.ParagraphID] = true
	}

	complete := len(paragraphs) > 0
	for _, p := range paragraphs {
		if !covered[p.ID] {
			complete = false
			break
		}
	}

	next := models.AssignmentInProgress
	if complete {
		next = models.AssignmentCompleted
	}
	if a.Status == next {
		return nil
	}

	a.Status = next
	a.CompletedAt = nil
	if complete {
		now := s.now()
		a.CompletedAt = &now
	}
	return tx.UpdateAssignment(ctx, a)
}

// GetTranslation returns a translation by ID
func (s *Service) GetTranslation(ctx context.Context, id int64) (*models.Translation, error) {
	var tr *models.Translation
	err := s.read(ctx, "get translation", func(tx storage.Tx) error {
		var err error
		tr, err = tx.GetTranslation(ctx, id)
		return notFound(err, ErrUnknownTranslation, id)
	})
	return tr, err
}

// ListTranslationsByAssignment returns all translations produced under an assignment, rejected ones included
func (s *Service) ListTranslationsByAssignment(ctx context.Context, assignmentID int64) ([]*models.Translation, error) {
	var translations []*models.Translation
	err := s.read(ctx, "list translations", func(tx storage.Tx) error {
		if _, err := tx.GetAssignment(ctx, assignmentID); err != nil {
			return notFound(err, ErrUnknownAssignment, assignmentID)
		}
		var err error
		translations, err = tx.ListTranslations(ctx, models.TranslationFilters{AssignmentID: assignmentID})
		return err
	})
	return translations, err
}
