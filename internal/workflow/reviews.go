package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/terra-clan/translation-workflow/internal/models"
	"github.com/terra-clan/translation-workflow/internal/storage"
)

const (
	minQualityScore = 0
	maxQualityScore = 10
)

func checkScore(score int) error {
	if score < minQualityScore || score > maxQualityScore {
		return fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidScore, score, minQualityScore, maxQualityScore)
	}
	return nil
}

// stageAssignment checks that a is an active assignment with role on the same
// project and language as the translator assignment, held by the acting user.
func stageAssignment(ctx context.Context, a, translator *models.Assignment, role models.Role, sentinel *Error) error {
	switch {
	case a.Role != role:
		return fmt.Errorf("%w: assignment %d has role %s", sentinel, a.ID, a.Role)
	case !a.Status.IsActive():
		return fmt.Errorf("%w: assignment %d is %s", sentinel, a.ID, a.Status)
	case a.ProjectID != translator.ProjectID || a.LanguageID != translator.LanguageID:
		return fmt.Errorf("%w: assignment %d covers project %d language %d, translation belongs to project %d language %d",
			sentinel, a.ID, a.ProjectID, a.LanguageID, translator.ProjectID, translator.LanguageID)
	case !heldByActor(ctx, a):
		return fmt.Errorf("%w: assignment %d", sentinel, a.ID)
	}
	return nil
}

// CreateReview starts a review of a submitted translation. Only one open
// review may exist per translation.
func (s *Service) CreateReview(ctx context.Context, req models.CreateReviewRequest) (*models.Review, error) {
	if err := checkScore(req.QualityScore); err != nil {
		return nil, err
	}

	var r *models.Review
	err := s.run(ctx, "create review", func(tx storage.Tx, _ *outbox) error {
		tr, err := tx.GetTranslation(ctx, req.TranslationID)
		if err != nil {
			return notFound(err, ErrUnknownTranslation, req.TranslationID)
		}
		if !tr.Status.IsReviewable() {
			return fmt.Errorf("%w: translation %d is %s", ErrTranslationNotReady, tr.ID, tr.Status)
		}

		translator, err := tx.GetAssignment(ctx, tr.AssignmentID)
		if err != nil {
			return notFound(err, ErrUnknownAssignment, tr.AssignmentID)
		}

		reviewer, err := tx.GetAssignment(ctx, req.AssignmentID)
		if err != nil {
			return notFound(err, ErrUnknownAssignment, req.AssignmentID)
		}
		if err := stageAssignment(ctx, reviewer, translator, models.RoleReviewer, ErrWrongReviewer); err != nil {
			return err
		}

		open, err := tx.ListReviews(ctx, models.ReviewFilters{
			TranslationID: tr.ID,
			Statuses:      models.OpenReviewStatuses,
		})
		if err != nil {
			return err
		}
		if len(open) > 0 {
			return fmt.Errorf("%w: review %d is %s", ErrReviewAlreadyPending, open[0].ID, open[0].Status)
		}

		now := s.now()
		r = &models.Review{
			TranslationID: tr.ID,
			AssignmentID:  reviewer.ID,
			ReviewedText:  req.ReviewedText,
			QualityScore:  req.QualityScore,
			Status:        models.ReviewInProgress,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.CreateReview(ctx, r); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				return fmt.Errorf("%w: %v", ErrReviewAlreadyPending, err)
			}
			return err
		}

		if reviewer.Status == models.AssignmentPending {
			reviewer.Status = models.AssignmentInProgress
			if err := tx.UpdateAssignment(ctx, reviewer); err != nil {
				return err
			}
		}

		return s.refreshProject(ctx, tx, translator.ProjectID)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// reviewerOf loads a review together with its reviewer assignment, checking the acting user
func reviewerOf(ctx context.Context, tx storage.Tx, id int64) (*models.Review, *models.Assignment, error) {
	r, err := tx.GetReview(ctx, id)
	if err != nil {
		return nil, nil, notFound(err, ErrUnknownReview, id)
	}

	a, err := tx.GetAssignment(ctx, r.AssignmentID)
	if err != nil {
		return nil, nil, notFound(err, ErrUnknownAssignment, r.AssignmentID)
	}
	if !heldByActor(ctx, a) {
		return nil, nil, fmt.Errorf("%w: assignment %d", ErrWrongReviewer, a.ID)
	}

	return r, a, nil
}

// UpdateReview edits the text and score of a review that is still in progress
func (s *Service) UpdateReview(ctx context.Context, id int64, req models.UpdateReviewRequest) (*models.Review, error) {
	if err := checkScore(req.QualityScore); err != nil {
		return nil, err
	}

	var r *models.Review
	err := s.run(ctx, "update review", func(tx storage.Tx, _ *outbox) error {
		var err error
		r, _, err = reviewerOf(ctx, tx, id)
		if err != nil {
			return err
		}
		if !r.Status.IsEditable() {
			return fmt.Errorf("%w: review %d is %s", ErrReviewNotEditable, r.ID, r.Status)
		}

		r.ReviewedText = req.ReviewedText
		r.QualityScore = req.QualityScore
		r.UpdatedAt = s.now()
		return tx.UpdateReview(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// SubmitReview completes a review, making it eligible for a supervisor decision
func (s *Service) SubmitReview(ctx context.Context, id int64) (*models.Review, error) {
	var r *models.Review
	err := s.run(ctx, "submit review", func(tx storage.Tx, _ *outbox) error {
		var err error
		r, _, err = reviewerOf(ctx, tx, id)
		if err != nil {
			return err
		}

		switch {
		case r.Status == models.ReviewSubmitted || r.Status == models.ReviewCompleted:
			return fmt.Errorf("%w: review %d is %s", ErrAlreadySubmitted, r.ID, r.Status)
		case !r.Status.IsEditable():
			return fmt.Errorf("%w: review %d is %s", ErrReviewNotEditable, r.ID, r.Status)
		case strings.TrimSpace(r.ReviewedText) == "":
			return fmt.Errorf("%w: review %d", ErrEmptyText, r.ID)
		}

		now := s.now()
		r.Status = models.ReviewCompleted
		r.SubmittedAt = &now
		r.UpdatedAt = now
		return tx.UpdateReview(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetReview returns a review by ID
func (s *Service) GetReview(ctx context.Context, id int64) (*models.Review, error) {
	var r *models.Review
	err := s.read(ctx, "get review", func(tx storage.Tx) error {
		var err error
		r, err = tx.GetReview(ctx, id)
		return notFound(err, ErrUnknownReview, id)
	})
	return r, err
}

// ListReviewsByReviewer returns every review written under a user's reviewer assignments
func (s *Service) ListReviewsByReviewer(ctx context.Context, userID int64) ([]*models.Review, error) {
	var reviews []*models.Review
	err := s.read(ctx, "list reviews", func(tx storage.Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return notFound(err, ErrUnknownUser, userID)
		}
		var err error
		reviews, err = tx.ListReviews(ctx, models.ReviewFilters{ReviewerUserID: userID})
		return err
	})
	return reviews, err
}

// ListPendingTranslations returns submitted translations that have no open
// review. A non-zero assignmentID narrows the result to the project and
// language of that reviewer assignment.
func (s *Service) ListPendingTranslations(ctx context.Context, assignmentID int64) ([]*models.Translation, error) {
	var pending []*models.Translation
	err := s.read(ctx, "list pending translations", func(tx storage.Tx) error {
		filters := models.TranslationFilters{
			Statuses: []models.TranslationStatus{models.TranslationSubmitted},
		}
		if assignmentID != 0 {
			a, err := tx.GetAssignment(ctx, assignmentID)
			if err != nil {
				return notFound(err, ErrUnknownAssignment, assignmentID)
			}
			if a.Role != models.RoleReviewer || !heldByActor(ctx, a) {
				return fmt.Errorf("%w: assignment %d", ErrWrongReviewer, a.ID)
			}
			filters.ProjectID = a.ProjectID
			filters.LanguageID = a.LanguageID
		}

		submitted, err := tx.ListTranslations(ctx, filters)
		if err != nil {
			return err
		}

		pending = make([]*models.Translation, 0, len(submitted))
		for _, tr := range submitted {
			open, err := tx.ListReviews(ctx, models.ReviewFilters{
				TranslationID: tr.ID,
				Statuses:      models.OpenReviewStatuses,
			})
			if err != nil {
				return err
			}
			if len(open) == 0 {
				pending = append(pending, tr)
			}
		}
		return nil
	})
	return pending, err
}
