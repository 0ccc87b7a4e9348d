package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/terra-clan/translation-workflow/internal/models"
	"github.com/terra-clan/translation-workflow/internal/storage"
	"github.com/terra-clan/translation-workflow/internal/templates"
)

// Decide records a supervisor decision over a completed review.
//
// Accepting approves the review, completes the translation and makes the
// final text canonical for the paragraph and language. Rejecting rejects both
// and reopens the translator assignment, unless the translation was already
// accepted through an earlier review. Either way the reviewer and the
// project creator are notified; the translator is too when their text is rejected.
func (s *Service) Decide(ctx context.Context, req models.DecisionRequest) (*models.Approval, error) {
	if !req.Decision.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecision, req.Decision)
	}
	if !req.SelectedVersion.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVersion, req.SelectedVersion)
	}

	var approval *models.Approval
	err := s.run(ctx, "decide", func(tx storage.Tx, out *outbox) error {
		review, err := tx.GetReview(ctx, req.ReviewID)
		if err != nil {
			return notFound(err, ErrUnknownReview, req.ReviewID)
		}

		existing, err := tx.GetApprovalByReview(ctx, review.ID)
		switch {
		case err == nil:
			return fmt.Errorf("%w: review %d has approval %d", ErrAlreadyApproved, review.ID, existing.ID)
		case !errors.Is(err, storage.ErrNotFound):
			return err
		}
		if review.Status.IsTerminal() {
			return fmt.Errorf("%w: review %d is %s", ErrAlreadyApproved, review.ID, review.Status)
		}
		if review.Status != models.ReviewCompleted {
			return fmt.Errorf("%w: review %d is %s", ErrReviewNotApprovable, review.ID, review.Status)
		}

		tr, err := tx.GetTranslation(ctx, review.TranslationID)
		if err != nil {
			return notFound(err, ErrUnknownTranslation, review.TranslationID)
		}
		translator, err := tx.GetAssignment(ctx, tr.AssignmentID)
		if err != nil {
			return notFound(err, ErrUnknownAssignment, tr.AssignmentID)
		}
		reviewer, err := tx.GetAssignment(ctx, review.AssignmentID)
		if err != nil {
			return notFound(err, ErrUnknownAssignment, review.AssignmentID)
		}
		supervisor, err := tx.GetAssignment(ctx, req.AssignmentID)
		if err != nil {
			return notFound(err, ErrUnknownAssignment, req.AssignmentID)
		}
		if err := stageAssignment(ctx, supervisor, translator, models.RoleSupervisor, ErrWrongSupervisor); err != nil {
			return err
		}

		finalText := strings.TrimSpace(req.FinalText)
		if finalText == "" {
			finalText = tr.Text
			if req.SelectedVersion == models.VersionReviewed {
				finalText = review.ReviewedText
			}
		}

		now := s.now()
		approval = &models.Approval{
			ReviewID:        review.ID,
			AssignmentID:    supervisor.ID,
			SelectedVersion: req.SelectedVersion,
			Decision:        req.Decision,
			FinalText:       finalText,
			Comments:        req.Comments,
			ApprovedAt:      now,
		}

		if req.Decision == models.DecisionAccepted {
			err = s.accept(ctx, tx, review, tr, translator, approval)
		} else {
			err = s.reject(ctx, tx, review, tr, translator, approval)
		}
		if err != nil {
			return err
		}

		if err := s.refreshProject(ctx, tx, translator.ProjectID); err != nil {
			return err
		}

		return s.announceDecision(ctx, tx, out, approval, tr, translator, reviewer)
	})
	if err != nil {
		return nil, err
	}
	return approval, nil
}

// Approve accepts a completed review
func (s *Service) Approve(ctx context.Context, reviewID int64, req models.DecisionRequest) (*models.Approval, error) {
	req.ReviewID = reviewID
	req.Decision = models.DecisionAccepted
	return s.Decide(ctx, req)
}

// Reject rejects a completed review
func (s *Service) Reject(ctx context.Context, reviewID int64, req models.DecisionRequest) (*models.Approval, error) {
	req.ReviewID = reviewID
	req.Decision = models.DecisionRejected
	return s.Decide(ctx, req)
}

func (s *Service) accept(ctx context.Context, tx storage.Tx, review *models.Review, tr *models.Translation, translator *models.Assignment, approval *models.Approval) error {
	if approval.FinalText == "" {
		return fmt.Errorf("%w: final text for review %d", ErrEmptyText, review.ID)
	}

	review.Status = models.ReviewApproved
	review.UpdatedAt = approval.ApprovedAt
	if err := tx.UpdateReview(ctx, review); err != nil {
		return err
	}

	tr.Status = models.TranslationCompleted
	tr.FinalText = approval.FinalText
	tr.UpdatedAt = approval.ApprovedAt
	if err := tx.UpdateTranslation(ctx, tr); err != nil {
		return err
	}

	if err := createApproval(ctx, tx, approval); err != nil {
		return err
	}

	return tx.UpsertFinalTranslation(ctx, &models.FinalTranslation{
		ParagraphID: tr.ParagraphID,
		LanguageID:  translator.LanguageID,
		Text:        approval.FinalText,
		ApprovalID:  approval.ID,
		UpdatedAt:   approval.ApprovedAt,
	})
}

func (s *Service) reject(ctx context.Context, tx storage.Tx, review *models.Review, tr *models.Translation, translator *models.Assignment, approval *models.Approval) error {
	review.Status = models.ReviewRejected
	review.UpdatedAt = approval.ApprovedAt
	if err := tx.UpdateReview(ctx, review); err != nil {
		return err
	}

	// Rejecting a second review of accepted work leaves the accepted final text canonical.
	if tr.Status == models.TranslationCompleted {
		return createApproval(ctx, tx, approval)
	}

	tr.Status = models.TranslationRejected
	tr.UpdatedAt = approval.ApprovedAt
	if err := tx.UpdateTranslation(ctx, tr); err != nil {
		return err
	}

	if err := createApproval(ctx, tx, approval); err != nil {
		return err
	}

	// A cancelled translator keeps its status; the paragraph waits for reassignment.
	if translator.Status == models.AssignmentCancelled || translator.Status == models.AssignmentInProgress {
		return nil
	}
	translator.Status = models.AssignmentInProgress
	translator.CompletedAt = nil
	return tx.UpdateAssignment(ctx, translator)
}

func createApproval(ctx context.Context, tx storage.Tx, approval *models.Approval) error {
	err := tx.CreateApproval(ctx, approval)
	if errors.Is(err, storage.ErrDuplicate) {
		return fmt.Errorf("%w: review %d", ErrAlreadyApproved, approval.ReviewID)
	}
	return err
}

// announceDecision queues the decision notifications
func (s *Service) announceDecision(ctx context.Context, tx storage.Tx, out *outbox, approval *models.Approval,
	tr *models.Translation, translator, reviewer *models.Assignment) error {
	project, err := tx.GetProject(ctx, translator.ProjectID)
	if err != nil {
		return notFound(err, ErrUnknownProject, translator.ProjectID)
	}
	language, err := tx.GetLanguage(ctx, translator.LanguageID)
	if err != nil {
		return notFound(err, ErrUnknownLanguage, translator.LanguageID)
	}
	paragraph, err := tx.GetParagraph(ctx, tr.ParagraphID)
	if err != nil {
		return notFound(err, ErrUnknownParagraph, tr.ParagraphID)
	}

	data := templates.Data{
		ProjectName:       project.Name,
		LanguageCode:      language.Code,
		ParagraphPosition: paragraph.Position,
		Comments:          approval.Comments,
	}

	if approval.Decision == models.DecisionAccepted {
		out.add(reviewer.UserID, templates.KeyReviewAccepted, data, models.RelatedApproval, approval.ID)
		out.add(project.CreatorID, templates.KeyProjectTranslationAccepted, data, models.RelatedApproval, approval.ID)
		return nil
	}

	out.add(reviewer.UserID, templates.KeyReviewRejected, data, models.RelatedApproval, approval.ID)
	out.add(project.CreatorID, templates.KeyProjectTranslationRejected, data, models.RelatedApproval, approval.ID)
	if tr.Status == models.TranslationRejected {
		out.add(translator.UserID, templates.KeyTranslationRejected, data, models.RelatedTranslation, tr.ID)
	}
	return nil
}

// GetApprovalByReview returns the decision recorded for a review
func (s *Service) GetApprovalByReview(ctx context.Context, reviewID int64) (*models.Approval, error) {
	var approval *models.Approval
	err := s.read(ctx, "get approval", func(tx storage.Tx) error {
		var err error
		approval, err = tx.GetApprovalByReview(ctx, reviewID)
		return notFound(err, ErrUnknownApproval, reviewID)
	})
	return approval, err
}
