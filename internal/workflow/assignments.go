package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/terra-clan/translation-workflow/internal/models"
	"github.com/terra-clan/translation-workflow/internal/storage"
	"github.com/terra-clan/translation-workflow/internal/templates"
)

var liveAssignmentStatuses = []models.AssignmentStatus{
	models.AssignmentPending,
	models.AssignmentInProgress,
	models.AssignmentCompleted,
}

// CreateAssignment grants a user a role on one target language of a project
// and notifies the user.
func (s *Service) CreateAssignment(ctx context.Context, req models.CreateAssignmentRequest) (*models.Assignment, error) {
	if !req.Role.Assignable() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, req.Role)
	}

	a := &models.Assignment{
		ProjectID:  req.ProjectID,
		UserID:     req.UserID,
		Role:       req.Role,
		LanguageID: req.LanguageID,
		Status:     models.AssignmentPending,
		AssignedAt: s.now(),
	}
	if req.Deadline != nil {
		deadline := req.Deadline.UTC()
		a.Deadline = &deadline
	}

	err := s.run(ctx, "create assignment", func(tx storage.Tx, out *outbox) error {
		project, err := tx.GetProject(ctx, req.ProjectID)
		if err != nil {
			return notFound(err, ErrUnknownProject, req.ProjectID)
		}
		if project.Status == models.ProjectCancelled {
			return fmt.Errorf("%w: project %d", ErrProjectClosed, project.ID)
		}

		user, err := tx.GetUser(ctx, req.UserID)
		if err != nil {
			return notFound(err, ErrUnknownUser, req.UserID)
		}

		language, err := tx.GetLanguage(ctx, req.LanguageID)
		if err != nil {
			return notFound(err, ErrUnknownLanguage, req.LanguageID)
		}
		if !project.TargetsLanguage(language.ID) {
			return fmt.Errorf("%w: project %d does not target %s", ErrLanguageNotTargeted, project.ID, language.Code)
		}

		existing, err := tx.ListAssignments(ctx, models.AssignmentFilters{
			ProjectID:  project.ID,
			UserID:     user.ID,
			LanguageID: language.ID,
			Role:       req.Role,
			Statuses:   liveAssignmentStatuses,
		})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return fmt.Errorf("%w: assignment %d", ErrDuplicateAssignment, existing[0].ID)
		}

		if err := tx.CreateAssignment(ctx, a); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				return fmt.Errorf("%w: %v", ErrDuplicateAssignment, err)
			}
			return err
		}

		if err := s.refreshProject(ctx, tx, project.ID); err != nil {
			return err
		}

		data := templates.Data{
			ProjectName:  project.Name,
			LanguageCode: language.Code,
			Role:         string(a.Role),
		}
		if a.Deadline != nil {
			data.Deadline = a.Deadline.Format("2006-01-02")
		}
		out.add(user.ID, templates.KeyAssignmentCreated, data, models.RelatedAssignment, a.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.decorate(a), nil
}

// CancelAssignment moves an assignment to Cancelled. Work already produced
// under it is left untouched.
func (s *Service) CancelAssignment(ctx context.Context, id int64) (*models.Assignment, error) {
	return s.SetAssignmentStatus(ctx, id, models.AssignmentCancelled)
}

// SetAssignmentStatus performs a manual status move on a non-terminal assignment
func (s *Service) SetAssignmentStatus(ctx context.Context, id int64, status models.AssignmentStatus) (*models.Assignment, error) {
	if !status.Valid() || status == models.AssignmentPending {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	var a *models.Assignment
	err := s.run(ctx, "set assignment status", func(tx storage.Tx, _ *outbox) error {
		var err error
		a, err = tx.GetAssignment(ctx, id)
		if err != nil {
			return notFound(err, ErrUnknownAssignment, id)
		}
		if a.Status.IsTerminal() {
			return fmt.Errorf("%w: assignment %d is %s", ErrAlreadyTerminal, a.ID, a.Status)
		}
		if a.Status == status {
			return nil
		}

		a.Status = status
		if status == models.AssignmentCompleted {
			now := s.now()
			a.CompletedAt = &now
		}
		if err := tx.UpdateAssignment(ctx, a); err != nil {
			return err
		}

		return s.refreshProject(ctx, tx, a.ProjectID)
	})
	if err != nil {
		return nil, err
	}

	return s.decorate(a), nil
}

// GetAssignment returns an assignment with its overdue flag
func (s *Service) GetAssignment(ctx context.Context, id int64) (*models.Assignment, error) {
	var a *models.Assignment
	err := s.read(ctx, "get assignment", func(tx storage.Tx) error {
		var err error
		a, err = tx.GetAssignment(ctx, id)
		return notFound(err, ErrUnknownAssignment, id)
	})
	if err != nil {
		return nil, err
	}
	return s.decorate(a), nil
}

// ListAssignmentsByUser returns every assignment held by a user
func (s *Service) ListAssignmentsByUser(ctx context.Context, userID int64) ([]*models.Assignment, error) {
	return s.listAssignments(ctx, models.AssignmentFilters{UserID: userID}, func(tx storage.Tx) error {
		_, err := tx.GetUser(ctx, userID)
		return notFound(err, ErrUnknownUser, userID)
	})
}

// ListAssignmentsByProject returns every assignment on a project
func (s *Service) ListAssignmentsByProject(ctx context.Context, projectID int64) ([]*models.Assignment, error) {
	return s.listAssignments(ctx, models.AssignmentFilters{ProjectID: projectID}, func(tx storage.Tx) error {
		_, err := tx.GetProject(ctx, projectID)
		return notFound(err, ErrUnknownProject, projectID)
	})
}

func (s *Service) listAssignments(ctx context.Context, filters models.AssignmentFilters, check func(tx storage.Tx) error) ([]*models.Assignment, error) {
	var assignments []*models.Assignment
	err := s.read(ctx, "list assignments", func(tx storage.Tx) error {
		if err := check(tx); err != nil {
			return err
		}
		var err error
		assignments, err = tx.ListAssignments(ctx, filters)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, a := range assignments {
		s.decorate(a)
	}
	return assignments, nil
}

// decorate fills read-time fields
func (s *Service) decorate(a *models.Assignment) *models.Assignment {
	a.IsOverdue = a.Overdue(s.now())
	return a
}
