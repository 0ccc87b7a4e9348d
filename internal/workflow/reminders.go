package workflow

import (
	"context"

	"github.com/terra-clan/translation-workflow/internal/models"
	"github.com/terra-clan/translation-workflow/internal/storage"
	"github.com/terra-clan/translation-workflow/internal/templates"
)

// RemindOverdue notifies the holders of overdue assignments. Each assignment
// is reminded once; the returned count is the number reminded in this pass.
func (s *Service) RemindOverdue(ctx context.Context) (int, error) {
	var reminded int
	err := s.run(ctx, "remind overdue", func(tx storage.Tx, out *outbox) error {
		reminded = 0
		now := s.now()

		overdue, err := tx.ListOverdueAssignments(ctx, now)
		if err != nil {
			return err
		}

		projects := make(map[int64]*models.Project)
		languages := make(map[int64]*models.Language)

		for _, a := range overdue {
			project, ok := projects[a.ProjectID]
			if !ok {
				if project, err = tx.GetProject(ctx, a.ProjectID); err != nil {
					return notFound(err, ErrUnknownProject, a.ProjectID)
				}
				projects[a.ProjectID] = project
			}
			language, ok := languages[a.LanguageID]
			if !ok {
				if language, err = tx.GetLanguage(ctx, a.LanguageID); err != nil {
					return notFound(err, ErrUnknownLanguage, a.LanguageID)
				}
				languages[a.LanguageID] = language
			}

			a.OverdueNotifiedAt = &now
			if err := tx.UpdateAssignment(ctx, a); err != nil {
				return err
			}

			out.add(a.UserID, templates.KeyAssignmentOverdue, templates.Data{
				ProjectName:  project.Name,
				LanguageCode: language.Code,
				Role:         string(a.Role),
				Deadline:     a.Deadline.Format("2006-01-02"),
			}, models.RelatedAssignment, a.ID)
			reminded++
		}
		return nil
	})
	return reminded, err
}
