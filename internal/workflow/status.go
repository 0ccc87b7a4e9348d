package workflow

import (
	"context"

	"github.com/terra-clan/translation-workflow/internal/models"
	"github.com/terra-clan/translation-workflow/internal/storage"
)

// translationRank orders live translation states; rejected text counts for nothing
var translationRank = map[models.TranslationStatus]int{
	models.TranslationRejected:  0,
	models.TranslationDraft:     1,
	models.TranslationSubmitted: 2,
	models.TranslationCompleted: 3,
}

// cell is one (paragraph, target language) pair
type cell struct {
	paragraphID int64
	languageID  int64
}

// projectSnapshot is everything project aggregation needs, read in one transaction
type projectSnapshot struct {
	project     *models.Project
	paragraphs  []*models.Paragraph
	assignments []*models.Assignment
	best        map[cell]int
	touched     bool
}

func loadSnapshot(ctx context.Context, tx storage.Tx, projectID int64) (*projectSnapshot, error) {
	project, err := tx.GetProject(ctx, projectID)
	if err != nil {
		return nil, notFound(err, ErrUnknownProject, projectID)
	}

	paragraphs, err := tx.ListParagraphs(ctx, projectID)
	if err != nil {
		return nil, err
	}

	assignments, err := tx.ListAssignments(ctx, models.AssignmentFilters{ProjectID: projectID})
	if err != nil {
		return nil, err
	}

	translations, err := tx.ListTranslations(ctx, models.TranslationFilters{ProjectID: projectID})
	if err != nil {
		return nil, err
	}

	languageOf := make(map[int64]int64, len(assignments))
	for _, a := range assignments {
		languageOf[a.ID] = a.LanguageID
	}

	snap := &projectSnapshot{
		project:     project,
		paragraphs:  paragraphs,
		assignments: assignments,
		best:        make(map[cell]int),
		touched:     len(translations) > 0,
	}
	for _, tr := range translations {
		c := cell{paragraphID: tr.ParagraphID, languageID: languageOf[tr.AssignmentID]}
		if rank := translationRank[tr.Status]; rank > snap.best[c] {
			snap.best[c] = rank
		}
	}

	return snap, nil
}

// status derives the project status from its paragraphs and translations
func (p *projectSnapshot) status() models.ProjectStatus {
	if p.project.Status == models.ProjectCancelled {
		return models.ProjectCancelled
	}

	cells := len(p.paragraphs) * len(p.project.TargetLanguageIDs)
	if cells > 0 {
		completed, submitted := 0, 0
		for _, lang := range p.project.TargetLanguageIDs {
			for _, para := range p.paragraphs {
				rank := p.best[cell{paragraphID: para.ID, languageID: lang}]
				if rank >= translationRank[models.TranslationSubmitted] {
					submitted++
				}
				if rank == translationRank[models.TranslationCompleted] {
					completed++
				}
			}
		}
		if completed == cells {
			return models.ProjectCompleted
		}
		if submitted == cells {
			return models.ProjectReview
		}
	}

	if p.touched {
		return models.ProjectInProgress
	}

	for _, a := range p.assignments {
		if a.Status != models.AssignmentCancelled {
			return models.ProjectActive
		}
	}

	return models.ProjectDraft
}

// progress builds the per-language dashboard numbers
func (p *projectSnapshot) progress() *models.ProjectProgress {
	out := &models.ProjectProgress{
		ProjectID: p.project.ID,
		Status:    p.status(),
		Languages: make([]models.LanguageProgress, 0, len(p.project.TargetLanguageIDs)),
	}

	var approved, cells int
	for _, lang := range p.project.TargetLanguageIDs {
		lp := models.LanguageProgress{LanguageID: lang, Paragraphs: len(p.paragraphs)}
		for _, para := range p.paragraphs {
			rank := p.best[cell{paragraphID: para.ID, languageID: lang}]
			if rank >= translationRank[models.TranslationDraft] {
				lp.Drafted++
			}
			if rank >= translationRank[models.TranslationSubmitted] {
				lp.Submitted++
			}
			if rank == translationRank[models.TranslationCompleted] {
				lp.Approved++
			}
		}
		if lp.Paragraphs > 0 {
			lp.CompletedFraction = float64(lp.Approved) / float64(lp.Paragraphs)
		}
		approved += lp.Approved
		cells += lp.Paragraphs
		out.Languages = append(out.Languages, lp)
	}

	if cells > 0 {
		out.CompletedFraction = float64(approved) / float64(cells)
	}

	return out
}

// refreshProject recomputes the derived project status inside the caller's
// transaction and writes it only when it changed. The project row is locked
// before the snapshot is read.
func (s *Service) refreshProject(ctx context.Context, tx storage.Tx, projectID int64) error {
	if _, err := tx.LockProject(ctx, projectID); err != nil {
		return notFound(err, ErrUnknownProject, projectID)
	}

	snap, err := loadSnapshot(ctx, tx, projectID)
	if err != nil {
		return err
	}

	next := snap.status()
	if next == snap.project.Status {
		return nil
	}

	snap.project.Status = next
	snap.project.UpdatedAt = s.now()
	return tx.UpdateProject(ctx, snap.project)
}
