package storage

import (
	"context"
	"database/sql"

	"github.com/terra-clan/translation-workflow/internal/models"
)

// Translations

const translationColumns = `t.id, t.paragraph_id, t.assignment_id, t.text, t.final_text, t.status,
	t.submitted_at, t.created_at, t.updated_at, t.version`

func scanTranslation(row scanner) (*models.Translation, error) {
	var tr models.Translation
	var status string
	var submittedAt sql.NullTime

	err := row.Scan(
		&tr.ID,
		&tr.ParagraphID,
		&tr.AssignmentID,
		&tr.Text,
		&tr.FinalText,
		&status,
		&submittedAt,
		&tr.CreatedAt,
		&tr.UpdatedAt,
		&tr.Version,
	)
	if err != nil {
		return nil, err
	}

	tr.Status = models.TranslationStatus(status)
	tr.SubmittedAt = timePtr(submittedAt)
	return &tr, nil
}

func (t *pgTx) CreateTranslation(ctx context.Context, tr *models.Translation) error {
	query := `
		INSERT INTO translations (paragraph_id, assignment_id, text, final_text, status, submitted_at, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1)
		RETURNING id
	`
	err := t.tx.QueryRow(ctx, query,
		tr.ParagraphID,
		tr.AssignmentID,
		tr.Text,
		tr.FinalText,
		string(tr.Status),
		nullTime(tr.SubmittedAt),
		tr.CreatedAt,
		tr.UpdatedAt,
	).Scan(&tr.ID)
	if err != nil {
		return classify(err, "create translation")
	}
	tr.Version = 1
	return nil
}

func (t *pgTx) GetTranslation(ctx context.Context, id int64) (*models.Translation, error) {
	tr, err := scanTranslation(t.tx.QueryRow(ctx, `SELECT `+translationColumns+` FROM translations t WHERE t.id = $1`, id))
	if err != nil {
		return nil, classify(err, "get translation")
	}
	return tr, nil
}

func (t *pgTx) UpdateTranslation(ctx context.Context, tr *models.Translation) error {
	query := `
		UPDATE translations
		SET text = $2, final_text = $3, status = $4, submitted_at = $5, updated_at = $6, version = version + 1
		WHERE id = $1 AND version = $7
	`
	tag, err := t.tx.Exec(ctx, query,
		tr.ID,
		tr.Text,
		tr.FinalText,
		string(tr.Status),
		nullTime(tr.SubmittedAt),
		tr.UpdatedAt,
		tr.Version,
	)
	if err != nil {
		return classify(err, "update translation")
	}
	if tag.RowsAffected() == 0 {
		return t.missingOrConflict(ctx, "translations", tr.ID)
	}
	tr.Version++
	return nil
}

func (t *pgTx) ListTranslations(ctx context.Context, filters models.TranslationFilters) ([]*models.Translation, error) {
	var w whereBuilder
	if filters.AssignmentID != 0 {
		w.add("t.assignment_id = $%d", filters.AssignmentID)
	}
	if filters.ParagraphID != 0 {
		w.add("t.paragraph_id = $%d", filters.ParagraphID)
	}
	if filters.ProjectID != 0 {
		w.add("a.project_id = $%d", filters.ProjectID)
	}
	if filters.LanguageID != 0 {
		w.add("a.language_id = $%d", filters.LanguageID)
	}
	if len(filters.Statuses) > 0 {
		w.add("t.status = ANY($%d)", statusStrings(filters.Statuses))
	}

	query := `
		SELECT ` + translationColumns + `
		FROM translations t
		JOIN assignments a ON a.id = t.assignment_id` + w.String() + `
		ORDER BY t.id`

	rows, err := t.tx.Query(ctx, query, w.args...)
	if err != nil {
		return nil, classify(err, "list translations")
	}
	defer rows.Close()

	var translations []*models.Translation
	for rows.Next() {
		tr, err := scanTranslation(rows)
		if err != nil {
			return nil, classify(err, "scan translation")
		}
		translations = append(translations, tr)
	}

	return translations, classify(rows.Err(), "iterate translations")
}

// Reviews

const reviewColumns = `r.id, r.translation_id, r.assignment_id, r.reviewed_text, r.quality_score, r.status,
	r.submitted_at, r.created_at, r.updated_at, r.version`

func scanReview(row scanner) (*models.Review, error) {
	var r models.Review
	var status string
	var submittedAt sql.NullTime

	err := row.Scan(
		&r.ID,
		&r.TranslationID,
		&r.AssignmentID,
		&r.ReviewedText,
		&r.QualityScore,
		&status,
		&submittedAt,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.Version,
	)
	if err != nil {
		return nil, err
	}

	r.Status = models.ReviewStatus(status)
	r.SubmittedAt = timePtr(submittedAt)
	return &r, nil
}

func (t *pgTx) CreateReview(ctx context.Context, r *models.Review) error {
	query := `
		INSERT INTO reviews (translation_id, assignment_id, reviewed_text, quality_score, status, submitted_at, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1)
		RETURNING id
	`
	err := t.tx.QueryRow(ctx, query,
		r.TranslationID,
		r.AssignmentID,
		r.ReviewedText,
		r.QualityScore,
		string(r.Status),
		nullTime(r.SubmittedAt),
		r.CreatedAt,
		r.UpdatedAt,
	).Scan(&r.ID)
	if err != nil {
		return classify(err, "create review")
	}
	r.Version = 1
	return nil
}

func (t *pgTx) GetReview(ctx context.Context, id int64) (*models.Review, error) {
	r, err := scanReview(t.tx.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews r WHERE r.id = $1`, id))
	if err != nil {
		return nil, classify(err, "get review")
	}
	return r, nil
}

func (t *pgTx) UpdateReview(ctx context.Context, r *models.Review) error {
	query := `
		UPDATE reviews
		SET reviewed_text = $2, quality_score = $3, status = $4, submitted_at = $5, updated_at = $6, version = version + 1
		WHERE id = $1 AND version = $7
	`
	tag, err := t.tx.Exec(ctx, query,
		r.ID,
		r.ReviewedText,
		r.QualityScore,
		string(r.Status),
		nullTime(r.SubmittedAt),
		r.UpdatedAt,
		r.Version,
	)
	if err != nil {
		return classify(err, "update review")
	}
	if tag.RowsAffected() == 0 {
		return t.missingOrConflict(ctx, "reviews", r.ID)
	}
	r.Version++
	return nil
}

func (t *pgTx) ListReviews(ctx context.Context, filters models.ReviewFilters) ([]*models.Review, error) {
	var w whereBuilder
	if filters.TranslationID != 0 {
		w.add("r.translation_id = $%d", filters.TranslationID)
	}
	if filters.AssignmentID != 0 {
		w.add("r.assignment_id = $%d", filters.AssignmentID)
	}
	if filters.ReviewerUserID != 0 {
		w.add("a.user_id = $%d", filters.ReviewerUserID)
	}
	if len(filters.Statuses) > 0 {
		w.add("r.status = ANY($%d)", statusStrings(filters.Statuses))
	}

	query := `
		SELECT ` + reviewColumns + `
		FROM reviews r
		JOIN assignments a ON a.id = r.assignment_id` + w.String() + `
		ORDER BY r.id`

	rows, err := t.tx.Query(ctx, query, w.args...)
	if err != nil {
		return nil, classify(err, "list reviews")
	}
	defer rows.Close()

	var reviews []*models.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, classify(err, "scan review")
		}
		reviews = append(reviews, r)
	}

	return reviews, classify(rows.Err(), "iterate reviews")
}

// Approvals

// CreateApproval inserts an approval; review_id is unique so a second decision fails with ErrDuplicate
func (t *pgTx) CreateApproval(ctx context.Context, a *models.Approval) error {
	query := `
		INSERT INTO approvals (review_id, assignment_id, selected_version, decision, final_text, comments, approved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := t.tx.QueryRow(ctx, query,
		a.ReviewID,
		a.AssignmentID,
		string(a.SelectedVersion),
		string(a.Decision),
		a.FinalText,
		a.Comments,
		a.ApprovedAt,
	).Scan(&a.ID)
	return classify(err, "create approval")
}

func (t *pgTx) GetApprovalByReview(ctx context.Context, reviewID int64) (*models.Approval, error) {
	query := `
		SELECT id, review_id, assignment_id, selected_version, decision, final_text, comments, approved_at
		FROM approvals
		WHERE review_id = $1
	`
	var a models.Approval
	var version, decision string
	err := t.tx.QueryRow(ctx, query, reviewID).Scan(
		&a.ID,
		&a.ReviewID,
		&a.AssignmentID,
		&version,
		&decision,
		&a.FinalText,
		&a.Comments,
		&a.ApprovedAt,
	)
	if err != nil {
		return nil, classify(err, "get approval")
	}
	a.SelectedVersion = models.SelectedVersion(version)
	a.Decision = models.Decision(decision)
	return &a, nil
}

func (t *pgTx) UpsertFinalTranslation(ctx context.Context, f *models.FinalTranslation) error {
	query := `
		INSERT INTO final_translations (paragraph_id, language_id, text, approval_id, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (paragraph_id, language_id)
		DO UPDATE SET text = EXCLUDED.text, approval_id = EXCLUDED.approval_id, updated_at = EXCLUDED.updated_at
	`
	_, err := t.tx.Exec(ctx, query, f.ParagraphID, f.LanguageID, f.Text, f.ApprovalID, f.UpdatedAt)
	return classify(err, "upsert final translation")
}

func (t *pgTx) GetFinalTranslation(ctx context.Context, paragraphID, languageID int64) (*models.FinalTranslation, error) {
	query := `
		SELECT paragraph_id, language_id, text, approval_id, updated_at
		FROM final_translations
		WHERE paragraph_id = $1 AND language_id = $2
	`
	var f models.FinalTranslation
	err := t.tx.QueryRow(ctx, query, paragraphID, languageID).Scan(&f.ParagraphID, &f.LanguageID, &f.Text, &f.ApprovalID, &f.UpdatedAt)
	if err != nil {
		return nil, classify(err, "get final translation")
	}
	return &f, nil
}
