package storage

import (
	"context"
	"fmt"

	"github.com/terra-clan/translation-workflow/internal/models"
)

const projectColumns = `id, name, description, source_language_id, creator_id, status, target_language_ids,
	paragraph_count, word_count, created_at, updated_at, version`

func scanProject(row scanner) (*models.Project, error) {
	var p models.Project
	var status string
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.SourceLanguageID,
		&p.CreatorID,
		&status,
		&p.TargetLanguageIDs,
		&p.ParagraphCount,
		&p.WordCount,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.Version,
	)
	if err != nil {
		return nil, err
	}
	p.Status = models.ProjectStatus(status)
	return &p, nil
}

// CreateProject inserts a project
func (t *pgTx) CreateProject(ctx context.Context, p *models.Project) error {
	query := `
		INSERT INTO projects (name, description, source_language_id, creator_id, status, target_language_ids,
			paragraph_count, word_count, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)
		RETURNING id
	`
	err := t.tx.QueryRow(ctx, query,
		p.Name,
		p.Description,
		p.SourceLanguageID,
		p.CreatorID,
		string(p.Status),
		p.TargetLanguageIDs,
		p.ParagraphCount,
		p.WordCount,
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return classify(err, "create project")
	}
	p.Version = 1
	return nil
}

// GetProject retrieves a project by ID
func (t *pgTx) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	p, err := scanProject(t.tx.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if err != nil {
		return nil, classify(err, "get project")
	}
	return p, nil
}

// LockProject retrieves a project and holds its row until the transaction ends
func (t *pgTx) LockProject(ctx context.Context, id int64) (*models.Project, error) {
	p, err := scanProject(t.tx.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1 FOR NO KEY UPDATE`, id))
	if err != nil {
		return nil, classify(err, "lock project")
	}
	return p, nil
}

// UpdateProject writes a project if its version is unchanged
func (t *pgTx) UpdateProject(ctx context.Context, p *models.Project) error {
	query := `
		UPDATE projects
		SET name = $2, description = $3, status = $4, target_language_ids = $5,
			paragraph_count = $6, word_count = $7, updated_at = $8, version = version + 1
		WHERE id = $1 AND version = $9
	`
	tag, err := t.tx.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		string(p.Status),
		p.TargetLanguageIDs,
		p.ParagraphCount,
		p.WordCount,
		p.UpdatedAt,
		p.Version,
	)
	if err != nil {
		return classify(err, "update project")
	}
	if tag.RowsAffected() == 0 {
		return t.missingOrConflict(ctx, "projects", p.ID)
	}
	p.Version++
	return nil
}

// ListProjects returns projects matching filters, newest first
func (t *pgTx) ListProjects(ctx context.Context, filters models.ProjectFilters) ([]*models.Project, error) {
	var w whereBuilder
	if filters.CreatorID != 0 {
		w.add("creator_id = $%d", filters.CreatorID)
	}
	if filters.Status != "" {
		w.add("status = $%d", string(filters.Status))
	}

	query := `SELECT ` + projectColumns + ` FROM projects` + w.String() + ` ORDER BY id DESC`
	if filters.Limit > 0 {
		query += " LIMIT " + w.arg(filters.Limit)
	}
	if filters.Offset > 0 {
		query += " OFFSET " + w.arg(filters.Offset)
	}

	rows, err := t.tx.Query(ctx, query, w.args...)
	if err != nil {
		return nil, classify(err, "list projects")
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, classify(err, "scan project")
		}
		projects = append(projects, p)
	}

	return projects, classify(rows.Err(), "iterate projects")
}

const paragraphColumns = `id, project_id, original_text, type, position, word_count, created_at, updated_at`

func scanParagraph(row scanner) (*models.Paragraph, error) {
	var p models.Paragraph
	var typ string
	err := row.Scan(&p.ID, &p.ProjectID, &p.OriginalText, &typ, &p.Position, &p.WordCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Type = models.ParagraphType(typ)
	return &p, nil
}

// CreateParagraph inserts a paragraph; positions are unique per project
func (t *pgTx) CreateParagraph(ctx context.Context, p *models.Paragraph) error {
	query := `
		INSERT INTO paragraphs (project_id, original_text, type, position, word_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := t.tx.QueryRow(ctx, query,
		p.ProjectID, p.OriginalText, string(p.Type), p.Position, p.WordCount, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	return classify(err, "create paragraph")
}

func (t *pgTx) GetParagraph(ctx context.Context, id int64) (*models.Paragraph, error) {
	p, err := scanParagraph(t.tx.QueryRow(ctx, `SELECT `+paragraphColumns+` FROM paragraphs WHERE id = $1`, id))
	if err != nil {
		return nil, classify(err, "get paragraph")
	}
	return p, nil
}

func (t *pgTx) UpdateParagraph(ctx context.Context, p *models.Paragraph) error {
	query := `
		UPDATE paragraphs
		SET original_text = $2, type = $3, position = $4, word_count = $5, updated_at = $6
		WHERE id = $1
	`
	tag, err := t.tx.Exec(ctx, query, p.ID, p.OriginalText, string(p.Type), p.Position, p.WordCount, p.UpdatedAt)
	if err != nil {
		return classify(err, "update paragraph")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: paragraph %d", ErrNotFound, p.ID)
	}
	return nil
}

func (t *pgTx) ListParagraphs(ctx context.Context, projectID int64) ([]*models.Paragraph, error) {
	query := `SELECT ` + paragraphColumns + ` FROM paragraphs WHERE project_id = $1 ORDER BY position`
	rows, err := t.tx.Query(ctx, query, projectID)
	if err != nil {
		return nil, classify(err, "list paragraphs")
	}
	defer rows.Close()

	var paragraphs []*models.Paragraph
	for rows.Next() {
		p, err := scanParagraph(rows)
		if err != nil {
			return nil, classify(err, "scan paragraph")
		}
		paragraphs = append(paragraphs, p)
	}

	return paragraphs, classify(rows.Err(), "iterate paragraphs")
}
