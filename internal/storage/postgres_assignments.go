package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/terra-clan/translation-workflow/internal/models"
)

const assignmentColumns = `a.id, a.project_id, a.user_id, a.role, a.language_id, a.status, a.assigned_at,
	a.deadline, a.completed_at, a.overdue_notified_at, a.version`

func scanAssignment(row scanner) (*models.Assignment, error) {
	var a models.Assignment
	var role, status string
	var deadline, completedAt, notifiedAt sql.NullTime

	err := row.Scan(
		&a.ID,
		&a.ProjectID,
		&a.UserID,
		&role,
		&a.LanguageID,
		&status,
		&a.AssignedAt,
		&deadline,
		&completedAt,
		&notifiedAt,
		&a.Version,
	)
	if err != nil {
		return nil, err
	}

	a.Role = models.Role(role)
	a.Status = models.AssignmentStatus(status)
	a.Deadline = timePtr(deadline)
	a.CompletedAt = timePtr(completedAt)
	a.OverdueNotifiedAt = timePtr(notifiedAt)

	return &a, nil
}

// CreateAssignment inserts an assignment; a second non-cancelled grant for the
// same project, language, role and user violates assignments_active_grant_key
func (t *pgTx) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	query := `
		INSERT INTO assignments (project_id, user_id, role, language_id, status, assigned_at, deadline, completed_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1)
		RETURNING id
	`
	err := t.tx.QueryRow(ctx, query,
		a.ProjectID,
		a.UserID,
		string(a.Role),
		a.LanguageID,
		string(a.Status),
		a.AssignedAt,
		nullTime(a.Deadline),
		nullTime(a.CompletedAt),
	).Scan(&a.ID)
	if err != nil {
		return classify(err, "create assignment")
	}
	a.Version = 1
	return nil
}

func (t *pgTx) GetAssignment(ctx context.Context, id int64) (*models.Assignment, error) {
	a, err := scanAssignment(t.tx.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM assignments a WHERE a.id = $1`, id))
	if err != nil {
		return nil, classify(err, "get assignment")
	}
	return a, nil
}

func (t *pgTx) LockAssignment(ctx context.Context, id int64) (*models.Assignment, error) {
	a, err := scanAssignment(t.tx.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM assignments a WHERE a.id = $1 FOR NO KEY UPDATE`, id))
	if err != nil {
		return nil, classify(err, "lock assignment")
	}
	return a, nil
}

func (t *pgTx) UpdateAssignment(ctx context.Context, a *models.Assignment) error {
	query := `
		UPDATE assignments
		SET status = $2, deadline = $3, completed_at = $4, overdue_notified_at = $5, version = version + 1
		WHERE id = $1 AND version = $6
	`
	tag, err := t.tx.Exec(ctx, query,
		a.ID,
		string(a.Status),
		nullTime(a.Deadline),
		nullTime(a.CompletedAt),
		nullTime(a.OverdueNotifiedAt),
		a.Version,
	)
	if err != nil {
		return classify(err, "update assignment")
	}
	if tag.RowsAffected() == 0 {
		return t.missingOrConflict(ctx, "assignments", a.ID)
	}
	a.Version++
	return nil
}

func (t *pgTx) ListAssignments(ctx context.Context, filters models.AssignmentFilters) ([]*models.Assignment, error) {
	var w whereBuilder
	if filters.ProjectID != 0 {
		w.add("a.project_id = $%d", filters.ProjectID)
	}
	if filters.UserID != 0 {
		w.add("a.user_id = $%d", filters.UserID)
	}
	if filters.LanguageID != 0 {
		w.add("a.language_id = $%d", filters.LanguageID)
	}
	if filters.Role != "" {
		w.add("a.role = $%d", string(filters.Role))
	}
	if len(filters.Statuses) > 0 {
		w.add("a.status = ANY($%d)", statusStrings(filters.Statuses))
	}

	query := `SELECT ` + assignmentColumns + ` FROM assignments a` + w.String() + ` ORDER BY a.id`
	return t.queryAssignments(ctx, query, w.args...)
}

// ListOverdueAssignments returns open assignments past their deadline that have not been reminded yet
func (t *pgTx) ListOverdueAssignments(ctx context.Context, now time.Time) ([]*models.Assignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM assignments a
		WHERE a.status IN ('Pending', 'InProgress')
		  AND a.deadline < $1
		  AND a.overdue_notified_at IS NULL
		ORDER BY a.deadline ASC
		FOR UPDATE SKIP LOCKED
	`
	return t.queryAssignments(ctx, query, now)
}

func (t *pgTx) queryAssignments(ctx context.Context, query string, args ...any) ([]*models.Assignment, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(err, "list assignments")
	}
	defer rows.Close()

	var assignments []*models.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, classify(err, "scan assignment")
		}
		assignments = append(assignments, a)
	}

	return assignments, classify(rows.Err(), "iterate assignments")
}
