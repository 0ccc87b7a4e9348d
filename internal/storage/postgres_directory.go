package storage

import (
	"context"

	"github.com/terra-clan/translation-workflow/internal/models"
)

func (t *pgTx) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (name, email, role, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := t.tx.QueryRow(ctx, query, u.Name, u.Email, string(u.Role), u.IsActive, u.CreatedAt).Scan(&u.ID)
	return classify(err, "create user")
}

const userColumns = `u.id, u.name, u.email, u.role, u.is_active, u.created_at`

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	var role string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &u.IsActive, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

func (t *pgTx) GetUser(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1`
	u, err := scanUser(t.tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, classify(err, "get user")
	}
	return u, nil
}

// GetUserByToken resolves a bearer token and stamps its last use
func (t *pgTx) GetUserByToken(ctx context.Context, token string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM access_tokens k
		JOIN users u ON u.id = k.user_id
		WHERE k.token = $1
	`
	u, err := scanUser(t.tx.QueryRow(ctx, query, token))
	if err != nil {
		return nil, classify(err, "get user by token")
	}

	if _, err := t.tx.Exec(ctx, `UPDATE access_tokens SET last_used_at = NOW() WHERE token = $1`, token); err != nil {
		return nil, classify(err, "touch access token")
	}

	return u, nil
}

func (t *pgTx) CreateAccessToken(ctx context.Context, userID int64, token string) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO access_tokens (token, user_id) VALUES ($1, $2)`, token, userID)
	return classify(err, "create access token")
}

func (t *pgTx) CreateLanguage(ctx context.Context, l *models.Language) error {
	query := `INSERT INTO languages (code, name, created_at) VALUES ($1, $2, $3) RETURNING id`
	return classify(t.tx.QueryRow(ctx, query, l.Code, l.Name, l.CreatedAt).Scan(&l.ID), "create language")
}

func (t *pgTx) GetLanguage(ctx context.Context, id int64) (*models.Language, error) {
	var l models.Language
	query := `SELECT id, code, name, created_at FROM languages WHERE id = $1`
	if err := t.tx.QueryRow(ctx, query, id).Scan(&l.ID, &l.Code, &l.Name, &l.CreatedAt); err != nil {
		return nil, classify(err, "get language")
	}
	return &l, nil
}

func (t *pgTx) ListLanguages(ctx context.Context) ([]*models.Language, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, code, name, created_at FROM languages ORDER BY code`)
	if err != nil {
		return nil, classify(err, "list languages")
	}
	defer rows.Close()

	var languages []*models.Language
	for rows.Next() {
		var l models.Language
		if err := rows.Scan(&l.ID, &l.Code, &l.Name, &l.CreatedAt); err != nil {
			return nil, classify(err, "scan language")
		}
		languages = append(languages, &l)
	}

	return languages, classify(rows.Err(), "iterate languages")
}
