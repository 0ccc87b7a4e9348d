package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/terra-clan/translation-workflow/internal/models"
	"github.com/terra-clan/translation-workflow/internal/storage"
)

// CreateLanguage registers a language
func (s *Service) CreateLanguage(ctx context.Context, req models.CreateLanguageRequest) (*models.Language, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, fmt.Errorf("%w: code", ErrMissingField)
	}

	l := &models.Language{Code: code, Name: strings.TrimSpace(req.Name), CreatedAt: s.now()}
	err := s.run(ctx, "create language", func(tx storage.Tx, _ *outbox) error {
		err := tx.CreateLanguage(ctx, l)
		if errors.Is(err, storage.ErrDuplicate) {
			return fmt.Errorf("%w: %s", ErrDuplicateLanguage, code)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// ListLanguages returns all languages
func (s *Service) ListLanguages(ctx context.Context) ([]*models.Language, error) {
	var languages []*models.Language
	err := s.read(ctx, "list languages", func(tx storage.Tx) error {
		var err error
		languages, err = tx.ListLanguages(ctx)
		return err
	})
	return languages, err
}

// CreateUser registers a user
func (s *Service) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name", ErrMissingField)
	}
	if !req.Role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, req.Role)
	}

	u := &models.User{
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Role:      req.Role,
		IsActive:  true,
		CreatedAt: s.now(),
	}
	err := s.run(ctx, "create user", func(tx storage.Tx, _ *outbox) error {
		err := tx.CreateUser(ctx, u)
		if errors.Is(err, storage.ErrDuplicate) {
			return fmt.Errorf("%w: %s", ErrDuplicateUser, u.Email)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUser returns a user by ID
func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var u *models.User
	err := s.read(ctx, "get user", func(tx storage.Tx) error {
		var err error
		u, err = tx.GetUser(ctx, id)
		return notFound(err, ErrUnknownUser, id)
	})
	return u, err
}

// IssueToken creates a new bearer token for a user
func (s *Service) IssueToken(ctx context.Context, userID int64) (string, error) {
	token := "tw_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	err := s.run(ctx, "issue token", func(tx storage.Tx, _ *outbox) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return notFound(err, ErrUnknownUser, userID)
		}
		return tx.CreateAccessToken(ctx, userID, token)
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// Authenticate resolves a bearer token into an active user
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	var u *models.User
	err := s.read(ctx, "authenticate", func(tx storage.Tx) error {
		var err error
		u, err = tx.GetUserByToken(ctx, token)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, fmt.Errorf("%w: user %d is inactive", ErrInvalidToken, u.ID)
	}
	return u, nil
}
