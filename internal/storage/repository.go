package storage

import (
	"context"
	"errors"
	"time"

	"github.com/terra-clan/translation-workflow/internal/models"
)

// Common errors
var (
	ErrNotFound    = errors.New("record not found")
	ErrConflict    = errors.New("record was modified concurrently")
	ErrDuplicate   = errors.New("record violates a uniqueness constraint")
	ErrUnavailable = errors.New("store unavailable")
)

// Store is the entity store. Every read and write happens inside WithTx so that
// a stage transition and the aggregate recomputation it triggers commit together.
type Store interface {
	// WithTx runs fn in a single transaction. The transaction commits if fn
	// returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}

// Tx defines the operations available inside a transaction.
// Update methods use optimistic concurrency: the caller passes the version it
// read, and ErrConflict is returned if the stored version moved on.
// Get methods return ErrNotFound for missing rows. Lock methods read like Get
// and hold the row until the transaction ends, so aggregates computed under
// the lock see every write committed before it.
type Tx interface {
	// Users & languages
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByToken(ctx context.Context, token string) (*models.User, error)
	CreateAccessToken(ctx context.Context, userID int64, token string) error
	CreateLanguage(ctx context.Context, l *models.Language) error
	GetLanguage(ctx context.Context, id int64) (*models.Language, error)
	ListLanguages(ctx context.Context) ([]*models.Language, error)

	// Projects
	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id int64) (*models.Project, error)
	LockProject(ctx context.Context, id int64) (*models.Project, error)
	UpdateProject(ctx context.Context, p *models.Project) error
	ListProjects(ctx context.Context, filters models.ProjectFilters) ([]*models.Project, error)

	// Paragraphs
	CreateParagraph(ctx context.Context, p *models.Paragraph) error
	GetParagraph(ctx context.Context, id int64) (*models.Paragraph, error)
	UpdateParagraph(ctx context.Context, p *models.Paragraph) error
	ListParagraphs(ctx context.Context, projectID int64) ([]*models.Paragraph, error)

	// Assignments
	CreateAssignment(ctx context.Context, a *models.Assignment) error
	GetAssignment(ctx context.Context, id int64) (*models.Assignment, error)
	LockAssignment(ctx context.Context, id int64) (*models.Assignment, error)
	UpdateAssignment(ctx context.Context, a *models.Assignment) error
	ListAssignments(ctx context.Context, filters models.AssignmentFilters) ([]*models.Assignment, error)
	ListOverdueAssignments(ctx context.Context, now time.Time) ([]*models.Assignment, error)

	// Translations
	CreateTranslation(ctx context.Context, t *models.Translation) error
	GetTranslation(ctx context.Context, id int64) (*models.Translation, error)
	UpdateTranslation(ctx context.Context, t *models.Translation) error
	ListTranslations(ctx context.Context, filters models.TranslationFilters) ([]*models.Translation, error)

	// Reviews
	CreateReview(ctx context.Context, r *models.Review) error
	GetReview(ctx context.Context, id int64) (*models.Review, error)
	UpdateReview(ctx context.Context, r *models.Review) error
	ListReviews(ctx context.Context, filters models.ReviewFilters) ([]*models.Review, error)

	// Approvals
	CreateApproval(ctx context.Context, a *models.Approval) error
	GetApprovalByReview(ctx context.Context, reviewID int64) (*models.Approval, error)
	UpsertFinalTranslation(ctx context.Context, f *models.FinalTranslation) error
	GetFinalTranslation(ctx context.Context, paragraphID, languageID int64) (*models.FinalTranslation, error)

	// Notifications
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, id int64) (*models.Notification, error)
	ListNotifications(ctx context.Context, filters models.NotificationFilters) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id int64) error
	MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error)
}
