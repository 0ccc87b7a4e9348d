package workflow

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/translation-workflow/internal/models"
	"github.com/terra-clan/translation-workflow/internal/storage"
	"github.com/terra-clan/translation-workflow/internal/templates"
)

func newPostgresService(t *testing.T) *Service {
	t.Helper()

	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx := context.Background()
	require.NoError(t, storage.MigrateFromDSN(ctx, dsn, ""))

	store, err := storage.NewPostgresStore(ctx, storage.PostgresConfig{DSN: dsn, MaxOpenConns: 8, MaxIdleConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	loader, err := templates.NewDefaultLoader()
	require.NoError(t, err)
	return NewService(store, &recordingNotifier{}, loader, Options{})
}

func TestConcurrentSubmitsCompleteAssignment(t *testing.T) {
	svc := newPostgresService(t)
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	creator, err := svc.CreateUser(ctx, models.CreateUserRequest{Name: "Dana", Email: "dana-" + suffix + "@example.com", Role: models.RoleDataEntry})
	require.NoError(t, err)
	translator, err := svc.CreateUser(ctx, models.CreateUserRequest{Name: "Tarek", Email: "tarek-" + suffix + "@example.com", Role: models.RoleTranslator})
	require.NoError(t, err)
	source, err := svc.CreateLanguage(ctx, models.CreateLanguageRequest{Code: "s" + suffix, Name: "Source"})
	require.NoError(t, err)
	target, err := svc.CreateLanguage(ctx, models.CreateLanguageRequest{Code: "t" + suffix, Name: "Target"})
	require.NoError(t, err)

	project, err := svc.CreateProject(ctx, creator.ID, models.CreateProjectRequest{
		Name:              "Guide " + suffix,
		SourceLanguageID:  source.ID,
		TargetLanguageIDs: []int64{target.ID},
	})
	require.NoError(t, err)

	paragraphs, err := svc.AddParagraphs(ctx, project.ID, models.AddParagraphsRequest{
		Paragraphs: []models.ParagraphInput{{OriginalText: "One"}, {OriginalText: "Two"}, {OriginalText: "Three"}},
	})
	require.NoError(t, err)

	assignment, err := svc.CreateAssignment(ctx, models.CreateAssignmentRequest{
		ProjectID:  project.ID,
		UserID:     translator.ID,
		Role:       models.RoleTranslator,
		LanguageID: target.ID,
	})
	require.NoError(t, err)

	drafts := make([]*models.Translation, 0, len(paragraphs))
	for _, p := range paragraphs {
		draft, err := svc.SaveDraft(ctx, models.SaveDraftRequest{
			AssignmentID: assignment.ID,
			ParagraphID:  p.ID,
			Text:         "text " + p.OriginalText,
		})
		require.NoError(t, err)
		drafts = append(drafts, draft)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(drafts))
	for i, draft := range drafts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Submit(ctx, draft.ID)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	got, err := svc.GetAssignment(ctx, assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)

	p, err := svc.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectReview, p.Status)
}
