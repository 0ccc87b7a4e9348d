package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/translation-workflow/internal/api"
	"github.com/terra-clan/translation-workflow/internal/config"
	"github.com/terra-clan/translation-workflow/internal/models"
	"github.com/terra-clan/translation-workflow/internal/notify"
	"github.com/terra-clan/translation-workflow/internal/storage"
	"github.com/terra-clan/translation-workflow/internal/templates"
	"github.com/terra-clan/translation-workflow/internal/workflow"
)

func newTestClient(t *testing.T) (*Client, *notify.MemoryQueue) {
	t.Helper()

	loader, err := templates.NewDefaultLoader()
	require.NoError(t, err)

	store := storage.NewMemoryStore()
	queue := notify.NewMemoryQueue(64)
	svc := workflow.NewService(store, notify.NewDispatcher(queue, time.Second), loader, workflow.Options{})

	ts := httptest.NewServer(api.NewServer(config.ServerConfig{}, svc, nil, nil).Router())
	t.Cleanup(ts.Close)

	manager, err := svc.CreateUser(context.Background(), models.CreateUserRequest{
		Name: "Manager", Email: "manager@example.com", Role: models.RoleManager,
	})
	require.NoError(t, err)
	token, err := svc.IssueToken(context.Background(), manager.ID)
	require.NoError(t, err)

	return NewClient(ts.URL, token, WithTimeout(5*time.Second)), queue
}

func member(t *testing.T, c *Client, name, email string, role models.Role) (*models.User, *Client) {
	t.Helper()

	u, err := c.CreateUser(context.Background(), models.CreateUserRequest{Name: name, Email: email, Role: role})
	require.NoError(t, err)
	token, err := c.IssueToken(context.Background(), u.ID)
	require.NoError(t, err)
	return u, c.WithToken(token)
}

func TestHealth(t *testing.T) {
	c, _ := newTestClient(t)
	assert.NoError(t, c.Health(context.Background()))
}

func TestAPIError(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.GetProject(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, "UnknownProject", CodeOf(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "NotFoundError", apiErr.Kind)

	_, err = c.WithToken("tw_nope").ListLanguages(context.Background())
	assert.Equal(t, "InvalidToken", CodeOf(err))
}

func TestRejectAndRedo(t *testing.T) {
	ctx := context.Background()
	manager, queue := newTestClient(t)

	_, dataEntry := member(t, manager, "Dana", "dana@example.com", models.RoleDataEntry)
	translator, asTranslator := member(t, manager, "Tomas", "tomas@example.com", models.RoleTranslator)
	reviewer, asReviewer := member(t, manager, "Rita", "rita@example.com", models.RoleReviewer)
	supervisor, asSupervisor := member(t, manager, "Sam", "sam@example.com", models.RoleSupervisor)

	en, err := dataEntry.CreateLanguage(ctx, models.CreateLanguageRequest{Code: "en", Name: "English"})
	require.NoError(t, err)
	de, err := dataEntry.CreateLanguage(ctx, models.CreateLanguageRequest{Code: "de", Name: "German"})
	require.NoError(t, err)

	project, err := dataEntry.CreateProject(ctx, models.CreateProjectRequest{
		Name: "Manual", SourceLanguageID: en.ID, TargetLanguageIDs: []int64{de.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ProjectDraft, project.Status)

	paragraphs, err := dataEntry.AddParagraphs(ctx, project.ID, models.AddParagraphsRequest{
		Paragraphs: []models.ParagraphInput{{OriginalText: "Press the red button"}},
	})
	require.NoError(t, err)
	require.Len(t, paragraphs, 1)

	assign := func(u *models.User) *models.Assignment {
		a, err := manager.CreateAssignment(ctx, models.CreateAssignmentRequest{
			ProjectID: project.ID, UserID: u.ID, Role: u.Role, LanguageID: de.ID,
		})
		require.NoError(t, err)
		return a
	}
	ta := assign(translator)
	ra := assign(reviewer)
	sa := assign(supervisor)
	assert.Equal(t, 3, queue.Len())

	project, err = manager.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectActive, project.Status)

	tr, err := asTranslator.SaveDraft(ctx, models.SaveDraftRequest{AssignmentID: ta.ID, ParagraphID: paragraphs[0].ID, Text: "Drück den Knopf"})
	require.NoError(t, err)
	tr, err = asTranslator.SubmitTranslation(ctx, tr.ID)
	require.NoError(t, err)

	review, err := asReviewer.CreateReview(ctx, models.CreateReviewRequest{
		TranslationID: tr.ID, AssignmentID: ra.ID, ReviewedText: "Drück den roten Knopf", QualityScore: 5,
	})
	require.NoError(t, err)
	_, err = asReviewer.SubmitReview(ctx, review.ID)
	require.NoError(t, err)

	approval, err := asSupervisor.Reject(ctx, review.ID, models.DecisionRequest{
		AssignmentID: sa.ID, SelectedVersion: models.VersionOriginal, Comments: "missing the colour",
	})
	require.NoError(t, err)
	assert.Equal(t, models.DecisionRejected, approval.Decision)

	stored, err := manager.GetApprovalByReview(ctx, review.ID)
	require.NoError(t, err)
	assert.Equal(t, approval.ID, stored.ID)

	rejected, err := asTranslator.GetTranslation(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TranslationRejected, rejected.Status)

	ta, err = asTranslator.GetAssignment(ctx, ta.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentInProgress, ta.Status)

	// Redo goes through the whole pipeline again
	redo, err := asTranslator.SaveDraft(ctx, models.SaveDraftRequest{AssignmentID: ta.ID, ParagraphID: paragraphs[0].ID, Text: "Drück den roten Knopf"})
	require.NoError(t, err)
	assert.NotEqual(t, tr.ID, redo.ID)
	_, err = asTranslator.SubmitTranslation(ctx, redo.ID)
	require.NoError(t, err)

	pending, err := asReviewer.PendingTranslations(ctx, ra.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, redo.ID, pending[0].ID)

	review, err = asReviewer.CreateReview(ctx, models.CreateReviewRequest{
		TranslationID: redo.ID, AssignmentID: ra.ID, ReviewedText: "Drück den roten Knopf", QualityScore: 9,
	})
	require.NoError(t, err)
	_, err = asReviewer.SubmitReview(ctx, review.ID)
	require.NoError(t, err)

	_, err = asSupervisor.Approve(ctx, review.ID, models.DecisionRequest{AssignmentID: sa.ID, SelectedVersion: models.VersionReviewed})
	require.NoError(t, err)

	final, err := manager.GetFinalText(ctx, paragraphs[0].ID, de.ID)
	require.NoError(t, err)
	assert.Equal(t, "Drück den roten Knopf", final.Text)

	progress, err := manager.Progress(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectCompleted, progress.Status)

	_, err = dataEntry.UpdateParagraph(ctx, paragraphs[0].ID, models.UpdateParagraphRequest{OriginalText: "Press the blue button"})
	assert.Equal(t, "ParagraphLocked", CodeOf(err))
}

func TestNotifications(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestClient(t)

	translator, asTranslator := member(t, manager, "Tomas", "tomas@example.com", models.RoleTranslator)

	n, err := manager.CreateNotification(ctx, models.CreateNotificationRequest{UserID: translator.ID, Title: "Hi", Message: "Welcome"})
	require.NoError(t, err)

	unread, err := asTranslator.ListUnread(ctx, translator.ID)
	require.NoError(t, err)
	require.Len(t, unread, 1)

	n, err = asTranslator.MarkRead(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, n.IsRead)

	updated, err := asTranslator.MarkAllRead(ctx, translator.ID)
	require.NoError(t, err)
	assert.Zero(t, updated)

	all, err := asTranslator.ListNotifications(ctx, translator.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
