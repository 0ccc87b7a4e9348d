package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/translation-workflow/internal/models"
	"github.com/terra-clan/translation-workflow/internal/storage"
)

func TestRetriesUnavailableStoreOnce(t *testing.T) {
	f := newFixture(t)

	f.store.FailNext(1)
	tr := f.submitted("Bonjour")
	assert.Equal(t, models.TranslationSubmitted, tr.Status)
}

func TestSurfacesInfrastructureErrorAfterRetries(t *testing.T) {
	f := newFixture(t)

	f.store.FailNext(2)
	_, err := f.svc.SaveDraft(f.ctx, models.SaveDraftRequest{
		AssignmentID: f.translatorAssignment.ID,
		ParagraphID:  f.paragraph.ID,
		Text:         "Bonjour",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInfrastructure)
	assert.Equal(t, KindInfrastructure, KindOf(err))

	// the store is healthy again
	_, err = f.svc.SaveDraft(f.ctx, models.SaveDraftRequest{
		AssignmentID: f.translatorAssignment.ID,
		ParagraphID:  f.paragraph.ID,
		Text:         "Bonjour",
	})
	assert.NoError(t, err)
}

func TestBusinessErrorsAreNotRetried(t *testing.T) {
	f := newFixture(t)

	// one failure is absorbed by the retry, the duplicate surfaces untouched
	f.store.FailNext(1)
	_, err := f.svc.CreateAssignment(f.ctx, models.CreateAssignmentRequest{
		ProjectID:  f.project.ID,
		UserID:     f.translator.ID,
		Role:       models.RoleTranslator,
		LanguageID: f.french.ID,
	})
	assert.ErrorIs(t, err, ErrDuplicateAssignment)
	assert.False(t, errors.Is(err, ErrInfrastructure))
}

func TestNotificationsOnlyAfterCommit(t *testing.T) {
	f := newFixture(t)
	review := f.completedReview(f.submitted("Bonjour"), "Bonjour!", 8)

	racing := NewService(staleReviewStore{Store: f.store}, f.notes, f.svc.templates, Options{})
	_, err := racing.Approve(f.ctx, review.ID, f.decision(models.VersionReviewed))
	assert.ErrorIs(t, err, ErrConcurrentModification)
	assert.Empty(t, f.notes.take())

	got, err := f.svc.GetReview(f.ctx, review.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewCompleted, got.Status)
}

func TestErrorCodes(t *testing.T) {
	err := errors.Join(errors.New("context"), ErrWrongReviewer)
	assert.Equal(t, KindAuthorization, KindOf(err))
	assert.Equal(t, "WrongReviewer", CodeOf(err))

	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, "", CodeOf(nil))
}

// staleReviewStore makes review writes lose an optimistic race
type staleReviewStore struct {
	storage.Store
}

func (s staleReviewStore) WithTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx storage.Tx) error {
		return fn(staleReviewTx{Tx: tx})
	})
}

type staleReviewTx struct {
	storage.Tx
}

func (t staleReviewTx) GetReview(ctx context.Context, id int64) (*models.Review, error) {
	r, err := t.Tx.GetReview(ctx, id)
	if err == nil {
		r.Version--
	}
	return r, err
}
