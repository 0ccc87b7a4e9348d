package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/terra-clan/translation-workflow/internal/models"
	"github.com/terra-clan/translation-workflow/internal/storage"
	"github.com/terra-clan/translation-workflow/internal/templates"
)

type recordingNotifier struct {
	mu  sync.Mutex
	got []*models.Notification
}

func (r *recordingNotifier) Dispatch(ctx context.Context, notifications ...*models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, notifications...)
}

func (r *recordingNotifier) take() []*models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	got := r.got
	r.got = nil
	return got
}

func recipients(notifications []*models.Notification) []int64 {
	ids := make([]int64, 0, len(notifications))
	for _, n := range notifications {
		ids = append(ids, n.UserID)
	}
	return ids
}

// fixture is one project targeting French with a single paragraph and a
// translator, reviewer and supervisor assigned to it.
type fixture struct {
	t     *testing.T
	ctx   context.Context
	now   time.Time
	store *storage.MemoryStore
	notes *recordingNotifier
	svc   *Service

	creator    *models.User
	translator *models.User
	reviewer   *models.User
	supervisor *models.User

	english *models.Language
	french  *models.Language

	project   *models.Project
	paragraph *models.Paragraph

	translatorAssignment *models.Assignment
	reviewerAssignment   *models.Assignment
	supervisorAssignment *models.Assignment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	loader, err := templates.NewDefaultLoader()
	require.NoError(t, err)

	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		now:   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		store: storage.NewMemoryStore(),
		notes: &recordingNotifier{},
	}
	f.svc = NewService(f.store, f.notes, loader, Options{Now: func() time.Time { return f.now }})

	f.creator = f.user("Dana", "dana@example.com", models.RoleDataEntry)
	f.translator = f.user("Tarek", "tarek@example.com", models.RoleTranslator)
	f.reviewer = f.user("Rana", "rana@example.com", models.RoleReviewer)
	f.supervisor = f.user("Sami", "sami@example.com", models.RoleSupervisor)

	f.english = f.language("en", "English")
	f.french = f.language("fr", "French")

	f.project, err = f.svc.CreateProject(f.ctx, f.creator.ID, models.CreateProjectRequest{
		Name:              "Guide",
		SourceLanguageID:  f.english.ID,
		TargetLanguageIDs: []int64{f.french.ID},
	})
	require.NoError(t, err)

	paragraphs, err := f.svc.AddParagraphs(f.ctx, f.project.ID, models.AddParagraphsRequest{
		Paragraphs: []models.ParagraphInput{{OriginalText: "Hello"}},
	})
	require.NoError(t, err)
	f.paragraph = paragraphs[0]

	f.translatorAssignment = f.assign(f.translator, models.RoleTranslator, f.french)
	f.reviewerAssignment = f.assign(f.reviewer, models.RoleReviewer, f.french)
	f.supervisorAssignment = f.assign(f.supervisor, models.RoleSupervisor, f.french)

	f.notes.take()
	return f
}

func (f *fixture) user(name, email string, role models.Role) *models.User {
	f.t.Helper()
	u, err := f.svc.CreateUser(f.ctx, models.CreateUserRequest{Name: name, Email: email, Role: role})
	require.NoError(f.t, err)
	return u
}

func (f *fixture) language(code, name string) *models.Language {
	f.t.Helper()
	l, err := f.svc.CreateLanguage(f.ctx, models.CreateLanguageRequest{Code: code, Name: name})
	require.NoError(f.t, err)
	return l
}

func (f *fixture) assign(u *models.User, role models.Role, l *models.Language) *models.Assignment {
	f.t.Helper()
	a, err := f.svc.CreateAssignment(f.ctx, models.CreateAssignmentRequest{
		ProjectID:  f.project.ID,
		UserID:     u.ID,
		Role:       role,
		LanguageID: l.ID,
	})
	require.NoError(f.t, err)
	return a
}

// submitted drafts and submits a translation of the fixture paragraph
func (f *fixture) submitted(text string) *models.Translation {
	f.t.Helper()
	tr, err := f.svc.SaveDraft(f.ctx, models.SaveDraftRequest{
		AssignmentID: f.translatorAssignment.ID,
		ParagraphID:  f.paragraph.ID,
		Text:         text,
	})
	require.NoError(f.t, err)

	tr, err = f.svc.Submit(f.ctx, tr.ID)
	require.NoError(f.t, err)
	return tr
}

// completedReview creates and submits a review of tr
func (f *fixture) completedReview(tr *models.Translation, text string, score int) *models.Review {
	f.t.Helper()
	r, err := f.svc.CreateReview(f.ctx, models.CreateReviewRequest{
		TranslationID: tr.ID,
		AssignmentID:  f.reviewerAssignment.ID,
		ReviewedText:  text,
		QualityScore:  score,
	})
	require.NoError(f.t, err)

	r, err = f.svc.SubmitReview(f.ctx, r.ID)
	require.NoError(f.t, err)
	return r
}

func (f *fixture) decision(version models.SelectedVersion) models.DecisionRequest {
	return models.DecisionRequest{
		AssignmentID:    f.supervisorAssignment.ID,
		SelectedVersion: version,
	}
}

// staleStore hands out translations with an outdated version, as if another
// writer committed between read and write.
type staleStore struct {
	storage.Store
}

func (s staleStore) WithTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx storage.Tx) error {
		return fn(staleTx{Tx: tx})
	})
}

type staleTx struct {
	storage.Tx
}

func (t staleTx) GetTranslation(ctx context.Context, id int64) (*models.Translation, error) {
	tr, err := t.Tx.GetTranslation(ctx, id)
	if err == nil {
		tr.Version--
	}
	return tr, err
}
