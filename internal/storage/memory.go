package storage

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/terra-clan/translation-workflow/internal/models"
)

// MemoryStore implements Store in process memory. Transactions are serialized
// and run against a copy of the state that replaces the original on commit.
// It backs the tests and single-process development runs.
type MemoryStore struct {
	mu       sync.Mutex
	state    *memState
	failures int
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

// FailNext makes the next n transactions fail with ErrUnavailable before fn runs
func (m *MemoryStore) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
}

// WithTx runs fn against a private copy of the state
func (m *MemoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if m.failures > 0 {
		m.failures--
		return fmt.Errorf("%w: injected failure", ErrUnavailable)
	}

	work := m.state.clone()
	if err := fn(&memTx{st: work}); err != nil {
		return err
	}

	m.state = work
	return nil
}

// Ping always succeeds
func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}

type finalKey struct {
	paragraphID int64
	languageID  int64
}

type memState struct {
	seq           map[string]int64
	users         map[int64]models.User
	tokens        map[string]int64
	languages     map[int64]models.Language
	projects      map[int64]models.Project
	paragraphs    map[int64]models.Paragraph
	assignments   map[int64]models.Assignment
	translations  map[int64]models.Translation
	reviews       map[int64]models.Review
	approvals     map[int64]models.Approval
	finals        map[finalKey]models.FinalTranslation
	notifications map[int64]models.Notification
}

func newMemState() *memState {
	return &memState{
		seq:           make(map[string]int64),
		users:         make(map[int64]models.User),
		tokens:        make(map[string]int64),
		languages:     make(map[int64]models.Language),
		projects:      make(map[int64]models.Project),
		paragraphs:    make(map[int64]models.Paragraph),
		assignments:   make(map[int64]models.Assignment),
		translations:  make(map[int64]models.Translation),
		reviews:       make(map[int64]models.Review),
		approvals:     make(map[int64]models.Approval),
		finals:        make(map[finalKey]models.FinalTranslation),
		notifications: make(map[int64]models.Notification),
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memState) clone() *memState {
	return &memState{
		seq:           copyMap(s.seq),
		users:         copyMap(s.users),
		tokens:        copyMap(s.tokens),
		languages:     copyMap(s.languages),
		projects:      copyMap(s.projects),
		paragraphs:    copyMap(s.paragraphs),
		assignments:   copyMap(s.assignments),
		translations:  copyMap(s.translations),
		reviews:       copyMap(s.reviews),
		approvals:     copyMap(s.approvals),
		finals:        copyMap(s.finals),
		notifications: copyMap(s.notifications),
	}
}

func (s *memState) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// memTx implements Tx over a memState
type memTx struct {
	st *memState
}

// Users & languages

func (t *memTx) CreateUser(ctx context.Context, u *models.User) error {
	for _, existing := range t.st.users {
		if u.Email != "" && existing.Email == u.Email {
			return fmt.Errorf("%w: user email %q", ErrDuplicate, u.Email)
		}
	}
	u.ID = t.st.next("users")
	t.st.users[u.ID] = *u
	return nil
}

func (t *memTx) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (t *memTx) GetUserByToken(ctx context.Context, token string) (*models.User, error) {
	id, ok := t.st.tokens[token]
	if !ok {
		return nil, ErrNotFound
	}
	return t.GetUser(ctx, id)
}

func (t *memTx) CreateAccessToken(ctx context.Context, userID int64, token string) error {
	if _, ok := t.st.users[userID]; !ok {
		return ErrNotFound
	}
	if _, ok := t.st.tokens[token]; ok {
		return fmt.Errorf("%w: access token", ErrDuplicate)
	}
	t.st.tokens[token] = userID
	return nil
}

func (t *memTx) CreateLanguage(ctx context.Context, l *models.Language) error {
	for _, existing := range t.st.languages {
		if existing.Code == l.Code {
			return fmt.Errorf("%w: language code %q", ErrDuplicate, l.Code)
		}
	}
	l.ID = t.st.next("languages")
	t.st.languages[l.ID] = *l
	return nil
}

func (t *memTx) GetLanguage(ctx context.Context, id int64) (*models.Language, error) {
	l, ok := t.st.languages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

func (t *memTx) ListLanguages(ctx context.Context) ([]*models.Language, error) {
	out := make([]*models.Language, 0, len(t.st.languages))
	for _, l := range t.st.languages {
		l := l
		out = append(out, &l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// Projects

func cloneProject(p models.Project) *models.Project {
	p.TargetLanguageIDs = slices.Clone(p.TargetLanguageIDs)
	return &p
}

func (t *memTx) CreateProject(ctx context.Context, p *models.Project) error {
	p.ID = t.st.next("projects")
	p.Version = 1
	t.st.projects[p.ID] = *cloneProject(*p)
	return nil
}

func (t *memTx) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	p, ok := t.st.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneProject(p), nil
}

// LockProject is GetProject; memory transactions are already serialized
func (t *memTx) LockProject(ctx context.Context, id int64) (*models.Project, error) {
	return t.GetProject(ctx, id)
}

func (t *memTx) UpdateProject(ctx context.Context, p *models.Project) error {
	stored, ok := t.st.projects[p.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != p.Version {
		return fmt.Errorf("%w: project %d", ErrConflict, p.ID)
	}
	p.Version++
	t.st.projects[p.ID] = *cloneProject(*p)
	return nil
}

func (t *memTx) ListProjects(ctx context.Context, filters models.ProjectFilters) ([]*models.Project, error) {
	var out []*models.Project
	for _, p := range t.st.projects {
		if filters.CreatorID != 0 && p.CreatorID != filters.CreatorID {
			continue
		}
		if filters.Status != "" && p.Status != filters.Status {
			continue
		}
		out = append(out, cloneProject(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return paginate(out, filters.Limit, filters.Offset), nil
}

// Paragraphs

func (t *memTx) checkPosition(p *models.Paragraph) error {
	for _, existing := range t.st.paragraphs {
		if existing.ID != p.ID && existing.ProjectID == p.ProjectID && existing.Position == p.Position {
			return fmt.Errorf("%w: paragraph position %d", ErrDuplicate, p.Position)
		}
	}
	return nil
}

func (t *memTx) CreateParagraph(ctx context.Context, p *models.Paragraph) error {
	if _, ok := t.st.projects[p.ProjectID]; !ok {
		return ErrNotFound
	}
	if err := t.checkPosition(p); err != nil {
		return err
	}
	p.ID = t.st.next("paragraphs")
	t.st.paragraphs[p.ID] = *p
	return nil
}

func (t *memTx) GetParagraph(ctx context.Context, id int64) (*models.Paragraph, error) {
	p, ok := t.st.paragraphs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (t *memTx) UpdateParagraph(ctx context.Context, p *models.Paragraph) error {
	if _, ok := t.st.paragraphs[p.ID]; !ok {
		return ErrNotFound
	}
	if err := t.checkPosition(p); err != nil {
		return err
	}
	t.st.paragraphs[p.ID] = *p
	return nil
}

func (t *memTx) ListParagraphs(ctx context.Context, projectID int64) ([]*models.Paragraph, error) {
	var out []*models.Paragraph
	for _, p := range t.st.paragraphs {
		if p.ProjectID == projectID {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// Assignments

func (t *memTx) checkAssignment(a *models.Assignment) error {
	if a.Status == models.AssignmentCancelled {
		return nil
	}
	for _, existing := range t.st.assignments {
		if existing.ID == a.ID || existing.Status == models.AssignmentCancelled {
			continue
		}
		if existing.ProjectID == a.ProjectID && existing.LanguageID == a.LanguageID &&
			existing.Role == a.Role && existing.UserID == a.UserID {
			return fmt.Errorf("%w: assignment %d already covers this grant", ErrDuplicate, existing.ID)
		}
	}
	return nil
}

func (t *memTx) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	if err := t.checkAssignment(a); err != nil {
		return err
	}
	a.ID = t.st.next("assignments")
	a.Version = 1
	t.st.assignments[a.ID] = *a
	return nil
}

func (t *memTx) GetAssignment(ctx context.Context, id int64) (*models.Assignment, error) {
	a, ok := t.st.assignments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (t *memTx) LockAssignment(ctx context.Context, id int64) (*models.Assignment, error) {
	return t.GetAssignment(ctx, id)
}

func (t *memTx) UpdateAssignment(ctx context.Context, a *models.Assignment) error {
	stored, ok := t.st.assignments[a.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != a.Version {
		return fmt.Errorf("%w: assignment %d", ErrConflict, a.ID)
	}
	if err := t.checkAssignment(a); err != nil {
		return err
	}
	a.Version++
	t.st.assignments[a.ID] = *a
	return nil
}

func (t *memTx) ListAssignments(ctx context.Context, filters models.AssignmentFilters) ([]*models.Assignment, error) {
	var out []*models.Assignment
	for _, a := range t.st.assignments {
		if filters.ProjectID != 0 && a.ProjectID != filters.ProjectID {
			continue
		}
		if filters.UserID != 0 && a.UserID != filters.UserID {
			continue
		}
		if filters.LanguageID != 0 && a.LanguageID != filters.LanguageID {
			continue
		}
		if filters.Role != "" && a.Role != filters.Role {
			continue
		}
		if len(filters.Statuses) > 0 && !slices.Contains(filters.Statuses, a.Status) {
			continue
		}
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) ListOverdueAssignments(ctx context.Context, now time.Time) ([]*models.Assignment, error) {
	var out []*models.Assignment
	for _, a := range t.st.assignments {
		if a.OverdueNotifiedAt != nil || !a.Overdue(now) {
			continue
		}
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Deadline.Before(*out[j].Deadline) })
	return out, nil
}

// Translations

func (t *memTx) checkTranslation(tr *models.Translation) error {
	if tr.Status == models.TranslationRejected {
		return nil
	}
	for _, existing := range t.st.translations {
		if existing.ID == tr.ID || existing.Status == models.TranslationRejected {
			continue
		}
		if existing.AssignmentID == tr.AssignmentID && existing.ParagraphID == tr.ParagraphID {
			return fmt.Errorf("%w: live translation %d exists", ErrDuplicate, existing.ID)
		}
	}
	return nil
}

func (t *memTx) CreateTranslation(ctx context.Context, tr *models.Translation) error {
	if err := t.checkTranslation(tr); err != nil {
		return err
	}
	tr.ID = t.st.next("translations")
	tr.Version = 1
	t.st.translations[tr.ID] = *tr
	return nil
}

func (t *memTx) GetTranslation(ctx context.Context, id int64) (*models.Translation, error) {
	tr, ok := t.st.translations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &tr, nil
}

func (t *memTx) UpdateTranslation(ctx context.Context, tr *models.Translation) error {
	stored, ok := t.st.translations[tr.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != tr.Version {
		return fmt.Errorf("%w: translation %d", ErrConflict, tr.ID)
	}
	if err := t.checkTranslation(tr); err != nil {
		return err
	}
	tr.Version++
	t.st.translations[tr.ID] = *tr
	return nil
}

func (t *memTx) ListTranslations(ctx context.Context, filters models.TranslationFilters) ([]*models.Translation, error) {
	var out []*models.Translation
	for _, tr := range t.st.translations {
		if filters.AssignmentID != 0 && tr.AssignmentID != filters.AssignmentID {
			continue
		}
		if filters.ParagraphID != 0 && tr.ParagraphID != filters.ParagraphID {
			continue
		}
		if filters.ProjectID != 0 || filters.LanguageID != 0 {
			a := t.st.assignments[tr.AssignmentID]
			if filters.ProjectID != 0 && a.ProjectID != filters.ProjectID {
				continue
			}
			if filters.LanguageID != 0 && a.LanguageID != filters.LanguageID {
				continue
			}
		}
		if len(filters.Statuses) > 0 && !slices.Contains(filters.Statuses, tr.Status) {
			continue
		}
		tr := tr
		out = append(out, &tr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Reviews

func (t *memTx) checkReview(r *models.Review) error {
	if !slices.Contains(models.OpenReviewStatuses, r.Status) {
		return nil
	}
	for _, existing := range t.st.reviews {
		if existing.ID == r.ID || existing.TranslationID != r.TranslationID {
			continue
		}
		if slices.Contains(models.OpenReviewStatuses, existing.Status) {
			return fmt.Errorf("%w: open review %d exists", ErrDuplicate, existing.ID)
		}
	}
	return nil
}

func (t *memTx) CreateReview(ctx context.Context, r *models.Review) error {
	if err := t.checkReview(r); err != nil {
		return err
	}
	r.ID = t.st.next("reviews")
	r.Version = 1
	t.st.reviews[r.ID] = *r
	return nil
}

func (t *memTx) GetReview(ctx context.Context, id int64) (*models.Review, error) {
	r, ok := t.st.reviews[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (t *memTx) UpdateReview(ctx context.Context, r *models.Review) error {
	stored, ok := t.st.reviews[r.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != r.Version {
		return fmt.Errorf("%w: review %d", ErrConflict, r.ID)
	}
	if err := t.checkReview(r); err != nil {
		return err
	}
	r.Version++
	t.st.reviews[r.ID] = *r
	return nil
}

func (t *memTx) ListReviews(ctx context.Context, filters models.ReviewFilters) ([]*models.Review, error) {
	var out []*models.Review
	for _, r := range t.st.reviews {
		if filters.TranslationID != 0 && r.TranslationID != filters.TranslationID {
			continue
		}
		if filters.AssignmentID != 0 && r.AssignmentID != filters.AssignmentID {
			continue
		}
		if filters.ReviewerUserID != 0 && t.st.assignments[r.AssignmentID].UserID != filters.ReviewerUserID {
			continue
		}
		if len(filters.Statuses) > 0 && !slices.Contains(filters.Statuses, r.Status) {
			continue
		}
		r := r
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Approvals

func (t *memTx) CreateApproval(ctx context.Context, a *models.Approval) error {
	for _, existing := range t.st.approvals {
		if existing.ReviewID == a.ReviewID {
			return fmt.Errorf("%w: review %d already has approval %d", ErrDuplicate, a.ReviewID, existing.ID)
		}
	}
	a.ID = t.st.next("approvals")
	t.st.approvals[a.ID] = *a
	return nil
}

func (t *memTx) GetApprovalByReview(ctx context.Context, reviewID int64) (*models.Approval, error) {
	for _, a := range t.st.approvals {
		if a.ReviewID == reviewID {
			a := a
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) UpsertFinalTranslation(ctx context.Context, f *models.FinalTranslation) error {
	t.st.finals[finalKey{f.ParagraphID, f.LanguageID}] = *f
	return nil
}

func (t *memTx) GetFinalTranslation(ctx context.Context, paragraphID, languageID int64) (*models.FinalTranslation, error) {
	f, ok := t.st.finals[finalKey{paragraphID, languageID}]
	if !ok {
		return nil, ErrNotFound
	}
	return &f, nil
}

// Notifications

func (t *memTx) CreateNotification(ctx context.Context, n *models.Notification) error {
	if _, ok := t.st.users[n.UserID]; !ok {
		return ErrNotFound
	}
	n.ID = t.st.next("notifications")
	t.st.notifications[n.ID] = *n
	return nil
}

func (t *memTx) GetNotification(ctx context.Context, id int64) (*models.Notification, error) {
	n, ok := t.st.notifications[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &n, nil
}

func (t *memTx) ListNotifications(ctx context.Context, filters models.NotificationFilters) ([]*models.Notification, error) {
	var out []*models.Notification
	for _, n := range t.st.notifications {
		if filters.UserID != 0 && n.UserID != filters.UserID {
			continue
		}
		if filters.UnreadOnly && n.IsRead {
			continue
		}
		n := n
		out = append(out, &n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return paginate(out, filters.Limit, filters.Offset), nil
}

func (t *memTx) MarkNotificationRead(ctx context.Context, id int64) error {
	n, ok := t.st.notifications[id]
	if !ok {
		return ErrNotFound
	}
	n.IsRead = true
	t.st.notifications[id] = n
	return nil
}

func (t *memTx) MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error) {
	var updated int64
	for id, n := range t.st.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			t.st.notifications[id] = n
			updated++
		}
	}
	return updated, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
