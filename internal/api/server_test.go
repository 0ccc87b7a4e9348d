package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/translation-workflow/internal/config"
	"github.com/terra-clan/translation-workflow/internal/models"
	"github.com/terra-clan/translation-workflow/internal/notify"
	"github.com/terra-clan/translation-workflow/internal/storage"
	"github.com/terra-clan/translation-workflow/internal/templates"
	"github.com/terra-clan/translation-workflow/internal/workflow"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *apiError       `json:"error"`
}

type testServer struct {
	t      *testing.T
	ts     *httptest.Server
	store  *storage.MemoryStore
	svc    *workflow.Service
	queue  *notify.MemoryQueue
	worker *notify.Worker
	hub    *notify.Hub

	managerToken string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	loader, err := templates.NewDefaultLoader()
	require.NoError(t, err)

	store := storage.NewMemoryStore()
	queue := notify.NewMemoryQueue(64)
	hub := notify.NewHub(0)
	svc := workflow.NewService(store, notify.NewDispatcher(queue, time.Second), loader, workflow.Options{})

	srv := NewServer(config.ServerConfig{}, svc, hub, map[string]HealthChecker{"queue": queue})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	s := &testServer{
		t:      t,
		ts:     ts,
		store:  store,
		svc:    svc,
		queue:  queue,
		worker: notify.NewWorker(queue, store, notify.WorkerOptions{Publisher: hub}),
		hub:    hub,
	}

	manager, err := svc.CreateUser(context.Background(), models.CreateUserRequest{
		Name: "Manager", Email: "manager@example.com", Role: models.RoleManager,
	})
	require.NoError(t, err)
	s.managerToken, err = svc.IssueToken(context.Background(), manager.ID)
	require.NoError(t, err)

	return s
}

func (s *testServer) do(token, method, path string, body interface{}) (int, envelope) {
	s.t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(s.t, err)
	}

	req, err := http.NewRequest(method, s.ts.URL+path, bytes.NewReader(payload))
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(s.t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (s *testServer) decode(env envelope, dst interface{}) {
	s.t.Helper()
	require.True(s.t, env.Success, "unexpected failure: %s", env.Message)
	require.NoError(s.t, json.Unmarshal(env.Data, dst))
}

func (s *testServer) user(name string, role models.Role) (*models.User, string) {
	s.t.Helper()

	status, env := s.do(s.managerToken, http.MethodPost, "/api/v1/Users", models.CreateUserRequest{
		Name: name, Email: strings.ToLower(name) + "@example.com", Role: role,
	})
	require.Equal(s.t, http.StatusCreated, status)
	var u models.User
	s.decode(env, &u)

	status, env = s.do(s.managerToken, http.MethodPost, "/api/v1/Users/"+itoa(u.ID)+"/token", nil)
	require.Equal(s.t, http.StatusCreated, status)
	var tok map[string]string
	s.decode(env, &tok)

	return &u, tok["token"]
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

type seeded struct {
	project    models.Project
	paragraph  models.Paragraph
	french     models.Language
	translator *models.User
	reviewer   *models.User
	supervisor *models.User
	tokens     map[models.Role]string
}

// seed creates languages, a one-paragraph project and the stage users
func (s *testServer) seed() *seeded {
	s.t.Helper()

	out := &seeded{tokens: map[models.Role]string{}}
	_, dataEntryToken := s.user("Dana", models.RoleDataEntry)
	out.translator, out.tokens[models.RoleTranslator] = s.user("Tomas", models.RoleTranslator)
	out.reviewer, out.tokens[models.RoleReviewer] = s.user("Rita", models.RoleReviewer)
	out.supervisor, out.tokens[models.RoleSupervisor] = s.user("Sam", models.RoleSupervisor)
	out.tokens[models.RoleDataEntry] = dataEntryToken

	var english models.Language
	status, env := s.do(dataEntryToken, http.MethodPost, "/api/v1/Languages", models.CreateLanguageRequest{Code: "en", Name: "English"})
	require.Equal(s.t, http.StatusCreated, status)
	s.decode(env, &english)

	status, env = s.do(dataEntryToken, http.MethodPost, "/api/v1/Languages", models.CreateLanguageRequest{Code: "fr", Name: "French"})
	require.Equal(s.t, http.StatusCreated, status)
	s.decode(env, &out.french)

	status, env = s.do(dataEntryToken, http.MethodPost, "/api/v1/Projects", models.CreateProjectRequest{
		Name:              "Guide",
		SourceLanguageID:  english.ID,
		TargetLanguageIDs: []int64{out.french.ID},
	})
	require.Equal(s.t, http.StatusCreated, status)
	s.decode(env, &out.project)

	status, env = s.do(dataEntryToken, http.MethodPost, "/api/v1/Projects/"+itoa(out.project.ID)+"/paragraphs", models.AddParagraphsRequest{
		Paragraphs: []models.ParagraphInput{{OriginalText: "Hello world"}},
	})
	require.Equal(s.t, http.StatusCreated, status)
	var paragraphs []models.Paragraph
	s.decode(env, &paragraphs)
	require.Len(s.t, paragraphs, 1)
	out.paragraph = paragraphs[0]

	return out
}

func (s *testServer) assign(sd *seeded, user *models.User) models.Assignment {
	s.t.Helper()

	status, env := s.do(s.managerToken, http.MethodPost, "/api/v1/Assignments", models.CreateAssignmentRequest{
		ProjectID:  sd.project.ID,
		UserID:     user.ID,
		Role:       user.Role,
		LanguageID: sd.french.ID,
	})
	require.Equal(s.t, http.StatusCreated, status)
	var a models.Assignment
	s.decode(env, &a)
	return a
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do("", http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)

	status, env = s.do("", http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, status)
	var checks map[string]string
	s.decode(env, &checks)
	assert.Equal(t, map[string]string{"store": "ok", "queue": "ok"}, checks)
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do("", http.MethodGet, "/api/v1/Languages", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "MissingToken", env.Message)

	status, env = s.do("tw_unknown", http.MethodGet, "/api/v1/Languages", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "InvalidToken", env.Message)
	assert.Equal(t, workflow.KindAuthorization, env.Error.Kind)

	status, _ = s.do(s.managerToken, http.MethodGet, "/api/v1/Languages", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestRoleGuards(t *testing.T) {
	s := newTestServer(t)
	sd := s.seed()

	// Only managers create assignments
	status, env := s.do(sd.tokens[models.RoleTranslator], http.MethodPost, "/api/v1/Assignments", models.CreateAssignmentRequest{
		ProjectID: sd.project.ID, UserID: sd.translator.ID, Role: models.RoleTranslator, LanguageID: sd.french.ID,
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "RoleDenied", env.Message)

	// Users only read their own assignment list
	status, _ = s.do(sd.tokens[models.RoleTranslator], http.MethodGet, "/api/v1/Assignments/user/"+itoa(sd.reviewer.ID), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(sd.tokens[models.RoleTranslator], http.MethodGet, "/api/v1/Assignments/user/"+itoa(sd.translator.ID), nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(s.managerToken, http.MethodGet, "/api/v1/Assignments/user/"+itoa(sd.reviewer.ID), nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	sd := s.seed()
	s.assign(sd, sd.translator)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		kind   workflow.Kind
		code   string
	}{
		{
			name: "validation", method: http.MethodPost, path: "/api/v1/Assignments",
			body:   models.CreateAssignmentRequest{ProjectID: sd.project.ID, UserID: sd.translator.ID, Role: "Editor", LanguageID: sd.french.ID},
			status: http.StatusBadRequest, kind: workflow.KindValidation, code: "InvalidRole",
		},
		{
			name: "not found", method: http.MethodGet, path: "/api/v1/Assignments/9999",
			status: http.StatusNotFound, kind: workflow.KindNotFound, code: "UnknownAssignment",
		},
		{
			name: "state conflict", method: http.MethodPost, path: "/api/v1/Assignments",
			body:   models.CreateAssignmentRequest{ProjectID: sd.project.ID, UserID: sd.translator.ID, Role: models.RoleTranslator, LanguageID: sd.french.ID},
			status: http.StatusConflict, kind: workflow.KindStateConflict, code: "DuplicateAssignment",
		},
		{
			name: "bad id", method: http.MethodGet, path: "/api/v1/Projects/abc",
			status: http.StatusBadRequest, kind: workflow.KindValidation, code: "InvalidID",
		},
		{
			name: "bad body", method: http.MethodPost, path: "/api/v1/Languages", body: "not an object",
			status: http.StatusBadRequest, kind: workflow.KindValidation, code: "InvalidRequest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := s.do(s.managerToken, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, status)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.kind, env.Error.Kind)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.Equal(t, tt.code, env.Message)
		})
	}
}

func TestInfrastructureErrorIsUnavailable(t *testing.T) {
	s := newTestServer(t)
	sd := s.seed()

	s.store.FailNext(2)
	status, env := s.do(s.managerToken, http.MethodGet, "/api/v1/Projects/"+itoa(sd.project.ID), nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, workflow.KindInfrastructure, env.Error.Kind)
}

func TestWorkflowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	sd := s.seed()

	translatorAssignment := s.assign(sd, sd.translator)
	reviewerAssignment := s.assign(sd, sd.reviewer)
	supervisorAssignment := s.assign(sd, sd.supervisor)

	// Translator drafts and submits
	status, env := s.do(sd.tokens[models.RoleTranslator], http.MethodPost, "/api/v1/Translations", models.SaveDraftRequest{
		AssignmentID: translatorAssignment.ID, ParagraphID: sd.paragraph.ID, Text: "Bonjour",
	})
	require.Equal(t, http.StatusOK, status)
	var tr models.Translation
	s.decode(env, &tr)

	status, env = s.do(sd.tokens[models.RoleTranslator], http.MethodPatch, "/api/v1/Translations/"+itoa(tr.ID)+"/draft", models.UpdateTextRequest{Text: "Bonjour le monde"})
	require.Equal(t, http.StatusOK, status)
	s.decode(env, &tr)
	assert.Equal(t, "Bonjour le monde", tr.Text)

	status, env = s.do(sd.tokens[models.RoleTranslator], http.MethodPatch, "/api/v1/Translations/"+itoa(tr.ID)+"/submit", nil)
	require.Equal(t, http.StatusOK, status)
	s.decode(env, &tr)
	assert.Equal(t, models.TranslationSubmitted, tr.Status)

	// Reviewer sees it pending and reviews it
	status, env = s.do(sd.tokens[models.RoleReviewer], http.MethodGet, "/api/v1/Reviews/pending?assignmentId="+itoa(reviewerAssignment.ID), nil)
	require.Equal(t, http.StatusOK, status)
	var pending []models.Translation
	s.decode(env, &pending)
	require.Len(t, pending, 1)
	assert.Equal(t, tr.ID, pending[0].ID)

	status, env = s.do(sd.tokens[models.RoleReviewer], http.MethodPost, "/api/v1/Reviews", models.CreateReviewRequest{
		TranslationID: tr.ID, AssignmentID: reviewerAssignment.ID, ReviewedText: "Bonjour tout le monde", QualityScore: 8,
	})
	require.Equal(t, http.StatusCreated, status)
	var review models.Review
	s.decode(env, &review)

	// Only reviewers submit reviews
	status, _ = s.do(sd.tokens[models.RoleTranslator], http.MethodPatch, "/api/v1/Reviews/"+itoa(review.ID)+"/submit", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = s.do(sd.tokens[models.RoleReviewer], http.MethodPatch, "/api/v1/Reviews/"+itoa(review.ID)+"/submit", nil)
	require.Equal(t, http.StatusOK, status)
	s.decode(env, &review)
	assert.Equal(t, models.ReviewCompleted, review.Status)

	// Supervisor approves the reviewed version
	status, env = s.do(sd.tokens[models.RoleSupervisor], http.MethodPatch, "/api/v1/Approvals/"+itoa(review.ID)+"/approve", models.DecisionRequest{
		AssignmentID: supervisorAssignment.ID, SelectedVersion: models.VersionReviewed,
	})
	require.Equal(t, http.StatusOK, status)
	var approval models.Approval
	s.decode(env, &approval)
	assert.Equal(t, "Bonjour tout le monde", approval.FinalText)

	status, env = s.do(sd.tokens[models.RoleSupervisor], http.MethodPatch, "/api/v1/Approvals/"+itoa(review.ID)+"/approve", models.DecisionRequest{
		AssignmentID: supervisorAssignment.ID, SelectedVersion: models.VersionReviewed,
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "AlreadyApproved", env.Message)

	status, env = s.do(sd.tokens[models.RoleSupervisor], http.MethodGet, "/api/v1/Paragraphs/"+itoa(sd.paragraph.ID)+"/final/"+itoa(sd.french.ID), nil)
	require.Equal(t, http.StatusOK, status)
	var final models.FinalTranslation
	s.decode(env, &final)
	assert.Equal(t, "Bonjour tout le monde", final.Text)

	status, env = s.do(s.managerToken, http.MethodGet, "/api/v1/Projects/"+itoa(sd.project.ID)+"/progress", nil)
	require.Equal(t, http.StatusOK, status)
	var progress models.ProjectProgress
	s.decode(env, &progress)
	assert.Equal(t, models.ProjectCompleted, progress.Status)
	assert.InDelta(t, 1.0, progress.CompletedFraction, 1e-9)
}

func TestNotificationEndpoints(t *testing.T) {
	s := newTestServer(t)
	sd := s.seed()
	translatorToken := sd.tokens[models.RoleTranslator]

	status, env := s.do(s.managerToken, http.MethodPost, "/api/v1/Notifications", models.CreateNotificationRequest{
		UserID: sd.translator.ID, Title: "Welcome", Message: "Glad to have you",
	})
	require.Equal(t, http.StatusCreated, status)
	var n models.Notification
	s.decode(env, &n)

	userPath := "/api/v1/Notifications/user/" + itoa(sd.translator.ID)

	status, env = s.do(translatorToken, http.MethodGet, userPath+"/unread", nil)
	require.Equal(t, http.StatusOK, status)
	var unread []models.Notification
	s.decode(env, &unread)
	require.Len(t, unread, 1)

	// The reviewer cannot read or mark someone else's notifications
	status, _ = s.do(sd.tokens[models.RoleReviewer], http.MethodGet, userPath+"/unread", nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, env = s.do(sd.tokens[models.RoleReviewer], http.MethodPatch, "/api/v1/Notifications/"+itoa(n.ID)+"/read", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "NotRecipient", env.Message)

	status, env = s.do(translatorToken, http.MethodPatch, "/api/v1/Notifications/"+itoa(n.ID)+"/read", nil)
	require.Equal(t, http.StatusOK, status)
	s.decode(env, &n)
	assert.True(t, n.IsRead)

	status, env = s.do(translatorToken, http.MethodPatch, userPath+"/read-all", nil)
	require.Equal(t, http.StatusOK, status)
	var updated map[string]int64
	s.decode(env, &updated)
	assert.Zero(t, updated["updated"])

	status, env = s.do(translatorToken, http.MethodGet, userPath, nil)
	require.Equal(t, http.StatusOK, status)
	var all []models.Notification
	s.decode(env, &all)
	assert.Len(t, all, 1)
}

func TestNotificationStream(t *testing.T) {
	s := newTestServer(t)
	sd := s.seed()

	url := "ws" + strings.TrimPrefix(s.ts.URL, "http") + "/api/v1/Notifications/stream?token=" + sd.tokens[models.RoleTranslator]
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg StreamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "connected", msg.Type)

	s.assign(sd, sd.translator)

	processed, err := s.worker.ProcessNext(context.Background())
	require.NoError(t, err)
	require.True(t, processed)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "notification", msg.Type)
	require.NotNil(t, msg.Notification)
	assert.Equal(t, sd.translator.ID, msg.Notification.UserID)
	assert.NotZero(t, msg.Notification.ID)
}
