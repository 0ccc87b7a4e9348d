// Package client is a Go SDK for the translation workflow API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/terra-clan/translation-workflow/internal/models"
)

// Client is a Go SDK for the translation workflow API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new client authenticating with a bearer token
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithToken returns a copy of the client using another bearer token
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// APIError is a failure reported by the API
type APIError struct {
	StatusCode int
	Kind       string
	Code       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s (%s)", e.StatusCode, e.Code, e.Kind)
}

// CodeOf returns the workflow error code carried by err, or "" for other errors
func CodeOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Kind string `json:"kind"`
		Code string `json:"code"`
	} `json:"error"`
}

// Directory

// CreateLanguage registers a language
func (c *Client) CreateLanguage(ctx context.Context, req models.CreateLanguageRequest) (*models.Language, error) {
	return do[*models.Language](ctx, c, http.MethodPost, "/api/v1/Languages", req)
}

// ListLanguages lists all languages
func (c *Client) ListLanguages(ctx context.Context) ([]*models.Language, error) {
	return do[[]*models.Language](ctx, c, http.MethodGet, "/api/v1/Languages", nil)
}

// CreateUser registers a user
func (c *Client) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	return do[*models.User](ctx, c, http.MethodPost, "/api/v1/Users", req)
}

// GetUser retrieves a user by ID
func (c *Client) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return do[*models.User](ctx, c, http.MethodGet, path("Users", id), nil)
}

// IssueToken creates a bearer token for a user
func (c *Client) IssueToken(ctx context.Context, userID int64) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	err := c.call(ctx, http.MethodPost, path("Users", userID)+"/token", nil, &out)
	return out.Token, err
}

// Projects

// CreateProject creates a project owned by the caller
func (c *Client) CreateProject(ctx context.Context, req models.CreateProjectRequest) (*models.Project, error) {
	return do[*models.Project](ctx, c, http.MethodPost, "/api/v1/Projects", req)
}

// GetProject retrieves a project by ID
func (c *Client) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	return do[*models.Project](ctx, c, http.MethodGet, path("Projects", id), nil)
}

// ListProjects lists projects, optionally by status
func (c *Client) ListProjects(ctx context.Context, status models.ProjectStatus) ([]*models.Project, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}

	return do[[]*models.Project](ctx, c, http.MethodGet, "/api/v1/Projects?"+q.Encode(), nil)
}

// CancelProject cancels a project
func (c *Client) CancelProject(ctx context.Context, id int64) (*models.Project, error) {
	return do[*models.Project](ctx, c, http.MethodPatch, path("Projects", id)+"/cancel", nil)
}

// AddParagraphs appends paragraphs to a project
func (c *Client) AddParagraphs(ctx context.Context, projectID int64, req models.AddParagraphsRequest) ([]*models.Paragraph, error) {
	return do[[]*models.Paragraph](ctx, c, http.MethodPost, path("Projects", projectID)+"/paragraphs", req)
}

// ListParagraphs lists the paragraphs of a project in position order
func (c *Client) ListParagraphs(ctx context.Context, projectID int64) ([]*models.Paragraph, error) {
	return do[[]*models.Paragraph](ctx, c, http.MethodGet, path("Projects", projectID)+"/paragraphs", nil)
}

// UpdateParagraph edits a paragraph that has no translations yet
func (c *Client) UpdateParagraph(ctx context.Context, id int64, req models.UpdateParagraphRequest) (*models.Paragraph, error) {
	return do[*models.Paragraph](ctx, c, http.MethodPut, path("Paragraphs", id), req)
}

// Progress retrieves the progress read-model of a project
func (c *Client) Progress(ctx context.Context, projectID int64) (*models.ProjectProgress, error) {
	return do[*models.ProjectProgress](ctx, c, http.MethodGet, path("Projects", projectID)+"/progress", nil)
}

// GetFinalText retrieves the approved text of a paragraph in a language
func (c *Client) GetFinalText(ctx context.Context, paragraphID, languageID int64) (*models.FinalTranslation, error) {
	p := fmt.Sprintf("%s/final/%d", path("Paragraphs", paragraphID), languageID)
	return do[*models.FinalTranslation](ctx, c, http.MethodGet, p, nil)
}

// Assignments

// CreateAssignment assigns a user to a project stage
func (c *Client) CreateAssignment(ctx context.Context, req models.CreateAssignmentRequest) (*models.Assignment, error) {
	return do[*models.Assignment](ctx, c, http.MethodPost, "/api/v1/Assignments", req)
}

// GetAssignment retrieves an assignment by ID
func (c *Client) GetAssignment(ctx context.Context, id int64) (*models.Assignment, error) {
	return do[*models.Assignment](ctx, c, http.MethodGet, path("Assignments", id), nil)
}

// SetAssignmentStatus moves an assignment to status
func (c *Client) SetAssignmentStatus(ctx context.Context, id int64, status models.AssignmentStatus) (*models.Assignment, error) {
	p := fmt.Sprintf("%s/status/%s", path("Assignments", id), url.PathEscape(string(status)))
	return do[*models.Assignment](ctx, c, http.MethodPatch, p, nil)
}

// CancelAssignment cancels an assignment
func (c *Client) CancelAssignment(ctx context.Context, id int64) (*models.Assignment, error) {
	return c.SetAssignmentStatus(ctx, id, models.AssignmentCancelled)
}

// ListAssignmentsByUser lists the assignments of a user
func (c *Client) ListAssignmentsByUser(ctx context.Context, userID int64) ([]*models.Assignment, error) {
	return do[[]*models.Assignment](ctx, c, http.MethodGet, path("Assignments/user", userID), nil)
}

// ListAssignmentsByProject lists the assignments of a project
func (c *Client) ListAssignmentsByProject(ctx context.Context, projectID int64) ([]*models.Assignment, error) {
	return do[[]*models.Assignment](ctx, c, http.MethodGet, path("Assignments/project", projectID), nil)
}

// Translations

// SaveDraft creates or overwrites the draft of a paragraph
func (c *Client) SaveDraft(ctx context.Context, req models.SaveDraftRequest) (*models.Translation, error) {
	return do[*models.Translation](ctx, c, http.MethodPost, "/api/v1/Translations", req)
}

// UpdateDraft replaces the text of a draft
func (c *Client) UpdateDraft(ctx context.Context, id int64, text string) (*models.Translation, error) {
	return do[*models.Translation](ctx, c, http.MethodPut, path("Translations", id), models.UpdateTextRequest{Text: text})
}

// SubmitTranslation submits a draft for review
func (c *Client) SubmitTranslation(ctx context.Context, id int64) (*models.Translation, error) {
	return do[*models.Translation](ctx, c, http.MethodPatch, path("Translations", id)+"/submit", nil)
}

// GetTranslation retrieves a translation by ID
func (c *Client) GetTranslation(ctx context.Context, id int64) (*models.Translation, error) {
	return do[*models.Translation](ctx, c, http.MethodGet, path("Translations", id), nil)
}

// ListTranslationsByAssignment lists the translations of a translator assignment
func (c *Client) ListTranslationsByAssignment(ctx context.Context, assignmentID int64) ([]*models.Translation, error) {
	return do[[]*models.Translation](ctx, c, http.MethodGet, path("Translations/assignment", assignmentID), nil)
}

// Reviews

// CreateReview starts a review of a submitted translation
func (c *Client) CreateReview(ctx context.Context, req models.CreateReviewRequest) (*models.Review, error) {
	return do[*models.Review](ctx, c, http.MethodPost, "/api/v1/Reviews", req)
}

// UpdateReview edits an in-progress review
func (c *Client) UpdateReview(ctx context.Context, id int64, req models.UpdateReviewRequest) (*models.Review, error) {
	return do[*models.Review](ctx, c, http.MethodPut, path("Reviews", id), req)
}

// SubmitReview completes a review
func (c *Client) SubmitReview(ctx context.Context, id int64) (*models.Review, error) {
	return do[*models.Review](ctx, c, http.MethodPatch, path("Reviews", id)+"/submit", nil)
}

// GetReview retrieves a review by ID
func (c *Client) GetReview(ctx context.Context, id int64) (*models.Review, error) {
	return do[*models.Review](ctx, c, http.MethodGet, path("Reviews", id), nil)
}

// PendingTranslations lists submitted translations awaiting review. A zero
// assignmentID lists them across all reviewer assignments.
func (c *Client) PendingTranslations(ctx context.Context, assignmentID int64) ([]*models.Translation, error) {
	p := "/api/v1/Reviews/pending"
	if assignmentID > 0 {
		p += "?assignmentId=" + strconv.FormatInt(assignmentID, 10)
	}

	return do[[]*models.Translation](ctx, c, http.MethodGet, p, nil)
}

// ListReviewsByReviewer lists the reviews written by a user
func (c *Client) ListReviewsByReviewer(ctx context.Context, userID int64) ([]*models.Review, error) {
	return do[[]*models.Review](ctx, c, http.MethodGet, path("Reviews/reviewer", userID), nil)
}

// Approvals

// Decide records a supervisor decision described entirely by req
func (c *Client) Decide(ctx context.Context, req models.DecisionRequest) (*models.Approval, error) {
	return do[*models.Approval](ctx, c, http.MethodPost, "/api/v1/Approvals", req)
}

// Approve accepts a completed review
func (c *Client) Approve(ctx context.Context, reviewID int64, req models.DecisionRequest) (*models.Approval, error) {
	return do[*models.Approval](ctx, c, http.MethodPatch, path("Approvals", reviewID)+"/approve", req)
}

// Reject sends a completed review's translation back to the translator
func (c *Client) Reject(ctx context.Context, reviewID int64, req models.DecisionRequest) (*models.Approval, error) {
	return do[*models.Approval](ctx, c, http.MethodPatch, path("Approvals", reviewID)+"/reject", req)
}

// GetApprovalByReview retrieves the decision taken on a review
func (c *Client) GetApprovalByReview(ctx context.Context, reviewID int64) (*models.Approval, error) {
	return do[*models.Approval](ctx, c, http.MethodGet, path("Approvals/review", reviewID), nil)
}

// Notifications

// CreateNotification sends a notification to a user
func (c *Client) CreateNotification(ctx context.Context, req models.CreateNotificationRequest) (*models.Notification, error) {
	return do[*models.Notification](ctx, c, http.MethodPost, "/api/v1/Notifications", req)
}

// ListUnread lists the unread notifications of a user
func (c *Client) ListUnread(ctx context.Context, userID int64) ([]*models.Notification, error) {
	return do[[]*models.Notification](ctx, c, http.MethodGet, path("Notifications/user", userID)+"/unread", nil)
}

// ListNotifications lists the notifications of a user, newest first
func (c *Client) ListNotifications(ctx context.Context, userID int64, limit, offset int) ([]*models.Notification, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	return do[[]*models.Notification](ctx, c, http.MethodGet, path("Notifications/user", userID)+"?"+q.Encode(), nil)
}

// MarkRead marks a notification as read
func (c *Client) MarkRead(ctx context.Context, id int64) (*models.Notification, error) {
	return do[*models.Notification](ctx, c, http.MethodPatch, path("Notifications", id)+"/read", nil)
}

// MarkAllRead marks every notification of a user as read
func (c *Client) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	var out struct {
		Updated int64 `json:"updated"`
	}
	err := c.call(ctx, http.MethodPatch, path("Notifications/user", userID)+"/read-all", nil, &out)
	return out.Updated, err
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/health", nil, nil)
}

func do[T any](ctx context.Context, c *Client, method, path string, in interface{}) (T, error) {
	var out T
	if err := c.call(ctx, method, path, in, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func path(resource string, id int64) string {
	return fmt.Sprintf("/api/v1/%s/%d", resource, id)
}

// call performs a request and decodes the data of the response envelope into out
func (c *Client) call(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if !env.Success || resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: env.Message}
		if env.Error != nil {
			apiErr.Kind = env.Error.Kind
			apiErr.Code = env.Error.Code
		}
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
