package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/translation-workflow/internal/config"
	"github.com/terra-clan/translation-workflow/internal/models"
	"github.com/terra-clan/translation-workflow/internal/notify"
	"github.com/terra-clan/translation-workflow/internal/workflow"
)

// HealthChecker is a dependency consulted by the readiness probe
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	workflow       *workflow.Service
	hub            *notify.Hub
	checks         map[string]HealthChecker
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server. hub may be nil, in which case the
// notification stream is unavailable.
func NewServer(
	cfg config.ServerConfig,
	svc *workflow.Service,
	hub *notify.Hub,
	checks map[string]HealthChecker,
) *Server {
	s := &Server{
		config:         cfg,
		workflow:       svc,
		hub:            hub,
		checks:         checks,
		authMiddleware: NewAuthMiddleware(svc),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	origins := s.config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	auth := s.authMiddleware
	timeout := s.config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(timeout))

			r.Route("/Languages", func(r chi.Router) {
				r.Get("/", s.handleListLanguages)
				r.With(auth.RequireRole(models.RoleDataEntry)).Post("/", s.handleCreateLanguage)
			})

			r.Route("/Users", func(r chi.Router) {
				r.With(auth.RequireRole(models.RoleManager)).Post("/", s.handleCreateUser)
				r.Get("/{id}", s.handleGetUser)
				r.With(auth.RequireRole(models.RoleManager)).Post("/{id}/token", s.handleIssueToken)
			})

			r.Route("/Projects", func(r chi.Router) {
				r.Get("/", s.handleListProjects)
				r.With(auth.RequireRole(models.RoleDataEntry)).Post("/", s.handleCreateProject)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetProject)
					r.With(auth.RequireRole(models.RoleManager)).Patch("/cancel", s.handleCancelProject)
					r.Get("/paragraphs", s.handleListParagraphs)
					r.With(auth.RequireRole(models.RoleDataEntry)).Post("/paragraphs", s.handleAddParagraphs)
					r.Get("/progress", s.handleProjectProgress)
				})
			})

			r.Route("/Paragraphs/{id}", func(r chi.Router) {
				r.With(auth.RequireRole(models.RoleDataEntry)).Put("/", s.handleUpdateParagraph)
				r.Get("/final/{languageId}", s.handleGetFinalText)
			})

			r.Route("/Assignments", func(r chi.Router) {
				r.With(auth.RequireRole(models.RoleManager)).Post("/", s.handleCreateAssignment)
				r.Get("/user/{userId}", s.handleListAssignmentsByUser)
				r.Get("/project/{projectId}", s.handleListAssignmentsByProject)
				r.Get("/{id}", s.handleGetAssignment)
				r.With(auth.RequireRole(models.RoleManager)).Patch("/{id}/status/{status}", s.handleSetAssignmentStatus)
			})

			r.Route("/Translations", func(r chi.Router) {
				r.With(auth.RequireRole(models.RoleTranslator)).Post("/", s.handleSaveDraft)
				r.Get("/assignment/{id}", s.handleListTranslationsByAssignment)
				r.Get("/{id}", s.handleGetTranslation)
				r.With(auth.RequireRole(models.RoleTranslator)).Put("/{id}", s.handleUpdateDraft)
				r.With(auth.RequireRole(models.RoleTranslator)).Patch("/{id}/draft", s.handleUpdateDraft)
				r.With(auth.RequireRole(models.RoleTranslator)).Patch("/{id}/submit", s.handleSubmitTranslation)
			})

			r.Route("/Reviews", func(r chi.Router) {
				r.With(auth.RequireRole(models.RoleReviewer)).Post("/", s.handleCreateReview)
				r.With(auth.RequireRole(models.RoleReviewer)).Get("/pending", s.handlePendingTranslations)
				r.Get("/reviewer/{id}", s.handleListReviewsByReviewer)
				r.Get("/{id}", s.handleGetReview)
				r.With(auth.RequireRole(models.RoleReviewer)).Put("/{id}", s.handleUpdateReview)
				r.With(auth.RequireRole(models.RoleReviewer)).Patch("/{id}/submit", s.handleSubmitReview)
			})

			r.Route("/Approvals", func(r chi.Router) {
				r.With(auth.RequireRole(models.RoleSupervisor)).Post("/", s.handleDecide)
				r.Get("/review/{reviewId}", s.handleGetApprovalByReview)
				r.With(auth.RequireRole(models.RoleSupervisor)).Patch("/{id}/approve", s.handleApprove)
				r.With(auth.RequireRole(models.RoleSupervisor)).Patch("/{id}/reject", s.handleReject)
			})
		})

		r.Route("/Notifications", func(r chi.Router) {
			// The stream is long-lived and stays outside the request timeout
			r.Get("/stream", s.handleNotificationStream)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(timeout))

				r.With(auth.RequireRole(models.RoleManager)).Post("/", s.handleCreateNotification)
				r.Get("/user/{id}", s.handleListNotifications)
				r.Get("/user/{id}/unread", s.handleListUnread)
				r.Patch("/user/{id}/read-all", s.handleMarkAllRead)
				r.Patch("/{id}/read", s.handleMarkRead)
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
