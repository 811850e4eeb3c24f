package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/jdelorme/fieldsync/internal/email"
	"github.com/jdelorme/fieldsync/internal/handler"
	"github.com/jdelorme/fieldsync/internal/middleware"
	"github.com/jdelorme/fieldsync/internal/store"
	"github.com/jdelorme/fieldsync/internal/sync"
)

type Server struct {
	db           *sql.DB
	accountStore *store.AccountStore
	authH        *handler.AuthHandler
	taskH        *handler.TaskHandler
	timesheetH   *handler.TimesheetHandler
	syncH        *handler.SyncHandler
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(db *sql.DB, emailClient *email.Client, logger *slog.Logger) *Server {
	accountStore := store.NewAccountStore(db)
	taskStore := store.NewTaskStore(db)
	stageStore := store.NewStageStore(db)
	timesheetStore := store.NewTimesheetStore(db)
	attachmentStore := store.NewAttachmentStore(db)
	commentStore := store.NewCommentStore(db)
	productStore := store.NewProductStore(db)
	materialStore := store.NewMaterialStore(db)
	settingsStore := store.NewSettingsStore(db)

	reconciler := sync.New(
		taskStore, stageStore, timesheetStore, attachmentStore,
		commentStore, productStore, materialStore,
		logger.With("component", "sync"),
	)

	return &Server{
		db:           db,
		accountStore: accountStore,
		authH:        handler.NewAuthHandler(accountStore, emailClient, logger.With("component", "auth")),
		taskH:        handler.NewTaskHandler(taskStore, stageStore, materialStore, settingsStore, logger.With("component", "tasks")),
		timesheetH:   handler.NewTimesheetHandler(taskStore, timesheetStore, logger.With("component", "timesheets")),
		syncH:        handler.NewSyncHandler(reconciler, logger.With("component", "sync")),
		rateLimiter:  middleware.NewRateLimiter(),
		logger:       logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("GET /api/ping", s.ping)
	mux.HandleFunc("HEAD /api/ping", s.ping)
	mux.HandleFunc("POST /api/auth/login", s.rateLimited(s.authH.Login))
	mux.HandleFunc("POST /api/auth/reset-password", s.rateLimited(s.authH.ResetPassword))

	// Protected routes (explicitly registered with the token guard)
	guard := middleware.RequireToken(s.accountStore)
	mux.Handle("GET /api/auth/verify-token", guard(http.HandlerFunc(s.authH.Verify)))
	mux.Handle("POST /api/auth/logout", guard(http.HandlerFunc(s.authH.Logout)))
	mux.Handle("GET /api/interventions/list", guard(http.HandlerFunc(s.taskH.List)))
	mux.Handle("GET /api/interventions/{id}", guard(http.HandlerFunc(s.taskH.Detail)))
	mux.Handle("PUT /api/interventions/update-status", guard(http.HandlerFunc(s.taskH.UpdateStatus)))
	mux.Handle("POST /api/interventions/{id}/create-timesheet", guard(http.HandlerFunc(s.timesheetH.Create)))
	mux.Handle("POST /api/interventions/sync", guard(http.HandlerFunc(s.syncH.Sync)))

	var h http.Handler = mux
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	h = middleware.RequestID(h)
	return h
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(h).ServeHTTP(w, r)
	}
}

func (s *Server) ping(w http.ResponseWriter, r *http.Request) {
	handler.Respond(w, http.StatusOK, "Ping Success", "Pong")
}
