// Package server implements the portal's HTTP surface: cookie sessions with
// restart invalidation, role guards, the admin and file-dashboard pages, and
// the best-effort login-failure notifier.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"

	"fileportal/internal/blob"
	"fileportal/internal/store"
)

// UserStore is the credential store consumed by the handlers.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*store.User, error)
	ListAllUsers(ctx context.Context) ([]store.User, error)
	CreateUser(ctx context.Context, username, password, role string) (int64, error)
	DeleteUser(ctx context.Context, id int64) error
}

// FileStore is the owner-scoped file registry consumed by the handlers.
// Every method takes the requesting user id; that parameter is the sole
// access-control mechanism for file data.
type FileStore interface {
	ListFilesForUser(ctx context.Context, userID int64) ([]store.File, error)
	GetFileForUser(ctx context.Context, userID, fileID int64) (*store.File, error)
	InsertFile(ctx context.Context, f store.File) (int64, error)
	DeleteFileRecordForUser(ctx context.Context, userID, fileID int64) (int64, error)
}

// Config wires the server's collaborators.
type Config struct {
	Addr           string
	SessionSecret  string
	MaxUploadBytes int64

	Users  UserStore
	Files  FileStore
	Blobs  blob.Store
	Alerts AlertConfig

	Logger zerolog.Logger
}

type Server struct {
	httpServer *http.Server
	handler    http.Handler
	log        zerolog.Logger

	sessions *sessions.CookieStore
	runID    string

	users UserStore
	files FileStore
	blobs blob.Store

	alerts  *loginAlerter
	metrics *Metrics

	loginLimiter   *rateLimiter
	maxUploadBytes int64
	started        time.Time
}

func New(cfg Config) *Server {
	cs := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	cs.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		// MaxAge 0 keeps the cookie session-scoped: it does not outlive
		// the browser session.
		MaxAge: 0,
	}

	s := &Server{
		log:            cfg.Logger,
		sessions:       cs,
		runID:          newRunID(),
		users:          cfg.Users,
		files:          cfg.Files,
		blobs:          cfg.Blobs,
		alerts:         newLoginAlerter(cfg.Alerts, cfg.Logger),
		metrics:        &Metrics{},
		loginLimiter:   newRateLimiter(10, time.Minute),
		maxUploadBytes: cfg.MaxUploadBytes,
		started:        time.Now(),
	}

	r := mux.NewRouter()
	r.Use(s.requestIDMiddleware, s.loggingMiddleware, securityHeadersMiddleware, s.staleSessionMiddleware)

	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	r.PathPrefix("/static/").Handler(staticHandler()).Methods(http.MethodGet)
	r.HandleFunc("/", s.homeHandler).Methods(http.MethodGet)

	r.Handle("/login", s.loginLimiter.limitPOST(http.HandlerFunc(s.loginHandler))).
		Methods(http.MethodGet, http.MethodPost)
	r.Handle("/logout", s.requireLogin(http.HandlerFunc(s.logoutHandler))).Methods(http.MethodGet)

	r.Handle("/admin", s.requireAdmin(http.HandlerFunc(s.adminDashboardHandler))).Methods(http.MethodGet)
	r.Handle("/admin/create_user", s.requireAdmin(http.HandlerFunc(s.adminCreateUserHandler))).Methods(http.MethodPost)
	r.Handle("/admin/delete_user/{id:[0-9]+}", s.requireAdmin(http.HandlerFunc(s.adminDeleteUserHandler))).Methods(http.MethodPost)

	r.Handle("/dashboard", s.requireMember(http.HandlerFunc(s.dashboardHandler))).Methods(http.MethodGet)
	r.Handle("/dashboard/upload", s.requireMember(http.HandlerFunc(s.uploadHandler))).Methods(http.MethodPost)
	r.Handle("/dashboard/download/{id:[0-9]+}", s.requireMember(http.HandlerFunc(s.downloadHandler))).Methods(http.MethodGet)
	r.Handle("/dashboard/delete/{id:[0-9]+}", s.requireMember(http.HandlerFunc(s.deleteFileHandler))).Methods(http.MethodPost)

	s.handler = r
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Handler exposes the routed handler, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.handler }

// RunID returns the process-instance token sessions are bound to.
func (s *Server) RunID() string { return s.runID }

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// homeHandler routes by session state: anonymous to login, admins to the
// user-management view, everyone else to their dashboard.
func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	if user.Role == store.RoleAdmin {
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}
