// session.go - Cookie session state, flash messages, and the authorization
// guards. Sessions carry a run id tying them to this process instance;
// anything minted by an earlier process is treated as unauthenticated.
package server

import (
	"crypto/rand"
	"encoding/gob"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"

	"fileportal/internal/store"
)

const sessionName = "portal_session"

// Session value keys.
const (
	sessKeyUserID   = "user_id"
	sessKeyUsername = "username"
	sessKeyRole     = "role"
	sessKeyRunID    = "run_id"
)

// flashMessage is a categorized notice carried across one redirect.
type flashMessage struct {
	Category string // "success" or "error"
	Text     string
}

func init() {
	gob.Register(flashMessage{})
}

// sessionUser is the identity bound to an authenticated session.
type sessionUser struct {
	ID       int64
	Username string
	Role     string
}

// newRunID generates the per-process token used to invalidate sessions
// created by a prior process instance.
func newRunID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return hex.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	return hex.EncodeToString(b)
}

// session fetches the request's session, falling back to a fresh one when
// the cookie fails to decode (e.g. signed under a different secret).
func (s *Server) session(r *http.Request) *sessions.Session {
	sess, err := s.sessions.Get(r, sessionName)
	if err != nil {
		sess, _ = s.sessions.New(r, sessionName)
	}
	return sess
}

// currentUser returns the authenticated identity, if any. It does not check
// run-id freshness; staleSessionMiddleware has already cleared stale state
// for every route where it matters.
func (s *Server) currentUser(r *http.Request) (sessionUser, bool) {
	sess := s.session(r)

	id, ok := sess.Values[sessKeyUserID].(int64)
	if !ok {
		return sessionUser{}, false
	}
	username, _ := sess.Values[sessKeyUsername].(string)
	role, _ := sess.Values[sessKeyRole].(string)
	return sessionUser{ID: id, Username: username, Role: role}, true
}

// sessionRunID returns the run id stored in the session, if any.
func (s *Server) sessionRunID(r *http.Request) string {
	rid, _ := s.session(r).Values[sessKeyRunID].(string)
	return rid
}

// establishSession discards all prior session state and binds a fresh
// authenticated session to the current process instance.
func (s *Server) establishSession(w http.ResponseWriter, r *http.Request, u *store.User) error {
	sess := s.session(r)
	sess.Values = map[interface{}]interface{}{
		sessKeyUserID:   u.ID,
		sessKeyUsername: u.Username,
		sessKeyRole:     u.Role,
		sessKeyRunID:    s.runID,
	}
	return sess.Save(r, w)
}

// clearSession drops every session value.
func (s *Server) clearSession(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	sess.Values = map[interface{}]interface{}{}
	_ = sess.Save(r, w)
}

// flash queues a categorized notice for the next rendered page.
func (s *Server) flash(w http.ResponseWriter, r *http.Request, category, text string) {
	sess := s.session(r)
	sess.AddFlash(flashMessage{Category: category, Text: text})
	_ = sess.Save(r, w)
}

// takeFlashes consumes and returns all pending notices.
func (s *Server) takeFlashes(w http.ResponseWriter, r *http.Request) []flashMessage {
	sess := s.session(r)
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	_ = sess.Save(r, w)

	msgs := make([]flashMessage, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(flashMessage); ok {
			msgs = append(msgs, m)
		}
	}
	return msgs
}

// staleSessionMiddleware clears any session whose run id does not match the
// live process and bounces the request to login. Login, health, and static
// assets are exempt so the login flow itself stays reachable.
func (s *Server) staleSessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if p == "/login" || p == "/health" || strings.HasPrefix(p, "/static/") {
			next.ServeHTTP(w, r)
			return
		}

		if _, ok := s.currentUser(r); ok && s.sessionRunID(r) != s.runID {
			s.clearSession(w, r)
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireLogin redirects anonymous requests to the login page.
func (s *Server) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.currentUser(r); !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin admits only authenticated admins. Non-admins get an access
// denied notice on their own dashboard, with no further detail.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.currentUser(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		if user.Role != store.RoleAdmin {
			s.flash(w, r, "error", "Access denied: Admins only.")
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireMember admits only authenticated non-admin users. Admins have no
// personal file storage and are sent back to their own view.
func (s *Server) requireMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.currentUser(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		if user.Role == store.RoleAdmin {
			http.Redirect(w, r, "/admin", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
