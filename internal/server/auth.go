package server

import (
	"net/http"
	"strings"

	"fileportal/internal/store"
)

// loginHandler renders the login form and authenticates POSTed credentials.
// Failed attempts always produce the same generic message so that a missing
// username and a wrong password are indistinguishable.
func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	// Already authenticated under this process instance: nothing to do here.
	// The stale-session middleware exempts /login, so the run id is checked
	// explicitly.
	if _, ok := s.currentUser(r); ok && s.sessionRunID(r) == s.runID {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if r.Method != http.MethodPost {
		s.renderLogin(w, r, "")
		return
	}

	if err := r.ParseForm(); err != nil {
		s.renderLogin(w, r, "Please enter username and password.")
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")

	if username == "" || password == "" {
		s.renderLogin(w, r, "Please enter username and password.")
		return
	}

	user, err := s.users.GetUserByUsername(r.Context(), username)
	if err != nil {
		s.log.Error().Err(err).Str("rid", requestIDFromContext(r.Context())).Msg("login lookup failed")
		s.renderLogin(w, r, "Login is temporarily unavailable.")
		return
	}

	if user == nil || !store.VerifyPassword(password, user.PasswordHash) {
		s.metrics.RecordLoginFailure()
		s.alerts.Fire(username, clientIP(r), r.UserAgent())
		s.renderLogin(w, r, "Invalid username or password.")
		return
	}

	if err := s.establishSession(w, r, user); err != nil {
		s.log.Error().Err(err).Msg("session save failed")
		s.renderLogin(w, r, "Login is temporarily unavailable.")
		return
	}

	s.metrics.RecordLoginSuccess()
	s.log.Info().Str("username", user.Username).Str("role", user.Role).Msg("login")

	if user.Role == store.RoleAdmin {
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// logoutHandler clears all session state and returns to the login page.
func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	s.clearSession(w, r)
	s.flash(w, r, "success", "Logged out successfully.")
	http.Redirect(w, r, "/login", http.StatusFound)
}

// renderLogin writes the login page, folding any queued flashes together
// with an inline message from the current attempt.
func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, inlineError string) {
	msgs := s.takeFlashes(w, r)
	if inlineError != "" {
		msgs = append(msgs, flashMessage{Category: "error", Text: inlineError})
	}
	writePage(w, loginPage(msgs))
}
