package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"fileportal/internal/store"
)

// adminDashboardHandler lists every account with a display-only sequential
// index alongside the stable id used for operations.
func (s *Server) adminDashboardHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := s.currentUser(r)

	users, err := s.users.ListAllUsers(r.Context())
	if err != nil {
		s.log.Error().Err(err).Str("rid", requestIDFromContext(r.Context())).Msg("list users failed")
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	msgs := s.takeFlashes(w, r)
	writePage(w, adminPage(user.Username, msgs, users, user.ID))
}

// adminCreateUserHandler creates a non-admin account from the form on the
// admin page. A duplicate username is reported as a notice, never as a raw
// database error.
func (s *Server) adminCreateUserHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.flash(w, r, "error", "Username and password required.")
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")

	if username == "" || password == "" {
		s.flash(w, r, "error", "Username and password required.")
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}

	_, err := s.users.CreateUser(r.Context(), username, password, store.RoleUser)
	if err != nil {
		if err == store.ErrDuplicateUsername {
			s.flash(w, r, "error", "Failed to create user. Username may already exist.")
		} else {
			s.log.Error().Err(err).Str("rid", requestIDFromContext(r.Context())).Msg("create user failed")
			s.flash(w, r, "error", "Failed to create user.")
		}
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}

	s.log.Info().Str("username", username).Msg("user created")
	s.flash(w, r, "success", fmt.Sprintf("User '%s' created.", username))
	http.Redirect(w, r, "/admin", http.StatusFound)
}

// adminDeleteUserHandler removes an account. The database cascade drops the
// user's file rows; the stored bytes are reclaimed best-effort afterwards.
// Admins cannot delete the account they are logged in with.
func (s *Server) adminDeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	current, _ := s.currentUser(r)

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if id == current.ID {
		s.flash(w, r, "error", "You cannot delete your own account while logged in.")
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}

	// Snapshot the victim's files first so the bytes can be reclaimed once
	// the rows are gone.
	files, err := s.files.ListFilesForUser(r.Context(), id)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", id).Msg("list files before user delete failed")
		files = nil
	}

	if err := s.users.DeleteUser(r.Context(), id); err != nil {
		s.log.Error().Err(err).Int64("user_id", id).Msg("delete user failed")
		s.flash(w, r, "error", "Failed to delete user.")
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}

	for _, f := range files {
		if err := s.blobs.Remove(r.Context(), f.StoredFilename); err != nil {
			s.log.Debug().Err(err).Str("stored", f.StoredFilename).Msg("blob remove after user delete failed")
		}
	}

	s.log.Info().Int64("user_id", id).Msg("user deleted")
	s.flash(w, r, "success", "User deleted.")
	http.Redirect(w, r, "/admin", http.StatusFound)
}
