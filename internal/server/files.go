package server

import (
	"database/sql"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"fileportal/internal/blob"
	"fileportal/internal/store"
)

// dashboardHandler lists the requesting user's files, newest first.
func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := s.currentUser(r)

	files, err := s.files.ListFilesForUser(r.Context(), user.ID)
	if err != nil {
		s.log.Error().Err(err).Str("rid", requestIDFromContext(r.Context())).Msg("list files failed")
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	msgs := s.takeFlashes(w, r)
	writePage(w, dashboardPage(user.Username, msgs, files))
}

// sanitizeFilename strips path components and control bytes from a
// client-supplied name so it is safe to show and to embed in a stored name.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "\x00", "")
	name = strings.Trim(name, " .")

	if len(name) > 255 {
		ext := filepath.Ext(name)
		// An oversized extension cannot be preserved without blowing the
		// cap again; drop it and keep a plain prefix.
		if len(ext) >= 255 {
			ext = ""
		}
		name = name[:255-len(ext)] + ext
	}
	if name == "" || name == "/" {
		return ""
	}
	return name
}

// uploadHandler accepts one multipart file field. The request body is capped
// before any parsing; oversized uploads fail with 413 and leave no record.
func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := s.currentUser(r)

	if s.maxUploadBytes > 0 {
		// Declared-size check first so oversized requests fail before any
		// form parsing; the reader cap below catches undeclared bodies.
		if r.ContentLength > s.maxUploadBytes {
			s.metrics.RecordUploadError()
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.metrics.RecordUploadError()
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		s.flash(w, r, "error", "No file part.")
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	defer func() { _ = file.Close() }()

	originalName := sanitizeFilename(header.Filename)
	if originalName == "" {
		s.flash(w, r, "error", "No file selected.")
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	// Random prefix rules out collisions and guessable storage names.
	storedName := uuid.New().String() + "_" + originalName

	size, path, err := s.blobs.Save(r.Context(), storedName, file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.metrics.RecordUploadError()
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		s.metrics.RecordUploadError()
		s.log.Error().Err(err).Str("rid", requestIDFromContext(r.Context())).Msg("blob save failed")
		s.flash(w, r, "error", "Failed to store file.")
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	rec := store.File{
		UserID:           user.ID,
		OriginalFilename: originalName,
		StoredFilename:   storedName,
		StoragePath:      path,
		FileSize:         sql.NullInt64{Int64: size, Valid: true},
	}
	if ct := header.Header.Get("Content-Type"); ct != "" {
		rec.ContentType = sql.NullString{String: ct, Valid: true}
	}

	if _, err := s.files.InsertFile(r.Context(), rec); err != nil {
		// The metadata row is the source of truth; without it the stored
		// bytes are unreachable, so reclaim them.
		if rerr := s.blobs.Remove(r.Context(), storedName); rerr != nil {
			s.log.Debug().Err(rerr).Str("stored", storedName).Msg("blob cleanup after insert failure")
		}
		s.metrics.RecordUploadError()
		s.log.Error().Err(err).Str("rid", requestIDFromContext(r.Context())).Msg("insert file failed")
		s.flash(w, r, "error", "Failed to store file.")
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	s.metrics.RecordUpload(size)
	s.log.Info().Int64("user_id", user.ID).Str("file", originalName).Int64("bytes", size).Msg("upload")
	s.flash(w, r, "success", "File uploaded successfully.")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// downloadHandler streams a file back to its owner. A file owned by someone
// else responds exactly like a file that does not exist.
func (s *Server) downloadHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := s.currentUser(r)

	fileID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	rec, err := s.files.GetFileForUser(r.Context(), user.ID, fileID)
	if err != nil {
		s.log.Error().Err(err).Str("rid", requestIDFromContext(r.Context())).Msg("file lookup failed")
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.NotFound(w, r)
		return
	}

	obj, err := s.blobs.Open(r.Context(), rec.StoredFilename)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		s.log.Error().Err(err).Str("stored", rec.StoredFilename).Msg("blob open failed")
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = obj.Close() }()

	if rec.ContentType.Valid && rec.ContentType.String != "" {
		w.Header().Set("Content-Type", rec.ContentType.String)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	if rec.FileSize.Valid && rec.FileSize.Int64 > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(rec.FileSize.Int64, 10))
	}
	// The browser sees the display name, never the internal stored name.
	// FormatMediaType quotes and escapes the filename as needed.
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": rec.OriginalFilename}))

	w.WriteHeader(http.StatusOK)
	n, _ := io.Copy(w, obj)
	s.metrics.RecordDownload(n)
}

// deleteFileHandler removes a file the user owns: metadata row first, then
// the stored bytes best-effort. Once the row is gone the file is gone,
// whatever happens to the bytes.
func (s *Server) deleteFileHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := s.currentUser(r)

	fileID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	rec, err := s.files.GetFileForUser(r.Context(), user.ID, fileID)
	if err != nil {
		s.log.Error().Err(err).Str("rid", requestIDFromContext(r.Context())).Msg("file lookup failed")
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if rec == nil {
		s.flash(w, r, "error", "File not found.")
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	deleted, err := s.files.DeleteFileRecordForUser(r.Context(), user.ID, fileID)
	if err != nil || deleted == 0 {
		if err != nil {
			s.log.Error().Err(err).Int64("file_id", fileID).Msg("delete file record failed")
		}
		s.flash(w, r, "error", "Failed to delete file.")
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	if err := s.blobs.Remove(r.Context(), rec.StoredFilename); err != nil {
		s.log.Debug().Err(err).Str("stored", rec.StoredFilename).Msg("blob remove failed")
	}

	s.log.Info().Int64("user_id", user.ID).Int64("file_id", fileID).Msg("file deleted")
	s.flash(w, r, "success", "File deleted.")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}
