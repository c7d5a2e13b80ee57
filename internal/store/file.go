package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// File is stored metadata for one uploaded file. OriginalFilename is the
// sanitized display name; StoredFilename carries a random component and is
// never shown to users.
type File struct {
	ID               int64
	UserID           int64
	OriginalFilename string
	StoredFilename   string
	ContentType      sql.NullString
	FileSize         sql.NullInt64
	StoragePath      string
	UploadedAt       time.Time
}

// ListFilesForUser returns the user's files, most recently uploaded first.
func (s *Store) ListFilesForUser(ctx context.Context, userID int64) ([]File, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, original_filename, stored_filename,
		        content_type, file_size, storage_path, uploaded_at
		 FROM files
		 WHERE user_id = $1
		 ORDER BY id DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.UserID, &f.OriginalFilename, &f.StoredFilename,
			&f.ContentType, &f.FileSize, &f.StoragePath, &f.UploadedAt); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// GetFileForUser returns the file only when it belongs to userID. A file
// owned by someone else yields (nil, nil), indistinguishable from absent.
func (s *Store) GetFileForUser(ctx context.Context, userID, fileID int64) (*File, error) {
	var f File
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, original_filename, stored_filename,
		        content_type, file_size, storage_path, uploaded_at
		 FROM files
		 WHERE id = $1 AND user_id = $2`,
		fileID, userID,
	).Scan(&f.ID, &f.UserID, &f.OriginalFilename, &f.StoredFilename,
		&f.ContentType, &f.FileSize, &f.StoragePath, &f.UploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

// InsertFile records metadata for a stored upload and returns the new id.
func (s *Store) InsertFile(ctx context.Context, f File) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO files (user_id, original_filename, stored_filename,
		                    content_type, file_size, storage_path)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		f.UserID, f.OriginalFilename, f.StoredFilename,
		f.ContentType, f.FileSize, f.StoragePath,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// DeleteFileRecordForUser deletes the row only when owned by userID and
// returns the number of rows removed (0 or 1). Foreign and missing ids both
// return 0 without error.
func (s *Store) DeleteFileRecordForUser(ctx context.Context, userID, fileID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM files WHERE id = $1 AND user_id = $2`,
		fileID, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
