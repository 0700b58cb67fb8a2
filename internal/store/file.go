package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	dserrors "github.com/Aman-CERP/deckstore/internal/errors"
)

const fileColumns = `id, project_id, original_path, internal_path, slide_count, imported_at`

func scanFile(row interface{ Scan(...any) error }) (*File, error) {
	var f File
	var imported int64
	if err := row.Scan(&f.ID, &f.ProjectID, &f.OriginalPath, &f.InternalPath, &f.SlideCount, &imported); err != nil {
		return nil, err
	}
	f.ImportedAt = fromUnixNano(imported)
	return &f, nil
}

func validateNewFile(nf NewFile) error {
	if strings.TrimSpace(nf.OriginalPath) == "" {
		return dserrors.InvalidArgument("file original path must not be empty")
	}
	if nf.SlideCount < 0 {
		return dserrors.InvalidArgument("file slide count must not be negative, got %d", nf.SlideCount)
	}
	return nil
}

// insertFile writes a file row inside tx. The project must exist.
func (s *Store) insertFile(ctx context.Context, tx *sql.Tx, projectID int64, nf NewFile) (*File, error) {
	if err := requireRow(ctx, tx, "projects", "project", projectID); err != nil {
		return nil, err
	}
	now := s.now()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO files (project_id, original_path, internal_path, slide_count, imported_at)
		VALUES (?, ?, ?, ?, ?)`,
		projectID, nf.OriginalPath, nf.InternalPath, nf.SlideCount, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &File{
		ID:           id,
		ProjectID:    projectID,
		OriginalPath: nf.OriginalPath,
		InternalPath: nf.InternalPath,
		SlideCount:   nf.SlideCount,
		ImportedAt:   fromUnixNano(now),
	}, nil
}

// CreateFile records an imported file. Fails with NotFound if the project
// does not exist.
func (s *Store) CreateFile(ctx context.Context, projectID int64, nf NewFile) (*File, error) {
	if err := validateNewFile(nf); err != nil {
		return nil, err
	}

	var f *File
	err := s.update(ctx, "create_file", func(tx *sql.Tx) error {
		var err error
		f, err = s.insertFile(ctx, tx, projectID, nf)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("file_created",
		slog.Int64("file_id", f.ID),
		slog.Int64("project_id", projectID),
		slog.String("original_path", nf.OriginalPath))
	return f, nil
}

// GetFile returns a file by id.
func (s *Store) GetFile(ctx context.Context, id int64) (*File, error) {
	var f *File
	err := s.view(ctx, "get_file", func(tx *sql.Tx) error {
		var err error
		f, err = getFileTx(ctx, tx, id)
		return err
	})
	return f, err
}

func getFileTx(ctx context.Context, tx *sql.Tx, id int64) (*File, error) {
	f, err := scanFile(tx.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dserrors.NotFound("file", id)
	}
	return f, err
}

// ListFiles returns a project's files, most recently imported first.
func (s *Store) ListFiles(ctx context.Context, projectID int64) ([]*File, error) {
	var out []*File
	err := s.view(ctx, "list_files", func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "projects", "project", projectID); err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx, `
			SELECT `+fileColumns+` FROM files
			WHERE project_id = ?
			ORDER BY imported_at DESC, id DESC`, projectID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			f, err := scanFile(rows)
			if err != nil {
				return err
			}
			out = append(out, f)
		}
		return rows.Err()
	})
	return out, err
}

// UpdateFile applies a partial update. Allowed fields: original_path,
// internal_path, slide_count.
func (s *Store) UpdateFile(ctx context.Context, id int64, fields Fields) (*File, error) {
	plan, err := planUpdate("file", fields, fileFields)
	if err != nil {
		return nil, err
	}
	if v, ok := plan.value("original_path"); ok && strings.TrimSpace(v.(string)) == "" {
		return nil, dserrors.InvalidArgument("file original path must not be empty")
	}
	if v, ok := plan.value("slide_count"); ok && v.(int64) < 0 {
		return nil, dserrors.InvalidArgument("file slide count must not be negative, got %d", v)
	}

	var f *File
	err = s.update(ctx, "update_file", func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "files", "file", id); err != nil {
			return err
		}
		set, args := plan.setClause()
		if _, err := tx.ExecContext(ctx, `UPDATE files SET `+set+` WHERE id = ?`, append(args, id)...); err != nil {
			return err
		}
		f, err = getFileTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}
