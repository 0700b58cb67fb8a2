package store

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
)

// Deletes cascade explicitly, children before parents:
//
//	project  -> assemblies -> files -> keywords -> project row
//	assembly -> assembly_slides -> assembly row
//	file     -> slides -> file row
//	slide    -> element_keywords -> elements -> slide_keywords ->
//	            assembly_slides (affected assemblies compacted) ->
//	            slide_search -> slide rows
//	keyword  -> slide_keywords (linked slides re-indexed) -> element_keywords -> keyword row
//
// The schema has no ON DELETE actions; with foreign_keys=ON a missed step
// fails the transaction rather than leaving an orphan.

// idChunk bounds the number of placeholders in one IN (...) list.
const idChunk = 500

// execIn runs query once per chunk of ids, replacing the single "(?)" in
// query with a placeholder list. Returns the total rows affected.
func execIn(ctx context.Context, tx *sql.Tx, query string, ids []int64) (int64, error) {
	var total int64
	for start := 0; start < len(ids); start += idChunk {
		end := min(start+idChunk, len(ids))
		chunk := ids[start:end]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		q := strings.Replace(query, "(?)", "("+placeholders(len(chunk))+")", 1)
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return total, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func queryIDsIn(ctx context.Context, tx *sql.Tx, query string, ids []int64) ([]int64, error) {
	var out []int64
	for start := 0; start < len(ids); start += idChunk {
		end := min(start+idChunk, len(ids))
		chunk := ids[start:end]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		q := strings.Replace(query, "(?)", "("+placeholders(len(chunk))+")", 1)
		got, err := queryIDs(ctx, tx, q, args...)
		if err != nil {
			return nil, err
		}
		out = append(out, got...)
	}
	return out, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// deleteSlidesTx removes slides and everything that hangs off them.
// With compact set, assemblies that lose entries are renumbered.
func deleteSlidesTx(ctx context.Context, tx *sql.Tx, slideIDs []int64, compact bool) error {
	if len(slideIDs) == 0 {
		return nil
	}

	elementIDs, err := queryIDsIn(ctx, tx, `SELECT id FROM elements WHERE slide_id IN (?)`, slideIDs)
	if err != nil {
		return err
	}
	if _, err := execIn(ctx, tx, `DELETE FROM element_keywords WHERE element_id IN (?)`, elementIDs); err != nil {
		return err
	}
	if _, err := execIn(ctx, tx, `DELETE FROM elements WHERE slide_id IN (?)`, slideIDs); err != nil {
		return err
	}
	if _, err := execIn(ctx, tx, `DELETE FROM slide_keywords WHERE slide_id IN (?)`, slideIDs); err != nil {
		return err
	}

	assemblyIDs, err := queryIDsIn(ctx, tx,
		`SELECT DISTINCT assembly_id FROM assembly_slides WHERE slide_id IN (?) ORDER BY assembly_id`, slideIDs)
	if err != nil {
		return err
	}
	if _, err := execIn(ctx, tx, `DELETE FROM assembly_slides WHERE slide_id IN (?)`, slideIDs); err != nil {
		return err
	}
	if compact {
		for _, id := range assemblyIDs {
			if err := compactAssembly(ctx, tx, id); err != nil {
				return err
			}
		}
	}

	if _, err := execIn(ctx, tx, `DELETE FROM slide_search WHERE rowid IN (?)`, slideIDs); err != nil {
		return err
	}
	_, err = execIn(ctx, tx, `DELETE FROM slides WHERE id IN (?)`, slideIDs)
	return err
}

// DeleteSlide deletes a slide with its elements, link rows, assembly entries
// and index row. Assemblies that contained it are renumbered.
func (s *Store) DeleteSlide(ctx context.Context, id int64) error {
	err := s.update(ctx, "delete_slide", func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "slides", "slide", id); err != nil {
			return err
		}
		return deleteSlidesTx(ctx, tx, []int64{id}, true)
	})
	if err != nil {
		return err
	}
	s.logger.Debug("slide_deleted", slog.Int64("slide_id", id))
	return nil
}

// DeleteElement deletes an element and its keyword links, re-indexing the
// slide when the element carried text.
func (s *Store) DeleteElement(ctx context.Context, id int64) error {
	return s.update(ctx, "delete_element", func(tx *sql.Tx) error {
		e, err := getElementTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM element_keywords WHERE element_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM elements WHERE id = ?`, id); err != nil {
			return err
		}
		if e.Text != nil && *e.Text != "" {
			return syncSlide(ctx, tx, e.SlideID)
		}
		return nil
	})
}

func deleteFilesTx(ctx context.Context, tx *sql.Tx, fileIDs []int64, compact bool) (int, error) {
	slideIDs, err := queryIDsIn(ctx, tx, `SELECT id FROM slides WHERE file_id IN (?)`, fileIDs)
	if err != nil {
		return 0, err
	}
	if err := deleteSlidesTx(ctx, tx, slideIDs, compact); err != nil {
		return 0, err
	}
	if _, err := execIn(ctx, tx, `DELETE FROM files WHERE id IN (?)`, fileIDs); err != nil {
		return 0, err
	}
	return len(slideIDs), nil
}

// DeleteFile deletes a file and all of its slides.
func (s *Store) DeleteFile(ctx context.Context, id int64) error {
	var slides int
	err := s.update(ctx, "delete_file", func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "files", "file", id); err != nil {
			return err
		}
		var err error
		slides, err = deleteFilesTx(ctx, tx, []int64{id}, true)
		return err
	})
	if err != nil {
		return err
	}
	s.logger.Info("file_deleted", slog.Int64("file_id", id), slog.Int("slides", slides))
	return nil
}

// DeleteKeyword deletes a keyword and its links. Slides that were tagged with
// it are re-indexed without its text.
func (s *Store) DeleteKeyword(ctx context.Context, id int64) error {
	var affected int
	err := s.update(ctx, "delete_keyword", func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "keywords", "keyword", id); err != nil {
			return err
		}
		slideIDs, err := slidesReachedByKeyword(ctx, tx, id)
		if err != nil {
			return err
		}
		affected = len(slideIDs)
		if _, err := tx.ExecContext(ctx, `DELETE FROM slide_keywords WHERE keyword_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM element_keywords WHERE keyword_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM keywords WHERE id = ?`, id); err != nil {
			return err
		}
		return syncSlides(ctx, tx, slideIDs)
	})
	if err != nil {
		return err
	}
	s.logger.Debug("keyword_deleted", slog.Int64("keyword_id", id), slog.Int("slides_reindexed", affected))
	return nil
}

func deleteAssembliesTx(ctx context.Context, tx *sql.Tx, assemblyIDs []int64) error {
	if _, err := execIn(ctx, tx, `DELETE FROM assembly_slides WHERE assembly_id IN (?)`, assemblyIDs); err != nil {
		return err
	}
	_, err := execIn(ctx, tx, `DELETE FROM assemblies WHERE id IN (?)`, assemblyIDs)
	return err
}

// DeleteAssembly deletes an assembly and its entries. Slides are untouched.
func (s *Store) DeleteAssembly(ctx context.Context, id int64) error {
	err := s.update(ctx, "delete_assembly", func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "assemblies", "assembly", id); err != nil {
			return err
		}
		return deleteAssembliesTx(ctx, tx, []int64{id})
	})
	if err != nil {
		return err
	}
	s.logger.Debug("assembly_deleted", slog.Int64("assembly_id", id))
	return nil
}

// DeleteProject deletes a project with all of its assemblies, files, slides,
// elements, keywords and link rows.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	var files, slides int
	err := s.update(ctx, "delete_project", func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "projects", "project", id); err != nil {
			return err
		}

		assemblyIDs, err := queryIDs(ctx, tx, `SELECT id FROM assemblies WHERE project_id = ?`, id)
		if err != nil {
			return err
		}
		if err := deleteAssembliesTx(ctx, tx, assemblyIDs); err != nil {
			return err
		}

		fileIDs, err := queryIDs(ctx, tx, `SELECT id FROM files WHERE project_id = ?`, id)
		if err != nil {
			return err
		}
		files = len(fileIDs)
		// Every assembly of the project is already gone, nothing to compact.
		slides, err = deleteFilesTx(ctx, tx, fileIDs, false)
		if err != nil {
			return err
		}

		keywordIDs, err := queryIDs(ctx, tx, `SELECT id FROM keywords WHERE project_id = ?`, id)
		if err != nil {
			return err
		}
		if _, err := execIn(ctx, tx, `DELETE FROM slide_keywords WHERE keyword_id IN (?)`, keywordIDs); err != nil {
			return err
		}
		if _, err := execIn(ctx, tx, `DELETE FROM element_keywords WHERE keyword_id IN (?)`, keywordIDs); err != nil {
			return err
		}
		if _, err := execIn(ctx, tx, `DELETE FROM keywords WHERE id IN (?)`, keywordIDs); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("project_deleted",
		slog.Int64("project_id", id),
		slog.Int("files", files),
		slog.Int("slides", slides))
	return nil
}
