package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	dserrors "github.com/Aman-CERP/deckstore/internal/errors"
)

// Assembly positions are kept contiguous (0..n-1, no duplicates) by
// computing the new order in memory and rewriting only the rows whose
// position changed. Rows being moved are first parked on a negative position
// (-1 - newPosition) and then flipped back in one statement, so the
// UNIQUE (assembly_id, position) index never sees two rows on one position.
// Every operation re-checks contiguity before commit; a violation is an
// internal error and rolls the transaction back.

const assemblyColumns = `id, project_id, name, created_at, updated_at`

// AssemblyItem is an assembly entry together with its slide, as handed to
// export.
type AssemblyItem struct {
	AssemblyEntry
	Slide *Slide
}

func scanAssembly(row interface{ Scan(...any) error }) (*Assembly, error) {
	var a Assembly
	var created, updated int64
	if err := row.Scan(&a.ID, &a.ProjectID, &a.Name, &created, &updated); err != nil {
		return nil, err
	}
	a.CreatedAt = fromUnixNano(created)
	a.UpdatedAt = fromUnixNano(updated)
	return &a, nil
}

func getAssemblyTx(ctx context.Context, tx *sql.Tx, id int64) (*Assembly, error) {
	a, err := scanAssembly(tx.QueryRowContext(ctx, `SELECT `+assemblyColumns+` FROM assemblies WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dserrors.NotFound("assembly", id)
	}
	return a, err
}

// CreateAssembly creates an empty assembly in a project.
func (s *Store) CreateAssembly(ctx context.Context, projectID int64, name string) (*Assembly, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dserrors.InvalidArgument("assembly name must not be empty")
	}

	var a *Assembly
	err := s.update(ctx, "create_assembly", func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "projects", "project", projectID); err != nil {
			return err
		}
		now := s.now()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO assemblies (project_id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			projectID, name, now, now)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		a = &Assembly{ID: id, ProjectID: projectID, Name: name, CreatedAt: fromUnixNano(now), UpdatedAt: fromUnixNano(now)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("assembly_created", slog.Int64("assembly_id", a.ID), slog.String("name", name))
	return a, nil
}

// GetAssembly returns an assembly by id.
func (s *Store) GetAssembly(ctx context.Context, id int64) (*Assembly, error) {
	var a *Assembly
	err := s.view(ctx, "get_assembly", func(tx *sql.Tx) error {
		var err error
		a, err = getAssemblyTx(ctx, tx, id)
		return err
	})
	return a, err
}

// ListAssemblies returns a project's assemblies ordered by id.
func (s *Store) ListAssemblies(ctx context.Context, projectID int64) ([]*Assembly, error) {
	var out []*Assembly
	err := s.view(ctx, "list_assemblies", func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "projects", "project", projectID); err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx,
			`SELECT `+assemblyColumns+` FROM assemblies WHERE project_id = ? ORDER BY id`, projectID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			a, err := scanAssembly(rows)
			if err != nil {
				return err
			}
			out = append(out, a)
		}
		return rows.Err()
	})
	return out, err
}

// UpdateAssembly applies a partial update. Allowed fields: name.
func (s *Store) UpdateAssembly(ctx context.Context, id int64, fields Fields) (*Assembly, error) {
	plan, err := planUpdate("assembly", fields, assemblyFields)
	if err != nil {
		return nil, err
	}
	if v, ok := plan.value("name"); ok {
		name := strings.TrimSpace(v.(string))
		if name == "" {
			return nil, dserrors.InvalidArgument("assembly name must not be empty")
		}
		plan = withValue(plan, "name", name)
	}

	var a *Assembly
	err = s.update(ctx, "update_assembly", func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "assemblies", "assembly", id); err != nil {
			return err
		}
		set, args := plan.setClause()
		args = append(args, s.now(), id)
		if _, err := tx.ExecContext(ctx, `UPDATE assemblies SET `+set+`, updated_at = ? WHERE id = ?`, args...); err != nil {
			return err
		}
		a, err = getAssemblyTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// AssemblySlides returns an assembly's entries with their slides in
// position order.
func (s *Store) AssemblySlides(ctx context.Context, assemblyID int64) ([]AssemblyItem, error) {
	var out []AssemblyItem
	err := s.view(ctx, "assembly_slides", func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "assemblies", "assembly", assemblyID); err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx, `
			SELECT `+slideColumns+`, a.id, a.position
			FROM assembly_slides a JOIN slides s ON s.id = a.slide_id
			WHERE a.assembly_id = ?
			ORDER BY a.position`, assemblyID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var item AssemblyItem
			sl, err := scanSlide(rows, &item.EntryID, &item.Position)
			if err != nil {
				return err
			}
			item.AssemblyID = assemblyID
			item.SlideID = sl.ID
			item.Slide = sl
			out = append(out, item)
		}
		return rows.Err()
	})
	return out, err
}

// AssemblyAppend adds a slide after the last entry (position 0 if empty).
func (s *Store) AssemblyAppend(ctx context.Context, assemblyID, slideID int64) (*AssemblyEntry, error) {
	var entry *AssemblyEntry
	err := s.reorder(ctx, "assembly_append", assemblyID, func(tx *sql.Tx, seq sequence) (sequence, error) {
		if err := s.checkAssemblySlide(ctx, tx, assemblyID, slideID); err != nil {
			return nil, err
		}
		var next int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position) + 1, 0) FROM assembly_slides WHERE assembly_id = ?`,
			assemblyID).Scan(&next); err != nil {
			return nil, err
		}
		id, err := insertEntry(ctx, tx, assemblyID, slideID, next)
		if err != nil {
			return nil, err
		}
		entry = &AssemblyEntry{EntryID: id, AssemblyID: assemblyID, SlideID: slideID, Position: next}
		return append(seq, id), nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// AssemblyInsertAt inserts a slide at position, shifting entries at or after
// it by one. position must be within 0..n.
func (s *Store) AssemblyInsertAt(ctx context.Context, assemblyID, slideID int64, position int) (*AssemblyEntry, error) {
	var entry *AssemblyEntry
	err := s.reorder(ctx, "assembly_insert", assemblyID, func(tx *sql.Tx, seq sequence) (sequence, error) {
		if position < 0 || position > len(seq) {
			return nil, dserrors.InvalidArgument("insert position %d out of range 0..%d", position, len(seq))
		}
		if err := s.checkAssemblySlide(ctx, tx, assemblyID, slideID); err != nil {
			return nil, err
		}
		// Parked until reorder flips it onto its final position.
		id, err := insertEntry(ctx, tx, assemblyID, slideID, parked(position))
		if err != nil {
			return nil, err
		}
		entry = &AssemblyEntry{EntryID: id, AssemblyID: assemblyID, SlideID: slideID, Position: position}
		return seq.insert(position, id), nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// AssemblyMoveTo moves the first occurrence of a slide to newPosition
// (0..n-1): the entry is taken out, the gap closed, and the entry inserted
// at newPosition.
func (s *Store) AssemblyMoveTo(ctx context.Context, assemblyID, slideID int64, newPosition int) error {
	return s.reorder(ctx, "assembly_move", assemblyID, func(tx *sql.Tx, seq sequence) (sequence, error) {
		from, err := firstOccurrence(ctx, tx, assemblyID, slideID)
		if err != nil {
			return nil, err
		}
		if newPosition < 0 || newPosition >= len(seq) {
			return nil, dserrors.InvalidArgument("move position %d out of range 0..%d", newPosition, len(seq)-1)
		}
		return seq.move(from, newPosition), nil
	})
}

// AssemblyMoveAt moves the entry at position from to position to.
func (s *Store) AssemblyMoveAt(ctx context.Context, assemblyID int64, from, to int) error {
	return s.reorder(ctx, "assembly_move", assemblyID, func(tx *sql.Tx, seq sequence) (sequence, error) {
		if from < 0 || from >= len(seq) {
			return nil, dserrors.InvalidArgument("source position %d out of range 0..%d", from, len(seq)-1)
		}
		if to < 0 || to >= len(seq) {
			return nil, dserrors.InvalidArgument("move position %d out of range 0..%d", to, len(seq)-1)
		}
		return seq.move(from, to), nil
	})
}

// AssemblyRemove removes the first occurrence of a slide and closes the gap.
func (s *Store) AssemblyRemove(ctx context.Context, assemblyID, slideID int64) error {
	return s.reorder(ctx, "assembly_remove", assemblyID, func(tx *sql.Tx, seq sequence) (sequence, error) {
		pos, err := firstOccurrence(ctx, tx, assemblyID, slideID)
		if err != nil {
			return nil, err
		}
		return removeEntryAt(ctx, tx, seq, pos)
	})
}

// AssemblyRemoveAt removes the entry at position and closes the gap.
func (s *Store) AssemblyRemoveAt(ctx context.Context, assemblyID int64, position int) error {
	return s.reorder(ctx, "assembly_remove", assemblyID, func(tx *sql.Tx, seq sequence) (sequence, error) {
		if position < 0 || position >= len(seq) {
			return nil, dserrors.InvalidArgument("remove position %d out of range 0..%d", position, len(seq)-1)
		}
		return removeEntryAt(ctx, tx, seq, position)
	})
}

// reorder runs one ordering operation in a write transaction: it loads the
// current order, lets fn produce the new one, rewrites changed positions, and
// verifies contiguity.
func (s *Store) reorder(ctx context.Context, op string, assemblyID int64, fn func(tx *sql.Tx, seq sequence) (sequence, error)) error {
	var size int
	err := s.update(ctx, op, func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "assemblies", "assembly", assemblyID); err != nil {
			return err
		}
		seq, err := loadSequence(ctx, tx, assemblyID)
		if err != nil {
			return err
		}
		next, err := fn(tx, seq)
		if err != nil {
			return err
		}
		if err := applySequence(ctx, tx, assemblyID, seq, next); err != nil {
			return err
		}
		size = len(next)
		_, err = tx.ExecContext(ctx, `UPDATE assemblies SET updated_at = ? WHERE id = ?`, s.now(), assemblyID)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Debug("assembly_reordered",
		slog.String("op", op),
		slog.Int64("assembly_id", assemblyID),
		slog.Int("entries", size))
	return nil
}

// checkAssemblySlide verifies the slide exists and belongs to the
// assembly's project.
func (s *Store) checkAssemblySlide(ctx context.Context, tx *sql.Tx, assemblyID, slideID int64) error {
	a, err := getAssemblyTx(ctx, tx, assemblyID)
	if err != nil {
		return err
	}
	projectID, err := slideProject(ctx, tx, slideID)
	if err != nil {
		return err
	}
	if projectID != a.ProjectID {
		return dserrors.InvalidArgument("slide %d belongs to project %d, assembly %d to project %d",
			slideID, projectID, assemblyID, a.ProjectID)
	}
	return nil
}

func parked(position int) int {
	return -1 - position
}

func insertEntry(ctx context.Context, tx *sql.Tx, assemblyID, slideID int64, position int) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO assembly_slides (assembly_id, slide_id, position) VALUES (?, ?, ?)`,
		assemblyID, slideID, position)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func removeEntryAt(ctx context.Context, tx *sql.Tx, seq sequence, pos int) (sequence, error) {
	if _, err := tx.ExecContext(ctx, `DELETE FROM assembly_slides WHERE id = ?`, seq[pos]); err != nil {
		return nil, err
	}
	return seq.removeAt(pos), nil
}

// firstOccurrence returns the lowest position of slideID in the assembly.
func firstOccurrence(ctx context.Context, tx *sql.Tx, assemblyID, slideID int64) (int, error) {
	var pos int
	err := tx.QueryRowContext(ctx, `
		SELECT position FROM assembly_slides
		WHERE assembly_id = ? AND slide_id = ?
		ORDER BY position LIMIT 1`, assemblyID, slideID).Scan(&pos)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, dserrors.New(dserrors.ErrCodeNotFound,
			fmt.Sprintf("slide %d is not in assembly %d", slideID, assemblyID), nil).
			WithDetail("entity", "assembly_slide")
	}
	return pos, err
}

func loadSequence(ctx context.Context, tx *sql.Tx, assemblyID int64) (sequence, error) {
	ids, err := queryIDs(ctx, tx,
		`SELECT id FROM assembly_slides WHERE assembly_id = ? ORDER BY position`, assemblyID)
	return sequence(ids), err
}

// applySequence makes the stored positions match next. prev is the order
// loaded at the start of the transaction; entries inserted since then are
// not in prev and are always rewritten.
func applySequence(ctx context.Context, tx *sql.Tx, assemblyID int64, prev, next sequence) error {
	old := prev.positions()
	moved := 0
	for i, id := range next {
		if p, ok := old[id]; ok && p == i {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE assembly_slides SET position = ? WHERE id = ?`, parked(i), id); err != nil {
			return err
		}
		moved++
	}
	if moved > 0 {
		if _, err := tx.ExecContext(ctx, `
			UPDATE assembly_slides SET position = -1 - position
			WHERE assembly_id = ? AND position < 0`, assemblyID); err != nil {
			return err
		}
	}
	return verifyContiguous(ctx, tx, assemblyID, len(next))
}

// verifyContiguous checks that the assembly holds exactly n entries on
// positions 0..n-1.
func verifyContiguous(ctx context.Context, tx *sql.Tx, assemblyID int64, n int) error {
	var count, distinct, minPos, maxPos int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT position), COALESCE(MIN(position), 0), COALESCE(MAX(position), -1)
		FROM assembly_slides WHERE assembly_id = ?`, assemblyID).Scan(&count, &distinct, &minPos, &maxPos)
	if err != nil {
		return err
	}
	if count != n || distinct != n || (n > 0 && (minPos != 0 || maxPos != n-1)) {
		return dserrors.InternalError(fmt.Sprintf(
			"assembly %d positions not contiguous: count=%d distinct=%d min=%d max=%d want=%d",
			assemblyID, count, distinct, minPos, maxPos, n), nil)
	}
	return nil
}

// compactAssembly renumbers an assembly's entries to 0..n-1 keeping their
// relative order. Used after entries were deleted by a cascade.
func compactAssembly(ctx context.Context, tx *sql.Tx, assemblyID int64) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, position FROM assembly_slides WHERE assembly_id = ? ORDER BY position`, assemblyID)
	if err != nil {
		return err
	}
	var prev, next sequence
	var stored []int
	for rows.Next() {
		var id int64
		var pos int
		if err := rows.Scan(&id, &pos); err != nil {
			rows.Close()
			return err
		}
		next = append(next, id)
		stored = append(stored, pos)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	// prev records each entry at its stored position so that only entries
	// after a hole are rewritten.
	prev = make(sequence, 0, len(next))
	for i, id := range next {
		if stored[i] == i {
			prev = append(prev, id)
		} else {
			break
		}
	}
	return applySequence(ctx, tx, assemblyID, prev, next)
}
