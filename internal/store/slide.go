package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	dserrors "github.com/Aman-CERP/deckstore/internal/errors"
)

const slideColumns = `s.id, s.file_id, s.position, s.title, s.body, s.notes, s.thumbnail,
	s.ai_topic, s.ai_type, s.ai_insight, s.created_at, s.updated_at`

func scanSlide(row interface{ Scan(...any) error }, extra ...any) (*Slide, error) {
	var sl Slide
	var topic, typ, insight sql.NullString
	var created, updated int64
	dest := []any{
		&sl.ID, &sl.FileID, &sl.Position, &sl.Title, &sl.Body, &sl.Notes, &sl.Thumbnail,
		&topic, &typ, &insight, &created, &updated,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	sl.AITopic = nullStringPtr(topic)
	sl.AIType = nullStringPtr(typ)
	sl.AIInsight = nullStringPtr(insight)
	sl.CreatedAt = fromUnixNano(created)
	sl.UpdatedAt = fromUnixNano(updated)
	return &sl, nil
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func stringPtrArg(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// insertSlide writes a slide and its index row inside tx.
func (s *Store) insertSlide(ctx context.Context, tx *sql.Tx, fileID int64, ns NewSlide) (int64, error) {
	id, err := s.insertSlideRow(ctx, tx, fileID, ns)
	if err != nil {
		return 0, err
	}
	if err := syncSlide(ctx, tx, id); err != nil {
		return 0, err
	}
	return id, nil
}

// insertSlideRow writes a slide row only; the caller must index it before
// the transaction commits.
func (s *Store) insertSlideRow(ctx context.Context, tx *sql.Tx, fileID int64, ns NewSlide) (int64, error) {
	if ns.Position < 0 {
		return 0, dserrors.InvalidArgument("slide position must not be negative, got %d", ns.Position)
	}
	now := s.now()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO slides (file_id, position, title, body, notes, thumbnail,
			ai_topic, ai_type, ai_insight, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fileID, ns.Position, ns.Title, ns.Body, ns.Notes, ns.Thumbnail,
		stringPtrArg(ns.AITopic), stringPtrArg(ns.AIType), stringPtrArg(ns.AIInsight), now, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CreateSlide adds a slide to a file and indexes it. Fails with NotFound if
// the file does not exist and ConstraintViolation if the position is taken.
func (s *Store) CreateSlide(ctx context.Context, fileID int64, ns NewSlide) (*Slide, error) {
	var sl *Slide
	err := s.update(ctx, "create_slide", func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "files", "file", fileID); err != nil {
			return err
		}
		id, err := s.insertSlide(ctx, tx, fileID, ns)
		if err != nil {
			return err
		}
		sl, err = getSlideTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("slide_created",
		slog.Int64("slide_id", sl.ID),
		slog.Int64("file_id", fileID),
		slog.Int("position", sl.Position))
	return sl, nil
}

// GetSlide returns a slide by id.
func (s *Store) GetSlide(ctx context.Context, id int64) (*Slide, error) {
	var sl *Slide
	err := s.view(ctx, "get_slide", func(tx *sql.Tx) error {
		var err error
		sl, err = getSlideTx(ctx, tx, id)
		return err
	})
	return sl, err
}

func getSlideTx(ctx context.Context, tx *sql.Tx, id int64) (*Slide, error) {
	sl, err := scanSlide(tx.QueryRowContext(ctx, `SELECT `+slideColumns+` FROM slides s WHERE s.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dserrors.NotFound("slide", id)
	}
	return sl, err
}

// ListSlides returns a file's slides in position order.
func (s *Store) ListSlides(ctx context.Context, fileID int64) ([]*Slide, error) {
	var out []*Slide
	err := s.view(ctx, "list_slides", func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "files", "file", fileID); err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx, `
			SELECT `+slideColumns+` FROM slides s
			WHERE s.file_id = ?
			ORDER BY s.position, s.id`, fileID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			sl, err := scanSlide(rows)
			if err != nil {
				return err
			}
			out = append(out, sl)
		}
		return rows.Err()
	})
	return out, err
}

// UpdateSlide applies a partial update. Allowed fields: position, title,
// body, notes, thumbnail, ai_topic, ai_type, ai_insight; a nil value clears
// an ai_* field. Text changes re-index the slide in the same transaction.
func (s *Store) UpdateSlide(ctx context.Context, id int64, fields Fields) (*Slide, error) {
	plan, err := planUpdate("slide", fields, slideFields)
	if err != nil {
		return nil, err
	}
	if v, ok := plan.value("position"); ok && v.(int64) < 0 {
		return nil, dserrors.InvalidArgument("slide position must not be negative, got %d", v)
	}

	reindex := false
	for _, f := range slideSearchFields {
		if plan.has(f) {
			reindex = true
			break
		}
	}

	var sl *Slide
	err = s.update(ctx, "update_slide", func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "slides", "slide", id); err != nil {
			return err
		}
		set, args := plan.setClause()
		args = append(args, s.now(), id)
		if _, err := tx.ExecContext(ctx, `UPDATE slides SET `+set+`, updated_at = ? WHERE id = ?`, args...); err != nil {
			return err
		}
		if reindex {
			if err := syncSlide(ctx, tx, id); err != nil {
				return err
			}
		}
		sl, err = getSlideTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("slide_updated",
		slog.Int64("slide_id", id),
		slog.Int("fields", len(plan)),
		slog.Bool("reindexed", reindex))
	return sl, nil
}
