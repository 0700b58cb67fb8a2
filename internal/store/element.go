package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	dserrors "github.com/Aman-CERP/deckstore/internal/errors"
)

const elementColumns = `id, slide_id, type, x, y, width, height, text`

func scanElement(row interface{ Scan(...any) error }) (*Element, error) {
	var e Element
	var text sql.NullString
	if err := row.Scan(&e.ID, &e.SlideID, &e.Type, &e.Box.X, &e.Box.Y, &e.Box.Width, &e.Box.Height, &text); err != nil {
		return nil, err
	}
	e.Text = nullStringPtr(text)
	return &e, nil
}

func validateNewElement(ne NewElement) error {
	if strings.TrimSpace(ne.Type) == "" {
		return dserrors.InvalidArgument("element type must not be empty")
	}
	if ne.Box.Width < 0 || ne.Box.Height < 0 {
		return dserrors.InvalidArgument("element size must not be negative, got %gx%g", ne.Box.Width, ne.Box.Height)
	}
	return nil
}

// insertElement writes an element inside tx. The caller re-indexes the slide.
func insertElement(ctx context.Context, tx *sql.Tx, slideID int64, ne NewElement) (int64, error) {
	if err := validateNewElement(ne); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO elements (slide_id, type, x, y, width, height, text)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		slideID, ne.Type, ne.Box.X, ne.Box.Y, ne.Box.Width, ne.Box.Height, stringPtrArg(ne.Text))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CreateElement adds an element to a slide. Element text is searchable, so
// the slide is re-indexed when text is present.
func (s *Store) CreateElement(ctx context.Context, slideID int64, ne NewElement) (*Element, error) {
	if err := validateNewElement(ne); err != nil {
		return nil, err
	}

	var e *Element
	err := s.update(ctx, "create_element", func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "slides", "slide", slideID); err != nil {
			return err
		}
		id, err := insertElement(ctx, tx, slideID, ne)
		if err != nil {
			return err
		}
		if ne.Text != nil && *ne.Text != "" {
			if err := syncSlide(ctx, tx, slideID); err != nil {
				return err
			}
		}
		e, err = getElementTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("element_created",
		slog.Int64("element_id", e.ID),
		slog.Int64("slide_id", slideID),
		slog.String("type", e.Type))
	return e, nil
}

// GetElement returns an element by id.
func (s *Store) GetElement(ctx context.Context, id int64) (*Element, error) {
	var e *Element
	err := s.view(ctx, "get_element", func(tx *sql.Tx) error {
		var err error
		e, err = getElementTx(ctx, tx, id)
		return err
	})
	return e, err
}

func getElementTx(ctx context.Context, tx *sql.Tx, id int64) (*Element, error) {
	e, err := scanElement(tx.QueryRowContext(ctx, `SELECT `+elementColumns+` FROM elements WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dserrors.NotFound("element", id)
	}
	return e, err
}

// ListElements returns a slide's elements ordered by id.
func (s *Store) ListElements(ctx context.Context, slideID int64) ([]*Element, error) {
	var out []*Element
	err := s.view(ctx, "list_elements", func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "slides", "slide", slideID); err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx,
			`SELECT `+elementColumns+` FROM elements WHERE slide_id = ? ORDER BY id`, slideID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			e, err := scanElement(rows)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	})
	return out, err
}

// UpdateElement applies a partial update. Allowed fields: type, x, y, width,
// height, text.
func (s *Store) UpdateElement(ctx context.Context, id int64, fields Fields) (*Element, error) {
	plan, err := planUpdate("element", fields, elementFields)
	if err != nil {
		return nil, err
	}
	if v, ok := plan.value("type"); ok && strings.TrimSpace(v.(string)) == "" {
		return nil, dserrors.InvalidArgument("element type must not be empty")
	}
	for _, dim := range []string{"width", "height"} {
		if v, ok := plan.value(dim); ok && v.(float64) < 0 {
			return nil, dserrors.InvalidArgument("element %s must not be negative, got %g", dim, v)
		}
	}

	var e *Element
	err = s.update(ctx, "update_element", func(tx *sql.Tx) error {
		e, err = getElementTx(ctx, tx, id)
		if err != nil {
			return err
		}
		set, args := plan.setClause()
		if _, err := tx.ExecContext(ctx, `UPDATE elements SET `+set+` WHERE id = ?`, append(args, id)...); err != nil {
			return err
		}
		if plan.has("text") {
			if err := syncSlide(ctx, tx, e.SlideID); err != nil {
				return err
			}
		}
		e, err = getElementTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}
