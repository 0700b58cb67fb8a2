package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	dserrors "github.com/Aman-CERP/deckstore/internal/errors"
)

// slideProject returns the project owning a slide.
func slideProject(ctx context.Context, tx *sql.Tx, slideID int64) (int64, error) {
	var projectID int64
	err := tx.QueryRowContext(ctx, `
		SELECT f.project_id FROM slides s JOIN files f ON f.id = s.file_id
		WHERE s.id = ?`, slideID).Scan(&projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, dserrors.NotFound("slide", slideID)
	}
	return projectID, err
}

// elementProject returns the project owning an element and its slide id.
func elementProject(ctx context.Context, tx *sql.Tx, elementID int64) (projectID, slideID int64, err error) {
	err = tx.QueryRowContext(ctx, `
		SELECT f.project_id, e.slide_id FROM elements e
		JOIN slides s ON s.id = e.slide_id
		JOIN files f ON f.id = s.file_id
		WHERE e.id = ?`, elementID).Scan(&projectID, &slideID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, dserrors.NotFound("element", elementID)
	}
	return projectID, slideID, err
}

func checkSameProject(kw *Keyword, projectID int64, target string, targetID int64) error {
	if kw.ProjectID != projectID {
		return dserrors.InvalidArgument("keyword %d belongs to project %d, %s %d to project %d",
			kw.ID, kw.ProjectID, target, targetID, projectID)
	}
	return nil
}

// linkSlideTx links a keyword to a slide and re-indexes the slide when a new
// link row was written. Reports whether a row was inserted.
func linkSlideTx(ctx context.Context, tx *sql.Tx, slideID, keywordID, now int64) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO slide_keywords (slide_id, keyword_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT (slide_id, keyword_id) DO NOTHING`, slideID, keywordID, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	return true, syncSlide(ctx, tx, slideID)
}

// LinkSlide tags a slide with a keyword. Linking an existing pair is a no-op.
// The keyword text becomes searchable on the slide in the same transaction.
func (s *Store) LinkSlide(ctx context.Context, slideID, keywordID int64) error {
	var inserted bool
	err := s.update(ctx, "link_slide", func(tx *sql.Tx) error {
		projectID, err := slideProject(ctx, tx, slideID)
		if err != nil {
			return err
		}
		kw, err := getKeywordTx(ctx, tx, keywordID)
		if err != nil {
			return err
		}
		if err := checkSameProject(kw, projectID, "slide", slideID); err != nil {
			return err
		}
		inserted, err = linkSlideTx(ctx, tx, slideID, keywordID, s.now())
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Debug("slide_linked",
		slog.Int64("slide_id", slideID),
		slog.Int64("keyword_id", keywordID),
		slog.Bool("new", inserted))
	return nil
}

// UnlinkSlide removes a slide tag. Removing an absent link is a no-op, even
// when the slide or keyword itself no longer exists.
func (s *Store) UnlinkSlide(ctx context.Context, slideID, keywordID int64) error {
	return s.update(ctx, "unlink_slide", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM slide_keywords WHERE slide_id = ? AND keyword_id = ?`, slideID, keywordID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		return syncSlide(ctx, tx, slideID)
	})
}

// LinkElement tags an element with a keyword. Linking an existing pair is a
// no-op.
func (s *Store) LinkElement(ctx context.Context, elementID, keywordID int64) error {
	return s.update(ctx, "link_element", func(tx *sql.Tx) error {
		projectID, _, err := elementProject(ctx, tx, elementID)
		if err != nil {
			return err
		}
		kw, err := getKeywordTx(ctx, tx, keywordID)
		if err != nil {
			return err
		}
		if err := checkSameProject(kw, projectID, "element", elementID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO element_keywords (element_id, keyword_id, created_at) VALUES (?, ?, ?)
			ON CONFLICT (element_id, keyword_id) DO NOTHING`, elementID, keywordID, s.now())
		return err
	})
}

// UnlinkElement removes an element tag. Removing an absent link is a no-op.
func (s *Store) UnlinkElement(ctx context.Context, elementID, keywordID int64) error {
	return s.update(ctx, "unlink_element", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM element_keywords WHERE element_id = ? AND keyword_id = ?`, elementID, keywordID)
		return err
	})
}

// KeywordsForSlide returns a slide's keywords ordered by text.
func (s *Store) KeywordsForSlide(ctx context.Context, slideID int64) ([]*Keyword, error) {
	return s.keywordsFor(ctx, "slides", "slide", slideID, `
		SELECT k.id, k.project_id, k.text, k.color, k.created_at
		FROM slide_keywords sk JOIN keywords k ON k.id = sk.keyword_id
		WHERE sk.slide_id = ?
		ORDER BY k.text, k.id`)
}

// KeywordsForElement returns an element's keywords ordered by text.
func (s *Store) KeywordsForElement(ctx context.Context, elementID int64) ([]*Keyword, error) {
	return s.keywordsFor(ctx, "elements", "element", elementID, `
		SELECT k.id, k.project_id, k.text, k.color, k.created_at
		FROM element_keywords ek JOIN keywords k ON k.id = ek.keyword_id
		WHERE ek.element_id = ?
		ORDER BY k.text, k.id`)
}

func (s *Store) keywordsFor(ctx context.Context, table, entity string, id int64, query string) ([]*Keyword, error) {
	var out []*Keyword
	err := s.view(ctx, "keywords_for_"+entity, func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, table, entity, id); err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx, query, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			k, err := scanKeyword(rows)
			if err != nil {
				return err
			}
			out = append(out, k)
		}
		return rows.Err()
	})
	return out, err
}

// SlidesForKeyword returns the slides tagged with a keyword, ordered by id.
func (s *Store) SlidesForKeyword(ctx context.Context, keywordID int64) ([]*Slide, error) {
	var out []*Slide
	err := s.view(ctx, "slides_for_keyword", func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "keywords", "keyword", keywordID); err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx, `
			SELECT `+slideColumns+`
			FROM slide_keywords sk JOIN slides s ON s.id = sk.slide_id
			WHERE sk.keyword_id = ?
			ORDER BY s.id`, keywordID)
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
