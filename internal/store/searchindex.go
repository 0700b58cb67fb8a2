package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	dserrors "github.com/Aman-CERP/deckstore/internal/errors"
)

// The search index holds one slide_search row per slide, rowid = slide id.
// Every write that changes a slide's searchable text calls syncSlide (or
// removeSlideIndex) with the writer's transaction, so the index row commits or
// rolls back together with the source rows.

// SearchHit is one ranked result of Search. Lower scores rank first.
type SearchHit struct {
	SlideID int64
	Score   float64
}

// SearchResult is one page of Search. Limit is the page size actually
// applied; Truncated reports that more hits exist past this page.
type SearchResult struct {
	Hits      []SearchHit
	Total     int
	Limit     int
	Offset    int
	Truncated bool
}

// slideBlob computes the searchable text of a slide: title, body, notes,
// AI topic and insight, linked keyword texts, then element texts.
// Returns found=false if the slide does not exist.
func slideBlob(ctx context.Context, q queryer, slideID int64) (blob string, found bool, err error) {
	var title, body, notes, topic, insight string
	err = q.QueryRowContext(ctx, `
		SELECT title, body, notes, COALESCE(ai_topic, ''), COALESCE(ai_insight, '')
		FROM slides WHERE id = ?`, slideID).Scan(&title, &body, &notes, &topic, &insight)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read slide %d: %w", slideID, err)
	}

	parts := []string{title, body, notes, topic, insight}

	keywords, err := queryStrings(ctx, q, `
		SELECT k.text FROM slide_keywords sk
		JOIN keywords k ON k.id = sk.keyword_id
		WHERE sk.slide_id = ?
		ORDER BY k.id`, slideID)
	if err != nil {
		return "", false, fmt.Errorf("read keywords of slide %d: %w", slideID, err)
	}
	parts = append(parts, keywords...)

	texts, err := queryStrings(ctx, q, `
		SELECT text FROM elements
		WHERE slide_id = ? AND text IS NOT NULL AND text != ''
		ORDER BY id`, slideID)
	if err != nil {
		return "", false, fmt.Errorf("read elements of slide %d: %w", slideID, err)
	}
	parts = append(parts, texts...)

	var sb strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(p)
	}
	return sb.String(), true, nil
}

// syncSlide replaces the index row of a slide with its current blob.
// A slide that no longer exists loses its row.
func syncSlide(ctx context.Context, tx *sql.Tx, slideID int64) error {
	blob, found, err := slideBlob(ctx, tx, slideID)
	if err != nil {
		return err
	}
	if err := removeSlideIndex(ctx, tx, slideID); err != nil {
		return err
	}
	if !found {
		return nil
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO slide_search (rowid, content) VALUES (?, ?)`, slideID, blob); err != nil {
		return fmt.Errorf("index slide %d: %w", slideID, err)
	}
	return nil
}

// syncSlides re-indexes each slide once.
func syncSlides(ctx context.Context, tx *sql.Tx, slideIDs []int64) error {
	seen := make(map[int64]struct{}, len(slideIDs))
	for _, id := range slideIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if err := syncSlide(ctx, tx, id); err != nil {
			return err
		}
	}
	return nil
}

func removeSlideIndex(ctx context.Context, tx *sql.Tx, slideID int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM slide_search WHERE rowid = ?`, slideID); err != nil {
		return fmt.Errorf("unindex slide %d: %w", slideID, err)
	}
	return nil
}

// Search runs a ranked full-text search. projectID 0 searches every project.
// Empty or term-less query text returns no hits. Ranking is bm25 with ties
// broken by slide id, so identical inputs give identical output. A limit
// above the configured maximum is clamped and reported in the result.
func (s *Store) Search(ctx context.Context, queryText string, projectID int64, limit, offset int) (*SearchResult, error) {
	if offset < 0 {
		return nil, dserrors.InvalidArgument("offset must not be negative, got %d", offset)
	}
	res := &SearchResult{Limit: s.effectiveLimit(limit), Offset: offset}
	expr := s.tokenizer.MatchExpression(queryText)
	if expr == "" {
		return res, nil
	}

	err := s.view(ctx, "search", func(tx *sql.Tx) error {
		const from = `
			FROM slide_search
			JOIN slides s ON s.id = slide_search.rowid
			JOIN files f ON f.id = s.file_id
			WHERE slide_search MATCH ? AND (? = 0 OR f.project_id = ?)`
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*)`+from, expr, projectID, projectID).Scan(&res.Total); err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx, `SELECT slide_search.rowid, bm25(slide_search)`+from+`
			ORDER BY bm25(slide_search), slide_search.rowid
			LIMIT ? OFFSET ?`, expr, projectID, projectID, res.Limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var h SearchHit
			if err := rows.Scan(&h.SlideID, &h.Score); err != nil {
				return err
			}
			res.Hits = append(res.Hits, h)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	res.Truncated = offset+len(res.Hits) < res.Total
	return res, nil
}

// IndexRow is a stored search row as seen by the consistency checker.
type IndexRow struct {
	SlideID int64
	Content string
}

// IndexSnapshot lists every index row and every slide's expected blob,
// read in one transaction.
func (s *Store) IndexSnapshot(ctx context.Context) (rows []IndexRow, expected map[int64]string, err error) {
	expected = make(map[int64]string)
	err = s.view(ctx, "index_snapshot", func(tx *sql.Tx) error {
		r, err := tx.QueryContext(ctx, `SELECT rowid, content FROM slide_search ORDER BY rowid`)
		if err != nil {
			return err
		}
		for r.Next() {
			var row IndexRow
			if err := r.Scan(&row.SlideID, &row.Content); err != nil {
				r.Close()
				return err
			}
			rows = append(rows, row)
		}
		if err := r.Err(); err != nil {
			r.Close()
			return err
		}
		r.Close()

		ids, err := queryIDs(ctx, tx, `SELECT id FROM slides ORDER BY id`)
		if err != nil {
			return err
		}
		for _, id := range ids {
			blob, found, err := slideBlob(ctx, tx, id)
			if err != nil {
				return err
			}
			if found {
				expected[id] = blob
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return rows, expected, nil
}

// ReindexSlides rebuilds the index rows of the given slide ids in one write
// transaction. Ids without a slide lose their row.
func (s *Store) ReindexSlides(ctx context.Context, slideIDs []int64) error {
	return s.update(ctx, "reindex", func(tx *sql.Tx) error {
		return syncSlides(ctx, tx, slideIDs)
	})
}

// queryer is satisfied by *sql.Tx and *sql.DB.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryStrings(ctx context.Context, q queryer, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func queryIDs(ctx context.Context, q queryer, query string, args ...any) ([]int64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
