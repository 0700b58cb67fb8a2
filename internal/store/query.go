package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	dserrors "github.com/Aman-CERP/deckstore/internal/errors"
)

// MatchMode selects how multiple keyword filters combine.
type MatchMode string

const (
	// MatchAll keeps slides tagged with every given keyword.
	MatchAll MatchMode = "all"
	// MatchAny keeps slides tagged with at least one given keyword.
	MatchAny MatchMode = "any"
)

// ParseMatchMode parses "all" or "any" (case-insensitive).
func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case MatchAll:
		return MatchAll, nil
	case MatchAny:
		return MatchAny, nil
	}
	return "", dserrors.InvalidArgument("keyword match must be %q or %q, got %q", MatchAll, MatchAny, s)
}

// Query describes a filtered, ranked, paginated slide lookup. Zero values
// mean "no filter".
type Query struct {
	// ProjectID scopes results to one project; 0 searches every project.
	ProjectID int64

	// Text is free text matched through the search index. Empty means no
	// text filter; text without any letters or digits matches nothing.
	Text string

	// KeywordIDs filters by slide keywords, combined per KeywordMatch.
	KeywordIDs []int64

	// KeywordMatch overrides the store's default match mode.
	KeywordMatch MatchMode

	// ImportedFrom and ImportedTo bound the owning file's import time,
	// [from, to). Zero times are unbounded.
	ImportedFrom time.Time
	ImportedTo   time.Time

	// AIType keeps slides whose AI-assigned type equals this value.
	AIType string

	Limit  int
	Offset int

	// Highlight computes term positions in title and body for text queries.
	Highlight bool
}

// Hit is one slide of a query result.
type Hit struct {
	Slide      *Slide
	Score      float64 // bm25 for text queries (lower is better), 0 otherwise
	Highlights []Highlight
}

// Result is one page of a query. Truncated reports that more hits exist
// past this page.
type Result struct {
	Hits      []Hit
	Total     int
	Limit     int
	Offset    int
	Truncated bool
}

// effectiveLimit applies the default and maximum page sizes.
func (s *Store) effectiveLimit(limit int) int {
	if limit <= 0 {
		return s.opts.DefaultLimit
	}
	if limit > s.opts.MaxLimit {
		return s.opts.MaxLimit
	}
	return limit
}

// Query runs a composed slide query. Text results are ordered by relevance,
// other results by slide id; ties always break on slide id so that paging is
// stable. Count and page are read from the same snapshot.
func (s *Store) Query(ctx context.Context, q Query) (*Result, error) {
	res := &Result{Limit: s.effectiveLimit(q.Limit), Offset: q.Offset}
	if res.Offset < 0 {
		return nil, dserrors.InvalidArgument("offset must not be negative, got %d", q.Offset)
	}
	if !q.ImportedFrom.IsZero() && !q.ImportedTo.IsZero() && !q.ImportedFrom.Before(q.ImportedTo) {
		return nil, dserrors.InvalidArgument("imported_from must be before imported_to")
	}

	mode := q.KeywordMatch
	if mode == "" {
		mode = s.opts.KeywordMatch
	}
	if mode != MatchAll && mode != MatchAny {
		return nil, dserrors.InvalidArgument("unknown keyword match mode %q", mode)
	}

	var terms []string
	text := strings.TrimSpace(q.Text)
	if text != "" {
		terms = s.tokenizer.Tokenize(text)
		if len(terms) == 0 {
			return res, nil
		}
	}

	from, where, args := buildQuery(q, mode, s.tokenizer.MatchExpression(text))

	order := `s.id`
	scoreCol := `0.0`
	if len(terms) > 0 {
		order = `bm25(slide_search), s.id`
		scoreCol = `bm25(slide_search)`
	}

	err := s.view(ctx, "query", func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) `+from+where, args...).Scan(&res.Total); err != nil {
			return fmt.Errorf("count: %w", err)
		}
		if res.Total == 0 || res.Offset >= res.Total {
			return nil
		}

		pageArgs := append(append([]any{}, args...), res.Limit, res.Offset)
		rows, err := tx.QueryContext(ctx,
			`SELECT `+slideColumns+`, `+scoreCol+` `+from+where+` ORDER BY `+order+` LIMIT ? OFFSET ?`,
			pageArgs...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var h Hit
			sl, err := scanSlide(rows, &h.Score)
			if err != nil {
				return err
			}
			h.Slide = sl
			res.Hits = append(res.Hits, h)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	if q.Highlight && len(terms) > 0 {
		for i := range res.Hits {
			hl, err := s.highlight.highlightSlide(terms, res.Hits[i].Slide)
			if err != nil {
				// Highlights are decoration; the result stands without them.
				s.logger.Warn("highlight_failed", slog.String("error", err.Error()))
				break
			}
			res.Hits[i].Highlights = hl
		}
	}

	res.Truncated = res.Offset+len(res.Hits) < res.Total

	s.logger.Debug("query_executed",
		slog.Int("terms", len(terms)),
		slog.Int("keywords", len(q.KeywordIDs)),
		slog.Int("total", res.Total),
		slog.Int("returned", len(res.Hits)))
	return res, nil
}

// buildQuery renders the FROM and WHERE clauses shared by the count and page
// statements.
func buildQuery(q Query, mode MatchMode, matchExpr string) (from, where string, args []any) {
	var conds []string

	if matchExpr != "" {
		from = `FROM slide_search JOIN slides s ON s.id = slide_search.rowid JOIN files f ON f.id = s.file_id`
		conds = append(conds, `slide_search MATCH ?`)
		args = append(args, matchExpr)
	} else {
		from = `FROM slides s JOIN files f ON f.id = s.file_id`
	}

	if q.ProjectID != 0 {
		conds = append(conds, `f.project_id = ?`)
		args = append(args, q.ProjectID)
	}
	if !q.ImportedFrom.IsZero() {
		conds = append(conds, `f.imported_at >= ?`)
		args = append(args, q.ImportedFrom.UnixNano())
	}
	if !q.ImportedTo.IsZero() {
		conds = append(conds, `f.imported_at < ?`)
		args = append(args, q.ImportedTo.UnixNano())
	}
	if q.AIType != "" {
		conds = append(conds, `s.ai_type = ?`)
		args = append(args, q.AIType)
	}

	if ids := dedupeIDs(q.KeywordIDs); len(ids) > 0 {
		ph := placeholders(len(ids))
		if mode == MatchAny {
			conds = append(conds, `EXISTS (SELECT 1 FROM slide_keywords sk
				WHERE sk.slide_id = s.id AND sk.keyword_id IN (`+ph+`))`)
		} else {
			conds = append(conds, `(SELECT COUNT(*) FROM slide_keywords sk
				WHERE sk.slide_id = s.id AND sk.keyword_id IN (`+ph+`)) = ?`)
		}
		for _, id := range ids {
			args = append(args, id)
		}
		if mode != MatchAny {
			args = append(args, len(ids))
		}
	}

	if len(conds) > 0 {
		where = ` WHERE ` + strings.Join(conds, ` AND `)
	}
	return from, where, args
}

func dedupeIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
