package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	dserrors "github.com/Aman-CERP/deckstore/internal/errors"
)

const keywordColumns = `id, project_id, text, color, created_at`

var colorRegex = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

func scanKeyword(row interface{ Scan(...any) error }) (*Keyword, error) {
	var k Keyword
	var created int64
	if err := row.Scan(&k.ID, &k.ProjectID, &k.Text, &k.Color, &created); err != nil {
		return nil, err
	}
	k.CreatedAt = fromUnixNano(created)
	return &k, nil
}

// normalizeKeywordText trims text and rejects empty keywords.
func normalizeKeywordText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", dserrors.InvalidArgument("keyword text must not be empty")
	}
	return text, nil
}

// normalizeColor returns the default color for "" and rejects anything that
// is not #RRGGBB.
func normalizeColor(color string) (string, error) {
	color = strings.TrimSpace(color)
	if color == "" {
		return DefaultKeywordColor, nil
	}
	if !colorRegex.MatchString(color) {
		return "", dserrors.InvalidArgument("keyword color must be #RRGGBB, got %q", color)
	}
	return strings.ToUpper(color), nil
}

func keywordConflict(text string, cause error) error {
	return dserrors.ConstraintViolation("keyword "+text+" already exists in this project", cause).
		WithDetail("text", text)
}

// CreateKeyword adds a keyword to a project. Text is unique per project,
// compared case-insensitively; a duplicate is a ConstraintViolation.
func (s *Store) CreateKeyword(ctx context.Context, projectID int64, text, color string) (*Keyword, error) {
	text, err := normalizeKeywordText(text)
	if err != nil {
		return nil, err
	}
	color, err = normalizeColor(color)
	if err != nil {
		return nil, err
	}

	var k *Keyword
	err = s.update(ctx, "create_keyword", func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "projects", "project", projectID); err != nil {
			return err
		}
		existing, err := findKeywordTx(ctx, tx, projectID, text)
		if err != nil {
			return err
		}
		if existing != nil {
			return keywordConflict(text, nil)
		}
		k, err = s.insertKeyword(ctx, tx, projectID, text, color)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("keyword_created",
		slog.Int64("keyword_id", k.ID),
		slog.Int64("project_id", projectID),
		slog.String("text", text))
	return k, nil
}

func (s *Store) insertKeyword(ctx context.Context, tx *sql.Tx, projectID int64, text, color string) (*Keyword, error) {
	now := s.now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO keywords (project_id, text, color, created_at) VALUES (?, ?, ?, ?)`,
		projectID, text, color, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Keyword{ID: id, ProjectID: projectID, Text: text, Color: color, CreatedAt: fromUnixNano(now)}, nil
}

// findOrCreateKeyword returns the project's keyword matching text, creating
// it with the default color if absent.
func (s *Store) findOrCreateKeyword(ctx context.Context, tx *sql.Tx, projectID int64, text string) (*Keyword, error) {
	text, err := normalizeKeywordText(text)
	if err != nil {
		return nil, err
	}
	k, err := findKeywordTx(ctx, tx, projectID, text)
	if err != nil || k != nil {
		return k, err
	}
	return s.insertKeyword(ctx, tx, projectID, text, DefaultKeywordColor)
}

// findKeywordTx returns nil, nil when no keyword matches.
func findKeywordTx(ctx context.Context, tx *sql.Tx, projectID int64, text string) (*Keyword, error) {
	k, err := scanKeyword(tx.QueryRowContext(ctx,
		`SELECT `+keywordColumns+` FROM keywords WHERE project_id = ? AND text = ?`,
		projectID, strings.TrimSpace(text)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return k, err
}

func getKeywordTx(ctx context.Context, tx *sql.Tx, id int64) (*Keyword, error) {
	k, err := scanKeyword(tx.QueryRowContext(ctx, `SELECT `+keywordColumns+` FROM keywords WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dserrors.NotFound("keyword", id)
	}
	return k, err
}

// GetKeyword returns a keyword by id.
func (s *Store) GetKeyword(ctx context.Context, id int64) (*Keyword, error) {
	var k *Keyword
	err := s.view(ctx, "get_keyword", func(tx *sql.Tx) error {
		var err error
		k, err = getKeywordTx(ctx, tx, id)
		return err
	})
	return k, err
}

// FindKeyword looks a keyword up by text, case-insensitively.
func (s *Store) FindKeyword(ctx context.Context, projectID int64, text string) (*Keyword, error) {
	var k *Keyword
	err := s.view(ctx, "find_keyword", func(tx *sql.Tx) error {
		var err error
		k, err = findKeywordTx(ctx, tx, projectID, text)
		if err == nil && k == nil {
			return dserrors.New(dserrors.ErrCodeNotFound, "keyword "+strings.TrimSpace(text)+" not found", nil).
				WithDetail("entity", "keyword")
		}
		return err
	})
	return k, err
}

// ListKeywords returns a project's keywords ordered by text.
func (s *Store) ListKeywords(ctx context.Context, projectID int64) ([]*Keyword, error) {
	var out []*Keyword
	err := s.view(ctx, "list_keywords", func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "projects", "project", projectID); err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx,
			`SELECT `+keywordColumns+` FROM keywords WHERE project_id = ? ORDER BY text, id`, projectID)
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

// UpdateKeyword applies a partial update. Allowed fields: text, color.
// Renaming re-indexes every slide the keyword is linked to.
func (s *Store) UpdateKeyword(ctx context.Context, id int64, fields Fields) (*Keyword, error) {
	plan, err := planUpdate("keyword", fields, keywordFields)
	if err != nil {
		return nil, err
	}
	if v, ok := plan.value("text"); ok {
		text, err := normalizeKeywordText(v.(string))
		if err != nil {
			return nil, err
		}
		plan = withValue(plan, "text", text)
	}
	if v, ok := plan.value("color"); ok {
		color, err := normalizeColor(v.(string))
		if err != nil {
			return nil, err
		}
		plan = withValue(plan, "color", color)
	}

	var k *Keyword
	var affected int
	err = s.update(ctx, "update_keyword", func(tx *sql.Tx) error {
		current, err := getKeywordTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if v, ok := plan.value("text"); ok {
			other, err := findKeywordTx(ctx, tx, current.ProjectID, v.(string))
			if err != nil {
				return err
			}
			if other != nil && other.ID != id {
				return keywordConflict(v.(string), nil)
			}
		}

		set, args := plan.setClause()
		if _, err := tx.ExecContext(ctx, `UPDATE keywords SET `+set+` WHERE id = ?`, append(args, id)...); err != nil {
			return err
		}

		if plan.has("text") {
			ids, err := slidesReachedByKeyword(ctx, tx, id)
			if err != nil {
				return err
			}
			affected = len(ids)
			if err := syncSlides(ctx, tx, ids); err != nil {
				return err
			}
		}

		k, err = getKeywordTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("keyword_updated",
		slog.Int64("keyword_id", id),
		slog.Int("slides_reindexed", affected))
	return k, nil
}

// slidesReachedByKeyword returns the slides whose search blob contains the
// keyword's text: those linked to it directly.
func slidesReachedByKeyword(ctx context.Context, q queryer, keywordID int64) ([]int64, error) {
	return queryIDs(ctx, q, `SELECT slide_id FROM slide_keywords WHERE keyword_id = ? ORDER BY slide_id`, keywordID)
}

// UsageCount returns how many slides and elements a keyword is linked to.
func (s *Store) UsageCount(ctx context.Context, keywordID int64) (int, error) {
	var n int
	err := s.view(ctx, "keyword_usage", func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "keywords", "keyword", keywordID); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `
			SELECT (SELECT COUNT(*) FROM slide_keywords WHERE keyword_id = ?)
			     + (SELECT COUNT(*) FROM element_keywords WHERE keyword_id = ?)`,
			keywordID, keywordID).Scan(&n)
	})
	return n, err
}
