package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	dserrors "github.com/Aman-CERP/deckstore/internal/errors"
)

const projectColumns = `id, name, root_path, created_at`

func scanProject(row interface{ Scan(...any) error }) (*Project, error) {
	var p Project
	var created int64
	if err := row.Scan(&p.ID, &p.Name, &p.RootPath, &created); err != nil {
		return nil, err
	}
	p.CreatedAt = fromUnixNano(created)
	return &p, nil
}

// CreateProject creates a project. Names are unique.
func (s *Store) CreateProject(ctx context.Context, name, rootPath string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dserrors.InvalidArgument("project name must not be empty")
	}

	var p *Project
	err := s.update(ctx, "create_project", func(tx *sql.Tx) error {
		now := s.now()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO projects (name, root_path, created_at) VALUES (?, ?, ?)`,
			name, rootPath, now)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		p = &Project{ID: id, Name: name, RootPath: rootPath, CreatedAt: fromUnixNano(now)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("project_created", slog.Int64("project_id", p.ID), slog.String("name", name))
	return p, nil
}

// GetProject returns a project by id.
func (s *Store) GetProject(ctx context.Context, id int64) (*Project, error) {
	var p *Project
	err := s.view(ctx, "get_project", func(tx *sql.Tx) error {
		var err error
		p, err = scanProject(tx.QueryRowContext(ctx,
			`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return dserrors.NotFound("project", id)
		}
		return err
	})
	return p, err
}

// GetProjectByName returns the project with the given name.
func (s *Store) GetProjectByName(ctx context.Context, name string) (*Project, error) {
	name = strings.TrimSpace(name)
	var p *Project
	err := s.view(ctx, "get_project_by_name", func(tx *sql.Tx) error {
		var err error
		p, err = scanProject(tx.QueryRowContext(ctx,
			`SELECT `+projectColumns+` FROM projects WHERE name = ?`, name))
		if errors.Is(err, sql.ErrNoRows) {
			return dserrors.New(dserrors.ErrCodeNotFound, "project "+name+" not found", nil).
				WithDetail("entity", "project").
				WithDetail("name", name)
		}
		return err
	})
	return p, err
}

// ListProjects returns all projects ordered by id.
func (s *Store) ListProjects(ctx context.Context) ([]*Project, error) {
	var out []*Project
	err := s.view(ctx, "list_projects", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY id`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			p, err := scanProject(rows)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	return out, err
}

// UpdateProject applies a partial update. Allowed fields: name, root_path.
func (s *Store) UpdateProject(ctx context.Context, id int64, fields Fields) (*Project, error) {
	plan, err := planUpdate("project", fields, projectFields)
	if err != nil {
		return nil, err
	}
	if v, ok := plan.value("name"); ok {
		name := strings.TrimSpace(v.(string))
		if name == "" {
			return nil, dserrors.InvalidArgument("project name must not be empty")
		}
		plan = withValue(plan, "name", name)
	}

	var p *Project
	err = s.update(ctx, "update_project", func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "projects", "project", id); err != nil {
			return err
		}
		set, args := plan.setClause()
		if _, err := tx.ExecContext(ctx, `UPDATE projects SET `+set+` WHERE id = ?`, append(args, id)...); err != nil {
			return err
		}
		p, err = scanProject(tx.QueryRowContext(ctx,
			`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// withValue returns plan with field's value replaced.
func withValue(plan updatePlan, field string, v any) updatePlan {
	for i := range plan {
		if plan[i].field == field {
			plan[i].value = v
		}
	}
	return plan
}
