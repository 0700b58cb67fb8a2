package ingest

import (
	"context"
	"errors"
	"log/slog"

	dserrors "github.com/Aman-CERP/deckstore/internal/errors"
	"github.com/Aman-CERP/deckstore/internal/store"
)

// Importer writes manifests into a store, one transaction per manifest.
type Importer struct {
	store  *store.Store
	logger *slog.Logger
	retry  dserrors.RetryConfig

	// OnProgress, if set, is called by ImportAll after each manifest.
	OnProgress func(done, total int, source string)
}

// NewImporter creates an importer. A nil logger means slog.Default().
func NewImporter(s *store.Store, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{store: s, logger: logger, retry: dserrors.DefaultRetryConfig()}
}

// Outcome is the result of importing one manifest.
type Outcome struct {
	Source  string
	Project *store.Project
	Result  *store.ImportResult
	Err     error
}

// Import resolves the manifest's project by name, creating it if needed,
// and imports the file. Transient store failures are retried.
func (imp *Importer) Import(ctx context.Context, m *Manifest) (*store.Project, *store.ImportResult, error) {
	project, err := imp.resolveProject(ctx, m.Project)
	if err != nil {
		return nil, nil, err
	}

	in := m.FileImport()
	var result *store.ImportResult
	err = dserrors.Retry(ctx, imp.retry, func() error {
		var err error
		result, err = imp.store.ImportFile(ctx, project.ID, in)
		return err
	})
	if err != nil {
		imp.logger.Warn("manifest_import_failed",
			slog.String("source", m.Source),
			slog.String("code", dserrors.GetCode(err)),
			slog.String("error", err.Error()))
		return project, nil, err
	}

	imp.logger.Info("manifest_imported",
		slog.String("source", m.Source),
		slog.Int64("project_id", project.ID),
		slog.Int64("file_id", result.File.ID),
		slog.Int("slides", len(result.SlideIDs)))
	return project, result, nil
}

// ImportAll imports manifests in order. A failure does not stop the rest;
// each manifest gets an Outcome. Cancellation stops before the next manifest.
func (imp *Importer) ImportAll(ctx context.Context, manifests []*Manifest) []Outcome {
	out := make([]Outcome, 0, len(manifests))
	for i, m := range manifests {
		if err := ctx.Err(); err != nil {
			out = append(out, Outcome{Source: m.Source, Err: err})
		} else {
			p, r, err := imp.Import(ctx, m)
			out = append(out, Outcome{Source: m.Source, Project: p, Result: r, Err: err})
		}
		if imp.OnProgress != nil {
			imp.OnProgress(i+1, len(manifests), m.Source)
		}
	}
	return out
}

// resolveProject returns the named project, creating it on first use.
// A concurrent creator winning the race is tolerated.
func (imp *Importer) resolveProject(ctx context.Context, name string) (*store.Project, error) {
	p, err := imp.store.GetProjectByName(ctx, name)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, dserrors.ErrNotFound) {
		return nil, err
	}

	p, err = imp.store.CreateProject(ctx, name, "")
	if err == nil {
		imp.logger.Info("project_created_by_import", slog.String("name", name), slog.Int64("project_id", p.ID))
		return p, nil
	}
	if errors.Is(err, dserrors.ErrConstraintViolation) {
		return imp.store.GetProjectByName(ctx, name)
	}
	return nil, err
}
