package store

import (
	"context"
	"database/sql"
	"log/slog"
	"strconv"
	"time"

	dserrors "github.com/Aman-CERP/deckstore/internal/errors"
)

// ImportFile writes a whole presentation (file, slides, elements, keyword
// links, index rows) in one transaction. Keywords are found or created by
// text, case-insensitively. A zero declared slide count defaults to the
// number of slides. If ctx is cancelled mid-import nothing is written.
func (s *Store) ImportFile(ctx context.Context, projectID int64, in FileImport) (*ImportResult, error) {
	if in.File.SlideCount == 0 {
		in.File.SlideCount = len(in.Slides)
	}
	if err := validateNewFile(in.File); err != nil {
		return nil, err
	}
	for i, si := range in.Slides {
		if si.Slide.Position < 0 {
			return nil, dserrors.InvalidArgument("slide %d: position must not be negative, got %d", i, si.Slide.Position)
		}
		for j, ne := range si.Elements {
			if err := validateNewElement(ne); err != nil {
				return nil, dserrors.InvalidArgument("slide %d element %d: %s", i, j, err.Error())
			}
		}
	}

	start := time.Now()
	var result *ImportResult
	err := s.update(ctx, "import_file", func(tx *sql.Tx) error {
		f, err := s.insertFile(ctx, tx, projectID, in.File)
		if err != nil {
			return err
		}
		result = &ImportResult{File: f}

		keywordSeen := make(map[int64]struct{})
		now := s.now()
		for i, si := range in.Slides {
			if err := ctx.Err(); err != nil {
				return err
			}

			slideID, err := s.insertSlideRow(ctx, tx, f.ID, si.Slide)
			if err != nil {
				return wrapImportErr(i, err)
			}
			result.SlideIDs = append(result.SlideIDs, slideID)

			for _, ne := range si.Elements {
				elemID, err := insertElement(ctx, tx, slideID, ne)
				if err != nil {
					return wrapImportErr(i, err)
				}
				result.ElementIDs = append(result.ElementIDs, elemID)
			}

			for _, text := range si.Keywords {
				kw, err := s.findOrCreateKeyword(ctx, tx, projectID, text)
				if err != nil {
					return wrapImportErr(i, err)
				}
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO slide_keywords (slide_id, keyword_id, created_at) VALUES (?, ?, ?)
					ON CONFLICT (slide_id, keyword_id) DO NOTHING`, slideID, kw.ID, now); err != nil {
					return err
				}
				if _, dup := keywordSeen[kw.ID]; !dup {
					keywordSeen[kw.ID] = struct{}{}
					result.KeywordIDs = append(result.KeywordIDs, kw.ID)
				}
			}

			if err := syncSlide(ctx, tx, slideID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("import_rolled_back",
			slog.Int64("project_id", projectID),
			slog.String("original_path", in.File.OriginalPath),
			slog.String("error", err.Error()))
		return nil, err
	}

	s.logger.Info("import_committed",
		slog.Int64("project_id", projectID),
		slog.Int64("file_id", result.File.ID),
		slog.Int("slides", len(result.SlideIDs)),
		slog.Int("elements", len(result.ElementIDs)),
		slog.Int("keywords", len(result.KeywordIDs)),
		slog.Duration("duration", time.Since(start)))
	return result, nil
}

// wrapImportErr adds the slide index to caller errors so the importer can
// point at the offending manifest entry. Other errors pass through.
func wrapImportErr(slide int, err error) error {
	se, ok := dserrors.As(err)
	if !ok {
		return err
	}
	switch se.Code {
	case dserrors.ErrCodeInvalidArgument, dserrors.ErrCodeNotFound:
		se.Message = "slide " + strconv.Itoa(slide) + ": " + se.Message
	}
	return se
}
