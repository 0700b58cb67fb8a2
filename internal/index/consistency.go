// Package index checks and repairs the slide search index against the
// slide rows it is derived from.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	dserrors "github.com/Aman-CERP/deckstore/internal/errors"
	"github.com/Aman-CERP/deckstore/internal/store"
)

// InconsistencyType categorizes detected issues.
type InconsistencyType int

const (
	// InconsistencyOrphan indicates an index row without a matching slide.
	InconsistencyOrphan InconsistencyType = iota
	// InconsistencyMissing indicates a slide without an index row.
	InconsistencyMissing
	// InconsistencyStale indicates an index row whose content differs from
	// the slide's current searchable text.
	InconsistencyStale
)

// String returns a human-readable description of the inconsistency type.
func (t InconsistencyType) String() string {
	switch t {
	case InconsistencyOrphan:
		return "orphan"
	case InconsistencyMissing:
		return "missing"
	case InconsistencyStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Inconsistency represents one drifted index row.
type Inconsistency struct {
	Type    InconsistencyType
	SlideID int64
	Details string
}

// CheckResult contains the outcome of a consistency check.
type CheckResult struct {
	// Checked is the number of slides verified.
	Checked int
	// IndexRows is the number of rows found in the search index.
	IndexRows int
	// Inconsistencies contains all detected issues, ordered by slide id.
	Inconsistencies []Inconsistency
	// Duration is how long the check took.
	Duration time.Duration
}

// Consistent reports whether no issues were found.
func (r *CheckResult) Consistent() bool {
	return len(r.Inconsistencies) == 0
}

// Err returns a fatal CorruptIndex error describing the drift, or nil.
func (r *CheckResult) Err() error {
	if r.Consistent() {
		return nil
	}
	counts := make(map[InconsistencyType]int)
	for _, issue := range r.Inconsistencies {
		counts[issue.Type]++
	}
	return dserrors.New(dserrors.ErrCodeCorruptIndex,
		fmt.Sprintf("search index drifted: %d issue(s)", len(r.Inconsistencies)), nil).
		WithDetail("orphan", fmt.Sprint(counts[InconsistencyOrphan])).
		WithDetail("missing", fmt.Sprint(counts[InconsistencyMissing])).
		WithDetail("stale", fmt.Sprint(counts[InconsistencyStale])).
		WithSuggestion("run 'deckstore check --repair' to rebuild the affected rows")
}

// IndexSource is the part of the store the checker needs.
type IndexSource interface {
	IndexSnapshot(ctx context.Context) ([]store.IndexRow, map[int64]string, error)
	ReindexSlides(ctx context.Context, slideIDs []int64) error
	Counts(ctx context.Context) (*store.Counts, error)
}

// ConsistencyChecker validates that the search index holds exactly one
// up-to-date row per slide.
type ConsistencyChecker struct {
	src    IndexSource
	logger *slog.Logger
}

// NewConsistencyChecker creates a new checker over src. A nil logger uses
// slog.Default().
func NewConsistencyChecker(src IndexSource, logger *slog.Logger) *ConsistencyChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsistencyChecker{src: src, logger: logger}
}

// Check compares every index row with the slide it mirrors.
// This is O(n) in the number of slides; every slide's blob is recomputed.
func (c *ConsistencyChecker) Check(ctx context.Context) (*CheckResult, error) {
	start := time.Now()

	rows, expected, err := c.src.IndexSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	var issues []Inconsistency
	indexed := make(map[int64]bool, len(rows))
	for _, row := range rows {
		indexed[row.SlideID] = true

		want, ok := expected[row.SlideID]
		switch {
		case !ok:
			issues = append(issues, Inconsistency{
				Type:    InconsistencyOrphan,
				SlideID: row.SlideID,
				Details: "index row without matching slide",
			})
		case want != row.Content:
			issues = append(issues, Inconsistency{
				Type:    InconsistencyStale,
				SlideID: row.SlideID,
				Details: "index content differs from slide text",
			})
		}
	}

	for id := range expected {
		if !indexed[id] {
			issues = append(issues, Inconsistency{
				Type:    InconsistencyMissing,
				SlideID: id,
				Details: "slide missing from search index",
			})
		}
	}

	sort.Slice(issues, func(i, j int) bool {
		if issues[i].SlideID != issues[j].SlideID {
			return issues[i].SlideID < issues[j].SlideID
		}
		return issues[i].Type < issues[j].Type
	})

	return &CheckResult{
		Checked:         len(expected),
		IndexRows:       len(rows),
		Inconsistencies: issues,
		Duration:        time.Since(start),
	}, nil
}

// Repair rebuilds the index rows named by issues in one write transaction.
// Orphans are dropped; missing and stale rows are recomputed.
func (c *ConsistencyChecker) Repair(ctx context.Context, issues []Inconsistency) error {
	if len(issues) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(issues))
	seen := make(map[int64]bool, len(issues))
	for _, issue := range issues {
		if !seen[issue.SlideID] {
			seen[issue.SlideID] = true
			ids = append(ids, issue.SlideID)
		}
	}

	if err := c.src.ReindexSlides(ctx, ids); err != nil {
		c.logger.Warn("index_repair_failed",
			slog.Int("count", len(ids)),
			slog.String("error", err.Error()))
		return err
	}

	c.logger.Warn("index_drift_repaired", slog.Int("count", len(ids)))
	return nil
}

// QuickCheck performs a lightweight consistency check.
// It only verifies that the slide and index row counts match.
func (c *ConsistencyChecker) QuickCheck(ctx context.Context) (bool, error) {
	counts, err := c.src.Counts(ctx)
	if err != nil {
		return false, err
	}

	consistent := counts.Slides == counts.SearchRows
	if !consistent {
		c.logger.Debug("index_counts_mismatch",
			slog.Int("slides", counts.Slides),
			slog.Int("index_rows", counts.SearchRows))
	}
	return consistent, nil
}
