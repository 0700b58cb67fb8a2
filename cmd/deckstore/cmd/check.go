package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/deckstore/internal/index"
	"github.com/Aman-CERP/deckstore/internal/output"
	"github.com/Aman-CERP/deckstore/internal/store"
)

type checkReport struct {
	Checked         int           `json:"checked"`
	IndexRows       int           `json:"index_rows"`
	Inconsistencies []issueReport `json:"inconsistencies"`
	Repaired        bool          `json:"repaired"`
	Counts          *store.Counts `json:"counts"`
}

type issueReport struct {
	Type    string `json:"type"`
	SlideID int64  `json:"slide_id"`
	Details string `json:"details"`
}

func newCheckCmd(e *env) *cobra.Command {
	var repair bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the search index against slide content",
		Long: `Compare every slide with its search index row and report orphan,
missing and stale rows. With --repair, the affected rows are rebuilt in one
transaction.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				return runCheck(ctx, cmd, e, s, repair)
			})
		},
	}
	cmd.Flags().BoolVar(&repair, "repair", false, "Rebuild drifted index rows")
	return cmd
}

func runCheck(ctx context.Context, cmd *cobra.Command, e *env, s *store.Store, repair bool) error {
	checker := index.NewConsistencyChecker(s, e.logger)
	result, err := checker.Check(ctx)
	if err != nil {
		return err
	}

	report := checkReport{
		Checked:         result.Checked,
		IndexRows:       result.IndexRows,
		Inconsistencies: make([]issueReport, 0, len(result.Inconsistencies)),
	}
	for _, inc := range result.Inconsistencies {
		report.Inconsistencies = append(report.Inconsistencies, issueReport{
			Type: inc.Type.String(), SlideID: inc.SlideID, Details: inc.Details,
		})
	}

	if repair && !result.Consistent() {
		if err := checker.Repair(ctx, result.Inconsistencies); err != nil {
			return err
		}
		report.Repaired = true
	}
	if report.Counts, err = s.Counts(ctx); err != nil {
		return err
	}

	if err := e.emit(cmd, report, func(out *output.Writer) {
		out.Field("Slides", report.Checked)
		out.Field("Index rows", report.IndexRows)
		out.Field("Projects", report.Counts.Projects)
		out.Field("Files", report.Counts.Files)
		out.Field("Keywords", report.Counts.Keywords)
		out.Field("Assemblies", report.Counts.Assemblies)
		out.Newline()
		if result.Consistent() {
			out.Success("Search index is consistent")
			return
		}
		for _, inc := range report.Inconsistencies {
			out.Warningf("slide %d: %s (%s)", inc.SlideID, inc.Type, inc.Details)
		}
		if report.Repaired {
			out.Successf("Repaired %d index rows", len(report.Inconsistencies))
		}
	}); err != nil {
		return err
	}

	if !report.Repaired {
		return result.Err()
	}
	return nil
}
