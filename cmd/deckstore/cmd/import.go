package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	dserrors "github.com/Aman-CERP/deckstore/internal/errors"
	"github.com/Aman-CERP/deckstore/internal/ingest"
	"github.com/Aman-CERP/deckstore/internal/output"
	"github.com/Aman-CERP/deckstore/internal/store"
)

type importSummary struct {
	Source   string `json:"source"`
	Project  string `json:"project,omitempty"`
	FileID   int64  `json:"file_id,omitempty"`
	Slides   int    `json:"slides"`
	Elements int    `json:"elements"`
	Keywords int    `json:"keywords"`
	Error    string `json:"error,omitempty"`
	Code     string `json:"code,omitempty"`
}

func summarize(o ingest.Outcome) importSummary {
	sum := importSummary{Source: o.Source}
	if o.Project != nil {
		sum.Project = o.Project.Name
	}
	if o.Result != nil {
		sum.FileID = o.Result.File.ID
		sum.Slides = len(o.Result.SlideIDs)
		sum.Elements = len(o.Result.ElementIDs)
		sum.Keywords = len(o.Result.KeywordIDs)
	}
	if o.Err != nil {
		sum.Error = o.Err.Error()
		sum.Code = dserrors.GetCode(o.Err)
	}
	return sum
}

func printOutcome(out *output.Writer, sum importSummary) {
	name := filepath.Base(sum.Source)
	if sum.Error != "" {
		out.Errorf("%s: %s", name, sum.Error)
		return
	}
	out.Successf("%s: file %d in %s (%d slides, %d elements, %d keywords)",
		name, sum.FileID, sum.Project, sum.Slides, sum.Elements, sum.Keywords)
}

// expandManifestPaths replaces directories by the manifests they contain.
func expandManifestPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, dserrors.InvalidArgument("cannot read %s: %v", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		found, err := ingest.FindManifests(arg)
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}
	return paths, nil
}

func newImportCmd(e *env) *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "import <manifest|dir>...",
		Short: "Import presentation manifests",
		Long: `Import presentation manifests (YAML or JSON). Each manifest is written
in its own transaction: a failing manifest leaves nothing behind and does not
stop the others. Directories are scanned for manifests (not recursively).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("workers") {
				workers = e.cfg.Import.Workers
			}
			paths, err := expandManifestPaths(args)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return dserrors.InvalidArgument("no manifests found in %v", args)
			}
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				return runImport(ctx, cmd, e, s, paths, workers)
			})
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Manifests parsed in parallel (default from config)")
	return cmd
}

func runImport(ctx context.Context, cmd *cobra.Command, e *env, s *store.Store, paths []string, workers int) error {
	start := time.Now()
	manifests, err := ingest.LoadManifests(ctx, paths, workers)
	if err != nil {
		return err
	}

	importer := ingest.NewImporter(s, e.logger)
	if !e.jsonOutput() && len(manifests) > 1 {
		progress := output.New(cmd.ErrOrStderr())
		importer.OnProgress = func(done, total int, source string) {
			progress.Progress(done, total, filepath.Base(source))
		}
	}
	outcomes := importer.ImportAll(ctx, manifests)
	sums := make([]importSummary, len(outcomes))
	failed := 0
	var firstErr error
	for i, o := range outcomes {
		sums[i] = summarize(o)
		if o.Err != nil {
			failed++
			if firstErr == nil {
				firstErr = o.Err
			}
		}
	}

	if err := e.emit(cmd, sums, func(out *output.Writer) {
		for _, sum := range sums {
			printOutcome(out, sum)
		}
		out.Newline()
		out.Statusf("", "Imported %d of %d manifests in %s", len(sums)-failed, len(sums), time.Since(start).Round(time.Millisecond))
	}); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d manifests failed: %w", failed, len(sums), firstErr)
	}
	return nil
}
