package cmd

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/deckstore/internal/ingest"
	"github.com/Aman-CERP/deckstore/internal/output"
	"github.com/Aman-CERP/deckstore/internal/store"
)

func newWatchCmd(e *env) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Import manifests as they appear in a folder",
		Long: `Watch a folder (default: import.watch_dir) and import each manifest
once it has stopped changing for the debounce window. Manifests that fail
to parse are reported and skipped. Stop with Ctrl+C.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := e.cfg.Import.WatchDir
			if len(args) == 1 {
				dir = args[0]
			}
			if !cmd.Flags().Changed("debounce") {
				debounce = e.cfg.DebounceDuration()
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}

			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				out := output.New(cmd.OutOrStdout())
				w := ingest.NewWatcher(dir, debounce, ingest.NewImporter(s, e.logger), e.logger)
				w.OnOutcome = func(o ingest.Outcome) {
					sum := summarize(o)
					if e.jsonOutput() {
						_ = out.JSON(sum)
						return
					}
					printOutcome(out, sum)
				}

				if !e.jsonOutput() {
					out.Statusf("", "Watching %s (Ctrl+C to stop)", dir)
				}
				return w.Run(ctx)
			})
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "Settle time before import (default from config)")
	return cmd
}
