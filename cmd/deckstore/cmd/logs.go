package cmd

import (
	"context"
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/deckstore/internal/logging"
	"github.com/Aman-CERP/deckstore/internal/output"
)

type logsOptions struct {
	follow  bool
	lines   int
	level   string
	event   string
	filter  string
	noColor bool
	logFile string
}

func newLogsCmd(e *env) *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View deckstore logs",
		Long: `Show the last lines of the deckstore log, or follow it with -f.

Examples:
  deckstore logs                      # last 50 lines
  deckstore logs -f                   # follow new entries
  deckstore logs --level warn         # warnings and errors only
  deckstore logs --event import_      # import events
  deckstore logs --filter "slide_id"  # lines matching a pattern`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.logFile == "" {
				opts.logFile = e.cfg.Logging.File
			}
			return runLogs(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Follow log output (like tail -f)")
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.event, "event", "", "Only events whose name starts with this")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Only lines matching this pattern (regex)")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&opts.logFile, "file", "", "Log file (default: logging.file or ~/.deckstore/logs/deckstore.log)")

	return cmd
}

func runLogs(ctx context.Context, cmd *cobra.Command, opts logsOptions) error {
	path, err := logging.FindLogFile(opts.logFile)
	if err != nil {
		return err
	}

	var pattern *regexp.Regexp
	if opts.filter != "" {
		if pattern, err = regexp.Compile(opts.filter); err != nil {
			return fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	stdout := cmd.OutOrStdout()
	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:   opts.level,
		Event:   opts.event,
		Pattern: pattern,
		NoColor: opts.noColor || !output.IsTTY(stdout) || output.DetectNoColor(),
	}, stdout)

	if !opts.follow {
		entries, err := viewer.Tail(path, opts.lines)
		if err != nil {
			return err
		}
		viewer.Print(entries)
		return nil
	}

	stderr := cmd.ErrOrStderr()
	_, _ = fmt.Fprintf(stderr, "Log file: %s\nFollowing... (Ctrl+C to stop)\n---\n", path)

	entries := make(chan logging.LogEntry, 100)
	errCh := make(chan error, 1)
	go func() {
		errCh <- viewer.Follow(ctx, path, entries)
	}()

	for {
		select {
		case entry := <-entries:
			_, _ = fmt.Fprintln(stdout, viewer.FormatEntry(entry))
		case err := <-errCh:
			return err
		case <-ctx.Done():
			_, _ = fmt.Fprintln(stderr, "\n---\nStopped.")
			return nil
		}
	}
}
