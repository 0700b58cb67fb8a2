// Package cmd provides the CLI commands for deckstore.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/deckstore/internal/config"
	dserrors "github.com/Aman-CERP/deckstore/internal/errors"
	"github.com/Aman-CERP/deckstore/internal/logging"
	"github.com/Aman-CERP/deckstore/internal/output"
	"github.com/Aman-CERP/deckstore/internal/store"
	"github.com/Aman-CERP/deckstore/pkg/version"
)

// env is the state shared by every subcommand of one invocation.
type env struct {
	configPath string
	dbPath     string
	debug      bool
	format     string

	cfg            *config.Config
	logger         *slog.Logger
	loggingCleanup func()
}

// NewRootCmd creates the root command for the deckstore CLI.
func NewRootCmd() *cobra.Command {
	e := &env{}

	cmd := &cobra.Command{
		Use:   "deckstore",
		Short: "Slide knowledge store",
		Long: `deckstore keeps imported presentations, their slides and elements,
keyword tags, and ordered assemblies in a local SQLite database with a
full-text index over slide content.

Run 'deckstore import <manifest>' to add a presentation, then
'deckstore search' to find slides.`,
		Version:           version.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: e.setup,
		PersistentPostRun: func(*cobra.Command, []string) { e.teardown() },
	}

	cmd.SetVersionTemplate("deckstore version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&e.configPath, "config", "", "Config file (default: user config)")
	cmd.PersistentFlags().StringVar(&e.dbPath, "db", "", "Database path (overrides store.path)")
	cmd.PersistentFlags().BoolVar(&e.debug, "debug", false, "Enable debug logging to the log file and stderr")
	cmd.PersistentFlags().StringVar(&e.format, "format", "text", "Output format: text, json")

	cmd.AddCommand(newProjectCmd(e))
	cmd.AddCommand(newFileCmd(e))
	cmd.AddCommand(newSlideCmd(e))
	cmd.AddCommand(newKeywordCmd(e))
	cmd.AddCommand(newAssemblyCmd(e))
	cmd.AddCommand(newSearchCmd(e))
	cmd.AddCommand(newImportCmd(e))
	cmd.AddCommand(newWatchCmd(e))
	cmd.AddCommand(newCheckCmd(e))
	cmd.AddCommand(newConfigCmd(e))
	cmd.AddCommand(newLogsCmd(e))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command, printing errors to stderr.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	err := root.ExecuteContext(ctx)
	if err != nil {
		printError(root, err)
	}
	return err
}

// printError reports err on stderr: JSON under --format json, otherwise a
// user message with technical detail only under --debug.
func printError(root *cobra.Command, err error) {
	stderr := root.ErrOrStderr()
	flags := root.PersistentFlags()
	if format, _ := flags.GetString("format"); format == "json" {
		if data, jerr := dserrors.FormatJSON(err); jerr == nil {
			_, _ = fmt.Fprintln(stderr, string(data))
			return
		}
	}
	debug, _ := flags.GetBool("debug")
	if _, ok := dserrors.As(err); !ok {
		_, _ = fmt.Fprint(stderr, dserrors.FormatForCLI(err))
		return
	}
	_, _ = fmt.Fprintln(stderr, dserrors.FormatForUser(err, debug))
}

// setup loads configuration and starts file logging. Commands that only
// print static information skip it.
func (e *env) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations["skipSetup"] == "true" {
		e.logger = logging.Discard()
		return nil
	}
	if e.format != "text" && e.format != "json" {
		return dserrors.InvalidArgument("--format must be text or json, got %q", e.format)
	}

	cfg, err := config.Load(e.configPath)
	if err != nil {
		return err
	}
	if e.dbPath != "" {
		cfg.Store.Path = e.dbPath
	}
	e.cfg = cfg

	logCfg := logging.DefaultConfig()
	if e.debug {
		logCfg = logging.DebugConfig()
	} else {
		logCfg.Level = cfg.Logging.Level
	}
	if cfg.Logging.File != "" {
		logCfg.FilePath = cfg.Logging.File
	}
	logCfg.MaxSizeMB = cfg.Logging.MaxSizeMB
	logCfg.MaxFiles = cfg.Logging.MaxFiles

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		// Logging is best effort: the command still runs.
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: logging disabled: %v\n", err)
		logger, cleanup = logging.Discard(), func() {}
	}
	e.logger = logger
	e.loggingCleanup = cleanup
	slog.SetDefault(logger)

	logger.Debug("command_started",
		slog.String("command", cmd.CommandPath()),
		slog.String("db", cfg.Store.Path),
		slog.String("version", version.Version))
	return nil
}

func (e *env) teardown() {
	if e.loggingCleanup != nil {
		e.loggingCleanup()
		e.loggingCleanup = nil
	}
}

// storeOptions maps configuration to store options.
func (e *env) storeOptions() (store.Options, error) {
	mode, err := store.ParseMatchMode(e.cfg.Search.KeywordMatch)
	if err != nil {
		return store.Options{}, err
	}
	return store.Options{
		BusyTimeout:        e.cfg.BusyTimeout(),
		CacheMB:            e.cfg.Store.CacheMB,
		ReadConns:          e.cfg.Store.ReadConns,
		DefaultLimit:       e.cfg.Search.DefaultLimit,
		MaxLimit:           e.cfg.Search.MaxLimit,
		KeywordMatch:       mode,
		StopWords:          !e.cfg.Search.KeepStopWords,
		HighlightCacheSize: e.cfg.Search.HighlightCacheSize,
		Logger:             e.logger,
	}, nil
}

// openStore opens the configured database. The caller closes it.
func (e *env) openStore(ctx context.Context) (*store.Store, error) {
	opts, err := e.storeOptions()
	if err != nil {
		return nil, err
	}
	return store.Open(ctx, e.cfg.Store.Path, opts)
}

// withStore opens the store, runs fn and closes the store.
func (e *env) withStore(cmd *cobra.Command, fn func(ctx context.Context, s *store.Store) error) error {
	ctx := cmd.Context()
	s, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			e.logger.Warn("store_close_failed", slog.String("error", err.Error()))
		}
	}()
	return fn(ctx, s)
}

func (e *env) jsonOutput() bool {
	return e.format == "json"
}

// emit prints v as JSON under --format json, otherwise calls text.
func (e *env) emit(cmd *cobra.Command, v any, text func(out *output.Writer)) error {
	out := output.New(cmd.OutOrStdout())
	if e.jsonOutput() {
		return out.JSON(v)
	}
	text(out)
	return nil
}

// parseID parses a positive entity id argument.
func parseID(what, arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, dserrors.InvalidArgument("%s id must be a positive integer, got %q", what, arg)
	}
	return id, nil
}

// resolveProject accepts a project id or name.
func resolveProject(ctx context.Context, s *store.Store, ref string) (*store.Project, error) {
	if ref == "" {
		return nil, dserrors.InvalidArgument("a project is required (--project <id|name>)")
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil && id > 0 {
		return s.GetProject(ctx, id)
	}
	return s.GetProjectByName(ctx, ref)
}

// optional renders a nullable string for text output.
func optional(p *string) string {
	if p == nil {
		return "-"
	}
	return *p
}
