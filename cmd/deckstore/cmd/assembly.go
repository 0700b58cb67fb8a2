package cmd

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	dserrors "github.com/Aman-CERP/deckstore/internal/errors"
	"github.com/Aman-CERP/deckstore/internal/output"
	"github.com/Aman-CERP/deckstore/internal/store"
)

func newAssemblyCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "assembly",
		Aliases: []string{"asm"},
		Short:   "Build ordered slide assemblies",
	}
	cmd.AddCommand(newAssemblyCreateCmd(e))
	cmd.AddCommand(newAssemblyListCmd(e))
	cmd.AddCommand(newAssemblyShowCmd(e))
	cmd.AddCommand(newAssemblyRenameCmd(e))
	cmd.AddCommand(newAssemblyDeleteCmd(e))
	cmd.AddCommand(newAssemblyAddCmd(e))
	cmd.AddCommand(newAssemblyMoveCmd(e))
	cmd.AddCommand(newAssemblyRemoveCmd(e))
	cmd.AddCommand(newAssemblyExportCmd(e))
	return cmd
}

func newAssemblyCreateCmd(e *env) *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty assembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				p, err := resolveProject(ctx, s, project)
				if err != nil {
					return err
				}
				a, err := s.CreateAssembly(ctx, p.ID, args[0])
				if err != nil {
					return err
				}
				return e.emit(cmd, a, func(out *output.Writer) {
					out.Successf("Created assembly %d (%s)", a.ID, a.Name)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "Project id or name")
	return cmd
}

func newAssemblyListCmd(e *env) *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a project's assemblies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				p, err := resolveProject(ctx, s, project)
				if err != nil {
					return err
				}
				list, err := s.ListAssemblies(ctx, p.ID)
				if err != nil {
					return err
				}
				return e.emit(cmd, list, func(out *output.Writer) {
					rows := make([][]string, 0, len(list))
					for _, a := range list {
						rows = append(rows, []string{strconv.FormatInt(a.ID, 10), a.Name, a.UpdatedAt.Format(dateTimeLayout)})
					}
					out.Table([]string{"ID", "NAME", "UPDATED"}, rows, "no assemblies")
				})
			})
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "Project id or name")
	return cmd
}

func newAssemblyShowCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an assembly's slides in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("assembly", args[0])
			if err != nil {
				return err
			}
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				a, err := s.GetAssembly(ctx, id)
				if err != nil {
					return err
				}
				items, err := s.AssemblySlides(ctx, id)
				if err != nil {
					return err
				}
				view := struct {
					Assembly *store.Assembly
					Slides   []store.AssemblyItem
				}{a, items}
				return e.emit(cmd, view, func(out *output.Writer) {
					out.Field("ID", a.ID)
					out.Field("Name", a.Name)
					out.Field("Slides", len(items))
					out.Newline()
					rows := make([][]string, 0, len(items))
					for _, it := range items {
						rows = append(rows, []string{
							strconv.Itoa(it.Position), strconv.FormatInt(it.SlideID, 10), truncate(it.Slide.Title, 60),
						})
					}
					out.Table([]string{"POS", "SLIDE", "TITLE"}, rows, "empty assembly")
				})
			})
		},
	}
}

func newAssemblyRenameCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename an assembly",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("assembly", args[0])
			if err != nil {
				return err
			}
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				a, err := s.UpdateAssembly(ctx, id, store.Fields{"name": args[1]})
				if err != nil {
					return err
				}
				return e.emit(cmd, a, func(out *output.Writer) {
					out.Successf("Renamed assembly %d to %s", a.ID, a.Name)
				})
			})
		},
	}
}

func newAssemblyDeleteCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an assembly (its slides are kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("assembly", args[0])
			if err != nil {
				return err
			}
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				if err := s.DeleteAssembly(ctx, id); err != nil {
					return err
				}
				return e.emit(cmd, map[string]int64{"deleted": id}, func(out *output.Writer) {
					out.Successf("Deleted assembly %d", id)
				})
			})
		},
	}
}

func newAssemblyAddCmd(e *env) *cobra.Command {
	var at int
	cmd := &cobra.Command{
		Use:   "add <assembly-id> <slide-id>...",
		Short: "Append slides, or insert them starting at --at",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			asmID, err := parseID("assembly", args[0])
			if err != nil {
				return err
			}
			slideIDs := make([]int64, 0, len(args)-1)
			for _, a := range args[1:] {
				id, err := parseID("slide", a)
				if err != nil {
					return err
				}
				slideIDs = append(slideIDs, id)
			}
			insert := cmd.Flags().Changed("at")
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				entries := make([]*store.AssemblyEntry, 0, len(slideIDs))
				for i, slideID := range slideIDs {
					var entry *store.AssemblyEntry
					var err error
					if insert {
						entry, err = s.AssemblyInsertAt(ctx, asmID, slideID, at+i)
					} else {
						entry, err = s.AssemblyAppend(ctx, asmID, slideID)
					}
					if err != nil {
						return err
					}
					entries = append(entries, entry)
				}
				return e.emit(cmd, entries, func(out *output.Writer) {
					for _, en := range entries {
						out.Successf("Slide %d at position %d", en.SlideID, en.Position)
					}
				})
			})
		},
	}
	cmd.Flags().IntVar(&at, "at", 0, "Insert at this position instead of appending")
	return cmd
}

func newAssemblyMoveCmd(e *env) *cobra.Command {
	var from, to int
	var slideID int64
	cmd := &cobra.Command{
		Use:   "move <assembly-id>",
		Short: "Move an entry to a new position",
		Long: `Move the entry at --from, or the first occurrence of --slide, to --to.
Entries in between shift by one so positions stay contiguous.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asmID, err := parseID("assembly", args[0])
			if err != nil {
				return err
			}
			bySlide := cmd.Flags().Changed("slide")
			if bySlide == cmd.Flags().Changed("from") {
				return dserrors.InvalidArgument("exactly one of --from or --slide is required")
			}
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				if bySlide {
					err = s.AssemblyMoveTo(ctx, asmID, slideID, to)
				} else {
					err = s.AssemblyMoveAt(ctx, asmID, from, to)
				}
				if err != nil {
					return err
				}
				return e.emit(cmd, map[string]int{"position": to}, func(out *output.Writer) {
					out.Successf("Moved to position %d", to)
				})
			})
		},
	}
	cmd.Flags().IntVar(&from, "from", 0, "Current position")
	cmd.Flags().Int64Var(&slideID, "slide", 0, "Slide id (first occurrence)")
	cmd.Flags().IntVar(&to, "to", 0, "New position")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newAssemblyRemoveCmd(e *env) *cobra.Command {
	var at int
	var slideID int64
	cmd := &cobra.Command{
		Use:   "remove <assembly-id>",
		Short: "Remove the entry at --at, or the first occurrence of --slide",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asmID, err := parseID("assembly", args[0])
			if err != nil {
				return err
			}
			bySlide := cmd.Flags().Changed("slide")
			if bySlide == cmd.Flags().Changed("at") {
				return dserrors.InvalidArgument("exactly one of --at or --slide is required")
			}
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				if bySlide {
					err = s.AssemblyRemove(ctx, asmID, slideID)
				} else {
					err = s.AssemblyRemoveAt(ctx, asmID, at)
				}
				if err != nil {
					return err
				}
				return e.emit(cmd, map[string]bool{"removed": true}, func(out *output.Writer) {
					out.Success("Removed")
				})
			})
		},
	}
	cmd.Flags().IntVar(&at, "at", 0, "Position to remove")
	cmd.Flags().Int64Var(&slideID, "slide", 0, "Slide id (first occurrence)")
	return cmd
}

// ExportManifest is the hand-off document for the export collaborator:
// the assembly's slides in order with the files they come from.
type ExportManifest struct {
	Assembly   string        `yaml:"assembly" json:"assembly"`
	AssemblyID int64         `yaml:"assembly_id" json:"assembly_id"`
	ProjectID  int64         `yaml:"project_id" json:"project_id"`
	ExportedAt time.Time     `yaml:"exported_at" json:"exported_at"`
	Slides     []ExportSlide `yaml:"slides" json:"slides"`
}

// ExportSlide is one ordered slide of an ExportManifest.
type ExportSlide struct {
	Position       int    `yaml:"position" json:"position"`
	SlideID        int64  `yaml:"slide_id" json:"slide_id"`
	Title          string `yaml:"title" json:"title"`
	Thumbnail      string `yaml:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	FileID         int64  `yaml:"file_id" json:"file_id"`
	SourcePath     string `yaml:"source_path" json:"source_path"`
	InternalPath   string `yaml:"internal_path" json:"internal_path"`
	SourcePosition int    `yaml:"source_position" json:"source_position"`
}

// buildExportManifest reads an assembly in order and resolves each slide's file.
func buildExportManifest(ctx context.Context, s *store.Store, assemblyID int64, now time.Time) (*ExportManifest, error) {
	a, err := s.GetAssembly(ctx, assemblyID)
	if err != nil {
		return nil, err
	}
	items, err := s.AssemblySlides(ctx, assemblyID)
	if err != nil {
		return nil, err
	}

	m := &ExportManifest{
		Assembly:   a.Name,
		AssemblyID: a.ID,
		ProjectID:  a.ProjectID,
		ExportedAt: now.UTC(),
		Slides:     make([]ExportSlide, 0, len(items)),
	}
	files := map[int64]*store.File{}
	for _, it := range items {
		f, ok := files[it.Slide.FileID]
		if !ok {
			if f, err = s.GetFile(ctx, it.Slide.FileID); err != nil {
				return nil, err
			}
			files[f.ID] = f
		}
		m.Slides = append(m.Slides, ExportSlide{
			Position:       it.Position,
			SlideID:        it.SlideID,
			Title:          it.Slide.Title,
			Thumbnail:      it.Slide.Thumbnail,
			FileID:         f.ID,
			SourcePath:     f.OriginalPath,
			InternalPath:   f.InternalPath,
			SourcePosition: it.Slide.Position,
		})
	}
	return m, nil
}

// writeExportManifest encodes m as JSON or YAML.
func writeExportManifest(w io.Writer, m *ExportManifest, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return err
	}
	return enc.Close()
}

func newAssemblyExportCmd(e *env) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write the assembly as an export manifest",
		Long: `Write the assembly's slides in order, with their source files, as a
YAML manifest (JSON with --format json or a .json --out file).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("assembly", args[0])
			if err != nil {
				return err
			}
			asJSON := e.jsonOutput() || strings.EqualFold(filepath.Ext(outPath), ".json")
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				m, err := buildExportManifest(ctx, s, id, time.Now())
				if err != nil {
					return err
				}
				if outPath == "" {
					return writeExportManifest(cmd.OutOrStdout(), m, asJSON)
				}

				f, err := os.Create(outPath)
				if err != nil {
					return dserrors.InvalidArgument("cannot create %s: %v", outPath, err)
				}
				if err := writeExportManifest(f, m, asJSON); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				output.New(cmd.ErrOrStderr()).Successf("Exported %d slides to %s", len(m.Slides), outPath)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default: stdout)")
	return cmd
}
