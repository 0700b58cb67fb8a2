package cmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/deckstore/internal/output"
	"github.com/Aman-CERP/deckstore/internal/store"
)

const dateTimeLayout = "2006-01-02 15:04"

func newFileCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file",
		Short: "Manage imported files",
	}
	cmd.AddCommand(newFileListCmd(e))
	cmd.AddCommand(newFileShowCmd(e))
	cmd.AddCommand(newFileUpdateCmd(e))
	cmd.AddCommand(newFileDeleteCmd(e))
	return cmd
}

func newFileListCmd(e *env) *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the files of a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				p, err := resolveProject(ctx, s, project)
				if err != nil {
					return err
				}
				files, err := s.ListFiles(ctx, p.ID)
				if err != nil {
					return err
				}
				return e.emit(cmd, files, func(out *output.Writer) {
					rows := make([][]string, 0, len(files))
					for _, f := range files {
						rows = append(rows, []string{
							strconv.FormatInt(f.ID, 10), f.OriginalPath, strconv.Itoa(f.SlideCount), f.ImportedAt.Format(dateTimeLayout),
						})
					}
					out.Table([]string{"ID", "ORIGINAL", "SLIDES", "IMPORTED"}, rows, "no files")
				})
			})
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "Project id or name")
	return cmd
}

func newFileShowCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a file and its slides",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("file", args[0])
			if err != nil {
				return err
			}
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				f, err := s.GetFile(ctx, id)
				if err != nil {
					return err
				}
				slides, err := s.ListSlides(ctx, id)
				if err != nil {
					return err
				}
				view := struct {
					File   *store.File
					Slides []*store.Slide
				}{f, slides}
				return e.emit(cmd, view, func(out *output.Writer) {
					out.Field("ID", f.ID)
					out.Field("Project", f.ProjectID)
					out.Field("Original", f.OriginalPath)
					out.Field("Internal", f.InternalPath)
					out.Field("Slide count", f.SlideCount)
					out.Field("Imported", f.ImportedAt.Format(dateTimeLayout))
					out.Newline()
					out.Table(slideHeaders, slideRows(slides), "no slides")
				})
			})
		},
	}
}

func newFileUpdateCmd(e *env) *cobra.Command {
	var originalPath, internalPath string
	var slideCount int
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a file's paths or declared slide count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("file", args[0])
			if err != nil {
				return err
			}
			fields := store.Fields{}
			if cmd.Flags().Changed("original-path") {
				fields["original_path"] = originalPath
			}
			if cmd.Flags().Changed("internal-path") {
				fields["internal_path"] = internalPath
			}
			if cmd.Flags().Changed("slide-count") {
				fields["slide_count"] = slideCount
			}
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				f, err := s.UpdateFile(ctx, id, fields)
				if err != nil {
					return err
				}
				return e.emit(cmd, f, func(out *output.Writer) {
					out.Successf("Updated file %d", f.ID)
				})
			})
		},
	}
	cmd.Flags().StringVar(&originalPath, "original-path", "", "Path of the source presentation")
	cmd.Flags().StringVar(&internalPath, "internal-path", "", "Path of the stored copy")
	cmd.Flags().IntVar(&slideCount, "slide-count", 0, "Declared number of slides")
	return cmd
}

func newFileDeleteCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a file with its slides and elements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("file", args[0])
			if err != nil {
				return err
			}
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				if err := s.DeleteFile(ctx, id); err != nil {
					return err
				}
				return e.emit(cmd, map[string]int64{"deleted": id}, func(out *output.Writer) {
					out.Successf("Deleted file %d", id)
				})
			})
		},
	}
}
