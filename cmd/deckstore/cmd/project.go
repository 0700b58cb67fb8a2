package cmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/deckstore/internal/output"
	"github.com/Aman-CERP/deckstore/internal/store"
)

func newProjectCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}
	cmd.AddCommand(newProjectCreateCmd(e))
	cmd.AddCommand(newProjectListCmd(e))
	cmd.AddCommand(newProjectShowCmd(e))
	cmd.AddCommand(newProjectUpdateCmd(e))
	cmd.AddCommand(newProjectDeleteCmd(e))
	return cmd
}

func newProjectCreateCmd(e *env) *cobra.Command {
	var root string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				p, err := s.CreateProject(ctx, args[0], root)
				if err != nil {
					return err
				}
				return e.emit(cmd, p, func(out *output.Writer) {
					out.Successf("Created project %d (%s)", p.ID, p.Name)
				})
			})
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "Project root directory")
	return cmd
}

func newProjectListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				projects, err := s.ListProjects(ctx)
				if err != nil {
					return err
				}
				return e.emit(cmd, projects, func(out *output.Writer) {
					rows := make([][]string, 0, len(projects))
					for _, p := range projects {
						rows = append(rows, []string{
							strconv.FormatInt(p.ID, 10), p.Name, p.RootPath, p.CreatedAt.Format(dateTimeLayout),
						})
					}
					out.Table([]string{"ID", "NAME", "ROOT", "CREATED"}, rows, "no projects")
				})
			})
		},
	}
}

func newProjectShowCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|name>",
		Short: "Show a project with its files, keywords and assemblies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				p, err := resolveProject(ctx, s, args[0])
				if err != nil {
					return err
				}
				files, err := s.ListFiles(ctx, p.ID)
				if err != nil {
					return err
				}
				keywords, err := s.ListKeywords(ctx, p.ID)
				if err != nil {
					return err
				}
				assemblies, err := s.ListAssemblies(ctx, p.ID)
				if err != nil {
					return err
				}

				view := struct {
					Project    *store.Project
					Files      []*store.File
					Keywords   []*store.Keyword
					Assemblies []*store.Assembly
				}{p, files, keywords, assemblies}
				return e.emit(cmd, view, func(out *output.Writer) {
					out.Field("ID", p.ID)
					out.Field("Name", p.Name)
					out.Field("Root", p.RootPath)
					out.Field("Created", p.CreatedAt.Format(dateTimeLayout))
					out.Field("Files", len(files))
					out.Field("Keywords", len(keywords))
					out.Field("Assemblies", len(assemblies))
				})
			})
		},
	}
}

func newProjectUpdateCmd(e *env) *cobra.Command {
	var name, root string
	cmd := &cobra.Command{
		Use:   "update <id|name>",
		Short: "Rename a project or change its root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := store.Fields{}
			if cmd.Flags().Changed("name") {
				fields["name"] = name
			}
			if cmd.Flags().Changed("root") {
				fields["root_path"] = root
			}
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				p, err := resolveProject(ctx, s, args[0])
				if err != nil {
					return err
				}
				p, err = s.UpdateProject(ctx, p.ID, fields)
				if err != nil {
					return err
				}
				return e.emit(cmd, p, func(out *output.Writer) {
					out.Successf("Updated project %d (%s)", p.ID, p.Name)
				})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&root, "root", "", "New root directory")
	return cmd
}

func newProjectDeleteCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id|name>",
		Short: "Delete a project and everything it owns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				p, err := resolveProject(ctx, s, args[0])
				if err != nil {
					return err
				}
				if err := s.DeleteProject(ctx, p.ID); err != nil {
					return err
				}
				return e.emit(cmd, map[string]int64{"deleted": p.ID}, func(out *output.Writer) {
					out.Successf("Deleted project %d (%s)", p.ID, p.Name)
				})
			})
		},
	}
}
