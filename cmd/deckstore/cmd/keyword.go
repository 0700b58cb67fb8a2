package cmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	dserrors "github.com/Aman-CERP/deckstore/internal/errors"
	"github.com/Aman-CERP/deckstore/internal/output"
	"github.com/Aman-CERP/deckstore/internal/store"
)

func newKeywordCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyword",
		Short: "Manage keywords and tag slides or elements",
	}
	cmd.AddCommand(newKeywordCreateCmd(e))
	cmd.AddCommand(newKeywordListCmd(e))
	cmd.AddCommand(newKeywordUpdateCmd(e))
	cmd.AddCommand(newKeywordDeleteCmd(e))
	cmd.AddCommand(newKeywordLinkCmd(e, true))
	cmd.AddCommand(newKeywordLinkCmd(e, false))
	cmd.AddCommand(newKeywordSlidesCmd(e))
	return cmd
}

func newKeywordCreateCmd(e *env) *cobra.Command {
	var project, color string
	cmd := &cobra.Command{
		Use:   "create <text>",
		Short: "Create a keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				p, err := resolveProject(ctx, s, project)
				if err != nil {
					return err
				}
				k, err := s.CreateKeyword(ctx, p.ID, args[0], color)
				if err != nil {
					return err
				}
				return e.emit(cmd, k, func(out *output.Writer) {
					out.Successf("Created keyword %d (%s)", k.ID, k.Text)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "Project id or name")
	cmd.Flags().StringVar(&color, "color", "", "Color as #RRGGBB (default #808080)")
	return cmd
}

type keywordUsage struct {
	*store.Keyword
	Usage int
}

func newKeywordListCmd(e *env) *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a project's keywords with usage counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				p, err := resolveProject(ctx, s, project)
				if err != nil {
					return err
				}
				keywords, err := s.ListKeywords(ctx, p.ID)
				if err != nil {
					return err
				}
				list := make([]keywordUsage, 0, len(keywords))
				for _, k := range keywords {
					n, err := s.UsageCount(ctx, k.ID)
					if err != nil {
						return err
					}
					list = append(list, keywordUsage{Keyword: k, Usage: n})
				}
				return e.emit(cmd, list, func(out *output.Writer) {
					rows := make([][]string, 0, len(list))
					for _, k := range list {
						rows = append(rows, []string{strconv.FormatInt(k.ID, 10), k.Text, k.Color, strconv.Itoa(k.Usage)})
					}
					out.Table([]string{"ID", "TEXT", "COLOR", "USED"}, rows, "no keywords")
				})
			})
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "Project id or name")
	return cmd
}

func newKeywordUpdateCmd(e *env) *cobra.Command {
	var text, color string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename or recolor a keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("keyword", args[0])
			if err != nil {
				return err
			}
			fields := store.Fields{}
			if cmd.Flags().Changed("text") {
				fields["text"] = text
			}
			if cmd.Flags().Changed("color") {
				fields["color"] = color
			}
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				k, err := s.UpdateKeyword(ctx, id, fields)
				if err != nil {
					return err
				}
				return e.emit(cmd, k, func(out *output.Writer) {
					out.Successf("Updated keyword %d (%s)", k.ID, k.Text)
				})
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "New text")
	cmd.Flags().StringVar(&color, "color", "", "New color as #RRGGBB")
	return cmd
}

func newKeywordDeleteCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a keyword and all its tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("keyword", args[0])
			if err != nil {
				return err
			}
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				if err := s.DeleteKeyword(ctx, id); err != nil {
					return err
				}
				return e.emit(cmd, map[string]int64{"deleted": id}, func(out *output.Writer) {
					out.Successf("Deleted keyword %d", id)
				})
			})
		},
	}
}

// newKeywordLinkCmd builds "link" or "unlink"; both take --slide or --element.
func newKeywordLinkCmd(e *env, link bool) *cobra.Command {
	var slideID, elementID int64
	use, short := "link <keyword-id>", "Tag a slide or element with a keyword"
	if !link {
		use, short = "unlink <keyword-id>", "Remove a keyword tag from a slide or element"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keywordID, err := parseID("keyword", args[0])
			if err != nil {
				return err
			}
			if (slideID == 0) == (elementID == 0) {
				return dserrors.InvalidArgument("exactly one of --slide or --element is required")
			}
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				var err error
				switch {
				case slideID != 0 && link:
					err = s.LinkSlide(ctx, slideID, keywordID)
				case slideID != 0:
					err = s.UnlinkSlide(ctx, slideID, keywordID)
				case link:
					err = s.LinkElement(ctx, elementID, keywordID)
				default:
					err = s.UnlinkElement(ctx, elementID, keywordID)
				}
				if err != nil {
					return err
				}
				target, id := "slide", slideID
				if elementID != 0 {
					target, id = "element", elementID
				}
				view := map[string]any{"keyword_id": keywordID, target + "_id": id, "linked": link}
				return e.emit(cmd, view, func(out *output.Writer) {
					if link {
						out.Successf("Tagged %s %d with keyword %d", target, id, keywordID)
					} else {
						out.Successf("Untagged %s %d from keyword %d", target, id, keywordID)
					}
				})
			})
		},
	}
	cmd.Flags().Int64Var(&slideID, "slide", 0, "Slide id")
	cmd.Flags().Int64Var(&elementID, "element", 0, "Element id")
	return cmd
}

func newKeywordSlidesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "slides <keyword-id>",
		Short: "List the slides tagged with a keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("keyword", args[0])
			if err != nil {
				return err
			}
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				slides, err := s.SlidesForKeyword(ctx, id)
				if err != nil {
					return err
				}
				return e.emit(cmd, slides, func(out *output.Writer) {
					out.Table(slideHeaders, slideRows(slides), "no slides")
				})
			})
		},
	}
}
