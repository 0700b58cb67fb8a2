package cmd

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	dserrors "github.com/Aman-CERP/deckstore/internal/errors"
	"github.com/Aman-CERP/deckstore/internal/output"
	"github.com/Aman-CERP/deckstore/internal/store"
)

var slideHeaders = []string{"ID", "POS", "TITLE", "TYPE"}

func slideRows(slides []*store.Slide) [][]string {
	rows := make([][]string, 0, len(slides))
	for _, sl := range slides {
		rows = append(rows, []string{
			strconv.FormatInt(sl.ID, 10), strconv.Itoa(sl.Position), truncate(sl.Title, 60), optional(sl.AIType),
		})
	}
	return rows
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// parseAssignments turns repeated "field=value" flags and "field" clears
// into store fields. Fields named in ints or floats are parsed as numbers.
func parseAssignments(sets, clears []string, ints, floats map[string]bool) (store.Fields, error) {
	fields := store.Fields{}
	for _, kv := range sets {
		name, value, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, dserrors.InvalidArgument("--set expects field=value, got %q", kv)
		}
		switch {
		case ints[name]:
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, dserrors.InvalidArgument("field %q expects a whole number, got %q", name, value)
			}
			fields[name] = n
		case floats[name]:
			f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				return nil, dserrors.InvalidArgument("field %q expects a number, got %q", name, value)
			}
			fields[name] = f
		default:
			fields[name] = value
		}
	}
	for _, name := range clears {
		fields[strings.TrimSpace(name)] = nil
	}
	return fields, nil
}

func newSlideCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slide",
		Short: "Manage slides and their elements",
	}
	cmd.AddCommand(newSlideCreateCmd(e))
	cmd.AddCommand(newSlideListCmd(e))
	cmd.AddCommand(newSlideShowCmd(e))
	cmd.AddCommand(newSlideUpdateCmd(e))
	cmd.AddCommand(newSlideDeleteCmd(e))
	cmd.AddCommand(newElementCmd(e))
	return cmd
}

func newSlideCreateCmd(e *env) *cobra.Command {
	var ns store.NewSlide
	var fileID int64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a slide to a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				sl, err := s.CreateSlide(ctx, fileID, ns)
				if err != nil {
					return err
				}
				return e.emit(cmd, sl, func(out *output.Writer) {
					out.Successf("Created slide %d at position %d", sl.ID, sl.Position)
				})
			})
		},
	}
	cmd.Flags().Int64Var(&fileID, "file", 0, "Owning file id")
	cmd.Flags().IntVar(&ns.Position, "position", 0, "Position within the file")
	cmd.Flags().StringVar(&ns.Title, "title", "", "Slide title")
	cmd.Flags().StringVar(&ns.Body, "body", "", "Slide body text")
	cmd.Flags().StringVar(&ns.Notes, "notes", "", "Speaker notes")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newSlideListCmd(e *env) *cobra.Command {
	var fileID int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the slides of a file in position order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				slides, err := s.ListSlides(ctx, fileID)
				if err != nil {
					return err
				}
				return e.emit(cmd, slides, func(out *output.Writer) {
					out.Table(slideHeaders, slideRows(slides), "no slides")
				})
			})
		},
	}
	cmd.Flags().Int64Var(&fileID, "file", 0, "File id")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newSlideShowCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a slide with its elements and keywords",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("slide", args[0])
			if err != nil {
				return err
			}
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				sl, err := s.GetSlide(ctx, id)
				if err != nil {
					return err
				}
				elements, err := s.ListElements(ctx, id)
				if err != nil {
					return err
				}
				keywords, err := s.KeywordsForSlide(ctx, id)
				if err != nil {
					return err
				}
				view := struct {
					Slide    *store.Slide
					Elements []*store.Element
					Keywords []*store.Keyword
				}{sl, elements, keywords}
				return e.emit(cmd, view, func(out *output.Writer) {
					texts := make([]string, len(keywords))
					for i, k := range keywords {
						texts[i] = k.Text
					}
					out.Field("ID", sl.ID)
					out.Field("File", sl.FileID)
					out.Field("Position", sl.Position)
					out.Field("Title", sl.Title)
					out.Field("Body", truncate(sl.Body, 200))
					out.Field("Notes", truncate(sl.Notes, 200))
					out.Field("AI topic", optional(sl.AITopic))
					out.Field("AI type", optional(sl.AIType))
					out.Field("AI insight", optional(sl.AIInsight))
					out.Field("Keywords", strings.Join(texts, ", "))
					out.Newline()
					out.Table(elementHeaders, elementRows(elements), "no elements")
				})
			})
		},
	}
}

func newSlideUpdateCmd(e *env) *cobra.Command {
	var sets, clears []string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update slide fields",
		Long: `Update slide fields with --set field=value. Fields: position, title,
body, notes, thumbnail, ai_topic, ai_type, ai_insight. --clear removes an
AI field.`,
		Example: `  deckstore slide update 12 --set ai_type=chart --set "ai_topic=Q4 revenue"
  deckstore slide update 12 --clear ai_insight`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("slide", args[0])
			if err != nil {
				return err
			}
			fields, err := parseAssignments(sets, clears, map[string]bool{"position": true}, nil)
			if err != nil {
				return err
			}
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				sl, err := s.UpdateSlide(ctx, id, fields)
				if err != nil {
					return err
				}
				return e.emit(cmd, sl, func(out *output.Writer) {
					out.Successf("Updated slide %d", sl.ID)
				})
			})
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value (repeatable)")
	cmd.Flags().StringArrayVar(&clears, "clear", nil, "AI field to clear (repeatable)")
	return cmd
}

func newSlideDeleteCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a slide, removing it from every assembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("slide", args[0])
			if err != nil {
				return err
			}
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				if err := s.DeleteSlide(ctx, id); err != nil {
					return err
				}
				return e.emit(cmd, map[string]int64{"deleted": id}, func(out *output.Writer) {
					out.Successf("Deleted slide %d", id)
				})
			})
		},
	}
}
