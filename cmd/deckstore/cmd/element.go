package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	dserrors "github.com/Aman-CERP/deckstore/internal/errors"
	"github.com/Aman-CERP/deckstore/internal/output"
	"github.com/Aman-CERP/deckstore/internal/store"
)

var elementHeaders = []string{"ID", "TYPE", "BOX", "TEXT"}

func elementRows(elements []*store.Element) [][]string {
	rows := make([][]string, 0, len(elements))
	for _, el := range elements {
		text := "-"
		if el.Text != nil {
			text = truncate(*el.Text, 50)
		}
		rows = append(rows, []string{
			strconv.FormatInt(el.ID, 10),
			el.Type,
			fmt.Sprintf("%g,%g %gx%g", el.Box.X, el.Box.Y, el.Box.Width, el.Box.Height),
			text,
		})
	}
	return rows
}

// parseBox parses "x,y,width,height".
func parseBox(s string) (store.Box, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return store.Box{}, dserrors.InvalidArgument("--box expects x,y,width,height, got %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return store.Box{}, dserrors.InvalidArgument("--box expects numbers, got %q", p)
		}
		v[i] = f
	}
	return store.Box{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}

var elementFloatFields = map[string]bool{"x": true, "y": true, "width": true, "height": true}

func newElementCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "element",
		Short: "Manage the elements of a slide",
	}
	cmd.AddCommand(newElementAddCmd(e))
	cmd.AddCommand(newElementListCmd(e))
	cmd.AddCommand(newElementUpdateCmd(e))
	cmd.AddCommand(newElementDeleteCmd(e))
	return cmd
}

func newElementAddCmd(e *env) *cobra.Command {
	var typ, box, text string
	cmd := &cobra.Command{
		Use:   "add <slide-id>",
		Short: "Add an element to a slide",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slideID, err := parseID("slide", args[0])
			if err != nil {
				return err
			}
			ne := store.NewElement{Type: typ}
			if ne.Box, err = parseBox(box); err != nil {
				return err
			}
			if cmd.Flags().Changed("text") {
				ne.Text = &text
			}
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				el, err := s.CreateElement(ctx, slideID, ne)
				if err != nil {
					return err
				}
				return e.emit(cmd, el, func(out *output.Writer) {
					out.Successf("Created element %d on slide %d", el.ID, slideID)
				})
			})
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "Element type (chart, image, text, ...)")
	cmd.Flags().StringVar(&box, "box", "0,0,0,0", "Bounding box as x,y,width,height")
	cmd.Flags().StringVar(&text, "text", "", "Extracted text")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newElementListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list <slide-id>",
		Short: "List the elements of a slide",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slideID, err := parseID("slide", args[0])
			if err != nil {
				return err
			}
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				elements, err := s.ListElements(ctx, slideID)
				if err != nil {
					return err
				}
				return e.emit(cmd, elements, func(out *output.Writer) {
					out.Table(elementHeaders, elementRows(elements), "no elements")
				})
			})
		},
	}
}

func newElementUpdateCmd(e *env) *cobra.Command {
	var sets, clears []string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update element fields (type, x, y, width, height, text)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("element", args[0])
			if err != nil {
				return err
			}
			fields, err := parseAssignments(sets, clears, nil, elementFloatFields)
			if err != nil {
				return err
			}
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				el, err := s.UpdateElement(ctx, id, fields)
				if err != nil {
					return err
				}
				return e.emit(cmd, el, func(out *output.Writer) {
					out.Successf("Updated element %d", el.ID)
				})
			})
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value (repeatable)")
	cmd.Flags().StringArrayVar(&clears, "clear", nil, "Field to clear (text only)")
	return cmd
}

func newElementDeleteCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an element",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("element", args[0])
			if err != nil {
				return err
			}
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				if err := s.DeleteElement(ctx, id); err != nil {
					return err
				}
				return e.emit(cmd, map[string]int64{"deleted": id}, func(out *output.Writer) {
					out.Successf("Deleted element %d", id)
				})
			})
		},
	}
}
