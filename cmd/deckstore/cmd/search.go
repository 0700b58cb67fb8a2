package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	dserrors "github.com/Aman-CERP/deckstore/internal/errors"
	"github.com/Aman-CERP/deckstore/internal/output"
	"github.com/Aman-CERP/deckstore/internal/store"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	project   string
	keywords  []string // ids, or texts resolved in --project
	match     string   // "all", "any"
	from      string
	to        string
	aiType    string
	limit     int
	offset    int
	highlight bool
}

func newSearchCmd(e *env) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:     "search [text]",
		Aliases: []string{"query"},
		Short:   "Find slides by text, keywords, import date and AI type",
		Long: `Find slides. Filters combine with AND; keyword filters combine per
--match (all: every keyword, any: at least one).

Text results are ranked by relevance. Without text, slides are listed by id.`,
		Example: `  deckstore search "quarterly revenue" -p Sales
  deckstore search -p Sales --keyword finance --keyword forecast --match any
  deckstore search growth --from 2025-01-01 --type chart --limit 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("highlight") {
				opts.highlight = e.cfg.Search.Highlight
			}
			return e.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				return runSearch(ctx, cmd, e, s, strings.Join(args, " "), opts)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.project, "project", "p", "", "Project id or name (default: all projects)")
	cmd.Flags().StringArrayVarP(&opts.keywords, "keyword", "k", nil, "Keyword id or text (repeatable; text needs --project)")
	cmd.Flags().StringVar(&opts.match, "match", "", "Keyword match mode: all, any (default from config)")
	cmd.Flags().StringVar(&opts.from, "from", "", "Imported at or after (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&opts.to, "to", "", "Imported before (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVarP(&opts.aiType, "type", "t", "", "AI-assigned slide type")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Page size (default from config)")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "Hits to skip")
	cmd.Flags().BoolVar(&opts.highlight, "highlight", false, "Show where query terms occur")

	return cmd
}

// buildQuery turns CLI options into a store query, resolving names.
func buildQuery(ctx context.Context, s *store.Store, text string, opts searchOptions) (store.Query, error) {
	q := store.Query{
		Text:      text,
		AIType:    opts.aiType,
		Limit:     opts.limit,
		Offset:    opts.offset,
		Highlight: opts.highlight,
	}

	var project *store.Project
	if opts.project != "" {
		p, err := resolveProject(ctx, s, opts.project)
		if err != nil {
			return q, err
		}
		project = p
		q.ProjectID = p.ID
	}

	if opts.match != "" {
		mode, err := store.ParseMatchMode(opts.match)
		if err != nil {
			return q, err
		}
		q.KeywordMatch = mode
	}

	for _, ref := range opts.keywords {
		if id, err := strconv.ParseInt(ref, 10, 64); err == nil && id > 0 {
			q.KeywordIDs = append(q.KeywordIDs, id)
			continue
		}
		if project == nil {
			return q, dserrors.InvalidArgument("keyword %q given by text needs --project", ref)
		}
		k, err := s.FindKeyword(ctx, project.ID, ref)
		if err != nil {
			return q, err
		}
		q.KeywordIDs = append(q.KeywordIDs, k.ID)
	}

	var err error
	if q.ImportedFrom, err = parseDate("--from", opts.from); err != nil {
		return q, err
	}
	if q.ImportedTo, err = parseDate("--to", opts.to); err != nil {
		return q, err
	}
	return q, nil
}

// parseDate accepts YYYY-MM-DD (local midnight) or RFC3339. Empty is zero.
func parseDate(flag, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, dserrors.InvalidArgument("%s expects YYYY-MM-DD or RFC3339, got %q", flag, s)
}

func runSearch(ctx context.Context, cmd *cobra.Command, e *env, s *store.Store, text string, opts searchOptions) error {
	q, err := buildQuery(ctx, s, text, opts)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := s.Query(ctx, q)
	if err != nil {
		return err
	}
	e.logger.Info("search_complete",
		slog.String("text", text),
		slog.Int("keywords", len(q.KeywordIDs)),
		slog.Int("total", res.Total),
		slog.Duration("duration", time.Since(start)))

	return e.emit(cmd, res, func(out *output.Writer) {
		if len(res.Hits) == 0 {
			out.Status("", "No slides found")
			return
		}
		for i, h := range res.Hits {
			sl := h.Slide
			header := fmt.Sprintf("%d. [slide %d] %s", res.Offset+i+1, sl.ID, truncate(sl.Title, 70))
			if text != "" {
				header += fmt.Sprintf("  (score %.3f)", h.Score)
			}
			out.Status("", header)
			for _, hl := range h.Highlights {
				out.Status("", "     "+snippet(sl, hl))
			}
		}
		out.Newline()
		summary := fmt.Sprintf("Showing %d-%d of %d", res.Offset+1, res.Offset+len(res.Hits), res.Total)
		if res.Truncated {
			summary += fmt.Sprintf(" (next page: --offset %d)", res.Offset+len(res.Hits))
		}
		out.Status("", summary)
	})
}

// snippet renders up to 30 bytes of context on each side of a highlight,
// with the match in brackets.
func snippet(sl *store.Slide, hl store.Highlight) string {
	src := sl.Body
	if hl.Field == "title" {
		src = sl.Title
	}
	if hl.Start < 0 || hl.End > len(src) || hl.Start >= hl.End {
		return hl.Field
	}
	from := max(0, hl.Start-30)
	to := min(len(src), hl.End+30)
	// Keep the window on rune boundaries.
	for from > 0 && !isRuneStart(src[from]) {
		from--
	}
	for to < len(src) && !isRuneStart(src[to]) {
		to++
	}
	return hl.Field + ": " + strings.Join(strings.Fields(src[from:hl.Start]+"["+src[hl.Start:hl.End]+"]"+src[hl.End:to]), " ")
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
