package store

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/coregx/ahocorasick"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Highlight is a byte range [Start, End) of a query term inside a slide field.
type Highlight struct {
	Field string // "title" or "body"
	Start int
	End   int
}

// highlighter finds query terms in slide text. Compiled automatons are
// cached per term set since the same query is typically paged through.
type highlighter struct {
	cache *lru.Cache[string, *ahocorasick.Automaton]
}

func newHighlighter(cacheSize int) *highlighter {
	cache, _ := lru.New[string, *ahocorasick.Automaton](cacheSize)
	return &highlighter{cache: cache}
}

func (h *highlighter) automaton(terms []string) (*ahocorasick.Automaton, error) {
	key := strings.Join(terms, "\x00")
	if h.cache != nil {
		if ac, ok := h.cache.Get(key); ok {
			return ac, nil
		}
	}

	// LeftmostLongest prefers "revenue" over "rev" when both are terms.
	ac, err := ahocorasick.NewBuilder().
		AddStrings(terms).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		h.cache.Add(key, ac)
	}
	return ac, nil
}

// Spans returns the merged, whole-word occurrences of terms in text as byte
// ranges of text. terms must already be lowercased.
func (h *highlighter) Spans(terms []string, text string) ([][2]int, error) {
	if len(terms) == 0 || text == "" {
		return nil, nil
	}

	ac, err := h.automaton(terms)
	if err != nil {
		return nil, err
	}

	haystack := foldSameWidth(text)
	matches := ac.FindAllOverlapping(haystack)

	spans := make([][2]int, 0, len(matches))
	for _, m := range matches {
		if m.Start < 0 || m.End > len(text) || m.Start >= m.End {
			continue
		}
		if !isWordBoundary(text, m.Start, m.End) {
			continue
		}
		spans = append(spans, [2]int{m.Start, m.End})
	}

	return mergeSpans(spans), nil
}

// foldSameWidth lowercases text rune by rune, keeping any rune whose
// lowercase form has a different UTF-8 width. Offsets into the result are
// therefore valid offsets into text.
func foldSameWidth(text string) []byte {
	out := make([]byte, 0, len(text))
	for _, r := range text {
		lower := unicode.ToLower(r)
		if utf8.RuneLen(lower) != utf8.RuneLen(r) {
			lower = r
		}
		out = utf8.AppendRune(out, lower)
	}
	return out
}

func isWordBoundary(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// mergeSpans sorts spans and joins overlapping ones.
func mergeSpans(spans [][2]int) [][2]int {
	if len(spans) < 2 {
		return spans
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i][0] != spans[j][0] {
			return spans[i][0] < spans[j][0]
		}
		return spans[i][1] > spans[j][1]
	})

	merged := spans[:1]
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if sp[0] < last[1] {
			if sp[1] > last[1] {
				last[1] = sp[1]
			}
			continue
		}
		merged = append(merged, sp)
	}
	return merged
}

// highlightSlide computes highlights for a slide's title and body.
func (h *highlighter) highlightSlide(terms []string, sl *Slide) ([]Highlight, error) {
	var out []Highlight
	for _, f := range []struct {
		name string
		text string
	}{
		{"title", sl.Title},
		{"body", sl.Body},
	} {
		spans, err := h.Spans(terms, f.text)
		if err != nil {
			return nil, err
		}
		for _, sp := range spans {
			out = append(out, Highlight{Field: f.name, Start: sp[0], End: sp[1]})
		}
	}
	return out, nil
}
