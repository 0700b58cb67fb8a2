package store

import (
	"regexp"
	"strings"

	"github.com/orsinium-labs/stopwords"
)

// tokenRegex matches runs of Unicode letters and digits. This mirrors the
// separator rules of the FTS5 unicode61 tokenizer closely enough that every
// query token is also an index token.
var tokenRegex = regexp.MustCompile(`[\p{L}\p{N}]+`)

// queryTokenizer turns free text into FTS5 query terms.
type queryTokenizer struct {
	stop *stopwords.Stopwords // nil disables stop word removal
}

func newQueryTokenizer(dropStopWords bool) *queryTokenizer {
	t := &queryTokenizer{}
	if dropStopWords {
		t.stop = stopwords.MustGet("en")
	}
	return t
}

// Tokenize splits text into lowercased, deduplicated terms in first-seen
// order. Stop words are dropped unless every term is a stop word.
func (t *queryTokenizer) Tokenize(text string) []string {
	words := tokenRegex.FindAllString(text, -1)
	if len(words) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(words))
	all := make([]string, 0, len(words))
	for _, w := range words {
		lower := strings.ToLower(w)
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		all = append(all, lower)
	}

	if t.stop == nil {
		return all
	}

	kept := make([]string, 0, len(all))
	for _, w := range all {
		if !t.stop.Contains(w) {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		return all
	}
	return kept
}

// MatchExpression builds an FTS5 MATCH expression requiring every term.
// Terms are quoted so that FTS5 operators in user text (AND, NEAR, *) are
// taken literally. Returns "" when there is nothing to match.
func (t *queryTokenizer) MatchExpression(text string) string {
	terms := t.Tokenize(text)
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " AND ")
}
