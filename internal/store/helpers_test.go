package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newTestStore opens a file-backed store in a temp dir.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	return newTestStoreWithOptions(t, DefaultOptions())
}

func newTestStoreWithOptions(t *testing.T, opts Options) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deckstore.db")
	s, err := Open(context.Background(), path, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var testEpoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// stepClock returns a clock that advances one second per call.
func stepClock(start time.Time) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

// deck is a project with one file of n slides titled "Slide 1".."Slide n".
type deck struct {
	project *Project
	file    *File
	slides  []*Slide
}

func seedDeck(t *testing.T, s *Store, projectName string, n int) deck {
	t.Helper()
	ctx := context.Background()

	p, err := s.CreateProject(ctx, projectName, "/decks/"+projectName)
	require.NoError(t, err)

	f, err := s.CreateFile(ctx, p.ID, NewFile{OriginalPath: "/imports/" + projectName + ".pptx", SlideCount: n})
	require.NoError(t, err)

	d := deck{project: p, file: f}
	for i := 0; i < n; i++ {
		sl, err := s.CreateSlide(ctx, f.ID, NewSlide{
			Position: i,
			Title:    "Slide " + string(rune('1'+i)),
			Body:     "placeholder body",
		})
		require.NoError(t, err)
		d.slides = append(d.slides, sl)
	}
	return d
}

func strPtr(s string) *string { return &s }

// searchIDs returns the slide ids Search yields for q across all projects.
func searchIDs(t *testing.T, s *Store, q string) []int64 {
	t.Helper()
	res, err := s.Search(context.Background(), q, 0, 100, 0)
	require.NoError(t, err)
	ids := make([]int64, len(res.Hits))
	for i, h := range res.Hits {
		ids[i] = h.SlideID
	}
	return ids
}

// assemblyOrder returns the slide ids and positions of an assembly in order.
func assemblyOrder(t *testing.T, s *Store, assemblyID int64) (slides []int64, positions []int) {
	t.Helper()
	items, err := s.AssemblySlides(context.Background(), assemblyID)
	require.NoError(t, err)
	for _, it := range items {
		slides = append(slides, it.SlideID)
		positions = append(positions, it.Position)
	}
	return slides, positions
}
