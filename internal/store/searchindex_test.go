package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dserrors "github.com/Aman-CERP/deckstore/internal/errors"
)

func TestSearch_IndexFreshness(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d := seedDeck(t, s, "Acme", 3)

	for _, sl := range d.slides {
		// When: a slide's title changes
		_, err := s.UpdateSlide(ctx, sl.ID, Fields{"title": "Zephyr"})
		require.NoError(t, err)

		// Then: search for the new title finds it
		assert.Contains(t, searchIDs(t, s, "Zephyr"), sl.ID)
	}
}

func TestSearch_OldTextGone(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d := seedDeck(t, s, "Acme", 1)

	_, err := s.UpdateSlide(ctx, d.slides[0].ID, Fields{"body": "revenue forecast"})
	require.NoError(t, err)
	require.Equal(t, []int64{d.slides[0].ID}, searchIDs(t, s, "forecast"))

	_, err = s.UpdateSlide(ctx, d.slides[0].ID, Fields{"body": "headcount plan"})
	require.NoError(t, err)

	assert.Empty(t, searchIDs(t, s, "forecast"))
	assert.Equal(t, []int64{d.slides[0].ID}, searchIDs(t, s, "headcount"))
}

func TestSearch_IndexRemoval(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d := seedDeck(t, s, "Acme", 3)

	require.NoError(t, s.DeleteSlide(ctx, d.slides[1].ID))

	ids := searchIDs(t, s, "slide")
	assert.NotContains(t, ids, d.slides[1].ID)
	assert.Len(t, ids, 2)

	c, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, c.Slides, c.SearchRows, "one index row per slide")
}

func TestSearch_AllSourceFields(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d := seedDeck(t, s, "Acme", 1)
	id := d.slides[0].ID

	_, err := s.UpdateSlide(ctx, id, Fields{
		"notes":      "mention aardvark",
		"ai_topic":   "budgeting",
		"ai_insight": "costs trending down",
		"ai_type":    "quokka",
	})
	require.NoError(t, err)
	_, err = s.CreateElement(ctx, id, NewElement{Type: "text", Text: strPtr("wombat legend")})
	require.NoError(t, err)

	for _, term := range []string{"aardvark", "budgeting", "trending", "wombat"} {
		assert.Equal(t, []int64{id}, searchIDs(t, s, term), term)
	}
	assert.Empty(t, searchIDs(t, s, "quokka"), "ai_type is not searchable")
}

func TestSearch_KeywordLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d := seedDeck(t, s, "Acme", 2)
	id := d.slides[0].ID

	k, err := s.CreateKeyword(ctx, d.project.ID, "Revenue", "")
	require.NoError(t, err)

	// Link makes the keyword text searchable
	require.NoError(t, s.LinkSlide(ctx, id, k.ID))
	assert.Equal(t, []int64{id}, searchIDs(t, s, "revenue"))

	// Rename re-indexes linked slides
	_, err = s.UpdateKeyword(ctx, k.ID, Fields{"text": "Income"})
	require.NoError(t, err)
	assert.Empty(t, searchIDs(t, s, "revenue"))
	assert.Equal(t, []int64{id}, searchIDs(t, s, "income"))

	// Unlink removes it
	require.NoError(t, s.UnlinkSlide(ctx, id, k.ID))
	assert.Empty(t, searchIDs(t, s, "income"))

	// Delete of a linked keyword removes it too
	require.NoError(t, s.LinkSlide(ctx, id, k.ID))
	require.NoError(t, s.DeleteKeyword(ctx, k.ID))
	assert.Empty(t, searchIDs(t, s, "income"))
}

func TestSearch_EmptyQuery(t *testing.T) {
	s := newTestStore(t)
	seedDeck(t, s, "Acme", 2)

	assert.Empty(t, searchIDs(t, s, ""))
	assert.Empty(t, searchIDs(t, s, "  ?? "))
}

func TestSearch_ProjectScope(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := seedDeck(t, s, "Acme", 2)
	seedDeck(t, s, "Beta", 2)

	res, err := s.Search(ctx, "slide", a.project.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, res.Hits, 2)
	for _, h := range res.Hits {
		assert.Contains(t, []int64{a.slides[0].ID, a.slides[1].ID}, h.SlideID)
	}

	res, err = s.Search(ctx, "slide", 0, 10, 0)
	require.NoError(t, err)
	assert.Len(t, res.Hits, 4)
	assert.Equal(t, 4, res.Total)
}

func TestSearch_DeterministicOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedDeck(t, s, "Acme", 5)

	first, err := s.Search(ctx, "placeholder", 0, 10, 0)
	require.NoError(t, err)
	second, err := s.Search(ctx, "placeholder", 0, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Equal scores tie-break on slide id
	hits := first.Hits
	for i := 1; i < len(hits); i++ {
		if hits[i].Score == hits[i-1].Score {
			assert.Less(t, hits[i-1].SlideID, hits[i].SlideID)
		}
	}

	// Paging walks the same order
	page1, err := s.Search(ctx, "placeholder", 0, 2, 0)
	require.NoError(t, err)
	page2, err := s.Search(ctx, "placeholder", 0, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, hits[:4], append(page1.Hits, page2.Hits...))
	assert.True(t, page2.Truncated)
}

func TestSearch_LimitClamped(t *testing.T) {
	// Given: a store whose page size is capped at 2
	opts := DefaultOptions()
	opts.DefaultLimit = 2
	opts.MaxLimit = 2
	s := newTestStoreWithOptions(t, opts)
	seedDeck(t, s, "Acme", 5)

	// When: asking for 10 hits
	res, err := s.Search(context.Background(), "placeholder", 0, 10, 0)

	// Then: the cap and the remaining hits are reported
	require.NoError(t, err)
	assert.Len(t, res.Hits, 2)
	assert.Equal(t, 2, res.Limit, "effective limit is reported")
	assert.Equal(t, 5, res.Total)
	assert.True(t, res.Truncated, "clamping is signalled, not silent")

	// And: the last page is not truncated
	res, err = s.Search(context.Background(), "placeholder", 0, 10, 4)
	require.NoError(t, err)
	assert.Len(t, res.Hits, 1)
	assert.False(t, res.Truncated)
}

func TestSearch_NegativeOffsetRejected(t *testing.T) {
	s := newTestStore(t)
	seedDeck(t, s, "Acme", 1)

	_, err := s.Search(context.Background(), "placeholder", 0, 10, -1)

	assert.ErrorIs(t, err, dserrors.ErrInvalidArgument)
}

func TestSearch_RankingPrefersDenserMatch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d := seedDeck(t, s, "Acme", 2)

	_, err := s.UpdateSlide(ctx, d.slides[1].ID, Fields{"title": "Revenue", "body": "revenue revenue revenue"})
	require.NoError(t, err)
	_, err = s.UpdateSlide(ctx, d.slides[0].ID, Fields{"body": "a long body that mentions revenue once among many other words here"})
	require.NoError(t, err)

	assert.Equal(t, []int64{d.slides[1].ID, d.slides[0].ID}, searchIDs(t, s, "revenue"))
}

func TestSearch_FailedIndexWriteRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d := seedDeck(t, s, "Acme", 1)
	id := d.slides[0].ID

	// Given: the index table is broken
	_, err := s.db.Exec(`DROP TABLE slide_search`)
	require.NoError(t, err)

	// When: updating searchable text
	_, err = s.UpdateSlide(ctx, id, Fields{"title": "Changed"})

	// Then: the whole update fails as a transaction failure
	require.Error(t, err)
	assert.ErrorIs(t, err, dserrors.ErrTransactionFailure)

	// And: the slide row is unchanged
	got, err := s.GetSlide(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Slide 1", got.Title)

	// Non-text fields do not touch the index and still succeed
	_, err = s.UpdateSlide(ctx, id, Fields{"thumbnail": "thumbs/1.png"})
	assert.NoError(t, err)
}

func TestIndexSnapshot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d := seedDeck(t, s, "Acme", 2)

	rows, expected, err := s.IndexSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Len(t, expected, 2)
	for _, r := range rows {
		assert.Equal(t, expected[r.SlideID], r.Content)
	}

	// Drift one row by hand, then repair it
	_, err = s.db.Exec(`UPDATE slide_search SET content = 'stale' WHERE rowid = ?`, d.slides[0].ID)
	require.NoError(t, err)
	require.NoError(t, s.ReindexSlides(ctx, []int64{d.slides[0].ID}))

	rows, expected, err = s.IndexSnapshot(ctx)
	require.NoError(t, err)
	for _, r := range rows {
		assert.Equal(t, expected[r.SlideID], r.Content)
	}
}
