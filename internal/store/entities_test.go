package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dserrors "github.com/Aman-CERP/deckstore/internal/errors"
)

func TestProject_CRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// Create
	p, err := s.CreateProject(ctx, "  Acme  ", "/decks/acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme", p.Name, "name is trimmed")

	// Get
	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, "/decks/acme", got.RootPath)

	// Update
	upd, err := s.UpdateProject(ctx, p.ID, Fields{"name": "Acme Corp"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", upd.Name)
	assert.Equal(t, "/decks/acme", upd.RootPath)

	// List
	_, err = s.CreateProject(ctx, "Beta", "")
	require.NoError(t, err)
	all, err := s.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Acme Corp", all[0].Name)

	// Delete
	require.NoError(t, s.DeleteProject(ctx, p.ID))
	_, err = s.GetProject(ctx, p.ID)
	assert.ErrorIs(t, err, dserrors.ErrNotFound)
}

func TestProject_DuplicateName(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateProject(ctx, "Acme", "")
	require.NoError(t, err)

	_, err = s.CreateProject(ctx, "Acme", "")
	assert.ErrorIs(t, err, dserrors.ErrConstraintViolation)
}

func TestProject_EmptyName(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateProject(context.Background(), "   ", "")
	assert.ErrorIs(t, err, dserrors.ErrInvalidArgument)
}

func TestFile_RequiresProject(t *testing.T) {
	// Given: no project 42
	s := newTestStore(t)

	// When: creating a file under it
	_, err := s.CreateFile(context.Background(), 42, NewFile{OriginalPath: "/q4.pptx"})

	// Then: NotFound, and nothing was written
	assert.ErrorIs(t, err, dserrors.ErrNotFound)
	c, err := s.Counts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, c.Files)
}

func TestFile_CRUD(t *testing.T) {
	ctx := context.Background()
	opts := DefaultOptions()
	opts.Now = stepClock(testEpoch)
	s := newTestStoreWithOptions(t, opts)

	p, err := s.CreateProject(ctx, "Acme", "")
	require.NoError(t, err)

	f1, err := s.CreateFile(ctx, p.ID, NewFile{OriginalPath: "/q3.pptx", InternalPath: "files/1.pptx", SlideCount: 10})
	require.NoError(t, err)
	f2, err := s.CreateFile(ctx, p.ID, NewFile{OriginalPath: "/q4.pptx"})
	require.NoError(t, err)
	assert.True(t, f2.ImportedAt.After(f1.ImportedAt))

	files, err := s.ListFiles(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, f2.ID, files[0].ID, "newest first")

	upd, err := s.UpdateFile(ctx, f1.ID, Fields{"slide_count": 12, "internal_path": "files/1b.pptx"})
	require.NoError(t, err)
	assert.Equal(t, 12, upd.SlideCount)
	assert.Equal(t, "files/1b.pptx", upd.InternalPath)
	assert.Equal(t, "/q3.pptx", upd.OriginalPath)

	_, err = s.UpdateFile(ctx, f1.ID, Fields{"slide_count": -1})
	assert.ErrorIs(t, err, dserrors.ErrInvalidArgument)

	require.NoError(t, s.DeleteFile(ctx, f1.ID))
	_, err = s.GetFile(ctx, f1.ID)
	assert.ErrorIs(t, err, dserrors.ErrNotFound)
}

func TestSlide_CRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d := seedDeck(t, s, "Acme", 2)

	// Given: a slide without AI fields
	sl := d.slides[0]
	assert.Nil(t, sl.AITopic)

	// When: setting AI fields and the title
	upd, err := s.UpdateSlide(ctx, sl.ID, Fields{
		"title":    "Revenue Overview",
		"ai_topic": "finance",
		"ai_type":  strPtr("chart"),
	})
	require.NoError(t, err)

	// Then: only those fields change
	assert.Equal(t, "Revenue Overview", upd.Title)
	require.NotNil(t, upd.AITopic)
	assert.Equal(t, "finance", *upd.AITopic)
	require.NotNil(t, upd.AIType)
	assert.Equal(t, "chart", *upd.AIType)
	assert.Nil(t, upd.AIInsight)
	assert.Equal(t, sl.Body, upd.Body)

	// nil clears an AI field
	upd, err = s.UpdateSlide(ctx, sl.ID, Fields{"ai_topic": nil})
	require.NoError(t, err)
	assert.Nil(t, upd.AITopic)

	slides, err := s.ListSlides(ctx, d.file.ID)
	require.NoError(t, err)
	require.Len(t, slides, 2)
	assert.Equal(t, 0, slides[0].Position)
	assert.Equal(t, 1, slides[1].Position)
}

func TestSlide_UpdateRejectsUnknownField(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d := seedDeck(t, s, "Acme", 1)

	_, err := s.UpdateSlide(ctx, d.slides[0].ID, Fields{"title": "ok", "colour": "red"})

	assert.ErrorIs(t, err, dserrors.ErrInvalidArgument)
	got, err := s.GetSlide(ctx, d.slides[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Slide 1", got.Title, "nothing applied")
}

func TestSlide_UpdateWrongType(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d := seedDeck(t, s, "Acme", 1)

	_, err := s.UpdateSlide(ctx, d.slides[0].ID, Fields{"title": 12})
	assert.ErrorIs(t, err, dserrors.ErrInvalidArgument)

	_, err = s.UpdateSlide(ctx, d.slides[0].ID, Fields{})
	assert.ErrorIs(t, err, dserrors.ErrInvalidArgument)
}

func TestSlide_DuplicatePosition(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d := seedDeck(t, s, "Acme", 2)

	_, err := s.CreateSlide(ctx, d.file.ID, NewSlide{Position: 1, Title: "dup"})
	assert.ErrorIs(t, err, dserrors.ErrConstraintViolation)

	_, err = s.UpdateSlide(ctx, d.slides[0].ID, Fields{"position": 1})
	assert.ErrorIs(t, err, dserrors.ErrConstraintViolation)

	_, err = s.CreateSlide(ctx, d.file.ID, NewSlide{Position: -1})
	assert.ErrorIs(t, err, dserrors.ErrInvalidArgument)
}

func TestSlide_CreateRequiresFile(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateSlide(context.Background(), 7, NewSlide{Title: "x"})
	assert.ErrorIs(t, err, dserrors.ErrNotFound)
}

func TestElement_CRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d := seedDeck(t, s, "Acme", 1)
	slideID := d.slides[0].ID

	e, err := s.CreateElement(ctx, slideID, NewElement{
		Type: "chart",
		Box:  Box{X: 10, Y: 20, Width: 300, Height: 200},
		Text: strPtr("Quarterly margin"),
	})
	require.NoError(t, err)
	assert.Equal(t, Box{X: 10, Y: 20, Width: 300, Height: 200}, e.Box)

	upd, err := s.UpdateElement(ctx, e.ID, Fields{"x": 15, "width": 320.5})
	require.NoError(t, err)
	assert.Equal(t, 15.0, upd.Box.X)
	assert.Equal(t, 320.5, upd.Box.Width)
	assert.Equal(t, 20.0, upd.Box.Y)

	_, err = s.UpdateElement(ctx, e.ID, Fields{"height": -1})
	assert.ErrorIs(t, err, dserrors.ErrInvalidArgument)

	els, err := s.ListElements(ctx, slideID)
	require.NoError(t, err)
	require.Len(t, els, 1)

	require.NoError(t, s.DeleteElement(ctx, e.ID))
	_, err = s.GetElement(ctx, e.ID)
	assert.ErrorIs(t, err, dserrors.ErrNotFound)
}

func TestElement_Validation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d := seedDeck(t, s, "Acme", 1)

	_, err := s.CreateElement(ctx, d.slides[0].ID, NewElement{Type: ""})
	assert.ErrorIs(t, err, dserrors.ErrInvalidArgument)

	_, err = s.CreateElement(ctx, 999, NewElement{Type: "image"})
	assert.ErrorIs(t, err, dserrors.ErrNotFound)
}

func TestKeyword_UniquePerProject(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a, err := s.CreateProject(ctx, "Acme", "")
	require.NoError(t, err)
	b, err := s.CreateProject(ctx, "Beta", "")
	require.NoError(t, err)

	// Given: keyword "Revenue" in Acme
	_, err = s.CreateKeyword(ctx, a.ID, "Revenue", "")
	require.NoError(t, err)

	// Then: the same text in Acme is a constraint violation, in any case
	_, err = s.CreateKeyword(ctx, a.ID, "Revenue", "")
	assert.ErrorIs(t, err, dserrors.ErrConstraintViolation)
	_, err = s.CreateKeyword(ctx, a.ID, "  REVENUE ", "")
	assert.ErrorIs(t, err, dserrors.ErrConstraintViolation)

	// And: the same text in Beta succeeds
	_, err = s.CreateKeyword(ctx, b.ID, "Revenue", "")
	assert.NoError(t, err)
}

func TestKeyword_CRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p, err := s.CreateProject(ctx, "Acme", "")
	require.NoError(t, err)

	k, err := s.CreateKeyword(ctx, p.ID, "Revenue", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultKeywordColor, k.Color)

	found, err := s.FindKeyword(ctx, p.ID, "revenue")
	require.NoError(t, err)
	assert.Equal(t, k.ID, found.ID)

	_, err = s.FindKeyword(ctx, p.ID, "missing")
	assert.ErrorIs(t, err, dserrors.ErrNotFound)

	upd, err := s.UpdateKeyword(ctx, k.ID, Fields{"color": "#ff0000"})
	require.NoError(t, err)
	assert.Equal(t, "#FF0000", upd.Color)

	// Changing only the case of the own text is allowed
	upd, err = s.UpdateKeyword(ctx, k.ID, Fields{"text": "REVENUE"})
	require.NoError(t, err)
	assert.Equal(t, "REVENUE", upd.Text)

	other, err := s.CreateKeyword(ctx, p.ID, "Growth", "#00FF00")
	require.NoError(t, err)
	_, err = s.UpdateKeyword(ctx, other.ID, Fields{"text": "revenue"})
	assert.ErrorIs(t, err, dserrors.ErrConstraintViolation)

	list, err := s.ListKeywords(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Growth", list[0].Text)

	require.NoError(t, s.DeleteKeyword(ctx, k.ID))
	_, err = s.GetKeyword(ctx, k.ID)
	assert.ErrorIs(t, err, dserrors.ErrNotFound)
}

func TestKeyword_Validation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p, err := s.CreateProject(ctx, "Acme", "")
	require.NoError(t, err)

	tests := []struct {
		name  string
		text  string
		color string
	}{
		{"empty text", "  ", ""},
		{"named color", "Revenue", "red"},
		{"short hex", "Revenue", "#FFF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateKeyword(ctx, p.ID, tt.text, tt.color)
			assert.ErrorIs(t, err, dserrors.ErrInvalidArgument)
		})
	}

	_, err = s.CreateKeyword(ctx, 999, "Revenue", "")
	assert.ErrorIs(t, err, dserrors.ErrNotFound)
}

func TestAssembly_CRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d := seedDeck(t, s, "Acme", 1)

	a, err := s.CreateAssembly(ctx, d.project.ID, "Pitch")
	require.NoError(t, err)

	upd, err := s.UpdateAssembly(ctx, a.ID, Fields{"name": "Board Pitch"})
	require.NoError(t, err)
	assert.Equal(t, "Board Pitch", upd.Name)

	list, err := s.ListAssemblies(ctx, d.project.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = s.UpdateAssembly(ctx, a.ID, Fields{"project_id": 2})
	assert.ErrorIs(t, err, dserrors.ErrInvalidArgument)

	require.NoError(t, s.DeleteAssembly(ctx, a.ID))
	_, err = s.GetAssembly(ctx, a.ID)
	assert.ErrorIs(t, err, dserrors.ErrNotFound)
}

func TestDelete_MissingIDsReturnNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	deletes := map[string]func() error{
		"project":  func() error { return s.DeleteProject(ctx, 1) },
		"file":     func() error { return s.DeleteFile(ctx, 1) },
		"slide":    func() error { return s.DeleteSlide(ctx, 1) },
		"element":  func() error { return s.DeleteElement(ctx, 1) },
		"keyword":  func() error { return s.DeleteKeyword(ctx, 1) },
		"assembly": func() error { return s.DeleteAssembly(ctx, 1) },
	}
	for name, del := range deletes {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, del(), dserrors.ErrNotFound)
		})
	}
}
