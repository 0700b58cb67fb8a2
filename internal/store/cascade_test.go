package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedRichProject builds a project with two files, elements, slide and
// element keywords, and an assembly.
func seedRichProject(t *testing.T, s *Store, name string) deck {
	t.Helper()
	ctx := context.Background()

	d := seedDeck(t, s, name, 3)
	f2, err := s.CreateFile(ctx, d.project.ID, NewFile{OriginalPath: "/imports/" + name + "-2.pptx"})
	require.NoError(t, err)
	extra, err := s.CreateSlide(ctx, f2.ID, NewSlide{Position: 0, Title: "Appendix"})
	require.NoError(t, err)
	d.slides = append(d.slides, extra)

	k1, err := s.CreateKeyword(ctx, d.project.ID, "Revenue", "")
	require.NoError(t, err)
	k2, err := s.CreateKeyword(ctx, d.project.ID, "Risk", "#FF0000")
	require.NoError(t, err)

	for _, sl := range d.slides {
		e, err := s.CreateElement(ctx, sl.ID, NewElement{Type: "text", Text: strPtr("caption")})
		require.NoError(t, err)
		require.NoError(t, s.LinkElement(ctx, e.ID, k2.ID))
		require.NoError(t, s.LinkSlide(ctx, sl.ID, k1.ID))
	}

	a, err := s.CreateAssembly(ctx, d.project.ID, "Pitch")
	require.NoError(t, err)
	for _, sl := range d.slides {
		_, err := s.AssemblyAppend(ctx, a.ID, sl.ID)
		require.NoError(t, err)
	}
	return d
}

func TestDeleteProject_CascadeCompleteness(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// Given: two populated projects
	doomed := seedRichProject(t, s, "Acme")
	kept := seedRichProject(t, s, "Beta")

	before, err := s.Counts(ctx)
	require.NoError(t, err)

	// When: deleting one of them
	require.NoError(t, s.DeleteProject(ctx, doomed.project.ID))

	// Then: exactly the other project's rows remain
	after, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{
		Projects:        1,
		Files:           before.Files / 2,
		Slides:          before.Slides / 2,
		Elements:        before.Elements / 2,
		Keywords:        before.Keywords / 2,
		SlideKeywords:   before.SlideKeywords / 2,
		ElementKeywords: before.ElementKeywords / 2,
		Assemblies:      before.Assemblies / 2,
		AssemblySlides:  before.AssemblySlides / 2,
		SearchRows:      before.SearchRows / 2,
	}, *after)

	// And: no row references the deleted project
	var refs int
	err = s.db.QueryRow(`
		SELECT (SELECT COUNT(*) FROM files WHERE project_id = ?)
		     + (SELECT COUNT(*) FROM keywords WHERE project_id = ?)
		     + (SELECT COUNT(*) FROM assemblies WHERE project_id = ?)`,
		doomed.project.ID, doomed.project.ID, doomed.project.ID).Scan(&refs)
	require.NoError(t, err)
	assert.Zero(t, refs)

	// And: the surviving project still searches
	res, err := s.Search(ctx, "caption", kept.project.ID, 50, 0)
	require.NoError(t, err)
	assert.Len(t, res.Hits, len(kept.slides))
	res, err = s.Search(ctx, "caption", doomed.project.ID, 50, 0)
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
}

func TestDeleteFile_Cascade(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d := seedRichProject(t, s, "Acme")

	// When: deleting the first file (3 of the 4 slides)
	require.NoError(t, s.DeleteFile(ctx, d.file.ID))

	// Then: only the second file's slide and its dependents remain
	c, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Files)
	assert.Equal(t, 1, c.Slides)
	assert.Equal(t, 1, c.Elements)
	assert.Equal(t, 1, c.SlideKeywords)
	assert.Equal(t, 1, c.ElementKeywords)
	assert.Equal(t, 2, c.Keywords, "keywords belong to the project, not the file")
	assert.Equal(t, 1, c.SearchRows)

	// And: the assembly was compacted around the removed slides
	assemblies, err := s.ListAssemblies(ctx, d.project.ID)
	require.NoError(t, err)
	order, positions := assemblyOrder(t, s, assemblies[0].ID)
	assert.Equal(t, []int64{d.slides[3].ID}, order)
	assert.Equal(t, []int{0}, positions)
}

func TestDeleteSlide_Cascade(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d := seedRichProject(t, s, "Acme")
	victim := d.slides[1].ID

	require.NoError(t, s.DeleteSlide(ctx, victim))

	c, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Slides)
	assert.Equal(t, 3, c.Elements)
	assert.Equal(t, 3, c.SlideKeywords)
	assert.Equal(t, 3, c.ElementKeywords)
	assert.Equal(t, 3, c.AssemblySlides)
	assert.Equal(t, 3, c.SearchRows)

	_, err = s.GetSlide(ctx, victim)
	assert.Error(t, err)
}

func TestDeleteKeyword_RemovesLinksOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d := seedRichProject(t, s, "Acme")

	k, err := s.FindKeyword(ctx, d.project.ID, "risk")
	require.NoError(t, err)
	require.NoError(t, s.DeleteKeyword(ctx, k.ID))

	c, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Keywords)
	assert.Zero(t, c.ElementKeywords)
	assert.Equal(t, 4, c.SlideKeywords)
	assert.Equal(t, 4, c.Elements)
}

func TestDeleteAssembly_KeepsSlides(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d := seedRichProject(t, s, "Acme")

	assemblies, err := s.ListAssemblies(ctx, d.project.ID)
	require.NoError(t, err)
	require.NoError(t, s.DeleteAssembly(ctx, assemblies[0].ID))

	c, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, c.Assemblies)
	assert.Zero(t, c.AssemblySlides)
	assert.Equal(t, 4, c.Slides)
}

func TestExecIn_Chunks(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p, err := s.CreateProject(ctx, "Acme", "")
	require.NoError(t, err)

	// More slides than fit in one IN list
	var in FileImport
	in.File = NewFile{OriginalPath: "big.pptx"}
	for i := 0; i < idChunk+25; i++ {
		in.Slides = append(in.Slides, SlideImport{Slide: NewSlide{Position: i, Title: "bulk"}})
	}
	res, err := s.ImportFile(ctx, p.ID, in)
	require.NoError(t, err)

	require.NoError(t, s.DeleteFile(ctx, res.File.ID))

	c, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, c.Slides)
	assert.Zero(t, c.SearchRows)
}

func TestExecIn_CountsRowsAcrossChunks(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p, err := s.CreateProject(ctx, "Acme", "")
	require.NoError(t, err)

	var in FileImport
	in.File = NewFile{OriginalPath: "big.pptx"}
	for i := 0; i < idChunk+3; i++ {
		in.Slides = append(in.Slides, SlideImport{Slide: NewSlide{Position: i, Title: "bulk"}})
	}
	res, err := s.ImportFile(ctx, p.ID, in)
	require.NoError(t, err)

	ids := res.SlideIDs

	// When: one statement spans two chunks
	var n int64
	err = s.update(ctx, "test_exec_in", func(tx *sql.Tx) error {
		var err error
		n, err = execIn(ctx, tx, `UPDATE slides SET title = 'renamed' WHERE id IN (?)`, ids)
		return err
	})

	// Then: rows from every chunk are counted
	require.NoError(t, err)
	assert.Equal(t, int64(idChunk+3), n)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?,?,?", placeholders(3))
}
