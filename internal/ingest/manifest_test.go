package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dserrors "github.com/Aman-CERP/deckstore/internal/errors"
)

const yamlManifest = `project: Quarterly
file:
  original_path: /decks/q4.pptx
  internal_path: files/q4.pptx
slides:
  - position: 0
    title: Q4 Revenue
    body: Revenue grew 12%
    ai_type: chart
    keywords: [Revenue, Growth]
    elements:
      - type: text
        x: 10
        y: 20
        width: 300
        height: 40
        text: Revenue grew
  - position: 1
    title: Outlook
`

const jsonManifest = `{
  "project": "Quarterly",
  "file": {"original_path": "/decks/q1.pptx", "internal_path": "files/q1.pptx", "slide_count": 5},
  "slides": [{"position": 0, "title": "Plan", "keywords": ["plan"]}]
}`

func writeManifest(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadManifest_YAML(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "q4.yaml", yamlManifest)

	m, err := LoadManifest(path)
	require.NoError(t, err)

	assert.Equal(t, "Quarterly", m.Project)
	assert.Equal(t, path, m.Source)
	require.Len(t, m.Slides, 2)
	assert.Equal(t, []string{"Revenue", "Growth"}, m.Slides[0].Keywords)
	require.NotNil(t, m.Slides[0].AIType)
	assert.Equal(t, "chart", *m.Slides[0].AIType)
	assert.Nil(t, m.Slides[0].AITopic)

	in := m.FileImport()
	assert.Equal(t, "/decks/q4.pptx", in.File.OriginalPath)
	assert.Zero(t, in.File.SlideCount, "left for the store to default")
	require.Len(t, in.Slides[0].Elements, 1)
	assert.Equal(t, 300.0, in.Slides[0].Elements[0].Box.Width)
	assert.Equal(t, "Revenue grew", *in.Slides[0].Elements[0].Text)
	assert.Empty(t, in.Slides[1].Elements)
}

func TestLoadManifest_JSON(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "q1.JSON", jsonManifest)

	m, err := LoadManifest(path)
	require.NoError(t, err)

	assert.Equal(t, 5, m.FileImport().File.SlideCount)
	assert.Equal(t, "Plan", m.Slides[0].Title)
}

func TestParseManifest_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		ext  string
	}{
		{"bad yaml", "project: [unclosed", ".yaml"},
		{"bad json", "{", ".json"},
		{"no project", "file: {original_path: /a.pptx}", ".yml"},
		{"no original path", "project: P", ".yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.data), tt.ext, "m"+tt.ext)
			require.Error(t, err)
			assert.ErrorIs(t, err, dserrors.ErrInvalidArgument)
		})
	}
}

func TestLoadManifest_MissingFile(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadManifests_PreservesOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"c.yaml", "a.yaml", "b.json"} {
		content := yamlManifest
		if filepath.Ext(name) == ".json" {
			content = jsonManifest
		}
		paths = append(paths, writeManifest(t, dir, name, content))
	}

	ms, err := LoadManifests(context.Background(), paths, 3)
	require.NoError(t, err)
	require.Len(t, ms, 3)
	for i, m := range ms {
		assert.Equal(t, paths[i], m.Source)
	}
}

func TestLoadManifests_FirstErrorFails(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeManifest(t, dir, "ok.yaml", yamlManifest),
		writeManifest(t, dir, "bad.yaml", "project: ["),
	}

	ms, err := LoadManifests(context.Background(), paths, 0)
	assert.Error(t, err)
	assert.Nil(t, ms)
}

func TestFindManifests(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "b.yml", yamlManifest)
	writeManifest(t, dir, "a.json", jsonManifest)
	writeManifest(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.yaml"), 0o755))

	paths, err := FindManifests(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.json"), filepath.Join(dir, "b.yml")}, paths)
}
