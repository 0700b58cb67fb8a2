package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	dserrors "github.com/Aman-CERP/deckstore/internal/errors"
	"github.com/Aman-CERP/deckstore/internal/store"
)

// Manifest describes one extracted presentation ready for import.
// It is written by the extraction collaborator as YAML or JSON.
type Manifest struct {
	Project string          `yaml:"project" json:"project"`
	File    ManifestFile    `yaml:"file" json:"file"`
	Slides  []ManifestSlide `yaml:"slides" json:"slides"`

	// Source is the path the manifest was read from.
	Source string `yaml:"-" json:"-"`
}

// ManifestFile is the file section of a manifest.
type ManifestFile struct {
	OriginalPath string `yaml:"original_path" json:"original_path"`
	InternalPath string `yaml:"internal_path" json:"internal_path"`
	SlideCount   int    `yaml:"slide_count,omitempty" json:"slide_count,omitempty"`
}

// ManifestSlide is one slide entry.
type ManifestSlide struct {
	Position  int               `yaml:"position" json:"position"`
	Title     string            `yaml:"title" json:"title"`
	Body      string            `yaml:"body" json:"body"`
	Notes     string            `yaml:"notes" json:"notes"`
	Thumbnail string            `yaml:"thumbnail" json:"thumbnail"`
	AITopic   *string           `yaml:"ai_topic" json:"ai_topic"`
	AIType    *string           `yaml:"ai_type" json:"ai_type"`
	AIInsight *string           `yaml:"ai_insight" json:"ai_insight"`
	Keywords  []string          `yaml:"keywords" json:"keywords"`
	Elements  []ManifestElement `yaml:"elements" json:"elements"`
}

// ManifestElement is one element entry.
type ManifestElement struct {
	Type   string  `yaml:"type" json:"type"`
	X      float64 `yaml:"x" json:"x"`
	Y      float64 `yaml:"y" json:"y"`
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
	Text   *string `yaml:"text" json:"text"`
}

// IsManifestPath reports whether path has a manifest extension.
func IsManifestPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}

// LoadManifest reads and validates one manifest. The format is chosen by
// extension: .json is JSON, anything else YAML.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return ParseManifest(data, filepath.Ext(path), path)
}

// ParseManifest decodes data in the format named by ext.
func ParseManifest(data []byte, ext, source string) (*Manifest, error) {
	var m Manifest
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, dserrors.InvalidArgument("manifest %s: invalid JSON: %v", source, err)
		}
	default:
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, dserrors.InvalidArgument("manifest %s: invalid YAML: %v", source, err)
		}
	}
	m.Source = source
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the fields the store cannot default.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Project) == "" {
		return dserrors.InvalidArgument("manifest %s: project is required", m.Source)
	}
	if m.File.OriginalPath == "" {
		return dserrors.InvalidArgument("manifest %s: file.original_path is required", m.Source)
	}
	return nil
}

// FileImport converts the manifest to the store's import shape.
func (m *Manifest) FileImport() store.FileImport {
	in := store.FileImport{
		File: store.NewFile{
			OriginalPath: m.File.OriginalPath,
			InternalPath: m.File.InternalPath,
			SlideCount:   m.File.SlideCount,
		},
		Slides: make([]store.SlideImport, 0, len(m.Slides)),
	}
	for _, s := range m.Slides {
		si := store.SlideImport{
			Slide: store.NewSlide{
				Position:  s.Position,
				Title:     s.Title,
				Body:      s.Body,
				Notes:     s.Notes,
				Thumbnail: s.Thumbnail,
				AITopic:   s.AITopic,
				AIType:    s.AIType,
				AIInsight: s.AIInsight,
			},
			Keywords: s.Keywords,
		}
		for _, e := range s.Elements {
			si.Elements = append(si.Elements, store.NewElement{
				Type: e.Type,
				Box:  store.Box{X: e.X, Y: e.Y, Width: e.Width, Height: e.Height},
				Text: e.Text,
			})
		}
		in.Slides = append(in.Slides, si)
	}
	return in
}

// LoadManifests parses paths with up to workers goroutines. The result is in
// input order. The first failure cancels the remaining reads and is returned.
func LoadManifests(ctx context.Context, paths []string, workers int) ([]*Manifest, error) {
	if workers <= 0 {
		workers = 1
	}

	out := make([]*Manifest, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, err := LoadManifest(path)
			if err != nil {
				return err
			}
			out[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// FindManifests lists the manifest files directly inside dir, sorted by name.
func FindManifests(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read import directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !IsManifestPath(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}
