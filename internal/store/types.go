// Package store is the embedded knowledge store for deckstore: projects,
// imported presentation files, slides, slide elements, the keyword taxonomy,
// and assemblies, persisted in SQLite with an FTS5 search index that is kept
// consistent with slide content inside every write transaction.
package store

import (
	"time"
)

// Project is the root scope. It owns files, keywords, and assemblies.
type Project struct {
	ID        int64
	Name      string
	RootPath  string
	CreatedAt time.Time
}

// File is one imported source presentation.
type File struct {
	ID           int64
	ProjectID    int64
	OriginalPath string
	InternalPath string // Sanitized copy managed by the importer
	SlideCount   int    // Declared by the importer, not computed
	ImportedAt   time.Time
}

// NewFile carries the importer-supplied attributes of a File.
type NewFile struct {
	OriginalPath string
	InternalPath string
	SlideCount   int
}

// Slide is one slide extracted from a File.
// The AI fields are nil until analysis has run.
type Slide struct {
	ID        int64
	FileID    int64
	Position  int // Unique within the file
	Title     string
	Body      string
	Notes     string
	Thumbnail string // Path to a rendered thumbnail; rendering happens elsewhere
	AITopic   *string
	AIType    *string
	AIInsight *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSlide carries the attributes of a Slide at creation.
type NewSlide struct {
	Position  int
	Title     string
	Body      string
	Notes     string
	Thumbnail string
	AITopic   *string
	AIType    *string
	AIInsight *string
}

// Box is an element's bounding box in slide coordinates.
type Box struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Element is a detected sub-region of a slide (chart, image, text box).
type Element struct {
	ID      int64
	SlideID int64
	Type    string
	Box     Box
	Text    *string
}

// NewElement carries the attributes of an Element at creation.
type NewElement struct {
	Type string
	Box  Box
	Text *string
}

// Keyword is a user- or AI-defined tag. Text is unique per project,
// compared case-insensitively.
type Keyword struct {
	ID        int64
	ProjectID int64
	Text      string
	Color     string // #RRGGBB
	CreatedAt time.Time
}

// Assembly is a named, ordered selection of slides destined for export.
type Assembly struct {
	ID        int64
	ProjectID int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AssemblyEntry is one (assembly, slide, position) row. A slide may appear
// in the same assembly more than once; EntryID tells the occurrences apart.
type AssemblyEntry struct {
	EntryID    int64
	AssemblyID int64
	SlideID    int64
	Position   int
}

// Fields is a partial update: column-like field names mapped to new values.
// Unknown names are rejected with an InvalidArgument error.
type Fields map[string]any

// FileImport is a whole presentation as produced by the importer.
// It is written in a single transaction.
type FileImport struct {
	File   NewFile
	Slides []SlideImport
}

// SlideImport is one slide of a FileImport with its elements and the
// keyword texts to link (found or created case-insensitively).
type SlideImport struct {
	Slide    NewSlide
	Elements []NewElement
	Keywords []string
}

// ImportResult reports the rows written by ImportFile.
type ImportResult struct {
	File       *File
	SlideIDs   []int64
	ElementIDs []int64
	KeywordIDs []int64 // Keywords linked, deduplicated, in first-seen order
}

// Counts reports row counts per table.
type Counts struct {
	Projects        int
	Files           int
	Slides          int
	Elements        int
	Keywords        int
	SlideKeywords   int
	ElementKeywords int
	Assemblies      int
	AssemblySlides  int
	SearchRows      int
}

// CurrentSchemaVersion is the current database schema version.
const CurrentSchemaVersion = 1

// DefaultKeywordColor is used when a keyword is created without a color.
const DefaultKeywordColor = "#808080"
