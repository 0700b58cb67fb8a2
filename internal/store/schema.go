package store

// schemaSQL defines all tables.
//
// Foreign keys are declared without ON DELETE CASCADE: the store deletes
// children before parents itself (see cascade.go), and foreign_keys=ON turns
// any missed step into a failed transaction instead of an orphan.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS projects (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	root_path TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL REFERENCES projects(id),
	original_path TEXT NOT NULL,
	internal_path TEXT NOT NULL DEFAULT '',
	slide_count INTEGER NOT NULL DEFAULT 0,
	imported_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS slides (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL REFERENCES files(id),
	position INTEGER NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	thumbnail TEXT NOT NULL DEFAULT '',
	ai_topic TEXT,
	ai_type TEXT,
	ai_insight TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	UNIQUE (file_id, position)
);

CREATE TABLE IF NOT EXISTS elements (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	slide_id INTEGER NOT NULL REFERENCES slides(id),
	type TEXT NOT NULL,
	x REAL NOT NULL DEFAULT 0,
	y REAL NOT NULL DEFAULT 0,
	width REAL NOT NULL DEFAULT 0,
	height REAL NOT NULL DEFAULT 0,
	text TEXT
);

-- Keyword text is unique per project, case-insensitively (NOCASE applies
-- to the UNIQUE index as well as to lookups).
CREATE TABLE IF NOT EXISTS keywords (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL REFERENCES projects(id),
	text TEXT NOT NULL COLLATE NOCASE,
	color TEXT NOT NULL DEFAULT '#808080',
	created_at INTEGER NOT NULL,
	UNIQUE (project_id, text)
);

CREATE TABLE IF NOT EXISTS slide_keywords (
	slide_id INTEGER NOT NULL REFERENCES slides(id),
	keyword_id INTEGER NOT NULL REFERENCES keywords(id),
	created_at INTEGER NOT NULL,
	PRIMARY KEY (slide_id, keyword_id)
);

CREATE TABLE IF NOT EXISTS element_keywords (
	element_id INTEGER NOT NULL REFERENCES elements(id),
	keyword_id INTEGER NOT NULL REFERENCES keywords(id),
	created_at INTEGER NOT NULL,
	PRIMARY KEY (element_id, keyword_id)
);

CREATE TABLE IF NOT EXISTS assemblies (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL REFERENCES projects(id),
	name TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

-- Positions are 0..n-1 per assembly. Reorders park rows on negative
-- positions while shifting, so there is no CHECK (position >= 0).
CREATE TABLE IF NOT EXISTS assembly_slides (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	assembly_id INTEGER NOT NULL REFERENCES assemblies(id),
	slide_id INTEGER NOT NULL REFERENCES slides(id),
	position INTEGER NOT NULL,
	UNIQUE (assembly_id, position)
);

-- One row per slide, rowid = slides.id. Maintained by the store, not by
-- triggers.
CREATE VIRTUAL TABLE IF NOT EXISTS slide_search USING fts5(
	content,
	tokenize = 'unicode61 remove_diacritics 2'
);

CREATE INDEX IF NOT EXISTS idx_files_project ON files(project_id);
CREATE INDEX IF NOT EXISTS idx_files_imported ON files(imported_at);
CREATE INDEX IF NOT EXISTS idx_slides_file ON slides(file_id);
CREATE INDEX IF NOT EXISTS idx_elements_slide ON elements(slide_id);
CREATE INDEX IF NOT EXISTS idx_keywords_project ON keywords(project_id);
CREATE INDEX IF NOT EXISTS idx_slide_keywords_keyword ON slide_keywords(keyword_id);
CREATE INDEX IF NOT EXISTS idx_element_keywords_keyword ON element_keywords(keyword_id);
CREATE INDEX IF NOT EXISTS idx_assemblies_project ON assemblies(project_id);
CREATE INDEX IF NOT EXISTS idx_assembly_slides_slide ON assembly_slides(slide_id);
`
