// Package ingest loads import manifests and writes them into the store.
//
// A manifest is the extraction collaborator's description of one
// presentation: its project, file paths, slides, elements and keyword
// texts. Manifests are YAML or JSON, chosen by extension.
//
// Three entry points share the same Importer:
//
//	LoadManifests   parse many files in parallel, keeping input order
//	Importer        resolve or create the project, import in one transaction
//	Watcher         import manifests as they settle in a watched directory
package ingest
