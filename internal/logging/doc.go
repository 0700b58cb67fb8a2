// Package logging writes deckstore's structured JSON logs to a size-rotated
// file under ~/.deckstore/logs and reads them back for `deckstore logs`.
//
// Without --debug the CLI logs at the configured level (info by default) to
// the file only; --debug lowers the level and mirrors records to stderr.
package logging
