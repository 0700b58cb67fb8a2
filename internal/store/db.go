package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	dserrors "github.com/Aman-CERP/deckstore/internal/errors"
)

// Options configures a Store.
type Options struct {
	// BusyTimeout is how long SQLite waits on a locked database (default: 5s).
	BusyTimeout time.Duration

	// CacheMB is the SQLite page cache size in MB (default: 64).
	CacheMB int

	// ReadConns is the number of pooled connections available to readers
	// in addition to the writer's (default: 4). Ignored for in-memory stores.
	ReadConns int

	// DefaultLimit is the page size used when a query gives none (default: 50).
	DefaultLimit int

	// MaxLimit caps the page size of a single query (default: 500).
	MaxLimit int

	// KeywordMatch is the default keyword filter mode (default: MatchAll).
	KeywordMatch MatchMode

	// StopWords drops English stop words from search queries (default: true).
	StopWords bool

	// HighlightCacheSize is the number of compiled highlighters kept (default: 256).
	HighlightCacheSize int

	// Logger receives store events. Defaults to slog.Default().
	Logger *slog.Logger

	// Now is the clock used for timestamps. Defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		BusyTimeout:        5 * time.Second,
		CacheMB:            64,
		ReadConns:          4,
		DefaultLimit:       50,
		MaxLimit:           500,
		KeywordMatch:       MatchAll,
		StopWords:          true,
		HighlightCacheSize: 256,
	}
}

// withDefaults fills zero values from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.BusyTimeout <= 0 {
		o.BusyTimeout = d.BusyTimeout
	}
	if o.CacheMB <= 0 {
		o.CacheMB = d.CacheMB
	}
	if o.ReadConns <= 0 {
		o.ReadConns = d.ReadConns
	}
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = d.DefaultLimit
	}
	if o.MaxLimit <= 0 {
		o.MaxLimit = d.MaxLimit
	}
	if o.DefaultLimit > o.MaxLimit {
		o.DefaultLimit = o.MaxLimit
	}
	if o.KeywordMatch == "" {
		o.KeywordMatch = d.KeywordMatch
	}
	if o.HighlightCacheSize <= 0 {
		o.HighlightCacheSize = d.HighlightCacheSize
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Store is the handle every collaborator receives. There is no package-level
// instance.
//
// Writes are serialized through writeMu so that read-modify-write sequences
// (assembly positions, index rows) never interleave. Reads run concurrently
// on pooled connections and see a consistent WAL snapshot per transaction.
type Store struct {
	db     *sql.DB
	path   string
	opts   Options
	logger *slog.Logger

	writeMu sync.Mutex

	mu     sync.RWMutex // guards closed
	closed bool

	lock      *flock.Flock
	tokenizer *queryTokenizer
	highlight *highlighter
}

// Open opens or creates the store at path.
// If path is empty, a private in-memory store is created (for tests).
//
// A file-backed store takes an exclusive lock on "<path>.lock"; a second
// process opening the same store gets an ERR_202_STORE_LOCKED error.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	opts = opts.withDefaults()

	s := &Store{
		path:      path,
		opts:      opts,
		logger:    opts.Logger,
		tokenizer: newQueryTokenizer(opts.StopWords),
		highlight: newHighlighter(opts.HighlightCacheSize),
	}

	pragmas := fmt.Sprintf("_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)", opts.BusyTimeout.Milliseconds())

	var dsn string
	if path == "" {
		dsn = ":memory:?" + pragmas
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, dserrors.New(dserrors.ErrCodeTransactionFailed,
				fmt.Sprintf("failed to create directory %s", dir), err)
		}
		if err := s.acquireLock(); err != nil {
			return nil, err
		}
		dsn = path + "?" + pragmas + "&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		s.releaseLock()
		return nil, dserrors.TransactionFailure("failed to open database", err)
	}

	if path == "" {
		// Every connection to ":memory:" is a separate database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(1 + opts.ReadConns)
		db.SetMaxIdleConns(1 + opts.ReadConns)
	}
	db.SetConnMaxLifetime(0)
	s.db = db

	if err := s.configure(ctx); err != nil {
		_ = db.Close()
		s.releaseLock()
		return nil, err
	}

	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		s.releaseLock()
		return nil, dserrors.TransactionFailure("failed to initialize schema", err)
	}

	s.logger.Debug("store_opened",
		slog.String("path", displayPath(path)),
		slog.Int("read_conns", opts.ReadConns))

	return s, nil
}

// acquireLock takes the cross-process writer lock next to the database file.
func (s *Store) acquireLock() error {
	s.lock = flock.New(s.path + ".lock")
	acquired, err := s.lock.TryLock()
	if err != nil {
		return dserrors.New(dserrors.ErrCodeStoreLocked, "failed to acquire store lock", err)
	}
	if !acquired {
		return dserrors.New(dserrors.ErrCodeStoreLocked,
			fmt.Sprintf("store %s is in use by another process", s.path), nil).
			WithSuggestion("close the other deckstore process and try again")
	}
	return nil
}

func (s *Store) releaseLock() {
	if s.lock != nil {
		_ = s.lock.Unlock()
		s.lock = nil
	}
}

// configure applies database-wide pragmas. Per-connection pragmas
// (foreign_keys, busy_timeout) travel in the DSN so that every pooled
// connection gets them.
func (s *Store) configure(ctx context.Context) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA cache_size = %d", -s.opts.CacheMB*1024), // negative = KB
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return dserrors.TransactionFailure("failed to set pragma", err)
		}
	}

	var fk int
	if err := s.db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
		return dserrors.TransactionFailure("failed to read foreign_keys pragma", err)
	}
	if fk != 1 {
		return dserrors.InternalError("foreign key enforcement is not enabled", nil)
	}
	return nil
}

// initSchema creates tables and stamps the schema version.
func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, CurrentSchemaVersion)
	return err
}

// Path returns the database path ("" for in-memory stores).
func (s *Store) Path() string {
	return s.path
}

// Close checkpoints the WAL, closes the database, and releases the lock.
// Safe to call multiple times.
func (s *Store) Close() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if s.db != nil {
		if s.path != "" {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		}
		err = s.db.Close()
	}
	s.releaseLock()
	return err
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return dserrors.InternalError("store is closed", nil)
	}
	return nil
}

// update runs fn inside a write transaction. Writers are serialized; any
// error from fn rolls the whole transaction back and surfaces as a single
// typed error.
func (s *Store) update(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		s.logger.Debug("store_write_rolled_back",
			slog.String("op", op),
			slog.String("error", err.Error()))
		return classify(op, err)
	}

	if err := tx.Commit(); err != nil {
		return classify(op, err)
	}
	return nil
}

// view runs fn inside a read transaction so that every query in fn sees the
// same snapshot.
func (s *Store) view(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return classify(op, err)
	}
	return tx.Commit()
}

// classify maps an error from inside a transaction to the store's error
// kinds. Typed errors and context errors pass through unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := dserrors.As(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"),
		strings.Contains(msg, "PRIMARY KEY constraint failed"):
		return dserrors.ConstraintViolation(op+": uniqueness constraint violated", err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return dserrors.InternalError(op+": referential integrity check failed", err)
	default:
		return dserrors.TransactionFailure(op+": storage write failed", err)
	}
}

// requireRow returns NotFound unless table has a row with the given id.
// table is always a package constant, never caller input.
func requireRow(ctx context.Context, tx *sql.Tx, table, entity string, id int64) error {
	var one int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return dserrors.NotFound(entity, id)
	}
	return err
}

// Counts returns the number of rows in every table.
func (s *Store) Counts(ctx context.Context) (*Counts, error) {
	c := &Counts{}
	targets := []struct {
		table string
		dst   *int
	}{
		{"projects", &c.Projects},
		{"files", &c.Files},
		{"slides", &c.Slides},
		{"elements", &c.Elements},
		{"keywords", &c.Keywords},
		{"slide_keywords", &c.SlideKeywords},
		{"element_keywords", &c.ElementKeywords},
		{"assemblies", &c.Assemblies},
		{"assembly_slides", &c.AssemblySlides},
		{"slide_search", &c.SearchRows},
	}

	err := s.view(ctx, "counts", func(tx *sql.Tx) error {
		for _, t := range targets {
			if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.table).Scan(t.dst); err != nil {
				return fmt.Errorf("count %s: %w", t.table, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) now() int64 {
	return s.opts.Now().UnixNano()
}

func fromUnixNano(ns int64) time.Time {
	return time.Unix(0, ns)
}

func displayPath(path string) string {
	if path == "" {
		return ":memory:"
	}
	return path
}
