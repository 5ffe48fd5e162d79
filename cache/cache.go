// Package cache stores compiled units in a SQLite database, keyed by a digest
// of the sources and the compiler settings that produced them.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/deepnoodle-ai/kestrel/bytecode"
	"github.com/gofrs/uuid"
	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

// ErrNotFound indicates that no artifact is stored under a key.
var ErrNotFound = errors.New("artifact not found")

const schema = `CREATE TABLE IF NOT EXISTS artifacts (
	id TEXT PRIMARY KEY,
	digest TEXT NOT NULL UNIQUE,
	label TEXT NOT NULL,
	forms INTEGER NOT NULL,
	code BLOB NOT NULL,
	created_at INTEGER NOT NULL
)`

// Source is one input file of a compilation unit.
type Source struct {
	Filename string
	Text     string
}

// Key identifies a compilation unit by its sources, in order, and the
// compiler settings used for it.
func Key(sources []Source, settings map[string]string) string {
	h := sha256.New()
	write := func(s string) {
		fmt.Fprintf(h, "%d:%s", len(s), s)
	}
	write(fmt.Sprint(bytecode.FormatVersion))
	for _, src := range sources {
		write(src.Filename)
		write(src.Text)
	}
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		write(k)
		write(settings[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Artifact is a stored compilation unit.
type Artifact struct {
	ID        uuid.UUID
	Digest    string
	Label     string
	CreatedAt time.Time
	Forms     []*bytecode.Function
}

// Entry describes an artifact without decoding its code.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	Digest    string    `json:"digest"`
	Label     string    `json:"label"`
	Forms     int       `json:"forms"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for cache events.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cache) {
		c.log = logger
	}
}

// WithClock overrides the time source used to stamp new artifacts.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// Cache is a store of compiled units. It is safe for concurrent use.
type Cache struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
	mu  sync.Mutex
}

// Open opens or creates the cache database at path. The path ":memory:"
// opens a private in-memory database.
func Open(path string, opts ...Option) (*Cache, error) {
	c := &Cache{log: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expanding cache path: %w", err)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// An in-memory database exists per connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	c.db = db
	return c, nil
}

// DefaultPath returns the cache location in the user's home directory.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("getting home dir: %w", err)
	}
	return filepath.Join(home, ".kestrel", "artifacts.db"), nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Put stores forms under digest, replacing any previous artifact with the
// same digest.
func (c *Cache) Put(ctx context.Context, digest, label string, forms []*bytecode.Function) (Artifact, error) {
	code, err := bytecode.MarshalUnit(forms)
	if err != nil {
		return Artifact{}, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return Artifact{}, fmt.Errorf("generating artifact id: %w", err)
	}
	created := c.now().UTC().Truncate(time.Second)

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO artifacts (id, digest, label, forms, code, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		id.String(), digest, label, len(forms), code, created.Unix(),
	)
	if err != nil {
		return Artifact{}, fmt.Errorf("saving artifact: %w", err)
	}
	c.log.Debug().
		Str("id", id.String()).
		Str("digest", digest).
		Int("forms", len(forms)).
		Int("size", len(code)).
		Msg("stored artifact")
	return Artifact{ID: id, Digest: digest, Label: label, CreatedAt: created, Forms: forms}, nil
}

// Get returns the artifact stored under digest, or ErrNotFound.
func (c *Cache) Get(ctx context.Context, digest string) (Artifact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var (
		id, label string
		code      []byte
		created   int64
	)
	err := c.db.QueryRowContext(ctx,
		"SELECT id, label, code, created_at FROM artifacts WHERE digest = ?", digest,
	).Scan(&id, &label, &code, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Artifact{}, ErrNotFound
		}
		return Artifact{}, fmt.Errorf("querying artifact: %w", err)
	}
	forms, err := bytecode.UnmarshalUnit(code)
	if err != nil {
		return Artifact{}, fmt.Errorf("artifact %s: %w", id, err)
	}
	parsed, err := uuid.FromString(id)
	if err != nil {
		return Artifact{}, fmt.Errorf("artifact id %q: %w", id, err)
	}
	c.log.Debug().Str("id", id).Str("digest", digest).Msg("cache hit")
	return Artifact{
		ID:        parsed,
		Digest:    digest,
		Label:     label,
		CreatedAt: time.Unix(created, 0).UTC(),
		Forms:     forms,
	}, nil
}

// List returns every stored artifact, newest first.
func (c *Cache) List(ctx context.Context) ([]Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows, err := c.db.QueryContext(ctx,
		"SELECT id, digest, label, forms, length(code), created_at FROM artifacts ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			id      string
			created int64
		)
		if err := rows.Scan(&id, &e.Digest, &e.Label, &e.Forms, &e.Size, &created); err != nil {
			return nil, fmt.Errorf("scanning artifact: %w", err)
		}
		if e.ID, err = uuid.FromString(id); err != nil {
			return nil, fmt.Errorf("artifact id %q: %w", id, err)
		}
		e.CreatedAt = time.Unix(created, 0).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune removes artifacts created before cutoff and returns how many were
// removed.
func (c *Cache) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, err := c.db.ExecContext(ctx, "DELETE FROM artifacts WHERE created_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("pruning artifacts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	c.log.Debug().Int64("removed", n).Msg("pruned artifacts")
	return int(n), nil
}
