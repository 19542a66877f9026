// Package journal keeps a sqlite history of node lifecycle operations.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get when no entry has the requested id.
var ErrNotFound = errors.New("journal entry not found")

// Entry is one recorded lifecycle operation.
type Entry struct {
	ID        int64         `json:"id" yaml:"id"`
	Time      time.Time     `json:"time" yaml:"time"`
	Operation string        `json:"operation" yaml:"operation"`
	NodeUUID  string        `json:"node_uuid" yaml:"node_uuid"`
	NodeName  string        `json:"node_name,omitempty" yaml:"node_name,omitempty"`
	Success   bool          `json:"success" yaml:"success"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration  time.Duration `json:"duration_ns" yaml:"duration_ns"`
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	UUID  string
	Limit int
}

// Store is the journal database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal at path and applies pending
// migrations. A path of ":memory:" or a "file:" DSN is passed to the driver
// as is.
func Open(path string) (*Store, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// sqlite allows one writer; an in-memory database is also per connection.
	db.SetMaxOpenConns(1)

	migrator := NewMigrator(db)
	for _, m := range Migrations() {
		migrator.AddMigration(m)
	}
	if err := migrator.RunMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add inserts e and returns it with its assigned ID. A zero Time is set to now.
func (s *Store) Add(ctx context.Context, e Entry) (Entry, error) {
	if e.Operation == "" {
		return Entry{}, fmt.Errorf("operation is required")
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.Time = e.Time.UTC()
	e.NodeUUID = canonicalUUID(e.NodeUUID)

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO operations (recorded_at, operation, node_uuid, node_name, success, error, duration_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Time.Format(time.RFC3339Nano), e.Operation, e.NodeUUID, e.NodeName, e.Success, e.Error, int64(e.Duration),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to insert journal entry: %w", err)
	}

	e.ID, err = res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read journal entry id: %w", err)
	}
	return e, nil
}

// List returns entries newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	query := `SELECT id, recorded_at, operation, node_uuid, node_name, success, error, duration_ns FROM operations`
	var args []any
	if f.UUID != "" {
		query += ` WHERE node_uuid = ?`
		args = append(args, canonicalUUID(f.UUID))
	}
	query += ` ORDER BY id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return entries, nil
}

// Get returns the entry with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, recorded_at, operation, node_uuid, node_name, success, error, duration_ns
		 FROM operations WHERE id = ?`, id)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var (
		e        Entry
		recorded string
		duration int64
	)
	if err := sc.Scan(&e.ID, &recorded, &e.Operation, &e.NodeUUID, &e.NodeName, &e.Success, &e.Error, &duration); err != nil {
		return Entry{}, err
	}

	t, err := time.Parse(time.RFC3339Nano, recorded)
	if err != nil {
		return Entry{}, fmt.Errorf("invalid timestamp on journal entry %d: %w", e.ID, err)
	}
	e.Time = t
	e.Duration = time.Duration(duration)
	return e, nil
}

// canonicalUUID returns the lower-case hyphenated form of a node UUID so
// that lookups match however the caller spelled it. Values that are not
// UUIDs are kept as given.
func canonicalUUID(s string) string {
	s = strings.TrimSpace(s)
	if id, err := uuid.Parse(s); err == nil {
		return id.String()
	}
	return s
}
