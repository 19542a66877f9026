package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
)

// Migration is a versioned schema change. Up runs inside the transaction
// that records the migration.
type Migration struct {
	Version int64
	Name    string
	Up      func(*sql.Tx) error
}

// Migrator applies pending migrations in version order.
type Migrator struct {
	db         *sql.DB
	migrations []Migration
}

// NewMigrator creates a new migrator instance
func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db}
}

// AddMigration adds a migration to the migrator
func (m *Migrator) AddMigration(migration Migration) {
	m.migrations = append(m.migrations, migration)
	sort.Slice(m.migrations, func(i, j int) bool {
		return m.migrations[i].Version < m.migrations[j].Version
	})
}

// RunMigrations runs all pending migrations
func (m *Migrator) RunMigrations() error {
	if err := m.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := m.CurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	for _, migration := range m.migrations {
		if migration.Version <= currentVersion {
			continue
		}
		if err := m.runMigration(migration); err != nil {
			return fmt.Errorf("failed to run migration %d (%s): %w", migration.Version, migration.Name, err)
		}
	}

	return nil
}

// CurrentVersion returns the highest applied migration version, or 0.
func (m *Migrator) CurrentVersion() (int64, error) {
	var version int64
	err := m.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (m *Migrator) createMigrationsTable() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func (m *Migrator) runMigration(migration Migration) (err error) {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) && err == nil {
			err = rbErr
		}
	}()

	if err := migration.Up(tx); err != nil {
		return err
	}

	if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", migration.Version, migration.Name); err != nil {
		return err
	}

	return tx.Commit()
}

// Migrations returns the journal schema history.
func Migrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_operations",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE operations (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						recorded_at TEXT NOT NULL,
						operation TEXT NOT NULL,
						node_uuid TEXT NOT NULL,
						node_name TEXT NOT NULL DEFAULT '',
						success INTEGER NOT NULL,
						error TEXT NOT NULL DEFAULT ''
					)
				`)
				return err
			},
		},
		{
			Version: 2,
			Name:    "add_duration_and_uuid_index",
			Up: func(tx *sql.Tx) error {
				if _, err := tx.Exec(`ALTER TABLE operations ADD COLUMN duration_ns INTEGER NOT NULL DEFAULT 0`); err != nil {
					return err
				}
				_, err := tx.Exec(`CREATE INDEX idx_operations_node_uuid ON operations(node_uuid)`)
				return err
			},
		},
	}
}
