package savegame

import (
	"fmt"
	"strings"
)

// Migration is one step of the save-game schema.
type Migration struct {
	ID          int
	Description string
	SQL         string
}

// migrations in the order they are applied. Statements are separated by
// semicolons, so none may appear inside a statement.
var migrations = []Migration{
	{
		ID:          1,
		Description: "Initial schema creation",
		SQL: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`,
	},
	{
		ID:          2,
		Description: "Saves with script objects, mappings, bindings and characters",
		SQL: `
CREATE TABLE IF NOT EXISTS saves (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	scene TEXT NOT NULL,
	day INTEGER NOT NULL,
	minute_of_day REAL NOT NULL,
	ticks INTEGER NOT NULL,
	next_handle INTEGER NOT NULL,
	next_native INTEGER NOT NULL,
	globals TEXT NOT NULL DEFAULT '{}',
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS script_objects (
	save_id TEXT NOT NULL REFERENCES saves(id) ON DELETE CASCADE,
	handle INTEGER NOT NULL,
	class TEXT NOT NULL,
	data TEXT NOT NULL,
	PRIMARY KEY (save_id, handle)
);
CREATE TABLE IF NOT EXISTS object_mappings (
	save_id TEXT NOT NULL REFERENCES saves(id) ON DELETE CASCADE,
	script_handle INTEGER NOT NULL,
	native_handle INTEGER NOT NULL,
	PRIMARY KEY (save_id, script_handle)
);
CREATE TABLE IF NOT EXISTS instance_bindings (
	save_id TEXT NOT NULL REFERENCES saves(id) ON DELETE CASCADE,
	symbol TEXT NOT NULL,
	handle INTEGER NOT NULL,
	PRIMARY KEY (save_id, symbol)
);
CREATE TABLE IF NOT EXISTS characters (
	save_id TEXT NOT NULL REFERENCES saves(id) ON DELETE CASCADE,
	native INTEGER NOT NULL,
	instance INTEGER NOT NULL,
	symbol TEXT NOT NULL,
	player INTEGER NOT NULL DEFAULT 0,
	pos_x REAL NOT NULL,
	pos_y REAL NOT NULL,
	pos_z REAL NOT NULL,
	dir_x REAL NOT NULL,
	dir_y REAL NOT NULL,
	dir_z REAL NOT NULL,
	walk_mode INTEGER NOT NULL,
	state TEXT NOT NULL DEFAULT '',
	in_routine INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (save_id, native)
);
CREATE INDEX IF NOT EXISTS idx_saves_created ON saves(created_at)`,
	},
	{
		ID:          3,
		Description: "Add items table",
		SQL: `
CREATE TABLE IF NOT EXISTS items (
	save_id TEXT NOT NULL REFERENCES saves(id) ON DELETE CASCADE,
	native INTEGER NOT NULL,
	instance INTEGER NOT NULL,
	symbol TEXT NOT NULL,
	pos_x REAL NOT NULL,
	pos_y REAL NOT NULL,
	pos_z REAL NOT NULL,
	PRIMARY KEY (save_id, native)
)`,
	},
}

// runMigrations applies every migration newer than the stored schema version.
func (s *Store) runMigrations() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	current, err := s.SchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.ID <= current {
			continue
		}
		s.log.Debug("applying migration", "id", migration.ID, "description", migration.Description)
		if err := s.applyMigration(migration); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", migration.ID, err)
		}
	}
	return nil
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion() (int, error) {
	var version int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	return version, err
}

func (s *Store) applyMigration(migration Migration) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range strings.Split(migration.SQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" || strings.HasPrefix(stmt, "--") {
			continue
		}
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute migration statement: %w", err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, migration.ID); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return tx.Commit()
}
