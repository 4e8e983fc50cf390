package modindex

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	domainerrors "pyscope/internal/core/errors"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

const schemaVersion = 1

// SQLiteIndex persists the public module-level names of analysed modules so
// that later runs can expand `from <module> import *` against them.
type SQLiteIndex struct {
	db          *sql.DB
	projectKey  string
	knownStmt   *sql.Stmt
	exportsStmt *sql.Stmt
}

func OpenSQLiteIndex(path, projectKey string) (*SQLiteIndex, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, domainerrors.New(domainerrors.CodeValidationError, "module index path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, domainerrors.New(domainerrors.CodeValidationError, fmt.Sprintf("module index path %q is a directory, expected file", cleanPath))
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create module index directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open module index %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping module index %q: %w", cleanPath, err)
	}
	if err := migrateIndexSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	key := strings.TrimSpace(projectKey)
	if key == "" {
		key = "default"
	}

	knownStmt, err := db.Prepare(`SELECT 1 FROM modules WHERE project_key = ? AND module_name = ?`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prepare module stmt: %w", err)
	}
	exportsStmt, err := db.Prepare(`SELECT symbol_name FROM exports
WHERE project_key = ? AND module_name = ?
ORDER BY symbol_name`)
	if err != nil {
		_ = knownStmt.Close()
		_ = db.Close()
		return nil, fmt.Errorf("prepare exports stmt: %w", err)
	}

	return &SQLiteIndex{
		db:          db,
		projectKey:  key,
		knownStmt:   knownStmt,
		exportsStmt: exportsStmt,
	}, nil
}

func migrateIndexSchema(db *sql.DB) error {
	var version int
	_ = db.QueryRow(`PRAGMA user_version`).Scan(&version)
	if version >= schemaVersion {
		return nil
	}
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS modules (
  project_key TEXT NOT NULL,
  module_name TEXT NOT NULL,
  source_path TEXT NOT NULL DEFAULT '',
  updated_at INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (project_key, module_name)
);
CREATE TABLE IF NOT EXISTS exports (
  project_key TEXT NOT NULL,
  module_name TEXT NOT NULL,
  symbol_name TEXT NOT NULL,
  PRIMARY KEY (project_key, module_name, symbol_name)
);
PRAGMA user_version = 1;
`)
	if err != nil {
		return fmt.Errorf("create module index schema: %w", err)
	}
	return nil
}

// Put replaces the recorded exports of module. Non-public names are dropped.
func (s *SQLiteIndex) Put(module, sourcePath string, exports []string) error {
	if s == nil || s.db == nil {
		return nil
	}
	module = strings.TrimSpace(module)
	if module == "" {
		return domainerrors.New(domainerrors.CodeValidationError, "module name must not be empty")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin module index tx: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM exports WHERE project_key = ? AND module_name = ?`, s.projectKey, module); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear exports of %s: %w", module, err)
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO modules (project_key, module_name, source_path, updated_at) VALUES (?, ?, ?, ?)`,
		s.projectKey, module, sourcePath, time.Now().Unix()); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("upsert module %s: %w", module, err)
	}
	for _, name := range publicNames(exports) {
		if _, err := tx.Exec(`INSERT INTO exports (project_key, module_name, symbol_name) VALUES (?, ?, ?)`,
			s.projectKey, module, name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert export %s.%s: %w", module, name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit module index tx: %w", err)
	}
	return nil
}

func (s *SQLiteIndex) Delete(module string) error {
	if s == nil || s.db == nil {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin module delete tx: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM exports WHERE project_key = ? AND module_name = ?`, s.projectKey, module); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete exports of %s: %w", module, err)
	}
	if _, err := tx.Exec(`DELETE FROM modules WHERE project_key = ? AND module_name = ?`, s.projectKey, module); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete module %s: %w", module, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit module delete tx: %w", err)
	}
	return nil
}

// Exports returns the recorded exports of module. A module that was never Put
// is MODULE_UNAVAILABLE; a module Put with no public names returns an empty
// list.
func (s *SQLiteIndex) Exports(module string) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, unavailable(module)
	}
	var one int
	err := s.knownStmt.QueryRow(s.projectKey, module).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, unavailable(module)
	}
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, fmt.Sprintf("query module %s", module))
	}

	rows, err := s.exportsStmt.Query(s.projectKey, module)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, fmt.Sprintf("query exports of %s", module))
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "scan export row")
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "iterate export rows")
	}
	return out, nil
}

// Modules lists every indexed module, sorted.
func (s *SQLiteIndex) Modules() ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	rows, err := s.db.Query(`SELECT module_name FROM modules WHERE project_key = ? ORDER BY module_name`, s.projectKey)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan module row: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if s.knownStmt != nil {
		_ = s.knownStmt.Close()
	}
	if s.exportsStmt != nil {
		_ = s.exportsStmt.Close()
	}
	return s.db.Close()
}
