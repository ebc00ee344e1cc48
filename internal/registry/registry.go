// Package registry persists named datasets and flat key/value settings in a
// local SQLite file.
//
// A Registry owns a single connection and is meant to be opened once at
// startup, handed to whatever needs it and closed on shutdown. It is not
// safe for concurrent use.
package registry

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/iwvelando/controller-toolbox/pkg/errs"
	"go.uber.org/zap"

	// Registers the pure-Go "sqlite" driver.
	_ "modernc.org/sqlite"
)

// timestampLayout sorts lexically in chronological order.
const timestampLayout = "2006-01-02 15:04:05.000000000"

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS datasets (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	file_path   TEXT NOT NULL,
	created_at  TEXT NOT NULL
);`

// Dataset is a registered data source.
type Dataset struct {
	Name        string
	Description string
	FilePath    string
	CreatedAt   time.Time
}

// Registry is the settings and dataset store.
type Registry struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// Open opens or creates the registry at path, creating parent directories
// and tables as needed.
func Open(path string, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{logger: logger, now: time.Now}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, r.fail("open", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, r.fail("open", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, r.fail("create schema", err)
	}
	r.db = db

	logger.Debug("registry opened",
		zap.String("op", "registry.Open"),
		zap.String("path", path),
	)
	return r, nil
}

// Close releases the connection.
func (r *Registry) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	if err := r.db.Close(); err != nil {
		return r.fail("close", err)
	}
	return nil
}

// UpsertDataset registers a dataset or replaces the entry of the same name.
// A replaced entry gets a fresh creation time.
func (r *Registry) UpsertDataset(name, description, filePath string) error {
	if name == "" {
		return r.fail("upsert dataset", fmt.Errorf("dataset name is empty"))
	}
	_, err := r.db.Exec(
		`INSERT OR REPLACE INTO datasets (name, description, file_path, created_at) VALUES (?, ?, ?, ?)`,
		name, description, filePath, r.now().UTC().Format(timestampLayout),
	)
	if err != nil {
		return r.fail("upsert dataset", err)
	}
	return nil
}

// ListDatasets returns all datasets, most recently created first.
func (r *Registry) ListDatasets() ([]Dataset, error) {
	rows, err := r.db.Query(
		`SELECT name, description, file_path, created_at FROM datasets ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, r.fail("list datasets", err)
	}
	defer rows.Close()

	var datasets []Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, r.fail("list datasets", err)
		}
		datasets = append(datasets, d)
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail("list datasets", err)
	}
	return datasets, nil
}

// LookupDataset returns the dataset registered under name.
func (r *Registry) LookupDataset(name string) (Dataset, error) {
	row := r.db.QueryRow(
		`SELECT name, description, file_path, created_at FROM datasets WHERE name = ?`, name,
	)
	d, err := scanDataset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Dataset{}, errs.NewMissingInputError("dataset " + name)
	}
	if err != nil {
		return Dataset{}, r.fail("lookup dataset", err)
	}
	return d, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDataset(s scanner) (Dataset, error) {
	var d Dataset
	var created string
	if err := s.Scan(&d.Name, &d.Description, &d.FilePath, &created); err != nil {
		return Dataset{}, err
	}
	t, err := time.ParseInLocation(timestampLayout, created, time.UTC)
	if err != nil {
		return Dataset{}, fmt.Errorf("dataset %q: bad creation time %q: %w", d.Name, created, err)
	}
	d.CreatedAt = t
	return d, nil
}

// SetSetting stores value under key, replacing any previous value.
func (r *Registry) SetSetting(key, value string) error {
	_, err := r.db.Exec(`INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return r.fail("set setting", err)
	}
	return nil
}

// GetSetting returns the value stored under key, or def when there is none.
func (r *Registry) GetSetting(key, def string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return def, r.fail("get setting", err)
	}
	return value, nil
}

// Section returns every setting whose key starts with prefix followed by an
// underscore, keyed by the rest of the key.
func (r *Registry) Section(prefix string) (map[string]string, error) {
	p := prefix + "_"
	rows, err := r.db.Query(
		`SELECT key, value FROM settings WHERE substr(key, 1, length(?)) = ? ORDER BY key`, p, p,
	)
	if err != nil {
		return nil, r.fail("read section", err)
	}
	defer rows.Close()

	section := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, r.fail("read section", err)
		}
		section[key[len(p):]] = value
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail("read section", err)
	}
	return section, nil
}

// fail logs a store failure and wraps it as a RegistryError.
func (r *Registry) fail(op string, err error) error {
	r.logger.Error("registry operation failed",
		zap.String("op", "registry.Registry"),
		zap.String("action", op),
		zap.Error(err),
	)
	return errs.NewRegistryError(op, err)
}
