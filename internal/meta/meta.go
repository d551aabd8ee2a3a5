// Package meta persists the update window and connected-realm map an
// export run needs (§3.2), mirroring the teacher's migrate-then-query
// SQLite pattern for small durable key/value state.
package meta

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrMissingMeta is returned by LoadWindow when no window has been saved.
var ErrMissingMeta = errors.New("meta: no metadata recorded for this run")

// ErrInvalidRealmSet is returned when an export is requested for a realm
// not present in any connected-realm group of the current window.
var ErrInvalidRealmSet = errors.New("meta: requested realm not in connected-realm map")

// Window is the update-window and connected-realm metadata an export run
// consumes: t_begin/t_end (§4.8) plus the connected-realm id -> realm
// names map `tsm_exporter.py::export_region` reads before iterating realms.
type Window struct {
	StartTS         int64
	EndTS           int64
	ConnectedRealms map[int][]string
}

// ValidateRealmSet reports ErrInvalidRealmSet if any requested realm name
// is absent from every connected-realm group.
func (w Window) ValidateRealmSet(requested []string) error {
	known := make(map[string]bool)
	for _, names := range w.ConnectedRealms {
		for _, n := range names {
			known[n] = true
		}
	}
	for _, r := range requested {
		if !known[r] {
			return fmt.Errorf("%w: %s", ErrInvalidRealmSet, r)
		}
	}
	return nil
}

// DB is a handle to the metadata store.
type DB struct {
	sql *sql.DB
}

// Open opens (creating if needed) the metadata database at path and runs
// its migration.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("meta: open %s: %w", path, err)
	}
	db := &DB{sql: sqlDB}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
		CREATE TABLE IF NOT EXISTS window (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			start_ts INTEGER NOT NULL,
			end_ts INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS connected_realm (
			connected_realm_id INTEGER NOT NULL,
			realm_name TEXT NOT NULL,
			PRIMARY KEY (connected_realm_id, realm_name)
		);
	`)
	if err != nil {
		return fmt.Errorf("meta: migrate: %w", err)
	}
	return nil
}

// SaveWindow persists w, replacing any previously saved window and its
// connected-realm rows.
func (d *DB) SaveWindow(w Window) error {
	tx, err := d.sql.Begin()
	if err != nil {
		return fmt.Errorf("meta: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO window (id, start_ts, end_ts) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET start_ts = excluded.start_ts, end_ts = excluded.end_ts`,
		w.StartTS, w.EndTS,
	); err != nil {
		return fmt.Errorf("meta: save window: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM connected_realm`); err != nil {
		return fmt.Errorf("meta: clear connected realms: %w", err)
	}
	for crid, names := range w.ConnectedRealms {
		for _, name := range names {
			if _, err := tx.Exec(
				`INSERT INTO connected_realm (connected_realm_id, realm_name) VALUES (?, ?)`,
				crid, name,
			); err != nil {
				return fmt.Errorf("meta: save connected realm: %w", err)
			}
		}
	}
	return tx.Commit()
}

// LoadWindow returns the last saved window, or ErrMissingMeta if none
// has been saved yet.
func (d *DB) LoadWindow() (Window, error) {
	var w Window
	row := d.sql.QueryRow(`SELECT start_ts, end_ts FROM window WHERE id = 1`)
	if err := row.Scan(&w.StartTS, &w.EndTS); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Window{}, ErrMissingMeta
		}
		return Window{}, fmt.Errorf("meta: load window: %w", err)
	}

	rows, err := d.sql.Query(`SELECT connected_realm_id, realm_name FROM connected_realm`)
	if err != nil {
		return Window{}, fmt.Errorf("meta: load connected realms: %w", err)
	}
	defer rows.Close()

	w.ConnectedRealms = make(map[int][]string)
	for rows.Next() {
		var crid int
		var name string
		if err := rows.Scan(&crid, &name); err != nil {
			return Window{}, fmt.Errorf("meta: scan connected realm: %w", err)
		}
		w.ConnectedRealms[crid] = append(w.ConnectedRealms[crid], name)
	}
	return w, rows.Err()
}

// Close releases the underlying database handle.
func (d *DB) Close() error { return d.sql.Close() }
