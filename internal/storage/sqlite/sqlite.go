// Package sqlite is the SQLite backend of the loader, built on the pure-Go
// modernc driver. SQLite has no bulk-load API, so bulk loads run a prepared
// INSERT per row inside the file's transaction.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"sparkify/internal/ddl"
	"sparkify/internal/storage"
)

// Dialect is the SQLite query table.
var Dialect = storage.Dialect{
	Name: "sqlite",
	DDL:  ddl.SQLite,
	Queries: storage.Queries{
		SongInsert: `INSERT INTO songs (song_id, title, artist_id, year, duration)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (song_id) DO NOTHING`,
		ArtistInsert: `INSERT INTO artists (artist_id, name, location, latitude, longitude)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (artist_id) DO NOTHING`,
		UserUpsert: `INSERT INTO users (user_id, first_name, last_name, gender, level)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET level = excluded.level`,
		SongLookup: `SELECT s.song_id, a.artist_id
FROM artists a
JOIN songs s ON a.artist_id = s.artist_id
WHERE s.title = ? AND a.name = ? AND s.duration = ?`,
	},
	Savepoint:  "SAVEPOINT %s",
	RollbackTo: "ROLLBACK TO SAVEPOINT %s",
	Release:    "RELEASE SAVEPOINT %s",
}

// DB implements storage.DB on a database/sql pool pinned to one connection,
// which also keeps a ":memory:" database alive for the whole run.
type DB struct{ db *sql.DB }

// Open opens dsn (a file path, "file:" URI or ":memory:") and enables
// foreign keys.
func Open(ctx context.Context, dsn string) (*DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}
	return &DB{db: db}, nil
}

func (s *DB) Exec(ctx context.Context, q string, args ...any) error {
	vals, err := driverArgs(args)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, q, vals...)
	return err
}

func (s *DB) BeginTx(ctx context.Context) (storage.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	return &liteTx{tx: tx}, nil
}

func (s *DB) Dialect() storage.Dialect { return Dialect }

func (s *DB) Close(context.Context) error { return s.db.Close() }

// SQL exposes the pool for read-back queries.
func (s *DB) SQL() *sql.DB { return s.db }

type liteTx struct{ tx *sql.Tx }

func (t *liteTx) Exec(ctx context.Context, q string, args ...any) error {
	vals, err := driverArgs(args)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, q, vals...)
	return err
}

func (t *liteTx) QueryRow(ctx context.Context, q string, args ...any) storage.Row {
	vals, err := driverArgs(args)
	if err != nil {
		return errRow{err}
	}
	return row{t.tx.QueryRowContext(ctx, q, vals...)}
}

// CopyFrom inserts src.Rows one prepared INSERT at a time.
func (t *liteTx) CopyFrom(ctx context.Context, src *storage.CopySource) (int64, error) {
	placeholders := make([]string, len(src.Columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	stmtSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		src.Table, strings.Join(src.Columns, ", "), strings.Join(placeholders, ", "))

	stmt, err := t.tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, r := range src.Rows {
		if len(r) != len(src.Columns) {
			return inserted, fmt.Errorf("sqlite: row length %d != columns length %d", len(r), len(src.Columns))
		}
		vals, err := driverArgs(r)
		if err != nil {
			return inserted, err
		}
		if _, err := stmt.ExecContext(ctx, vals...); err != nil {
			return inserted, fmt.Errorf("sqlite: insert: %w", err)
		}
		inserted++
	}
	return inserted, nil
}

func (t *liteTx) Commit(context.Context) error   { return t.tx.Commit() }
func (t *liteTx) Rollback(context.Context) error { return t.tx.Rollback() }

type row struct{ r *sql.Row }

func (r row) Scan(dest ...any) error {
	err := r.r.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNoRows
	}
	return err
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

// driverArgs applies the database/sql default conversions up front: valuers
// are called, pointers dereferenced and integers widened to int64.
func driverArgs(args []any) ([]any, error) {
	out := make([]any, len(args))
	for i, a := range args {
		v, err := driver.DefaultParameterConverter.ConvertValue(a)
		if err != nil {
			return nil, fmt.Errorf("sqlite: argument %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
