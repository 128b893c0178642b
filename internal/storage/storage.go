// Package storage is the loader side of the job. It defines the DB and Tx
// interfaces implemented by the postgres, mssql, mysql and sqlite backends, the
// per-dialect query table, and Writer, which performs the five table writes
// of one input file inside one transaction.
package storage

import (
	"context"
	"errors"
	"fmt"

	"sparkify/internal/ddl"
)

// ErrNoRows is returned by Row.Scan when a single-row query matched nothing.
// Backends translate their driver's own sentinel into it.
var ErrNoRows = errors.New("storage: no rows in result set")

// Row is the result of a single-row query.
type Row interface {
	Scan(dest ...any) error
}

// DB is one database connection. The job holds exactly one for the run.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) error
	BeginTx(ctx context.Context) (Tx, error)
	Dialect() Dialect
	Close(ctx context.Context) error
}

// Tx is an open transaction.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) error
	QueryRow(ctx context.Context, sql string, args ...any) Row
	// CopyFrom bulk-loads src into src.Table and reports the rows written.
	CopyFrom(ctx context.Context, src *CopySource) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Queries are the parameterized statements the Writer runs. Placeholders use
// the dialect's own syntax.
type Queries struct {
	// SongInsert takes song_id, title, artist_id, year, duration and does
	// nothing when song_id exists.
	SongInsert string
	// ArtistInsert takes artist_id, name, location, latitude, longitude and
	// does nothing when artist_id exists.
	ArtistInsert string
	// UserUpsert takes user_id, first_name, last_name, gender, level and
	// overwrites only level when user_id exists.
	UserUpsert string
	// SongLookup takes title, artist name, duration and selects
	// (song_id, artist_id).
	SongLookup string
}

// Dialect bundles everything engine-specific the loader needs.
type Dialect struct {
	Name    string
	DDL     ddl.Dialect
	Queries Queries
	// Savepoint, RollbackTo and Release are format strings taking the
	// savepoint name. Release may be empty when the engine has none.
	Savepoint  string
	RollbackTo string
	Release    string
}

func (d Dialect) savepointSQL(name string) string  { return fmt.Sprintf(d.Savepoint, name) }
func (d Dialect) rollbackToSQL(name string) string { return fmt.Sprintf(d.RollbackTo, name) }

func (d Dialect) releaseSQL(name string) string {
	if d.Release == "" {
		return ""
	}
	return fmt.Sprintf(d.Release, name)
}
