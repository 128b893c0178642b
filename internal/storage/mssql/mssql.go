// Package mssql is the SQL Server backend of the loader. Row writes are MERGE
// statements and bulk loads use the go-mssqldb bulk copy API.
package mssql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"sparkify/internal/ddl"
	"sparkify/internal/storage"
)

// Dialect is the SQL Server query table. T-SQL savepoints cannot be
// released; they end with the transaction.
var Dialect = storage.Dialect{
	Name: "mssql",
	DDL:  ddl.SQLServer,
	Queries: storage.Queries{
		SongInsert: `MERGE INTO songs WITH (HOLDLOCK) AS t
USING (SELECT @p1 AS song_id, @p2 AS title, @p3 AS artist_id, @p4 AS year, @p5 AS duration) AS s
ON t.song_id = s.song_id
WHEN NOT MATCHED THEN
  INSERT (song_id, title, artist_id, year, duration)
  VALUES (s.song_id, s.title, s.artist_id, s.year, s.duration);`,
		ArtistInsert: `MERGE INTO artists WITH (HOLDLOCK) AS t
USING (SELECT @p1 AS artist_id, @p2 AS name, @p3 AS location, @p4 AS latitude, @p5 AS longitude) AS s
ON t.artist_id = s.artist_id
WHEN NOT MATCHED THEN
  INSERT (artist_id, name, location, latitude, longitude)
  VALUES (s.artist_id, s.name, s.location, s.latitude, s.longitude);`,
		UserUpsert: `MERGE INTO users WITH (HOLDLOCK) AS t
USING (SELECT @p1 AS user_id, @p2 AS first_name, @p3 AS last_name, @p4 AS gender, @p5 AS level) AS s
ON t.user_id = s.user_id
WHEN MATCHED THEN
  UPDATE SET t.level = s.level
WHEN NOT MATCHED THEN
  INSERT (user_id, first_name, last_name, gender, level)
  VALUES (s.user_id, s.first_name, s.last_name, s.gender, s.level);`,
		SongLookup: `SELECT TOP 1 s.song_id, a.artist_id
FROM artists a
JOIN songs s ON a.artist_id = s.artist_id
WHERE s.title = @p1 AND a.name = @p2 AND s.duration = @p3`,
	},
	Savepoint:  "SAVE TRANSACTION %s",
	RollbackTo: "ROLLBACK TRANSACTION %s",
}

// DB implements storage.DB on a database/sql pool pinned to one connection.
type DB struct{ db *sql.DB }

// Open validates dsn, connects and pings.
func Open(ctx context.Context, dsn string) (*DB, error) {
	if _, err := msdsn.Parse(dsn); err != nil {
		return nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("mssql: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mssql: ping: %w", err)
	}
	return &DB{db: db}, nil
}

// New wraps an existing pool.
func New(db *sql.DB) *DB { return &DB{db: db} }

func (m *DB) Exec(ctx context.Context, q string, args ...any) error {
	_, err := m.db.ExecContext(ctx, q, args...)
	return err
}

func (m *DB) BeginTx(ctx context.Context) (storage.Tx, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &msTx{tx: tx}, nil
}

func (m *DB) Dialect() storage.Dialect { return Dialect }

func (m *DB) Close(context.Context) error { return m.db.Close() }

type msTx struct{ tx *sql.Tx }

func (t *msTx) Exec(ctx context.Context, q string, args ...any) error {
	_, err := t.tx.ExecContext(ctx, q, args...)
	return err
}

func (t *msTx) QueryRow(ctx context.Context, q string, args ...any) storage.Row {
	return row{t.tx.QueryRowContext(ctx, q, args...)}
}

// CopyFrom streams src.Rows through a bulk copy statement and flushes it.
func (t *msTx) CopyFrom(ctx context.Context, src *storage.CopySource) (int64, error) {
	table := Dialect.DDL.Ident(src.Table)
	stmt, err := t.tx.PrepareContext(ctx, mssql.CopyIn(table, mssql.BulkOptions{}, src.Columns...))
	if err != nil {
		return 0, fmt.Errorf("prepare bulk: %w", err)
	}
	for i, r := range src.Rows {
		vals, err := bulkValues(r)
		if err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("bulk row %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, vals...); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("bulk finalize: %w", err)
	}
	return res.RowsAffected()
}

func (t *msTx) Commit(context.Context) error   { return t.tx.Commit() }
func (t *msTx) Rollback(context.Context) error { return t.tx.Rollback() }

type row struct{ r *sql.Row }

func (r row) Scan(dest ...any) error {
	err := r.r.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNoRows
	}
	return err
}

// timeValuer is implemented by time-of-day values; the bulk copy API wants a
// time.Time for TIME columns.
type timeValuer interface {
	Time() time.Time
}

func bulkValues(r []any) ([]any, error) {
	out := make([]any, len(r))
	for i, v := range r {
		if tv, ok := v.(timeValuer); ok {
			out[i] = tv.Time()
			continue
		}
		cv, err := driver.DefaultParameterConverter.ConvertValue(v)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		out[i] = cv
	}
	return out, nil
}
