// Package postgres is the PostgreSQL backend of the loader. It wraps a single
// pgx connection and feeds bulk loads through COPY ... FROM STDIN in text
// format.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"sparkify/internal/ddl"
	"sparkify/internal/storage"
)

// Dialect is the PostgreSQL query table.
var Dialect = storage.Dialect{
	Name: "postgres",
	DDL:  ddl.Postgres,
	Queries: storage.Queries{
		SongInsert: `INSERT INTO songs (song_id, title, artist_id, year, duration)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (song_id) DO NOTHING`,
		ArtistInsert: `INSERT INTO artists (artist_id, name, location, latitude, longitude)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (artist_id) DO NOTHING`,
		UserUpsert: `INSERT INTO users (user_id, first_name, last_name, gender, level)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id) DO UPDATE SET level = EXCLUDED.level`,
		SongLookup: `SELECT s.song_id, a.artist_id
FROM artists a
JOIN songs s ON a.artist_id = s.artist_id
WHERE s.title = $1 AND a.name = $2 AND s.duration = $3`,
	},
	Savepoint:  "SAVEPOINT %s",
	RollbackTo: "ROLLBACK TO SAVEPOINT %s",
	Release:    "RELEASE SAVEPOINT %s",
}

// pgConnLike is the subset of *pgx.Conn the adapter uses, so tests can
// inject a fake without a server.
type pgConnLike interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close(ctx context.Context) error
}

// copyFunc streams COPY text data. It matches (*pgconn.PgConn).CopyFrom.
type copyFunc func(ctx context.Context, r io.Reader, sql string) (pgconn.CommandTag, error)

// DB implements storage.DB on one pgx connection.
type DB struct{ conn pgConnLike }

// Open connects to dsn (URL or key=value form).
func Open(ctx context.Context, dsn string) (*DB, error) {
	c, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	return &DB{conn: c}, nil
}

func (p *DB) Exec(ctx context.Context, q string, args ...any) error {
	_, err := p.conn.Exec(ctx, q, args...)
	return err
}

func (p *DB) BeginTx(ctx context.Context) (storage.Tx, error) {
	t, err := p.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: t}, nil
}

func (p *DB) Dialect() storage.Dialect { return Dialect }

func (p *DB) Close(ctx context.Context) error { return p.conn.Close(ctx) }

// pgTx wraps pgx.Tx. copy is nil in production and resolved from the
// transaction's connection on first use.
type pgTx struct {
	tx   pgx.Tx
	copy copyFunc
}

func (t *pgTx) Exec(ctx context.Context, q string, args ...any) error {
	_, err := t.tx.Exec(ctx, q, args...)
	return err
}

func (t *pgTx) QueryRow(ctx context.Context, q string, args ...any) storage.Row {
	return row{t.tx.QueryRow(ctx, q, args...)}
}

// CopyFrom sends src.Text() through COPY FROM STDIN with an explicit column
// list. The empty string is read as NULL.
func (t *pgTx) CopyFrom(ctx context.Context, src *storage.CopySource) (int64, error) {
	fn := t.copy
	if fn == nil {
		conn := t.tx.Conn()
		if conn == nil {
			return 0, errors.New("postgres: transaction has no connection")
		}
		fn = conn.PgConn().CopyFrom
	}
	tag, err := fn(ctx, strings.NewReader(src.Text()), CopyStatement(src.Table, src.Columns))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *pgTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *pgTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

// CopyStatement renders the COPY command for table and columns.
func CopyStatement(table string, columns []string) string {
	return fmt.Sprintf("COPY %s (%s) FROM STDIN WITH (FORMAT text, NULL '')",
		table, strings.Join(columns, ", "))
}

type row struct{ r pgx.Row }

func (r row) Scan(dest ...any) error {
	err := r.r.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNoRows
	}
	return err
}
