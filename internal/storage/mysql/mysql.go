// Package mysql is the MySQL backend of the loader. Bulk loads stream the
// COPY text buffer through LOAD DATA LOCAL INFILE using a registered reader,
// so no file touches the disk.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/go-sql-driver/mysql"

	"sparkify/internal/ddl"
	"sparkify/internal/storage"
)

// Dialect is the MySQL query table. "ON DUPLICATE KEY UPDATE pk = pk" is the
// no-op form of insert-if-absent that still reports other errors, unlike
// INSERT IGNORE.
var Dialect = storage.Dialect{
	Name: "mysql",
	DDL:  ddl.MySQL,
	Queries: storage.Queries{
		SongInsert: "INSERT INTO `songs` (`song_id`, `title`, `artist_id`, `year`, `duration`)\n" +
			"VALUES (?, ?, ?, ?, ?)\n" +
			"ON DUPLICATE KEY UPDATE `song_id` = `song_id`",
		ArtistInsert: "INSERT INTO `artists` (`artist_id`, `name`, `location`, `latitude`, `longitude`)\n" +
			"VALUES (?, ?, ?, ?, ?)\n" +
			"ON DUPLICATE KEY UPDATE `artist_id` = `artist_id`",
		UserUpsert: "INSERT INTO `users` (`user_id`, `first_name`, `last_name`, `gender`, `level`)\n" +
			"VALUES (?, ?, ?, ?, ?)\n" +
			"ON DUPLICATE KEY UPDATE `level` = VALUES(`level`)",
		SongLookup: "SELECT s.`song_id`, a.`artist_id`\n" +
			"FROM `artists` a\n" +
			"JOIN `songs` s ON a.`artist_id` = s.`artist_id`\n" +
			"WHERE s.`title` = ? AND a.`name` = ? AND s.`duration` = ?\n" +
			"LIMIT 1",
	},
	Savepoint:  "SAVEPOINT %s",
	RollbackTo: "ROLLBACK TO SAVEPOINT %s",
	Release:    "RELEASE SAVEPOINT %s",
}

// DB implements storage.DB on a database/sql pool pinned to one connection.
type DB struct{ db *sql.DB }

// Open validates dsn, connects and pings.
func Open(ctx context.Context, dsn string) (*DB, error) {
	if _, err := mysql.ParseDSN(dsn); err != nil {
		return nil, fmt.Errorf("mysql dsn: %w", err)
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
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
	return &myTx{tx: tx}, nil
}

func (m *DB) Dialect() storage.Dialect { return Dialect }

func (m *DB) Close(context.Context) error { return m.db.Close() }

type myTx struct{ tx *sql.Tx }

func (t *myTx) Exec(ctx context.Context, q string, args ...any) error {
	_, err := t.tx.ExecContext(ctx, q, args...)
	return err
}

func (t *myTx) QueryRow(ctx context.Context, q string, args ...any) storage.Row {
	return row{t.tx.QueryRowContext(ctx, q, args...)}
}

var readerSeq atomic.Uint64

// CopyFrom registers src.Text under a unique reader name and loads it.
func (t *myTx) CopyFrom(ctx context.Context, src *storage.CopySource) (int64, error) {
	name := fmt.Sprintf("sparkify_%s_%d", src.Table, readerSeq.Add(1))
	text := src.Text()
	mysql.RegisterReaderHandler(name, func() io.Reader { return strings.NewReader(text) })
	defer mysql.DeregisterReaderHandler(name)

	res, err := t.tx.ExecContext(ctx, LoadDataStatement(name, src.Table, src.Columns))
	if err != nil {
		return 0, fmt.Errorf("load data: %w", err)
	}
	return res.RowsAffected()
}

func (t *myTx) Commit(context.Context) error   { return t.tx.Commit() }
func (t *myTx) Rollback(context.Context) error { return t.tx.Rollback() }

// LoadDataStatement renders the LOAD DATA statement for the reader name. The
// buffer uses COPY text escapes, which match the LOAD DATA defaults; empty
// fields become NULL as they do for COPY ... NULL ''.
func LoadDataStatement(reader, table string, columns []string) string {
	vars := make([]string, len(columns))
	sets := make([]string, len(columns))
	for i, c := range columns {
		vars[i] = fmt.Sprintf("@c%d", i)
		sets[i] = fmt.Sprintf("%s = NULLIF(@c%d, '')", Dialect.DDL.Ident(c), i)
	}
	return fmt.Sprintf("LOAD DATA LOCAL INFILE 'Reader::%s'\n"+
		"INTO TABLE %s\n"+
		"CHARACTER SET utf8mb4\n"+
		"FIELDS TERMINATED BY '\\t' ESCAPED BY '\\\\'\n"+
		"LINES TERMINATED BY '\\n'\n"+
		"(%s)\n"+
		"SET %s",
		reader, Dialect.DDL.Ident(table), strings.Join(vars, ", "), strings.Join(sets, ", "))
}

type row struct{ r *sql.Row }

func (r row) Scan(dest ...any) error {
	err := r.r.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNoRows
	}
	return err
}
