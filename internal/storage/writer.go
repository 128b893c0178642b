package storage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"sparkify/internal/domain"
)

// CopyResult reports the outcome of one bulk load. Err is set when the load
// failed and was rolled back; the transaction stays usable.
type CopyResult struct {
	Table string
	Rows  int64
	Err   error
}

// Failed reports whether the load was rolled back.
func (r CopyResult) Failed() bool { return r.Err != nil }

// Writer performs the table writes of one file inside tx.
type Writer struct {
	tx      Tx
	dialect Dialect
	log     *zap.Logger
}

// NewWriter wraps tx. A nil logger discards output.
func NewWriter(tx Tx, d Dialect, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{tx: tx, dialect: d, log: log}
}

// InsertSong adds s unless its song_id is already present.
func (w *Writer) InsertSong(ctx context.Context, s domain.Song) error {
	if err := w.tx.Exec(ctx, w.dialect.Queries.SongInsert,
		s.SongID, s.Title, s.ArtistID, s.Year, s.Duration); err != nil {
		return fmt.Errorf("insert song %s: %w", s.SongID, err)
	}
	return nil
}

// InsertArtist adds a unless its artist_id is already present.
func (w *Writer) InsertArtist(ctx context.Context, a domain.Artist) error {
	if err := w.tx.Exec(ctx, w.dialect.Queries.ArtistInsert,
		a.ArtistID, a.Name, a.Location, nullFloat(a.Latitude), nullFloat(a.Longitude)); err != nil {
		return fmt.Errorf("insert artist %s: %w", a.ArtistID, err)
	}
	return nil
}

// UpsertUser inserts u or, when the user exists, overwrites its level.
func (w *Writer) UpsertUser(ctx context.Context, u domain.User) error {
	if err := w.tx.Exec(ctx, w.dialect.Queries.UserUpsert,
		u.UserID, u.FirstName, u.LastName, u.Gender, u.Level); err != nil {
		return fmt.Errorf("upsert user %d: %w", u.UserID, err)
	}
	return nil
}

// LookupSong finds the song with this title, artist name and exact duration.
// It satisfies transformer.SongLookup.
func (w *Writer) LookupSong(ctx context.Context, title, artist string, duration float64) (domain.SongRef, bool, error) {
	var ref domain.SongRef
	err := w.tx.QueryRow(ctx, w.dialect.Queries.SongLookup, title, artist, duration).
		Scan(&ref.SongID, &ref.ArtistID)
	if errors.Is(err, ErrNoRows) {
		return domain.SongRef{}, false, nil
	}
	if err != nil {
		return domain.SongRef{}, false, err
	}
	return ref, true, nil
}

// Copy bulk-loads src inside a savepoint. A database error rolls back to the
// savepoint and is logged and returned in the result, not as an error, so
// the caller can go on with the next file.
func (w *Writer) Copy(ctx context.Context, src *CopySource) CopyResult {
	res := CopyResult{Table: src.Table}
	if src.Len() == 0 {
		return res
	}

	sp := "copy_" + src.Table
	if err := w.tx.Exec(ctx, w.dialect.savepointSQL(sp)); err != nil {
		res.Err = fmt.Errorf("savepoint: %w", err)
		w.logFailure(src, res.Err)
		return res
	}

	n, err := w.tx.CopyFrom(ctx, src)
	if err != nil {
		if rbErr := w.tx.Exec(ctx, w.dialect.rollbackToSQL(sp)); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback to savepoint: %w", rbErr))
		}
		res.Err = fmt.Errorf("copy %s: %w", src.Table, err)
		w.logFailure(src, res.Err)
		return res
	}
	if rel := w.dialect.releaseSQL(sp); rel != "" {
		if err := w.tx.Exec(ctx, rel); err != nil {
			res.Err = fmt.Errorf("release savepoint: %w", err)
			w.logFailure(src, res.Err)
			return res
		}
	}

	res.Rows = n
	w.log.Info("table loaded", zap.String("table", src.Table), zap.Int64("rows", n))
	return res
}

func (w *Writer) logFailure(src *CopySource, err error) {
	w.log.Error("bulk load failed",
		zap.String("table", src.Table),
		zap.Int("rows", src.Len()),
		zap.String("digest", fmt.Sprintf("%016x", src.Digest())),
		zap.Error(err),
	)
}

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
