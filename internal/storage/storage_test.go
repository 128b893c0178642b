package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"sparkify/internal/ddl"
	"sparkify/internal/domain"
)

var testDialect = Dialect{
	Name: "test",
	DDL:  ddl.Postgres,
	Queries: Queries{
		SongInsert:   "INSERT song",
		ArtistInsert: "INSERT artist",
		UserUpsert:   "UPSERT user",
		SongLookup:   "SELECT song",
	},
	Savepoint:  "SAVEPOINT %s",
	RollbackTo: "ROLLBACK TO SAVEPOINT %s",
	Release:    "RELEASE SAVEPOINT %s",
}

type execCall struct {
	q    string
	args []any
}

// fakeRow scans a fixed pair of strings or returns err.
type fakeRow struct {
	vals []string
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		*(d.(*string)) = r.vals[i]
	}
	return nil
}

// fakeTx records statements and simulates bulk copies.
type fakeTx struct {
	execs   []execCall
	execErr map[string]error
	row     fakeRow
	copied  []*CopySource
	copyErr error
}

func (t *fakeTx) Exec(_ context.Context, q string, args ...any) error {
	t.execs = append(t.execs, execCall{q: q, args: args})
	return t.execErr[q]
}

func (t *fakeTx) QueryRow(_ context.Context, q string, args ...any) Row {
	t.execs = append(t.execs, execCall{q: q, args: args})
	return t.row
}

func (t *fakeTx) CopyFrom(_ context.Context, src *CopySource) (int64, error) {
	if t.copyErr != nil {
		return 0, t.copyErr
	}
	t.copied = append(t.copied, src)
	return int64(src.Len()), nil
}

func (t *fakeTx) Commit(context.Context) error   { return nil }
func (t *fakeTx) Rollback(context.Context) error { return nil }

func (t *fakeTx) queries() []string {
	out := make([]string, 0, len(t.execs))
	for _, e := range t.execs {
		out = append(out, e.q)
	}
	return out
}

func f64(v float64) *float64 { return &v }
func str(v string) *string    { return &v }

func TestWriter_RowStatements(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tx := &fakeTx{}
	w := NewWriter(tx, testDialect, nil)

	require.NoError(t, w.InsertSong(ctx, domain.Song{SongID: "S1", Title: "t", ArtistID: "A1", Year: 2000, Duration: 1.5}))
	require.NoError(t, w.InsertArtist(ctx, domain.Artist{ArtistID: "A1", Name: "n", Latitude: f64(1.25)}))
	require.NoError(t, w.UpsertUser(ctx, domain.User{UserID: 7, FirstName: "f", LastName: "l", Gender: "F", Level: "paid"}))

	require.Len(t, tx.execs, 3)
	assert.Equal(t, []any{"S1", "t", "A1", 2000, 1.5}, tx.execs[0].args)
	assert.Equal(t, []any{"A1", "n", "", 1.25, nil}, tx.execs[1].args)
	assert.Equal(t, []any{int64(7), "f", "l", "F", "paid"}, tx.execs[2].args)
}

func TestWriter_RowErrorsPropagate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	boom := errors.New("unique violation")
	tx := &fakeTx{execErr: map[string]error{"UPSERT user": boom}}
	w := NewWriter(tx, testDialect, nil)

	err := w.UpsertUser(ctx, domain.User{UserID: 9})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "upsert user 9")
}

func TestWriter_LookupSong(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tx := &fakeTx{row: fakeRow{vals: []string{"S1", "A1"}}}
	ref, ok, err := NewWriter(tx, testDialect, nil).LookupSong(ctx, "title", "artist", 2.5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.SongRef{SongID: "S1", ArtistID: "A1"}, ref)
	assert.Equal(t, []any{"title", "artist", 2.5}, tx.execs[0].args)

	tx = &fakeTx{row: fakeRow{err: ErrNoRows}}
	_, ok, err = NewWriter(tx, testDialect, nil).LookupSong(ctx, "a", "b", 1)
	require.NoError(t, err)
	assert.False(t, ok)

	boom := errors.New("conn closed")
	tx = &fakeTx{row: fakeRow{err: boom}}
	_, _, err = NewWriter(tx, testDialect, nil).LookupSong(ctx, "a", "b", 1)
	assert.ErrorIs(t, err, boom)
}

func TestWriter_CopySuccessUsesSavepoint(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	core, logs := observer.New(zapcore.InfoLevel)
	tx := &fakeTx{}
	w := NewWriter(tx, testDialect, zap.New(core))

	src := TimeSource([]domain.TimeEntry{{Hour: 1}, {Hour: 2}})
	res := w.Copy(ctx, src)

	require.False(t, res.Failed())
	assert.Equal(t, int64(2), res.Rows)
	assert.Equal(t, "time", res.Table)
	assert.Equal(t, []string{"SAVEPOINT copy_time", "RELEASE SAVEPOINT copy_time"}, tx.queries())
	assert.Equal(t, 1, logs.FilterMessage("table loaded").Len())
}

func TestWriter_CopyFailureIsRecovered(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	core, logs := observer.New(zapcore.InfoLevel)
	boom := errors.New("invalid input syntax for type time")
	tx := &fakeTx{copyErr: boom}
	w := NewWriter(tx, testDialect, zap.New(core))

	src := SongPlaySource([]domain.SongPlay{{StartTime: 1, UserID: 2}})
	res := w.Copy(ctx, src)

	require.True(t, res.Failed())
	assert.ErrorIs(t, res.Err, boom)
	assert.Zero(t, res.Rows)
	assert.Equal(t, []string{"SAVEPOINT copy_songplays", "ROLLBACK TO SAVEPOINT copy_songplays"}, tx.queries())

	entries := logs.FilterMessage("bulk load failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "songplays", fields["table"])
	assert.Equal(t, int64(1), fields["rows"])
	assert.Len(t, fields["digest"], 16)
}

func TestWriter_CopyRollbackFailureIsJoined(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	boom := errors.New("copy failed")
	rb := errors.New("connection lost")
	tx := &fakeTx{copyErr: boom, execErr: map[string]error{"ROLLBACK TO SAVEPOINT copy_time": rb}}

	res := NewWriter(tx, testDialect, nil).Copy(ctx, TimeSource([]domain.TimeEntry{{}}))
	require.True(t, res.Failed())
	assert.ErrorIs(t, res.Err, boom)
	assert.ErrorIs(t, res.Err, rb)
}

func TestWriter_CopyEmptyIsNoop(t *testing.T) {
	t.Parallel()

	tx := &fakeTx{}
	res := NewWriter(tx, testDialect, nil).Copy(context.Background(), TimeSource(nil))
	assert.False(t, res.Failed())
	assert.Empty(t, tx.execs)
}

func TestWriter_CopyWithoutRelease(t *testing.T) {
	t.Parallel()

	d := testDialect
	d.Release = ""
	tx := &fakeTx{}
	res := NewWriter(tx, d, nil).Copy(context.Background(), TimeSource([]domain.TimeEntry{{}}))
	require.False(t, res.Failed())
	assert.Equal(t, []string{"SAVEPOINT copy_time"}, tx.queries())
}

func TestCopySource_Text(t *testing.T) {
	t.Parallel()

	src := NewCopySource("t", []string{"a", "b", "c", "d", "e"}, [][]any{
		{int64(1541121934796), "tab\there", nil, (*string)(nil), str(`back\slash`)},
		{42, "line\nbreak\r", 269.58322, true, domain.ClockTime(0)},
	})
	want := "1541121934796\ttab\\there\t\t\tback\\\\slash\n" +
		"42\tline\\nbreak\\r\t269.58322\tt\t00:00:00.000000\n"
	assert.Equal(t, want, src.Text())
	assert.Equal(t, src.Text(), src.Text())
}

func TestCopySource_SongPlayRow(t *testing.T) {
	t.Parallel()

	src := SongPlaySource([]domain.SongPlay{{
		StartTime: 1541106106796, UserID: 8, Level: "free",
		SongID: str("S1"), ArtistID: nil, SessionID: "139",
		Location: "Phoenix-Mesa-Scottsdale, AZ", UserAgent: "Mozilla/5.0",
	}})
	assert.Equal(t, "1541106106796\t8\tfree\tS1\t\t139\tPhoenix-Mesa-Scottsdale, AZ\tMozilla/5.0\n", src.Text())
	assert.Equal(t, []string{"start_time", "user_id", "level", "song_id", "artist_id", "session_id", "location", "user_agent"}, src.Columns)
}

func TestCopySource_DigestIsStable(t *testing.T) {
	t.Parallel()

	a := TimeSource([]domain.TimeEntry{{Hour: 1}})
	b := TimeSource([]domain.TimeEntry{{Hour: 1}})
	c := TimeSource([]domain.TimeEntry{{Hour: 2}})
	assert.Equal(t, a.Digest(), b.Digest())
	assert.NotEqual(t, a.Digest(), c.Digest())
}

// fakeDB records Exec statements for the schema helpers.
type fakeDB struct {
	execs []string
	err   error
}

func (d *fakeDB) Exec(_ context.Context, q string, _ ...any) error {
	d.execs = append(d.execs, q)
	return d.err
}
func (d *fakeDB) BeginTx(context.Context) (Tx, error) { return &fakeTx{}, nil }
func (d *fakeDB) Dialect() Dialect                    { return testDialect }
func (d *fakeDB) Close(context.Context) error         { return nil }

func TestEnsureAndResetSchema(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := &fakeDB{}
	require.NoError(t, EnsureSchema(ctx, db))
	require.Len(t, db.execs, 5)
	for _, q := range db.execs {
		assert.True(t, strings.HasPrefix(q, "CREATE TABLE IF NOT EXISTS"), q)
	}

	db = &fakeDB{}
	require.NoError(t, ResetSchema(ctx, db))
	require.Len(t, db.execs, 10)
	assert.Equal(t, "DROP TABLE IF EXISTS songplays;", db.execs[0])
	assert.True(t, strings.HasPrefix(db.execs[5], "CREATE TABLE"))

	db = &fakeDB{err: errors.New("permission denied")}
	assert.ErrorContains(t, ResetSchema(ctx, db), "drop table")
}
