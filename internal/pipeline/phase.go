package pipeline

import (
	"context"
	"fmt"
	"io"

	jsonparser "sparkify/internal/parser/json"
	"sparkify/internal/schema"
	"sparkify/internal/storage"
	"sparkify/internal/transformer"
)

// Processor loads the contents of one input file through w and reports what
// it wrote. A returned error rolls the file back and aborts the run.
type Processor func(ctx context.Context, w *storage.Writer, r io.Reader) (Stats, error)

// Phase is one directory walk of the run.
type Phase struct {
	Name    string
	Root    string
	Process Processor
}

// DefaultPhases returns the song phase followed by the log phase.
func DefaultPhases(songRoot, logRoot string) []Phase {
	return []Phase{
		{Name: PhaseSongData, Root: songRoot, Process: SongFile},
		{Name: PhaseLogData, Root: logRoot, Process: LogFile},
	}
}

// SongFile loads one song_data file: one song and one artist, each inserted
// only when absent.
func SongFile(ctx context.Context, w *storage.Writer, r io.Reader) (Stats, error) {
	st := newStats()

	m, err := jsonparser.ReadSongFile(r)
	if err != nil {
		return st, err
	}
	if err := w.InsertSong(ctx, m.Song()); err != nil {
		return st, err
	}
	st.Rows[schema.Songs]++
	if err := w.InsertArtist(ctx, m.Artist()); err != nil {
		return st, err
	}
	st.Rows[schema.Artists]++
	return st, nil
}

// LogFile loads one log_data file. Only NextSong events are kept. Time rows
// and songplays are bulk-loaded; users are upserted once per event so the
// last event decides the stored level.
func LogFile(ctx context.Context, w *storage.Writer, r io.Reader) (Stats, error) {
	st := newStats()

	events, err := jsonparser.ReadLogFile(r)
	if err != nil {
		return st, err
	}
	events = transformer.FilterNextSong(events)
	if len(events) == 0 {
		return st, nil
	}

	st.addCopy(w.Copy(ctx, storage.TimeSource(transformer.TimeRows(events))), len(events))

	for _, u := range transformer.UserRows(events) {
		if err := w.UpsertUser(ctx, u); err != nil {
			return st, err
		}
		st.Rows[schema.Users]++
	}

	plays, matched, err := transformer.SongPlays(ctx, events, w)
	if err != nil {
		return st, fmt.Errorf("songplays: %w", err)
	}
	st.Unmatched += int64(len(plays) - matched)
	st.addCopy(w.Copy(ctx, storage.SongPlaySource(plays)), len(plays))
	return st, nil
}
