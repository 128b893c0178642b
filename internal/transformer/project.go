package transformer

import (
	"context"
	"fmt"
	"time"

	"sparkify/internal/domain"
)

// SongLookup resolves a played song against the already loaded songs and
// artists. ok is false when no song matches title, artist name and exact
// duration.
type SongLookup interface {
	LookupSong(ctx context.Context, title, artist string, duration float64) (ref domain.SongRef, ok bool, err error)
}

// Decompose breaks an epoch-milliseconds timestamp into its UTC calendar
// parts. Week is the ISO week of the year and Weekday counts from Monday = 0.
func Decompose(tsMillis int64) domain.TimeEntry {
	t := time.UnixMilli(tsMillis).UTC()
	_, week := t.ISOWeek()
	return domain.TimeEntry{
		StartTime: domain.NewClockTime(t),
		Hour:      t.Hour(),
		Day:       t.Day(),
		Week:      week,
		Month:     int(t.Month()),
		Year:      t.Year(),
		Weekday:   (int(t.Weekday()) + 6) % 7,
	}
}

// TimeRows returns one time row per event, duplicates included.
func TimeRows(events []domain.LogEvent) []domain.TimeEntry {
	out := make([]domain.TimeEntry, 0, len(events))
	for _, ev := range events {
		out = append(out, Decompose(ev.Ts))
	}
	return out
}

// UserRows returns one user row per event in event order. A user seen several
// times is repeated; the loader upsert keeps the last level.
func UserRows(events []domain.LogEvent) []domain.User {
	out := make([]domain.User, 0, len(events))
	for _, ev := range events {
		out = append(out, domain.User{
			UserID:    int64(ev.UserID),
			FirstName: ev.FirstName,
			LastName:  ev.LastName,
			Gender:    ev.Gender,
			Level:     ev.Level,
		})
	}
	return out
}

// SongPlays builds one songplay per event. Events without a length cannot
// match any song and skip the lookup. It also returns how many rows resolved
// to a song.
func SongPlays(ctx context.Context, events []domain.LogEvent, lookup SongLookup) ([]domain.SongPlay, int, error) {
	out := make([]domain.SongPlay, 0, len(events))
	matched := 0
	for i, ev := range events {
		p := domain.SongPlay{
			StartTime: ev.Ts,
			UserID:    int64(ev.UserID),
			Level:     ev.Level,
			SessionID: string(ev.SessionID),
			Location:  ev.Location,
			UserAgent: ev.UserAgent,
		}
		if ev.Length != nil {
			ref, ok, err := lookup.LookupSong(ctx, ev.Song, ev.Artist, *ev.Length)
			if err != nil {
				return nil, matched, fmt.Errorf("lookup song for event %d: %w", i+1, err)
			}
			if ok {
				songID, artistID := ref.SongID, ref.ArtistID
				p.SongID, p.ArtistID = &songID, &artistID
				matched++
			}
		}
		out = append(out, p)
	}
	return out, matched, nil
}
