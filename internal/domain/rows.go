package domain

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// User is one row of the users table.
type User struct {
	UserID    int64
	FirstName string
	LastName  string
	Gender    string
	Level     string
}

// TimeEntry is one row of the time dimension. Weekday counts from Monday = 0.
type TimeEntry struct {
	StartTime ClockTime
	Hour      int
	Day       int
	Week      int
	Month     int
	Year      int
	Weekday   int
}

// Values returns the row in time table column order.
func (e TimeEntry) Values() []any {
	return []any{e.StartTime, e.Hour, e.Day, e.Week, e.Month, e.Year, e.Weekday}
}

// SongPlay is one row of the songplays fact table. SongID and ArtistID are nil
// when the lookup found no matching song.
type SongPlay struct {
	StartTime int64 // epoch milliseconds
	UserID    int64
	Level     string
	SongID    *string
	ArtistID  *string
	SessionID string
	Location  string
	UserAgent string
}

// Values returns the row in songplays column order.
func (p SongPlay) Values() []any {
	return []any{p.StartTime, p.UserID, p.Level, p.SongID, p.ArtistID, p.SessionID, p.Location, p.UserAgent}
}

// ClockTime is a time of day stored as the offset from midnight.
type ClockTime time.Duration

// NewClockTime returns the time-of-day part of t.
func NewClockTime(t time.Time) ClockTime {
	h, m, s := t.Clock()
	d := time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(t.Nanosecond())
	return ClockTime(d)
}

// String formats as HH:MM:SS.ffffff, the text form accepted for TIME columns.
func (c ClockTime) String() string {
	d := time.Duration(c)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	return fmt.Sprintf("%02d:%02d:%02d.%06d", h, m, s, d/time.Microsecond)
}

// Time anchors the clock on 1900-01-01 UTC for drivers that want a time.Time.
func (c ClockTime) Time() time.Time {
	return time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(c))
}

// Value implements driver.Valuer.
func (c ClockTime) Value() (driver.Value, error) {
	return c.String(), nil
}
