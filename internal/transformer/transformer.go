// Package transformer projects parsed log events into the rows of the time,
// users and songplays tables.
package transformer

import "sparkify/internal/domain"

// Transformer rewrites a batch of log events.
type Transformer interface {
	Apply([]domain.LogEvent) []domain.LogEvent
}

// Chain is an ordered list of transformers.
type Chain []Transformer

func (c Chain) Apply(in []domain.LogEvent) []domain.LogEvent {
	out := in
	for _, t := range c {
		out = t.Apply(out)
	}
	return out
}

// PageFilter keeps only events whose page equals Page. It filters in place by
// reslicing the input.
type PageFilter struct {
	Page string
}

func (f PageFilter) Apply(in []domain.LogEvent) []domain.LogEvent {
	out := in[:0]
	for _, ev := range in {
		if ev.Page == f.Page {
			out = append(out, ev)
		}
	}
	return out
}

// FilterNextSong keeps the song-play events. The input slice is reused.
func FilterNextSong(events []domain.LogEvent) []domain.LogEvent {
	return PageFilter{Page: domain.PageNextSong}.Apply(events)
}
