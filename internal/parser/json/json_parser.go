// Package json turns the two kinds of input documents into typed domain
// values:
//
//   - song_data files: one JSON object per file (ReadSongFile)
//   - log_data files: newline-delimited JSON objects, one event per line
//     (ReadLogFile)
//
// A UTF-8 byte order mark at the start of a file is dropped before decoding.
// Any malformed document fails the whole file.
package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"sparkify/internal/domain"
)

// Decoder reads a stream of JSON objects and decodes each into T.
type Decoder[T any] struct {
	dec  *json.Decoder
	read int
}

// NewDecoder constructs a Decoder over r. A leading BOM is stripped.
func NewDecoder[T any](r io.Reader) *Decoder[T] {
	return &Decoder[T]{dec: json.NewDecoder(stripBOM(r))}
}

// Next decodes the next object. io.EOF is returned when the stream is
// exhausted; any other error carries the 1-based record number.
func (d *Decoder[T]) Next() (T, error) {
	var v T
	if err := d.dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return v, io.EOF
		}
		return v, fmt.Errorf("json parser: record %d: %w", d.read+1, err)
	}
	d.read++
	return v, nil
}

// DecodeAll reads every object from r.
func DecodeAll[T any](r io.Reader) ([]T, error) {
	d := NewDecoder[T](r)
	var out []T
	for {
		v, err := d.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

// ReadSongFile decodes the song metadata object of a song_data file. Only the
// first object is used; an empty file is an error.
func ReadSongFile(r io.Reader) (domain.SongMetadata, error) {
	m, err := NewDecoder[domain.SongMetadata](r).Next()
	if err == io.EOF {
		return m, fmt.Errorf("json parser: song file is empty")
	}
	return m, err
}

// ReadLogFile decodes all events of a log_data file.
func ReadLogFile(r io.Reader) ([]domain.LogEvent, error) {
	return DecodeAll[domain.LogEvent](r)
}

func stripBOM(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(transform.Nop))
}
