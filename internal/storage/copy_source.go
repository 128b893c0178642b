package storage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"

	"sparkify/internal/domain"
	"sparkify/internal/schema"
)

// CopySource is the row set of one bulk load. Backends with a native text
// bulk path read Text; the others read Rows directly.
type CopySource struct {
	Table   string
	Columns []string
	Rows    [][]any

	text    string
	encoded bool
}

// NewCopySource builds a source for table with the given column order.
func NewCopySource(table string, columns []string, rows [][]any) *CopySource {
	return &CopySource{Table: table, Columns: columns, Rows: rows}
}

// TimeSource converts time rows into a source for the time table.
func TimeSource(rows []domain.TimeEntry) *CopySource {
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Values())
	}
	return NewCopySource(schema.Time, schema.TimeColumns(), out)
}

// SongPlaySource converts songplay rows into a source for the songplays table.
func SongPlaySource(rows []domain.SongPlay) *CopySource {
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Values())
	}
	return NewCopySource(schema.SongPlays, schema.SongPlayColumns(), out)
}

// Len is the number of rows.
func (s *CopySource) Len() int { return len(s.Rows) }

// Text renders the rows in PostgreSQL COPY text format: one line per row,
// tab-separated fields, NULL as the empty string, and backslash escapes for
// backslash, tab, newline and carriage return. The result is cached.
func (s *CopySource) Text() string {
	if s.encoded {
		return s.text
	}
	var sb strings.Builder
	for _, row := range s.Rows {
		for i, v := range row {
			if i > 0 {
				sb.WriteByte('\t')
			}
			sb.WriteString(encodeField(v))
		}
		sb.WriteByte('\n')
	}
	s.text = sb.String()
	s.encoded = true
	return s.text
}

// Digest is the xxh3 hash of Text. It identifies a failed buffer in logs
// without dumping it.
func (s *CopySource) Digest() uint64 {
	return xxh3.HashString(s.Text())
}

var copyEscaper = strings.NewReplacer(
	`\`, `\\`,
	"\t", `\t`,
	"\n", `\n`,
	"\r", `\r`,
)

func encodeField(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case *string:
		if x == nil {
			return ""
		}
		return copyEscaper.Replace(*x)
	case *float64:
		if x == nil {
			return ""
		}
		return strconv.FormatFloat(*x, 'g', -1, 64)
	case string:
		return copyEscaper.Replace(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		if x {
			return "t"
		}
		return "f"
	case fmt.Stringer:
		return copyEscaper.Replace(x.String())
	default:
		return copyEscaper.Replace(fmt.Sprint(x))
	}
}
