package pipeline

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sparkify/internal/storage"
)

// Stats summarizes a run or a single file.
type Stats struct {
	// Files counts committed files per phase.
	Files map[string]int
	// Rows counts rows written per table. Insert-if-absent statements count
	// even when the row already existed.
	Rows map[string]int64
	// FailedRows counts rows of rolled back bulk loads per table.
	FailedRows map[string]int64
	// FailedLoads is the number of rolled back bulk loads.
	FailedLoads int
	// Unmatched counts songplays stored without a song and artist.
	Unmatched int64
}

func newStats() Stats {
	return Stats{
		Files:      make(map[string]int),
		Rows:       make(map[string]int64),
		FailedRows: make(map[string]int64),
	}
}

func (s *Stats) add(o Stats) {
	for k, v := range o.Files {
		s.Files[k] += v
	}
	for k, v := range o.Rows {
		s.Rows[k] += v
	}
	for k, v := range o.FailedRows {
		s.FailedRows[k] += v
	}
	s.FailedLoads += o.FailedLoads
	s.Unmatched += o.Unmatched
}

func (s *Stats) addCopy(res storage.CopyResult, attempted int) {
	if res.Failed() {
		s.FailedLoads++
		s.FailedRows[res.Table] += int64(attempted)
		return
	}
	s.Rows[res.Table] += res.Rows
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (s Stats) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if err := enc.AddObject("files", intMap(s.Files)); err != nil {
		return err
	}
	if err := enc.AddObject("rows", int64Map(s.Rows)); err != nil {
		return err
	}
	if len(s.FailedRows) > 0 {
		if err := enc.AddObject("failed_rows", int64Map(s.FailedRows)); err != nil {
			return err
		}
	}
	enc.AddInt("failed_loads", s.FailedLoads)
	enc.AddInt64("unmatched", s.Unmatched)
	return nil
}

// Field renders s as a zap field named stats.
func (s Stats) Field() zap.Field { return zap.Object("stats", s) }

type intMap map[string]int

func (m intMap) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	for k, v := range m {
		enc.AddInt(k, v)
	}
	return nil
}

type int64Map map[string]int64

func (m int64Map) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	for k, v := range m {
		enc.AddInt64(k, v)
	}
	return nil
}
