package metrics

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Summary is an in-memory Backend that totals counters per name and label
// set. Durations are summed as counters named <name>_sum.
type Summary struct {
	mu     sync.Mutex
	totals map[string]float64
}

// NewSummary returns an empty Summary.
func NewSummary() *Summary {
	return &Summary{totals: make(map[string]float64)}
}

func (s *Summary) IncCounter(name string, delta float64, labels Labels) {
	s.add(key(name, labels), delta)
}

func (s *Summary) ObserveHistogram(name string, value float64, labels Labels) {
	s.add(key(name+"_sum", labels), value)
}

func (s *Summary) Flush() error { return nil }

func (s *Summary) add(k string, v float64) {
	s.mu.Lock()
	s.totals[k] += v
	s.mu.Unlock()
}

// Value returns the total for name and labels, 0 when never recorded.
func (s *Summary) Value(name string, labels Labels) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals[key(name, labels)]
}

// Fields renders every total as a zap field, sorted by key.
func (s *Summary) Fields() []zap.Field {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.totals))
	for k := range s.totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Float64(k, s.totals[k]))
	}
	return out
}

// key renders name{k=v,...} with labels sorted; the job label is dropped
// since one process runs one job.
func key(name string, labels Labels) string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		if k == "job" {
			continue
		}
		names = append(names, k)
	}
	if len(names) == 0 {
		return name
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteByte('{')
	for i, k := range names {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(labels[k])
	}
	sb.WriteByte('}')
	return sb.String()
}
