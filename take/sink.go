package take

import (
	"sort"
	"sync"
)

// Row is one recorded fact: an entity path, an archetype payload, and the
// timeline snapshot it was logged at.
type Row struct {
	Entity string      `json:"entity"`
	Kind   string      `json:"kind"`
	Time   Cells       `json:"time,omitempty"`
	Data   interface{} `json:"data"`
}

// Cell returns the row's position on a named timeline, if stamped.
func (r Row) Cell(timeline string) (TimeCell, bool) {
	cell, ok := r.Time[timeline]
	return cell, ok
}

// Sink receives rows from a stream. Implementations must be safe for
// concurrent Append calls.
type Sink interface {
	Append(Row) error
	Flush() error
	Close() error
}

// MemorySink keeps rows in memory, with query helpers for tests, reports,
// and the inspector.
type MemorySink struct {
	mu   sync.RWMutex
	rows []Row
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append implements Sink.
func (m *MemorySink) Append(row Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, row)
	return nil
}

// Flush implements Sink. Memory rows are always settled.
func (m *MemorySink) Flush() error { return nil }

// Close implements Sink. Rows stay readable after close.
func (m *MemorySink) Close() error { return nil }

// Len returns the number of rows held.
func (m *MemorySink) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

// Rows returns a copy of all rows in log order.
func (m *MemorySink) Rows() []Row {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Row, len(m.rows))
	copy(out, m.rows)
	return out
}

// Entities returns the sorted set of entity paths with at least one row.
func (m *MemorySink) Entities() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, row := range m.rows {
		seen[row.Entity] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for e := range seen {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// RowsFor returns all rows for one entity in log order.
func (m *MemorySink) RowsFor(entity string) []Row {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Row
	for _, row := range m.rows {
		if row.Entity == entity {
			out = append(out, row)
		}
	}
	return out
}

// LastFor returns the most recent row of a given kind for an entity.
func (m *MemorySink) LastFor(entity, kind string) (Row, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].Entity == entity && m.rows[i].Kind == kind {
			return m.rows[i], true
		}
	}
	return Row{}, false
}

// CountKind returns how many rows of a given kind were logged.
func (m *MemorySink) CountKind(kind string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, row := range m.rows {
		if row.Kind == kind {
			n++
		}
	}
	return n
}

// Reset drops all rows.
func (m *MemorySink) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = nil
}
