// Package take provides the recording surface the dolly loggers write to: a
// Stream stamps entity rows with timeline positions and hands them to a Sink.
//
// Streams carry any number of named timelines. Each timeline holds one kind
// of time - a step sequence, a duration, or a wall-clock timestamp - pinned
// by first use. Every Log call snapshots all current cells onto the row, so
// a row can sit on both a sim-time axis and a step axis at once.
//
// Example usage:
//
//	stream := take.NewStream("pendulum")
//	stream.SetSequence("step", 12)
//	stream.SetDuration("sim_time", 200*time.Millisecond)
//	stream.Log("/World/Arm", take.Transform3D{Translation: [3]float64{0, 0, 1}})
//	stream.Flush()
package take

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Stream records entity rows against named timelines.
type Stream struct {
	mu     sync.Mutex
	appID  string
	recID  string
	sink   Sink
	cells  Cells
	kinds  map[string]TimeKind
	rows   int64
	closed bool
	logger *zap.Logger
}

// StreamOption configures a Stream at construction.
type StreamOption func(*Stream)

// WithSink directs rows to the given sink instead of a fresh MemorySink.
func WithSink(sink Sink) StreamOption {
	return func(s *Stream) { s.sink = sink }
}

// WithLogger attaches a structured logger for stream diagnostics.
func WithLogger(logger *zap.Logger) StreamOption {
	return func(s *Stream) { s.logger = logger }
}

// WithRecordingID overrides the generated recording id. Mainly for tests
// that need stable output.
func WithRecordingID(id string) StreamOption {
	return func(s *Stream) { s.recID = id }
}

// NewStream creates a recording stream. The recording id is the application
// id with a random postfix, so repeated runs of the same application never
// collide.
func NewStream(appID string, opts ...StreamOption) *Stream {
	s := &Stream{
		appID:  appID,
		cells:  make(Cells),
		kinds:  make(map[string]TimeKind),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sink == nil {
		s.sink = NewMemorySink()
	}
	if s.recID == "" {
		s.recID = fmt.Sprintf("%s-%s", appID, uuid.NewString()[:8])
	}
	return s
}

// ApplicationID returns the application id the stream was created with.
func (s *Stream) ApplicationID() string { return s.appID }

// RecordingID returns the unique id of this recording.
func (s *Stream) RecordingID() string { return s.recID }

// Sink returns the stream's sink.
func (s *Stream) Sink() Sink { return s.sink }

// SetSequence positions a sequence timeline at step n.
func (s *Stream) SetSequence(timeline string, n int64) error {
	return s.setCell(timeline, TimeCell{Kind: TimeSequence, Value: n})
}

// SetDuration positions a duration timeline at d from the recording start.
func (s *Stream) SetDuration(timeline string, d time.Duration) error {
	return s.setCell(timeline, TimeCell{Kind: TimeDuration, Value: int64(d)})
}

// SetTimestamp positions a timestamp timeline at the given instant.
func (s *Stream) SetTimestamp(timeline string, t time.Time) error {
	return s.setCell(timeline, TimeCell{Kind: TimeTimestamp, Value: t.UnixNano()})
}

func (s *Stream) setCell(timeline string, cell TimeCell) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pinned, ok := s.kinds[timeline]; ok && pinned != cell.Kind {
		return fmt.Errorf("timeline %q holds %s time, cannot set %s", timeline, pinned, cell.Kind)
	}
	s.kinds[timeline] = cell.Kind
	s.cells[timeline] = cell
	return nil
}

// ResetTime clears every timeline cell. Rows logged afterwards are untimed
// until cells are set again. Timeline kinds stay pinned.
func (s *Stream) ResetTime() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cells = make(Cells)
}

// DisableTimeline removes one timeline's cell so later rows no longer carry
// it. The timeline's kind stays pinned.
func (s *Stream) DisableTimeline(timeline string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cells, timeline)
}

// Log records an archetype for an entity, stamped with a snapshot of all
// current timeline cells.
func (s *Stream) Log(entity string, arch Archetype) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("stream %s is closed", s.recID)
	}
	var cells Cells
	if len(s.cells) > 0 {
		cells = make(Cells, len(s.cells))
		for name, cell := range s.cells {
			cells[name] = cell
		}
	}
	s.rows++
	s.mu.Unlock()

	row := Row{
		Entity: entity,
		Kind:   arch.ArchetypeKind(),
		Time:   cells,
		Data:   arch,
	}
	if err := s.sink.Append(row); err != nil {
		return fmt.Errorf("append row for %s: %w", entity, err)
	}
	return nil
}

// RowsLogged returns the number of rows logged so far.
func (s *Stream) RowsLogged() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}

// Flush pushes buffered rows through to the sink's backing store.
func (s *Stream) Flush() error {
	return s.sink.Flush()
}

// Close flushes and closes the sink. The stream rejects rows afterwards.
// Closing twice is harmless.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	rows := s.rows
	s.mu.Unlock()

	s.logger.Debug("closing recording stream",
		zap.String("recording_id", s.recID),
		zap.Int64("rows", rows))
	return s.sink.Close()
}
