package take

import (
	"fmt"
	"time"
)

// TimeKind is the axis type of a timeline. A timeline's kind is pinned by
// the first cell set on it and never changes for the life of the stream.
type TimeKind string

const (
	// TimeSequence counts discrete steps (frame numbers, sim ticks).
	TimeSequence TimeKind = "sequence"
	// TimeDuration measures elapsed time from the start of the recording.
	TimeDuration TimeKind = "duration"
	// TimeTimestamp is an absolute wall-clock instant.
	TimeTimestamp TimeKind = "timestamp"
)

// TimeCell is one timeline's current position. Value is interpreted by Kind:
// a plain count for sequences, nanoseconds for durations, and Unix
// nanoseconds for timestamps.
type TimeCell struct {
	Kind  TimeKind `json:"kind"`
	Value int64    `json:"value"`
}

// Duration returns the cell value as a duration. Only meaningful for
// duration cells.
func (c TimeCell) Duration() time.Duration {
	return time.Duration(c.Value)
}

// Timestamp returns the cell value as a wall-clock time. Only meaningful for
// timestamp cells.
func (c TimeCell) Timestamp() time.Time {
	return time.Unix(0, c.Value)
}

// Sequence returns the cell value as a step count.
func (c TimeCell) Sequence() int64 {
	return c.Value
}

func (c TimeCell) String() string {
	switch c.Kind {
	case TimeSequence:
		return fmt.Sprintf("#%d", c.Value)
	case TimeDuration:
		return c.Duration().String()
	case TimeTimestamp:
		return c.Timestamp().UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%d", c.Value)
	}
}

// Cells is a snapshot of every timeline position at log time.
type Cells map[string]TimeCell
