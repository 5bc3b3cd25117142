package take

import (
	"errors"
	"sync"
)

var (
	defaultMu     sync.Mutex
	defaultStream *Stream
)

// ErrNoStream is returned when no recording stream can be resolved.
var ErrNoStream = errors.New("no recording stream provided, no save path provided, " +
	"and no default recording stream set: pass a stream, set a save path, or call take.Init first")

// Init creates a stream and installs it as the package default, so loggers
// constructed without an explicit stream or save path have somewhere to
// record.
func Init(appID string, opts ...StreamOption) *Stream {
	s := NewStream(appID, opts...)
	SetDefault(s)
	return s
}

// SetDefault installs the package default stream. Passing nil clears it.
func SetDefault(s *Stream) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultStream = s
}

// Default returns the package default stream, or nil when none is set.
func Default() *Stream {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultStream
}

// Resolve picks the recording stream a logger should use. An explicit stream
// always wins; otherwise a save path creates a new file-backed stream; last
// comes the package default. With none of the three, ErrNoStream.
func Resolve(explicit *Stream, savePath, appID string, opts ...StreamOption) (*Stream, error) {
	if explicit != nil {
		return explicit, nil
	}
	if savePath != "" {
		sink, err := NewFileSink(savePath)
		if err != nil {
			return nil, err
		}
		return NewStream(appID, append(opts, WithSink(sink))...), nil
	}
	if s := Default(); s != nil {
		return s, nil
	}
	return nil, ErrNoStream
}
