// Package session drives episodic recording of a stepped simulation: it
// decides when takes start and stop and stamps each captured frame onto the
// take's timeline.
//
// A Session wraps a capture function (typically StageLogger.LogStage or
// RigLogger.LogScene) and mirrors the reset/step shape of an RL training
// loop. Triggers pick the episodes or steps that open a take; each take
// records on its own duration timeline named after the trigger, so a viewer
// can scrub takes independently.
package session

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/dolly/take"
)

// CappedCubicSchedule triggers on perfect cubes below episode 1000 and on
// every 1000th episode after. Early training changes fast and deserves dense
// takes; later training is sampled.
func CappedCubicSchedule(episode int64) bool {
	if episode < 1000 {
		r := int64(math.Round(math.Cbrt(float64(episode))))
		return r*r*r == episode
	}
	return episode%1000 == 0
}

// Config configures a Session.
type Config struct {
	// EpisodeTrigger opens a take named episode_<n> when it returns true
	// for episode n. When both triggers are nil, CappedCubicSchedule is
	// installed here.
	EpisodeTrigger func(episode int64) bool
	// StepTrigger opens a take named step_<n> when it returns true for
	// step n. Steps count across episodes.
	StepTrigger func(step int64) bool
	// TakeLength caps the frames captured per take. Zero means episodic:
	// the take runs until the next Reset. Positive lengths span resets.
	TakeLength int
	// PhysicsDT is the simulated seconds per captured frame, used to
	// stamp take durations. Defaults to 1/60.
	PhysicsDT float64
	// Logger receives take lifecycle events. Defaults to a nop logger.
	Logger *zap.Logger
}

// DefaultConfig returns the config used when fields are left zero.
func DefaultConfig() Config {
	return Config{
		PhysicsDT: 1.0 / 60.0,
		Logger:    zap.NewNop(),
	}
}

// Session turns reset/step notifications into takes on a stream.
//
// Reset and Step mirror the wrapped loop: call Reset after each environment
// reset and Step after each physics step. While a take is open every call
// captures one frame, stamped at recordedFrames x PhysicsDT on the take's
// timeline.
type Session struct {
	stream  *take.Stream
	capture func() error

	episodeTrigger func(int64) bool
	stepTrigger    func(int64) bool
	takeLength     int
	physicsDT      float64
	logger         *zap.Logger

	mu       sync.Mutex
	episode  int64
	step     int64
	takeName string
	frames   int
}

// New creates a session recording through capture onto stream. Counters
// start at -1 so the first Reset is episode 0 and the first Step is step 0.
func New(stream *take.Stream, capture func() error, cfg Config) (*Session, error) {
	if stream == nil {
		return nil, errors.New("session needs a stream to stamp takes on")
	}
	if capture == nil {
		return nil, errors.New("session needs a capture function")
	}
	if cfg.TakeLength < 0 {
		return nil, fmt.Errorf("take length %d is negative", cfg.TakeLength)
	}

	def := DefaultConfig()
	if cfg.PhysicsDT <= 0 {
		cfg.PhysicsDT = def.PhysicsDT
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	episodeTrigger := cfg.EpisodeTrigger
	if episodeTrigger == nil && cfg.StepTrigger == nil {
		episodeTrigger = CappedCubicSchedule
	}

	return &Session{
		stream:         stream,
		capture:        capture,
		episodeTrigger: episodeTrigger,
		stepTrigger:    cfg.StepTrigger,
		takeLength:     cfg.TakeLength,
		physicsDT:      cfg.PhysicsDT,
		logger:         cfg.Logger,
		episode:        -1,
		step:           -1,
	}, nil
}

// Reset advances the episode counter, closes an episodic take left open from
// the previous episode, and opens a new take when the episode trigger fires.
// The reset state itself is captured as the take's first frame.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.episode++
	if s.takeLength == 0 {
		if err := s.stopTake(); err != nil {
			return err
		}
	}
	if s.episodeTrigger != nil && s.episodeTrigger(s.episode) {
		if err := s.startTake(fmt.Sprintf("episode_%d", s.episode)); err != nil {
			return err
		}
	}
	return s.captureFrame()
}

// Step advances the step counter, opens a new take when the step trigger
// fires, captures a frame, and closes the take once it reaches TakeLength
// frames.
func (s *Session) Step() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.step++
	if s.stepTrigger != nil && s.stepTrigger(s.step) {
		if err := s.startTake(fmt.Sprintf("step_%d", s.step)); err != nil {
			return err
		}
	}
	if err := s.captureFrame(); err != nil {
		return err
	}
	if s.takeLength > 0 && s.frames >= s.takeLength {
		return s.stopTake()
	}
	return nil
}

// Close stops any open take and flushes the stream. The stream itself stays
// open; closing it belongs to whoever created it.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopTake()
}

// Recording reports whether a take is open.
func (s *Session) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.takeName != ""
}

// TakeName returns the open take's timeline name, or "" when idle.
func (s *Session) TakeName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.takeName
}

// Episode returns the current episode id, -1 before the first Reset.
func (s *Session) Episode() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.episode
}

// Steps returns the current step id, -1 before the first Step.
func (s *Session) Steps() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Frames returns the frames captured into the open take so far.
func (s *Session) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Stream returns the stream takes are stamped on.
func (s *Session) Stream() *take.Stream { return s.stream }

// startTake opens a take named name. An already-open take is abandoned: its
// timeline is disabled and the frame counter starts over.
func (s *Session) startTake(name string) error {
	if s.takeName != "" {
		s.stream.DisableTimeline(s.takeName)
	}
	s.takeName = name
	s.frames = 0
	s.stream.ResetTime()
	if err := s.stream.SetDuration(name, 0); err != nil {
		return err
	}
	s.logger.Info("starting take", zap.String("take", name))
	return nil
}

// captureFrame stamps the take timeline and captures the scene. Outside a
// take it does nothing.
func (s *Session) captureFrame() error {
	if s.takeName == "" {
		return nil
	}
	elapsed := time.Duration(float64(s.frames) * s.physicsDT * float64(time.Second))
	if err := s.stream.SetDuration(s.takeName, elapsed); err != nil {
		return err
	}
	if err := s.capture(); err != nil {
		return err
	}
	s.frames++
	return nil
}

// stopTake closes the open take: the timeline is disabled so later rows do
// not land on it, and the stream is flushed.
func (s *Session) stopTake() error {
	if s.takeName == "" {
		return nil
	}
	s.logger.Info("stopping take",
		zap.String("take", s.takeName),
		zap.Int("frames", s.frames))
	s.stream.DisableTimeline(s.takeName)
	s.takeName = ""
	s.frames = 0
	return s.stream.Flush()
}
