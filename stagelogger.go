package dolly

import (
	"sync"

	"go.uber.org/zap"

	"github.com/teranos/dolly/glitch"
	"github.com/teranos/dolly/rig"
	"github.com/teranos/dolly/shade"
	"github.com/teranos/dolly/stage"
	"github.com/teranos/dolly/take"
)

// RootEntity is where stage-wide state like the up axis is logged.
const RootEntity = "/"

// loggedTransform is the comparable form of a transform row, kept per entity
// for change detection. Comparison is exact: a pose is re-logged only when
// some component actually differs from the last logged value.
type loggedTransform struct {
	translation [3]float64
	quaternion  [4]float64
	scale       [3]float64
	hasScale    bool
}

func transformKey(tr take.Transform3D) loggedTransform {
	key := loggedTransform{translation: tr.Translation, quaternion: tr.Quaternion}
	if tr.Scale != nil {
		key.scale = *tr.Scale
		key.hasScale = true
	}
	return key
}

// StageLoggerConfig configures a StageLogger.
type StageLoggerConfig struct {
	// Include and Exclude filter visited paths, see WalkerConfig.
	Include []string
	Exclude []string
	// VisitGuides also logs guide-purpose helper geometry.
	VisitGuides bool
	// SavePath, when the stream argument is nil, records to a fresh
	// file-backed stream at this path. See take.Resolve for the full
	// resolution order.
	SavePath string
	// AppID names the recording when a stream is created here. Defaults
	// to "stage".
	AppID string
	// Logger receives sweep diagnostics. Defaults to a nop logger.
	Logger *zap.Logger
	// Glitches collects recoverable defects. Defaults to a fresh handler
	// with the default policy.
	Glitches *glitch.Handler
	// Resolver resolves surface shading. Defaults to a resolver on the
	// logger's stage sharing Logger and Glitches.
	Resolver *shade.Resolver
}

// DefaultStageLoggerConfig returns the config used when fields are left
// zero.
func DefaultStageLoggerConfig() StageLoggerConfig {
	return StageLoggerConfig{
		AppID:    "stage",
		Logger:   zap.NewNop(),
		Glitches: glitch.NewHandler("stage_logger", nil),
	}
}

// StageLogger streams a stage into a take, incrementally.
//
// Each LogStage call is one sweep: geometry is logged once per entity,
// transforms only when they changed since the last sweep, and entities whose
// prims vanished are cleared. Live poses attached through the overlay win
// over authored transforms for the paths they cover.
type StageLogger struct {
	st       *stage.Stage
	stream   *take.Stream
	walker   *Walker
	overlay  *PoseOverlay
	resolver *shade.Resolver
	logger   *zap.Logger
	glitches *glitch.Handler

	mu         sync.Mutex
	axesLogged bool
	last       map[stage.Path]loggedTransform
	meshLogged map[stage.Path]bool
	present    map[stage.Path]bool
}

// NewStageLogger creates a logger sweeping st into stream. A nil stream is
// resolved through take.Resolve: the config's save path, then the package
// default stream.
func NewStageLogger(st *stage.Stage, stream *take.Stream, cfg StageLoggerConfig) (*StageLogger, error) {
	def := DefaultStageLoggerConfig()
	if cfg.AppID == "" {
		cfg.AppID = def.AppID
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	if cfg.Glitches == nil {
		cfg.Glitches = def.Glitches
	}
	if cfg.Resolver == nil {
		rcfg := shade.DefaultResolverConfig()
		rcfg.Logger = cfg.Logger
		rcfg.Glitches = cfg.Glitches
		cfg.Resolver = shade.NewResolver(st, rcfg)
	}

	stream, err := take.Resolve(stream, cfg.SavePath, cfg.AppID, take.WithLogger(cfg.Logger))
	if err != nil {
		return nil, err
	}

	walker, err := NewWalker(st, WalkerConfig{
		Include:     cfg.Include,
		Exclude:     cfg.Exclude,
		VisitGuides: cfg.VisitGuides,
	})
	if err != nil {
		return nil, err
	}

	return &StageLogger{
		st:         st,
		stream:     stream,
		walker:     walker,
		overlay:    NewPoseOverlay(),
		resolver:   cfg.Resolver,
		logger:     cfg.Logger,
		glitches:   cfg.Glitches,
		last:       make(map[stage.Path]loggedTransform),
		meshLogged: make(map[stage.Path]bool),
		present:    make(map[stage.Path]bool),
	}, nil
}

// Overlay returns the logger's pose overlay.
func (l *StageLogger) Overlay() *PoseOverlay { return l.overlay }

// SetPoseSource attaches a live pose source; nil detaches it.
func (l *StageLogger) SetPoseSource(src rig.PoseSource) { l.overlay.SetSource(src) }

// Glitches returns the handler collecting this logger's defects.
func (l *StageLogger) Glitches() *glitch.Handler { return l.glitches }

// Stream returns the take stream the logger writes to.
func (l *StageLogger) Stream() *take.Stream { return l.stream }

// LogStage sweeps the stage once. The first sweep also logs the up axis at
// the root entity. Overlay-covered paths are logged first, from their live
// poses, whether or not a stage prim sits at the path. Recoverable defects
// (bad geometry, failed textures) are recorded and skipped; the sweep aborts
// only on stream errors or once the glitch budget is exhausted.
func (l *StageLogger) LogStage() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.axesLogged {
		if err := l.stream.Log(RootEntity, take.ViewCoordinates{Up: l.st.UpAxis()}); err != nil {
			return err
		}
		l.axesLogged = true
	}

	current := make(map[stage.Path]bool, len(l.present))

	for _, path := range l.overlay.Covered() {
		current[path] = true
		pose, ok := l.overlay.LivePose(path)
		if !ok {
			continue
		}
		if err := l.logTransform(path, poseTransform(pose), OriginLive); err != nil {
			return err
		}
	}

	var sweepErr error
	l.walker.Walk(func(rec Record) bool {
		current[rec.Path] = true
		if err := l.logRecord(rec); err != nil {
			sweepErr = err
			return stage.Break
		}
		return stage.Continue
	})
	if sweepErr != nil {
		return sweepErr
	}

	// Entities whose prims vanished since the last sweep get a flat clear
	// and drop out of the caches, so a reappearing prim logs fresh.
	for path := range l.present {
		if current[path] {
			continue
		}
		if err := l.stream.Log(string(path), take.Clear{}); err != nil {
			return err
		}
		delete(l.last, path)
		delete(l.meshLogged, path)
		l.logger.Debug("cleared vanished entity", zap.String("path", string(path)))
	}
	l.present = current
	return nil
}

// logTransform logs a transform row unless the change cache holds an equal
// one for the entity.
func (l *StageLogger) logTransform(path stage.Path, tr take.Transform3D, origin PoseOrigin) error {
	key := transformKey(tr)
	if last, seen := l.last[path]; seen && last == key {
		return nil
	}
	if err := l.stream.Log(string(path), tr); err != nil {
		return err
	}
	l.last[path] = key
	l.logger.Debug("logged transform",
		zap.String("path", string(path)),
		zap.String("origin", origin.String()))
	return nil
}

// logRecord logs one prim visit: its transform when changed, its geometry
// the first time.
func (l *StageLogger) logRecord(rec Record) error {
	if tr, origin, ok := l.overlay.Resolve(rec); ok {
		if err := l.logTransform(rec.Path, tr, origin); err != nil {
			return err
		}
	}

	if !rec.Prim.IsGprim() || l.meshLogged[rec.Path] {
		return nil
	}
	// One attempt per entity either way, so a broken gprim does not spam
	// a glitch per sweep.
	l.meshLogged[rec.Path] = true

	arch, err := geometryArchetype(rec, l.resolver)
	if err != nil {
		return recordFlicker(l.glitches, l.logger, glitch.NewFlicker("geometry", "geometry extraction failed", glitch.Context{
			"path":  string(rec.Path),
			"error": err.Error(),
		}))
	}
	if arch == nil {
		return nil
	}
	if err := l.stream.Log(string(rec.Path), arch); err != nil {
		return err
	}
	l.logger.Debug("logged geometry", zap.String("path", string(rec.Path)))
	return nil
}

// recordFlicker records a recoverable defect on a handler and turns it into
// a dropout once the policy budget is exhausted.
func recordFlicker(h *glitch.Handler, logger *zap.Logger, g *glitch.Glitch) error {
	h.Record(g)
	logger.Warn(g.Message, zap.String("kind", g.Kind), zap.Any("context", g.Context))
	if h.ShouldContinue() {
		return nil
	}
	stop := glitch.NewDropout(g.Kind, "recoverable defect budget exhausted, aborting sweep", glitch.Context{
		"flickers": len(h.GetFlickers()),
	})
	h.Record(stop)
	return stop
}

// Stop flushes the stream and clears the incremental caches. The next sweep
// logs everything fresh, including the up axis.
func (l *StageLogger) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.axesLogged = false
	l.last = make(map[stage.Path]loggedTransform)
	l.meshLogged = make(map[stage.Path]bool)
	l.present = make(map[stage.Path]bool)
	return l.stream.Flush()
}
