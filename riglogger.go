package dolly

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/teranos/dolly/glitch"
	"github.com/teranos/dolly/rig"
	"github.com/teranos/dolly/shade"
	"github.com/teranos/dolly/stage"
	"github.com/teranos/dolly/take"
)

// RigLoggerConfig configures a RigLogger.
type RigLoggerConfig struct {
	// LoggedEnvs selects the environment copies to record. Nil records
	// all of them.
	LoggedEnvs []int
	// SavePath, when the stream argument is nil, records to a fresh
	// file-backed stream at this path. See take.Resolve for the full
	// resolution order.
	SavePath string
	// AppID names the recording when a stream is created here. Defaults
	// to "rig".
	AppID string
	// Logger receives capture diagnostics. Defaults to a nop logger.
	Logger *zap.Logger
	// Glitches collects recoverable defects. Defaults to a fresh handler
	// with the default policy.
	Glitches *glitch.Handler
	// Resolver resolves surface shading for the structure pass. Defaults
	// to a resolver on the scene's stage sharing Logger and Glitches.
	Resolver *shade.Resolver
}

// DefaultRigLoggerConfig returns the config used when fields are left zero.
func DefaultRigLoggerConfig() RigLoggerConfig {
	return RigLoggerConfig{
		AppID:    "rig",
		Logger:   zap.NewNop(),
		Glitches: glitch.NewHandler("rig_logger", nil),
	}
}

// RigLogger streams an articulated scene into a take. Where StageLogger
// sweeps a whole stage every call, RigLogger trusts the scene's reporting:
// the stage structure under each tracked environment root is logged once,
// and every later LogScene call logs only the body world poses that moved.
type RigLogger struct {
	scene    rig.Scene
	stream   *take.Stream
	resolver *shade.Resolver
	logger   *zap.Logger
	glitches *glitch.Handler
	envs     []int

	mu         sync.Mutex
	structured bool
	last       map[stage.Path]rig.Pose
}

// NewRigLogger creates a logger recording scene into stream. A nil stream is
// resolved through take.Resolve, same as NewStageLogger.
func NewRigLogger(scene rig.Scene, stream *take.Stream, cfg RigLoggerConfig) (*RigLogger, error) {
	def := DefaultRigLoggerConfig()
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
		cfg.Resolver = shade.NewResolver(scene.Stage(), rcfg)
	}

	envs := cfg.LoggedEnvs
	if envs == nil {
		envs = make([]int, scene.NumEnvs())
		for i := range envs {
			envs[i] = i
		}
	}
	for _, env := range envs {
		if env < 0 || env >= scene.NumEnvs() {
			return nil, fmt.Errorf("logged env %d out of range, scene has %d envs", env, scene.NumEnvs())
		}
	}

	stream, err := take.Resolve(stream, cfg.SavePath, cfg.AppID, take.WithLogger(cfg.Logger))
	if err != nil {
		return nil, err
	}

	return &RigLogger{
		scene:    scene,
		stream:   stream,
		resolver: cfg.Resolver,
		logger:   cfg.Logger,
		glitches: cfg.Glitches,
		envs:     envs,
		last:     make(map[stage.Path]rig.Pose),
	}, nil
}

// Glitches returns the handler collecting this logger's defects.
func (l *RigLogger) Glitches() *glitch.Handler { return l.glitches }

// Stream returns the take stream the logger writes to.
func (l *RigLogger) Stream() *take.Stream { return l.stream }

// LoggedEnvs returns the environment indices the logger records.
func (l *RigLogger) LoggedEnvs() []int { return l.envs }

// LogScene records the scene once. The first call also logs the up axis and
// the stage structure under every tracked environment root; later calls log
// only the body poses that changed since the previous call. A missing root
// prim degrades to a flicker, the body poses still log.
func (l *RigLogger) LogScene() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.structured {
		if err := l.logStructure(); err != nil {
			return err
		}
		l.structured = true
	}
	return l.logBodyPoses()
}

// logStructure logs the authored transforms and geometry under each tracked
// articulation root. Transforms below the body level are assumed static, so
// one pass suffices.
func (l *RigLogger) logStructure() error {
	st := l.scene.Stage()
	if err := l.stream.Log(RootEntity, take.ViewCoordinates{Up: st.UpAxis()}); err != nil {
		return err
	}

	var roots []stage.Path
	for _, art := range l.scene.Articulations() {
		for _, env := range l.envs {
			root := rig.ResolveEnvPath(art.PrimPath(), env)
			if st.GetPrimAtPath(root) == nil {
				err := recordFlicker(l.glitches, l.logger, glitch.NewFlicker("stage", "articulation root not on stage", glitch.Context{
					"articulation": art.Name(),
					"path":         string(root),
				}))
				if err != nil {
					return err
				}
				continue
			}
			roots = append(roots, root)
		}
	}
	if len(roots) == 0 {
		return nil
	}

	var sweepErr error
	st.Walk(func(path stage.Path, prim *stage.Prim) bool {
		if prim.Purpose() == stage.PurposeGuide {
			return stage.Continue
		}
		if !underAny(path, roots) {
			return stage.Continue
		}
		if err := l.logPrim(Record{Path: path, Prim: prim}); err != nil {
			sweepErr = err
			return stage.Break
		}
		return stage.Continue
	})
	return sweepErr
}

// logPrim logs one structure prim: its authored transform, then its geometry.
func (l *RigLogger) logPrim(rec Record) error {
	if tr, ok := authoredTransform(rec); ok {
		if err := l.stream.Log(string(rec.Path), tr); err != nil {
			return err
		}
	}
	if !rec.Prim.IsGprim() {
		return nil
	}
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
	return l.stream.Log(string(rec.Path), arch)
}

// logBodyPoses logs the world poses that changed since the previous call.
// A body's entity path is its articulation root plus the body name, and the
// quaternion is reordered (x, y, z, w) on output.
func (l *RigLogger) logBodyPoses() error {
	for _, art := range l.scene.Articulations() {
		poses := art.BodyPoses()
		names := art.BodyNames()
		for _, env := range l.envs {
			if env >= len(poses) {
				err := recordFlicker(l.glitches, l.logger, glitch.NewFlicker("transform", "pose report misses env", glitch.Context{
					"articulation": art.Name(),
					"env":          env,
					"reported":     len(poses),
				}))
				if err != nil {
					return err
				}
				continue
			}
			row := poses[env]
			root := rig.ResolveEnvPath(art.PrimPath(), env)
			for i, name := range names {
				if i >= len(row) {
					err := recordFlicker(l.glitches, l.logger, glitch.NewFlicker("transform", "pose report misses body", glitch.Context{
						"articulation": art.Name(),
						"env":          env,
						"body":         name,
					}))
					if err != nil {
						return err
					}
					break
				}
				path := root.AppendChild(name)
				pose := row[i]
				if last, seen := l.last[path]; seen && last.Equal(pose) {
					continue
				}
				if err := l.stream.Log(string(path), poseTransform(pose)); err != nil {
					return err
				}
				l.last[path] = pose
			}
		}
	}
	return nil
}

// Stop flushes the stream and clears the caches. The next LogScene logs the
// structure fresh and every body pose again.
func (l *RigLogger) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.structured = false
	l.last = make(map[stage.Path]rig.Pose)
	return l.stream.Flush()
}

// underAny reports whether path sits at or below one of the roots.
func underAny(path stage.Path, roots []stage.Path) bool {
	for _, root := range roots {
		if path.HasPrefix(root) {
			return true
		}
	}
	return false
}
