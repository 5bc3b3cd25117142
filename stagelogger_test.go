package dolly

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/dolly/rig"
	"github.com/teranos/dolly/stage"
	"github.com/teranos/dolly/take"
)

func newLoggerStage(t *testing.T) *stage.Stage {
	t.Helper()
	st := stage.NewStage()
	world, err := st.Define("/World", stage.TypeXform)
	require.NoError(t, err)
	world.SetTranslate(0, 0, 0)
	crate, err := st.Define("/World/Crate", stage.TypeCube)
	require.NoError(t, err)
	crate.SetTranslate(0, 0, 1)
	_, err = st.Define("/World/Ball", stage.TypeSphere)
	require.NoError(t, err)
	return st
}

func newTestLogger(t *testing.T, st *stage.Stage, cfg StageLoggerConfig) (*StageLogger, *take.MemorySink) {
	t.Helper()
	sink := take.NewMemorySink()
	stream := take.NewStream("test", take.WithSink(sink))
	l, err := NewStageLogger(st, stream, cfg)
	require.NoError(t, err)
	return l, sink
}

// TestStageLogger_FirstSweep tests that one sweep logs the up axis,
// transforms, and geometry
func TestStageLogger_FirstSweep(t *testing.T) {
	st := newLoggerStage(t)
	l, sink := newTestLogger(t, st, StageLoggerConfig{})

	require.NoError(t, l.LogStage())

	row, ok := sink.LastFor(RootEntity, take.KindViewCoordinates)
	require.True(t, ok)
	assert.Equal(t, "Z", row.Data.(take.ViewCoordinates).Up)

	assert.Equal(t, 1, sink.CountKind(take.KindBoxes3D))
	assert.Equal(t, 1, sink.CountKind(take.KindEllipsoids3D))

	row, ok = sink.LastFor("/World/Crate", take.KindTransform3D)
	require.True(t, ok)
	assert.Equal(t, [3]float64{0, 0, 1}, row.Data.(take.Transform3D).Translation)
}

// TestStageLogger_IncrementalSweeps tests change detection across sweeps
func TestStageLogger_IncrementalSweeps(t *testing.T) {
	st := newLoggerStage(t)
	l, sink := newTestLogger(t, st, StageLoggerConfig{})

	require.NoError(t, l.LogStage())
	first := sink.Len()

	// Nothing moved, nothing logs
	require.NoError(t, l.LogStage())
	assert.Equal(t, first, sink.Len())

	// One prim moved, exactly one row logs
	st.GetPrimAtPath("/World/Crate").SetTranslate(5, 0, 1)
	require.NoError(t, l.LogStage())
	assert.Equal(t, first+1, sink.Len())
	row, _ := sink.LastFor("/World/Crate", take.KindTransform3D)
	assert.Equal(t, [3]float64{5, 0, 1}, row.Data.(take.Transform3D).Translation)

	// Geometry stays logged-once
	assert.Equal(t, 1, sink.CountKind(take.KindBoxes3D))
}

// TestStageLogger_ClearsVanished tests the clear-and-relog cycle for
// removed prims
func TestStageLogger_ClearsVanished(t *testing.T) {
	st := newLoggerStage(t)
	l, sink := newTestLogger(t, st, StageLoggerConfig{})
	require.NoError(t, l.LogStage())

	require.True(t, st.RemovePrim("/World/Ball"))
	require.NoError(t, l.LogStage())

	row, ok := sink.LastFor("/World/Ball", take.KindClear)
	require.True(t, ok)
	assert.False(t, row.Data.(take.Clear).Recursive)

	// A reappearing prim logs fresh, geometry included
	_, err := st.Define("/World/Ball", stage.TypeSphere)
	require.NoError(t, err)
	require.NoError(t, l.LogStage())
	assert.Equal(t, 2, sink.CountKind(take.KindEllipsoids3D))
}

// TestStageLogger_LivePrecedence tests rigid-body prims taking their pose
// from the attached source
func TestStageLogger_LivePrecedence(t *testing.T) {
	st := newLoggerStage(t)
	st.GetPrimAtPath("/World/Crate").AddAPISchema(rig.APIRigidBody)
	l, sink := newTestLogger(t, st, StageLoggerConfig{})

	l.SetPoseSource(rig.MapPoseSource{
		"/World/Crate": rig.PoseFromArray([7]float64{0, 2, 4, 1, 0, 0, 0}),
	})
	require.NoError(t, l.LogStage())

	rows := sink.RowsFor("/World/Crate")
	var transforms []take.Transform3D
	for _, row := range rows {
		if row.Kind == take.KindTransform3D {
			transforms = append(transforms, row.Data.(take.Transform3D))
		}
	}
	require.Len(t, transforms, 1, "a covered path never logs its static transform")
	assert.Equal(t, [3]float64{0, 2, 4}, transforms[0].Translation)
	assert.Nil(t, transforms[0].Scale)

	// Geometry still comes from the stage
	assert.Equal(t, 1, sink.CountKind(take.KindBoxes3D))
}

// TestStageLogger_RefreshCoverage tests overlay-refreshed bodies logging
// ahead of the walk, stage prim or not
func TestStageLogger_RefreshCoverage(t *testing.T) {
	scene, arm := newPendulumScene(t)
	l, sink := newTestLogger(t, scene.Stage(), StageLoggerConfig{})

	_, _, err := l.Overlay().Refresh(scene, nil)
	require.NoError(t, err)
	require.NoError(t, l.LogStage())

	// Bodies have no stage prims yet still log their live poses
	row, ok := sink.LastFor("/World/envs/env_0/Pendulum/bob", take.KindTransform3D)
	require.True(t, ok)
	assert.Equal(t, [3]float64{0, 0, 1}, row.Data.(take.Transform3D).Translation)

	// Steady state logs nothing new
	_, _, err = l.Overlay().Refresh(scene, nil)
	require.NoError(t, err)
	before := sink.Len()
	require.NoError(t, l.LogStage())
	assert.Equal(t, before, sink.Len())

	// A moved body logs exactly once more
	arm.poses[0][1] = rig.PoseFromArray([7]float64{0, 0, 0.5, 1, 0, 0, 0})
	_, _, err = l.Overlay().Refresh(scene, nil)
	require.NoError(t, err)
	require.NoError(t, l.LogStage())
	assert.Equal(t, before+1, sink.Len())

	// Coverage that shrinks gets cleared like a vanished prim
	_, _, err = l.Overlay().Refresh(scene, []int{1})
	require.NoError(t, err)
	require.NoError(t, l.LogStage())
	_, ok = sink.LastFor("/World/envs/env_0/Pendulum/bob", take.KindClear)
	assert.True(t, ok)
}

// TestStageLogger_GeometryGlitch tests that a broken gprim degrades to a
// flicker and is attempted once
func TestStageLogger_GeometryGlitch(t *testing.T) {
	st := stage.NewStage()
	// A mesh without points fails extraction
	_, err := st.Define("/World/Broken", stage.TypeMesh)
	require.NoError(t, err)
	_, err = st.Define("/World/Crate", stage.TypeCube)
	require.NoError(t, err)

	l, sink := newTestLogger(t, st, StageLoggerConfig{})
	require.NoError(t, l.LogStage())

	assert.True(t, l.Glitches().HasFlickers())
	assert.Equal(t, 0, sink.CountKind(take.KindMesh3D))
	// The rest of the sweep still happened
	assert.Equal(t, 1, sink.CountKind(take.KindBoxes3D))

	flickers := len(l.Glitches().GetFlickers())
	require.NoError(t, l.LogStage())
	assert.Equal(t, flickers, len(l.Glitches().GetFlickers()), "one attempt per entity")
}

// TestStageLogger_StreamResolution tests nil-stream resolution through save
// paths and the package default
func TestStageLogger_StreamResolution(t *testing.T) {
	st := newLoggerStage(t)

	// Nothing to resolve against
	take.SetDefault(nil)
	_, err := NewStageLogger(st, nil, StageLoggerConfig{})
	assert.ErrorIs(t, err, take.ErrNoStream)

	// A save path creates a file-backed stream
	path := filepath.Join(t.TempDir(), "takes", "crate.jsonl")
	l, err := NewStageLogger(st, nil, StageLoggerConfig{SavePath: path})
	require.NoError(t, err)
	assert.Equal(t, "stage", l.Stream().ApplicationID())
	require.NoError(t, l.LogStage())
	require.NoError(t, l.Stream().Close())
	_, err = os.Stat(path)
	require.NoError(t, err)

	// The package default is the last resort
	def := take.Init("suite")
	t.Cleanup(func() { take.SetDefault(nil) })
	l, err = NewStageLogger(st, nil, StageLoggerConfig{})
	require.NoError(t, err)
	assert.Same(t, def, l.Stream())
}

// TestStageLogger_Stop tests that stopping drops the caches
func TestStageLogger_Stop(t *testing.T) {
	st := newLoggerStage(t)
	l, sink := newTestLogger(t, st, StageLoggerConfig{})

	require.NoError(t, l.LogStage())
	first := sink.Len()

	require.NoError(t, l.Stop())
	require.NoError(t, l.LogStage())
	assert.Equal(t, first*2, sink.Len(), "a stopped logger sweeps fresh")
	assert.Equal(t, 2, sink.CountKind(take.KindViewCoordinates))
}
