package dolly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/dolly/rig"
	"github.com/teranos/dolly/stage"
)

func primRecord(t *testing.T, st *stage.Stage, path stage.Path) Record {
	t.Helper()
	prim := st.GetPrimAtPath(path)
	require.NotNil(t, prim)
	return Record{Path: path, Prim: prim}
}

// TestPoseOverlay_ResolveAuthored tests the stage fallback
func TestPoseOverlay_ResolveAuthored(t *testing.T) {
	st := stage.NewStage()
	box, err := st.Define("/World/Box", stage.TypeCube)
	require.NoError(t, err)
	box.SetTranslate(1, 2, 3)
	_, err = st.Define("/World/Notes", stage.TypeScope)
	require.NoError(t, err)

	o := NewPoseOverlay()

	tr, origin, ok := o.Resolve(primRecord(t, st, "/World/Box"))
	require.True(t, ok)
	assert.Equal(t, OriginStage, origin)
	assert.Equal(t, [3]float64{1, 2, 3}, tr.Translation)
	require.NotNil(t, tr.Scale, "authored transforms carry scale")
	assert.Equal(t, [3]float64{1, 1, 1}, *tr.Scale)

	// Scopes carry no transform at all
	_, _, ok = o.Resolve(primRecord(t, st, "/World/Notes"))
	assert.False(t, ok)
}

// TestPoseOverlay_SourceRigidBodyGate tests that the query source applies
// only to rigid-body prims, with no authored fallback on a miss
func TestPoseOverlay_SourceRigidBodyGate(t *testing.T) {
	st := stage.NewStage()
	body, err := st.Define("/World/Body", stage.TypeCube)
	require.NoError(t, err)
	body.SetTranslate(9, 9, 9)
	body.AddAPISchema(rig.APIRigidBody)

	prop, err := st.Define("/World/Prop", stage.TypeCube)
	require.NoError(t, err)
	prop.SetTranslate(4, 4, 4)

	o := NewPoseOverlay()
	o.SetSource(rig.MapPoseSource{
		"/World/Body": rig.PoseFromArray([7]float64{0, 0, 5, 1, 0, 0, 0}),
		"/World/Prop": rig.PoseFromArray([7]float64{0, 0, 7, 1, 0, 0, 0}),
	})

	// Rigid body: live pose wins, scale drops
	tr, origin, ok := o.Resolve(primRecord(t, st, "/World/Body"))
	require.True(t, ok)
	assert.Equal(t, OriginLive, origin)
	assert.Equal(t, [3]float64{0, 0, 5}, tr.Translation)
	assert.Nil(t, tr.Scale)

	// Not a rigid body: the source is never consulted
	tr, origin, ok = o.Resolve(primRecord(t, st, "/World/Prop"))
	require.True(t, ok)
	assert.Equal(t, OriginStage, origin)
	assert.Equal(t, [3]float64{4, 4, 4}, tr.Translation)

	// Rigid body the source misses resolves to nothing, not to the
	// stale authored transform
	o.SetSource(rig.MapPoseSource{})
	_, origin, ok = o.Resolve(primRecord(t, st, "/World/Body"))
	assert.False(t, ok)
	assert.Equal(t, OriginLive, origin)

	// Detaching the source restores the authored transform
	o.SetSource(nil)
	tr, origin, ok = o.Resolve(primRecord(t, st, "/World/Body"))
	require.True(t, ok)
	assert.Equal(t, OriginStage, origin)
	assert.Equal(t, [3]float64{9, 9, 9}, tr.Translation)
}

// TestPoseOverlay_Refresh tests scene coverage and change detection
func TestPoseOverlay_Refresh(t *testing.T) {
	scene, arm := newPendulumScene(t)
	o := NewPoseOverlay()

	covered, changed, err := o.Refresh(scene, nil)
	require.NoError(t, err)
	assert.Equal(t, []stage.Path{
		"/World/envs/env_0/Pendulum/base",
		"/World/envs/env_0/Pendulum/bob",
		"/World/envs/env_1/Pendulum/base",
		"/World/envs/env_1/Pendulum/bob",
	}, covered)
	assert.Len(t, changed, 4, "first refresh reports everything as changed")

	// Unchanged poses drop out of the delta
	_, changed, err = o.Refresh(scene, nil)
	require.NoError(t, err)
	assert.Empty(t, changed)

	arm.poses[1][0] = rig.PoseFromArray([7]float64{3, 1, 2, 1, 0, 0, 0})
	_, changed, err = o.Refresh(scene, nil)
	require.NoError(t, err)
	require.Len(t, changed, 1)
	pose, ok := changed["/World/envs/env_1/Pendulum/base"]
	require.True(t, ok)
	assert.Equal(t, [7]float64{3, 1, 2, 1, 0, 0, 0}, pose.Array())

	// Selecting one env narrows the coverage
	covered, _, err = o.Refresh(scene, []int{1})
	require.NoError(t, err)
	assert.Equal(t, []stage.Path{
		"/World/envs/env_1/Pendulum/base",
		"/World/envs/env_1/Pendulum/bob",
	}, covered)
	assert.Equal(t, covered, o.Covered())

	_, _, err = o.Refresh(scene, []int{7})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

// TestPoseOverlay_RefreshPrecedence tests that refresh coverage beats both
// the authored transform and the rigid-body gate
func TestPoseOverlay_RefreshPrecedence(t *testing.T) {
	scene, _ := newPendulumScene(t)
	st := scene.Stage()

	// Give one body a stage prim with a conflicting authored transform
	// and no rigid-body schema; the refresh pose must still win.
	bob, err := st.Define("/World/envs/env_0/Pendulum/bob", stage.TypeSphere)
	require.NoError(t, err)
	bob.SetTranslate(-100, 0, 0)

	o := NewPoseOverlay()
	_, _, err = o.Refresh(scene, nil)
	require.NoError(t, err)

	tr, origin, ok := o.Resolve(primRecord(t, st, "/World/envs/env_0/Pendulum/bob"))
	require.True(t, ok)
	assert.Equal(t, OriginLive, origin)
	assert.Equal(t, [3]float64{0, 0, 1}, tr.Translation)

	assert.True(t, o.Covers("/World/envs/env_0/Pendulum/bob"))
	assert.False(t, o.Covers("/World/envs/env_0/Pendulum"))
}
