package dolly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/dolly/stage"
)

// buildWalkerStage defines a small hierarchy with a guide helper and a
// referenced prototype, the traversal cases the walker has to handle.
func buildWalkerStage(t *testing.T) *stage.Stage {
	t.Helper()
	st := stage.NewStage()

	_, err := st.Define("/World", stage.TypeXform)
	require.NoError(t, err)
	_, err = st.Define("/World/Arm", stage.TypeXform)
	require.NoError(t, err)
	_, err = st.Define("/World/Arm/Geo", stage.TypeCube)
	require.NoError(t, err)
	_, err = st.Define("/World/Ball", stage.TypeSphere)
	require.NoError(t, err)

	grid, err := st.Define("/World/DebugGrid", stage.TypeMesh)
	require.NoError(t, err)
	grid.CreateAttribute(stage.AttrPurpose, stage.PurposeGuide)
	_, err = st.Define("/World/DebugGrid/Label", stage.TypeXform)
	require.NoError(t, err)

	return st
}

func walkPaths(w *Walker) []string {
	var paths []string
	w.Walk(func(rec Record) bool {
		paths = append(paths, string(rec.Path))
		return stage.Continue
	})
	return paths
}

// TestWalker_DepthFirstOrder tests traversal order and the guide skip
func TestWalker_DepthFirstOrder(t *testing.T) {
	st := buildWalkerStage(t)
	w, err := NewWalker(st, WalkerConfig{})
	require.NoError(t, err)

	// The guide itself is skipped, its child is not
	assert.Equal(t, []string{
		"/World",
		"/World/Arm",
		"/World/Arm/Geo",
		"/World/Ball",
		"/World/DebugGrid/Label",
	}, walkPaths(w))
}

// TestWalker_VisitGuides tests opting back into guide helper geometry
func TestWalker_VisitGuides(t *testing.T) {
	st := buildWalkerStage(t)
	w, err := NewWalker(st, WalkerConfig{VisitGuides: true})
	require.NoError(t, err)

	assert.Contains(t, walkPaths(w), "/World/DebugGrid")
}

// TestWalker_Filters tests include and exclude patterns
func TestWalker_Filters(t *testing.T) {
	st := buildWalkerStage(t)

	w, err := NewWalker(st, WalkerConfig{Include: []string{"/World/Arm*"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"/World/Arm", "/World/Arm/Geo"}, walkPaths(w))

	// An exclusion beats any inclusion
	w, err = NewWalker(st, WalkerConfig{
		Include: []string{"/World/Arm*"},
		Exclude: []string{"*/Geo"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/World/Arm"}, walkPaths(w))

	assert.True(t, w.Matches("/World/Arm"))
	assert.False(t, w.Matches("/World/Arm/Geo"))
	assert.False(t, w.Matches("/World/Ball"))
}

// TestWalker_BadPattern tests pattern compile errors
func TestWalker_BadPattern(t *testing.T) {
	st := stage.NewStage()
	_, err := NewWalker(st, WalkerConfig{Include: []string{"/World/["}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include pattern")

	_, err = NewWalker(st, WalkerConfig{Exclude: []string{"/World/["}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exclude pattern")
}

// TestWalker_InstanceProxies tests that referenced prototypes are visited
// under the instance path
func TestWalker_InstanceProxies(t *testing.T) {
	st := stage.NewStage()
	proto, err := st.Define("/Prototypes/Crate", stage.TypeXform)
	require.NoError(t, err)
	proto.SetAbstract(true)
	_, err = st.Define("/Prototypes/Crate/Geo", stage.TypeCube)
	require.NoError(t, err)

	crate, err := st.Define("/World/Crate01", stage.TypeXform)
	require.NoError(t, err)
	crate.SetReference("/Prototypes/Crate")
	crate.SetInstanceable(true)

	w, err := NewWalker(st, WalkerConfig{})
	require.NoError(t, err)

	var proxies []Record
	w.Walk(func(rec Record) bool {
		if rec.IsInstanceProxy() {
			proxies = append(proxies, rec)
		}
		return stage.Continue
	})

	require.Len(t, proxies, 1)
	assert.Equal(t, stage.Path("/World/Crate01/Geo"), proxies[0].Path)
	assert.Equal(t, stage.Path("/Prototypes/Crate/Geo"), proxies[0].Prim.Path())
}

// TestWalker_Break tests stopping a walk early
func TestWalker_Break(t *testing.T) {
	st := buildWalkerStage(t)
	w, err := NewWalker(st, WalkerConfig{})
	require.NoError(t, err)

	visits := 0
	w.Walk(func(rec Record) bool {
		visits++
		return stage.Break
	})
	assert.Equal(t, 1, visits)
}
