package rig

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"

	"github.com/teranos/dolly/stage"
)

// TestResolveEnvPath tests environment placeholder substitution
func TestResolveEnvPath(t *testing.T) {
	assert.Equal(t, stage.Path("/World/envs/env_0/Robot"),
		ResolveEnvPath("/World/envs/env_.*/Robot", 0))
	assert.Equal(t, stage.Path("/World/envs/env_12/Robot"),
		ResolveEnvPath("/World/envs/env_.*/Robot", 12))

	// No placeholder resolves to itself
	assert.Equal(t, stage.Path("/World/Robot"), ResolveEnvPath("/World/Robot", 3))
}

// TestPose_ArrayLayout tests the 7-float simulator layout round trip
func TestPose_ArrayLayout(t *testing.T) {
	arr := [7]float64{1, 2, 3, 0.5, 0.5, -0.5, 0.5}
	p := PoseFromArray(arr)

	assert.Equal(t, mgl64.Vec3{1, 2, 3}, p.Position)
	assert.Equal(t, 0.5, p.Rotation.W)
	assert.Equal(t, mgl64.Vec3{0.5, -0.5, 0.5}, p.Rotation.V)
	assert.Equal(t, arr, p.Array())

	// Logging order swings the scalar to the back
	assert.Equal(t, [4]float64{0.5, -0.5, 0.5, 0.5}, p.QuaternionXYZW())
}

// TestPose_Equal tests exact change detection
func TestPose_Equal(t *testing.T) {
	a := PoseFromArray([7]float64{1, 2, 3, 1, 0, 0, 0})
	b := PoseFromArray([7]float64{1, 2, 3, 1, 0, 0, 0})
	c := PoseFromArray([7]float64{1, 2, 3.0000001, 1, 0, 0, 0})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

// TestMapPoseSource tests the map-backed pose source
func TestMapPoseSource(t *testing.T) {
	src := MapPoseSource{
		"/World/Box": PoseFromArray([7]float64{0, 0, 1, 1, 0, 0, 0}),
	}

	p, ok := src.WorldPose("/World/Box")
	assert.True(t, ok)
	assert.Equal(t, mgl64.Vec3{0, 0, 1}, p.Position)

	_, ok = src.WorldPose("/World/Other")
	assert.False(t, ok)
}
