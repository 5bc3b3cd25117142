// Package rig describes the live-simulation surface dolly records from: a
// scene of articulated assets stepping under a physics clock, reporting
// world-space body poses per environment.
//
// The package is interface-first so any simulator binding can feed the
// loggers; tests and examples use small scripted implementations.
package rig

import (
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/teranos/dolly/stage"
)

// EnvPlaceholder marks the environment index slot in articulation prim path
// expressions, e.g. "/World/envs/env_.*/Robot".
const EnvPlaceholder = ".*"

// APIRigidBody is the schema name physics-driven prims carry. Prims with
// this schema get their poses from the simulation rather than the stage.
const APIRigidBody = "PhysicsRigidBodyAPI"

// ResolveEnvPath substitutes an environment index into a prim path
// expression. Expressions without a placeholder resolve to themselves.
func ResolveEnvPath(expr string, env int) stage.Path {
	return stage.Path(strings.Replace(expr, EnvPlaceholder, strconv.Itoa(env), 1))
}

// Pose is a world-space rigid transform. Rotation is kept as a quaternion in
// (w, x, y, z) storage order; the loggers reorder to (x, y, z, w) on output.
type Pose struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// PoseFromArray builds a pose from the 7-float layout simulators report:
// position in [0:3], quaternion (w, x, y, z) in [3:7].
func PoseFromArray(a [7]float64) Pose {
	return Pose{
		Position: mgl64.Vec3{a[0], a[1], a[2]},
		Rotation: mgl64.Quat{W: a[3], V: mgl64.Vec3{a[4], a[5], a[6]}},
	}
}

// Array returns the pose in the 7-float simulator layout.
func (p Pose) Array() [7]float64 {
	return [7]float64{
		p.Position.X(), p.Position.Y(), p.Position.Z(),
		p.Rotation.W, p.Rotation.X(), p.Rotation.Y(), p.Rotation.Z(),
	}
}

// QuaternionXYZW returns the rotation reordered for logging.
func (p Pose) QuaternionXYZW() [4]float64 {
	return [4]float64{p.Rotation.X(), p.Rotation.Y(), p.Rotation.Z(), p.Rotation.W}
}

// Equal reports exact equality with another pose. Change detection is exact
// on purpose: a pose either moved or it didn't, and re-logging an identical
// pose only bloats the take.
func (p Pose) Equal(q Pose) bool {
	return p.Position == q.Position &&
		p.Rotation.W == q.Rotation.W && p.Rotation.V == q.Rotation.V
}

// Articulation is one articulated asset in a scene: a root prim path
// expression and named rigid bodies reporting live world poses.
type Articulation interface {
	// Name identifies the articulation within its scene.
	Name() string
	// PrimPath returns the root prim path expression, with EnvPlaceholder
	// standing in for the environment index in multi-env scenes.
	PrimPath() string
	// BodyNames lists the rigid bodies in pose-report order.
	BodyNames() []string
	// BodyPoses reports current world poses indexed [env][body].
	BodyPoses() [][]Pose
}

// Scene is a running simulation the loggers can record: a stage describing
// structure, plus articulations reporting live state.
type Scene interface {
	// Stage returns the scene description the simulation was built from.
	Stage() *stage.Stage
	// NumEnvs returns the number of parallel environment copies.
	NumEnvs() int
	// PhysicsDT returns the physics step length in seconds.
	PhysicsDT() float64
	// Articulations lists the scene's articulated assets.
	Articulations() []Articulation
}

// PoseSource supplies world-space poses for individual prims, the shape a
// rigid-body physics engine exposes. Lookups that return false leave the
// prim's authored transform in force.
type PoseSource interface {
	WorldPose(path stage.Path) (Pose, bool)
}

// MapPoseSource is a PoseSource backed by a plain map, handy for tests and
// scripted feeds.
type MapPoseSource map[stage.Path]Pose

// WorldPose implements PoseSource.
func (m MapPoseSource) WorldPose(path stage.Path) (Pose, bool) {
	p, ok := m[path]
	return p, ok
}
