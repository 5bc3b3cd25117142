package stage

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func transformPoint(m mgl64.Mat4, p mgl64.Vec3) mgl64.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// TestLocalTransform_Defaults tests transforms of unauthored prims
func TestLocalTransform_Defaults(t *testing.T) {
	st := NewStage()
	xform, err := st.Define("/World", TypeXform)
	require.NoError(t, err)

	m, ok := xform.LocalTransform()
	assert.True(t, ok)
	assert.Equal(t, mgl64.Ident4(), m)

	// Scopes are not xformable
	scope, err := st.Define("/Scope", TypeScope)
	require.NoError(t, err)
	_, ok = scope.LocalTransform()
	assert.False(t, ok)
}

// TestLocalTransform_Translate tests a single translate op
func TestLocalTransform_Translate(t *testing.T) {
	st := NewStage()
	prim, err := st.Define("/World/Box", TypeCube)
	require.NoError(t, err)
	prim.SetTranslate(10, -2, 3)

	m, ok := prim.LocalTransform()
	require.True(t, ok)

	p := transformPoint(m, mgl64.Vec3{0, 0, 0})
	assert.InDelta(t, 10, p.X(), eps)
	assert.InDelta(t, -2, p.Y(), eps)
	assert.InDelta(t, 3, p.Z(), eps)
}

// TestLocalTransform_OpOrder tests that listed order composes outermost first
func TestLocalTransform_OpOrder(t *testing.T) {
	st := NewStage()
	prim, err := st.Define("/World/Box", TypeXform)
	require.NoError(t, err)
	prim.SetTranslate(10, 0, 0)
	prim.SetScale(2, 2, 2)

	m, ok := prim.LocalTransform()
	require.True(t, ok)

	// [translate, scale] means points scale first, then translate
	p := transformPoint(m, mgl64.Vec3{1, 1, 1})
	assert.InDelta(t, 12, p.X(), eps)
	assert.InDelta(t, 2, p.Y(), eps)
	assert.InDelta(t, 2, p.Z(), eps)
}

// TestLocalTransform_Orient tests quaternion orientation ops
func TestLocalTransform_Orient(t *testing.T) {
	st := NewStage()
	prim, err := st.Define("/World/Box", TypeXform)
	require.NoError(t, err)

	// 90 degrees about Z
	h := math.Sqrt2 / 2
	prim.SetOrient(h, 0, 0, h)

	m, ok := prim.LocalTransform()
	require.True(t, ok)

	p := transformPoint(m, mgl64.Vec3{1, 0, 0})
	assert.InDelta(t, 0, p.X(), eps)
	assert.InDelta(t, 1, p.Y(), eps)
	assert.InDelta(t, 0, p.Z(), eps)
}

// TestLocalTransform_RotateDegrees tests the degree-valued rotate ops
func TestLocalTransform_RotateDegrees(t *testing.T) {
	st := NewStage()
	prim, err := st.Define("/World/Box", TypeXform)
	require.NoError(t, err)
	prim.SetRotateZ(90)

	m, ok := prim.LocalTransform()
	require.True(t, ok)

	p := transformPoint(m, mgl64.Vec3{1, 0, 0})
	assert.InDelta(t, 0, p.X(), eps)
	assert.InDelta(t, 1, p.Y(), eps)
}

// TestLocalTransform_Matrix tests the raw matrix op
func TestLocalTransform_Matrix(t *testing.T) {
	st := NewStage()
	prim, err := st.Define("/World/Box", TypeXform)
	require.NoError(t, err)

	want := mgl64.Translate3D(1, 2, 3).Mul4(mgl64.Scale3D(2, 2, 2))
	prim.SetMatrix(want)

	m, ok := prim.LocalTransform()
	require.True(t, ok)
	assert.Equal(t, want, m)
}

// TestDecomposeTransform_RoundTrip tests TRS recovery from a composed matrix
func TestDecomposeTransform_RoundTrip(t *testing.T) {
	rot := mgl64.QuatRotate(mgl64.DegToRad(30), mgl64.Vec3{0, 1, 0}).Normalize()
	m := mgl64.Translate3D(1, 2, 3).
		Mul4(rot.Mat4()).
		Mul4(mgl64.Scale3D(2, 3, 4))

	translation, rotation, scale := DecomposeTransform(m)

	assert.InDelta(t, 1, translation.X(), eps)
	assert.InDelta(t, 2, translation.Y(), eps)
	assert.InDelta(t, 3, translation.Z(), eps)

	assert.InDelta(t, 2, scale.X(), 1e-6)
	assert.InDelta(t, 3, scale.Y(), 1e-6)
	assert.InDelta(t, 4, scale.Z(), 1e-6)

	// Quaternions are equal up to sign
	if rot.Dot(rotation) < 0 {
		rotation = rotation.Scale(-1)
	}
	assert.InDelta(t, rot.W, rotation.W, 1e-6)
	assert.InDelta(t, rot.X(), rotation.X(), 1e-6)
	assert.InDelta(t, rot.Y(), rotation.Y(), 1e-6)
	assert.InDelta(t, rot.Z(), rotation.Z(), 1e-6)
}

// TestDecomposeTransform_NegativeDeterminant tests mirror handling
func TestDecomposeTransform_NegativeDeterminant(t *testing.T) {
	m := mgl64.Scale3D(-2, 1, 1)

	_, rotation, scale := DecomposeTransform(m)

	assert.InDelta(t, -2, scale.X(), 1e-6)
	assert.InDelta(t, 1, scale.Y(), 1e-6)
	assert.InDelta(t, 1, scale.Z(), 1e-6)

	// Rotation part stays proper (identity here)
	assert.InDelta(t, 1, math.Abs(rotation.W), 1e-6)
}
