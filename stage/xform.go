package stage

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform op attribute names. The xformOpOrder attribute lists the ops that
// make up a prim's local transform, outermost first: the order
// [translate, orient, scale] composes to T * R * S in column-vector
// convention, so points are scaled, then rotated, then translated.
const (
	AttrXformOpOrder = "xformOpOrder"

	OpTranslate = "xformOp:translate"
	OpOrient    = "xformOp:orient"
	OpScale     = "xformOp:scale"
	OpRotateX   = "xformOp:rotateX"
	OpRotateY   = "xformOp:rotateY"
	OpRotateZ   = "xformOp:rotateZ"
	OpTransform = "xformOp:transform"
)

// LocalTransform composes the prim's xformOps into a local transform matrix.
// It returns ok=false for prim types that carry no transform. A prim with no
// xformOpOrder has the identity transform.
func (p *Prim) LocalTransform() (mgl64.Mat4, bool) {
	if !p.IsXformable() {
		return mgl64.Ident4(), false
	}
	order, ok := p.Strings(AttrXformOpOrder)
	if !ok {
		return mgl64.Ident4(), true
	}

	m := mgl64.Ident4()
	for _, op := range order {
		m = m.Mul4(p.opMatrix(op))
	}
	return m, true
}

// opMatrix evaluates a single xformOp. Unknown or unset ops contribute
// identity, matching how a missing op value composes.
func (p *Prim) opMatrix(op string) mgl64.Mat4 {
	switch {
	case op == OpTranslate || strings.HasPrefix(op, OpTranslate+":"):
		if v, ok := p.Vec3(op); ok {
			return mgl64.Translate3D(v[0], v[1], v[2])
		}
	case op == OpOrient || strings.HasPrefix(op, OpOrient+":"):
		if q, ok := p.Quat(op); ok {
			quat := mgl64.Quat{W: q[0], V: mgl64.Vec3{q[1], q[2], q[3]}}
			return quat.Normalize().Mat4()
		}
	case op == OpScale || strings.HasPrefix(op, OpScale+":"):
		if v, ok := p.Vec3(op); ok {
			return mgl64.Scale3D(v[0], v[1], v[2])
		}
	case op == OpRotateX || strings.HasPrefix(op, OpRotateX+":"):
		if deg, ok := p.Float(op); ok {
			return mgl64.HomogRotate3DX(mgl64.DegToRad(deg))
		}
	case op == OpRotateY || strings.HasPrefix(op, OpRotateY+":"):
		if deg, ok := p.Float(op); ok {
			return mgl64.HomogRotate3DY(mgl64.DegToRad(deg))
		}
	case op == OpRotateZ || strings.HasPrefix(op, OpRotateZ+":"):
		if deg, ok := p.Float(op); ok {
			return mgl64.HomogRotate3DZ(mgl64.DegToRad(deg))
		}
	case op == OpTransform || strings.HasPrefix(op, OpTransform+":"):
		if m, ok := p.Matrix(op); ok {
			return m
		}
	}
	return mgl64.Ident4()
}

// SetTranslate authors a translate op and appends it to xformOpOrder if absent.
func (p *Prim) SetTranslate(x, y, z float64) {
	p.CreateAttribute(OpTranslate, [3]float64{x, y, z})
	p.appendXformOp(OpTranslate)
}

// SetOrient authors an orientation quaternion op, components given (w, x, y, z).
func (p *Prim) SetOrient(w, x, y, z float64) {
	p.CreateAttribute(OpOrient, [4]float64{w, x, y, z})
	p.appendXformOp(OpOrient)
}

// SetScale authors a scale op and appends it to xformOpOrder if absent.
func (p *Prim) SetScale(x, y, z float64) {
	p.CreateAttribute(OpScale, [3]float64{x, y, z})
	p.appendXformOp(OpScale)
}

// SetRotateZ authors a rotation about Z in degrees.
func (p *Prim) SetRotateZ(degrees float64) {
	p.CreateAttribute(OpRotateZ, degrees)
	p.appendXformOp(OpRotateZ)
}

// SetMatrix authors a raw 4x4 transform op, replacing the whole op order.
func (p *Prim) SetMatrix(m mgl64.Mat4) {
	p.CreateAttribute(OpTransform, m)
	p.CreateAttribute(AttrXformOpOrder, []string{OpTransform})
}

func (p *Prim) appendXformOp(op string) {
	order, _ := p.Strings(AttrXformOpOrder)
	for _, o := range order {
		if o == op {
			return
		}
	}
	p.CreateAttribute(AttrXformOpOrder, append(order, op))
}

// DecomposeTransform splits a transform matrix into translation, rotation,
// and scale. A negative determinant flips the X scale so the rotation part
// stays proper. Rotations come back normalized; shear is not preserved.
func DecomposeTransform(m mgl64.Mat4) (mgl64.Vec3, mgl64.Quat, mgl64.Vec3) {
	translation := m.Col(3).Vec3()

	sx, sy, sz := mgl64.Extract3DScale(m)
	if m.Det() < 0 {
		sx = -sx
	}

	rot := mgl64.Mat3FromCols(
		safeScaleCol(m.Col(0).Vec3(), sx),
		safeScaleCol(m.Col(1).Vec3(), sy),
		safeScaleCol(m.Col(2).Vec3(), sz),
	)
	rotation := mgl64.Mat4ToQuat(rot.Mat4()).Normalize()

	return translation, rotation, mgl64.Vec3{sx, sy, sz}
}

func safeScaleCol(col mgl64.Vec3, scale float64) mgl64.Vec3 {
	if scale == 0 {
		return col
	}
	return col.Mul(1 / scale)
}

// FormatMatrix renders a matrix for debug output, one row per line.
func FormatMatrix(m mgl64.Mat4) string {
	var b strings.Builder
	for r := 0; r < 4; r++ {
		row := m.Row(r)
		fmt.Fprintf(&b, "[% .4f % .4f % .4f % .4f]\n", row[0], row[1], row[2], row[3])
	}
	return b.String()
}
