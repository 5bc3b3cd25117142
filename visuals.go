package dolly

import (
	"github.com/teranos/dolly/rig"
	"github.com/teranos/dolly/shade"
	"github.com/teranos/dolly/stage"
	"github.com/teranos/dolly/take"
)

// authoredTransform decomposes the record's authored local transform into the
// loggable archetype. ok is false for prim types that carry no transform.
func authoredTransform(rec Record) (take.Transform3D, bool) {
	m, ok := rec.LocalTransform()
	if !ok {
		return take.Transform3D{}, false
	}
	t, q, s := stage.DecomposeTransform(m)
	scale := [3]float64(s)
	return take.Transform3D{
		Translation: [3]float64(t),
		Quaternion:  [4]float64{q.X(), q.Y(), q.Z(), q.W},
		Scale:       &scale,
	}, true
}

// poseTransform converts a live world pose into the loggable archetype.
// Poses carry no scale.
func poseTransform(pose rig.Pose) take.Transform3D {
	return take.Transform3D{
		Translation: [3]float64(pose.Position),
		Quaternion:  pose.QuaternionXYZW(),
	}
}

// geometryArchetype converts a gprim record into its loggable archetype,
// shaded with the record's resolved albedo. Non-gprims return nil.
func geometryArchetype(rec Record, resolver *shade.Resolver) (take.Archetype, error) {
	geo, err := rec.Geometry()
	if err != nil {
		return nil, err
	}
	if geo == nil {
		return nil, nil
	}

	albedo := resolver.Albedo(rec.Prim)
	switch geo.Kind {
	case stage.KindMesh:
		return meshArchetype(geo, albedo)
	case stage.KindCube:
		h := float32(geo.CubeHalfSize())
		return take.Boxes3D{
			HalfSizes: [][3]float32{{h, h, h}},
			Colors:    albedoColors(albedo),
		}, nil
	case stage.KindSphere:
		r := float32(geo.Radius)
		return take.Ellipsoids3D{
			HalfSizes: [][3]float32{{r, r, r}},
			Colors:    albedoColors(albedo),
		}, nil
	}
	return nil, nil
}

// meshArchetype triangulates a mesh and applies its albedo.
func meshArchetype(geo *stage.Geometry, albedo *shade.Albedo) (take.Archetype, error) {
	tris, err := geo.Triangles()
	if err != nil {
		return nil, err
	}

	mesh := take.Mesh3D{
		Positions:       geo.Points,
		TriangleIndices: tris,
		Normals:         geo.Normals,
		TexCoords:       geo.TexCoords,
	}
	if albedo != nil {
		mesh.AlbedoFactor = albedoFactor(albedo.Color)
		if albedo.Texture != nil {
			buf := take.NewImageBuffer(albedo.Texture)
			mesh.AlbedoTexture = &buf
		}
	}
	return mesh, nil
}

// albedoFactor converts a linear color to the RGBA8 factor meshes carry.
func albedoFactor(c *[3]float32) *[4]uint8 {
	if c == nil {
		return nil
	}
	f := [4]uint8{channelByte(c[0]), channelByte(c[1]), channelByte(c[2]), 255}
	return &f
}

// albedoColors converts an albedo to the per-shape color batch boxes and
// ellipsoids carry. Only the constant color applies to primitive shapes.
func albedoColors(albedo *shade.Albedo) [][4]uint8 {
	if albedo == nil || albedo.Color == nil {
		return nil
	}
	return [][4]uint8{*albedoFactor(albedo.Color)}
}

func channelByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
