package stage

import "fmt"

// Geometry attribute names for the gprim schemas.
const (
	AttrPoints            = "points"
	AttrFaceVertexCounts  = "faceVertexCounts"
	AttrFaceVertexIndices = "faceVertexIndices"
	AttrNormals           = "normals"
	AttrST                = "primvars:st"
	AttrDisplayColor      = "primvars:displayColor"
	AttrSize              = "size"
	AttrRadius            = "radius"
)

// GeometryKind discriminates the gprim schemas.
type GeometryKind int

const (
	KindMesh GeometryKind = iota
	KindCube
	KindSphere
)

func (k GeometryKind) String() string {
	switch k {
	case KindMesh:
		return "mesh"
	case KindCube:
		return "cube"
	case KindSphere:
		return "sphere"
	default:
		return "unknown"
	}
}

// Geometry is the extracted renderable data of a gprim.
type Geometry struct {
	Kind GeometryKind

	// Mesh fields
	Points            [][3]float32
	FaceVertexCounts  []int
	FaceVertexIndices []int
	Normals           [][3]float32
	TexCoords         [][2]float32

	// Cube edge length and sphere radius
	Size   float64
	Radius float64

	// First authored displayColor, if any
	DisplayColor *[3]float32
}

// ExtractGeometry reads the gprim schema attributes off a prim. Non-gprim
// types return (nil, nil). Meshes without points are an error; defaults
// follow the schema fallbacks (cube size 2, sphere radius 1).
func ExtractGeometry(p *Prim) (*Geometry, error) {
	if !p.IsGprim() {
		return nil, nil
	}

	g := &Geometry{}
	if colors, ok := p.Vec3fArray(AttrDisplayColor); ok && len(colors) > 0 {
		c := colors[0]
		g.DisplayColor = &c
	}

	switch p.TypeName() {
	case TypeMesh:
		g.Kind = KindMesh
		points, ok := p.Vec3fArray(AttrPoints)
		if !ok || len(points) == 0 {
			return nil, fmt.Errorf("mesh %s has no points", p.Path())
		}
		g.Points = points
		g.FaceVertexCounts, _ = p.Ints(AttrFaceVertexCounts)
		g.FaceVertexIndices, _ = p.Ints(AttrFaceVertexIndices)
		g.Normals, _ = p.Vec3fArray(AttrNormals)
		g.TexCoords, _ = p.Vec2fArray(AttrST)

	case TypeCube:
		g.Kind = KindCube
		g.Size = 2
		if size, ok := p.Float(AttrSize); ok {
			g.Size = size
		}

	case TypeSphere:
		g.Kind = KindSphere
		g.Radius = 1
		if r, ok := p.Float(AttrRadius); ok {
			g.Radius = r
		}
	}
	return g, nil
}

// Triangles triangulates the mesh faces with a fan per polygon. When no face
// counts are authored the indices are taken as triangle triples, and when no
// indices are authored either, the points themselves are.
func (g *Geometry) Triangles() ([][3]uint32, error) {
	if g.Kind != KindMesh {
		return nil, nil
	}

	indices := g.FaceVertexIndices
	if len(g.FaceVertexCounts) == 0 {
		if len(indices) == 0 {
			indices = make([]int, len(g.Points))
			for i := range indices {
				indices[i] = i
			}
		}
		if len(indices)%3 != 0 {
			return nil, fmt.Errorf("%d indices without face counts do not form triangles", len(indices))
		}
		tris := make([][3]uint32, 0, len(indices)/3)
		for i := 0; i+2 < len(indices); i += 3 {
			tris = append(tris, [3]uint32{uint32(indices[i]), uint32(indices[i+1]), uint32(indices[i+2])})
		}
		return tris, nil
	}

	var tris [][3]uint32
	offset := 0
	for _, count := range g.FaceVertexCounts {
		if count < 3 {
			return nil, fmt.Errorf("face with %d vertices cannot be triangulated", count)
		}
		if offset+count > len(indices) {
			return nil, fmt.Errorf("face counts overrun %d indices", len(indices))
		}
		for i := 1; i+1 < count; i++ {
			tris = append(tris, [3]uint32{
				uint32(indices[offset]),
				uint32(indices[offset+i]),
				uint32(indices[offset+i+1]),
			})
		}
		offset += count
	}
	if offset != len(indices) {
		return nil, fmt.Errorf("%d indices left over after %d faces", len(indices)-offset, len(g.FaceVertexCounts))
	}
	return tris, nil
}

// CubeHalfSize returns half the cube edge length, the box extent the loggers
// emit.
func (g *Geometry) CubeHalfSize() float64 {
	return g.Size / 2
}
