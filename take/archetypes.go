package take

import (
	"image"
	"image/draw"
)

// Archetype kind strings, carried on every row.
const (
	KindTransform3D     = "transform3d"
	KindMesh3D          = "mesh3d"
	KindBoxes3D         = "boxes3d"
	KindEllipsoids3D    = "ellipsoids3d"
	KindClear           = "clear"
	KindViewCoordinates = "view_coordinates"
)

// Archetype is a loggable entity payload. Implementations are plain data
// structs; the Kind tag selects the decoder when rows are read back.
type Archetype interface {
	ArchetypeKind() string
}

// Transform3D places an entity relative to its parent. The quaternion is
// stored (x, y, z, w).
type Transform3D struct {
	Translation [3]float64  `json:"translation"`
	Quaternion  [4]float64  `json:"quaternion"`
	Scale       *[3]float64 `json:"scale,omitempty"`
}

// ArchetypeKind implements Archetype.
func (Transform3D) ArchetypeKind() string { return KindTransform3D }

// ImageBuffer is a decoded RGBA8 image, rows top to bottom. Pixels marshal
// as base64 in row files.
type ImageBuffer struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Pixels []byte `json:"pixels"`
}

// NewImageBuffer copies a decoded image into an RGBA8 buffer.
func NewImageBuffer(img image.Image) ImageBuffer {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return ImageBuffer{Width: b.Dx(), Height: b.Dy(), Pixels: rgba.Pix}
}

// RGBA reconstructs the image for thumbnailing and inspection.
func (b ImageBuffer) RGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	copy(img.Pix, b.Pixels)
	return img
}

// Mesh3D is an indexed triangle mesh with optional shading data.
type Mesh3D struct {
	Positions       [][3]float32 `json:"positions"`
	TriangleIndices [][3]uint32  `json:"triangle_indices,omitempty"`
	Normals         [][3]float32 `json:"normals,omitempty"`
	TexCoords       [][2]float32 `json:"texcoords,omitempty"`
	VertexColors    [][4]uint8   `json:"vertex_colors,omitempty"`
	AlbedoFactor    *[4]uint8    `json:"albedo_factor,omitempty"`
	AlbedoTexture   *ImageBuffer `json:"albedo_texture,omitempty"`
}

// ArchetypeKind implements Archetype.
func (Mesh3D) ArchetypeKind() string { return KindMesh3D }

// Boxes3D is a batch of axis-aligned boxes given by half extents.
type Boxes3D struct {
	HalfSizes [][3]float32 `json:"half_sizes"`
	Centers   [][3]float32 `json:"centers,omitempty"`
	Colors    [][4]uint8   `json:"colors,omitempty"`
}

// ArchetypeKind implements Archetype.
func (Boxes3D) ArchetypeKind() string { return KindBoxes3D }

// Ellipsoids3D is a batch of axis-aligned ellipsoids given by half extents.
// A sphere is an ellipsoid with equal extents.
type Ellipsoids3D struct {
	HalfSizes [][3]float32 `json:"half_sizes"`
	Centers   [][3]float32 `json:"centers,omitempty"`
	Colors    [][4]uint8   `json:"colors,omitempty"`
}

// ArchetypeKind implements Archetype.
func (Ellipsoids3D) ArchetypeKind() string { return KindEllipsoids3D }

// Clear wipes an entity, and its descendants when Recursive is set.
type Clear struct {
	Recursive bool `json:"recursive"`
}

// ArchetypeKind implements Archetype.
func (Clear) ArchetypeKind() string { return KindClear }

// ViewCoordinates declares the scene's up axis ("Y" or "Z", right-handed),
// logged once at the root entity.
type ViewCoordinates struct {
	Up string `json:"up"`
}

// ArchetypeKind implements Archetype.
func (ViewCoordinates) ArchetypeKind() string { return KindViewCoordinates }
