package report

import (
	"image"
	"image/color"
	"image/draw"
	"sort"

	"github.com/anthonynsimon/bild/transform"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/teranos/dolly/take"
)

// Contact sheet layout: square thumbnails in a fixed-column grid with a
// one-line label under each tile.
const (
	sheetColumns = 4
	tileSize     = 96
	labelHeight  = 16
	tilePad      = 8
)

var (
	sheetBackground = color.RGBA{24, 24, 24, 255}
	sheetLabelColor = color.RGBA{220, 220, 220, 255}
)

// ContactSheet tiles the albedo textures logged in rows into one labeled
// image, one tile per textured mesh entity. Returns nil when the take
// carries no textures.
func ContactSheet(rows []take.Row) *image.RGBA {
	type tile struct {
		label string
		buf   take.ImageBuffer
	}
	seen := make(map[string]bool)
	var tiles []tile
	for _, row := range rows {
		mesh, ok := row.Data.(take.Mesh3D)
		if !ok || mesh.AlbedoTexture == nil || seen[row.Entity] {
			continue
		}
		seen[row.Entity] = true
		tiles = append(tiles, tile{label: entityLabel(row.Entity), buf: *mesh.AlbedoTexture})
	}
	if len(tiles) == 0 {
		return nil
	}
	sort.Slice(tiles, func(i, j int) bool { return tiles[i].label < tiles[j].label })

	cols := sheetColumns
	if len(tiles) < cols {
		cols = len(tiles)
	}
	gridRows := (len(tiles) + cols - 1) / cols
	cellW := tileSize + tilePad
	cellH := tileSize + labelHeight + tilePad
	sheet := image.NewRGBA(image.Rect(0, 0, cols*cellW+tilePad, gridRows*cellH+tilePad))
	draw.Draw(sheet, sheet.Bounds(), image.NewUniform(sheetBackground), image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  sheet,
		Src:  image.NewUniform(sheetLabelColor),
		Face: basicfont.Face7x13,
	}

	for i, tl := range tiles {
		x := tilePad + (i%cols)*cellW
		y := tilePad + (i/cols)*cellH

		thumb := transform.Resize(tl.buf.RGBA(), tileSize, tileSize, transform.Linear)
		draw.Draw(sheet, image.Rect(x, y, x+tileSize, y+tileSize), thumb, image.Point{}, draw.Src)

		drawer.Dot = fixed.Point26_6{
			X: fixed.Int26_6(x << 6),
			Y: fixed.Int26_6((y + tileSize + labelHeight - 3) << 6),
		}
		drawer.DrawString(tl.label)
	}
	return sheet
}

// entityLabel shortens an entity path to a tile-width label, keeping the
// prim-name end of the path.
func entityLabel(entity string) string {
	const maxChars = tileSize / 7 // Face7x13 advance is 7px
	if len(entity) <= maxChars {
		return entity
	}
	return ".." + entity[len(entity)-maxChars+2:]
}
