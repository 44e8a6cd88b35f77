package sheet

import (
	"image"

	"github.com/pkg/errors"
)

// MaxCanvasPixels caps the canvas area. At four bytes per pixel that is 1 GiB.
const MaxCanvasPixels = 1 << 28

// Layout describes the grid of a spritesheet.
type Layout struct {
	Count      int
	Columns    int
	Rows       int
	TileWidth  int
	TileHeight int
}

// NewLayout computes the grid for count images. A maxCols of zero (or less)
// is treated as a single column.
func NewLayout(count, maxCols, tileW, tileH int) Layout {
	cols := max(maxCols, 1)

	rows := 1
	if count >= cols {
		rows = (count + cols - 1) / cols
	}

	return Layout{
		Count:      count,
		Columns:    cols,
		Rows:       rows,
		TileWidth:  tileW,
		TileHeight: tileH,
	}
}

// Bounds is the canvas rectangle covering every tile of the grid.
func (l Layout) Bounds() image.Rectangle {
	return image.Rect(0, 0, l.TileWidth*l.Columns, l.TileHeight*l.Rows)
}

// Check reports ErrCanvasTooLarge when the canvas would exceed
// MaxCanvasPixels, including when its dimensions overflow int.
func (l Layout) Check() error {
	w, ok := mulWithin(l.TileWidth, l.Columns, MaxCanvasPixels)
	if ok {
		var h int
		if h, ok = mulWithin(l.TileHeight, l.Rows, MaxCanvasPixels); ok {
			_, ok = mulWithin(w, h, MaxCanvasPixels)
		}
	}
	if !ok {
		return errors.Wrapf(ErrCanvasTooLarge, "%d columns x %d rows of %dx%d tiles",
			l.Columns, l.Rows, l.TileWidth, l.TileHeight)
	}
	return nil
}

// mulWithin returns a*b when it does not exceed limit. a and b are non-negative.
func mulWithin(a, b, limit int) (int, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > limit/b {
		return 0, false
	}
	return a * b, true
}

// Slot returns the (column, row) of the i-th image.
func (l Layout) Slot(i int) (int, int) {
	return i % l.Columns, i / l.Columns
}

// Origin returns the top-left pixel of the i-th image's tile.
func (l Layout) Origin(i int) image.Point {
	col, row := l.Slot(i)
	return image.Pt(col*l.TileWidth, row*l.TileHeight)
}

// Placement is where one image ended up on the canvas.
type Placement struct {
	Index int
	Rect  image.Rectangle
}

// Placements lists the rectangle each image occupies, given its size.
func (l Layout) Placements(sizes []image.Point) []Placement {
	out := make([]Placement, len(sizes))
	for i, s := range sizes {
		o := l.Origin(i)
		out[i] = Placement{Index: i, Rect: image.Rectangle{Min: o, Max: o.Add(s)}}
	}
	return out
}
