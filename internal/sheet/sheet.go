// Package sheet lays out images on a uniform grid and composites them into a
// single spritesheet canvas.
//
// Every image gets a tile of the same size: the largest width and the largest
// height found among the inputs. Tiles are filled row-major in input order,
// and an image smaller than its tile is anchored at the tile's top-left corner
// with the rest of the tile left transparent.
package sheet

import (
	"image"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

var (
	// ErrNoImages is returned when there is nothing to composite.
	ErrNoImages = errors.New("no images found")

	// ErrOutOfBounds signals that an image would be copied outside the canvas.
	// It means the tile size was not resolved over the composed images.
	ErrOutOfBounds = errors.New("copy target exceeds canvas bounds")

	// ErrCanvasTooLarge is returned when the grid would need a canvas larger
	// than MaxCanvasPixels.
	ErrCanvasTooLarge = errors.New("spritesheet canvas too large")
)

// TileSize returns the largest width and the largest height over images.
// An empty slice yields (0, 0).
func TileSize(images []image.Image) (int, int) {
	sizes := make([]image.Point, len(images))
	for i, img := range images {
		sizes[i] = img.Bounds().Size()
	}
	return MaxSize(sizes)
}

// MaxSize is TileSize for callers that only know image dimensions.
func MaxSize(sizes []image.Point) (int, int) {
	var w, h int
	for _, s := range sizes {
		w = max(w, s.X)
		h = max(h, s.Y)
	}
	return w, h
}

// Sheet resolves the tile size over images and composes them.
func Sheet(images []image.Image, maxCols int) (*image.RGBA, error) {
	w, h := TileSize(images)
	return Compose(images, image.Pt(w, h), maxCols)
}

// Compose copies images onto a transparent canvas, one per tile, in input
// order. tile must be at least as large as every image.
func Compose(images []image.Image, tile image.Point, maxCols int) (*image.RGBA, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	layout := NewLayout(len(images), maxCols, tile.X, tile.Y)
	if err := layout.Check(); err != nil {
		return nil, err
	}
	canvas := image.NewRGBA(layout.Bounds())

	for i, img := range images {
		src := img.Bounds()
		dst := image.Rectangle{Min: layout.Origin(i)}
		dst.Max = dst.Min.Add(src.Size())

		if !dst.In(canvas.Bounds()) || src.Dx() > tile.X || src.Dy() > tile.Y {
			return nil, errors.Wrapf(ErrOutOfBounds, "image %d (%dx%d) at %v, canvas %v",
				i, src.Dx(), src.Dy(), dst.Min, canvas.Bounds())
		}

		draw.Draw(canvas, dst, img, src.Min, draw.Src)
	}

	return canvas, nil
}
