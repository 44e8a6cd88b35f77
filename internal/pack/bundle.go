package pack

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/pkg/errors"

	"github.com/kiesman99/spritesheet/internal/sheet"
	"github.com/kiesman99/spritesheet/pkg/sprite"
)

// Upload is one in-memory image handed to Bundle
type Upload struct {
	Name string
	Data []byte
}

// BundleOptions contains the in-memory bundling parameters
type BundleOptions struct {
	MaxCols int
	Format  int
}

// BundleResult contains the encoded sheet
type BundleResult struct {
	ImageData []byte
	Layout    sheet.Layout
	Entries   []sprite.Entry
}

// DecodeError reports an upload that could not be decoded
type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("can't decode %s: %v", e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Bundle decodes uploads in order, composes them and encodes the sheet.
func Bundle(ctx context.Context, uploads []Upload, opts BundleOptions) (*BundleResult, error) {
	processor := sprite.NewProcessor(0)

	images := make([]image.Image, 0, len(uploads))
	sizes := make([]image.Point, 0, len(uploads))
	for _, u := range uploads {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		img, err := processor.DecodeImage(u.Data)
		if err != nil {
			return nil, &DecodeError{Name: u.Name, Err: err}
		}
		images = append(images, img)
		sizes = append(sizes, img.Bounds().Size())
	}

	tw, th := sheet.MaxSize(sizes)
	layout := sheet.NewLayout(len(images), opts.MaxCols, tw, th)

	canvas, err := sheet.Compose(images, image.Pt(tw, th), opts.MaxCols)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := processor.Encode(&buf, canvas, opts.Format); err != nil {
		return nil, errors.Wrap(err, "failed to encode output image")
	}

	result := &BundleResult{
		ImageData: buf.Bytes(),
		Layout:    layout,
	}
	for _, pl := range layout.Placements(sizes) {
		result.Entries = append(result.Entries, sprite.Entry{Name: uploads[pl.Index].Name, Rect: pl.Rect})
	}

	return result, nil
}
