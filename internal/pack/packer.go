package pack

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/kiesman99/spritesheet/internal/sheet"
	"github.com/kiesman99/spritesheet/pkg/sprite"
)

// Packer handles the main spritesheet pipeline
type Packer struct {
	processor *sprite.Processor
	options   *sprite.Options
	logger    *log.Logger
}

// Result describes a written spritesheet
type Result struct {
	Files   []string // composed images, in slot order
	Ignored []string // discovered but left out
	Layout  sheet.Layout
	Entries []sprite.Entry
}

// NewPacker creates a new packer instance
func NewPacker(opts *sprite.Options, logger *log.Logger) *Packer {
	if logger == nil {
		logger = log.Default()
	}

	return &Packer{
		processor: sprite.NewProcessor(0),
		options:   opts,
		logger:    logger,
	}
}

// Run scans the input directory, composes every image it finds and writes
// the sheet. Nothing is written unless every step succeeds.
func (p *Packer) Run() (*Result, error) {
	opts := p.options

	if opts.Output == "" {
		opts.Output = sprite.DefaultOutput
	}
	if _, err := sprite.FormatFromPath(opts.Output); err != nil {
		return nil, err
	}
	if err := sprite.CheckOutput(opts.Output, opts.Force); err != nil {
		return nil, err
	}
	if opts.Index != "" {
		if err := sprite.CheckOutput(opts.Index, opts.Force); err != nil {
			return nil, err
		}
	}

	files, err := sprite.Discover(opts.Input)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	var (
		images []image.Image
		sizes  []image.Point // every discovered file, ignored ones included
		kept   []image.Point
	)

	for _, path := range files {
		if sprite.IsIgnored(path, opts.Ignore) {
			size, err := p.processor.Dimensions(path)
			if err != nil {
				return nil, err
			}
			p.logger.Debug("Ignoring image", "path", path, "size", dims(size))
			result.Ignored = append(result.Ignored, path)
			sizes = append(sizes, size)
			continue
		}

		src, err := p.processor.Load(path)
		if err != nil {
			return nil, err
		}
		size := src.Image.Bounds().Size()
		p.logger.Debug("Loaded image", "path", path, "size", dims(size))

		result.Files = append(result.Files, path)
		images = append(images, src.Image)
		sizes = append(sizes, size)
		kept = append(kept, size)
	}

	if len(images) == 0 {
		return nil, errors.Wrapf(sheet.ErrNoImages, "in <%s>", opts.Input)
	}

	tw, th := sheet.MaxSize(sizes)
	result.Layout = sheet.NewLayout(len(images), opts.MaxCols, tw, th)

	p.logger.Info("Composing spritesheet",
		"images", len(images),
		"ignored", len(result.Ignored),
		"tile", fmt.Sprintf("%dx%d", tw, th),
		"grid", fmt.Sprintf("%dx%d", result.Layout.Columns, result.Layout.Rows),
	)

	canvas, err := sheet.Compose(images, image.Pt(tw, th), opts.MaxCols)
	if err != nil {
		return nil, err
	}

	for _, pl := range result.Layout.Placements(kept) {
		result.Entries = append(result.Entries, sprite.Entry{
			Name: p.entryName(result.Files[pl.Index]),
			Rect: pl.Rect,
		})
	}

	// Render the index up front so a marshalling error leaves nothing behind.
	var index []byte
	if opts.Index != "" {
		if index, err = sprite.MarshalIndex(result.Entries); err != nil {
			return nil, err
		}
	}

	if err := p.processor.WriteImage(opts.Output, canvas); err != nil {
		return nil, errors.Wrap(err, "failed to write spritesheet")
	}
	p.logger.Info("Wrote spritesheet", "path", opts.Output, "size", dims(canvas.Bounds().Size()))

	if opts.Index != "" {
		if err := sprite.WriteIndexData(opts.Index, index); err != nil {
			if rmErr := os.Remove(opts.Output); rmErr != nil {
				p.logger.Warn("Failed to remove spritesheet", "path", opts.Output, "err", rmErr)
			}
			return nil, errors.Wrap(err, "failed to write index")
		}
		p.logger.Info("Wrote index", "path", opts.Index)
	}

	return result, nil
}

// entryName is the image path relative to the input directory, with forward
// slashes.
func (p *Packer) entryName(path string) string {
	rel, err := filepath.Rel(p.options.Input, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func dims(s image.Point) string {
	return fmt.Sprintf("%dx%d", s.X, s.Y)
}
