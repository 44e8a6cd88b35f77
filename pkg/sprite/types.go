package sprite

import (
	"image"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Output format constants
const (
	FormatPNG = iota
	FormatJPEG
	FormatBMP
	FormatTIFF
	FormatGIF
)

// DefaultOutput is the sheet written when no output path is given.
const DefaultOutput = "spritesheet_out.png"

// DefaultMaxCols is the column limit when none is given.
const DefaultMaxCols = 10

// InputExtensions are the file name suffixes picked up when scanning a
// directory. Matching is case sensitive and ".jpg" is not among them.
var InputExtensions = []string{".png", ".bmp", ".jpeg"}

var (
	ErrInvalidMaxCols     = errors.New("max-cols must be a positive integer")
	ErrInputNotFound      = errors.New("input path does not exist")
	ErrOutputExists       = errors.New("output already exists, use -f to force override")
	ErrUnrecognizedFormat = errors.New("unrecognized image format")
	ErrUnsupportedFormat  = errors.New("unsupported output format")
)

// Options contains all configuration for building a spritesheet
type Options struct {
	Input   string
	Output  string
	MaxCols int
	Ignore  []string
	Force   bool
	Index   string // optional JSON index path
}

// Source is a decoded input image and the path it came from
type Source struct {
	Path  string
	Image image.Image
}

// Entry is one image's rectangle in the sprite index
type Entry struct {
	Name string
	Rect image.Rectangle
}

// ParseMaxCols parses a column limit. Zero is accepted and raised to one.
func ParseMaxCols(s string) (int, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 31)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidMaxCols, "got %q", s)
	}
	return max(int(n), 1), nil
}
