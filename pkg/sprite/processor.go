package sprite

import (
	"bufio"
	"bytes"
	"encoding/json"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

var (
	magicPNG  = []byte{0x89, 0x50, 0x4E, 0x47}
	magicJPEG = []byte{0xFF, 0xD8}
	magicBMP  = []byte{'B', 'M'}
)

// Processor handles image decoding and encoding
type Processor struct {
	quality int
}

// NewProcessor creates a new image processor. quality applies to JPEG output;
// zero or less selects the encoder default.
func NewProcessor(quality int) *Processor {
	if quality <= 0 {
		quality = jpeg.DefaultQuality
	}
	return &Processor{quality: quality}
}

// Load reads and decodes the image at path
func (p *Processor) Load(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	img, err := p.DecodeImage(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}

	return &Source{Path: path, Image: img}, nil
}

// DecodeImage detects image format and decodes
func (p *Processor) DecodeImage(data []byte) (image.Image, error) {
	switch {
	case bytes.HasPrefix(data, magicPNG):
		return png.Decode(bytes.NewReader(data))
	case bytes.HasPrefix(data, magicJPEG):
		return jpeg.Decode(bytes.NewReader(data))
	case bytes.HasPrefix(data, magicBMP):
		return bmp.Decode(bytes.NewReader(data))
	}

	return nil, ErrUnrecognizedFormat
}

// Dimensions reads only the header of the image at path and returns its size.
// The pixel data is never decoded, so a file with a valid header and a
// corrupt body is measured without error.
func (p *Processor) Dimensions(path string) (image.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Point{}, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	head, err := r.Peek(len(magicPNG))
	if err != nil && err != io.EOF {
		return image.Point{}, errors.Wrapf(err, "read %s", path)
	}

	var cfg image.Config
	switch {
	case bytes.HasPrefix(head, magicPNG):
		cfg, err = png.DecodeConfig(r)
	case bytes.HasPrefix(head, magicJPEG):
		cfg, err = jpeg.DecodeConfig(r)
	case bytes.HasPrefix(head, magicBMP):
		cfg, err = bmp.DecodeConfig(r)
	default:
		err = ErrUnrecognizedFormat
	}
	if err != nil {
		return image.Point{}, errors.Wrapf(err, "decode %s", path)
	}

	return image.Pt(cfg.Width, cfg.Height), nil
}

// FormatFromPath maps an output file extension to an output format.
func FormatFromPath(path string) (int, error) {
	return ParseFormat(strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
}

// ParseFormat maps a format name (an extension without the dot) to an output
// format.
func ParseFormat(name string) (int, error) {
	switch name {
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "bmp":
		return FormatBMP, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	case "gif":
		return FormatGIF, nil
	}
	return 0, errors.Wrapf(ErrUnsupportedFormat, "%q", name)
}

// ContentType returns the MIME type of an output format.
func ContentType(format int) string {
	switch format {
	case FormatJPEG:
		return "image/jpeg"
	case FormatBMP:
		return "image/bmp"
	case FormatTIFF:
		return "image/tiff"
	case FormatGIF:
		return "image/gif"
	}
	return "image/png"
}

// Encode writes img to w in the given format
func (p *Processor) Encode(w io.Writer, img image.Image, format int) error {
	switch format {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: p.quality})
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case FormatGIF:
		return gif.Encode(w, img, nil)
	}
	return errors.Wrapf(ErrUnsupportedFormat, "format %d", format)
}

// CheckOutput refuses an existing output path unless force is set.
func CheckOutput(path string, force bool) error {
	if force {
		return nil
	}
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return errors.Wrapf(ErrOutputExists, "output <%s>", path)
	case os.IsNotExist(err):
		return nil
	default:
		return errors.Wrapf(err, "stat %s", path)
	}
}

// WriteImage encodes img into filename, picking the format from its extension
func (p *Processor) WriteImage(filename string, img image.Image) error {
	format, err := FormatFromPath(filename)
	if err != nil {
		return err
	}

	// Encode before touching the file so a failed encode leaves nothing behind.
	var buf bytes.Buffer
	if err := p.Encode(&buf, img, format); err != nil {
		return errors.Wrapf(err, "encode %s", filename)
	}

	if err := os.WriteFile(filename, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", filename)
	}
	return nil
}

// MarshalIndex renders a JSON lookup of entry name to [x0, y0, x1, y1].
func MarshalIndex(entries []Entry) ([]byte, error) {
	lookup := make(map[string][]int, len(entries))
	for _, e := range entries {
		lookup[e.Name] = []int{e.Rect.Min.X, e.Rect.Min.Y, e.Rect.Max.X, e.Rect.Max.Y}
	}

	data, err := json.MarshalIndent(lookup, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal index")
	}
	return append(data, '\n'), nil
}

// WriteIndex writes the MarshalIndex lookup to filename.
func WriteIndex(filename string, entries []Entry) error {
	data, err := MarshalIndex(entries)
	if err != nil {
		return err
	}
	return WriteIndexData(filename, data)
}

// WriteIndexData writes an already marshalled index.
func WriteIndexData(filename string, data []byte) error {
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", filename)
	}
	return nil
}
