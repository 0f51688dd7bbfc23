package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"strings"

	_ "image/gif"

	_ "github.com/biessek/golang-ico"
	"github.com/chai2010/webp"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"optimg/pkg/imgutil"
)

// Format identifies a supported output format.
type Format int

const (
	FormatJPEG Format = iota
	FormatPNG
	FormatWebP
)

func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "jpg"
	case FormatPNG:
		return "png"
	case FormatWebP:
		return "webp"
	default:
		return "unknown"
	}
}

// Ext returns the file extension without the leading dot.
func (f Format) Ext() string {
	return f.String()
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	default:
		return 0, fmt.Errorf("unsupported output format: %q", s)
	}
}

// ParseFormats parses a list of format names, dropping duplicates while
// preserving first-seen order.
func ParseFormats(names []string) ([]Format, error) {
	formats := make([]Format, 0, len(names))
	seen := make(map[Format]bool, len(names))
	for _, name := range names {
		f, err := ParseFormat(name)
		if err != nil {
			return nil, err
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		formats = append(formats, f)
	}
	return formats, nil
}

// Engine decodes, resizes and encodes images.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Decode reads and decodes the image at path. JPEG and TIFF sources
// carrying an EXIF Orientation tag are normalized so the pixel data is
// upright before any resizing happens.
func (e *Engine) Decode(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	kind, err := imgutil.DetectHeader(data)
	if err != nil || kind == imgutil.KindUnknown {
		return nil, fmt.Errorf("unrecognized image data in %s", path)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if kind == imgutil.KindJPEG || kind == imgutil.KindTIFF {
		img = applyOrientation(img, data)
	}
	return img, nil
}

// Resize scales img by the given percentage using Lanczos3 resampling.
// Scale 100 returns the image untouched.
func (e *Engine) Resize(img image.Image, scale int) (image.Image, error) {
	if scale == 100 {
		return img, nil
	}

	bounds := img.Bounds()
	width := scaleDim(bounds.Dx(), scale)
	height := scaleDim(bounds.Dy(), scale)
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("resulting dimensions too small: %dx%d (scale %d%%)", width, height, scale)
	}

	return resize.Resize(uint(width), uint(height), img, resize.Lanczos3), nil
}

// Encode writes img to w in the given format. Quality applies to JPEG
// and WebP; PNG is lossless and ignores it.
func (e *Engine) Encode(w io.Writer, img image.Image, format Format, quality int) error {
	switch format {
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case FormatPNG:
		return png.Encode(w, img)
	case FormatWebP:
		return webp.Encode(w, img, &webp.Options{Quality: float32(quality)})
	default:
		return fmt.Errorf("unsupported output format: %v", format)
	}
}

// scaleDim applies a percentage to a dimension, rounding half up.
func scaleDim(dim, scale int) int {
	return int(math.Floor(float64(dim)*float64(scale)/100 + 0.5))
}
