package codec

import (
	"image"

	exif "github.com/dsoprea/go-exif/v3"
)

// applyOrientation rewrites img according to the EXIF Orientation tag
// found in raw, if any. Missing or unreadable EXIF leaves the image as
// decoded.
func applyOrientation(img image.Image, raw []byte) image.Image {
	switch o := readOrientation(raw); o {
	case 2, 3, 4, 5, 6, 7, 8:
		return reorient(img, o)
	default:
		return img
	}
}

// readOrientation returns the EXIF Orientation value (1-8), or 1 when
// the tag is absent or the EXIF block cannot be parsed.
func readOrientation(raw []byte) int {
	rawExif, err := exif.SearchAndExtractExif(raw)
	if err != nil {
		return 1
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return 1
	}

	for _, entry := range entries {
		if entry.TagName != "Orientation" {
			continue
		}
		if values, ok := entry.Value.([]uint16); ok && len(values) > 0 {
			return int(values[0])
		}
	}
	return 1
}

// reorient maps source pixels into an upright copy for EXIF
// orientations 2-8. Orientations 5-8 swap the output dimensions.
func reorient(img image.Image, orientation int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	var dst *image.RGBA
	if orientation >= 5 {
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
	} else {
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.At(bounds.Min.X+x, bounds.Min.Y+y)
			switch orientation {
			case 2: // mirrored horizontally
				dst.Set(w-1-x, y, c)
			case 3: // rotated 180
				dst.Set(w-1-x, h-1-y, c)
			case 4: // mirrored vertically
				dst.Set(x, h-1-y, c)
			case 5: // mirrored then rotated 270 CW
				dst.Set(y, x, c)
			case 6: // rotated 90 CW
				dst.Set(h-1-y, x, c)
			case 7: // mirrored then rotated 90 CW
				dst.Set(h-1-y, w-1-x, c)
			case 8: // rotated 270 CW
				dst.Set(y, w-1-x, c)
			}
		}
	}
	return dst
}
