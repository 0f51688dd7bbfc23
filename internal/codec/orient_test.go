package codec

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
)

// buildJPEGWithOrientation encodes a 2x1 JPEG and splices an EXIF APP1
// segment carrying the given Orientation value in right after SOI.
func buildJPEGWithOrientation(t *testing.T, path string, orientation uint16) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 0xff, A: 0xff})
	img.Set(1, 0, color.RGBA{B: 0xff, A: 0xff})

	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	data := jpg.Bytes()

	exifPayload := append([]byte("Exif\x00\x00"), buildExifTIFF(orientation)...)

	var out bytes.Buffer
	out.Write(data[:2]) // SOI
	out.Write([]byte{0xff, 0xe1})
	_ = binary.Write(&out, binary.BigEndian, uint16(len(exifPayload)+2))
	out.Write(exifPayload)
	out.Write(data[2:])

	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

// buildExifTIFF builds a minimal little-endian TIFF block with a single
// IFD0 entry: Orientation (0x0112, SHORT).
func buildExifTIFF(orientation uint16) []byte {
	var tiff bytes.Buffer
	tiff.Write([]byte{0x49, 0x49, 0x2a, 0x00})
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(8))  // IFD0 offset
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(1))  // entry count
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(0x0112))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(3))  // SHORT
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(1))  // count
	_ = binary.Write(&tiff, binary.LittleEndian, orientation)
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(0))  // value padding
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(0))  // no next IFD
	return tiff.Bytes()
}

func TestReadOrientation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rotated.jpg")
	buildJPEGWithOrientation(t, path, 6)

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	if got := readOrientation(raw); got != 6 {
		t.Fatalf("expected orientation 6, got %d", got)
	}
}

func TestReadOrientationAbsent(t *testing.T) {
	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, image.NewRGBA(image.Rect(0, 0, 2, 2)), nil); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	if got := readOrientation(jpg.Bytes()); got != 1 {
		t.Fatalf("expected default orientation 1, got %d", got)
	}
}

func TestDecodeAppliesOrientation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rotated.jpg")
	buildJPEGWithOrientation(t, path, 6)

	decoded, err := NewEngine().Decode(path)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	bounds := decoded.Bounds()
	if bounds.Dx() != 1 || bounds.Dy() != 2 {
		t.Fatalf("orientation 6 should swap dimensions, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestReorientDimensions(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))

	for _, o := range []int{2, 3, 4} {
		got := reorient(img, o).Bounds()
		if got.Dx() != 3 || got.Dy() != 2 {
			t.Errorf("orientation %d: expected 3x2, got %dx%d", o, got.Dx(), got.Dy())
		}
	}
	for _, o := range []int{5, 6, 7, 8} {
		got := reorient(img, o).Bounds()
		if got.Dx() != 2 || got.Dy() != 3 {
			t.Errorf("orientation %d: expected 2x3, got %dx%d", o, got.Dx(), got.Dy())
		}
	}
}

func TestReorientRotate180(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 0xff, A: 0xff})
	img.Set(1, 0, color.RGBA{B: 0xff, A: 0xff})

	rotated := reorient(img, 3)
	r, _, _, _ := rotated.At(1, 0).RGBA()
	if r>>8 != 0xff {
		t.Fatalf("expected the red pixel on the right after 180 rotation, got %v", rotated.At(1, 0))
	}
}
