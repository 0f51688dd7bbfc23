package codec

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestScaleDimRoundsHalfUp(t *testing.T) {
	cases := []struct {
		dim, scale, want int
	}{
		{100, 50, 50},
		{5, 50, 3},     // 2.5 rounds up
		{199, 50, 100}, // 99.5 rounds up
		{3, 25, 1},     // 0.75 rounds up
		{1, 25, 0},     // 0.25 rounds down
		{640, 75, 480},
	}
	for _, c := range cases {
		if got := scaleDim(c.dim, c.scale); got != c.want {
			t.Errorf("scaleDim(%d, %d) = %d, want %d", c.dim, c.scale, got, c.want)
		}
	}
}

func TestResize(t *testing.T) {
	eng := NewEngine()
	img := image.NewRGBA(image.Rect(0, 0, 5, 4))

	resized, err := eng.Resize(img, 50)
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	bounds := resized.Bounds()
	if bounds.Dx() != 3 || bounds.Dy() != 2 {
		t.Fatalf("expected 3x2, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestResizeScale100IsIdentity(t *testing.T) {
	eng := NewEngine()
	img := image.NewRGBA(image.Rect(0, 0, 5, 4))

	resized, err := eng.Resize(img, 100)
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if resized != image.Image(img) {
		t.Fatal("scale 100 should return the decoded image unchanged")
	}
}

func TestResizeTooSmall(t *testing.T) {
	eng := NewEngine()
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	if _, err := eng.Resize(img, 25); err == nil {
		t.Fatal("expected an error for zero result dimensions")
	}
}

func TestParseFormats(t *testing.T) {
	formats, err := ParseFormats([]string{"jpg", "WEBP", "jpeg", "png"})
	if err != nil {
		t.Fatalf("ParseFormats: %v", err)
	}
	want := []Format{FormatJPEG, FormatWebP, FormatPNG}
	if len(formats) != len(want) {
		t.Fatalf("expected %v, got %v", want, formats)
	}
	for i := range want {
		if formats[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, formats)
		}
	}

	if _, err := ParseFormats([]string{"jpg", "avif"}); err == nil {
		t.Fatal("expected an error for an unsupported format")
	}
}

func TestEncodeJPEGRoundTrip(t *testing.T) {
	eng := NewEngine()
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.Set(x, y, color.RGBA{R: 0xc0, G: 0x40, B: 0x20, A: 0xff})
		}
	}

	var buf bytes.Buffer
	if err := eng.Encode(&buf, src, FormatJPEG, 80); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, kind, err := image.Decode(&buf)
	if err != nil {
		t.Fatalf("decode round trip: %v", err)
	}
	if kind != "jpeg" {
		t.Fatalf("expected jpeg, got %s", kind)
	}
	if decoded.Bounds().Dx() != 4 || decoded.Bounds().Dy() != 4 {
		t.Fatalf("dimensions changed: %v", decoded.Bounds())
	}
}

func TestDecodePNGFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.png")

	img := image.NewRGBA(image.Rect(0, 0, 6, 3))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	decoded, err := NewEngine().Decode(path)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Bounds().Dx() != 6 || decoded.Bounds().Dy() != 3 {
		t.Fatalf("unexpected dimensions: %v", decoded.Bounds())
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "garbage.png")
	if err := os.WriteFile(path, []byte("definitely not pixels"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := NewEngine().Decode(path); err == nil {
		t.Fatal("expected a decode error")
	}
}

func TestDecodeMissingFile(t *testing.T) {
	if _, err := NewEngine().Decode(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
