package imgutil

import (
	"errors"
	"io"
	"os"
)

// Kind identifies a supported input image type.
type Kind int

const (
	KindUnknown Kind = iota
	KindJPEG
	KindPNG
	KindGIF
	KindWebP
	KindBMP
	KindTIFF
	KindICO
)

func (k Kind) String() string {
	switch k {
	case KindJPEG:
		return "jpeg"
	case KindPNG:
		return "png"
	case KindGIF:
		return "gif"
	case KindWebP:
		return "webp"
	case KindBMP:
		return "bmp"
	case KindTIFF:
		return "tiff"
	case KindICO:
		return "ico"
	default:
		return "unknown"
	}
}

const headerLen = 12

var (
	pngSig    = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	jpegSig   = []byte{0xff, 0xd8, 0xff}
	gifSig    = []byte("GIF8")
	riffSig   = []byte("RIFF")
	webpSig   = []byte("WEBP")
	bmpSig    = []byte("BM")
	icoSig    = []byte{0x00, 0x00, 0x01, 0x00}
	tiffSigLE = []byte{0x49, 0x49, 0x2a, 0x00}
	tiffSigBE = []byte{0x4d, 0x4d, 0x00, 0x2a}
)

// DetectHeader inspects the first 12 bytes of a file for known signatures.
func DetectHeader(header []byte) (Kind, error) {
	if len(header) < headerLen {
		return KindUnknown, errors.New("header too short")
	}

	switch {
	case hasPrefix(header, jpegSig):
		return KindJPEG, nil
	case hasPrefix(header, pngSig):
		return KindPNG, nil
	case hasPrefix(header, gifSig):
		return KindGIF, nil
	case hasPrefix(header, riffSig) && hasPrefix(header[8:], webpSig):
		return KindWebP, nil
	case hasPrefix(header, bmpSig):
		return KindBMP, nil
	case hasPrefix(header, icoSig):
		return KindICO, nil
	case hasPrefix(header, tiffSigLE), hasPrefix(header, tiffSigBE):
		return KindTIFF, nil
	}

	return KindUnknown, nil
}

// SniffFile reads the first 12 bytes of a file to determine its type.
func SniffFile(path string) (Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return KindUnknown, err
	}
	defer f.Close()

	return SniffReader(f)
}

// SniffReader reads the first 12 bytes from r and determines its type.
func SniffReader(r io.Reader) (Kind, error) {
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return KindUnknown, err
	}

	return DetectHeader(header)
}

func hasPrefix(buf, prefix []byte) bool {
	if len(buf) < len(prefix) {
		return false
	}
	for i := range prefix {
		if buf[i] != prefix[i] {
			return false
		}
	}
	return true
}
