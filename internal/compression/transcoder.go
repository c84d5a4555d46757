package compression

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// DefaultQuality matches an encoder quality factor of 0.8.
const DefaultQuality = 80

// OutputMimeType is the format every compressed image ends up in.
const OutputMimeType = "image/jpeg"

// Transcoder re-encodes an image payload into a smaller lossy form.
type Transcoder interface {
	Transcode(blob []byte) ([]byte, string, error)
}

// JPEGTranscoder decodes any format imaging understands (plus WebP) and
// writes a baseline JPEG. Transparent areas are flattened onto white.
type JPEGTranscoder struct {
	Quality int
}

func NewJPEGTranscoder(quality int) JPEGTranscoder {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return JPEGTranscoder{Quality: quality}
}

func (t JPEGTranscoder) Transcode(blob []byte) ([]byte, string, error) {
	src, err := imaging.Decode(bytes.NewReader(blob), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	canvas := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	flat := imaging.Overlay(canvas, src, image.Pt(0, 0), 1.0)

	quality := t.Quality
	if quality <= 0 {
		quality = DefaultQuality
	}
	var out bytes.Buffer
	if err := imaging.Encode(&out, flat, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, "", fmt.Errorf("encode jpeg: %w", err)
	}
	return out.Bytes(), OutputMimeType, nil
}
