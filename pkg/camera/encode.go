package camera

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"strings"
)

// JPEGMimeType is the media type of every encoded still.
const JPEGMimeType = "image/jpeg"

// ErrEmptyFrame is returned when encoding a frame without pixels.
var ErrEmptyFrame = errors.New("camera: frame has zero dimensions")

// HasPixels reports whether img is non-nil with non-zero dimensions.
func HasPixels(img image.Image) bool {
	if img == nil {
		return false
	}
	b := img.Bounds()
	return b.Dx() > 0 && b.Dy() > 0
}

// EncodeJPEG encodes img as JPEG. quality is clamped to 1-100.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if !HasPixels(img) {
		return nil, ErrEmptyFrame
	}
	if quality < 1 {
		quality = 1
	} else if quality > 100 {
		quality = 100
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL wraps encoded bytes in a base64 data URL.
func DataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// EncodeDataURL encodes img as a JPEG data URL, the text-safe form sent to
// the inference backend.
func EncodeDataURL(img image.Image, quality int) (string, error) {
	data, err := EncodeJPEG(img, quality)
	if err != nil {
		return "", err
	}
	return DataURL(JPEGMimeType, data), nil
}

// DecodeDataURL returns the payload of a base64 data URL. A bare base64
// string without the "data:...;base64," prefix is accepted too.
func DecodeDataURL(s string) ([]byte, error) {
	if i := strings.Index(s, "base64,"); i >= 0 {
		s = s[i+len("base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return data, nil
}
