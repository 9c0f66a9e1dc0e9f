package inference

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// ErrUnsupportedFormat is returned for images that are not JPEG, PNG or GIF.
var ErrUnsupportedFormat = errors.New("inference: unsupported image format")

// MimeTypes maps accepted image formats to their media types.
var MimeTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
}

// ImageInfo describes an encoded image without decoding its pixels.
type ImageInfo struct {
	Format   string
	MimeType string
	Width    int
	Height   int
}

// InspectImage reads the header of data and checks the format is accepted.
func InspectImage(data []byte) (*ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	mime, ok := MimeTypes[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return &ImageInfo{
		Format:   format,
		MimeType: mime,
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}

// FitWithin returns the largest size with the aspect ratio of w x h that
// fits inside maxW x maxH. Sizes that already fit are returned unchanged.
func FitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	// Scale by the tighter bound; compare w/maxW and h/maxH without floats.
	if w*maxH >= h*maxW {
		return maxW, max(1, h*maxW/w)
	}
	return max(1, w*maxH/h), maxH
}
