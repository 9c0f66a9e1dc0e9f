//go:build !opencv

package backend

import (
	"bytes"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/teslashibe/snapsolve/pkg/camera"
)

// resizeImage decodes data, scales it to w x h, and re-encodes it as JPEG.
func resizeImage(data []byte, w, h int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return camera.EncodeJPEG(dst, resizeQuality)
}
