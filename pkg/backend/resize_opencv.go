//go:build opencv

package backend

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// resizeImage decodes data, scales it to w x h, and re-encodes it as JPEG.
func resizeImage(data []byte, w, h int) ([]byte, error) {
	src, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	defer src.Close()
	if src.Empty() {
		return nil, fmt.Errorf("decode: empty image")
	}

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Resize(src, &dst, image.Pt(w, h), 0, 0, gocv.InterpolationArea)

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, dst, []int{gocv.IMWriteJpegQuality, resizeQuality})
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
