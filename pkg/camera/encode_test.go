package camera

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"strings"
	"testing"
)

func TestEncodeDataURL(t *testing.T) {
	url, err := EncodeDataURL(GradientFrame(64, 48), 80)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if !strings.HasPrefix(url, "data:image/jpeg;base64,") {
		t.Fatalf("unexpected prefix: %.40s", url)
	}

	data, err := DecodeDataURL(url)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("payload is not a JPEG: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("unexpected size %v", img.Bounds())
	}
}

func TestEncodeEmptyFrame(t *testing.T) {
	_, err := EncodeJPEG(image.NewRGBA(image.Rect(0, 0, 0, 10)), 80)
	if !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("expected ErrEmptyFrame, got %v", err)
	}
	if HasPixels(nil) {
		t.Error("nil image has no pixels")
	}
}

func TestDecodeDataURLBare(t *testing.T) {
	data, err := DecodeDataURL("aGVsbG8=")
	if err != nil || string(data) != "hello" {
		t.Errorf("got %q, %v", data, err)
	}
	if _, err := DecodeDataURL("data:image/png;base64,!!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
}

func TestQualityAffectsSize(t *testing.T) {
	img := GradientFrame(200, 200)
	low, err := EncodeJPEG(img, 10)
	if err != nil {
		t.Fatal(err)
	}
	high, err := EncodeJPEG(img, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(low) >= len(high) {
		t.Errorf("expected lower quality to be smaller: %d >= %d", len(low), len(high))
	}
}
