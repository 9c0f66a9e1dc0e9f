package backend

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/snapsolve/pkg/camera"
	"github.com/teslashibe/snapsolve/pkg/inference"
)

// ErrTooManyPixels rejects images whose header claims more pixels than
// the server is willing to decode.
var ErrTooManyPixels = errors.New("image exceeds pixel limit")

type processRequest struct {
	Image *string `json:"image"`
}

type processResponse struct {
	Success   bool   `json:"success"`
	Solution  string `json:"solution"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleProcessImage(c *fiber.Ctx) error {
	if !c.Is("json") {
		return errorJSON(c, fiber.StatusUnsupportedMediaType, MsgContentType)
	}

	var req processRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, prefixImageFailed+"invalid JSON body")
	}
	if req.Image == nil {
		return errorJSON(c, fiber.StatusBadRequest, MsgNoImage)
	}

	img, err := s.prepareImage(*req.Image)
	if err != nil {
		s.logger.Warn("rejected image", "error", err)
		return errorJSON(c, fiber.StatusBadRequest, prefixImageFailed+err.Error())
	}

	start := time.Now()
	resp, err := s.provider.Vision(c.UserContext(), &inference.VisionRequest{
		Image:       img.data,
		MimeType:    img.mimeType,
		Prompt:      Prompt,
		Model:       s.cfg.Model,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err == nil && resp.Content == "" {
		err = errors.New(MsgNoResponse)
	}
	if err != nil {
		s.logger.Error("vision request failed", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, prefixAIFailed+err.Error())
	}

	s.logger.Info("image analyzed",
		"width", img.width,
		"height", img.height,
		"resized", img.resized,
		"latency_ms", time.Since(start).Milliseconds(),
		"tokens", resp.Usage.TotalTokens,
	)

	return c.JSON(processResponse{
		Success:   true,
		Solution:  resp.Content,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

type preparedImage struct {
	data          []byte
	mimeType      string
	width, height int
	resized       bool
}

// prepareImage decodes the payload, checks its format and pixel count
// from the header, and downscales it to fit the configured bounds.
func (s *Server) prepareImage(payload string) (*preparedImage, error) {
	data, err := camera.DecodeDataURL(payload)
	if err != nil {
		return nil, err
	}
	info, err := inference.InspectImage(data)
	if err != nil {
		return nil, err
	}
	if s.cfg.MaxPixels > 0 && int64(info.Width)*int64(info.Height) > s.cfg.MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooManyPixels, info.Width, info.Height)
	}

	out := &preparedImage{
		data:     data,
		mimeType: info.MimeType,
		width:    info.Width,
		height:   info.Height,
	}

	w, h := inference.FitWithin(info.Width, info.Height, s.cfg.MaxWidth, s.cfg.MaxHeight)
	if w == info.Width && h == info.Height {
		return out, nil
	}

	resized, err := resizeImage(data, w, h)
	if err != nil {
		return nil, err
	}
	out.data = resized
	out.mimeType = camera.JPEGMimeType
	out.width, out.height = w, h
	out.resized = true
	return out, nil
}
