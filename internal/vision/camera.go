// Package vision captures webcam frames and classifies them with an OpenCV Haar cascade.
package vision

import (
	"context"
	"fmt"
	"log/slog"

	"gocv.io/x/gocv"

	"facewatch/internal/core"
)

// CameraConfig selects and sizes the capture device
type CameraConfig struct {
	DeviceID int // OpenCV device index (default: 0)
	Width    int // requested frame width, 0 keeps the driver default
	Height   int // requested frame height, 0 keeps the driver default
}

// Frame is a captured BGR image
type Frame struct {
	Mat gocv.Mat
}

// Close releases the image memory
func (f *Frame) Close() error {
	return f.Mat.Close()
}

// Camera opens the webcam for one sample at a time. It holds no device between samples.
type Camera struct {
	config CameraConfig
	logger *slog.Logger
}

// NewCamera creates a camera for the given device
func NewCamera(config CameraConfig, logger *slog.Logger) *Camera {
	return &Camera{
		config: config,
		logger: logger.With("component", "camera", "device", config.DeviceID),
	}
}

// Open acquires the capture device
func (c *Camera) Open(ctx context.Context) (core.CameraHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	capture, err := gocv.OpenVideoCapture(c.config.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrCameraUnavailable, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: device %d did not open", core.ErrCameraUnavailable, c.config.DeviceID)
	}

	if c.config.Width > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(c.config.Width))
	}
	if c.config.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameHeight, float64(c.config.Height))
	}

	c.logger.Debug("camera opened")
	return &handle{capture: capture, logger: c.logger}, nil
}

type handle struct {
	capture  *gocv.VideoCapture
	released bool
	logger   *slog.Logger
}

// ReadFrame grabs one frame. The caller owns the returned frame.
func (h *handle) ReadFrame() (core.Frame, error) {
	mat := gocv.NewMat()
	if ok := h.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, core.ErrEmptyFrame
	}
	return &Frame{Mat: mat}, nil
}

// Release closes the capture device; repeated calls are no-ops
func (h *handle) Release() error {
	if h.released {
		return nil
	}
	h.released = true
	h.logger.Debug("camera released")
	return h.capture.Close()
}

// Probe opens the camera, reads one frame and releases it.
// Used at startup to fail fast when no usable camera is attached.
func Probe(ctx context.Context, camera core.Camera, logger *slog.Logger) error {
	h, err := camera.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := h.Release(); err != nil {
			logger.Warn("error releasing camera after probe", "component", "camera", "error", err)
		}
	}()

	frame, err := h.ReadFrame()
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrCameraUnavailable, err)
	}
	return frame.Close()
}

var (
	_ core.Camera       = (*Camera)(nil)
	_ core.CameraHandle = (*handle)(nil)
	_ core.Frame        = (*Frame)(nil)
)
