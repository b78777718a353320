package logging

import (
	"context"
	"log/slog"
	"time"

	"facewatch/internal/core"
)

// LockActuatorLogger wraps a LockActuator and logs every lock request
type LockActuatorLogger struct {
	actuator core.LockActuator
	logger   *slog.Logger
}

// NewLockActuatorLogger creates a new logging decorator for LockActuator
func NewLockActuatorLogger(actuator core.LockActuator, logger *slog.Logger) core.LockActuator {
	return &LockActuatorLogger{
		actuator: actuator,
		logger:   logger.With("interface", "LockActuator"),
	}
}

func (l *LockActuatorLogger) LockWorkstation() error {
	start := time.Now()
	l.logger.Info("LockWorkstation called")

	err := l.actuator.LockWorkstation()
	duration := time.Since(start)

	if err != nil {
		l.logger.Error("LockWorkstation failed",
			"duration", duration,
			"error", err)
		return err
	}

	l.logger.Info("LockWorkstation completed",
		"duration", duration)

	return nil
}

// CameraLogger wraps a Camera and logs device acquisition
type CameraLogger struct {
	camera core.Camera
	logger *slog.Logger
}

// NewCameraLogger creates a new logging decorator for Camera
func NewCameraLogger(camera core.Camera, logger *slog.Logger) core.Camera {
	return &CameraLogger{
		camera: camera,
		logger: logger.With("interface", "Camera"),
	}
}

func (l *CameraLogger) Open(ctx context.Context) (core.CameraHandle, error) {
	start := time.Now()
	l.logger.Debug("Open called")

	handle, err := l.camera.Open(ctx)
	duration := time.Since(start)

	if err != nil {
		l.logger.Error("Open failed",
			"duration", duration,
			"error", err)
		return nil, err
	}

	l.logger.Debug("Open completed",
		"duration", duration)

	return &cameraHandleLogger{handle: handle, opened: time.Now(), logger: l.logger}, nil
}

type cameraHandleLogger struct {
	handle core.CameraHandle
	opened time.Time
	logger *slog.Logger
}

func (l *cameraHandleLogger) ReadFrame() (core.Frame, error) {
	frame, err := l.handle.ReadFrame()
	if err != nil {
		l.logger.Warn("ReadFrame failed", "error", err)
	}
	return frame, err
}

func (l *cameraHandleLogger) Release() error {
	err := l.handle.Release()
	l.logger.Debug("Release completed",
		"held", time.Since(l.opened),
		"error", err)
	return err
}

// ClassifierLogger wraps a Classifier and logs inference time
type ClassifierLogger struct {
	classifier core.Classifier
	logger     *slog.Logger
}

// NewClassifierLogger creates a new logging decorator for Classifier
func NewClassifierLogger(classifier core.Classifier, logger *slog.Logger) core.Classifier {
	return &ClassifierLogger{
		classifier: classifier,
		logger:     logger.With("interface", "Classifier"),
	}
}

func (l *ClassifierLogger) Classify(frame core.Frame) (core.Classification, error) {
	start := time.Now()
	result, err := l.classifier.Classify(frame)
	duration := time.Since(start)

	if err != nil {
		l.logger.Error("Classify failed",
			"duration", duration,
			"error", err)
		return result, err
	}

	l.logger.Debug("Classify completed",
		"verdict", result.Verdict,
		"faces", result.Faces,
		"duration", duration)

	return result, nil
}
