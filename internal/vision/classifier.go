package vision

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"facewatch/internal/core"
)

// ErrUnsupportedFrame is returned when Classify receives a frame this package did not capture
var ErrUnsupportedFrame = errors.New("unsupported frame type")

// ClassifierConfig tunes the cascade detector
type ClassifierConfig struct {
	CascadePath   string  // Haar cascade XML, e.g. haarcascade_frontalface_alt.xml
	MinBrightness float64 // mean grayscale level below which a frame is inconclusive (default: 30)
	MinFaceSize   int     // smallest face edge in pixels (default: 40)
	ScaleFactor   float64 // pyramid step (default: 1.1)
	MinNeighbors  int     // overlapping detections required (default: 5)
}

// DefaultClassifierConfig returns the stock detector tuning
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		CascadePath:   "haarcascade_frontalface_alt.xml",
		MinBrightness: 30,
		MinFaceSize:   40,
		ScaleFactor:   1.1,
		MinNeighbors:  5,
	}
}

// CascadeClassifier detects frontal faces with a Haar cascade
type CascadeClassifier struct {
	config  ClassifierConfig
	cascade gocv.CascadeClassifier
	mu      sync.Mutex // protects the cascade
	logger  *slog.Logger
}

// NewCascadeClassifier loads the cascade file
func NewCascadeClassifier(config ClassifierConfig, logger *slog.Logger) (*CascadeClassifier, error) {
	if _, err := os.Stat(config.CascadePath); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrClassifierUnavailable, err)
	}

	cascade := gocv.NewCascadeClassifier()
	if !cascade.Load(config.CascadePath) {
		cascade.Close()
		return nil, fmt.Errorf("%w: failed to load %s", core.ErrClassifierUnavailable, config.CascadePath)
	}

	return &CascadeClassifier{
		config:  config,
		cascade: cascade,
		logger:  logger.With("component", "classifier"),
	}, nil
}

// Classify reports whether a face is visible. Frames darker than MinBrightness are
// inconclusive without running the detector.
func (c *CascadeClassifier) Classify(frame core.Frame) (core.Classification, error) {
	f, ok := frame.(*Frame)
	if !ok || f == nil {
		return core.Classification{}, ErrUnsupportedFrame
	}
	if f.Mat.Empty() {
		return core.Classification{}, core.ErrEmptyFrame
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if f.Mat.Channels() == 1 {
		f.Mat.CopyTo(&gray)
	} else {
		gocv.CvtColor(f.Mat, &gray, gocv.ColorBGRToGray)
	}

	brightness := gray.Mean().Val1
	if brightness < c.config.MinBrightness {
		c.logger.Debug("low light, skipping detection", "brightness", brightness)
		return verdictFor(brightness, c.config.MinBrightness, 0), nil
	}

	gocv.EqualizeHist(gray, &gray)

	c.mu.Lock()
	faces := c.cascade.DetectMultiScaleWithParams(
		gray,
		c.config.ScaleFactor,
		c.config.MinNeighbors,
		0,
		image.Pt(c.config.MinFaceSize, c.config.MinFaceSize),
		image.Pt(0, 0),
	)
	c.mu.Unlock()

	return verdictFor(brightness, c.config.MinBrightness, len(faces)), nil
}

// Close releases the cascade
func (c *CascadeClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cascade.Close()
}

func verdictFor(brightness, minBrightness float64, faces int) core.Classification {
	result := core.Classification{Brightness: brightness}
	switch {
	case brightness < minBrightness:
		result.Verdict = core.VerdictInconclusive
	case faces > 0:
		result.Verdict = core.VerdictPresent
		result.Faces = faces
	default:
		result.Verdict = core.VerdictAbsent
	}
	return result
}

var _ core.Classifier = (*CascadeClassifier)(nil)
