package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"facewatch/internal/core"
	"facewatch/internal/idle"
	"facewatch/internal/logging"
	"facewatch/internal/vision"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Capture one frame and print what the face classifier sees",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			logger := logging.NewLogger(logging.LoggerConfig{
				Format: "text",
				Level:  logging.ParseLevel(cfg.Logging.Level),
				Output: os.Stderr,
			})
			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			printIdle(ctx, out, logger)

			classifier, err := vision.NewCascadeClassifier(classifierConfig(cfg.Classifier), logger)
			if err != nil {
				return err
			}
			defer classifier.Close()

			camera := vision.NewCamera(cameraConfig(cfg.Camera), logger)
			result, err := captureOnce(ctx, camera, classifier, cfg.Engine.CameraWarmup.Std())
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Verdict:     %s\n", result.Verdict)
			fmt.Fprintf(out, "Faces:       %d\n", result.Faces)
			fmt.Fprintf(out, "Brightness:  %.1f (minimum %.1f)\n", result.Brightness, cfg.Classifier.MinBrightness)
			return nil
		},
	}
}

func printIdle(ctx context.Context, out io.Writer, logger *slog.Logger) {
	provider, err := idle.NewProvider(ctx, logger)
	if err != nil {
		fmt.Fprintf(out, "Idle time:   unavailable (%v)\n", err)
		return
	}
	if c, ok := provider.(io.Closer); ok {
		defer c.Close()
	}

	d, err := provider.IdleTime(ctx)
	if err != nil {
		fmt.Fprintf(out, "Idle time:   error (%v)\n", err)
		return
	}
	fmt.Fprintf(out, "Idle time:   %s\n", d.Truncate(time.Second))
}

// captureOnce opens the camera, waits for exposure to settle and classifies one frame
func captureOnce(ctx context.Context, camera core.Camera, classifier core.Classifier, warmup time.Duration) (core.Classification, error) {
	h, err := camera.Open(ctx)
	if err != nil {
		return core.Classification{}, err
	}
	defer h.Release()

	select {
	case <-time.After(warmup):
	case <-ctx.Done():
		return core.Classification{}, ctx.Err()
	}

	frame, err := h.ReadFrame()
	if err != nil {
		return core.Classification{}, err
	}
	defer frame.Close()

	return classifier.Classify(frame)
}
