package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"facewatch/config"
	"facewatch/internal/agent"
	"facewatch/internal/core"
	"facewatch/internal/logging"
)

var errAPIDisabled = errors.New("status API is disabled (api.listen is empty)")

// newStatusClient points a client at the daemon's status API
func newStatusClient(cfg *config.Config) (*agent.HTTPStatusClient, error) {
	if cfg.API.Listen == "" {
		return nil, errAPIDisabled
	}
	logger := logging.NewLogger(logging.LoggerConfig{
		Format: "text",
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Output: os.Stderr,
	})
	return agent.NewHTTPStatusClient(apiBaseURL(cfg.API.Listen), cfg.API.Token, logger), nil
}

// apiBaseURL turns a listen address into a URL; a bare ":port" means loopback
func apiBaseURL(listen string) string {
	if strings.HasPrefix(listen, ":") {
		listen = "127.0.0.1" + listen
	}
	return "http://" + listen
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the running daemon's engine state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			client, err := newStatusClient(cfg)
			if err != nil {
				return err
			}

			snap, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), snap)
			}
			printSnapshot(cmd.OutOrStdout(), snap)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON snapshot")
	return cmd
}

func newEventsCmd(opts *rootOptions) *cobra.Command {
	var (
		limit  int
		kind   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recent journaled events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			client, err := newStatusClient(cfg)
			if err != nil {
				return err
			}

			events, err := client.Events(cmd.Context(), limit, core.EventKind(kind))
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), events)
			}
			printEvents(cmd.OutOrStdout(), events)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of events to show")
	cmd.Flags().StringVar(&kind, "kind", "", "only show events of this kind")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func printSnapshot(w io.Writer, snap *agent.Snapshot) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "State:\t%s\n", snap.State)
	fmt.Fprintf(tw, "Score:\t%d\n", snap.Score)
	fmt.Fprintf(tw, "Lock flag:\t%t\n", snap.LockFlag)
	fmt.Fprintf(tw, "Session locked:\t%t (self-locked: %t)\n", snap.SessionLocked, snap.SelfLocked)
	fmt.Fprintf(tw, "Session monitoring:\t%t\n", snap.SessionMonitoring)
	fmt.Fprintf(tw, "Idle:\t%ds\n", snap.IdleSeconds)
	fmt.Fprintf(tw, "Cooldown remaining:\t%.1fs\n", snap.CooldownSeconds)
	if snap.LastSampleAt != nil {
		fmt.Fprintf(tw, "Last sample:\t%s (%s)\n", snap.LastSampleAt.Local().Format(time.DateTime), snap.LastVerdict)
	}
	fmt.Fprintf(tw, "Ticks:\t%d (skipped %d)\n", snap.Stats.Ticks, snap.Stats.SkippedSuspended)
	fmt.Fprintf(tw, "Camera activations:\t%d\n", snap.Stats.CameraActivations)
	fmt.Fprintf(tw, "Faces / inconclusive:\t%d / %d\n", snap.Stats.FacesDetected, snap.Stats.Inconclusive)
	fmt.Fprintf(tw, "Aborted samples:\t%d\n", snap.Stats.AbortedSamples)
	fmt.Fprintf(tw, "Locks:\t%d\n", snap.Stats.LockEvents)
}

func printEvents(w io.Writer, events []*core.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "TIME\tKIND\tSCORE\tSELF\tDETAIL")
	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%t\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime), e.Kind, e.Score, e.SelfLock, e.Detail)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
