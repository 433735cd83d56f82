package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ncviewer/ncviewer/internal/pubsub"
	"github.com/ncviewer/ncviewer/internal/surface"
	"github.com/ncviewer/ncviewer/internal/viewer"
)

var (
	surfaceEndpoint string
	surfaceToken    string
)

var surfaceCmd = &cobra.Command{
	Use:   "surface",
	Short: "Run a headless rendering surface against a bridge",
	Long: `Connect to a running bridge, follow the program and caret it publishes
and print every applied message with the resulting selection.

The token may also be given in NCVIEWER_TOKEN.

Example:
  ncviewer surface --endpoint http://127.0.0.1:41234/ncbridge --token 3f2c...`,
	Args: cobra.NoArgs,
	RunE: runSurface,
}

func init() {
	surfaceCmd.Flags().StringVar(&surfaceEndpoint, "endpoint", "", "bridge endpoint (required)")
	surfaceCmd.Flags().StringVar(&surfaceToken, "token", "", "bridge token (default: $NCVIEWER_TOKEN)")
	_ = surfaceCmd.MarkFlagRequired("endpoint")
	rootCmd.AddCommand(surfaceCmd)
}

func runSurface(cmd *cobra.Command, _ []string) error {
	c, err := validatedConfig()
	if err != nil {
		return err
	}
	cleanupLog, err := initLogging("ncviewer-surface", false)
	if err != nil {
		return err
	}
	defer cleanupLog()
	shutdownTracing, err := initTracing()
	if err != nil {
		return err
	}
	defer shutdownTracing()

	token := surfaceToken
	if token == "" {
		token = os.Getenv("NCVIEWER_TOKEN")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s := surface.New(surface.Config{
		Endpoint: surfaceEndpoint,
		Token:    token,
		Viewer:   viewerOptions(c),
	})
	events := s.Events().Subscribe(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	out := cmd.OutOrStdout()
	for {
		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("surface: %w", err)
			}
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			switch ev.Type {
			case pubsub.ConnectedEvent:
				_, _ = fmt.Fprintf(out, "connected to %s\n", surfaceEndpoint)
			case pubsub.HandledEvent:
				sum := s.Engine().Summary()
				_, _ = fmt.Fprintf(out, "%s %s -> %s\n", ev.Timestamp.Format("15:04:05"), describe(ev.Payload), selectionText(sum))
			}
		}
	}
}

// selectionText summarises the engine state after a message.
func selectionText(s viewer.Summary) string {
	if s.State != viewer.Loaded {
		return "no toolpath"
	}
	if !s.Selected {
		return fmt.Sprintf("%d segments, nothing selected", s.Segments)
	}
	return fmt.Sprintf("segments %d-%d of %d, lines %v, end (%s, %s, %s)",
		s.Selection.Start, s.Selection.End, s.Segments, s.Lines, s.X, s.Y, s.Z)
}
