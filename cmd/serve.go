package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ncviewer/ncviewer/internal/assets"
	"github.com/ncviewer/ncviewer/internal/bridge"
	"github.com/ncviewer/ncviewer/internal/flags"
	"github.com/ncviewer/ncviewer/internal/host"
	"github.com/ncviewer/ncviewer/internal/log"
	"github.com/ncviewer/ncviewer/internal/protocol"
	"github.com/ncviewer/ncviewer/internal/pubsub"
)

var serveCmd = &cobra.Command{
	Use:   "serve <file>",
	Short: "Serve a G-code program over the bridge without a terminal UI",
	Long: `Serve a G-code program over the loopback bridge until interrupted.

The bridge endpoint, token and patched viewer page are printed on start so a
browser or 'ncviewer surface' can connect. The file is reloaded when it
changes on disk unless watching is disabled in the config.

Example:
  ncviewer serve part.nc
  ncviewer surface --endpoint <printed endpoint> --token <printed token>`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	c, err := validatedConfig()
	if err != nil {
		return err
	}
	cleanupLog, err := initLogging("ncviewer-serve", false)
	if err != nil {
		return err
	}
	defer cleanupLog()
	shutdownTracing, err := initTracing()
	if err != nil {
		return err
	}
	defer shutdownTracing()

	doc, err := host.OpenFile(args[0])
	if err != nil {
		return err
	}

	ch := bridge.New(c.Bridge.BridgeOptions())
	if _, err := ch.Start(); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer func() { _ = ch.Stop() }()

	opts := host.Options{
		Settings: func() protocol.Settings { return settingsFor(c) },
		Flags:    flags.WithDefaults(c.Flags),
	}
	if store := openDiagnostics(c); store != nil {
		defer func() { _ = store.Close() }()
		opts.Debug = store
	}
	sess := host.NewSession(ch, opts)
	defer sess.Close()
	doc.OnCaretMoved(func(line int) {
		if err := sess.CaretMoved(line); err != nil {
			log.ErrorErr(log.CatHost, "send caret failed", err)
		}
	})
	if err := sess.Attach(doc, doc); err != nil {
		return fmt.Errorf("attaching document: %w", err)
	}

	// Handle shutdown signals
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if c.Watch.Enabled {
		stop, err := followFile(ctx, c, sess, doc)
		if err != nil {
			log.ErrorErr(log.CatWatcher, "file watching disabled", err, "path", doc.Path())
		} else {
			defer stop()
		}
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "endpoint: %s\n", ch.Endpoint())
	_, _ = fmt.Fprintf(out, "token:    %s\n", ch.Token())
	if page := writeViewerPage(ch); page != "" {
		_, _ = fmt.Fprintf(out, "viewer:   %s\n", assets.FileURL(page))
	}
	_, _ = fmt.Fprintln(out, "Press Ctrl+C to stop")

	events := sess.Events().Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			_, _ = fmt.Fprintln(out, "\nshutting down")
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Type == pubsub.HandledEvent {
				_, _ = fmt.Fprintf(out, "%s %s\n", ev.Timestamp.Format("15:04:05"), describe(ev.Payload))
			}
		}
	}
}

// describe renders a protocol message as one short line.
func describe(msg protocol.Message) string {
	switch msg.Type {
	case protocol.TypeLoadGCode, protocol.TypeContentChanged:
		return fmt.Sprintf("%s (%d bytes, %d lines)", msg.Type, len(msg.NCText), host.CountLines(msg.NCText))
	case protocol.TypeCursorPositionChanged, protocol.TypeHighlightLine:
		return fmt.Sprintf("%s line %d", msg.Type, msg.Line())
	case protocol.TypeBridgeDebug:
		return fmt.Sprintf("%s %q", msg.Type, msg.DebugMessage)
	default:
		return msg.Type
	}
}
