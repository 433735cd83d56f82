package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/spf13/cobra"

	"github.com/ncviewer/ncviewer/internal/assets"
	"github.com/ncviewer/ncviewer/internal/bridge"
	"github.com/ncviewer/ncviewer/internal/config"
	"github.com/ncviewer/ncviewer/internal/diagnostics"
	"github.com/ncviewer/ncviewer/internal/flags"
	"github.com/ncviewer/ncviewer/internal/host"
	"github.com/ncviewer/ncviewer/internal/log"
	"github.com/ncviewer/ncviewer/internal/protocol"
	"github.com/ncviewer/ncviewer/internal/surface"
	"github.com/ncviewer/ncviewer/internal/tui"
	"github.com/ncviewer/ncviewer/internal/watcher"
)

var (
	openNoSurface bool
	openNoWatch   bool
)

var openCmd = &cobra.Command{
	Use:   "open <file>",
	Short: "Open a G-code program in the terminal and serve it to a viewer",
	Long: `Open a G-code program, start the loopback bridge and show the program
with its caret. A patched viewer page is written next to the extracted
viewer assets; open it in a browser to see the toolpath. Unless
--no-surface is given a headless surface also runs in-process so segment
stepping works without a browser.

Examples:
  ncviewer open part.nc
  ncviewer open --no-surface part.nc     # browser only
  ncviewer open --no-watch part.nc       # do not follow edits on disk`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

func init() {
	openCmd.Flags().BoolVar(&openNoSurface, "no-surface", false, "do not run the in-process surface")
	openCmd.Flags().BoolVar(&openNoWatch, "no-watch", false, "do not reload the file when it changes")
	rootCmd.AddCommand(openCmd)
}

func runOpen(_ *cobra.Command, args []string) error {
	c, err := validatedConfig()
	if err != nil {
		return err
	}
	cleanupLog, err := initLogging("ncviewer-open", true)
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

	page := writeViewerPage(ch)

	registry := flags.WithDefaults(c.Flags)
	store := openDiagnostics(c)
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	opts := host.Options{
		Settings: func() protocol.Settings { return settingsFor(c) },
		Flags:    registry,
	}
	if store != nil {
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if c.Watch.Enabled && !openNoWatch {
		stop, err := followFile(ctx, c, sess, doc)
		if err != nil {
			log.ErrorErr(log.CatWatcher, "file watching disabled", err, "path", doc.Path())
		} else {
			defer stop()
		}
	}

	tcfg := tui.Config{
		Doc:      doc,
		Session:  sess,
		Activity: ch.Activity(),
		Reload: func() error {
			_, err := host.Refresh(sess, doc)
			return err
		},
		Info:  tui.Info{Path: doc.Path(), Endpoint: ch.Endpoint(), Page: page},
		Theme: c.Viewer.Theme,
	}

	if !openNoSurface {
		s := surface.New(surface.Config{
			Endpoint: ch.Endpoint(),
			Token:    ch.Token(),
			Viewer:   viewerOptions(c),
		})
		tcfg.Engine = s.Engine()
		tcfg.Surface = s.Events()
		go func() {
			if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.ErrorErr(log.CatSurface, "surface stopped", err)
			}
		}()
	}

	zone.NewGlobal()
	model := tui.New(ctx, tcfg)
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	if page != "" {
		fmt.Fprintf(os.Stderr, "viewer page: %s\n", assets.FileURL(page))
	}
	return nil
}

// writeViewerPage extracts the viewer assets and patches in the bridge
// endpoint. It returns "" when the page could not be written.
func writeViewerPage(ch *bridge.Channel) string {
	dir, err := assets.EnsureExtracted()
	if err != nil {
		log.ErrorErr(log.CatHost, "extracting viewer assets failed", err)
		return ""
	}
	page, err := assets.PatchIndex(dir, ch.EndpointScript())
	if err != nil {
		log.ErrorErr(log.CatHost, "patching viewer page failed", err)
		return ""
	}
	log.Info(log.CatHost, "viewer page ready", "url", assets.FileURL(page))
	return page
}

// openDiagnostics opens the debug message store, or returns nil when it
// cannot be opened.
func openDiagnostics(c config.Config) *diagnostics.Store {
	path := c.Diagnostics.DBPath
	if path == "" {
		path = config.DefaultDiagnosticsPath()
	}
	if path == "" {
		return nil
	}
	store, err := diagnostics.Open(path)
	if err != nil {
		log.ErrorErr(log.CatDB, "opening diagnostics store failed", err, "path", path)
		return nil
	}
	return store
}

// followFile reloads doc when it changes on disk. The returned func stops
// the watcher.
func followFile(ctx context.Context, c config.Config, sess *host.Session, doc *host.FileDocument) (func(), error) {
	wcfg := watcher.DefaultConfig(doc.Path())
	if c.Watch.Debounce > 0 {
		wcfg.Debounce = c.Watch.Debounce
	}
	w, err := watcher.New(wcfg)
	if err != nil {
		return nil, err
	}
	changes, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return nil, err
	}
	go host.Follow(ctx, sess, doc, changes)
	return func() { _ = w.Stop() }, nil
}
