package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ncviewer/ncviewer/internal/config"
	"github.com/ncviewer/ncviewer/internal/diagnostics"
	"github.com/ncviewer/ncviewer/internal/presentation"
)

var (
	debugLogLimit   int
	debugLogSession string
	debugLogPrune   time.Duration
	debugLogJSON    bool
)

var debugLogCmd = &cobra.Command{
	Use:   "debuglog",
	Short: "Show debug messages reported by viewers",
	Long: `Show bridgeDebug messages persisted by earlier sessions, newest first.

Examples:
  ncviewer debuglog                    # last 50 messages
  ncviewer debuglog --session <id>     # one host session
  ncviewer debuglog --prune 168h       # drop messages older than a week`,
	Args: cobra.NoArgs,
	RunE: runDebugLog,
}

func init() {
	debugLogCmd.Flags().IntVarP(&debugLogLimit, "limit", "n", 50, "maximum messages to show")
	debugLogCmd.Flags().StringVar(&debugLogSession, "session", "", "only show this session")
	debugLogCmd.Flags().DurationVar(&debugLogPrune, "prune", 0, "delete messages older than this instead of listing")
	debugLogCmd.Flags().BoolVar(&debugLogJSON, "json", false, "print JSON")
	rootCmd.AddCommand(debugLogCmd)
}

func runDebugLog(cmd *cobra.Command, _ []string) error {
	path := cfg.Diagnostics.DBPath
	if path == "" {
		path = config.DefaultDiagnosticsPath()
	}
	if path == "" {
		return fmt.Errorf("no diagnostics database configured")
	}
	store, err := diagnostics.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if debugLogPrune > 0 {
		n, err := store.Prune(ctx, time.Now().Add(-debugLogPrune))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "pruned %d messages\n", n)
		return err
	}

	var entries []diagnostics.Entry
	if debugLogSession != "" {
		entries, err = store.Session(ctx, debugLogSession, debugLogLimit)
	} else {
		entries, err = store.Recent(ctx, debugLogLimit)
	}
	if err != nil {
		return err
	}
	return presentation.NewFormatter(cmd.OutOrStdout(), debugLogJSON).FormatDebugLog(presentation.FromEntries(entries))
}
