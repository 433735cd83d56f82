package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ncviewer/ncviewer/internal/config"
	"github.com/ncviewer/ncviewer/internal/presentation"
	"github.com/ncviewer/ncviewer/internal/toolpath"
)

var excludeJSON bool

var excludeCmd = &cobra.Command{
	Use:   "exclude",
	Short: "Show or change the codes that never move the tool",
	Long: `Show the exclude codes sent with every program. Subcommands rewrite
settings.exclude_codes in the config file, keeping its comments.

Examples:
  ncviewer exclude                     # show the effective list
  ncviewer exclude set G28 G53 M6      # replace the list
  ncviewer exclude set                 # exclude nothing
  ncviewer exclude reset               # back to the built-in list`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		codes := cfg.Settings.ExcludeCodes
		if codes == nil {
			codes = toolpath.DefaultExcludeCodes
		}
		return presentation.NewFormatter(cmd.OutOrStdout(), excludeJSON).
			FormatCodes(toolpath.NewExcludeSet(codes).Codes())
	},
}

var excludeSetCmd = &cobra.Command{
	Use:   "set [code...]",
	Short: "Replace the exclude list",
	RunE: func(cmd *cobra.Command, args []string) error {
		codes := toolpath.NewExcludeSet(args).Codes()
		if err := config.ValidateSettings(config.SettingsConfig{ExcludeCodes: codes}); err != nil {
			return err
		}
		path := configPath()
		if err := config.SaveExcludeCodes(path, codes); err != nil {
			return err
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "saved %d exclude codes to %s\n", len(codes), path)
		return err
	},
}

var excludeResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove the exclude list so the built-in codes apply",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := configPath()
		if err := config.SaveExcludeCodes(path, nil); err != nil {
			return err
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "reset exclude codes in %s\n", path)
		return err
	},
}

func init() {
	excludeCmd.Flags().BoolVar(&excludeJSON, "json", false, "print JSON")
	excludeCmd.AddCommand(excludeSetCmd, excludeResetCmd)
	rootCmd.AddCommand(excludeCmd)
}
