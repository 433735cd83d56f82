package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ncviewer/ncviewer/internal/flags"
	"github.com/ncviewer/ncviewer/internal/gcode"
	"github.com/ncviewer/ncviewer/internal/presentation"
	"github.com/ncviewer/ncviewer/internal/toolpath"
	"github.com/ncviewer/ncviewer/internal/viewer"
)

var (
	inspectJSON    bool
	tokensSpace    bool
	toolpathCodes  []string
	toolpathNoExcl bool
)

var tokensCmd = &cobra.Command{
	Use:   "tokens [file|-]",
	Short: "Print the tokens of a G-code program",
	Long: `Print the tokens the lexer produces for a program, one per row, with
their kind, byte span and source line. Reads stdin when no file is given.

Examples:
  ncviewer tokens part.nc
  ncviewer tokens --json part.nc | jq '.[] | select(.kind == "COMMAND")'
  echo "G1 X10 (cut)" | ncviewer tokens`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readInput(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		l := gcode.NewLexer(src)
		l.SetTrace(flags.WithDefaults(cfg.Flags).Enabled(flags.FlagLexerDebug))
		var toks []gcode.Token
		for tok, ok := l.Current(); ok; tok, ok = l.Current() {
			toks = append(toks, tok)
			l.Advance()
		}
		return presentation.NewFormatter(cmd.OutOrStdout(), inspectJSON).
			FormatTokens(presentation.FromTokens(src, toks, tokensSpace))
	},
}

var toolpathCmd = &cobra.Command{
	Use:   "toolpath [file|-]",
	Short: "Print the movements extracted from a G-code program",
	Long: `Extract the toolpath of a program and print every movement, starting
with the origin. Exclude codes come from the config unless --exclude or
--no-exclude is given.

Examples:
  ncviewer toolpath part.nc
  ncviewer toolpath --exclude G28,G53 part.nc
  ncviewer toolpath --json part.nc | jq '.segments'`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readInput(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		exclude := viewer.ExcludeSetFor(cfg.Settings.ExcludeCodes)
		switch {
		case toolpathNoExcl:
			exclude = toolpath.NewExcludeSet(nil)
		case cmd.Flags().Changed("exclude"):
			exclude = toolpath.NewExcludeSet(toolpathCodes)
		}
		opts := cfg.Toolpath.ExtractOptions()
		opts.TraceLexer = flags.WithDefaults(cfg.Flags).Enabled(flags.FlagLexerDebug)
		res := toolpath.NewExtractor(opts).Extract(context.Background(), src, exclude)
		return presentation.NewFormatter(cmd.OutOrStdout(), inspectJSON).
			FormatToolpath(presentation.FromResult(res, exclude))
	},
}

var highlightCmd = &cobra.Command{
	Use:   "highlight [file|-]",
	Short: "Print a G-code program with syntax colors",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readInput(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), gcode.Highlight(src))
		return err
	},
}

func init() {
	for _, c := range []*cobra.Command{tokensCmd, toolpathCmd} {
		c.Flags().BoolVar(&inspectJSON, "json", false, "print JSON")
	}
	tokensCmd.Flags().BoolVar(&tokensSpace, "whitespace", false, "include whitespace tokens")
	toolpathCmd.Flags().StringSliceVar(&toolpathCodes, "exclude", nil, "comma-separated codes that never move the tool")
	toolpathCmd.Flags().BoolVar(&toolpathNoExcl, "no-exclude", false, "exclude nothing")
	toolpathCmd.MarkFlagsMutuallyExclusive("exclude", "no-exclude")
	rootCmd.AddCommand(tokensCmd, toolpathCmd, highlightCmd)
}
