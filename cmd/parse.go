// =============================================================================
// Invoice Line Extractor - Parse Command
// =============================================================================
//
// This file defines the 'parse' command, which extracts the line items of a
// single invoice and prints them as a table.
//
// COMMAND USAGE:
//   invoicelines parse <file> [flags]
//
// FLAGS:
//   --mode     : Extraction mode, "table" or "text" (default: from the profile)
//   --profile  : Supplier profile code (default: matched by file name)
//   --csv      : Also write the result as CSV to this path
//   --debug    : Print the raw extracted rows before the result
//
// A missing configuration file is not an error for this command; the
// defaults and the built-in profile are used.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/invoicelines/internal/config"
	"github.com/ginjaninja78/invoicelines/internal/converter"
	"github.com/ginjaninja78/invoicelines/internal/extract"
	"github.com/ginjaninja78/invoicelines/internal/report"
	"github.com/ginjaninja78/invoicelines/internal/types"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	parseMode    string
	parseProfile string
	parseCSV     string
	parseDebug   bool
	parsePlain   bool
)

// =============================================================================
// PARSE COMMAND DEFINITION
// =============================================================================

// parseCmd represents the 'parse' command.
var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Extract the line items of one invoice",
	Long: `The parse command extracts the line items of a single invoice (.pdf, .xlsx
or .csv) and prints them as a table. Amounts are shown the way they appear on
the invoice ("1 250,00 NOK"); the CSV written with --csv uses plain decimals.

Use --mode text for invoices whose line items are laid out as free text rather
than a grid, and --debug to see the raw rows the extraction produced.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runParse(args[0])
	},
}

// init registers the parse command with the root command and sets up flags.
func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVar(&parseMode, "mode", "", `Extraction mode: "table" or "text" (default: from the profile)`)
	parseCmd.Flags().StringVar(&parseProfile, "profile", "", "Supplier profile code (default: matched by file name)")
	parseCmd.Flags().StringVar(&parseCSV, "csv", "", "Write the result as CSV to this path")
	parseCmd.Flags().BoolVar(&parseDebug, "debug", false, "Print the raw extracted rows")
	parseCmd.Flags().BoolVar(&parsePlain, "plain", false, "Print the table without colors")
}

// =============================================================================
// PARSE FUNCTION
// =============================================================================

// runParse extracts one invoice and prints the result.
func runParse(path string) error {
	mainConfig, err := config.LoadMainConfigOrDefault(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}

	logger, err := newLogger(mainConfig.LogLevel, verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	profiles, err := config.LoadProfiles(mainConfig.ProfilesDir)
	if err != nil {
		return fmt.Errorf("failed to load supplier profiles: %w", err)
	}

	profile, err := config.SelectProfile(profiles, path, parseProfile)
	if err != nil {
		return err
	}

	engine, err := converter.NewEngine(profile, parseMode)
	if err != nil {
		return err
	}

	conv := converter.New(path, engine, mainConfig, converter.Options{
		DryRun:     parseCSV == "",
		OutputPath: parseCSV,
	})
	conv.SetLogger(converter.NewZapLogger(logger))

	result := conv.Run()
	if result.Error != nil {
		return result.Error
	}

	out := os.Stdout

	if parseDebug {
		if err := extract.WriteDebug(out, result.Document); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "%s (%s, %s mode)\n", filepath.Base(path), profile.Name, result.Mode)

	if result.Warning != "" {
		fmt.Fprintf(out, "Warning: %s\n", result.Warning)
		return nil
	}

	fmt.Fprintln(out, report.Render(result.Rows, report.Options{
		IncludeArticle: result.Mode == types.SourceText,
		Currency:       profile.Currency,
		Color:          !parsePlain,
	}))
	fmt.Fprintln(out, report.Totals(result.Rows, profile.Currency))

	if len(result.Rejected) > 0 {
		fmt.Fprintf(out, "%d incomplete item(s) skipped (run with --verbose for details)\n", len(result.Rejected))
	}
	if result.OutputFile != "" {
		fmt.Fprintf(out, "CSV written to %s\n", result.OutputFile)
	}

	return nil
}
