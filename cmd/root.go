// =============================================================================
// Invoice Line Extractor - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (invoicelines)
//   ├── parseCmd (invoicelines parse <file>)
//   ├── processCmd (invoicelines process)
//   ├── validateCmd (invoicelines validate)
//   └── versionCmd (invoicelines version)
//
// The root command owns the global flags (--config, --verbose). Each command
// loads the configuration and builds its logger itself.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use: "invoicelines",

	Short: "Invoice Line Extractor - Turn supplier invoices into clean line-item CSV",

	Long: `Invoice Line Extractor reads supplier invoices (PDF, XLSX or CSV exports),
reconstructs the purchased line items and writes them as a normalized CSV table
with quantity, unit, net amount and unit price.

Key Features:
  - Table and text extraction modes
  - Multi-row items, Norwegian number formats and noise line filtering
  - Supplier profiles matched by file name
  - Concurrent batch processing with archival and a summary log

Example Usage:
  invoicelines parse faktura.pdf --mode text   # Show the line items of one invoice
  invoicelines process                         # Process all files in the input directory
  invoicelines process --config ./my.yaml      # Use a custom configuration file
  invoicelines validate                        # Validate configuration without processing`,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init sets up the global flags.
func init() {
	rootCmd.SilenceErrors = true

	// --config flag: Allows the user to specify a custom configuration file.
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	// --verbose flag: Enables debug logging.
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}
