// =============================================================================
// Invoice Line Extractor - Version Command
// =============================================================================
//
// This file defines the 'version' command. Besides the build information it
// lists the invoice formats this build can read, so a support request can be
// answered from one paste.
//
// COMMAND USAGE:
//   invoicelines version
//
// =============================================================================

package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/invoicelines/internal/extract"
)

// Version and BuildDate are stamped by the release build:
//
//	go build -ldflags "-X 'github.com/ginjaninja78/invoicelines/cmd.Version=1.2.0' -X 'github.com/ginjaninja78/invoicelines/cmd.BuildDate=2024-06-01'"
var (
	Version   = "dev"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version and supported invoice formats",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Invoice Line Extractor")
		fmt.Fprintf(out, "Version:    %s (%s, %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
		fmt.Fprintf(out, "Formats:    %s\n", strings.Join(extract.SupportedExtensions, " "))
		fmt.Fprintln(out, "Modes:      table, text")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
