// =============================================================================
// Invoice Line Extractor - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which loads the main
// configuration and every supplier profile and reports problems without
// processing any invoice.
//
// COMMAND USAGE:
//   invoicelines validate
//
// =============================================================================

package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/invoicelines/internal/config"
	"github.com/ginjaninja78/invoicelines/internal/converter"
)

// validateCmd represents the 'validate' command.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and supplier profiles",
	Long: `Load the main configuration file and all supplier profiles, check them for
errors and list the profiles in the order they are tried when matching files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate()
	},
}

// init registers the validate command with the root command.
func init() {
	rootCmd.AddCommand(validateCmd)
}

// runValidate checks the configuration and prints the profile list.
func runValidate() error {
	mainConfig, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}
	fmt.Printf("Main configuration OK: %s\n", cfgFile)

	profiles, err := config.LoadProfiles(mainConfig.ProfilesDir)
	if err != nil {
		return fmt.Errorf("failed to load supplier profiles: %w", err)
	}

	codes := make([]string, 0, len(profiles))
	for code := range profiles {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Code", "Name", "Mode", "Patterns", "File")

	for _, code := range codes {
		profile := profiles[code]
		// Building the engine compiles the profile's token patterns.
		if _, err := converter.NewEngine(profile, ""); err != nil {
			return err
		}
		t = t.Row(profile.Code, profile.Name, profile.ExtractionMode, strings.Join(profile.FileMatchingPatterns, " "), profile.SourceFile)
	}

	fallback := config.DefaultProfile()
	t = t.Row(fallback.Code, fallback.Name, fallback.ExtractionMode, "(no match)", "built-in")

	fmt.Printf("%d supplier profile(s) in %s\n", len(profiles), mainConfig.ProfilesDir)
	fmt.Println(t.String())
	return nil
}
