// =============================================================================
// Invoice Line Extractor - Process Command
// =============================================================================
//
// This file defines the 'process' command, the batch mode. It runs every
// invoice in the input directory through the pipeline.
//
// COMMAND USAGE:
//   invoicelines process [flags]
//
// FLAGS:
//   --dry-run     : Extract and report without writing output or archiving
//   --file        : Process only this file
//   --profile     : Use this supplier profile for every file
//   --debug       : Write the raw extraction of every file to debug_dir
//
// PROCESSING PIPELINE:
//   1. Load the main configuration and the supplier profiles
//   2. Discover invoices in the input directory
//   3. Match each invoice to a supplier profile
//   4. For each invoice (concurrently, at most max_concurrency at a time):
//      a. Extract the raw rows
//      b. Reconstruct and price the line items
//      c. Write the CSV result
//      d. Archive the invoice
//   5. Print and log the run summary
//
// A failing invoice never stops the others. The exit code is non-zero only
// for configuration problems.
//
// =============================================================================

package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/invoicelines/internal/config"
	"github.com/ginjaninja78/invoicelines/internal/converter"
	"github.com/ginjaninja78/invoicelines/internal/extract"
	"github.com/ginjaninja78/invoicelines/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// dryRun extracts and reports without writing output files.
var dryRun bool

// filePath is the path to a specific file to process.
var filePath string

// profileCode forces a supplier profile for every file.
var profileCode string

// debugDump writes the raw extraction of every file.
var debugDump bool

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

// processCmd represents the 'process' command.
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process all invoices in the input directory",
	Long: `The process command scans the input directory for invoices (.pdf, .xlsx,
.csv), matches each to a supplier profile by file name, and writes the line
items of each invoice as CSV to the output directory.

Invoices are processed concurrently. Each invoice is processed independently,
and errors in one invoice do not affect the processing of others.

On success:
  - The CSV result is placed in the output directory
  - The invoice is moved to the input archive
On an empty result (no content or no line items):
  - The raw extraction is written to the debug directory
  - The invoice remains in the input directory
On error:
  - The invoice remains in the input directory
  - Processing continues for other invoices`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess()
	},
}

// init registers the process command with the root command and sets up flags.
func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Extract and report without writing output files or archiving")
	processCmd.Flags().StringVar(&filePath, "file", "", "Process only this file")
	processCmd.Flags().StringVar(&profileCode, "profile", "", "Use this supplier profile for every file")
	processCmd.Flags().BoolVar(&debugDump, "debug", false, "Write the raw extraction of every file to the debug directory")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// job is one invoice with its configured pipeline. A job without an engine
// carries the profile selection error.
type job struct {
	path   string
	engine *converter.Engine
	err    error
}

// runProcess is the main function that orchestrates the batch.
func runProcess() error {
	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	mainConfig, err := config.LoadMainConfig(cfgFile)
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
	logger.Infof("Loaded %d supplier profile(s)", len(profiles))

	if profileCode != "" {
		if _, err := config.SelectProfile(profiles, "", profileCode); err != nil {
			return err
		}
	}

	if err := mainConfig.EnsureDirectories(); err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	files := utils.NewFileManager(mainConfig.InputDir, mainConfig.OutputDir, mainConfig.InputArchiveDir, mainConfig.DebugDir)

	var inputFiles []string
	if filePath != "" {
		inputFiles = []string{filePath}
	} else if inputFiles, err = files.DiscoverInputFiles(extract.SupportedExtensions); err != nil {
		return fmt.Errorf("failed to discover input files: %w", err)
	}

	if len(inputFiles) == 0 {
		fmt.Println("No invoices found in the input directory.")
		return nil
	}
	logger.Infof("Found %d file(s) to process", len(inputFiles))

	// =========================================================================
	// STEP 3: MATCH PROFILES
	// =========================================================================
	// Engines are built once per profile and shared by that profile's files.

	jobs := planJobs(inputFiles, profiles, logger)

	// =========================================================================
	// STEP 4: PROCESS FILES CONCURRENTLY
	// =========================================================================

	summary := utils.NewProcessingSummary(dryRun)
	results := make([]converter.Result, len(jobs))

	var g errgroup.Group
	g.SetLimit(mainConfig.MaxConcurrency)

	for i, j := range jobs {
		g.Go(func() error {
			if j.err != nil {
				results[i] = converter.Result{FilePath: j.path, Error: j.err}
				return nil
			}
			conv := converter.New(j.path, j.engine, mainConfig, converter.Options{
				DryRun:  dryRun,
				Debug:   debugDump,
				Archive: true,
			})
			conv.SetLogger(converter.NewZapLogger(logger.With("file", filepath.Base(j.path))))
			results[i] = conv.Run()
			return nil
		})
	}
	g.Wait()

	// =========================================================================
	// STEP 5: SUMMARY
	// =========================================================================

	fmt.Println("\n=== Processing Complete ===")
	for _, result := range results {
		recordResult(summary, result)
	}
	summary.EndTime = time.Now()

	fmt.Printf("Total files:     %d\n", summary.TotalFiles)
	fmt.Printf("Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Printf("With warnings:   %d\n", summary.WarningFiles)
	fmt.Printf("Errors:          %d\n", summary.FailedFiles)
	fmt.Printf("Line items:      %d\n", summary.TotalLineItems)
	fmt.Printf("Time elapsed:    %s\n", summary.EndTime.Sub(summary.StartTime))

	if mainConfig.ShouldWriteSummary() {
		if err := utils.WriteSummaryLog(summary, mainConfig.LogFile); err != nil {
			logger.Warnf("Failed to write summary log: %v", err)
		} else {
			fmt.Printf("Summary logged to %s\n", mainConfig.LogFile)
		}
	}

	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// planJobs selects a profile for every file and builds one engine per profile.
func planJobs(inputFiles []string, profiles map[string]*config.SupplierProfile, logger *zap.SugaredLogger) []job {
	engines := make(map[string]*converter.Engine)
	jobs := make([]job, 0, len(inputFiles))

	for _, path := range inputFiles {
		profile, err := config.SelectProfile(profiles, path, profileCode)
		if err != nil {
			jobs = append(jobs, job{path: path, err: err})
			continue
		}

		engine, ok := engines[profile.Code]
		if !ok {
			if engine, err = converter.NewEngine(profile, ""); err != nil {
				jobs = append(jobs, job{path: path, err: err})
				continue
			}
			engines[profile.Code] = engine
		}

		logger.Debugf("%s -> profile %s", filepath.Base(path), profile.Code)
		jobs = append(jobs, job{path: path, engine: engine})
	}

	return jobs
}

// recordResult prints one result line and adds it to the summary.
func recordResult(summary *utils.ProcessingSummary, result converter.Result) {
	name := filepath.Base(result.FilePath)

	if !result.Success {
		fmt.Printf("  ✗ %s: %v\n", name, result.Error)
		summary.AddFailed(utils.FailedFileInfo{InputFile: result.FilePath, ErrorMessage: errorText(result.Error)})
		return
	}

	switch {
	case result.Warning != "":
		fmt.Printf("  ! %s: %s\n", name, result.Warning)
	case result.OutputFile != "":
		fmt.Printf("  ✓ %s -> %s (%d line items)\n", name, result.OutputFile, result.Stats.LineItemsCreated)
	default:
		fmt.Printf("  ✓ %s: %d line items (dry run)\n", name, result.Stats.LineItemsCreated)
	}

	summary.AddProcessed(utils.ProcessedFileInfo{
		InputFile:   result.FilePath,
		OutputFile:  result.OutputFile,
		ArchivePath: result.ArchivePath,
		Profile:     result.Profile,
		Rows:        result.Stats.RowsProcessed,
		LineItems:   result.Stats.LineItemsCreated,
		Rejected:    result.Stats.ItemsRejected,
		Warning:     result.Warning,
		ProcessTime: result.Stats.ProcessingTime,
	})
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
