// =============================================================================
// Invoice Line Extractor - Converter Module
// =============================================================================
//
// This module orchestrates the pipeline for a single invoice, from extraction
// to the CSV result.
//
// CONVERSION PIPELINE:
//   1. Extract the raw rows (table cells or text lines)
//   2. Classify, accumulate and price the line items
//   3. Write the debug dump when requested or when nothing was found
//   4. Write the CSV result
//   5. Archive the invoice
//
// CONCURRENCY:
//   A Converter handles one file. Converters for different files share no
//   mutable state and can run concurrently.
//
// =============================================================================

package converter

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/ginjaninja78/invoicelines/internal/config"
	"github.com/ginjaninja78/invoicelines/internal/csvwriter"
	"github.com/ginjaninja78/invoicelines/internal/extract"
	"github.com/ginjaninja78/invoicelines/internal/pricing"
	"github.com/ginjaninja78/invoicelines/internal/types"
	"github.com/ginjaninja78/invoicelines/pkg/utils"
	"go.uber.org/zap"
)

// =============================================================================
// WARNINGS
// =============================================================================

// Warnings are empty results. They are not failures: the document was read,
// it just produced nothing.
const (
	WarnNoContent = "no tables or text found in document"
	WarnNoItems   = "no valid line items found; rerun with --debug to inspect the raw extraction"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// FilePath is the path to the input file that was processed.
	FilePath string

	// Profile is the code of the supplier profile that was applied.
	Profile string

	// Mode is the extraction mode that was applied.
	Mode types.SourceKind

	// OutputFile is the path to the generated CSV file.
	// This is empty on failure, on warnings and in dry-run mode.
	OutputFile string

	// ArchivePath is where the input was moved, if it was archived.
	ArchivePath string

	// DebugFile is the raw extraction dump, if one was written.
	DebugFile string

	// Success indicates whether the document was read. A successful result
	// may still carry a Warning.
	Success bool

	// Warning is set when the document produced no line items.
	Warning string

	// Error contains the error if processing failed.
	Error error

	// Rows are the extracted line items.
	Rows []types.ResultRow

	// Rejected are the items dropped by the validity gate.
	Rejected []pricing.Rejection

	// Document is the raw extraction. Nil when extraction failed.
	Document *extract.Document

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// Pages is the number of pages read (1 for spreadsheets).
	Pages int

	// RowsProcessed is the number of non-empty rows extracted.
	RowsProcessed int

	// ItemsFound is the number of item start rows.
	ItemsFound int

	// LineItemsCreated is the number of valid line items.
	LineItemsCreated int

	// ItemsRejected is the number of items dropped by the validity gate.
	ItemsRejected int

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Options controls the side effects of a run.
type Options struct {
	// DryRun extracts and reports without writing or archiving anything.
	DryRun bool

	// Debug writes the raw extraction dump for every document.
	Debug bool

	// OutputPath writes the CSV to this path instead of a generated name in
	// the output directory.
	OutputPath string

	// Archive moves the input to the archive directory after a run that
	// produced line items.
	Archive bool
}

// Converter handles the processing of a single invoice.
type Converter struct {
	// path is the path to the input invoice.
	path string

	// engine is the pipeline configured from the supplier profile.
	engine *Engine

	// mainConfig is the main application configuration.
	mainConfig *config.MainConfig

	// files handles output naming, debug dumps and archival.
	files *utils.FileManager

	opts Options

	logger Logger
}

// Logger is an interface for logging.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a new Converter instance.
//
// PARAMETERS:
//   - path: The path to the input invoice.
//   - engine: The pipeline for the invoice's supplier profile.
//   - mainConfig: The main application configuration.
//   - opts: The side effects of the run.
//
// RETURNS:
//   - A new Converter instance.
func New(path string, engine *Engine, mainConfig *config.MainConfig, opts Options) *Converter {
	files := utils.NewFileManager(mainConfig.InputDir, mainConfig.OutputDir, mainConfig.InputArchiveDir, mainConfig.DebugDir)
	files.ArchiveOnSuccess = opts.Archive && mainConfig.ShouldArchive()

	return &Converter{
		path:       path,
		engine:     engine,
		mainConfig: mainConfig,
		files:      files,
		opts:       opts,
		logger:     NewZapLogger(zap.NewNop().Sugar()),
	}
}

// SetLogger sets a custom logger for the converter.
func (c *Converter) SetLogger(logger Logger) {
	c.logger = logger
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the pipeline for the file.
//
// RETURNS:
//   - A Result struct containing the outcome of the processing.
//
// PROCESSING STEPS:
//  1. Extract the document
//  2. Run the engine over the rows
//  3. Write the debug dump
//  4. Write the CSV result
//  5. Archive the input
func (c *Converter) Run() (result Result) {
	startTime := time.Now()
	result = Result{
		FilePath: c.path,
		Profile:  c.engine.Profile().Code,
		Mode:     c.engine.Mode(),
	}
	defer func() { result.Stats.ProcessingTime = time.Since(startTime) }()

	c.logger.Info("Processing file: %s (profile %s, %s mode)", c.path, result.Profile, result.Mode)

	// =========================================================================
	// STEP 1: EXTRACT
	// =========================================================================
	// An extraction failure is fatal for this document; nothing is written.

	doc, err := c.engine.Extract(c.path)
	if err != nil && !errors.Is(err, extract.ErrNoContent) {
		result.Error = err
		return result
	}

	result.Document = doc
	result.Stats.Pages = doc.Pages
	result.Stats.RowsProcessed = doc.NonEmptyRows()
	c.logger.Debug("Extracted %d rows from %d pages", result.Stats.RowsProcessed, doc.Pages)

	if errors.Is(err, extract.ErrNoContent) {
		result.Success = true
		result.Warning = WarnNoContent
		c.logger.Warn("%s: %s", filepath.Base(c.path), WarnNoContent)
		c.writeDebug(&result)
		return result
	}

	// =========================================================================
	// STEP 2: LINE ITEMS
	// =========================================================================

	outcome := c.engine.ProcessRows(doc.Rows)
	result.Rows = outcome.Rows
	result.Rejected = outcome.Rejected
	result.Stats.ItemsFound = outcome.Fold.ItemStarts
	result.Stats.LineItemsCreated = len(outcome.Rows)
	result.Stats.ItemsRejected = len(outcome.Rejected)

	for _, rejection := range outcome.Rejected {
		c.logger.Debug("Dropped item %s (%s): %s", rejection.Item.SequenceNumber, rejection.Item.Description, rejection.Reason)
	}
	c.logger.Debug("Found %d item starts, %d valid line items", outcome.Fold.ItemStarts, len(outcome.Rows))

	result.Success = true
	if len(outcome.Rows) == 0 {
		result.Warning = WarnNoItems
		c.logger.Warn("%s: %s", filepath.Base(c.path), WarnNoItems)
	}

	// =========================================================================
	// STEP 3: DEBUG DUMP
	// =========================================================================

	if c.opts.Debug || result.Warning != "" {
		c.writeDebug(&result)
	}

	if result.Warning != "" || c.opts.DryRun {
		return result
	}

	// =========================================================================
	// STEP 4: WRITE OUTPUT FILE
	// =========================================================================

	outputPath, err := c.writeOutput(outcome.Rows)
	if err != nil {
		result.Success = false
		result.Error = fmt.Errorf("failed to write output: %w", err)
		return result
	}

	result.OutputFile = outputPath
	c.logger.Info("Wrote %d line items to: %s", len(outcome.Rows), outputPath)

	// =========================================================================
	// STEP 5: ARCHIVE INPUT
	// =========================================================================

	if c.files.ArchiveOnSuccess {
		archivePath, err := c.files.ArchiveInputFile(c.path)
		if err != nil {
			// The result is already written; archival problems are not fatal.
			c.logger.Warn("Failed to archive %s: %v", c.path, err)
		} else {
			result.ArchivePath = archivePath
			c.logger.Debug("Archived input to: %s", archivePath)
		}
	}

	return result
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// writeOutput writes the result rows as CSV.
//
// FILE NAMING:
//
//	Options.OutputPath when set, otherwise the main configuration's
//	OutputNameFormat in OutputDir.
func (c *Converter) writeOutput(rows []types.ResultRow) (string, error) {
	outputPath := c.opts.OutputPath
	if outputPath == "" {
		fileName := utils.GenerateOutputFileName(c.mainConfig.OutputNameFormat, map[string]string{
			"original": utils.OriginalName(c.path),
			"profile":  c.engine.Profile().Code,
		})
		outputPath = filepath.Join(c.mainConfig.OutputDir, fileName)
	}

	opts := csvwriter.DefaultGenerateOptions()
	opts.IncludeArticle = c.engine.Mode() == types.SourceText

	if err := csvwriter.WriteToFile(outputPath, rows, opts); err != nil {
		return "", err
	}
	return outputPath, nil
}

// writeDebug dumps the raw extraction to the debug directory. Failures are
// logged only.
func (c *Converter) writeDebug(result *Result) {
	if c.opts.DryRun && !c.opts.Debug {
		return
	}

	debugPath, err := c.files.WriteDebugFile(c.path, func(w io.Writer) error {
		return extract.WriteDebug(w, result.Document)
	})
	if err != nil {
		c.logger.Warn("Failed to write debug dump for %s: %v", c.path, err)
		return
	}

	result.DebugFile = debugPath
	c.logger.Info("Wrote raw extraction to: %s", debugPath)
}

// =============================================================================
// ZAP LOGGER
// =============================================================================

// zapLogger adapts a zap SugaredLogger to the Logger interface.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger wraps a zap SugaredLogger. Messages use printf formatting.
func NewZapLogger(sugar *zap.SugaredLogger) Logger {
	return &zapLogger{sugar: sugar}
}

func (l *zapLogger) Debug(msg string, args ...interface{}) { l.sugar.Debugf(msg, args...) }
func (l *zapLogger) Info(msg string, args ...interface{})  { l.sugar.Infof(msg, args...) }
func (l *zapLogger) Warn(msg string, args ...interface{})  { l.sugar.Warnf(msg, args...) }
func (l *zapLogger) Error(msg string, args ...interface{}) { l.sugar.Errorf(msg, args...) }
