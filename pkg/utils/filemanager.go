// =============================================================================
// Invoice Line Extractor - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for batch processing:
//   - Input discovery (.xlsx, .csv, .pdf)
//   - Input archival (moving processed invoices)
//   - Output file naming
//   - Debug dumps of the raw extraction
//   - The processing summary log
//
// ARCHIVAL STRATEGY:
//   - Input files are moved to input_archive after successful processing
//   - Failed files and files without line items remain in the input directory
//   - An existing archive entry is never overwritten
//
// =============================================================================

package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the batch processor.
type FileManager struct {
	// InputDir is the directory scanned for invoices.
	InputDir string

	// OutputDir is the directory where CSV results are placed.
	OutputDir string

	// InputArchiveDir is the directory for archived invoices.
	InputArchiveDir string

	// DebugDir is the directory for raw extraction dumps.
	DebugDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: input_archive/2024/01/15/invoice.pdf
	UseTimestampSubdirs bool

	// ArchiveOnSuccess determines whether invoices are moved after processing.
	ArchiveOnSuccess bool
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, outputDir, inputArchiveDir, debugDir string) *FileManager {
	return &FileManager{
		InputDir:         inputDir,
		OutputDir:        outputDir,
		InputArchiveDir:  inputArchiveDir,
		DebugDir:         debugDir,
		ArchiveOnSuccess: true,
	}
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles lists the files in the input directory whose extension
// is in extensions (case-insensitive). Hidden files and office lock files
// ("~$invoice.xlsx") are skipped. The result is sorted by name.
//
// PARAMETERS:
//   - extensions: Accepted extensions including the dot, e.g. ".pdf".
//
// RETURNS:
//   - A slice of file paths.
//   - An error if the directory cannot be read.
func (fm *FileManager) DiscoverInputFiles(extensions []string) ([]string, error) {
	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	accepted := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		accepted[strings.ToLower(ext)] = true
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			continue
		}
		if accepted[strings.ToLower(filepath.Ext(name))] {
			files = append(files, filepath.Join(fm.InputDir, name))
		}
	}

	sort.Strings(files)
	return files, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an input file to the archive directory. When the
// archive already holds a file with the same name, a timestamp is added.
//
// PARAMETERS:
//   - filePath: The path to the file to archive.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath := fm.getArchivePath(fm.InputArchiveDir, filePath)

	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if FileExists(archivePath) {
		ext := filepath.Ext(archivePath)
		archivePath = fmt.Sprintf("%s_%s%s", strings.TrimSuffix(archivePath, ext), time.Now().Format("20060102_150405"), ext)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Rename fails across devices; fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// getArchivePath constructs the archive path for a file.
func (fm *FileManager) getArchivePath(archiveDir, filePath string) string {
	fileName := filepath.Base(filePath)

	if fm.UseTimestampSubdirs {
		now := time.Now()
		return filepath.Join(
			archiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
			fileName,
		)
	}

	return filepath.Join(archiveDir, fileName)
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates an output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//     Placeholders:
//     {uuid}      - A random UUID
//     {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//     {date}      - Current date (YYYYMMDD)
//     {original}  - Original file name (without extension)
//     {profile}   - Supplier profile code
//   - params: Values for the custom placeholders ("original", "profile").
//
// RETURNS:
//   - The generated file name, always ending in ".csv".
//
// EXAMPLE:
//
//	format: "{profile}_{original}_{timestamp}.csv"
//	params: {"profile": "elektro", "original": "faktura_1042"}
//	output: "elektro_faktura_1042_20240115_143022.csv"
func GenerateOutputFileName(format string, params map[string]string) string {
	now := time.Now()

	replacements := []string{
		"{uuid}", uuid.New().String(),
		"{timestamp}", now.Format("20060102_150405"),
		"{date}", now.Format("20060102"),
	}
	for key, value := range params {
		replacements = append(replacements, "{"+key+"}", value)
	}

	result := strings.NewReplacer(replacements...).Replace(format)

	if !strings.HasSuffix(strings.ToLower(result), ".csv") {
		result += ".csv"
	}

	return result
}

// OriginalName returns the file name without directory and extension.
func OriginalName(filePath string) string {
	base := filepath.Base(filePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// =============================================================================
// DEBUG DUMPS
// =============================================================================

// WriteDebugFile writes the raw extraction dump of an input file to the
// debug directory as "<original>.<ext>.debug.txt", replacing an older dump.
//
// PARAMETERS:
//   - inputPath: The invoice the dump belongs to.
//   - write: Writes the dump content.
//
// RETURNS:
//   - The path to the dump file.
//   - An error if writing fails.
func (fm *FileManager) WriteDebugFile(inputPath string, write func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(fm.DebugDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create debug directory: %w", err)
	}

	debugPath := filepath.Join(fm.DebugDir, filepath.Base(inputPath)+".debug.txt")

	file, err := os.Create(debugPath)
	if err != nil {
		return "", fmt.Errorf("failed to create debug file: %w", err)
	}

	writer := bufio.NewWriter(file)
	err = write(writer)
	if err == nil {
		err = writer.Flush()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("failed to write debug file: %w", err)
	}

	return debugPath, nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about a processing run.
type ProcessingSummary struct {
	RunID           string
	StartTime       time.Time
	EndTime         time.Time
	DryRun          bool
	TotalFiles      int
	SuccessfulFiles int
	WarningFiles    int
	FailedFiles     int
	TotalRows       int
	TotalLineItems  int
	TotalRejected   int
	ProcessedFiles  []ProcessedFileInfo
	FailedFilesList []FailedFileInfo
}

// NewProcessingSummary starts a summary with a fresh run ID.
func NewProcessingSummary(dryRun bool) *ProcessingSummary {
	return &ProcessingSummary{
		RunID:     uuid.NewString(),
		StartTime: time.Now(),
		DryRun:    dryRun,
	}
}

// ProcessedFileInfo contains information about a processed file.
type ProcessedFileInfo struct {
	InputFile   string
	OutputFile  string
	ArchivePath string
	Profile     string
	Rows        int
	LineItems   int
	Rejected    int
	Warning     string
	ProcessTime time.Duration
}

// FailedFileInfo contains information about a failed file.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
}

// AddProcessed records a file that was processed, with or without a warning.
func (s *ProcessingSummary) AddProcessed(info ProcessedFileInfo) {
	s.TotalFiles++
	if info.Warning != "" {
		s.WarningFiles++
	} else {
		s.SuccessfulFiles++
	}
	s.TotalRows += info.Rows
	s.TotalLineItems += info.LineItems
	s.TotalRejected += info.Rejected
	s.ProcessedFiles = append(s.ProcessedFiles, info)
}

// AddFailed records a file that could not be processed.
func (s *ProcessingSummary) AddFailed(info FailedFileInfo) {
	s.TotalFiles++
	s.FailedFiles++
	s.FailedFilesList = append(s.FailedFilesList, info)
}

// WriteSummaryLog appends a processing summary to the log file, creating the
// file and its directory when needed.
//
// PARAMETERS:
//   - summary: The processing summary.
//   - logFile: The path of the summary log.
//
// RETURNS:
//   - An error if writing fails.
func WriteSummaryLog(summary *ProcessingSummary, logFile string) error {
	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open summary log: %w", err)
	}

	err = writeSummary(file, summary)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write summary log: %w", err)
	}
	return nil
}

// writeSummary renders one run block.
func writeSummary(w io.Writer, summary *ProcessingSummary) error {
	writer := bufio.NewWriter(w)

	mode := "write"
	if summary.DryRun {
		mode = "dry-run"
	}

	fmt.Fprintf(writer, "Invoice Line Extractor - Processing Summary\n"+
		"================================================================================\n"+
		"Run Information:\n"+
		"  Run ID:         %s\n"+
		"  Mode:           %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Statistics:\n"+
		"  Total Files:    %d\n"+
		"  Successful:     %d\n"+
		"  With Warnings:  %d\n"+
		"  Failed:         %d\n"+
		"  Total Rows:     %d\n"+
		"  Line Items:     %d\n"+
		"  Rejected Items: %d\n\n",
		summary.RunID,
		mode,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String(),
		summary.TotalFiles,
		summary.SuccessfulFiles,
		summary.WarningFiles,
		summary.FailedFiles,
		summary.TotalRows,
		summary.TotalLineItems,
		summary.TotalRejected)

	if len(summary.ProcessedFiles) > 0 {
		writer.WriteString("Processed Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, pf := range summary.ProcessedFiles {
			fmt.Fprintf(writer, "  Input:        %s\n", pf.InputFile)
			fmt.Fprintf(writer, "  Profile:      %s\n", pf.Profile)
			if pf.OutputFile != "" {
				fmt.Fprintf(writer, "  Output:       %s\n", pf.OutputFile)
			}
			if pf.ArchivePath != "" {
				fmt.Fprintf(writer, "  Archived:     %s\n", pf.ArchivePath)
			}
			fmt.Fprintf(writer, "  Rows:         %d\n", pf.Rows)
			fmt.Fprintf(writer, "  Line Items:   %d (%d rejected)\n", pf.LineItems, pf.Rejected)
			if pf.Warning != "" {
				fmt.Fprintf(writer, "  Warning:      %s\n", pf.Warning)
			}
			fmt.Fprintf(writer, "  Process Time: %s\n\n", pf.ProcessTime.String())
		}
	}

	if len(summary.FailedFilesList) > 0 {
		writer.WriteString("Failed Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, ff := range summary.FailedFilesList {
			fmt.Fprintf(writer, "  File:  %s\n", ff.InputFile)
			fmt.Fprintf(writer, "  Error: %s\n\n", ff.ErrorMessage)
		}
	}

	writer.WriteString("================================================================================\n\n")

	return writer.Flush()
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
