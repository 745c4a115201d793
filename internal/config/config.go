// =============================================================================
// Invoice Line Extractor - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing all configuration files.
// It handles both the main application configuration and the supplier profiles.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): Global application settings
//   2. Supplier Profiles (profiles/*.yaml): Per-supplier layout rules
//
// A supplier profile only needs the values that differ from the built-in
// Norwegian defaults. Omitted lists and numbers fall back to the defaults of
// the numeric parser, the line classifier and the price deriver.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/invoicelines/internal/extract"
	"github.com/ginjaninja78/invoicelines/internal/numeric"
	"github.com/ginjaninja78/invoicelines/internal/types"
)

// DefaultProfileCode is the code of the built-in profile.
const DefaultProfileCode = "default"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is the directory scanned for invoices (.xlsx, .csv, .pdf).
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir is the directory where the CSV results are written.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir is the directory where processed invoices are moved.
	// Files are only moved here after successful processing.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// DebugDir receives the raw extraction dump of documents that produced no
	// line items (and of every document when --debug is set).
	// Default: "./debug"
	DebugDir string `yaml:"debug_dir"`

	// ProfilesDir is the directory containing supplier profiles.
	// Default: "./profiles"
	ProfilesDir string `yaml:"profiles_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is the processing summary log. Empty disables the summary.
	// Default: "./logs/processing.log"
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat defines the output file names.
	// Placeholders:
	//   {original}  - Input file name without extension
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {profile}   - Supplier profile code
	//
	// Default: "{original}_{timestamp}.csv"
	OutputNameFormat string `yaml:"output_name_format"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of documents processed at once.
	// Set to 1 for sequential processing.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ArchiveOnSuccess moves successfully processed invoices to InputArchiveDir.
	// Default: true
	ArchiveOnSuccess *bool `yaml:"archive_on_success"`

	// WriteSummary appends a run summary to LogFile.
	// Default: true
	WriteSummary *bool `yaml:"write_summary"`
}

// ShouldArchive reports whether processed inputs are archived.
func (c *MainConfig) ShouldArchive() bool {
	return c.ArchiveOnSuccess == nil || *c.ArchiveOnSuccess
}

// ShouldWriteSummary reports whether a run summary is written.
func (c *MainConfig) ShouldWriteSummary() bool {
	return c.LogFile != "" && (c.WriteSummary == nil || *c.WriteSummary)
}

// =============================================================================
// SUPPLIER PROFILE STRUCTURE
// =============================================================================

// SupplierProfile holds the layout rules for one supplier's invoices.
type SupplierProfile struct {
	// =========================================================================
	// PROFILE IDENTIFICATION
	// =========================================================================

	// Name is the human-readable supplier name used in logs.
	Name string `yaml:"name"`

	// Code is a short identifier used on the command line and in file names.
	Code string `yaml:"code"`

	// =========================================================================
	// FILE MATCHING RULES
	// =========================================================================

	// FileMatchingPatterns is a list of glob patterns matched against the
	// input file name. Examples: "elektro_*.pdf", "*_faktura_*.xlsx"
	FileMatchingPatterns []string `yaml:"file_matching_patterns"`

	// =========================================================================
	// EXTRACTION SETTINGS
	// =========================================================================

	// ExtractionMode is "table" or "text".
	// Default: "table"
	ExtractionMode string `yaml:"extraction_mode"`

	// Sheet is the workbook sheet to read. Default: first sheet.
	Sheet string `yaml:"sheet,omitempty"`

	// SheetRawValues reads stored cell values instead of the formatted text.
	// Use it for workbooks whose number formats hide decimals.
	SheetRawValues bool `yaml:"sheet_raw_values,omitempty"`

	// CSV holds the settings for CSV exports.
	CSV CSVSettings `yaml:"csv_settings"`

	// PDF holds the line reconstruction settings for PDFs.
	PDF PDFSettings `yaml:"pdf_settings"`

	// TableColumns maps fields to column positions in table mode.
	TableColumns TableColumns `yaml:"table_columns"`

	// =========================================================================
	// TOKEN RULES
	// =========================================================================

	// Currency is the currency literal shown in the terminal report.
	// Default: "NOK"
	Currency string `yaml:"currency"`

	// CurrencyMarkers are the markers that must follow an amount.
	// Default: ["NOK", "kr"]
	CurrencyMarkers []string `yaml:"currency_markers"`

	// UnitTokens is the closed set of accepted unit tokens.
	UnitTokens []string `yaml:"unit_tokens"`

	// FooterMarkers are substrings that mark total and VAT rows.
	FooterMarkers []string `yaml:"footer_markers"`

	// AnnotationLabels maps an annotation kind (discount, standard_id,
	// order_line, base_quantity) to its label texts.
	AnnotationLabels map[string][]string `yaml:"annotation_labels"`

	// QuantityMatch and AmountMatch pick "first" or "last" when a fragment
	// holds several matches. Default: "last"
	QuantityMatch string `yaml:"quantity_match"`
	AmountMatch   string `yaml:"amount_match"`

	// QuantityMin and QuantityMax bound plausible quantities (exclusive).
	// Default: "0.1" and "10000"
	QuantityMin string `yaml:"quantity_min"`
	QuantityMax string `yaml:"quantity_max"`

	// =========================================================================
	// OUTPUT RULES
	// =========================================================================

	// DescriptionMaxLength truncates descriptions (runes).
	// Default: 120 in table mode, 150 in text mode
	DescriptionMaxLength int `yaml:"description_max_length"`

	// MinDescriptionFragment is the minimum rune count of an unclassified line
	// kept as description text. Default: 3
	MinDescriptionFragment int `yaml:"min_description_fragment"`

	// SourceFile is the profile file, empty for the built-in profile.
	SourceFile string `yaml:"-"`
}

// CSVSettings contains settings for parsing CSV exports.
type CSVSettings struct {
	// Delimiter: ",", ";", "tab", "|". Empty means auto-detect.
	Delimiter string `yaml:"delimiter"`

	// Encoding: "utf-8", "windows-1252", "iso-8859-1". Empty means auto-detect.
	Encoding string `yaml:"encoding"`

	// SkipRows is the number of leading records to ignore.
	SkipRows int `yaml:"skip_rows"`
}

// PDFSettings contains the line reconstruction settings.
type PDFSettings struct {
	RowTolerance float64 `yaml:"row_tolerance"`
	WordGap      float64 `yaml:"word_gap"`
	CellGap      float64 `yaml:"cell_gap"`
}

// TableColumns maps fields to 0-based column positions. Negative positions
// count from the end (-1 is the last column). Omitted positions use the
// default layout; fields listed in Omit are absent from the layout.
type TableColumns struct {
	Nr          *int     `yaml:"nr"`
	Article     *int     `yaml:"article"`
	Description *int     `yaml:"description"`
	Quantity    *int     `yaml:"quantity"`
	Unit        *int     `yaml:"unit"`
	NetAmount   *int     `yaml:"net_amount"`
	Omit        []string `yaml:"omit"`
}

// columnNames are the field names accepted by TableColumns.Omit.
var columnNames = map[string]bool{
	"article": true, "description": true, "quantity": true, "unit": true, "net_amount": true,
}

// annotationKinds are the keys accepted by AnnotationLabels.
var annotationKinds = map[string]bool{
	string(types.AnnotationDiscount):     true,
	string(types.AnnotationStandardID):   true,
	string(types.AnnotationOrderLine):    true,
	string(types.AnnotationBaseQuantity): true,
}

// DefaultProfile returns the built-in profile for the supplier's Norwegian
// layout. It matches every file and leaves all rules at their defaults.
func DefaultProfile() *SupplierProfile {
	p := &SupplierProfile{
		Name:                 "Default supplier (NO)",
		Code:                 DefaultProfileCode,
		FileMatchingPatterns: []string{"*"},
	}
	applyProfileDefaults(p)
	return p
}

// Mode returns the parsed extraction mode. The profile must be valid.
func (p *SupplierProfile) Mode() types.SourceKind {
	mode, _ := extract.ParseMode(p.ExtractionMode)
	return mode
}

// Matches reports whether the file name matches one of the profile patterns.
func (p *SupplierProfile) Matches(fileName string) bool {
	base := strings.ToLower(filepath.Base(fileName))
	for _, pattern := range p.FileMatchingPatterns {
		if ok, _ := filepath.Match(strings.ToLower(pattern), base); ok {
			return true
		}
	}
	return false
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadMainConfigOrDefault loads the main configuration, falling back to the
// defaults when the file does not exist.
func LoadMainConfigOrDefault(configPath string) (*MainConfig, error) {
	config, err := LoadMainConfig(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultMainConfig(), nil
	}
	return config, err
}

// DefaultMainConfig returns a configuration with every default applied.
func DefaultMainConfig() *MainConfig {
	var config MainConfig
	applyMainConfigDefaults(&config)
	return &config
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.DebugDir == "" {
		config.DebugDir = "./debug"
	}
	if config.ProfilesDir == "" {
		config.ProfilesDir = "./profiles"
	}
	if config.LogFile == "" {
		config.LogFile = "./logs/processing.log"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "{original}_{timestamp}.csv"
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q must be one of debug, info, warn, error", config.LogLevel)
	}

	if config.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1, got %d", config.MaxConcurrency)
	}

	if !strings.Contains(config.OutputNameFormat, "{original}") &&
		!strings.Contains(config.OutputNameFormat, "{uuid}") &&
		!strings.Contains(config.OutputNameFormat, "{timestamp}") {
		return fmt.Errorf("output_name_format %q needs {original}, {uuid} or {timestamp} to keep names unique", config.OutputNameFormat)
	}

	if strings.ContainsAny(config.OutputNameFormat, `/\`) {
		return fmt.Errorf("output_name_format %q must be a file name, not a path", config.OutputNameFormat)
	}

	return nil
}

// EnsureDirectories creates the working directories if they don't exist.
func (c *MainConfig) EnsureDirectories() error {
	dirs := []string{c.InputDir, c.OutputDir, c.DebugDir, c.ProfilesDir}
	if c.ShouldArchive() {
		dirs = append(dirs, c.InputArchiveDir)
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// LoadProfiles loads all supplier profiles from a directory.
//
// PARAMETERS:
//   - profilesDir: The directory containing profile files (*.yaml, *.yml).
//
// RETURNS:
//   - A map of profiles keyed by profile code.
//   - An error if a file cannot be parsed, is invalid, or reuses a code.
//
// A missing directory yields an empty map.
func LoadProfiles(profilesDir string) (map[string]*SupplierProfile, error) {
	profiles := make(map[string]*SupplierProfile)

	files, err := filepath.Glob(filepath.Join(profilesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}
	ymlFiles, err := filepath.Glob(filepath.Join(profilesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}
	files = append(files, ymlFiles...)
	sort.Strings(files)

	for _, file := range files {
		profile, err := LoadProfile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}

		if existing, ok := profiles[profile.Code]; ok {
			return nil, fmt.Errorf("profile code %q is used by both %s and %s", profile.Code, existing.SourceFile, file)
		}
		profiles[profile.Code] = profile
	}

	return profiles, nil
}

// LoadProfile loads and validates a single profile file.
func LoadProfile(filePath string) (*SupplierProfile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var profile SupplierProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	profile.SourceFile = filePath
	if profile.Code == "" {
		profile.Code = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}

	applyProfileDefaults(&profile)

	if err := ValidateProfile(&profile); err != nil {
		return nil, err
	}

	return &profile, nil
}

// applyProfileDefaults sets default values for a supplier profile.
func applyProfileDefaults(profile *SupplierProfile) {
	if profile.Name == "" {
		profile.Name = profile.Code
	}
	if profile.ExtractionMode == "" {
		profile.ExtractionMode = types.SourceTable.String()
	}
	if profile.Currency == "" {
		profile.Currency = "NOK"
	}
	if profile.QuantityMatch == "" {
		profile.QuantityMatch = string(numeric.MatchLast)
	}
	if profile.AmountMatch == "" {
		profile.AmountMatch = string(numeric.MatchLast)
	}
}

// ValidateProfile checks a profile for values the engine cannot use.
// All problems are reported together.
func ValidateProfile(profile *SupplierProfile) error {
	var problems []error

	if profile.Code == "" {
		problems = append(problems, errors.New("code is required"))
	}

	if len(profile.FileMatchingPatterns) == 0 {
		problems = append(problems, errors.New("file_matching_patterns must not be empty"))
	}
	for _, pattern := range profile.FileMatchingPatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			problems = append(problems, fmt.Errorf("file_matching_patterns: %q: %w", pattern, err))
		}
	}

	if _, err := extract.ParseMode(profile.ExtractionMode); err != nil {
		problems = append(problems, fmt.Errorf("extraction_mode: %w", err))
	}
	if _, err := numeric.ParsePolicy(profile.QuantityMatch); err != nil {
		problems = append(problems, fmt.Errorf("quantity_match: %w", err))
	}
	if _, err := numeric.ParsePolicy(profile.AmountMatch); err != nil {
		problems = append(problems, fmt.Errorf("amount_match: %w", err))
	}

	lower, lowerErr := optionalDecimal(profile.QuantityMin)
	if lowerErr != nil {
		problems = append(problems, fmt.Errorf("quantity_min: %w", lowerErr))
	}
	upper, upperErr := optionalDecimal(profile.QuantityMax)
	if upperErr != nil {
		problems = append(problems, fmt.Errorf("quantity_max: %w", upperErr))
	}
	if lowerErr == nil && upperErr == nil && lower.Valid && upper.Valid && !lower.Decimal.LessThan(upper.Decimal) {
		problems = append(problems, fmt.Errorf("quantity_min %s must be below quantity_max %s", lower.Decimal, upper.Decimal))
	}

	if profile.DescriptionMaxLength < 0 {
		problems = append(problems, errors.New("description_max_length must not be negative"))
	}
	if profile.MinDescriptionFragment < 0 {
		problems = append(problems, errors.New("min_description_fragment must not be negative"))
	}
	if profile.CSV.SkipRows < 0 {
		problems = append(problems, errors.New("csv_settings.skip_rows must not be negative"))
	}

	for kind := range profile.AnnotationLabels {
		if !annotationKinds[kind] {
			problems = append(problems, fmt.Errorf("annotation_labels: unknown kind %q", kind))
		}
	}
	for _, name := range profile.TableColumns.Omit {
		if !columnNames[name] {
			problems = append(problems, fmt.Errorf("table_columns.omit: unknown column %q", name))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("profile %q: %w", profile.Code, errors.Join(problems...))
	}
	return nil
}

// QuantityBounds returns the parsed plausibility bounds; unset bounds are
// returned as invalid. The profile must be valid.
func (p *SupplierProfile) QuantityBounds() (lower, upper decimal.NullDecimal) {
	lower, _ = optionalDecimal(p.QuantityMin)
	upper, _ = optionalDecimal(p.QuantityMax)
	return lower, upper
}

// optionalDecimal parses a configured number; an empty value is "unset".
func optionalDecimal(value string) (decimal.NullDecimal, error) {
	if strings.TrimSpace(value) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, ok := numeric.ParseDecimal(value)
	if !ok {
		return decimal.NullDecimal{}, fmt.Errorf("%q is not a number", value)
	}
	return decimal.NewNullDecimal(d), nil
}

// =============================================================================
// PROFILE SELECTION
// =============================================================================

// SelectProfile returns the profile for a file. An explicit code wins;
// otherwise the first profile (by code) whose patterns match the file name is
// used, and the built-in profile when none matches.
func SelectProfile(profiles map[string]*SupplierProfile, fileName, code string) (*SupplierProfile, error) {
	if code != "" {
		if profile, ok := profiles[code]; ok {
			return profile, nil
		}
		if code == DefaultProfileCode {
			return DefaultProfile(), nil
		}
		return nil, fmt.Errorf("unknown profile %q", code)
	}

	codes := make([]string, 0, len(profiles))
	for c := range profiles {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	for _, c := range codes {
		if profiles[c].Matches(fileName) {
			return profiles[c], nil
		}
	}
	return DefaultProfile(), nil
}
