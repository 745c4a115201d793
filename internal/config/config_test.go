package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/invoicelines/internal/types"
)

func writeYAML(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadMainConfig_Defaults(t *testing.T) {
	path := writeYAML(t, t.TempDir(), "config.yaml", "input_dir: ./faktura\n")

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "./faktura", cfg.InputDir)
	assert.Equal(t, "./output", cfg.OutputDir)
	assert.Equal(t, "./profiles", cfg.ProfilesDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "{original}_{timestamp}.csv", cfg.OutputNameFormat)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.True(t, cfg.ShouldArchive())
	assert.True(t, cfg.ShouldWriteSummary())
}

func TestLoadMainConfig_Switches(t *testing.T) {
	path := writeYAML(t, t.TempDir(), "config.yaml", "archive_on_success: false\nwrite_summary: false\n")

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)
	assert.False(t, cfg.ShouldArchive())
	assert.False(t, cfg.ShouldWriteSummary())
}

func TestLoadMainConfig_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := map[string]string{
		"log level":   "log_level: verbose\n",
		"concurrency": "max_concurrency: -2\n",
		"name format": "output_name_format: result.csv\n",
		"name path":   "output_name_format: out/{uuid}.csv\n",
		"yaml":        "input_dir: [unclosed\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadMainConfig(writeYAML(t, dir, name+".yaml", content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMainConfigOrDefault(t *testing.T) {
	cfg, err := LoadMainConfigOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "./input", cfg.InputDir)
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultMainConfig()
	cfg.InputDir = filepath.Join(root, "in")
	cfg.OutputDir = filepath.Join(root, "out")
	cfg.DebugDir = filepath.Join(root, "debug")
	cfg.ProfilesDir = filepath.Join(root, "profiles")
	cfg.InputArchiveDir = filepath.Join(root, "archive")

	require.NoError(t, cfg.EnsureDirectories())
	for _, dir := range []string{cfg.InputDir, cfg.OutputDir, cfg.DebugDir, cfg.ProfilesDir, cfg.InputArchiveDir} {
		assert.DirExists(t, dir)
	}
}

func TestLoadProfiles(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "elektro.yaml", `
name: Elektro Grossist AS
code: elektro
file_matching_patterns:
  - "elektro_*.pdf"
extraction_mode: text
unit_tokens: [stk, m, rull]
annotation_labels:
  discount: [Rabatt, Avslag]
quantity_match: first
quantity_min: "0,5"
quantity_max: "500"
table_columns:
  net_amount: 7
  omit: [article]
`)
	writeYAML(t, dir, "vvs.yml", "file_matching_patterns: [\"*.xlsx\"]\n")

	profiles, err := LoadProfiles(dir)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	elektro := profiles["elektro"]
	require.NotNil(t, elektro)
	assert.Equal(t, "Elektro Grossist AS", elektro.Name)
	assert.Equal(t, types.SourceText, elektro.Mode())
	assert.Equal(t, "NOK", elektro.Currency)
	assert.Equal(t, "first", elektro.QuantityMatch)
	assert.Equal(t, "last", elektro.AmountMatch)
	assert.Equal(t, []string{"Rabatt", "Avslag"}, elektro.AnnotationLabels["discount"])
	require.NotNil(t, elektro.TableColumns.NetAmount)
	assert.Equal(t, 7, *elektro.TableColumns.NetAmount)
	assert.Nil(t, elektro.TableColumns.Nr)

	lower, upper := elektro.QuantityBounds()
	assert.Equal(t, "0.5", lower.Decimal.String())
	assert.Equal(t, "500", upper.Decimal.String())

	vvs := profiles["vvs"]
	require.NotNil(t, vvs, "code falls back to the file name")
	assert.Equal(t, "vvs", vvs.Name)
	assert.Equal(t, types.SourceTable, vvs.Mode())
}

func TestLoadProfiles_MissingDirectory(t *testing.T) {
	profiles, err := LoadProfiles(filepath.Join(t.TempDir(), "none"))
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestLoadProfiles_DuplicateCode(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "a.yaml", "code: same\nfile_matching_patterns: [\"*\"]\n")
	writeYAML(t, dir, "b.yaml", "code: same\nfile_matching_patterns: [\"*\"]\n")

	_, err := LoadProfiles(dir)
	assert.ErrorContains(t, err, "same")
}

func TestValidateProfile_ReportsEveryProblem(t *testing.T) {
	profile := &SupplierProfile{
		Code:                 "broken",
		FileMatchingPatterns: []string{"[unclosed"},
		ExtractionMode:       "ocr",
		QuantityMatch:        "middle",
		AmountMatch:          "last",
		QuantityMin:          "100",
		QuantityMax:          "10",
		AnnotationLabels:     map[string][]string{"freight": {"Frakt"}},
		TableColumns:         TableColumns{Omit: []string{"colour"}},
	}

	err := ValidateProfile(profile)
	require.Error(t, err)
	for _, want := range []string{"file_matching_patterns", "extraction_mode", "quantity_match", "quantity_min 100", "freight", "colour"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestDefaultProfile(t *testing.T) {
	profile := DefaultProfile()
	require.NoError(t, ValidateProfile(profile))
	assert.Equal(t, DefaultProfileCode, profile.Code)
	assert.Equal(t, types.SourceTable, profile.Mode())
	assert.True(t, profile.Matches("/in/anything.pdf"))
}

func TestSelectProfile(t *testing.T) {
	profiles := map[string]*SupplierProfile{
		"b-elektro": {Code: "b-elektro", FileMatchingPatterns: []string{"elektro_*"}},
		"a-vvs":     {Code: "a-vvs", FileMatchingPatterns: []string{"*.xlsx", "VVS_*"}},
	}

	p, err := SelectProfile(profiles, "/in/Elektro_2024.pdf", "")
	require.NoError(t, err)
	assert.Equal(t, "b-elektro", p.Code)

	p, err = SelectProfile(profiles, "elektro_2024.xlsx", "")
	require.NoError(t, err)
	assert.Equal(t, "a-vvs", p.Code, "profiles are tried in code order")

	p, err = SelectProfile(profiles, "scan.pdf", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultProfileCode, p.Code)

	p, err = SelectProfile(profiles, "scan.pdf", "b-elektro")
	require.NoError(t, err)
	assert.Equal(t, "b-elektro", p.Code)

	p, err = SelectProfile(profiles, "scan.pdf", DefaultProfileCode)
	require.NoError(t, err)
	assert.Equal(t, DefaultProfileCode, p.Code)

	_, err = SelectProfile(profiles, "scan.pdf", "unknown")
	assert.Error(t, err)
}
