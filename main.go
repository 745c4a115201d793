// =============================================================================
// Invoice Line Extractor - Main Entry Point
// =============================================================================
//
// This is the main entry point for the Invoice Line Extractor CLI. It
// delegates command execution to the cmd package (Cobra).
//
// USAGE:
//   invoicelines parse <file>  - Print the line items of one invoice
//   invoicelines process       - Process all invoices in the input directory
//   invoicelines validate      - Validate configuration files without processing
//   invoicelines version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Extraction engine, parsers, configuration, output
//   - pkg/           : Shared file management utilities
//   - profiles/      : Supplier profiles (YAML)
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/invoicelines/cmd"
)

func main() {
	cmd.Execute()
}
