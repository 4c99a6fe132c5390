// =============================================================================
// Offline Geodatabase Converter - Main Entry Point
// =============================================================================
//
// This is the main entry point for the offlinegdb CLI application. It
// delegates command execution to the cmd package.
//
// USAGE:
//   offlinegdb [OUTPUT_GDB_NAME INPUT_GEODATABASE]  - Run the conversion
//   offlinegdb inspect PATH                         - List a geodatabase's datasets
//   offlinegdb version                              - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Conversion logic (not for external import)
//   - pkg/       : Shared utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/offline-gdb-converter/cmd"
)

func main() {
	cmd.Execute()
}
