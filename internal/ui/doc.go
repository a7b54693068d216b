// Package ui provides terminal UI components for the mcmctl CLI.
//
// This package uses Bubble Tea and Lipgloss to render terminal output for
// master commands. The components follow a "run once and exit" pattern: they
// render output and do not keep an interactive session open.
//
// # Components
//
//   - Header: command banner showing operation name and parameters
//   - Result: success/failure/warning boxes with details
//   - Table: bordered multi-row listings (registered masters)
//   - Printer: writes headers, results and key/value tables to a writer
//   - Spinner: runs a blocking task behind a spinner (bootloading)
//   - Confirm: typed confirmation before writing device memory
//
// # Logging Integration
//
// Logging is controlled via MCM_LOG_LEVEL. When unset, zap is silent so the
// curated output is displayed cleanly.
//
// # Non-interactive output
//
// When stdout is not a terminal (pipes, CI) the spinner degrades to plain
// progress lines and no escape sequences are written by RunWithSpinner.
package ui
