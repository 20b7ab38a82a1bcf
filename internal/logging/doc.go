// Package logging assembles structured slog loggers and formatting helpers used
// across imgferry.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with document IDs, stages, and correlation IDs. When a log directory
// is configured every record is also written to a JSON log file. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
