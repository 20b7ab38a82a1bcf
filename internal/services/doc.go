// Package services defines shared utilities consumed by the ingestion
// pipeline, the archive importer, and the migration runner.
//
// Key responsibilities:
//   - Context helpers that stamp document IDs, stage names, uploaders, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (resolution, normalization, persistence, import structure) so callers
//     and the HTTP layer can report them consistently.
//
// Use these helpers when wiring new stage logic so error reporting stays
// uniform across the pipeline.
package services
