// Package daemon coordinates the long-running imgferry process.
//
// It wires configuration, the SQLite store, the remote fetcher, the image
// pipeline, the archive importer, and the batch migrator into a single
// lifecycle with flock-based locking to prevent multiple servers sharing a
// data directory. Start sweeps scratch directories left by a previous run,
// runs preflight checks, and serves the HTTP API until Stop.
//
// Keep orchestration logic here: ingestion rules belong to the pipeline,
// archive, and migration packages while the daemon focuses on startup,
// shutdown, and wiring.
package daemon
