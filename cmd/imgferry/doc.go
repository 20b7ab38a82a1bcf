// Package main hosts the imgferry CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the HTTP server, triggers corpus
// migrations and single-document migrations, imports markdown archives from
// disk, prints readiness checks, and scaffolds configuration. It centralizes
// configuration resolution, .env loading, and logger setup so subcommands can
// focus on output instead of wiring.
//
// Keep this package lean: new behavior belongs in the internal packages
// first and is surfaced here through dedicated commands or flags.
package main
