// Package config loads, normalizes, and validates imgferry configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// IMGFERRY_API_TOKEN and IMGFERRY_PUBLIC_BASE_URL. The Config type centralizes
// every knob the server and CLI need: storage locations, fetch limits,
// encoder qualities, archive limits, and migration pacing.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
