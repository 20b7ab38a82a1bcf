// Package store is the SQLite persistence layer for documents and image
// assets.
//
// Open applies the connection pragmas (WAL journal, foreign keys, busy
// timeout), creates the schema on first use, and refuses databases written
// by a different schema version. Writes retry briefly on SQLITE_BUSY so the
// API server and a concurrent CLI migration can share the file.
//
// Assets() and Documents() expose repositories that satisfy assets.Store and
// documents.Store.
package store
