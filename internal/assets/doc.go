// Package assets owns the stored-image model, the two-phase persistence
// protocol, and the canonical path scheme "/api/images/{id}".
//
// A Persister first creates the record to obtain an identifier, then records
// the canonical path derived from that identifier. The Store interface is
// satisfied by the SQLite adapter in package store and by in-memory fakes in
// tests.
package assets
