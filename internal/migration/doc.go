// Package migration rewrites remote image references across every stored
// document.
//
// MigrateAll walks the corpus in fixed-size groups with a pause between
// groups to bound sustained outbound load. A dry run only reports what it
// found. A failure inside one document, including a panic, is recorded in
// the report and the walk continues with the next document.
package migration
