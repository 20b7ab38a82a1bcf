// Package preflight provides readiness checks for the filesystem paths,
// database, and listener that imgferry depends on.
//
// The daemon calls RunAll before it starts serving; any failed check aborts
// startup so the process does not accept uploads it cannot store. The CLI
// "imgferry doctor" command prints the same results as a table.
package preflight
