// Package pipeline runs each image reference of one document through
// resolve, normalize, and persist, then rewrites the document so that every
// reference that made it through points at its stored asset.
//
// Processing is a sequential fold over the references. A failing reference
// is recorded in the Outcome and keeps its original text; it never aborts
// the references after it and never undoes the ones before it.
package pipeline
