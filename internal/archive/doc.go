// Package archive imports a zipped project: one markup file plus the images
// it references. The archive is unpacked into a scratch directory, every
// recognized image is stored, and the markup is rewritten to point at the
// stored copies. The scratch directory is handed to a scratch.Scheduler for
// delayed removal whatever the outcome.
package archive
