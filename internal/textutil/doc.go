// Package textutil provides small string helpers shared by the importers:
// sanitizing stored asset filenames and normalizing reference paths so that
// archive entries and markup locators compare equal regardless of Unicode
// composition or leading "./" segments.
package textutil
