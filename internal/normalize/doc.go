// Package normalize sniffs image bytes and re-encodes raster formats so the
// long edge stays within a configured bound.
//
// JPEG, PNG, and WebP keep their format. BMP and TIFF are converted to JPEG.
// GIF and SVG pass through untouched because re-encoding would drop
// animation or vector data. Normalize never fails: when decoding or encoding
// goes wrong the original bytes are returned with the sniffed type.
package normalize
