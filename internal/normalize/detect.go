package normalize

import (
	"github.com/gabriel-vasile/mimetype"
)

// Recognized output media types.
const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEWebP = "image/webp"
	MIMEGIF  = "image/gif"
	MIMESVG  = "image/svg+xml"
	MIMEBMP  = "image/bmp"
	MIMETIFF = "image/tiff"
)

var sniffOrder = []string{MIMEJPEG, MIMEPNG, MIMEWebP, MIMEGIF, MIMESVG, MIMEBMP, MIMETIFF}

// DetectMIME sniffs the media type from the bytes. Anything that is not a
// recognized image type is reported as image/jpeg, which is what the
// persisted asset will claim when its bytes cannot be interpreted.
func DetectMIME(data []byte) string {
	if len(data) == 0 {
		return MIMEJPEG
	}
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		for _, candidate := range sniffOrder {
			if m.Is(candidate) {
				return candidate
			}
		}
	}
	return MIMEJPEG
}

// StoredMIME maps a sniffed type onto the set an asset may carry. Decodable
// inputs such as bmp and tiff are re-encoded as jpeg, so a fallback that
// keeps their bytes claims jpeg as well.
func StoredMIME(mimeType string) string {
	switch mimeType {
	case MIMEJPEG, MIMEPNG, MIMEWebP, MIMEGIF, MIMESVG:
		return mimeType
	default:
		return MIMEJPEG
	}
}

// IsPassthrough reports whether mimeType is stored without re-encoding.
func IsPassthrough(mimeType string) bool {
	return mimeType == MIMEGIF || mimeType == MIMESVG
}

// ExtensionFor returns the canonical file extension for a recognized type.
func ExtensionFor(mimeType string) string {
	switch mimeType {
	case MIMEPNG:
		return ".png"
	case MIMEWebP:
		return ".webp"
	case MIMEGIF:
		return ".gif"
	case MIMESVG:
		return ".svg"
	default:
		return ".jpg"
	}
}
