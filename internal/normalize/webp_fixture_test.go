package normalize_test

import (
	"io"

	"github.com/gen2brain/webp"

	"imgferry/internal/testsupport"
)

func encodeTestWebP(w io.Writer) error {
	return webp.Encode(w, testsupport.Gradient(32, 32), webp.Options{Quality: 80})
}
