package normalize_test

import (
	"bytes"
	"errors"
	"image"
	"io"
	"testing"

	"imgferry/internal/logging"
	"imgferry/internal/normalize"
	"imgferry/internal/testsupport"
)

func TestDetectMIME(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"png", testsupport.PNG(t, 4, 4), normalize.MIMEPNG},
		{"jpeg", testsupport.JPEG(t, 4, 4, 90), normalize.MIMEJPEG},
		{"gif", testsupport.GIF(t, 4, 4), normalize.MIMEGIF},
		{"svg", testsupport.SVG(), normalize.MIMESVG},
		{"garbage", []byte("definitely not an image"), normalize.MIMEJPEG},
		{"empty", nil, normalize.MIMEJPEG},
	}
	for _, tc := range cases {
		if got := normalize.DetectMIME(tc.data); got != tc.want {
			t.Fatalf("%s: DetectMIME = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestFitWithin(t *testing.T) {
	cases := []struct {
		w, h, max   int
		wantW, wantH int
	}{
		{4000, 3000, 1920, 1920, 1440},
		{3000, 4000, 1920, 1440, 1920},
		{1920, 1080, 1920, 1920, 1080},
		{800, 600, 1920, 800, 600},
		{5000, 1, 1920, 1920, 1},
	}
	for _, tc := range cases {
		w, h := normalize.FitWithin(tc.w, tc.h, tc.max)
		if w != tc.wantW || h != tc.wantH {
			t.Fatalf("FitWithin(%d,%d,%d) = %d,%d want %d,%d", tc.w, tc.h, tc.max, w, h, tc.wantW, tc.wantH)
		}
	}
}

func TestNormalizeDownscalesLargeJPEG(t *testing.T) {
	n := normalize.New(normalize.DefaultOptions(), logging.NewNop())
	asset := n.Normalize(testsupport.JPEG(t, 2400, 1800, 95))

	if asset.MIMEType != normalize.MIMEJPEG {
		t.Fatalf("unexpected mime %q", asset.MIMEType)
	}
	if !asset.Optimized || !asset.Resized {
		t.Fatalf("expected optimized resized asset, got %+v", asset)
	}
	w, h := testsupport.DecodeSize(t, asset.Data)
	if w != 1920 || h != 1440 {
		t.Fatalf("expected 1920x1440, got %dx%d", w, h)
	}
}

func TestNormalizeWritesProgressiveJPEG(t *testing.T) {
	n := normalize.New(normalize.DefaultOptions(), logging.NewNop())
	asset := n.Normalize(testsupport.JPEG(t, 2400, 1200, 95))

	if !asset.Optimized || asset.MIMEType != normalize.MIMEJPEG {
		t.Fatalf("expected optimized jpeg, got %q optimized=%v", asset.MIMEType, asset.Optimized)
	}
	if got := frameMarker(t, asset.Data); got != 0xC2 {
		t.Fatalf("expected progressive SOF2 frame, got marker %#x", got)
	}
	w, h := testsupport.DecodeSize(t, asset.Data)
	if w != 1920 || h != 960 {
		t.Fatalf("expected 1920x960, got %dx%d", w, h)
	}
}

func TestNormalizeFallsBackToBaselineJPEG(t *testing.T) {
	n := normalize.New(normalize.DefaultOptions(), logging.NewNop()).WithJPEGEncoder(func(io.Writer, image.Image, int) error {
		return errors.New("jpegli unavailable")
	})
	asset := n.Normalize(testsupport.JPEG(t, 2400, 1200, 95))

	if !asset.Optimized || !asset.Resized {
		t.Fatalf("expected baseline output to still count as optimized, got %+v", asset)
	}
	if got := frameMarker(t, asset.Data); got != 0xC0 {
		t.Fatalf("expected baseline SOF0 frame, got marker %#x", got)
	}
}

func TestNormalizeFallbackClaimsJPEGForUnstorableTypes(t *testing.T) {
	n := normalize.New(normalize.DefaultOptions(), logging.NewNop())
	data := []byte("BM\x00\x00garbage that is not a bitmap")
	asset := n.Normalize(data)

	if !bytes.Equal(asset.Data, data) || asset.Optimized {
		t.Fatal("expected original bytes on decode failure")
	}
	if asset.MIMEType != normalize.MIMEJPEG {
		t.Fatalf("expected image/jpeg for an undecodable bitmap, got %q", asset.MIMEType)
	}
}

func TestStoredMIME(t *testing.T) {
	for _, m := range []string{normalize.MIMEJPEG, normalize.MIMEPNG, normalize.MIMEWebP, normalize.MIMEGIF, normalize.MIMESVG} {
		if got := normalize.StoredMIME(m); got != m {
			t.Fatalf("StoredMIME(%q) = %q", m, got)
		}
	}
	for _, m := range []string{normalize.MIMEBMP, normalize.MIMETIFF, "application/octet-stream"} {
		if got := normalize.StoredMIME(m); got != normalize.MIMEJPEG {
			t.Fatalf("StoredMIME(%q) = %q, want image/jpeg", m, got)
		}
	}
}

// frameMarker walks the JPEG segments and returns the first SOFn marker byte.
func frameMarker(t *testing.T, data []byte) byte {
	t.Helper()
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Fatal("not a jpeg stream")
	}
	for i := 2; i+4 <= len(data); {
		if data[i] != 0xFF {
			t.Fatalf("lost segment sync at offset %d", i)
		}
		marker := data[i+1]
		if marker == 0xFF {
			i++
			continue
		}
		if marker >= 0xC0 && marker <= 0xCF && marker != 0xC4 && marker != 0xC8 && marker != 0xCC {
			return marker
		}
		length := int(data[i+2])<<8 | int(data[i+3])
		i += 2 + length
	}
	t.Fatal("no frame marker found")
	return 0
}

func TestNormalizeKeepsDimensionsWithinBound(t *testing.T) {
	n := normalize.New(normalize.DefaultOptions(), logging.NewNop())
	asset := n.Normalize(testsupport.PNG(t, 1920, 1080))

	if asset.MIMEType != normalize.MIMEPNG {
		t.Fatalf("unexpected mime %q", asset.MIMEType)
	}
	if asset.Resized {
		t.Fatal("did not expect resize at the bound")
	}
	w, h := testsupport.DecodeSize(t, asset.Data)
	if w != 1920 || h != 1080 {
		t.Fatalf("expected unchanged 1920x1080, got %dx%d", w, h)
	}
}

func TestNormalizeTallPNGBoundsHeight(t *testing.T) {
	n := normalize.New(normalize.Options{MaxDimension: 100}, logging.NewNop())
	asset := n.Normalize(testsupport.PNG(t, 50, 400))
	w, h := testsupport.DecodeSize(t, asset.Data)
	if w != 13 || h != 100 {
		t.Fatalf("expected 13x100, got %dx%d", w, h)
	}
	if asset.MIMEType != normalize.MIMEPNG {
		t.Fatalf("expected png output, got %q", asset.MIMEType)
	}
}

func TestNormalizePassesThroughGIFAndSVG(t *testing.T) {
	n := normalize.New(normalize.DefaultOptions(), logging.NewNop())

	gifData := testsupport.GIF(t, 3000, 10)
	asset := n.Normalize(gifData)
	if asset.MIMEType != normalize.MIMEGIF || !bytes.Equal(asset.Data, gifData) || asset.Optimized {
		t.Fatalf("expected gif passthrough, got mime=%q optimized=%v", asset.MIMEType, asset.Optimized)
	}
	if asset.Width != 3000 || asset.Height != 10 {
		t.Fatalf("expected gif dimensions reported, got %dx%d", asset.Width, asset.Height)
	}

	svgData := testsupport.SVG()
	asset = n.Normalize(svgData)
	if asset.MIMEType != normalize.MIMESVG || !bytes.Equal(asset.Data, svgData) {
		t.Fatalf("expected svg passthrough, got %q", asset.MIMEType)
	}
}

func TestNormalizeFallsBackOnUndecodableBytes(t *testing.T) {
	n := normalize.New(normalize.DefaultOptions(), logging.NewNop())
	data := []byte("\x89PNG\r\n\x1a\n truncated")
	asset := n.Normalize(data)
	if !bytes.Equal(asset.Data, data) {
		t.Fatal("expected original bytes on decode failure")
	}
	if asset.MIMEType != normalize.MIMEPNG {
		t.Fatalf("expected sniffed mime, got %q", asset.MIMEType)
	}
	if asset.Optimized {
		t.Fatal("expected Optimized=false on fallback")
	}
}

func TestNormalizeFallsBackOnEncoderFailure(t *testing.T) {
	var buf bytes.Buffer
	if err := encodeTestWebP(&buf); err != nil {
		t.Skipf("webp fixture unavailable: %v", err)
	}
	failing := normalize.New(normalize.DefaultOptions(), logging.NewNop()).WithWebPEncoder(func(io.Writer, image.Image, int) error {
		return errors.New("encoder unavailable")
	})
	asset := failing.Normalize(buf.Bytes())
	if !bytes.Equal(asset.Data, buf.Bytes()) || asset.Optimized {
		t.Fatal("expected original bytes when the encoder fails")
	}
	if asset.MIMEType != normalize.MIMEWebP {
		t.Fatalf("expected webp mime, got %q", asset.MIMEType)
	}
}

func TestNormalizeKeepsOriginalWhenReencodeIsLarger(t *testing.T) {
	n := normalize.New(normalize.Options{MaxDimension: 1920, JPEGQuality: 100}, logging.NewNop())
	data := testsupport.JPEG(t, 64, 64, 10)
	asset := n.Normalize(data)
	if !bytes.Equal(asset.Data, data) {
		t.Fatal("expected original bytes when quality-100 re-encode is larger")
	}
	if asset.Optimized {
		t.Fatal("expected Optimized=false when original kept")
	}
}

func TestExtensionFor(t *testing.T) {
	if normalize.ExtensionFor(normalize.MIMEWebP) != ".webp" || normalize.ExtensionFor("application/x-unknown") != ".jpg" {
		t.Fatal("unexpected extension mapping")
	}
	if !normalize.IsPassthrough(normalize.MIMESVG) || normalize.IsPassthrough(normalize.MIMEPNG) {
		t.Fatal("unexpected passthrough classification")
	}
}
