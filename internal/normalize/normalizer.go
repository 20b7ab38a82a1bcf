package normalize

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"

	"github.com/gen2brain/jpegli"
	"github.com/gen2brain/webp"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	xwebp "golang.org/x/image/webp"

	"imgferry/internal/config"
	"imgferry/internal/logging"
)

const (
	DefaultMaxDimension = 1920
	DefaultJPEGQuality  = 85
	DefaultWebPQuality  = 85
)

// Asset is the normalized form of an image.
type Asset struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
	// Optimized is false when the original bytes were kept.
	Optimized bool
	// Resized is true when the long edge was scaled down.
	Resized bool
}

// Options configures a Normalizer.
type Options struct {
	MaxDimension int
	JPEGQuality  int
	WebPQuality  int
}

// DefaultOptions returns the stock bounds and qualities.
func DefaultOptions() Options {
	return Options{
		MaxDimension: DefaultMaxDimension,
		JPEGQuality:  DefaultJPEGQuality,
		WebPQuality:  DefaultWebPQuality,
	}
}

// WebPEncoder writes img as lossy WebP at the given quality.
type WebPEncoder func(w io.Writer, img image.Image, quality int) error

// JPEGEncoder writes img as progressive JPEG at the given quality.
type JPEGEncoder func(w io.Writer, img image.Image, quality int) error

// Normalizer bounds and re-encodes raster images.
type Normalizer struct {
	opts       Options
	logger     *slog.Logger
	encodeWebP WebPEncoder
	encodeJPEG JPEGEncoder
}

// New builds a Normalizer. Zero option fields fall back to defaults.
func New(opts Options, logger *slog.Logger) *Normalizer {
	defaults := DefaultOptions()
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = defaults.MaxDimension
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = defaults.JPEGQuality
	}
	if opts.WebPQuality <= 0 {
		opts.WebPQuality = defaults.WebPQuality
	}
	return &Normalizer{
		opts:       opts,
		logger:     logging.NewComponentLogger(logger, "normalize"),
		encodeWebP: encodeWebP,
		encodeJPEG: encodeProgressiveJPEG,
	}
}

// NewFromConfig applies the [normalize] config section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Normalizer {
	if cfg == nil {
		return New(DefaultOptions(), logger)
	}
	return New(Options{
		MaxDimension: cfg.Normalize.MaxDimension,
		JPEGQuality:  cfg.Normalize.JPEGQuality,
		WebPQuality:  cfg.Normalize.WebPQuality,
	}, logger)
}

// WithWebPEncoder replaces the WebP encoder. Used by tests to simulate
// encoder failures.
func (n *Normalizer) WithWebPEncoder(enc WebPEncoder) *Normalizer {
	clone := *n
	if enc != nil {
		clone.encodeWebP = enc
	}
	return &clone
}

// WithJPEGEncoder replaces the progressive JPEG encoder. A failing encoder
// falls back to baseline output.
func (n *Normalizer) WithJPEGEncoder(enc JPEGEncoder) *Normalizer {
	clone := *n
	if enc != nil {
		clone.encodeJPEG = enc
	}
	return &clone
}

// Options returns the effective options.
func (n *Normalizer) Options() Options {
	return n.opts
}

// Normalize never returns an error. On any decode or encode failure it logs
// a warning and returns the original bytes. The fallback type is the sniffed
// one when it is a storable type and image/jpeg otherwise.
func (n *Normalizer) Normalize(data []byte) Asset {
	mimeType := DetectMIME(data)
	original := Asset{Data: data, MIMEType: StoredMIME(mimeType)}

	if mimeType == MIMESVG {
		return original
	}
	if mimeType == MIMEGIF {
		if cfg, err := gif.DecodeConfig(bytes.NewReader(data)); err == nil {
			original.Width, original.Height = cfg.Width, cfg.Height
		}
		return original
	}

	img, format, err := decode(data, mimeType)
	if err != nil {
		logging.WarnWithContext(n.logger, "image decode failed; keeping original bytes", "normalize_decode_failed",
			logging.String("mime_type", mimeType),
			logging.Int("bytes", len(data)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the stored asset is the unmodified download"),
		)
		return original
	}

	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	original.Width, original.Height = srcW, srcH

	targetMIME := outputMIME(format)
	w, h := FitWithin(srcW, srcH, n.opts.MaxDimension)
	resized := w != srcW || h != srcH
	if resized {
		img = scale(img, w, h)
	}

	encoded, err := n.encode(img, targetMIME)
	if err != nil {
		logging.WarnWithContext(n.logger, "image encode failed; keeping original bytes", "normalize_encode_failed",
			logging.String("mime_type", targetMIME),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the stored asset is the unmodified download"),
		)
		return original
	}

	if !resized && targetMIME == mimeType && len(encoded) >= len(data) {
		n.logger.Debug("re-encode not smaller; keeping original bytes",
			logging.String("mime_type", mimeType),
			logging.Int("original_bytes", len(data)),
			logging.Int("encoded_bytes", len(encoded)),
		)
		return original
	}

	if resized {
		n.logger.Debug("image downscaled",
			logging.Int("from_width", srcW), logging.Int("from_height", srcH),
			logging.Int("width", w), logging.Int("height", h),
		)
	}
	return Asset{
		Data:      encoded,
		MIMEType:  targetMIME,
		Width:     w,
		Height:    h,
		Optimized: true,
		Resized:   resized,
	}
}

func decode(data []byte, mimeType string) (image.Image, string, error) {
	if mimeType == MIMEWebP {
		img, err := xwebp.Decode(bytes.NewReader(data))
		return img, "webp", err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", mimeType, err)
	}
	return img, format, nil
}

func outputMIME(format string) string {
	switch format {
	case "png":
		return MIMEPNG
	case "webp":
		return MIMEWebP
	default:
		return MIMEJPEG
	}
}

func (n *Normalizer) encode(img image.Image, mimeType string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch mimeType {
	case MIMEPNG:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		err = enc.Encode(&buf, img)
	case MIMEWebP:
		err = n.encodeWebP(&buf, img, n.opts.WebPQuality)
	default:
		flat := flatten(img)
		if perr := n.encodeJPEG(&buf, flat, n.opts.JPEGQuality); perr != nil {
			n.logger.Debug("progressive jpeg encode failed; using baseline encoder", logging.Error(perr))
			buf.Reset()
			err = jpeg.Encode(&buf, flat, &jpeg.Options{Quality: n.opts.JPEGQuality})
		}
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", mimeType, err)
	}
	return buf.Bytes(), nil
}

func encodeWebP(w io.Writer, img image.Image, quality int) error {
	return webp.Encode(w, img, webp.Options{Quality: quality})
}

func encodeProgressiveJPEG(w io.Writer, img image.Image, quality int) error {
	return jpegli.Encode(w, img, &jpegli.EncodingOptions{
		Quality:          quality,
		ProgressiveLevel: 2,
	})
}
