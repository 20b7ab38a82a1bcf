package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"imgferry/internal/assets"
	"imgferry/internal/logging"
	"imgferry/internal/markup"
	"imgferry/internal/normalize"
	"imgferry/internal/services"
	"imgferry/internal/source"
	"imgferry/internal/textutil"
)

// Stage names the step at which a reference failed.
type Stage string

const (
	StageResolve   Stage = "resolve"
	StageNormalize Stage = "normalize"
	StagePersist   Stage = "persist"
)

// DefaultRemoteAltText labels remote images whose reference had no alt text.
const DefaultRemoteAltText = "Imported image"

// Success records a reference that now points at a stored asset.
type Success struct {
	OriginalLocator string `json:"originalUrl"`
	NewPath         string `json:"newPath"`
	NewURL          string `json:"newUrl"`
	AssetID         string `json:"imageId"`
	AltText         string `json:"altText,omitempty"`
	Filename        string `json:"-"`
}

// Failure records a reference that was left untouched.
type Failure struct {
	Locator string `json:"url"`
	Stage   Stage  `json:"stage"`
	Error   string `json:"error"`
}

// Outcome is the result of processing one document.
type Outcome struct {
	Content   string    `json:"-"`
	Changed   bool      `json:"changed"`
	Succeeded []Success `json:"processedImages"`
	Failed    []Failure `json:"errors"`
}

// Filter selects which references to process. A nil Filter selects all.
type Filter func(markup.Reference) bool

// RemoteOnly selects http(s) references.
func RemoteOnly(ref markup.Reference) bool {
	return ref.Kind == markup.KindRemote
}

// LocalOnly selects archive-relative references.
func LocalOnly(ref markup.Reference) bool {
	return ref.Kind == markup.KindLocal
}

// Request describes a single document run.
type Request struct {
	Content    string
	UploadedBy string
	Origin     assets.OriginKind
	Resolver   source.Resolver
	// URLBuilder turns a canonical path into the written location. Nil keeps
	// paths relative.
	URLBuilder assets.URLBuilder
	Filter     Filter
}

// Item is one image to carry through the stages.
type Item struct {
	Locator    string
	AltText    string
	UploadedBy string
	Origin     assets.OriginKind
	// OriginalLocator is stored with the asset. Defaults to Locator.
	OriginalLocator string
}

// Normalizer is the normalize stage.
type Normalizer interface {
	Normalize(data []byte) normalize.Asset
}

// Persister is the persist stage.
type Persister interface {
	Persist(ctx context.Context, asset assets.NewAsset) (assets.Saved, error)
}

// Pipeline wires the three stages together.
type Pipeline struct {
	normalizer Normalizer
	persister  Persister
	known      assets.Lookup
	logger     *slog.Logger
	now        func() time.Time
}

// New constructs a Pipeline.
func New(normalizer Normalizer, persister Persister, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		normalizer: normalizer,
		persister:  persister,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
		now:        time.Now,
	}
}

// WithClock overrides the clock used to stamp stored filenames.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	clone := *p
	if now != nil {
		clone.now = now
	}
	return &clone
}

// WithAssetLookup lets absolute self-references written under any origin
// count as already stored.
func (p *Pipeline) WithAssetLookup(lookup assets.Lookup) *Pipeline {
	clone := *p
	clone.known = lookup
	return &clone
}

// IsStored reports whether locator already points at a stored asset.
func (p *Pipeline) IsStored(ctx context.Context, locator string, build assets.URLBuilder) bool {
	return assets.IsStoredLocator(ctx, locator, build, p.known)
}

// Process extracts the references in req.Content, runs each distinct one
// through the stages, and rewrites the successes. References that already
// point at a stored asset are skipped. On context cancellation the
// remaining references are recorded as failed.
func (p *Pipeline) Process(ctx context.Context, req Request) Outcome {
	outcome := Outcome{Content: req.Content}
	build := req.URLBuilder
	if build == nil {
		build = assets.RelativeURLs
	}
	logger := logging.WithContext(ctx, p.logger)

	refs := markup.Unique(markup.Extract(req.Content))
	var pending []markup.Reference
	for _, ref := range refs {
		if req.Filter != nil && !req.Filter(ref) {
			continue
		}
		if p.IsStored(ctx, ref.Locator, build) {
			continue
		}
		pending = append(pending, ref)
	}
	if len(pending) == 0 {
		return outcome
	}
	if req.Resolver == nil {
		for _, ref := range pending {
			outcome.Failed = append(outcome.Failed, Failure{Locator: ref.Locator, Stage: StageResolve, Error: "no resolver configured"})
		}
		return outcome
	}

	replacements := make([]markup.Replacement, 0, len(pending))
	for i, ref := range pending {
		if err := ctx.Err(); err != nil {
			for _, rest := range pending[i:] {
				outcome.Failed = append(outcome.Failed, Failure{Locator: rest.Locator, Stage: StageResolve, Error: err.Error()})
			}
			logging.WarnWithContext(logger, "image processing interrupted", "pipeline_cancelled",
				logging.Int("remaining", len(pending)-i),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "re-run the request; completed images are kept"),
			)
			break
		}

		item := Item{
			Locator:    ref.Locator,
			AltText:    ref.AltText,
			UploadedBy: req.UploadedBy,
			Origin:     req.Origin,
		}
		success, failure := p.Run(ctx, req.Resolver, item, build)
		if failure != nil {
			outcome.Failed = append(outcome.Failed, *failure)
			continue
		}
		outcome.Succeeded = append(outcome.Succeeded, success)
		replacements = append(replacements, markup.Replacement{
			MatchText: ref.MatchText,
			AltText:   success.AltText,
			Location:  success.NewURL,
		})
	}

	outcome.Content = markup.Rewrite(req.Content, replacements)
	outcome.Changed = outcome.Content != req.Content
	logger.Info("document images processed",
		logging.Int("references", len(pending)),
		logging.Int("succeeded", len(outcome.Succeeded)),
		logging.Int("failed", len(outcome.Failed)),
	)
	return outcome
}

// Run carries one item through resolve, normalize, and persist. Exactly one
// of the return values is meaningful: a nil Failure means success.
func (p *Pipeline) Run(ctx context.Context, resolver source.Resolver, item Item, build assets.URLBuilder) (Success, *Failure) {
	if build == nil {
		build = assets.RelativeURLs
	}
	logger := logging.WithContext(ctx, p.logger).With(logging.String(logging.FieldLocator, item.Locator))
	fail := func(stage Stage, err error) (Success, *Failure) {
		logging.WarnWithContext(logger, "image reference failed", "image_failed",
			logging.String(logging.FieldStage, string(stage)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hintFor(stage, err)),
		)
		return Success{}, &Failure{Locator: item.Locator, Stage: stage, Error: err.Error()}
	}

	raw, err := resolver.Resolve(ctx, item.Locator)
	if err != nil {
		return fail(StageResolve, err)
	}

	normalized := p.normalizer.Normalize(raw.Data)
	if len(normalized.Data) == 0 {
		return fail(StageNormalize, services.Wrap(services.ErrNormalization, string(StageNormalize), "normalize", "empty image data", nil))
	}

	origin := item.Origin
	if origin == "" {
		origin = assets.OriginManual
	}
	altText := strings.TrimSpace(item.AltText)
	if altText == "" {
		altText = defaultAltText(origin, raw)
	}
	originalLocator := item.OriginalLocator
	if originalLocator == "" {
		originalLocator = item.Locator
	}

	fileName := p.fileName(origin, raw, normalized.MIMEType)
	saved, err := p.persister.Persist(ctx, assets.NewAsset{
		Data:            normalized.Data,
		MIMEType:        normalized.MIMEType,
		Filename:        fileName,
		AltText:         altText,
		UploadedBy:      item.UploadedBy,
		Origin:          origin,
		OriginalLocator: originalLocator,
		Width:           normalized.Width,
		Height:          normalized.Height,
	})
	if err != nil {
		return fail(StagePersist, err)
	}

	logger.Debug("image stored",
		logging.String("asset_id", saved.ID),
		logging.String("mime_type", normalized.MIMEType),
		logging.Bool("optimized", normalized.Optimized),
		logging.Bool("resized", normalized.Resized),
	)
	return Success{
		OriginalLocator: item.Locator,
		NewPath:         saved.CanonicalPath,
		NewURL:          build(saved.CanonicalPath),
		AssetID:         saved.ID,
		AltText:         altText,
		Filename:        fileName,
	}, nil
}

func (p *Pipeline) fileName(origin assets.OriginKind, raw source.RawAsset, mimeType string) string {
	name := raw.Filename
	if name == "" {
		name = "image" + normalize.ExtensionFor(mimeType)
	}
	if origin == assets.OriginRemoteImport {
		return textutil.ImportedFileName(p.now(), name)
	}
	return textutil.StampedFileName(p.now(), name)
}

func defaultAltText(origin assets.OriginKind, raw source.RawAsset) string {
	switch {
	case origin == assets.OriginManual:
		return ""
	case origin == assets.OriginArchiveImport && raw.Filename != "":
		return raw.Filename
	}
	return DefaultRemoteAltText
}

func hintFor(stage Stage, err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "re-run the request; the reference was left unchanged"
	case stage == StageResolve:
		return "verify the image location is reachable"
	case stage == StagePersist:
		return "check the asset store; the reference was left unchanged"
	default:
		return "inspect the image bytes"
	}
}
