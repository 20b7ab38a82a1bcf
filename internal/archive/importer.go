package archive

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"imgferry/internal/assets"
	"imgferry/internal/config"
	"imgferry/internal/logging"
	"imgferry/internal/markup"
	"imgferry/internal/pipeline"
	"imgferry/internal/scratch"
	"imgferry/internal/services"
	"imgferry/internal/source"
	"imgferry/internal/textutil"
)

const stageImport = "import"

var (
	markupExtensions = []string{".md", ".markdown"}
	imageExtensions  = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg"}
)

// Upload is an archive submitted for import.
type Upload struct {
	Filename   string
	Data       []byte
	UploadedBy string
	URLBuilder assets.URLBuilder
}

// Stats summarizes an import.
type Stats struct {
	TotalImages  int `json:"totalImages"`
	Uploaded     int `json:"successfulUploads"`
	Failed       int `json:"failedUploads"`
	Unreferenced int `json:"unreferencedImages"`
	Unresolved   int `json:"unresolvedReferences"`
}

// Result carries the rewritten markup and per-image results.
type Result struct {
	MarkupFile      string             `json:"markdownFile"`
	OriginalContent string             `json:"-"`
	Content         string             `json:"-"`
	Title           string             `json:"title"`
	Summary         string             `json:"summary"`
	Succeeded       []pipeline.Success `json:"uploadedImages"`
	Failed          []pipeline.Failure `json:"errors"`
	Stats           Stats              `json:"stats"`
}

// Importer unpacks archives and stores their images.
type Importer struct {
	pipe      *pipeline.Pipeline
	scheduler *scratch.Scheduler
	limits    Limits
	logger    *slog.Logger
}

// NewImporter builds an Importer.
func NewImporter(pipe *pipeline.Pipeline, scheduler *scratch.Scheduler, limits Limits, logger *slog.Logger) *Importer {
	return &Importer{
		pipe:      pipe,
		scheduler: scheduler,
		limits:    limits,
		logger:    logging.NewComponentLogger(logger, "archive"),
	}
}

// LimitsFromConfig reads the [archive] limits.
func LimitsFromConfig(cfg *config.Config) Limits {
	return Limits{MaxBytes: cfg.Archive.MaxBytes, MaxEntries: cfg.Archive.MaxEntries}
}

// Import unpacks upload, stores every recognized image, and rewrites the
// markup. Structural problems (not a zip, zero or several markup files) are
// returned as errors; per-image problems are recorded in the Result.
func (i *Importer) Import(ctx context.Context, upload Upload) (*Result, error) {
	if len(upload.Data) == 0 {
		return nil, services.Wrap(services.ErrValidation, stageImport, "import archive", "empty upload", nil)
	}
	if name := strings.ToLower(strings.TrimSpace(upload.Filename)); name != "" && path.Ext(name) != ".zip" {
		return nil, services.Wrap(services.ErrValidation, stageImport, "import archive", fmt.Sprintf("%q is not a .zip file", upload.Filename), nil)
	}

	dir, err := i.scheduler.NewDir()
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, stageImport, "create scratch directory", "", err)
	}
	defer i.scheduler.Schedule(dir)

	logger := logging.WithContext(ctx, i.logger).With(logging.String("archive", upload.Filename))
	files, err := extract(upload.Data, dir, i.limits)
	if err != nil {
		return nil, err
	}
	logger.Debug("archive unpacked", logging.Int("files", files), logging.String("dir", dir))

	root, err := descend(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrImportStructure, stageImport, "inspect archive", "", err)
	}
	markupFile, images, err := inventory(root)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(markupFile)))
	if err != nil {
		return nil, services.Wrap(services.ErrImportStructure, stageImport, "read markup", markupFile, err)
	}
	original := string(raw)

	build := upload.URLBuilder
	if build == nil {
		build = assets.RelativeURLs
	}
	refs := localRefs(original, build)
	claims := assign(refs, images)

	result := &Result{MarkupFile: markupFile, OriginalContent: original}
	result.Stats.TotalImages = len(images)
	reader := source.NewLocalReader(root)
	var replacements []markup.Replacement

	for _, image := range images {
		matched := claims[image]
		altText := path.Base(image)
		if len(matched) > 0 && strings.TrimSpace(matched[0].AltText) != "" {
			altText = matched[0].AltText
		}
		if len(matched) == 0 {
			result.Stats.Unreferenced++
		}

		success, failure := i.pipe.Run(ctx, reader, pipeline.Item{
			Locator:         image,
			AltText:         altText,
			UploadedBy:      upload.UploadedBy,
			Origin:          assets.OriginArchiveImport,
			OriginalLocator: image,
		}, build)
		if failure != nil {
			result.Failed = append(result.Failed, *failure)
			continue
		}
		result.Succeeded = append(result.Succeeded, success)
		for _, ref := range matched {
			replacements = append(replacements, markup.Replacement{
				MatchText: ref.MatchText,
				AltText:   ref.AltText,
				Location:  success.NewURL,
			})
		}
	}

	for _, ref := range refs {
		if _, ok := claimed(claims, ref); ok {
			continue
		}
		result.Stats.Unresolved++
		result.Failed = append(result.Failed, pipeline.Failure{
			Locator: ref.Locator,
			Stage:   pipeline.StageResolve,
			Error:   fmt.Sprintf("no image named %q in archive", textutil.BaseName(ref.Locator)),
		})
	}

	parsed := markup.ParseDocument(markup.Rewrite(original, replacements))
	result.Content = parsed.Content
	result.Title = parsed.Title
	result.Summary = parsed.Summary
	result.Stats.Uploaded = len(result.Succeeded)
	result.Stats.Failed = len(result.Failed)

	logger.Info("archive imported",
		logging.String("markup_file", markupFile),
		logging.Int("images", result.Stats.TotalImages),
		logging.Int("uploaded", result.Stats.Uploaded),
		logging.Int("failed", result.Stats.Failed),
	)
	return result, nil
}

// descend returns the single top-level directory when dir contains nothing
// else, and dir otherwise. It descends at most once.
func descend(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), nil
	}
	return dir, nil
}

// inventory finds the markup file and the recognized images beneath root.
// Paths are slash separated, relative to root, and sorted.
func inventory(root string) (string, []string, error) {
	var (
		markups []string
		images  []string
	)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		switch ext := strings.ToLower(path.Ext(rel)); {
		case hasExtension(markupExtensions, ext):
			markups = append(markups, rel)
		case hasExtension(imageExtensions, ext):
			images = append(images, rel)
		}
		return nil
	})
	if err != nil {
		return "", nil, services.Wrap(services.ErrImportStructure, stageImport, "scan archive", "", err)
	}
	switch len(markups) {
	case 0:
		return "", nil, services.Wrap(services.ErrImportStructure, stageImport, "scan archive", "no markdown file found", nil)
	case 1:
	default:
		sort.Strings(markups)
		return "", nil, services.Wrap(services.ErrImportStructure, stageImport, "scan archive",
			fmt.Sprintf("expected one markdown file, found %d: %s", len(markups), strings.Join(markups, ", ")), nil)
	}
	sort.Strings(images)
	return markups[0], images, nil
}

func hasExtension(list []string, ext string) bool {
	for _, candidate := range list {
		if candidate == ext {
			return true
		}
	}
	return false
}

// localRefs returns the distinct archive-relative references that still
// need rewriting.
func localRefs(content string, build assets.URLBuilder) []markup.Reference {
	var out []markup.Reference
	for _, ref := range markup.Unique(markup.ExtractLocal(content)) {
		if assets.IsCanonicalLocator(ref.Locator, build) {
			continue
		}
		out = append(out, ref)
	}
	return out
}

// assign maps each image to the references that resolve to it. A reference
// matches the image at the same relative path first. Otherwise it falls back
// to the first image with the same file name, which covers bare names and
// arbitrary directory prefixes.
func assign(refs []markup.Reference, images []string) map[string][]markup.Reference {
	byPath := make(map[string]string, len(images))
	byName := make(map[string]string, len(images))
	for _, image := range images {
		normalized := textutil.NormalizeRefPath(image)
		byPath[normalized] = image
		name := path.Base(normalized)
		if _, ok := byName[name]; !ok {
			byName[name] = image
		}
	}

	claims := make(map[string][]markup.Reference)
	for _, ref := range refs {
		normalized := textutil.NormalizeRefPath(ref.Locator)
		if normalized == "" {
			continue
		}
		image, ok := byPath[normalized]
		if !ok {
			image, ok = byName[path.Base(normalized)]
		}
		if ok {
			claims[image] = append(claims[image], ref)
		}
	}
	return claims
}

func claimed(claims map[string][]markup.Reference, ref markup.Reference) (string, bool) {
	for image, refs := range claims {
		for _, candidate := range refs {
			if candidate.MatchText == ref.MatchText {
				return image, true
			}
		}
	}
	return "", false
}
