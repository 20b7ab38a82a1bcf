package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"imgferry/internal/services"
	"imgferry/internal/textutil"
)

var errOutsideRoot = errors.New("path escapes root")

// LocalReader reads archive-relative paths from a root directory.
type LocalReader struct {
	root string
}

// NewLocalReader returns a reader confined to root.
func NewLocalReader(root string) *LocalReader {
	return &LocalReader{root: filepath.Clean(root)}
}

// Root returns the directory the reader is confined to.
func (r *LocalReader) Root() string {
	return r.root
}

// Resolve reads locator relative to the root. Absolute paths and paths that
// climb out of the root are rejected. The locator is tried verbatim first and
// then in its normalized form, so both on-disk spellings of a name resolve.
func (r *LocalReader) Resolve(ctx context.Context, locator string) (RawAsset, error) {
	if err := ctx.Err(); err != nil {
		return RawAsset{}, services.Wrap(services.ErrResolution, stageResolve, "read local file", locator, err)
	}
	candidates := localCandidates(locator)
	if len(candidates) == 0 {
		return RawAsset{}, services.Wrap(services.ErrResolution, stageResolve, "read local file", "empty path", nil)
	}

	var lastErr error
	for _, rel := range candidates {
		full, err := r.confine(rel)
		if err != nil {
			return RawAsset{}, services.Wrap(services.ErrResolution, stageResolve, "read local file", fmt.Sprintf("%q is outside the archive", locator), err)
		}
		data, err := os.ReadFile(full)
		if err == nil {
			return RawAsset{
				Data:     data,
				Locator:  locator,
				Filename: filepath.Base(full),
			}, nil
		}
		lastErr = err
		if !errors.Is(err, fs.ErrNotExist) {
			return RawAsset{}, services.Wrap(services.ErrResolution, stageResolve, "read local file", rel, err)
		}
	}
	return RawAsset{}, services.Wrap(services.ErrResolution, stageResolve, "read local file", fmt.Sprintf("file not found: %s", candidates[len(candidates)-1]), lastErr)
}

func (r *LocalReader) confine(rel string) (string, error) {
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", errOutsideRoot
	}
	full := filepath.Join(r.root, filepath.FromSlash(rel))
	inside, err := filepath.Rel(r.root, full)
	if err != nil {
		return "", err
	}
	if inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
		return "", errOutsideRoot
	}
	return full, nil
}

func localCandidates(locator string) []string {
	var out []string
	verbatim := strings.TrimSpace(strings.ReplaceAll(locator, "\\", "/"))
	for strings.HasPrefix(verbatim, "./") {
		verbatim = verbatim[2:]
	}
	if verbatim != "" {
		if cleaned := path.Clean(verbatim); cleaned != "." {
			out = append(out, cleaned)
		}
	}
	if normalized := textutil.NormalizeRefPath(locator); normalized != "" && (len(out) == 0 || out[0] != normalized) {
		out = append(out, normalized)
	}
	return out
}
