package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"imgferry/internal/services"
)

const stageExtract = "extract"

var errEntryTooLarge = errors.New("entry exceeds remaining archive budget")

// Limits bounds what an archive may unpack to.
type Limits struct {
	MaxBytes   int64
	MaxEntries int
}

// extract unpacks data into dest. Entries that would land outside dest are
// rejected. Directory entries, symlinks, macOS resource forks, and dot-files
// are skipped.
func extract(data []byte, dest string, limits Limits) (int, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, services.Wrap(services.ErrImportStructure, stageExtract, "open archive", "not a valid zip archive", err)
	}
	if limits.MaxEntries > 0 && len(reader.File) > limits.MaxEntries {
		return 0, services.Wrap(services.ErrValidation, stageExtract, "open archive",
			fmt.Sprintf("archive has %d entries, limit is %d", len(reader.File), limits.MaxEntries), nil)
	}

	var (
		written int64
		files   int
	)
	for _, f := range reader.File {
		name, ok, err := entryPath(f.Name)
		if err != nil {
			return files, err
		}
		if !ok || f.FileInfo().IsDir() || !f.Mode().IsRegular() {
			continue
		}
		if limits.MaxBytes > 0 && f.UncompressedSize64 > uint64(limits.MaxBytes-written) {
			return files, tooLarge(limits.MaxBytes)
		}

		target := filepath.Join(dest, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return files, services.Wrap(services.ErrPersistence, stageExtract, "create directory", name, err)
		}
		n, err := writeEntry(f, target, limitFor(limits.MaxBytes, written))
		written += n
		if errors.Is(err, errEntryTooLarge) {
			return files, tooLarge(limits.MaxBytes)
		}
		if err != nil {
			return files, err
		}
		files++
	}
	return files, nil
}

// entryPath returns the cleaned slash path for a zip entry and whether it
// should be unpacked at all.
func entryPath(raw string) (string, bool, error) {
	name := strings.ReplaceAll(raw, "\\", "/")
	if name == "" || strings.HasSuffix(name, "/") {
		return "", false, nil
	}
	if strings.HasPrefix(name, "/") || path.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", false, services.Wrap(services.ErrImportStructure, stageExtract, "validate entry", fmt.Sprintf("absolute path %q", raw), nil)
	}
	cleaned := path.Clean(name)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false, services.Wrap(services.ErrImportStructure, stageExtract, "validate entry", fmt.Sprintf("path %q escapes the archive", raw), nil)
	}
	for _, segment := range strings.Split(cleaned, "/") {
		if segment == "__MACOSX" || strings.HasPrefix(segment, ".") {
			return "", false, nil
		}
	}
	return cleaned, true, nil
}

func writeEntry(f *zip.File, target string, limit int64) (int64, error) {
	rc, err := f.Open()
	if err != nil {
		return 0, services.Wrap(services.ErrImportStructure, stageExtract, "open entry", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, services.Wrap(services.ErrPersistence, stageExtract, "create file", f.Name, err)
	}
	var src io.Reader = rc
	if limit >= 0 {
		src = io.LimitReader(rc, limit+1)
	}
	n, copyErr := io.Copy(out, src)
	closeErr := out.Close()
	if copyErr != nil {
		return n, services.Wrap(services.ErrImportStructure, stageExtract, "read entry", f.Name, copyErr)
	}
	if closeErr != nil {
		return n, services.Wrap(services.ErrPersistence, stageExtract, "write file", f.Name, closeErr)
	}
	if limit >= 0 && n > limit {
		return n, errEntryTooLarge
	}
	return n, nil
}

func limitFor(maxBytes, written int64) int64 {
	if maxBytes <= 0 {
		return -1
	}
	return maxBytes - written
}

func tooLarge(limit int64) error {
	return services.Wrap(services.ErrValidation, stageExtract, "unpack archive",
		fmt.Sprintf("archive expands beyond %d bytes", limit), nil)
}
