package testsupport

import (
	"bytes"
	"sort"
	"testing"

	"github.com/klauspost/compress/zip"
)

// ZipArchive builds an in-memory zip from path → content. Paths ending in
// "/" become directory entries. Entries are written in sorted order.
func ZipArchive(t testing.TB, files map[string][]byte) []byte {
	t.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if len(name) > 0 && name[len(name)-1] == '/' {
			continue
		}
		if _, err := w.Write(files[name]); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}
