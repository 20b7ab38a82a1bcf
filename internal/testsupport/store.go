package testsupport

import (
	"context"
	"testing"
	"time"

	"imgferry/internal/config"
	"imgferry/internal/documents"
	"imgferry/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedDocument inserts a document with the given content. CreatedAt values
// are spaced by index so listing order is deterministic.
func SeedDocument(t testing.TB, st *store.Store, title, content string) *documents.Document {
	t.Helper()

	ctx := context.Background()
	existing, err := st.Documents().FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(len(existing)) * time.Minute)
	doc := &documents.Document{
		Title:     title,
		Content:   content,
		AuthorID:  "author-1",
		CreatedAt: created,
		UpdatedAt: created,
	}
	if err := st.Documents().Create(ctx, doc); err != nil {
		t.Fatalf("Create document: %v", err)
	}
	return doc
}
