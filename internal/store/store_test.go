package store_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"imgferry/internal/assets"
	"imgferry/internal/services"
	"imgferry/internal/store"
	"imgferry/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	if st.Path() != cfg.DatabasePath() {
		t.Fatalf("Path = %q, want %q", st.Path(), cfg.DatabasePath())
	}
	if err := st.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	// Reopening an initialized database must succeed.
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	again, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	again.Close()
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "old.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("CREATE TABLE schema_version (version INTEGER NOT NULL); INSERT INTO schema_version (version) VALUES (99)"); err != nil {
		t.Fatalf("seed schema: %v", err)
	}
	db.Close()

	if _, err := store.OpenPath(dbPath); !errors.Is(err, store.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestAssetTwoPhaseWrite(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	repo := st.Assets()
	ctx := context.Background()

	id, err := repo.Create(ctx, assets.NewAsset{
		Data:            []byte("png-bytes"),
		MIMEType:        "image/png",
		Filename:        "1700000000000-imported-cat.png",
		AltText:         "cat",
		UploadedBy:      "author-1",
		Origin:          assets.OriginRemoteImport,
		OriginalLocator: "https://example.com/cat.png",
		Width:           10,
		Height:          5,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected id to be assigned")
	}

	pathless, err := repo.CountPathless(ctx)
	if err != nil {
		t.Fatalf("CountPathless failed: %v", err)
	}
	if pathless != 1 {
		t.Fatalf("expected 1 pathless asset, got %d", pathless)
	}

	path := assets.CanonicalPath(id)
	if err := repo.SetPath(ctx, id, path); err != nil {
		t.Fatalf("SetPath failed: %v", err)
	}
	if err := repo.SetPath(ctx, id, path); err != nil {
		t.Fatalf("repeating SetPath with the same path failed: %v", err)
	}
	if err := repo.SetPath(ctx, id, "/api/images/other"); !errors.Is(err, store.ErrPathAlreadySet) {
		t.Fatalf("expected ErrPathAlreadySet, got %v", err)
	}
	if err := repo.SetPath(ctx, "missing", path); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}

	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected asset")
	}
	if got.CanonicalPath != path || got.MIMEType != "image/png" || string(got.Data) != "png-bytes" {
		t.Fatalf("unexpected asset: %#v", got)
	}
	if got.Size != int64(len("png-bytes")) || got.Width != 10 || got.Height != 5 {
		t.Fatalf("unexpected dimensions: %#v", got)
	}
	if got.Origin != assets.OriginRemoteImport || got.OriginalLocator != "https://example.com/cat.png" {
		t.Fatalf("unexpected origin: %#v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}
}

func TestAssetListAndDelete(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	repo := st.Assets()
	ctx := context.Background()
	persister := assets.NewPersister(repo)

	var ids []string
	for i := 0; i < 3; i++ {
		saved, err := persister.Persist(ctx, assets.NewAsset{Data: []byte{byte(i + 1)}, MIMEType: "image/gif", Filename: "a.gif"})
		if err != nil {
			t.Fatalf("Persist failed: %v", err)
		}
		ids = append(ids, saved.ID)
	}
	// A pathless asset must not appear in listings.
	if _, err := repo.Create(ctx, assets.NewAsset{Data: []byte{9}, MIMEType: "image/gif", Filename: "orphan.gif", Origin: assets.OriginManual}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	list, total, err := repo.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected total 3, got %d", total)
	}
	if len(list) != 2 {
		t.Fatalf("expected page of 2, got %d", len(list))
	}

	if err := repo.Delete(ctx, ids[0]); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got, err := repo.Get(ctx, ids[0]); err != nil || got != nil {
		t.Fatalf("expected deleted asset to be gone, got %#v err=%v", got, err)
	}
	if err := repo.Delete(ctx, ids[0]); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.SeedDocument(t, st, "First", "one")
	second := testsupport.SeedDocument(t, st, "Second", "two")
	if first.ID == "" || second.ID == "" {
		t.Fatal("expected ids to be assigned")
	}

	all, err := st.Documents().FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != first.ID || all[1].ID != second.ID {
		t.Fatalf("unexpected order: %#v", all)
	}

	first.Content = "updated"
	first.Summary = "short"
	before := first.UpdatedAt
	if err := st.Documents().Save(ctx, first); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := st.Documents().Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Content != "updated" || got.Summary != "short" {
		t.Fatalf("unexpected document after save: %#v", got)
	}
	if !got.UpdatedAt.After(before) {
		t.Fatalf("expected UpdatedAt to advance: before=%v after=%v", before, got.UpdatedAt)
	}

	if missing, err := st.Documents().Get(ctx, "nope"); err != nil || missing != nil {
		t.Fatalf("expected nil for unknown document, got %#v err=%v", missing, err)
	}
	ghost := *first
	ghost.ID = "ghost"
	if err := st.Documents().Save(ctx, &ghost); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound saving unknown document, got %v", err)
	}
}
