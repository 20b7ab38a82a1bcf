package assets_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"imgferry/internal/assets"
	"imgferry/internal/services"
)

type memoryStore struct {
	mu         sync.Mutex
	next       int
	rows       map[string]*assets.StoredAsset
	setPathErr error
	calls      []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: map[string]*assets.StoredAsset{}}
}

func (m *memoryStore) Create(_ context.Context, a assets.NewAsset) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	id := fmt.Sprintf("asset-%d", m.next)
	m.rows[id] = &assets.StoredAsset{ID: id, Filename: a.Filename, MIMEType: a.MIMEType, Data: a.Data, Origin: a.Origin}
	m.calls = append(m.calls, "create")
	return id, nil
}

func (m *memoryStore) SetPath(_ context.Context, id, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "set_path")
	if m.setPathErr != nil {
		return m.setPathErr
	}
	m.rows[id].CanonicalPath = path
	return nil
}

func (m *memoryStore) Get(_ context.Context, id string) (*assets.StoredAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id], nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func TestPersistCreatesThenSetsPath(t *testing.T) {
	store := newMemoryStore()
	p := assets.NewPersister(store)

	saved, err := p.Persist(context.Background(), assets.NewAsset{Data: []byte("x"), MIMEType: "image/png", Filename: "a.png"})
	if err != nil {
		t.Fatalf("Persist returned error: %v", err)
	}
	if saved.CanonicalPath != "/api/images/"+saved.ID {
		t.Fatalf("unexpected path %q for id %q", saved.CanonicalPath, saved.ID)
	}
	if len(store.calls) != 2 || store.calls[0] != "create" || store.calls[1] != "set_path" {
		t.Fatalf("unexpected call order %v", store.calls)
	}
	row, _ := store.Get(context.Background(), saved.ID)
	if row.CanonicalPath != saved.CanonicalPath || row.Origin != assets.OriginManual {
		t.Fatalf("unexpected stored row %+v", row)
	}
}

func TestPersistReportsSecondWriteFailure(t *testing.T) {
	store := newMemoryStore()
	store.setPathErr = errors.New("disk full")
	p := assets.NewPersister(store)

	_, err := p.Persist(context.Background(), assets.NewAsset{Data: []byte("x"), MIMEType: "image/png"})
	if !errors.Is(err, services.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	row, _ := store.Get(context.Background(), "asset-1")
	if row == nil || row.CanonicalPath != "" {
		t.Fatalf("expected created row without path, got %+v", row)
	}
}

func TestPersistValidatesInput(t *testing.T) {
	p := assets.NewPersister(newMemoryStore())
	if _, err := p.Persist(context.Background(), assets.NewAsset{MIMEType: "image/png"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty data, got %v", err)
	}
	if _, err := p.Persist(context.Background(), assets.NewAsset{Data: []byte("x")}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing mime, got %v", err)
	}
	var nilPersister *assets.Persister
	if _, err := nilPersister.Persist(context.Background(), assets.NewAsset{}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
