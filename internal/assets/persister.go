package assets

import (
	"context"
	"fmt"
	"strings"

	"imgferry/internal/services"
)

const stagePersist = "persist"

// Saved identifies a persisted asset.
type Saved struct {
	ID            string
	CanonicalPath string
}

// Persister writes assets using the two-phase create-then-set-path protocol.
type Persister struct {
	store Store
}

// NewPersister wraps store.
func NewPersister(store Store) *Persister {
	return &Persister{store: store}
}

// Persist creates the record and then stores its canonical path. When the
// second write fails the asset is left without a path, is unreachable
// through GET /api/images, and the error is reported so the caller marks
// the reference failed.
func (p *Persister) Persist(ctx context.Context, asset NewAsset) (Saved, error) {
	if p == nil || p.store == nil {
		return Saved{}, services.Wrap(services.ErrConfiguration, stagePersist, "persist asset", "asset store unavailable", nil)
	}
	if len(asset.Data) == 0 {
		return Saved{}, services.Wrap(services.ErrValidation, stagePersist, "persist asset", "empty image data", nil)
	}
	if strings.TrimSpace(asset.MIMEType) == "" {
		return Saved{}, services.Wrap(services.ErrValidation, stagePersist, "persist asset", "missing media type", nil)
	}
	if asset.Origin == "" {
		asset.Origin = OriginManual
	}

	id, err := p.store.Create(ctx, asset)
	if err != nil {
		return Saved{}, services.Wrap(services.ErrPersistence, stagePersist, "create asset", asset.Filename, err)
	}
	path := CanonicalPath(id)
	if err := p.store.SetPath(ctx, id, path); err != nil {
		return Saved{}, services.Wrap(services.ErrPersistence, stagePersist, "set asset path", fmt.Sprintf("asset %s", id), err)
	}
	return Saved{ID: id, CanonicalPath: path}, nil
}
