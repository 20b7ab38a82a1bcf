package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"imgferry/internal/assets"
	"imgferry/internal/services"
)

// ErrPathAlreadySet is returned when SetPath would change an existing path.
var ErrPathAlreadySet = errors.New("asset path already set")

// AssetRepository implements assets.Store on SQLite.
type AssetRepository struct {
	store *Store
	now   func() time.Time
}

var _ assets.Store = (*AssetRepository)(nil)

const assetColumns = `id, path, filename, alt_text, mime_type, data, size, width, height, uploaded_by, origin_kind, original_locator, created_at`

// Create inserts an asset without a path and returns its identifier.
func (r *AssetRepository) Create(ctx context.Context, a assets.NewAsset) (string, error) {
	id := uuid.NewString()
	created := r.clock()
	_, err := r.store.execWithRetry(ctx,
		`INSERT INTO assets (id, path, filename, alt_text, mime_type, data, size, width, height, uploaded_by, origin_kind, original_locator, created_at)
		 VALUES (?, NULL, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, a.Filename, a.AltText, a.MIMEType, a.Data, len(a.Data), a.Width, a.Height,
		a.UploadedBy, string(a.Origin), nullableString(a.OriginalLocator), formatTime(created),
	)
	if err != nil {
		return "", fmt.Errorf("insert asset: %w", err)
	}
	return id, nil
}

// SetPath records the asset path. Re-setting the same path is a no-op.
func (r *AssetRepository) SetPath(ctx context.Context, id, path string) error {
	res, err := r.store.execWithRetry(ctx,
		`UPDATE assets SET path = ? WHERE id = ? AND (path IS NULL OR path = ?)`,
		path, id, path,
	)
	if err != nil {
		return fmt.Errorf("set asset path: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set asset path: %w", err)
	}
	if affected > 0 {
		return nil
	}
	var existing sql.NullString
	err = r.store.db.QueryRowContext(ctx, `SELECT path FROM assets WHERE id = ?`, id).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		return services.Wrap(services.ErrNotFound, "store", "set asset path", fmt.Sprintf("asset %s", id), nil)
	}
	if err != nil {
		return fmt.Errorf("set asset path: %w", err)
	}
	return fmt.Errorf("%w: asset %s has path %q", ErrPathAlreadySet, id, existing.String)
}

// Get returns the asset or nil when it does not exist.
func (r *AssetRepository) Get(ctx context.Context, id string) (*assets.StoredAsset, error) {
	row := r.store.db.QueryRowContext(ensureContext(ctx), `SELECT `+assetColumns+` FROM assets WHERE id = ?`, id)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return asset, nil
}

// Exists reports whether id names an asset that has received its path.
func (r *AssetRepository) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.store.db.QueryRowContext(ensureContext(ctx), `SELECT 1 FROM assets WHERE id = ? AND path IS NOT NULL AND path != ''`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup asset: %w", err)
	}
	return true, nil
}

// Delete removes the asset. Deleting an unknown id reports ErrNotFound.
func (r *AssetRepository) Delete(ctx context.Context, id string) error {
	res, err := r.store.execWithRetry(ctx, `DELETE FROM assets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return services.Wrap(services.ErrNotFound, "store", "delete asset", fmt.Sprintf("asset %s", id), nil)
	}
	return nil
}

// List returns asset summaries newest first. Assets that never received a
// path are excluded.
func (r *AssetRepository) List(ctx context.Context, limit, offset int) ([]assets.Summary, int, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	var total int
	if err := r.store.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM assets WHERE path IS NOT NULL`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count assets: %w", err)
	}
	rows, err := r.store.db.QueryContext(ctx,
		`SELECT id, path, filename, alt_text, mime_type, size, uploaded_by, origin_kind, created_at
		 FROM assets WHERE path IS NOT NULL ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var out []assets.Summary
	for rows.Next() {
		var (
			s          assets.Summary
			origin     string
			createdRaw string
		)
		if err := rows.Scan(&s.ID, &s.CanonicalPath, &s.Filename, &s.AltText, &s.MIMEType, &s.Size, &s.UploadedBy, &origin, &createdRaw); err != nil {
			return nil, 0, fmt.Errorf("scan asset summary: %w", err)
		}
		s.Origin = assets.OriginKind(origin)
		if created, err := parseTimeString(createdRaw); err == nil {
			s.CreatedAt = created
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// CountPathless returns how many assets never completed the second write.
func (r *AssetRepository) CountPathless(ctx context.Context) (int, error) {
	var count int
	if err := r.store.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM assets WHERE path IS NULL`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pathless assets: %w", err)
	}
	return count, nil
}

func (r *AssetRepository) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

func scanAsset(scanner interface{ Scan(dest ...any) error }) (*assets.StoredAsset, error) {
	var (
		a          assets.StoredAsset
		path       sql.NullString
		origin     string
		locator    sql.NullString
		createdRaw string
	)
	if err := scanner.Scan(&a.ID, &path, &a.Filename, &a.AltText, &a.MIMEType, &a.Data, &a.Size,
		&a.Width, &a.Height, &a.UploadedBy, &origin, &locator, &createdRaw); err != nil {
		return nil, err
	}
	a.CanonicalPath = strings.TrimSpace(path.String)
	a.Origin = assets.OriginKind(origin)
	a.OriginalLocator = locator.String
	if created, err := parseTimeString(createdRaw); err == nil {
		a.CreatedAt = created
	}
	return &a, nil
}
