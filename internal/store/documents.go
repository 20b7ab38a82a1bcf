package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"imgferry/internal/documents"
	"imgferry/internal/services"
)

// DocumentRepository implements documents.Store on SQLite.
type DocumentRepository struct {
	store *Store
}

var _ documents.Store = (*DocumentRepository)(nil)

const documentColumns = `id, title, summary, content, author_id, created_at, updated_at`

// FindAll returns every document ordered by creation time.
func (r *DocumentRepository) FindAll(ctx context.Context) ([]*documents.Document, error) {
	rows, err := r.store.db.QueryContext(ensureContext(ctx), `SELECT `+documentColumns+` FROM documents ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []*documents.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// Get returns the document or nil when it does not exist.
func (r *DocumentRepository) Get(ctx context.Context, id string) (*documents.Document, error) {
	row := r.store.db.QueryRowContext(ensureContext(ctx), `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// Create inserts doc, assigning an ID and timestamps when missing.
func (r *DocumentRepository) Create(ctx context.Context, doc *documents.Document) error {
	if doc == nil {
		return services.Wrap(services.ErrValidation, "store", "create document", "nil document", nil)
	}
	if strings.TrimSpace(doc.ID) == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	_, err := r.store.execWithRetry(ctx,
		`INSERT INTO documents (`+documentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Summary, doc.Content, doc.AuthorID, formatTime(doc.CreatedAt), formatTime(doc.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// Save updates title, summary, and content.
func (r *DocumentRepository) Save(ctx context.Context, doc *documents.Document) error {
	if doc == nil || doc.ID == "" {
		return services.Wrap(services.ErrValidation, "store", "save document", "missing document id", nil)
	}
	doc.UpdatedAt = time.Now().UTC()
	res, err := r.store.execWithRetry(ctx,
		`UPDATE documents SET title = ?, summary = ?, content = ?, updated_at = ? WHERE id = ?`,
		doc.Title, doc.Summary, doc.Content, formatTime(doc.UpdatedAt), doc.ID,
	)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return services.Wrap(services.ErrNotFound, "store", "save document", fmt.Sprintf("document %s", doc.ID), nil)
	}
	return nil
}

func scanDocument(scanner interface{ Scan(dest ...any) error }) (*documents.Document, error) {
	var (
		doc        documents.Document
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&doc.ID, &doc.Title, &doc.Summary, &doc.Content, &doc.AuthorID, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		doc.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		doc.UpdatedAt = updated
	}
	return &doc, nil
}
