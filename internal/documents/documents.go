package documents

import (
	"context"
	"time"
)

// Document is a piece of markup content owned by an author.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store persists documents.
type Store interface {
	// FindAll returns every document in creation order.
	FindAll(ctx context.Context) ([]*Document, error)
	// Get returns nil, nil when id is unknown.
	Get(ctx context.Context, id string) (*Document, error)
	// Create assigns an ID when doc.ID is empty.
	Create(ctx context.Context, doc *Document) error
	// Save overwrites title, summary, and content and bumps UpdatedAt.
	Save(ctx context.Context, doc *Document) error
}
