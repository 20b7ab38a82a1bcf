package api

import (
	"time"

	"imgferry/internal/archive"
	"imgferry/internal/assets"
	"imgferry/internal/documents"
	"imgferry/internal/pipeline"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Envelope wraps every JSON response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Document is the transport form of a stored document.
type Document struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Content   string `json:"content"`
	AuthorID  string `json:"authorId"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// DocumentRequest is the body of create and update calls.
type DocumentRequest struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Content string `json:"content"`
}

// PostResponse reports a saved document and its image results.
type PostResponse struct {
	Post            Document           `json:"post"`
	ProcessedImages []pipeline.Success `json:"processedImages"`
	Errors          []pipeline.Failure `json:"errors"`
}

// ImportResponse reports a document created from an archive.
type ImportResponse struct {
	Post   Document        `json:"post"`
	Import *archive.Result `json:"import"`
}

// Image describes a stored asset without its bytes.
type Image struct {
	ID        string `json:"id"`
	Path      string `json:"path"`
	URL       string `json:"url"`
	Filename  string `json:"filename"`
	AltText   string `json:"altText"`
	MIMEType  string `json:"mimeType"`
	Size      int64  `json:"size"`
	Origin    string `json:"origin"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// ImageListResponse is a page of images.
type ImageListResponse struct {
	Images []Image `json:"images"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// MigrateAllRequest is the optional body of the corpus migration route.
type MigrateAllRequest struct {
	DryRun    bool `json:"dryRun"`
	BatchSize int  `json:"batchSize"`
}

// HealthResponse reports server readiness.
type HealthResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// FromDocument converts a stored document.
func FromDocument(doc *documents.Document) Document {
	if doc == nil {
		return Document{}
	}
	return Document{
		ID:        doc.ID,
		Title:     doc.Title,
		Summary:   doc.Summary,
		Content:   doc.Content,
		AuthorID:  doc.AuthorID,
		CreatedAt: formatTime(doc.CreatedAt),
		UpdatedAt: formatTime(doc.UpdatedAt),
	}
}

// FromSummary converts an asset summary, resolving its URL with build.
func FromSummary(summary assets.Summary, build assets.URLBuilder) Image {
	if build == nil {
		build = assets.RelativeURLs
	}
	return Image{
		ID:        summary.ID,
		Path:      summary.CanonicalPath,
		URL:       build(summary.CanonicalPath),
		Filename:  summary.Filename,
		AltText:   summary.AltText,
		MIMEType:  summary.MIMEType,
		Size:      summary.Size,
		Origin:    string(summary.Origin),
		CreatedAt: formatTime(summary.CreatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
