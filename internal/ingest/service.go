// Package ingest creates, edits, and imports documents, pulling every remote
// image they embed into the asset store before the document is saved.
package ingest

import (
	"context"
	"log/slog"
	"strings"

	"imgferry/internal/archive"
	"imgferry/internal/assets"
	"imgferry/internal/documents"
	"imgferry/internal/logging"
	"imgferry/internal/markup"
	"imgferry/internal/pipeline"
	"imgferry/internal/services"
	"imgferry/internal/source"
)

const stageIngest = "ingest"

// DocumentInput is the author-supplied part of a document. Empty Title and
// Summary are derived from the content.
type DocumentInput struct {
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Content  string `json:"content"`
	AuthorID string `json:"-"`
}

// Result is a saved document with the image outcome that shaped it.
type Result struct {
	Document *documents.Document `json:"post"`
	Outcome  pipeline.Outcome    `json:"images"`
}

// ImportResult is a document created from an archive.
type ImportResult struct {
	Document *documents.Document `json:"post"`
	Archive  *archive.Result     `json:"import"`
}

// Service orchestrates document writes.
type Service struct {
	docs     documents.Store
	pipe     *pipeline.Pipeline
	remote   source.Resolver
	importer *archive.Importer
	logger   *slog.Logger
}

// NewService builds a Service. importer may be nil when archive import is
// not offered.
func NewService(docs documents.Store, pipe *pipeline.Pipeline, remote source.Resolver, importer *archive.Importer, logger *slog.Logger) *Service {
	return &Service{
		docs:     docs,
		pipe:     pipe,
		remote:   remote,
		importer: importer,
		logger:   logging.NewComponentLogger(logger, "ingest"),
	}
}

// CreateDocument imports the remote images in input.Content and saves a new
// document with the rewritten content.
func (s *Service) CreateDocument(ctx context.Context, input DocumentInput, build assets.URLBuilder) (*Result, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, services.Wrap(services.ErrValidation, stageIngest, "create document", "content is required", nil)
	}
	if strings.TrimSpace(input.AuthorID) == "" {
		return nil, services.Wrap(services.ErrValidation, stageIngest, "create document", "author is required", nil)
	}

	outcome := s.processRemote(ctx, input.Content, input.AuthorID, build)
	doc := &documents.Document{
		Title:    input.Title,
		Summary:  input.Summary,
		Content:  outcome.Content,
		AuthorID: input.AuthorID,
	}
	fillDerived(doc)
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, services.Wrap(services.ErrPersistence, stageIngest, "create document", "", err)
	}
	s.logger.Info("document created",
		logging.String(logging.FieldDocumentID, doc.ID),
		logging.Int("images_imported", len(outcome.Succeeded)),
		logging.Int("images_failed", len(outcome.Failed)),
	)
	return &Result{Document: doc, Outcome: outcome}, nil
}

// UpdateDocument replaces a document's content, importing any new remote
// images. Empty Title or Summary keep the stored values.
func (s *Service) UpdateDocument(ctx context.Context, id string, input DocumentInput, build assets.URLBuilder) (*Result, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, stageIngest, "load document", id, err)
	}
	if doc == nil {
		return nil, services.Wrap(services.ErrNotFound, stageIngest, "load document", "document "+id+" not found", nil)
	}
	if input.AuthorID != "" && doc.AuthorID != input.AuthorID {
		return nil, services.Wrap(services.ErrValidation, stageIngest, "update document", "document belongs to another author", nil)
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, services.Wrap(services.ErrValidation, stageIngest, "update document", "content is required", nil)
	}

	ctx = services.WithDocumentID(ctx, doc.ID)
	outcome := s.processRemote(ctx, input.Content, doc.AuthorID, build)
	doc.Content = outcome.Content
	if strings.TrimSpace(input.Title) != "" {
		doc.Title = input.Title
	}
	if strings.TrimSpace(input.Summary) != "" {
		doc.Summary = input.Summary
	}
	if err := s.docs.Save(ctx, doc); err != nil {
		return nil, services.Wrap(services.ErrPersistence, stageIngest, "save document", doc.ID, err)
	}
	return &Result{Document: doc, Outcome: outcome}, nil
}

// ImportArchive unpacks upload and creates a document from its markup.
func (s *Service) ImportArchive(ctx context.Context, upload archive.Upload) (*ImportResult, error) {
	if s.importer == nil {
		return nil, services.Wrap(services.ErrConfiguration, stageIngest, "import archive", "archive import unavailable", nil)
	}
	if strings.TrimSpace(upload.UploadedBy) == "" {
		return nil, services.Wrap(services.ErrValidation, stageIngest, "import archive", "author is required", nil)
	}
	result, err := s.importer.Import(ctx, upload)
	if err != nil {
		return nil, err
	}
	doc := &documents.Document{
		Title:    result.Title,
		Summary:  result.Summary,
		Content:  result.Content,
		AuthorID: upload.UploadedBy,
	}
	fillDerived(doc)
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, services.Wrap(services.ErrPersistence, stageIngest, "create document", "", err)
	}
	s.logger.Info("document imported from archive",
		logging.String(logging.FieldDocumentID, doc.ID),
		logging.String("markup_file", result.MarkupFile),
		logging.Int("images_uploaded", result.Stats.Uploaded),
	)
	return &ImportResult{Document: doc, Archive: result}, nil
}

func (s *Service) processRemote(ctx context.Context, content, uploadedBy string, build assets.URLBuilder) pipeline.Outcome {
	ctx = services.WithUploader(ctx, uploadedBy)
	return s.pipe.Process(ctx, pipeline.Request{
		Content:    content,
		UploadedBy: uploadedBy,
		Origin:     assets.OriginRemoteImport,
		Resolver:   s.remote,
		URLBuilder: build,
		Filter:     pipeline.RemoteOnly,
	})
}

func fillDerived(doc *documents.Document) {
	if strings.TrimSpace(doc.Title) == "" || strings.TrimSpace(doc.Summary) == "" {
		parsed := markup.ParseDocument(doc.Content)
		if strings.TrimSpace(doc.Title) == "" {
			doc.Title = parsed.Title
		}
		if strings.TrimSpace(doc.Summary) == "" {
			doc.Summary = parsed.Summary
		}
	}
}
