package migration

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"imgferry/internal/assets"
	"imgferry/internal/config"
	"imgferry/internal/documents"
	"imgferry/internal/logging"
	"imgferry/internal/markup"
	"imgferry/internal/pipeline"
	"imgferry/internal/services"
	"imgferry/internal/source"
)

const stageMigrate = "migrate"

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Migrator migrates remote references in stored documents.
type Migrator struct {
	docs      documents.Store
	pipe      *pipeline.Pipeline
	resolver  source.Resolver
	build     assets.URLBuilder
	batchSize int
	pause     time.Duration
	sleep     SleepFunc
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithURLBuilder sets the builder used for rewritten locations.
func WithURLBuilder(build assets.URLBuilder) Option {
	return func(m *Migrator) {
		if build != nil {
			m.build = build
		}
	}
}

// WithBatchPause sets the pause between groups.
func WithBatchPause(d time.Duration) Option {
	return func(m *Migrator) {
		m.pause = d
	}
}

// WithDefaultBatchSize sets the group size used when Options.BatchSize is
// not positive.
func WithDefaultBatchSize(n int) Option {
	return func(m *Migrator) {
		if n > 0 {
			m.batchSize = n
		}
	}
}

// WithSleep replaces the pause implementation.
func WithSleep(sleep SleepFunc) Option {
	return func(m *Migrator) {
		if sleep != nil {
			m.sleep = sleep
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Migrator) {
		m.logger = logging.NewComponentLogger(logger, "migration")
	}
}

// New constructs a Migrator that fetches through resolver.
func New(docs documents.Store, pipe *pipeline.Pipeline, resolver source.Resolver, opts ...Option) *Migrator {
	m := &Migrator{
		docs:      docs,
		pipe:      pipe,
		resolver:  resolver,
		build:     assets.RelativeURLs,
		batchSize: DefaultBatchSize,
		pause:     time.Second,
		sleep:     contextSleep,
		now:       time.Now,
		logger:    logging.NewComponentLogger(nil, "migration"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ConfigOptions maps the [migration] and [server] sections to options.
func ConfigOptions(cfg *config.Config) []Option {
	return []Option{
		WithDefaultBatchSize(cfg.Migration.BatchSize),
		WithBatchPause(cfg.BatchPause()),
		WithURLBuilder(assets.BaseURLBuilder(cfg.Server.PublicBaseURL)),
	}
}

// MigrateAll walks every document. The returned error is non-nil only when
// the corpus could not be listed or ctx ended; the report then holds the
// work completed so far.
func (m *Migrator) MigrateAll(ctx context.Context, opts Options) (Report, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = m.batchSize
	}
	build := opts.URLBuilder
	if build == nil {
		build = m.build
	}
	report := Report{DryRun: opts.DryRun, BatchSize: batchSize, StartedAt: m.now()}
	finish := func(err error) (Report, error) {
		report.FinishedAt = m.now()
		if report.Documents == nil {
			report.Documents = []DocumentReport{}
		}
		if report.Errors == nil {
			report.Errors = []DocumentError{}
		}
		return report, err
	}

	docs, err := m.docs.FindAll(ctx)
	if err != nil {
		return finish(services.Wrap(services.ErrPersistence, stageMigrate, "list documents", "", err))
	}
	report.TotalDocuments = len(docs)
	m.logger.Info("migration started",
		logging.Int("documents", len(docs)),
		logging.Int("batch_size", batchSize),
		logging.Bool("dry_run", opts.DryRun),
	)

	for start := 0; start < len(docs); start += batchSize {
		end := min(start+batchSize, len(docs))
		report.Batches++
		m.logger.Debug("migration batch",
			logging.Int("batch", report.Batches),
			logging.Int("of", (len(docs)+batchSize-1)/batchSize),
		)
		for _, doc := range docs[start:end] {
			if err := ctx.Err(); err != nil {
				return finish(err)
			}
			m.migrateInto(ctx, &report, doc, opts.DryRun, build)
		}
		if end < len(docs) {
			if err := m.sleep(ctx, m.pause); err != nil {
				return finish(err)
			}
		}
	}

	m.logger.Info("migration finished",
		logging.Int("succeeded", report.Succeeded),
		logging.Int("failed", report.Failed),
		logging.Int("documents_with_remote_images", report.DocumentsWithRemoteImages),
	)
	return finish(nil)
}

func (m *Migrator) migrateInto(ctx context.Context, report *Report, doc *documents.Document, dryRun bool, build assets.URLBuilder) {
	if doc == nil {
		return
	}
	refs := m.remoteRefs(ctx, doc.Content, build)
	if len(refs) == 0 {
		return
	}
	report.DocumentsWithRemoteImages++
	report.TotalRemoteImages += len(refs)

	entry := DocumentReport{DocumentID: doc.ID, Title: doc.Title, RemoteImageCount: len(refs)}
	if dryRun {
		entry.Images = make([]string, 0, len(refs))
		for _, ref := range refs {
			entry.Images = append(entry.Images, ref.Locator)
		}
		report.Documents = append(report.Documents, entry)
		return
	}

	result, err := m.process(ctx, doc, build)
	if err != nil {
		logging.WarnWithContext(m.logger, "document migration failed", "migration_document_failed",
			logging.String(logging.FieldDocumentID, doc.ID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the document and re-run the migration for it"),
		)
		report.Errors = append(report.Errors, DocumentError{DocumentID: doc.ID, Error: err.Error()})
		return
	}
	entry.Succeeded = len(result.Processed)
	entry.Failed = len(result.Failures)
	entry.Processed = result.Processed
	entry.Saved = result.Saved
	report.Succeeded += entry.Succeeded
	report.Failed += entry.Failed
	if len(result.Failures) > 0 {
		report.Errors = append(report.Errors, DocumentError{DocumentID: doc.ID, Failures: result.Failures})
	}
	report.Documents = append(report.Documents, entry)
}

// MigrateDocument migrates one document. A nil build uses the configured
// builder.
func (m *Migrator) MigrateDocument(ctx context.Context, id string, build assets.URLBuilder) (DocumentResult, error) {
	doc, err := m.docs.Get(ctx, id)
	if err != nil {
		return DocumentResult{}, services.Wrap(services.ErrPersistence, stageMigrate, "load document", id, err)
	}
	if doc == nil {
		return DocumentResult{}, services.Wrap(services.ErrNotFound, stageMigrate, "load document", fmt.Sprintf("document %s not found", id), nil)
	}
	if build == nil {
		build = m.build
	}
	return m.process(ctx, doc, build)
}

// Stats counts remote references across the corpus.
func (m *Migrator) Stats(ctx context.Context) (Stats, error) {
	docs, err := m.docs.FindAll(ctx)
	if err != nil {
		return Stats{}, services.Wrap(services.ErrPersistence, stageMigrate, "list documents", "", err)
	}
	stats := Stats{TotalDocuments: len(docs), Documents: []DocumentStat{}}
	for _, doc := range docs {
		refs := m.remoteRefs(ctx, doc.Content, m.build)
		if len(refs) == 0 {
			continue
		}
		stats.DocumentsWithRemoteImages++
		stats.TotalRemoteImages += len(refs)
		stats.Documents = append(stats.Documents, DocumentStat{DocumentID: doc.ID, Title: doc.Title, RemoteImageCount: len(refs)})
	}
	return stats, nil
}

// process runs the pipeline over doc and saves it when the content changed.
// Panics are converted to errors so one document cannot stop a batch.
func (m *Migrator) process(ctx context.Context, doc *documents.Document, build assets.URLBuilder) (result DocumentResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("document migration panicked",
				logging.String(logging.FieldDocumentID, doc.ID),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
			err = services.Wrap(services.ErrTransient, stageMigrate, "migrate document", fmt.Sprintf("panic: %v", r), nil)
		}
	}()

	ctx = services.WithDocumentID(ctx, doc.ID)
	outcome := m.pipe.Process(ctx, pipeline.Request{
		Content:    doc.Content,
		UploadedBy: doc.AuthorID,
		Origin:     assets.OriginRemoteImport,
		Resolver:   m.resolver,
		URLBuilder: build,
		Filter:     pipeline.RemoteOnly,
	})
	result = DocumentResult{
		DocumentID: doc.ID,
		Title:      doc.Title,
		Processed:  emptyIfNil(outcome.Succeeded),
		Failures:   emptyIfNil(outcome.Failed),
		Content:    outcome.Content,
	}
	if !outcome.Changed {
		return result, nil
	}
	doc.Content = outcome.Content
	if err := m.docs.Save(ctx, doc); err != nil {
		return result, services.Wrap(services.ErrPersistence, stageMigrate, "save document", doc.ID, err)
	}
	result.Saved = true
	return result, nil
}

// remoteRefs returns the distinct remote references that do not already
// point at a stored asset. Repeated match texts count once, matching what
// the pipeline processes.
func (m *Migrator) remoteRefs(ctx context.Context, content string, build assets.URLBuilder) []markup.Reference {
	refs := markup.Unique(markup.ExtractRemote(content))
	out := make([]markup.Reference, 0, len(refs))
	for _, ref := range refs {
		if m.pipe.IsStored(ctx, ref.Locator, build) {
			continue
		}
		out = append(out, ref)
	}
	return out
}

func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func contextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
