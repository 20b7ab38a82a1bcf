package daemon

import (
	"fmt"
	"log/slog"

	"imgferry/internal/api"
	"imgferry/internal/archive"
	"imgferry/internal/assets"
	"imgferry/internal/config"
	"imgferry/internal/ingest"
	"imgferry/internal/logging"
	"imgferry/internal/migration"
	"imgferry/internal/normalize"
	"imgferry/internal/pipeline"
	"imgferry/internal/scratch"
	"imgferry/internal/source"
	"imgferry/internal/store"
)

// Components holds every collaborator built from a config. The CLI uses it
// directly for one-shot commands; the Daemon adds the HTTP listener on top.
type Components struct {
	Config    *config.Config
	Store     *store.Store
	Fetcher   *source.RemoteFetcher
	Pipeline  *pipeline.Pipeline
	Scheduler *scratch.Scheduler
	Importer  *archive.Importer
	Ingest    *ingest.Service
	Migrator  *migration.Migrator
}

// BuildOption customizes component construction.
type BuildOption func(*buildOptions)

type buildOptions struct {
	fetchOpts []source.RemoteOption
}

// WithFetchOptions forwards options to the remote fetcher.
func WithFetchOptions(opts ...source.RemoteOption) BuildOption {
	return func(b *buildOptions) {
		b.fetchOpts = append(b.fetchOpts, opts...)
	}
}

// Build opens the store and constructs the ingestion graph. Callers must
// Close the result.
func Build(cfg *config.Config, logger *slog.Logger, opts ...BuildOption) (*Components, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	var bo buildOptions
	for _, opt := range opts {
		opt(&bo)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	fetcher := source.NewRemoteFetcherFromConfig(cfg, bo.fetchOpts...)
	pipe := pipeline.New(
		normalize.NewFromConfig(cfg, logger),
		assets.NewPersister(st.Assets()),
		logger,
	).WithAssetLookup(st.Assets())
	scheduler := scratch.NewSchedulerFromConfig(cfg, logger)
	importer := archive.NewImporter(pipe, scheduler, archive.LimitsFromConfig(cfg), logger)
	migrateOpts := append(migration.ConfigOptions(cfg), migration.WithLogger(logger))

	return &Components{
		Config:    cfg,
		Store:     st,
		Fetcher:   fetcher,
		Pipeline:  pipe,
		Scheduler: scheduler,
		Importer:  importer,
		Ingest:    ingest.NewService(st.Documents(), pipe, fetcher, importer, logger),
		Migrator:  migration.New(st.Documents(), pipe, fetcher, migrateOpts...),
	}, nil
}

// APIServer builds the HTTP router around the components.
func (c *Components) APIServer(logger *slog.Logger) *api.Server {
	return api.NewServer(api.Options{
		Ingest:         c.Ingest,
		Migrator:       c.Migrator,
		Assets:         c.Store.Assets(),
		Health:         c.Store.Ping,
		APIToken:       c.Config.Server.APIToken,
		PublicBaseURL:  c.Config.Server.PublicBaseURL,
		MaxUploadBytes: c.Config.Archive.MaxBytes,
		Logger:         logger,
	})
}

// Close flushes scheduled scratch removals and releases the fetcher and store.
func (c *Components) Close() error {
	if c == nil {
		return nil
	}
	if c.Scheduler != nil {
		c.Scheduler.Close()
	}
	if c.Fetcher != nil {
		c.Fetcher.Close()
	}
	if c.Store != nil {
		return c.Store.Close()
	}
	return nil
}
