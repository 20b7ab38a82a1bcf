package migration

import (
	"time"

	"imgferry/internal/assets"
	"imgferry/internal/pipeline"
)

// DefaultBatchSize is used when Options.BatchSize is not positive.
const DefaultBatchSize = 10

// Options controls a corpus migration.
type Options struct {
	DryRun    bool `json:"dryRun"`
	BatchSize int  `json:"batchSize"`

	// URLBuilder overrides the configured builder for this run.
	URLBuilder assets.URLBuilder `json:"-"`
}

// DocumentReport describes what happened to one document.
type DocumentReport struct {
	DocumentID       string             `json:"postId"`
	Title            string             `json:"title"`
	RemoteImageCount int                `json:"externalImageCount"`
	Images           []string           `json:"images,omitempty"`
	Succeeded        int                `json:"successfulMigrations"`
	Failed           int                `json:"failedMigrations"`
	Processed        []pipeline.Success `json:"processedImages,omitempty"`
	Saved            bool               `json:"saved"`
}

// DocumentError records the failures of one document. Error is set when the
// document as a whole could not be processed.
type DocumentError struct {
	DocumentID string             `json:"postId"`
	Error      string             `json:"error,omitempty"`
	Failures   []pipeline.Failure `json:"errors,omitempty"`
}

// Report aggregates a corpus migration. Image counts are per distinct
// reference within a document.
type Report struct {
	DryRun                    bool             `json:"dryRun"`
	TotalDocuments            int              `json:"totalPosts"`
	DocumentsWithRemoteImages int              `json:"postsWithExternalImages"`
	TotalRemoteImages         int              `json:"totalExternalImages"`
	Succeeded                 int              `json:"successfulMigrations"`
	Failed                    int              `json:"failedMigrations"`
	Documents                 []DocumentReport `json:"processedPosts"`
	Errors                    []DocumentError  `json:"errors"`
	Batches                   int              `json:"batches"`
	BatchSize                 int              `json:"batchSize"`
	StartedAt                 time.Time        `json:"startedAt"`
	FinishedAt                time.Time        `json:"finishedAt"`
}

// DocumentResult is the outcome of migrating a single document.
type DocumentResult struct {
	DocumentID string             `json:"postId"`
	Title      string             `json:"title"`
	Processed  []pipeline.Success `json:"processedImages"`
	Failures   []pipeline.Failure `json:"errors"`
	Content    string             `json:"updatedContent"`
	Saved      bool               `json:"saved"`
}

// DocumentStat counts the remote references in one document.
type DocumentStat struct {
	DocumentID       string `json:"postId"`
	Title            string `json:"title"`
	RemoteImageCount int    `json:"externalImageCount"`
}

// Stats summarizes remote references across the corpus without touching it.
// Counts are per distinct reference within a document.
type Stats struct {
	TotalDocuments            int            `json:"totalPosts"`
	DocumentsWithRemoteImages int            `json:"postsWithExternalImages"`
	TotalRemoteImages         int            `json:"totalExternalImages"`
	Documents                 []DocumentStat `json:"postStats"`
}
