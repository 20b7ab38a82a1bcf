// Package documents defines the document model and the persistence contract
// used by the ingestion service and the batch migrator.
//
// A Document carries markup whose image references point either at remote
// locations or, once ingested, at canonical /api/images/{id} paths. The
// Store implementation lives in internal/store.
package documents
