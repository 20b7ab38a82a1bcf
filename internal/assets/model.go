package assets

import (
	"context"
	"time"
)

// OriginKind records how an asset entered the system.
type OriginKind string

const (
	OriginManual        OriginKind = "manual"
	OriginRemoteImport  OriginKind = "remote-import"
	OriginArchiveImport OriginKind = "archive-import"
)

// NewAsset carries everything needed to create a stored asset.
type NewAsset struct {
	Data            []byte
	MIMEType        string
	Filename        string
	AltText         string
	UploadedBy      string
	Origin          OriginKind
	OriginalLocator string
	Width           int
	Height          int
}

// StoredAsset is a persisted image.
type StoredAsset struct {
	ID              string
	CanonicalPath   string
	Filename        string
	AltText         string
	MIMEType        string
	Data            []byte
	Size            int64
	Width           int
	Height          int
	UploadedBy      string
	Origin          OriginKind
	OriginalLocator string
	CreatedAt       time.Time
}

// Summary is a StoredAsset without its payload, used for listings.
type Summary struct {
	ID            string     `json:"id"`
	CanonicalPath string     `json:"path"`
	Filename      string     `json:"filename"`
	AltText       string     `json:"altText"`
	MIMEType      string     `json:"mimeType"`
	Size          int64      `json:"size"`
	UploadedBy    string     `json:"uploadedBy"`
	Origin        OriginKind `json:"origin"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Store is the persistence contract the Persister relies on.
type Store interface {
	// Create inserts the asset and returns its new identifier.
	Create(ctx context.Context, asset NewAsset) (string, error)
	// SetPath records the canonical path once. Setting a different path on an
	// asset that already has one is an error.
	SetPath(ctx context.Context, id, path string) error
	// Get returns nil, nil when id is unknown.
	Get(ctx context.Context, id string) (*StoredAsset, error)
	Delete(ctx context.Context, id string) error
}
