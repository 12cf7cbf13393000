// Package blobstore declares the blob storage operations the sample
// application needs next to token issuance.
package blobstore

import (
	"context"

	"github.com/dmitrijs2005/blobsas/internal/sas"
)

// Store creates containers, uploads objects and resolves resource URIs.
// Implementations live under internal/storage.
type Store interface {
	sas.URIResolver

	// EnsureContainer creates the container unless it already exists.
	EnsureContainer(ctx context.Context, name string) error

	// Upload writes data to the object ref, replacing existing content.
	Upload(ctx context.Context, ref sas.ResourceReference, data []byte) error
}
