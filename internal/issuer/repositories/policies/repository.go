// Package policies declares the repository contract for stored access
// policies kept in a relational database.
package policies

import (
	"context"

	"github.com/dmitrijs2005/blobsas/internal/sas"
)

// Repository persists the stored policies of containers.
type Repository interface {
	// LockContainer serializes writers of container until the surrounding
	// transaction ends.
	LockContainer(ctx context.Context, container string) error

	// DeleteByContainer removes every policy of container.
	DeleteByContainer(ctx context.Context, container string) error

	// Insert adds one policy to container.
	Insert(ctx context.Context, container string, p sas.StoredPolicy) error

	// Find returns the policy id of container, or common.ErrorNotFound.
	Find(ctx context.Context, container, id string) (*sas.StoredPolicy, error)
}
