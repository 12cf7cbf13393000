package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/blobsas/internal/dbx"
	"github.com/dmitrijs2005/blobsas/internal/issuer/repositories/policies"
)

// RepositoryManager vends repositories bound to a DBTX and migrates the schema.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Policies(db dbx.DBTX) policies.Repository
}
