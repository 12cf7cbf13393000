package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/blobsas/internal/dbx"
	"github.com/dmitrijs2005/blobsas/internal/issuer/repositories/repomanager"
	"github.com/dmitrijs2005/blobsas/internal/logging"
	"github.com/dmitrijs2005/blobsas/internal/sas"
)

// PolicyService persists stored policies in PostgreSQL. It implements
// sas.PolicyBackend.
type PolicyService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewPolicyService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *PolicyService {
	return &PolicyService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "policy_service"),
	}
}

var _ sas.PolicyBackend = (*PolicyService)(nil)

// ReplacePolicies deletes every row of container and inserts policies in a
// single transaction. Concurrent replaces of one container are serialized
// by a transaction-scoped advisory lock, so the last commit wins whole.
func (s *PolicyService) ReplacePolicies(ctx context.Context, container string, policies []sas.StoredPolicy) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Policies(tx)

		if err := repo.LockContainer(ctx, container); err != nil {
			return fmt.Errorf("error locking container: %w", err)
		}
		if err := repo.DeleteByContainer(ctx, container); err != nil {
			return fmt.Errorf("error deleting policies: %w", err)
		}
		for _, p := range policies {
			if err := repo.Insert(ctx, container, p); err != nil {
				return fmt.Errorf("error inserting policy %q: %w", p.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug(ctx, "policies stored", "container", container, "count", len(policies))
	return nil
}

// FetchPolicy returns common.ErrorNotFound when the row does not exist.
func (s *PolicyService) FetchPolicy(ctx context.Context, container, id string) (*sas.StoredPolicy, error) {
	repo := s.repomanager.Policies(s.db)
	return repo.Find(ctx, container, id)
}
