package policies

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/blobsas/internal/common"
	"github.com/dmitrijs2005/blobsas/internal/dbx"
	"github.com/dmitrijs2005/blobsas/internal/sas"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) LockContainer(ctx context.Context, container string) error {
	query := `SELECT pg_advisory_xact_lock(hashtext($1))`
	if _, err := r.db.ExecContext(ctx, query, container); err != nil {
		return fmt.Errorf("failed to lock container: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteByContainer(ctx context.Context, container string) error {
	query := `DELETE FROM container_policies WHERE container = $1`
	if _, err := r.db.ExecContext(ctx, query, container); err != nil {
		return fmt.Errorf("failed to delete policies: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Insert(ctx context.Context, container string, p sas.StoredPolicy) error {
	query := `
		INSERT INTO container_policies (container, policy_id, start_time, expiry_time, permissions)
		VALUES ($1, $2, $3, $4, $5)
	`
	var start sql.NullTime
	if !p.Start.IsZero() {
		start = sql.NullTime{Time: p.Start.UTC(), Valid: true}
	}

	res, err := r.db.ExecContext(ctx, query, container, p.ID, start, p.Expiry.UTC(), p.Permissions.String())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, container, id string) (*sas.StoredPolicy, error) {
	query := `
		SELECT policy_id, start_time, expiry_time, permissions FROM container_policies
		WHERE container = $1 AND policy_id = $2
	`

	var (
		p     sas.StoredPolicy
		start sql.NullTime
		perms string
	)
	err := r.db.QueryRowContext(ctx, query, container, id).Scan(&p.ID, &start, &p.Expiry, &perms)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select policy: %w", err)
	}

	if start.Valid {
		p.Start = start.Time.UTC()
	}
	p.Expiry = p.Expiry.UTC()
	if p.Permissions, err = sas.ParsePermissions(perms); err != nil {
		return nil, fmt.Errorf("stored policy %q: %w", id, err)
	}
	return &p, nil
}
