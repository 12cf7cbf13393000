package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/blobsas/internal/common"
	"github.com/dmitrijs2005/blobsas/internal/issuer/repositories/repomanager"
	"github.com/dmitrijs2005/blobsas/internal/logging"
	"github.com/dmitrijs2005/blobsas/internal/sas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func newPolicyService(t *testing.T) (*PolicyService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newSQLMockDB(t)
	return NewPolicyService(db, repomanager.NewPostgresRepositoryManager(), logging.Nop()), mock
}

var expiry = time.Date(2026, 10, 16, 22, 0, 0, 0, time.UTC)

func samplePolicies() []sas.StoredPolicy {
	return []sas.StoredPolicy{
		{ID: "tutorialpolicy", Expiry: expiry, Permissions: sas.NewPermissions(sas.Read, sas.Write, sas.List)},
		{ID: "readonly", Expiry: expiry, Permissions: sas.NewPermissions(sas.Read)},
	}
}

func TestReplacePolicies_CommitsWholeSet(t *testing.T) {
	s, mock := newPolicyService(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
		WithArgs("backup").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM container_policies`).
		WithArgs("backup").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO container_policies`).
		WithArgs("backup", "tutorialpolicy", sqlmock.AnyArg(), expiry, "rwl").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO container_policies`).
		WithArgs("backup", "readonly", sqlmock.AnyArg(), expiry, "r").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.ReplacePolicies(context.Background(), "backup", samplePolicies()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplacePolicies_EmptySetOnlyDeletes(t *testing.T) {
	s, mock := newPolicyService(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
		WithArgs("backup").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM container_policies`).
		WithArgs("backup").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, s.ReplacePolicies(context.Background(), "backup", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplacePolicies_InsertFailureRollsBack(t *testing.T) {
	s, mock := newPolicyService(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
		WithArgs("backup").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM container_policies`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO container_policies`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO container_policies`).WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := s.ReplacePolicies(context.Background(), "backup", samplePolicies())
	require.ErrorContains(t, err, `error inserting policy "readonly"`)
	require.ErrorContains(t, err, "constraint violation")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplacePolicies_DeleteFailureRollsBack(t *testing.T) {
	s, mock := newPolicyService(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
		WithArgs("backup").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM container_policies`).WillReturnError(errors.New("locked"))
	mock.ExpectRollback()

	err := s.ReplacePolicies(context.Background(), "backup", samplePolicies())
	require.ErrorContains(t, err, "error deleting policies")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplacePolicies_LockFailureRollsBack(t *testing.T) {
	s, mock := newPolicyService(t)

	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	err := s.ReplacePolicies(context.Background(), "backup", samplePolicies())
	require.ErrorContains(t, err, "error locking container")
	require.ErrorContains(t, err, "lock timeout")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplacePolicies_BeginError(t *testing.T) {
	s, mock := newPolicyService(t)

	mock.ExpectBegin().WillReturnError(errors.New("no conn"))

	err := s.ReplacePolicies(context.Background(), "backup", samplePolicies())
	require.ErrorContains(t, err, "begin tx")
}

func TestFetchPolicy(t *testing.T) {
	s, mock := newPolicyService(t)

	rows := sqlmock.NewRows([]string{"policy_id", "start_time", "expiry_time", "permissions"}).
		AddRow("tutorialpolicy", nil, expiry, "rwl")
	mock.ExpectQuery(`SELECT policy_id`).
		WithArgs("backup", "tutorialpolicy").
		WillReturnRows(rows)

	p, err := s.FetchPolicy(context.Background(), "backup", "tutorialpolicy")
	require.NoError(t, err)
	assert.Equal(t, "tutorialpolicy", p.ID)
	assert.Equal(t, expiry, p.Expiry)
}

func TestFetchPolicy_NotFound(t *testing.T) {
	s, mock := newPolicyService(t)

	mock.ExpectQuery(`SELECT policy_id`).WillReturnError(sql.ErrNoRows)

	_, err := s.FetchPolicy(context.Background(), "backup", "missing")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPolicyStoreOverService(t *testing.T) {
	s, mock := newPolicyService(t)
	store := sas.NewPolicyStore(s)

	mock.ExpectQuery(`SELECT policy_id`).WillReturnError(sql.ErrNoRows)
	_, ok, err := store.GetPolicy(context.Background(), "backup", "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	// rejected before any statement is sent
	err = store.SetPolicies(context.Background(), "backup", []sas.StoredPolicy{{ID: "x"}})
	require.ErrorIs(t, err, common.ErrInvalidPolicyWindow)
	require.NoError(t, mock.ExpectationsWereMet())
}
