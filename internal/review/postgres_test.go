package review

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claim-risk-engine/internal/domain"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// NewPostgresStore pings on construction.
	return &PostgresStore{db: db}, mock
}

func TestPostgresStoreSave(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO reviews").
		WithArgs(
			"claim-001", "John Doe", "POL-12345",
			string(domain.StatusEscalatedFraudReview), 0.9, string(domain.RiskCritical),
			sqlmock.AnyArg(), `{"fraud_score":0.9}`,
			string(DecisionPending), "", sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), time.Now()))

	rv := &Review{
		ClaimRef:     "claim-001",
		ClaimantName: "John Doe",
		PolicyNumber: "POL-12345",
		Status:       domain.StatusEscalatedFraudReview,
		FraudScore:   0.9,
		RiskBand:     domain.RiskCritical,
		ResultJSON:   `{"fraud_score":0.9}`,
	}

	require.NoError(t, store.Save(context.Background(), rv))
	assert.Equal(t, int64(7), rv.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreDecide(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE reviews SET").
		WithArgs(string(DecisionRejected), "staged accident", sqlmock.AnyArg(), sqlmock.AnyArg(), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Decide(context.Background(), 3, DecisionRejected, "staged accident"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreDecideUnknownID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE reviews SET").
		WithArgs(string(DecisionApproved), "", sqlmock.AnyArg(), sqlmock.AnyArg(), int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Decide(context.Background(), 99, DecisionApproved, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgresStoreGet(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "claim_ref", "claimant_name", "policy_number",
		"status", "fraud_score", "risk_band", "reasons", "result_json",
		"decision", "notes", "created_at", "updated_at", "decided_at",
	}).AddRow(
		int64(3), "claim-001", "John Doe", "POL-12345",
		string(domain.StatusNeedsManualReview), 0.2, string(domain.RiskLow),
		`["coverage: low match confidence"]`, "{}",
		string(DecisionPending), "", now, now, nil,
	)

	mock.ExpectQuery("SELECT (.+) FROM reviews WHERE id").
		WithArgs(int64(3)).
		WillReturnRows(rows)

	rv, err := store.Get(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, "claim-001", rv.ClaimRef)
	assert.Equal(t, domain.StatusNeedsManualReview, rv.Status)
	assert.Equal(t, []string{"coverage: low match confidence"}, rv.Reasons)
	assert.Nil(t, rv.DecidedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
