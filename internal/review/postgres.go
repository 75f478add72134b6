package review

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/claim-risk-engine/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL review store.
// It expects the reviews table to already exist.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL review store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// EnsureSchema creates the reviews table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS reviews (
		id BIGSERIAL PRIMARY KEY,
		claim_ref TEXT NOT NULL UNIQUE,
		claimant_name TEXT DEFAULT '',
		policy_number TEXT DEFAULT '',
		status TEXT NOT NULL,
		fraud_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		risk_band TEXT NOT NULL,
		reasons JSONB DEFAULT '[]'::jsonb,
		result_json TEXT DEFAULT '',
		decision TEXT NOT NULL DEFAULT 'PENDING',
		notes TEXT DEFAULT '',
		created_at TIMESTAMPTZ DEFAULT now(),
		updated_at TIMESTAMPTZ DEFAULT now(),
		decided_at TIMESTAMPTZ
	);
	CREATE INDEX IF NOT EXISTS idx_reviews_decision ON reviews(decision);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Save queues a claim for review. Resubmitting the same claim ref
// refreshes the queued entry and resets the decision to PENDING.
func (s *PostgresStore) Save(ctx context.Context, review *Review) error {
	now := time.Now()
	if review.Decision == "" {
		review.Decision = DecisionPending
	}

	reasons, err := json.Marshal(review.Reasons)
	if err != nil {
		return fmt.Errorf("failed to marshal reasons: %w", err)
	}

	query := `
		INSERT INTO reviews (
			claim_ref, claimant_name, policy_number,
			status, fraud_score, risk_band, reasons, result_json,
			decision, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (claim_ref) DO UPDATE SET
			claimant_name = EXCLUDED.claimant_name,
			policy_number = EXCLUDED.policy_number,
			status = EXCLUDED.status,
			fraud_score = EXCLUDED.fraud_score,
			risk_band = EXCLUDED.risk_band,
			reasons = EXCLUDED.reasons,
			result_json = EXCLUDED.result_json,
			decision = 'PENDING',
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at,
			decided_at = NULL
		RETURNING id, created_at
	`

	err = s.db.QueryRowContext(ctx, query,
		review.ClaimRef,
		review.ClaimantName,
		review.PolicyNumber,
		string(review.Status),
		review.FraudScore,
		string(review.RiskBand),
		reasons,
		review.ResultJSON,
		string(review.Decision),
		review.Notes,
		now,
		now,
	).Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save review: %w", err)
	}

	review.UpdatedAt = now
	return nil
}

// Get retrieves a queued review by ID.
func (s *PostgresStore) Get(ctx context.Context, id int64) (*Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE id = $1`, reviewColumns)

	rv, err := scanReview(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return rv, nil
}

// List returns review entries, newest first, with pagination.
func (s *PostgresStore) List(ctx context.Context, pendingOnly bool, limit, offset int) ([]*Review, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM reviews
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, reviewColumns)
	args := []interface{}{limit, offset}

	if pendingOnly {
		query = fmt.Sprintf(`
			SELECT %s FROM reviews
			WHERE decision = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2 OFFSET $3
		`, reviewColumns)
		args = []interface{}{string(DecisionPending), limit, offset}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, rv)
	}
	return result, rows.Err()
}

// Count returns the total number of queued reviews.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews").Scan(&count)
	return count, err
}

// Decide records the reviewer's decision for a queued claim.
func (s *PostgresStore) Decide(ctx context.Context, id int64, decision Decision, notes string) error {
	now := time.Now()

	result, err := s.db.ExecContext(ctx, `
		UPDATE reviews SET
			decision = $1,
			notes = $2,
			updated_at = $3,
			decided_at = $4
		WHERE id = $5
	`, string(decision), notes, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
