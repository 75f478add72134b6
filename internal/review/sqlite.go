package review

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/claim-risk-engine/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite review store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// createSchema creates the review queue tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS reviews (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		claim_ref TEXT NOT NULL UNIQUE,
		claimant_name TEXT DEFAULT '',
		policy_number TEXT DEFAULT '',
		status TEXT NOT NULL,
		fraud_score REAL NOT NULL DEFAULT 0,
		risk_band TEXT NOT NULL,
		reasons TEXT DEFAULT '[]',
		result_json TEXT DEFAULT '',
		decision TEXT NOT NULL DEFAULT 'PENDING',
		notes TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		decided_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_reviews_decision ON reviews(decision);
	CREATE INDEX IF NOT EXISTS idx_reviews_created_at ON reviews(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanReview scans a row into a Review struct.
func scanReview(s scanner) (*Review, error) {
	rv := &Review{}
	var status, band, decision, reasonsJSON string
	var decidedAt sql.NullTime

	err := s.Scan(
		&rv.ID, &rv.ClaimRef, &rv.ClaimantName, &rv.PolicyNumber,
		&status, &rv.FraudScore, &band, &reasonsJSON, &rv.ResultJSON,
		&decision, &rv.Notes, &rv.CreatedAt, &rv.UpdatedAt, &decidedAt,
	)
	if err != nil {
		return nil, err
	}

	rv.Status = domain.ClaimStatus(status)
	rv.RiskBand = domain.RiskBand(band)
	rv.Decision = Decision(decision)
	if decidedAt.Valid {
		rv.DecidedAt = &decidedAt.Time
	}
	if reasonsJSON != "" {
		if err := json.Unmarshal([]byte(reasonsJSON), &rv.Reasons); err != nil {
			return nil, fmt.Errorf("failed to parse reasons: %w", err)
		}
	}
	return rv, nil
}

const reviewColumns = `id, claim_ref, claimant_name, policy_number,
		status, fraud_score, risk_band, reasons, result_json,
		decision, notes, created_at, updated_at, decided_at`

// Save queues a claim for review. Resubmitting the same claim ref
// refreshes the queued entry and resets the decision to PENDING.
func (s *SQLiteStore) Save(ctx context.Context, review *Review) error {
	now := time.Now()
	if review.Decision == "" {
		review.Decision = DecisionPending
	}

	reasons, err := json.Marshal(review.Reasons)
	if err != nil {
		return fmt.Errorf("failed to marshal reasons: %w", err)
	}

	var existingID int64
	err = s.db.QueryRowContext(ctx,
		"SELECT id FROM reviews WHERE claim_ref = ?", review.ClaimRef,
	).Scan(&existingID)

	if err == nil {
		review.ID = existingID
		review.UpdatedAt = now

		_, err = s.db.ExecContext(ctx, `
			UPDATE reviews SET
				claimant_name = ?,
				policy_number = ?,
				status = ?,
				fraud_score = ?,
				risk_band = ?,
				reasons = ?,
				result_json = ?,
				decision = ?,
				notes = ?,
				updated_at = ?,
				decided_at = NULL
			WHERE id = ?
		`,
			review.ClaimantName,
			review.PolicyNumber,
			string(review.Status),
			review.FraudScore,
			string(review.RiskBand),
			string(reasons),
			review.ResultJSON,
			string(DecisionPending),
			review.Notes,
			now,
			existingID,
		)
		return err
	}

	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	review.CreatedAt = now
	review.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO reviews (
			claim_ref, claimant_name, policy_number,
			status, fraud_score, risk_band, reasons, result_json,
			decision, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		review.ClaimRef,
		review.ClaimantName,
		review.PolicyNumber,
		string(review.Status),
		review.FraudScore,
		string(review.RiskBand),
		string(reasons),
		review.ResultJSON,
		string(review.Decision),
		review.Notes,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	review.ID = id

	return nil
}

// Get retrieves a queued review by ID.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*Review, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM reviews WHERE id = ?
	`, reviewColumns), id)

	rv, err := scanReview(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return rv, nil
}

// List returns review entries, newest first, with pagination.
func (s *SQLiteStore) List(ctx context.Context, pendingOnly bool, limit, offset int) ([]*Review, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM reviews
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, reviewColumns)
	args := []interface{}{limit, offset}

	if pendingOnly {
		query = fmt.Sprintf(`
			SELECT %s FROM reviews
			WHERE decision = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ? OFFSET ?
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
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews").Scan(&count)
	return count, err
}

// Decide records the reviewer's decision for a queued claim.
func (s *SQLiteStore) Decide(ctx context.Context, id int64, decision Decision, notes string) error {
	now := time.Now()

	result, err := s.db.ExecContext(ctx, `
		UPDATE reviews SET
			decision = ?,
			notes = ?,
			updated_at = ?,
			decided_at = ?
		WHERE id = ?
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
