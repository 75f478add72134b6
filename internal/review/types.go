// Package review provides the human review queue. Claims that the
// decision engine routes to a reviewer are persisted here together with
// the full pipeline result, and reviewers record their final decision
// against the queued entry.
package review

import (
	"context"
	"time"

	"github.com/claim-risk-engine/internal/domain"
)

// Decision is the reviewer's verdict on a queued claim.
type Decision string

const (
	DecisionPending  Decision = "PENDING"
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
)

// Review represents one claim queued for human review.
type Review struct {
	ID           int64              `json:"id,omitempty"`
	ClaimRef     string             `json:"claim_ref"`
	ClaimantName string             `json:"claimant_name,omitempty"`
	PolicyNumber string             `json:"policy_number,omitempty"`
	Status       domain.ClaimStatus `json:"status"`
	FraudScore   float64            `json:"fraud_score"`
	RiskBand     domain.RiskBand    `json:"risk_band"`
	Reasons      []string           `json:"reasons,omitempty"`
	ResultJSON   string             `json:"result_json,omitempty"`
	Decision     Decision           `json:"decision"`
	Notes        string             `json:"notes,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	DecidedAt    *time.Time         `json:"decided_at,omitempty"`
}

// Store defines the review queue storage operations.
type Store interface {
	// Save queues a claim for review. New entries start as PENDING.
	Save(ctx context.Context, review *Review) error

	// Get retrieves a queued review by ID.
	Get(ctx context.Context, id int64) (*Review, error)

	// List returns review entries, newest first, with pagination.
	// When pendingOnly is set, decided entries are filtered out.
	List(ctx context.Context, pendingOnly bool, limit, offset int) ([]*Review, error)

	// Count returns the total number of queued reviews.
	Count(ctx context.Context) (int64, error)

	// Decide records the reviewer's decision for a queued claim.
	Decide(ctx context.Context, id int64, decision Decision, notes string) error

	// Close closes the store and releases resources.
	Close() error
}
