package repository

import (
	"context"
	"encoding/json"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/claim-risk-engine/internal/domain"
	"github.com/claim-risk-engine/pkg/fuzzy"
)

// PolicyRepository handles policy persistence and lookup against Postgres.
// Lookups are cached with an LRU keyed by the normalized policy number.
type PolicyRepository struct {
	db    *pgxpool.Pool
	log   *logrus.Logger
	cache *lru.Cache[string, cachedLookup]
}

type cachedLookup struct {
	record     *domain.PolicyRecord
	confidence float64
}

// NewPolicyRepository creates a new policy repository
func NewPolicyRepository(db *pgxpool.Pool, cacheSize int, logger *logrus.Logger) (*PolicyRepository, error) {
	if cacheSize <= 0 {
		cacheSize = 128
	}
	cache, err := lru.New[string, cachedLookup](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating lookup cache: %w", err)
	}

	return &PolicyRepository{
		db:    db,
		log:   logger,
		cache: cache,
	}, nil
}

// Create inserts or updates a policy. The normalized number is the key;
// re-seeding the same policy overwrites the previous row.
func (r *PolicyRepository) Create(ctx context.Context, policy *domain.PolicyRecord) error {
	normalized := fuzzy.NormalizePolicyNumber(policy.PolicyNumber)
	if normalized == "" {
		return fmt.Errorf("policy number is empty after normalization")
	}

	limits, err := json.Marshal(policy.CoverageLimits)
	if err != nil {
		return fmt.Errorf("marshaling coverage limits: %w", err)
	}

	query := `
		INSERT INTO policies (
			policy_number, raw_number, holder_name, effective_date, expiry_date,
			sum_insured, deductible, coverage_limits, exclusions
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (policy_number) DO UPDATE SET
			raw_number      = EXCLUDED.raw_number,
			holder_name     = EXCLUDED.holder_name,
			effective_date  = EXCLUDED.effective_date,
			expiry_date     = EXCLUDED.expiry_date,
			sum_insured     = EXCLUDED.sum_insured,
			deductible      = EXCLUDED.deductible,
			coverage_limits = EXCLUDED.coverage_limits,
			exclusions      = EXCLUDED.exclusions,
			updated_at      = now()`

	_, err = r.db.Exec(ctx, query,
		normalized,
		policy.PolicyNumber,
		policy.HolderName,
		policy.EffectiveDate,
		policy.ExpiryDate,
		policy.SumInsured,
		policy.Deductible,
		limits,
		policy.Exclusions,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"policy_number": policy.PolicyNumber,
			"error":         err,
		}).Error("Failed to create policy")
		return fmt.Errorf("creating policy: %w", err)
	}

	r.cache.Remove(normalized)

	r.log.WithFields(logrus.Fields{
		"policy_number": policy.PolicyNumber,
		"holder":        policy.HolderName,
	}).Info("Policy stored")

	return nil
}

// Seed stores a batch of policies.
func (r *PolicyRepository) Seed(ctx context.Context, policies []*domain.PolicyRecord) error {
	for _, policy := range policies {
		if err := r.Create(ctx, policy); err != nil {
			return err
		}
	}
	return nil
}

// Lookup resolves a claim's policy number to a stored policy. It tries an
// exact match on the normalized number first, then falls back to prefix
// and fuzzy matching over the whole book. Returns ErrPolicyNotFound when
// nothing matches.
func (r *PolicyRepository) Lookup(ctx context.Context, policyNumber string) (*domain.PolicyRecord, float64, error) {
	normalized := fuzzy.NormalizePolicyNumber(policyNumber)
	if normalized == "" {
		return nil, 0, domain.ErrPolicyNotFound
	}

	if cached, ok := r.cache.Get(normalized); ok {
		if cached.record == nil {
			return nil, 0, domain.ErrPolicyNotFound
		}
		return cached.record, cached.confidence, nil
	}

	record, err := r.getByNormalized(ctx, normalized)
	if err == nil {
		r.cache.Add(normalized, cachedLookup{record: record, confidence: 1.0})
		return record, 1.0, nil
	}
	if err != domain.ErrPolicyNotFound {
		return nil, 0, err
	}

	candidates, err := r.allCandidates(ctx)
	if err != nil {
		return nil, 0, err
	}

	record, confidence := matchPolicy(normalized, candidates)
	if record == nil {
		r.cache.Add(normalized, cachedLookup{})
		return nil, 0, domain.ErrPolicyNotFound
	}

	r.log.WithFields(logrus.Fields{
		"query":      policyNumber,
		"matched":    record.PolicyNumber,
		"confidence": confidence,
	}).Debug("Policy resolved by approximate match")

	r.cache.Add(normalized, cachedLookup{record: record, confidence: confidence})
	return record, confidence, nil
}

const policyColumns = `policy_number, raw_number, holder_name, effective_date, expiry_date,
		   sum_insured, deductible, coverage_limits, exclusions`

func (r *PolicyRepository) getByNormalized(ctx context.Context, normalized string) (*domain.PolicyRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM policies
		WHERE policy_number = $1`, policyColumns)

	record, _, err := scanPolicy(r.db.QueryRow(ctx, query, normalized))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrPolicyNotFound
		}
		r.log.WithFields(logrus.Fields{
			"policy_number": normalized,
			"error":         err,
		}).Error("Failed to get policy")
		return nil, fmt.Errorf("getting policy: %w", err)
	}

	return record, nil
}

func (r *PolicyRepository) allCandidates(ctx context.Context) ([]policyCandidate, error) {
	query := fmt.Sprintf(`SELECT %s FROM policies`, policyColumns)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing policies: %w", err)
	}
	defer rows.Close()

	var candidates []policyCandidate
	for rows.Next() {
		record, normalized, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning policy: %w", err)
		}
		candidates = append(candidates, policyCandidate{normalized: normalized, record: record})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating policies: %w", err)
	}

	return candidates, nil
}

// scanPolicy scans one policies row. The record carries the number as
// printed on the document; the normalized key is returned separately.
func scanPolicy(row pgx.Row) (*domain.PolicyRecord, string, error) {
	var (
		record     domain.PolicyRecord
		normalized string
		limitsJSON []byte
	)

	err := row.Scan(
		&normalized,
		&record.PolicyNumber,
		&record.HolderName,
		&record.EffectiveDate,
		&record.ExpiryDate,
		&record.SumInsured,
		&record.Deductible,
		&limitsJSON,
		&record.Exclusions,
	)
	if err != nil {
		return nil, "", err
	}

	if len(limitsJSON) > 0 {
		if err := json.Unmarshal(limitsJSON, &record.CoverageLimits); err != nil {
			return nil, "", fmt.Errorf("parsing coverage limits: %w", err)
		}
	}

	return &record, normalized, nil
}
