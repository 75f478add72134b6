package repository

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claim-risk-engine/internal/domain"
)

func testPolicy(number, holder string) *domain.PolicyRecord {
	return &domain.PolicyRecord{
		PolicyNumber:  number,
		HolderName:    holder,
		EffectiveDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ExpiryDate:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		SumInsured:    500000,
	}
}

func TestMatchPolicy(t *testing.T) {
	candidates := []policyCandidate{
		{normalized: "POL12345", record: testPolicy("POL-12345", "John Doe")},
		{normalized: "POL67890", record: testPolicy("POL-67890", "Jane Roe")},
		{normalized: "XJ2024001122", record: testPolicy("XJ/2024/001122", "Ravi Kumar")},
	}

	tests := []struct {
		name       string
		query      string
		wantHolder string
		wantConf   float64
	}{
		{
			name:       "exact normalized match",
			query:      "POL12345",
			wantHolder: "John Doe",
			wantConf:   1.0,
		},
		{
			name:       "truncated read matches by prefix",
			query:      "POL123",
			wantHolder: "John Doe",
			wantConf:   0.9,
		},
		{
			name:       "query longer than stored matches by prefix",
			query:      "XJ2024001122A",
			wantHolder: "Ravi Kumar",
			wantConf:   0.9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, conf := matchPolicy(tt.query, candidates)
			require.NotNil(t, record)
			assert.Equal(t, tt.wantHolder, record.HolderName)
			assert.InDelta(t, tt.wantConf, conf, 1e-9)
		})
	}
}

func TestNewPolicyRepositoryDefaultsCacheSize(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	repo, err := NewPolicyRepository(nil, 0, logger)
	require.NoError(t, err)
	require.NotNil(t, repo)
}

func TestMatchPolicyFuzzy(t *testing.T) {
	candidates := []policyCandidate{
		{normalized: "POL1234567890", record: testPolicy("POL-1234567890", "John Doe")},
	}

	// One substituted character, no shared prefix relationship.
	record, conf := matchPolicy("POL1234567891", candidates)
	require.NotNil(t, record)
	assert.Equal(t, "John Doe", record.HolderName)
	assert.GreaterOrEqual(t, conf, 0.85)
	assert.Less(t, conf, 1.0)
}

func TestMatchPolicyNoMatch(t *testing.T) {
	candidates := []policyCandidate{
		{normalized: "POL12345", record: testPolicy("POL-12345", "John Doe")},
	}

	record, conf := matchPolicy("ZZZ99999", candidates)
	assert.Nil(t, record)
	assert.Zero(t, conf)

	record, _ = matchPolicy("", candidates)
	assert.Nil(t, record)
}

func TestMemoryPolicyStoreLookup(t *testing.T) {
	store := NewMemoryPolicyStore([]*domain.PolicyRecord{
		testPolicy("POL-12345", "John Doe"),
		testPolicy("POL-67890", "Jane Roe"),
	})

	// Punctuation and case differences normalize away.
	record, conf, err := store.Lookup(context.Background(), "pol 12345")
	require.NoError(t, err)
	assert.Equal(t, "John Doe", record.HolderName)
	assert.Equal(t, 1.0, conf)

	_, _, err = store.Lookup(context.Background(), "UNKNOWN-0000")
	assert.ErrorIs(t, err, domain.ErrPolicyNotFound)
}

func TestMemoryPolicyStoreAddReplaces(t *testing.T) {
	store := NewMemoryPolicyStore(nil)
	store.Add(testPolicy("POL-12345", "John Doe"))
	store.Add(testPolicy("POL12345", "John A. Doe"))

	record, conf, err := store.Lookup(context.Background(), "POL-12345")
	require.NoError(t, err)
	assert.Equal(t, "John A. Doe", record.HolderName)
	assert.Equal(t, 1.0, conf)
}
