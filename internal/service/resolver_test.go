package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/claim-risk-engine/internal/domain"
)

func TestResolveMostFrequentWins(t *testing.T) {
	resolver := NewEntityResolver(testLogger())

	documents := []domain.DocumentRecord{
		doc("a", "a", map[string]domain.FieldValue{
			domain.FieldClaimantName: {Value: "John Doe", Confidence: 0.6},
		}),
		doc("b", "b", map[string]domain.FieldValue{
			domain.FieldClaimantName: {Value: "John Doe", Confidence: 0.7},
		}),
		doc("c", "c", map[string]domain.FieldValue{
			domain.FieldClaimantName: {Value: "J. Doe", Confidence: 0.99},
		}),
	}

	entities := resolver.Resolve(documents)

	assert.Equal(t, "John Doe", entities.ClaimantName.Value)
	// The golden value carries the best confidence among agreeing documents.
	assert.InDelta(t, 0.7, entities.ClaimantName.Confidence, 1e-9)
}

func TestResolveTieBreaksOnConfidence(t *testing.T) {
	resolver := NewEntityResolver(testLogger())

	documents := []domain.DocumentRecord{
		doc("a", "a", map[string]domain.FieldValue{
			domain.FieldPolicyNumber: {Value: "POL-12345", Confidence: 0.5},
		}),
		doc("b", "b", map[string]domain.FieldValue{
			domain.FieldPolicyNumber: {Value: "POL-12845", Confidence: 0.9},
		}),
	}

	entities := resolver.Resolve(documents)

	assert.Equal(t, "POL-12845", entities.PolicyNumber.Value)
	assert.InDelta(t, 0.9, entities.PolicyNumber.Confidence, 1e-9)
}

func TestResolveFallsBackToDocumentConfidence(t *testing.T) {
	resolver := NewEntityResolver(testLogger())

	documents := []domain.DocumentRecord{
		{
			ID:                   "a",
			Type:                 domain.DocPolicy,
			RawText:              "a",
			ExtractionConfidence: 0.8,
			Fields: map[string]domain.FieldValue{
				domain.FieldTotalAmount: {Value: "50000"},
			},
		},
	}

	entities := resolver.Resolve(documents)

	assert.Equal(t, "50000", entities.TotalAmount.Value)
	assert.InDelta(t, 0.8, entities.TotalAmount.Confidence, 1e-9)
}

func TestResolveMissingFieldsStayEmpty(t *testing.T) {
	resolver := NewEntityResolver(testLogger())

	entities := resolver.Resolve([]domain.DocumentRecord{
		doc("a", "a", map[string]domain.FieldValue{
			domain.FieldClaimantName: {Value: "John Doe"},
		}),
	})

	assert.False(t, entities.Email.Present())
	assert.False(t, entities.IncidentDate.Present())
	assert.True(t, entities.ClaimantName.Present())
}
