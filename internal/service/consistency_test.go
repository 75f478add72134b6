package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claim-risk-engine/internal/domain"
)

func doc(id string, rawText string, fields map[string]domain.FieldValue) domain.DocumentRecord {
	return domain.DocumentRecord{
		ID:      id,
		Type:    domain.DocBill,
		RawText: rawText,
		Fields:  fields,
	}
}

func TestValidateNoDocumentsTrivialPass(t *testing.T) {
	validator := NewConsistencyValidator(testLogger())

	result := validator.Validate(domain.ClaimEntities{}, nil)

	assert.Equal(t, 1.0, result.Score)
	assert.Equal(t, domain.ConsistencyPass, result.Status)
	assert.Empty(t, result.Mismatches)
}

func TestValidateConsistentDocuments(t *testing.T) {
	validator := NewConsistencyValidator(testLogger())

	documents := []domain.DocumentRecord{
		doc("policy-1", "policy schedule text", map[string]domain.FieldValue{
			domain.FieldClaimantName: {Value: "Mr. John Doe"},
			domain.FieldPolicyNumber: {Value: "POL-12345"},
			domain.FieldTotalAmount:  {Value: "50000"},
			domain.FieldIncidentDate: {Value: "15/03/2024"},
		}),
		doc("bill-1", "repair invoice text", map[string]domain.FieldValue{
			domain.FieldClaimantName: {Value: "JOHN DOE"},
			domain.FieldPolicyNumber: {Value: "POL12345"},
			domain.FieldTotalAmount:  {Value: "52,000"},
			domain.FieldIncidentDate: {Value: "2024-03-16"},
		}),
	}

	result := validator.Validate(domain.ClaimEntities{}, documents)

	// Title stripping makes the names identical; the policy numbers agree
	// after normalization; the amounts are within 20%; the dates are one
	// day apart; no duplicate content.
	assert.Equal(t, 1.0, result.Score)
	assert.Equal(t, domain.ConsistencyPass, result.Status)
	assert.Empty(t, result.Mismatches)
}

func TestValidatePolicyMismatch(t *testing.T) {
	validator := NewConsistencyValidator(testLogger())

	documents := []domain.DocumentRecord{
		doc("a", "text a", map[string]domain.FieldValue{
			domain.FieldPolicyNumber: {Value: "POL-12345"},
		}),
		doc("b", "text b", map[string]domain.FieldValue{
			domain.FieldPolicyNumber: {Value: "POL-99999"},
		}),
	}

	result := validator.Validate(domain.ClaimEntities{}, documents)

	// Policy sub-check contributes 0.0; the other four contribute 1.0.
	assert.InDelta(t, 4.0/5.0, result.Score, 1e-9)
	assert.Equal(t, domain.ConsistencyPass, result.Status)
	require.Len(t, result.Mismatches, 1)
	assert.Contains(t, result.Mismatches[0], "POL-12345")
	assert.Contains(t, result.Mismatches[0], "POL-99999")
}

func TestValidatePlaceholderPolicyNumbersIgnored(t *testing.T) {
	validator := NewConsistencyValidator(testLogger())

	documents := []domain.DocumentRecord{
		doc("a", "text a", map[string]domain.FieldValue{
			domain.FieldPolicyNumber: {Value: "POL-12345"},
		}),
		doc("b", "text b", map[string]domain.FieldValue{
			domain.FieldPolicyNumber: {Value: "N/A"},
		}),
		doc("c", "text c", map[string]domain.FieldValue{
			domain.FieldPolicyNumber: {Value: "unknown"},
		}),
	}

	result := validator.Validate(domain.ClaimEntities{}, documents)

	assert.Equal(t, 1.0, result.Score)
	assert.Empty(t, result.Mismatches)
}

func TestValidateAmountDiscrepancy(t *testing.T) {
	validator := NewConsistencyValidator(testLogger())

	tests := []struct {
		name     string
		amounts  []string
		expected float64
	}{
		{"within tolerance", []string{"100000", "81000"}, 1.0},
		{"beyond tolerance", []string{"100000", "60000"}, 0.5},
		{"unparseable dropped", []string{"100000", "about half"}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var documents []domain.DocumentRecord
			for i, amount := range tt.amounts {
				documents = append(documents, doc(string(rune('a'+i)), "text "+amount, map[string]domain.FieldValue{
					domain.FieldTotalAmount: {Value: amount},
				}))
			}

			result := validator.Validate(domain.ClaimEntities{}, documents)
			// Four other sub-checks contribute 1.0 each.
			assert.InDelta(t, (4.0+tt.expected)/5.0, result.Score, 1e-9)
		})
	}
}

func TestValidateDateSpan(t *testing.T) {
	validator := NewConsistencyValidator(testLogger())

	documents := []domain.DocumentRecord{
		doc("a", "text a", map[string]domain.FieldValue{
			domain.FieldIncidentDate: {Value: "01/01/2024"},
		}),
		doc("b", "text b", map[string]domain.FieldValue{
			domain.FieldIncidentDate: {Value: "15/06/2024"},
		}),
	}

	result := validator.Validate(domain.ClaimEntities{}, documents)

	assert.InDelta(t, (4.0+0.7)/5.0, result.Score, 1e-9)
	require.Len(t, result.Mismatches, 1)
	assert.Contains(t, result.Mismatches[0], "span")
}

func TestValidateDuplicateDocuments(t *testing.T) {
	validator := NewConsistencyValidator(testLogger())

	documents := []domain.DocumentRecord{
		doc("bill-1", "identical invoice content", nil),
		doc("bill-2", "identical invoice content", nil),
		doc("policy-1", "policy schedule", nil),
	}

	result := validator.Validate(domain.ClaimEntities{}, documents)

	assert.InDelta(t, 4.0/5.0, result.Score, 1e-9)
	assert.Equal(t, []string{"bill-2"}, result.DuplicateDocuments)
	require.Len(t, result.Mismatches, 1)
	assert.Contains(t, result.Mismatches[0], "bill-2 duplicates bill-1")
}

func TestValidateFailBelowThreshold(t *testing.T) {
	validator := NewConsistencyValidator(testLogger())

	// Policy mismatch (0.0) plus duplicates (0.0) drags the mean to 0.6.
	documents := []domain.DocumentRecord{
		doc("a", "same content", map[string]domain.FieldValue{
			domain.FieldPolicyNumber: {Value: "POL-11111"},
		}),
		doc("b", "same content", map[string]domain.FieldValue{
			domain.FieldPolicyNumber: {Value: "POL-22222"},
		}),
	}

	result := validator.Validate(domain.ClaimEntities{}, documents)

	assert.InDelta(t, 3.0/5.0, result.Score, 1e-9)
	assert.Equal(t, domain.ConsistencyFail, result.Status)
}

func TestValidateNameMismatchFlagged(t *testing.T) {
	validator := NewConsistencyValidator(testLogger())

	documents := []domain.DocumentRecord{
		doc("a", "text a", map[string]domain.FieldValue{
			domain.FieldClaimantName: {Value: "John Doe"},
		}),
		doc("b", "text b", map[string]domain.FieldValue{
			domain.FieldClaimantName: {Value: "Priya Sharma"},
		}),
	}

	result := validator.Validate(domain.ClaimEntities{}, documents)

	assert.Less(t, result.Score, 1.0)
	require.NotEmpty(t, result.Mismatches)
	assert.Contains(t, result.Mismatches[0], "claimant name mismatch")
}

func TestScoreAlwaysBounded(t *testing.T) {
	validator := NewConsistencyValidator(testLogger())

	documents := []domain.DocumentRecord{
		doc("a", "same", map[string]domain.FieldValue{
			domain.FieldClaimantName: {Value: "Alpha"},
			domain.FieldPolicyNumber: {Value: "X1"},
			domain.FieldTotalAmount:  {Value: "100"},
			domain.FieldIncidentDate: {Value: "01/01/2020"},
		}),
		doc("b", "same", map[string]domain.FieldValue{
			domain.FieldClaimantName: {Value: "Zebra"},
			domain.FieldPolicyNumber: {Value: "X2"},
			domain.FieldTotalAmount:  {Value: "900000"},
			domain.FieldIncidentDate: {Value: "01/01/2024"},
		}),
	}

	result := validator.Validate(domain.ClaimEntities{}, documents)

	assert.GreaterOrEqual(t, result.Score, 0.0)
	assert.LessOrEqual(t, result.Score, 1.0)
	assert.Equal(t, domain.ConsistencyFail, result.Status)
}
