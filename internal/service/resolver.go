package service

import (
	"github.com/sirupsen/logrus"

	"github.com/claim-risk-engine/internal/domain"
)

// EntityResolver merges per-document field sets into the golden
// ClaimEntities record. For each field the most frequent observed value
// wins; ties break in favor of the value backed by the highest extraction
// confidence. The chosen value carries the maximum confidence among the
// documents that agree with it.
type EntityResolver struct {
	log *logrus.Logger
}

// NewEntityResolver creates a new entity resolver
func NewEntityResolver(logger *logrus.Logger) *EntityResolver {
	return &EntityResolver{log: logger}
}

// Resolve builds the golden claim record from all document extractions.
func (r *EntityResolver) Resolve(documents []domain.DocumentRecord) domain.ClaimEntities {
	entities := domain.ClaimEntities{
		ClaimantName: r.resolveField(documents, domain.FieldClaimantName),
		PolicyNumber: r.resolveField(documents, domain.FieldPolicyNumber),
		TotalAmount:  r.resolveField(documents, domain.FieldTotalAmount),
		IncidentDate: r.resolveField(documents, domain.FieldIncidentDate),
		Address:      r.resolveField(documents, domain.FieldAddress),
		Phone:        r.resolveField(documents, domain.FieldPhone),
		Email:        r.resolveField(documents, domain.FieldEmail),
		Description:  r.resolveField(documents, domain.FieldDescription),
	}

	r.log.WithFields(logrus.Fields{
		"documents": len(documents),
		"claimant":  entities.ClaimantName.Value,
		"policy":    entities.PolicyNumber.Value,
	}).Debug("Claim entities resolved")

	return entities
}

func (r *EntityResolver) resolveField(documents []domain.DocumentRecord, field string) domain.FieldValue {
	type candidate struct {
		count         int
		maxConfidence float64
		firstSeen     int
	}

	candidates := make(map[string]*candidate)
	order := 0
	for _, doc := range documents {
		fv, ok := doc.Fields[field]
		if !ok || !fv.Present() {
			continue
		}

		confidence := fv.Confidence
		if confidence == 0 {
			confidence = doc.ExtractionConfidence
		}

		c, exists := candidates[fv.Value]
		if !exists {
			c = &candidate{firstSeen: order}
			candidates[fv.Value] = c
			order++
		}
		c.count++
		if confidence > c.maxConfidence {
			c.maxConfidence = confidence
		}
	}

	var (
		bestValue string
		best      *candidate
	)
	for value, c := range candidates {
		if best == nil {
			bestValue, best = value, c
			continue
		}
		if c.count > best.count {
			bestValue, best = value, c
			continue
		}
		if c.count == best.count {
			if c.maxConfidence > best.maxConfidence ||
				(c.maxConfidence == best.maxConfidence && c.firstSeen < best.firstSeen) {
				bestValue, best = value, c
			}
		}
	}

	if best == nil {
		return domain.FieldValue{}
	}
	return domain.FieldValue{Value: bestValue, Confidence: best.maxConfidence}
}
