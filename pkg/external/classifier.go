package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/claim-risk-engine/internal/domain"
)

// ClassifierClient handles interactions with the external fraud classifier
// service. The service scores a (policy, claimant) pair against historical
// claim behaviour and returns a binary prediction with a probability.
type ClassifierClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClassifierClient creates a new fraud classifier API client
func NewClassifierClient(config domain.ClassifierConfig) *ClassifierClient {
	rl := config.RateLimit
	if rl <= 0 {
		rl = 1
	}
	return &ClassifierClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rl), rl),
	}
}

type classifierRequest struct {
	PolicyNumber string `json:"policy_number"`
	ClaimantName string `json:"claimant_name"`
}

type classifierResponse struct {
	Prediction  int      `json:"prediction"`
	Probability float64  `json:"probability"`
	Indicators  []string `json:"indicators"`
}

// Verdict queries the classifier service for a fraud prediction. A 404
// means the service has no history for the pair; that is reported as a
// nil verdict, not an error.
func (c *ClassifierClient) Verdict(ctx context.Context, policyNumber, claimantName string) (*domain.ClassifierVerdict, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(classifierRequest{
		PolicyNumber: policyNumber,
		ClaimantName: claimantName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal classifier request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute classifier request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read classifier response: %w", err)
	}

	var parsed classifierResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse classifier response: %w", err)
	}

	return &domain.ClassifierVerdict{
		Prediction:  parsed.Prediction,
		Probability: parsed.Probability,
		Confidence:  verdictConfidence(parsed.Probability),
		Indicators:  parsed.Indicators,
	}, nil
}

// verdictConfidence maps a probability to a confidence score. Predictions
// near 0.5 are the least informative.
func verdictConfidence(probability float64) float64 {
	return math.Min(math.Abs(probability-0.5)*2+0.5, 1.0)
}
