package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/claim-risk-engine/internal/domain"
)

// AnomalyClient calls the statistical outlier detection service, which
// flags claim amounts that fall far outside the book of comparable claims.
type AnomalyClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAnomalyClient creates a new anomaly detection client
func NewAnomalyClient(config domain.AnomalyConfig) *AnomalyClient {
	return &AnomalyClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

type anomalyRequest struct {
	Amount          float64 `json:"amount"`
	DaysSincePolicy int     `json:"days_since_policy"`
}

type anomalyResponse struct {
	IsOutlier bool    `json:"is_outlier"`
	Score     float64 `json:"score"`
}

// Flag reports whether the claim amount is a statistical outlier.
func (a *AnomalyClient) Flag(ctx context.Context, amount float64, daysSincePolicy int) (bool, error) {
	payload, err := json.Marshal(anomalyRequest{
		Amount:          amount,
		DaysSincePolicy: daysSincePolicy,
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal anomaly request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/detect", bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("failed to create anomaly request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to execute anomaly request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("anomaly service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read anomaly response: %w", err)
	}

	var parsed anomalyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return false, fmt.Errorf("failed to parse anomaly response: %w", err)
	}

	return parsed.IsOutlier, nil
}
