package external

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/claim-risk-engine/internal/domain"
)

const qualitativeSystemPrompt = `You are an insurance fraud analyst. You are given the extracted text of the documents submitted with a motor insurance claim. Assess the qualitative fraud risk of the claim narrative.

Respond with a single JSON object and nothing else, using exactly this schema:
{
  "risk_level": "LOW" | "MEDIUM" | "HIGH" | "CRITICAL",
  "indicators": ["short phrase", ...],
  "rationale": "one or two sentences",
  "confidence": 0.0-1.0
}

Base the assessment only on the supplied text. If the text is too thin to judge, use risk_level "LOW" with a low confidence.`

// QualitativeClient performs narrative risk analysis of the claim corpus
// through an OpenAI-compatible chat completion API.
type QualitativeClient struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewQualitativeClient creates a new qualitative analysis client. BaseURL
// allows pointing at any OpenAI-compatible endpoint.
func NewQualitativeClient(config domain.QualitativeConfig) *QualitativeClient {
	cfg := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		cfg.BaseURL = config.BaseURL
	}
	return &QualitativeClient{
		client:    openai.NewClientWithConfig(cfg),
		model:     config.Model,
		maxTokens: config.MaxTokens,
	}
}

type qualitativeResponse struct {
	RiskLevel  string   `json:"risk_level"`
	Indicators []string `json:"indicators"`
	Rationale  string   `json:"rationale"`
	Confidence float64  `json:"confidence"`
}

// Analyze submits the claim document corpus and returns the model's
// qualitative verdict.
func (q *QualitativeClient) Analyze(ctx context.Context, corpus string) (*domain.QualitativeVerdict, error) {
	corpus = strings.TrimSpace(corpus)
	if corpus == "" {
		return nil, fmt.Errorf("empty document corpus")
	}

	resp, err := q.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     q.model,
		MaxTokens: q.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: qualitativeSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: corpus},
		},
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	return parseQualitativeVerdict(resp.Choices[0].Message.Content)
}

// parseQualitativeVerdict decodes the model output, tolerating prose
// around the JSON object.
func parseQualitativeVerdict(content string) (*domain.QualitativeVerdict, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model response")
	}

	var parsed qualitativeResponse
	if err := json.Unmarshal([]byte(content[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	level, ok := parseRiskBand(parsed.RiskLevel)
	if !ok {
		return nil, fmt.Errorf("model returned unknown risk level %q", parsed.RiskLevel)
	}

	confidence := parsed.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return &domain.QualitativeVerdict{
		RiskLevel:  level,
		Indicators: parsed.Indicators,
		Rationale:  parsed.Rationale,
		Confidence: confidence,
	}, nil
}

func parseRiskBand(s string) (domain.RiskBand, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(domain.RiskLow):
		return domain.RiskLow, true
	case string(domain.RiskMedium):
		return domain.RiskMedium, true
	case string(domain.RiskHigh):
		return domain.RiskHigh, true
	case string(domain.RiskCritical):
		return domain.RiskCritical, true
	}
	return "", false
}
