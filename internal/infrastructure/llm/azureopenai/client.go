package azureopenai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/euact-compliance/internal/core/domain"
	"github.com/kirillkom/euact-compliance/internal/infrastructure/resilience"
)

// Client talks to an Azure OpenAI resource over its REST API. Chat completions
// serve analysis and judging, the embeddings deployment serves vectorization.
type Client struct {
	endpoint        string
	apiKey          string
	apiVersion      string
	chatDeployment  string
	embedDeployment string
	httpClient      *http.Client
	executor        *resilience.Executor
}

func New(endpoint, apiKey, apiVersion, chatDeployment, embedDeployment string, executor *resilience.Executor) *Client {
	return &Client{
		endpoint:        strings.TrimRight(endpoint, "/"),
		apiKey:          apiKey,
		apiVersion:      apiVersion,
		chatDeployment:  chatDeployment,
		embedDeployment: embedDeployment,
		httpClient:      &http.Client{Timeout: 120 * time.Second},
		executor:        executor,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *Client) chatCompletion(ctx context.Context, operation, system, user string, temperature float64, maxTokens int) (string, error) {
	reqBody := map[string]any{
		"messages": []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		"temperature": temperature,
		"max_tokens":  maxTokens,
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	path := fmt.Sprintf("/openai/deployments/%s/chat/completions", c.chatDeployment)
	if err := c.postJSONWithRetry(ctx, operation, path, reqBody, &response); err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", domain.WrapError(domain.ErrParse, operation, fmt.Errorf("chat completion returned no choices"))
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

// Embedder implements ports.Embedder on top of the embeddings deployment.
type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

// Input over the provider length cap is truncated rather than rejected.
const maxEmbedChars = 8000

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	input := make([]string, len(texts))
	for i, t := range texts {
		if len(t) > maxEmbedChars {
			t = t[:maxEmbedChars]
		}
		input[i] = t
	}

	reqBody := map[string]any{"input": input}

	var response struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}

	path := fmt.Sprintf("/openai/deployments/%s/embeddings", e.client.embedDeployment)
	if err := e.client.postJSONWithRetry(ctx, "embed", path, reqBody, &response); err != nil {
		return nil, domain.WrapError(domain.ErrEmbedding, "embed", err)
	}
	if len(response.Data) != len(input) {
		return nil, domain.WrapError(domain.ErrEmbedding, "embed", fmt.Errorf("embeddings/input mismatch: %d/%d", len(response.Data), len(input)))
	}

	out := make([][]float32, len(response.Data))
	for i, d := range response.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, domain.WrapError(domain.ErrEmbedding, "embed query", fmt.Errorf("empty embedding result"))
	}
	return vectors[0], nil
}

// Model implements ports.AnalysisModel.
type Model struct {
	client *Client
}

func NewModel(client *Client) *Model {
	return &Model{client: client}
}

func (m *Model) Analyze(ctx context.Context, documentText string, passages []domain.ContextPassage) (*domain.Analysis, error) {
	raw, err := m.client.chatCompletion(ctx, "analyze", systemAnalyst, buildAnalysisPrompt(documentText, passages), 0.3, 2000)
	if err != nil {
		return nil, err
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &payload); err != nil {
		return nil, domain.WrapError(domain.ErrParse, "parse analysis json", err)
	}
	return payload.toDomain(), nil
}

func (m *Model) Judge(ctx context.Context, documentText string, analysis *domain.Analysis, passages []domain.ContextPassage) (*domain.JudgeVerdict, error) {
	prompt, err := buildJudgePrompt(documentText, analysis, passages)
	if err != nil {
		return nil, err
	}

	raw, err := m.client.chatCompletion(ctx, "judge", systemJudge, prompt, 0.2, 1000)
	if err != nil {
		return nil, err
	}

	var payload judgePayload
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &payload); err != nil {
		return nil, domain.WrapError(domain.ErrParse, "parse judge json", err)
	}
	return payload.toDomain(), nil
}

type riskPayload struct {
	Description     string   `json:"description"`
	Category        string   `json:"category"`
	EUActReference  string   `json:"eu_act_reference"`
	ConfidenceScore *float64 `json:"confidence_score"`
}

type analysisPayload struct {
	ProjectName  string        `json:"project_name"`
	Description  string        `json:"description"`
	ContainsAI   bool          `json:"contains_ai"`
	AIConfidence float64       `json:"ai_confidence"`
	HighRisks    []riskPayload `json:"high_risks"`
	LowRisks     []riskPayload `json:"low_risks"`
}

// toDomain is the single boundary where loosely-typed model output becomes
// typed records with explicit defaults.
func (p analysisPayload) toDomain() *domain.Analysis {
	name := p.ProjectName
	if strings.TrimSpace(name) == "" {
		name = "Unknown Project"
	}

	high := convertRisks(p.HighRisks, domain.RiskLevelHigh)
	low := convertRisks(p.LowRisks, domain.RiskLevelLow)

	return &domain.Analysis{
		ProjectName:  name,
		Description:  p.Description,
		ContainsAI:   p.ContainsAI,
		AIConfidence: clamp01(p.AIConfidence),
		HighRisks:    high,
		LowRisks:     low,
		Metadata: domain.AnalysisMetadata{
			TotalRisks:    len(high) + len(low),
			HighRiskCount: len(high),
			LowRiskCount:  len(low),
		},
	}
}

func convertRisks(payloads []riskPayload, level domain.RiskLevel) []domain.Risk {
	out := make([]domain.Risk, 0, len(payloads))
	for _, p := range payloads {
		category := p.Category
		if strings.TrimSpace(category) == "" {
			category = "Unknown"
		}
		confidence := p.ConfidenceScore
		if confidence != nil {
			v := clamp01(*confidence)
			confidence = &v
		}
		out = append(out, domain.Risk{
			Description:    p.Description,
			Category:       category,
			Level:          level,
			EUActReference: p.EUActReference,
			Confidence:     confidence,
		})
	}
	return out
}

type judgePayload struct {
	AccuracyScore     float64 `json:"accuracy_score"`
	CompletenessScore float64 `json:"completeness_score"`
	ConsistencyScore  float64 `json:"consistency_score"`
	OverallScore      float64 `json:"overall_score"`
	Reasoning         string  `json:"reasoning"`
}

func (p judgePayload) toDomain() *domain.JudgeVerdict {
	return &domain.JudgeVerdict{
		Accuracy:     clamp01(p.AccuracyScore),
		Completeness: clamp01(p.CompletenessScore),
		Consistency:  clamp01(p.ConsistencyScore),
		Overall:      clamp01(p.OverallScore),
		Reasoning:    p.Reasoning,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
