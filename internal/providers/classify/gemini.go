// Package classify provides the AI-assisted semantic routing
// collaborator. The conductor treats any error, including timeouts, as
// "classifier unavailable" and falls through to the deterministic paths.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"diagramgen/internal/domain"
	"diagramgen/internal/routing"
)

const (
	geminiDefaultTimeout = 5 * time.Second
	geminiDefaultModel   = "gemini-2.0-flash-lite"
	geminiDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// GeminiOptions configures the Gemini classifier.
type GeminiOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Catalog    *domain.Catalog
}

// GeminiClassifier asks Gemini which generation method fits the
// content. It enforces its own deadline so a hung call surfaces as an
// error instead of stalling the routing phase.
type GeminiClassifier struct {
	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
	client  *http.Client
	catalog *domain.Catalog
}

// NewGeminiClassifier builds the classifier. An API key is required;
// callers that have none should not construct one at all.
func NewGeminiClassifier(opts GeminiOptions) (*GeminiClassifier, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if opts.Catalog == nil {
		return nil, errors.New("catalog is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = geminiDefaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = geminiDefaultModel
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = geminiDefaultTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &GeminiClassifier{
		apiKey:  opts.APIKey,
		model:   model,
		baseURL: baseURL,
		timeout: timeout,
		client:  client,
		catalog: opts.Catalog,
	}, nil
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	CandidateCount   int     `json:"candidateCount,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type routingDecision struct {
	PrimaryMethod string  `json:"primary_method"`
	Subtype       string  `json:"subtype"`
	Confidence    float64 `json:"confidence"`
	Reasoning     string  `json:"reasoning"`
}

// Classify returns a routing hint for content whose declared type did
// not match the catalog.
func (c *GeminiClassifier) Classify(ctx context.Context, content, declaredType string) (*routing.Hint, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: c.buildPrompt(content, declaredType)}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:      0.1,
			CandidateCount:   1,
			ResponseMimeType: "application/json",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("classify: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("classify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("classify: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classify: gemini returned %d", resp.StatusCode)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("classify: decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("classify: empty gemini response")
	}

	decision, err := parseDecision(parsed.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return nil, err
	}

	method := mapMethod(decision.PrimaryMethod)
	if !method.Valid() {
		// Unknown label from the model; mermaid is the safe default.
		method = domain.MethodMermaid
	}
	subtype := domain.NormalizeDiagramType(decision.Subtype)
	if !c.catalog.Compatible(subtype, method) {
		subtype = c.catalog.DefaultSubtype(method)
	}

	return &routing.Hint{
		Method:     method,
		Subtype:    subtype,
		Confidence: decision.Confidence,
	}, nil
}

func (c *GeminiClassifier) buildPrompt(content, declaredType string) string {
	var b strings.Builder
	b.WriteString("You route diagram generation requests to one of three methods.\n")
	b.WriteString("Methods and their supported subtypes:\n")
	for _, method := range []domain.GenerationMethod{domain.MethodSVGTemplate, domain.MethodMermaid, domain.MethodPythonChart} {
		fmt.Fprintf(&b, "- %s: %s\n", method, strings.Join(c.catalog.Subtypes(method), ", "))
	}
	if declaredType != "" {
		fmt.Fprintf(&b, "\nDeclared type (not in the catalog): %s\n", declaredType)
	}
	fmt.Fprintf(&b, "\nContent:\n%s\n", content)
	b.WriteString("\nReturn a JSON object with: primary_method (svg_template, mermaid, or python_chart), subtype, confidence (0-1), reasoning.")
	return b.String()
}

// parseDecision tolerates markdown fences around the JSON body.
func parseDecision(text string) (routingDecision, error) {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "```json"); idx >= 0 {
		text = text[idx+len("```json"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	} else if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			text = text[start : end+1]
		}
	}

	var decision routingDecision
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &decision); err != nil {
		return routingDecision{}, fmt.Errorf("classify: parse decision: %w", err)
	}
	if decision.Confidence < 0 {
		decision.Confidence = 0
	}
	if decision.Confidence > 1 {
		decision.Confidence = 1
	}
	return decision, nil
}

func mapMethod(label string) domain.GenerationMethod {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "svg_template":
		return domain.MethodSVGTemplate
	case "mermaid":
		return domain.MethodMermaid
	case "python_chart":
		return domain.MethodPythonChart
	default:
		return ""
	}
}

var _ routing.Classifier = (*GeminiClassifier)(nil)
