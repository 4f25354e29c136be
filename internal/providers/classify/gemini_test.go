package classify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"diagramgen/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func geminiReply(text string) *http.Response {
	body := fmt.Sprintf(`{"candidates":[{"content":{"role":"model","parts":[{"text":%q}]}}]}`, text)
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClassifier(t *testing.T, rt roundTripFunc) *GeminiClassifier {
	t.Helper()
	c, err := NewGeminiClassifier(GeminiOptions{
		APIKey:     "dummy",
		Catalog:    domain.DefaultCatalog(),
		HTTPClient: &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("NewGeminiClassifier returned error: %v", err)
	}
	return c
}

func TestGeminiClassifierHappyPath(t *testing.T) {
	var capturedURL string
	c := newTestClassifier(t, func(r *http.Request) (*http.Response, error) {
		capturedURL = r.URL.String()
		return geminiReply(`{"primary_method":"python_chart","subtype":"pie_chart","confidence":0.85,"reasoning":"percentages"}`), nil
	})

	hint, err := c.Classify(context.Background(), "A: 40%\nB: 60%", "breakdown")
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if hint.Method != domain.MethodPythonChart || hint.Subtype != "pie_chart" {
		t.Fatalf("hint = %+v, want python_chart/pie_chart", hint)
	}
	if hint.Confidence != 0.85 {
		t.Fatalf("Confidence = %v, want 0.85", hint.Confidence)
	}
	if !strings.Contains(capturedURL, "models/gemini-2.0-flash-lite:generateContent") {
		t.Fatalf("request URL = %q", capturedURL)
	}
	if !strings.Contains(capturedURL, "key=dummy") {
		t.Fatalf("api key missing from URL: %q", capturedURL)
	}
}

func TestGeminiClassifierToleratesMarkdownFences(t *testing.T) {
	c := newTestClassifier(t, func(r *http.Request) (*http.Response, error) {
		text := "Here is the routing decision:\n```json\n{\"primary_method\":\"mermaid\",\"subtype\":\"flowchart\",\"confidence\":0.9}\n```"
		return geminiReply(text), nil
	})

	hint, err := c.Classify(context.Background(), "a then b then c", "")
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if hint.Method != domain.MethodMermaid || hint.Subtype != "flowchart" {
		t.Fatalf("hint = %+v, want mermaid/flowchart", hint)
	}
}

func TestGeminiClassifierRepairsIncompatibleSubtype(t *testing.T) {
	c := newTestClassifier(t, func(r *http.Request) (*http.Response, error) {
		return geminiReply(`{"primary_method":"mermaid","subtype":"pie_chart","confidence":0.8}`), nil
	})

	hint, err := c.Classify(context.Background(), "content", "")
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if hint.Subtype != "flowchart" {
		t.Fatalf("Subtype = %q, want the mermaid default", hint.Subtype)
	}
}

func TestGeminiClassifierUnknownMethodDefaultsToMermaid(t *testing.T) {
	c := newTestClassifier(t, func(r *http.Request) (*http.Response, error) {
		return geminiReply(`{"primary_method":"imagemagick","subtype":"whatever","confidence":0.95}`), nil
	})

	hint, err := c.Classify(context.Background(), "content", "")
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if hint.Method != domain.MethodMermaid || hint.Subtype != "flowchart" {
		t.Fatalf("hint = %+v, want mermaid/flowchart", hint)
	}
}

func TestGeminiClassifierClampsConfidence(t *testing.T) {
	c := newTestClassifier(t, func(r *http.Request) (*http.Response, error) {
		return geminiReply(`{"primary_method":"mermaid","subtype":"flowchart","confidence":3.2}`), nil
	})

	hint, err := c.Classify(context.Background(), "content", "")
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if hint.Confidence != 1 {
		t.Fatalf("Confidence = %v, want clamped to 1", hint.Confidence)
	}
}

func TestGeminiClassifierTransportErrorSurfaces(t *testing.T) {
	c := newTestClassifier(t, func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	if _, err := c.Classify(context.Background(), "content", ""); err == nil {
		t.Fatal("transport error swallowed")
	}
}

func TestGeminiClassifierNonOKStatus(t *testing.T) {
	c := newTestClassifier(t, func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusTooManyRequests,
			Body:       io.NopCloser(strings.NewReader("quota")),
		}, nil
	})
	if _, err := c.Classify(context.Background(), "content", ""); err == nil {
		t.Fatal("non-200 status swallowed")
	}
}

func TestGeminiClassifierHonorsTimeout(t *testing.T) {
	c, err := NewGeminiClassifier(GeminiOptions{
		APIKey:  "dummy",
		Catalog: domain.DefaultCatalog(),
		Timeout: 20 * time.Millisecond,
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			<-r.Context().Done()
			return nil, r.Context().Err()
		})},
	})
	if err != nil {
		t.Fatalf("NewGeminiClassifier returned error: %v", err)
	}

	start := time.Now()
	_, err = c.Classify(context.Background(), "content", "")
	if err == nil {
		t.Fatal("deadline error swallowed")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Classify blocked for %v despite timeout", elapsed)
	}
}

func TestNewGeminiClassifierRequiresKeyAndCatalog(t *testing.T) {
	if _, err := NewGeminiClassifier(GeminiOptions{Catalog: domain.DefaultCatalog()}); err == nil {
		t.Fatal("missing api key accepted")
	}
	if _, err := NewGeminiClassifier(GeminiOptions{APIKey: "k"}); err == nil {
		t.Fatal("missing catalog accepted")
	}
}

func TestParseDecisionBraceExtraction(t *testing.T) {
	decision, err := parseDecision(`The best fit is: {"primary_method":"svg_template","subtype":"cycle_3_step","confidence":0.7} hope that helps`)
	if err != nil {
		t.Fatalf("parseDecision returned error: %v", err)
	}
	if decision.PrimaryMethod != "svg_template" || decision.Subtype != "cycle_3_step" {
		t.Fatalf("decision = %+v", decision)
	}

	if _, err := parseDecision("no json here"); err == nil {
		t.Fatal("garbage accepted")
	}
}
