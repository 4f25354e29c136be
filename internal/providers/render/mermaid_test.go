package render

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"diagramgen/internal/constraints"
	"diagramgen/internal/domain"
)

func TestMarkupRendererHappyPath(t *testing.T) {
	var captured mermaidRenderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/render" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Write([]byte("<svg>ok</svg>"))
	}))
	defer srv.Close()

	r, err := NewMarkupRenderer(MarkupRendererOptions{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewMarkupRenderer returned error: %v", err)
	}

	art, err := r.Render(context.Background(), Request{
		Subtype: "flowchart",
		Content: "Plan\nBuild\nShip",
		Theme:   domain.DefaultTheme(),
		Limits:  constraints.Effective{MaxElements: 9, Direction: "LR", MaxWidth: 800, MaxHeight: 600},
	})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if string(art.Data) != "<svg>ok</svg>" {
		t.Fatalf("Data = %q", art.Data)
	}
	if art.ContentType != "image/svg+xml" {
		t.Fatalf("ContentType = %q", art.ContentType)
	}
	if captured.Format != "svg" {
		t.Fatalf("Format = %q, want svg", captured.Format)
	}
	if !strings.HasPrefix(captured.Source, "flowchart LR\n") {
		t.Fatalf("Source = %q, want flowchart LR header", captured.Source)
	}
	if !strings.Contains(captured.Source, "n0 --> n1") {
		t.Fatalf("Source missing edges: %q", captured.Source)
	}
}

func TestMarkupRendererErrorKinds(t *testing.T) {
	cases := []struct {
		status int
		want   domain.RenderErrorKind
	}{
		{http.StatusBadRequest, domain.RenderErrValidation},
		{http.StatusUnprocessableEntity, domain.RenderErrValidation},
		{http.StatusRequestTimeout, domain.RenderErrTimeout},
		{http.StatusGatewayTimeout, domain.RenderErrTimeout},
		{http.StatusInternalServerError, domain.RenderErrInternal},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tc.status)
		}))

		r, err := NewMarkupRenderer(MarkupRendererOptions{BaseURL: srv.URL})
		if err != nil {
			t.Fatalf("NewMarkupRenderer returned error: %v", err)
		}
		_, err = r.Render(context.Background(), Request{Subtype: "flowchart", Content: "a\nb"})
		srv.Close()

		var rerr *domain.RenderError
		if !errors.As(err, &rerr) {
			t.Fatalf("status %d: error = %v, want RenderError", tc.status, err)
		}
		if rerr.Kind != tc.want {
			t.Fatalf("status %d: Kind = %q, want %q", tc.status, rerr.Kind, tc.want)
		}
	}
}

func TestMarkupRendererClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	r, err := NewMarkupRenderer(MarkupRendererOptions{
		BaseURL:    srv.URL,
		HTTPClient: &http.Client{Timeout: 20 * time.Millisecond},
	})
	if err != nil {
		t.Fatalf("NewMarkupRenderer returned error: %v", err)
	}
	_, err = r.Render(context.Background(), Request{Subtype: "flowchart", Content: "a\nb"})

	var rerr *domain.RenderError
	if !errors.As(err, &rerr) {
		t.Fatalf("error = %v, want RenderError", err)
	}
	if rerr.Kind != domain.RenderErrTimeout {
		t.Fatalf("Kind = %q, want timeout", rerr.Kind)
	}
	if !rerr.Retryable() {
		t.Fatal("timeout not reported retryable")
	}
}

func TestMarkupRendererEmptyContent(t *testing.T) {
	r, err := NewMarkupRenderer(MarkupRendererOptions{BaseURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("NewMarkupRenderer returned error: %v", err)
	}
	_, err = r.Render(context.Background(), Request{Subtype: "flowchart", Content: "  "})
	var rerr *domain.RenderError
	if !errors.As(err, &rerr) || rerr.Kind != domain.RenderErrValidation {
		t.Fatalf("error = %v, want validation RenderError", err)
	}
}

func TestNewMarkupRendererRequiresBaseURL(t *testing.T) {
	if _, err := NewMarkupRenderer(MarkupRendererOptions{}); err == nil {
		t.Fatal("empty base url accepted")
	}
}

func TestBuildMermaidSourceVariants(t *testing.T) {
	base := Request{Content: "Discover\nEvaluate\nBuy", Limits: constraints.Effective{MaxElements: 9}}

	journey := base
	journey.Subtype = "journey"
	if src := BuildMermaidSource(journey); !strings.HasPrefix(src, "journey\n") || !strings.Contains(src, "Discover: 3") {
		t.Fatalf("journey source = %q", src)
	}

	kanban := base
	kanban.Subtype = "kanban"
	if src := BuildMermaidSource(kanban); !strings.HasPrefix(src, "kanban\n") {
		t.Fatalf("kanban source = %q", src)
	}

	limited := base
	limited.Subtype = "flowchart"
	limited.Limits.MaxElements = 2
	src := BuildMermaidSource(limited)
	if strings.Contains(src, "Buy") {
		t.Fatalf("element limit not applied: %q", src)
	}
	if !strings.Contains(src, "n0 --> n1") || strings.Contains(src, "n1 --> n2") {
		t.Fatalf("edges inconsistent with limit: %q", src)
	}
}
