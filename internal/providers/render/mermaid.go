package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"diagramgen/internal/domain"
)

const mermaidDefaultTimeout = 10 * time.Second

// MarkupRendererOptions configures the mermaid conversion client.
type MarkupRendererOptions struct {
	BaseURL    string
	HTTPClient *http.Client
}

// MarkupRenderer generates mermaid source from the request and converts
// it through an external kroki-style render service.
type MarkupRenderer struct {
	baseURL string
	client  *http.Client
}

// NewMarkupRenderer builds the markup renderer.
func NewMarkupRenderer(opts MarkupRendererOptions) (*MarkupRenderer, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("mermaid service base url is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: mermaidDefaultTimeout}
	}
	return &MarkupRenderer{baseURL: baseURL, client: client}, nil
}

type mermaidRenderRequest struct {
	Source    string `json:"source"`
	Format    string `json:"format"`
	MaxWidth  int    `json:"max_width,omitempty"`
	MaxHeight int    `json:"max_height,omitempty"`
	Theme     string `json:"theme,omitempty"`
}

// Render converts generated mermaid markup into an SVG artifact.
func (r *MarkupRenderer) Render(ctx context.Context, req Request) (Artifact, error) {
	source := BuildMermaidSource(req)
	if source == "" {
		return Artifact{}, &domain.RenderError{Kind: domain.RenderErrValidation, Message: "content produced no mermaid elements"}
	}

	payload, err := json.Marshal(mermaidRenderRequest{
		Source:    source,
		Format:    "svg",
		MaxWidth:  req.Limits.MaxWidth,
		MaxHeight: req.Limits.MaxHeight,
		Theme:     req.Theme.Style,
	})
	if err != nil {
		return Artifact{}, &domain.RenderError{Kind: domain.RenderErrInternal, Message: err.Error()}
	}

	url := r.baseURL + "/render"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Artifact{}, &domain.RenderError{Kind: domain.RenderErrInternal, Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "image/svg+xml")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		kind := domain.RenderErrInternal
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			kind = domain.RenderErrTimeout
		}
		return Artifact{}, &domain.RenderError{Kind: kind, Message: fmt.Sprintf("mermaid service: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return Artifact{}, &domain.RenderError{Kind: domain.RenderErrInternal, Message: err.Error()}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return Artifact{}, &domain.RenderError{Kind: domain.RenderErrValidation, Message: trimBody(body)}
	case resp.StatusCode == http.StatusGatewayTimeout || resp.StatusCode == http.StatusRequestTimeout:
		return Artifact{}, &domain.RenderError{Kind: domain.RenderErrTimeout, Message: trimBody(body)}
	default:
		return Artifact{}, &domain.RenderError{Kind: domain.RenderErrInternal, Message: fmt.Sprintf("mermaid service returned %d: %s", resp.StatusCode, trimBody(body))}
	}
	if len(body) == 0 {
		return Artifact{}, &domain.RenderError{Kind: domain.RenderErrInternal, Message: "mermaid service returned empty body"}
	}

	return Artifact{
		Data:        body,
		ContentType: "image/svg+xml",
		Width:       req.Limits.MaxWidth,
		Height:      req.Limits.MaxHeight,
	}, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func trimBody(body []byte) string {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	if msg == "" {
		msg = "no details"
	}
	return msg
}

// BuildMermaidSource renders the mermaid markup for a request, honoring
// the resolved element limit and flow direction.
func BuildMermaidSource(req Request) string {
	labels := extractLabels(req)
	if max := req.Limits.MaxElements; max > 0 && len(labels) > max {
		labels = labels[:max]
	}
	if len(labels) == 0 {
		return ""
	}

	switch req.Subtype {
	case "journey":
		return journeySource(labels)
	case "timeline":
		return timelineSource(labels)
	case "kanban":
		return kanbanSource(labels)
	default:
		return flowchartSource(labels, req.Limits.Direction)
	}
}

func flowchartSource(labels []string, direction string) string {
	if direction == "" {
		direction = "TD"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "flowchart %s\n", direction)
	for i, label := range labels {
		fmt.Fprintf(&b, "    n%d[%q]\n", i, label)
	}
	for i := 0; i < len(labels)-1; i++ {
		fmt.Fprintf(&b, "    n%d --> n%d\n", i, i+1)
	}
	return b.String()
}

func journeySource(labels []string) string {
	var b strings.Builder
	b.WriteString("journey\n    section Journey\n")
	for _, label := range labels {
		fmt.Fprintf(&b, "        %s: 3\n", label)
	}
	return b.String()
}

func timelineSource(labels []string) string {
	var b strings.Builder
	b.WriteString("timeline\n")
	for _, label := range labels {
		fmt.Fprintf(&b, "    %s\n", label)
	}
	return b.String()
}

func kanbanSource(labels []string) string {
	var b strings.Builder
	b.WriteString("kanban\n    Todo\n")
	for _, label := range labels {
		fmt.Fprintf(&b, "        %s\n", label)
	}
	return b.String()
}
