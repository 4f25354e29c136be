package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"diagramgen/internal/domain"
)

const chartDefaultTimeout = 15 * time.Second

// ChartRendererOptions configures the plot-service client.
type ChartRendererOptions struct {
	BaseURL    string
	HTTPClient *http.Client
}

// ChartRenderer delegates data-driven diagrams to an external plotting
// service.
type ChartRenderer struct {
	baseURL string
	client  *http.Client
}

// NewChartRenderer builds the chart renderer.
func NewChartRenderer(opts ChartRendererOptions) (*ChartRenderer, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("chart service base url is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: chartDefaultTimeout}
	}
	return &ChartRenderer{baseURL: baseURL, client: client}, nil
}

type chartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type chartRenderRequest struct {
	Kind         string       `json:"kind"`
	Points       []chartPoint `json:"points"`
	Width        int          `json:"width"`
	Height       int          `json:"height"`
	PrimaryColor string       `json:"primary_color,omitempty"`
	Background   string       `json:"background,omitempty"`
}

// Render posts the data points to the plot service and returns the
// produced image.
func (r *ChartRenderer) Render(ctx context.Context, req Request) (Artifact, error) {
	points := chartPoints(req)
	if len(points) == 0 {
		return Artifact{}, &domain.RenderError{Kind: domain.RenderErrValidation, Message: "no data points could be derived from content"}
	}
	if max := req.Limits.MaxElements; max > 0 && len(points) > max {
		points = points[:max]
	}

	payload, err := json.Marshal(chartRenderRequest{
		Kind:         req.Subtype,
		Points:       points,
		Width:        req.Limits.MaxWidth,
		Height:       req.Limits.MaxHeight,
		PrimaryColor: req.Theme.PrimaryColor,
		Background:   req.Theme.BackgroundColor,
	})
	if err != nil {
		return Artifact{}, &domain.RenderError{Kind: domain.RenderErrInternal, Message: err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/charts", bytes.NewReader(payload))
	if err != nil {
		return Artifact{}, &domain.RenderError{Kind: domain.RenderErrInternal, Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		kind := domain.RenderErrInternal
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			kind = domain.RenderErrTimeout
		}
		return Artifact{}, &domain.RenderError{Kind: kind, Message: fmt.Sprintf("chart service: %v", err)}
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
	default:
		return Artifact{}, &domain.RenderError{Kind: domain.RenderErrInternal, Message: fmt.Sprintf("chart service returned %d: %s", resp.StatusCode, trimBody(body))}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}

	return Artifact{
		Data:        body,
		ContentType: contentType,
		Width:       req.Limits.MaxWidth,
		Height:      req.Limits.MaxHeight,
	}, nil
}

// chartPoints uses structured data points when present, otherwise
// parses "label: value" lines out of the content.
func chartPoints(req Request) []chartPoint {
	if len(req.DataPoints) > 0 {
		out := make([]chartPoint, 0, len(req.DataPoints))
		for _, dp := range req.DataPoints {
			if label := strings.TrimSpace(dp.Label); label != "" {
				out = append(out, chartPoint{Label: label, Value: dp.Value})
			}
		}
		return out
	}

	var out []chartPoint
	for _, line := range strings.Split(req.Content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		label, value, ok := splitLabelValue(line)
		if !ok {
			continue
		}
		out = append(out, chartPoint{Label: label, Value: value})
	}
	return out
}

func splitLabelValue(line string) (string, float64, bool) {
	for _, sep := range []string{":", ",", "|", "\t"} {
		if idx := strings.LastIndex(line, sep); idx > 0 {
			raw := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line[idx+1:]), "%"))
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				return strings.TrimSpace(line[:idx]), v, true
			}
		}
	}
	fields := strings.Fields(line)
	if len(fields) >= 2 {
		raw := strings.TrimSuffix(fields[len(fields)-1], "%")
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return strings.Join(fields[:len(fields)-1], " "), v, true
		}
	}
	return "", 0, false
}
