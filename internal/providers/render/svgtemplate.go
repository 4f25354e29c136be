package render

import (
	"context"
	"fmt"
	"math"
	"strings"

	"diagramgen/internal/domain"
)

// TemplateRenderer fills fixed SVG templates in process. It never leaves
// the process, so its only failure mode is validation.
type TemplateRenderer struct{}

// NewTemplateRenderer returns the in-process SVG template renderer.
func NewTemplateRenderer() *TemplateRenderer {
	return &TemplateRenderer{}
}

// Render produces an SVG artifact for the requested template subtype.
func (r *TemplateRenderer) Render(ctx context.Context, req Request) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, &domain.RenderError{Kind: domain.RenderErrTimeout, Message: err.Error()}
	}

	labels := extractLabels(req)
	if len(labels) == 0 {
		return Artifact{}, &domain.RenderError{Kind: domain.RenderErrValidation, Message: "no labels could be derived from content"}
	}
	if max := req.Limits.MaxElements; max > 0 && len(labels) > max {
		labels = labels[:max]
	}

	width, height := req.Limits.MaxWidth, req.Limits.MaxHeight
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 600
	}

	var body string
	switch family(req.Subtype) {
	case "cycle":
		body = cycleBody(labels, req.Theme, width, height)
	case "pyramid", "funnel":
		body = stackBody(labels, req.Theme, width, height, family(req.Subtype) == "funnel")
	default:
		body = rowBody(labels, req.Theme, width, height)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, width, height, width, height)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="%s"/>`, width, height, escapeAttr(req.Theme.BackgroundColor))
	b.WriteString(body)
	b.WriteString(`</svg>`)

	return Artifact{
		Data:        []byte(b.String()),
		ContentType: "image/svg+xml",
		Width:       width,
		Height:      height,
	}, nil
}

// family collapses the subtype name to its template family.
func family(subtype string) string {
	switch {
	case strings.HasPrefix(subtype, "cycle_"), subtype == "hub_spoke":
		return "cycle"
	case strings.HasPrefix(subtype, "pyramid_"):
		return "pyramid"
	case subtype == "funnel":
		return "funnel"
	default:
		return "row"
	}
}

// cycleBody arranges labeled nodes around the canvas center.
func cycleBody(labels []string, theme domain.Theme, width, height int) string {
	var b strings.Builder
	cx, cy := width/2, height/2
	radius := min(width, height)/2 - 80
	if radius < 60 {
		radius = 60
	}
	n := len(labels)
	for i, label := range labels {
		angle := float64(i)/float64(n)*2*math.Pi - math.Pi/2
		x := cx + int(float64(radius)*math.Cos(angle))
		y := cy + int(float64(radius)*math.Sin(angle))
		fmt.Fprintf(&b, `<circle cx="%d" cy="%d" r="48" fill="%s"/>`, x, y, escapeAttr(theme.PrimaryColor))
		fmt.Fprintf(&b, `<text x="%d" y="%d" text-anchor="middle" font-family="%s" font-size="13" fill="%s">%s</text>`,
			x, y+4, escapeAttr(theme.FontFamily), escapeAttr(theme.TextColor), escapeText(label))
	}
	return b.String()
}

// stackBody renders stacked levels, narrowing upward for pyramids and
// downward for funnels.
func stackBody(labels []string, theme domain.Theme, width, height int, narrowDown bool) string {
	var b strings.Builder
	n := len(labels)
	rowH := (height - 40) / n
	for i, label := range labels {
		ratio := float64(i+1) / float64(n)
		if narrowDown {
			ratio = float64(n-i) / float64(n)
		}
		w := int(float64(width-80) * ratio)
		x := (width - w) / 2
		y := 20 + i*rowH
		fill := theme.PrimaryColor
		if i%2 == 1 && theme.SecondaryColor != "" {
			fill = theme.SecondaryColor
		}
		fmt.Fprintf(&b, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>`, x, y, w, rowH-8, escapeAttr(fill))
		fmt.Fprintf(&b, `<text x="%d" y="%d" text-anchor="middle" font-family="%s" font-size="14" fill="%s">%s</text>`,
			width/2, y+rowH/2, escapeAttr(theme.FontFamily), escapeAttr(theme.TextColor), escapeText(label))
	}
	return b.String()
}

// rowBody renders a left-to-right step sequence with connectors.
func rowBody(labels []string, theme domain.Theme, width, height int) string {
	var b strings.Builder
	n := len(labels)
	boxW := (width - 40) / n
	y := height/2 - 40
	for i, label := range labels {
		x := 20 + i*boxW
		fmt.Fprintf(&b, `<rect x="%d" y="%d" width="%d" height="80" rx="8" fill="%s"/>`, x, y, boxW-16, escapeAttr(theme.PrimaryColor))
		fmt.Fprintf(&b, `<text x="%d" y="%d" text-anchor="middle" font-family="%s" font-size="14" fill="%s">%s</text>`,
			x+(boxW-16)/2, y+44, escapeAttr(theme.FontFamily), escapeAttr(theme.TextColor), escapeText(label))
		if i < n-1 {
			fmt.Fprintf(&b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="2"/>`,
				x+boxW-16, y+40, x+boxW, y+40, escapeAttr(theme.TextColor))
		}
	}
	return b.String()
}

// extractLabels prefers structured data points and falls back to
// non-empty content lines with step prefixes stripped.
func extractLabels(req Request) []string {
	if len(req.DataPoints) > 0 {
		out := make([]string, 0, len(req.DataPoints))
		for _, dp := range req.DataPoints {
			if label := strings.TrimSpace(dp.Label); label != "" {
				out = append(out, label)
			}
		}
		return out
	}
	var out []string
	for _, line := range strings.Split(req.Content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, stripStepPrefix(line))
	}
	return out
}

func stripStepPrefix(line string) string {
	if idx := strings.IndexAny(line, ":."); idx > 0 && idx < 12 {
		prefix := strings.ToLower(line[:idx])
		if strings.HasPrefix(prefix, "step") || strings.HasPrefix(prefix, "phase") || isDigits(prefix) {
			if rest := strings.TrimSpace(line[idx+1:]); rest != "" {
				return rest
			}
		}
	}
	return line
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func escapeText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	return strings.ReplaceAll(s, ">", "&gt;")
}

func escapeAttr(s string) string {
	return strings.ReplaceAll(escapeText(s), `"`, "&quot;")
}
