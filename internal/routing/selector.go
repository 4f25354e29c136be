// Package routing decides which generation method renders a request.
package routing

import (
	"context"
	"strings"
	"unicode"

	"diagramgen/internal/domain"
)

// Hint is an AI-suggested routing decision, or absent when the
// classifier is unavailable.
type Hint struct {
	Method     domain.GenerationMethod
	Subtype    string
	Confidence float64
}

// Classifier is the semantic classification collaborator. It must not
// block indefinitely; implementations treat their own timeout as an
// error, which the caller maps to "no hint".
type Classifier interface {
	Classify(ctx context.Context, content, declaredType string) (*Hint, error)
}

// SelectionSource records which branch of the decision order produced
// the result.
type SelectionSource string

const (
	SourceForced     SelectionSource = "forced"
	SourceCatalog    SelectionSource = "catalog"
	SourceClassifier SelectionSource = "classifier"
	SourceHeuristic  SelectionSource = "heuristic"
	SourceFallback   SelectionSource = "fallback"
)

// Selection is the resolved routing decision.
type Selection struct {
	Method     domain.GenerationMethod
	Subtype    string
	Source     SelectionSource
	Confidence float64
}

// Config carries the product-tuning parameters of the selector.
type Config struct {
	// MinConfidence is the threshold an AI hint must meet to be used.
	MinConfidence float64
	// NumericLineRatio is the share of content lines that must carry
	// numeric structure before the chart heuristic fires.
	NumericLineRatio float64
	// MinStepMarkers is how many sequential markers trigger the
	// template heuristic.
	MinStepMarkers int
}

// DefaultConfig mirrors the tuned production values.
func DefaultConfig() Config {
	return Config{
		MinConfidence:    0.6,
		NumericLineRatio: 0.4,
		MinStepMarkers:   3,
	}
}

// Selector maps (content, declared type, forced method, optional AI
// hint) to exactly one (method, subtype). It is pure and total: it
// never returns an error and never calls out on its own.
type Selector struct {
	catalog *domain.Catalog
	cfg     Config
}

// NewSelector builds a selector over the injected catalog.
func NewSelector(catalog *domain.Catalog, cfg Config) *Selector {
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = DefaultConfig().MinConfidence
	}
	if cfg.NumericLineRatio <= 0 {
		cfg.NumericLineRatio = DefaultConfig().NumericLineRatio
	}
	if cfg.MinStepMarkers <= 0 {
		cfg.MinStepMarkers = DefaultConfig().MinStepMarkers
	}
	return &Selector{catalog: catalog, cfg: cfg}
}

// NeedsHint reports whether classification could influence the outcome.
// A valid forced method or an exact catalog match short-circuits the
// decision, so the classifier call can be skipped entirely.
func (s *Selector) NeedsHint(declaredType, forcedMethod string) bool {
	if domain.GenerationMethod(forcedMethod).Valid() {
		return false
	}
	return !s.catalog.Contains(declaredType)
}

// Select resolves the generation method and subtype. Decision order:
// forced method, exact catalog match, AI hint above the confidence
// threshold, content heuristic, then the mermaid flowchart fallback.
func (s *Selector) Select(content, declaredType, forcedMethod string, hint *Hint) Selection {
	if method := domain.GenerationMethod(forcedMethod); method.Valid() {
		subtype := s.catalog.DefaultSubtype(method)
		if s.catalog.Compatible(declaredType, method) {
			subtype = declaredType
		}
		return Selection{Method: method, Subtype: subtype, Source: SourceForced, Confidence: 1.0}
	}

	if method, ok := s.catalog.MethodFor(declaredType); ok {
		return Selection{Method: method, Subtype: declaredType, Source: SourceCatalog, Confidence: 1.0}
	}

	if hint != nil && hint.Confidence >= s.cfg.MinConfidence && hint.Method.Valid() {
		subtype := hint.Subtype
		if !s.catalog.Compatible(subtype, hint.Method) {
			subtype = s.catalog.DefaultSubtype(hint.Method)
		}
		return Selection{Method: hint.Method, Subtype: subtype, Source: SourceClassifier, Confidence: hint.Confidence}
	}

	if sel, ok := s.heuristic(content); ok {
		return sel
	}

	return Selection{
		Method:     domain.MethodMermaid,
		Subtype:    s.catalog.DefaultSubtype(domain.MethodMermaid),
		Source:     SourceFallback,
		Confidence: 0.5,
	}
}

func (s *Selector) heuristic(content string) (Selection, bool) {
	lines := nonEmptyLines(content)
	if len(lines) == 0 {
		return Selection{}, false
	}

	numeric := 0
	steps := 0
	for _, line := range lines {
		// "Step 2" carries a trailing digit; count it as a step marker,
		// not as numeric data.
		if hasStepMarker(line) {
			steps++
			continue
		}
		if hasNumericStructure(line) {
			numeric++
		}
	}

	if float64(numeric)/float64(len(lines)) >= s.cfg.NumericLineRatio {
		subtype := s.catalog.DefaultSubtype(domain.MethodPythonChart)
		if strings.Contains(content, "%") {
			subtype = "pie_chart"
		}
		if !s.catalog.Contains(subtype) {
			subtype = s.catalog.DefaultSubtype(domain.MethodPythonChart)
		}
		return Selection{Method: domain.MethodPythonChart, Subtype: subtype, Source: SourceHeuristic, Confidence: 0.7}, true
	}

	if steps >= s.cfg.MinStepMarkers {
		subtype := s.catalog.DefaultSubtype(domain.MethodSVGTemplate)
		// A short closed sequence maps onto the cycle templates.
		if steps >= 3 && steps <= 5 {
			if candidate := cycleSubtype(steps); s.catalog.Contains(candidate) {
				subtype = candidate
			}
		}
		return Selection{Method: domain.MethodSVGTemplate, Subtype: subtype, Source: SourceHeuristic, Confidence: 0.7}, true
	}

	return Selection{}, false
}

func cycleSubtype(steps int) string {
	switch steps {
	case 3:
		return "cycle_3_step"
	case 4:
		return "cycle_4_step"
	default:
		return "cycle_5_step"
	}
}

func nonEmptyLines(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// hasNumericStructure reports a "label: 42"-shaped line, a tabular
// separator, or a trailing number.
func hasNumericStructure(line string) bool {
	if strings.ContainsAny(line, "|\t") {
		return true
	}
	if idx := strings.LastIndexAny(line, ":,"); idx >= 0 && idx < len(line)-1 {
		rest := strings.TrimSpace(line[idx+1:])
		rest = strings.TrimSuffix(rest, "%")
		if rest != "" && isNumeric(rest) {
			return true
		}
	}
	fields := strings.Fields(line)
	if len(fields) >= 2 {
		last := strings.TrimSuffix(fields[len(fields)-1], "%")
		if isNumeric(last) {
			return true
		}
	}
	return false
}

func isNumeric(s string) bool {
	dot := false
	for i, r := range s {
		switch {
		case unicode.IsDigit(r):
		case r == '.' && !dot && i > 0:
			dot = true
		case r == '-' && i == 0:
		default:
			return false
		}
	}
	return s != "" && s != "-"
}

var stepPrefixes = []string{"step", "phase", "stage"}

// hasStepMarker detects sequential markers such as "Step 1", "Phase 2",
// "1." or "2)".
func hasStepMarker(line string) bool {
	lower := strings.ToLower(line)
	for _, prefix := range stepPrefixes {
		if strings.HasPrefix(lower, prefix) {
			rest := strings.TrimSpace(lower[len(prefix):])
			if rest != "" && unicode.IsDigit(rune(rest[0])) {
				return true
			}
		}
	}
	if len(lower) >= 2 && unicode.IsDigit(rune(lower[0])) {
		switch lower[1] {
		case '.', ')', ':':
			return true
		}
	}
	return false
}
