package routing

import (
	"testing"

	"diagramgen/internal/domain"
)

func newTestSelector() *Selector {
	return NewSelector(domain.DefaultCatalog(), DefaultConfig())
}

func TestSelectForcedMethodWins(t *testing.T) {
	s := newTestSelector()

	// Forced method keeps a compatible declared subtype.
	sel := s.Select("anything", "flowchart", "mermaid", nil)
	if sel.Source != SourceForced {
		t.Fatalf("Source = %q, want %q", sel.Source, SourceForced)
	}
	if sel.Method != domain.MethodMermaid || sel.Subtype != "flowchart" {
		t.Fatalf("Selection = %s/%s, want mermaid/flowchart", sel.Method, sel.Subtype)
	}

	// An incompatible declared subtype falls back to the method default.
	sel = s.Select("anything", "cycle_3_step", "python_chart", nil)
	if sel.Method != domain.MethodPythonChart || sel.Subtype != "bar_chart" {
		t.Fatalf("Selection = %s/%s, want python_chart/bar_chart", sel.Method, sel.Subtype)
	}
	if sel.Source != SourceForced {
		t.Fatalf("Source = %q, want %q", sel.Source, SourceForced)
	}
}

func TestSelectCatalogMatchBeatsHint(t *testing.T) {
	s := newTestSelector()
	hint := &Hint{Method: domain.MethodPythonChart, Subtype: "bar_chart", Confidence: 0.99}

	sel := s.Select("anything", "cycle_3_step", "", hint)
	if sel.Source != SourceCatalog {
		t.Fatalf("Source = %q, want %q", sel.Source, SourceCatalog)
	}
	if sel.Method != domain.MethodSVGTemplate || sel.Subtype != "cycle_3_step" {
		t.Fatalf("Selection = %s/%s, want svg_template/cycle_3_step", sel.Method, sel.Subtype)
	}
}

func TestSelectHint(t *testing.T) {
	s := newTestSelector()

	sel := s.Select("some prose", "unknown_type", "", &Hint{Method: domain.MethodPythonChart, Subtype: "pie_chart", Confidence: 0.8})
	if sel.Source != SourceClassifier {
		t.Fatalf("Source = %q, want %q", sel.Source, SourceClassifier)
	}
	if sel.Method != domain.MethodPythonChart || sel.Subtype != "pie_chart" {
		t.Fatalf("Selection = %s/%s, want python_chart/pie_chart", sel.Method, sel.Subtype)
	}
	if sel.Confidence != 0.8 {
		t.Fatalf("Confidence = %v, want 0.8", sel.Confidence)
	}

	// A hint subtype the method does not own is replaced by the default.
	sel = s.Select("some prose", "unknown_type", "", &Hint{Method: domain.MethodMermaid, Subtype: "pie_chart", Confidence: 0.9})
	if sel.Subtype != "flowchart" {
		t.Fatalf("Subtype = %q, want flowchart", sel.Subtype)
	}
}

func TestSelectLowConfidenceHintIgnored(t *testing.T) {
	s := newTestSelector()
	hint := &Hint{Method: domain.MethodPythonChart, Subtype: "pie_chart", Confidence: 0.4}

	sel := s.Select("some freeform prose about things", "unknown_type", "", hint)
	if sel.Source == SourceClassifier {
		t.Fatalf("low-confidence hint was used: %+v", sel)
	}
}

func TestSelectHeuristicNumericContent(t *testing.T) {
	s := newTestSelector()
	content := "Q1: 120\nQ2: 180\nQ3: 95\nQ4: 210"

	sel := s.Select(content, "unknown_type", "", nil)
	if sel.Source != SourceHeuristic {
		t.Fatalf("Source = %q, want %q", sel.Source, SourceHeuristic)
	}
	if sel.Method != domain.MethodPythonChart || sel.Subtype != "bar_chart" {
		t.Fatalf("Selection = %s/%s, want python_chart/bar_chart", sel.Method, sel.Subtype)
	}
}

func TestSelectHeuristicPercentagesPickPie(t *testing.T) {
	s := newTestSelector()
	content := "Chrome: 65%\nSafari: 19%\nFirefox: 3%"

	sel := s.Select(content, "unknown_type", "", nil)
	if sel.Method != domain.MethodPythonChart || sel.Subtype != "pie_chart" {
		t.Fatalf("Selection = %s/%s, want python_chart/pie_chart", sel.Method, sel.Subtype)
	}
}

func TestSelectHeuristicStepContent(t *testing.T) {
	s := newTestSelector()
	content := "Step 1: gather requirements\nStep 2: design\nStep 3: build"

	sel := s.Select(content, "unknown_type", "", nil)
	if sel.Source != SourceHeuristic {
		t.Fatalf("Source = %q, want %q", sel.Source, SourceHeuristic)
	}
	if sel.Method != domain.MethodSVGTemplate {
		t.Fatalf("Method = %q, want svg_template", sel.Method)
	}
	if sel.Subtype != "cycle_3_step" {
		t.Fatalf("Subtype = %q, want cycle_3_step", sel.Subtype)
	}
}

func TestSelectHeuristicManyStepsUsesProcessFlow(t *testing.T) {
	s := newTestSelector()
	content := "1. a\n2. b\n3. c\n4. d\n5. e\n6. f\n7. g"

	sel := s.Select(content, "unknown_type", "", nil)
	if sel.Method != domain.MethodSVGTemplate || sel.Subtype != "process_flow" {
		t.Fatalf("Selection = %s/%s, want svg_template/process_flow", sel.Method, sel.Subtype)
	}
}

func TestSelectFallbackIsTotal(t *testing.T) {
	s := newTestSelector()

	for _, content := range []string{"", "plain prose with no markers at all", "one line"} {
		sel := s.Select(content, "unknown_type", "", nil)
		if sel.Source != SourceFallback {
			t.Fatalf("content %q: Source = %q, want %q", content, sel.Source, SourceFallback)
		}
		if sel.Method != domain.MethodMermaid || sel.Subtype != "flowchart" {
			t.Fatalf("content %q: Selection = %s/%s, want mermaid/flowchart", content, sel.Method, sel.Subtype)
		}
	}
}

func TestNeedsHint(t *testing.T) {
	s := newTestSelector()

	cases := []struct {
		name     string
		declared string
		forced   string
		want     bool
	}{
		{"forced method", "unknown", "mermaid", false},
		{"catalog match", "flowchart", "", false},
		{"camel case catalog match", "erDiagram", "", false},
		{"unknown type", "org_chart", "", true},
		{"invalid forced falls through", "org_chart", "bogus", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.NeedsHint(tc.declared, tc.forced); got != tc.want {
				t.Fatalf("NeedsHint(%q, %q) = %v, want %v", tc.declared, tc.forced, got, tc.want)
			}
		})
	}
}

func TestHasStepMarker(t *testing.T) {
	cases := []struct {
		line string
		want bool
	}{
		{"Step 1: start", true},
		{"Phase 2 rollout", true},
		{"stage 3", true},
		{"1. first", true},
		{"2) second", true},
		{"Revenue: 1200", false},
		{"stepwise refinement", false},
		{"2023 results", false},
	}
	for _, tc := range cases {
		if got := hasStepMarker(tc.line); got != tc.want {
			t.Fatalf("hasStepMarker(%q) = %v, want %v", tc.line, got, tc.want)
		}
	}
}

func TestHasNumericStructure(t *testing.T) {
	cases := []struct {
		line string
		want bool
	}{
		{"Q1: 120", true},
		{"North, 44.5", true},
		{"col|col|col", true},
		{"Sales 300%", true},
		{"just words here", false},
		{"label: text", false},
	}
	for _, tc := range cases {
		if got := hasNumericStructure(tc.line); got != tc.want {
			t.Fatalf("hasNumericStructure(%q) = %v, want %v", tc.line, got, tc.want)
		}
	}
}
