package domain

import "strings"

// Complexity levels accepted on a request.
const (
	ComplexitySimple   = "simple"
	ComplexityModerate = "moderate"
	ComplexityDetailed = "detailed"
)

// Grid bounds in layout units.
const (
	GridMaxWidth  = 12
	GridMaxHeight = 8

	defaultGridWidth  = 6
	defaultGridHeight = 5
)

// DataPoint is one structured datum supplied for chart-style diagrams.
type DataPoint struct {
	Label       string  `json:"label"`
	Value       float64 `json:"value"`
	Description string  `json:"description,omitempty"`
}

// Theme is the visual configuration applied by the renderers.
type Theme struct {
	PrimaryColor    string `json:"primaryColor"`
	SecondaryColor  string `json:"secondaryColor,omitempty"`
	BackgroundColor string `json:"backgroundColor"`
	TextColor       string `json:"textColor"`
	FontFamily      string `json:"fontFamily"`
	Style           string `json:"style"`
}

// DefaultTheme returns the theme used when a request supplies none.
func DefaultTheme() Theme {
	return Theme{
		PrimaryColor:    "#3B82F6",
		SecondaryColor:  "#60A5FA",
		BackgroundColor: "#FFFFFF",
		TextColor:       "#1F2937",
		FontFamily:      "Inter, system-ui, sans-serif",
		Style:           "professional",
	}
}

// Constraints carries the caller's size and complexity preferences.
type Constraints struct {
	MaxWidth   int    `json:"maxWidth,omitempty"`
	MaxHeight  int    `json:"maxHeight,omitempty"`
	GridWidth  int    `json:"gridWidth,omitempty"`
	GridHeight int    `json:"gridHeight,omitempty"`
	Complexity string `json:"complexity,omitempty"`
	MaxNodes   int    `json:"maxNodes,omitempty"`
}

// DiagramRequest is the immutable payload a job is created from.
type DiagramRequest struct {
	Content     string      `json:"content"`
	DiagramType string      `json:"diagram_type"`
	DataPoints  []DataPoint `json:"data_points,omitempty"`
	Theme       Theme       `json:"theme"`
	Constraints Constraints `json:"constraints"`
	Method      string      `json:"method,omitempty"`
	SessionID   string      `json:"session_id,omitempty"`
}

// Known camelCase mermaid types preserved by normalization.
var camelCaseTypes = map[string]string{
	"erdiagram":     "erDiagram",
	"quadrantchart": "quadrantChart",
}

// NormalizeDiagramType lowercases and snake-cases a declared type while
// keeping the mermaid camelCase identifiers intact.
func NormalizeDiagramType(v string) string {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(v)), " ", "_")
	if cased, ok := camelCaseTypes[normalized]; ok {
		return cased
	}
	return normalized
}

// Normalize trims content, canonicalizes the declared type and complexity,
// and fills defaulted theme and grid values in place.
func (r *DiagramRequest) Normalize() {
	r.Content = strings.TrimSpace(r.Content)
	r.DiagramType = NormalizeDiagramType(r.DiagramType)
	r.Method = strings.ToLower(strings.TrimSpace(r.Method))

	switch strings.ToLower(strings.TrimSpace(r.Constraints.Complexity)) {
	case ComplexitySimple:
		r.Constraints.Complexity = ComplexitySimple
	case ComplexityDetailed:
		r.Constraints.Complexity = ComplexityDetailed
	default:
		r.Constraints.Complexity = ComplexityModerate
	}

	if r.Constraints.GridWidth == 0 {
		r.Constraints.GridWidth = defaultGridWidth
	}
	if r.Constraints.GridHeight == 0 {
		r.Constraints.GridHeight = defaultGridHeight
	}

	def := DefaultTheme()
	if r.Theme.PrimaryColor == "" {
		r.Theme.PrimaryColor = def.PrimaryColor
	}
	if r.Theme.SecondaryColor == "" {
		r.Theme.SecondaryColor = def.SecondaryColor
	}
	if r.Theme.BackgroundColor == "" {
		r.Theme.BackgroundColor = def.BackgroundColor
	}
	if r.Theme.TextColor == "" {
		r.Theme.TextColor = def.TextColor
	}
	if r.Theme.FontFamily == "" {
		r.Theme.FontFamily = def.FontFamily
	}
	if r.Theme.Style == "" {
		r.Theme.Style = def.Style
	}
}

// Validate reports request problems that must reject the submission.
// Grid minimum-footprint checks live in the constraint resolver because
// they depend on the resolved subtype.
func (r *DiagramRequest) Validate() error {
	if r.Content == "" {
		return &ValidationError{Field: "content", Message: "must not be empty"}
	}
	if r.Method != "" && !GenerationMethod(r.Method).Valid() {
		return &ValidationError{Field: "method", Message: "unknown generation method " + r.Method}
	}
	if w := r.Constraints.GridWidth; w < 1 || w > GridMaxWidth {
		return &ValidationError{Field: "gridWidth", Message: "must be between 1 and 12"}
	}
	if h := r.Constraints.GridHeight; h < 1 || h > GridMaxHeight {
		return &ValidationError{Field: "gridHeight", Message: "must be between 1 and 8"}
	}
	if r.Constraints.MaxNodes < 0 {
		return &ValidationError{Field: "maxNodes", Message: "must not be negative"}
	}
	return nil
}
