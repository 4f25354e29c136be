package domain

// SizeTier buckets a requested grid area into a coarse layout size.
type SizeTier string

const (
	TierSmall  SizeTier = "small"
	TierMedium SizeTier = "medium"
	TierLarge  SizeTier = "large"
)

// TierLimits holds the base structural element limit per size tier.
type TierLimits struct {
	Small  int
	Medium int
	Large  int
}

// ForTier returns the base limit for the given tier.
func (l TierLimits) ForTier(t SizeTier) int {
	switch t {
	case TierSmall:
		return l.Small
	case TierLarge:
		return l.Large
	default:
		return l.Medium
	}
}

// GridSize is a footprint in grid units.
type GridSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SubtypeSpec describes one catalog entry: which method renders it, how
// many elements fit per size tier, and the smallest grid it works in.
type SubtypeSpec struct {
	Method     GenerationMethod
	NodeLimits TierLimits
	MinGrid    GridSize
}

// Catalog is the immutable table of supported diagram subtypes. It is
// built once and injected into the selector and resolver so tests can
// substitute their own tables.
type Catalog struct {
	entries  map[string]SubtypeSpec
	byMethod map[GenerationMethod][]string
	defaults map[GenerationMethod]string
}

// NewCatalog builds a catalog from explicit entries and per-method
// default subtypes. Every default must exist in entries.
func NewCatalog(entries map[string]SubtypeSpec, defaults map[GenerationMethod]string) *Catalog {
	c := &Catalog{
		entries:  make(map[string]SubtypeSpec, len(entries)),
		byMethod: make(map[GenerationMethod][]string),
		defaults: make(map[GenerationMethod]string, len(defaults)),
	}
	for name, spec := range entries {
		c.entries[name] = spec
		c.byMethod[spec.Method] = append(c.byMethod[spec.Method], name)
	}
	for method, name := range defaults {
		c.defaults[method] = name
	}
	return c
}

// Lookup returns the spec for a subtype.
func (c *Catalog) Lookup(subtype string) (SubtypeSpec, bool) {
	spec, ok := c.entries[subtype]
	return spec, ok
}

// Contains reports whether the subtype is a known catalog entry.
func (c *Catalog) Contains(subtype string) bool {
	_, ok := c.entries[subtype]
	return ok
}

// MethodFor returns the method owning a subtype.
func (c *Catalog) MethodFor(subtype string) (GenerationMethod, bool) {
	spec, ok := c.entries[subtype]
	return spec.Method, ok
}

// Compatible reports whether subtype belongs to method's catalog.
func (c *Catalog) Compatible(subtype string, method GenerationMethod) bool {
	spec, ok := c.entries[subtype]
	return ok && spec.Method == method
}

// DefaultSubtype returns the method's fallback subtype.
func (c *Catalog) DefaultSubtype(method GenerationMethod) string {
	return c.defaults[method]
}

// Subtypes returns a copy of the subtype names registered for a method.
func (c *Catalog) Subtypes(method GenerationMethod) []string {
	names := c.byMethod[method]
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// All returns a copy of every entry, keyed by subtype name.
func (c *Catalog) All() map[string]SubtypeSpec {
	out := make(map[string]SubtypeSpec, len(c.entries))
	for name, spec := range c.entries {
		out[name] = spec
	}
	return out
}

// DefaultCatalog returns the production subtype catalog.
func DefaultCatalog() *Catalog {
	small := func(s, m, l int) TierLimits { return TierLimits{Small: s, Medium: m, Large: l} }

	entries := map[string]SubtypeSpec{
		// SVG template family: fixed-slot templates.
		"cycle_3_step":    {Method: MethodSVGTemplate, NodeLimits: small(3, 3, 3), MinGrid: GridSize{Width: 3, Height: 3}},
		"cycle_4_step":    {Method: MethodSVGTemplate, NodeLimits: small(4, 4, 4), MinGrid: GridSize{Width: 3, Height: 3}},
		"cycle_5_step":    {Method: MethodSVGTemplate, NodeLimits: small(5, 5, 5), MinGrid: GridSize{Width: 4, Height: 3}},
		"pyramid_3_level": {Method: MethodSVGTemplate, NodeLimits: small(3, 3, 3), MinGrid: GridSize{Width: 3, Height: 3}},
		"pyramid_4_level": {Method: MethodSVGTemplate, NodeLimits: small(4, 4, 4), MinGrid: GridSize{Width: 3, Height: 3}},
		"pyramid_5_level": {Method: MethodSVGTemplate, NodeLimits: small(5, 5, 5), MinGrid: GridSize{Width: 4, Height: 4}},
		"venn_2_circle":   {Method: MethodSVGTemplate, NodeLimits: small(2, 2, 2), MinGrid: GridSize{Width: 3, Height: 2}},
		"venn_3_circle":   {Method: MethodSVGTemplate, NodeLimits: small(3, 3, 3), MinGrid: GridSize{Width: 3, Height: 3}},
		"honeycomb_3":     {Method: MethodSVGTemplate, NodeLimits: small(3, 3, 3), MinGrid: GridSize{Width: 3, Height: 2}},
		"honeycomb_5":     {Method: MethodSVGTemplate, NodeLimits: small(5, 5, 5), MinGrid: GridSize{Width: 4, Height: 3}},
		"honeycomb_7":     {Method: MethodSVGTemplate, NodeLimits: small(7, 7, 7), MinGrid: GridSize{Width: 5, Height: 4}},
		"matrix_2x2":      {Method: MethodSVGTemplate, NodeLimits: small(4, 4, 4), MinGrid: GridSize{Width: 3, Height: 3}},
		"matrix_3x3":      {Method: MethodSVGTemplate, NodeLimits: small(9, 9, 9), MinGrid: GridSize{Width: 4, Height: 4}},
		"swot":            {Method: MethodSVGTemplate, NodeLimits: small(4, 4, 4), MinGrid: GridSize{Width: 4, Height: 3}},
		"hub_spoke":       {Method: MethodSVGTemplate, NodeLimits: small(5, 7, 9), MinGrid: GridSize{Width: 3, Height: 3}},
		"process_flow":    {Method: MethodSVGTemplate, NodeLimits: small(4, 6, 8), MinGrid: GridSize{Width: 4, Height: 2}},
		"timeline":        {Method: MethodSVGTemplate, NodeLimits: small(4, 6, 10), MinGrid: GridSize{Width: 6, Height: 2}},
		"funnel":          {Method: MethodSVGTemplate, NodeLimits: small(3, 4, 6), MinGrid: GridSize{Width: 3, Height: 4}},

		// Mermaid markup family.
		"flowchart":     {Method: MethodMermaid, NodeLimits: small(6, 12, 20), MinGrid: GridSize{Width: 3, Height: 2}},
		"erDiagram":     {Method: MethodMermaid, NodeLimits: small(4, 8, 14), MinGrid: GridSize{Width: 4, Height: 3}},
		"journey":       {Method: MethodMermaid, NodeLimits: small(4, 8, 12), MinGrid: GridSize{Width: 6, Height: 2}},
		"gantt":         {Method: MethodMermaid, NodeLimits: small(5, 10, 16), MinGrid: GridSize{Width: 6, Height: 3}},
		"quadrantChart": {Method: MethodMermaid, NodeLimits: small(4, 8, 12), MinGrid: GridSize{Width: 4, Height: 4}},
		"kanban":        {Method: MethodMermaid, NodeLimits: small(6, 12, 18), MinGrid: GridSize{Width: 6, Height: 4}},

		// Chart family.
		"pie_chart":    {Method: MethodPythonChart, NodeLimits: small(4, 6, 10), MinGrid: GridSize{Width: 3, Height: 3}},
		"bar_chart":    {Method: MethodPythonChart, NodeLimits: small(5, 8, 14), MinGrid: GridSize{Width: 4, Height: 3}},
		"line_chart":   {Method: MethodPythonChart, NodeLimits: small(10, 20, 40), MinGrid: GridSize{Width: 4, Height: 3}},
		"scatter_plot": {Method: MethodPythonChart, NodeLimits: small(15, 30, 60), MinGrid: GridSize{Width: 4, Height: 3}},
		"sankey":       {Method: MethodPythonChart, NodeLimits: small(5, 8, 12), MinGrid: GridSize{Width: 6, Height: 4}},
		"network":      {Method: MethodPythonChart, NodeLimits: small(6, 12, 20), MinGrid: GridSize{Width: 4, Height: 4}},
	}

	defaults := map[GenerationMethod]string{
		MethodSVGTemplate: "process_flow",
		MethodMermaid:     "flowchart",
		MethodPythonChart: "bar_chart",
	}

	return NewCatalog(entries, defaults)
}
