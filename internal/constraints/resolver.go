// Package constraints turns grid and complexity preferences into
// effective rendering limits.
package constraints

import (
	"fmt"
	"math"

	"diagramgen/internal/domain"
)

// Flow directions handed to the renderers.
const (
	DirectionLeftRight = "LR"
	DirectionTopBottom = "TB"
	DirectionTopDown   = "TD"
)

// Pixel ceilings per method; explicit dimensions are clamped to these.
var methodMaxPixels = map[domain.GenerationMethod]domain.GridSize{
	domain.MethodSVGTemplate: {Width: 1600, Height: 1200},
	domain.MethodMermaid:     {Width: 2000, Height: 1600},
	domain.MethodPythonChart: {Width: 1600, Height: 1200},
}

const (
	defaultMaxWidth  = 800
	defaultMaxHeight = 600

	wideAspectRatio = 1.5
	tallAspectRatio = 0.75
)

var complexityMultipliers = map[string]float64{
	domain.ComplexitySimple:   0.5,
	domain.ComplexityModerate: 0.75,
	domain.ComplexityDetailed: 1.0,
}

// Effective is the resolved constraint set passed to a renderer.
type Effective struct {
	MaxElements int
	Tier        domain.SizeTier
	Direction   string
	MaxWidth    int
	MaxHeight   int
}

// Resolver computes effective limits from the injected catalog tables.
type Resolver struct {
	catalog *domain.Catalog
}

// NewResolver builds a resolver over the catalog.
func NewResolver(catalog *domain.Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// SizeTier classifies a grid area: small up to 16, medium up to 48,
// large beyond.
func SizeTier(gridWidth, gridHeight int) domain.SizeTier {
	area := gridWidth * gridHeight
	switch {
	case area <= 16:
		return domain.TierSmall
	case area <= 48:
		return domain.TierMedium
	default:
		return domain.TierLarge
	}
}

// ValidateGrid checks the requested footprint against the subtype's
// declared minimum. A too-small grid is a validation failure, never a
// silent coercion. Unknown subtypes pass; they carry no footprint
// requirement.
func (r *Resolver) ValidateGrid(subtype string, gridWidth, gridHeight int) error {
	if gridWidth < 1 || gridWidth > domain.GridMaxWidth {
		return &domain.ValidationError{Field: "gridWidth", Message: fmt.Sprintf("must be 1-%d, got %d", domain.GridMaxWidth, gridWidth)}
	}
	if gridHeight < 1 || gridHeight > domain.GridMaxHeight {
		return &domain.ValidationError{Field: "gridHeight", Message: fmt.Sprintf("must be 1-%d, got %d", domain.GridMaxHeight, gridHeight)}
	}
	spec, ok := r.catalog.Lookup(subtype)
	if !ok {
		return nil
	}
	if gridWidth < spec.MinGrid.Width {
		return &domain.ValidationError{
			Field:   "gridWidth",
			Message: fmt.Sprintf("%s requires minimum width of %d grid units, got %d", subtype, spec.MinGrid.Width, gridWidth),
		}
	}
	if gridHeight < spec.MinGrid.Height {
		return &domain.ValidationError{
			Field:   "gridHeight",
			Message: fmt.Sprintf("%s requires minimum height of %d grid units, got %d", subtype, spec.MinGrid.Height, gridHeight),
		}
	}
	return nil
}

// Resolve computes the effective limits for a chosen method and subtype.
// The caller's MaxNodes override wins over the computed limit but is
// clamped to the tier's base maximum so an oversized request cannot
// overwhelm the rendering backend.
func (r *Resolver) Resolve(method domain.GenerationMethod, subtype string, c domain.Constraints) (Effective, error) {
	if err := r.ValidateGrid(subtype, c.GridWidth, c.GridHeight); err != nil {
		return Effective{}, err
	}

	tier := SizeTier(c.GridWidth, c.GridHeight)

	limits := domain.TierLimits{Small: 6, Medium: 12, Large: 20}
	if spec, ok := r.catalog.Lookup(subtype); ok {
		limits = spec.NodeLimits
	}
	base := limits.ForTier(tier)

	multiplier, ok := complexityMultipliers[c.Complexity]
	if !ok {
		multiplier = complexityMultipliers[domain.ComplexityModerate]
	}
	maxElements := int(math.Floor(float64(base) * multiplier))
	if maxElements < 1 {
		maxElements = 1
	}
	if c.MaxNodes > 0 {
		maxElements = c.MaxNodes
		if maxElements > base {
			maxElements = base
		}
	}

	maxW, maxH := c.MaxWidth, c.MaxHeight
	if maxW <= 0 {
		maxW = defaultMaxWidth
	}
	if maxH <= 0 {
		maxH = defaultMaxHeight
	}
	if ceiling, ok := methodMaxPixels[method]; ok {
		if maxW > ceiling.Width {
			maxW = ceiling.Width
		}
		if maxH > ceiling.Height {
			maxH = ceiling.Height
		}
	}

	return Effective{
		MaxElements: maxElements,
		Tier:        tier,
		Direction:   direction(c.GridWidth, c.GridHeight),
		MaxWidth:    maxW,
		MaxHeight:   maxH,
	}, nil
}

// direction picks a flow direction from the grid aspect ratio.
func direction(gridWidth, gridHeight int) string {
	ratio := float64(gridWidth) / float64(gridHeight)
	switch {
	case ratio > wideAspectRatio:
		return DirectionLeftRight
	case ratio < tallAspectRatio:
		return DirectionTopBottom
	default:
		return DirectionTopDown
	}
}
