// Package render holds the rendering collaborators behind a common
// capability contract. The conductor treats all of them as black boxes
// selected by generation method.
package render

import (
	"context"

	"diagramgen/internal/constraints"
	"diagramgen/internal/domain"
)

// Request is the normalized payload passed to any renderer.
type Request struct {
	Subtype    string
	Content    string
	DataPoints []domain.DataPoint
	Theme      domain.Theme
	Limits     constraints.Effective
}

// Artifact is a rendered diagram.
type Artifact struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Renderer is the contract implemented by all rendering backends.
// Failures are reported as *domain.RenderError so the conductor can
// decide retryability from the error kind.
type Renderer interface {
	Render(ctx context.Context, req Request) (Artifact, error)
}
