package renderer

import (
	"context"

	"github.com/Gthorpe2274/mocha-emig/internal/generator"
)

// Renderer turns a generated document into PDF bytes. Rendering is
// deterministic for the same document and bounded by a short caller-side
// deadline.
type Renderer interface {
	Render(ctx context.Context, doc *generator.Document) ([]byte, error)
}
