package generator

import (
	"context"
	"errors"

	"github.com/Gthorpe2274/mocha-emig/internal/store/model"
)

// ErrRateLimited marks provider throttling. The processor surfaces it
// verbatim so operators can tell transient throttling apart from logic bugs.
var ErrRateLimited = errors.New("content provider rate limited")

// Document is the full generated relocation report, produced in a single
// logical call against the rate-limited content provider.
type Document struct {
	Title            string    `json:"title"`
	Country          string    `json:"country"`
	City             string    `json:"city,omitempty"`
	ExecutiveSummary string    `json:"executiveSummary"`
	Sections         []Section `json:"sections"`
}

type Section struct {
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Subsections []Section `json:"subsections,omitempty"`
}

// Generator produces the complete report document for a paid assessment.
type Generator interface {
	Generate(ctx context.Context, assessment *model.Assessment) (*Document, error)
}
