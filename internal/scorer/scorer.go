// Package scorer defines the client interface for the external ML resume
// scoring service. The service itself is an opaque collaborator reached over
// HTTP; this package only owns the transport and a mock for development.
package scorer

import (
	"context"

	"github.com/skillora/skillora/internal/domain"
)

// Scorer scores a resume, optionally against a job description.
type Scorer interface {
	Score(ctx context.Context, params ScoreParams) (*Result, error)
}

// ScoreParams contains one resume to score.
type ScoreParams struct {
	FileName       string // Original upload name, used for format detection
	ContentType    string // MIME type of the resume file
	Resume         []byte // Raw file bytes
	JobDescription string // Optional job description to match against
}

// Result is the scorer's verdict: an ATS score in [0, 100] and structured
// findings explaining it.
type Result struct {
	Score    float64
	Findings []domain.Finding
}
