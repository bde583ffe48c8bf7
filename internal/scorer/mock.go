package scorer

import (
	"context"
	"hash/fnv"

	"github.com/skillora/skillora/internal/domain"
)

// Mock is a deterministic scorer for development and tests. The score is
// derived from the resume bytes so repeated uploads of the same file score
// identically.
type Mock struct{}

// NewMock creates a mock scorer.
func NewMock() *Mock {
	return &Mock{}
}

// Score returns a stable pseudo-score with canned findings.
func (m *Mock) Score(_ context.Context, params ScoreParams) (*Result, error) {
	h := fnv.New32a()
	h.Write(params.Resume)
	score := 40 + float64(h.Sum32()%56) // 40..95

	findings := []domain.Finding{
		{Category: "formatting", Message: "Standard section headings detected", Severity: "info"},
	}
	if params.JobDescription != "" {
		findings = append(findings, domain.Finding{
			Category: "keywords",
			Message:  "Partial keyword overlap with job description",
			Severity: "warning",
		})
	}
	return &Result{Score: score, Findings: findings}, nil
}
