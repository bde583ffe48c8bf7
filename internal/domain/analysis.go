// Package domain contains core business types and interfaces.
//
// This file defines the Analysis record persisted for each scored resume.
// The scoring itself is performed by an external ML service; this type only
// captures its result.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Finding is a single structured observation returned by the scorer.
type Finding struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Severity string `json:"severity,omitempty"`
}

// Analysis represents one scored resume.
type Analysis struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	FileName       string
	ResumeKey      string // Storage key of the uploaded resume
	JobDescription string
	Score          float64
	Findings       []Finding
	CreatedAt      time.Time
}
