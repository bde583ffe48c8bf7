package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/skillora/skillora/internal/domain"
)

// CreateAnalysis persists one scored resume. Findings are stored as JSONB.
func (r *Repository) CreateAnalysis(ctx context.Context, a *domain.Analysis) error {
	findings, err := json.Marshal(a.Findings)
	if err != nil {
		return fmt.Errorf("marshal findings: %w", err)
	}
	return r.db.QueryRowContext(ctx, `
		INSERT INTO analyses (user_id, file_name, resume_key, job_description, score, findings)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		a.UserID, a.FileName, a.ResumeKey, a.JobDescription, a.Score, findings).
		Scan(&a.ID, &a.CreatedAt)
}

// ListAnalysesByUser returns the user's analysis history, newest first.
func (r *Repository) ListAnalysesByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Analysis, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, file_name, resume_key, job_description, score, findings, created_at
		FROM analyses
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var analyses []*domain.Analysis
	for rows.Next() {
		var (
			a        domain.Analysis
			findings []byte
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.FileName, &a.ResumeKey,
			&a.JobDescription, &a.Score, &findings, &a.CreatedAt); err != nil {
			return nil, err
		}
		if len(findings) > 0 {
			if err := json.Unmarshal(findings, &a.Findings); err != nil {
				return nil, fmt.Errorf("unmarshal findings: %w", err)
			}
		}
		analyses = append(analyses, &a)
	}
	return analyses, rows.Err()
}
