// Package service contains the business logic layer.
//
// This file implements the resume analysis flow: enforce the feature and
// quota gates, store the upload, delegate scoring to the external ML service
// and persist the result. The scoring itself is an opaque collaborator; this
// service owns only the gating and bookkeeping around it.
package service

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/skillora/skillora/internal/domain"
	"github.com/skillora/skillora/internal/metrics"
	"github.com/skillora/skillora/internal/scorer"
	"github.com/skillora/skillora/internal/storage"
)

// MaxResumeSize caps uploaded resume files at 10 MB.
const MaxResumeSize = 10 << 20

// =============================================================================
// Store Interface
// =============================================================================

// AnalysisStore persists analysis results.
type AnalysisStore interface {
	CreateAnalysis(ctx context.Context, a *domain.Analysis) error
	ListAnalysesByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Analysis, error)
}

// =============================================================================
// Interface Definition
// =============================================================================

// AnalyzeParams contains one resume to score.
type AnalyzeParams struct {
	User           *domain.User
	FileName       string
	ContentType    string
	Resume         []byte
	JobDescription string // optional; requires the jd_matching feature
}

// AnalysisService scores resumes for authenticated users.
type AnalysisService interface {
	// Analyze consumes one unit of quota, stores the upload, invokes the
	// external scorer and persists the result.
	// Returns domain.EPAYMENT when the monthly quota is exhausted.
	// Returns domain.EFORBIDDEN when a job description is supplied but the
	// user's tier lacks the jd_matching feature.
	Analyze(ctx context.Context, params AnalyzeParams) (*domain.Analysis, error)

	// History returns the user's most recent analyses.
	History(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Analysis, error)
}

// =============================================================================
// Implementation
// =============================================================================

type analysisService struct {
	store        AnalysisStore
	entitlements EntitlementService
	scorer       scorer.Scorer
	files        storage.Storage
	logger       *slog.Logger
}

// NewAnalysisService creates a new AnalysisService.
func NewAnalysisService(store AnalysisStore, entitlements EntitlementService, sc scorer.Scorer, files storage.Storage, logger *slog.Logger) AnalysisService {
	return &analysisService{
		store:        store,
		entitlements: entitlements,
		scorer:       sc,
		files:        files,
		logger:       logger,
	}
}

// Analyze scores a single resume.
func (s *analysisService) Analyze(ctx context.Context, params AnalyzeParams) (*domain.Analysis, error) {
	const op = "analysis.analyze"

	if len(params.Resume) == 0 {
		return nil, domain.Invalid(op, "resume file is empty")
	}
	if len(params.Resume) > MaxResumeSize {
		return nil, domain.Errorf(domain.ETOOLARGE, op, "resume exceeds %d bytes", MaxResumeSize)
	}

	policy := domain.PolicyFor(params.User.Tier)
	if params.JobDescription != "" && !policy.HasFeature(domain.FeatureJDMatching) {
		return nil, domain.Forbidden(op, "job description matching requires a paid plan")
	}

	// Quota gate. Consuming before scoring means a failed scorer call still
	// counts against quota; the alternative (consume after) would let a
	// flapping scorer grant unmetered retries.
	result, err := s.entitlements.TryConsume(ctx, params.User.ID)
	if err != nil {
		return nil, err
	}
	if !result.Allowed {
		metrics.AnalysesTotal.WithLabelValues("quota_denied").Inc()
		return nil, domain.Errorf(domain.EPAYMENT, op, "monthly analysis quota exhausted")
	}

	key := storage.ResumeKey(params.User.ID, params.FileName)
	err = s.files.Put(ctx, key, bytes.NewReader(params.Resume), storage.PutOptions{
		ContentType: params.ContentType,
		MaxSize:     MaxResumeSize,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to store resume")
	}

	scored, err := s.scorer.Score(ctx, scorer.ScoreParams{
		FileName:       params.FileName,
		ContentType:    params.ContentType,
		Resume:         params.Resume,
		JobDescription: params.JobDescription,
	})
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues("scorer_error").Inc()
		return nil, domain.Internal(err, op, "resume scoring failed")
	}

	analysis := &domain.Analysis{
		UserID:         params.User.ID,
		FileName:       params.FileName,
		ResumeKey:      key,
		JobDescription: params.JobDescription,
		Score:          scored.Score,
		Findings:       scored.Findings,
	}
	if err := s.store.CreateAnalysis(ctx, analysis); err != nil {
		return nil, domain.Internal(err, op, "failed to persist analysis")
	}

	metrics.AnalysesTotal.WithLabelValues("completed").Inc()
	s.logger.Info("resume analyzed",
		"analysis_id", analysis.ID,
		"user_id", params.User.ID,
		"score", analysis.Score,
		"remaining", result.Remaining,
	)
	return analysis, nil
}

// History returns recent analyses for a user.
func (s *analysisService) History(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Analysis, error) {
	const op = "analysis.history"
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	analyses, err := s.store.ListAnalysesByUser(ctx, userID, limit)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list analyses")
	}
	return analyses, nil
}
