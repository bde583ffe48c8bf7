package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/skillora/skillora/internal/domain"
	"github.com/skillora/skillora/internal/metrics"
)

// Client calls the ML scoring service over HTTP.
//
// The service exposes POST {base}/analyze accepting a multipart form with a
// "file" part and an optional "job_description" field, and responds with
// {"score": <float>, "findings": [{"category", "message", "severity"}, ...]}.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a scorer client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type scoreResponse struct {
	Score    float64          `json:"score"`
	Findings []domain.Finding `json:"findings"`
}

// Score submits the resume and decodes the scorer's verdict.
func (c *Client) Score(ctx context.Context, params ScoreParams) (*Result, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("file", params.FileName)
	if err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	if _, err := part.Write(params.Resume); err != nil {
		return nil, fmt.Errorf("write resume: %w", err)
	}
	if params.JobDescription != "" {
		if err := form.WriteField("job_description", params.JobDescription); err != nil {
			return nil, fmt.Errorf("write job description: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ScorerCallsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("scorer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ScorerCallsTotal.WithLabelValues("error").Inc()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("scorer returned %d: %s", resp.StatusCode, snippet)
	}

	var decoded scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		metrics.ScorerCallsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode scorer response: %w", err)
	}

	metrics.ScorerCallsTotal.WithLabelValues("ok").Inc()
	c.logger.Debug("resume scored",
		"file", params.FileName,
		"score", decoded.Score,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &Result{Score: decoded.Score, Findings: decoded.Findings}, nil
}
