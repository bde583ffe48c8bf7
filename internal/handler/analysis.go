package handler

// Resume analysis endpoints (authenticated):
//   - POST /resumes/analyze       -> Analyze
//   - POST /resumes/batch-analyze -> BatchAnalyze (recruiter tier)
//   - GET  /resumes/analyses      -> History
//
// Uploads are multipart forms with a "file" part and an optional
// "job_description" field. Batch analysis accepts multiple "files" parts.

import (
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/skillora/skillora/internal/auth"
	"github.com/skillora/skillora/internal/domain"
	"github.com/skillora/skillora/internal/service"
)

// maxBatchFiles caps how many resumes one batch request may carry.
const maxBatchFiles = 20

// AnalysisHandler handles resume scoring and history.
type AnalysisHandler struct {
	analysisService service.AnalysisService
	logger          *slog.Logger
}

// NewAnalysisHandler creates an AnalysisHandler.
func NewAnalysisHandler(analysisService service.AnalysisService, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
		logger:          logger,
	}
}

type analysisResponse struct {
	ID             string           `json:"id"`
	FileName       string           `json:"file_name"`
	JobDescription string           `json:"job_description,omitempty"`
	Score          float64          `json:"score"`
	Findings       []domain.Finding `json:"findings"`
	CreatedAt      time.Time        `json:"created_at"`
}

func toAnalysisResponse(a *domain.Analysis) analysisResponse {
	return analysisResponse{
		ID:             a.ID.String(),
		FileName:       a.FileName,
		JobDescription: a.JobDescription,
		Score:          a.Score,
		Findings:       a.Findings,
		CreatedAt:      a.CreatedAt,
	}
}

type batchItemResponse struct {
	FileName string            `json:"file_name"`
	Analysis *analysisResponse `json:"analysis,omitempty"`
	Error    *errorDetail      `json:"error,omitempty"`
}

type batchResponse struct {
	Results []batchItemResponse `json:"results"`
}

// Analyze scores a single uploaded resume.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	if err := r.ParseMultipartForm(service.MaxResumeSize); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "Invalid multipart form"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "A resume file is required"))
		return
	}
	defer file.Close()

	data, err := readUpload(file)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	analysis, err := h.analysisService.Analyze(r.Context(), service.AnalyzeParams{
		User:           user,
		FileName:       header.Filename,
		ContentType:    header.Header.Get("Content-Type"),
		Resume:         data,
		JobDescription: r.FormValue("job_description"),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAnalysisResponse(analysis))
}

// BatchAnalyze scores several resumes in one request, typically against a
// single job description. Each file consumes quota independently and failures
// are reported per file without aborting the batch.
func (h *AnalysisHandler) BatchAnalyze(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	if err := r.ParseMultipartForm(service.MaxResumeSize * 4); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "Invalid multipart form"))
		return
	}

	if r.MultipartForm == nil || len(r.MultipartForm.File["files"]) == 0 {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "At least one resume file is required"))
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) > maxBatchFiles {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "Too many files in one batch"))
		return
	}

	jobDescription := r.FormValue("job_description")

	results := make([]batchItemResponse, 0, len(headers))
	for _, header := range headers {
		item := batchItemResponse{FileName: header.Filename}

		analysis, err := h.analyzeOne(r, user, header, jobDescription)
		if err != nil {
			item.Error = &errorDetail{
				Code:    domain.ErrorCode(err),
				Message: domain.ErrorMessage(err),
			}
		} else {
			resp := toAnalysisResponse(analysis)
			item.Analysis = &resp
		}
		results = append(results, item)
	}

	writeJSON(w, http.StatusOK, batchResponse{Results: results})
}

func (h *AnalysisHandler) analyzeOne(r *http.Request, user *domain.User, header *multipart.FileHeader, jobDescription string) (*domain.Analysis, error) {
	file, err := header.Open()
	if err != nil {
		return nil, domain.Internal(err, "", "Failed to read uploaded file")
	}
	defer file.Close()

	data, err := readUpload(file)
	if err != nil {
		return nil, err
	}

	return h.analysisService.Analyze(r.Context(), service.AnalyzeParams{
		User:           user,
		FileName:       header.Filename,
		ContentType:    header.Header.Get("Content-Type"),
		Resume:         data,
		JobDescription: jobDescription,
	})
}

// History returns the caller's recent analyses.
func (h *AnalysisHandler) History(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	analyses, err := h.analysisService.History(r.Context(), user.ID, limit)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	responses := make([]analysisResponse, 0, len(analyses))
	for _, a := range analyses {
		responses = append(responses, toAnalysisResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": responses})
}

// readUpload drains an upload, enforcing the size cap early.
func readUpload(file multipart.File) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(file, service.MaxResumeSize+1))
	if err != nil {
		return nil, domain.Internal(err, "", "Failed to read uploaded file")
	}
	if len(data) > service.MaxResumeSize {
		return nil, domain.Errorf(domain.ETOOLARGE, "", "File exceeds the %d MB limit", service.MaxResumeSize>>20)
	}
	return data, nil
}
