package handler

// Admin endpoints (admin accounts only):
//   - GET  /admin/subscriptions              -> Queue
//   - POST /admin/subscriptions/{id}/approve -> Approve
//   - POST /admin/subscriptions/{id}/reject  -> Reject
//   - PUT  /admin/subscriptions/{id}/dates   -> SetDates
//   - POST /admin/sweep                      -> Sweep

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/skillora/skillora/internal/auth"
	"github.com/skillora/skillora/internal/domain"
	"github.com/skillora/skillora/internal/service"
	"github.com/skillora/skillora/internal/storage"
)

// proofURLTTL is how long presigned proof links in the review queue stay
// valid.
const proofURLTTL = 15 * time.Minute

// AdminHandler handles the subscription review queue and manual sweeps.
type AdminHandler struct {
	subscriptions service.SubscriptionService
	sweeper       *service.Sweeper
	files         storage.Storage
	logger        *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(subscriptions service.SubscriptionService, sweeper *service.Sweeper, files storage.Storage, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		subscriptions: subscriptions,
		sweeper:       sweeper,
		files:         files,
		logger:        logger,
	}
}

// adminSubscriptionResponse extends the user-facing shape with review
// metadata and a short-lived proof link.
type adminSubscriptionResponse struct {
	subscriptionResponse
	UserID     string     `json:"user_id"`
	ProofURL   string     `json:"proof_url,omitempty"`
	ReviewedBy *string    `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
}

func (h *AdminHandler) toAdminResponse(r *http.Request, req *domain.SubscriptionRequest) adminSubscriptionResponse {
	resp := adminSubscriptionResponse{
		subscriptionResponse: toSubscriptionResponse(req),
		UserID:               req.UserID.String(),
		ReviewedAt:           req.ReviewedAt,
	}
	if req.ReviewedBy != nil {
		id := req.ReviewedBy.String()
		resp.ReviewedBy = &id
	}
	if req.ProofKey != "" {
		url, err := h.files.URL(r.Context(), req.ProofKey, proofURLTTL)
		if err != nil {
			h.logger.Warn("failed to presign proof URL", "key", req.ProofKey, "error", err)
		} else {
			resp.ProofURL = url
		}
	}
	return resp
}

type reviewRequest struct {
	StartDate string `json:"start_date,omitempty"` // RFC 3339 or YYYY-MM-DD
	EndDate   string `json:"end_date,omitempty"`
	Note      string `json:"note,omitempty"`
}

// Queue lists subscription requests by status, defaulting to the pending
// review queue, oldest first.
func (h *AdminHandler) Queue(w http.ResponseWriter, r *http.Request) {
	status := domain.RequestStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = domain.RequestStatusPending
	}

	reqs, err := h.subscriptions.ListByStatus(r.Context(), status)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	responses := make([]adminSubscriptionResponse, 0, len(reqs))
	for _, req := range reqs {
		responses = append(responses, h.toAdminResponse(r, req))
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": responses})
}

// Approve verifies a pending request, granting the requested plan for the
// given window. Omitted dates default to a 30-day window starting now.
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	reviewer := auth.GetUser(r.Context())

	requestID, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var body reviewRequest
	if err := decodeJSON(r, &body); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	startDate := time.Now().UTC()
	if body.StartDate != "" {
		if startDate, err = parseDate(body.StartDate); err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid("", "Invalid start_date"))
			return
		}
	}
	endDate := startDate.AddDate(0, 0, 30)
	if body.EndDate != "" {
		if endDate, err = parseDate(body.EndDate); err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid("", "Invalid end_date"))
			return
		}
	}

	req, err := h.subscriptions.Approve(r.Context(), requestID, reviewer.ID, startDate, endDate, body.Note)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, h.toAdminResponse(r, req))
}

// Reject declines a pending request.
func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	reviewer := auth.GetUser(r.Context())

	requestID, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var body reviewRequest
	if err := decodeJSON(r, &body); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	req, err := h.subscriptions.Reject(r.Context(), requestID, reviewer.ID, body.Note)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, h.toAdminResponse(r, req))
}

// SetDates overrides a request's validity window. Both dates are required.
func (h *AdminHandler) SetDates(w http.ResponseWriter, r *http.Request) {
	reviewer := auth.GetUser(r.Context())

	requestID, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var body reviewRequest
	if err := decodeJSON(r, &body); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if body.StartDate == "" || body.EndDate == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "start_date and end_date are required"))
		return
	}
	startDate, err := parseDate(body.StartDate)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "Invalid start_date"))
		return
	}
	endDate, err := parseDate(body.EndDate)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "Invalid end_date"))
		return
	}

	req, err := h.subscriptions.SetDates(r.Context(), requestID, reviewer.ID, startDate, endDate, body.Note)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, h.toAdminResponse(r, req))
}

// Sweep triggers an expiry sweep outside the hourly schedule.
func (h *AdminHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	expired, err := h.sweeper.RunOnce(r.Context())
	if err != nil {
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("manual expiry sweep completed", "expired", expired)
	writeJSON(w, http.StatusOK, map[string]int{"expired": expired})
}
