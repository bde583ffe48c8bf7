package handler

// Subscription endpoints (authenticated):
//   - POST /subscriptions -> Create (multipart: "plan" field + "proof" file)
//   - GET  /subscriptions -> ListMine
//
// A subscription request is a claim of out-of-band payment. The proof upload
// is stored privately; admins review it through the admin queue.

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/skillora/skillora/internal/auth"
	"github.com/skillora/skillora/internal/domain"
	"github.com/skillora/skillora/internal/service"
	"github.com/skillora/skillora/internal/storage"
)

// MaxProofSize caps payment proof uploads at 5 MB.
const MaxProofSize = 5 << 20

const (
	thumbnailMaxWidth  = 320
	thumbnailMaxHeight = 320
)

// SubscriptionHandler handles user-facing subscription requests.
type SubscriptionHandler struct {
	subscriptions service.SubscriptionService
	files         storage.Storage
	thumbnails    service.ThumbnailProcessor
	logger        *slog.Logger
}

// NewSubscriptionHandler creates a SubscriptionHandler. thumbnails may be nil
// to skip proof previews.
func NewSubscriptionHandler(subscriptions service.SubscriptionService, files storage.Storage, thumbnails service.ThumbnailProcessor, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptions: subscriptions,
		files:         files,
		thumbnails:    thumbnails,
		logger:        logger,
	}
}

type subscriptionResponse struct {
	ID        string     `json:"id"`
	Plan      string     `json:"plan"`
	Amount    int        `json:"amount"`
	Status    string     `json:"status"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	AdminNote string     `json:"admin_note,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func toSubscriptionResponse(req *domain.SubscriptionRequest) subscriptionResponse {
	return subscriptionResponse{
		ID:        req.ID.String(),
		Plan:      req.Plan.String(),
		Amount:    req.Amount,
		Status:    req.Status.String(),
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		AdminNote: req.AdminNote,
		CreatedAt: req.CreatedAt,
	}
}

// Create submits a payment claim for review.
func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	if err := r.ParseMultipartForm(MaxProofSize); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "Invalid multipart form"))
		return
	}

	plan := domain.Tier(r.FormValue("plan"))
	amount, err := domain.PlanAmount(plan)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	proofKey, err := h.storeProof(r, user)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	req, err := h.subscriptions.CreateRequest(r.Context(), user.ID, plan, amount, proofKey)
	if err != nil {
		// The request was not created; don't keep an orphaned proof around.
		if delErr := h.files.Delete(r.Context(), proofKey); delErr != nil {
			h.logger.Warn("failed to delete orphaned proof", "key", proofKey, "error", delErr)
		}
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSubscriptionResponse(req))
}

// storeProof validates and persists the payment proof upload, plus a JPEG
// thumbnail for image proofs. Returns the proof's storage key.
func (h *SubscriptionHandler) storeProof(r *http.Request, user *domain.User) (string, error) {
	file, header, err := r.FormFile("proof")
	if err != nil {
		return "", domain.Invalid("", "A payment proof file is required")
	}
	defer file.Close()

	data, err := readUpload(file)
	if err != nil {
		return "", err
	}
	if len(data) > MaxProofSize {
		return "", domain.Errorf(domain.ETOOLARGE, "", "Proof exceeds the %d MB limit", MaxProofSize>>20)
	}

	contentType := storage.DetectContentType(header.Header.Get("Content-Type"), header.Filename, bytes.NewReader(data))
	if !storage.IsAllowedProofType(contentType) {
		return "", domain.Invalid("", "Payment proof must be an image or PDF")
	}

	key := storage.ProofKey(user.ID, header.Filename)
	err = h.files.Put(r.Context(), key, bytes.NewReader(data), storage.PutOptions{
		ContentType: contentType,
		MaxSize:     MaxProofSize,
	})
	if err != nil {
		return "", domain.Internal(err, "", "Failed to store payment proof")
	}

	if h.thumbnails != nil && storage.IsImage(contentType) {
		h.storeThumbnail(r, user, data)
	}

	return key, nil
}

// storeThumbnail generates a preview for the admin queue. Best-effort: a
// failed thumbnail never fails the request submission.
func (h *SubscriptionHandler) storeThumbnail(r *http.Request, user *domain.User, data []byte) {
	thumb, err := h.thumbnails.GenerateThumbnail(bytes.NewReader(data), thumbnailMaxWidth, thumbnailMaxHeight)
	if err != nil {
		h.logger.Warn("failed to generate proof thumbnail", "user_id", user.ID, "error", err)
		return
	}

	key := storage.ProofThumbnailKey(user.ID)
	err = h.files.Put(r.Context(), key, bytes.NewReader(thumb), storage.PutOptions{
		ContentType: "image/jpeg",
	})
	if err != nil {
		h.logger.Warn("failed to store proof thumbnail", "key", key, "error", err)
	}
}

// ListMine returns the caller's request history, newest first.
func (h *SubscriptionHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	reqs, err := h.subscriptions.ListForUser(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	responses := make([]subscriptionResponse, 0, len(reqs))
	for _, req := range reqs {
		responses = append(responses, toSubscriptionResponse(req))
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": responses})
}
