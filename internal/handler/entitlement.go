package handler

// Entitlement endpoints (authenticated):
//   - GET /me          -> Me
//   - GET /me/usage    -> Usage
//   - GET /me/features -> Features

import (
	"log/slog"
	"net/http"

	"github.com/skillora/skillora/internal/auth"
	"github.com/skillora/skillora/internal/domain"
	"github.com/skillora/skillora/internal/service"
)

// EntitlementHandler exposes the caller's profile, quota and feature set.
type EntitlementHandler struct {
	entitlements service.EntitlementService
	logger       *slog.Logger
}

// NewEntitlementHandler creates an EntitlementHandler.
func NewEntitlementHandler(entitlements service.EntitlementService, logger *slog.Logger) *EntitlementHandler {
	return &EntitlementHandler{
		entitlements: entitlements,
		logger:       logger,
	}
}

type usageResponse struct {
	Tier         string `json:"tier"`
	MonthlyQuota int    `json:"monthly_quota"` // -1 means unlimited
	Used         int    `json:"used"`
	Remaining    int    `json:"remaining"` // -1 means unlimited
	Unlimited    bool   `json:"unlimited"`
}

type featuresResponse struct {
	Tier     string           `json:"tier"`
	Features []domain.Feature `json:"features"`
}

// Me returns the authenticated user's profile.
func (h *EntitlementHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Usage returns the caller's current-month quota consumption.
func (h *EntitlementHandler) Usage(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	ent, err := h.entitlements.ResolveEntitlement(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, usageResponse{
		Tier:         ent.Tier.String(),
		MonthlyQuota: ent.MonthlyQuota,
		Used:         ent.Used,
		Remaining:    ent.Remaining,
		Unlimited:    ent.MonthlyQuota == domain.QuotaUnlimited,
	})
}

// Features returns the feature set of the caller's tier.
func (h *EntitlementHandler) Features(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	ent, err := h.entitlements.ResolveEntitlement(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, featuresResponse{
		Tier:     ent.Tier.String(),
		Features: ent.Features,
	})
}
