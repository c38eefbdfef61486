package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"REFERRAL_AUTH_BACK-END/internal/dto"
	"REFERRAL_AUTH_BACK-END/internal/middleware"
	"REFERRAL_AUTH_BACK-END/internal/models"
	"REFERRAL_AUTH_BACK-END/internal/utils"
)

// ReferralService answers referral queries for ReferralHandler.
type ReferralService interface {
	Stats(ctx context.Context, userID uuid.UUID) (int, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.Referral, error)
}

// ReferralHandler handles referral queries of the authenticated user
type ReferralHandler struct {
	referrals ReferralService
	logger    *slog.Logger
}

// NewReferralHandler creates a new ReferralHandler instance
func NewReferralHandler(referrals ReferralService, logger *slog.Logger) *ReferralHandler {
	return &ReferralHandler{referrals: referrals, logger: logger}
}

// Stats returns the caller's referral count
// @Summary Referral count
// @Description Number of users who registered with the caller's referral code
// @Tags referrals
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.ReferralStatsResponse
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/referrals/referral-stats [get]
func (h *ReferralHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	total, err := h.referrals.Stats(r.Context(), userID)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, "referral stats", err)
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, dto.ReferralStatsResponse{TotalReferrals: total})
}

// List returns the users the caller referred
// @Summary Referred users
// @Description Username, email and registration time of every user the caller referred
// @Tags referrals
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.ReferralResponse
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/referrals/referrals [get]
func (h *ReferralHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	referrals, err := h.referrals.List(r.Context(), userID)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, "referral list", err)
		return
	}

	out := make([]dto.ReferralResponse, 0, len(referrals))
	for _, ref := range referrals {
		out = append(out, dto.ReferralResponse{
			Username:  ref.Username,
			Email:     ref.Email,
			CreatedAt: ref.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	utils.WriteJSONResponse(w, http.StatusOK, out)
}
