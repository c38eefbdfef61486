package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"REFERRAL_AUTH_BACK-END/internal/dto"
	"REFERRAL_AUTH_BACK-END/internal/utils"
)

// PasswordResetService is the reset workflow used by PasswordResetHandler.
type PasswordResetService interface {
	RequestReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// PasswordResetHandler handles forgot password functionality
type PasswordResetHandler struct {
	resets PasswordResetService
	logger *slog.Logger
}

// NewPasswordResetHandler creates a new PasswordResetHandler instance
func NewPasswordResetHandler(resets PasswordResetService, logger *slog.Logger) *PasswordResetHandler {
	return &PasswordResetHandler{resets: resets, logger: logger}
}

// ForgotPassword emails a password reset link
// @Summary Request password reset
// @Description Email a single-use reset link valid for 15 minutes. A new request replaces any pending link.
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body dto.ForgotPasswordRequest true "Email address"
// @Success 200 {object} dto.MessageResponse "Password reset link sent to email."
// @Failure 400 {object} dto.ErrorResponse "Invalid email"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/auth/forgot-password [post]
func (h *PasswordResetHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.resets.RequestReset(r.Context(), req.Email); err != nil {
		writeServiceError(r.Context(), w, h.logger, "forgot password", err)
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, dto.MessageResponse{Message: "Password reset link sent to email."})
}

// ResetPassword sets a new password using an emailed token
// @Summary Reset password
// @Description Replace the password using the token from the reset link. The token is consumed on success.
// @Tags authentication
// @Accept json
// @Produce json
// @Param token path string true "Reset token"
// @Param request body dto.ResetPasswordRequest true "New password"
// @Success 200 {object} dto.MessageResponse "Password reset successful!"
// @Failure 400 {object} dto.ErrorResponse "Invalid or expired token, or weak password"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/auth/reset-password/{token} [post]
func (h *PasswordResetHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.resets.ResetPassword(r.Context(), r.PathValue("token"), req.NewPassword); err != nil {
		writeServiceError(r.Context(), w, h.logger, "reset password", err)
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, dto.MessageResponse{Message: "Password reset successful!"})
}
