package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"REFERRAL_AUTH_BACK-END/internal/apperror"
	"REFERRAL_AUTH_BACK-END/internal/logging"
	"REFERRAL_AUTH_BACK-END/internal/middleware"
	"REFERRAL_AUTH_BACK-END/internal/utils"
)

// Client-facing messages.
const (
	msgInvalidBody        = "Invalid request body"
	msgInvalidCredentials = "Invalid email/username or password"
	msgSelfReferral       = "You cannot refer yourself."
	msgUserNotFound       = "User not found"
	msgInvalidResetToken  = "Invalid or expired token"
	msgUnauthorized       = "Unauthorized"
	msgInternal           = "Internal server error"
)

// writeServiceError maps the service error taxonomy to a status code and body.
// Anything unrecognised is logged and answered with a generic 500.
func writeServiceError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	var verr *apperror.ValidationError
	var conflict *apperror.ConflictError

	switch {
	case errors.As(err, &verr):
		utils.WriteValidationErrorResponse(w, verr.Fields)
	case errors.As(err, &conflict):
		utils.WriteErrorResponse(w, http.StatusBadRequest, conflictMessage(conflict.Field))
	case errors.Is(err, apperror.ErrSelfReferral):
		utils.WriteErrorResponse(w, http.StatusBadRequest, msgSelfReferral)
	case errors.Is(err, apperror.ErrInvalidCredentials):
		utils.WriteErrorResponse(w, http.StatusBadRequest, msgInvalidCredentials)
	case errors.Is(err, apperror.ErrTokenInvalid), errors.Is(err, apperror.ErrTokenExpired):
		utils.WriteErrorResponse(w, http.StatusBadRequest, msgInvalidResetToken)
	case errors.Is(err, apperror.ErrNotFound):
		utils.WriteErrorResponse(w, http.StatusNotFound, msgUserNotFound)
	default:
		logging.LogError(ctx, logger, op+" failed", err, "request_id", middleware.RequestIDFromContext(ctx))
		utils.WriteErrorResponse(w, http.StatusInternalServerError, msgInternal)
	}
}

func conflictMessage(field string) string {
	switch field {
	case "email":
		return "Email already exists"
	case "username":
		return "Username already exists"
	default:
		return "User already exists"
	}
}
