package utils

import (
	"encoding/json"
	"net/http"

	"REFERRAL_AUTH_BACK-END/internal/apperror"
	"REFERRAL_AUTH_BACK-END/internal/dto"
)

// WriteJSONResponse writes a JSON response to the HTTP response writer
func WriteJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteErrorResponse writes {"message": ...} with the given status
func WriteErrorResponse(w http.ResponseWriter, status int, message string) {
	WriteJSONResponse(w, status, dto.ErrorResponse{Message: message})
}

// WriteValidationErrorResponse writes a 400 listing every violated field rule
func WriteValidationErrorResponse(w http.ResponseWriter, fields []apperror.FieldError) {
	WriteJSONResponse(w, http.StatusBadRequest, dto.ErrorResponse{Errors: fields})
}
