package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"REFERRAL_AUTH_BACK-END/internal/dto"
	"REFERRAL_AUTH_BACK-END/internal/services"
	"REFERRAL_AUTH_BACK-END/internal/utils"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// AuthService is the registration and login workflow used by AuthHandler.
type AuthService interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.RegisterResult, error)
	Login(ctx context.Context, emailOrUsername, password string) (*services.LoginResult, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	auth   AuthService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(auth AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// Register handles user registration
// @Summary Register a new user
// @Description Create an account. The new user's referral code is their username; an optional referralCode links the account to its referrer.
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "User registration data"
// @Success 201 {object} dto.RegisterResponse "User registered successfully"
// @Failure 400 {object} dto.ErrorResponse "Validation failure, duplicate email/username or self-referral"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.auth.Register(r.Context(), services.RegisterInput{
		Username:     req.Username,
		Email:        req.Email,
		Password:     req.Password,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, "register", err)
		return
	}

	utils.WriteJSONResponse(w, http.StatusCreated, dto.RegisterResponse{
		Message:      "User registered successfully",
		ReferralLink: res.ReferralLink,
	})
}

// Login handles user login
// @Summary Login user
// @Description Authenticate with email or username and password; returns a bearer token valid for one hour
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.LoginResponse "Login successful"
// @Failure 400 {object} dto.ErrorResponse "Invalid email/username or password"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.auth.Login(r.Context(), req.EmailOrUsername, req.Password)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, "login", err)
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, dto.LoginResponse{
		Message: "Login successful",
		Token:   res.Token,
		User: dto.UserResponse{
			ID:       res.User.ID.String(),
			Username: res.User.Username,
			Email:    res.User.Email,
		},
	})
}

// decodeJSON decodes the request body into dst, answering 400 on malformed JSON.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, msgInvalidBody)
		return false
	}
	return true
}
