package dto

import "REFERRAL_AUTH_BACK-END/internal/apperror"

// RegisterRequest represents the request payload for user registration
type RegisterRequest struct {
	Username     string `json:"username" example:"alice"`
	Email        string `json:"email" example:"alice@example.com"`
	Password     string `json:"password" example:"Secret@123"`
	ReferralCode string `json:"referralCode,omitempty" example:"bob"`
}

// RegisterResponse represents the response after successful registration
type RegisterResponse struct {
	Message      string `json:"message" example:"User registered successfully"`
	ReferralLink string `json:"referralLink" example:"https://yourdomain.com/signup?ref=alice"`
}

// LoginRequest represents the request payload for user login
type LoginRequest struct {
	EmailOrUsername string `json:"emailOrUsername" example:"alice"`
	Password        string `json:"password" example:"Secret@123"`
}

// LoginResponse represents the response after successful authentication
type LoginResponse struct {
	Message string       `json:"message" example:"Login successful"`
	Token   string       `json:"token"`
	User    UserResponse `json:"user"`
}

// UserResponse represents user data in API responses
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ForgotPasswordRequest represents the request payload for a password reset link
type ForgotPasswordRequest struct {
	Email string `json:"email" example:"alice@example.com"`
}

// ResetPasswordRequest represents the request payload for completing a reset
type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword" example:"NewSecret@456"`
}

// MessageResponse is a plain confirmation
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response. Errors lists every violated
// field rule of a rejected request.
type ErrorResponse struct {
	Message string                `json:"message,omitempty"`
	Errors  []apperror.FieldError `json:"errors,omitempty"`
}
