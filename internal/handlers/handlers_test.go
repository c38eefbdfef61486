package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"REFERRAL_AUTH_BACK-END/internal/apperror"
	"REFERRAL_AUTH_BACK-END/internal/middleware"
	"REFERRAL_AUTH_BACK-END/internal/models"
	"REFERRAL_AUTH_BACK-END/internal/services"
)

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Register(ctx context.Context, in services.RegisterInput) (*services.RegisterResult, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*services.RegisterResult)
	return res, args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, emailOrUsername, password string) (*services.LoginResult, error) {
	args := m.Called(ctx, emailOrUsername, password)
	res, _ := args.Get(0).(*services.LoginResult)
	return res, args.Error(1)
}

type mockResetService struct {
	mock.Mock
}

func (m *mockResetService) RequestReset(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	return m.Called(ctx, token, newPassword).Error(0)
}

type mockReferralService struct {
	mock.Mock
}

func (m *mockReferralService) Stats(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockReferralService) List(ctx context.Context, userID uuid.UUID) ([]models.Referral, error) {
	args := m.Called(ctx, userID)
	refs, _ := args.Get(0).([]models.Referral)
	return refs, args.Error(1)
}

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(context.Context) error { return p.err }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func post(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAuthHandler_Register(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "created",
			body:       `{"username":"alice","email":"alice@example.com","password":"Secret@123"}`,
			wantStatus: http.StatusCreated,
			wantBody:   `{"message":"User registered successfully","referralLink":"https://yourdomain.com/signup?ref=alice"}`,
		},
		{
			name: "validation errors",
			body: `{"username":"a","email":"x","password":"p"}`,
			serviceErr: &apperror.ValidationError{Fields: []apperror.FieldError{
				{Field: "email", Message: "Invalid email format"},
				{Field: "username", Message: "Username must be at least 3 characters long"},
			}},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"errors":[{"field":"email","message":"Invalid email format"},{"field":"username","message":"Username must be at least 3 characters long"}]}`,
		},
		{
			name:       "duplicate email",
			body:       `{"username":"alice","email":"alice@example.com","password":"Secret@123"}`,
			serviceErr: oops.Code("USER_CONFLICT").Wrap(&apperror.ConflictError{Field: "email"}),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"message":"Email already exists"}`,
		},
		{
			name:       "duplicate username",
			body:       `{"username":"alice","email":"alice@example.com","password":"Secret@123"}`,
			serviceErr: &apperror.ConflictError{Field: "username"},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"message":"Username already exists"}`,
		},
		{
			name:       "self referral",
			body:       `{"username":"alice","email":"alice@example.com","password":"Secret@123","referralCode":"alice"}`,
			serviceErr: oops.Code("SELF_REFERRAL").Wrap(apperror.ErrSelfReferral),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"message":"You cannot refer yourself."}`,
		},
		{
			name:       "store failure is generic",
			body:       `{"username":"alice","email":"alice@example.com","password":"Secret@123"}`,
			serviceErr: errors.New("pq: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"message":"Internal server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{}
			var result *services.RegisterResult
			if tt.serviceErr == nil {
				result = &services.RegisterResult{ReferralLink: "https://yourdomain.com/signup?ref=alice"}
			}
			svc.On("Register", mock.Anything, mock.AnythingOfType("services.RegisterInput")).Return(result, tt.serviceErr)

			rec := httptest.NewRecorder()
			NewAuthHandler(svc, testLogger()).Register(rec, post(tt.body))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			svc.AssertExpectations(t)
		})
	}
}

func TestAuthHandler_RegisterPassesFields(t *testing.T) {
	svc := &mockAuthService{}
	svc.On("Register", mock.Anything, services.RegisterInput{
		Username: "bob", Email: "bob@example.com", Password: "Secret@123", ReferralCode: "alice",
	}).Return(&services.RegisterResult{ReferralLink: "x"}, nil)

	rec := httptest.NewRecorder()
	NewAuthHandler(svc, testLogger()).Register(rec,
		post(`{"username":"bob","email":"bob@example.com","password":"Secret@123","referralCode":"alice"}`))

	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestAuthHandler_MalformedBody(t *testing.T) {
	svc := &mockAuthService{}
	h := NewAuthHandler(svc, testLogger())

	for _, fn := range []http.HandlerFunc{h.Register, h.Login} {
		rec := httptest.NewRecorder()
		fn(rec, post(`{not json`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"message":"Invalid request body"}`, rec.Body.String())
	}
	svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
	svc.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthHandler_Login(t *testing.T) {
	userID := uuid.New()
	svc := &mockAuthService{}
	svc.On("Login", mock.Anything, "alice", "Secret@123").Return(&services.LoginResult{
		Token:     "signed.jwt.token",
		ExpiresAt: time.Now().Add(time.Hour),
		User:      &models.User{ID: userID, Username: "alice", Email: "alice@example.com", PasswordHash: "$2a$10$secret"},
	}, nil)
	svc.On("Login", mock.Anything, "alice", "wrong").Return(nil, apperror.ErrInvalidCredentials)

	h := NewAuthHandler(svc, testLogger())

	rec := httptest.NewRecorder()
	h.Login(rec, post(`{"emailOrUsername":"alice","password":"Secret@123"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Login successful","token":"signed.jwt.token","user":{"id":"`+userID.String()+`","username":"alice","email":"alice@example.com"}}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "$2a$")

	rec = httptest.NewRecorder()
	h.Login(rec, post(`{"emailOrUsername":"alice","password":"wrong"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"Invalid email/username or password"}`, rec.Body.String())
}

func TestPasswordResetHandler_ForgotPassword(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
		wantBody   string
	}{
		{"sent", nil, http.StatusOK, `{"message":"Password reset link sent to email."}`},
		{"unknown email", apperror.ErrNotFound, http.StatusNotFound, `{"message":"User not found"}`},
		{"mail failure", oops.Code("RESET_MAIL_FAILED").Errorf("smtp down"), http.StatusInternalServerError, `{"message":"Internal server error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockResetService{}
			svc.On("RequestReset", mock.Anything, "alice@example.com").Return(tt.serviceErr)

			rec := httptest.NewRecorder()
			NewPasswordResetHandler(svc, testLogger()).ForgotPassword(rec, post(`{"email":"alice@example.com"}`))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestPasswordResetHandler_ResetPassword(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
		wantBody   string
	}{
		{"reset", nil, http.StatusOK, `{"message":"Password reset successful!"}`},
		{"invalid token", apperror.ErrTokenInvalid, http.StatusBadRequest, `{"message":"Invalid or expired token"}`},
		{"expired token", apperror.ErrTokenExpired, http.StatusBadRequest, `{"message":"Invalid or expired token"}`},
		{
			"weak password",
			&apperror.ValidationError{Fields: []apperror.FieldError{{Field: "newPassword", Message: "Password must contain at least one number"}}},
			http.StatusBadRequest,
			`{"errors":[{"field":"newPassword","message":"Password must contain at least one number"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockResetService{}
			svc.On("ResetPassword", mock.Anything, "abc123", "NewSecret@456").Return(tt.serviceErr)

			req := post(`{"newPassword":"NewSecret@456"}`)
			req.SetPathValue("token", "abc123")
			rec := httptest.NewRecorder()
			NewPasswordResetHandler(svc, testLogger()).ResetPassword(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			svc.AssertExpectations(t)
		})
	}
}

func TestReferralHandler(t *testing.T) {
	userID := uuid.New()
	createdAt := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

	svc := &mockReferralService{}
	svc.On("Stats", mock.Anything, userID).Return(2, nil)
	svc.On("List", mock.Anything, userID).Return([]models.Referral{
		{Username: "bob", Email: "bob@example.com", CreatedAt: createdAt},
	}, nil)
	h := NewReferralHandler(svc, testLogger())

	authed := func() *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		return req.WithContext(middleware.WithUserID(req.Context(), userID))
	}

	rec := httptest.NewRecorder()
	h.Stats(rec, authed())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"totalReferrals":2}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.List(rec, authed())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"username":"bob","email":"bob@example.com","createdAt":"2026-01-02T15:04:05Z"}]`, rec.Body.String())
}

func TestReferralHandler_EmptyListAndUnauthenticated(t *testing.T) {
	userID := uuid.New()
	svc := &mockReferralService{}
	svc.On("List", mock.Anything, userID).Return([]models.Referral{}, nil)
	h := NewReferralHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req.WithContext(middleware.WithUserID(req.Context(), userID)))
	assert.JSONEq(t, `[]`, rec.Body.String())

	for _, fn := range []http.HandlerFunc{h.Stats, h.List} {
		rec := httptest.NewRecorder()
		fn(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(fakePinger{}, testLogger()).ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready","details":{"db":"ok"}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	NewHealthHandler(fakePinger{err: errors.New("dial tcp: refused")}, testLogger()).
		ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "refused")

	rec = httptest.NewRecorder()
	NewHealthHandler(fakePinger{}, testLogger()).LivenessCheck(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}

func TestConflictMessage(t *testing.T) {
	require.Equal(t, "Email already exists", conflictMessage("email"))
	require.Equal(t, "Username already exists", conflictMessage("username"))
	require.Equal(t, "User already exists", conflictMessage("user"))
}
