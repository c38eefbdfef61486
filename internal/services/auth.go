// Package services holds the registration, login, password reset and
// referral workflows on top of the credential store.
package services

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"REFERRAL_AUTH_BACK-END/internal/apperror"
	"REFERRAL_AUTH_BACK-END/internal/auth"
	"REFERRAL_AUTH_BACK-END/internal/metrics"
	"REFERRAL_AUTH_BACK-END/internal/models"
	"REFERRAL_AUTH_BACK-END/internal/store"
	"REFERRAL_AUTH_BACK-END/internal/validation"
)

// TokenIssuer signs bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID uuid.UUID) (string, time.Time, error)
}

// RegisterInput carries the raw registration fields.
type RegisterInput struct {
	Username     string
	Email        string
	Password     string
	ReferralCode string
}

// RegisterResult is returned after a user was created.
type RegisterResult struct {
	User         *models.User
	ReferralLink string
}

// LoginResult is returned after a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// AuthService registers users and logs them in.
type AuthService struct {
	users     store.UserRepository
	validator *validation.Validator
	hasher    auth.PasswordHasher
	tokens    TokenIssuer
	signupURL string
	metrics   *metrics.Metrics
	logger    *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	users store.UserRepository,
	hasher auth.PasswordHasher,
	tokens TokenIssuer,
	signupURL string,
	m *metrics.Metrics,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		validator: validation.NewValidator(users),
		hasher:    hasher,
		tokens:    tokens,
		signupURL: signupURL,
		metrics:   m,
		logger:    logger,
	}
}

// Register validates the input, rejects self-referral and duplicates, and
// creates the user with referralCode equal to the username.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	reg, err := s.validator.Registration(ctx, in.Username, in.Email, in.Password, in.ReferralCode)
	if err != nil {
		s.record(metrics.EventRegister, err)
		return nil, err
	}

	if reg.ReferralCode != "" && reg.ReferralCode == reg.Username {
		s.record(metrics.EventRegister, apperror.ErrSelfReferral)
		return nil, oops.Code("SELF_REFERRAL").With("username", reg.Username).Wrap(apperror.ErrSelfReferral)
	}

	if err := s.ensureAvailable(ctx, "email", reg.Email, s.users.FindByEmail); err != nil {
		s.record(metrics.EventRegister, err)
		return nil, err
	}
	if err := s.ensureAvailable(ctx, "username", reg.Username, s.users.FindByUsername); err != nil {
		s.record(metrics.EventRegister, err)
		return nil, err
	}

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		s.record(metrics.EventRegister, err)
		return nil, oops.Code("REGISTER_HASH_FAILED").Wrap(err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: hash,
		ReferralCode: reg.Username,
	}
	if reg.Referrer != nil {
		referrerID := reg.Referrer.ID
		user.ReferredBy = &referrerID
	}

	// A concurrent registration can still win the race between the checks
	// above and this insert; the unique constraints turn that into a conflict.
	if err := s.users.Create(ctx, user); err != nil {
		s.record(metrics.EventRegister, err)
		return nil, err
	}

	s.record(metrics.EventRegister, nil)
	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID,
		"username", user.Username,
		"referred", user.ReferredBy != nil,
	)

	return &RegisterResult{User: user, ReferralLink: ReferralLink(s.signupURL, user.ReferralCode)}, nil
}

// Login authenticates by email or username. Unknown identifiers and wrong
// passwords both yield apperror.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, emailOrUsername, password string) (*LoginResult, error) {
	login, err := s.validator.Login(emailOrUsername, password)
	if err != nil {
		s.record(metrics.EventLogin, err)
		return nil, err
	}

	user, err := s.users.FindByEmailOrUsername(ctx, login.EmailOrUsername)
	if errors.Is(err, apperror.ErrNotFound) {
		// Spend the same bcrypt work as a real comparison.
		_, _ = s.hasher.Verify(login.Password, s.dummy())
		s.record(metrics.EventLogin, apperror.ErrInvalidCredentials)
		return nil, oops.Code("LOGIN_REJECTED").Wrap(apperror.ErrInvalidCredentials)
	}
	if err != nil {
		s.record(metrics.EventLogin, err)
		return nil, err
	}

	ok, err := s.hasher.Verify(login.Password, user.PasswordHash)
	if err != nil {
		s.record(metrics.EventLogin, err)
		return nil, oops.Code("LOGIN_VERIFY_FAILED").With("user_id", user.ID).Wrap(err)
	}
	if !ok {
		s.record(metrics.EventLogin, apperror.ErrInvalidCredentials)
		return nil, oops.Code("LOGIN_REJECTED").With("user_id", user.ID).Wrap(apperror.ErrInvalidCredentials)
	}

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.record(metrics.EventLogin, err)
		return nil, err
	}

	s.record(metrics.EventLogin, nil)
	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID)

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// ReferralLink builds the public signup link for a referral code.
func ReferralLink(signupURL, code string) string {
	return signupURL + "?ref=" + url.QueryEscape(code)
}

func (s *AuthService) ensureAvailable(
	ctx context.Context,
	field, value string,
	find func(context.Context, string) (*models.User, error),
) error {
	_, err := find(ctx, value)
	switch {
	case err == nil:
		return oops.Code("USER_CONFLICT").With("field", field).Wrap(&apperror.ConflictError{Field: field})
	case errors.Is(err, apperror.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(uuid.NewString())
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

func (s *AuthService) record(event string, err error) {
	s.metrics.RecordAuthEvent(event, outcome(err))
}

// outcome classifies an error as a client rejection or a server failure.
func outcome(err error) string {
	var verr *apperror.ValidationError
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.As(err, &verr),
		errors.Is(err, apperror.ErrConflict),
		errors.Is(err, apperror.ErrSelfReferral),
		errors.Is(err, apperror.ErrInvalidCredentials),
		errors.Is(err, apperror.ErrNotFound),
		errors.Is(err, apperror.ErrTokenInvalid),
		errors.Is(err, apperror.ErrTokenExpired):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}
