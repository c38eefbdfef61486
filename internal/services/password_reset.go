package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"

	"REFERRAL_AUTH_BACK-END/internal/apperror"
	"REFERRAL_AUTH_BACK-END/internal/auth"
	"REFERRAL_AUTH_BACK-END/internal/config"
	"REFERRAL_AUTH_BACK-END/internal/logging"
	"REFERRAL_AUTH_BACK-END/internal/mailer"
	"REFERRAL_AUTH_BACK-END/internal/metrics"
	"REFERRAL_AUTH_BACK-END/internal/store"
	"REFERRAL_AUTH_BACK-END/internal/validation"
)

// PasswordResetService runs the emailed one-time token workflow.
//
// Only the SHA-256 digest of a token is stored. Requesting a new token
// overwrites the pending one, so only the latest emailed link works.
type PasswordResetService struct {
	users    store.UserRepository
	hasher   auth.PasswordHasher
	mail     mailer.Mailer
	tokenTTL time.Duration
	linkURL  string
	now      func() time.Time
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewPasswordResetService creates a new PasswordResetService.
func NewPasswordResetService(
	users store.UserRepository,
	hasher auth.PasswordHasher,
	mail mailer.Mailer,
	cfg *config.ResetConfig,
	m *metrics.Metrics,
	logger *slog.Logger,
) *PasswordResetService {
	return &PasswordResetService{
		users:    users,
		hasher:   hasher,
		mail:     mail,
		tokenTTL: cfg.TokenTTL,
		linkURL:  strings.TrimRight(cfg.LinkURL, "/"),
		now:      time.Now,
		metrics:  m,
		logger:   logger,
	}
}

// WithClock returns a copy of the service that reads time from now.
func (s *PasswordResetService) WithClock(now func() time.Time) *PasswordResetService {
	cp := *s
	cp.now = now
	return &cp
}

// RequestReset issues a reset token for the user owning email and mails the
// reset link. An unknown email yields apperror.ErrNotFound and no token.
//
// The token is persisted before the mail is sent; a mail failure is
// returned but does not roll the token back.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	email, err := validation.Email(email)
	if err != nil {
		s.record(metrics.EventResetRequest, err)
		return err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		s.record(metrics.EventResetRequest, err)
		return err
	}

	token, digest, err := auth.GenerateResetToken()
	if err != nil {
		s.record(metrics.EventResetRequest, err)
		return err
	}

	expiresAt := s.now().Add(s.tokenTTL)
	if err := s.users.SetResetToken(ctx, user.ID, digest, expiresAt); err != nil {
		s.record(metrics.EventResetRequest, err)
		return err
	}

	body, err := mailer.PasswordResetEmail(s.linkURL+"/"+token, s.tokenTTL)
	if err != nil {
		s.record(metrics.EventResetRequest, err)
		return err
	}

	if err := s.mail.Send(ctx, user.Email, mailer.PasswordResetSubject, body); err != nil {
		s.record(metrics.EventResetRequest, err)
		logging.LogError(ctx, s.logger, "reset email not delivered", err, "user_id", user.ID)
		return oops.Code("RESET_MAIL_FAILED").With("user_id", user.ID).Wrap(err)
	}

	s.record(metrics.EventResetRequest, nil)
	s.logger.InfoContext(ctx, "password reset requested", "user_id", user.ID, "expires_at", expiresAt)
	return nil
}

// ResetPassword replaces the password of the user holding token and consumes
// the token. Unknown, consumed and expired tokens all yield
// apperror.ErrTokenInvalid.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validation.NewPassword(newPassword); err != nil {
		s.record(metrics.EventResetComplete, err)
		return err
	}

	token = strings.TrimSpace(token)
	if token == "" {
		s.record(metrics.EventResetComplete, apperror.ErrTokenInvalid)
		return oops.Code("RESET_TOKEN_INVALID").Wrap(apperror.ErrTokenInvalid)
	}
	digest := auth.HashResetToken(token)

	user, err := s.users.FindByResetTokenHash(ctx, digest, s.now())
	if errors.Is(err, apperror.ErrNotFound) {
		s.record(metrics.EventResetComplete, apperror.ErrTokenInvalid)
		return oops.Code("RESET_TOKEN_INVALID").Wrap(apperror.ErrTokenInvalid)
	}
	if err != nil {
		s.record(metrics.EventResetComplete, err)
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		s.record(metrics.EventResetComplete, err)
		return oops.Code("RESET_HASH_FAILED").With("user_id", user.ID).Wrap(err)
	}

	// The write re-checks token and expiry, so a concurrent completion or a
	// token expiring during hashing cannot succeed twice.
	if err := s.users.CompleteReset(ctx, user.ID, digest, hash, s.now()); err != nil {
		s.record(metrics.EventResetComplete, err)
		return err
	}

	s.record(metrics.EventResetComplete, nil)
	s.logger.InfoContext(ctx, "password reset completed", "user_id", user.ID)
	return nil
}

func (s *PasswordResetService) record(event string, err error) {
	s.metrics.RecordAuthEvent(event, outcome(err))
}
