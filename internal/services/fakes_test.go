package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"REFERRAL_AUTH_BACK-END/internal/apperror"
	"REFERRAL_AUTH_BACK-END/internal/auth"
	"REFERRAL_AUTH_BACK-END/internal/models"
)

// memStore is an in-memory UserRepository with the same uniqueness and
// expiry rules as the PostgreSQL store.
type memStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
	clock func() time.Time

	// createErr, when set, is returned by Create instead of inserting.
	createErr error
}

func newMemStore() *memStore {
	return &memStore{users: map[uuid.UUID]*models.User{}, clock: time.Now}
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *memStore) get(id uuid.UUID) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.users[id]
}

func (s *memStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return s.createErr
	}
	for _, u := range s.users {
		switch {
		case u.Email == user.Email:
			return &apperror.ConflictError{Field: "email"}
		case u.Username == user.Username, u.ReferralCode == user.ReferralCode:
			return &apperror.ConflictError{Field: "username"}
		}
	}

	user.CreatedAt = s.clock()
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *memStore) find(match func(u *models.User) bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.ErrNotFound
}

func (s *memStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.Email == email })
}

func (s *memStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.Username == username })
}

func (s *memStore) FindByEmailOrUsername(_ context.Context, identifier string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.Email == identifier || u.Username == identifier })
}

func (s *memStore) FindByReferralCode(_ context.Context, code string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.ReferralCode == code })
}

func (s *memStore) FindByResetTokenHash(_ context.Context, tokenHash string, now time.Time) (*models.User, error) {
	return s.find(func(u *models.User) bool {
		return u.ResetPasswordToken != nil && *u.ResetPasswordToken == tokenHash && u.HasPendingReset(now)
	})
}

func (s *memStore) SetResetToken(_ context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return apperror.ErrNotFound
	}
	u.ResetPasswordToken = &tokenHash
	u.ResetPasswordExpires = &expiresAt
	return nil
}

func (s *memStore) CompleteReset(_ context.Context, userID uuid.UUID, tokenHash, passwordHash string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok || u.ResetPasswordToken == nil || *u.ResetPasswordToken != tokenHash || !u.HasPendingReset(now) {
		return apperror.ErrTokenInvalid
	}
	u.PasswordHash = passwordHash
	u.ResetPasswordToken = nil
	u.ResetPasswordExpires = nil
	return nil
}

func (s *memStore) referred(referrerID uuid.UUID) []*models.User {
	var out []*models.User
	for _, u := range s.users {
		if u.ReferredBy != nil && *u.ReferredBy == referrerID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *memStore) CountReferrals(_ context.Context, referrerID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.referred(referrerID)), nil
}

func (s *memStore) ListReferrals(_ context.Context, referrerID uuid.UUID) ([]models.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Referral{}
	for _, u := range s.referred(referrerID) {
		out = append(out, models.Referral{Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt})
	}
	return out, nil
}

type fakeIssuer struct {
	err error
}

func (f fakeIssuer) Issue(userID uuid.UUID) (string, time.Time, error) {
	if f.err != nil {
		return "", time.Time{}, f.err
	}
	return "token-" + userID.String(), time.Now().Add(time.Hour), nil
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	args := m.Called(ctx, to, subject, htmlBody)
	return args.Error(0)
}

func testHasher() *auth.BcryptHasher {
	return auth.NewBcryptHasher(bcrypt.MinCost)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
