package services

import (
	"context"

	"github.com/google/uuid"

	"REFERRAL_AUTH_BACK-END/internal/models"
	"REFERRAL_AUTH_BACK-END/internal/store"
)

// ReferralService answers queries about the users a caller referred.
type ReferralService struct {
	users store.UserRepository
}

// NewReferralService creates a new ReferralService.
func NewReferralService(users store.UserRepository) *ReferralService {
	return &ReferralService{users: users}
}

// Stats returns how many users were referred by userID.
func (s *ReferralService) Stats(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.users.CountReferrals(ctx, userID)
}

// List returns username, email and creation time of every user referred by userID.
func (s *ReferralService) List(ctx context.Context, userID uuid.UUID) ([]models.Referral, error) {
	return s.users.ListReferrals(ctx, userID)
}
