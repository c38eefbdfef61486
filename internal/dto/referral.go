package dto

// ReferralStatsResponse represents the referral count of the caller
type ReferralStatsResponse struct {
	TotalReferrals int `json:"totalReferrals" example:"3"`
}

// ReferralResponse represents one referred user
type ReferralResponse struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt" example:"2026-01-02T15:04:05Z"`
}
