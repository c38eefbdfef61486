package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/samber/oops"

	"REFERRAL_AUTH_BACK-END/internal/apperror"
	"REFERRAL_AUTH_BACK-END/internal/config"
)

// Claims represents the claims in the bearer token
type Claims struct {
	UserID uuid.UUID `json:"id"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 bearer tokens carrying a user id.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer from the process-wide JWT configuration.
func NewTokenIssuer(cfg *config.JWTConfig) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.AccessTokenTTL,
		now:    time.Now,
	}
}

// WithClock returns a copy of the issuer that reads time from now.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	cp := *i
	cp.now = now
	return &cp
}

// TTL returns how long issued tokens stay valid.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue generates a signed token for the given user and returns it with its expiry.
func (i *TokenIssuer) Issue(userID uuid.UUID) (string, time.Time, error) {
	if userID == uuid.Nil {
		return "", time.Time{}, oops.Code("TOKEN_ISSUE_FAILED").Errorf("user id is required")
	}

	now := i.now()
	expiresAt := now.Add(i.ttl)
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, oops.Code("TOKEN_ISSUE_FAILED").Wrap(err)
	}
	return signed, expiresAt, nil
}

// Verify validates a token and returns its claims. Expired tokens yield
// apperror.ErrTokenExpired; every other failure yields apperror.ErrTokenInvalid.
func (i *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, oops.Code("TOKEN_INVALID").Wrap(apperror.ErrTokenInvalid)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return i.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, oops.Code("TOKEN_EXPIRED").Wrap(apperror.ErrTokenExpired)
		}
		return nil, oops.Code("TOKEN_INVALID").With("reason", err.Error()).Wrap(apperror.ErrTokenInvalid)
	}

	if !token.Valid || claims.UserID == uuid.Nil || claims.Subject != claims.UserID.String() {
		return nil, oops.Code("TOKEN_INVALID").Wrap(apperror.ErrTokenInvalid)
	}
	return claims, nil
}
