// Package store persists users and the referral graph in PostgreSQL.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"REFERRAL_AUTH_BACK-END/internal/apperror"
	"REFERRAL_AUTH_BACK-END/internal/models"
)

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository is the credential store.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmailOrUsername(ctx context.Context, identifier string) (*models.User, error)
	FindByReferralCode(ctx context.Context, code string) (*models.User, error)
	FindByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	SetResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	CompleteReset(ctx context.Context, userID uuid.UUID, tokenHash, passwordHash string, now time.Time) error
	CountReferrals(ctx context.Context, referrerID uuid.UUID) (int, error)
	ListReferrals(ctx context.Context, referrerID uuid.UUID) ([]models.Referral, error)
}

// constraintFields maps unique constraints to the request field they guard.
// The referral code always equals the username.
var constraintFields = map[string]string{
	"users_email_key":         "email",
	"users_username_key":      "username",
	"users_referral_code_key": "username",
}

const userColumns = `id, username, email, password_hash, referral_code, referred_by,
	reset_password_token, reset_password_expires, created_at`

// PostgresUserRepository implements UserRepository using PostgreSQL.
type PostgresUserRepository struct {
	db DBTX
}

// NewPostgresUserRepository creates a new PostgresUserRepository.
func NewPostgresUserRepository(db DBTX) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// Create inserts a user. A unique violation is reported as *apperror.ConflictError.
func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO users (id, username, email, password_hash, referral_code, referred_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.ReferralCode, user.ReferredBy,
	).Scan(&user.CreatedAt)
	if err != nil {
		if conflict := conflictFromPgError(err); conflict != nil {
			return oops.Code("USER_CONFLICT").With("field", conflict.Field).Wrap(conflict)
		}
		return oops.Code("USER_CREATE_FAILED").With("username", user.Username).Wrap(err)
	}
	return nil
}

// FindByEmail returns the user with the given email.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "find user by email", `WHERE email = $1`, email)
}

// FindByUsername returns the user with the given username.
func (r *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "find user by username", `WHERE username = $1`, username)
}

// FindByEmailOrUsername returns the user whose email or username equals identifier.
func (r *PostgresUserRepository) FindByEmailOrUsername(ctx context.Context, identifier string) (*models.User, error) {
	return r.findOne(ctx, "find user by login", `WHERE email = $1 OR username = $1 LIMIT 1`, identifier)
}

// FindByReferralCode returns the user owning the referral code.
func (r *PostgresUserRepository) FindByReferralCode(ctx context.Context, code string) (*models.User, error) {
	return r.findOne(ctx, "find user by referral code", `WHERE referral_code = $1`, code)
}

// FindByResetTokenHash returns the user holding the token digest, provided its
// expiry is strictly after now. Expired and unknown tokens both yield ErrNotFound.
func (r *PostgresUserRepository) FindByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	return r.findOne(ctx, "find user by reset token",
		`WHERE reset_password_token = $1 AND reset_password_expires > $2`, tokenHash, now)
}

// SetResetToken stores a reset token digest, replacing any pending one.
func (r *PostgresUserRepository) SetResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET reset_password_token = $2, reset_password_expires = $3 WHERE id = $1`,
		userID, tokenHash, expiresAt)
	if err != nil {
		return oops.Code("RESET_TOKEN_STORE_FAILED").With("user_id", userID).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("user_id", userID).Wrap(apperror.ErrNotFound)
	}
	return nil
}

// CompleteReset swaps in the new password hash and clears the token in one
// conditional write. If the token was consumed, replaced or expired in the
// meantime nothing is written and ErrTokenInvalid is returned.
func (r *PostgresUserRepository) CompleteReset(ctx context.Context, userID uuid.UUID, tokenHash, passwordHash string, now time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users
		 SET password_hash = $3, reset_password_token = NULL, reset_password_expires = NULL
		 WHERE id = $1 AND reset_password_token = $2 AND reset_password_expires > $4`,
		userID, tokenHash, passwordHash, now)
	if err != nil {
		return oops.Code("RESET_COMPLETE_FAILED").With("user_id", userID).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("RESET_TOKEN_INVALID").With("user_id", userID).Wrap(apperror.ErrTokenInvalid)
	}
	return nil
}

// CountReferrals returns how many users were referred by referrerID.
func (r *PostgresUserRepository) CountReferrals(ctx context.Context, referrerID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE referred_by = $1`, referrerID).Scan(&count)
	if err != nil {
		return 0, oops.Code("REFERRAL_COUNT_FAILED").With("user_id", referrerID).Wrap(err)
	}
	return count, nil
}

// ListReferrals returns the public projection of every user referred by referrerID.
func (r *PostgresUserRepository) ListReferrals(ctx context.Context, referrerID uuid.UUID) ([]models.Referral, error) {
	rows, err := r.db.Query(ctx,
		`SELECT username, email, created_at FROM users WHERE referred_by = $1 ORDER BY created_at, id`,
		referrerID)
	if err != nil {
		return nil, oops.Code("REFERRAL_LIST_FAILED").With("user_id", referrerID).Wrap(err)
	}
	defer rows.Close()

	referrals := []models.Referral{}
	for rows.Next() {
		var ref models.Referral
		if err := rows.Scan(&ref.Username, &ref.Email, &ref.CreatedAt); err != nil {
			return nil, oops.Code("REFERRAL_LIST_FAILED").With("user_id", referrerID).Wrap(err)
		}
		referrals = append(referrals, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("REFERRAL_LIST_FAILED").With("user_id", referrerID).Wrap(err)
	}
	return referrals, nil
}

func (r *PostgresUserRepository) findOne(ctx context.Context, operation, where string, args ...any) (*models.User, error) {
	var u models.User
	err := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users `+where, args...).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.ReferralCode, &u.ReferredBy,
		&u.ResetPasswordToken, &u.ResetPasswordExpires, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("operation", operation).Wrap(apperror.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_QUERY_FAILED").With("operation", operation).Wrap(err)
	}
	return &u, nil
}

// conflictFromPgError returns a ConflictError when err is a unique violation
// on one of the users constraints.
func conflictFromPgError(err error) *apperror.ConflictError {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return nil
	}
	field, ok := constraintFields[pgErr.ConstraintName]
	if !ok {
		field = "user"
	}
	return &apperror.ConflictError{Field: field}
}
