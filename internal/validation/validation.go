// Package validation checks inbound request fields before any mutation.
// Every rule is evaluated and all violations are returned together.
package validation

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"

	"REFERRAL_AUTH_BACK-END/internal/apperror"
	"REFERRAL_AUTH_BACK-END/internal/models"
)

// Rules
const (
	MinPasswordLength = 8
	// MaxPasswordBytes is the longest input bcrypt accepts.
	MaxPasswordBytes  = 72
	MinUsernameLength = 3
	MaxEmailLength    = 254

	// PasswordSymbols is the punctuation set a password must draw at least one character from.
	PasswordSymbols = "@$!%*?&"
)

var (
	upperRe    = regexp.MustCompile(`[A-Z]`)
	lowerRe    = regexp.MustCompile(`[a-z]`)
	digitRe    = regexp.MustCompile(`[0-9]`)
	symbolRe   = regexp.MustCompile(`[` + regexp.QuoteMeta(PasswordSymbols) + `]`)
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
)

// ReferrerLookup resolves a referral code to its owner.
type ReferrerLookup interface {
	FindByReferralCode(ctx context.Context, code string) (*models.User, error)
}

// Registration is the normalized result of a successful registration check.
type Registration struct {
	Username     string
	Email        string
	Password     string
	ReferralCode string
	// Referrer is set when ReferralCode resolved to another user.
	Referrer *models.User
}

// Login is the normalized result of a successful login check.
type Login struct {
	EmailOrUsername string
	Password        string
}

// Validator runs the declarative rules; it needs read access to the store only
// to resolve referral codes.
type Validator struct {
	referrers ReferrerLookup
}

// NewValidator creates a Validator backed by the given referral code lookup.
func NewValidator(referrers ReferrerLookup) *Validator {
	return &Validator{referrers: referrers}
}

// Registration validates a registration request. It returns a
// *apperror.ValidationError listing every violated rule, or an internal error
// if the referral lookup itself failed.
//
// A referral code equal to the username is not looked up; rejecting it is the
// caller's decision.
func (v *Validator) Registration(ctx context.Context, username, email, password, referralCode string) (*Registration, error) {
	out := &Registration{
		Username:     strings.TrimSpace(username),
		Email:        strings.TrimSpace(email),
		Password:     password,
		ReferralCode: strings.TrimSpace(referralCode),
	}

	var fields []apperror.FieldError
	fields = append(fields, CheckEmail(out.Email)...)
	fields = append(fields, CheckPassword("password", out.Password)...)
	fields = append(fields, CheckUsername(out.Username)...)

	if out.ReferralCode != "" && out.ReferralCode != out.Username {
		referrer, err := v.referrers.FindByReferralCode(ctx, out.ReferralCode)
		switch {
		case err == nil:
			out.Referrer = referrer
		case errors.Is(err, apperror.ErrNotFound):
			fields = append(fields, apperror.FieldError{Field: "referralCode", Message: "Invalid referral code"})
		default:
			return nil, oops.Code("VALIDATION_LOOKUP_FAILED").
				With("operation", "FindByReferralCode").
				Wrap(err)
		}
	}

	if len(fields) > 0 {
		return nil, &apperror.ValidationError{Fields: fields}
	}
	return out, nil
}

// Login validates a login request.
func (v *Validator) Login(emailOrUsername, password string) (*Login, error) {
	out := &Login{EmailOrUsername: strings.TrimSpace(emailOrUsername), Password: password}

	var fields []apperror.FieldError
	if out.EmailOrUsername == "" {
		fields = append(fields, apperror.FieldError{Field: "emailOrUsername", Message: "Email or username is required"})
	}
	if out.Password == "" {
		fields = append(fields, apperror.FieldError{Field: "password", Message: "Password is required"})
	}

	if len(fields) > 0 {
		return nil, &apperror.ValidationError{Fields: fields}
	}
	return out, nil
}

// Email validates a lone email field, as used by the forgot-password request.
func Email(email string) (string, error) {
	email = strings.TrimSpace(email)
	if fields := CheckEmail(email); len(fields) > 0 {
		return "", &apperror.ValidationError{Fields: fields}
	}
	return email, nil
}

// NewPassword validates the replacement password of a reset.
func NewPassword(password string) error {
	if fields := CheckPassword("newPassword", password); len(fields) > 0 {
		return &apperror.ValidationError{Fields: fields}
	}
	return nil
}

// CheckEmail returns the violated email rules (at most one).
func CheckEmail(email string) []apperror.FieldError {
	if email == "" || len(email) > MaxEmailLength || !isEmail(email) {
		return []apperror.FieldError{{Field: "email", Message: "Invalid email format"}}
	}
	return nil
}

// CheckPassword returns every violated strength rule for the named field.
func CheckPassword(field, password string) []apperror.FieldError {
	var fields []apperror.FieldError
	add := func(msg string) {
		fields = append(fields, apperror.FieldError{Field: field, Message: msg})
	}

	if utf8.RuneCountInString(password) < MinPasswordLength {
		add(fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength))
	}
	if len(password) > MaxPasswordBytes {
		add(fmt.Sprintf("Password must be at most %d bytes", MaxPasswordBytes))
	}
	if !upperRe.MatchString(password) {
		add("Password must contain at least one uppercase letter")
	}
	if !lowerRe.MatchString(password) {
		add("Password must contain at least one lowercase letter")
	}
	if !digitRe.MatchString(password) {
		add("Password must contain at least one number")
	}
	if !symbolRe.MatchString(password) {
		add(fmt.Sprintf("Password must contain at least one special character (%s)", PasswordSymbols))
	}
	return fields
}

// CheckUsername returns every violated username rule.
func CheckUsername(username string) []apperror.FieldError {
	var fields []apperror.FieldError
	if utf8.RuneCountInString(username) < MinUsernameLength {
		fields = append(fields, apperror.FieldError{
			Field:   "username",
			Message: fmt.Sprintf("Username must be at least %d characters long", MinUsernameLength),
		})
	}
	if !usernameRe.MatchString(username) {
		fields = append(fields, apperror.FieldError{Field: "username", Message: "Username can only contain letters and numbers"})
	}
	return fields
}

// isEmail accepts a bare addr-spec whose domain has at least one dot.
func isEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}
