package auth

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher wraps bcrypt. Compare runs in constant time with respect to the candidate.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher uses bcrypt.DefaultCost when cost is zero.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Matches reports whether password hashes to hash.
func (h *PasswordHasher) Matches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// PasswordPolicy judges password strength. It returns one message per unmet rule.
type PasswordPolicy interface {
	Check(password string) []string
}

const (
	minPasswordLength = 8
	// bcrypt rejects longer inputs.
	maxPasswordBytes = 72
)

// StrengthPolicy requires a minimum length plus uppercase, digit and special characters.
type StrengthPolicy struct{}

func (StrengthPolicy) Check(password string) []string {
	var problems []string
	if len(password) < minPasswordLength {
		problems = append(problems, "password must be at least 8 characters")
	}
	if len(password) > maxPasswordBytes {
		problems = append(problems, "password must be at most 72 bytes")
	}

	var hasUpper, hasDigit, hasSpecial bool
	allDigits := password != ""
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
		if !unicode.IsDigit(r) {
			allDigits = false
		}
	}
	if allDigits {
		problems = append(problems, "password cannot be entirely numeric")
	}
	if !hasUpper {
		problems = append(problems, "password must contain an uppercase letter")
	}
	if !hasDigit {
		problems = append(problems, "password must contain a number")
	}
	if !hasSpecial {
		problems = append(problems, "password must contain a special character")
	}
	return problems
}
