package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User captures application-facing fields for a storefront customer.
type User struct {
	ID               uuid.UUID `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Phone            string    `json:"phone,omitempty"`
	BirthDate        *Date     `json:"birth_date,omitempty"`
	IsVerified       bool      `json:"is_verified"`
	AcceptsMarketing bool      `json:"accepts_marketing"`
	IsActive         bool      `json:"is_active"`
	Role             Role      `json:"role"`
	PasswordHash     string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// FullName joins first and last name, trimming when either is blank.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Profile holds optional presentation data; every user has exactly one.
type Profile struct {
	UserID            uuid.UUID `json:"-"`
	Bio               string    `json:"bio"`
	Website           string    `json:"website"`
	Avatar            string    `json:"avatar,omitempty"`
	PreferredLanguage string    `json:"preferred_language"`
}

// DefaultLanguage is assigned to profiles created without an explicit language.
const DefaultLanguage = "en"
