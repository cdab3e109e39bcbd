package dto

import "github.com/hongminglow/storefront-accounts/internal/models"

// RegisterRequest is the untrusted input to account registration.
type RegisterRequest struct {
	Username          string `json:"username" validate:"required,max=150"`
	Email             string `json:"email" validate:"required,email,max=254"`
	Password          string `json:"password" validate:"required"`
	PasswordConfirm   string `json:"password_confirm" validate:"required"`
	FirstName         string `json:"first_name" validate:"required,max=150"`
	LastName          string `json:"last_name" validate:"required,max=150"`
	Phone             string `json:"phone" validate:"max=20"`
	BirthDate         string `json:"birth_date"`
	AcceptsMarketing  bool   `json:"accepts_marketing"`
	Bio               string `json:"bio" validate:"max=500"`
	Website           string `json:"website" validate:"max=200"`
	PreferredLanguage string `json:"preferred_language" validate:"max=10"`
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}
