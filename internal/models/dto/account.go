package dto

import "github.com/hongminglow/storefront-accounts/internal/models"

// UpdateSelfRequest carries a partial update; nil fields are left untouched.
type UpdateSelfRequest struct {
	FirstName         *string `json:"first_name" validate:"omitempty,max=150"`
	LastName          *string `json:"last_name" validate:"omitempty,max=150"`
	Phone             *string `json:"phone" validate:"omitempty,max=20"`
	BirthDate         *string `json:"birth_date"`
	AcceptsMarketing  *bool   `json:"accepts_marketing"`
	Bio               *string `json:"bio" validate:"omitempty,max=500"`
	Website           *string `json:"website" validate:"omitempty,max=200"`
	Avatar            *string `json:"avatar" validate:"omitempty,max=255"`
	PreferredLanguage *string `json:"preferred_language" validate:"omitempty,max=10"`
}

type ChangePasswordRequest struct {
	OldPassword        string `json:"old_password"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

// SelfResponse is the caller's own account view.
type SelfResponse struct {
	models.User
	FullName       string                 `json:"full_name"`
	Profile        models.Profile         `json:"profile"`
	Addresses      []models.Address       `json:"addresses"`
	CustomerGroups []models.CustomerGroup `json:"customer_groups"`
}
