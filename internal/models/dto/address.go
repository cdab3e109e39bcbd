package dto

// AddressRequest is used for both create and partial update of an address.
type AddressRequest struct {
	Type                 *string `json:"type"`
	StreetAddress        *string `json:"street_address" validate:"omitempty,max=200"`
	Apartment            *string `json:"apartment" validate:"omitempty,max=30"`
	City                 *string `json:"city" validate:"omitempty,max=100"`
	State                *string `json:"state" validate:"omitempty,max=100"`
	PostalCode           *string `json:"postal_code" validate:"omitempty,max=20"`
	Country              *string `json:"country" validate:"omitempty,max=100"`
	IsDefault            *bool   `json:"is_default"`
	IsActive             *bool   `json:"is_active"`
	DeliveryInstructions *string `json:"delivery_instructions" validate:"omitempty,max=1000"`
}
