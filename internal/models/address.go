package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AddressType tags what an address may be used for.
type AddressType uint8

const (
	AddressShipping AddressType = iota + 1
	AddressBilling
	AddressBoth
)

var addressTypeNames = map[AddressType]string{
	AddressShipping: "shipping",
	AddressBilling:  "billing",
	AddressBoth:     "both",
}

// ParseAddressType maps the wire name to an AddressType.
func ParseAddressType(s string) (AddressType, error) {
	for t, name := range addressTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown address type %q", s)
}

func (t AddressType) String() string {
	if name, ok := addressTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether t is one of the declared address types.
func (t AddressType) Valid() bool {
	_, ok := addressTypeNames[t]
	return ok
}

func (t AddressType) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid address type %d", t)
	}
	return json.Marshal(t.String())
}

func (t *AddressType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseAddressType(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Address is a postal address owned by exactly one user.
type Address struct {
	ID                   uuid.UUID   `json:"id"`
	UserID               uuid.UUID   `json:"-"`
	Type                 AddressType `json:"type"`
	StreetAddress        string      `json:"street_address"`
	Apartment            string      `json:"apartment"`
	City                 string      `json:"city"`
	State                string      `json:"state"`
	PostalCode           string      `json:"postal_code"`
	Country              string      `json:"country"`
	IsDefault            bool        `json:"is_default"`
	IsActive             bool        `json:"is_active"`
	DeliveryInstructions string      `json:"delivery_instructions"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}
