package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hongminglow/storefront-accounts/internal/errs"
	"github.com/hongminglow/storefront-accounts/internal/metrics"
	"github.com/hongminglow/storefront-accounts/internal/models"
	"github.com/hongminglow/storefront-accounts/internal/models/dto"
	"github.com/hongminglow/storefront-accounts/internal/storage"
)

// Addresses manages a user's address book. Every operation is scoped to the
// acting user, who must still be active; another user's address yields
// errs.ErrAuthorization.
type Addresses struct {
	users    storage.UserStore
	store    storage.AddressStore
	validate *validator.Validate
	logger   *zap.Logger
}

// NewAddresses wires the address manager.
func NewAddresses(users storage.UserStore, store storage.AddressStore, logger *zap.Logger) *Addresses {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Addresses{users: users, store: store, validate: newValidator(), logger: logger}
}

// List returns the caller's addresses oldest first.
func (m *Addresses) List(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	if _, err := activeUser(ctx, m.users, userID); err != nil {
		return nil, err
	}
	out, err := m.store.ListAddresses(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// Get returns one of the caller's addresses.
func (m *Addresses) Get(ctx context.Context, userID, addressID uuid.UUID) (models.Address, error) {
	if _, err := activeUser(ctx, m.users, userID); err != nil {
		return models.Address{}, err
	}
	addr, err := m.store.GetAddress(ctx, userID, addressID)
	if err != nil {
		return models.Address{}, translate(err)
	}
	return addr, nil
}

// Create adds an address. Type defaults to shipping and new addresses are active
// unless the request says otherwise.
func (m *Addresses) Create(ctx context.Context, userID uuid.UUID, req dto.AddressRequest) (models.Address, error) {
	created, err := m.create(ctx, userID, req)
	m.record("create", err)
	if err != nil {
		return models.Address{}, err
	}
	m.logger.Debug("address created", zap.String("user_id", userID.String()), zap.String("address_id", created.ID.String()))
	return created, nil
}

func (m *Addresses) create(ctx context.Context, userID uuid.UUID, req dto.AddressRequest) (models.Address, error) {
	if _, err := activeUser(ctx, m.users, userID); err != nil {
		return models.Address{}, err
	}
	addr := models.Address{UserID: userID, Type: models.AddressShipping, IsActive: true}
	if err := m.apply(&addr, req); err != nil {
		return models.Address{}, err
	}
	created, err := m.store.CreateAddress(ctx, addr)
	return created, translate(err)
}

// Update applies the non-nil request fields to an existing address. The read,
// validation and write happen under the store's per-user lock.
func (m *Addresses) Update(ctx context.Context, userID, addressID uuid.UUID, req dto.AddressRequest) (models.Address, error) {
	updated, err := m.update(ctx, userID, addressID, req)
	m.record("update", err)
	return updated, err
}

func (m *Addresses) update(ctx context.Context, userID, addressID uuid.UUID, req dto.AddressRequest) (models.Address, error) {
	if _, err := activeUser(ctx, m.users, userID); err != nil {
		return models.Address{}, err
	}
	updated, err := m.store.UpdateAddress(ctx, userID, addressID, func(addr *models.Address) error {
		return m.apply(addr, req)
	})
	if err != nil {
		return models.Address{}, translate(err)
	}
	return updated, nil
}

// Delete removes one of the caller's addresses.
func (m *Addresses) Delete(ctx context.Context, userID, addressID uuid.UUID) error {
	err := m.delete(ctx, userID, addressID)
	m.record("delete", err)
	return err
}

func (m *Addresses) delete(ctx context.Context, userID, addressID uuid.UUID) error {
	if _, err := activeUser(ctx, m.users, userID); err != nil {
		return err
	}
	return translate(m.store.DeleteAddress(ctx, userID, addressID))
}

// SetDefault marks addressID as the caller's only default address.
func (m *Addresses) SetDefault(ctx context.Context, userID, addressID uuid.UUID) (models.Address, error) {
	addr, err := m.setDefault(ctx, userID, addressID)
	m.record("set_default", err)
	if err != nil {
		return models.Address{}, err
	}
	return addr, nil
}

func (m *Addresses) setDefault(ctx context.Context, userID, addressID uuid.UUID) (models.Address, error) {
	if _, err := activeUser(ctx, m.users, userID); err != nil {
		return models.Address{}, err
	}
	addr, err := m.store.SetDefaultAddress(ctx, userID, addressID)
	return addr, translate(err)
}

// apply copies the request onto addr and validates the result.
func (m *Addresses) apply(addr *models.Address, req dto.AddressRequest) error {
	ve := errs.NewValidationError()
	if err := collectStruct(m.validate, req, ve); err != nil {
		return err
	}

	if req.Type != nil {
		t, err := models.ParseAddressType(strings.TrimSpace(*req.Type))
		if err != nil {
			ve.Add("type", "must be one of shipping, billing, both")
		} else {
			addr.Type = t
		}
	}
	setString(&addr.StreetAddress, req.StreetAddress)
	setString(&addr.Apartment, req.Apartment)
	setString(&addr.City, req.City)
	setString(&addr.State, req.State)
	setString(&addr.PostalCode, req.PostalCode)
	setString(&addr.Country, req.Country)
	setString(&addr.DeliveryInstructions, req.DeliveryInstructions)
	if req.IsDefault != nil {
		addr.IsDefault = *req.IsDefault
	}
	if req.IsActive != nil {
		addr.IsActive = *req.IsActive
	}

	required := map[string]string{
		"street_address": addr.StreetAddress,
		"city":           addr.City,
		"state":          addr.State,
		"postal_code":    addr.PostalCode,
		"country":        addr.Country,
	}
	for field, value := range required {
		if value == "" && !ve.Has(field) {
			ve.Add(field, "this field is required")
		}
	}
	return ve.Err()
}

func (m *Addresses) record(op string, err error) {
	metrics.AddressWrites.WithLabelValues(op, outcome(err)).Inc()
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}
