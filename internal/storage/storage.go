package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hongminglow/storefront-accounts/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrForbidden indicates the record exists but belongs to another user.
var ErrForbidden = errors.New("record owned by another user")

// UniqueViolation names the field whose uniqueness constraint rejected a write.
type UniqueViolation struct {
	Field string
}

func (e *UniqueViolation) Error() string {
	return fmt.Sprintf("unique violation on %s", e.Field)
}

func (e *UniqueViolation) Is(target error) bool {
	return target == ErrAlreadyExists
}

// UserStore captures persistence operations for users and their profiles.
type UserStore interface {
	// CreateUser inserts user and profile atomically; neither row persists if either insert fails.
	CreateUser(ctx context.Context, user models.User, profile models.Profile) (models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByUsernameOrEmail(ctx context.Context, identifier string) (models.User, error)
	// EmailExists compares case-insensitively.
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	// ListUsers returns every user ordered by creation time, then id.
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, user models.User) (models.User, error)
	// UpdateAccount writes user and profile atomically.
	UpdateAccount(ctx context.Context, user models.User, profile models.Profile) (models.User, models.Profile, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	GetProfile(ctx context.Context, userID uuid.UUID) (models.Profile, error)
}

// AddressMutator edits an owned address in place. A returned error aborts the write.
type AddressMutator func(address *models.Address) error

// AddressStore is owner-scoped: every call names the acting user. Any write
// of a record with IsDefault set clears the flag on the user's other
// addresses within the same atomic step.
type AddressStore interface {
	// ListAddresses returns the user's addresses ordered by creation time, then id.
	ListAddresses(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	GetAddress(ctx context.Context, userID, id uuid.UUID) (models.Address, error)
	CreateAddress(ctx context.Context, address models.Address) (models.Address, error)
	// UpdateAddress loads the address, applies mutate and writes the result in
	// one atomic step, so concurrent writers for the user cannot interleave.
	UpdateAddress(ctx context.Context, userID, id uuid.UUID, mutate AddressMutator) (models.Address, error)
	DeleteAddress(ctx context.Context, userID, id uuid.UUID) error
	SetDefaultAddress(ctx context.Context, userID, id uuid.UUID) (models.Address, error)
}

// CustomerGroupStore persists discount tiers and their memberships.
type CustomerGroupStore interface {
	CreateGroup(ctx context.Context, group models.CustomerGroup) (models.CustomerGroup, error)
	ListActiveGroups(ctx context.Context) ([]models.CustomerGroup, error)
	ListGroupsForUser(ctx context.Context, userID uuid.UUID) ([]models.CustomerGroup, error)
	AddMember(ctx context.Context, groupID, userID uuid.UUID) error
}

// Store bundles every repository the service needs.
type Store interface {
	UserStore
	AddressStore
	CustomerGroupStore
	Close()
}
