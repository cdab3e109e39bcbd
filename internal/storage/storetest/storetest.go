// Package storetest holds behavioural checks shared by every storage.Store implementation.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/storefront-accounts/internal/models"
	"github.com/hongminglow/storefront-accounts/internal/storage"
)

// Run exercises s. Names are randomized so it can run against a shared database.
func Run(t *testing.T, s storage.Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, s) })
	t.Run("addresses", func(t *testing.T) { testAddresses(t, s) })
	t.Run("concurrent default", func(t *testing.T) { testConcurrentDefault(t, s) })
	t.Run("groups", func(t *testing.T) { testGroups(t, s) })
}

func newUser(t *testing.T, s storage.Store) models.User {
	t.Helper()
	name := "u_" + uuid.NewString()[:8]
	birth := models.NewDate(time.Date(1990, time.May, 17, 0, 0, 0, 0, time.UTC))
	user, err := s.CreateUser(context.Background(), models.User{
		Username:     name,
		Email:        name + "@example.com",
		FirstName:    "Store",
		LastName:     "Test",
		Phone:        "(555) 010-1234",
		BirthDate:    &birth,
		IsActive:     true,
		PasswordHash: "hash",
	}, models.Profile{Bio: "bio", PreferredLanguage: models.DefaultLanguage})
	require.NoError(t, err)
	return user
}

func testUsers(t *testing.T, s storage.Store) {
	ctx := context.Background()
	user := newUser(t, s)
	assert.NotEqual(t, uuid.Nil, user.ID)
	require.NotNil(t, user.BirthDate)
	assert.Equal(t, "1990-05-17", user.BirthDate.String())

	byEmail, err := s.FindByEmail(ctx, fmt.Sprintf("%s@EXAMPLE.com", user.Username))
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	exists, err := s.EmailExists(ctx, "U"+user.Email[1:])
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = s.CreateUser(ctx, models.User{Username: user.Username + "x", Email: user.Email, IsActive: true}, models.Profile{})
	var uv *storage.UniqueViolation
	require.True(t, errors.As(err, &uv), "got %v", err)
	assert.Equal(t, "email", uv.Field)

	_, err = s.CreateUser(ctx, models.User{Username: user.Username, Email: "other_" + user.Email, IsActive: true}, models.Profile{})
	require.True(t, errors.As(err, &uv), "got %v", err)
	assert.Equal(t, "username", uv.Field)

	assert.Equal(t, models.RoleCustomer, user.Role)

	user.FirstName = "Changed"
	user.BirthDate = nil
	user.Role = models.RoleStaff
	updated, err := s.UpdateUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "Changed", updated.FirstName)
	assert.Nil(t, updated.BirthDate)
	assert.Equal(t, models.RoleStaff, updated.Role)

	require.NoError(t, s.UpdatePassword(ctx, user.ID, "new-hash"))
	got, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
	assert.ErrorIs(t, s.UpdatePassword(ctx, uuid.New(), "x"), storage.ErrNotFound)

	profile, err := s.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "bio", profile.Bio)
	profile.Website = "https://example.com"
	updated.LastName = "Account"
	accountUser, accountProfile, err := s.UpdateAccount(ctx, updated, profile)
	require.NoError(t, err)
	assert.Equal(t, "Account", accountUser.LastName)
	assert.Equal(t, "https://example.com", accountProfile.Website)
	stored, err := s.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", stored.Website)

	_, _, err = s.UpdateAccount(ctx, models.User{ID: uuid.New()}, models.Profile{Bio: "ghost"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.GetUser(ctx, uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	later := newUser(t, s)
	all, err := s.ListUsers(ctx)
	require.NoError(t, err)
	index := map[uuid.UUID]int{}
	for i, u := range all {
		index[u.ID] = i
	}
	require.Contains(t, index, user.ID)
	require.Contains(t, index, later.ID)
	assert.Less(t, index[user.ID], index[later.ID])
}

func newAddress(userID uuid.UUID, street string, isDefault bool) models.Address {
	return models.Address{
		UserID:        userID,
		Type:          models.AddressShipping,
		StreetAddress: street,
		City:          "Springfield",
		State:         "IL",
		PostalCode:    "62701",
		Country:       "US",
		IsDefault:     isDefault,
		IsActive:      true,
	}
}

func countDefaults(t *testing.T, s storage.Store, userID uuid.UUID) int {
	t.Helper()
	list, err := s.ListAddresses(context.Background(), userID)
	require.NoError(t, err)
	n := 0
	for _, a := range list {
		if a.IsDefault {
			n++
		}
	}
	return n
}

func testAddresses(t *testing.T, s storage.Store) {
	ctx := context.Background()
	owner := newUser(t, s)
	other := newUser(t, s)

	first, err := s.CreateAddress(ctx, newAddress(owner.ID, "1 Main St", true))
	require.NoError(t, err)
	second, err := s.CreateAddress(ctx, newAddress(owner.ID, "2 Main St", true))
	require.NoError(t, err)
	assert.Equal(t, 1, countDefaults(t, s, owner.ID))

	list, err := s.ListAddresses(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
	assert.True(t, list[1].IsDefault)

	_, err = s.GetAddress(ctx, other.ID, first.ID)
	assert.ErrorIs(t, err, storage.ErrForbidden)
	_, err = s.SetDefaultAddress(ctx, other.ID, first.ID)
	assert.ErrorIs(t, err, storage.ErrForbidden)
	assert.ErrorIs(t, s.DeleteAddress(ctx, other.ID, first.ID), storage.ErrForbidden)
	_, err = s.SetDefaultAddress(ctx, owner.ID, uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	updated, err := s.SetDefaultAddress(ctx, owner.ID, first.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsDefault)
	assert.Equal(t, 1, countDefaults(t, s, owner.ID))

	// A mutation that leaves is_default alone keeps the default set in between.
	_, err = s.SetDefaultAddress(ctx, owner.ID, second.ID)
	require.NoError(t, err)
	kept, err := s.UpdateAddress(ctx, owner.ID, second.ID, func(a *models.Address) error {
		a.City = "Shelbyville"
		return nil
	})
	require.NoError(t, err)
	assert.True(t, kept.IsDefault)
	assert.Equal(t, "Shelbyville", kept.City)

	errRejected := errors.New("rejected")
	_, err = s.UpdateAddress(ctx, owner.ID, second.ID, func(a *models.Address) error {
		a.City = "Nowhere"
		return errRejected
	})
	assert.ErrorIs(t, err, errRejected)
	unchanged, err := s.GetAddress(ctx, owner.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "Shelbyville", unchanged.City)

	_, err = s.UpdateAddress(ctx, other.ID, second.ID, func(*models.Address) error { return nil })
	assert.ErrorIs(t, err, storage.ErrForbidden)

	moved, err := s.UpdateAddress(ctx, owner.ID, first.ID, func(a *models.Address) error {
		a.IsDefault = true
		a.Type = models.AddressBoth
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.AddressBoth, moved.Type)
	assert.Equal(t, 1, countDefaults(t, s, owner.ID))

	_, err = s.UpdateAddress(ctx, owner.ID, first.ID, func(a *models.Address) error {
		a.IsDefault = false
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, countDefaults(t, s, owner.ID))

	require.NoError(t, s.DeleteAddress(ctx, owner.ID, second.ID))
	_, err = s.GetAddress(ctx, owner.ID, second.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.CreateAddress(ctx, newAddress(uuid.New(), "nowhere", false))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testConcurrentDefault(t *testing.T, s storage.Store) {
	ctx := context.Background()
	owner := newUser(t, s)

	var ids []uuid.UUID
	for i := 0; i < 6; i++ {
		addr, err := s.CreateAddress(ctx, newAddress(owner.ID, fmt.Sprintf("%d Main St", i), false))
		require.NoError(t, err)
		ids = append(ids, addr.ID)
	}

	var wg sync.WaitGroup
	for round := 0; round < 3; round++ {
		for _, id := range ids {
			wg.Add(1)
			go func(id uuid.UUID) {
				defer wg.Done()
				_, err := s.SetDefaultAddress(ctx, owner.ID, id)
				assert.NoError(t, err)
			}(id)
		}
	}
	wg.Wait()

	assert.Equal(t, 1, countDefaults(t, s, owner.ID))
}

func testGroups(t *testing.T, s storage.Store) {
	ctx := context.Background()
	user := newUser(t, s)
	suffix := uuid.NewString()[:8]

	active, err := s.CreateGroup(ctx, models.CustomerGroup{Name: "active-" + suffix, DiscountPercentage: 5, IsActive: true})
	require.NoError(t, err)
	inactive, err := s.CreateGroup(ctx, models.CustomerGroup{Name: "inactive-" + suffix})
	require.NoError(t, err)

	_, err = s.CreateGroup(ctx, models.CustomerGroup{Name: active.Name, IsActive: true})
	var uv *storage.UniqueViolation
	require.True(t, errors.As(err, &uv), "got %v", err)
	assert.Equal(t, "name", uv.Field)

	require.NoError(t, s.AddMember(ctx, active.ID, user.ID))
	require.NoError(t, s.AddMember(ctx, active.ID, user.ID))

	mine, err := s.ListGroupsForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, active.ID, mine[0].ID)

	all, err := s.ListActiveGroups(ctx)
	require.NoError(t, err)
	var names []string
	for _, g := range all {
		names = append(names, g.Name)
	}
	assert.Contains(t, names, active.Name)
	assert.NotContains(t, names, inactive.Name)
}
