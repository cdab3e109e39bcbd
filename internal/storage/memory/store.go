// Package memory provides an in-process implementation of storage.Store.
// A single mutex serializes every operation, which makes each write atomic
// with respect to the default-address invariant.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hongminglow/storefront-accounts/internal/models"
	"github.com/hongminglow/storefront-accounts/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store keeps all records in maps guarded by mu.
type Store struct {
	mu        sync.Mutex
	now       func() time.Time
	users     map[uuid.UUID]models.User
	profiles  map[uuid.UUID]models.Profile
	addresses map[uuid.UUID]models.Address
	// seq preserves insertion order for users and addresses created within one clock tick.
	seq       map[uuid.UUID]uint64
	nextSeq   uint64
	groups    map[uuid.UUID]models.CustomerGroup
	members   map[uuid.UUID]map[uuid.UUID]struct{}
}

// New returns an empty store.
func New() *Store {
	return &Store{
		now:       time.Now,
		users:     make(map[uuid.UUID]models.User),
		profiles:  make(map[uuid.UUID]models.Profile),
		addresses: make(map[uuid.UUID]models.Address),
		seq:       make(map[uuid.UUID]uint64),
		groups:    make(map[uuid.UUID]models.CustomerGroup),
		members:   make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

// Close is a no-op.
func (s *Store) Close() {}

// CreateUser inserts a new user row and its profile.
func (s *Store) CreateUser(_ context.Context, user models.User, profile models.Profile) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return models.User{}, &storage.UniqueViolation{Field: "email"}
		}
		if existing.Username == user.Username {
			return models.User{}, &storage.UniqueViolation{Field: "username"}
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := s.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = models.RoleCustomer
	}
	profile.UserID = user.ID

	s.nextSeq++
	s.seq[user.ID] = s.nextSeq
	s.users[user.ID] = user
	s.profiles[user.ID] = profile
	return user, nil
}

// GetUser fetches a user by id.
func (s *Store) GetUser(_ context.Context, id uuid.UUID) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return user, nil
}

// FindByEmail fetches a user by email address, ignoring case.
func (s *Store) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

// FindByUsernameOrEmail fetches the first user matching the identifier as username or email.
func (s *Store) FindByUsernameOrEmail(_ context.Context, identifier string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Username == identifier || strings.EqualFold(user.Email, identifier) {
			return user, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := s.FindByEmail(ctx, email)
	return err == nil, nil
}

func (s *Store) UsernameExists(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

// ListUsers returns every user in creation order.
func (s *Store) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return s.seq[out[i].ID] < s.seq[out[j].ID]
	})
	return out, nil
}

// UpdateUser overwrites the mutable columns of an existing user.
func (s *Store) UpdateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateUser(user)
}

// UpdateAccount writes user and profile together or not at all.
func (s *Store) UpdateAccount(_ context.Context, user models.User, profile models.Profile) (models.User, models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[user.ID]; !ok {
		return models.User{}, models.Profile{}, storage.ErrNotFound
	}
	updated, err := s.updateUser(user)
	if err != nil {
		return models.User{}, models.Profile{}, err
	}
	profile.UserID = user.ID
	s.profiles[user.ID] = profile
	return updated, profile, nil
}

// updateUser must be called with mu held.
func (s *Store) updateUser(user models.User) (models.User, error) {
	existing, ok := s.users[user.ID]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	existing.FirstName = user.FirstName
	existing.LastName = user.LastName
	existing.Phone = user.Phone
	existing.BirthDate = user.BirthDate
	existing.AcceptsMarketing = user.AcceptsMarketing
	existing.IsVerified = user.IsVerified
	existing.IsActive = user.IsActive
	if user.Role != "" {
		existing.Role = user.Role
	}
	existing.UpdatedAt = s.now().UTC()
	s.users[user.ID] = existing
	return existing, nil
}

func (s *Store) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = s.now().UTC()
	s.users[id] = user
	return nil
}

func (s *Store) GetProfile(_ context.Context, userID uuid.UUID) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[userID]
	if !ok {
		return models.Profile{}, storage.ErrNotFound
	}
	return profile, nil
}

// ListAddresses returns the user's addresses in creation order.
func (s *Store) ListAddresses(_ context.Context, userID uuid.UUID) ([]models.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Address, 0)
	for _, addr := range s.addresses {
		if addr.UserID == userID {
			out = append(out, addr)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return s.seq[out[i].ID] < s.seq[out[j].ID]
	})
	return out, nil
}

func (s *Store) GetAddress(_ context.Context, userID, id uuid.UUID) (models.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ownedAddress(userID, id)
}

// CreateAddress inserts an address, clearing sibling defaults when it is the new default.
func (s *Store) CreateAddress(_ context.Context, address models.Address) (models.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[address.UserID]; !ok {
		return models.Address{}, storage.ErrNotFound
	}
	if address.ID == uuid.Nil {
		address.ID = uuid.New()
	}
	now := s.now().UTC()
	address.CreatedAt = now
	address.UpdatedAt = now
	if address.IsDefault {
		s.clearDefaults(address.UserID, address.ID)
	}
	s.nextSeq++
	s.seq[address.ID] = s.nextSeq
	s.addresses[address.ID] = address
	return address, nil
}

// UpdateAddress applies mutate to a copy of the owned address and stores it
// only when mutate succeeds.
func (s *Store) UpdateAddress(_ context.Context, userID, id uuid.UUID, mutate storage.AddressMutator) (models.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.ownedAddress(userID, id)
	if err != nil {
		return models.Address{}, err
	}
	address := existing
	if err := mutate(&address); err != nil {
		return models.Address{}, err
	}
	address.ID = existing.ID
	address.UserID = existing.UserID
	address.CreatedAt = existing.CreatedAt
	address.UpdatedAt = s.now().UTC()
	if address.IsDefault {
		s.clearDefaults(userID, address.ID)
	}
	s.addresses[address.ID] = address
	return address, nil
}

func (s *Store) DeleteAddress(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ownedAddress(userID, id); err != nil {
		return err
	}
	delete(s.addresses, id)
	delete(s.seq, id)
	return nil
}

func (s *Store) SetDefaultAddress(_ context.Context, userID, id uuid.UUID) (models.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	address, err := s.ownedAddress(userID, id)
	if err != nil {
		return models.Address{}, err
	}
	s.clearDefaults(userID, id)
	address.IsDefault = true
	address.UpdatedAt = s.now().UTC()
	s.addresses[id] = address
	return address, nil
}

func (s *Store) CreateGroup(_ context.Context, group models.CustomerGroup) (models.CustomerGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.groups {
		if existing.Name == group.Name {
			return models.CustomerGroup{}, &storage.UniqueViolation{Field: "name"}
		}
	}
	if group.ID == uuid.Nil {
		group.ID = uuid.New()
	}
	group.CreatedAt = s.now().UTC()
	s.groups[group.ID] = group
	return group, nil
}

func (s *Store) ListActiveGroups(_ context.Context) ([]models.CustomerGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.CustomerGroup, 0, len(s.groups))
	for _, g := range s.groups {
		if g.IsActive {
			out = append(out, g)
		}
	}
	sortGroups(out)
	return out, nil
}

func (s *Store) ListGroupsForUser(_ context.Context, userID uuid.UUID) ([]models.CustomerGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.CustomerGroup, 0)
	for groupID := range s.members[userID] {
		out = append(out, s.groups[groupID])
	}
	sortGroups(out)
	return out, nil
}

func (s *Store) AddMember(_ context.Context, groupID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[groupID]; !ok {
		return storage.ErrNotFound
	}
	if _, ok := s.users[userID]; !ok {
		return storage.ErrNotFound
	}
	if s.members[userID] == nil {
		s.members[userID] = make(map[uuid.UUID]struct{})
	}
	s.members[userID][groupID] = struct{}{}
	return nil
}

// ownedAddress must be called with mu held.
func (s *Store) ownedAddress(userID, id uuid.UUID) (models.Address, error) {
	address, ok := s.addresses[id]
	if !ok {
		return models.Address{}, storage.ErrNotFound
	}
	if address.UserID != userID {
		return models.Address{}, storage.ErrForbidden
	}
	return address, nil
}

// clearDefaults must be called with mu held.
func (s *Store) clearDefaults(userID, except uuid.UUID) {
	for id, addr := range s.addresses {
		if addr.UserID == userID && id != except && addr.IsDefault {
			addr.IsDefault = false
			s.addresses[id] = addr
		}
	}
}

func sortGroups(groups []models.CustomerGroup) {
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Name < groups[j].Name
	})
}
