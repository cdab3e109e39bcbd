// Package service implements account registration, self-service and address
// management on top of the storage interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hongminglow/storefront-accounts/internal/auth"
	"github.com/hongminglow/storefront-accounts/internal/errs"
	"github.com/hongminglow/storefront-accounts/internal/metrics"
	"github.com/hongminglow/storefront-accounts/internal/models"
	"github.com/hongminglow/storefront-accounts/internal/models/dto"
	"github.com/hongminglow/storefront-accounts/internal/storage"
)

// MinimumAge is the youngest age, in whole years, allowed to register.
const MinimumAge = 13

// Accounts coordinates registration, login and self-service updates.
type Accounts struct {
	users     storage.UserStore
	addresses storage.AddressStore
	groups    storage.CustomerGroupStore
	hasher    *auth.PasswordHasher
	policy    auth.PasswordPolicy
	validate  *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAccounts wires the account service.
func NewAccounts(store storage.Store, hasher *auth.PasswordHasher, policy auth.PasswordPolicy, logger *zap.Logger) *Accounts {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Accounts{
		users:     store,
		addresses: store,
		groups:    store,
		hasher:    hasher,
		policy:    policy,
		validate:  newValidator(),
		logger:    logger,
		now:       time.Now,
	}
}

// registration is the normalized form of a RegisterRequest as it moves through the checks.
type registration struct {
	req       dto.RegisterRequest
	username  string
	email     string
	phone     string
	birthDate *models.Date
}

// registerCheck records field errors in ve. A non-nil return is a storage fault, not a validation failure.
type registerCheck func(ctx context.Context, in *registration, ve *errs.ValidationError) error

// Register validates req and creates the user together with its profile.
// All field errors are reported at once.
func (a *Accounts) Register(ctx context.Context, req dto.RegisterRequest) (models.User, error) {
	user, err := a.register(ctx, req)
	metrics.Registrations.WithLabelValues(outcome(err)).Inc()
	return user, err
}

func (a *Accounts) register(ctx context.Context, req dto.RegisterRequest) (models.User, error) {
	in := &registration{
		req:      req,
		username: strings.TrimSpace(req.Username),
		email:    strings.ToLower(strings.TrimSpace(req.Email)),
		phone:    strings.TrimSpace(req.Phone),
	}
	in.req.Username = in.username
	in.req.Email = in.email

	ve := errs.NewValidationError()
	checks := []registerCheck{
		a.checkStructure,
		a.checkEmailAvailable,
		a.checkUsername,
		a.checkPassword,
		checkRegistrationPhone,
		a.checkAge,
		checkRegistrationWebsite,
	}
	for _, check := range checks {
		if err := check(ctx, in, ve); err != nil {
			return models.User{}, fmt.Errorf("validate registration: %w", err)
		}
	}
	if err := ve.Err(); err != nil {
		return models.User{}, err
	}

	hash, err := a.hasher.Hash(req.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		ID:               uuid.New(),
		Username:         in.username,
		Email:            in.email,
		FirstName:        strings.TrimSpace(req.FirstName),
		LastName:         strings.TrimSpace(req.LastName),
		Phone:            in.phone,
		BirthDate:        in.birthDate,
		IsVerified:       false,
		AcceptsMarketing: req.AcceptsMarketing,
		IsActive:         true,
		Role:             models.RoleCustomer,
		PasswordHash:     hash,
	}
	profile := models.Profile{
		UserID:            user.ID,
		Bio:               strings.TrimSpace(req.Bio),
		Website:           strings.TrimSpace(req.Website),
		PreferredLanguage: strings.TrimSpace(req.PreferredLanguage),
	}
	if profile.PreferredLanguage == "" {
		profile.PreferredLanguage = models.DefaultLanguage
	}

	created, err := a.users.CreateUser(ctx, user, profile)
	if err != nil {
		return models.User{}, translate(err)
	}
	a.logger.Info("user registered", zap.String("user_id", created.ID.String()), zap.String("username", created.Username))
	return created, nil
}

func (a *Accounts) checkStructure(_ context.Context, in *registration, ve *errs.ValidationError) error {
	return collectStruct(a.validate, in.req, ve)
}

func (a *Accounts) checkEmailAvailable(ctx context.Context, in *registration, ve *errs.ValidationError) error {
	if in.email == "" || ve.Has("email") {
		return nil
	}
	taken, err := a.users.EmailExists(ctx, in.email)
	if err != nil {
		return err
	}
	if taken {
		ve.Add("email", "a user with this email is already registered")
	}
	return nil
}

func (a *Accounts) checkUsername(ctx context.Context, in *registration, ve *errs.ValidationError) error {
	if in.username == "" || ve.Has("username") {
		return nil
	}
	if !validUsername(in.username) {
		ve.Add("username", "username may contain only letters, numbers, and underscores")
		return nil
	}
	taken, err := a.users.UsernameExists(ctx, in.username)
	if err != nil {
		return err
	}
	if taken {
		ve.Add("username", "a user with this username already exists")
	}
	return nil
}

func (a *Accounts) checkPassword(_ context.Context, in *registration, ve *errs.ValidationError) error {
	if in.req.Password == "" {
		return nil
	}
	if in.req.Password != in.req.PasswordConfirm {
		ve.Add("password_confirm", "passwords do not match")
	}
	for _, problem := range a.policy.Check(in.req.Password) {
		ve.Add("password", problem)
	}
	return nil
}

func checkRegistrationPhone(_ context.Context, in *registration, ve *errs.ValidationError) error {
	checkPhone(in.phone, ve)
	return nil
}

func (a *Accounts) checkAge(_ context.Context, in *registration, ve *errs.ValidationError) error {
	in.birthDate = parseBirthDate(strings.TrimSpace(in.req.BirthDate), ve)
	if in.birthDate == nil {
		return nil
	}
	if in.birthDate.YearsOn(a.now()) < MinimumAge {
		ve.Add("birth_date", fmt.Sprintf("you must be at least %d years old to register", MinimumAge))
	}
	return nil
}

func checkRegistrationWebsite(_ context.Context, in *registration, ve *errs.ValidationError) error {
	checkWebsite(strings.TrimSpace(in.req.Website), ve)
	return nil
}

// Authenticate resolves identifier as a username or email and verifies password.
func (a *Accounts) Authenticate(ctx context.Context, req dto.LoginRequest) (models.User, error) {
	user, err := a.authenticate(ctx, req)
	metrics.AuthRequests.WithLabelValues("login", outcome(err)).Inc()
	return user, err
}

func (a *Accounts) authenticate(ctx context.Context, req dto.LoginRequest) (models.User, error) {
	identifier := strings.TrimSpace(req.Identifier)
	ve := errs.NewValidationError()
	if identifier == "" {
		ve.Add("identifier", "this field is required")
	}
	if req.Password == "" {
		ve.Add("password", "this field is required")
	}
	if err := ve.Err(); err != nil {
		return models.User{}, err
	}

	user, err := a.users.FindByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.User{}, errs.ErrAuthentication
		}
		return models.User{}, fmt.Errorf("find user: %w", err)
	}
	if !a.hasher.Matches(user.PasswordHash, req.Password) || !user.IsActive {
		return models.User{}, errs.ErrAuthentication
	}
	return user, nil
}

// GetSelf returns the caller's account, profile, addresses and customer groups.
func (a *Accounts) GetSelf(ctx context.Context, userID uuid.UUID) (dto.SelfResponse, error) {
	user, err := activeUser(ctx, a.users, userID)
	if err != nil {
		return dto.SelfResponse{}, err
	}
	profile, err := a.users.GetProfile(ctx, user.ID)
	if err != nil {
		return dto.SelfResponse{}, fmt.Errorf("load profile: %w", translate(err))
	}
	return a.selfView(ctx, user, profile)
}

func (a *Accounts) selfView(ctx context.Context, user models.User, profile models.Profile) (dto.SelfResponse, error) {
	addresses, err := a.addresses.ListAddresses(ctx, user.ID)
	if err != nil {
		return dto.SelfResponse{}, fmt.Errorf("load addresses: %w", err)
	}
	groups, err := a.groups.ListGroupsForUser(ctx, user.ID)
	if err != nil {
		return dto.SelfResponse{}, fmt.Errorf("load customer groups: %w", err)
	}
	return dto.SelfResponse{
		User:           user,
		FullName:       user.FullName(),
		Profile:        profile,
		Addresses:      addresses,
		CustomerGroups: groups,
	}, nil
}

// ListUsers returns every account. Only staff may call it; anyone else gets
// errs.ErrAuthorization.
func (a *Accounts) ListUsers(ctx context.Context, callerID uuid.UUID) ([]models.User, error) {
	caller, err := activeUser(ctx, a.users, callerID)
	if err != nil {
		return nil, err
	}
	if !caller.Role.IsStaff() {
		a.logger.Warn("user listing denied", zap.String("user_id", callerID.String()), zap.String("role", string(caller.Role)))
		return nil, errs.ErrAuthorization
	}
	users, err := a.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdateSelf applies a partial update to the caller's account and profile.
// The age gate is not re-applied here.
func (a *Accounts) UpdateSelf(ctx context.Context, userID uuid.UUID, req dto.UpdateSelfRequest) (dto.SelfResponse, error) {
	user, err := activeUser(ctx, a.users, userID)
	if err != nil {
		return dto.SelfResponse{}, err
	}
	profile, err := a.users.GetProfile(ctx, userID)
	if err != nil {
		return dto.SelfResponse{}, fmt.Errorf("load profile: %w", translate(err))
	}

	ve := errs.NewValidationError()
	if err := collectStruct(a.validate, req, ve); err != nil {
		return dto.SelfResponse{}, err
	}
	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
		if user.FirstName == "" {
			ve.Add("first_name", "this field may not be blank")
		}
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
		if user.LastName == "" {
			ve.Add("last_name", "this field may not be blank")
		}
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
		checkPhone(user.Phone, ve)
	}
	if req.BirthDate != nil {
		user.BirthDate = parseBirthDate(strings.TrimSpace(*req.BirthDate), ve)
	}
	if req.AcceptsMarketing != nil {
		user.AcceptsMarketing = *req.AcceptsMarketing
	}
	if req.Bio != nil {
		profile.Bio = strings.TrimSpace(*req.Bio)
	}
	if req.Website != nil {
		profile.Website = strings.TrimSpace(*req.Website)
		checkWebsite(profile.Website, ve)
	}
	if req.Avatar != nil {
		profile.Avatar = strings.TrimSpace(*req.Avatar)
	}
	if req.PreferredLanguage != nil {
		profile.PreferredLanguage = strings.TrimSpace(*req.PreferredLanguage)
		if profile.PreferredLanguage == "" {
			profile.PreferredLanguage = models.DefaultLanguage
		}
	}
	if err := ve.Err(); err != nil {
		return dto.SelfResponse{}, err
	}

	updatedUser, updatedProfile, err := a.users.UpdateAccount(ctx, user, profile)
	if err != nil {
		return dto.SelfResponse{}, translate(err)
	}
	return a.selfView(ctx, updatedUser, updatedProfile)
}

// ChangePassword verifies the current password before looking at the new
// one, so a wrong current password is always an authentication failure.
func (a *Accounts) ChangePassword(ctx context.Context, userID uuid.UUID, req dto.ChangePasswordRequest) error {
	err := a.changePassword(ctx, userID, req)
	metrics.AuthRequests.WithLabelValues("change_password", outcome(err)).Inc()
	return err
}

func (a *Accounts) changePassword(ctx context.Context, userID uuid.UUID, req dto.ChangePasswordRequest) error {
	user, err := activeUser(ctx, a.users, userID)
	if err != nil {
		return err
	}
	if !a.hasher.Matches(user.PasswordHash, req.OldPassword) {
		return errs.ErrAuthentication
	}

	ve := errs.NewValidationError()
	if req.NewPassword != req.NewPasswordConfirm {
		ve.Add("new_password_confirm", "the new passwords do not match")
	}
	for _, problem := range a.policy.Check(req.NewPassword) {
		ve.Add("new_password", problem)
	}
	if err := ve.Err(); err != nil {
		return err
	}

	hash, err := a.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := a.users.UpdatePassword(ctx, userID, hash); err != nil {
		return translate(err)
	}
	a.logger.Info("password changed", zap.String("user_id", userID.String()))
	return nil
}

// activeUser treats a missing or deactivated account behind a valid token as unauthenticated.
func activeUser(ctx context.Context, users storage.UserStore, userID uuid.UUID) (models.User, error) {
	user, err := users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.User{}, errs.ErrAuthentication
		}
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return models.User{}, errs.ErrAuthentication
	}
	return user, nil
}
