package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hongminglow/storefront-accounts/internal/models"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, email, first_name, last_name, phone, birth_date,
	is_verified, accepts_marketing, is_active, role, password_hash, created_at, updated_at`

// CreateUser inserts a new user row and its profile in one transaction.
func (s *Store) CreateUser(ctx context.Context, user models.User, profile models.Profile) (models.User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	var created models.User
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		const insertUser = `
			INSERT INTO users (id, username, email, first_name, last_name, phone, birth_date,
				is_verified, accepts_marketing, is_active, role, password_hash)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING ` + userColumns
		row := tx.QueryRow(ctx, insertUser,
			user.ID, user.Username, user.Email, user.FirstName, user.LastName, user.Phone,
			dateParam(user.BirthDate), user.IsVerified, user.AcceptsMarketing, user.IsActive, roleParam(user.Role),
			user.PasswordHash)
		var err error
		created, err = scanUser(row)
		if err != nil {
			return err
		}

		const insertProfile = `
			INSERT INTO profiles (user_id, bio, website, avatar, preferred_language)
			VALUES ($1, $2, $3, $4, $5)`
		if _, err := tx.Exec(ctx, insertProfile,
			created.ID, profile.Bio, profile.Website, profile.Avatar, profile.PreferredLanguage); err != nil {
			return fmt.Errorf("insert profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.User{}, translate(err)
	}
	return created, nil
}

// GetUser fetches a user by id.
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	return user, translate(err)
}

// FindByEmail fetches a user by email address, ignoring case.
func (s *Store) FindByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	user, err := scanUser(row)
	return user, translate(err)
}

// FindByUsernameOrEmail fetches the first user matching the identifier as username or email.
func (s *Store) FindByUsernameOrEmail(ctx context.Context, identifier string) (models.User, error) {
	const query = `
	SELECT ` + userColumns + `
	FROM users
	WHERE username = $1 OR lower(email) = lower($1)
	LIMIT 1;
	`
	user, err := scanUser(s.pool.QueryRow(ctx, query, identifier))
	return user, translate(err)
}

func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1))`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return exists, nil
}

func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

// ListUsers returns every user ordered by creation time, then id.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := make([]models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

const updateUserQuery = `
	UPDATE users SET
		first_name = $2,
		last_name = $3,
		phone = $4,
		birth_date = $5,
		accepts_marketing = $6,
		is_verified = $7,
		is_active = $8,
		role = COALESCE(NULLIF($9, ''), role),
		updated_at = NOW()
	WHERE id = $1
	RETURNING ` + userColumns

// UpdateUser overwrites the mutable columns of an existing user.
func (s *Store) UpdateUser(ctx context.Context, user models.User) (models.User, error) {
	updated, err := scanUser(execUpdateUser(ctx, s.pool, user))
	return updated, translate(err)
}

// UpdateAccount writes the user and profile rows in one transaction.
func (s *Store) UpdateAccount(ctx context.Context, user models.User, profile models.Profile) (models.User, models.Profile, error) {
	var (
		updatedUser    models.User
		updatedProfile models.Profile
	)
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		if updatedUser, err = scanUser(execUpdateUser(ctx, tx, user)); err != nil {
			return err
		}
		const query = `
			UPDATE profiles SET bio = $2, website = $3, avatar = $4, preferred_language = $5
			WHERE user_id = $1
			RETURNING user_id, bio, website, avatar, preferred_language`
		updatedProfile, err = scanProfile(tx.QueryRow(ctx, query,
			user.ID, profile.Bio, profile.Website, profile.Avatar, profile.PreferredLanguage))
		return err
	})
	if err != nil {
		return models.User{}, models.Profile{}, translate(err)
	}
	return updatedUser, updatedProfile, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func execUpdateUser(ctx context.Context, q queryRower, user models.User) pgx.Row {
	return q.QueryRow(ctx, updateUserQuery, user.ID, user.FirstName, user.LastName, user.Phone,
		dateParam(user.BirthDate), user.AcceptsMarketing, user.IsVerified, user.IsActive, string(user.Role))
}

// UpdatePassword replaces the stored hash in a single statement.
func (s *Store) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return translate(pgx.ErrNoRows)
	}
	return nil
}

func (s *Store) GetProfile(ctx context.Context, userID uuid.UUID) (models.Profile, error) {
	const query = `SELECT user_id, bio, website, avatar, preferred_language FROM profiles WHERE user_id = $1`
	profile, err := scanProfile(s.pool.QueryRow(ctx, query, userID))
	return profile, translate(err)
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	var birthDate *time.Time
	var role string
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FirstName, &user.LastName, &user.Phone,
		&birthDate, &user.IsVerified, &user.AcceptsMarketing, &user.IsActive, &role, &user.PasswordHash,
		&user.CreatedAt, &user.UpdatedAt); err != nil {
		return models.User{}, err
	}
	parsed, err := models.ParseRole(role)
	if err != nil {
		return models.User{}, err
	}
	user.Role = parsed
	if birthDate != nil {
		d := models.NewDate(*birthDate)
		user.BirthDate = &d
	}
	return user, nil
}

func scanProfile(row pgx.Row) (models.Profile, error) {
	var p models.Profile
	if err := row.Scan(&p.UserID, &p.Bio, &p.Website, &p.Avatar, &p.PreferredLanguage); err != nil {
		return models.Profile{}, err
	}
	return p, nil
}

func dateParam(d *models.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func roleParam(r models.Role) string {
	if r == "" {
		return string(models.RoleCustomer)
	}
	return string(r)
}
