package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hongminglow/storefront-accounts/internal/models"
	"github.com/hongminglow/storefront-accounts/internal/storage"
	"github.com/jackc/pgx/v5"
)

const addressColumns = `id, user_id, type, street_address, apartment, city, state, postal_code, country,
	is_default, is_active, delivery_instructions, created_at, updated_at`

// ListAddresses returns the user's addresses ordered by creation time, then id.
func (s *Store) ListAddresses(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+addressColumns+` FROM addresses WHERE user_id = $1 ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	out := make([]models.Address, 0)
	for rows.Next() {
		addr, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	return out, nil
}

// GetAddress fetches an address the user owns.
func (s *Store) GetAddress(ctx context.Context, userID, id uuid.UUID) (models.Address, error) {
	addr, err := scanAddress(s.pool.QueryRow(ctx, `SELECT `+addressColumns+` FROM addresses WHERE id = $1`, id))
	if err != nil {
		return models.Address{}, translate(err)
	}
	if addr.UserID != userID {
		return models.Address{}, storage.ErrForbidden
	}
	return addr, nil
}

// CreateAddress inserts an address, clearing sibling defaults first when it is the new default.
func (s *Store) CreateAddress(ctx context.Context, address models.Address) (models.Address, error) {
	if address.ID == uuid.Nil {
		address.ID = uuid.New()
	}
	var created models.Address
	err := s.withUserLock(ctx, address.UserID, func(tx pgx.Tx) error {
		if address.IsDefault {
			if err := clearDefaults(ctx, tx, address.UserID, address.ID); err != nil {
				return err
			}
		}
		const query = `
			INSERT INTO addresses (id, user_id, type, street_address, apartment, city, state, postal_code,
				country, is_default, is_active, delivery_instructions)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING ` + addressColumns
		var err error
		created, err = scanAddress(tx.QueryRow(ctx, query,
			address.ID, address.UserID, address.Type.String(), address.StreetAddress, address.Apartment,
			address.City, address.State, address.PostalCode, address.Country, address.IsDefault,
			address.IsActive, address.DeliveryInstructions))
		return err
	})
	if err != nil {
		return models.Address{}, translate(err)
	}
	return created, nil
}

// UpdateAddress loads an owned address under the user lock, applies mutate and
// writes the result, clearing sibling defaults when it ends up default.
func (s *Store) UpdateAddress(ctx context.Context, userID, id uuid.UUID, mutate storage.AddressMutator) (models.Address, error) {
	var updated models.Address
	err := s.withUserLock(ctx, userID, func(tx pgx.Tx) error {
		address, err := scanAddress(tx.QueryRow(ctx, `SELECT `+addressColumns+` FROM addresses WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("load address: %w", err)
		}
		if address.UserID != userID {
			return storage.ErrForbidden
		}
		if err := mutate(&address); err != nil {
			return err
		}
		if address.IsDefault {
			if err := clearDefaults(ctx, tx, userID, address.ID); err != nil {
				return err
			}
		}
		const query = `
			UPDATE addresses SET
				type = $2, street_address = $3, apartment = $4, city = $5, state = $6,
				postal_code = $7, country = $8, is_default = $9, is_active = $10,
				delivery_instructions = $11, updated_at = NOW()
			WHERE id = $1
			RETURNING ` + addressColumns
		updated, err = scanAddress(tx.QueryRow(ctx, query,
			address.ID, address.Type.String(), address.StreetAddress, address.Apartment, address.City,
			address.State, address.PostalCode, address.Country, address.IsDefault, address.IsActive,
			address.DeliveryInstructions))
		return err
	})
	if err != nil {
		return models.Address{}, translate(err)
	}
	return updated, nil
}

func (s *Store) DeleteAddress(ctx context.Context, userID, id uuid.UUID) error {
	err := s.withUserLock(ctx, userID, func(tx pgx.Tx) error {
		if err := checkOwner(ctx, tx, userID, id); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM addresses WHERE id = $1`, id)
		return err
	})
	return translate(err)
}

// SetDefaultAddress clears every other default of the user and flags id, atomically.
func (s *Store) SetDefaultAddress(ctx context.Context, userID, id uuid.UUID) (models.Address, error) {
	var updated models.Address
	err := s.withUserLock(ctx, userID, func(tx pgx.Tx) error {
		if err := checkOwner(ctx, tx, userID, id); err != nil {
			return err
		}
		if err := clearDefaults(ctx, tx, userID, id); err != nil {
			return err
		}
		var err error
		updated, err = scanAddress(tx.QueryRow(ctx,
			`UPDATE addresses SET is_default = TRUE, updated_at = NOW() WHERE id = $1 RETURNING `+addressColumns, id))
		return err
	})
	if err != nil {
		return models.Address{}, translate(err)
	}
	return updated, nil
}

func checkOwner(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) error {
	var owner uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT user_id FROM addresses WHERE id = $1`, id).Scan(&owner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("load address owner: %w", err)
	}
	if owner != userID {
		return storage.ErrForbidden
	}
	return nil
}

func clearDefaults(ctx context.Context, tx pgx.Tx, userID, except uuid.UUID) error {
	const query = `UPDATE addresses SET is_default = FALSE, updated_at = NOW() WHERE user_id = $1 AND id <> $2 AND is_default`
	if _, err := tx.Exec(ctx, query, userID, except); err != nil {
		return fmt.Errorf("clear default addresses: %w", err)
	}
	return nil
}

func scanAddress(row pgx.Row) (models.Address, error) {
	var addr models.Address
	var kind string
	if err := row.Scan(&addr.ID, &addr.UserID, &kind, &addr.StreetAddress, &addr.Apartment, &addr.City,
		&addr.State, &addr.PostalCode, &addr.Country, &addr.IsDefault, &addr.IsActive,
		&addr.DeliveryInstructions, &addr.CreatedAt, &addr.UpdatedAt); err != nil {
		return models.Address{}, err
	}
	t, err := models.ParseAddressType(kind)
	if err != nil {
		return models.Address{}, err
	}
	addr.Type = t
	return addr, nil
}
