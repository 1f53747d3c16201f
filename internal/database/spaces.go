package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"arenapanel/internal/models"
)

const spaceColumns = `id, name, modality, street, number, city, postal_code, price_cents,
	opening_min, closing_min, max_capacity, available, lat, lng, image_url, created_at, updated_at`

func toCents(price float64) int64 {
	return int64(math.Round(price * 100))
}

func scanSpace(row rowScanner) (*models.Space, error) {
	var (
		s                models.Space
		cents            int64
		opening, closing int
		lat, lng         sql.NullFloat64
	)
	err := row.Scan(
		&s.ID, &s.Name, &s.Modality, &s.Address.Street, &s.Address.Number, &s.Address.City,
		&s.Address.PostalCode, &cents, &opening, &closing, &s.MaxCapacity, &s.Available,
		&lat, &lng, &s.ImageURL, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.PricePerHour = float64(cents) / 100
	s.OpeningTime = models.Clock(opening)
	s.ClosingTime = models.Clock(closing)
	if lat.Valid && lng.Valid {
		s.Location = &models.GeoPoint{Lat: lat.Float64, Lng: lng.Float64}
	}
	return &s, nil
}

func locationArgs(loc *models.GeoPoint) (any, any) {
	if loc == nil {
		return nil, nil
	}
	return loc.Lat, loc.Lng
}

func (db *DB) ListSpaces(ctx context.Context, filter models.SpaceFilter) ([]*models.Space, error) {
	var (
		where []string
		args  []any
	)
	if filter.Modality != "" {
		where = append(where, "modality = ?")
		args = append(args, filter.Modality)
	}
	if filter.AvailableOnly {
		where = append(where, "available = 1")
	}

	query := `SELECT ` + spaceColumns + ` FROM spaces`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name ASC, id ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list spaces: %w", err)
	}
	defer rows.Close()

	var spaces []*models.Space
	for rows.Next() {
		s, err := scanSpace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan space: %w", err)
		}
		spaces = append(spaces, s)
	}
	return spaces, rows.Err()
}

func (db *DB) GetSpace(ctx context.Context, id int64) (*models.Space, error) {
	s, err := scanSpace(db.QueryRowContext(ctx, `SELECT `+spaceColumns+` FROM spaces WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get space: %w", err)
	}
	return s, nil
}

func (db *DB) CreateSpace(ctx context.Context, space *models.Space) error {
	lat, lng := locationArgs(space.Location)
	now := time.Now()
	result, err := db.ExecContext(ctx, `INSERT INTO spaces (
				name, modality, street, number, city, postal_code, price_cents,
				opening_min, closing_min, max_capacity, available, lat, lng, image_url,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		space.Name,
		space.Modality,
		space.Address.Street,
		space.Address.Number,
		space.Address.City,
		space.Address.PostalCode,
		toCents(space.PricePerHour),
		int(space.OpeningTime),
		int(space.ClosingTime),
		space.MaxCapacity,
		space.Available,
		lat,
		lng,
		space.ImageURL,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create space: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	space.ID = id
	space.CreatedAt = now
	space.UpdatedAt = now
	return nil
}

// UpdateSpace applies a partial update and returns the stored result.
func (db *DB) UpdateSpace(ctx context.Context, id int64, update models.SpaceUpdate) (*models.Space, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	current, err := scanSpace(tx.QueryRowContext(ctx, `SELECT `+spaceColumns+` FROM spaces WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get space in tx: %w", err)
	}

	next := update.Apply(*current)
	next.UpdatedAt = time.Now()
	lat, lng := locationArgs(next.Location)

	_, err = tx.ExecContext(ctx, `UPDATE spaces SET
				name = ?, modality = ?, street = ?, number = ?, city = ?, postal_code = ?,
				price_cents = ?, opening_min = ?, closing_min = ?, max_capacity = ?,
				available = ?, lat = ?, lng = ?, image_url = ?, updated_at = ?
			WHERE id = ?`,
		next.Name,
		next.Modality,
		next.Address.Street,
		next.Address.Number,
		next.Address.City,
		next.Address.PostalCode,
		toCents(next.PricePerHour),
		int(next.OpeningTime),
		int(next.ClosingTime),
		next.MaxCapacity,
		next.Available,
		lat,
		lng,
		next.ImageURL,
		next.UpdatedAt,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update space: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit space update: %w", err)
	}
	return &next, nil
}

// DeleteSpace removes a space and its cancelled bookings. A space with
// pending or confirmed bookings is refused with ErrSpaceInUse.
func (db *DB) DeleteSpace(ctx context.Context, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var active int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE space_id = ? AND status != ?`,
		id, models.BookingCancelled,
	).Scan(&active)
	if err != nil {
		return fmt.Errorf("failed to count space bookings: %w", err)
	}
	if active > 0 {
		return ErrSpaceInUse
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE space_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete cancelled bookings: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM spaces WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete space: %w", err)
	}
	if err := checkAffected(result, ErrNotFound); err != nil {
		return err
	}
	return tx.Commit()
}
