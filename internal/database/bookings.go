package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"arenapanel/internal/models"
)

const bookingColumns = `id, title, space_id, space_name, date, start_min, end_min,
	description, status, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b          models.Booking
		dateStr    string
		start, end int
	)
	err := row.Scan(
		&b.ID, &b.Title, &b.SpaceID, &b.SpaceName, &dateStr, &start, &end,
		&b.Description, &b.Status, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	b.Date, err = time.Parse(models.DateFormat, dateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse booking date %s: %w", dateStr, err)
	}
	b.StartTime = models.Clock(start)
	b.EndTime = models.Clock(end)
	return &b, nil
}

func (db *DB) ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	var (
		where []string
		args  []any
	)
	if filter.SpaceID != 0 {
		where = append(where, "space_id = ?")
		args = append(args, filter.SpaceID)
	}
	if !filter.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, filter.From.Format(models.DateFormat))
	}
	if !filter.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, filter.To.Format(models.DateFormat))
	}
	switch {
	case filter.Status != "":
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	case !filter.IncludeCancelled:
		where = append(where, "status != ?")
		args = append(args, models.BookingCancelled)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date ASC, start_min ASC, id ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

// findOverlap returns the earliest active booking in tx that overlaps b on
// the same space and date, ignoring b itself.
func findOverlap(ctx context.Context, tx *sql.Tx, b *models.Booking) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE space_id = ? AND date = ? AND status != ? AND id != ?
                AND start_min < ? AND ? < end_min
              ORDER BY start_min ASC, id ASC LIMIT 1`
	row := tx.QueryRowContext(ctx, query,
		b.SpaceID, b.Date.Format(models.DateFormat), models.BookingCancelled, b.ID,
		int(b.EndTime), int(b.StartTime),
	)
	conflict, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check overlap in tx: %w", err)
	}
	return conflict, nil
}

// CreateBookingWithLock inserts the booking unless an active booking for the
// same space and date overlaps it, in which case *OverlapError is returned.
func (db *DB) CreateBookingWithLock(ctx context.Context, booking *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if booking.IsActive() {
		conflict, err := findOverlap(ctx, tx, booking)
		if err != nil {
			return err
		}
		if conflict != nil {
			return &OverlapError{Conflict: conflict}
		}
	}

	if booking.Status == "" {
		booking.Status = models.BookingPending
	}

	now := time.Now()
	result, err := tx.ExecContext(ctx, `INSERT INTO bookings (
				title, space_id, space_name, date, start_min, end_min,
				description, status, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.Title,
		booking.SpaceID,
		booking.SpaceName,
		booking.Date.Format(models.DateFormat),
		int(booking.StartTime),
		int(booking.EndTime),
		booking.Description,
		booking.Status,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

// UpdateBookingWithLock rewrites the booking if its version still matches and
// the new slot does not overlap another active booking. On success the
// booking's version is advanced.
func (db *DB) UpdateBookingWithLock(ctx context.Context, booking *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var current int64
	err = tx.QueryRowContext(ctx, `SELECT version FROM bookings WHERE id = ?`, booking.ID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read booking version: %w", err)
	}
	if current != booking.Version {
		return ErrConcurrentModification
	}

	if booking.IsActive() {
		conflict, err := findOverlap(ctx, tx, booking)
		if err != nil {
			return err
		}
		if conflict != nil {
			return &OverlapError{Conflict: conflict}
		}
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `UPDATE bookings SET
				title = ?, space_id = ?, space_name = ?, date = ?, start_min = ?, end_min = ?,
				description = ?, status = ?, updated_at = ?, version = version + 1
			WHERE id = ? AND version = ?`,
		booking.Title,
		booking.SpaceID,
		booking.SpaceName,
		booking.Date.Format(models.DateFormat),
		int(booking.StartTime),
		int(booking.EndTime),
		booking.Description,
		booking.Status,
		now,
		booking.ID,
		booking.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking update: %w", err)
	}

	booking.UpdatedAt = now
	booking.Version++
	return nil
}

// UpdateBookingStatusWithVersion moves a booking to status when fromVersion
// is current. Reactivating a cancelled booking re-checks its slot.
func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, status models.BookingStatus) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	b, err := scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get booking in tx: %w", err)
	}
	if b.Version != fromVersion {
		return ErrConcurrentModification
	}

	if !b.IsActive() && status != models.BookingCancelled {
		b.Status = status
		conflict, err := findOverlap(ctx, tx, b)
		if err != nil {
			return err
		}
		if conflict != nil {
			return &OverlapError{Conflict: conflict}
		}
	}

	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	result, err := tx.ExecContext(ctx, query, status, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if err := checkAffected(result, ErrConcurrentModification); err != nil {
		return err
	}
	return tx.Commit()
}

func (db *DB) DeleteBooking(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	return checkAffected(result, ErrNotFound)
}
