package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"arenapanel/internal/models"
)

const userColumns = `id, name, email, address, contact, birthdate, gender, role,
	picture_url, password_hash, created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u         models.User
		birthdate string
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Address, &u.Contact, &birthdate, &u.Gender, &u.Role,
		&u.PictureURL, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if birthdate != "" {
		u.Birthdate, err = time.Parse(models.DateFormat, birthdate)
		if err != nil {
			return nil, fmt.Errorf("failed to parse birthdate %s: %w", birthdate, err)
		}
	}
	return &u, nil
}

func (db *DB) ListUsers(ctx context.Context, filter models.UserFilter) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if filter.Role != nil {
		query += " WHERE role = ?"
		args = append(args, *filter.Role)
	}
	query += " ORDER BY name ASC, id ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (db *DB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, models.NormalizeEmail(email))
}

func (db *DB) queryUser(ctx context.Context, query string, args ...any) (*models.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	now := time.Now()
	result, err := db.ExecContext(ctx, `INSERT INTO users (
				name, email, address, contact, birthdate, gender, role,
				picture_url, password_hash, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Name,
		user.Email,
		user.Address,
		user.Contact,
		formatDate(user.Birthdate),
		user.Gender,
		user.Role,
		user.PictureURL,
		user.PasswordHash,
		now,
		now,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (db *DB) UpdateUser(ctx context.Context, id int64, update models.UserUpdate) (*models.User, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	current, err := scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user in tx: %w", err)
	}

	next := update.Apply(*current)
	next.UpdatedAt = time.Now()

	_, err = tx.ExecContext(ctx, `UPDATE users SET
				name = ?, email = ?, address = ?, contact = ?, birthdate = ?, gender = ?,
				role = ?, picture_url = ?, password_hash = ?, updated_at = ?
			WHERE id = ?`,
		next.Name, next.Email, next.Address, next.Contact, formatDate(next.Birthdate), next.Gender,
		next.Role, next.PictureURL, next.PasswordHash, next.UpdatedAt, id,
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateEmail
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit user update: %w", err)
	}
	return &next, nil
}

func (db *DB) DeleteUser(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return checkAffected(result, ErrNotFound)
}
