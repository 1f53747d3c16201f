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

const ticketColumns = `id, title, requester, space_name, date, description, status, created_at, updated_at`

func scanTicket(row rowScanner) (*models.Ticket, error) {
	var (
		t       models.Ticket
		dateStr string
	)
	err := row.Scan(&t.ID, &t.Title, &t.Requester, &t.SpaceName, &dateStr,
		&t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if dateStr != "" {
		t.Date, err = time.Parse(models.DateFormat, dateStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ticket date %s: %w", dateStr, err)
		}
	}
	return &t, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(models.DateFormat)
}

func (db *DB) ListTickets(ctx context.Context, filter models.TicketFilter) ([]*models.Ticket, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.SpaceName != "" {
		where = append(where, "space_name = ? COLLATE NOCASE")
		args = append(args, filter.SpaceName)
	}

	query := `SELECT ` + ticketColumns + ` FROM tickets`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func (db *DB) GetTicket(ctx context.Context, id int64) (*models.Ticket, error) {
	t, err := scanTicket(db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return t, nil
}

func (db *DB) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	if ticket.Status == "" {
		ticket.Status = models.TicketPending
	}
	now := time.Now()
	result, err := db.ExecContext(ctx, `INSERT INTO tickets (
				title, requester, space_name, date, description, status, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ticket.Title,
		ticket.Requester,
		ticket.SpaceName,
		formatDate(ticket.Date),
		ticket.Description,
		ticket.Status,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	ticket.ID = id
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	return nil
}

func (db *DB) UpdateTicket(ctx context.Context, id int64, update models.TicketUpdate) (*models.Ticket, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	current, err := scanTicket(tx.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket in tx: %w", err)
	}

	next := update.Apply(*current)
	next.UpdatedAt = time.Now()

	_, err = tx.ExecContext(ctx, `UPDATE tickets SET
				title = ?, requester = ?, space_name = ?, date = ?, description = ?, status = ?, updated_at = ?
			WHERE id = ?`,
		next.Title, next.Requester, next.SpaceName, formatDate(next.Date),
		next.Description, next.Status, next.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update ticket: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit ticket update: %w", err)
	}
	return &next, nil
}

func (db *DB) DeleteTicket(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM tickets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete ticket: %w", err)
	}
	return checkAffected(result, ErrNotFound)
}
