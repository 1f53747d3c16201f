package models

import "time"

type TicketStatus string

const (
	TicketPending    TicketStatus = "pending"
	TicketInProgress TicketStatus = "in_progress"
	TicketCompleted  TicketStatus = "completed"
	TicketCancelled  TicketStatus = "cancelled"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketPending, TicketInProgress, TicketCompleted, TicketCancelled:
		return true
	}
	return false
}

type Ticket struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Requester   string       `json:"requester"`
	SpaceName   string       `json:"space_name"`
	Date        time.Time    `json:"date"`
	Description string       `json:"description"`
	Status      TicketStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type TicketFilter struct {
	Status    TicketStatus
	SpaceName string
}

type TicketUpdate struct {
	Title       *string       `json:"title"`
	Requester   *string       `json:"requester"`
	SpaceName   *string       `json:"space_name"`
	Date        *time.Time    `json:"date"`
	Description *string       `json:"description"`
	Status      *TicketStatus `json:"status"`
}

func (u TicketUpdate) Apply(t Ticket) Ticket {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Requester != nil {
		t.Requester = *u.Requester
	}
	if u.SpaceName != nil {
		t.SpaceName = *u.SpaceName
	}
	if u.Date != nil {
		t.Date = *u.Date
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	return t
}
