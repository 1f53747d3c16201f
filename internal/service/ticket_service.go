package service

import (
	"context"
	"strings"

	"arenapanel/internal/access"
	"arenapanel/internal/domain"
	"arenapanel/internal/events"
	"arenapanel/internal/models"

	"github.com/rs/zerolog"
)

type TicketService struct {
	repo     domain.TicketRepository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewTicketService(repo domain.TicketRepository, eventBus domain.EventPublisher, logger *zerolog.Logger) *TicketService {
	return &TicketService{repo: repo, eventBus: eventBus, logger: logger}
}

func validateTicket(t *models.Ticket) error {
	fields := fieldErrors{}
	if strings.TrimSpace(t.Title) == "" {
		fields.add("title", "title is required")
	}
	if strings.TrimSpace(t.Requester) == "" {
		fields.add("requester", "requester is required")
	}
	if strings.TrimSpace(t.Description) == "" {
		fields.add("description", "description is required")
	}
	if !t.Status.Valid() {
		fields.add("status", "unknown status")
	}
	return fields.err()
}

func (s *TicketService) List(ctx context.Context, actor access.Session, filter models.TicketFilter) ([]*models.Ticket, error) {
	if err := authorize(actor, access.ActionView, false); err != nil {
		return nil, err
	}
	tickets, err := s.repo.ListTickets(ctx, filter)
	if err != nil {
		return nil, &PersistenceError{Op: "list tickets", Err: err}
	}
	return tickets, nil
}

func (s *TicketService) Get(ctx context.Context, actor access.Session, id int64) (*models.Ticket, error) {
	if err := authorize(actor, access.ActionView, false); err != nil {
		return nil, err
	}
	ticket, err := s.repo.GetTicket(ctx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "get ticket", Err: err}
	}
	return ticket, nil
}

func (s *TicketService) Create(ctx context.Context, actor access.Session, ticket *models.Ticket) error {
	if ticket.Status == "" {
		ticket.Status = models.TicketPending
	}
	if err := validateTicket(ticket); err != nil {
		return err
	}
	if err := authorize(actor, access.ActionCreate, false); err != nil {
		return err
	}
	if err := s.repo.CreateTicket(ctx, ticket); err != nil {
		return &PersistenceError{Op: "create ticket", Err: err}
	}
	s.publishEvent(events.EventTicketCreated, ticket, actor.UserID)
	return nil
}

func (s *TicketService) Update(ctx context.Context, actor access.Session, id int64, update models.TicketUpdate) (*models.Ticket, error) {
	if err := authorize(actor, access.ActionEdit, false); err != nil {
		return nil, err
	}

	current, err := s.repo.GetTicket(ctx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "get ticket", Err: err}
	}
	merged := update.Apply(*current)
	if err := validateTicket(&merged); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateTicket(ctx, id, update)
	if err != nil {
		return nil, &PersistenceError{Op: "update ticket", Err: err}
	}
	s.publishEvent(events.EventTicketUpdated, updated, actor.UserID)
	return updated, nil
}

func (s *TicketService) Delete(ctx context.Context, actor access.Session, id int64) error {
	if err := authorize(actor, access.ActionDelete, false); err != nil {
		return err
	}
	if err := s.repo.DeleteTicket(ctx, id); err != nil {
		return &PersistenceError{Op: "delete ticket", Err: err}
	}
	return nil
}

func (s *TicketService) publishEvent(eventType string, t *models.Ticket, changedByID int64) {
	if s.eventBus == nil {
		return
	}
	payload := events.TicketEventPayload{
		TicketID:    t.ID,
		Title:       t.Title,
		Requester:   t.Requester,
		SpaceName:   t.SpaceName,
		Status:      string(t.Status),
		ChangedByID: changedByID,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("ticket_id", t.ID).Msg("publish event error")
	}
}
