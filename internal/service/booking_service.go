package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"arenapanel/internal/access"
	"arenapanel/internal/availability"
	"arenapanel/internal/config"
	"arenapanel/internal/database"
	"arenapanel/internal/domain"
	"arenapanel/internal/events"
	"arenapanel/internal/metrics"
	"arenapanel/internal/models"

	"github.com/rs/zerolog"
)

const (
	maxTitleLength       = 120
	maxDescriptionLength = 2000
)

type Op string

const (
	OpCreate Op = "create"
	OpEdit   Op = "edit"
	OpDelete Op = "delete"
)

func (op Op) action() access.Action {
	switch op {
	case OpEdit:
		return access.ActionEdit
	case OpDelete:
		return access.ActionDelete
	default:
		return access.ActionCreate
	}
}

// State is the position of a submission in the booking lifecycle:
// draft -> validated -> authorized -> committed, or rejected at any step.
type State string

const (
	StateDraft      State = "draft"
	StateValidated  State = "validated"
	StateAuthorized State = "authorized"
	StateCommitted  State = "committed"
	StateRejected   State = "rejected"
)

// BookingForm is the user-entered booking draft.
type BookingForm struct {
	Title       string               `json:"title"`
	SpaceID     int64                `json:"space_id"`
	Date        string               `json:"date"`
	StartTime   string               `json:"start_time"`
	EndTime     string               `json:"end_time"`
	Description string               `json:"description"`
	Status      models.BookingStatus `json:"status,omitempty"`
	Version     int64                `json:"version,omitempty"`
}

type SubmitRequest struct {
	Op        Op
	BookingID int64
	Form      BookingForm
}

// Submission reports how far a request got. Draft is always the form as
// submitted so a rejected request can be corrected and resent.
type Submission struct {
	State   State           `json:"state"`
	Draft   BookingForm     `json:"draft"`
	Booking *models.Booking `json:"booking,omitempty"`
}

type BookingService struct {
	bookings       domain.BookingRepository
	spaces         domain.SpaceRepository
	eventBus       domain.EventPublisher
	sheetsWorker   domain.SyncWorker
	maxBookingDays int
	allowPastDates bool
	now            func() time.Time
	logger         *zerolog.Logger
}

func NewBookingService(
	bookings domain.BookingRepository,
	spaces domain.SpaceRepository,
	eventBus domain.EventPublisher,
	sheetsWorker domain.SyncWorker,
	cfg config.BookingsConfig,
	logger *zerolog.Logger,
) *BookingService {
	maxBookingDays := cfg.MaxBookingDays
	if maxBookingDays <= 0 {
		maxBookingDays = models.MaxBookingDays
	}
	return &BookingService{
		bookings:       bookings,
		spaces:         spaces,
		eventBus:       eventBus,
		sheetsWorker:   sheetsWorker,
		maxBookingDays: maxBookingDays,
		allowPastDates: cfg.AllowPastDates,
		now:            time.Now,
		logger:         logger,
	}
}

// Submit runs a create, edit or delete through validation, authorization and
// availability before touching storage. The returned Submission is non-nil
// even when err is set.
func (s *BookingService) Submit(ctx context.Context, actor access.Session, req SubmitRequest) (*Submission, error) {
	sub := &Submission{State: StateDraft, Draft: req.Form}

	draft, err := s.validate(req)
	if err != nil {
		return s.reject(sub, req.Op, err)
	}
	sub.State = StateValidated

	if err := authorize(actor, req.Op.action(), false); err != nil {
		return s.reject(sub, req.Op, err)
	}
	sub.State = StateAuthorized

	if err := ctx.Err(); err != nil {
		return s.reject(sub, req.Op, err)
	}

	var booking *models.Booking
	switch req.Op {
	case OpCreate:
		booking, err = s.commitCreate(ctx, draft)
	case OpEdit:
		booking, err = s.commitEdit(ctx, req.BookingID, req.Form.Version, draft)
	case OpDelete:
		booking, err = s.commitDelete(ctx, req.BookingID)
	}
	if err != nil {
		return s.reject(sub, req.Op, err)
	}

	sub.State = StateCommitted
	sub.Booking = booking
	metrics.IncSubmission(string(req.Op), string(StateCommitted), "")

	switch req.Op {
	case OpCreate:
		s.publishEvent(events.EventBookingCreated, *booking, actor.UserID)
		s.enqueueSync(ctx, *booking, "upsert")
	case OpEdit:
		s.publishEvent(events.EventBookingUpdated, *booking, actor.UserID)
		s.enqueueSync(ctx, *booking, "upsert")
	case OpDelete:
		s.publishEvent(events.EventBookingDeleted, *booking, actor.UserID)
		s.enqueueSync(ctx, *booking, "delete")
	}

	s.logger.Info().
		Str("op", string(req.Op)).
		Int64("booking_id", booking.ID).
		Int64("user_id", actor.UserID).
		Msg("booking submission committed")

	return sub, nil
}

func (s *BookingService) reject(sub *Submission, op Op, err error) (*Submission, error) {
	sub.State = StateRejected
	reason := rejectionReason(err)
	metrics.IncSubmission(string(op), string(StateRejected), reason)
	s.logger.Debug().Err(err).Str("op", string(op)).Str("reason", reason).Msg("booking submission rejected")
	return sub, err
}

func rejectionReason(err error) string {
	var (
		validation   *ValidationError
		authz        *AuthorizationError
		avail        *AvailabilityError
		persistence  *PersistenceError
		invalidRange *models.InvalidRangeError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &invalidRange):
		return "validation"
	case errors.As(err, &authz):
		return "authorization"
	case errors.As(err, &avail):
		return "availability"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, database.ErrNotFound):
		return "not_found"
	case errors.Is(err, database.ErrConcurrentModification):
		return "conflict"
	case errors.As(err, &persistence):
		return "persistence"
	}
	return "unknown"
}

// validate turns the form into a booking without consulting storage. Deletes
// only need an id.
func (s *BookingService) validate(req SubmitRequest) (*models.Booking, error) {
	fields := fieldErrors{}

	switch req.Op {
	case OpCreate:
	case OpEdit, OpDelete:
		if req.BookingID <= 0 {
			fields.add("id", "booking id is required")
		}
	default:
		fields.add("op", "unknown operation")
		return nil, fields.err()
	}
	if req.Op == OpDelete {
		return nil, fields.err()
	}

	f := req.Form
	title := strings.TrimSpace(f.Title)
	switch {
	case title == "":
		fields.add("title", "title is required")
	case utf8.RuneCountInString(title) > maxTitleLength:
		fields.add("title", "title is too long")
	}

	if f.SpaceID <= 0 {
		fields.add("space_id", "space is required")
	}

	date, err := time.Parse(models.DateFormat, strings.TrimSpace(f.Date))
	if err != nil {
		fields.add("date", "date must be YYYY-MM-DD")
	} else {
		today := truncateDay(s.now())
		if req.Op == OpCreate && !s.allowPastDates && date.Before(today) {
			fields.add("date", "date cannot be in the past")
		}
		if date.After(today.AddDate(0, 0, s.maxBookingDays)) {
			fields.add("date", "date is too far in the future")
		}
	}

	start, startErr := models.ParseClock(f.StartTime)
	if startErr != nil {
		fields.add("start_time", "start time must be HH:MM")
	}
	end, endErr := models.ParseClock(f.EndTime)
	if endErr != nil {
		fields.add("end_time", "end time must be HH:MM")
	}
	var r models.TimeRange
	if startErr == nil && endErr == nil {
		if r, err = models.NewTimeRange(start, end); err != nil {
			fields.add("end_time", "end time must be after start time")
		}
	}

	if utf8.RuneCountInString(f.Description) > maxDescriptionLength {
		fields.add("description", "description is too long")
	}
	if f.Status != "" && !f.Status.Valid() {
		fields.add("status", "unknown status")
	}

	if err := fields.err(); err != nil {
		return nil, err
	}

	return &models.Booking{
		Title:       title,
		SpaceID:     f.SpaceID,
		Date:        date,
		StartTime:   r.Start,
		EndTime:     r.End,
		Description: strings.TrimSpace(f.Description),
		Status:      f.Status,
	}, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// admit resolves the booking's space and checks the slot against a fresh
// read of that day's bookings.
func (s *BookingService) admit(ctx context.Context, booking *models.Booking) error {
	space, err := s.spaces.GetSpace(ctx, booking.SpaceID)
	if errors.Is(err, database.ErrNotFound) {
		return &ValidationError{Fields: map[string]string{"space_id": "space does not exist"}}
	}
	if err != nil {
		return &PersistenceError{Op: "get space", Err: err}
	}
	booking.SpaceName = space.Name

	existing, err := s.dayBookings(ctx, booking.SpaceID, booking.Date)
	if err != nil {
		return err
	}

	if err := availability.Check(availability.CandidateOf(booking), existing, *space); err != nil {
		var rej *availability.Rejection
		if errors.As(err, &rej) {
			return &AvailabilityError{Rejection: rej}
		}
		return err
	}

	return ctx.Err()
}

func (s *BookingService) dayBookings(ctx context.Context, spaceID int64, date time.Time) ([]models.Booking, error) {
	list, err := s.bookings.ListBookings(ctx, models.BookingFilter{SpaceID: spaceID, From: date, To: date})
	if err != nil {
		return nil, &PersistenceError{Op: "list bookings", Err: err}
	}
	existing := make([]models.Booking, 0, len(list))
	for _, b := range list {
		existing = append(existing, *b)
	}
	return existing, nil
}

func (s *BookingService) commitCreate(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	if booking.Status == "" {
		booking.Status = models.BookingPending
	}
	if err := s.admit(ctx, booking); err != nil {
		return nil, err
	}
	if err := s.bookings.CreateBookingWithLock(ctx, booking); err != nil {
		return nil, storageError("create booking", err)
	}
	return booking, nil
}

func (s *BookingService) commitEdit(ctx context.Context, id, version int64, draft *models.Booking) (*models.Booking, error) {
	current, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "get booking", Err: err}
	}
	if version != 0 && version != current.Version {
		return nil, &PersistenceError{Op: "update booking", Err: database.ErrConcurrentModification}
	}

	updated := *current
	updated.Title = draft.Title
	updated.SpaceID = draft.SpaceID
	updated.Date = draft.Date
	updated.StartTime = draft.StartTime
	updated.EndTime = draft.EndTime
	updated.Description = draft.Description
	if draft.Status != "" {
		updated.Status = draft.Status
	}

	if updated.IsActive() {
		if err := s.admit(ctx, &updated); err != nil {
			return nil, err
		}
	} else if updated.SpaceID != current.SpaceID {
		space, err := s.spaces.GetSpace(ctx, updated.SpaceID)
		if err != nil {
			return nil, storageError("get space", err)
		}
		updated.SpaceName = space.Name
	}

	if err := s.bookings.UpdateBookingWithLock(ctx, &updated); err != nil {
		return nil, storageError("update booking", err)
	}
	return &updated, nil
}

func (s *BookingService) commitDelete(ctx context.Context, id int64) (*models.Booking, error) {
	current, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "get booking", Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.bookings.DeleteBooking(ctx, id); err != nil {
		return nil, &PersistenceError{Op: "delete booking", Err: err}
	}
	return current, nil
}

// storageError maps the store's overlap report onto the same error the
// in-memory check produces.
func storageError(op string, err error) error {
	var overlap *database.OverlapError
	if errors.As(err, &overlap) {
		return &AvailabilityError{Rejection: &availability.Rejection{
			Reason:   availability.ReasonOverlap,
			Conflict: overlap.Conflict,
		}}
	}
	return &PersistenceError{Op: op, Err: err}
}

// SetStatus confirms, cancels or reopens a booking. A reopened booking must
// still fit its slot.
func (s *BookingService) SetStatus(ctx context.Context, actor access.Session, id, version int64, status models.BookingStatus) (*models.Booking, error) {
	if !status.Valid() {
		return nil, &ValidationError{Fields: map[string]string{"status": "unknown status"}}
	}
	if err := authorize(actor, access.ActionEdit, false); err != nil {
		return nil, err
	}

	current, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "get booking", Err: err}
	}
	if version == 0 {
		version = current.Version
	}
	if current.Status == status {
		return current, nil
	}

	if !current.IsActive() {
		reopened := *current
		reopened.Status = status
		if err := s.admit(ctx, &reopened); err != nil {
			metrics.IncSubmission("status", string(StateRejected), rejectionReason(err))
			return nil, err
		}
	}

	if err := s.bookings.UpdateBookingStatusWithVersion(ctx, id, version, status); err != nil {
		err = storageError("update booking status", err)
		metrics.IncSubmission("status", string(StateRejected), rejectionReason(err))
		return nil, err
	}
	metrics.IncSubmission("status", string(StateCommitted), "")

	booking, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "get booking", Err: err}
	}

	s.publishEvent(events.EventBookingStatusChanged, *booking, actor.UserID)
	s.enqueueSync(ctx, *booking, "upsert")

	return booking, nil
}

func (s *BookingService) List(ctx context.Context, actor access.Session, filter models.BookingFilter) ([]*models.Booking, error) {
	if err := authorize(actor, access.ActionView, false); err != nil {
		return nil, err
	}
	bookings, err := s.bookings.ListBookings(ctx, filter)
	if err != nil {
		return nil, &PersistenceError{Op: "list bookings", Err: err}
	}
	return bookings, nil
}

func (s *BookingService) Get(ctx context.Context, actor access.Session, id int64) (*models.Booking, error) {
	if err := authorize(actor, access.ActionView, false); err != nil {
		return nil, err
	}
	booking, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "get booking", Err: err}
	}
	return booking, nil
}

// FreeWindows lists the parts of the space's operating hours on date that no
// active booking covers.
func (s *BookingService) FreeWindows(ctx context.Context, actor access.Session, spaceID int64, date time.Time) ([]models.TimeRange, error) {
	if err := authorize(actor, access.ActionView, false); err != nil {
		return nil, err
	}
	space, err := s.spaces.GetSpace(ctx, spaceID)
	if err != nil {
		return nil, &PersistenceError{Op: "get space", Err: err}
	}
	existing, err := s.dayBookings(ctx, spaceID, date)
	if err != nil {
		return nil, err
	}
	return availability.FreeWindows(*space, existing, date), nil
}

func (s *BookingService) publishEvent(eventType string, booking models.Booking, changedByID int64) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:   booking.ID,
		Title:       booking.Title,
		SpaceID:     booking.SpaceID,
		SpaceName:   booking.SpaceName,
		Date:        booking.Date.Format(models.DateFormat),
		StartTime:   booking.StartTime.String(),
		EndTime:     booking.EndTime.String(),
		Status:      string(booking.Status),
		ChangedByID: changedByID,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context, booking models.Booking, taskType string) {
	if s.sheetsWorker == nil {
		return
	}

	if err := s.sheetsWorker.EnqueueTask(ctx, taskType, booking.ID, &booking); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Str("task", taskType).Msg("sheets enqueue error")
	}
}
