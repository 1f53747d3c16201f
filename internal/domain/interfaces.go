package domain

import (
	"context"
	"io"
	"time"

	"arenapanel/internal/access"
	"arenapanel/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type BookingRepository interface {
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	CreateBookingWithLock(ctx context.Context, booking *models.Booking) error
	UpdateBookingWithLock(ctx context.Context, booking *models.Booking) error
	UpdateBookingStatusWithVersion(ctx context.Context, id, version int64, status models.BookingStatus) error
	DeleteBooking(ctx context.Context, id int64) error
}

type SpaceRepository interface {
	ListSpaces(ctx context.Context, filter models.SpaceFilter) ([]*models.Space, error)
	GetSpace(ctx context.Context, id int64) (*models.Space, error)
	CreateSpace(ctx context.Context, space *models.Space) error
	UpdateSpace(ctx context.Context, id int64, update models.SpaceUpdate) (*models.Space, error)
	DeleteSpace(ctx context.Context, id int64) error
}

type TicketRepository interface {
	ListTickets(ctx context.Context, filter models.TicketFilter) ([]*models.Ticket, error)
	GetTicket(ctx context.Context, id int64) (*models.Ticket, error)
	CreateTicket(ctx context.Context, ticket *models.Ticket) error
	UpdateTicket(ctx context.Context, id int64, update models.TicketUpdate) (*models.Ticket, error)
	DeleteTicket(ctx context.Context, id int64) error
}

type UserRepository interface {
	ListUsers(ctx context.Context, filter models.UserFilter) ([]*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, id int64, update models.UserUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

type SyncQueue interface {
	CreateSyncTask(ctx context.Context, task *models.SyncTask) error
	GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error)
	GetFailedSyncTasks(ctx context.Context) ([]models.SyncTask, error)
	UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}

// SessionStore keeps login sessions and login attempt counters.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (*access.Session, error)
	SetSession(ctx context.Context, session access.Session, ttl time.Duration) error
	DeleteSession(ctx context.Context, id string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// FileStore stores an uploaded object and returns its public URL.
type FileStore interface {
	Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, bookingID int64, booking *models.Booking) error
}

type SheetsWriter interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	DeleteBooking(ctx context.Context, bookingID int64) error
	ReplaceBookings(ctx context.Context, bookings []*models.Booking) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}
