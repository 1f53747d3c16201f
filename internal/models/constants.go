package models

const (
	// DateFormat is the calendar date layout used in the API and database.
	DateFormat = "2006-01-02"

	// MaxUploadBytes limits uploaded images to 5MB.
	MaxUploadBytes = 5 << 20

	// DefaultSessionTTL session lifetime in seconds
	DefaultSessionTTL = 12 * 60 * 60

	// LoginAttemptsLimit failed logins per window
	LoginAttemptsLimit = 5

	// LoginAttemptsWindow window in seconds
	LoginAttemptsWindow = 15 * 60

	// MaxBookingDays how far ahead a booking may be placed
	MaxBookingDays = 365

	// SyncQueueBatchSize tasks taken per worker poll
	SyncQueueBatchSize = 20
)
