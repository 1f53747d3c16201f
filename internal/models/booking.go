package models

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled:
		return true
	}
	return false
}

type Booking struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	SpaceID     int64         `json:"space_id"`
	SpaceName   string        `json:"space_name"`
	Date        time.Time     `json:"date"`
	StartTime   Clock         `json:"start_time"`
	EndTime     Clock         `json:"end_time"`
	Description string        `json:"description,omitempty"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Version     int64         `json:"version"`
}

func (b *Booking) Range() TimeRange {
	return TimeRange{Start: b.StartTime, End: b.EndTime}
}

// IsActive reports whether the booking still holds its slot.
func (b *Booking) IsActive() bool {
	return b.Status != BookingCancelled
}

// SameDay compares calendar dates ignoring clock and location.
func SameDay(a, b time.Time) bool {
	return a.Format(DateFormat) == b.Format(DateFormat)
}

// BookingFilter narrows ListBookings. Zero fields are ignored.
type BookingFilter struct {
	SpaceID          int64
	From             time.Time
	To               time.Time
	Status           BookingStatus
	IncludeCancelled bool
}

// BookingUpdate is a partial update; nil fields are left untouched.
type BookingUpdate struct {
	Title       *string
	SpaceID     *int64
	SpaceName   *string
	Date        *time.Time
	StartTime   *Clock
	EndTime     *Clock
	Description *string
	Status      *BookingStatus
}

// Apply returns a copy of b with the update applied.
func (u BookingUpdate) Apply(b Booking) Booking {
	if u.Title != nil {
		b.Title = *u.Title
	}
	if u.SpaceID != nil {
		b.SpaceID = *u.SpaceID
	}
	if u.SpaceName != nil {
		b.SpaceName = *u.SpaceName
	}
	if u.Date != nil {
		b.Date = *u.Date
	}
	if u.StartTime != nil {
		b.StartTime = *u.StartTime
	}
	if u.EndTime != nil {
		b.EndTime = *u.EndTime
	}
	if u.Description != nil {
		b.Description = *u.Description
	}
	if u.Status != nil {
		b.Status = *u.Status
	}
	return b
}
