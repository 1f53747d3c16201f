// Package availability decides whether a space can take a booking for a
// given date and time range. Everything here is pure: callers supply a fresh
// snapshot of existing bookings and the space.
package availability

import (
	"fmt"
	"sort"
	"time"

	"arenapanel/internal/models"
)

type Reason string

const (
	ReasonSpaceUnavailable      Reason = "space_unavailable"
	ReasonOutsideOperatingHours Reason = "outside_operating_hours"
	ReasonOverlap               Reason = "overlap"
)

// Candidate is the slot being requested. ID is set when an existing booking
// is being edited so it does not conflict with itself.
type Candidate struct {
	ID      int64
	SpaceID int64
	Date    time.Time
	Range   models.TimeRange
}

// CandidateOf builds a Candidate from a booking.
func CandidateOf(b *models.Booking) Candidate {
	return Candidate{ID: b.ID, SpaceID: b.SpaceID, Date: b.Date, Range: b.Range()}
}

// Rejection explains why a candidate was not admitted.
type Rejection struct {
	Reason   Reason
	Hours    models.TimeRange
	Conflict *models.Booking
}

func (r *Rejection) Error() string {
	switch r.Reason {
	case ReasonSpaceUnavailable:
		return "space is not available for bookings"
	case ReasonOutsideOperatingHours:
		return fmt.Sprintf("requested time is outside operating hours %s", r.Hours)
	case ReasonOverlap:
		if r.Conflict != nil {
			return fmt.Sprintf("overlaps booking %d (%s)", r.Conflict.ID, r.Conflict.Range())
		}
		return "overlaps an existing booking"
	default:
		return string(r.Reason)
	}
}

// Check returns nil when the candidate is accepted, otherwise a *Rejection.
// Existing bookings for other spaces or dates, cancelled bookings and the
// candidate itself are ignored. When several bookings conflict the earliest
// one is reported.
func Check(candidate Candidate, existing []models.Booking, space models.Space) error {
	if !space.Available {
		return &Rejection{Reason: ReasonSpaceUnavailable}
	}

	hours := space.OperatingHours()
	if !candidate.Range.IsWithin(hours) {
		return &Rejection{Reason: ReasonOutsideOperatingHours, Hours: hours}
	}

	var conflict *models.Booking
	for i := range existing {
		b := &existing[i]
		if !blocks(candidate, b) || !b.Range().Overlaps(candidate.Range) {
			continue
		}
		if conflict == nil || earlier(b, conflict) {
			conflict = b
		}
	}
	if conflict != nil {
		c := *conflict
		return &Rejection{Reason: ReasonOverlap, Hours: hours, Conflict: &c}
	}

	return nil
}

func blocks(candidate Candidate, b *models.Booking) bool {
	if !b.IsActive() {
		return false
	}
	if candidate.ID != 0 && b.ID == candidate.ID {
		return false
	}
	if candidate.SpaceID != 0 && b.SpaceID != candidate.SpaceID {
		return false
	}
	return models.SameDay(b.Date, candidate.Date)
}

func earlier(a, b *models.Booking) bool {
	if a.StartTime != b.StartTime {
		return a.StartTime < b.StartTime
	}
	return a.ID < b.ID
}

// FreeWindows returns the parts of the space's operating hours on date that
// no active booking covers, in chronological order. An unavailable space has
// no free windows.
func FreeWindows(space models.Space, existing []models.Booking, date time.Time) []models.TimeRange {
	if !space.Available {
		return nil
	}

	hours := space.OperatingHours()
	probe := Candidate{SpaceID: space.ID, Date: date, Range: hours}

	taken := make([]models.TimeRange, 0, len(existing))
	for i := range existing {
		if blocks(probe, &existing[i]) {
			taken = append(taken, existing[i].Range())
		}
	}
	sort.Slice(taken, func(i, j int) bool { return taken[i].Start < taken[j].Start })

	var free []models.TimeRange
	cursor := hours.Start
	for _, r := range taken {
		if r.Start > cursor {
			end := r.Start
			if end > hours.End {
				end = hours.End
			}
			if end > cursor {
				free = append(free, models.TimeRange{Start: cursor, End: end})
			}
		}
		if r.End > cursor {
			cursor = r.End
		}
		if cursor >= hours.End {
			break
		}
	}
	if cursor < hours.End {
		free = append(free, models.TimeRange{Start: cursor, End: hours.End})
	}
	return free
}
