package models

import "time"

type Modality string

const (
	ModalityFutebol     Modality = "Futebol"
	ModalityFutsal      Modality = "Futsal"
	ModalityBasquetebol Modality = "Basquetebol"
	ModalityTenis       Modality = "Tenis"
	ModalityOutros      Modality = "Outros"
)

func (m Modality) Valid() bool {
	switch m {
	case ModalityFutebol, ModalityFutsal, ModalityBasquetebol, ModalityTenis, ModalityOutros:
		return true
	}
	return false
}

type Address struct {
	Street     string `json:"street" yaml:"street"`
	Number     string `json:"number" yaml:"number"`
	City       string `json:"city" yaml:"city"`
	PostalCode string `json:"postal_code" yaml:"postal_code"`
}

type GeoPoint struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

type Space struct {
	ID           int64     `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Modality     Modality  `json:"modality" yaml:"modality"`
	Address      Address   `json:"address" yaml:"address"`
	PricePerHour float64   `json:"price_per_hour" yaml:"price_per_hour"`
	OpeningTime  Clock     `json:"opening_time" yaml:"opening_time"`
	ClosingTime  Clock     `json:"closing_time" yaml:"closing_time"`
	MaxCapacity  int       `json:"max_capacity" yaml:"max_capacity"`
	Available    bool      `json:"available" yaml:"available"`
	Location     *GeoPoint `json:"location,omitempty" yaml:"location"`
	ImageURL     string    `json:"image_url,omitempty" yaml:"image_url"`
	CreatedAt    time.Time `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"-"`
}

// OperatingHours is the fixed daily window in which the space accepts bookings.
func (s *Space) OperatingHours() TimeRange {
	return TimeRange{Start: s.OpeningTime, End: s.ClosingTime}
}

// SpaceUpdate is a partial update; nil fields are left untouched.
type SpaceUpdate struct {
	Name         *string   `json:"name"`
	Modality     *Modality `json:"modality"`
	Address      *Address  `json:"address"`
	PricePerHour *float64  `json:"price_per_hour"`
	OpeningTime  *Clock    `json:"opening_time"`
	ClosingTime  *Clock    `json:"closing_time"`
	MaxCapacity  *int      `json:"max_capacity"`
	Available    *bool     `json:"available"`
	Location     *GeoPoint `json:"location"`
	ImageURL     *string   `json:"image_url"`
}

// Apply returns a copy of s with the update applied.
func (u SpaceUpdate) Apply(s Space) Space {
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Modality != nil {
		s.Modality = *u.Modality
	}
	if u.Address != nil {
		s.Address = *u.Address
	}
	if u.PricePerHour != nil {
		s.PricePerHour = *u.PricePerHour
	}
	if u.OpeningTime != nil {
		s.OpeningTime = *u.OpeningTime
	}
	if u.ClosingTime != nil {
		s.ClosingTime = *u.ClosingTime
	}
	if u.MaxCapacity != nil {
		s.MaxCapacity = *u.MaxCapacity
	}
	if u.Available != nil {
		s.Available = *u.Available
	}
	if u.Location != nil {
		loc := *u.Location
		s.Location = &loc
	}
	if u.ImageURL != nil {
		s.ImageURL = *u.ImageURL
	}
	return s
}

// SpaceFilter narrows ListSpaces. Zero fields are ignored.
type SpaceFilter struct {
	Modality      Modality
	AvailableOnly bool
}
