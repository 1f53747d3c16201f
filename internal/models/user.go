package models

import (
	"strings"
	"time"
)

// Role is the authorization level attached to a user. The empty role is an
// authenticated account without panel privileges.
type Role string

const (
	RoleNone       Role = ""
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleNone, RoleAdmin, RoleSuperadmin:
		return true
	}
	return false
}

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Address      string    `json:"address,omitempty"`
	Contact      string    `json:"contact,omitempty"`
	Birthdate    time.Time `json:"birthdate,omitempty"`
	Gender       string    `json:"gender,omitempty"`
	Role         Role      `json:"role"`
	PictureURL   string    `json:"picture_url,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NormalizeEmail lowercases and trims an address so uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type UserFilter struct {
	Role *Role
}

type UserUpdate struct {
	Name         *string    `json:"name"`
	Email        *string    `json:"email"`
	Address      *string    `json:"address"`
	Contact      *string    `json:"contact"`
	Birthdate    *time.Time `json:"birthdate"`
	Gender       *string    `json:"gender"`
	Role         *Role      `json:"role"`
	PictureURL   *string    `json:"picture_url"`
	PasswordHash *string    `json:"-"`
}

func (u UserUpdate) Apply(user User) User {
	if u.Name != nil {
		user.Name = *u.Name
	}
	if u.Email != nil {
		user.Email = NormalizeEmail(*u.Email)
	}
	if u.Address != nil {
		user.Address = *u.Address
	}
	if u.Contact != nil {
		user.Contact = *u.Contact
	}
	if u.Birthdate != nil {
		user.Birthdate = *u.Birthdate
	}
	if u.Gender != nil {
		user.Gender = *u.Gender
	}
	if u.Role != nil {
		user.Role = *u.Role
	}
	if u.PictureURL != nil {
		user.PictureURL = *u.PictureURL
	}
	if u.PasswordHash != nil {
		user.PasswordHash = *u.PasswordHash
	}
	return user
}
