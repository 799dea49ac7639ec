package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserStatus is the presence value mirrored into the users table.
type UserStatus string

const (
	StatusOnline  UserStatus = "online"
	StatusOffline UserStatus = "offline"
	StatusDND     UserStatus = "dnd"
	StatusSleep   UserStatus = "sleep"
)

func (s UserStatus) Valid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusDND, StatusSleep:
		return true
	}
	return false
}

type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	AvatarURL    *string    `json:"avatar,omitempty"`
	Bio          string     `json:"bio"`
	Status       UserStatus `json:"status"`
	LastSeen     *time.Time `json:"lastSeen,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Profile is the public subset of a user attached to outgoing messages.
type Profile struct {
	ID        uuid.UUID  `json:"id"`
	Username  string     `json:"username"`
	Name      string     `json:"name"`
	AvatarURL *string    `json:"avatar,omitempty"`
	Status    UserStatus `json:"status"`
}

func (u *User) Profile() *Profile {
	return &Profile{
		ID:        u.ID,
		Username:  u.Username,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
		Status:    u.Status,
	}
}
