package models

import (
	"strings"
	"time"
)

// UserStatus is the presence state advertised to other room members.
type UserStatus string

const (
	StatusOnline  UserStatus = "Online"
	StatusAway    UserStatus = "Away"
	StatusBusy    UserStatus = "Busy"
	StatusOffline UserStatus = "Offline"
)

// ParseUserStatus parses a status token case-insensitively.
// Unrecognized tokens fall back to Online.
func ParseUserStatus(s string) UserStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "online":
		return StatusOnline
	case "away":
		return StatusAway
	case "busy":
		return StatusBusy
	case "offline":
		return StatusOffline
	default:
		return StatusOnline
	}
}

type User struct {
	ID string `gorm:"primaryKey;size:36" json:"id"`

	// Login info. PasswordHash is empty for auto-provisioned users.
	Username     string `gorm:"unique;not null;size:50" json:"username"`
	PasswordHash string `gorm:"size:100" json:"-"`

	// Profile & presence
	StatusMessage string    `gorm:"size:255" json:"status_message"`
	State         string    `gorm:"default:'Online';size:20" json:"state"`
	LastSeenAt    time.Time `json:"last_seen_at"`

	// CurrentRoomID is the single room this user's live connection is
	// presently subscribed to. When set it must be an element of JoinedRooms.
	CurrentRoomID *string `gorm:"size:36" json:"current_room_id"`

	// JoinedRooms is every room the user has joined and not permanently left.
	JoinedRooms  []string `gorm:"serializer:json" json:"joined_rooms"`
	BlockedUsers []string `gorm:"serializer:json" json:"blocked_users"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasJoined reports whether roomID is in the user's joined-room set.
func (u *User) HasJoined(roomID string) bool {
	for _, id := range u.JoinedRooms {
		if id == roomID {
			return true
		}
	}
	return false
}

// HasBlocked reports whether the user has blocked userID.
func (u *User) HasBlocked(userID string) bool {
	for _, id := range u.BlockedUsers {
		if id == userID {
			return true
		}
	}
	return false
}
