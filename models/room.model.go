package models

import (
	"time"
)

type Room struct {
	ID   string `gorm:"primaryKey;size:36" json:"id"`
	Name string `gorm:"size:100;not null" json:"name"`

	// Password is the plaintext-equivalent join secret. Empty means open room.
	Password string `json:"-"`

	// InviteCode is derived from ID with DeriveInviteCode and never set by hand.
	InviteCode string `gorm:"index;size:8" json:"invite_code"`

	// Members is ordered: index 0 is the room owner. Ownership passes
	// implicitly to the next member when the owner permanently leaves.
	Members []string `gorm:"serializer:json" json:"members"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Owner returns the user id at member index 0, or "" for an empty room.
func (r *Room) Owner() string {
	if len(r.Members) == 0 {
		return ""
	}
	return r.Members[0]
}

// HasMember reports whether userID is in the member list.
func (r *Room) HasMember(userID string) bool {
	for _, id := range r.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// HasPassword reports whether joining requires a secret.
func (r *Room) HasPassword() bool {
	return r.Password != ""
}
