package models

import (
	"time"
)

type Message struct {
	ID     string `gorm:"primaryKey;size:36" json:"id"`
	RoomID string `gorm:"index;not null;size:36" json:"room_id"`
	UserID string `gorm:"index;not null;size:36" json:"user_id"`

	// Content is either text or an opaque image reference when IsImage is set.
	Content string `gorm:"type:text;not null" json:"content"`
	IsImage bool   `gorm:"default:false" json:"is_image"`

	// System marks dispatcher-synthesized join/kick notices stored in history.
	System bool `gorm:"default:false" json:"system"`

	// SentTime is server-assigned and strictly after any prior message in the
	// same room, so sort-by-time replay is stable.
	SentTime time.Time `gorm:"index" json:"sent_time"`

	CreatedAt time.Time `json:"created_at"`
}
