package models

import (
	"time"
)

// Invite is an out-of-band room invitation. A row exists only while the
// invite is undelivered: delivery removes it, as does destruction of its
// room, so presence of the row is the delivery state.
type Invite struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"`
	SenderID   string `gorm:"index;not null;size:36" json:"sender_id"`
	ReceiverID string `gorm:"index;not null;size:36" json:"receiver_id"`
	RoomID     string `gorm:"index;not null;size:36" json:"room_id"`

	SentTime time.Time `json:"sent_time"`
}
