package ws

import (
	"time"

	"chatapp_backend/models"
)

// EventType tags an inbound client event. The set is closed: the dispatcher
// switches exhaustively over these constants and rejects anything else.
type EventType string

const (
	EventRegister  EventType = "register"
	EventJoin      EventType = "join"
	EventLeave     EventType = "leave"
	EventMessage   EventType = "message"
	EventKick      EventType = "kick"
	EventNick      EventType = "nick"
	EventStatus    EventType = "status"
	EventListRooms EventType = "list_rooms"
	EventHistory   EventType = "history"
	EventRoomInfo  EventType = "room_info"
	EventQuery     EventType = "query"
)

// Event is the flat wire form of every inbound client event. Which fields
// are meaningful depends on Type.
type Event struct {
	Type   EventType `json:"type"`
	UserID string    `json:"user_id,omitempty"`
	RoomID string    `json:"room_id,omitempty"`

	// Join / Nick
	Name string `json:"name,omitempty"`

	// Message
	Content  string    `json:"content,omitempty"`
	IsImage  bool      `json:"is_image,omitempty"`
	SentTime time.Time `json:"sent_time,omitempty"`

	// Leave
	Permanent bool `json:"permanent,omitempty"`

	// Kick target / query receiver
	TargetID string `json:"target_id,omitempty"`

	// Status
	Status        string `json:"status,omitempty"`
	StatusMessage string `json:"status_message,omitempty"`
}

// Outbound notifications. Each carries its own type tag so clients can
// dispatch on a single field, mirroring the inbound envelope.

type ErrorNotice struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func errorNotice(message string) ErrorNotice {
	return ErrorNotice{Type: "error", Message: message}
}

type RegisteredNotice struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

type MessageNotice struct {
	Type     string    `json:"type"`
	RoomID   string    `json:"room_id"`
	UserID   string    `json:"user_id"`
	UserName string    `json:"user_name"`
	Content  string    `json:"content"`
	IsImage  bool      `json:"is_image"`
	System   bool      `json:"system"`
	SentTime time.Time `json:"sent_time"`
}

type JoinNotice struct {
	Type     string `json:"type"`
	RoomID   string `json:"room_id"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	// RoomSecret echoes the room's join secret to members, matching the
	// join acknowledgement shape of the wire protocol.
	RoomSecret string `json:"room_secret"`
}

type LeaveNotice struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

type RoomDeletedNotice struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

type KickedNotice struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

type NickNotice struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

type StatusNotice struct {
	Type   string            `json:"type"`
	UserID string            `json:"user_id"`
	Status models.UserStatus `json:"status"`
}

type RoomSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	InviteCode  string `json:"invite_code"`
	HasPassword bool   `json:"has_password"`
	MemberCount int    `json:"member_count"`
}

type RoomListNotice struct {
	Type  string        `json:"type"`
	Rooms []RoomSummary `json:"rooms"`
}

type HistoryNotice struct {
	Type     string          `json:"type"`
	RoomID   string          `json:"room_id"`
	Messages []MessageNotice `json:"messages"`
}

type MemberInfo struct {
	UserID        string `json:"user_id"`
	Name          string `json:"name"`
	StatusMessage string `json:"status_message"`
	State         string `json:"state"`
	Online        bool   `json:"online"`
}

type RoomInfoNotice struct {
	Type    string       `json:"type"`
	RoomID  string       `json:"room_id"`
	Name    string       `json:"name"`
	Members []MemberInfo `json:"members"`
}

type QueryNotice struct {
	Type       string `json:"type"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	RoomID     string `json:"room_id"`
}
