package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"chatapp_backend/internal/ws"
	"chatapp_backend/models"
	"chatapp_backend/store"
)

type RoomHandler struct {
	Stores *store.Stores
	Hub    *ws.Hub
}

func NewRoomHandler(stores *store.Stores, hub *ws.Hub) *RoomHandler {
	return &RoomHandler{Stores: stores, Hub: hub}
}

// CreateRoomRequest defines the payload for room creation
type CreateRoomRequest struct {
	RoomID   string `json:"room_id"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// CreateRoom fetches or creates a room. Creation is idempotent by room id;
// recreating an existing id just echoes the existing room.
func (h *RoomHandler) CreateRoom(c *fiber.Ctx) error {
	var req CreateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}

	room, err := h.Hub.Ledger().EnsureRoom(c.Context(), req.RoomID, req.Name, req.Password)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not create room"})
	}

	return c.JSON(fiber.Map{
		"room_id":     room.ID,
		"name":        room.Name,
		"invite_code": room.InviteCode,
	})
}

func (h *RoomHandler) GetRoom(c *fiber.Ctx) error {
	room, err := h.Stores.Rooms.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Room not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch room"})
	}

	return c.JSON(fiber.Map{
		"id":           room.ID,
		"name":         room.Name,
		"invite_code":  room.InviteCode,
		"has_password": room.HasPassword(),
		"members":      room.Members,
	})
}

// GetRoomByCode resolves a room by its normalized invite code.
func (h *RoomHandler) GetRoomByCode(c *fiber.Ctx) error {
	code := models.NormalizeInviteCode(c.Params("code"))
	room, err := h.Stores.Rooms.GetByInviteCode(c.Context(), code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Room not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch room"})
	}

	return c.JSON(fiber.Map{
		"id":           room.ID,
		"name":         room.Name,
		"invite_code":  room.InviteCode,
		"has_password": room.HasPassword(),
	})
}

func (h *RoomHandler) ListRooms(c *fiber.Ctx) error {
	rooms, err := h.Stores.Rooms.All(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not list rooms"})
	}

	type roomSummary struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		HasPassword bool   `json:"has_password"`
		MemberCount int    `json:"member_count"`
	}
	summaries := make([]roomSummary, 0, len(rooms))
	for _, r := range rooms {
		summaries = append(summaries, roomSummary{
			ID:          r.ID,
			Name:        r.Name,
			HasPassword: r.HasPassword(),
			MemberCount: len(r.Members),
		})
	}

	return c.JSON(fiber.Map{"data": summaries})
}
