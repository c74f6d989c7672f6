package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"chatapp_backend/internal/ws"
	"chatapp_backend/models"
	"chatapp_backend/store"
)

type UserHandler struct {
	Stores *store.Stores
	Hub    *ws.Hub
}

func NewUserHandler(stores *store.Stores, hub *ws.Hub) *UserHandler {
	return &UserHandler{Stores: stores, Hub: hub}
}

func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.Stores.Users.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch user"})
	}

	return c.JSON(fiber.Map{
		"id":             user.ID,
		"username":       user.Username,
		"status_message": user.StatusMessage,
		"state":          user.State,
		"last_seen_at":   user.LastSeenAt,
		"online":         h.Hub.Online(user.ID),
	})
}

// UpdateUserRequest defines the mutable profile fields
type UpdateUserRequest struct {
	Username      string `json:"username"`
	StatusMessage string `json:"status_message"`
	State         string `json:"state"`
}

// UpdateUser updates the authenticated user's own profile.
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}

	user, err := h.Stores.Users.GetByID(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	if req.Username != "" {
		user.Username = req.Username
	}
	user.StatusMessage = req.StatusMessage
	if req.State != "" {
		user.State = string(models.ParseUserStatus(req.State))
	}

	if err := h.Stores.Users.Save(c.Context(), user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Username already taken"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not update user"})
	}

	return c.JSON(models.SuccessResponse("User updated", fiber.Map{
		"id":             user.ID,
		"username":       user.Username,
		"status_message": user.StatusMessage,
		"state":          user.State,
	}))
}

// SearchUsers allows searching for users by username
func (h *UserHandler) SearchUsers(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query parameter 'q' is required",
		})
	}

	users, err := h.Stores.Users.Search(c.Context(), query, 10)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not search users",
		})
	}

	type userSummary struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		State    string `json:"state"`
	}
	results := make([]userSummary, 0, len(users))
	for _, u := range users {
		results = append(results, userSummary{ID: u.ID, Username: u.Username, State: u.State})
	}

	return c.JSON(fiber.Map{"data": results})
}
