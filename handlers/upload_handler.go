package handlers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Maximum accepted image size.
const maxImageSize = 10 * 1024 * 1024 // 10MB

var allowedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// UploadHandler stores and serves chat images.
type UploadHandler struct {
	Dir string
}

func NewUploadHandler(dir string) *UploadHandler {
	os.MkdirAll(dir, 0o755)
	return &UploadHandler{Dir: dir}
}

// UploadImage validates and stores an uploaded image, returning its reference.
func (h *UploadHandler) UploadImage(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Image file is required",
		})
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if _, ok := allowedImageExtensions[ext]; !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid file type. Allowed: jpg, jpeg, png, gif, webp",
		})
	}

	if file.Size > maxImageSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File size exceeds 10MB limit",
		})
	}

	filename := fmt.Sprintf("%s%s", uuid.NewString(), ext)
	destination := filepath.Join(h.Dir, filename)

	if err := c.SaveFile(file, destination); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save file",
		})
	}

	return c.JSON(fiber.Map{
		"image_path": "/api/image/" + filename,
		"file_name":  filename,
	})
}

// GetImage serves a previously uploaded image by its reference.
func (h *UploadHandler) GetImage(c *fiber.Ctx) error {
	filename := filepath.Base(c.Params("filename"))
	ext := strings.ToLower(filepath.Ext(filename))

	contentType, ok := allowedImageExtensions[ext]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Image not found"})
	}

	path := filepath.Join(h.Dir, filename)
	if _, err := os.Stat(path); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Image not found"})
	}

	c.Set("Content-Type", contentType)
	return c.SendFile(path)
}
