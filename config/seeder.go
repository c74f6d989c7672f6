package config

import (
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chatapp_backend/models"
	"chatapp_backend/utils"
)

// SeedUsers provisions a couple of known accounts for local development.
func SeedUsers(db *gorm.DB) {
	log.Println("Seeding users...")

	passwordHash, _ := utils.HashPassword("password123")

	users := []models.User{
		{
			ID:           uuid.NewString(),
			Username:     "alice",
			PasswordHash: passwordHash,
			State:        string(models.StatusOnline),
			LastSeenAt:   time.Now().UTC(),
		},
		{
			ID:           uuid.NewString(),
			Username:     "bob",
			PasswordHash: passwordHash,
			State:        string(models.StatusOnline),
			LastSeenAt:   time.Now().UTC(),
		},
	}

	for _, user := range users {
		var existing models.User
		if err := db.Where("username = ?", user.Username).First(&existing).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				if err := db.Create(&user).Error; err != nil {
					log.Printf("Failed to seed user %s: %v", user.Username, err)
				} else {
					log.Printf("User seeded: %s (ID: %s)", user.Username, user.ID)
				}
			}
		} else {
			log.Printf("User already exists: %s", user.Username)
		}
	}

	log.Println("Seeding complete.")
}
