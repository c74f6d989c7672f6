package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"chatapp_backend/config"
	"chatapp_backend/handlers"
	"chatapp_backend/internal/ws"
	"chatapp_backend/middleware"
	"chatapp_backend/store"
	"chatapp_backend/utils"
)

func main() {
	cfg := config.LoadConfig()

	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if err := config.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}
	config.SeedUsers(db)

	stores := store.New(db)

	hub := ws.NewHub(stores)
	go hub.Run()

	app := fiber.New(fiber.Config{
		AppName:      "Chat Backend",
		ServerHeader: "Chat Backend Server/1.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			msg := "Internal Server Error"

			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				msg = e.Message
			}

			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": msg,
			})
		},
	})

	middleware.SetupMiddleware(app)

	authHandler := handlers.NewAuthHandler(stores)
	roomHandler := handlers.NewRoomHandler(stores, hub)
	userHandler := handlers.NewUserHandler(stores, hub)
	uploadHandler := handlers.NewUploadHandler(cfg.UploadDir)
	chatHandler := handlers.NewChatHandler(hub)

	// Health Check Endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "success",
			"message": "API is healthy",
		})
	})

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	rooms := api.Group("/room", utils.AuthMiddleware)
	rooms.Post("/create", roomHandler.CreateRoom)
	rooms.Get("/by-code/:code", roomHandler.GetRoomByCode)
	rooms.Get("/:id", roomHandler.GetRoom)
	rooms.Get("/", roomHandler.ListRooms)

	users := api.Group("/user", utils.AuthMiddleware)
	users.Get("/search", userHandler.SearchUsers)
	users.Get("/:id", userHandler.GetUser)
	users.Put("/me", userHandler.UpdateUser)

	image := api.Group("/image")
	image.Post("/upload", utils.AuthMiddleware, uploadHandler.UploadImage)
	image.Get("/:filename", uploadHandler.GetImage)

	app.Use("/ws", utils.AuthMiddleware, chatHandler.WebSocketUpgradeMiddleware)
	app.Get("/ws", chatHandler.Handler())

	middleware.SetupErrorHandler(app)

	log.Printf("Server starting on host %s in port %s mode", cfg.HOST, cfg.AppPort)

	if err := app.Listen(cfg.HOST + ":" + cfg.AppPort); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
