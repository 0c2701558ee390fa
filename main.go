package main

import (
	"log"

	"boutique/config"
	"boutique/db"
	"boutique/payments"
	"boutique/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	config.Load()

	// Initialize database
	db.InitDatabase(config.C.DatabasePath)

	// Stripe client
	payments.Init(config.C.StripeSecretKey)

	// Create Fiber app
	app := fiber.New()

	// Middleware
	app.Use(logger.New())
	app.Use(cors.New())

	// Setup routes
	routes.SetupRoutes(app)

	// Start server
	log.Fatal(app.Listen(":" + config.C.Port))
}
