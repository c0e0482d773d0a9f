package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/bazaar/internal/config"
	"github.com/example/bazaar/internal/handlers"
	"github.com/example/bazaar/internal/middleware"
	"github.com/example/bazaar/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, images *services.ImageService) {
	authHandler := handlers.NewAuthHandler(db, cfg)
	productHandler := handlers.NewProductHandler(db, images)

	requireAuth := middleware.AuthMiddleware(db, cfg)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Welcome to Bazaar!")
	})

	auth := app.Group("/auth")
	auth.Post("/send-otp", authHandler.SendOTP)
	auth.Post("/verify-otp", authHandler.VerifyOTP)
	auth.Post("/resend-otp", authHandler.ResendOTP)
	auth.Get("/user-details", requireAuth, authHandler.UserDetails)

	products := app.Group("/products", requireAuth)
	products.Post("/create", productHandler.CreateProduct)
	products.Get("/list", productHandler.ListProducts)
	products.Get("/view/:id", productHandler.GetProduct)
	products.Put("/edit/:id", productHandler.UpdateProduct)
	products.Delete("/delete/:id", productHandler.DeleteProduct)
	products.Put("/status/:id", productHandler.TogglePublishStatus)
}
