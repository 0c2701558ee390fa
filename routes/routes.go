package routes

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

var validate = validator.New()
var store *session.Store

func SetupRoutes(app *fiber.App) {
	store = session.New()

	// Live order feed for the storefront dashboard
	app.Get("/ws/orders", orderFeedHandler())
	go broadcastOrders()

	api := app.Group("/api")

	// Session auth
	auth := api.Group("/auth")
	auth.Post("/register", register)
	auth.Post("/login", login)
	auth.Post("/logout", logout)

	// Catalog (read-only from this module's perspective)
	products := api.Group("/products")
	products.Get("/", getAllProducts)
	products.Get("/:id", getProduct)

	// Session bag
	bag := api.Group("/bag")
	bag.Get("/", viewBag)
	bag.Post("/add", addToBag)
	bag.Post("/adjust", adjustBag)
	bag.Post("/remove", removeFromBag)

	// Checkout flow
	checkout := api.Group("/checkout")
	checkout.Get("/", checkoutPage)
	checkout.Post("/", submitCheckout)
	checkout.Post("/cache", cacheCheckoutData)
	checkout.Get("/success/:orderNumber", checkoutSuccess)

	// Profile
	profile := api.Group("/profile")
	profile.Get("/", getProfile)
	profile.Post("/", updateProfile)

	// Stripe webhook
	api.Post("/wh/stripe", stripeWebhook)
}
