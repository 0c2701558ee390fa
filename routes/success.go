package routes

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"

	"boutique/db"
	"boutique/models"
)

// checkoutSuccess confirms a completed checkout: attaches the customer's
// profile to the order, optionally saves their delivery info as profile
// defaults, and clears the bag.
func checkoutSuccess(c *fiber.Ctx) error {
	orderNumber := c.Params("orderNumber")

	var order models.Order
	if err := db.DB.Preload("LineItems.Product").
		First(&order, "order_number = ?", orderNumber).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Order not found",
		})
	}

	sess, err := store.Get(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load session",
		})
	}
	saveInfo, _ := sess.Get(sessionKeySaveInfo).(bool)

	if username := sessionUsername(sess); username != "" {
		var user models.User
		if err := db.DB.Preload("Profile").First(&user, "username = ?", username).Error; err == nil && user.Profile != nil {
			profile := user.Profile

			// Attach the user's profile to the order
			order.UserProfileID = &profile.ID
			if err := db.DB.Model(&order).Update("user_profile_id", profile.ID).Error; err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Failed to attach profile: " + err.Error(),
				})
			}

			// Save the user's info
			if saveInfo {
				profile.DefaultPhoneNumber = order.PhoneNumber
				profile.DefaultCountry = order.Country
				profile.DefaultPostcode = order.Postcode
				profile.DefaultTownOrCity = order.TownOrCity
				profile.DefaultStreetAddress1 = order.StreetAddress1
				profile.DefaultStreetAddress2 = order.StreetAddress2
				profile.DefaultCounty = order.County
				if err := db.DB.Save(profile).Error; err != nil {
					return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
						"error": "Failed to save profile: " + err.Error(),
					})
				}
			}
		}
	}

	// The bag is done with regardless of who checked out
	sess.Delete(sessionKeyBag)
	if err := sess.Save(); err != nil {
		log.Printf("Failed to clear bag from session: %v", err)
	}

	return c.JSON(fiber.Map{
		"order": order,
		"message": fmt.Sprintf(
			"Order successfully processed! Your order number is %s. A confirmation email will be sent to %s.",
			order.OrderNumber, order.Email,
		),
	})
}
