package routes

import (
	"github.com/gofiber/fiber/v2"

	"boutique/db"
	"boutique/models"
)

type profileRequest struct {
	DefaultPhoneNumber    string `json:"default_phone_number" validate:"max=20"`
	DefaultCountry        string `json:"default_country" validate:"max=40"`
	DefaultPostcode       string `json:"default_postcode" validate:"max=20"`
	DefaultTownOrCity     string `json:"default_town_or_city" validate:"max=40"`
	DefaultStreetAddress1 string `json:"default_street_address1" validate:"max=80"`
	DefaultStreetAddress2 string `json:"default_street_address2" validate:"max=80"`
	DefaultCounty         string `json:"default_county" validate:"max=80"`
}

func currentProfile(c *fiber.Ctx) (*models.UserProfile, int, error) {
	sess, err := store.Get(c)
	if err != nil {
		return nil, fiber.StatusInternalServerError, err
	}
	username := sessionUsername(sess)
	if username == "" {
		return nil, fiber.StatusUnauthorized, fiber.NewError(fiber.StatusUnauthorized, "login required")
	}
	var user models.User
	if err := db.DB.Preload("Profile").First(&user, "username = ?", username).Error; err != nil {
		return nil, fiber.StatusNotFound, err
	}
	if user.Profile == nil {
		return nil, fiber.StatusNotFound, fiber.NewError(fiber.StatusNotFound, "profile not found")
	}
	return user.Profile, fiber.StatusOK, nil
}

// getProfile returns the customer's default delivery info and order history.
func getProfile(c *fiber.Ctx) error {
	profile, status, err := currentProfile(c)
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	var orders []models.Order
	if err := db.DB.Preload("LineItems.Product").
		Where("user_profile_id = ?", profile.ID).
		Order("date DESC").
		Find(&orders).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load order history: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"profile": profile,
		"orders":  orders,
	})
}

func updateProfile(c *fiber.Ctx) error {
	var requestData profileRequest
	if err := c.BodyParser(&requestData); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to parse request body: " + err.Error(),
		})
	}
	if err := validate.Struct(&requestData); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"details": validationDetails(err),
		})
	}

	profile, status, err := currentProfile(c)
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	profile.DefaultPhoneNumber = requestData.DefaultPhoneNumber
	profile.DefaultCountry = requestData.DefaultCountry
	profile.DefaultPostcode = requestData.DefaultPostcode
	profile.DefaultTownOrCity = requestData.DefaultTownOrCity
	profile.DefaultStreetAddress1 = requestData.DefaultStreetAddress1
	profile.DefaultStreetAddress2 = requestData.DefaultStreetAddress2
	profile.DefaultCounty = requestData.DefaultCounty

	if err := db.DB.Save(profile).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update profile: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"profile": profile,
		"message": "Profile updated successfully",
	})
}
