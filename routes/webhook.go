package routes

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	stripe "github.com/stripe/stripe-go/v72"
	"gorm.io/gorm"

	"boutique/config"
	"boutique/db"
	"boutique/models"
	"boutique/payments"
)

// How long the succeeded-event handler waits between attempts to find an order
// the synchronous checkout may still be committing. Variable so tests can drop
// the delay.
var findOrderDelay = time.Second

const findOrderAttempts = 5

// stripeWebhook verifies the event signature and dispatches by event type.
func stripeWebhook(c *fiber.Ctx) error {
	event, err := payments.ConstructEvent(c.Body(), c.Get("Stripe-Signature"), config.C.StripeWHSecret)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Webhook verification failed: " + err.Error(),
		})
	}

	switch event.Type {
	case "payment_intent.succeeded":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Failed to parse payment intent: " + err.Error(),
			})
		}
		status, message := handlePaymentIntentSucceeded(&intent)
		return c.Status(status).JSON(fiber.Map{"message": message})
	case "payment_intent.payment_failed":
		return c.JSON(fiber.Map{"message": "Webhook received: " + event.Type})
	default:
		return c.JSON(fiber.Map{"message": "Unhandled webhook received: " + event.Type})
	}
}

// handlePaymentIntentSucceeded reconciles a confirmed payment with the orders
// table. If the synchronous checkout already created the order it acknowledges
// without side effects; otherwise it rebuilds the order from the intent
// metadata. Redelivery of the same event must never create a second order for
// the same payment intent.
func handlePaymentIntentSucceeded(intent *stripe.PaymentIntent) (int, string) {
	const eventName = "Webhook received: payment_intent.succeeded"

	pid := intent.ID
	bagJSON := intent.Metadata["bag"]
	saveInfo := intent.Metadata["save_info"] == "true"
	username := intent.Metadata["username"]

	shipping := intent.Shipping
	address := stripe.Address{}
	if shipping.Address != nil {
		address = *shipping.Address
	}

	var billingEmail string
	var grandTotal float64
	if intent.Charges != nil && len(intent.Charges.Data) > 0 {
		charge := intent.Charges.Data[0]
		grandTotal = models.Round2(float64(charge.Amount) / 100)
		if charge.BillingDetails != nil {
			billingEmail = charge.BillingDetails.Email
		}
	}

	// Update profile defaults for a logged-in customer who asked for it
	var profile *models.UserProfile
	if username != "" && username != anonymousUser {
		var user models.User
		if err := db.DB.Preload("Profile").First(&user, "username = ?", username).Error; err == nil && user.Profile != nil {
			profile = user.Profile
			if saveInfo {
				profile.DefaultPhoneNumber = shipping.Phone
				profile.DefaultCountry = address.Country
				profile.DefaultPostcode = address.PostalCode
				profile.DefaultTownOrCity = address.City
				profile.DefaultStreetAddress1 = address.Line1
				profile.DefaultStreetAddress2 = address.Line2
				profile.DefaultCounty = address.State
				if err := db.DB.Save(profile).Error; err != nil {
					log.Printf("Failed to update profile defaults: %v", err)
				}
			}
		}
	}

	// The synchronous checkout may still be committing; give it a few tries
	// before concluding the order is missing.
	var order models.Order
	orderExists := false
	for attempt := 1; attempt <= findOrderAttempts; attempt++ {
		err := db.DB.
			Where("LOWER(full_name) = LOWER(?)", shipping.Name).
			Where("LOWER(email) = LOWER(?)", billingEmail).
			Where("LOWER(phone_number) = LOWER(?)", shipping.Phone).
			Where("LOWER(country) = LOWER(?)", address.Country).
			Where("LOWER(postcode) = LOWER(?)", address.PostalCode).
			Where("LOWER(town_or_city) = LOWER(?)", address.City).
			Where("LOWER(street_address1) = LOWER(?)", address.Line1).
			Where("LOWER(street_address2) = LOWER(?)", address.Line2).
			Where("LOWER(county) = LOWER(?)", address.State).
			Where("round(grand_total, 2) = round(?, 2)", grandTotal).
			Where("original_bag = ?", bagJSON).
			Where("stripe_pid = ?", pid).
			First(&order).Error
		if err == nil {
			orderExists = true
			break
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.StatusInternalServerError, eventName + " | ERROR: " + err.Error()
		}
		time.Sleep(findOrderDelay)
	}
	if orderExists {
		return fiber.StatusOK, eventName + " | SUCCESS: Verified order already in database"
	}

	bag, err := models.ParseBag(bagJSON)
	if err != nil {
		return fiber.StatusInternalServerError, eventName + " | ERROR: " + err.Error()
	}

	order = models.Order{
		FullName:       shipping.Name,
		Email:          billingEmail,
		PhoneNumber:    shipping.Phone,
		Country:        address.Country,
		Postcode:       address.PostalCode,
		TownOrCity:     address.City,
		StreetAddress1: address.Line1,
		StreetAddress2: address.Line2,
		County:         address.State,
		OriginalBag:    bagJSON,
		StripePID:      pid,
	}
	if profile != nil {
		order.UserProfileID = &profile.ID
	}

	if err := db.DB.Create(&order).Error; err != nil {
		return fiber.StatusInternalServerError, eventName + " | ERROR: " + err.Error()
	}
	if err := materializeBag(db.DB, &order, bag); err != nil {
		// compensating delete; the 500 asks Stripe to redeliver
		if delErr := db.DB.Delete(&order).Error; delErr != nil {
			log.Printf("Failed to delete partial order %s: %v", order.OrderNumber, delErr)
		}
		return fiber.StatusInternalServerError, eventName + " | ERROR: " + err.Error()
	}

	publishOrder(&order, "webhook")
	return fiber.StatusOK, eventName + " | SUCCESS: Created order in webhook"
}
