package routes

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"boutique/config"
	"boutique/db"
	"boutique/models"
	"boutique/payments"
)

// anonymousUser is what the storefront reports for unauthenticated customers
// in payment intent metadata.
const anonymousUser = "AnonymousUser"

var errProductNotFound = errors.New("product not found")

type orderFormRequest struct {
	FullName       string `json:"full_name" validate:"required,max=50"`
	Email          string `json:"email" validate:"required,email,max=254"`
	PhoneNumber    string `json:"phone_number" validate:"required,max=20"`
	Country        string `json:"country" validate:"required,max=40"`
	Postcode       string `json:"postcode" validate:"max=20"`
	TownOrCity     string `json:"town_or_city" validate:"required,max=40"`
	StreetAddress1 string `json:"street_address1" validate:"required,max=80"`
	StreetAddress2 string `json:"street_address2" validate:"max=80"`
	County         string `json:"county" validate:"max=80"`
	ClientSecret   string `json:"client_secret" validate:"required"`
	SaveInfo       bool   `json:"save_info"`
}

// validationDetails turns validator errors into a per-field map for the
// response body.
func validationDetails(err error) fiber.Map {
	details := fiber.Map{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
		return details
	}
	details["message"] = err.Error()
	return details
}

// materializeBag creates one line item per bag entry (one per size for sized
// entries) and recomputes the order totals. A bag entry referencing a product
// that no longer exists fails the whole order with errProductNotFound.
func materializeBag(tx *gorm.DB, order *models.Order, bag models.Bag) error {
	for productID, item := range bag {
		var product models.Product
		if err := tx.First(&product, "id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", errProductNotFound, productID)
			}
			return err
		}
		if item.ItemsBySize == nil {
			lineItem := models.OrderLineItem{
				OrderID:   order.ID,
				ProductID: product.ID,
				Quantity:  item.Quantity,
			}
			if err := tx.Create(&lineItem).Error; err != nil {
				return err
			}
		} else {
			for size, quantity := range item.ItemsBySize {
				lineItem := models.OrderLineItem{
					OrderID:     order.ID,
					ProductID:   product.ID,
					ProductSize: size,
					Quantity:    quantity,
				}
				if err := tx.Create(&lineItem).Error; err != nil {
					return err
				}
			}
		}
	}
	return order.UpdateTotals(tx)
}

// checkoutPage prepares the checkout: prices the bag, creates the payment
// intent and returns the form prefill so the client can render the page and
// complete payment client-side.
func checkoutPage(c *fiber.Ctx) error {
	sess, err := store.Get(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load session",
		})
	}
	bag, _, err := sessionBag(sess)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read bag: " + err.Error(),
		})
	}
	if len(bag) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":    "There's nothing in your bag at the moment",
			"redirect": "/api/products",
		})
	}

	totals, err := computeBagTotals(db.DB, bag)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to price bag: " + err.Error(),
		})
	}

	stripeTotal := int64(math.Round(totals.GrandTotal * 100))
	intent, err := payments.CreateIntent(stripeTotal, config.C.StripeCurrency)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Sorry, your payment cannot be processed right now. Please try again later.",
		})
	}

	// Prefill the form with the profile defaults of a returning customer
	orderForm := fiber.Map{}
	if username := sessionUsername(sess); username != "" {
		var user models.User
		if err := db.DB.Preload("Profile").First(&user, "username = ?", username).Error; err == nil && user.Profile != nil {
			orderForm = fiber.Map{
				"full_name":       user.FullName,
				"email":           user.Email,
				"phone_number":    user.Profile.DefaultPhoneNumber,
				"country":         user.Profile.DefaultCountry,
				"postcode":        user.Profile.DefaultPostcode,
				"town_or_city":    user.Profile.DefaultTownOrCity,
				"street_address1": user.Profile.DefaultStreetAddress1,
				"street_address2": user.Profile.DefaultStreetAddress2,
				"county":          user.Profile.DefaultCounty,
			}
		}
	}

	if config.C.StripePublicKey == "" {
		log.Println("Stripe public key is missing. Did you forget to set it in your environment?")
	}

	return c.JSON(fiber.Map{
		"client_secret":     intent.ClientSecret,
		"stripe_public_key": config.C.StripePublicKey,
		"order_form":        orderForm,
		"totals":            totals,
	})
}

// submitCheckout validates the intake form and persists the order with its
// line items. Materialization is all-or-nothing: any missing product rolls the
// whole order back.
func submitCheckout(c *fiber.Ctx) error {
	var requestData orderFormRequest
	if err := c.BodyParser(&requestData); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to parse request body: " + err.Error(),
		})
	}
	if err := validate.Struct(&requestData); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "There was an error with your form. Please double check your information.",
			"details": validationDetails(err),
		})
	}

	sess, err := store.Get(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load session",
		})
	}
	bag, rawBag, err := sessionBag(sess)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read bag: " + err.Error(),
		})
	}

	order := models.Order{
		FullName:       requestData.FullName,
		Email:          requestData.Email,
		PhoneNumber:    requestData.PhoneNumber,
		Country:        requestData.Country,
		Postcode:       requestData.Postcode,
		TownOrCity:     requestData.TownOrCity,
		StreetAddress1: requestData.StreetAddress1,
		StreetAddress2: requestData.StreetAddress2,
		County:         requestData.County,
		OriginalBag:    rawBag,
		StripePID:      payments.IntentID(requestData.ClientSecret),
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		return materializeBag(tx, &order, bag)
	})
	if err != nil {
		if errors.Is(err, errProductNotFound) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":    "One of the products in your bag wasn't found in our database. Please call us for assistance!",
				"redirect": "/api/bag",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create order: " + err.Error(),
		})
	}

	// Remember the save-info choice for the success request
	sess.Set(sessionKeySaveInfo, requestData.SaveInfo)
	if err := sess.Save(); err != nil {
		log.Printf("Failed to save session: %v", err)
	}

	publishOrder(&order, "checkout")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"order_number": order.OrderNumber,
		"redirect":     "/api/checkout/success/" + order.OrderNumber,
	})
}

type cacheCheckoutRequest struct {
	ClientSecret string `json:"client_secret" validate:"required"`
	SaveInfo     bool   `json:"save_info"`
}

// cacheCheckoutData stashes the bag, the save-info choice and the username
// into the payment intent metadata before the client confirms the payment, so
// the webhook can rebuild the order if the synchronous path never completes.
func cacheCheckoutData(c *fiber.Ctx) error {
	var requestData cacheCheckoutRequest
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

	sess, err := store.Get(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load session",
		})
	}
	_, rawBag, err := sessionBag(sess)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read bag: " + err.Error(),
		})
	}
	username := sessionUsername(sess)
	if username == "" {
		username = anonymousUser
	}

	pid := payments.IntentID(requestData.ClientSecret)
	if err := payments.UpdateIntentMetadata(pid, map[string]string{
		"bag":       rawBag,
		"save_info": strconv.FormatBool(requestData.SaveInfo),
		"username":  username,
	}); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Sorry, your payment cannot be processed right now. Please try again later.",
		})
	}
	return c.SendStatus(fiber.StatusOK)
}
