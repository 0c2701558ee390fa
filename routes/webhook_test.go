package routes

import (
	"strings"
	"testing"

	stripe "github.com/stripe/stripe-go/v72"
	"gorm.io/gorm"

	"boutique/db"
	"boutique/models"
)

func newSucceededIntent(pid, bagJSON string, amountCents int64) *stripe.PaymentIntent {
	return &stripe.PaymentIntent{
		ID: pid,
		Metadata: map[string]string{
			"bag":       bagJSON,
			"save_info": "false",
			"username":  anonymousUser,
		},
		Shipping: stripe.ShippingDetails{
			Name:  "Ada Lovelace",
			Phone: "555-0100",
			Address: &stripe.Address{
				Line1:      "1 Analytical Way",
				City:       "London",
				Country:    "GB",
				PostalCode: "N1 1AA",
			},
		},
		Charges: &stripe.ChargeList{
			Data: []*stripe.Charge{{
				Amount: amountCents,
				BillingDetails: &stripe.BillingDetails{
					Email: "ada@example.com",
				},
			}},
		},
	}
}

func TestWebhookCreatesOrderWhenNoneExists(t *testing.T) {
	setupTestDB(t)
	seedProduct(t, 42, "Notebook", 10)

	intent := newSucceededIntent("pi_created", `{"42": 3}`, 3300)
	status, message := handlePaymentIntentSucceeded(intent)
	if status != 200 {
		t.Fatalf("expected 200, got %d (%s)", status, message)
	}
	if !strings.Contains(message, "Created order in webhook") {
		t.Fatalf("unexpected message: %s", message)
	}

	var orders []models.Order
	if err := db.DB.Preload("LineItems").Find(&orders).Error; err != nil {
		t.Fatalf("failed to load orders: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	order := orders[0]
	if order.StripePID != "pi_created" || order.OriginalBag != `{"42": 3}` {
		t.Fatalf("unexpected order: pid=%q bag=%q", order.StripePID, order.OriginalBag)
	}
	if order.OrderTotal != 30 || order.GrandTotal != 33 {
		t.Fatalf("unexpected totals: %v / %v", order.OrderTotal, order.GrandTotal)
	}
	if len(order.LineItems) != 1 || order.LineItems[0].Quantity != 3 {
		t.Fatalf("unexpected line items: %+v", order.LineItems)
	}
}

func TestWebhookRedeliveryNeverDuplicates(t *testing.T) {
	setupTestDB(t)
	seedProduct(t, 42, "Notebook", 10)

	intent := newSucceededIntent("pi_redeliver", `{"42": 3}`, 3300)

	status, _ := handlePaymentIntentSucceeded(intent)
	if status != 200 {
		t.Fatalf("first delivery failed with %d", status)
	}
	status, message := handlePaymentIntentSucceeded(intent)
	if status != 200 {
		t.Fatalf("redelivery failed with %d", status)
	}
	if !strings.Contains(message, "Verified order already in database") {
		t.Fatalf("expected duplicate acknowledgment, got: %s", message)
	}

	var count int64
	db.DB.Model(&models.Order{}).Where("stripe_pid = ?", "pi_redeliver").Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 order for the intent, got %d", count)
	}
}

func TestWebhookFindsOrderFromCheckoutPath(t *testing.T) {
	setupTestDB(t)
	seedProduct(t, 42, "Notebook", 10)

	// The synchronous path committed first, with different letter case in the
	// address fields.
	bag, _ := models.ParseBag(`{"42": 3}`)
	order := models.Order{
		FullName:       "ADA LOVELACE",
		Email:          "ADA@EXAMPLE.COM",
		PhoneNumber:    "555-0100",
		Country:        "gb",
		Postcode:       "n1 1aa",
		TownOrCity:     "LONDON",
		StreetAddress1: "1 ANALYTICAL WAY",
		OriginalBag:    `{"42": 3}`,
		StripePID:      "pi_sync",
	}
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		return materializeBag(tx, &order, bag)
	})
	if err != nil {
		t.Fatalf("failed to create order via checkout path: %v", err)
	}

	intent := newSucceededIntent("pi_sync", `{"42": 3}`, 3300)
	status, message := handlePaymentIntentSucceeded(intent)
	if status != 200 {
		t.Fatalf("expected 200, got %d (%s)", status, message)
	}
	if !strings.Contains(message, "Verified order already in database") {
		t.Fatalf("expected verified acknowledgment, got: %s", message)
	}

	var count int64
	db.DB.Model(&models.Order{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 order, got %d", count)
	}
}

func TestWebhookSaveInfoOverwritesProfileDefaults(t *testing.T) {
	setupTestDB(t)
	seedProduct(t, 42, "Notebook", 10)

	user := models.User{Username: "ada", FullName: "Ada Lovelace", Email: "ada@example.com"}
	if err := db.DB.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	intent := newSucceededIntent("pi_profile", `{"42": 3}`, 3300)
	intent.Metadata["username"] = "ada"
	intent.Metadata["save_info"] = "true"

	status, message := handlePaymentIntentSucceeded(intent)
	if status != 200 {
		t.Fatalf("expected 200, got %d (%s)", status, message)
	}

	var profile models.UserProfile
	if err := db.DB.First(&profile, "user_id = ?", user.ID).Error; err != nil {
		t.Fatalf("failed to load profile: %v", err)
	}
	if profile.DefaultPhoneNumber != "555-0100" || profile.DefaultTownOrCity != "London" ||
		profile.DefaultPostcode != "N1 1AA" || profile.DefaultStreetAddress1 != "1 Analytical Way" {
		t.Fatalf("profile defaults not updated: %+v", profile)
	}

	var order models.Order
	if err := db.DB.First(&order, "stripe_pid = ?", "pi_profile").Error; err != nil {
		t.Fatalf("failed to load order: %v", err)
	}
	if order.UserProfileID == nil || *order.UserProfileID != profile.ID {
		t.Fatalf("expected order attached to profile %d, got %v", profile.ID, order.UserProfileID)
	}
}

func TestWebhookMissingProductDeletesPartialOrder(t *testing.T) {
	setupTestDB(t)

	intent := newSucceededIntent("pi_broken", `{"999": 2}`, 2000)
	status, message := handlePaymentIntentSucceeded(intent)
	if status != 500 {
		t.Fatalf("expected 500 to trigger redelivery, got %d (%s)", status, message)
	}
	if !strings.Contains(message, "ERROR") {
		t.Fatalf("unexpected message: %s", message)
	}

	var orderCount, lineItemCount int64
	db.DB.Model(&models.Order{}).Count(&orderCount)
	db.DB.Model(&models.OrderLineItem{}).Count(&lineItemCount)
	if orderCount != 0 || lineItemCount != 0 {
		t.Fatalf("expected compensating delete, got %d orders and %d line items", orderCount, lineItemCount)
	}
}
