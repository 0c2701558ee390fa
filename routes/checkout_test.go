package routes

import (
	"errors"
	"testing"

	"gorm.io/gorm"

	"boutique/db"
	"boutique/models"
)

func TestMaterializeBagBareQuantity(t *testing.T) {
	setupTestDB(t)
	seedProduct(t, 42, "Notebook", 10)

	bag, err := models.ParseBag(`{"42": 3}`)
	if err != nil {
		t.Fatalf("failed to parse bag: %v", err)
	}

	order := models.Order{FullName: "Ada Lovelace", Email: "ada@example.com", PhoneNumber: "555-0100",
		Country: "GB", TownOrCity: "London", StreetAddress1: "1 Analytical Way"}
	if err := db.DB.Create(&order).Error; err != nil {
		t.Fatalf("failed to create order: %v", err)
	}
	if err := materializeBag(db.DB, &order, bag); err != nil {
		t.Fatalf("materializeBag returned error: %v", err)
	}

	var lineItems []models.OrderLineItem
	if err := db.DB.Where("order_id = ?", order.ID).Find(&lineItems).Error; err != nil {
		t.Fatalf("failed to load line items: %v", err)
	}
	if len(lineItems) != 1 {
		t.Fatalf("expected 1 line item, got %d", len(lineItems))
	}
	if lineItems[0].Quantity != 3 || lineItems[0].LineitemTotal != 30 {
		t.Fatalf("unexpected line item: qty=%d total=%v", lineItems[0].Quantity, lineItems[0].LineitemTotal)
	}
	if order.OrderTotal != 30 || order.DeliveryCost != 3 || order.GrandTotal != 33 {
		t.Fatalf("unexpected totals: %v / %v / %v", order.OrderTotal, order.DeliveryCost, order.GrandTotal)
	}
}

func TestMaterializeBagItemsBySize(t *testing.T) {
	setupTestDB(t)
	seedProduct(t, 7, "Shirt", 5)

	bag, err := models.ParseBag(`{"7": {"items_by_size": {"M": 2, "L": 1}}}`)
	if err != nil {
		t.Fatalf("failed to parse bag: %v", err)
	}

	order := models.Order{FullName: "Ada Lovelace", Email: "ada@example.com", PhoneNumber: "555-0100",
		Country: "GB", TownOrCity: "London", StreetAddress1: "1 Analytical Way"}
	if err := db.DB.Create(&order).Error; err != nil {
		t.Fatalf("failed to create order: %v", err)
	}
	if err := materializeBag(db.DB, &order, bag); err != nil {
		t.Fatalf("materializeBag returned error: %v", err)
	}

	var lineItems []models.OrderLineItem
	if err := db.DB.Where("order_id = ?", order.ID).Order("product_size").Find(&lineItems).Error; err != nil {
		t.Fatalf("failed to load line items: %v", err)
	}
	if len(lineItems) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(lineItems))
	}
	bySize := map[string]models.OrderLineItem{}
	for _, li := range lineItems {
		bySize[li.ProductSize] = li
	}
	if bySize["M"].Quantity != 2 || bySize["M"].LineitemTotal != 10 {
		t.Fatalf("unexpected M line item: %+v", bySize["M"])
	}
	if bySize["L"].Quantity != 1 || bySize["L"].LineitemTotal != 5 {
		t.Fatalf("unexpected L line item: %+v", bySize["L"])
	}
	if order.OrderTotal != 15 {
		t.Fatalf("expected order_total 15, got %v", order.OrderTotal)
	}
}

func TestMaterializeBagMissingProduct(t *testing.T) {
	setupTestDB(t)

	bag, err := models.ParseBag(`{"999": 2}`)
	if err != nil {
		t.Fatalf("failed to parse bag: %v", err)
	}

	order := models.Order{FullName: "Ada Lovelace", Email: "ada@example.com", PhoneNumber: "555-0100",
		Country: "GB", TownOrCity: "London", StreetAddress1: "1 Analytical Way"}
	if err := db.DB.Create(&order).Error; err != nil {
		t.Fatalf("failed to create order: %v", err)
	}

	err = materializeBag(db.DB, &order, bag)
	if !errors.Is(err, errProductNotFound) {
		t.Fatalf("expected errProductNotFound, got %v", err)
	}
}

func TestCheckoutTransactionRollsBackOnMissingProduct(t *testing.T) {
	setupTestDB(t)
	seedProduct(t, 42, "Notebook", 10)

	bag, err := models.ParseBag(`{"42": 3, "999": 1}`)
	if err != nil {
		t.Fatalf("failed to parse bag: %v", err)
	}

	// same shape as the submitCheckout transaction
	order := models.Order{FullName: "Ada Lovelace", Email: "ada@example.com", PhoneNumber: "555-0100",
		Country: "GB", TownOrCity: "London", StreetAddress1: "1 Analytical Way"}
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		return materializeBag(tx, &order, bag)
	})
	if !errors.Is(err, errProductNotFound) {
		t.Fatalf("expected errProductNotFound, got %v", err)
	}

	var orderCount, lineItemCount int64
	db.DB.Model(&models.Order{}).Count(&orderCount)
	db.DB.Model(&models.OrderLineItem{}).Count(&lineItemCount)
	if orderCount != 0 || lineItemCount != 0 {
		t.Fatalf("expected nothing persisted, got %d orders and %d line items", orderCount, lineItemCount)
	}
}

func TestComputeBagTotalsFreeDeliveryDelta(t *testing.T) {
	setupTestDB(t)
	seedProduct(t, 42, "Notebook", 10)

	bag, _ := models.ParseBag(`{"42": 3}`)
	totals, err := computeBagTotals(db.DB, bag)
	if err != nil {
		t.Fatalf("computeBagTotals returned error: %v", err)
	}
	if totals.OrderTotal != 30 || totals.DeliveryCost != 3 || totals.GrandTotal != 33 {
		t.Fatalf("unexpected totals: %+v", totals)
	}
	if totals.FreeDeliveryDelta != 20 {
		t.Fatalf("expected free delivery delta 20, got %v", totals.FreeDeliveryDelta)
	}
	if totals.ProductCount != 3 {
		t.Fatalf("expected product count 3, got %d", totals.ProductCount)
	}
}
