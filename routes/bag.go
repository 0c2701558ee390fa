package routes

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"gorm.io/gorm"

	"boutique/config"
	"boutique/db"
	"boutique/models"
)

// Session keys shared across the checkout flow. "username" is set by the auth
// handlers for logged-in customers.
const (
	sessionKeyBag      = "bag"
	sessionKeySaveInfo = "save_info"
	sessionKeyUsername = "username"
)

// sessionBag returns the bag held in the session along with its raw JSON
// encoding. The raw form is what gets snapshotted onto orders and into intent
// metadata, so both paths compare byte-identical strings later.
func sessionBag(sess *session.Session) (models.Bag, string, error) {
	raw, _ := sess.Get(sessionKeyBag).(string)
	if raw == "" {
		raw = "{}"
	}
	bag, err := models.ParseBag(raw)
	if err != nil {
		return nil, "", err
	}
	return bag, raw, nil
}

func sessionUsername(sess *session.Session) string {
	username, _ := sess.Get(sessionKeyUsername).(string)
	return username
}

type bagTotals struct {
	ProductCount      int     `json:"product_count"`
	OrderTotal        float64 `json:"order_total"`
	DeliveryCost      float64 `json:"delivery_cost"`
	GrandTotal        float64 `json:"grand_total"`
	FreeDeliveryDelta float64 `json:"free_delivery_delta"`
}

// computeBagTotals prices the bag against the current catalog and applies the
// delivery rules: free at or above the threshold, a percentage of the order
// total below it.
func computeBagTotals(tx *gorm.DB, bag models.Bag) (*bagTotals, error) {
	totals := &bagTotals{}
	for productID, item := range bag {
		var product models.Product
		if err := tx.First(&product, "id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: %s", errProductNotFound, productID)
			}
			return nil, err
		}
		if item.ItemsBySize == nil {
			totals.ProductCount += item.Quantity
			totals.OrderTotal += product.Price * float64(item.Quantity)
		} else {
			for _, quantity := range item.ItemsBySize {
				totals.ProductCount += quantity
				totals.OrderTotal += product.Price * float64(quantity)
			}
		}
	}
	totals.OrderTotal = models.Round2(totals.OrderTotal)
	if totals.OrderTotal < config.C.FreeDeliveryThreshold {
		totals.DeliveryCost = models.Round2(totals.OrderTotal * config.C.StandardDeliveryPercentage / 100)
		totals.FreeDeliveryDelta = models.Round2(config.C.FreeDeliveryThreshold - totals.OrderTotal)
	}
	totals.GrandTotal = models.Round2(totals.OrderTotal + totals.DeliveryCost)
	return totals, nil
}

func saveBag(sess *session.Session, bag models.Bag) error {
	raw, err := bag.Encode()
	if err != nil {
		return err
	}
	sess.Set(sessionKeyBag, raw)
	return sess.Save()
}

type bagMutationRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=0"`
	Size      string `json:"size" validate:"omitempty,oneof=XS S M L XL"`
}

func viewBag(c *fiber.Ctx) error {
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
	totals, err := computeBagTotals(db.DB, bag)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to price bag: " + err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"bag":    bag,
		"totals": totals,
	})
}

func addToBag(c *fiber.Ctx) error {
	var requestData bagMutationRequest
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
	if requestData.Quantity < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Quantity must be at least 1",
		})
	}

	var product models.Product
	if err := db.DB.First(&product, "id = ?", requestData.ProductID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Product not found",
		})
	}
	if product.HasSizes && requestData.Size == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "This product requires a size",
		})
	}

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

	item := bag[requestData.ProductID]
	if requestData.Size == "" {
		item.Quantity += requestData.Quantity
	} else {
		if item.ItemsBySize == nil {
			item.ItemsBySize = map[string]int{}
		}
		item.ItemsBySize[requestData.Size] += requestData.Quantity
	}
	bag[requestData.ProductID] = item

	if err := saveBag(sess, bag); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save bag: " + err.Error(),
		})
	}
	return c.JSON(fiber.Map{"bag": bag})
}

func adjustBag(c *fiber.Ctx) error {
	var requestData bagMutationRequest
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
	bag, _, err := sessionBag(sess)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read bag: " + err.Error(),
		})
	}

	item, ok := bag[requestData.ProductID]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Product not in bag",
		})
	}
	// quantity 0 removes the entry (or the size)
	if requestData.Size == "" {
		if requestData.Quantity > 0 {
			item.Quantity = requestData.Quantity
			bag[requestData.ProductID] = item
		} else {
			delete(bag, requestData.ProductID)
		}
	} else {
		if requestData.Quantity > 0 {
			if item.ItemsBySize == nil {
				item.ItemsBySize = map[string]int{}
			}
			item.ItemsBySize[requestData.Size] = requestData.Quantity
		} else {
			delete(item.ItemsBySize, requestData.Size)
		}
		if len(item.ItemsBySize) == 0 {
			delete(bag, requestData.ProductID)
		} else {
			bag[requestData.ProductID] = item
		}
	}

	if err := saveBag(sess, bag); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save bag: " + err.Error(),
		})
	}
	return c.JSON(fiber.Map{"bag": bag})
}

func removeFromBag(c *fiber.Ctx) error {
	var requestData bagMutationRequest
	if err := c.BodyParser(&requestData); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to parse request body: " + err.Error(),
		})
	}
	if requestData.ProductID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "product_id is required",
		})
	}
	requestData.Quantity = 0

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

	item, ok := bag[requestData.ProductID]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Product not in bag",
		})
	}
	if requestData.Size != "" && item.ItemsBySize != nil {
		delete(item.ItemsBySize, requestData.Size)
		if len(item.ItemsBySize) == 0 {
			delete(bag, requestData.ProductID)
		} else {
			bag[requestData.ProductID] = item
		}
	} else {
		delete(bag, requestData.ProductID)
	}

	if err := saveBag(sess, bag); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save bag: " + err.Error(),
		})
	}
	return c.JSON(fiber.Map{"bag": bag})
}
