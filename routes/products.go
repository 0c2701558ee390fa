package routes

import (
	"github.com/gofiber/fiber/v2"

	"boutique/db"
	"boutique/models"
)

type productListResponse struct {
	Products []models.Product `json:"products"`
	Total    int              `json:"total"`
}

func getAllProducts(c *fiber.Ctx) error {
	var products []models.Product
	if err := db.DB.Find(&products).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get products",
		})
	}
	return c.JSON(productListResponse{
		Products: products,
		Total:    len(products),
	})
}

func getProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	var product models.Product
	if err := db.DB.First(&product, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Product not found",
		})
	}
	return c.JSON(product)
}
