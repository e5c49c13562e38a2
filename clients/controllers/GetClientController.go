package controllers

import (
	"training-crm-backend/config"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// GetClientController returns one client with its hydrated contact person,
// head site and latest communication.
func (cc *ClientController) GetClientController(c *fiber.Ctx) error {
	clientID, ok := parseClientIDParam(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid client id",
		})
	}

	client, err := cc.ClientRepo.GetByID(c.Context(), clientID)
	if err != nil {
		config.Logger.Error("Failed to fetch client", zap.Error(err), zap.Uint("clientID", clientID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch client",
		})
	}
	if client == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Client not found",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": client,
	})
}
