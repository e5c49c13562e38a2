package controllers

import (
	"strconv"

	"training-crm-backend/config"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// DeleteClientController removes a client. A main client still carrying
// branches cannot be deleted; the branches must be detached or removed first.
func (cc *ClientController) DeleteClientController(c *fiber.Ctx) error {
	clientID, ok := parseClientIDParam(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid client id",
		})
	}

	existing, err := cc.ClientRepo.GetByID(c.Context(), clientID)
	if err != nil {
		config.Logger.Error("Failed to load client for deletion", zap.Error(err), zap.Uint("clientID", clientID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load client",
		})
	}
	if existing == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Client not found",
		})
	}

	branches, err := cc.ClientRepo.GetSubClients(c.Context(), clientID)
	if err != nil {
		config.Logger.Error("Failed to check client branches before deletion", zap.Error(err), zap.Uint("clientID", clientID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check client branches",
		})
	}
	if len(branches) > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "Client has branches and cannot be deleted",
			"data": fiber.Map{
				"branch_count": len(branches),
			},
		})
	}

	if err := cc.ClientRepo.Delete(c.Context(), clientID); err != nil {
		config.Logger.Error("Failed to delete client", zap.Error(err), zap.Uint("clientID", clientID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Something went wrong while deleting the client",
			"error":   err.Error(),
		})
	}

	// --- Bleve Indexing ---
	if cc.BleveRepo != nil {
		if err := cc.BleveRepo.DeleteClient(strconv.FormatUint(uint64(clientID), 10)); err != nil {
			config.Logger.Error("Failed to remove client from Bleve", zap.Error(err), zap.Uint("clientID", clientID))
		}
	}

	cc.invalidateExportCache()

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Client successfully deleted",
	})
}
