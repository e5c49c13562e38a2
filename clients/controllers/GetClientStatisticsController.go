package controllers

import (
	"training-crm-backend/config"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// GetClientStatisticsController returns the per-status counters shown above
// the client table.
func (cc *ClientController) GetClientStatisticsController(c *fiber.Ctx) error {
	stats, err := cc.ClientRepo.GetStatistics(c.Context())
	if err != nil {
		config.Logger.Error("Failed to fetch client statistics", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch client statistics",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": stats,
	})
}
