package controllers

import (
	"training-crm-backend/clients/repositories"
	"training-crm-backend/config"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const quickSearchLimit = 10

// SearchClientsQuickController serves the autocomplete list: a cheap
// LIKE-based lookup capped at a handful of rows. Full-text search with
// ranking lives on the bleve endpoint.
func (cc *ClientController) SearchClientsQuickController(c *fiber.Ctx) error {
	term := c.Query("q")
	if term == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query parameter 'q' is required",
		})
	}

	records, _, err := cc.ClientRepo.GetFiltered(c.Context(), repositories.ClientQuery{
		Search: term,
		Limit:  quickSearchLimit,
	})
	if err != nil {
		config.Logger.Error("Failed quick client search", zap.Error(err), zap.String("term", term))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to search clients",
		})
	}

	results := make([]fiber.Map, 0, len(records))
	for _, record := range records {
		results = append(results, fiber.Map{
			"id":                      record.ID,
			"client_name":             record.ClientName,
			"company_registration_nr": record.CompanyRegistrationNr,
			"client_status":           record.ClientStatus,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": results,
		"meta": fiber.Map{
			"count": len(results),
		},
	})
}
