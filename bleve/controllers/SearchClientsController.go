package controllers

import (
	"training-crm-backend/bleve/repositories"

	"github.com/gofiber/fiber/v2"
)

func (c *SearchController) SearchClientsController(ctx *fiber.Ctx) error {
	query := ctx.Query("q")
	if query == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Search query is required",
		})
	}

	params := repositories.ClientSearchParams{
		Query:  query,
		Status: ctx.Query("status"),
		Seta:   ctx.Query("seta"),
	}

	results, err := c.repo.SearchClients(params)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Search failed",
		})
	}

	var matches []interface{}
	for _, hit := range results.Hits {
		doc, err := c.repo.GetClientDocument(hit.ID)
		if err != nil {
			continue // or log error
		}
		matches = append(matches, doc)
	}

	return ctx.JSON(fiber.Map{
		"results": matches,
		"total":   results.Total,
	})
}
