package controllers

import (
	"training-crm-backend/clients/repositories"
	"training-crm-backend/config"
	"training-crm-backend/utils/pagination"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// GetFilteredClientsController lists clients with search, status and SETA
// filters plus sorting, paginated.
func (cc *ClientController) GetFilteredClientsController(c *fiber.Ctx) error {
	params := pagination.ParsePaginationParams(c)
	if err := pagination.ValidatePaginationParams(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	query := repositories.ClientQuery{
		Search:   params.Filters["search"],
		Status:   params.Filters["status"],
		Seta:     params.Filters["seta"],
		OrderBy:  params.Filters["sort_by"],
		OrderDir: params.Filters["sort_dir"],
		Limit:    params.PageSize,
		Offset:   (params.Page - 1) * params.PageSize,
	}

	clients, total, err := cc.ClientRepo.GetFiltered(c.Context(), query)
	if err != nil {
		config.Logger.Error("Failed to fetch filtered clients", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch clients",
		})
	}

	return c.Status(fiber.StatusOK).JSON(pagination.NewPaginatedResponse(c, clients, total, params))
}
