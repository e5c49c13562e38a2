package controllers

import (
	"fmt"

	"training-crm-backend/clients/repositories"
	"training-crm-backend/clients/services"
	"training-crm-backend/config"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ExportClientsController exports the filtered client list. Small result
// sets stream back inline as CSV; anything larger is queued as a background
// Excel export and the download link is emailed.
func (cc *ClientController) ExportClientsController(c *fiber.Ctx) error {
	query := repositories.ClientQuery{
		Search: c.Query("search"),
		Status: c.Query("status"),
		Seta:   c.Query("seta"),
	}

	total, err := cc.ExportSvc.CountForExport(c.Context(), query)
	if err != nil {
		config.Logger.Error("Failed to count clients for export", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count clients for export",
		})
	}

	if total <= services.InlineExportLimit {
		content, filename, err := cc.ExportSvc.ExportCSV(c.Context(), query)
		if err != nil {
			config.Logger.Error("Failed to generate client CSV export", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to generate export",
			})
		}

		c.Set(fiber.HeaderContentType, "text/csv")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
		return c.Status(fiber.StatusOK).Send(content)
	}

	recipient := c.Query("email")
	if recipient == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Export exceeds the inline limit; provide an email address to receive the download link",
			"data": fiber.Map{
				"total": total,
				"limit": services.InlineExportLimit,
			},
		})
	}

	taskID, err := cc.ExportSvc.QueueExcelExport(c.Context(), query, recipient)
	if err != nil {
		config.Logger.Error("Failed to queue client Excel export", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to queue export",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Export queued; a download link will be emailed when ready",
		"data": fiber.Map{
			"task_id":                  taskID,
			"total":                    total,
			"processing_in_background": true,
		},
	})
}
