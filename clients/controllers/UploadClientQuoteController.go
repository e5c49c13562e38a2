package controllers

import (
	"training-crm-backend/config"
	"training-crm-backend/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UploadClientQuoteController attaches an uploaded quote document to a
// client. The file lands on disk and its path is appended to the client's
// quotes list.
func (cc *ClientController) UploadClientQuoteController(c *fiber.Ctx) error {
	clientID, ok := parseClientIDParam(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid client id",
		})
	}

	client, err := cc.ClientRepo.GetByID(c.Context(), clientID)
	if err != nil {
		config.Logger.Error("Failed to load client for quote upload", zap.Error(err), zap.Uint("clientID", clientID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load client",
		})
	}
	if client == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Client not found",
		})
	}

	fileHeader, err := c.FormFile("quote")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "A quote file is required",
			"error":   err.Error(),
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Could not read the uploaded file",
			"error":   err.Error(),
		})
	}
	defer file.Close()

	storedPath, err := cc.Storage.UploadQuote(file, clientID, fileHeader.Filename)
	if err != nil {
		config.Logger.Error("Failed to store quote file", zap.Error(err), zap.Uint("clientID", clientID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to store the quote file",
			"error":   err.Error(),
		})
	}

	// Dedupe in storage can hand back a path that is already attached
	quotes := client.Quotes
	if !containsQuote(quotes, storedPath) {
		quotes = append(quotes, storedPath)
		if err := cc.ClientRepo.Update(c.Context(), clientID, map[string]interface{}{"quotes": quotes}); err != nil {
			config.Logger.Error("Failed to attach quote to client", zap.Error(err), zap.Uint("clientID", clientID))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Quote was stored but could not be attached to the client",
				"error":   err.Error(),
			})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Quote successfully uploaded",
		"data": fiber.Map{
			"path":   storedPath,
			"url":    utils.GetDownloadURL(c, "uploads/"+storedPath),
			"quotes": quotes,
		},
	})
}

func containsQuote(quotes []string, path string) bool {
	for _, quote := range quotes {
		if quote == path {
			return true
		}
	}
	return false
}
