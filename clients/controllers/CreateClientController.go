package controllers

import (
	"training-crm-backend/clients/services"
	"training-crm-backend/config"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CreateClientController captures a new client: the row itself, the primary
// contact person, the head site and the opening communication entry.
func (cc *ClientController) CreateClientController(c *fiber.Ctx) error {
	var request ClientFormRequest

	// Parse incoming JSON payload
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request payload",
			"error":   err.Error(),
		})
	}

	// Validate the client form data
	validationErrors := services.ValidateClient(c.Context(), request.validationMap(), 0, cc.ClientRepo)
	if len(validationErrors) > 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationErrors,
		})
	}

	data := request.saveMap(request.CreatedBy)
	data["created_by"] = request.CreatedBy

	clientID, err := cc.ClientRepo.Create(c.Context(), data)
	if err != nil {
		config.Logger.Error("Failed to create client in database", zap.Error(err), zap.String("clientName", request.ClientName))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Something went wrong while creating the client",
			"error":   err.Error(),
		})
	}

	// Primary contact person
	if _, err := cc.ContactRepo.UpsertPrimaryContact(c.Context(), clientID, request.contactInput()); err != nil {
		config.Logger.Error("Failed to save client contact person", zap.Error(err), zap.Uint("clientID", clientID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Client was created but the contact person could not be saved",
			"error":   err.Error(),
		})
	}

	// Head site carrying the client's address
	if _, err := cc.SiteRepo.SaveHeadSite(c.Context(), request.headSite(clientID)); err != nil {
		config.Logger.Error("Failed to save client head site", zap.Error(err), zap.Uint("clientID", clientID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Client was created but the head site could not be saved",
			"error":   err.Error(),
		})
	}

	// First communication entry records the opening status
	if _, err := cc.CommunicationRepo.LogCommunicationIfChanged(c.Context(), clientID, request.ClientStatus, nil); err != nil {
		config.Logger.Warn("Failed to log initial client communication", zap.Error(err), zap.Uint("clientID", clientID))
	}

	createdClient, err := cc.ClientRepo.GetByID(c.Context(), clientID)
	if err != nil || createdClient == nil {
		config.Logger.Error("Failed to reload created client", zap.Error(err), zap.Uint("clientID", clientID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Client was created but could not be reloaded",
		})
	}

	// --- Bleve Indexing ---
	if cc.BleveRepo != nil {
		if err := cc.BleveRepo.IndexSingleClient(*createdClient); err != nil {
			config.Logger.Error("Failed to index client in Bleve", zap.Error(err), zap.Uint("clientID", clientID))
		}
	}

	cc.invalidateExportCache()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Client successfully created",
		"data":    createdClient,
	})
}
