package controllers

import (
	"training-crm-backend/clients/services"
	"training-crm-backend/config"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UpdateClientController applies a full form resubmission to an existing
// client. The contact person and head site are upserted alongside the row,
// and a communication entry is appended only when the status changed.
func (cc *ClientController) UpdateClientController(c *fiber.Ctx) error {
	clientID, ok := parseClientIDParam(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid client id",
		})
	}

	existing, err := cc.ClientRepo.GetByID(c.Context(), clientID)
	if err != nil {
		config.Logger.Error("Failed to load client for update", zap.Error(err), zap.Uint("clientID", clientID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load client",
		})
	}
	if existing == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Client not found",
		})
	}

	var request ClientFormRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request payload",
			"error":   err.Error(),
		})
	}

	validationErrors := services.ValidateClient(c.Context(), request.validationMap(), clientID, cc.ClientRepo)
	if len(validationErrors) > 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationErrors,
		})
	}

	if err := cc.ClientRepo.Update(c.Context(), clientID, request.saveMap(request.UpdatedBy)); err != nil {
		config.Logger.Error("Failed to update client", zap.Error(err), zap.Uint("clientID", clientID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Something went wrong while updating the client",
			"error":   err.Error(),
		})
	}

	if _, err := cc.ContactRepo.UpsertPrimaryContact(c.Context(), clientID, request.contactInput()); err != nil {
		config.Logger.Error("Failed to upsert client contact person", zap.Error(err), zap.Uint("clientID", clientID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Client was updated but the contact person could not be saved",
			"error":   err.Error(),
		})
	}

	if _, err := cc.SiteRepo.SaveHeadSite(c.Context(), request.headSite(clientID)); err != nil {
		config.Logger.Error("Failed to save client head site", zap.Error(err), zap.Uint("clientID", clientID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Client was updated but the head site could not be saved",
			"error":   err.Error(),
		})
	}

	// Append a communication entry only when the status actually moved
	if _, err := cc.CommunicationRepo.LogCommunicationIfChanged(c.Context(), clientID, request.ClientStatus, nil); err != nil {
		config.Logger.Warn("Failed to log client status communication", zap.Error(err), zap.Uint("clientID", clientID))
	}

	updatedClient, err := cc.ClientRepo.GetByID(c.Context(), clientID)
	if err != nil || updatedClient == nil {
		config.Logger.Error("Failed to reload updated client", zap.Error(err), zap.Uint("clientID", clientID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Client was updated but could not be reloaded",
		})
	}

	// --- Bleve Indexing ---
	if cc.BleveRepo != nil {
		if err := cc.BleveRepo.UpdateClient(*updatedClient); err != nil {
			config.Logger.Error("Failed to re-index client in Bleve", zap.Error(err), zap.Uint("clientID", clientID))
		}
	}

	cc.invalidateExportCache()

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Client successfully updated",
		"data":    updatedClient,
	})
}
